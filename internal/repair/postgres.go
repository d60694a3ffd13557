package repair

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"repairshop/internal/events"
	"repairshop/pkg/db"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	err := db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		return fn(pgTx{tx: tx})
	})
	if db.IsLockTimeout(err) {
		return ErrBusy
	}
	return err
}

const caseColumns = `id, numero_ingreso, cliente_id, estado, observaciones, recepcionista, numero_factura,
       fecha_entrega, fecha_factura, created_at, updated_at`

func scanCase(row pgx.Row) (*Case, error) {
	var c Case
	var status string
	if err := row.Scan(
		&c.ID, &c.EntryNumber, &c.ClientID, &status, &c.Notes, &c.Receptionist, &c.InvoiceNumber,
		&c.DeliveredAt, &c.InvoicedAt, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	st, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}
	c.Status = st
	return &c, nil
}

func (s *PostgresStore) GetCase(ctx context.Context, id int64) (*Case, error) {
	q := `SELECT ` + caseColumns + ` FROM reparaciones WHERE id = $1`
	return scanCase(s.db.QueryRow(ctx, q, id))
}

func (s *PostgresStore) ListCases(ctx context.Context, f ListFilter) ([]CaseSummary, error) {
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 200
	}
	const q = `
SELECT r.id, r.numero_ingreso, r.cliente_id, r.estado, r.observaciones, r.recepcionista, r.numero_factura,
       r.fecha_entrega, r.fecha_factura, r.created_at, r.updated_at,
       TRIM(c.nombre || ' ' || c.apellido), COALESCE(e.tipo, ''), COALESCE(e.marca, '')
FROM reparaciones r
JOIN clientes c ON c.id = r.cliente_id
LEFT JOIN LATERAL (
  SELECT tipo, marca FROM equipos WHERE reparacion_id = r.id ORDER BY id LIMIT 1
) e ON TRUE
WHERE ($1::text = '' OR r.estado = $1::text)
ORDER BY r.created_at DESC, r.id DESC
LIMIT $2
`
	rows, err := s.db.Query(ctx, q, string(f.Status), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CaseSummary
	for rows.Next() {
		var cs CaseSummary
		var status string
		if err := rows.Scan(
			&cs.ID, &cs.EntryNumber, &cs.ClientID, &status, &cs.Notes, &cs.Receptionist, &cs.InvoiceNumber,
			&cs.DeliveredAt, &cs.InvoicedAt, &cs.CreatedAt, &cs.UpdatedAt,
			&cs.ClientName, &cs.Equipment, &cs.Brand,
		); err != nil {
			return nil, err
		}
		if cs.Status, err = ParseStatus(status); err != nil {
			return nil, err
		}
		out = append(out, cs)
	}
	return out, rows.Err()
}

func (s *PostgresStore) LoadBundle(ctx context.Context, id int64) (*Bundle, error) {
	c, err := s.GetCase(ctx, id)
	if err != nil {
		return nil, err
	}
	b := &Bundle{Case: *c}
	if cl, err := getClient(ctx, s.db, c.ClientID); err == nil {
		b.Client = cl
	} else if !errors.Is(err, ErrClientNotFound) {
		return nil, err
	}
	if b.Equipment, err = listEquipment(ctx, s.db, c.ID); err != nil {
		return nil, err
	}
	if b.Budget, err = activeBudget(ctx, s.db, c.ID, false); err != nil {
		return nil, err
	}
	if b.Work, err = getWork(ctx, s.db, c.ID); err != nil {
		return nil, err
	}
	if b.Delivery, err = getDelivery(ctx, s.db, c.ID); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *PostgresStore) FindByEntryNumbers(ctx context.Context, candidates []string) (*Case, error) {
	q := `SELECT ` + caseColumns + `
FROM reparaciones
WHERE numero_ingreso = ANY($1::text[])
ORDER BY created_at DESC, id DESC
LIMIT 1`
	return scanCase(s.db.QueryRow(ctx, q, candidates))
}

func (s *PostgresStore) SearchEntryNumber(ctx context.Context, search EntrySearch) (*Case, error) {
	if search.Pattern != "" {
		q := `SELECT ` + caseColumns + `
FROM reparaciones
WHERE numero_ingreso ~* $1
ORDER BY created_at DESC, id DESC
LIMIT 1`
		return scanCase(s.db.QueryRow(ctx, q, search.Pattern))
	}
	q := `SELECT ` + caseColumns + `
FROM reparaciones
WHERE numero_ingreso ILIKE '%' || $1 || '%'
ORDER BY created_at DESC, id DESC
LIMIT 1`
	return scanCase(s.db.QueryRow(ctx, q, escapeLike(search.Substring)))
}

func (s *PostgresStore) GetClient(ctx context.Context, id int64) (*Client, error) {
	return getClient(ctx, s.db, id)
}

func (s *PostgresStore) ListClients(ctx context.Context, search string) ([]Client, error) {
	const q = `
SELECT id, nombre, apellido, dni_cuil, telefono, email, direccion, tipo, created_at
FROM clientes
WHERE $1 = ''
   OR nombre ILIKE '%' || $1 || '%'
   OR apellido ILIKE '%' || $1 || '%'
   OR dni_cuil ILIKE '%' || $1 || '%'
ORDER BY nombre, apellido
LIMIT 200
`
	rows, err := s.db.Query(ctx, q, escapeLike(strings.TrimSpace(search)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Client
	for rows.Next() {
		var c Client
		var kind string
		if err := rows.Scan(&c.ID, &c.Name, &c.Surname, &c.TaxID, &c.Phone, &c.Email, &c.Address, &kind, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.Kind = ClientKind(kind)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListEvents(ctx context.Context, caseID int64) ([]events.Event, error) {
	return events.ListByCase(ctx, s.db, caseID)
}

func (s *PostgresStore) Stats(ctx context.Context, from, to time.Time) (*Stats, error) {
	batch := &pgx.Batch{}
	batch.Queue(`SELECT estado, COUNT(*) FROM reparaciones GROUP BY estado`)
	batch.Queue(`
SELECT
  (SELECT COUNT(*) FROM entregas WHERE estado_entrega = 'entregado'),
  (SELECT COUNT(*) FROM reparaciones WHERE fecha_entrega >= $1 AND fecha_entrega < $2),
  (SELECT COUNT(*) FROM reparaciones WHERE created_at >= $1 AND created_at < $2),
  (SELECT COALESCE(SUM(p.importe_total), 0)::text
     FROM reparaciones r
     JOIN presupuestos p ON p.reparacion_id = r.id AND p.reemplazado_en IS NULL AND NOT p.rechazado
    WHERE r.fecha_factura >= $1 AND r.fecha_factura < $2)
`, from, to)

	br := s.db.SendBatch(ctx, batch)
	defer br.Close()

	rows, err := br.Query()
	if err != nil {
		return nil, err
	}
	st := &Stats{ByStatus: map[Status]int{}}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			rows.Close()
			return nil, err
		}
		parsed, err := ParseStatus(status)
		if err != nil {
			rows.Close()
			return nil, err
		}
		st.ByStatus[parsed] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var invoiced string
	st.Week = WeekStats{From: from, To: to}
	if err := br.QueryRow().Scan(&st.Delivered, &st.Week.Delivered, &st.Week.Intakes, &invoiced); err != nil {
		return nil, err
	}
	if st.Week.Invoiced, err = decimal.NewFromString(invoiced); err != nil {
		return nil, err
	}
	return st, nil
}

type pgTx struct {
	tx pgx.Tx
}

func (t pgTx) NextSequence(ctx context.Context, kind string, year int) (int, error) {
	return db.NextSequence(ctx, t.tx, kind, year)
}

func (t pgTx) InsertClient(ctx context.Context, c *Client) error {
	const q = `
INSERT INTO clientes (nombre, apellido, dni_cuil, telefono, email, direccion, tipo, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id
`
	return t.tx.QueryRow(ctx, q, c.Name, c.Surname, c.TaxID, c.Phone, c.Email, c.Address, string(c.Kind), c.CreatedAt).Scan(&c.ID)
}

func (t pgTx) UpdateClient(ctx context.Context, c *Client) error {
	const q = `
UPDATE clientes
SET nombre = $2, apellido = $3, dni_cuil = $4, telefono = $5, email = $6, direccion = $7, tipo = $8
WHERE id = $1
`
	tag, err := t.tx.Exec(ctx, q, c.ID, c.Name, c.Surname, c.TaxID, c.Phone, c.Email, c.Address, string(c.Kind))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrClientNotFound
	}
	return nil
}

func (t pgTx) GetClient(ctx context.Context, id int64) (*Client, error) {
	return getClient(ctx, t.tx, id)
}

func (t pgTx) InsertCase(ctx context.Context, c *Case) error {
	const q = `
INSERT INTO reparaciones (numero_ingreso, cliente_id, estado, observaciones, recepcionista, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id
`
	err := t.tx.QueryRow(ctx, q, c.EntryNumber, c.ClientID, string(c.Status), c.Notes, c.Receptionist, c.CreatedAt, c.UpdatedAt).Scan(&c.ID)
	if db.IsUniqueViolation(err) {
		return ErrDuplicateEntry
	}
	return err
}

func (t pgTx) GetCaseForUpdate(ctx context.Context, id int64) (*Case, error) {
	q := `SELECT ` + caseColumns + ` FROM reparaciones WHERE id = $1 FOR UPDATE`
	return scanCase(t.tx.QueryRow(ctx, q, id))
}

func (t pgTx) UpdateCaseStatus(ctx context.Context, id int64, status Status, at time.Time) error {
	if _, err := ParseStatus(string(status)); err != nil {
		return err
	}
	return t.execOne(ctx, `UPDATE reparaciones SET estado = $2, updated_at = $3 WHERE id = $1`, id, string(status), at)
}

func (t pgTx) SetDelivered(ctx context.Context, id int64, at time.Time) error {
	return t.execOne(ctx, `UPDATE reparaciones SET fecha_entrega = $2, updated_at = $2 WHERE id = $1`, id, at)
}

func (t pgTx) SetInvoiceNumber(ctx context.Context, id int64, number string, at time.Time) error {
	return t.execOne(ctx, `UPDATE reparaciones SET numero_factura = $2, fecha_factura = $3, updated_at = $3 WHERE id = $1`, id, number, at)
}

func (t pgTx) DeleteCase(ctx context.Context, id int64) error {
	return t.execOne(ctx, `DELETE FROM reparaciones WHERE id = $1`, id)
}

func (t pgTx) InsertEquipment(ctx context.Context, items []Equipment) error {
	const q = `
INSERT INTO equipos (reparacion_id, tipo, marca, numero_serie, cantidad, potencia, tension, revoluciones)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id
`
	for i := range items {
		e := &items[i]
		if err := t.tx.QueryRow(ctx, q, e.CaseID, e.Type, e.Brand, e.Serial, e.Quantity, e.Power, e.Voltage, e.RPM).Scan(&e.ID); err != nil {
			return err
		}
	}
	return nil
}

func (t pgTx) ListEquipment(ctx context.Context, caseID int64) ([]Equipment, error) {
	return listEquipment(ctx, t.tx, caseID)
}

func (t pgTx) ActiveBudget(ctx context.Context, caseID int64) (*Budget, error) {
	return activeBudget(ctx, t.tx, caseID, true)
}

func (t pgTx) InsertBudget(ctx context.Context, b *Budget) error {
	const q = `
INSERT INTO presupuestos (
  reparacion_id, diagnostico_falla, descripcion_proceso, repuestos_necesarios,
  importe_total, diagnostico, senia, diagnostico_abonado, senia_abonada, rechazado, emision_factura, created_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING id
`
	var total *string
	if b.Total.Valid {
		s := b.Total.Decimal.StringFixed(2)
		total = &s
	}
	return t.tx.QueryRow(ctx, q,
		b.CaseID, b.Diagnosis, b.Process, b.Parts,
		total, b.DiagnosticFee.StringFixed(2), b.Deposit.StringFixed(2),
		b.DiagnosticPaid, b.DepositPaid, b.Rejected, b.InvoiceRequired, b.CreatedAt,
	).Scan(&b.ID)
}

func (t pgTx) SupersedeBudget(ctx context.Context, id int64, at time.Time) error {
	return t.execOne(ctx, `UPDATE presupuestos SET reemplazado_en = $2 WHERE id = $1 AND reemplazado_en IS NULL`, id, at)
}

func (t pgTx) UpdateBudgetFlags(ctx context.Context, b *Budget) error {
	const q = `
UPDATE presupuestos
SET diagnostico_abonado = $2, senia_abonada = $3, rechazado = $4
WHERE id = $1
`
	return t.execOne(ctx, q, b.ID, b.DiagnosticPaid, b.DepositPaid, b.Rejected)
}

func (t pgTx) GetWork(ctx context.Context, caseID int64) (*WorkAssignment, error) {
	return getWork(ctx, t.tx, caseID)
}

func (t pgTx) UpsertWork(ctx context.Context, w *WorkAssignment) error {
	const q = `
INSERT INTO trabajos_reparacion (reparacion_id, encargado_reparacion, armador, observaciones, estado_reparacion, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (reparacion_id) DO UPDATE
SET encargado_reparacion = EXCLUDED.encargado_reparacion,
    armador = EXCLUDED.armador,
    observaciones = EXCLUDED.observaciones,
    estado_reparacion = EXCLUDED.estado_reparacion,
    updated_at = EXCLUDED.updated_at
`
	_, err := t.tx.Exec(ctx, q, w.CaseID, w.Lead, w.Assembler, w.Notes, string(w.Status), w.UpdatedAt)
	return err
}

func (t pgTx) GetDelivery(ctx context.Context, caseID int64) (*Delivery, error) {
	return getDelivery(ctx, t.tx, caseID)
}

func (t pgTx) UpsertDelivery(ctx context.Context, d *Delivery) error {
	const q = `
INSERT INTO entregas (
  reparacion_id, cajero, fecha_retiro, nombre_retirante, apellido_retirante, dni_retirante,
  estado_entrega, motivo, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (reparacion_id) DO UPDATE
SET cajero = EXCLUDED.cajero,
    fecha_retiro = EXCLUDED.fecha_retiro,
    nombre_retirante = EXCLUDED.nombre_retirante,
    apellido_retirante = EXCLUDED.apellido_retirante,
    dni_retirante = EXCLUDED.dni_retirante,
    estado_entrega = EXCLUDED.estado_entrega,
    motivo = EXCLUDED.motivo,
    updated_at = EXCLUDED.updated_at
`
	_, err := t.tx.Exec(ctx, q,
		d.CaseID, d.Cashier, d.PickupDate, d.PickupName, d.PickupSurname, d.PickupID,
		string(d.Status), string(d.Reason), d.UpdatedAt,
	)
	return err
}

func (t pgTx) AppendEvent(ctx context.Context, e events.Event) error {
	return events.Insert(ctx, t.tx, e)
}

func (t pgTx) execOne(ctx context.Context, q string, args ...any) error {
	tag, err := t.tx.Exec(ctx, q, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func getClient(ctx context.Context, q querier, id int64) (*Client, error) {
	const sql = `
SELECT id, nombre, apellido, dni_cuil, telefono, email, direccion, tipo, created_at
FROM clientes
WHERE id = $1
`
	var c Client
	var kind string
	if err := q.QueryRow(ctx, sql, id).Scan(&c.ID, &c.Name, &c.Surname, &c.TaxID, &c.Phone, &c.Email, &c.Address, &kind, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}
	c.Kind = ClientKind(kind)
	return &c, nil
}

func listEquipment(ctx context.Context, q querier, caseID int64) ([]Equipment, error) {
	const sql = `
SELECT id, reparacion_id, tipo, marca, numero_serie, cantidad, potencia, tension, revoluciones
FROM equipos
WHERE reparacion_id = $1
ORDER BY id
`
	rows, err := q.Query(ctx, sql, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Equipment
	for rows.Next() {
		var e Equipment
		if err := rows.Scan(&e.ID, &e.CaseID, &e.Type, &e.Brand, &e.Serial, &e.Quantity, &e.Power, &e.Voltage, &e.RPM); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func activeBudget(ctx context.Context, q querier, caseID int64, forUpdate bool) (*Budget, error) {
	sql := `
SELECT id, reparacion_id, diagnostico_falla, descripcion_proceso, repuestos_necesarios,
       importe_total::text, diagnostico::text, senia::text,
       diagnostico_abonado, senia_abonada, rechazado, emision_factura, created_at, reemplazado_en
FROM presupuestos
WHERE reparacion_id = $1 AND reemplazado_en IS NULL
`
	if forUpdate {
		sql += "FOR UPDATE\n"
	}
	var b Budget
	var total *string
	var fee, deposit string
	err := q.QueryRow(ctx, sql, caseID).Scan(
		&b.ID, &b.CaseID, &b.Diagnosis, &b.Process, &b.Parts,
		&total, &fee, &deposit,
		&b.DiagnosticPaid, &b.DepositPaid, &b.Rejected, &b.InvoiceRequired, &b.CreatedAt, &b.SupersededAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if total != nil {
		d, err := decimal.NewFromString(*total)
		if err != nil {
			return nil, err
		}
		b.Total = decimal.NewNullDecimal(d)
	}
	if b.DiagnosticFee, err = decimal.NewFromString(fee); err != nil {
		return nil, err
	}
	if b.Deposit, err = decimal.NewFromString(deposit); err != nil {
		return nil, err
	}
	return &b, nil
}

func getWork(ctx context.Context, q querier, caseID int64) (*WorkAssignment, error) {
	const sql = `
SELECT reparacion_id, encargado_reparacion, armador, observaciones, estado_reparacion, updated_at
FROM trabajos_reparacion
WHERE reparacion_id = $1
`
	var w WorkAssignment
	var status string
	if err := q.QueryRow(ctx, sql, caseID).Scan(&w.CaseID, &w.Lead, &w.Assembler, &w.Notes, &status, &w.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	ws, err := ParseWorkStatus(status)
	if err != nil {
		return nil, err
	}
	w.Status = ws
	return &w, nil
}

func getDelivery(ctx context.Context, q querier, caseID int64) (*Delivery, error) {
	const sql = `
SELECT reparacion_id, cajero, fecha_retiro, nombre_retirante, apellido_retirante, dni_retirante,
       estado_entrega, motivo, updated_at
FROM entregas
WHERE reparacion_id = $1
`
	var d Delivery
	var status, reason string
	if err := q.QueryRow(ctx, sql, caseID).Scan(
		&d.CaseID, &d.Cashier, &d.PickupDate, &d.PickupName, &d.PickupSurname, &d.PickupID,
		&status, &reason, &d.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	ds, err := ParseDeliveryStatus(status)
	if err != nil {
		return nil, err
	}
	d.Status = ds
	d.Reason = DeliveryReason(reason)
	return &d, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
