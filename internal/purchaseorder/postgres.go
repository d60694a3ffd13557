package purchaseorder

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"repairshop/pkg/db"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, o *Order) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		seq, err := db.NextSequence(ctx, tx, SequenceKind, o.Date.Year())
		if err != nil {
			return err
		}
		o.Number = FormatNumber(o.Date.Year(), seq)

		var rate *string
		if o.TaxRate.Valid {
			s := o.TaxRate.Decimal.StringFixed(2)
			rate = &s
		}
		const q = `
INSERT INTO ordenes_compra (
  numero_oc, fecha, direccion, proveedor_empresa, proveedor_telefono, proveedor_direccion, proveedor_ciudad,
  entrega_direccion, tasa_impuesto, envio, otro, subtotal, impuesto, total, creado_por
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
RETURNING id, created_at
`
		if err := tx.QueryRow(ctx, q,
			o.Number, o.Date, o.Address, o.Supplier.Company, o.Supplier.Phone, o.Supplier.Address, o.Supplier.City,
			o.DeliveryAddress, rate, o.Shipping.StringFixed(2), o.Other.StringFixed(2),
			o.Subtotal.StringFixed(2), o.Tax.StringFixed(2), o.Total.StringFixed(2), o.CreatedBy,
		).Scan(&o.ID, &o.CreatedAt); err != nil {
			return err
		}

		const qi = `
INSERT INTO orden_items (orden_id, posicion, cantidad, peso, descripcion, precio_unitario, valor_total)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`
		batch := &pgx.Batch{}
		for _, it := range o.Items {
			batch.Queue(qi,
				o.ID, it.Position, it.Quantity.StringFixed(2), it.Weight, it.Description,
				it.UnitPrice.StringFixed(2), it.LineTotal.StringFixed(2),
			)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}

const orderColumns = `
id, numero_oc, fecha, direccion, proveedor_empresa, proveedor_telefono, proveedor_direccion, proveedor_ciudad,
entrega_direccion, tasa_impuesto::text, envio::text, otro::text, subtotal::text, impuesto::text, total::text,
creado_por, created_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var rate *string
	var shipping, other, subtotal, tax, total string
	if err := row.Scan(
		&o.ID, &o.Number, &o.Date, &o.Address, &o.Supplier.Company, &o.Supplier.Phone, &o.Supplier.Address, &o.Supplier.City,
		&o.DeliveryAddress, &rate, &shipping, &other, &subtotal, &tax, &total,
		&o.CreatedBy, &o.CreatedAt,
	); err != nil {
		return nil, err
	}
	if rate != nil {
		d, err := decimal.NewFromString(*rate)
		if err != nil {
			return nil, err
		}
		o.TaxRate = decimal.NewNullDecimal(d)
	}
	for _, f := range []struct {
		dst *decimal.Decimal
		src string
	}{{&o.Shipping, shipping}, {&o.Other, other}, {&o.Subtotal, subtotal}, {&o.Tax, tax}, {&o.Total, total}} {
		d, err := decimal.NewFromString(f.src)
		if err != nil {
			return nil, err
		}
		*f.dst = d
	}
	return &o, nil
}

func (r *Repository) List(ctx context.Context, limit int) ([]Order, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.db.Query(ctx, `SELECT `+orderColumns+` FROM ordenes_compra ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func (r *Repository) Get(ctx context.Context, id int64) (*Order, error) {
	o, err := scanOrder(r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM ordenes_compra WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	const q = `
SELECT posicion, cantidad::text, peso, descripcion, precio_unitario::text, valor_total::text
FROM orden_items
WHERE orden_id = $1
ORDER BY posicion ASC
`
	rows, err := r.db.Query(ctx, q, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var it Item
		var qty, price, line string
		if err := rows.Scan(&it.Position, &qty, &it.Weight, &it.Description, &price, &line); err != nil {
			return nil, err
		}
		if it.Quantity, err = decimal.NewFromString(qty); err != nil {
			return nil, err
		}
		if it.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, err
		}
		if it.LineTotal, err = decimal.NewFromString(line); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, it)
	}
	return o, rows.Err()
}
