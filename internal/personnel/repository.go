package personnel

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"repairshop/pkg/db"
)

type Store interface {
	List(ctx context.Context) ([]Staff, error)
	GetByID(ctx context.Context, id string) (*Staff, error)
	GetByEmail(ctx context.Context, email string) (*Staff, error)
	// Upsert inserts or updates by email. An empty PasswordHash keeps the stored one.
	Upsert(ctx context.Context, s *Staff) (*Staff, error)
	// Delete removes the staff member by email. It refuses with ErrLastManager
	// when the target is the only active encargado.
	Delete(ctx context.Context, email string) error

	CreateResetToken(ctx context.Context, t ResetToken) error
	// ResetPassword consumes the token and stores hash for its owner in one
	// transaction. It returns the owner's staff id.
	ResetPassword(ctx context.Context, token, hash string, now time.Time) (string, error)
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const staffColumns = `id::text, correo, nombre_completo, rol, activo, clave_hash, created_at, updated_at`

func scanStaff(row pgx.Row) (*Staff, error) {
	s := &Staff{}
	var role string
	if err := row.Scan(&s.ID, &s.Email, &s.FullName, &role, &s.Active, &s.PasswordHash, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	s.Role = Role(role)
	return s, nil
}

func (r *Repository) List(ctx context.Context) ([]Staff, error) {
	rows, err := r.db.Query(ctx, `SELECT `+staffColumns+` FROM personal ORDER BY nombre_completo ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Staff
	for rows.Next() {
		s, err := scanStaff(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (r *Repository) GetByID(ctx context.Context, id string) (*Staff, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	return scanStaff(r.db.QueryRow(ctx, `SELECT `+staffColumns+` FROM personal WHERE id = $1`, id))
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (*Staff, error) {
	return scanStaff(r.db.QueryRow(ctx, `SELECT `+staffColumns+` FROM personal WHERE correo = $1`, NormalizeEmail(email)))
}

func (r *Repository) Upsert(ctx context.Context, s *Staff) (*Staff, error) {
	const q = `
INSERT INTO personal (id, correo, nombre_completo, rol, activo, clave_hash)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (correo) DO UPDATE SET
  nombre_completo = EXCLUDED.nombre_completo,
  rol = EXCLUDED.rol,
  activo = EXCLUDED.activo,
  clave_hash = CASE WHEN EXCLUDED.clave_hash = '' THEN personal.clave_hash ELSE EXCLUDED.clave_hash END,
  updated_at = NOW()
RETURNING ` + staffColumns
	return scanStaff(r.db.QueryRow(ctx, q,
		uuid.New(), NormalizeEmail(s.Email), s.FullName, string(s.Role), s.Active, s.PasswordHash,
	))
}

func (r *Repository) Delete(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		var role string
		var active bool
		err := tx.QueryRow(ctx, `SELECT rol, activo FROM personal WHERE correo = $1 FOR UPDATE`, email).Scan(&role, &active)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}

		if Role(role) == RoleEncargado && active {
			// Lock every active encargado so two concurrent deletes cannot both pass.
			rows, err := tx.Query(ctx, `SELECT id FROM personal WHERE rol = 'encargado' AND activo FOR UPDATE`)
			if err != nil {
				return err
			}
			n := 0
			for rows.Next() {
				n++
			}
			rows.Close()
			if err := rows.Err(); err != nil {
				return err
			}
			if n <= 1 {
				return ErrLastManager
			}
		}

		_, err = tx.Exec(ctx, `DELETE FROM personal WHERE correo = $1`, email)
		return err
	})
}

func (r *Repository) CreateResetToken(ctx context.Context, t ResetToken) error {
	const q = `
INSERT INTO restablecimientos_clave (token, personal_id, expira_en)
VALUES ($1, $2, $3)
`
	_, err := r.db.Exec(ctx, q, t.Token, t.StaffID, t.ExpiresAt)
	return err
}

func (r *Repository) ResetPassword(ctx context.Context, token, hash string, now time.Time) (string, error) {
	var staffID string
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		const consume = `
UPDATE restablecimientos_clave
SET usado_en = $2
WHERE token = $1 AND usado_en IS NULL AND expira_en > $2
RETURNING personal_id::text
`
		if err := tx.QueryRow(ctx, consume, token, now).Scan(&staffID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrResetInvalid
			}
			return err
		}

		tag, err := tx.Exec(ctx, `UPDATE personal SET clave_hash = $2, updated_at = $3 WHERE id = $1`, staffID, hash, now)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return staffID, nil
}
