package db

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// NextSequence allocates the next number of a per-year counter. The row lock
// taken by the upsert serializes concurrent callers until tx ends, so numbers
// are unique and strictly increasing within (kind, year).
func NextSequence(ctx context.Context, tx pgx.Tx, kind string, year int) (int, error) {
	const q = `
INSERT INTO secuencias (tipo, anio, ultimo)
VALUES ($1, $2, 1)
ON CONFLICT (tipo, anio) DO UPDATE SET ultimo = secuencias.ultimo + 1
RETURNING ultimo
`
	var n int
	if err := tx.QueryRow(ctx, q, kind, year).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
