// Package audit records back-office administrative actions.
package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"repairshop/internal/api"
)

type Action string

const (
	ActionStaffSaved   Action = "STAFF_SAVED"
	ActionStaffDeleted Action = "STAFF_DELETED"
	ActionResetIssued  Action = "PASSWORD_RESET_ISSUED"
)

type Entry struct {
	Action   Action
	Actor    string
	Target   string
	Metadata any
}

type Record struct {
	ID        int64           `json:"id"`
	Action    Action          `json:"accion"`
	Actor     string          `json:"actor"`
	Target    string          `json:"objetivo"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Insert stores e through q, which may be a pool or a transaction.
func Insert(ctx context.Context, q execer, e Entry) error {
	var s *string
	if e.Metadata != nil {
		b, err := json.Marshal(e.Metadata)
		if err != nil {
			return err
		}
		str := string(b)
		s = &str
	}
	const sql = `
INSERT INTO auditoria (accion, actor, objetivo, metadata)
VALUES ($1, $2, $3, CAST($4 AS jsonb))
`
	_, err := q.Exec(ctx, sql, string(e.Action), e.Actor, e.Target, s)
	return err
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Log(ctx context.Context, e Entry) error {
	return Insert(ctx, r.db, e)
}

func (r *Repository) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	const q = `
SELECT id, accion, actor, objetivo, metadata, created_at
FROM auditoria
ORDER BY created_at DESC, id DESC
LIMIT $1
`
	rows, err := r.db.Query(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		var rec Record
		var action string
		var meta []byte
		if err := rows.Scan(&rec.ID, &action, &rec.Actor, &rec.Target, &meta, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Action = Action(action)
		if len(meta) > 0 {
			rec.Metadata = meta
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ListHandler serves GET /admin/audit?limit=.
func (r *Repository) ListHandler(w http.ResponseWriter, req *http.Request) {
	limit := 0
	if l := req.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "limit inválido")
			return
		}
		limit = n
	}
	items, err := r.List(req.Context(), limit)
	if err != nil {
		api.WriteDomainError(w, err, false)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}
