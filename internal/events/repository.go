package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	TypeCaseCreated      = "CASE_CREATED"
	TypeStatusChanged    = "STATUS_CHANGED"
	TypeBudgetSaved      = "BUDGET_SAVED"
	TypePaymentRecorded  = "PAYMENT_RECORDED"
	TypeQuoteRejected    = "QUOTE_REJECTED"
	TypeWorkUpdated      = "WORK_UPDATED"
	TypeDeliveryUpdated  = "DELIVERY_UPDATED"
	TypeInvoiceRecorded  = "INVOICE_RECORDED"
	TypeNotificationSent = "NOTIFICATION_SENT"
)

type Event struct {
	ID         int64     `json:"id"`
	CaseID     int64     `json:"caseId"`
	EventType  string    `json:"eventType"`
	Summary    string    `json:"summary"`
	Actor      string    `json:"actor"`
	OccurredAt time.Time `json:"occurredAt"`
	Data       any       `json:"data,omitempty"`
}

func Insert(ctx context.Context, tx pgx.Tx, e Event) error {
	var s *string
	if e.Data != nil {
		b, _ := json.Marshal(e.Data)
		str := string(b)
		s = &str
	}
	const q = `
INSERT INTO reparacion_eventos (reparacion_id, tipo, resumen, actor, ocurrido_en, datos)
VALUES ($1, $2, $3, $4, $5, CAST($6 AS jsonb))
`
	_, err := tx.Exec(ctx, q, e.CaseID, e.EventType, e.Summary, e.Actor, e.OccurredAt, s)
	return err
}

func ListByCase(ctx context.Context, db *pgxpool.Pool, caseID int64) ([]Event, error) {
	const q = `
SELECT id, reparacion_id, tipo, resumen, actor, ocurrido_en, COALESCE(datos, '{}'::jsonb)
FROM reparacion_eventos
WHERE reparacion_id = $1
ORDER BY ocurrido_en ASC, id ASC
`
	rows, err := db.Query(ctx, q, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var raw []byte
		if err := rows.Scan(&e.ID, &e.CaseID, &e.EventType, &e.Summary, &e.Actor, &e.OccurredAt, &raw); err != nil {
			return nil, err
		}
		if len(raw) > 0 {
			var data map[string]any
			if err := json.Unmarshal(raw, &data); err == nil {
				e.Data = data
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
