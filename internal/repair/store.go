package repair

import (
	"context"
	"time"

	"repairshop/internal/events"
)

// Store is the Repair Record Store. Transitions run through WithTx so every
// write of one transition commits or rolls back together.
type Store interface {
	Reader
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

type Reader interface {
	GetCase(ctx context.Context, id int64) (*Case, error)
	ListCases(ctx context.Context, filter ListFilter) ([]CaseSummary, error)
	LoadBundle(ctx context.Context, id int64) (*Bundle, error)

	// FindByEntryNumbers returns the most recently created case whose entry
	// number equals any candidate.
	FindByEntryNumbers(ctx context.Context, candidates []string) (*Case, error)
	// SearchEntryNumber falls back to a pattern (regex) or substring match.
	SearchEntryNumber(ctx context.Context, q EntrySearch) (*Case, error)

	GetClient(ctx context.Context, id int64) (*Client, error)
	ListClients(ctx context.Context, search string) ([]Client, error)
	ListEvents(ctx context.Context, caseID int64) ([]events.Event, error)

	// Stats counts cases per status and sums the [from, to) window.
	Stats(ctx context.Context, from, to time.Time) (*Stats, error)
}

// Tx is the write side, bound to one transaction.
type Tx interface {
	NextSequence(ctx context.Context, kind string, year int) (int, error)

	InsertClient(ctx context.Context, c *Client) error
	UpdateClient(ctx context.Context, c *Client) error
	GetClient(ctx context.Context, id int64) (*Client, error)

	InsertCase(ctx context.Context, c *Case) error
	GetCaseForUpdate(ctx context.Context, id int64) (*Case, error)
	UpdateCaseStatus(ctx context.Context, id int64, status Status, at time.Time) error
	SetDelivered(ctx context.Context, id int64, at time.Time) error
	SetInvoiceNumber(ctx context.Context, id int64, number string, at time.Time) error
	DeleteCase(ctx context.Context, id int64) error

	InsertEquipment(ctx context.Context, items []Equipment) error
	ListEquipment(ctx context.Context, caseID int64) ([]Equipment, error)

	// ActiveBudget, GetWork and GetDelivery return nil, nil when the row does not exist.
	ActiveBudget(ctx context.Context, caseID int64) (*Budget, error)
	InsertBudget(ctx context.Context, b *Budget) error
	SupersedeBudget(ctx context.Context, id int64, at time.Time) error
	UpdateBudgetFlags(ctx context.Context, b *Budget) error

	GetWork(ctx context.Context, caseID int64) (*WorkAssignment, error)
	UpsertWork(ctx context.Context, w *WorkAssignment) error

	GetDelivery(ctx context.Context, caseID int64) (*Delivery, error)
	UpsertDelivery(ctx context.Context, d *Delivery) error

	AppendEvent(ctx context.Context, e events.Event) error
}

type ListFilter struct {
	Status Status
	Limit  int
}

type CaseSummary struct {
	Case
	ClientName string `json:"cliente"`
	Equipment  string `json:"equipo"`
	Brand      string `json:"marca"`
}

// EntrySearch is either a regex Pattern or a case-insensitive Substring.
type EntrySearch struct {
	Pattern   string
	Substring string
}
