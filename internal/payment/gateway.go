// Package payment charges clients for the diagnostic fee and deposit of a quote.
package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"repairshop/pkg/config"
)

const (
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

var ErrInvalidAmount = errors.New("payment amount must be > 0")

type Charge struct {
	CaseID      int64
	EntryNumber string
	Amount      decimal.Decimal
	Description string
	PayerEmail  string

	// IdempotencyKey is stable for one logical charge so a retried request
	// cannot bill the client twice.
	IdempotencyKey string
}

var chargeNamespace = uuid.MustParse("6f1c2a4e-5b7d-4c1e-9a0f-3d2b8e7c6a51")

// ChargeKey derives the idempotency key for charging a quote. The same case,
// budget, scope and amount always yield the same key.
func ChargeKey(caseID, budgetID int64, scope string, amount decimal.Decimal) string {
	name := fmt.Sprintf("%d/%d/%s/%s", caseID, budgetID, scope, amount.StringFixed(2))
	return uuid.NewSHA1(chargeNamespace, []byte(name)).String()
}

type Receipt struct {
	Provider  string `json:"provider"`
	Reference string `json:"reference"`
	Status    string `json:"status"`
}

func (r *Receipt) Approved() bool {
	return r != nil && strings.EqualFold(r.Status, StatusApproved)
}

type Gateway interface {
	Charge(ctx context.Context, c Charge) (*Receipt, error)
}

// MockGateway approves every charge. It backs the simulated online payment
// the client completes from the self-service page.
type MockGateway struct{}

func (MockGateway) Charge(ctx context.Context, c Charge) (*Receipt, error) {
	if !c.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	ref := uuid.NewString()
	log.Info().
		Str("provider", "mock").
		Str("reference", ref).
		Str("entry_number", c.EntryNumber).
		Str("idempotency_key", c.IdempotencyKey).
		Str("amount", c.Amount.StringFixed(2)).
		Msg("payment approved")
	return &Receipt{Provider: "mock", Reference: ref, Status: StatusApproved}, nil
}

// NewGateway picks Mercado Pago when an access token is configured and mock
// mode is off; otherwise it falls back to the mock.
func NewGateway(cfg config.PaymentsConfig) (Gateway, error) {
	if cfg.Mock || cfg.MercadoPagoAccessToken == "" {
		log.Info().Msg("payment gateway: mock mode")
		return MockGateway{}, nil
	}
	return NewMercadoPagoGateway(cfg.MercadoPagoAccessToken)
}
