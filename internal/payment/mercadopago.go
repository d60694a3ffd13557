package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mercadopago/sdk-go/pkg/config"
	"github.com/mercadopago/sdk-go/pkg/payment"
	"github.com/mercadopago/sdk-go/pkg/requester"
	"github.com/rs/zerolog/log"
)

var ErrMissingAccessToken = errors.New("missing MERCADOPAGO_ACCESS_TOKEN")

const idempotencyHeader = "X-Idempotency-Key"

type idempotencyKeyCtx struct{}

// keyedRequester overrides the SDK's random per-request idempotency key with
// the charge's own key, carried on the request context.
type keyedRequester struct {
	next requester.Requester
}

func (r keyedRequester) Do(req *http.Request) (*http.Response, error) {
	if key, ok := req.Context().Value(idempotencyKeyCtx{}).(string); ok && key != "" {
		req.Header.Set(idempotencyHeader, key)
	}
	return r.next.Do(req)
}

type MercadoPagoGateway struct {
	client payment.Client
	// PaymentMethodID is sent with every charge; account_money by default.
	PaymentMethodID string
}

func NewMercadoPagoGateway(accessToken string) (*MercadoPagoGateway, error) {
	return newMercadoPagoGateway(accessToken, &http.Client{Timeout: 15 * time.Second})
}

func newMercadoPagoGateway(accessToken string, next requester.Requester) (*MercadoPagoGateway, error) {
	if accessToken == "" {
		return nil, ErrMissingAccessToken
	}
	cfg, err := config.New(accessToken, config.WithHTTPClient(keyedRequester{next: next}))
	if err != nil {
		return nil, fmt.Errorf("mercadopago config: %w", err)
	}
	log.Info().Msg("payment gateway: mercado pago client initialized")
	return &MercadoPagoGateway{client: payment.NewClient(cfg), PaymentMethodID: "account_money"}, nil
}

func (g *MercadoPagoGateway) Charge(ctx context.Context, c Charge) (*Receipt, error) {
	if !c.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	amount, _ := c.Amount.Round(2).Float64()

	req := payment.Request{
		TransactionAmount: amount,
		Description:       c.Description,
		PaymentMethodID:   g.PaymentMethodID,
		ExternalReference: c.EntryNumber,
	}
	if c.PayerEmail != "" {
		req.Payer = &payment.PayerRequest{Email: c.PayerEmail}
	}

	if c.IdempotencyKey != "" {
		ctx = context.WithValue(ctx, idempotencyKeyCtx{}, c.IdempotencyKey)
	}
	resp, err := g.client.Create(ctx, req)
	if err != nil {
		log.Error().Err(err).Str("entry_number", c.EntryNumber).Msg("mercadopago create failed")
		return nil, err
	}
	ref := fmt.Sprintf("%d", resp.ID)
	log.Info().
		Str("provider_payment_id", ref).
		Str("status", resp.Status).
		Str("entry_number", c.EntryNumber).
		Msg("mercadopago payment created")

	return &Receipt{
		Provider:  "mercadopago",
		Reference: ref,
		Status:    resp.Status,
	}, nil
}
