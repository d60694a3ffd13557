package payment

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repairshop/pkg/config"
)

func TestMockGateway_ApprovesPositiveAmounts(t *testing.T) {
	r, err := MockGateway{}.Charge(context.Background(), Charge{
		EntryNumber: "R-2025-001",
		Amount:      decimal.RequireFromString("25000.00"),
	})
	require.NoError(t, err)
	assert.True(t, r.Approved())
	assert.Equal(t, "mock", r.Provider)
	assert.NotEmpty(t, r.Reference)
}

func TestMockGateway_RejectsZeroAmount(t *testing.T) {
	_, err := MockGateway{}.Charge(context.Background(), Charge{Amount: decimal.Zero})
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestNewGateway_FallsBackToMockWithoutToken(t *testing.T) {
	g, err := NewGateway(config.PaymentsConfig{Mock: false})
	require.NoError(t, err)
	assert.IsType(t, MockGateway{}, g)
}

func TestReceipt_Approved(t *testing.T) {
	var nilReceipt *Receipt
	assert.False(t, nilReceipt.Approved())
	assert.False(t, (&Receipt{Status: StatusRejected}).Approved())
	assert.True(t, (&Receipt{Status: "APPROVED"}).Approved())
}

func TestChargeKey_StablePerCharge(t *testing.T) {
	amount := decimal.RequireFromString("25000")
	k := ChargeKey(7, 3, "accept", amount)
	assert.Equal(t, k, ChargeKey(7, 3, "accept", decimal.RequireFromString("25000.00")))
	assert.NotEqual(t, k, ChargeKey(7, 4, "accept", amount), "a new quote is a new charge")
	assert.NotEqual(t, k, ChargeKey(7, 3, "reject", amount))
	assert.NotEqual(t, k, ChargeKey(7, 3, "accept", decimal.RequireFromString("5000")))
}

type recordingRequester struct {
	keys []string
}

func (r *recordingRequester) Do(req *http.Request) (*http.Response, error) {
	r.keys = append(r.keys, req.Header.Get(idempotencyHeader))
	return &http.Response{
		StatusCode: http.StatusCreated,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(`{"id": 991, "status": "approved"}`)),
	}, nil
}

func TestMercadoPagoGateway_SendsChargeIdempotencyKey(t *testing.T) {
	rec := &recordingRequester{}
	g, err := newMercadoPagoGateway("TEST-token", rec)
	require.NoError(t, err)

	c := Charge{
		CaseID:         7,
		EntryNumber:    "R-2025-007",
		Amount:         decimal.RequireFromString("25000"),
		IdempotencyKey: ChargeKey(7, 3, "accept", decimal.RequireFromString("25000")),
	}
	for i := 0; i < 2; i++ {
		r, err := g.Charge(context.Background(), c)
		require.NoError(t, err)
		assert.True(t, r.Approved())
		assert.Equal(t, "991", r.Reference)
	}
	require.Len(t, rec.keys, 2)
	assert.Equal(t, c.IdempotencyKey, rec.keys[0])
	assert.Equal(t, rec.keys[0], rec.keys[1])
}

func TestNewMercadoPagoGateway_RequiresToken(t *testing.T) {
	_, err := newMercadoPagoGateway("", &recordingRequester{})
	assert.ErrorIs(t, err, ErrMissingAccessToken)
}
