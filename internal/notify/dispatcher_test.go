package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repairshop/internal/apperr"
	"repairshop/internal/repair"
	"repairshop/internal/repair/repairtest"
	"repairshop/pkg/mailer"
	"repairshop/pkg/money"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (m *fakeMailer) Send(ctx context.Context, msg mailer.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.sent = append(m.sent, msg)
	return fmt.Sprintf("<%d@test>", len(m.sent)), nil
}

type fakeMessenger struct {
	calls int
	phone string
	text  string
	err   error
}

func (m *fakeMessenger) SendText(ctx context.Context, phone, text string) error {
	m.calls++
	m.phone = phone
	m.text = text
	return m.err
}

type harness struct {
	store     *repairtest.MemStore
	ctrl      *repair.Controller
	mail      *fakeMailer
	messenger *fakeMessenger
	disp      *Dispatcher
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store:     repairtest.New(),
		mail:      &fakeMailer{},
		messenger: &fakeMessenger{},
	}
	h.disp = &Dispatcher{
		Cases:        h.store,
		Mailer:       h.mail,
		Messenger:    h.messenger,
		BaseURL:      "https://leselec.example/",
		BusinessName: "LESELEC",
		Money:        money.NewFormatter("es-AR"),
	}
	// Controller without a notifier so tests drive the dispatcher explicitly.
	h.ctrl = repair.NewController(h.store, nil, nil)
	h.ctrl.Now = func() time.Time { return time.Date(2025, 4, 2, 10, 0, 0, 0, time.UTC) }
	return h
}

func (h *harness) intake(t *testing.T, email, phone string) *repair.Case {
	t.Helper()
	out, err := h.ctrl.CreateCase(context.Background(), repair.Actor{Name: "Marta"}, repair.IntakeInput{
		Client: &repair.ClientInput{Name: "Juan", Surname: "Pérez", Email: email, Phone: phone},
		Equipment: []repair.EquipmentInput{
			{Type: "Motor trifásico", Brand: "WEG", Serial: "SN-9", Quantity: 2, Voltage: "380 V"},
		},
		Receptionist: "Marta",
	})
	require.NoError(t, err)
	return &out.Case
}

func TestSend_Recepcion(t *testing.T) {
	h := newHarness(t)
	cs := h.intake(t, "juan@example.com", "+54 9 341 555-1234")

	res, err := h.disp.Send(context.Background(), Request{Type: "recepcion", CaseID: cs.ID})
	require.NoError(t, err)
	assert.Equal(t, "<1@test>", res.MessageID)
	assert.True(t, res.WhatsApp)

	require.Len(t, h.mail.sent, 1)
	msg := h.mail.sent[0]
	assert.Equal(t, "juan@example.com", msg.To)
	assert.Equal(t, "Recepción N° R-2025-001 registrada", msg.Subject)
	assert.Contains(t, msg.HTML, "Motor trifásico (x2)")
	assert.Contains(t, msg.HTML, "<td>380 V</td><td>-</td>")
	assert.Contains(t, msg.HTML, "https://leselec.example/client-login")
	assert.Contains(t, msg.HTML, "https://leselec.example/repair/R-2025-001")
	assert.Contains(t, msg.HTML, "02/04/2025")

	assert.Equal(t, 1, h.messenger.calls)
	assert.Contains(t, h.messenger.text, "R-2025-001")
}

func TestSend_PresupuestoFormatsMoney(t *testing.T) {
	h := newHarness(t)
	cs := h.intake(t, "juan@example.com", "")
	total := decimal.RequireFromString("85000")
	_, err := h.ctrl.SaveBudget(context.Background(), repair.Actor{}, cs.ID, repair.BudgetInput{
		Diagnosis:     "bobinado quemado",
		Process:       "rebobinado",
		Total:         &total,
		DiagnosticFee: decimal.RequireFromString("5000"),
		Deposit:       decimal.RequireFromString("20000.5"),
	})
	require.NoError(t, err)

	res, err := h.disp.Send(context.Background(), Request{Type: "presupuesto", EntryNumber: "r-2025-1"})
	require.NoError(t, err)
	assert.False(t, res.WhatsApp, "no phone, no whatsapp")
	assert.Equal(t, 0, h.messenger.calls)

	require.Len(t, h.mail.sent, 1)
	msg := h.mail.sent[0]
	assert.Equal(t, "Presupuesto disponible - Ingreso R-2025-001", msg.Subject)
	assert.Contains(t, msg.HTML, "85.000,00")
	assert.Contains(t, msg.HTML, "20.000,50")
	assert.Contains(t, msg.HTML, "<strong>Repuestos necesarios:</strong> -")
}

func TestSend_ListaEntregaWithoutBudget(t *testing.T) {
	h := newHarness(t)
	cs := h.intake(t, "juan@example.com", "")

	_, err := h.disp.Send(context.Background(), Request{Type: "lista_entrega", CaseID: cs.ID})
	require.NoError(t, err)
	msg := h.mail.sent[0]
	assert.Equal(t, "Lista para retirar - Ingreso R-2025-001", msg.Subject)
	assert.Contains(t, msg.HTML, "Importe: -")
	assert.Contains(t, msg.HTML, "Estado: completada")
}

func TestSend_TwiceSendsTwoEmails(t *testing.T) {
	h := newHarness(t)
	cs := h.intake(t, "juan@example.com", "")

	for i := 0; i < 2; i++ {
		_, err := h.disp.Send(context.Background(), Request{Type: "recepcion", CaseID: cs.ID})
		require.NoError(t, err)
	}
	assert.Len(t, h.mail.sent, 2)
}

func TestSend_MissingContact(t *testing.T) {
	h := newHarness(t)
	cs := h.intake(t, "  ", "+54 341 555")

	_, err := h.disp.Send(context.Background(), Request{Type: "recepcion", CaseID: cs.ID})
	require.ErrorIs(t, err, ErrMissingContact)
	assert.Empty(t, h.mail.sent)
	assert.Equal(t, 0, h.messenger.calls)
}

func TestSend_WhatsAppFailureIsSwallowed(t *testing.T) {
	h := newHarness(t)
	h.messenger.err = errors.New("meta api 500")
	cs := h.intake(t, "juan@example.com", "+54 9 341 555-1234")

	res, err := h.disp.Send(context.Background(), Request{Type: "recepcion", CaseID: cs.ID})
	require.NoError(t, err)
	assert.False(t, res.WhatsApp)
	assert.Len(t, h.mail.sent, 1)
}

func TestSend_EmailFailureIsReturned(t *testing.T) {
	h := newHarness(t)
	h.mail.err = errors.New("smtp 421")
	cs := h.intake(t, "juan@example.com", "")

	_, err := h.disp.Send(context.Background(), Request{Type: "recepcion", CaseID: cs.ID})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp 421")
}

func TestSend_Validation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.disp.Send(ctx, Request{CaseID: 1})
	require.ErrorIs(t, err, ErrTypeRequired)

	_, err = h.disp.Send(ctx, Request{Type: "cobranza", CaseID: 1})
	require.ErrorIs(t, err, ErrUnknownType)

	_, err = h.disp.Send(ctx, Request{Type: "recepcion"})
	require.ErrorIs(t, err, ErrMissingRef)

	_, err = h.disp.Send(ctx, Request{Type: "recepcion", CaseID: 404})
	require.ErrorIs(t, err, repair.ErrNotFound)

	_, err = h.disp.Send(ctx, Request{Type: "recepcion", EntryNumber: "R-2030-5"})
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestSend_EntryNumberMustMatchExactly(t *testing.T) {
	h := newHarness(t)
	h.intake(t, "juan@example.com", "")
	h.intake(t, "otro@example.com", "")

	for _, ref := range []string{"R-2025", "2025-00", "R-2025-7", "002"} {
		_, err := h.disp.Send(context.Background(), Request{Type: "presupuesto", EntryNumber: ref})
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound), ref)
	}
	assert.Empty(t, h.mail.sent)

	res, err := h.disp.Send(context.Background(), Request{Type: "recepcion", EntryNumber: "R-2025-2"})
	require.NoError(t, err)
	assert.Equal(t, "R-2025-002", res.EntryNumber)
	require.Len(t, h.mail.sent, 1)
	assert.Equal(t, "otro@example.com", h.mail.sent[0].To)
}

func TestHandler_UnknownEntryNumberIs404(t *testing.T) {
	h := newHarness(t)
	h.intake(t, "juan@example.com", "")
	handler := Handler{Dispatcher: h.disp}

	req := httptest.NewRequest(http.MethodPost, "/notifications",
		strings.NewReader(`{"type":"recepcion","numeroIngreso":"R-2025"}`))
	rec := httptest.NewRecorder()
	handler.Send(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
	assert.Empty(t, h.mail.sent)
}

func TestNotifyCase_AsControllerNotifier(t *testing.T) {
	h := newHarness(t)
	h.ctrl.Notifier = h.disp
	out, err := h.ctrl.CreateCase(context.Background(), repair.Actor{}, repair.IntakeInput{
		Client:    &repair.ClientInput{Name: "Ana", Email: "ana@example.com"},
		Equipment: []repair.EquipmentInput{{Type: "Bomba", Brand: "Czerweny"}},
	})
	require.NoError(t, err)
	assert.True(t, out.Notified)
	require.Len(t, h.mail.sent, 1)
	assert.Equal(t, "ana@example.com", h.mail.sent[0].To)
}

func TestHandler_Send(t *testing.T) {
	h := newHarness(t)
	cs := h.intake(t, "juan@example.com", "")
	handler := Handler{Dispatcher: h.disp}

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/notifications", strings.NewReader(body))
		rec := httptest.NewRecorder()
		handler.Send(rec, req)
		return rec
	}

	rec := post(fmt.Sprintf(`{"type":"recepcion","reparacionId":"%d"}`, cs.ID))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		OK        bool   `json:"ok"`
		MessageID string `json:"messageId"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.OK)
	assert.Equal(t, "<1@test>", body.MessageID)

	assert.Equal(t, http.StatusBadRequest, post(`{"type":"recepcion","reparacionId":"x"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(`{"reparacionId":1}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(`{"type":"recepcion"}`).Code)
	assert.Equal(t, http.StatusNotFound, post(`{"type":"recepcion","reparacionId":99}`).Code)
}
