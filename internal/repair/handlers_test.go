package repair_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repairshop/internal/api"
	"repairshop/internal/repair"
)

func staffRouter(f *fixture) http.Handler {
	h := repair.Handlers{Controller: f.ctrl}
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			s := &api.Session{StaffID: "staff-1", Email: "marta@leselec.com", Name: "Marta", Role: "ventas"}
			next.ServeHTTP(w, req.WithContext(api.WithSession(req.Context(), s)))
		})
	})
	r.Post("/repairs", h.Create)
	r.Get("/repairs", h.List)
	r.Get("/repairs/{id}", h.Get)
	r.Put("/repairs/{id}/budget", h.SaveBudget)
	r.Post("/repairs/{id}/start-repair", h.StartRepair)
	r.Get("/repairs/{id}/events", h.Events)
	r.Get("/dashboard", h.Dashboard)
	return r
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlers_CreateAndQuote(t *testing.T) {
	f := newFixture(t)
	h := staffRouter(f)

	rec := doJSON(t, h, http.MethodPost, "/repairs", `{
		"client": {"name": "Juan", "surname": "Pérez", "email": "juan@example.com"},
		"equipment": [{"type": "Motor", "brand": "WEG", "quantity": 2}]
	}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created repair.Outcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "R-2025-001", created.Case.EntryNumber)
	assert.True(t, created.Notified)
	base := fmt.Sprintf("/repairs/%d", created.Case.ID)

	rec = doJSON(t, h, http.MethodPut, base+"/budget",
		`{"diagnosis": "bobinado", "process": "rebobinar", "total": "85000", "diagnosticFee": "0", "deposit": "20000"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, h, http.MethodPost, base+"/start-repair", ``)
	require.Equal(t, http.StatusConflict, rec.Code)
	var env api.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, repair.CodeDepositUnpaid, env.Code)

	rec = doJSON(t, h, http.MethodGet, "/repairs?status=presupuesto", ``)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Items []repair.CaseSummary `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Items, 1)
	assert.Equal(t, "Juan Pérez", list.Items[0].ClientName)
	assert.Equal(t, "WEG", list.Items[0].Brand)

	rec = doJSON(t, h, http.MethodGet, base+"/events", ``)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Marta")
}

func TestHandlers_BadInput(t *testing.T) {
	h := staffRouter(newFixture(t))

	assert.Equal(t, http.StatusBadRequest, doJSON(t, h, http.MethodGet, "/repairs/abc", ``).Code)
	assert.Equal(t, http.StatusBadRequest, doJSON(t, h, http.MethodGet, "/repairs?status=archivada", ``).Code)
	assert.Equal(t, http.StatusBadRequest, doJSON(t, h, http.MethodPost, "/repairs", `{`).Code)
	assert.Equal(t, http.StatusNotFound, doJSON(t, h, http.MethodGet, "/repairs/77", ``).Code)
}
