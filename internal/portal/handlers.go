// Package portal serves the client self-service endpoints. They are public:
// the entry number is the only credential the client has.
package portal

import (
	"encoding/json"
	"net/http"
	"strings"

	"repairshop/internal/api"
	"repairshop/internal/repair"
	"repairshop/pkg/money"
)

type Handlers struct {
	Controller *repair.Controller
	Money      money.Formatter
	Expose     bool
}

// View handles GET /client-repair?entryNumber=.
func (h Handlers) View(w http.ResponseWriter, r *http.Request) {
	entry := strings.TrimSpace(r.URL.Query().Get("entryNumber"))
	if entry == "" {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "Número de ingreso requerido")
		return
	}

	cs, err := repair.Lookup(r.Context(), h.Controller.Store, entry)
	if err != nil {
		api.WriteDomainError(w, err, h.Expose)
		return
	}
	b, err := h.Controller.GetBundle(r.Context(), cs.ID)
	if err != nil {
		api.WriteDomainError(w, err, h.Expose)
		return
	}
	api.WriteJSON(w, http.StatusOK, buildView(b, h.Money))
}

type payRequest struct {
	ReparacionID json.RawMessage `json:"reparacionId"`
	Rejected     bool            `json:"rejected"`
}

// Pay handles POST /client-repair/pay.
func (h Handlers) Pay(w http.ResponseWriter, r *http.Request) {
	var req payRequest
	id, ok := decodeCaseID(w, r, &req, func() json.RawMessage { return req.ReparacionID })
	if !ok {
		return
	}
	out, err := h.Controller.ClientPay(r.Context(), id, req.Rejected)
	if err != nil {
		api.WriteDomainError(w, err, h.Expose)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "status": out.Case.Status})
}

type rejectRequest struct {
	ReparacionID json.RawMessage `json:"reparacionId"`
}

// Reject handles POST /client-repair/reject.
func (h Handlers) Reject(w http.ResponseWriter, r *http.Request) {
	var req rejectRequest
	id, ok := decodeCaseID(w, r, &req, func() json.RawMessage { return req.ReparacionID })
	if !ok {
		return
	}
	out, err := h.Controller.RejectQuote(r.Context(), repair.ClientActor, id)
	if err != nil {
		api.WriteDomainError(w, err, h.Expose)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "status": out.Case.Status})
}

func decodeCaseID(w http.ResponseWriter, r *http.Request, dst any, raw func() json.RawMessage) (int64, bool) {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "reparacionId inválido")
		return 0, false
	}
	id, err := api.ParseID(raw())
	if err != nil || id == 0 {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "reparacionId inválido")
		return 0, false
	}
	return id, true
}
