package repair

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"repairshop/internal/api"
)

// Handlers serve the staff-facing repair endpoints. Every route sits behind
// api.StaffAuth, so a session is always present.
type Handlers struct {
	Controller *Controller
	// Expose passes internal error details through to the response (non-prod).
	Expose bool
}

func actorFrom(r *http.Request) Actor {
	s := api.SessionFromContext(r.Context())
	if s == nil {
		return Actor{}
	}
	return Actor{ID: s.StaffID, Name: s.Actor()}
}

func caseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "id inválido")
		return 0, false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid json")
		return false
	}
	return true
}

func (h Handlers) List(w http.ResponseWriter, r *http.Request) {
	var f ListFilter
	if s := r.URL.Query().Get("status"); s != "" {
		st, err := ParseStatus(s)
		if err != nil {
			api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "estado inválido")
			return
		}
		f.Status = st
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "limit inválido")
			return
		}
		f.Limit = n
	}

	items, err := h.Controller.Store.ListCases(r.Context(), f)
	if err != nil {
		api.WriteDomainError(w, err, h.Expose)
		return
	}
	if items == nil {
		items = []CaseSummary{}
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h Handlers) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := caseID(w, r)
	if !ok {
		return
	}
	b, err := h.Controller.GetBundle(r.Context(), id)
	if err != nil {
		api.WriteDomainError(w, err, h.Expose)
		return
	}
	api.WriteJSON(w, http.StatusOK, b)
}

func (h Handlers) Create(w http.ResponseWriter, r *http.Request) {
	var in IntakeInput
	if !decode(w, r, &in) {
		return
	}
	out, err := h.Controller.CreateCase(r.Context(), actorFrom(r), in)
	if err != nil {
		api.WriteDomainError(w, err, h.Expose)
		return
	}
	api.WriteJSON(w, http.StatusCreated, out)
}

func (h Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := caseID(w, r)
	if !ok {
		return
	}
	if err := h.Controller.DeleteCase(r.Context(), actorFrom(r), id); err != nil {
		api.WriteDomainError(w, err, h.Expose)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h Handlers) ConfirmIntake(w http.ResponseWriter, r *http.Request) {
	id, ok := caseID(w, r)
	if !ok {
		return
	}
	out, err := h.Controller.ConfirmIntake(r.Context(), actorFrom(r), id)
	h.respond(w, err, out)
}

func (h Handlers) SaveBudget(w http.ResponseWriter, r *http.Request) {
	id, ok := caseID(w, r)
	if !ok {
		return
	}
	var in BudgetInput
	if !decode(w, r, &in) {
		return
	}
	out, err := h.Controller.SaveBudget(r.Context(), actorFrom(r), id, in)
	h.respond(w, err, out)
}

func (h Handlers) RecordPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := caseID(w, r)
	if !ok {
		return
	}
	var in PaymentInput
	if !decode(w, r, &in) {
		return
	}
	out, err := h.Controller.RecordPayment(r.Context(), actorFrom(r), id, in)
	h.respond(w, err, out)
}

func (h Handlers) StartRepair(w http.ResponseWriter, r *http.Request) {
	id, ok := caseID(w, r)
	if !ok {
		return
	}
	out, err := h.Controller.StartRepair(r.Context(), actorFrom(r), id)
	h.respond(w, err, out)
}

func (h Handlers) RejectQuote(w http.ResponseWriter, r *http.Request) {
	id, ok := caseID(w, r)
	if !ok {
		return
	}
	out, err := h.Controller.RejectQuote(r.Context(), actorFrom(r), id)
	h.respond(w, err, out)
}

func (h Handlers) UpdateWork(w http.ResponseWriter, r *http.Request) {
	id, ok := caseID(w, r)
	if !ok {
		return
	}
	var in WorkInput
	if !decode(w, r, &in) {
		return
	}
	out, err := h.Controller.UpdateWork(r.Context(), actorFrom(r), id, in)
	h.respond(w, err, out)
}

func (h Handlers) CompleteRepair(w http.ResponseWriter, r *http.Request) {
	id, ok := caseID(w, r)
	if !ok {
		return
	}
	out, err := h.Controller.CompleteRepair(r.Context(), actorFrom(r), id)
	h.respond(w, err, out)
}

func (h Handlers) SaveDelivery(w http.ResponseWriter, r *http.Request) {
	id, ok := caseID(w, r)
	if !ok {
		return
	}
	var in DeliveryInput
	if !decode(w, r, &in) {
		return
	}
	out, err := h.Controller.SaveDelivery(r.Context(), actorFrom(r), id, in)
	h.respond(w, err, out)
}

func (h Handlers) Finalize(w http.ResponseWriter, r *http.Request) {
	id, ok := caseID(w, r)
	if !ok {
		return
	}
	out, err := h.Controller.FinalizeDelivery(r.Context(), actorFrom(r), id)
	h.respond(w, err, out)
}

func (h Handlers) RecordInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := caseID(w, r)
	if !ok {
		return
	}
	var in struct {
		InvoiceNumber string `json:"invoiceNumber"`
	}
	if !decode(w, r, &in) {
		return
	}
	out, err := h.Controller.RecordInvoice(r.Context(), actorFrom(r), id, in.InvoiceNumber)
	h.respond(w, err, out)
}

func (h Handlers) Events(w http.ResponseWriter, r *http.Request) {
	id, ok := caseID(w, r)
	if !ok {
		return
	}
	if _, err := h.Controller.Store.GetCase(r.Context(), id); err != nil {
		api.WriteDomainError(w, err, h.Expose)
		return
	}
	items, err := h.Controller.Store.ListEvents(r.Context(), id)
	if err != nil {
		api.WriteDomainError(w, err, h.Expose)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h Handlers) ListClients(w http.ResponseWriter, r *http.Request) {
	items, err := h.Controller.Store.ListClients(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		api.WriteDomainError(w, err, h.Expose)
		return
	}
	if items == nil {
		items = []Client{}
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h Handlers) GetClient(w http.ResponseWriter, r *http.Request) {
	id, ok := caseID(w, r)
	if !ok {
		return
	}
	cl, err := h.Controller.Store.GetClient(r.Context(), id)
	if err != nil {
		api.WriteDomainError(w, err, h.Expose)
		return
	}
	api.WriteJSON(w, http.StatusOK, cl)
}

func (h Handlers) CreateClient(w http.ResponseWriter, r *http.Request) {
	var in ClientInput
	if !decode(w, r, &in) {
		return
	}
	cl, err := h.Controller.CreateClient(r.Context(), in)
	if err != nil {
		api.WriteDomainError(w, err, h.Expose)
		return
	}
	api.WriteJSON(w, http.StatusCreated, cl)
}

func (h Handlers) UpdateClient(w http.ResponseWriter, r *http.Request) {
	id, ok := caseID(w, r)
	if !ok {
		return
	}
	var in ClientInput
	if !decode(w, r, &in) {
		return
	}
	cl, err := h.Controller.UpdateClient(r.Context(), id, in)
	if err != nil {
		api.WriteDomainError(w, err, h.Expose)
		return
	}
	api.WriteJSON(w, http.StatusOK, cl)
}

func (h Handlers) respond(w http.ResponseWriter, err error, out *Outcome) {
	if err != nil {
		api.WriteDomainError(w, err, h.Expose)
		return
	}
	api.WriteJSON(w, http.StatusOK, out)
}
