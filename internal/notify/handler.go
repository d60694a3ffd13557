package notify

import (
	"encoding/json"
	"net/http"

	"repairshop/internal/api"
)

type Handler struct {
	Dispatcher *Dispatcher
	Expose     bool
}

type sendRequest struct {
	Type          string          `json:"type"`
	ReparacionID  json.RawMessage `json:"reparacionId"`
	NumeroIngreso string          `json:"numeroIngreso"`
}

// Send handles POST /notifications.
func (h Handler) Send(w http.ResponseWriter, r *http.Request) {
	var body sendRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid json")
		return
	}
	id, err := api.ParseID(body.ReparacionID)
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "reparacionId inválido")
		return
	}

	res, err := h.Dispatcher.Send(r.Context(), Request{
		Type:        body.Type,
		CaseID:      id,
		EntryNumber: body.NumeroIngreso,
	})
	if err != nil {
		api.WriteDomainError(w, err, h.Expose)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{
		"ok":            true,
		"messageId":     res.MessageID,
		"numeroIngreso": res.EntryNumber,
		"whatsapp":      res.WhatsApp,
	})
}
