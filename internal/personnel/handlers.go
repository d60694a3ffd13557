package personnel

import (
	"encoding/json"
	"net/http"

	"repairshop/internal/api"
)

// Handlers serve /admin/users. The router mounts them behind
// api.RequireRole(encargado).
type Handlers struct {
	Service *Service
	Expose  bool
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid json")
		return false
	}
	return true
}

func actorEmail(r *http.Request) string {
	if s := api.SessionFromContext(r.Context()); s != nil {
		return s.Email
	}
	return ""
}

func (h Handlers) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.Service.List(r.Context())
	if err != nil {
		api.WriteDomainError(w, err, h.Expose)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"users": users})
}

type saveRequest struct {
	Correo         string `json:"correo"`
	NombreCompleto string `json:"nombre_completo"`
	Rol            string `json:"rol"`
	Activo         *bool  `json:"activo"`
	ClaveTemporal  string `json:"claveTemporal"`
	EnviarReset    bool   `json:"enviarReset"`
}

func (h Handlers) Save(w http.ResponseWriter, r *http.Request) {
	var body saveRequest
	if !decode(w, r, &body) {
		return
	}
	st, err := h.Service.Save(r.Context(), SaveInput{
		Actor:        actorEmail(r),
		Email:        body.Correo,
		FullName:     body.NombreCompleto,
		Role:         body.Rol,
		Active:       body.Activo,
		TempPassword: body.ClaveTemporal,
		SendReset:    body.EnviarReset,
	})
	if err != nil {
		api.WriteDomainError(w, err, h.Expose)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "usuario": st})
}

type emailRequest struct {
	Correo string `json:"correo"`
}

// SendReset handles PATCH /admin/users.
func (h Handlers) SendReset(w http.ResponseWriter, r *http.Request) {
	var body emailRequest
	if !decode(w, r, &body) {
		return
	}
	if err := h.Service.SendReset(r.Context(), actorEmail(r), body.Correo); err != nil {
		api.WriteDomainError(w, err, h.Expose)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	var body emailRequest
	if !decode(w, r, &body) {
		return
	}
	if err := h.Service.Delete(r.Context(), actorEmail(r), body.Correo); err != nil {
		api.WriteDomainError(w, err, h.Expose)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
}
