package auth

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"repairshop/internal/api"
	"repairshop/internal/personnel"
)

type Handlers struct {
	Staff  *personnel.Service
	Signer Signer
	Now    func() time.Time
	Expose bool
}

func (h Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

type loginRequest struct {
	Correo string `json:"correo"`
	Clave  string `json:"clave"`
}

// Login handles POST /auth/login.
func (h Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid json")
		return
	}
	if personnel.NormalizeEmail(body.Correo) == "" || body.Clave == "" {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "Correo y clave requeridos")
		return
	}

	st, err := h.Staff.Authenticate(r.Context(), body.Correo, body.Clave)
	if err != nil {
		api.WriteDomainError(w, err, h.Expose)
		return
	}
	token, exp, err := h.Signer.Issue(st.ID, st.Email, string(st.Role), h.now())
	if err != nil {
		log.Error().Err(err).Msg("issue session token")
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "no se pudo iniciar sesión")
		return
	}
	log.Info().Str("staff_id", st.ID).Msg("staff signed in")
	api.WriteJSON(w, http.StatusOK, map[string]any{
		"token":     token,
		"expiresAt": exp,
		"usuario":   st,
	})
}

type resetRequest struct {
	Token string `json:"token"`
	Clave string `json:"clave"`
}

// ResetPassword handles POST /auth/password-reset.
func (h Handlers) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var body resetRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid json")
		return
	}
	if err := h.Staff.ResetPassword(r.Context(), body.Token, body.Clave); err != nil {
		api.WriteDomainError(w, err, h.Expose)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// Me handles GET /auth/me.
func (h Handlers) Me(w http.ResponseWriter, r *http.Request) {
	s := api.SessionFromContext(r.Context())
	api.WriteJSON(w, http.StatusOK, map[string]any{
		"id":              s.StaffID,
		"correo":          s.Email,
		"nombre_completo": s.Name,
		"rol":             s.Role,
	})
}
