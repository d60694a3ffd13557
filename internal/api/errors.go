package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"repairshop/internal/apperr"
)

type ErrorEnvelope struct {
	Error  string `json:"error"`
	Code   string `json:"code,omitempty"`
	Detail any    `json:"detail,omitempty"`
}

func WriteError(w http.ResponseWriter, status int, code, message string) {
	writeEnvelope(w, status, ErrorEnvelope{Error: message, Code: code})
}

// WriteDomainError maps err onto the error envelope. Unclassified errors are
// 500s; their message is passed through only when expose is set.
func WriteDomainError(w http.ResponseWriter, err error, expose bool) {
	if e, ok := apperr.As(err); ok {
		env := ErrorEnvelope{Error: e.Message, Code: e.Code}
		if expose {
			env.Detail = e.Detail
		}
		writeEnvelope(w, statusForKind(e.Kind), env)
		return
	}

	log.Error().Err(err).Msg("request failed")
	msg := "internal error"
	if expose {
		msg = err.Error()
	}
	WriteError(w, http.StatusInternalServerError, "INTERNAL", msg)
}

func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func statusForKind(k apperr.Kind) int {
	switch k {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func writeEnvelope(w http.ResponseWriter, status int, env ErrorEnvelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}
