package auth

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"repairshop/internal/api"
	"repairshop/internal/apperr"
	"repairshop/internal/personnel"
)

var (
	ErrInvalidToken = apperr.Unauthorized("UNAUTHORIZED", "Sesión inválida")
	ErrInactive     = apperr.Unauthorized("STAFF_INACTIVE", "Usuario inactivo")
)

// Resolver returns an api.SessionResolver that verifies the bearer token and
// loads the staff member behind it. Only active accounts get a session.
func Resolver(signer Signer, staff personnel.Store, now func() time.Time) api.SessionResolver {
	if now == nil {
		now = time.Now
	}
	return func(ctx context.Context, bearer string) (*api.Session, error) {
		claims, err := signer.Verify(bearer, now())
		if err != nil {
			log.Debug().Err(err).Msg("session token rejected")
			return nil, ErrInvalidToken
		}
		st, err := staff.GetByID(ctx, claims.Subject)
		if errors.Is(err, personnel.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		if err != nil {
			return nil, err
		}
		if !st.Active {
			return nil, ErrInactive
		}
		return &api.Session{
			StaffID: st.ID,
			Email:   st.Email,
			Name:    st.FullName,
			Role:    string(st.Role),
		}, nil
	}
}
