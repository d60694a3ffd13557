package personnel

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"repairshop/internal/audit"
	"repairshop/pkg/mailer"
)

type Mailer interface {
	Send(ctx context.Context, msg mailer.Message) (string, error)
}

// Auditor records administrative changes. A nil Auditor disables auditing.
type Auditor interface {
	Log(ctx context.Context, e audit.Entry) error
}

type Service struct {
	Store        Store
	Mailer       Mailer
	BaseURL      string
	BusinessName string
	ResetTTL     time.Duration
	Audit        Auditor
	Now          func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

type SaveInput struct {
	// Actor is the email of the caller, recorded in the audit log.
	Actor        string
	Email        string
	FullName     string
	Role         string
	Active       *bool
	TempPassword string
	SendReset    bool
}

func (s *Service) List(ctx context.Context) ([]Staff, error) {
	out, err := s.Store.List(ctx)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Staff{}
	}
	return out, nil
}

// Save creates or updates the account identified by email.
func (s *Service) Save(ctx context.Context, in SaveInput) (*Staff, error) {
	email := NormalizeEmail(in.Email)
	name := strings.TrimSpace(in.FullName)
	if email == "" || name == "" || strings.TrimSpace(in.Role) == "" {
		return nil, ErrIncomplete
	}
	role, err := ParseRole(in.Role)
	if err != nil {
		return nil, err
	}

	st := &Staff{Email: email, FullName: name, Role: role, Active: true}
	if in.Active != nil {
		st.Active = *in.Active
	}
	if in.TempPassword != "" {
		hash, err := HashPassword(in.TempPassword)
		if err != nil {
			return nil, err
		}
		st.PasswordHash = hash
	}

	saved, err := s.Store.Upsert(ctx, st)
	if err != nil {
		return nil, err
	}
	log.Info().Str("staff_id", saved.ID).Str("role", string(saved.Role)).Msg("staff saved")
	s.audit(ctx, audit.Entry{
		Action: audit.ActionStaffSaved,
		Actor:  in.Actor,
		Target: saved.Email,
		Metadata: map[string]any{
			"rol":           saved.Role,
			"activo":        saved.Active,
			"claveTemporal": in.TempPassword != "",
		},
	})

	if in.SendReset {
		if err := s.sendReset(ctx, in.Actor, saved); err != nil {
			return nil, err
		}
	}
	return saved, nil
}

// SendReset issues a fresh reset token for email and mails the link.
func (s *Service) SendReset(ctx context.Context, actor, email string) error {
	email = NormalizeEmail(email)
	if email == "" {
		return ErrEmailRequired
	}
	st, err := s.Store.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	return s.sendReset(ctx, actor, st)
}

func (s *Service) sendReset(ctx context.Context, actor string, st *Staff) error {
	ttl := s.ResetTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	tok := ResetToken{
		Token:     uuid.NewString(),
		StaffID:   st.ID,
		ExpiresAt: s.now().Add(ttl),
	}
	if err := s.Store.CreateResetToken(ctx, tok); err != nil {
		return err
	}

	link := strings.TrimSuffix(s.BaseURL, "/") + "/reset-password?token=" + url.QueryEscape(tok.Token)
	business := s.BusinessName
	if business == "" {
		business = "LESELEC"
	}
	msg := mailer.Message{
		To:      st.Email,
		Subject: fmt.Sprintf("%s - Restablecer clave", business),
		HTML: fmt.Sprintf(
			`<p>Hola %s,</p><p>Para definir tu clave ingresá al siguiente enlace:</p><p><a href="%s">%s</a></p><p>El enlace vence en %d horas.</p>`,
			html.EscapeString(st.FullName), html.EscapeString(link), html.EscapeString(link), int(ttl.Hours()),
		),
		Text: fmt.Sprintf("Hola %s, para definir tu clave ingresá a %s", st.FullName, link),
	}
	if _, err := s.Mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("send reset email: %w", err)
	}
	log.Info().Str("staff_id", st.ID).Time("expires_at", tok.ExpiresAt).Msg("password reset sent")
	s.audit(ctx, audit.Entry{Action: audit.ActionResetIssued, Actor: actor, Target: st.Email})
	return nil
}

// Delete removes the account for email. actorEmail is the caller; nobody can
// delete their own account.
func (s *Service) Delete(ctx context.Context, actorEmail, email string) error {
	email = NormalizeEmail(email)
	if email == "" {
		return ErrEmailRequired
	}
	if email == NormalizeEmail(actorEmail) {
		return ErrSelfDelete
	}
	if err := s.Store.Delete(ctx, email); err != nil {
		return err
	}
	log.Info().Str("email", email).Str("by", actorEmail).Msg("staff deleted")
	s.audit(ctx, audit.Entry{Action: audit.ActionStaffDeleted, Actor: actorEmail, Target: email})
	return nil
}

// audit records e. A failure is logged and does not undo the change.
func (s *Service) audit(ctx context.Context, e audit.Entry) {
	if s.Audit == nil {
		return
	}
	if err := s.Audit.Log(ctx, e); err != nil {
		log.Warn().Err(err).Str("action", string(e.Action)).Msg("audit log failed")
	}
}

// ResetPassword consumes token and stores the new password. Both happen or
// neither does, so a failed attempt leaves the token usable.
func (s *Service) ResetPassword(ctx context.Context, token, plain string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrResetInvalid
	}
	hash, err := HashPassword(plain)
	if err != nil {
		return err
	}
	staffID, err := s.Store.ResetPassword(ctx, token, hash, s.now())
	if err != nil {
		return err
	}
	log.Info().Str("staff_id", staffID).Msg("password reset completed")
	return nil
}

// Authenticate returns the active staff member whose password matches.
func (s *Service) Authenticate(ctx context.Context, email, plain string) (*Staff, error) {
	st, err := s.Store.GetByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrBadCredentials
	}
	if err != nil {
		return nil, err
	}
	if !st.Active || !CheckPassword(st.PasswordHash, plain) {
		return nil, ErrBadCredentials
	}
	return st, nil
}
