package api

import (
	"context"
)

type ctxKey string

const ctxKeySession ctxKey = "session"

// Session is the authenticated staff member behind a request.
type Session struct {
	StaffID string
	Email   string
	Name    string
	Role    string
}

// Actor is the label recorded in case history for actions taken by this session.
func (s *Session) Actor() string {
	if s == nil {
		return "anonymous"
	}
	if s.Name != "" {
		return s.Name
	}
	return s.Email
}

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKeySession, s)
}

func SessionFromContext(ctx context.Context) *Session {
	v := ctx.Value(ctxKeySession)
	if v == nil {
		return nil
	}
	s, _ := v.(*Session)
	return s
}
