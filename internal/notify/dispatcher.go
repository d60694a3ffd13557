// Package notify sends client-facing notifications for a repair case: the
// email always, plus a best-effort WhatsApp message when possible.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"repairshop/internal/apperr"
	"repairshop/internal/repair"
	"repairshop/pkg/mailer"
	"repairshop/pkg/money"
)

type Kind = repair.NotificationKind

var (
	ErrTypeRequired   = apperr.Validation("TYPE_REQUIRED", "Falta 'type'")
	ErrUnknownType    = apperr.Validation("UNKNOWN_TYPE", "Tipo de notificación inválido")
	ErrMissingRef     = apperr.Validation("REFERENCE_REQUIRED", "Se requiere 'reparacionId' o 'numeroIngreso'")
	ErrMissingContact = apperr.Validation("MISSING_CONTACT", "Cliente sin email")
)

func ParseKind(s string) (Kind, error) {
	switch Kind(strings.TrimSpace(s)) {
	case "":
		return "", ErrTypeRequired
	case repair.NotifyRecepcion, repair.NotifyPresupuesto, repair.NotifyListaEntrega:
		return Kind(strings.TrimSpace(s)), nil
	default:
		return "", ErrUnknownType
	}
}

type Mailer interface {
	Send(ctx context.Context, msg mailer.Message) (string, error)
}

type Messenger interface {
	SendText(ctx context.Context, phone, text string) error
}

// Request names the case by id or by entry number. CaseID wins when both are set.
type Request struct {
	Type        string
	CaseID      int64
	EntryNumber string
}

type Result struct {
	MessageID   string `json:"messageId"`
	EntryNumber string `json:"numeroIngreso"`
	WhatsApp    bool   `json:"whatsapp"`
}

type Dispatcher struct {
	Cases     repair.Reader
	Mailer    Mailer
	Messenger Messenger

	BaseURL      string
	BusinessName string
	Money        money.Formatter
}

// Send renders and delivers one notification. Nothing is deduplicated; two
// calls send two emails.
func (d *Dispatcher) Send(ctx context.Context, req Request) (*Result, error) {
	kind, err := ParseKind(req.Type)
	if err != nil {
		return nil, err
	}

	id := req.CaseID
	if id == 0 {
		if strings.TrimSpace(req.EntryNumber) == "" {
			return nil, ErrMissingRef
		}
		cs, err := repair.ResolveExact(ctx, d.Cases, req.EntryNumber)
		if err != nil {
			return nil, err
		}
		id = cs.ID
	}

	b, err := d.Cases.LoadBundle(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Client == nil || strings.TrimSpace(b.Client.Email) == "" {
		return nil, ErrMissingContact
	}

	v := d.buildView(b)
	subject, html, text, err := render(kind, v)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", kind, err)
	}

	msgID, err := d.Mailer.Send(ctx, mailer.Message{
		To:      strings.TrimSpace(b.Client.Email),
		Subject: subject,
		HTML:    html,
		Text:    text,
	})
	if err != nil {
		return nil, fmt.Errorf("send %s email: %w", kind, err)
	}

	res := &Result{MessageID: msgID, EntryNumber: b.Case.EntryNumber}
	if d.Messenger != nil && strings.TrimSpace(b.Client.Phone) != "" {
		if err := d.Messenger.SendText(ctx, b.Client.Phone, whatsappText(kind, v)); err != nil {
			log.Warn().Err(err).
				Int64("case_id", b.Case.ID).
				Str("type", string(kind)).
				Msg("whatsapp notification failed")
		} else {
			res.WhatsApp = true
		}
	}

	log.Info().
		Int64("case_id", b.Case.ID).
		Str("entry_number", b.Case.EntryNumber).
		Str("type", string(kind)).
		Str("message_id", msgID).
		Bool("whatsapp", res.WhatsApp).
		Msg("notification sent")
	return res, nil
}

// NotifyCase lets the lifecycle controller trigger notifications after commit.
func (d *Dispatcher) NotifyCase(ctx context.Context, kind repair.NotificationKind, caseID int64) error {
	_, err := d.Send(ctx, Request{Type: string(kind), CaseID: caseID})
	return err
}
