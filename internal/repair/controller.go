package repair

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"repairshop/internal/apperr"
	"repairshop/internal/entrynumber"
	"repairshop/internal/events"
	"repairshop/internal/payment"
)

type NotificationKind string

const (
	NotifyRecepcion    NotificationKind = "recepcion"
	NotifyPresupuesto  NotificationKind = "presupuesto"
	NotifyListaEntrega NotificationKind = "lista_entrega"
)

type Notifier interface {
	NotifyCase(ctx context.Context, kind NotificationKind, caseID int64) error
}

type PaymentGateway interface {
	Charge(ctx context.Context, c payment.Charge) (*payment.Receipt, error)
}

// Actor identifies who performed an operation in the case history.
type Actor struct {
	ID   string
	Name string
}

// ClientActor is used for actions the client performs from the self-service pages.
var ClientActor = Actor{Name: "cliente"}

func (a Actor) label() string {
	if a.Name != "" {
		return a.Name
	}
	if a.ID != "" {
		return a.ID
	}
	return "sistema"
}

// Outcome is what a lifecycle operation hands back to the caller. A failed
// notification after commit does not undo the operation; it is reported in
// NotificationError instead.
type Outcome struct {
	Case              Case            `json:"case"`
	Budget            *Budget         `json:"budget,omitempty"`
	Work              *WorkAssignment `json:"work,omitempty"`
	Delivery          *Delivery       `json:"delivery,omitempty"`
	Notified          bool            `json:"notified"`
	NotificationError string          `json:"notificationError,omitempty"`
}

type Controller struct {
	Store    Store
	Notifier Notifier
	Payments PaymentGateway
	Now      func() time.Time
}

func NewController(store Store, notifier Notifier, payments PaymentGateway) *Controller {
	return &Controller{Store: store, Notifier: notifier, Payments: payments}
}

func (c *Controller) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

type ClientInput struct {
	Name    string `json:"name"`
	Surname string `json:"surname"`
	TaxID   string `json:"taxId"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
	Kind    string `json:"kind"`
}

func (in ClientInput) toClient() (*Client, error) {
	kind, err := ParseClientKind(strings.TrimSpace(in.Kind))
	if err != nil {
		return nil, apperr.Validation("VALIDATION_FAILED", "tipo de cliente inválido")
	}
	cl := &Client{
		Name:    strings.TrimSpace(in.Name),
		Surname: strings.TrimSpace(in.Surname),
		TaxID:   strings.TrimSpace(in.TaxID),
		Phone:   strings.TrimSpace(in.Phone),
		Email:   strings.ToLower(strings.TrimSpace(in.Email)),
		Address: strings.TrimSpace(in.Address),
		Kind:    kind,
	}
	if cl.Name == "" {
		return nil, apperr.Validation("VALIDATION_FAILED", "el nombre del cliente es obligatorio")
	}
	return cl, nil
}

type EquipmentInput struct {
	Type     string `json:"type"`
	Brand    string `json:"brand"`
	Serial   string `json:"serial"`
	Quantity int    `json:"quantity"`
	Power    string `json:"power"`
	Voltage  string `json:"voltage"`
	RPM      string `json:"rpm"`
}

type IntakeInput struct {
	ClientID     int64            `json:"clientId"`
	Client       *ClientInput     `json:"client"`
	Equipment    []EquipmentInput `json:"equipment"`
	Notes        string           `json:"notes"`
	Receptionist string           `json:"receptionist"`
}

// CreateCase registers a new case in recepcion and sends the reception notification.
func (c *Controller) CreateCase(ctx context.Context, actor Actor, in IntakeInput) (*Outcome, error) {
	var newClient *Client
	if in.ClientID == 0 {
		if in.Client == nil {
			return nil, apperr.Validation("CLIENT_REQUIRED", "se requiere un cliente")
		}
		cl, err := in.Client.toClient()
		if err != nil {
			return nil, err
		}
		newClient = cl
	}

	items := make([]Equipment, 0, len(in.Equipment))
	for _, e := range in.Equipment {
		qty := e.Quantity
		if qty < 0 {
			return nil, apperr.Validation("VALIDATION_FAILED", "la cantidad no puede ser negativa")
		}
		if qty == 0 {
			qty = 1
		}
		items = append(items, Equipment{
			Type:     strings.TrimSpace(e.Type),
			Brand:    strings.TrimSpace(e.Brand),
			Serial:   strings.TrimSpace(e.Serial),
			Quantity: qty,
			Power:    strings.TrimSpace(e.Power),
			Voltage:  strings.TrimSpace(e.Voltage),
			RPM:      strings.TrimSpace(e.RPM),
		})
	}

	now := c.now()
	var created Case
	err := c.Store.WithTx(ctx, func(tx Tx) error {
		clientID := in.ClientID
		if newClient != nil {
			newClient.CreatedAt = now
			if err := tx.InsertClient(ctx, newClient); err != nil {
				return err
			}
			clientID = newClient.ID
		} else if _, err := tx.GetClient(ctx, clientID); err != nil {
			return err
		}

		seq, err := tx.NextSequence(ctx, entrynumber.SequenceKind, now.Year())
		if err != nil {
			return fmt.Errorf("allocate entry number: %w", err)
		}
		created = Case{
			EntryNumber:  entrynumber.Format(now.Year(), seq),
			ClientID:     clientID,
			Status:       StatusRecepcion,
			Notes:        strings.TrimSpace(in.Notes),
			Receptionist: strings.TrimSpace(in.Receptionist),
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := tx.InsertCase(ctx, &created); err != nil {
			return err
		}
		for i := range items {
			items[i].CaseID = created.ID
		}
		if len(items) > 0 {
			if err := tx.InsertEquipment(ctx, items); err != nil {
				return err
			}
		}
		return tx.AppendEvent(ctx, events.Event{
			CaseID:     created.ID,
			EventType:  events.TypeCaseCreated,
			Summary:    "Ingreso " + created.EntryNumber + " registrado",
			Actor:      actor.label(),
			OccurredAt: now,
			Data:       map[string]any{"entryNumber": created.EntryNumber, "equipment": len(items)},
		})
	})
	if err != nil {
		return nil, err
	}
	return c.notify(ctx, &Outcome{Case: created}, NotifyRecepcion), nil
}

// ConfirmIntake moves a case from recepcion to presupuesto.
func (c *Controller) ConfirmIntake(ctx context.Context, actor Actor, id int64) (*Outcome, error) {
	now := c.now()
	var cs *Case
	err := c.Store.WithTx(ctx, func(tx Tx) error {
		var err error
		cs, err = tx.GetCaseForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !CanTransition(cs.Status, StatusPresupuesto) {
			return transitionError(cs.Status, StatusPresupuesto)
		}
		if err := checkIntake(ctx, tx, cs); err != nil {
			return err
		}
		return c.transition(ctx, tx, cs, StatusPresupuesto, actor, now, nil)
	})
	if err != nil {
		return nil, err
	}
	return &Outcome{Case: *cs}, nil
}

type BudgetInput struct {
	Diagnosis       string           `json:"diagnosis"`
	Process         string           `json:"process"`
	Parts           string           `json:"parts"`
	Total           *decimal.Decimal `json:"total"`
	DiagnosticFee   decimal.Decimal  `json:"diagnosticFee"`
	Deposit         decimal.Decimal  `json:"deposit"`
	InvoiceRequired bool             `json:"invoiceRequired"`
}

// SaveBudget records a new quote, superseding the active one. A case still in
// recepcion is advanced to presupuesto first. Every save of a complete quote
// sends the quote notification.
func (c *Controller) SaveBudget(ctx context.Context, actor Actor, id int64, in BudgetInput) (*Outcome, error) {
	if in.DiagnosticFee.IsNegative() || in.Deposit.IsNegative() || (in.Total != nil && in.Total.IsNegative()) {
		return nil, apperr.Validation("VALIDATION_FAILED", "los importes no pueden ser negativos")
	}

	now := c.now()
	var cs *Case
	var saved *Budget
	err := c.Store.WithTx(ctx, func(tx Tx) error {
		var err error
		cs, err = tx.GetCaseForUpdate(ctx, id)
		if err != nil {
			return err
		}

		switch cs.Status {
		case StatusRecepcion:
			if err := checkIntake(ctx, tx, cs); err != nil {
				return err
			}
			if err := c.transition(ctx, tx, cs, StatusPresupuesto, actor, now, map[string]any{"via": "budget"}); err != nil {
				return err
			}
		case StatusPresupuesto:
			if err := c.touch(ctx, tx, cs, now); err != nil {
				return err
			}
		default:
			return stageError(cs.Status, "cargar presupuesto")
		}

		prev, err := tx.ActiveBudget(ctx, cs.ID)
		if err != nil {
			return err
		}

		b := &Budget{
			CaseID:          cs.ID,
			Diagnosis:       strings.TrimSpace(in.Diagnosis),
			Process:         strings.TrimSpace(in.Process),
			Parts:           strings.TrimSpace(in.Parts),
			DiagnosticFee:   in.DiagnosticFee.Round(2),
			Deposit:         in.Deposit.Round(2),
			InvoiceRequired: in.InvoiceRequired,
			CreatedAt:       now,
		}
		if in.Total != nil {
			b.Total = decimal.NewNullDecimal(in.Total.Round(2))
		}

		data := map[string]any{"complete": b.Complete()}
		if prev != nil {
			b.DiagnosticPaid = prev.DiagnosticPaid
			b.DepositPaid = prev.DepositPaid
			if err := tx.SupersedeBudget(ctx, prev.ID, now); err != nil {
				return err
			}
			data["supersedes"] = prev.ID
		}
		if err := tx.InsertBudget(ctx, b); err != nil {
			return err
		}
		saved = b

		return tx.AppendEvent(ctx, events.Event{
			CaseID:     cs.ID,
			EventType:  events.TypeBudgetSaved,
			Summary:    "Presupuesto guardado",
			Actor:      actor.label(),
			OccurredAt: now,
			Data:       data,
		})
	})
	if err != nil {
		return nil, err
	}

	out := &Outcome{Case: *cs, Budget: saved}
	if saved.Complete() {
		return c.notify(ctx, out, NotifyPresupuesto), nil
	}
	return out, nil
}

type PaymentInput struct {
	DiagnosticPaid *bool `json:"diagnosticPaid"`
	DepositPaid    *bool `json:"depositPaid"`
}

// RecordPayment lets the cashier mark the diagnostic fee and deposit independently.
func (c *Controller) RecordPayment(ctx context.Context, actor Actor, id int64, in PaymentInput) (*Outcome, error) {
	if in.DiagnosticPaid == nil && in.DepositPaid == nil {
		return nil, apperr.Validation("VALIDATION_FAILED", "no se indicó ningún pago")
	}

	now := c.now()
	var cs *Case
	var b *Budget
	err := c.Store.WithTx(ctx, func(tx Tx) error {
		var err error
		cs, err = tx.GetCaseForUpdate(ctx, id)
		if err != nil {
			return err
		}
		switch cs.Status {
		case StatusPresupuesto, StatusReparacion, StatusEntrega:
		default:
			return stageError(cs.Status, "registrar pagos")
		}

		b, err = tx.ActiveBudget(ctx, cs.ID)
		if err != nil {
			return err
		}
		if b == nil {
			return ErrBudgetNotFound
		}
		if in.DiagnosticPaid != nil {
			b.DiagnosticPaid = *in.DiagnosticPaid
		}
		if in.DepositPaid != nil {
			b.DepositPaid = *in.DepositPaid
		}
		if err := tx.UpdateBudgetFlags(ctx, b); err != nil {
			return err
		}
		if err := c.touch(ctx, tx, cs, now); err != nil {
			return err
		}
		return tx.AppendEvent(ctx, events.Event{
			CaseID:     cs.ID,
			EventType:  events.TypePaymentRecorded,
			Summary:    "Pago registrado en caja",
			Actor:      actor.label(),
			OccurredAt: now,
			Data:       map[string]any{"diagnosticPaid": b.DiagnosticPaid, "depositPaid": b.DepositPaid, "channel": "presencial"},
		})
	})
	if err != nil {
		return nil, err
	}
	return &Outcome{Case: *cs, Budget: b}, nil
}

// StartRepair moves a quoted, paid case from presupuesto to reparacion.
func (c *Controller) StartRepair(ctx context.Context, actor Actor, id int64) (*Outcome, error) {
	now := c.now()
	var cs *Case
	var work *WorkAssignment
	err := c.Store.WithTx(ctx, func(tx Tx) error {
		var err error
		cs, err = tx.GetCaseForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !CanTransition(cs.Status, StatusReparacion) {
			return transitionError(cs.Status, StatusReparacion)
		}
		b, err := tx.ActiveBudget(ctx, cs.ID)
		if err != nil {
			return err
		}
		if err := CheckRepairStart(b); err != nil {
			return err
		}
		work, err = c.startRepair(ctx, tx, cs, actor, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &Outcome{Case: *cs, Work: work}, nil
}

// RejectQuote sends a quoted case straight to entrega with reason rechazo_presupuesto.
// No notification is sent.
func (c *Controller) RejectQuote(ctx context.Context, actor Actor, id int64) (*Outcome, error) {
	now := c.now()
	var cs *Case
	var b *Budget
	var d *Delivery
	err := c.Store.WithTx(ctx, func(tx Tx) error {
		var err error
		cs, err = tx.GetCaseForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if cs.Status != StatusPresupuesto {
			return transitionError(cs.Status, StatusEntrega)
		}
		b, err = tx.ActiveBudget(ctx, cs.ID)
		if err != nil {
			return err
		}
		if b == nil {
			return apperr.Conflict(CodeBudgetMissing, "la reparación no tiene presupuesto")
		}
		d, err = c.reject(ctx, tx, cs, b, actor, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &Outcome{Case: *cs, Budget: b, Delivery: d}, nil
}

// ClientPay is the client's single online payment action. The diagnostic fee is
// always settled; the deposit only when the client accepts the quote.
func (c *Controller) ClientPay(ctx context.Context, id int64, rejected bool) (*Outcome, error) {
	actor := ClientActor
	now := c.now()
	var cs *Case
	var b *Budget
	var d *Delivery
	var work *WorkAssignment
	err := c.Store.WithTx(ctx, func(tx Tx) error {
		var err error
		cs, err = tx.GetCaseForUpdate(ctx, id)
		if err != nil {
			return err
		}
		target := StatusReparacion
		if rejected {
			target = StatusEntrega
		}
		if cs.Status != StatusPresupuesto {
			return transitionError(cs.Status, target)
		}

		b, err = tx.ActiveBudget(ctx, cs.ID)
		if err != nil {
			return err
		}
		if b == nil {
			return apperr.Conflict(CodeBudgetMissing, "la reparación no tiene presupuesto")
		}
		if !b.Complete() {
			return apperr.Conflict(CodeBudgetIncomplete, "el presupuesto está incompleto")
		}
		if b.Rejected {
			return apperr.Conflict(CodeQuoteRejected, "el presupuesto fue rechazado")
		}

		amount := decimal.Zero
		if !b.DiagnosticPaid {
			amount = amount.Add(b.DiagnosticFee)
		}
		if !rejected && !b.DepositPaid {
			amount = amount.Add(b.Deposit)
		}
		if amount.IsPositive() && c.Payments != nil {
			if err := c.charge(ctx, tx, cs, b, amount, rejected, now); err != nil {
				return err
			}
		}

		b.DiagnosticPaid = true
		if !rejected && b.Deposit.IsPositive() {
			b.DepositPaid = true
		}
		if err := tx.UpdateBudgetFlags(ctx, b); err != nil {
			return err
		}

		if rejected {
			d, err = c.reject(ctx, tx, cs, b, actor, now)
			return err
		}
		if err := CheckRepairStart(b); err != nil {
			return err
		}
		work, err = c.startRepair(ctx, tx, cs, actor, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &Outcome{Case: *cs, Budget: b, Delivery: d, Work: work}, nil
}

type WorkInput struct {
	Lead      string `json:"lead"`
	Assembler string `json:"assembler"`
	Notes     string `json:"notes"`
	Status    string `json:"status"`
}

// UpdateWork upserts the work assignment of a case under repair.
func (c *Controller) UpdateWork(ctx context.Context, actor Actor, id int64, in WorkInput) (*Outcome, error) {
	status := WorkPendiente
	if s := strings.TrimSpace(in.Status); s != "" {
		ws, err := ParseWorkStatus(s)
		if err != nil {
			return nil, apperr.Validation("VALIDATION_FAILED", "estado de reparación inválido")
		}
		status = ws
	}

	now := c.now()
	var cs *Case
	var w *WorkAssignment
	err := c.Store.WithTx(ctx, func(tx Tx) error {
		var err error
		cs, err = tx.GetCaseForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if cs.Status != StatusReparacion {
			return stageError(cs.Status, "actualizar el trabajo")
		}
		w = &WorkAssignment{
			CaseID:    cs.ID,
			Lead:      strings.TrimSpace(in.Lead),
			Assembler: strings.TrimSpace(in.Assembler),
			Notes:     strings.TrimSpace(in.Notes),
			Status:    status,
			UpdatedAt: now,
		}
		if err := tx.UpsertWork(ctx, w); err != nil {
			return err
		}
		if err := c.touch(ctx, tx, cs, now); err != nil {
			return err
		}
		return tx.AppendEvent(ctx, events.Event{
			CaseID:     cs.ID,
			EventType:  events.TypeWorkUpdated,
			Summary:    "Trabajo actualizado",
			Actor:      actor.label(),
			OccurredAt: now,
			Data:       map[string]any{"status": w.Status, "lead": w.Lead},
		})
	})
	if err != nil {
		return nil, err
	}
	return &Outcome{Case: *cs, Work: w}, nil
}

// CompleteRepair moves a finished repair to entrega and tells the client it is ready.
func (c *Controller) CompleteRepair(ctx context.Context, actor Actor, id int64) (*Outcome, error) {
	now := c.now()
	var cs *Case
	var d *Delivery
	err := c.Store.WithTx(ctx, func(tx Tx) error {
		var err error
		cs, err = tx.GetCaseForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if cs.Status != StatusReparacion {
			return transitionError(cs.Status, StatusEntrega)
		}
		w, err := tx.GetWork(ctx, cs.ID)
		if err != nil {
			return err
		}
		if err := CheckRepairComplete(w); err != nil {
			return err
		}
		d, err = pendingDelivery(ctx, tx, cs.ID, ReasonRepairCompleted, now)
		if err != nil {
			return err
		}
		return c.transition(ctx, tx, cs, StatusEntrega, actor, now, map[string]any{"reason": ReasonRepairCompleted})
	})
	if err != nil {
		return nil, err
	}
	return c.notify(ctx, &Outcome{Case: *cs, Delivery: d}, NotifyListaEntrega), nil
}

type DeliveryInput struct {
	Cashier        *string `json:"cashier"`
	PickupDate     *string `json:"pickupDate"`
	PickupName     *string `json:"pickupName"`
	PickupSurname  *string `json:"pickupSurname"`
	PickupID       *string `json:"pickupId"`
	Status         string  `json:"status"`
	DiagnosticPaid *bool   `json:"diagnosticPaid"`
}

// SaveDelivery records handover data. Setting status entregado finalizes the
// case, or moves it to facturacion when the quote requires an invoice.
func (c *Controller) SaveDelivery(ctx context.Context, actor Actor, id int64, in DeliveryInput) (*Outcome, error) {
	var requested DeliveryStatus
	if s := strings.TrimSpace(in.Status); s != "" {
		ds, err := ParseDeliveryStatus(s)
		if err != nil {
			return nil, apperr.Validation("VALIDATION_FAILED", "estado de entrega inválido")
		}
		requested = ds
	}
	var pickupDate *time.Time
	if in.PickupDate != nil && strings.TrimSpace(*in.PickupDate) != "" {
		t, err := ParseDate(*in.PickupDate)
		if err != nil {
			return nil, apperr.Validation("VALIDATION_FAILED", "fecha de retiro inválida")
		}
		pickupDate = &t
	}

	now := c.now()
	var cs *Case
	var d *Delivery
	var b *Budget
	err := c.Store.WithTx(ctx, func(tx Tx) error {
		var err error
		cs, err = tx.GetCaseForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if cs.Status != StatusEntrega {
			return stageError(cs.Status, "registrar la entrega")
		}

		d, err = tx.GetDelivery(ctx, cs.ID)
		if err != nil {
			return err
		}
		if d == nil {
			d = &Delivery{CaseID: cs.ID, Status: DeliveryPendiente, Reason: ReasonRepairCompleted}
		}
		applyDelivery(d, in, pickupDate)

		b, err = tx.ActiveBudget(ctx, cs.ID)
		if err != nil {
			return err
		}
		if in.DiagnosticPaid != nil {
			if b == nil {
				return ErrBudgetNotFound
			}
			b.DiagnosticPaid = *in.DiagnosticPaid
			if err := tx.UpdateBudgetFlags(ctx, b); err != nil {
				return err
			}
		}

		if requested == DeliveryEntregado {
			d.Status = DeliveryEntregado
			if err := CheckHandover(d, b); err != nil {
				return err
			}
		} else if requested == DeliveryPendiente {
			d.Status = DeliveryPendiente
		}
		d.UpdatedAt = now
		if err := tx.UpsertDelivery(ctx, d); err != nil {
			return err
		}
		if err := tx.AppendEvent(ctx, events.Event{
			CaseID:     cs.ID,
			EventType:  events.TypeDeliveryUpdated,
			Summary:    "Entrega actualizada",
			Actor:      actor.label(),
			OccurredAt: now,
			Data:       map[string]any{"status": d.Status, "reason": d.Reason},
		}); err != nil {
			return err
		}

		if d.Status != DeliveryEntregado {
			return c.touch(ctx, tx, cs, now)
		}

		next := StatusFinalizada
		if b != nil && b.InvoiceRequired && !b.Rejected {
			next = StatusFacturacion
		}
		if err := c.transition(ctx, tx, cs, next, actor, now, map[string]any{"reason": d.Reason}); err != nil {
			return err
		}
		if err := tx.SetDelivered(ctx, cs.ID, now); err != nil {
			return err
		}
		cs.DeliveredAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Outcome{Case: *cs, Delivery: d, Budget: b}, nil
}

// FinalizeDelivery hands the equipment over using the delivery data already on file.
func (c *Controller) FinalizeDelivery(ctx context.Context, actor Actor, id int64) (*Outcome, error) {
	return c.SaveDelivery(ctx, actor, id, DeliveryInput{Status: string(DeliveryEntregado)})
}

// RecordInvoice closes a case waiting in facturacion.
func (c *Controller) RecordInvoice(ctx context.Context, actor Actor, id int64, number string) (*Outcome, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, apperr.Validation("VALIDATION_FAILED", "el número de factura es obligatorio")
	}

	now := c.now()
	var cs *Case
	err := c.Store.WithTx(ctx, func(tx Tx) error {
		var err error
		cs, err = tx.GetCaseForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if cs.Status != StatusFacturacion {
			return transitionError(cs.Status, StatusFinalizada)
		}
		if err := tx.SetInvoiceNumber(ctx, cs.ID, number, now); err != nil {
			return err
		}
		cs.InvoiceNumber = number
		if err := tx.AppendEvent(ctx, events.Event{
			CaseID:     cs.ID,
			EventType:  events.TypeInvoiceRecorded,
			Summary:    "Factura " + number + " emitida",
			Actor:      actor.label(),
			OccurredAt: now,
			Data:       map[string]any{"invoiceNumber": number},
		}); err != nil {
			return err
		}
		return c.transition(ctx, tx, cs, StatusFinalizada, actor, now, nil)
	})
	if err != nil {
		return nil, err
	}
	return &Outcome{Case: *cs}, nil
}

// DeleteCase removes a case and everything that hangs off it.
func (c *Controller) DeleteCase(ctx context.Context, actor Actor, id int64) error {
	var entry string
	err := c.Store.WithTx(ctx, func(tx Tx) error {
		cs, err := tx.GetCaseForUpdate(ctx, id)
		if err != nil {
			return err
		}
		entry = cs.EntryNumber
		return tx.DeleteCase(ctx, cs.ID)
	})
	if err != nil {
		return err
	}
	log.Info().Int64("case_id", id).Str("entry_number", entry).Str("actor", actor.label()).Msg("repair case deleted")
	return nil
}

func (c *Controller) CreateClient(ctx context.Context, in ClientInput) (*Client, error) {
	cl, err := in.toClient()
	if err != nil {
		return nil, err
	}
	cl.CreatedAt = c.now()
	err = c.Store.WithTx(ctx, func(tx Tx) error {
		return tx.InsertClient(ctx, cl)
	})
	if err != nil {
		return nil, err
	}
	return cl, nil
}

func (c *Controller) UpdateClient(ctx context.Context, id int64, in ClientInput) (*Client, error) {
	next, err := in.toClient()
	if err != nil {
		return nil, err
	}
	err = c.Store.WithTx(ctx, func(tx Tx) error {
		cur, err := tx.GetClient(ctx, id)
		if err != nil {
			return err
		}
		next.ID = cur.ID
		next.CreatedAt = cur.CreatedAt
		return tx.UpdateClient(ctx, next)
	})
	if err != nil {
		return nil, err
	}
	return next, nil
}

func (c *Controller) GetBundle(ctx context.Context, id int64) (*Bundle, error) {
	return c.Store.LoadBundle(ctx, id)
}

func (c *Controller) transition(ctx context.Context, tx Tx, cs *Case, next Status, actor Actor, now time.Time, data map[string]any) error {
	if !CanTransition(cs.Status, next) {
		return transitionError(cs.Status, next)
	}
	if err := tx.UpdateCaseStatus(ctx, cs.ID, next, now); err != nil {
		return err
	}
	from := cs.Status
	cs.Status = next
	cs.UpdatedAt = now

	payload := map[string]any{"from": from, "to": next}
	for k, v := range data {
		payload[k] = v
	}
	return tx.AppendEvent(ctx, events.Event{
		CaseID:     cs.ID,
		EventType:  events.TypeStatusChanged,
		Summary:    fmt.Sprintf("Estado: %s a %s", from.Label(), next.Label()),
		Actor:      actor.label(),
		OccurredAt: now,
		Data:       payload,
	})
}

// touch bumps the last-update timestamp without changing status.
func (c *Controller) touch(ctx context.Context, tx Tx, cs *Case, now time.Time) error {
	if err := tx.UpdateCaseStatus(ctx, cs.ID, cs.Status, now); err != nil {
		return err
	}
	cs.UpdatedAt = now
	return nil
}

func (c *Controller) startRepair(ctx context.Context, tx Tx, cs *Case, actor Actor, now time.Time) (*WorkAssignment, error) {
	if err := c.transition(ctx, tx, cs, StatusReparacion, actor, now, nil); err != nil {
		return nil, err
	}
	w, err := tx.GetWork(ctx, cs.ID)
	if err != nil {
		return nil, err
	}
	if w != nil {
		return w, nil
	}
	w = &WorkAssignment{CaseID: cs.ID, Status: WorkPendiente, UpdatedAt: now}
	if err := tx.UpsertWork(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

func (c *Controller) reject(ctx context.Context, tx Tx, cs *Case, b *Budget, actor Actor, now time.Time) (*Delivery, error) {
	b.Rejected = true
	if err := tx.UpdateBudgetFlags(ctx, b); err != nil {
		return nil, err
	}
	d, err := pendingDelivery(ctx, tx, cs.ID, ReasonQuoteRejected, now)
	if err != nil {
		return nil, err
	}
	if err := tx.AppendEvent(ctx, events.Event{
		CaseID:     cs.ID,
		EventType:  events.TypeQuoteRejected,
		Summary:    "Presupuesto rechazado",
		Actor:      actor.label(),
		OccurredAt: now,
		Data:       map[string]any{"budgetId": b.ID},
	}); err != nil {
		return nil, err
	}
	if err := c.transition(ctx, tx, cs, StatusEntrega, actor, now, map[string]any{"reason": ReasonQuoteRejected}); err != nil {
		return nil, err
	}
	return d, nil
}

func (c *Controller) charge(ctx context.Context, tx Tx, cs *Case, b *Budget, amount decimal.Decimal, rejected bool, now time.Time) error {
	var payerEmail string
	if cl, err := tx.GetClient(ctx, cs.ClientID); err == nil {
		payerEmail = cl.Email
	} else if !errors.Is(err, ErrClientNotFound) {
		return err
	}

	desc, scope := "Diagnóstico y seña - Ingreso "+cs.EntryNumber, "accept"
	if rejected {
		desc, scope = "Diagnóstico - Ingreso "+cs.EntryNumber, "reject"
	}
	receipt, err := c.Payments.Charge(ctx, payment.Charge{
		CaseID:      cs.ID,
		EntryNumber: cs.EntryNumber,
		Amount:      amount,
		Description: desc,
		PayerEmail:  payerEmail,

		IdempotencyKey: payment.ChargeKey(cs.ID, b.ID, scope, amount),
	})
	if err != nil {
		return fmt.Errorf("payment gateway: %w", err)
	}
	if !receipt.Approved() {
		return apperr.Conflict(CodePaymentDeclined, "el pago no fue aprobado ("+receipt.Status+")")
	}
	return tx.AppendEvent(ctx, events.Event{
		CaseID:     cs.ID,
		EventType:  events.TypePaymentRecorded,
		Summary:    "Pago online aprobado",
		Actor:      ClientActor.label(),
		OccurredAt: now,
		Data: map[string]any{
			"provider":  receipt.Provider,
			"reference": receipt.Reference,
			"amount":    amount.StringFixed(2),
			"channel":   "online",
		},
	})
}

func (c *Controller) notify(ctx context.Context, out *Outcome, kind NotificationKind) *Outcome {
	if c.Notifier == nil {
		return out
	}
	if err := c.Notifier.NotifyCase(ctx, kind, out.Case.ID); err != nil {
		log.Warn().Err(err).
			Int64("case_id", out.Case.ID).
			Str("entry_number", out.Case.EntryNumber).
			Str("type", string(kind)).
			Msg("notification failed after commit")
		out.NotificationError = err.Error()
		return out
	}
	out.Notified = true
	return out
}

func checkIntake(ctx context.Context, tx Tx, cs *Case) error {
	client, err := tx.GetClient(ctx, cs.ClientID)
	if err != nil {
		if !errors.Is(err, ErrClientNotFound) {
			return err
		}
		client = nil
	}
	items, err := tx.ListEquipment(ctx, cs.ID)
	if err != nil {
		return err
	}
	return CheckIntake(client, items)
}

func pendingDelivery(ctx context.Context, tx Tx, caseID int64, reason DeliveryReason, now time.Time) (*Delivery, error) {
	d, err := tx.GetDelivery(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		d = &Delivery{CaseID: caseID}
	}
	d.Status = DeliveryPendiente
	d.Reason = reason
	d.UpdatedAt = now
	if err := tx.UpsertDelivery(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func applyDelivery(d *Delivery, in DeliveryInput, pickupDate *time.Time) {
	if in.Cashier != nil {
		d.Cashier = strings.TrimSpace(*in.Cashier)
	}
	if in.PickupDate != nil {
		d.PickupDate = pickupDate
	}
	if in.PickupName != nil {
		d.PickupName = strings.TrimSpace(*in.PickupName)
	}
	if in.PickupSurname != nil {
		d.PickupSurname = strings.TrimSpace(*in.PickupSurname)
	}
	if in.PickupID != nil {
		d.PickupID = strings.TrimSpace(*in.PickupID)
	}
}

// ParseDate accepts a plain date (2006-01-02) or an RFC 3339 timestamp.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
