package repair

import "fmt"

type Status string

const (
	StatusRecepcion   Status = "recepcion"
	StatusPresupuesto Status = "presupuesto"
	StatusReparacion  Status = "reparacion"
	StatusEntrega     Status = "entrega"
	StatusFacturacion Status = "facturacion"
	StatusFinalizada  Status = "finalizada"
)

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusRecepcion, StatusPresupuesto, StatusReparacion, StatusEntrega, StatusFacturacion, StatusFinalizada:
		return Status(s), nil
	default:
		return "", fmt.Errorf("unknown status: %s", s)
	}
}

var allowedTransitions = map[Status]map[Status]bool{
	StatusRecepcion:   {StatusPresupuesto: true},
	StatusPresupuesto: {StatusReparacion: true, StatusEntrega: true},
	StatusReparacion:  {StatusEntrega: true},
	StatusEntrega:     {StatusFinalizada: true, StatusFacturacion: true},
	StatusFacturacion: {StatusFinalizada: true},
	StatusFinalizada:  {},
}

func CanTransition(from, to Status) bool {
	if from.Terminal() {
		return false
	}
	m, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	return m[to]
}

func (s Status) Terminal() bool {
	return s == StatusFinalizada
}

// Label is the wording shown to clients.
func (s Status) Label() string {
	switch s {
	case StatusRecepcion:
		return "Recepción"
	case StatusPresupuesto:
		return "Presupuesto"
	case StatusReparacion:
		return "Reparación"
	case StatusEntrega:
		return "Entrega"
	case StatusFacturacion:
		return "Facturación"
	case StatusFinalizada:
		return "Finalizada"
	default:
		return string(s)
	}
}

type WorkStatus string

const (
	WorkPendiente  WorkStatus = "pendiente"
	WorkEnProceso  WorkStatus = "en_proceso"
	WorkCompletada WorkStatus = "completada"
)

func ParseWorkStatus(s string) (WorkStatus, error) {
	switch WorkStatus(s) {
	case WorkPendiente, WorkEnProceso, WorkCompletada:
		return WorkStatus(s), nil
	default:
		return "", fmt.Errorf("unknown work status: %s", s)
	}
}

type DeliveryStatus string

const (
	DeliveryPendiente DeliveryStatus = "pendiente"
	DeliveryEntregado DeliveryStatus = "entregado"
)

func ParseDeliveryStatus(s string) (DeliveryStatus, error) {
	switch DeliveryStatus(s) {
	case DeliveryPendiente, DeliveryEntregado:
		return DeliveryStatus(s), nil
	default:
		return "", fmt.Errorf("unknown delivery status: %s", s)
	}
}

type DeliveryReason string

const (
	ReasonRepairCompleted DeliveryReason = "reparacion_completada"
	ReasonQuoteRejected   DeliveryReason = "rechazo_presupuesto"
)

type ClientKind string

const (
	ClientEmpresa    ClientKind = "empresa"
	ClientParticular ClientKind = "particular"
)

func ParseClientKind(s string) (ClientKind, error) {
	switch ClientKind(s) {
	case "":
		return ClientParticular, nil
	case ClientEmpresa, ClientParticular:
		return ClientKind(s), nil
	default:
		return "", fmt.Errorf("unknown client kind: %s", s)
	}
}
