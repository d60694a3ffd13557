package repair

import (
	"fmt"

	"repairshop/internal/apperr"
)

var (
	ErrNotFound       = apperr.NotFound("NOT_FOUND", "Reparación no encontrada")
	ErrClientNotFound = apperr.NotFound("CLIENT_NOT_FOUND", "Cliente no encontrado")
	ErrBudgetNotFound = apperr.NotFound("BUDGET_NOT_FOUND", "La reparación no tiene presupuesto")

	// ErrBusy means another transition held the row lock past the lock timeout.
	ErrBusy           = apperr.Conflict("CASE_BUSY", "La reparación está siendo modificada, reintente")
	ErrDuplicateEntry = apperr.Conflict("DUPLICATE_ENTRY_NUMBER", "Número de ingreso duplicado")
)

// Guard failure codes.
const (
	CodeInvalidTransition   = "INVALID_STATE_TRANSITION"
	CodeClientMissing       = "CLIENT_MISSING"
	CodeEquipmentIncomplete = "EQUIPMENT_INCOMPLETE"
	CodeBudgetMissing       = "BUDGET_MISSING"
	CodeBudgetIncomplete    = "BUDGET_INCOMPLETE"
	CodeQuoteRejected       = "QUOTE_REJECTED"
	CodeDepositUnpaid       = "DEPOSIT_UNPAID"
	CodeDiagnosticUnpaid    = "DIAGNOSTIC_UNPAID"
	CodeWorkNotCompleted    = "WORK_NOT_COMPLETED"
	CodeDeliveryMissing     = "DELIVERY_MISSING"
	CodePickupIncomplete    = "PICKUP_INCOMPLETE"
	CodeNotHandedOver       = "DELIVERY_NOT_HANDED_OVER"
	CodeWrongStage          = "WRONG_STAGE"
	CodePaymentDeclined     = "PAYMENT_DECLINED"
)

func transitionError(from, to Status) error {
	return apperr.Conflict(CodeInvalidTransition, fmt.Sprintf("no se puede pasar de %s a %s", from, to))
}

func stageError(s Status, action string) error {
	return apperr.Conflict(CodeWrongStage, fmt.Sprintf("%s no está permitido en estado %s", action, s))
}
