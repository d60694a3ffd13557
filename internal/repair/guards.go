package repair

import (
	"strings"

	"repairshop/internal/apperr"
)

// CheckIntake guards recepcion -> presupuesto.
func CheckIntake(client *Client, equipment []Equipment) error {
	if client == nil || client.ID == 0 {
		return apperr.Conflict(CodeClientMissing, "la reparación no tiene cliente asociado")
	}
	for _, e := range equipment {
		if strings.TrimSpace(e.Type) != "" && strings.TrimSpace(e.Brand) != "" {
			return nil
		}
	}
	return apperr.Conflict(CodeEquipmentIncomplete, "se requiere al menos un equipo con tipo y marca")
}

// CheckRepairStart guards presupuesto -> reparacion. A zero deposit or a zero
// diagnostic fee counts as paid.
func CheckRepairStart(b *Budget) error {
	if b == nil {
		return apperr.Conflict(CodeBudgetMissing, "la reparación no tiene presupuesto")
	}
	if !b.Complete() {
		return apperr.Conflict(CodeBudgetIncomplete, "el presupuesto está incompleto")
	}
	if b.Rejected {
		return apperr.Conflict(CodeQuoteRejected, "el presupuesto fue rechazado")
	}
	if b.Deposit.IsPositive() && !b.DepositPaid {
		return apperr.Conflict(CodeDepositUnpaid, "la seña no está abonada")
	}
	if b.DiagnosticFee.IsPositive() && !b.DiagnosticPaid {
		return apperr.Conflict(CodeDiagnosticUnpaid, "el diagnóstico no está abonado")
	}
	return nil
}

// CheckRepairComplete guards reparacion -> entrega.
func CheckRepairComplete(w *WorkAssignment) error {
	if w == nil || w.Status != WorkCompletada {
		return apperr.Conflict(CodeWorkNotCompleted, "el trabajo de reparación no está completado")
	}
	return nil
}

// CheckHandover guards a delivery becoming entregado, which finalizes the case.
func CheckHandover(d *Delivery, b *Budget) error {
	if d == nil {
		return apperr.Conflict(CodeDeliveryMissing, "no hay datos de entrega")
	}
	if strings.TrimSpace(d.PickupName) == "" ||
		strings.TrimSpace(d.PickupSurname) == "" ||
		strings.TrimSpace(d.PickupID) == "" ||
		d.PickupDate == nil || d.PickupDate.IsZero() {
		return apperr.Conflict(CodePickupIncomplete, "faltan datos de quien retira (nombre, apellido, DNI y fecha)")
	}
	if d.Status != DeliveryEntregado {
		return apperr.Conflict(CodeNotHandedOver, "el estado de entrega debe ser entregado")
	}
	if d.Reason == ReasonQuoteRejected && (b == nil || !b.DiagnosticPaid) {
		return apperr.Conflict(CodeDiagnosticUnpaid, "el diagnóstico debe estar abonado para entregar un equipo con presupuesto rechazado")
	}
	return nil
}
