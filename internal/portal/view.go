package portal

import (
	"github.com/shopspring/decimal"

	"repairshop/internal/repair"
	"repairshop/pkg/money"
)

// RepairView is what the client sees when looking up an entry number.
type RepairView struct {
	ID            int64       `json:"id"`
	NumeroIngreso string      `json:"numeroIngreso"`
	Equipo        string      `json:"equipo"`
	Marca         string      `json:"marca"`
	NumeroSerie   string      `json:"numeroSerie"`
	Cliente       string      `json:"cliente"`
	DniCuil       string      `json:"dniCuil"`
	Estado        string      `json:"estado"`
	EstadoCodigo  string      `json:"estadoCodigo"`
	FechaIngreso  string      `json:"fechaIngreso"`
	Observaciones string      `json:"observaciones"`
	Presupuesto   *BudgetView `json:"presupuesto"`
}

type BudgetView struct {
	Diagnostico        string `json:"diagnostico"`
	Proceso            string `json:"proceso"`
	Repuestos          string `json:"repuestos"`
	ImporteTotal       string `json:"importeTotal"`
	Sena               string `json:"sena"`
	CostoDiagnostico   string `json:"costoDiagnostico"`
	SenaAbonada        bool   `json:"senaAbonada"`
	DiagnosticoAbonado bool   `json:"diagnosticoAbonado"`
	Completo           bool   `json:"completo"`
	Rechazado          bool   `json:"rechazado"`
	// PagoAceptar and PagoRechazar are what the single pay action would charge.
	PagoAceptar  string `json:"pagoAceptar"`
	PagoRechazar string `json:"pagoRechazar"`
}

func buildView(b *repair.Bundle, f money.Formatter) RepairView {
	v := RepairView{
		ID:            b.Case.ID,
		NumeroIngreso: b.Case.EntryNumber,
		Estado:        b.Case.Status.Label(),
		EstadoCodigo:  string(b.Case.Status),
		FechaIngreso:  b.Case.CreatedAt.Format("2006-01-02"),
		Observaciones: b.Case.Notes,
	}
	if len(b.Equipment) > 0 {
		e := b.Equipment[0]
		v.Equipo = e.Type
		v.Marca = e.Brand
		v.NumeroSerie = e.Serial
	}
	if b.Client != nil {
		v.Cliente = b.Client.FullName()
		v.DniCuil = b.Client.TaxID
	}
	if q := b.Budget; q != nil {
		diag := decimal.Zero
		if !q.DiagnosticPaid {
			diag = q.DiagnosticFee
		}
		accept := diag
		if !q.DepositPaid {
			accept = accept.Add(q.Deposit)
		}
		v.Presupuesto = &BudgetView{
			Diagnostico:        q.Diagnosis,
			Proceso:            q.Process,
			Repuestos:          q.Parts,
			ImporteTotal:       f.FormatNull(q.Total),
			Sena:               f.Format(q.Deposit),
			CostoDiagnostico:   f.Format(q.DiagnosticFee),
			SenaAbonada:        q.DepositPaid,
			DiagnosticoAbonado: q.DiagnosticPaid,
			Completo:           q.Complete(),
			Rechazado:          q.Rejected,
			PagoAceptar:        f.Format(accept),
			PagoRechazar:       f.Format(diag),
		}
	}
	return v
}
