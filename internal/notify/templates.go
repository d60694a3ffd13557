package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"strconv"
	"strings"

	"repairshop/internal/repair"
	"repairshop/pkg/money"
)

type equipmentRow struct {
	Type     string
	Quantity int
	Brand    string
	Serial   string
	Power    string
	Voltage  string
	RPM      string
}

type view struct {
	Business     string
	ClientName   string
	EntryNumber  string
	EntryDate    string
	Receptionist string
	Notes        string
	Equipment    []equipmentRow

	Diagnosis     string
	Process       string
	Parts         string
	Total         string
	Deposit       string
	DiagnosticFee string

	WorkStatus string
	WorkLead   string

	PortalURL string
	DirectURL string
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return money.Placeholder
	}
	return strings.TrimSpace(s)
}

func (d *Dispatcher) buildView(b *repair.Bundle) view {
	business := d.BusinessName
	if business == "" {
		business = "LESELEC"
	}
	v := view{
		Business:      business,
		EntryNumber:   b.Case.EntryNumber,
		EntryDate:     b.Case.CreatedAt.Format("02/01/2006"),
		Receptionist:  orDash(b.Case.Receptionist),
		Notes:         orDash(b.Case.Notes),
		Diagnosis:     money.Placeholder,
		Process:       money.Placeholder,
		Parts:         money.Placeholder,
		Total:         money.Placeholder,
		Deposit:       money.Placeholder,
		DiagnosticFee: money.Placeholder,
		WorkStatus:    string(repair.WorkCompletada),
		WorkLead:      money.Placeholder,
	}
	if b.Client != nil {
		v.ClientName = b.Client.FullName()
	}
	for _, e := range b.Equipment {
		qty := e.Quantity
		if qty <= 0 {
			qty = 1
		}
		v.Equipment = append(v.Equipment, equipmentRow{
			Type:     orDash(e.Type),
			Quantity: qty,
			Brand:    orDash(e.Brand),
			Serial:   orDash(e.Serial),
			Power:    orDash(e.Power),
			Voltage:  orDash(e.Voltage),
			RPM:      orDash(e.RPM),
		})
	}
	if q := b.Budget; q != nil {
		v.Diagnosis = orDash(q.Diagnosis)
		v.Process = orDash(q.Process)
		v.Parts = orDash(q.Parts)
		v.Total = d.Money.FormatNull(q.Total)
		v.Deposit = d.Money.Format(q.Deposit)
		v.DiagnosticFee = d.Money.Format(q.DiagnosticFee)
	}
	if w := b.Work; w != nil {
		if w.Status != "" {
			v.WorkStatus = string(w.Status)
		}
		v.WorkLead = orDash(w.Lead)
	}
	if base := strings.TrimRight(d.BaseURL, "/"); base != "" {
		v.PortalURL = base + "/client-login"
		v.DirectURL = base + "/repair/" + url.PathEscape(b.Case.EntryNumber)
	}
	return v
}

const layoutHTML = `{{define "layout"}}<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
body{font-family:Arial,Helvetica,sans-serif;color:#111}
.card{border:1px solid #e5e7eb;border-radius:8px;padding:16px;margin:10px 0}
.btn{display:inline-block;background:#0056A6;color:#fff;padding:10px 14px;border-radius:6px;text-decoration:none}
.muted{color:#6b7280;font-size:12px}
h2{color:#0056A6}
table{border-collapse:collapse}
td,th{padding:4px 8px;border-bottom:1px solid #eee;text-align:left}
</style>
</head>
<body>
{{template "body" .}}
{{if .PortalURL}}<p><a class="btn" href="{{.PortalURL}}" target="_blank">Ir a Mis Reparaciones</a></p>{{end}}
{{if .DirectURL}}<p class="muted">Acceso directo: <a href="{{.DirectURL}}">{{.DirectURL}}</a></p>{{end}}
<p class="muted">{{.Business}}</p>
</body>
</html>{{end}}

{{define "equipment"}}
<div class="card">
<div><strong>Equipos:</strong></div>
{{if .Equipment}}
<table>
<tr><th>Equipo</th><th>Marca</th><th>N° Serie</th><th>Potencia</th><th>Tensión</th><th>RPM</th></tr>
{{range .Equipment}}<tr><td>{{.Type}} (x{{.Quantity}})</td><td>{{.Brand}}</td><td>{{.Serial}}</td><td>{{.Power}}</td><td>{{.Voltage}}</td><td>{{.RPM}}</td></tr>
{{end}}
</table>
{{else}}<div>-</div>{{end}}
</div>
{{end}}`

var bodies = map[Kind]string{
	repair.NotifyRecepcion: `{{define "body"}}
<h2>Recepción registrada</h2>
<p>Hola {{.ClientName}}, registramos tu reparación.</p>
<div class="card">
<div><strong>N° de Ingreso:</strong> {{.EntryNumber}}</div>
<div><strong>Fecha de Ingreso:</strong> {{.EntryDate}}</div>
<div><strong>Recepcionista:</strong> {{.Receptionist}}</div>
</div>
{{template "equipment" .}}
<p>Puedes ingresar a <strong>Mis Reparaciones</strong> con tu número de ingreso y ver el estado en tiempo real.</p>
{{end}}`,

	repair.NotifyPresupuesto: `{{define "body"}}
<h2>Presupuesto disponible</h2>
<p>Hola {{.ClientName}}, ya está disponible el presupuesto de tu reparación.</p>
<div class="card">
<div><strong>N° de Ingreso:</strong> {{.EntryNumber}}</div>
<div><strong>Diagnóstico de la falla:</strong> {{.Diagnosis}}</div>
<div><strong>Proceso de reparación:</strong> {{.Process}}</div>
<div><strong>Repuestos necesarios:</strong> {{.Parts}}</div>
<div><strong>Importe:</strong> {{.Total}}</div>
<div><strong>Seña:</strong> {{.Deposit}}</div>
<div><strong>Diagnóstico (costo):</strong> {{.DiagnosticFee}}</div>
</div>
{{template "equipment" .}}
<p>Deberás abonar la <strong>seña</strong> de forma presencial o desde la web en la sección <strong>Mis Reparaciones</strong> ingresando con el número de ingreso. Una vez abonada, iniciaremos el proceso de reparación.</p>
<p>Ante cualquier consulta, comunícate con <strong>{{.Business}}</strong>.</p>
{{end}}`,

	repair.NotifyListaEntrega: `{{define "body"}}
<h2>Reparación finalizada: lista para entregar</h2>
<p>Hola {{.ClientName}}, tu reparación ya está <strong>finalizada</strong> y lista para retirar en nuestra sucursal.</p>
<div class="card">
<div><strong>N° de Ingreso:</strong> {{.EntryNumber}}</div>
<div><strong>Fecha de Ingreso:</strong> {{.EntryDate}}</div>
</div>
<div class="card">
<h3>Resumen</h3>
<p><strong>Recepción:</strong> Observaciones: {{.Notes}}</p>
<p><strong>Presupuesto:</strong> Diagnóstico: {{.Diagnosis}} • Importe: {{.Total}} • Seña: {{.Deposit}}</p>
<p><strong>Reparación:</strong> Estado: {{.WorkStatus}} • Encargado: {{.WorkLead}}</p>
</div>
{{template "equipment" .}}
<p>Te esperamos para coordinar la entrega en nuestra sucursal.</p>
{{end}}`,
}

var pages = func() map[Kind]*template.Template {
	base := template.Must(template.New("layout").Parse(layoutHTML))
	out := make(map[Kind]*template.Template, len(bodies))
	for kind, body := range bodies {
		out[kind] = template.Must(template.Must(base.Clone()).Parse(body))
	}
	return out
}()

func subjectFor(kind Kind, entry string) string {
	switch kind {
	case repair.NotifyRecepcion:
		return fmt.Sprintf("Recepción N° %s registrada", entry)
	case repair.NotifyPresupuesto:
		return fmt.Sprintf("Presupuesto disponible - Ingreso %s", entry)
	default:
		return fmt.Sprintf("Lista para retirar - Ingreso %s", entry)
	}
}

func render(kind Kind, v view) (subject, html, text string, err error) {
	t, ok := pages[kind]
	if !ok {
		return "", "", "", ErrUnknownType
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", v); err != nil {
		return "", "", "", err
	}
	return subjectFor(kind, v.EntryNumber), buf.String(), whatsappText(kind, v), nil
}

func whatsappText(kind Kind, v view) string {
	var b strings.Builder
	greeting := "Hola"
	if v.ClientName != "" {
		greeting += " " + v.ClientName
	}
	switch kind {
	case repair.NotifyRecepcion:
		fmt.Fprintf(&b, "%s, registramos tu reparación en %s. N° de ingreso: %s.", greeting, v.Business, v.EntryNumber)
		if n := len(v.Equipment); n > 0 {
			b.WriteString(" Equipos recibidos: " + strconv.Itoa(n) + ".")
		}
	case repair.NotifyPresupuesto:
		fmt.Fprintf(&b, "%s, ya está disponible el presupuesto de tu reparación %s. Importe: $ %s. Seña: $ %s.",
			greeting, v.EntryNumber, v.Total, v.Deposit)
	default:
		fmt.Fprintf(&b, "%s, tu reparación %s está lista para retirar en %s.", greeting, v.EntryNumber, v.Business)
	}
	if v.DirectURL != "" {
		b.WriteString(" Consultá el estado en " + v.DirectURL)
	}
	return b.String()
}
