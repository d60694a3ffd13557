package repair

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"repairshop/internal/api"
)

const recentLimit = 10

// Stats are the back-office counters. Window bounds are [From, To).
type Stats struct {
	ByStatus  map[Status]int `json:"porEstado"`
	Delivered int            `json:"entregadas"`
	Week      WeekStats      `json:"semana"`
}

type WeekStats struct {
	From      time.Time       `json:"desde"`
	To        time.Time       `json:"hasta"`
	Delivered int             `json:"entregadas"`
	Intakes   int             `json:"ingresos"`
	Invoiced  decimal.Decimal `json:"facturado"`
}

type Dashboard struct {
	Stats  *Stats        `json:"stats"`
	Recent []CaseSummary `json:"recientes"`
}

// WeekBounds returns the Sunday-to-Sunday week containing now, in now's location.
func WeekBounds(now time.Time) (time.Time, time.Time) {
	y, m, d := now.Date()
	from := time.Date(y, m, d-int(now.Weekday()), 0, 0, 0, 0, now.Location())
	return from, from.AddDate(0, 0, 7)
}

func (c *Controller) Dashboard(ctx context.Context) (*Dashboard, error) {
	from, to := WeekBounds(c.now())
	st, err := c.Store.Stats(ctx, from, to)
	if err != nil {
		return nil, err
	}
	for _, s := range []Status{StatusRecepcion, StatusPresupuesto, StatusReparacion, StatusEntrega, StatusFacturacion, StatusFinalizada} {
		if _, ok := st.ByStatus[s]; !ok {
			st.ByStatus[s] = 0
		}
	}

	recent, err := c.Store.ListCases(ctx, ListFilter{Limit: recentLimit})
	if err != nil {
		return nil, err
	}
	if recent == nil {
		recent = []CaseSummary{}
	}
	return &Dashboard{Stats: st, Recent: recent}, nil
}

func (h Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.Controller.Dashboard(r.Context())
	if err != nil {
		api.WriteDomainError(w, err, h.Expose)
		return
	}
	api.WriteJSON(w, http.StatusOK, d)
}
