package purchaseorder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"repairshop/internal/apperr"
)

const SequenceKind = "orden_compra"

// FormatNumber renders OC-<year>-<NNNN>.
func FormatNumber(year, seq int) string {
	return fmt.Sprintf("OC-%d-%04d", year, seq)
}

var ErrNotFound = apperr.NotFound("PURCHASE_ORDER_NOT_FOUND", "Orden de compra no encontrada")

type Supplier struct {
	Company string `json:"empresa"`
	Phone   string `json:"telefono"`
	Address string `json:"direccion"`
	City    string `json:"ciudad"`
}

type Item struct {
	Position    int             `json:"posicion"`
	Quantity    decimal.Decimal `json:"cantidad"`
	Weight      string          `json:"peso"`
	Description string          `json:"descripcion"`
	UnitPrice   decimal.Decimal `json:"precioUnitario"`
	LineTotal   decimal.Decimal `json:"valorTotal"`
}

type Order struct {
	ID              int64               `json:"id"`
	Number          string              `json:"numeroOC"`
	Date            time.Time           `json:"fecha"`
	Address         string              `json:"direccion"`
	Supplier        Supplier            `json:"proveedor"`
	DeliveryAddress string              `json:"entregaDireccion"`
	TaxRate         decimal.NullDecimal `json:"tasaImpuesto"`
	Shipping        decimal.Decimal     `json:"envio"`
	Other           decimal.Decimal     `json:"otro"`
	Subtotal        decimal.Decimal     `json:"subtotal"`
	Tax             decimal.Decimal     `json:"impuesto"`
	Total           decimal.Decimal     `json:"total"`
	CreatedBy       string              `json:"creadoPor"`
	CreatedAt       time.Time           `json:"createdAt"`
	Items           []Item              `json:"items,omitempty"`
}

type Store interface {
	// Create allocates the order number and stores o with its items atomically.
	// It fills ID, Number and CreatedAt.
	Create(ctx context.Context, o *Order) error
	List(ctx context.Context, limit int) ([]Order, error)
	Get(ctx context.Context, id int64) (*Order, error)
}

type CreateInput struct {
	Date            time.Time
	Address         string
	Supplier        Supplier
	DeliveryAddress string
	Items           []ItemInput
	Charges         Charges
	CreatedBy       string
}

type Service struct {
	Store Store
	Now   func() time.Time
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*Order, error) {
	totals, err := Calculate(in.Items, in.Charges)
	if err != nil {
		return nil, err
	}

	date := in.Date
	if date.IsZero() {
		date = time.Now()
		if s.Now != nil {
			date = s.Now()
		}
	}

	o := &Order{
		Date:            date,
		Address:         strings.TrimSpace(in.Address),
		Supplier:        in.Supplier,
		DeliveryAddress: strings.TrimSpace(in.DeliveryAddress),
		TaxRate:         in.Charges.TaxRate,
		Shipping:        in.Charges.Shipping.Round(Scale),
		Other:           in.Charges.Other.Round(Scale),
		Subtotal:        totals.Subtotal,
		Tax:             totals.Tax,
		Total:           totals.Total,
		CreatedBy:       in.CreatedBy,
	}
	for i, it := range in.Items {
		o.Items = append(o.Items, Item{
			Position:    i + 1,
			Quantity:    it.Quantity,
			Weight:      strings.TrimSpace(it.Weight),
			Description: strings.TrimSpace(it.Description),
			UnitPrice:   it.UnitPrice,
			LineTotal:   totals.Lines[i],
		})
	}

	if err := s.Store.Create(ctx, o); err != nil {
		return nil, err
	}
	log.Info().Int64("order_id", o.ID).Str("number", o.Number).Str("total", o.Total.StringFixed(Scale)).Msg("purchase order created")
	return o, nil
}
