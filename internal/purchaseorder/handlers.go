package purchaseorder

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"repairshop/internal/api"
)

type Handlers struct {
	Service *Service
	Expose  bool
}

type itemRequest struct {
	Cantidad       decimal.Decimal `json:"cantidad"`
	Peso           string          `json:"peso"`
	Descripcion    string          `json:"descripcion"`
	PrecioUnitario decimal.Decimal `json:"precioUnitario"`
}

type createRequest struct {
	Fecha            string              `json:"fecha"`
	Direccion        string              `json:"direccion"`
	Proveedor        Supplier            `json:"proveedor"`
	EntregaDireccion string              `json:"entregaDireccion"`
	Items            []itemRequest       `json:"items"`
	TasaImpuesto     decimal.NullDecimal `json:"tasaImpuesto"`
	Envio            decimal.Decimal     `json:"envio"`
	Otro             decimal.Decimal     `json:"otro"`
}

func (h Handlers) Create(w http.ResponseWriter, r *http.Request) {
	var body createRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid json")
		return
	}

	var date time.Time
	if s := strings.TrimSpace(body.Fecha); s != "" {
		d, err := time.Parse("2006-01-02", s)
		if err != nil {
			api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "fecha inválida")
			return
		}
		date = d
	}

	in := CreateInput{
		Date:            date,
		Address:         body.Direccion,
		Supplier:        body.Proveedor,
		DeliveryAddress: body.EntregaDireccion,
		Charges:         Charges{TaxRate: body.TasaImpuesto, Shipping: body.Envio, Other: body.Otro},
	}
	if s := api.SessionFromContext(r.Context()); s != nil {
		in.CreatedBy = s.Actor()
	}
	for _, it := range body.Items {
		in.Items = append(in.Items, ItemInput{
			Quantity:    it.Cantidad,
			Weight:      it.Peso,
			Description: it.Descripcion,
			UnitPrice:   it.PrecioUnitario,
		})
	}

	o, err := h.Service.Create(r.Context(), in)
	if err != nil {
		api.WriteDomainError(w, err, h.Expose)
		return
	}
	api.WriteJSON(w, http.StatusCreated, o)
}

func (h Handlers) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "limit inválido")
			return
		}
		limit = n
	}
	items, err := h.Service.Store.List(r.Context(), limit)
	if err != nil {
		api.WriteDomainError(w, err, h.Expose)
		return
	}
	if items == nil {
		items = []Order{}
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h Handlers) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "id inválido")
		return
	}
	o, err := h.Service.Store.Get(r.Context(), id)
	if err != nil {
		api.WriteDomainError(w, err, h.Expose)
		return
	}
	api.WriteJSON(w, http.StatusOK, o)
}
