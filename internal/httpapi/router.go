package httpapi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"repairshop/internal/api"
	"repairshop/internal/audit"
	"repairshop/internal/auth"
	"repairshop/internal/notify"
	"repairshop/internal/payment"
	"repairshop/internal/personnel"
	"repairshop/internal/portal"
	"repairshop/internal/purchaseorder"
	"repairshop/internal/repair"
	"repairshop/pkg/config"
	"repairshop/pkg/mailer"
	"repairshop/pkg/money"
	"repairshop/pkg/whatsapp"
)

type Dependencies struct {
	Cfg config.Config
	DB  *pgxpool.Pool
}

func NewRouter(deps Dependencies) (http.Handler, error) {
	cfg := deps.Cfg
	expose := !cfg.IsProd()

	mail := mailer.New(cfg.SMTP)
	if !mail.Configured() {
		log.Warn().Msg("smtp not configured: notifications and reset emails will fail")
	}
	formatter := money.NewFormatter(cfg.Locale)

	cases := repair.NewPostgresStore(deps.DB)
	dispatcher := &notify.Dispatcher{
		Cases:        cases,
		Mailer:       mail,
		BaseURL:      cfg.PublicAppURL,
		BusinessName: cfg.BusinessName,
		Money:        formatter,
	}
	if wa := whatsapp.New(cfg.WhatsApp); wa.Configured() {
		dispatcher.Messenger = wa
	}

	gateway, err := payment.NewGateway(cfg.Payments)
	if err != nil {
		return nil, fmt.Errorf("payment gateway: %w", err)
	}
	controller := repair.NewController(cases, dispatcher, gateway)

	staffStore := personnel.NewRepository(deps.DB)
	auditLog := audit.NewRepository(deps.DB)
	staffService := &personnel.Service{
		Store:        staffStore,
		Mailer:       mail,
		BaseURL:      cfg.PublicAppURL,
		BusinessName: cfg.BusinessName,
		ResetTTL:     cfg.Auth.ResetTTL,
		Audit:        auditLog,
	}
	signer := auth.Signer{Secret: cfg.Auth.JWTSecret, Issuer: cfg.Auth.Issuer, TTL: cfg.Auth.TokenTTL}
	if signer.Secret == "" {
		log.Warn().Msg("AUTH_JWT_SECRET is empty: staff login is disabled")
	}
	resolve := auth.Resolver(signer, staffStore, nil)

	authHandlers := auth.Handlers{Staff: staffService, Signer: signer, Expose: expose}
	repairHandlers := repair.Handlers{Controller: controller, Expose: expose}
	notifyHandler := notify.Handler{Dispatcher: dispatcher, Expose: expose}
	portalHandlers := portal.Handlers{Controller: controller, Money: formatter, Expose: expose}
	staffHandlers := personnel.Handlers{Service: staffService, Expose: expose}
	orderHandlers := purchaseorder.Handlers{
		Service: &purchaseorder.Service{Store: purchaseorder.NewRepository(deps.DB)},
		Expose:  expose,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(api.RequestLogger)
	// The browser front end lives on another origin; preflights must be
	// answered before routing.
	r.Use(api.CORSMiddleware(api.CORSOptions{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAgeSeconds:  600,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Public client pages. The entry number is the only credential.
	r.Route("/client-repair", func(r chi.Router) {
		r.Get("/", portalHandlers.View)
		r.Post("/pay", portalHandlers.Pay)
		r.Post("/reject", portalHandlers.Reject)
	})

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", authHandlers.Login)
		r.Post("/password-reset", authHandlers.ResetPassword)
		r.With(api.StaffAuth(resolve)).Get("/me", authHandlers.Me)
	})

	// Back office.
	r.Group(func(r chi.Router) {
		r.Use(api.StaffAuth(resolve))

		r.Route("/repairs", func(r chi.Router) {
			r.Get("/", repairHandlers.List)
			r.Post("/", repairHandlers.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", repairHandlers.Get)
				r.Delete("/", repairHandlers.Delete)
				r.Post("/confirm-intake", repairHandlers.ConfirmIntake)
				r.Put("/budget", repairHandlers.SaveBudget)
				r.Post("/payments", repairHandlers.RecordPayment)
				r.Post("/start-repair", repairHandlers.StartRepair)
				r.Post("/reject", repairHandlers.RejectQuote)
				r.Put("/work", repairHandlers.UpdateWork)
				r.Post("/complete-repair", repairHandlers.CompleteRepair)
				r.Put("/delivery", repairHandlers.SaveDelivery)
				r.Post("/finalize", repairHandlers.Finalize)
				r.Post("/invoice", repairHandlers.RecordInvoice)
				r.Get("/events", repairHandlers.Events)
			})
		})

		r.Get("/dashboard", repairHandlers.Dashboard)

		r.Route("/clients", func(r chi.Router) {
			r.Get("/", repairHandlers.ListClients)
			r.Post("/", repairHandlers.CreateClient)
			r.Get("/{id}", repairHandlers.GetClient)
			r.Put("/{id}", repairHandlers.UpdateClient)
		})

		r.Post("/notifications", notifyHandler.Send)

		r.Route("/purchase-orders", func(r chi.Router) {
			r.Get("/", orderHandlers.List)
			r.Post("/", orderHandlers.Create)
			r.Get("/{id}", orderHandlers.Get)
		})

		r.Route("/admin/users", func(r chi.Router) {
			r.Use(api.RequireRole(string(personnel.RoleEncargado)))
			r.Get("/", staffHandlers.List)
			r.Post("/", staffHandlers.Save)
			r.Patch("/", staffHandlers.SendReset)
			r.Delete("/", staffHandlers.Delete)
		})
		r.With(api.RequireRole(string(personnel.RoleEncargado))).Get("/admin/audit", auditLog.ListHandler)
	})

	return r, nil
}
