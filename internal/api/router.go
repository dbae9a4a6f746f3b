package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"marketadmin/internal/accounts"
	"marketadmin/internal/activity"
	"marketadmin/internal/auth"
	"marketadmin/internal/blob"
	"marketadmin/internal/commission"
	"marketadmin/internal/config"
	"marketadmin/internal/invitations"
	"marketadmin/internal/models"
	"marketadmin/internal/orders"
	"marketadmin/internal/search"
	"marketadmin/internal/sectors"
	"marketadmin/internal/session"
	"marketadmin/internal/shifts"
)

// ApiDependencies содержит зависимости для обработчиков API.
type ApiDependencies struct {
	Config      *config.Config
	Log         *logrus.Logger
	Auth        *auth.Provider
	Sessions    *session.Manager
	Orders      *orders.Service
	Commission  *commission.Service
	Shifts      *shifts.Service
	Invitations *invitations.Service
	Accounts    *accounts.Service
	Search      *search.Service
	Sectors     *sectors.Service
	Activity    *activity.Log
	Blobs       *blob.Local
}

// Handler - обработчики API с их зависимостями.
type Handler struct {
	deps     ApiDependencies
	log      *logrus.Logger
	limiters *ipLimiters
}

func NewHandler(deps ApiDependencies) *Handler {
	return &Handler{
		deps:     deps,
		log:      deps.Log,
		limiters: newIPLimiters(deps.Config.RateLimitRPS, deps.Config.RateLimitBurst),
	}
}

// NewRouter собирает chi-роутер с глобальными middleware и всеми маршрутами.
func NewRouter(deps ApiDependencies) *chi.Mux {
	r := chi.NewRouter()
	// ГЛОБАЛЬНЫЕ MIDDLEWARES ДОЛЖНЫ ИДТИ ПЕРЕД SetupRoutes
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	SetupRoutes(r, NewHandler(deps))
	return r
}

// SetupRoutes настраивает все маршруты для API.
func SetupRoutes(r chi.Router, h *Handler) {
	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSONSuccess(w, "ok", nil)
	})

	// Публичные маршруты: вход, медиа и анкета по приглашению.
	r.Get("/api/media/*", h.ServeMedia)
	r.Get("/api/invitations/token/{token}", h.GetInvitationByToken)
	r.Group(func(r chi.Router) {
		r.Use(h.RateLimitMiddleware)
		r.Post("/api/auth/login", h.Login)
		r.Post("/api/invitations/token/{token}/register", h.RegisterInvitation)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.AuthMiddleware)

		r.Get("/api/me", h.GetProfile)
		r.Post("/api/media", h.UploadMedia)
		r.Get("/api/sectors", h.ListSectors)

		// --- Заказы: orders и shop_orders ---
		r.Route("/api/orders/{collection}", func(r chi.Router) {
			r.Get("/", h.GetOrders)
			r.Get("/stream", h.StreamOrders)
			r.Get("/{id}", h.GetOrderDetails)
			r.Post("/{id}/action", h.HandleOrderAction)
			r.Delete("/{id}", h.DeleteOrder)
		})

		// --- Комиссии ---
		r.Route("/api/commissions", func(r chi.Router) {
			r.Get("/report", h.GetCommissionReport)
			r.Get("/report/stream", h.StreamCommissionReport)
			r.Get("/report/xlsx", h.ExportCommissionReport)
			r.Get("/records", h.GetCommissionRecords)
			r.With(h.RoleMiddleware(models.RoleAdmin)).Post("/records/{id}/status", h.UpdateCollectionStatus)
			r.With(h.RoleMiddleware(models.RoleAdmin)).Post("/settle/{collection}/{orderId}", h.SettleOrder)
		})

		// --- Смены ---
		r.Route("/api/shifts/{businessId}", func(r chi.Router) {
			r.Get("/", h.GetShiftSummary)
			r.Get("/export/{format}", h.ExportShifts)
		})

		// --- Приглашения и пользователи: владелец бизнеса и выше ---
		r.Group(func(r chi.Router) {
			r.Use(h.RoleMiddleware(models.RoleBusinessOwner))
			r.Get("/api/invitations", h.ListInvitations)
			r.Post("/api/invitations", h.CreateInvitation)
			r.Post("/api/invitations/{id}/decision", h.DecideInvitation)
			r.With(h.RateLimitMiddleware).Post("/api/users", h.CreateUser)
		})

		// --- Администраторы платформы ---
		r.Group(func(r chi.Router) {
			r.Use(h.RoleMiddleware(models.RoleAdmin))
			r.With(h.RateLimitMiddleware).Get("/api/search", h.Search)
			r.Get("/api/activity", h.ListActivity)
			r.Post("/api/sectors", h.CreateSector)
			r.Post("/api/sectors/seed", h.SeedSectors)
			r.Put("/api/sectors/{id}", h.UpdateSector)
			r.Delete("/api/sectors/{id}", h.DeleteSector)
		})
	})
}
