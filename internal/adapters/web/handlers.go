// Package web is the HTTP and websocket transport for the point-of-sale
// service.
package web

import (
	"net/http"

	"cenaculo-pos/internal/broadcast"
	"cenaculo-pos/internal/config"
	"cenaculo-pos/internal/core"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Services bundles the domain services the transport layer needs.
type Services struct {
	Catalog       core.CatalogService
	Orders        core.OrderService
	Notifications core.NotificationService
	Reporting     core.ReportingService
	Audit         core.Auditor
	Uploader      core.FileUploader
}

// Handler holds the domain services, the broadcast hub, and the chi router.
type Handler struct {
	svc      Services
	hub      *broadcast.Hub
	router   chi.Router
	upgrader websocket.Upgrader
	log      *zap.Logger
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc Services, hub *broadcast.Hub, cfg *config.Config, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Handler{
		svc:      svc,
		hub:      hub,
		upgrader: newUpgrader(cfg.Server.AllowedOrigins),
		log:      log,
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(log))
	r.Use(Recoverer(log))
	r.Use(CORS(cfg.Server.AllowedOrigins))

	// ── Health and live events ───────────────────────────────────────────────
	r.Get("/api/health", h.health)
	r.Get("/ws", h.serveWS)

	// Order creation accepts multipart payment proofs; its body limit is
	// managed inside the handler. Everything else gets 1 MB.
	r.Post("/api/orders", h.createOrder)

	r.Group(func(r chi.Router) {
		r.Use(RequestBodyLimit(1 << 20)) // 1 MB

		// ── Catalog ──────────────────────────────────────────────────────────
		r.Get("/api/stations", h.listStations)
		r.Get("/api/categories", h.listCategories)
		r.Get("/api/products", h.listProducts)
		r.Post("/api/products", h.createProduct)
		r.Get("/api/products/{id}", h.getProduct)
		r.Patch("/api/products/{id}", h.updateProduct)
		r.Delete("/api/products/{id}", h.deactivateProduct)
		r.Get("/api/stations/{id}/products", h.listStationProducts)

		// ── Orders ───────────────────────────────────────────────────────────
		r.Get("/api/orders/ready", h.listReadyOrders)
		r.Get("/api/orders/delivered", h.listDeliveredOrders)
		r.Get("/api/orders/{id}", h.getOrder)
		r.Patch("/api/orders/{id}/state", h.advanceOrderState)
		r.Post("/api/orders/{id}/deliver", h.deliverOrder)
		r.Post("/api/orders/{id}/draw-bottle", h.drawBottle)
		r.Get("/api/stations/{id}/orders", h.listStationOrders)

		// ── Notifications ────────────────────────────────────────────────────
		r.Get("/api/notifications", h.listNotifications)
		r.Post("/api/notifications/{id}/read", h.markNotificationRead)

		// ── Reporting ────────────────────────────────────────────────────────
		r.Get("/api/sales", h.listSales)
		r.Get("/api/sales/summary", h.salesSummary)
		r.Get("/api/sales/top-products", h.topProducts)
		r.Post("/api/day-close", h.closeDay)
		r.Get("/api/day-close/{date}", h.getDayClose)
		r.Get("/api/audit", h.listAudit)

		// ── Administration ───────────────────────────────────────────────────
		r.Post("/api/system/reset", h.systemReset)
	})

	h.router = r
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// actingRole identifies the caller from the X-Role header. There is no user
// authentication; the terminals are trusted and the role only scopes
// notifications and audit attribution.
func actingRole(r *http.Request) string {
	if role := r.Header.Get("X-Role"); role != "" {
		return role
	}
	return broadcast.RoleService
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}
