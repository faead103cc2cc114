package handler

import (
	"io"
	"net/http"

	"github.com/andybalholm/brotli"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"fsanano/marketplace/internal/metrics"
)

type Handler struct {
	router  *chi.Mux
	cart    *CartHandler
	metrics *metrics.ServerMetrics
}

func NewHandler(cart *CartHandler, m *metrics.ServerMetrics) *Handler {
	router := chi.NewRouter()

	compressor := middleware.NewCompressor(5, "application/json")
	compressor.SetEncoder("br", func(w io.Writer, level int) io.Writer {
		return brotli.NewWriterLevel(w, level)
	})

	// Middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(m.Middleware)
	router.Use(compressor.Handler)

	h := &Handler{
		router:  router,
		cart:    cart,
		metrics: m,
	}

	h.registerRoutes()
	return h
}

func (h *Handler) registerRoutes() {
	h.router.Handle("/metrics", h.metrics.Handler())

	h.router.Route("/v1", func(r chi.Router) {
		r.Get("/health", h.HealthCheck)

		r.Route("/customers", func(r chi.Router) {
			r.Use(RequireUserID)

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", h.cart.AddOrUpdateItem)
				r.Put("/", h.cart.AddOrUpdateItem)
				r.Get("/", h.cart.GetCart)
				r.Delete("/", h.cart.DeleteCart)
				r.Delete("/{itemID}", h.cart.RemoveItem)
				r.Post("/checkout/balance", h.cart.Checkout)
			})
			r.Get("/history", h.cart.PurchaseHistory)
		})
	})
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
