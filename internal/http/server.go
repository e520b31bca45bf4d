package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RouterConfig struct {
	Carts              CartService
	Checkout           CheckoutService
	Catalog            ProductCatalog
	Confirmer          Confirmer // optional, mounts the simulated confirm route
	Logger             *slog.Logger
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
	RateLimitRPS       float64
	RateLimitBurst     int
	SecureCookie       bool
}

// writeGrace leaves room for the timeout response after a handler runs
// out of its request budget.
const writeGrace = 5 * time.Second

// NewServer sizes WriteTimeout from the request timeout so a handler that is
// still inside its budget can always write its response.
func NewServer(addr string, handler http.Handler, requestTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: requestTimeout + writeGrace,
		IdleTimeout:  60 * time.Second,
	}
}

func NewRouter(cfg RouterConfig) http.Handler {
	cartHandler := NewCartHandler(cfg.Carts, cfg.RequestTimeout, cfg.SecureCookie)
	checkoutHandler := NewCheckoutHandler(cfg.Checkout, cfg.RequestTimeout)
	productHandler := NewProductHandler(cfg.Catalog, cfg.RequestTimeout)
	limiter := NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(log))
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.RequestSize(cfg.MaxRequestBodySize))
	r.Use(middleware.Compress(5))
	r.Use(SessionMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{product_id}", cartHandler.UpdateItem)
			r.Delete("/items/{product_id}", cartHandler.RemoveItem)
		})
		r.Route("/checkout", func(r chi.Router) {
			r.Use(limiter.Limit)
			r.Post("/intent", checkoutHandler.CreateIntent)
			r.Get("/orders/{authorization_id}", checkoutHandler.GetOrder)
			if cfg.Confirmer != nil {
				r.Post("/simulated/{authorization_id}/confirm", confirmHandler(cfg.Confirmer))
			}
		})
		r.Route("/products", func(r chi.Router) {
			r.Get("/", productHandler.ListProducts)
			r.Get("/{id}", productHandler.GetProduct)
		})
	})

	return r
}
