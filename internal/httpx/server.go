package httpx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(log *slog.Logger) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, requestLogger(log), middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

// requestLogger logs one line per request with the final status code.
func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

// requireAPIKey guards admin routes. An empty key locks them entirely.
func requireAPIKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" || !constantTimeEqual(r.Header.Get("X-API-Key"), key) {
				writeJSON(w, http.StatusUnauthorized, envelope{Success: false, Message: "invalid or missing API key"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// API wires every handler onto one router.
type API struct {
	Payments    *PaymentsHandler
	Orders      *OrdersHandler
	Stock       *StockHandler
	AdminAPIKey string
	Log         *slog.Logger
}

func (a *API) Handler() http.Handler {
	r := NewRouter(a.Log)
	a.Payments.Register(r)
	a.Orders.Register(r)
	r.Route("/admin", func(r chi.Router) {
		r.Use(requireAPIKey(a.AdminAPIKey))
		a.Stock.Register(r)
		a.Orders.RegisterAdmin(r)
	})
	return r
}
