package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter constructs a chi router with all API endpoints registered.
func NewRouter(svc Custody, decimals int32) http.Handler {
	h := NewHandler(svc, decimals)
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/vaults", func(r chi.Router) {
		r.Post("/", h.OpenVaultHandler)

		r.Route("/{vaultId}", func(r chi.Router) {
			r.Get("/", h.GetVaultHandler)
			r.Get("/events", h.ListEventsHandler)
			r.Post("/deposit", h.DepositHandler)
			r.Post("/withdraw", h.WithdrawHandler)
			r.Post("/lock", h.LockHandler(true))
			r.Post("/unlock", h.LockHandler(false))
		})
	})

	r.Get("/accounts/{accountId}", h.GetAccountHandler)

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		slog.DebugContext(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
