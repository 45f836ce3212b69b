package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"

	"signalbridge/src/executor"
	"signalbridge/src/handler"
	"signalbridge/src/model"
	"signalbridge/src/repository"
	"signalbridge/src/state"
)

// Deps bundles everything the HTTP surface needs.
type Deps struct {
	Executor     *executor.Executor
	Cache        *state.Cache
	Settings     *model.SettingsStore
	SettingsRepo *repository.SettingsRepository
	AuditRepo    *repository.OrderAuditRepository
}

// NewRouter builds the chi router with all routes attached. Separated from
// StartServer so tests can exercise the full routing table.
func NewRouter(deps Deps, config *Config) *chi.Mux {
	r := chi.NewRouter()

	r.Use(corsMiddleware(config.AllowedOrigin))

	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.WithError(err).Error("/healthcheck write error")
		}
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/signal", handler.SignalHandler(deps.Executor, deps.Settings))

		r.Get("/positions", handler.PositionsHandler(deps.Cache))
		r.Get("/orders", handler.OrdersHandler(deps.Cache))
		r.Get("/pnl", handler.PnLHandler(deps.Cache))
		r.Get("/spy-price", handler.ReferencePriceHandler(deps.Cache))
		r.Get("/strikes", handler.StrikesHandler(deps.Cache, deps.Settings))

		r.Post("/close-position", handler.ClosePositionHandler(deps.Executor))
		r.Post("/cancel-order", handler.CancelOrderHandler(deps.Executor))

		r.Get("/settings", handler.GetSettingsHandler(deps.Settings))
		r.Post("/settings", handler.UpdateSettingsHandler(deps.Settings, deps.SettingsRepo))

		r.Get("/audits", handler.AuditsHandler(deps.AuditRepo))
	})

	r.Get("/ws", handler.StreamHandler(deps.Cache, originChecker(config.AllowedOrigin)))

	return r
}

// StartServer runs the HTTP server and blocks until SIGINT or SIGTERM, then
// shuts down gracefully.
func StartServer(deps Deps) {
	config := GetConfig()
	r := NewRouter(deps, config)

	addr := ":" + config.Port
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		logger.Infof("Listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server crashed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Shutdown error")
	}
}

func corsMiddleware(allowedOrigin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && origin == allowedOrigin {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func originChecker(allowedOrigin string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		// Non-browser clients send no Origin header.
		return origin == "" || origin == allowedOrigin
	}
}
