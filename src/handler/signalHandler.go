package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	logger "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"signalbridge/src/executor"
	"signalbridge/src/model"
	"signalbridge/src/scheduler"
)

type signalProcessor interface {
	ProcessSignal(ctx context.Context, sig model.Signal, settings model.Settings) executor.Result
}

// timeNow is swapped out in tests.
var timeNow = time.Now

// SignalHandler returns the webhook entry point. Signals are rejected before
// translation when the shared token does not match, when trading is disabled,
// or when the venue cutoff has passed.
func SignalHandler(exec signalProcessor, settings *model.SettingsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var sig model.Signal
		if err := json.NewDecoder(r.Body).Decode(&sig); err != nil {
			http.Error(w, "invalid signal payload", http.StatusBadRequest)
			return
		}

		current := settings.Current()

		if current.WebhookTokenHash != "" {
			if err := bcrypt.CompareHashAndPassword([]byte(current.WebhookTokenHash), []byte(sig.Token)); err != nil {
				logger.WithField("symbol", sig.Symbol).Warn("Signal rejected: bad token")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
		}

		if !current.TradingEnabled {
			writeJSON(w, http.StatusOK, executor.Result{
				Status:  executor.StatusError,
				Message: "Trading is disabled",
			})
			return
		}

		if !scheduler.TradingAllowed(timeNow()) {
			writeJSON(w, http.StatusOK, executor.Result{
				Status:  executor.StatusError,
				Message: "Trading hours ended",
			})
			return
		}

		logger.WithFields(map[string]interface{}{
			"symbol": sig.Symbol,
			"action": sig.Action,
		}).Info("Signal received")

		result := exec.ProcessSignal(r.Context(), sig, current)
		writeJSON(w, http.StatusOK, result)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.WithError(err).Error("failed to encode response")
	}
}
