package handler

import (
	"context"
	"encoding/json"
	"net/http"

	logger "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"signalbridge/src/model"
)

type settingsSaver interface {
	Save(ctx context.Context, settings *model.Settings) error
}

type settingsUpdateRequest struct {
	TradingEnabled bool     `json:"trading_enabled"`
	Quantity       int      `json:"quantity"`
	DTE            int      `json:"dte"`
	OTMStrikes     int      `json:"otm_strikes"`
	CallStrike     *float64 `json:"call_strike"`
	PutStrike      *float64 `json:"put_strike"`

	// WebhookToken, when present, is hashed and replaces the stored token.
	// An empty string clears it.
	WebhookToken *string `json:"webhook_token,omitempty"`
}

// GetSettingsHandler returns the active settings.
func GetSettingsHandler(settings *model.SettingsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, settings.Current())
	}
}

// UpdateSettingsHandler replaces the settings record, persists it, and swaps
// it into the live store so subsequent signals see the new values.
func UpdateSettingsHandler(settings *model.SettingsStore, repo settingsSaver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req settingsUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid settings payload", http.StatusBadRequest)
			return
		}

		if req.Quantity <= 0 {
			http.Error(w, "quantity must be positive", http.StatusBadRequest)
			return
		}
		if req.DTE < 0 || req.OTMStrikes < 0 {
			http.Error(w, "dte and otm_strikes must not be negative", http.StatusBadRequest)
			return
		}

		next := settings.Current()
		next.TradingEnabled = req.TradingEnabled
		next.Quantity = req.Quantity
		next.DTE = req.DTE
		next.OTMStrikes = req.OTMStrikes
		next.CallStrike = req.CallStrike
		next.PutStrike = req.PutStrike

		if req.WebhookToken != nil {
			if *req.WebhookToken == "" {
				next.WebhookTokenHash = ""
			} else {
				hash, err := bcrypt.GenerateFromPassword([]byte(*req.WebhookToken), bcrypt.DefaultCost)
				if err != nil {
					logger.WithError(err).Error("failed to hash webhook token")
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
					return
				}
				next.WebhookTokenHash = string(hash)
			}
		}

		if err := repo.Save(r.Context(), &next); err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		settings.Replace(next)
		logger.WithFields(map[string]interface{}{
			"trading_enabled": next.TradingEnabled,
			"quantity":        next.Quantity,
			"dte":             next.DTE,
		}).Info("Settings updated")

		writeJSON(w, http.StatusOK, next)
	}
}
