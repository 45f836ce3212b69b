package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"signalbridge/src/model"
)

type fakeSettingsRepo struct {
	saved   *model.Settings
	saveErr error
}

func (f *fakeSettingsRepo) Save(_ context.Context, settings *model.Settings) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	copied := *settings
	f.saved = &copied
	return nil
}

func TestGetSettingsHandlerHidesTokenHash(t *testing.T) {
	settings := model.DefaultSettings()
	settings.WebhookTokenHash = "$2a$10$secret"
	store := model.NewSettingsStore(settings)

	req := httptest.NewRequest(http.MethodGet, "/api/settings", nil)
	rec := httptest.NewRecorder()
	GetSettingsHandler(store)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "secret") {
		t.Fatal("token hash leaked in settings response")
	}

	var got map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode settings: %v", err)
	}
	if got["quantity"].(float64) != 1 {
		t.Fatalf("unexpected settings payload: %+v", got)
	}
}

func TestUpdateSettingsHandlerPersistsAndSwaps(t *testing.T) {
	store := model.NewSettingsStore(model.DefaultSettings())
	repo := &fakeSettingsRepo{}

	body := `{"trading_enabled":false,"quantity":4,"dte":1,"otm_strikes":3,"call_strike":601.0}`
	req := httptest.NewRequest(http.MethodPost, "/api/settings", strings.NewReader(body))
	rec := httptest.NewRecorder()
	UpdateSettingsHandler(store, repo)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	if repo.saved == nil {
		t.Fatal("settings not persisted")
	}

	current := store.Current()
	if current.Quantity != 4 || current.DTE != 1 || current.TradingEnabled {
		t.Fatalf("live store not updated: %+v", current)
	}
	if current.CallStrike == nil || *current.CallStrike != 601 {
		t.Fatalf("call strike not applied: %+v", current)
	}
	if current.PutStrike != nil {
		t.Fatal("omitted put strike must clear")
	}
}

func TestUpdateSettingsHandlerHashesWebhookToken(t *testing.T) {
	store := model.NewSettingsStore(model.DefaultSettings())
	repo := &fakeSettingsRepo{}

	body := `{"trading_enabled":true,"quantity":1,"dte":0,"otm_strikes":2,"webhook_token":"hunter2"}`
	req := httptest.NewRequest(http.MethodPost, "/api/settings", strings.NewReader(body))
	rec := httptest.NewRecorder()
	UpdateSettingsHandler(store, repo)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}

	hash := store.Current().WebhookTokenHash
	if hash == "" || hash == "hunter2" {
		t.Fatalf("token not hashed: %q", hash)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("hunter2")); err != nil {
		t.Fatalf("stored hash does not verify: %v", err)
	}
}

func TestUpdateSettingsHandlerRejectsBadQuantity(t *testing.T) {
	store := model.NewSettingsStore(model.DefaultSettings())

	body := `{"trading_enabled":true,"quantity":0,"dte":0,"otm_strikes":2}`
	req := httptest.NewRequest(http.MethodPost, "/api/settings", strings.NewReader(body))
	rec := httptest.NewRecorder()
	UpdateSettingsHandler(store, &fakeSettingsRepo{})(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if store.Current().Quantity != 1 {
		t.Fatal("rejected update must not touch the live store")
	}
}
