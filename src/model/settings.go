package model

import "sync"

// Settings is the single runtime configuration record for the bridge. It is
// loaded from the database at startup and can be replaced wholesale through
// the settings endpoint.
type Settings struct {
	ID               uint     `gorm:"primaryKey" json:"-"`
	TradingEnabled   bool     `json:"trading_enabled"`
	Quantity         int      `json:"quantity"`
	DTE              int      `gorm:"column:dte" json:"dte"`
	OTMStrikes       int      `gorm:"column:otm_strikes" json:"otm_strikes"`
	CallStrike       *float64 `json:"call_strike,omitempty"`
	PutStrike        *float64 `json:"put_strike,omitempty"`
	WebhookTokenHash string   `json:"-"`
}

// DefaultSettings returns the configuration written to the database on first
// run.
func DefaultSettings() Settings {
	return Settings{
		TradingEnabled: true,
		Quantity:       1,
		DTE:            0,
		OTMStrikes:     2,
	}
}

// SettingsStore holds the current settings record and allows it to be
// replaced wholesale at runtime. Readers always observe a complete record.
type SettingsStore struct {
	mu      sync.RWMutex
	current Settings
}

func NewSettingsStore(s Settings) *SettingsStore {
	return &SettingsStore{current: s}
}

// Current returns a copy of the active settings.
func (s *SettingsStore) Current() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Replace swaps in a new settings record.
func (s *SettingsStore) Replace(next Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = next
}
