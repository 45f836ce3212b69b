package model

import "time"

// OrderAudit records every order submission made through the bridge, whether
// it came from a webhook signal, a manual close, or the end-of-day flatten.
type OrderAudit struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	OrderID        int64     `gorm:"index" json:"order_id"`
	ClientOrderRef string    `gorm:"size:64" json:"client_order_ref"`
	Symbol         string    `json:"symbol"`
	SecType        string    `json:"sec_type"`
	Action         string    `json:"action"`
	Quantity       float64   `json:"quantity"`
	OrderType      string    `json:"order_type"`
	Source         string    `gorm:"size:32;index" json:"source"`
	Message        string    `json:"message,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

const (
	AuditSourceSignal  = "signal"
	AuditSourceClose   = "close"
	AuditSourceFlatten = "flatten"
)
