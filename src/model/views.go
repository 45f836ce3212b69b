package model

// PositionView is the externally visible shape of one cached position.
type PositionView struct {
	InstrumentID  int64   `json:"instrument_id"`
	Symbol        string  `json:"symbol"`
	SecType       string  `json:"sec_type"`
	Exchange      string  `json:"exchange"`
	LocalSymbol   string  `json:"local_symbol"`
	Quantity      float64 `json:"quantity"`
	AvgCost       float64 `json:"avg_cost"`
	MarketPrice   float64 `json:"market_price"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
}

// OrderView is the externally visible shape of one cached order.
type OrderView struct {
	OrderID      int64   `json:"order_id"`
	Symbol       string  `json:"symbol"`
	LocalSymbol  string  `json:"local_symbol"`
	SecType      string  `json:"sec_type"`
	Action       string  `json:"action"`
	Quantity     float64 `json:"quantity"`
	OrderType    string  `json:"order_type"`
	Status       string  `json:"status"`
	Filled       float64 `json:"filled"`
	Remaining    float64 `json:"remaining"`
	AvgFillPrice float64 `json:"avg_fill_price"`
	ErrorMessage string  `json:"error_message,omitempty"`
}

// PnL is the account-level profit and loss snapshot. TotalPnL is always
// recomputed as unrealized plus realized, never taken from the feed.
type PnL struct {
	DailyPnL      float64 `json:"daily_pnl"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
	RealizedPnL   float64 `json:"realized_pnl"`
	TotalPnL      float64 `json:"total_pnl"`
}

// ReferencePrice wraps the benchmark price for JSON responses.
type ReferencePrice struct {
	Price float64 `json:"price"`
}
