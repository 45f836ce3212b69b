// Package gateway speaks the brokerage gateway's session protocol: REST
// commands plus a streaming event feed. The rest of the system only depends
// on the Client interface and the event types defined here.
package gateway

// Contract identifies a tradable instrument. ConID is the gateway-assigned
// instrument id and is the key used everywhere else in the system.
type Contract struct {
	ConID         int64   `json:"con_id,omitempty"`
	Symbol        string  `json:"symbol"`
	SecType       string  `json:"sec_type"`
	Exchange      string  `json:"exchange,omitempty"`
	Currency      string  `json:"currency,omitempty"`
	LocalSymbol   string  `json:"local_symbol,omitempty"`
	Right         string  `json:"right,omitempty"`
	Strike        float64 `json:"strike,omitempty"`
	LastTradeDate string  `json:"last_trade_date,omitempty"`
	Multiplier    string  `json:"multiplier,omitempty"`
}

// Security types as reported by the gateway.
const (
	SecTypeStock  = "STK"
	SecTypeOption = "OPT"
	SecTypeFuture = "FUT"
)

// Option rights.
const (
	RightCall = "C"
	RightPut  = "P"
)

// Order sides.
const (
	ActionBuy  = "BUY"
	ActionSell = "SELL"
)

// OrderTypeMarket is the only order kind the bridge submits.
const OrderTypeMarket = "MKT"

// Order is an order submission request.
type Order struct {
	Action         string  `json:"action"`
	TotalQuantity  float64 `json:"total_quantity"`
	OrderType      string  `json:"order_type"`
	ClientOrderRef string  `json:"client_order_ref,omitempty"`
}

// PositionEvent reports the signed quantity held for one instrument. A zero
// quantity means the position no longer exists.
type PositionEvent struct {
	Account  string   `json:"account"`
	Contract Contract `json:"contract"`
	Position float64  `json:"position"`
	AvgCost  float64  `json:"avg_cost"`
}

// OrderEvent reports the current state of one order. The gateway emits it on
// every status transition and partial fill.
type OrderEvent struct {
	OrderID      int64    `json:"order_id"`
	Contract     Contract `json:"contract"`
	Action       string   `json:"action"`
	Quantity     float64  `json:"quantity"`
	OrderType    string   `json:"order_type"`
	Status       string   `json:"status"`
	Filled       float64  `json:"filled"`
	Remaining    float64  `json:"remaining"`
	AvgFillPrice float64  `json:"avg_fill_price"`
	ErrorMessage string   `json:"error_message,omitempty"`
}

// Order statuses with no remaining work.
const (
	StatusFilled    = "Filled"
	StatusCancelled = "Cancelled"
	StatusInactive  = "Inactive"
)

// PortfolioEvent enriches a known position with valuation data. It never
// creates a position on its own.
type PortfolioEvent struct {
	Contract      Contract `json:"contract"`
	MarketPrice   float64  `json:"market_price"`
	UnrealizedPnL float64  `json:"unrealized_pnl"`
}

// Tick is a market data update for a subscribed instrument. Any of the price
// fields may be absent (zero or negative) on delayed feeds.
type Tick struct {
	Contract    Contract `json:"contract"`
	MarketPrice float64  `json:"market_price"`
	Last        float64  `json:"last"`
	Close       float64  `json:"close"`
}

// PnLUpdate is the account-level profit and loss push. Missing components
// arrive as zero.
type PnLUpdate struct {
	Account       string  `json:"account"`
	DailyPnL      float64 `json:"daily_pnl"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
	RealizedPnL   float64 `json:"realized_pnl"`
}

// ContractDetails is one match from a contract details lookup. The gateway
// returns matches nearest expiry first.
type ContractDetails struct {
	Contract Contract `json:"contract"`
}

// Handler receives gateway events. Implementations must not block: all
// handlers run on the stream read loop.
type Handler interface {
	OnOrderStatus(OrderEvent)
	OnPosition(PositionEvent)
	OnPortfolio(PortfolioEvent)
	OnTick(Tick)
	OnPnL(PnLUpdate)
}
