package gateway

import "context"

// Client is the command surface of the brokerage gateway session. The
// production implementation is WebClient; tests substitute fakes.
type Client interface {
	// Connect opens the session under the given client identity and starts
	// the event stream. Returns ErrIdentityInUse when the identity is taken.
	Connect(ctx context.Context, clientID int) error

	// Disconnect closes the session and stops the event stream.
	Disconnect() error

	IsConnected() bool

	// RegisterHandler adds a callback set for streamed events.
	RegisterHandler(Handler)

	// UnregisterHandler removes a previously registered callback set.
	UnregisterHandler(Handler)

	// SetMarketDataType selects the market data mode. Must be called before
	// any market data request.
	SetMarketDataType(ctx context.Context, mode int) error

	// ManagedAccounts lists the account ids this session controls.
	ManagedAccounts(ctx context.Context) ([]string, error)

	// Positions returns the gateway's current view of all positions.
	Positions(ctx context.Context) ([]PositionEvent, error)

	// OpenTrades returns the gateway's current view of all working orders.
	OpenTrades(ctx context.Context) ([]OrderEvent, error)

	// Portfolio returns valuation records for all held instruments.
	Portfolio(ctx context.Context) ([]PortfolioEvent, error)

	SubscribePnL(ctx context.Context, account string) error
	CancelPnL(ctx context.Context, account string) error

	SubscribeMarketData(ctx context.Context, c Contract) error
	CancelMarketData(ctx context.Context, c Contract) error

	// ContractDetails resolves a partially specified contract to concrete
	// matches, nearest expiry first.
	ContractDetails(ctx context.Context, c Contract) ([]ContractDetails, error)

	// QualifyContract fills in the gateway-assigned fields (con id, local
	// symbol) for a contract.
	QualifyContract(ctx context.Context, c Contract) (Contract, error)

	// PlaceOrder submits an order and returns the gateway's initial order
	// state.
	PlaceOrder(ctx context.Context, c Contract, o Order) (OrderEvent, error)

	// CancelOrder requests cancellation of a working order.
	CancelOrder(ctx context.Context, orderID int64) error
}

// Market data modes.
const (
	MarketDataLive    = 1
	MarketDataDelayed = 4
)
