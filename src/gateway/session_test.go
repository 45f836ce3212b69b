package gateway

import (
	"context"
	"errors"
	"testing"
)

type scriptedClient struct {
	busyIDs map[int]bool

	connectedAs  []int
	calls        []string
	positions    []PositionEvent
	trades       []OrderEvent
	portfolio    []PortfolioEvent
	accounts     []string
	cancelMDErrs map[string]error
}

func newScriptedClient() *scriptedClient {
	return &scriptedClient{
		busyIDs:  map[int]bool{},
		accounts: []string{"DU12345"},
	}
}

func (c *scriptedClient) record(call string) { c.calls = append(c.calls, call) }

func (c *scriptedClient) Connect(_ context.Context, clientID int) error {
	c.record("connect")
	if c.busyIDs[clientID] {
		return ErrIdentityInUse
	}
	c.connectedAs = append(c.connectedAs, clientID)
	return nil
}

func (c *scriptedClient) Disconnect() error {
	c.record("disconnect")
	return nil
}

func (c *scriptedClient) IsConnected() bool { return len(c.connectedAs) > 0 }

func (c *scriptedClient) RegisterHandler(Handler)   { c.record("register") }
func (c *scriptedClient) UnregisterHandler(Handler) { c.record("unregister") }

func (c *scriptedClient) SetMarketDataType(_ context.Context, mode int) error {
	if mode != MarketDataDelayed {
		return errors.New("unexpected market data mode")
	}
	c.record("set_mdt")
	return nil
}

func (c *scriptedClient) ManagedAccounts(context.Context) ([]string, error) {
	return c.accounts, nil
}

func (c *scriptedClient) Positions(context.Context) ([]PositionEvent, error) {
	c.record("positions")
	return c.positions, nil
}

func (c *scriptedClient) OpenTrades(context.Context) ([]OrderEvent, error) {
	c.record("open_trades")
	return c.trades, nil
}

func (c *scriptedClient) Portfolio(context.Context) ([]PortfolioEvent, error) {
	c.record("portfolio")
	return c.portfolio, nil
}

func (c *scriptedClient) SubscribePnL(context.Context, string) error {
	c.record("subscribe_pnl")
	return nil
}

func (c *scriptedClient) CancelPnL(context.Context, string) error {
	c.record("cancel_pnl")
	return nil
}

func (c *scriptedClient) SubscribeMarketData(_ context.Context, contract Contract) error {
	c.record("subscribe_md")
	return nil
}

func (c *scriptedClient) CancelMarketData(_ context.Context, contract Contract) error {
	c.record("cancel_md")
	if err := c.cancelMDErrs[contract.Symbol]; err != nil {
		return err
	}
	return nil
}

func (c *scriptedClient) ContractDetails(context.Context, Contract) ([]ContractDetails, error) {
	return nil, nil
}

func (c *scriptedClient) QualifyContract(_ context.Context, contract Contract) (Contract, error) {
	contract.ConID = 1001
	return contract, nil
}

func (c *scriptedClient) PlaceOrder(context.Context, Contract, Order) (OrderEvent, error) {
	return OrderEvent{}, nil
}

func (c *scriptedClient) CancelOrder(context.Context, int64) error { return nil }

type recordingHandler struct {
	positions []PositionEvent
	orders    []OrderEvent
	portfolio []PortfolioEvent
	ticks     []Tick
	pnls      []PnLUpdate
}

func (h *recordingHandler) OnOrderStatus(ev OrderEvent)   { h.orders = append(h.orders, ev) }
func (h *recordingHandler) OnPosition(ev PositionEvent)   { h.positions = append(h.positions, ev) }
func (h *recordingHandler) OnPortfolio(ev PortfolioEvent) { h.portfolio = append(h.portfolio, ev) }
func (h *recordingHandler) OnTick(t Tick)                 { h.ticks = append(h.ticks, t) }
func (h *recordingHandler) OnPnL(p PnLUpdate)             { h.pnls = append(h.pnls, p) }

func TestSessionConnectPreferredIdentity(t *testing.T) {
	client := newScriptedClient()
	session := NewSession(client, &recordingHandler{})

	if err := session.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	if len(client.connectedAs) != 1 || client.connectedAs[0] != PreferredClientID {
		t.Fatalf("expected preferred identity, connected as %v", client.connectedAs)
	}
}

func TestSessionConnectIdentityFallback(t *testing.T) {
	client := newScriptedClient()
	client.busyIDs[PreferredClientID] = true

	session := NewSession(client, &recordingHandler{})
	session.clientID = func() int { return 417 }

	if err := session.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	if len(client.connectedAs) != 1 || client.connectedAs[0] != 417 {
		t.Fatalf("expected fallback identity 417, connected as %v", client.connectedAs)
	}
}

func TestSessionConnectReplaysInitialState(t *testing.T) {
	client := newScriptedClient()
	client.positions = []PositionEvent{{Contract: Contract{ConID: 1, Symbol: "MES"}, Position: 2}}
	client.trades = []OrderEvent{{OrderID: 5, Status: "Submitted", Remaining: 2}}
	client.portfolio = []PortfolioEvent{{Contract: Contract{ConID: 1}, MarketPrice: 5000}}

	handler := &recordingHandler{}
	session := NewSession(client, handler)

	if err := session.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	if len(handler.positions) != 1 || len(handler.orders) != 1 || len(handler.portfolio) != 1 {
		t.Fatalf("initial sync not replayed: %+v", handler)
	}

	// Delayed data mode must be selected before any market data request.
	mdtIdx, subIdx := -1, -1
	for i, call := range client.calls {
		if call == "set_mdt" && mdtIdx < 0 {
			mdtIdx = i
		}
		if call == "subscribe_md" && subIdx < 0 {
			subIdx = i
		}
	}
	if mdtIdx < 0 || subIdx < 0 || mdtIdx > subIdx {
		t.Fatalf("market data type not set before subscribing: %v", client.calls)
	}
}

func TestSessionDisconnectBestEffort(t *testing.T) {
	client := newScriptedClient()
	client.cancelMDErrs = map[string]error{"SPY": errors.New("stream already gone")}

	session := NewSession(client, &recordingHandler{})
	if err := session.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	client.calls = nil
	session.Disconnect(context.Background())

	want := []string{"unregister", "cancel_pnl", "cancel_md", "disconnect"}
	if len(client.calls) != len(want) {
		t.Fatalf("teardown calls = %v, want %v", client.calls, want)
	}
	for i := range want {
		if client.calls[i] != want[i] {
			t.Fatalf("teardown order = %v, want %v", client.calls, want)
		}
	}

	// A second disconnect is a no-op.
	client.calls = nil
	session.Disconnect(context.Background())
	if len(client.calls) != 0 {
		t.Fatalf("repeated disconnect issued calls: %v", client.calls)
	}
}
