package executor

import (
	"context"
	"errors"
	"testing"

	"signalbridge/src/gateway"
	"signalbridge/src/model"
	"signalbridge/src/state"
	"signalbridge/src/translator"
)

type fakeClient struct {
	positions []gateway.PositionEvent
	trades    []gateway.OrderEvent

	placed       []gateway.Order
	placedFor    []gateway.Contract
	placeErr     error
	cancelled    []int64
	detailsLeft  []gateway.ContractDetails
	nextOrderID  int64
	resyncCalled int
}

func (f *fakeClient) Connect(context.Context, int) error           { return nil }
func (f *fakeClient) Disconnect() error                            { return nil }
func (f *fakeClient) IsConnected() bool                            { return true }
func (f *fakeClient) RegisterHandler(gateway.Handler)              {}
func (f *fakeClient) UnregisterHandler(gateway.Handler)            {}
func (f *fakeClient) SetMarketDataType(context.Context, int) error { return nil }

func (f *fakeClient) ManagedAccounts(context.Context) ([]string, error) { return nil, nil }

func (f *fakeClient) Positions(context.Context) ([]gateway.PositionEvent, error) {
	f.resyncCalled++
	return f.positions, nil
}

func (f *fakeClient) OpenTrades(context.Context) ([]gateway.OrderEvent, error) {
	return f.trades, nil
}

func (f *fakeClient) Portfolio(context.Context) ([]gateway.PortfolioEvent, error) {
	return nil, nil
}

func (f *fakeClient) SubscribePnL(context.Context, string) error { return nil }
func (f *fakeClient) CancelPnL(context.Context, string) error    { return nil }

func (f *fakeClient) SubscribeMarketData(context.Context, gateway.Contract) error { return nil }
func (f *fakeClient) CancelMarketData(context.Context, gateway.Contract) error    { return nil }

func (f *fakeClient) ContractDetails(context.Context, gateway.Contract) ([]gateway.ContractDetails, error) {
	return f.detailsLeft, nil
}

func (f *fakeClient) QualifyContract(_ context.Context, c gateway.Contract) (gateway.Contract, error) {
	return c, nil
}

func (f *fakeClient) PlaceOrder(_ context.Context, c gateway.Contract, o gateway.Order) (gateway.OrderEvent, error) {
	if f.placeErr != nil {
		return gateway.OrderEvent{}, f.placeErr
	}
	f.placed = append(f.placed, o)
	f.placedFor = append(f.placedFor, c)
	f.nextOrderID++
	return gateway.OrderEvent{OrderID: f.nextOrderID, Contract: c, Action: o.Action}, nil
}

func (f *fakeClient) CancelOrder(_ context.Context, orderID int64) error {
	f.cancelled = append(f.cancelled, orderID)
	return nil
}

type recordingAudits struct {
	records []model.OrderAudit
}

func (r *recordingAudits) Create(_ context.Context, audit *model.OrderAudit) error {
	r.records = append(r.records, *audit)
	return nil
}

func newTestExecutor(client *fakeClient, audits AuditWriter) (*Executor, *state.Cache) {
	cache := state.NewCache()
	tr := translator.New(client)
	return New(client, cache, tr, audits).WithSettleDelay(0), cache
}

func mesPosition(conID int64, qty float64) gateway.PositionEvent {
	return gateway.PositionEvent{
		Contract: gateway.Contract{ConID: conID, Symbol: "MES", SecType: gateway.SecTypeFuture},
		Position: qty,
	}
}

func TestProcessSignalPlacesOrderAndResyncs(t *testing.T) {
	client := &fakeClient{
		detailsLeft: []gateway.ContractDetails{
			{Contract: gateway.Contract{ConID: 77, Symbol: "MES", SecType: gateway.SecTypeFuture}},
		},
	}
	audits := &recordingAudits{}
	exec, _ := newTestExecutor(client, audits)

	result := exec.ProcessSignal(context.Background(), model.Signal{Symbol: "MES1!", Action: "Buy"}, model.DefaultSettings())

	if result.Status != StatusSuccess {
		t.Fatalf("expected success, got %+v", result)
	}
	if len(client.placed) != 1 {
		t.Fatalf("expected one order placed, got %d", len(client.placed))
	}
	order := client.placed[0]
	if order.Action != gateway.ActionBuy || order.OrderType != gateway.OrderTypeMarket {
		t.Fatalf("unexpected order: %+v", order)
	}
	if order.ClientOrderRef == "" {
		t.Fatal("order must carry a client order ref")
	}
	if client.resyncCalled == 0 {
		t.Fatal("cache resync did not run after submission")
	}
	if len(audits.records) != 1 || audits.records[0].Source != model.AuditSourceSignal {
		t.Fatalf("expected one signal audit, got %+v", audits.records)
	}
}

func TestProcessSignalResolutionFailure(t *testing.T) {
	exec, _ := newTestExecutor(&fakeClient{}, nil)

	result := exec.ProcessSignal(context.Background(), model.Signal{Symbol: "AAPL", Action: "Buy"}, model.DefaultSettings())

	if result.Status != StatusError {
		t.Fatalf("expected error result, got %+v", result)
	}
	if result.Message == "" {
		t.Fatal("resolution failures must carry a message")
	}
}

func TestClosePositionShortBuysBack(t *testing.T) {
	client := &fakeClient{positions: []gateway.PositionEvent{mesPosition(42, -3)}}
	audits := &recordingAudits{}
	exec, _ := newTestExecutor(client, audits)

	result := exec.ClosePosition(context.Background(), 42)

	if result.Status != StatusSuccess {
		t.Fatalf("expected success, got %+v", result)
	}
	order := client.placed[0]
	if order.Action != gateway.ActionBuy || order.TotalQuantity != 3 {
		t.Fatalf("short close must buy back the absolute size, got %+v", order)
	}
	if len(audits.records) != 1 || audits.records[0].Source != model.AuditSourceClose {
		t.Fatalf("expected one close audit, got %+v", audits.records)
	}
}

func TestClosePositionNotFound(t *testing.T) {
	exec, _ := newTestExecutor(&fakeClient{}, nil)

	result := exec.ClosePosition(context.Background(), 42)

	if result.Status != StatusError || !result.NotFound {
		t.Fatalf("expected a not-found error result, got %+v", result)
	}
}

func TestCancelOrder(t *testing.T) {
	client := &fakeClient{trades: []gateway.OrderEvent{{OrderID: 9, Status: "Submitted", Remaining: 1}}}
	exec, _ := newTestExecutor(client, nil)

	result := exec.CancelOrder(context.Background(), 9)

	if result.Status != StatusSuccess {
		t.Fatalf("expected success, got %+v", result)
	}
	if len(client.cancelled) != 1 || client.cancelled[0] != 9 {
		t.Fatalf("cancel not forwarded: %+v", client.cancelled)
	}
}

func TestCancelOrderNotFound(t *testing.T) {
	exec, _ := newTestExecutor(&fakeClient{}, nil)

	result := exec.CancelOrder(context.Background(), 9)

	if !result.NotFound {
		t.Fatalf("expected not-found, got %+v", result)
	}
}

func TestFlattenAllClosesEveryCachedPosition(t *testing.T) {
	client := &fakeClient{positions: []gateway.PositionEvent{mesPosition(1, 2), mesPosition(2, -1)}}
	exec, cache := newTestExecutor(client, nil)

	cache.OnPosition(mesPosition(1, 2))
	cache.OnPosition(mesPosition(2, -1))

	closed := exec.FlattenAll(context.Background())

	if closed != 2 {
		t.Fatalf("expected 2 closes, got %d", closed)
	}
	if len(client.placed) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(client.placed))
	}
}

func TestProcessSignalSubmissionError(t *testing.T) {
	client := &fakeClient{
		detailsLeft: []gateway.ContractDetails{
			{Contract: gateway.Contract{ConID: 77, Symbol: "MES", SecType: gateway.SecTypeFuture}},
		},
		placeErr: errors.New("gateway rejected order"),
	}
	exec, _ := newTestExecutor(client, nil)

	result := exec.ProcessSignal(context.Background(), model.Signal{Symbol: "MES1!", Action: "Sell"}, model.DefaultSettings())

	if result.Status != StatusError {
		t.Fatalf("expected error result, got %+v", result)
	}
}
