package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gorilla/websocket"
	logger "github.com/sirupsen/logrus"
)

const (
	// Default retry configuration
	defaultRetryAttempts   = 5
	defaultRetryBaseDelay  = 500 * time.Millisecond
	defaultRetryMaxBackoff = 8 * time.Second
)

func isRetryableResp(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}

	if r == nil {
		return false
	}

	code := r.StatusCode()

	if code >= 500 && code <= 599 {
		return true
	}
	if code == 429 {
		return true
	}
	if code == 408 {
		return true
	}
	return false
}

// streamEnvelope is one frame on the event stream.
type streamEnvelope struct {
	Topic string          `json:"topic"`
	Data  json.RawMessage `json:"data"`
}

// Stream topics.
const (
	topicOrder     = "order"
	topicPosition  = "position"
	topicPortfolio = "portfolio"
	topicTick      = "tick"
	topicPnL       = "pnl"
)

// WebClient implements Client against the gateway's web API.
type WebClient struct {
	http      *resty.Client
	streamURL string

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool

	handlersMu sync.RWMutex
	handlers   []Handler
}

func NewWebClient(cfg Config) *WebClient {
	retryCount := defaultRetryAttempts - 1

	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.RequestTimeout).
		SetRetryCount(retryCount).
		SetRetryWaitTime(defaultRetryBaseDelay).
		SetRetryMaxWaitTime(defaultRetryMaxBackoff).
		AddRetryCondition(isRetryableResp)

	return &WebClient{
		http:      httpClient,
		streamURL: cfg.StreamURL,
	}
}

func (c *WebClient) Connect(ctx context.Context, clientID int) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]int{"client_id": clientID}).
		Post("/v1/session/connect")
	if err != nil {
		return &ConnectionError{Op: "connect", Err: err}
	}
	if resp.StatusCode() == http.StatusConflict {
		return ErrIdentityInUse
	}
	if resp.StatusCode()/100 != 2 {
		return &ConnectionError{Op: "connect", Err: fmt.Errorf("non-2xx status: %d", resp.StatusCode())}
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, fmt.Sprintf("%s?client_id=%d", c.streamURL, clientID), nil)
	if err != nil {
		return &ConnectionError{Op: "stream dial", Err: err}
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	go c.readLoop(conn)

	logger.WithField("client_id", clientID).Info("Gateway session established")
	return nil
}

func (c *WebClient) Disconnect() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.connected = false
	c.mu.Unlock()

	if conn != nil {
		if err := conn.Close(); err != nil {
			logger.WithError(err).Warn("Error closing event stream")
		}
	}

	resp, err := c.http.R().Post("/v1/session/disconnect")
	if err != nil {
		return fmt.Errorf("disconnect request failed: %w", err)
	}
	if resp.StatusCode()/100 != 2 {
		return fmt.Errorf("disconnect non-2xx status: %d", resp.StatusCode())
	}
	return nil
}

func (c *WebClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *WebClient) RegisterHandler(h Handler) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	c.handlers = append(c.handlers, h)
}

func (c *WebClient) UnregisterHandler(h Handler) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	for i, registered := range c.handlers {
		if registered == h {
			c.handlers = append(c.handlers[:i], c.handlers[i+1:]...)
			return
		}
	}
}

// readLoop pulls frames off the event stream until the connection dies.
func (c *WebClient) readLoop(conn *websocket.Conn) {
	for {
		var envelope streamEnvelope
		if err := conn.ReadJSON(&envelope); err != nil {
			c.mu.Lock()
			stillCurrent := c.conn == conn
			c.mu.Unlock()
			if stillCurrent {
				logger.WithError(err).Error("Event stream read failed")
			}
			return
		}
		c.dispatch(envelope)
	}
}

// dispatch decodes a frame and fans it out. Every handler invocation is
// isolated so one bad event cannot kill the read loop.
func (c *WebClient) dispatch(envelope streamEnvelope) {
	c.handlersMu.RLock()
	handlers := make([]Handler, len(c.handlers))
	copy(handlers, c.handlers)
	c.handlersMu.RUnlock()

	switch envelope.Topic {
	case topicOrder:
		var ev OrderEvent
		if err := json.Unmarshal(envelope.Data, &ev); err != nil {
			logger.WithError(err).Error("Failed to decode order event")
			return
		}
		for _, h := range handlers {
			safeDispatch(envelope.Topic, func() { h.OnOrderStatus(ev) })
		}
	case topicPosition:
		var ev PositionEvent
		if err := json.Unmarshal(envelope.Data, &ev); err != nil {
			logger.WithError(err).Error("Failed to decode position event")
			return
		}
		for _, h := range handlers {
			safeDispatch(envelope.Topic, func() { h.OnPosition(ev) })
		}
	case topicPortfolio:
		var ev PortfolioEvent
		if err := json.Unmarshal(envelope.Data, &ev); err != nil {
			logger.WithError(err).Error("Failed to decode portfolio event")
			return
		}
		for _, h := range handlers {
			safeDispatch(envelope.Topic, func() { h.OnPortfolio(ev) })
		}
	case topicTick:
		var ev Tick
		if err := json.Unmarshal(envelope.Data, &ev); err != nil {
			logger.WithError(err).Error("Failed to decode tick")
			return
		}
		for _, h := range handlers {
			safeDispatch(envelope.Topic, func() { h.OnTick(ev) })
		}
	case topicPnL:
		var ev PnLUpdate
		if err := json.Unmarshal(envelope.Data, &ev); err != nil {
			logger.WithError(err).Error("Failed to decode pnl update")
			return
		}
		for _, h := range handlers {
			safeDispatch(envelope.Topic, func() { h.OnPnL(ev) })
		}
	default:
		logger.WithField("topic", envelope.Topic).Debug("Ignoring unknown stream topic")
	}
}

func safeDispatch(topic string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithFields(map[string]interface{}{
				"topic": topic,
				"panic": fmt.Sprintf("%+v", r),
			}).Error("Event handler panicked")
		}
	}()
	fn()
}

func (c *WebClient) SetMarketDataType(ctx context.Context, mode int) error {
	return c.post(ctx, "/v1/marketdata/type", map[string]int{"type": mode}, nil)
}

func (c *WebClient) ManagedAccounts(ctx context.Context) ([]string, error) {
	var accounts []string
	if err := c.get(ctx, "/v1/accounts", &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (c *WebClient) Positions(ctx context.Context) ([]PositionEvent, error) {
	var positions []PositionEvent
	if err := c.get(ctx, "/v1/portfolio/positions", &positions); err != nil {
		return nil, err
	}
	return positions, nil
}

func (c *WebClient) OpenTrades(ctx context.Context) ([]OrderEvent, error) {
	var trades []OrderEvent
	if err := c.get(ctx, "/v1/orders", &trades); err != nil {
		return nil, err
	}
	return trades, nil
}

func (c *WebClient) Portfolio(ctx context.Context) ([]PortfolioEvent, error) {
	var items []PortfolioEvent
	if err := c.get(ctx, "/v1/portfolio/items", &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *WebClient) SubscribePnL(ctx context.Context, account string) error {
	return c.post(ctx, "/v1/pnl/subscribe", map[string]string{"account": account}, nil)
}

func (c *WebClient) CancelPnL(ctx context.Context, account string) error {
	return c.post(ctx, "/v1/pnl/cancel", map[string]string{"account": account}, nil)
}

func (c *WebClient) SubscribeMarketData(ctx context.Context, contract Contract) error {
	return c.post(ctx, "/v1/marketdata/subscribe", contract, nil)
}

func (c *WebClient) CancelMarketData(ctx context.Context, contract Contract) error {
	return c.post(ctx, "/v1/marketdata/cancel", contract, nil)
}

func (c *WebClient) ContractDetails(ctx context.Context, contract Contract) ([]ContractDetails, error) {
	var details []ContractDetails
	if err := c.post(ctx, "/v1/contracts/details", contract, &details); err != nil {
		return nil, err
	}
	return details, nil
}

func (c *WebClient) QualifyContract(ctx context.Context, contract Contract) (Contract, error) {
	var qualified Contract
	if err := c.post(ctx, "/v1/contracts/qualify", contract, &qualified); err != nil {
		return Contract{}, err
	}
	return qualified, nil
}

func (c *WebClient) PlaceOrder(ctx context.Context, contract Contract, order Order) (OrderEvent, error) {
	if !c.IsConnected() {
		return OrderEvent{}, ErrNotConnected
	}

	body := struct {
		Contract Contract `json:"contract"`
		Order    Order    `json:"order"`
	}{Contract: contract, Order: order}

	var placed OrderEvent
	if err := c.post(ctx, "/v1/orders/place", body, &placed); err != nil {
		return OrderEvent{}, err
	}

	logger.WithFields(map[string]interface{}{
		"order_id": placed.OrderID,
		"symbol":   contract.Symbol,
		"action":   order.Action,
		"qty":      order.TotalQuantity,
	}).Info("Order submitted to gateway")

	return placed, nil
}

func (c *WebClient) CancelOrder(ctx context.Context, orderID int64) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return c.post(ctx, fmt.Sprintf("/v1/orders/%d/cancel", orderID), nil, nil)
}

func (c *WebClient) get(ctx context.Context, path string, out interface{}) error {
	req := c.http.R().SetContext(ctx)
	if out != nil {
		req.SetResult(out)
	}
	resp, err := req.Get(path)
	if err != nil {
		return fmt.Errorf("GET %s failed: %w", path, err)
	}
	if resp.StatusCode()/100 != 2 {
		return fmt.Errorf("GET %s non-2xx status: %d: %s", path, resp.StatusCode(), resp.String())
	}
	return nil
}

func (c *WebClient) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	req := c.http.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}
	if out != nil {
		req.SetResult(out)
	}
	resp, err := req.Post(path)
	if err != nil {
		return fmt.Errorf("POST %s failed: %w", path, err)
	}
	if resp.StatusCode()/100 != 2 {
		return fmt.Errorf("POST %s non-2xx status: %d: %s", path, resp.StatusCode(), resp.String())
	}
	return nil
}
