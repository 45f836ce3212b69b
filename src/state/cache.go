// Package state holds the in-memory view of positions, open orders, PnL,
// and the reference price. It is mutated only by gateway events and by
// explicit resync, and read by the query surface.
package state

import (
	"context"
	"sync"

	logger "github.com/sirupsen/logrus"

	"signalbridge/src/gateway"
	"signalbridge/src/model"
)

// DefaultReferencePrice is reported until the first valid tick arrives.
const DefaultReferencePrice = 598.0

// ReferenceSymbol is the only symbol whose ticks update the reference price.
const ReferenceSymbol = "SPY"

func isTerminalStatus(status string) bool {
	switch status {
	case gateway.StatusFilled, gateway.StatusCancelled, gateway.StatusInactive:
		return true
	}
	return false
}

// SyncSource is the slice of the gateway client the cache needs for a
// resync.
type SyncSource interface {
	Positions(ctx context.Context) ([]gateway.PositionEvent, error)
	OpenTrades(ctx context.Context) ([]gateway.OrderEvent, error)
	Portfolio(ctx context.Context) ([]gateway.PortfolioEvent, error)
}

// Cache implements gateway.Handler. Every mutation replaces the whole record
// under its key, so concurrent readers never observe a half-updated entity.
type Cache struct {
	mu        sync.RWMutex
	positions map[int64]model.PositionView
	orders    map[int64]model.OrderView
	pnl       model.PnL
	refPrice  float64
	log       *logger.Entry
}

func NewCache() *Cache {
	return &Cache{
		positions: make(map[int64]model.PositionView),
		orders:    make(map[int64]model.OrderView),
		refPrice:  DefaultReferencePrice,
		log:       logger.WithField("component", "Cache"),
	}
}

// OnOrderStatus upserts the order by id. Orders are evicted only once they
// are in a terminal status with nothing remaining; a cancelled order with a
// leftover remainder stays visible.
func (c *Cache) OnOrderStatus(ev gateway.OrderEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if isTerminalStatus(ev.Status) && ev.Remaining == 0 {
		delete(c.orders, ev.OrderID)
	} else {
		c.orders[ev.OrderID] = model.OrderView{
			OrderID:      ev.OrderID,
			Symbol:       ev.Contract.Symbol,
			LocalSymbol:  ev.Contract.LocalSymbol,
			SecType:      ev.Contract.SecType,
			Action:       ev.Action,
			Quantity:     ev.Quantity,
			OrderType:    ev.OrderType,
			Status:       ev.Status,
			Filled:       ev.Filled,
			Remaining:    ev.Remaining,
			AvgFillPrice: ev.AvgFillPrice,
			ErrorMessage: ev.ErrorMessage,
		}
	}

	c.log.WithFields(map[string]interface{}{
		"order_id":  ev.OrderID,
		"status":    ev.Status,
		"filled":    ev.Filled,
		"remaining": ev.Remaining,
	}).Debug("Order update")
}

// OnPosition upserts the position by instrument id, or removes it when the
// reported quantity is zero. Valuation fields are reset and wait for the
// next portfolio event.
func (c *Cache) OnPosition(ev gateway.PositionEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ev.Position == 0 {
		delete(c.positions, ev.Contract.ConID)
	} else {
		c.positions[ev.Contract.ConID] = model.PositionView{
			InstrumentID: ev.Contract.ConID,
			Symbol:       ev.Contract.Symbol,
			SecType:      ev.Contract.SecType,
			Exchange:     ev.Contract.Exchange,
			LocalSymbol:  ev.Contract.LocalSymbol,
			Quantity:     ev.Position,
			AvgCost:      ev.AvgCost,
		}
	}

	c.log.WithFields(map[string]interface{}{
		"con_id":   ev.Contract.ConID,
		"symbol":   ev.Contract.LocalSymbol,
		"position": ev.Position,
		"avg_cost": ev.AvgCost,
	}).Debug("Position update")
}

// OnPortfolio enriches a known position with price and unrealized PnL.
// Events for unknown instruments are dropped: a portfolio event can race
// ahead of its position event, and the next resync repairs the gap.
func (c *Cache) OnPortfolio(ev gateway.PortfolioEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	pos, ok := c.positions[ev.Contract.ConID]
	if !ok {
		return
	}
	pos.MarketPrice = ev.MarketPrice
	pos.UnrealizedPnL = ev.UnrealizedPnL
	c.positions[ev.Contract.ConID] = pos

	c.log.WithFields(map[string]interface{}{
		"con_id":         ev.Contract.ConID,
		"market_price":   ev.MarketPrice,
		"unrealized_pnl": ev.UnrealizedPnL,
	}).Debug("Portfolio update")
}

// OnTick updates the reference price from the first positive value among
// market price, last trade, and previous close. Invalid ticks leave the
// previous price intact.
func (c *Cache) OnTick(t gateway.Tick) {
	if t.Contract.Symbol != ReferenceSymbol {
		return
	}

	price := firstPositive(t.MarketPrice, t.Last, t.Close)
	if price <= 0 {
		return
	}

	c.mu.Lock()
	c.refPrice = price
	c.mu.Unlock()

	c.log.WithField("price", price).Debug("Reference price update")
}

// OnPnL replaces the PnL snapshot wholesale. The total is recomputed from
// the components rather than trusted from the feed.
func (c *Cache) OnPnL(p gateway.PnLUpdate) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pnl = model.PnL{
		DailyPnL:      p.DailyPnL,
		UnrealizedPnL: p.UnrealizedPnL,
		RealizedPnL:   p.RealizedPnL,
		TotalPnL:      p.UnrealizedPnL + p.RealizedPnL,
	}
}

func firstPositive(values ...float64) float64 {
	for _, v := range values {
		if v > 0 && !isNonFinite(v) {
			return v
		}
	}
	return 0
}

// Positions returns a sanitized snapshot of all cached positions, in no
// particular order.
func (c *Cache) Positions() []model.PositionView {
	c.mu.RLock()
	defer c.mu.RUnlock()

	views := make([]model.PositionView, 0, len(c.positions))
	for _, pos := range c.positions {
		views = append(views, sanitizePosition(pos))
	}
	return views
}

// Orders returns a sanitized snapshot of all cached orders.
func (c *Cache) Orders() []model.OrderView {
	c.mu.RLock()
	defer c.mu.RUnlock()

	views := make([]model.OrderView, 0, len(c.orders))
	for _, ord := range c.orders {
		views = append(views, sanitizeOrder(ord))
	}
	return views
}

// PnL returns the sanitized PnL snapshot.
func (c *Cache) PnL() model.PnL {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return sanitizePnL(c.pnl)
}

// ReferencePrice returns the latest valid reference price, or the default
// when no tick has ever arrived.
func (c *Cache) ReferencePrice() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Scrub(c.refPrice)
}

// Resync replaces the cached positions and orders with the gateway's current
// ground truth, replaying each record through the regular event handlers.
// Portfolio items are replayed without clearing since they only enrich.
// Invoked after any command that changes state at the gateway.
func (c *Cache) Resync(ctx context.Context, src SyncSource) error {
	c.log.Info("Resyncing state from gateway")

	positions, err := src.Positions(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.positions = make(map[int64]model.PositionView)
	c.mu.Unlock()
	for _, p := range positions {
		c.OnPosition(p)
	}

	trades, err := src.OpenTrades(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.orders = make(map[int64]model.OrderView)
	c.mu.Unlock()
	for _, t := range trades {
		c.OnOrderStatus(t)
	}

	portfolio, err := src.Portfolio(ctx)
	if err != nil {
		return err
	}
	for _, item := range portfolio {
		c.OnPortfolio(item)
	}

	c.log.Info("State resync complete")
	return nil
}
