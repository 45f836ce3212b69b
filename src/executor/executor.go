// Package executor submits orders against the brokerage session: webhook
// signals, manual closes and cancels, and the end-of-day flatten all go
// through here. Every mutating command is followed by a settle delay and a
// cache resync.
package executor

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	logger "github.com/sirupsen/logrus"

	"signalbridge/src/gateway"
	"signalbridge/src/model"
	"signalbridge/src/state"
	"signalbridge/src/translator"
)

// defaultSettleDelay is how long to wait after a mutating command before
// trusting the gateway's state enough to resync.
const defaultSettleDelay = 500 * time.Millisecond

// Result statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Result is the tagged outcome of a command-style entry point.
type Result struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	OrderID int64  `json:"order_id,omitempty"`

	// NotFound distinguishes "nothing to act on" from a submission failure.
	NotFound bool `json:"-"`
}

func errorResult(message string) Result {
	return Result{Status: StatusError, Message: message}
}

func notFoundResult(message string) Result {
	return Result{Status: StatusError, Message: message, NotFound: true}
}

// AuditWriter persists a record of each submission. May be nil when auditing
// is disabled.
type AuditWriter interface {
	Create(ctx context.Context, audit *model.OrderAudit) error
}

// Executor places, cancels, and closes orders via the gateway session.
type Executor struct {
	client      gateway.Client
	cache       *state.Cache
	translator  *translator.Translator
	audits      AuditWriter
	settleDelay time.Duration
	log         *logger.Entry
}

func New(client gateway.Client, cache *state.Cache, tr *translator.Translator, audits AuditWriter) *Executor {
	return &Executor{
		client:      client,
		cache:       cache,
		translator:  tr,
		audits:      audits,
		settleDelay: defaultSettleDelay,
		log:         logger.WithField("component", "Executor"),
	}
}

// WithSettleDelay overrides the post-submission settle delay, for tests.
func (e *Executor) WithSettleDelay(d time.Duration) *Executor {
	clone := *e
	clone.settleDelay = d
	return &clone
}

// ProcessSignal translates the signal and submits the resulting market
// order. Resolution failures come back as error results, not Go errors.
func (e *Executor) ProcessSignal(ctx context.Context, sig model.Signal, settings model.Settings) Result {
	translation, err := e.translator.Translate(ctx, sig, settings)
	if err != nil {
		var resErr *translator.ResolutionError
		if errors.As(err, &resErr) {
			return errorResult(resErr.Message)
		}
		e.log.WithError(err).Error("Signal translation failed")
		return errorResult(err.Error())
	}

	order := gateway.Order{
		Action:         translation.Action,
		TotalQuantity:  translation.Quantity,
		OrderType:      gateway.OrderTypeMarket,
		ClientOrderRef: uuid.NewString(),
	}

	placed, err := e.client.PlaceOrder(ctx, translation.Contract, order)
	if err != nil {
		e.log.WithError(err).Error("Order submission failed")
		return errorResult(err.Error())
	}

	e.settleAndResync(ctx)
	e.writeAudit(ctx, placed.OrderID, translation.Contract, order, model.AuditSourceSignal, sig.Action)

	return Result{Status: StatusSuccess, OrderID: placed.OrderID}
}

// ClosePosition flattens the live position with the given instrument id. It
// looks the position up in current gateway state, not the local cache, so a
// stale snapshot cannot produce a wrong-sized order.
func (e *Executor) ClosePosition(ctx context.Context, instrumentID int64) Result {
	positions, err := e.client.Positions(ctx)
	if err != nil {
		e.log.WithError(err).Error("Failed to list positions for close")
		return errorResult(err.Error())
	}

	for _, pos := range positions {
		if pos.Contract.ConID != instrumentID {
			continue
		}

		action := gateway.ActionSell
		quantity := pos.Position
		if pos.Position < 0 {
			action = gateway.ActionBuy
			quantity = -pos.Position
		}

		order := gateway.Order{
			Action:         action,
			TotalQuantity:  quantity,
			OrderType:      gateway.OrderTypeMarket,
			ClientOrderRef: uuid.NewString(),
		}

		placed, err := e.client.PlaceOrder(ctx, pos.Contract, order)
		if err != nil {
			e.log.WithError(err).WithField("con_id", instrumentID).Error("Close order submission failed")
			return errorResult(err.Error())
		}

		e.settleAndResync(ctx)
		e.writeAudit(ctx, placed.OrderID, pos.Contract, order, model.AuditSourceClose, "")

		return Result{Status: StatusSuccess, Message: "Position close order placed", OrderID: placed.OrderID}
	}

	return notFoundResult("Position not found")
}

// CancelOrder cancels the working order with the given id.
func (e *Executor) CancelOrder(ctx context.Context, orderID int64) Result {
	trades, err := e.client.OpenTrades(ctx)
	if err != nil {
		e.log.WithError(err).Error("Failed to list orders for cancel")
		return errorResult(err.Error())
	}

	for _, trade := range trades {
		if trade.OrderID != orderID {
			continue
		}

		if err := e.client.CancelOrder(ctx, orderID); err != nil {
			e.log.WithError(err).WithField("order_id", orderID).Error("Order cancel failed")
			return errorResult(err.Error())
		}

		e.settleAndResync(ctx)
		return Result{Status: StatusSuccess, Message: "Order cancelled", OrderID: orderID}
	}

	return notFoundResult("Order not found")
}

// FlattenAll closes every cached position and reports how many close orders
// were issued.
func (e *Executor) FlattenAll(ctx context.Context) int {
	closed := 0
	for _, pos := range e.cache.Positions() {
		result := e.ClosePosition(ctx, pos.InstrumentID)
		if result.Status == StatusSuccess {
			closed++
		} else {
			e.log.WithFields(map[string]interface{}{
				"con_id":  pos.InstrumentID,
				"message": result.Message,
			}).Error("Failed to close position during flatten")
		}
	}
	return closed
}

func (e *Executor) settleAndResync(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(e.settleDelay):
	}

	if err := e.cache.Resync(ctx, e.client); err != nil {
		e.log.WithError(err).Error("State resync failed")
	}
}

func (e *Executor) writeAudit(ctx context.Context, orderID int64, contract gateway.Contract, order gateway.Order, source, message string) {
	if e.audits == nil {
		return
	}

	audit := &model.OrderAudit{
		OrderID:        orderID,
		ClientOrderRef: order.ClientOrderRef,
		Symbol:         contract.Symbol,
		SecType:        contract.SecType,
		Action:         order.Action,
		Quantity:       order.TotalQuantity,
		OrderType:      order.OrderType,
		Source:         source,
		Message:        message,
	}
	if err := e.audits.Create(ctx, audit); err != nil {
		e.log.WithError(err).Error("Failed to persist order audit")
	}
}
