// Package translator maps inbound trade signals onto concrete gateway
// contracts and order actions.
package translator

import (
	"context"
	"fmt"
	"strings"
	"time"

	logger "github.com/sirupsen/logrus"

	"signalbridge/src/gateway"
	"signalbridge/src/model"
)

// Supported symbol roots.
const (
	FuturesRoot = "MES"
	OptionRoot  = "SPY"
)

const expiryLayout = "20060102"

// ResolutionError marks a failure to map a signal onto a tradable contract.
// It is returned to the caller as a structured result, never raised.
type ResolutionError struct {
	Message string
}

func (e *ResolutionError) Error() string { return e.Message }

func resolutionErrf(format string, args ...interface{}) *ResolutionError {
	return &ResolutionError{Message: fmt.Sprintf(format, args...)}
}

// Translation is the resolved output of a signal: what to trade and how.
type Translation struct {
	Contract gateway.Contract
	Action   string
	Quantity float64
}

// Translator resolves signals against live gateway state and the current
// settings.
type Translator struct {
	client gateway.Client
	log    *logger.Entry
	now    func() time.Time
}

func New(client gateway.Client) *Translator {
	return &Translator{
		client: client,
		log:    logger.WithField("component", "Translator"),
		now:    time.Now,
	}
}

// WithNow overrides the clock, for tests.
func (t *Translator) WithNow(now func() time.Time) *Translator {
	return &Translator{client: t.client, log: t.log, now: now}
}

// Translate resolves a signal into a contract and order action. Exit signals
// are matched against live positions; entry signals resolve a fresh
// contract. All resolution failures come back as *ResolutionError.
func (t *Translator) Translate(ctx context.Context, sig model.Signal, settings model.Settings) (Translation, error) {
	class := model.ClassifySignal(sig.Action)

	t.log.WithFields(map[string]interface{}{
		"symbol": sig.Symbol,
		"action": sig.Action,
		"class":  class.String(),
	}).Info("Translating signal")

	if class.IsExit() {
		return t.translateExit(ctx, sig, class)
	}

	switch {
	case strings.Contains(sig.Symbol, FuturesRoot):
		return t.translateFuturesEntry(ctx, class, settings)
	case strings.Contains(sig.Symbol, OptionRoot):
		return t.translateOptionEntry(ctx, sig, class, settings)
	default:
		return Translation{}, resolutionErrf("unsupported symbol %q", sig.Symbol)
	}
}

// translateExit finds the first live position matching the signal. Futures
// match on root symbol; for the option root only option positions qualify,
// a long call for a buy-class exit and a long put for a sell-class exit.
// The underlying equity never matches.
func (t *Translator) translateExit(ctx context.Context, sig model.Signal, class model.ActionClass) (Translation, error) {
	positions, err := t.client.Positions(ctx)
	if err != nil {
		return Translation{}, fmt.Errorf("failed to list positions: %w", err)
	}

	var match *gateway.PositionEvent
	for i := range positions {
		pos := positions[i]
		if strings.Contains(sig.Symbol, FuturesRoot) && pos.Contract.Symbol == FuturesRoot {
			match = &pos
			break
		}
		if strings.Contains(sig.Symbol, OptionRoot) && pos.Contract.Symbol == OptionRoot {
			if pos.Contract.SecType != gateway.SecTypeOption {
				continue
			}
			isLong := pos.Position > 0
			isCall := pos.Contract.Right == gateway.RightCall
			if (class.IsBuy() && isLong && isCall) || (!class.IsBuy() && isLong && !isCall) {
				match = &pos
				break
			}
		}
	}

	if match == nil {
		return Translation{}, resolutionErrf("no matching open position found for %s", sig.Symbol)
	}

	action := gateway.ActionSell
	quantity := match.Position
	if match.Position < 0 {
		action = gateway.ActionBuy
		quantity = -match.Position
	}

	return Translation{Contract: match.Contract, Action: action, Quantity: quantity}, nil
}

// translateFuturesEntry resolves the front-month futures contract. The
// details lookup returns matches nearest expiry first, so the first entry is
// the front month.
func (t *Translator) translateFuturesEntry(ctx context.Context, class model.ActionClass, settings model.Settings) (Translation, error) {
	details, err := t.client.ContractDetails(ctx, gateway.Contract{
		Symbol:   FuturesRoot,
		SecType:  gateway.SecTypeFuture,
		Exchange: "CME",
		Currency: "USD",
	})
	if err != nil {
		return Translation{}, resolutionErrf("could not resolve %s contract: %v", FuturesRoot, err)
	}
	if len(details) == 0 {
		return Translation{}, resolutionErrf("no contract details found for %s", FuturesRoot)
	}

	qualified, err := t.client.QualifyContract(ctx, details[0].Contract)
	if err != nil {
		return Translation{}, resolutionErrf("could not qualify %s contract: %v", FuturesRoot, err)
	}

	action := gateway.ActionSell
	if class.IsBuy() {
		action = gateway.ActionBuy
	}

	return Translation{
		Contract: qualified,
		Action:   action,
		Quantity: float64(settings.Quantity),
	}, nil
}

// translateOptionEntry builds an option for the configured strike: a call
// for buy-class signals, a put for sell-class. Direction is expressed
// through the right, so the order action is always BUY.
func (t *Translator) translateOptionEntry(ctx context.Context, sig model.Signal, class model.ActionClass, settings model.Settings) (Translation, error) {
	var right string
	var strike *float64
	if class.IsBuy() {
		right = gateway.RightCall
		strike = settings.CallStrike
	} else {
		right = gateway.RightPut
		strike = settings.PutStrike
	}
	if strike == nil {
		return Translation{}, resolutionErrf("no %s strike configured", rightName(right))
	}

	expiry := sig.Expiry
	if expiry == "" {
		expiry = t.now().AddDate(0, 0, settings.DTE).Format(expiryLayout)
	}

	t.log.WithFields(map[string]interface{}{
		"strike": *strike,
		"right":  right,
		"expiry": expiry,
	}).Info("Resolving option contract")

	details, err := t.client.ContractDetails(ctx, gateway.Contract{
		Symbol:        OptionRoot,
		SecType:       gateway.SecTypeOption,
		Exchange:      "SMART",
		Currency:      "USD",
		Multiplier:    "100",
		Right:         right,
		Strike:        *strike,
		LastTradeDate: expiry,
	})
	if err != nil {
		return Translation{}, resolutionErrf("could not resolve %s option: %v", OptionRoot, err)
	}
	if len(details) == 0 {
		return Translation{}, resolutionErrf("no contract details found for %s option", OptionRoot)
	}

	contract := details[0].Contract
	if contract.SecType != gateway.SecTypeOption {
		return Translation{}, resolutionErrf("%s signals must resolve to options only", OptionRoot)
	}

	return Translation{
		Contract: contract,
		Action:   gateway.ActionBuy,
		Quantity: float64(settings.Quantity),
	}, nil
}

func rightName(right string) string {
	if right == gateway.RightCall {
		return "call"
	}
	return "put"
}
