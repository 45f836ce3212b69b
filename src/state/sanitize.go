package state

import (
	"math"

	"signalbridge/src/model"
)

// Scrub maps NaN and infinite values to zero. Delayed feeds occasionally
// emit them and they are not representable in JSON.
func Scrub(v float64) float64 {
	if isNonFinite(v) {
		return 0
	}
	return v
}

func isNonFinite(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}

func sanitizePosition(p model.PositionView) model.PositionView {
	p.Quantity = Scrub(p.Quantity)
	p.AvgCost = Scrub(p.AvgCost)
	p.MarketPrice = Scrub(p.MarketPrice)
	p.UnrealizedPnL = Scrub(p.UnrealizedPnL)
	return p
}

func sanitizeOrder(o model.OrderView) model.OrderView {
	o.Quantity = Scrub(o.Quantity)
	o.Filled = Scrub(o.Filled)
	o.Remaining = Scrub(o.Remaining)
	o.AvgFillPrice = Scrub(o.AvgFillPrice)
	return o
}

func sanitizePnL(p model.PnL) model.PnL {
	p.DailyPnL = Scrub(p.DailyPnL)
	p.UnrealizedPnL = Scrub(p.UnrealizedPnL)
	p.RealizedPnL = Scrub(p.RealizedPnL)
	p.TotalPnL = Scrub(p.TotalPnL)
	return p
}
