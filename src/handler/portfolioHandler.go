package handler

import (
	"net/http"

	"signalbridge/src/model"
	"signalbridge/src/translator"
)

type stateReader interface {
	Positions() []model.PositionView
	Orders() []model.OrderView
	PnL() model.PnL
	ReferencePrice() float64
}

// PositionsHandler lists the cached open positions.
func PositionsHandler(cache stateReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, cache.Positions())
	}
}

// OrdersHandler lists the cached working orders.
func OrdersHandler(cache stateReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, cache.Orders())
	}
}

// PnLHandler returns the account PnL snapshot.
func PnLHandler(cache stateReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, cache.PnL())
	}
}

// ReferencePriceHandler returns the current benchmark price.
func ReferencePriceHandler(cache stateReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, model.ReferencePrice{Price: cache.ReferencePrice()})
	}
}

// StrikesHandler returns the selectable strike ladder derived from the
// current reference price and the configured strike depth.
func StrikesHandler(cache stateReader, settings *model.SettingsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ladder := translator.BuildStrikeLadder(cache.ReferencePrice(), settings.Current().OTMStrikes)
		writeJSON(w, http.StatusOK, ladder)
	}
}
