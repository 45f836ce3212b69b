package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalbridge/src/model"
	"signalbridge/src/translator"
)

type fakeState struct {
	positions []model.PositionView
	orders    []model.OrderView
	pnl       model.PnL
	refPrice  float64
}

func (f *fakeState) Positions() []model.PositionView { return f.positions }
func (f *fakeState) Orders() []model.OrderView       { return f.orders }
func (f *fakeState) PnL() model.PnL                  { return f.pnl }
func (f *fakeState) ReferencePrice() float64         { return f.refPrice }

func TestPositionsHandler(t *testing.T) {
	cache := &fakeState{positions: []model.PositionView{{InstrumentID: 1, Symbol: "MES", Quantity: 2}}}

	req := httptest.NewRequest(http.MethodGet, "/api/positions", nil)
	rec := httptest.NewRecorder()
	PositionsHandler(cache)(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var got []model.PositionView
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, "MES", got[0].Symbol)
	assert.Equal(t, 2.0, got[0].Quantity)
}

func TestOrdersHandler(t *testing.T) {
	cache := &fakeState{orders: []model.OrderView{{OrderID: 9, Status: "Submitted", Remaining: 1}}}

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	rec := httptest.NewRecorder()
	OrdersHandler(cache)(rec, req)

	var got []model.OrderView
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, int64(9), got[0].OrderID)
}

func TestPnLHandler(t *testing.T) {
	cache := &fakeState{pnl: model.PnL{UnrealizedPnL: 10, RealizedPnL: 5, TotalPnL: 15}}

	req := httptest.NewRequest(http.MethodGet, "/api/pnl", nil)
	rec := httptest.NewRecorder()
	PnLHandler(cache)(rec, req)

	var got model.PnL
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, 15.0, got.TotalPnL)
}

func TestReferencePriceHandler(t *testing.T) {
	cache := &fakeState{refPrice: 601.25}

	req := httptest.NewRequest(http.MethodGet, "/api/spy-price", nil)
	rec := httptest.NewRecorder()
	ReferencePriceHandler(cache)(rec, req)

	var got model.ReferencePrice
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, 601.25, got.Price)
}

func TestStrikesHandler(t *testing.T) {
	cache := &fakeState{refPrice: 599.6}
	settings := model.DefaultSettings()
	settings.OTMStrikes = 1
	store := model.NewSettingsStore(settings)

	req := httptest.NewRequest(http.MethodGet, "/api/strikes", nil)
	rec := httptest.NewRecorder()
	StrikesHandler(cache, store)(rec, req)

	var got translator.StrikeLadder
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, []float64{600, 601}, got.Calls)
	assert.Equal(t, []float64{600, 599}, got.Puts)
}
