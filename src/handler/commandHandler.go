package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"signalbridge/src/executor"
)

type commandRunner interface {
	ClosePosition(ctx context.Context, instrumentID int64) executor.Result
	CancelOrder(ctx context.Context, orderID int64) executor.Result
}

type closePositionRequest struct {
	PositionID int64 `json:"position_id"`
}

type cancelOrderRequest struct {
	OrderID int64 `json:"order_id"`
}

// ClosePositionHandler flattens one live position by instrument id.
func ClosePositionHandler(exec commandRunner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req closePositionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		result := exec.ClosePosition(r.Context(), req.PositionID)
		writeJSON(w, commandStatus(result), result)
	}
}

// CancelOrderHandler cancels one working order by id.
func CancelOrderHandler(exec commandRunner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req cancelOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		result := exec.CancelOrder(r.Context(), req.OrderID)
		writeJSON(w, commandStatus(result), result)
	}
}

func commandStatus(result executor.Result) int {
	switch {
	case result.Status == executor.StatusSuccess:
		return http.StatusOK
	case result.NotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
