package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"parkgate/internal/payment"
)

// PaymentGateway is the bank-facing surface for standalone payments (lost
// card penalties, monthly passes) that have no parking session.
type PaymentGateway interface {
	CreateCode(ctx context.Context, amount int64, orderID string) (*payment.Code, error)
	CheckSettlement(ctx context.Context, amount int64, orderID string) (*payment.Transaction, error)
}

// NewPaymentCodeHandler returns POST /api/payments/code handler.
func NewPaymentCodeHandler(gateway PaymentGateway) http.HandlerFunc {
	type request struct {
		Amount int64 `json:"amount"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.Amount <= 0 {
			writeError(w, http.StatusBadRequest, "amount must be positive")
			return
		}

		code, err := gateway.CreateCode(r.Context(), req.Amount, payment.NewOrderID())
		if err != nil {
			writeError(w, http.StatusBadGateway, "payment provider unavailable")
			return
		}
		writeJSON(w, http.StatusCreated, code)
	}
}

// NewPaymentVerifyHandler returns POST /api/payments/verify handler: a
// one-shot settlement check for a previously issued code.
func NewPaymentVerifyHandler(gateway PaymentGateway) http.HandlerFunc {
	type request struct {
		OrderID string `json:"order_id"`
		Amount  int64  `json:"amount"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		req.OrderID = strings.TrimSpace(req.OrderID)
		if req.OrderID == "" || req.Amount <= 0 {
			writeError(w, http.StatusBadRequest, "order_id and amount are required")
			return
		}

		tx, err := gateway.CheckSettlement(r.Context(), req.Amount, req.OrderID)
		if err != nil {
			writeError(w, http.StatusBadGateway, "payment provider unavailable")
			return
		}
		if tx == nil {
			writeJSON(w, http.StatusOK, map[string]interface{}{"settled": false})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"settled":     true,
			"transaction": tx,
		})
	}
}
