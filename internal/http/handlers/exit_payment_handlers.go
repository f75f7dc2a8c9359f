package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"parkgate/internal/parking"
	"parkgate/internal/payment"
)

// PaymentWorkflow is the QR settlement surface of the management API.
type PaymentWorkflow interface {
	Begin(ctx context.Context, sessionID, amount int64) (*payment.Code, error)
	Cancel(sessionID int64) error
	Stop(sessionID int64)
	Status(sessionID int64) (payment.Status, bool)
}

// NewExitCashHandler returns POST /api/exit/cash handler. The amount defaults
// to the computed fee; a different amount records an operator override.
func NewExitCashHandler(svc ParkingService, payments PaymentWorkflow) http.HandlerFunc {
	type request struct {
		SessionID int64 `json:"session_id"`
		Amount    int64 `json:"amount"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.SessionID == 0 {
			writeError(w, http.StatusBadRequest, "session_id is required")
			return
		}

		amount := req.Amount
		if amount == 0 {
			pending, ok := svc.PendingExitBySession(req.SessionID)
			if !ok {
				writeError(w, http.StatusConflict, "exit already resolved")
				return
			}
			amount = pending.Fee
		}

		if err := svc.FinalizeExit(r.Context(), req.SessionID, amount, parking.MethodCash); err != nil {
			if errors.Is(err, parking.ErrAlreadyResolved) {
				writeError(w, http.StatusConflict, "exit already resolved")
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to finalize exit")
			return
		}
		payments.Stop(req.SessionID)

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"session_id": req.SessionID,
			"amount":     amount,
			"method":     parking.MethodCash,
		})
	}
}

// NewExitCancelHandler returns POST /api/exit/cancel handler. The vehicle
// stays parked; any live QR watch is aborted.
func NewExitCancelHandler(payments PaymentWorkflow) http.HandlerFunc {
	type request struct {
		SessionID int64 `json:"session_id"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.SessionID == 0 {
			writeError(w, http.StatusBadRequest, "session_id is required")
			return
		}

		if err := payments.Cancel(req.SessionID); err != nil {
			if errors.Is(err, parking.ErrAlreadyResolved) {
				writeError(w, http.StatusConflict, "exit already resolved")
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to cancel exit")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
	}
}

// NewExitQRHandler returns POST /api/exit/qr handler: starts (or resumes) the
// transfer settlement workflow for a pending exit.
func NewExitQRHandler(svc ParkingService, payments PaymentWorkflow) http.HandlerFunc {
	type request struct {
		SessionID int64 `json:"session_id"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.SessionID == 0 {
			writeError(w, http.StatusBadRequest, "session_id is required")
			return
		}

		pending, ok := svc.PendingExitBySession(req.SessionID)
		if !ok {
			writeError(w, http.StatusConflict, "exit already resolved")
			return
		}

		code, err := payments.Begin(r.Context(), req.SessionID, pending.Fee)
		if err != nil {
			if errors.Is(err, payment.ErrCodeGeneration) {
				writeError(w, http.StatusBadGateway, "payment provider unavailable")
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to start settlement")
			return
		}
		writeJSON(w, http.StatusOK, code)
	}
}

// NewExitStatusHandler returns GET /api/exit/status handler.
func NewExitStatusHandler(payments PaymentWorkflow) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := strconv.ParseInt(r.URL.Query().Get("session_id"), 10, 64)
		if err != nil || sessionID == 0 {
			writeError(w, http.StatusBadRequest, "session_id is required")
			return
		}

		status, ok := payments.Status(sessionID)
		if !ok {
			writeError(w, http.StatusNotFound, "no settlement workflow for session")
			return
		}
		writeJSON(w, http.StatusOK, status)
	}
}
