package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"parkgate/internal/parking"
)

// NewEntryScanHandler returns POST /api/entry handler. It mirrors an entry
// checkpoint scan for manual operator use.
func NewEntryScanHandler(svc ParkingService) http.HandlerFunc {
	type request struct {
		CardID string `json:"card_id"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if strings.TrimSpace(req.CardID) == "" {
			writeError(w, http.StatusBadRequest, "card_id is required")
			return
		}

		session, err := svc.ProcessEntry(r.Context(), strings.TrimSpace(req.CardID))
		if err != nil {
			switch {
			case errors.Is(err, parking.ErrUnknownCard):
				writeError(w, http.StatusNotFound, "card not registered")
			case errors.Is(err, parking.ErrAlreadyParked):
				writeError(w, http.StatusConflict, "vehicle already parked")
			case errors.Is(err, parking.ErrLotFull):
				writeError(w, http.StatusConflict, "no free slots")
			default:
				writeError(w, http.StatusInternalServerError, "entry failed")
			}
			return
		}
		writeJSON(w, http.StatusCreated, session)
	}
}

// NewExitScanHandler returns POST /api/exit handler. The response carries the
// computed fee; settlement happens through the cash or QR endpoints.
func NewExitScanHandler(svc ParkingService) http.HandlerFunc {
	type request struct {
		CardID string `json:"card_id"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if strings.TrimSpace(req.CardID) == "" {
			writeError(w, http.StatusBadRequest, "card_id is required")
			return
		}

		result, err := svc.ProcessExit(r.Context(), strings.TrimSpace(req.CardID))
		if err != nil {
			switch {
			case errors.Is(err, parking.ErrUnknownCard):
				writeError(w, http.StatusNotFound, "card not registered")
			case errors.Is(err, parking.ErrNotParked):
				writeError(w, http.StatusConflict, "no open session for card")
			default:
				writeError(w, http.StatusInternalServerError, "exit failed")
			}
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"pending":  result.Pending,
			"repeated": result.Repeated,
		})
	}
}
