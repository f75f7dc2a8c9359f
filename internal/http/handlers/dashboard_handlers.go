package handlers

import (
	"context"
	"net/http"
	"strconv"

	"parkgate/internal/gate"
	"parkgate/internal/models"
	"parkgate/internal/parking"
)

// ParkingService is the coordinator surface the management API uses.
type ParkingService interface {
	ProcessEntry(ctx context.Context, cardID string) (*models.Session, error)
	ProcessExit(ctx context.Context, cardID string) (*parking.ExitResult, error)
	FinalizeExit(ctx context.Context, sessionID, amount int64, method string) error
	CancelExit(sessionID int64) error
	PendingExitBySession(sessionID int64) (parking.PendingExit, bool)
	Stats(ctx context.Context) (models.SlotStats, error)
	Recent(ctx context.Context, limit int) ([]models.Session, error)
	ActiveSessions(ctx context.Context, limit int) ([]models.Session, error)
	RevenueToday(ctx context.Context) (int64, error)
}

// DeviceStates exposes the gate controller runtime view.
type DeviceStates interface {
	Snapshot() map[string]gate.DeviceState
}

// SlotLister exposes the per-slot occupancy map.
type SlotLister interface {
	List(ctx context.Context) ([]models.Slot, error)
}

// NewStatsHandler returns GET /api/stats handler.
func NewStatsHandler(svc ParkingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.Stats(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load slot stats")
			return
		}
		revenue, err := svc.RevenueToday(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load revenue")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"slots":         stats,
			"revenue_today": revenue,
		})
	}
}

// NewRecentSessionsHandler returns GET /api/sessions/recent handler.
func NewRecentSessionsHandler(svc ParkingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessions, err := svc.Recent(r.Context(), queryLimit(r, 20))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load sessions")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": sessions})
	}
}

// NewActiveSessionsHandler returns GET /api/sessions/active handler.
func NewActiveSessionsHandler(svc ParkingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessions, err := svc.ActiveSessions(r.Context(), queryLimit(r, 50))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load sessions")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": sessions})
	}
}

// NewSlotsHandler returns GET /api/slots handler.
func NewSlotsHandler(slots SlotLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := slots.List(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load slots")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"slots": list})
	}
}

// NewDevicesHandler returns GET /api/devices handler.
func NewDevicesHandler(devices DeviceStates) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"devices": devices.Snapshot()})
	}
}

func queryLimit(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return fallback
	}
	return limit
}
