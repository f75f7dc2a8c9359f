package gate

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"parkgate/internal/models"
	"parkgate/internal/parking"
)

// ScanProcessor is the coordinator surface the card handler needs.
type ScanProcessor interface {
	ProcessEntry(ctx context.Context, cardID string) (*models.Session, error)
	ProcessExit(ctx context.Context, cardID string) (*parking.ExitResult, error)
}

// NewCardScannedHandler routes an RFID read to the coordinator. Business
// rejections (unknown card, lot full, not parked) are not frame errors; the
// coordinator's event stream carries the reaction back to the device, so the
// handler only logs and acknowledges.
func NewCardScannedHandler(scans ScanProcessor, logger *zap.Logger) HandlerFunc {
	return func(ctx context.Context, deviceID string, payload json.RawMessage) (interface{}, error) {
		scan, err := Decode[CardScannedPayload](payload)
		if err != nil {
			return nil, err
		}
		if scan.CardID == "" {
			return nil, errors.New("gate: card_scanned frame missing card_id")
		}

		switch scan.Checkpoint {
		case CheckpointEntry:
			_, err = scans.ProcessEntry(ctx, scan.CardID)
		case CheckpointExit:
			_, err = scans.ProcessExit(ctx, scan.CardID)
		default:
			return nil, errors.New("gate: unknown checkpoint " + scan.Checkpoint)
		}
		if err != nil {
			logger.Info("card scan rejected",
				zap.String("device_id", deviceID),
				zap.String("checkpoint", scan.Checkpoint),
				zap.String("card_id", scan.CardID),
				zap.Error(err))
		}
		return nil, nil
	}
}

// NewHeartbeatHandler records liveness and acks with server time.
func NewHeartbeatHandler(state *StateStore) HandlerFunc {
	return func(ctx context.Context, deviceID string, payload json.RawMessage) (interface{}, error) {
		now := time.Now().UTC()
		state.MarkHeartbeat(deviceID, now)
		return HeartbeatResponse{CurrentTime: now.Format(time.RFC3339)}, nil
	}
}

// NewSlotStatusHandler stores infrared sensor samples for the dashboard.
func NewSlotStatusHandler(state *StateStore) HandlerFunc {
	return func(ctx context.Context, deviceID string, payload json.RawMessage) (interface{}, error) {
		status, err := Decode[SlotStatusPayload](payload)
		if err != nil {
			return nil, err
		}
		for _, reading := range status.Readings {
			state.RecordSensor(deviceID, reading.SlotNumber, reading.Occupied)
		}
		return nil, nil
	}
}
