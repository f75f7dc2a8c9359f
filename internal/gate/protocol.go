package gate

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Checkpoint identifies which barrier lane a device serves.
const (
	CheckpointEntry = "entry"
	CheckpointExit  = "exit"
)

// Inbound frame types sent by gate controllers.
const (
	FrameCardScanned = "card_scanned"
	FrameHeartbeat   = "heartbeat"
	FrameSlotStatus  = "slot_status"
)

// Outbound command types sent to gate controllers.
const (
	CommandOpenBarrier = "open_barrier"
	CommandDisplay     = "display"
	CommandSlotSummary = "slot_summary"
)

// Frame is one JSON message on the device socket, either direction.
type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// CardScannedPayload reports an RFID read at a checkpoint.
type CardScannedPayload struct {
	Checkpoint string `json:"checkpoint"`
	CardID     string `json:"card_id"`
}

// HeartbeatPayload is empty; presence of the frame is the signal.
type HeartbeatPayload struct{}

// HeartbeatResponse acks a heartbeat with server time.
type HeartbeatResponse struct {
	CurrentTime string `json:"current_time"`
}

// SlotReading is one infrared sensor sample.
type SlotReading struct {
	SlotNumber int  `json:"slot_number"`
	Occupied   bool `json:"occupied"`
}

// SlotStatusPayload carries a batch of sensor samples.
type SlotStatusPayload struct {
	Readings []SlotReading `json:"readings"`
}

// OpenBarrierPayload commands a barrier to lift.
type OpenBarrierPayload struct {
	Checkpoint string `json:"checkpoint"`
}

// DisplayPayload drives the checkpoint LCD. Kind distinguishes rendering
// (info, fee, error); Lines map to the two LCD rows.
type DisplayPayload struct {
	Checkpoint string   `json:"checkpoint"`
	Kind       string   `json:"kind"`
	Lines      []string `json:"lines"`
}

// SlotSummaryPayload refreshes the availability sign at the entry lane.
type SlotSummaryPayload struct {
	Available int `json:"available"`
	Total     int `json:"total"`
}

// ParseFrame decodes one raw device message.
func ParseFrame(data []byte) (*Frame, error) {
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, fmt.Errorf("gate: malformed frame: %w", err)
	}
	if frame.Type == "" {
		return nil, errors.New("gate: frame missing type")
	}
	return &frame, nil
}

// EncodeCommand builds an outbound frame.
func EncodeCommand(commandType string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Type: commandType, Payload: body})
}
