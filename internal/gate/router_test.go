package gate

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"go.uber.org/zap"

	"parkgate/internal/models"
	"parkgate/internal/parking"
)

type fakeScans struct {
	entries []string
	exits   []string
	err     error
}

func (f *fakeScans) ProcessEntry(_ context.Context, cardID string) (*models.Session, error) {
	f.entries = append(f.entries, cardID)
	return nil, f.err
}

func (f *fakeScans) ProcessExit(_ context.Context, cardID string) (*parking.ExitResult, error) {
	f.exits = append(f.exits, cardID)
	return nil, f.err
}

type recordingAudit struct {
	entries []string
}

func (a *recordingAudit) Save(_ context.Context, deviceID, direction, frameType string, _ []byte) error {
	a.entries = append(a.entries, direction+":"+frameType)
	return nil
}

func newTestProcessor(scans ScanProcessor, audit AuditLog) (*Processor, *StateStore) {
	state := NewStateStore()
	router := NewRouter()
	router.Register(FrameCardScanned, NewCardScannedHandler(scans, zap.NewNop()))
	router.Register(FrameHeartbeat, NewHeartbeatHandler(state))
	router.Register(FrameSlotStatus, NewSlotStatusHandler(state))
	return NewProcessor(router, audit, zap.NewNop()), state
}

func frame(t *testing.T, frameType string, payload interface{}) []byte {
	t.Helper()
	raw, err := EncodeCommand(frameType, payload)
	if err != nil {
		t.Fatalf("encode frame: %v", err)
	}
	return raw
}

func TestProcessorRoutesEntryScan(t *testing.T) {
	scans := &fakeScans{}
	processor, _ := newTestProcessor(scans, nil)

	raw := frame(t, FrameCardScanned, CardScannedPayload{Checkpoint: CheckpointEntry, CardID: "CARD-1"})
	resp, err := processor.Process(context.Background(), "gate-1", raw)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if resp != nil {
		t.Fatalf("card scan should not produce a direct reply, got %s", resp)
	}
	if len(scans.entries) != 1 || scans.entries[0] != "CARD-1" {
		t.Fatalf("entry scan not routed: %v", scans.entries)
	}
	if len(scans.exits) != 0 {
		t.Fatalf("entry scan routed to exit: %v", scans.exits)
	}
}

func TestProcessorRoutesExitScan(t *testing.T) {
	scans := &fakeScans{}
	processor, _ := newTestProcessor(scans, nil)

	raw := frame(t, FrameCardScanned, CardScannedPayload{Checkpoint: CheckpointExit, CardID: "CARD-2"})
	if _, err := processor.Process(context.Background(), "gate-1", raw); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(scans.exits) != 1 || scans.exits[0] != "CARD-2" {
		t.Fatalf("exit scan not routed: %v", scans.exits)
	}
}

func TestProcessorBusinessRejectionIsNotFrameError(t *testing.T) {
	scans := &fakeScans{err: parking.ErrUnknownCard}
	processor, _ := newTestProcessor(scans, nil)

	raw := frame(t, FrameCardScanned, CardScannedPayload{Checkpoint: CheckpointEntry, CardID: "GHOST"})
	if _, err := processor.Process(context.Background(), "gate-1", raw); err != nil {
		t.Fatalf("business rejection must not surface as frame error: %v", err)
	}
}

func TestProcessorHeartbeatAck(t *testing.T) {
	processor, state := newTestProcessor(&fakeScans{}, nil)

	resp, err := processor.Process(context.Background(), "gate-1", frame(t, FrameHeartbeat, HeartbeatPayload{}))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	var ack Frame
	if err := json.Unmarshal(resp, &ack); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	if ack.Type != FrameHeartbeat+"_ack" {
		t.Fatalf("unexpected ack type %q", ack.Type)
	}
	var body HeartbeatResponse
	if err := json.Unmarshal(ack.Payload, &body); err != nil {
		t.Fatalf("decode ack payload: %v", err)
	}
	if _, err := time.Parse(time.RFC3339, body.CurrentTime); err != nil {
		t.Fatalf("ack time not RFC3339: %q", body.CurrentTime)
	}

	snapshot := state.Snapshot()
	if device, ok := snapshot["gate-1"]; !ok || device.LastHeartbeat.IsZero() {
		t.Fatalf("heartbeat not recorded: %+v", snapshot)
	}
}

func TestProcessorSlotStatusUpdatesState(t *testing.T) {
	processor, state := newTestProcessor(&fakeScans{}, nil)

	payload := SlotStatusPayload{Readings: []SlotReading{
		{SlotNumber: 1, Occupied: true},
		{SlotNumber: 2, Occupied: false},
	}}
	if _, err := processor.Process(context.Background(), "sensor-1", frame(t, FrameSlotStatus, payload)); err != nil {
		t.Fatalf("process: %v", err)
	}

	device := state.Snapshot()["sensor-1"]
	if !device.SensorReports[1] || device.SensorReports[2] {
		t.Fatalf("sensor samples not stored: %+v", device.SensorReports)
	}
}

func TestProcessorAuditsTraffic(t *testing.T) {
	audit := &recordingAudit{}
	processor, _ := newTestProcessor(&fakeScans{}, audit)

	if _, err := processor.Process(context.Background(), "gate-1", frame(t, FrameHeartbeat, HeartbeatPayload{})); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(audit.entries) != 2 || audit.entries[0] != "incoming:heartbeat" || audit.entries[1] != "outgoing:heartbeat_ack" {
		t.Fatalf("audit trail incomplete: %v", audit.entries)
	}
}

func TestProcessorRejectsUnknownFrameType(t *testing.T) {
	processor, _ := newTestProcessor(&fakeScans{}, nil)
	if _, err := processor.Process(context.Background(), "gate-1", []byte(`{"type":"reboot"}`)); err == nil {
		t.Fatal("expected error for unsupported frame type")
	}
}

func TestProcessorRejectsMalformedFrame(t *testing.T) {
	processor, _ := newTestProcessor(&fakeScans{}, nil)
	if _, err := processor.Process(context.Background(), "gate-1", []byte(`not json`)); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := processor.Process(context.Background(), "gate-1", []byte(`{"payload":{}}`)); err == nil {
		t.Fatal("expected missing-type error")
	}
}

type capturingBroadcaster struct {
	frames [][]byte
}

func (b *capturingBroadcaster) Broadcast(msg []byte) {
	b.frames = append(b.frames, msg)
}

func TestCommanderEncodesBarrierCommand(t *testing.T) {
	broadcaster := &capturingBroadcaster{}
	commander := NewCommander(broadcaster, zap.NewNop())

	commander.OpenBarrier(CheckpointExit)
	commander.Display(CheckpointExit, DisplayFee, "Phi gui xe", "10000 VND")
	commander.SlotSummary(3, 10)

	if len(broadcaster.frames) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(broadcaster.frames))
	}

	var barrier Frame
	if err := json.Unmarshal(broadcaster.frames[0], &barrier); err != nil {
		t.Fatalf("decode barrier frame: %v", err)
	}
	if barrier.Type != CommandOpenBarrier {
		t.Fatalf("unexpected frame type %q", barrier.Type)
	}
	var body OpenBarrierPayload
	if err := json.Unmarshal(barrier.Payload, &body); err != nil {
		t.Fatalf("decode barrier payload: %v", err)
	}
	if body.Checkpoint != CheckpointExit {
		t.Fatalf("unexpected checkpoint %q", body.Checkpoint)
	}
}
