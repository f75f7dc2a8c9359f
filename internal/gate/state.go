package gate

import (
	"sync"
	"time"
)

// DeviceState is the runtime view of one gate controller.
type DeviceState struct {
	Connected     bool         `json:"connected"`
	LastHeartbeat time.Time    `json:"last_heartbeat"`
	SensorReports map[int]bool `json:"sensor_reports,omitempty"`
}

// StateStore keeps in-memory device data for dashboard lookups. Sensor
// reports are advisory; slot occupancy authority lives in the database.
type StateStore struct {
	mu      sync.RWMutex
	devices map[string]*DeviceState
}

// NewStateStore returns state store.
func NewStateStore() *StateStore {
	return &StateStore{devices: make(map[string]*DeviceState)}
}

func (s *StateStore) get(deviceID string) *DeviceState {
	state, ok := s.devices[deviceID]
	if !ok {
		state = &DeviceState{SensorReports: make(map[int]bool)}
		s.devices[deviceID] = state
	}
	return state
}

// MarkConnected records a device attach or detach.
func (s *StateStore) MarkConnected(deviceID string, connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(deviceID).Connected = connected
}

// MarkHeartbeat records liveness.
func (s *StateStore) MarkHeartbeat(deviceID string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.get(deviceID)
	state.Connected = true
	state.LastHeartbeat = at
}

// RecordSensor stores the latest infrared sample for a slot.
func (s *StateStore) RecordSensor(deviceID string, slotNumber int, occupied bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(deviceID).SensorReports[slotNumber] = occupied
}

// Snapshot returns a copy of current device state.
func (s *StateStore) Snapshot() map[string]DeviceState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make(map[string]DeviceState, len(s.devices))
	for id, st := range s.devices {
		copyState := DeviceState{
			Connected:     st.Connected,
			LastHeartbeat: st.LastHeartbeat,
			SensorReports: make(map[int]bool, len(st.SensorReports)),
		}
		for slot, occupied := range st.SensorReports {
			copyState.SensorReports[slot] = occupied
		}
		result[id] = copyState
	}
	return result
}
