package models

// Slot is one physical parking space. Invariant: IsOccupied is true iff
// CurrentSessionID refers to an open session.
type Slot struct {
	SlotNumber       int    `db:"slot_number" json:"slot_number"`
	IsOccupied       bool   `db:"is_occupied" json:"is_occupied"`
	CurrentSessionID *int64 `db:"current_session_id" json:"current_session_id,omitempty"`
}

// SlotStats is the occupancy summary shown on dashboards and gate displays.
type SlotStats struct {
	Total     int `json:"total"`
	Occupied  int `json:"occupied"`
	Available int `json:"available"`
}
