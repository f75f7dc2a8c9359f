package models

import "time"

// Payment status values.
const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"
)

// Session represents one parked-vehicle visit, from entry scan to paid exit.
// Sessions are append-only history; a session is open while ExitTime is nil.
type Session struct {
	ID            int64      `db:"id" json:"id"`
	CardID        string     `db:"card_id" json:"card_id"`
	PlateNumber   string     `db:"plate_number" json:"plate_number"`
	SlotNumber    int        `db:"slot_number" json:"slot_number"`
	EntryTime     time.Time  `db:"entry_time" json:"entry_time"`
	ExitTime      *time.Time `db:"exit_time" json:"exit_time,omitempty"`
	Fee           int64      `db:"fee" json:"fee"`
	PaymentStatus string     `db:"payment_status" json:"payment_status"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// Open reports whether the vehicle is still in the lot.
func (s *Session) Open() bool {
	return s.ExitTime == nil
}
