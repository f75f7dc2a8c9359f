package parking

import (
	"parkgate/internal/fee"
	"parkgate/internal/models"
)

// EventType identifies a domain event emitted by the Coordinator.
type EventType string

// Domain events. Consumers react to these (barrier actuation, displays,
// dashboards); the Coordinator itself never talks to hardware.
const (
	EventEntryAccepted EventType = "entry_accepted"
	EventEntryRejected EventType = "entry_rejected"
	EventExitReady     EventType = "exit_ready"
	EventExitCompleted EventType = "exit_completed"
	EventExitRejected  EventType = "exit_rejected"
	EventSlotsChanged  EventType = "slots_changed"
)

// Event is a domain event. Fields are populated per type: Session for entry
// and exit events, Breakdown for exit_ready, Amount/Method for
// exit_completed, Stats for slots_changed, Reason for rejections.
type Event struct {
	Type      EventType         `json:"type"`
	CardID    string            `json:"card_id,omitempty"`
	Session   *models.Session   `json:"session,omitempty"`
	Breakdown *fee.Breakdown    `json:"breakdown,omitempty"`
	Amount    int64             `json:"amount,omitempty"`
	Method    string            `json:"method,omitempty"`
	Stats     *models.SlotStats `json:"stats,omitempty"`
	Reason    string            `json:"reason,omitempty"`
}
