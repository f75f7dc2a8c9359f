package repository

import "errors"

var (
	// ErrCardNotFound indicates an unknown or deactivated card.
	ErrCardNotFound = errors.New("repository: card not found")
	// ErrCardExists indicates a duplicate card registration.
	ErrCardExists = errors.New("repository: card already registered")
	// ErrSessionNotFound indicates a stale or unknown session id.
	ErrSessionNotFound = errors.New("repository: session not found")
	// ErrSessionClosed indicates the session already has an exit time.
	ErrSessionClosed = errors.New("repository: session already closed")
	// ErrSlotOccupied indicates a reservation would violate the occupancy invariant.
	ErrSlotOccupied = errors.New("repository: slot already occupied")
	// ErrOperatorNotFound indicates an unknown operator account.
	ErrOperatorNotFound = errors.New("repository: operator not found")
)
