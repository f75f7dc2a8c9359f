package models

import "time"

// Card is a registered RFID card.
type Card struct {
	ID          int64     `db:"id" json:"id"`
	CardID      string    `db:"card_id" json:"card_id"`
	OwnerName   string    `db:"owner_name" json:"owner_name"`
	PlateNumber string    `db:"plate_number" json:"plate_number"`
	Phone       string    `db:"phone" json:"phone"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
