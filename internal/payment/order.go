package payment

import (
	"strings"

	"github.com/google/uuid"
)

// NewOrderID generates a short identifier unique enough to match a single
// transfer inside the gateway's recent-transaction window.
func NewOrderID() string {
	return "P" + strings.ToUpper(uuid.NewString()[:8])
}
