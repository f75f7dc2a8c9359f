package fee

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidInterval is returned when the exit timestamp precedes entry.
var ErrInvalidInterval = errors.New("fee: exit time before entry time")

// Policy holds the tariff configuration. Duration is rounded up to whole
// billing units; the first FreeMinutes are exempt entirely.
type Policy struct {
	FreeMinutes int
	BillingUnit time.Duration
	UnitRate    int64
	MinFee      int64
	Currency    string
}

// Breakdown is the result of a fee computation. It is recomputed on every
// exit scan and only persisted when the exit is finalized.
type Breakdown struct {
	Fee             int64  `json:"fee"`
	DurationMinutes int    `json:"duration_minutes"`
	UnitsCharged    int    `json:"units_charged"`
	Breakdown       string `json:"breakdown"`
}

// Calculator computes parking fees. It is a pure function of the two
// timestamps and the policy.
type Calculator struct {
	policy Policy
}

// NewCalculator returns a calculator, applying defaults for zero policy fields.
func NewCalculator(policy Policy) *Calculator {
	if policy.BillingUnit <= 0 {
		policy.BillingUnit = time.Hour
	}
	if policy.Currency == "" {
		policy.Currency = "VND"
	}
	return &Calculator{policy: policy}
}

// Policy returns the active tariff.
func (c *Calculator) Policy() Policy {
	return c.policy
}

// Compute returns the fee breakdown for a stay from entry to exit.
func (c *Calculator) Compute(entry, exit time.Time) (Breakdown, error) {
	if exit.Before(entry) {
		return Breakdown{}, ErrInvalidInterval
	}

	minutes := int(exit.Sub(entry) / time.Minute)

	if minutes <= c.policy.FreeMinutes {
		return Breakdown{
			DurationMinutes: minutes,
			Breakdown:       fmt.Sprintf("free (within %d minute grace period)", c.policy.FreeMinutes),
		}, nil
	}

	unitMinutes := int(c.policy.BillingUnit / time.Minute)
	units := (minutes + unitMinutes - 1) / unitMinutes
	amount := int64(units) * c.policy.UnitRate
	if amount < c.policy.MinFee {
		amount = c.policy.MinFee
	}

	return Breakdown{
		Fee:             amount,
		DurationMinutes: minutes,
		UnitsCharged:    units,
		Breakdown:       fmt.Sprintf("%d x %d = %d %s", units, c.policy.UnitRate, amount, c.policy.Currency),
	}, nil
}

// FormatDuration renders a minute count as "Xh Ym".
func FormatDuration(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	hours := minutes / 60
	rest := minutes % 60
	if rest == 0 {
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%dh %dm", hours, rest)
}
