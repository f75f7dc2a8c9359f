package fee

import (
	"errors"
	"testing"
	"time"
)

func testCalculator() *Calculator {
	return NewCalculator(Policy{
		FreeMinutes: 15,
		BillingUnit: time.Hour,
		UnitRate:    5000,
		MinFee:      5000,
	})
}

func at(hour, min int) time.Time {
	return time.Date(2024, time.March, 10, hour, min, 0, 0, time.UTC)
}

func TestComputeWithinGracePeriod(t *testing.T) {
	calc := testCalculator()

	breakdown, err := calc.Compute(at(10, 0), at(10, 10))
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if breakdown.Fee != 0 {
		t.Fatalf("expected zero fee, got %d", breakdown.Fee)
	}
	if breakdown.DurationMinutes != 10 {
		t.Fatalf("expected 10 minutes, got %d", breakdown.DurationMinutes)
	}
	if breakdown.UnitsCharged != 0 {
		t.Fatalf("expected 0 units, got %d", breakdown.UnitsCharged)
	}
}

func TestComputeGraceBoundaryIsFree(t *testing.T) {
	calc := testCalculator()

	breakdown, err := calc.Compute(at(10, 0), at(10, 15))
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if breakdown.Fee != 0 {
		t.Fatalf("exactly 15 minutes should be free, got %d", breakdown.Fee)
	}
}

func TestComputeZeroDuration(t *testing.T) {
	calc := testCalculator()

	breakdown, err := calc.Compute(at(10, 0), at(10, 0))
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if breakdown.Fee != 0 || breakdown.DurationMinutes != 0 {
		t.Fatalf("zero-duration stay should be free, got %+v", breakdown)
	}
}

func TestComputeRoundsUpToWholeUnits(t *testing.T) {
	calc := testCalculator()

	breakdown, err := calc.Compute(at(10, 0), at(11, 5))
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if breakdown.UnitsCharged != 2 {
		t.Fatalf("65 minutes should charge 2 units, got %d", breakdown.UnitsCharged)
	}
	if breakdown.Fee != 10000 {
		t.Fatalf("expected fee 10000, got %d", breakdown.Fee)
	}
}

func TestComputeAppliesMinimumFee(t *testing.T) {
	calc := testCalculator()

	// 20 minutes: past grace, still under one unit.
	breakdown, err := calc.Compute(at(10, 0), at(10, 20))
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if breakdown.UnitsCharged != 1 {
		t.Fatalf("expected 1 unit, got %d", breakdown.UnitsCharged)
	}
	if breakdown.Fee != 5000 {
		t.Fatalf("expected minimum fee 5000, got %d", breakdown.Fee)
	}
}

func TestComputeRejectsInvertedInterval(t *testing.T) {
	calc := testCalculator()

	_, err := calc.Compute(at(11, 0), at(10, 0))
	if !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}
}

func TestComputeIsDeterministic(t *testing.T) {
	calc := testCalculator()

	first, err := calc.Compute(at(8, 0), at(13, 37))
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	second, err := calc.Compute(at(8, 0), at(13, 37))
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if first != second {
		t.Fatalf("same inputs produced different breakdowns: %+v vs %+v", first, second)
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		minutes int
		want    string
	}{
		{5, "5m"},
		{60, "1h"},
		{65, "1h 5m"},
		{125, "2h 5m"},
	}
	for _, tc := range cases {
		if got := FormatDuration(tc.minutes); got != tc.want {
			t.Errorf("FormatDuration(%d) = %q, want %q", tc.minutes, got, tc.want)
		}
	}
}
