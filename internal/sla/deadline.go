// Package sla holds the pure deadline arithmetic and timer classification
// used by the SLA monitor. Nothing here reads the wall clock.
package sla

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// DefaultWarningFraction is the share of the allowed window after which a timer warns.
const DefaultWarningFraction = 0.8

// ErrInvalidPolicy signals a priority policy whose duration cannot produce a deadline.
var ErrInvalidPolicy = errors.New("invalid sla policy")

// Window is the pair of instants derived for one timer.
type Window struct {
	Deadline  time.Time
	WarningAt time.Time
}

// Calculator derives deadlines for a fixed warning fraction.
type Calculator struct {
	warningFraction float64
}

// NewCalculator validates the warning fraction, which must lie strictly between 0 and 1.
func NewCalculator(warningFraction float64) (Calculator, error) {
	if math.IsNaN(warningFraction) || warningFraction <= 0 || warningFraction >= 1 {
		return Calculator{}, fmt.Errorf("warning fraction %v must be between 0 and 1 exclusive", warningFraction)
	}
	return Calculator{warningFraction: warningFraction}, nil
}

// WarningFraction returns the configured fraction.
func (c Calculator) WarningFraction() float64 {
	return c.warningFraction
}

// Compute returns the deadline and warning threshold for a timer started at createdAt.
// All arithmetic happens on UTC instants.
func (c Calculator) Compute(createdAt time.Time, allowedHours float64) (Window, error) {
	if math.IsNaN(allowedHours) || math.IsInf(allowedHours, 0) || allowedHours <= 0 {
		return Window{}, fmt.Errorf("%w: allowed hours %v", ErrInvalidPolicy, allowedHours)
	}
	fraction := c.warningFraction
	if fraction == 0 {
		fraction = DefaultWarningFraction
	}
	start := createdAt.UTC()
	allowed := hoursToDuration(allowedHours)
	return Window{
		Deadline:  start.Add(allowed),
		WarningAt: start.Add(hoursToDuration(allowedHours * fraction)),
	}, nil
}

func hoursToDuration(hours float64) time.Duration {
	return time.Duration(math.Round(hours * float64(time.Hour)))
}
