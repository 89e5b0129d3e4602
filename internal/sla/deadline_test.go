package sla

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCalculatorValidatesFraction(t *testing.T) {
	for _, f := range []float64{0, 1, -0.1, 1.2, math.NaN()} {
		_, err := NewCalculator(f)
		assert.Error(t, err, "fraction %v", f)
	}
	calc, err := NewCalculator(0.5)
	require.NoError(t, err)
	assert.Equal(t, 0.5, calc.WarningFraction())
}

func TestComputeWindow(t *testing.T) {
	calc, err := NewCalculator(DefaultWarningFraction)
	require.NoError(t, err)

	created := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	w, err := calc.Compute(created, 4)
	require.NoError(t, err)

	assert.Equal(t, created.Add(4*time.Hour), w.Deadline)
	assert.Equal(t, created.Add(3*time.Hour+12*time.Minute), w.WarningAt)
}

func TestComputeFractionalHours(t *testing.T) {
	calc, err := NewCalculator(DefaultWarningFraction)
	require.NoError(t, err)

	created := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	w, err := calc.Compute(created, 0.5)
	require.NoError(t, err)

	assert.Equal(t, created.Add(30*time.Minute), w.Deadline)
	assert.Equal(t, created.Add(24*time.Minute), w.WarningAt)
}

func TestComputeAcrossDSTUsesAbsoluteTime(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	calc, err := NewCalculator(DefaultWarningFraction)
	require.NoError(t, err)

	// Clocks jump from 02:00 to 03:00 local on 2025-03-30.
	created := time.Date(2025, 3, 30, 0, 30, 0, 0, loc)
	w, err := calc.Compute(created, 4)
	require.NoError(t, err)

	assert.Equal(t, 4*time.Hour, w.Deadline.Sub(created))
	assert.Equal(t, time.UTC, w.Deadline.Location())
}

func TestComputeRejectsNonPositiveHours(t *testing.T) {
	calc, err := NewCalculator(DefaultWarningFraction)
	require.NoError(t, err)

	for _, h := range []float64{0, -2, math.NaN(), math.Inf(1)} {
		_, err := calc.Compute(time.Now(), h)
		assert.ErrorIs(t, err, ErrInvalidPolicy, "hours %v", h)
	}
}

func TestZeroValueCalculatorFallsBackToDefault(t *testing.T) {
	created := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	w, err := Calculator{}.Compute(created, 10)
	require.NoError(t, err)
	assert.Equal(t, created.Add(8*time.Hour), w.WarningAt)
}
