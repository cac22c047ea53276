package calculator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/stuartshay/workout-tracker/internal/trace"
)

func withAltitudes(alts ...float64) []trace.Sample {
	samples := make([]trace.Sample, len(alts))
	for i, a := range alts {
		samples[i] = trace.Sample{
			Timestamp: start.Add(time.Duration(i) * time.Second),
			Latitude:  40.0,
			Longitude: -74.0,
			Altitude:  a,
		}
	}
	return samples
}

func TestTotalAscentDescent(t *testing.T) {
	tests := []struct {
		name    string
		alts    []float64
		ascent  float64
		descent float64
	}{
		{"empty", nil, 0, 0},
		{"single", []float64{120}, 0, 0},
		{"flat", []float64{10, 10, 10}, 0, 0},
		{"climb", []float64{10, 12, 15.5}, 5.5, 0},
		{"drop", []float64{30, 20, 5}, 0, 25},
		{"noisy hill", []float64{100, 101, 100.5, 103, 99}, 3.5, 4.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			samples := withAltitudes(tt.alts...)
			assert.InDelta(t, tt.ascent, TotalAscent(samples), 1e-9)
			assert.InDelta(t, tt.descent, TotalDescent(samples), 1e-9)
		})
	}
}
