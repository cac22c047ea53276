package calculator

import (
	"math"
	"testing"
	"time"

	"github.com/stuartshay/workout-tracker/internal/trace"
)

var start = time.Date(2025, 8, 8, 7, 0, 0, 0, time.UTC)

// lineTrace builds n samples due north along a meridian, stepMeters apart,
// one every interval
func lineTrace(n int, stepMeters float64, interval time.Duration) []trace.Sample {
	stepDeg := stepMeters / EarthRadiusMeters * 180 / math.Pi
	samples := make([]trace.Sample, n)
	for i := range samples {
		samples[i] = trace.Sample{
			Timestamp:          start.Add(time.Duration(i) * interval),
			Latitude:           40.0 + float64(i)*stepDeg,
			Longitude:          -74.0,
			HorizontalAccuracy: 5,
		}
	}
	return samples
}

func TestDistanceBetween(t *testing.T) {
	tests := []struct {
		name      string
		lat1      float64
		lon1      float64
		lat2      float64
		lon2      float64
		expected  float64
		tolerance float64
	}{
		{
			name:      "Same location",
			lat1:      40.736097,
			lon1:      -74.039373,
			lat2:      40.736097,
			lon2:      -74.039373,
			expected:  0.0,
			tolerance: 0.001,
		},
		{
			// pins the sphere radius: 6371 km * pi / 180
			name:      "One degree of latitude",
			lat1:      0,
			lon1:      0,
			lat2:      1,
			lon2:      0,
			expected:  111194.927,
			tolerance: 0.01,
		},
		{
			name:      "New York to Jersey City (~3.3 km)",
			lat1:      40.736097,
			lon1:      -74.039373,
			lat2:      40.728333,
			lon2:      -74.077778,
			expected:  3350,
			tolerance: 500,
		},
		{
			name:      "New York to Boston (~306 km)",
			lat1:      40.7128,
			lon1:      -74.0060,
			lat2:      42.3601,
			lon2:      -71.0589,
			expected:  306000,
			tolerance: 5000,
		},
		{
			name:      "Equator crossing",
			lat1:      1.0,
			lon1:      0.0,
			lat2:      -1.0,
			lon2:      0.0,
			expected:  222390,
			tolerance: 100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := DistanceBetween(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if math.Abs(result-tt.expected) > tt.tolerance {
				t.Errorf("DistanceBetween() = %.2f m, expected %.2f m (±%.2f m)", result, tt.expected, tt.tolerance)
			}
		})
	}
}

func TestTotalDistance(t *testing.T) {
	t.Run("empty and single sample", func(t *testing.T) {
		if d := TotalDistance(nil, DefaultMinStepMeters); d != 0 {
			t.Errorf("expected 0 for empty trace, got %.4f", d)
		}
		if d := TotalDistance(lineTrace(1, 10, time.Second), DefaultMinStepMeters); d != 0 {
			t.Errorf("expected 0 for single sample, got %.4f", d)
		}
	})

	t.Run("straight line reproduces geodesic length", func(t *testing.T) {
		samples := lineTrace(101, 5, time.Second)
		want := 500.0
		if d := TotalDistance(samples, DefaultMinStepMeters); math.Abs(d-want) > 1e-3 {
			t.Errorf("TotalDistance() = %.9f m, expected %.1f m", d, want)
		}
	})

	t.Run("jitter below threshold is ignored", func(t *testing.T) {
		samples := lineTrace(50, 0.5, time.Second)
		if d := TotalDistance(samples, DefaultMinStepMeters); d != 0 {
			t.Errorf("expected standing jitter to contribute 0, got %.4f", d)
		}
	})

	t.Run("step exactly at threshold counts", func(t *testing.T) {
		samples := lineTrace(2, 2, time.Second)
		d := Distance(samples[0], samples[1])
		if got := TotalDistance(samples, d); got != d {
			t.Errorf("expected step equal to threshold to count, got %.6f", got)
		}
	})
}

func TestTotalDistanceMonotonicAndColocatedInvariant(t *testing.T) {
	samples := lineTrace(30, 7, time.Second)

	prev := 0.0
	for n := 1; n <= len(samples); n++ {
		d := TotalDistance(samples[:n], DefaultMinStepMeters)
		if d < prev {
			t.Fatalf("distance decreased from %.4f to %.4f at n=%d", prev, d, n)
		}
		prev = d
	}

	// follow each sample with a colocated one half a second later
	var doubled []trace.Sample
	for _, s := range samples {
		dup := s
		dup.Timestamp = s.Timestamp.Add(500 * time.Millisecond)
		doubled = append(doubled, s, dup)
	}
	if got := TotalDistance(doubled, DefaultMinStepMeters); math.Abs(got-prev) > 1e-9 {
		t.Errorf("colocated samples changed distance: %.9f vs %.9f", got, prev)
	}
}

func TestDistance(t *testing.T) {
	a := trace.Sample{Latitude: 40.736097, Longitude: -74.039373}
	b := trace.Sample{Latitude: 40.737, Longitude: -74.039}
	d := Distance(a, b)
	if d < 90 || d > 110 {
		t.Errorf("Distance() = %.2f m, expected ~100 m", d)
	}
	if Distance(b, a) != d {
		t.Error("expected Distance to be symmetric")
	}
}

func BenchmarkDistanceBetween(b *testing.B) {
	lat1, lon1 := 40.736097, -74.039373
	lat2, lon2 := 40.748817, -73.985428

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		DistanceBetween(lat1, lon1, lat2, lon2)
	}
}

func BenchmarkTotalDistance(b *testing.B) {
	samples := lineTrace(3600, 3, time.Second)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		TotalDistance(samples, DefaultMinStepMeters)
	}
}
