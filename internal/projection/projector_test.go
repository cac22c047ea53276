package projection

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stuartshay/workout-tracker/internal/trace"
)

func TestOutOfRegion(t *testing.T) {
	tests := []struct {
		name string
		lat  float64
		lon  float64
		want bool
	}{
		{"New York", 40.0, -74.0, true},
		{"Beijing", 39.9087, 116.3975, false},
		{"Shanghai", 31.2304, 121.4737, false},
		{"west of box", 35.0, 72.0, true},
		{"west edge inclusive", 35.0, MinLongitude, false},
		{"east edge inclusive", 35.0, MaxLongitude, false},
		{"east of box", 35.0, 137.9, true},
		{"south of box", 0.5, 110.0, true},
		{"north edge inclusive", MaxLatitude, 110.0, false},
		{"north of box", 56.0, 110.0, true},
		{"Sydney", -33.8688, 151.2093, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OutOfRegion(tt.lat, tt.lon))
		})
	}
}

func TestProjectIdentityOutsideRegion(t *testing.T) {
	points := []Point{
		{Latitude: 40.0, Longitude: -74.0},
		{Latitude: 51.5074, Longitude: -0.1278},
		{Latitude: -33.8688, Longitude: 151.2093},
		{Latitude: 0, Longitude: 0},
	}
	for _, p := range points {
		assert.Equal(t, p, Project(p), "expected identity for %+v", p)
	}
}

func TestProjectBeijing(t *testing.T) {
	in := Point{Latitude: 39.9087, Longitude: 116.3975}
	out := Project(in)

	dLat := out.Latitude - in.Latitude
	dLon := out.Longitude - in.Longitude

	// GCJ-02 shifts central Beijing north-east by roughly 150 m and 500 m
	assert.Greater(t, dLat, 0.0010)
	assert.Less(t, dLat, 0.0020)
	assert.Greater(t, dLon, 0.0055)
	assert.Less(t, dLon, 0.0070)
}

func TestProjectReferenceValues(t *testing.T) {
	// Tiananmen, widely published WGS-84 / GCJ-02 pair
	out := Project(Point{Latitude: 39.90734, Longitude: 116.39089})
	assert.InDelta(t, 39.90874, out.Latitude, 0.0001)
	assert.InDelta(t, 116.39713, out.Longitude, 0.0001)
}

func TestProjectIsDeterministic(t *testing.T) {
	p := Point{Latitude: 22.5431, Longitude: 114.0579}
	first := Project(p)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Project(p))
	}
	assert.False(t, math.IsNaN(first.Latitude) || math.IsNaN(first.Longitude))
}

func TestPath(t *testing.T) {
	start := time.Date(2025, 8, 8, 7, 0, 0, 0, time.UTC)
	samples := []trace.Sample{
		{Timestamp: start, Latitude: 39.9087, Longitude: 116.3975},
		{Timestamp: start.Add(time.Second), Latitude: 40.0, Longitude: -74.0},
		{Timestamp: start.Add(2 * time.Second), Latitude: 31.2304, Longitude: 121.4737},
	}

	var got []Point
	for p := range Path(samples) {
		got = append(got, p)
	}

	require.Len(t, got, 3)
	assert.Equal(t, ProjectSample(samples[0]), got[0])
	assert.Equal(t, Point{Latitude: 40.0, Longitude: -74.0}, got[1])

	// early break stops iteration
	count := 0
	for range Path(samples) {
		count++
		break
	}
	assert.Equal(t, 1, count)
}

func BenchmarkProject(b *testing.B) {
	p := Point{Latitude: 39.9087, Longitude: 116.3975}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Project(p)
	}
}
