// Package projection converts WGS-84 coordinates into the GCJ-02 display
// datum used by mainland China map tile providers, so that recorded paths
// line up with those tiles.
package projection

import (
	"iter"
	"math"

	"github.com/stuartshay/workout-tracker/internal/trace"
)

// Variables rather than constants: compile-time constant folding is exact,
// and the offset has to be evaluated in float64 arithmetic step by step.
var (
	pi = 3.14159265358979324

	// Krasovsky 1940 ellipsoid
	semiMajorAxis  = 6378245.0
	eccentricitySq = 0.00669342162296594323
)

// Bounding box outside which the datum applies no offset
const (
	MinLongitude = 72.004
	MaxLongitude = 137.8347
	MinLatitude  = 0.8293
	MaxLatitude  = 55.8271
)

// Point is a coordinate pair in the display datum
type Point struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// OutOfRegion reports whether a WGS-84 coordinate lies outside the area the
// display datum offsets
func OutOfRegion(lat, lon float64) bool {
	if lon < MinLongitude || lon > MaxLongitude {
		return true
	}
	if lat < MinLatitude || lat > MaxLatitude {
		return true
	}
	return false
}

// Project converts a WGS-84 coordinate to the display datum. Coordinates
// outside the region are returned unchanged.
//
// The polynomial must match the tile providers' offset term for term;
// reordering operations shifts the output enough to misalign tracks.
func Project(p Point) Point {
	if OutOfRegion(p.Latitude, p.Longitude) {
		return p
	}

	lat := p.Latitude
	lon := p.Longitude
	dLat := transformLat(lon-105.0, lat-35.0)
	dLon := transformLon(lon-105.0, lat-35.0)
	radLat := lat / 180.0 * pi
	magic := math.Sin(radLat)
	magic = 1 - eccentricitySq*magic*magic
	sqrtMagic := math.Sqrt(magic)
	dLat = (dLat * 180.0) / ((semiMajorAxis * (1 - eccentricitySq)) / (magic * sqrtMagic) * pi)
	dLon = (dLon * 180.0) / (semiMajorAxis / sqrtMagic * math.Cos(radLat) * pi)

	return Point{Latitude: lat + dLat, Longitude: lon + dLon}
}

// ProjectSample projects the position of a trace sample
func ProjectSample(s trace.Sample) Point {
	return Project(Point{Latitude: s.Latitude, Longitude: s.Longitude})
}

// Path lazily yields the projected position of every sample, in order
func Path(samples []trace.Sample) iter.Seq[Point] {
	return func(yield func(Point) bool) {
		for _, s := range samples {
			if !yield(ProjectSample(s)) {
				return
			}
		}
	}
}

func transformLat(x, y float64) float64 {
	ret := -100.0 + 2.0*x + 3.0*y + 0.2*y*y
	ret += 0.1*x*y + 0.2*math.Sqrt(math.Abs(x))
	ret += (20.0*math.Sin(6.0*x*pi) + 20.0*math.Sin(2.0*x*pi)) * 2.0 / 3.0
	ret += (20.0*math.Sin(y*pi) + 40.0*math.Sin(y/3.0*pi)) * 2.0 / 3.0
	ret += (160.0*math.Sin(y/12.0*pi) + 320*math.Sin(y*pi/30.0)) * 2.0 / 3.0
	return ret
}

func transformLon(x, y float64) float64 {
	ret := 300.0 + x + 2.0*y + 0.1*x*x
	ret += 0.1*x*y + 0.1*math.Sqrt(math.Abs(x))
	ret += (20.0*math.Sin(6.0*x*pi) + 20.0*math.Sin(2.0*x*pi)) * 2.0 / 3.0
	ret += (20.0*math.Sin(x*pi) + 40.0*math.Sin(x/3.0*pi)) * 2.0 / 3.0
	ret += (150.0*math.Sin(x/12.0*pi) + 300.0*math.Sin(x/30.0*pi)) * 2.0 / 3.0
	return ret
}
