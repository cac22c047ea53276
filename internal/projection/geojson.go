package projection

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// GeoJSON renders a projected path for map overlays. A path of two or more
// points is a LineString feature, a single point a Point feature and an
// empty path an empty collection. GeoJSON positions are [lon, lat].
func GeoJSON(points []Point, props map[string]any) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	var geometry orb.Geometry
	switch len(points) {
	case 0:
		return fc
	case 1:
		geometry = toOrb(points[0])
	default:
		line := make(orb.LineString, len(points))
		for i, p := range points {
			line[i] = toOrb(p)
		}
		geometry = line
	}

	f := geojson.NewFeature(geometry)
	for k, v := range props {
		f.Properties[k] = v
	}
	f.Properties["points"] = len(points)
	return fc.Append(f)
}

func toOrb(p Point) orb.Point {
	return orb.Point{p.Longitude, p.Latitude}
}
