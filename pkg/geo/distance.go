// Package geo measures distances between typed geometries and query points.
// Closest points are found in planar longitude/latitude space and the chosen
// Metric is applied between that closest point and the query.
package geo

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/1F47E/geojson-rtree/pkg/models"
	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"
)

// ErrIndeterminate signals a closest-point search that found nothing to
// measure. Validated geometries never produce it.
var ErrIndeterminate = errors.New("geo: closest point is indeterminate")

// EarthRadius in meters, as used by orb/geo.
const EarthRadius = orb.EarthRadius

// Metric selects how the distance between two coordinates is measured.
type Metric int

const (
	// Haversine is the great-circle distance in meters.
	Haversine Metric = iota
	// Planar is the euclidean distance in coordinate units.
	Planar
)

// ParseMetric accepts "haversine" or "planar".
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "haversine":
		return Haversine, nil
	case "planar":
		return Planar, nil
	default:
		return Haversine, fmt.Errorf("unknown metric %q", s)
	}
}

func (m Metric) String() string {
	if m == Planar {
		return "planar"
	}
	return "haversine"
}

// Unit names the unit distances are reported in.
func (m Metric) Unit() string {
	if m == Planar {
		return "deg"
	}
	return "m"
}

// Between returns the distance between two coordinates.
func (m Metric) Between(a, b orb.Point) float64 {
	if m == Planar {
		return planar.Distance(a, b)
	}
	return orbgeo.DistanceHaversine(a, b)
}

// Distance is 0 when q lies on or inside g, otherwise the metric distance from
// q to the closest point of g. It panics with ErrIndeterminate for empty
// geometries.
func Distance(m Metric, g orb.Geometry, q orb.Point) float64 {
	c := ClosestPoint(g, q)
	switch c.Kind {
	case Intersection:
		return 0
	case SinglePoint:
		return m.Between(c.Point, q)
	default:
		panic(fmt.Errorf("%w: %T", ErrIndeterminate, g))
	}
}

// BoundDistance is the smallest distance from q to any point of box. No
// geometry inside box can be closer to q than this.
func BoundDistance(m Metric, box models.BoundingBox, q orb.Point) float64 {
	if box.Contains(q) {
		return 0
	}
	if m == Planar {
		return planar.Distance(q, box.Clamp(q))
	}

	if q[0] >= box.MinX() && q[0] <= box.MaxX() {
		return orbgeo.DistanceHaversine(q, box.Clamp(q))
	}

	best := math.Inf(1)
	for _, lon := range [2]float64{box.MinX(), box.MaxX()} {
		for _, lat := range meridianCandidates(q, lon, box.MinY(), box.MaxY()) {
			if d := orbgeo.DistanceHaversine(q, orb.Point{lon, lat}); d < best {
				best = d
			}
		}
	}
	return best
}

// meridianCandidates returns the latitudes on the meridian segment at lon
// that may be nearest to q: the clamped foot of the great-circle
// perpendicular and both segment ends.
func meridianCandidates(q orb.Point, lon, minLat, maxLat float64) [3]float64 {
	dLon := deg2rad(lon - q[0])
	lat := deg2rad(q[1])
	foot := rad2deg(math.Atan2(math.Sin(lat), math.Cos(lat)*math.Cos(dLon)))
	foot = clamp(foot, -90, 90)
	return [3]float64{clamp(foot, minLat, maxLat), minLat, maxLat}
}

// Around returns a box that holds every point within distance d of q. For
// Haversine the box may reach past ±180° longitude; Wrap splits it.
func Around(m Metric, q orb.Point, d float64) models.BoundingBox {
	if m == Planar {
		return models.NewBoundingBox(q[0]-d, q[1]-d, q[0]+d, q[1]+d)
	}

	angular := d / EarthRadius
	dLat := rad2deg(angular)
	minLat, maxLat := q[1]-dLat, q[1]+dLat
	if minLat <= -90 || maxLat >= 90 || angular >= math.Pi/2 {
		return models.NewBoundingBox(-180, math.Max(minLat, -90), 180, math.Min(maxLat, 90))
	}

	ratio := math.Sin(angular) / math.Cos(deg2rad(q[1]))
	if ratio >= 1 {
		return models.NewBoundingBox(-180, minLat, 180, maxLat)
	}
	dLon := rad2deg(math.Asin(ratio))
	return models.NewBoundingBox(q[0]-dLon, minLat, q[0]+dLon, maxLat)
}

// Wrap splits a search box that reaches past ±180° longitude into parts
// inside [-180, 180], carrying the overflow across the antimeridian.
func Wrap(box models.BoundingBox) []models.BoundingBox {
	minX, maxX := box.MinX(), box.MaxX()
	if maxX-minX >= 360 {
		return []models.BoundingBox{models.NewBoundingBox(-180, box.MinY(), 180, box.MaxY())}
	}

	var parts []models.BoundingBox
	if minX < -180 {
		parts = append(parts, models.NewBoundingBox(minX+360, box.MinY(), 180, box.MaxY()))
		minX = -180
	}
	if maxX > 180 {
		parts = append(parts, models.NewBoundingBox(-180, box.MinY(), maxX-360, box.MaxY()))
		maxX = 180
	}
	return append(parts, models.NewBoundingBox(minX, box.MinY(), maxX, box.MaxY()))
}

func deg2rad(d float64) float64 { return d * math.Pi / 180.0 }
func rad2deg(r float64) float64 { return r * 180.0 / math.Pi }

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
