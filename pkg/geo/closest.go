package geo

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// ClosestKind classifies the outcome of a closest-point search.
type ClosestKind int

const (
	// Indeterminate means the geometry has no points to measure against.
	Indeterminate ClosestKind = iota
	// Intersection means the query point lies on or inside the geometry.
	Intersection
	// SinglePoint means Closest.Point is the unique nearest point.
	SinglePoint
)

func (k ClosestKind) String() string {
	switch k {
	case Intersection:
		return "intersection"
	case SinglePoint:
		return "single_point"
	default:
		return "indeterminate"
	}
}

// Closest is the point of a geometry nearest to a query point.
type Closest struct {
	Kind  ClosestKind
	Point orb.Point
}

// ClosestPoint finds the point of g nearest to q in planar coordinate space.
func ClosestPoint(g orb.Geometry, q orb.Point) Closest {
	switch v := g.(type) {
	case orb.Point:
		return closestOf(v, q)
	case orb.MultiPoint:
		return closestInPoints(v, q)
	case orb.LineString:
		return closestOnLine(v, q)
	case orb.MultiLineString:
		best := Closest{}
		for _, ls := range v {
			best = nearer(best, closestOnLine(ls, q), q)
		}
		return best
	case orb.Polygon:
		if len(v) == 0 || len(v[0]) == 0 {
			return Closest{}
		}
		if planar.PolygonContains(v, q) {
			return Closest{Kind: Intersection, Point: q}
		}
		return closestOnRings(v, q)
	case orb.MultiPolygon:
		best := Closest{}
		for _, p := range v {
			best = nearer(best, ClosestPoint(p, q), q)
			if best.Kind == Intersection {
				return best
			}
		}
		return best
	case orb.Collection:
		best := Closest{}
		for _, leaf := range v {
			best = nearer(best, ClosestPoint(leaf, q), q)
			if best.Kind == Intersection {
				return best
			}
		}
		return best
	default:
		return Closest{}
	}
}

func closestOf(p, q orb.Point) Closest {
	if p == q {
		return Closest{Kind: Intersection, Point: q}
	}
	return Closest{Kind: SinglePoint, Point: p}
}

func closestInPoints(points []orb.Point, q orb.Point) Closest {
	best := Closest{}
	for _, p := range points {
		best = nearer(best, closestOf(p, q), q)
		if best.Kind == Intersection {
			return best
		}
	}
	return best
}

func closestOnLine(ls orb.LineString, q orb.Point) Closest {
	switch len(ls) {
	case 0:
		return Closest{}
	case 1:
		return closestOf(ls[0], q)
	}

	best := Closest{}
	for i := 0; i < len(ls)-1; i++ {
		best = nearer(best, closestOf(projectOnSegment(ls[i], ls[i+1], q), q), q)
		if best.Kind == Intersection {
			return best
		}
	}
	return best
}

// closestOnRings scans every ring edge, including the implicit closing edge
// of an unclosed ring.
func closestOnRings(p orb.Polygon, q orb.Point) Closest {
	best := Closest{}
	for _, r := range p {
		if len(r) == 0 {
			continue
		}
		best = nearer(best, closestOnLine(orb.LineString(r), q), q)
		if last := r[len(r)-1]; last != r[0] {
			best = nearer(best, closestOf(projectOnSegment(last, r[0], q), q), q)
		}
	}
	return best
}

// projectOnSegment returns the point of segment ab nearest to q.
func projectOnSegment(a, b, q orb.Point) orb.Point {
	dx, dy := b[0]-a[0], b[1]-a[1]
	if dx == 0 && dy == 0 {
		return a
	}

	t := ((q[0]-a[0])*dx + (q[1]-a[1])*dy) / (dx*dx + dy*dy)
	switch {
	case t <= 0:
		return a
	case t >= 1:
		return b
	}
	return orb.Point{a[0] + t*dx, a[1] + t*dy}
}

// nearer picks the candidate closer to q. Indeterminate loses to anything.
func nearer(a, b Closest, q orb.Point) Closest {
	switch {
	case a.Kind == Indeterminate:
		return b
	case b.Kind == Indeterminate:
		return a
	case a.Kind == Intersection:
		return a
	case b.Kind == Intersection:
		return b
	}
	if planar.DistanceSquared(b.Point, q) < planar.DistanceSquared(a.Point, q) {
		return b
	}
	return a
}
