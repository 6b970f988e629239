// Package bbox computes axis-aligned bounding boxes for typed geometries.
package bbox

import (
	"github.com/1F47E/geojson-rtree/pkg/models"
	"github.com/paulmach/orb"
)

// Point is the degenerate box of a single position
func Point(p orb.Point) models.BoundingBox {
	return models.NewBoundingBox(p[0], p[1], p[0], p[1])
}

// LineString covers every vertex
func LineString(ls orb.LineString) models.BoundingBox {
	return models.BoundingBoxFromBound(ls.Bound())
}

// Polygon covers every ring, holes included.
func Polygon(p orb.Polygon) models.BoundingBox {
	return models.BoundingBoxFromBound(polygonBound(p))
}

// MultiPoint covers every member point
func MultiPoint(mp orb.MultiPoint) models.BoundingBox {
	return models.BoundingBoxFromBound(mp.Bound())
}

// MultiLineString covers every vertex of every line
func MultiLineString(mls orb.MultiLineString) models.BoundingBox {
	return models.BoundingBoxFromBound(mls.Bound())
}

// MultiPolygon covers every ring of every polygon
func MultiPolygon(mp orb.MultiPolygon) models.BoundingBox {
	if len(mp) == 0 {
		return models.BoundingBox{}
	}
	b := polygonBound(mp[0])
	for _, p := range mp[1:] {
		b = b.Union(polygonBound(p))
	}
	return models.BoundingBoxFromBound(b)
}

// Collection is the union of the boxes of all flattened leaves.
func Collection(c orb.Collection) models.BoundingBox {
	leaves := Flatten(c)
	if len(leaves) == 0 {
		return models.BoundingBox{}
	}
	box := Compute(leaves[0])
	for _, g := range leaves[1:] {
		box = box.Union(Compute(g))
	}
	return box
}

// Compute dispatches on the concrete geometry type.
func Compute(g orb.Geometry) models.BoundingBox {
	switch v := g.(type) {
	case orb.Point:
		return Point(v)
	case orb.LineString:
		return LineString(v)
	case orb.Polygon:
		return Polygon(v)
	case orb.MultiPoint:
		return MultiPoint(v)
	case orb.MultiLineString:
		return MultiLineString(v)
	case orb.MultiPolygon:
		return MultiPolygon(v)
	case orb.Collection:
		return Collection(v)
	case nil:
		return models.BoundingBox{}
	default:
		return models.BoundingBoxFromBound(g.Bound())
	}
}

// Flatten returns the non-collection members of c in depth-first order.
// Each call builds a new slice.
func Flatten(c orb.Collection) []orb.Geometry {
	leaves := make([]orb.Geometry, 0, len(c))
	for _, g := range c {
		if nested, ok := g.(orb.Collection); ok {
			leaves = append(leaves, Flatten(nested)...)
			continue
		}
		leaves = append(leaves, g)
	}
	return leaves
}

func polygonBound(p orb.Polygon) orb.Bound {
	if len(p) == 0 {
		return orb.Bound{}
	}
	b := p[0].Bound()
	for _, r := range p[1:] {
		b = b.Union(r.Bound())
	}
	return b
}
