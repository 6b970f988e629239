// Package validate checks raw coordinate payloads before they are decoded
// into typed geometries.
package validate

import (
	"errors"
	"fmt"
	"math"

	"github.com/1F47E/geojson-rtree/pkg/record"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid geometry")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// Point requires exactly two finite components.
func Point(p record.Position) error {
	if len(p) != 2 {
		return invalid("position has %d components, want 2", len(p))
	}
	for _, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return invalid("position %v is not finite", []float64(p))
		}
	}
	return nil
}

func points(ps record.LineStringCoords) error {
	for i, p := range ps {
		if err := Point(p); err != nil {
			return fmt.Errorf("point %d: %w", i, err)
		}
	}
	return nil
}

// LineString requires valid points and a non-zero planar length, which
// rules out empty, single-point and fully coincident lines.
func LineString(ls record.LineStringCoords) error {
	if err := points(ls); err != nil {
		return err
	}

	line := make(orb.LineString, len(ls))
	for i, p := range ls {
		line[i] = orb.Point{p[0], p[1]}
	}
	if planar.Length(line) == 0 {
		return invalid("linestring of %d points has zero length", len(ls))
	}
	return nil
}

// Polygon requires at least one ring and no empty ring.
func Polygon(p record.PolygonCoords) error {
	if len(p) == 0 {
		return invalid("polygon has no rings")
	}
	for i, ring := range p {
		if len(ring) == 0 {
			return invalid("ring %d is empty", i)
		}
		if err := points(ring); err != nil {
			return fmt.Errorf("ring %d: %w", i, err)
		}
	}
	return nil
}

// MultiPoint requires at least one point, each with two finite components.
func MultiPoint(mp record.LineStringCoords) error {
	if len(mp) == 0 {
		return invalid("multipoint is empty")
	}
	return points(mp)
}

// MultiLineString requires at least one line and no empty line.
func MultiLineString(mls record.PolygonCoords) error {
	if len(mls) == 0 {
		return invalid("multilinestring is empty")
	}
	for i, ls := range mls {
		if len(ls) == 0 {
			return invalid("line %d is empty", i)
		}
		if err := points(ls); err != nil {
			return fmt.Errorf("line %d: %w", i, err)
		}
	}
	return nil
}

// MultiPolygon requires at least one polygon, no empty polygon and no empty ring.
func MultiPolygon(mp []record.PolygonCoords) error {
	if len(mp) == 0 {
		return invalid("multipolygon is empty")
	}
	for i, p := range mp {
		if err := Polygon(p); err != nil {
			return fmt.Errorf("polygon %d: %w", i, err)
		}
	}
	return nil
}

// GeometryCollection validates members in order and stops at the first
// failure.
func GeometryCollection(geometries []*record.Geometry) error {
	if len(geometries) == 0 {
		return invalid("geometry collection is empty")
	}
	for i, g := range geometries {
		if err := Geometry(g); err != nil {
			return fmt.Errorf("member %d: %w", i, err)
		}
	}
	return nil
}

// Geometry dispatches on the kind tag.
func Geometry(g *record.Geometry) error {
	if g == nil {
		return invalid("geometry is null")
	}

	switch g.Type {
	case record.KindPoint:
		if p, ok := g.Point(); ok {
			return Point(p)
		}
	case record.KindLineString:
		if ls, ok := g.LineString(); ok {
			return LineString(ls)
		}
	case record.KindPolygon:
		if p, ok := g.Polygon(); ok {
			return Polygon(p)
		}
	case record.KindMultiPoint:
		if mp, ok := g.MultiPoint(); ok {
			return MultiPoint(mp)
		}
	case record.KindMultiLineString:
		if mls, ok := g.MultiLineString(); ok {
			return MultiLineString(mls)
		}
	case record.KindMultiPolygon:
		if mp, ok := g.MultiPolygon(); ok {
			return MultiPolygon(mp)
		}
	case record.KindGeometryCollection:
		return GeometryCollection(g.Geometries)
	default:
		return invalid("unknown geometry type %q", g.Type)
	}
	return invalid("%s coordinates have unexpected shape %T", g.Type, g.Coordinates)
}
