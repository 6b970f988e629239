// Package codec converts between raw record coordinate payloads and typed orb
// geometries. Decoding assumes the payload has already been validated.
package codec

import (
	"errors"
	"fmt"

	"github.com/1F47E/geojson-rtree/pkg/record"
	"github.com/paulmach/orb"
)

var (
	ErrUnsupportedKind = errors.New("codec: unsupported geometry kind")
	ErrCoordinates     = errors.New("codec: coordinates do not match geometry kind")
)

// DecodePoint converts a position to an orb.Point
func DecodePoint(p record.Position) orb.Point {
	var pt orb.Point
	copy(pt[:], p)
	return pt
}

// EncodePoint converts an orb.Point to a two-component position
func EncodePoint(p orb.Point) record.Position {
	return record.Position{p[0], p[1]}
}

// DecodeLineString converts a list of positions to an orb.LineString
func DecodeLineString(ls record.LineStringCoords) orb.LineString {
	out := make(orb.LineString, len(ls))
	for i, p := range ls {
		out[i] = DecodePoint(p)
	}
	return out
}

// EncodeLineString is the inverse of DecodeLineString
func EncodeLineString(ls orb.LineString) record.LineStringCoords {
	return encodePoints(ls)
}

func decodeRing(r record.LineStringCoords) orb.Ring {
	return orb.Ring(DecodeLineString(r))
}

// DecodePolygon treats the first ring as the exterior and the rest as holes.
func DecodePolygon(p record.PolygonCoords) orb.Polygon {
	out := make(orb.Polygon, len(p))
	for i, r := range p {
		out[i] = decodeRing(r)
	}
	return out
}

// EncodePolygon is the inverse of DecodePolygon
func EncodePolygon(p orb.Polygon) record.PolygonCoords {
	out := make(record.PolygonCoords, len(p))
	for i, r := range p {
		out[i] = encodePoints(r)
	}
	return out
}

// DecodeMultiPoint converts a list of positions to an orb.MultiPoint
func DecodeMultiPoint(mp record.LineStringCoords) orb.MultiPoint {
	return orb.MultiPoint(DecodeLineString(mp))
}

// EncodeMultiPoint is the inverse of DecodeMultiPoint
func EncodeMultiPoint(mp orb.MultiPoint) record.LineStringCoords {
	return encodePoints(mp)
}

// DecodeMultiLineString converts a list of lines to an orb.MultiLineString
func DecodeMultiLineString(mls record.PolygonCoords) orb.MultiLineString {
	out := make(orb.MultiLineString, len(mls))
	for i, ls := range mls {
		out[i] = DecodeLineString(ls)
	}
	return out
}

// EncodeMultiLineString is the inverse of DecodeMultiLineString
func EncodeMultiLineString(mls orb.MultiLineString) record.PolygonCoords {
	out := make(record.PolygonCoords, len(mls))
	for i, ls := range mls {
		out[i] = encodePoints(ls)
	}
	return out
}

// DecodeMultiPolygon converts a list of polygons to an orb.MultiPolygon
func DecodeMultiPolygon(mp []record.PolygonCoords) orb.MultiPolygon {
	out := make(orb.MultiPolygon, len(mp))
	for i, p := range mp {
		out[i] = DecodePolygon(p)
	}
	return out
}

// EncodeMultiPolygon is the inverse of DecodeMultiPolygon
func EncodeMultiPolygon(mp orb.MultiPolygon) []record.PolygonCoords {
	out := make([]record.PolygonCoords, len(mp))
	for i, p := range mp {
		out[i] = EncodePolygon(p)
	}
	return out
}

// DecodeCollection decodes every member in order, recursing into nested
// collections.
func DecodeCollection(geometries []*record.Geometry) (orb.Collection, error) {
	out := make(orb.Collection, len(geometries))
	for i, g := range geometries {
		decoded, err := Decode(g)
		if err != nil {
			return nil, fmt.Errorf("member %d: %w", i, err)
		}
		out[i] = decoded
	}
	return out, nil
}

// EncodeCollection encodes every member in order, recursing into nested collections
func EncodeCollection(c orb.Collection) ([]*record.Geometry, error) {
	out := make([]*record.Geometry, len(c))
	for i, g := range c {
		encoded, err := Encode(g)
		if err != nil {
			return nil, fmt.Errorf("member %d: %w", i, err)
		}
		out[i] = encoded
	}
	return out, nil
}

// Decode converts a raw geometry of any kind.
func Decode(g *record.Geometry) (orb.Geometry, error) {
	if g == nil {
		return nil, fmt.Errorf("%w: nil geometry", ErrUnsupportedKind)
	}

	switch g.Type {
	case record.KindPoint:
		if p, ok := g.Point(); ok {
			return DecodePoint(p), nil
		}
	case record.KindLineString:
		if ls, ok := g.LineString(); ok {
			return DecodeLineString(ls), nil
		}
	case record.KindPolygon:
		if p, ok := g.Polygon(); ok {
			return DecodePolygon(p), nil
		}
	case record.KindMultiPoint:
		if mp, ok := g.MultiPoint(); ok {
			return DecodeMultiPoint(mp), nil
		}
	case record.KindMultiLineString:
		if mls, ok := g.MultiLineString(); ok {
			return DecodeMultiLineString(mls), nil
		}
	case record.KindMultiPolygon:
		if mp, ok := g.MultiPolygon(); ok {
			return DecodeMultiPolygon(mp), nil
		}
	case record.KindGeometryCollection:
		return DecodeCollection(g.Geometries)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedKind, g.Type)
	}
	return nil, fmt.Errorf("%w: %s holds %T", ErrCoordinates, g.Type, g.Coordinates)
}

// Encode converts a typed geometry back to its raw form. Only the seven
// GeoJSON kinds are accepted; orb.Ring and orb.Bound are rejected.
func Encode(g orb.Geometry) (*record.Geometry, error) {
	switch v := g.(type) {
	case orb.Point:
		return record.NewPoint(EncodePoint(v)), nil
	case orb.LineString:
		return record.NewLineString(EncodeLineString(v)), nil
	case orb.Polygon:
		return record.NewPolygon(EncodePolygon(v)), nil
	case orb.MultiPoint:
		return record.NewMultiPoint(EncodeMultiPoint(v)), nil
	case orb.MultiLineString:
		return record.NewMultiLineString(EncodeMultiLineString(v)), nil
	case orb.MultiPolygon:
		return record.NewMultiPolygon(EncodeMultiPolygon(v)), nil
	case orb.Collection:
		members, err := EncodeCollection(v)
		if err != nil {
			return nil, err
		}
		return record.NewGeometryCollection(members...), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedKind, g)
	}
}

func encodePoints[P ~[]orb.Point](points P) record.LineStringCoords {
	out := make(record.LineStringCoords, len(points))
	for i, p := range points {
		out[i] = EncodePoint(p)
	}
	return out
}
