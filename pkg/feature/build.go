package feature

import (
	"fmt"

	"github.com/1F47E/geojson-rtree/pkg/bbox"
	"github.com/1F47E/geojson-rtree/pkg/codec"
	"github.com/1F47E/geojson-rtree/pkg/models"
	"github.com/1F47E/geojson-rtree/pkg/record"
	"github.com/1F47E/geojson-rtree/pkg/validate"
	"github.com/paulmach/orb"
)

// strategy holds the per-kind steps of the build pipeline. R is the raw
// coordinate payload, G the typed geometry.
type strategy[R any, G orb.Geometry] struct {
	kind     record.Kind
	extract  func(*record.Geometry) (R, bool)
	validate func(R) error
	decode   func(R) (G, error)
	bbox     func(G) models.BoundingBox
}

func infallible[R any, G orb.Geometry](decode func(R) G) func(R) (G, error) {
	return func(raw R) (G, error) {
		return decode(raw), nil
	}
}

var (
	pointStrategy = strategy[record.Position, orb.Point]{
		kind:     record.KindPoint,
		extract:  (*record.Geometry).Point,
		validate: validate.Point,
		decode:   infallible(codec.DecodePoint),
		bbox:     bbox.Point,
	}
	lineStringStrategy = strategy[record.LineStringCoords, orb.LineString]{
		kind:     record.KindLineString,
		extract:  (*record.Geometry).LineString,
		validate: validate.LineString,
		decode:   infallible(codec.DecodeLineString),
		bbox:     bbox.LineString,
	}
	polygonStrategy = strategy[record.PolygonCoords, orb.Polygon]{
		kind:     record.KindPolygon,
		extract:  (*record.Geometry).Polygon,
		validate: validate.Polygon,
		decode:   infallible(codec.DecodePolygon),
		bbox:     bbox.Polygon,
	}
	multiPointStrategy = strategy[record.LineStringCoords, orb.MultiPoint]{
		kind:     record.KindMultiPoint,
		extract:  (*record.Geometry).MultiPoint,
		validate: validate.MultiPoint,
		decode:   infallible(codec.DecodeMultiPoint),
		bbox:     bbox.MultiPoint,
	}
	multiLineStringStrategy = strategy[record.PolygonCoords, orb.MultiLineString]{
		kind:     record.KindMultiLineString,
		extract:  (*record.Geometry).MultiLineString,
		validate: validate.MultiLineString,
		decode:   infallible(codec.DecodeMultiLineString),
		bbox:     bbox.MultiLineString,
	}
	multiPolygonStrategy = strategy[[]record.PolygonCoords, orb.MultiPolygon]{
		kind:     record.KindMultiPolygon,
		extract:  (*record.Geometry).MultiPolygon,
		validate: validate.MultiPolygon,
		decode:   infallible(codec.DecodeMultiPolygon),
		bbox:     bbox.MultiPolygon,
	}
	collectionStrategy = strategy[[]*record.Geometry, orb.Collection]{
		kind:     record.KindGeometryCollection,
		extract:  (*record.Geometry).GeometryCollection,
		validate: validate.GeometryCollection,
		decode:   codec.DecodeCollection,
		bbox:     bbox.Collection,
	}
)

// build runs extract, validate, bbox and construct in order and stops at the
// first failure.
func build[R any, G orb.Geometry](rec *record.Feature, s strategy[R, G]) (*Feature[G], error) {
	if rec == nil || rec.Geometry == nil {
		return nil, &ConversionError{Err: ErrMissingGeometry, ID: recordID(rec)}
	}

	raw, ok := s.extract(rec.Geometry)
	if !ok {
		return nil, &ConversionError{
			Err:    ErrIncorrectGeometryValue,
			ID:     rec.ID,
			Detail: fmt.Sprintf("did not find %s feature", s.kind),
		}
	}

	if err := s.validate(raw); err != nil {
		return nil, &ConversionError{Err: ErrMalformedGeometry, ID: rec.ID, Detail: err.Error(), Cause: err}
	}

	geometry, err := s.decode(raw)
	if err != nil {
		return nil, &ConversionError{Err: ErrMalformedGeometry, ID: rec.ID, Detail: err.Error(), Cause: err}
	}

	box, ok := suppliedBBox(rec)
	if !ok {
		box = s.bbox(geometry)
	}

	return &Feature[G]{
		kind:       s.kind,
		id:         rec.ID,
		bbox:       box,
		geometry:   geometry,
		properties: rec.Properties,
		foreign:    rec.ForeignMembers,
	}, nil
}

// suppliedBBox trusts a 4-number record bbox as-is. Any other length is
// ignored and the box is computed instead.
func suppliedBBox(rec *record.Feature) (models.BoundingBox, bool) {
	box, err := models.BoundingBoxFromSlice(rec.BBox)
	return box, err == nil
}

func recordID(rec *record.Feature) any {
	if rec == nil {
		return nil
	}
	return rec.ID
}

func NewPointFeature(rec *record.Feature) (*PointFeature, error) {
	return build(rec, pointStrategy)
}

func NewLineStringFeature(rec *record.Feature) (*LineStringFeature, error) {
	return build(rec, lineStringStrategy)
}

func NewPolygonFeature(rec *record.Feature) (*PolygonFeature, error) {
	return build(rec, polygonStrategy)
}

func NewMultiPointFeature(rec *record.Feature) (*MultiPointFeature, error) {
	return build(rec, multiPointStrategy)
}

func NewMultiLineStringFeature(rec *record.Feature) (*MultiLineStringFeature, error) {
	return build(rec, multiLineStringStrategy)
}

func NewMultiPolygonFeature(rec *record.Feature) (*MultiPolygonFeature, error) {
	return build(rec, multiPolygonStrategy)
}

func NewGeometryCollectionFeature(rec *record.Feature) (*GeometryCollectionFeature, error) {
	return build(rec, collectionStrategy)
}

// New builds a feature of whatever kind the record's geometry declares.
func New(rec *record.Feature) (Any, error) {
	if rec == nil || rec.Geometry == nil {
		return nil, &ConversionError{Err: ErrMissingGeometry, ID: recordID(rec)}
	}

	switch rec.Geometry.Type {
	case record.KindPoint:
		return asAny(NewPointFeature(rec))
	case record.KindLineString:
		return asAny(NewLineStringFeature(rec))
	case record.KindPolygon:
		return asAny(NewPolygonFeature(rec))
	case record.KindMultiPoint:
		return asAny(NewMultiPointFeature(rec))
	case record.KindMultiLineString:
		return asAny(NewMultiLineStringFeature(rec))
	case record.KindMultiPolygon:
		return asAny(NewMultiPolygonFeature(rec))
	case record.KindGeometryCollection:
		return asAny(NewGeometryCollectionFeature(rec))
	default:
		return nil, &ConversionError{
			Err:    ErrIncorrectGeometryValue,
			ID:     rec.ID,
			Detail: fmt.Sprintf("unknown geometry type %q", rec.Geometry.Type),
		}
	}
}

func asAny[G orb.Geometry](f *Feature[G], err error) (Any, error) {
	if err != nil {
		return nil, err
	}
	return f, nil
}
