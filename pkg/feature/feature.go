// Package feature turns raw GeoJSON records into validated, typed features
// that carry a bounding box and can measure their distance to a point.
package feature

import (
	"maps"

	"github.com/1F47E/geojson-rtree/pkg/codec"
	"github.com/1F47E/geojson-rtree/pkg/geo"
	"github.com/1F47E/geojson-rtree/pkg/models"
	"github.com/1F47E/geojson-rtree/pkg/record"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Feature is a validated geometry of type G with its bounding box and the
// metadata of the record it was built from. It is immutable.
type Feature[G orb.Geometry] struct {
	kind       record.Kind
	id         any
	bbox       models.BoundingBox
	geometry   G
	properties map[string]any
	foreign    map[string]any
}

type (
	PointFeature              = Feature[orb.Point]
	LineStringFeature         = Feature[orb.LineString]
	PolygonFeature            = Feature[orb.Polygon]
	MultiPointFeature         = Feature[orb.MultiPoint]
	MultiLineStringFeature    = Feature[orb.MultiLineString]
	MultiPolygonFeature       = Feature[orb.MultiPolygon]
	GeometryCollectionFeature = Feature[orb.Collection]
)

// Any is implemented by the seven feature kinds and nothing else.
type Any interface {
	Kind() record.Kind
	ID() any
	Properties() map[string]any
	ForeignMembers() map[string]any
	Envelope() models.BoundingBox
	DistanceTo(q orb.Point) float64
	DistanceWith(m geo.Metric, q orb.Point) float64
	Geometry() orb.Geometry
	Raw() (*record.Feature, error)
	GeoJSON() *geojson.Feature

	sealed()
}

var (
	_ Any = (*PointFeature)(nil)
	_ Any = (*LineStringFeature)(nil)
	_ Any = (*PolygonFeature)(nil)
	_ Any = (*MultiPointFeature)(nil)
	_ Any = (*MultiLineStringFeature)(nil)
	_ Any = (*MultiPolygonFeature)(nil)
	_ Any = (*GeometryCollectionFeature)(nil)
)

func (f *Feature[G]) sealed() {}

func (f *Feature[G]) Kind() record.Kind { return f.kind }

// ID is nil, a string or a float64.
func (f *Feature[G]) ID() any { return f.id }

// Properties must not be modified by the caller.
func (f *Feature[G]) Properties() map[string]any { return f.properties }

// ForeignMembers must not be modified by the caller.
func (f *Feature[G]) ForeignMembers() map[string]any { return f.foreign }

// Envelope is the supplied or computed bounding box. A supplied box is
// returned as-is, even when its corners are inverted.
func (f *Feature[G]) Envelope() models.BoundingBox { return f.bbox }

// Typed returns the geometry with its concrete type.
func (f *Feature[G]) Typed() G { return f.geometry }

func (f *Feature[G]) Geometry() orb.Geometry { return f.geometry }

// DistanceTo is the great-circle distance in meters from q to the feature,
// 0 when q lies on or inside it.
func (f *Feature[G]) DistanceTo(q orb.Point) float64 {
	return geo.Distance(geo.Haversine, f.geometry, q)
}

func (f *Feature[G]) DistanceWith(m geo.Metric, q orb.Point) float64 {
	return geo.Distance(m, f.geometry, q)
}

// Raw maps the feature back to a record. The bounding box is always set.
func (f *Feature[G]) Raw() (*record.Feature, error) {
	g, err := codec.Encode(f.geometry)
	if err != nil {
		return nil, err
	}
	return &record.Feature{
		ID:             f.id,
		BBox:           f.bbox.Slice(),
		Geometry:       g,
		Properties:     maps.Clone(f.properties),
		ForeignMembers: maps.Clone(f.foreign),
	}, nil
}

// GeoJSON returns an orb GeoJSON feature ready for encoding.
func (f *Feature[G]) GeoJSON() *geojson.Feature {
	gf := geojson.NewFeature(f.geometry)
	gf.ID = f.id
	gf.BBox = geojson.NewBBox(f.bbox.Bound())
	if f.properties != nil {
		gf.Properties = geojson.Properties(maps.Clone(f.properties))
	}
	if f.foreign != nil {
		gf.ExtraMembers = geojson.Properties(maps.Clone(f.foreign))
	}
	return gf
}
