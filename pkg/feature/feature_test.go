package feature

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/1F47E/geojson-rtree/pkg/geo"
	"github.com/1F47E/geojson-rtree/pkg/models"
	"github.com/1F47E/geojson-rtree/pkg/record"
	"github.com/1F47E/geojson-rtree/pkg/validate"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pointRecord(id any, x, y float64) *record.Feature {
	return &record.Feature{
		ID:         id,
		Geometry:   record.NewPoint(record.Position{x, y}),
		Properties: map[string]any{"IPEDSID": id},
	}
}

func TestPointFeatureComputesBBox(t *testing.T) {
	f, err := NewPointFeature(pointRecord("173559", -95.372464, 45.872918))
	require.NoError(t, err)

	assert.Equal(t, []float64{-95.372464, 45.872918, -95.372464, 45.872918}, f.Envelope().Slice())
	assert.Equal(t, orb.Point{-95.372464, 45.872918}, f.Typed())
	assert.Equal(t, record.KindPoint, f.Kind())
	assert.Equal(t, "173559", f.ID())
}

func TestSuppliedBBoxIsTrusted(t *testing.T) {
	rec := pointRecord("1", 1, 1)
	rec.BBox = []float64{-10, -10, 10, 10}

	f, err := NewPointFeature(rec)
	require.NoError(t, err)
	assert.Equal(t, models.NewBoundingBox(-10, -10, 10, 10), f.Envelope())

	rec.BBox = []float64{0, 0, 0, 5, 5, 5}
	f, err = NewPointFeature(rec)
	require.NoError(t, err)
	assert.Equal(t, models.NewBoundingBox(1, 1, 1, 1), f.Envelope())
}

func TestLineStringFeature(t *testing.T) {
	good := &record.Feature{
		ID:       "280TH ST W",
		Geometry: record.NewLineString(record.LineStringCoords{{-93.1, 44.5}, {-93.0, 44.51}, {-92.9, 44.52}}),
	}
	f, err := NewLineStringFeature(good)
	require.NoError(t, err)
	assert.Equal(t, models.NewBoundingBox(-93.1, 44.5, -92.9, 44.52), f.Envelope())

	bad := &record.Feature{
		ID:       "degenerate",
		Geometry: record.NewLineString(record.LineStringCoords{{-93.1, 44.5}, {-93.1, 44.5}}),
	}
	_, err = NewLineStringFeature(bad)
	require.ErrorIs(t, err, ErrMalformedGeometry)
	assert.ErrorIs(t, err, validate.ErrInvalid)

	var convErr *ConversionError
	require.True(t, errors.As(err, &convErr))
	assert.Equal(t, "degenerate", convErr.ID)
}

func TestConversionErrors(t *testing.T) {
	testCases := []struct {
		name  string
		rec   *record.Feature
		build func(*record.Feature) error
		want  error
	}{
		{
			name:  "missing geometry",
			rec:   &record.Feature{ID: "a"},
			build: func(r *record.Feature) error { _, err := NewPointFeature(r); return err },
			want:  ErrMissingGeometry,
		},
		{
			name:  "nil record",
			rec:   nil,
			build: func(r *record.Feature) error { _, err := NewPolygonFeature(r); return err },
			want:  ErrMissingGeometry,
		},
		{
			name:  "wrong kind",
			rec:   &record.Feature{Geometry: record.NewLineString(record.LineStringCoords{{0, 0}, {1, 1}})},
			build: func(r *record.Feature) error { _, err := NewPointFeature(r); return err },
			want:  ErrIncorrectGeometryValue,
		},
		{
			name:  "three component point",
			rec:   &record.Feature{Geometry: record.NewPoint(record.Position{1, 2, 3})},
			build: func(r *record.Feature) error { _, err := NewPointFeature(r); return err },
			want:  ErrMalformedGeometry,
		},
		{
			name:  "empty ring",
			rec:   &record.Feature{Geometry: record.NewPolygon(record.PolygonCoords{{}})},
			build: func(r *record.Feature) error { _, err := NewPolygonFeature(r); return err },
			want:  ErrMalformedGeometry,
		},
		{
			name:  "empty multipoint",
			rec:   &record.Feature{Geometry: record.NewMultiPoint(record.LineStringCoords{})},
			build: func(r *record.Feature) error { _, err := NewMultiPointFeature(r); return err },
			want:  ErrMalformedGeometry,
		},
		{
			name:  "multilinestring with empty line",
			rec:   &record.Feature{Geometry: record.NewMultiLineString(record.PolygonCoords{{}})},
			build: func(r *record.Feature) error { _, err := NewMultiLineStringFeature(r); return err },
			want:  ErrMalformedGeometry,
		},
		{
			name:  "multipolygon with empty polygon",
			rec:   &record.Feature{Geometry: record.NewMultiPolygon([]record.PolygonCoords{{}})},
			build: func(r *record.Feature) error { _, err := NewMultiPolygonFeature(r); return err },
			want:  ErrMalformedGeometry,
		},
		{
			name: "collection with bad member",
			rec: &record.Feature{Geometry: record.NewGeometryCollection(
				record.NewPoint(record.Position{0, 0}),
				record.NewPoint(record.Position{0}),
			)},
			build: func(r *record.Feature) error { _, err := NewGeometryCollectionFeature(r); return err },
			want:  ErrMalformedGeometry,
		},
		{
			name:  "unknown kind",
			rec:   &record.Feature{Geometry: &record.Geometry{Type: "Circle"}},
			build: func(r *record.Feature) error { _, err := New(r); return err },
			want:  ErrIncorrectGeometryValue,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.build(tc.rec)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestConversionErrorMessage(t *testing.T) {
	_, err := NewPointFeature(&record.Feature{ID: "x", Geometry: record.NewLineString(nil)})
	assert.EqualError(t, err, "feature: incorrect geometry value (id x): did not find Point feature")

	_, err = NewPointFeature(&record.Feature{})
	assert.EqualError(t, err, "feature: missing geometry")
}

func TestNewDispatch(t *testing.T) {
	ring := record.LineStringCoords{{0, 0}, {1, 0}, {1, 1}, {0, 0}}
	geometries := map[record.Kind]*record.Geometry{
		record.KindPoint:           record.NewPoint(record.Position{0, 0}),
		record.KindLineString:      record.NewLineString(record.LineStringCoords{{0, 0}, {1, 1}}),
		record.KindPolygon:         record.NewPolygon(record.PolygonCoords{ring}),
		record.KindMultiPoint:      record.NewMultiPoint(record.LineStringCoords{{0, 0}}),
		record.KindMultiLineString: record.NewMultiLineString(record.PolygonCoords{{{0, 0}, {1, 1}}}),
		record.KindMultiPolygon:    record.NewMultiPolygon([]record.PolygonCoords{{ring}}),
		record.KindGeometryCollection: record.NewGeometryCollection(
			record.NewPoint(record.Position{5, 5}),
			record.NewGeometryCollection(record.NewPolygon(record.PolygonCoords{ring})),
		),
	}

	for kind, g := range geometries {
		t.Run(string(kind), func(t *testing.T) {
			f, err := New(&record.Feature{ID: 1.0, Geometry: g})
			require.NoError(t, err)
			assert.Equal(t, kind, f.Kind())
			assert.True(t, f.Envelope().Valid())

			raw, err := f.Raw()
			require.NoError(t, err)
			assert.Equal(t, g, raw.Geometry)
			assert.Equal(t, 1.0, raw.ID)
		})
	}

	_, err := New(&record.Feature{})
	assert.ErrorIs(t, err, ErrMissingGeometry)
}

func TestCollectionEnvelope(t *testing.T) {
	f, err := NewGeometryCollectionFeature(&record.Feature{Geometry: record.NewGeometryCollection(
		record.NewPoint(record.Position{100, 0}),
		record.NewGeometryCollection(
			record.NewLineString(record.LineStringCoords{{-1, -1}, {-2, -3}}),
		),
	)})
	require.NoError(t, err)
	assert.Equal(t, models.NewBoundingBox(-2, -3, 100, 0), f.Envelope())
	assert.Len(t, f.Typed(), 2)
}

func TestDistance(t *testing.T) {
	poly, err := NewPolygonFeature(&record.Feature{
		ID: "53",
		Geometry: record.NewPolygon(record.PolygonCoords{{
			{-123.436394, 46.238197}, {-123.728316, 46.264541}, {-123.726557, 46.384872},
			{-123.21795, 46.385617}, {-123.436394, 46.238197},
		}}),
	})
	require.NoError(t, err)

	inside := orb.Point{-123.5, 46.33}
	assert.Zero(t, poly.DistanceTo(inside))
	assert.Zero(t, poly.DistanceWith(geo.Planar, inside))

	outside := orb.Point{-118, 34}
	require.False(t, poly.Envelope().Contains(outside))
	assert.Positive(t, poly.DistanceTo(outside))
	assert.GreaterOrEqual(t, poly.DistanceTo(outside), geo.BoundDistance(geo.Haversine, poly.Envelope(), outside))
}

func TestNearestByDistance(t *testing.T) {
	recs := []*record.Feature{
		pointRecord("173559", -96.0963658, 46.2873886),
		pointRecord("174020", -95.5617, 44.8076),
		pointRecord("173452", -93.2650, 44.9778),
	}

	features, err := BuildAll(context.Background(), recs, 2)
	require.NoError(t, err)
	require.Len(t, features, 3)

	q := orb.Point{-96.4727, 48.4651}
	best := features[0]
	for _, f := range features[1:] {
		if f.DistanceTo(q) < best.DistanceTo(q) {
			best = f
		}
	}
	assert.Equal(t, "173559", best.ID())
}

func TestGeoJSON(t *testing.T) {
	rec := pointRecord("173559", -95.372464, 45.872918)
	rec.ForeignMembers = map[string]any{"source": "hifld"}

	f, err := New(rec)
	require.NoError(t, err)

	data, err := json.Marshal(f.GeoJSON())
	require.NoError(t, err)

	back, err := record.ParseFeature(data)
	require.NoError(t, err)
	assert.Equal(t, "173559", back.ID)
	assert.Equal(t, "hifld", back.ForeignMembers["source"])
	assert.Equal(t, []float64{-95.372464, 45.872918, -95.372464, 45.872918}, back.BBox)

	again, err := New(back)
	require.NoError(t, err)
	assert.Equal(t, f.Envelope(), again.Envelope())
	assert.Equal(t, f.Geometry(), again.Geometry())
}

func TestBuildAllFailFast(t *testing.T) {
	recs := []*record.Feature{
		pointRecord("1", 0, 0),
		{ID: "2"},
		pointRecord("3", 1, 1),
	}

	_, err := BuildAll(context.Background(), recs, 1)
	require.ErrorIs(t, err, ErrMissingGeometry)
	assert.Contains(t, err.Error(), "record 1")
}

func TestBuildAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := BuildAll(ctx, []*record.Feature{pointRecord("1", 0, 0)}, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildEach(t *testing.T) {
	recs := []*record.Feature{
		pointRecord("1", 0, 0),
		{ID: "2", Geometry: record.NewPoint(record.Position{1, 2, 3})},
		pointRecord("3", 1, 1),
		{ID: "4"},
	}

	results := BuildEach(context.Background(), recs, 0)
	require.Len(t, results, 4)

	for i, r := range results {
		assert.Equal(t, i, r.Index)
	}
	assert.NoError(t, results[0].Err)
	assert.Equal(t, "malformed_geometry", Reason(results[1].Err))
	assert.NotNil(t, results[2].Feature)
	assert.Equal(t, "missing_geometry", Reason(results[3].Err))
	assert.Nil(t, results[3].Feature)
}

func TestReason(t *testing.T) {
	assert.Equal(t, "", Reason(nil))
	assert.Equal(t, "incorrect_geometry_value", Reason(&ConversionError{Err: ErrIncorrectGeometryValue}))
	assert.Equal(t, "other", Reason(errors.New("boom")))
}
