package record

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const collegeFeature = `{
	"type": "Feature",
	"id": "173559",
	"bbox": [-95.372464, 45.872918, -95.372464, 45.872918],
	"geometry": {"type": "Point", "coordinates": [-95.372464, 45.872918]},
	"properties": {"IPEDSID": "173559", "NAME": "ALEXANDRIA TECHNICAL & COMMUNITY COLLEGE"},
	"source": "hifld"
}`

func TestParseFeature(t *testing.T) {
	f, err := ParseFeature([]byte(collegeFeature))
	require.NoError(t, err)

	assert.Equal(t, "173559", f.ID)
	assert.Equal(t, []float64{-95.372464, 45.872918, -95.372464, 45.872918}, f.BBox)
	assert.Equal(t, "ALEXANDRIA TECHNICAL & COMMUNITY COLLEGE", f.Properties["NAME"])
	assert.Equal(t, map[string]any{"source": "hifld"}, f.ForeignMembers)

	p, ok := f.Geometry.Point()
	require.True(t, ok)
	assert.Equal(t, Position{-95.372464, 45.872918}, p)
}

func TestParseFeatureKeepsArity(t *testing.T) {
	f, err := ParseFeature([]byte(`{"type":"Feature","geometry":{"type":"Point","coordinates":[1,2,3]},"properties":null}`))
	require.NoError(t, err)

	p, ok := f.Geometry.Point()
	require.True(t, ok)
	assert.Len(t, p, 3)
	assert.Nil(t, f.Properties)
}

func TestParseFeatureNullGeometry(t *testing.T) {
	f, err := ParseFeature([]byte(`{"type":"Feature","id":7,"geometry":null,"properties":{}}`))
	require.NoError(t, err)
	assert.Nil(t, f.Geometry)
	assert.Equal(t, float64(7), f.ID)
}

func TestParseFeatureUnknownKind(t *testing.T) {
	f, err := ParseFeature([]byte(`{"type":"Feature","geometry":{"type":"Circle","coordinates":[0,0]}}`))
	require.NoError(t, err)
	require.NotNil(t, f.Geometry)
	assert.Equal(t, Kind("Circle"), f.Geometry.Type)
	assert.False(t, f.Geometry.Type.Valid())
}

func TestParseFeatureErrors(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		err   error
	}{
		{"not a feature", `{"type":"Point","coordinates":[0,0]}`, ErrNotFeature},
		{"object id", `{"type":"Feature","id":{"a":1},"geometry":null}`, ErrInvalidID},
		{"bad bbox", `{"type":"Feature","bbox":["a"],"geometry":null}`, ErrInvalidBBox},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseFeature([]byte(tc.input))
			assert.ErrorIs(t, err, tc.err)
		})
	}

	_, err := ParseFeature([]byte(`{"type":"Feature","geometry":{"type":"LineString","coordinates":"x"}}`))
	assert.Error(t, err)
}

func TestParseGeometryShapes(t *testing.T) {
	input := `{"type":"FeatureCollection","name":"shapes","features":[
		{"type":"Feature","geometry":{"type":"LineString","coordinates":[[0,0],[1,1]]}},
		{"type":"Feature","geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}},
		{"type":"Feature","geometry":{"type":"MultiPoint","coordinates":[[0,0],[2,2]]}},
		{"type":"Feature","geometry":{"type":"MultiLineString","coordinates":[[[0,0],[1,1]],[[2,2],[3,3]]]}},
		{"type":"Feature","geometry":{"type":"MultiPolygon","coordinates":[[[[0,0],[1,0],[1,1],[0,0]]]]}},
		{"type":"Feature","geometry":{"type":"GeometryCollection","geometries":[
			{"type":"Point","coordinates":[5,5]},
			{"type":"GeometryCollection","geometries":[{"type":"Point","coordinates":[6,6]}]}
		]}}
	]}`

	c := &Collection{}
	require.NoError(t, json.Unmarshal([]byte(input), c))
	require.Len(t, c.Features, 6)
	assert.Equal(t, map[string]any{"name": "shapes"}, c.ForeignMembers)

	ls, ok := c.Features[0].Geometry.LineString()
	require.True(t, ok)
	assert.Equal(t, LineStringCoords{{0, 0}, {1, 1}}, ls)

	poly, ok := c.Features[1].Geometry.Polygon()
	require.True(t, ok)
	assert.Len(t, poly[0], 4)

	mp, ok := c.Features[2].Geometry.MultiPoint()
	require.True(t, ok)
	assert.Len(t, mp, 2)

	mls, ok := c.Features[3].Geometry.MultiLineString()
	require.True(t, ok)
	assert.Len(t, mls, 2)

	mpoly, ok := c.Features[4].Geometry.MultiPolygon()
	require.True(t, ok)
	assert.Len(t, mpoly, 1)

	gc, ok := c.Features[5].Geometry.GeometryCollection()
	require.True(t, ok)
	require.Len(t, gc, 2)
	assert.Equal(t, KindGeometryCollection, gc[1].Type)
	assert.Len(t, gc[1].Geometries, 1)

	_, ok = c.Features[5].Geometry.Point()
	assert.False(t, ok)
}

func TestFeatureMarshalRoundTrip(t *testing.T) {
	f, err := ParseFeature([]byte(collegeFeature))
	require.NoError(t, err)

	data, err := json.Marshal(f)
	require.NoError(t, err)

	back, err := ParseFeature(data)
	require.NoError(t, err)
	assert.Equal(t, f, back)
}

func TestParse(t *testing.T) {
	features, err := Parse([]byte(collegeFeature))
	require.NoError(t, err)
	assert.Len(t, features, 1)

	_, err = Parse([]byte(`{"type":"Topology"}`))
	assert.Error(t, err)

	_, err = Parse([]byte(`not json`))
	assert.Error(t, err)
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "colleges.geojson")
	doc := `{"type":"FeatureCollection","features":[` + collegeFeature + `]}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	features, err := ParseFile(path)
	require.NoError(t, err)
	require.Len(t, features, 1)
	assert.Equal(t, "173559", features[0].ID)

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.geojson"))
	assert.Error(t, err)
}

func TestKindValid(t *testing.T) {
	for _, k := range Kinds {
		assert.True(t, k.Valid(), k)
	}
	assert.False(t, Kind("Feature").Valid())
}
