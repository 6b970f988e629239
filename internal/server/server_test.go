package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/1F47E/geojson-rtree/pkg/feature"
	"github.com/1F47E/geojson-rtree/pkg/record"
	"github.com/1F47E/geojson-rtree/pkg/rtree"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	recs := []*record.Feature{
		{ID: "sf", Geometry: record.NewPoint(record.Position{-122.4194, 37.7749})},
		{ID: "oak", Geometry: record.NewPoint(record.Position{-122.2711, 37.8044})},
		{ID: "la", Geometry: record.NewPoint(record.Position{-118.2437, 34.0522})},
		{ID: "road", Geometry: record.NewLineString(record.LineStringCoords{{-122.5, 37.0}, {-122.0, 37.0}})},
	}

	features := make([]feature.Any, len(recs))
	for i, rec := range recs {
		f, err := feature.New(rec)
		require.NoError(t, err)
		features[i] = f
	}

	index := rtree.NewGeoIndex()
	require.NoError(t, index.BulkLoad(features))

	ts := httptest.NewServer(New(index).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func getJSON(t *testing.T, url string, v any) int {
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	return resp.StatusCode
}

func TestNearest(t *testing.T) {
	ts := newTestServer(t)

	var body NeighborsResponse
	status := getJSON(t, ts.URL+"/nearest?lon=-122.41&lat=37.77&k=2", &body)
	require.Equal(t, http.StatusOK, status)

	assert.Equal(t, "haversine", body.Metric)
	assert.Equal(t, "m", body.Unit)
	require.Len(t, body.Results, 2)
	assert.Equal(t, "sf", body.Results[0].Feature.ID)
	assert.Equal(t, "oak", body.Results[1].Feature.ID)
	assert.Less(t, body.Results[0].Distance, body.Results[1].Distance)
}

func TestNearestDefaultsToOne(t *testing.T) {
	ts := newTestServer(t)

	var body NeighborsResponse
	status := getJSON(t, ts.URL+"/nearest?lon=-122.25&lat=37.01", &body)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, body.Results, 1)
	assert.Equal(t, "road", body.Results[0].Feature.ID)
}

func TestRadius(t *testing.T) {
	ts := newTestServer(t)

	var body NeighborsResponse
	status := getJSON(t, ts.URL+"/radius?lon=-122.4194&lat=37.7749&r=20000", &body)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, body.Results, 2)
	assert.Equal(t, "sf", body.Results[0].Feature.ID)
	assert.Zero(t, body.Results[0].Distance)
}

func TestBox(t *testing.T) {
	ts := newTestServer(t)

	fc := geojson.NewFeatureCollection()
	status := getJSON(t, ts.URL+"/box?min_lon=-119&min_lat=33&max_lon=-118&max_lat=35", fc)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, "la", fc.Features[0].ID)
}

func TestBadRequests(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name string
		path string
	}{
		{"missing lat", "/nearest?lon=1"},
		{"bad lon", "/nearest?lon=x&lat=1"},
		{"out of range", "/nearest?lon=200&lat=1"},
		{"bad k", "/nearest?lon=1&lat=1&k=0"},
		{"missing radius", "/radius?lon=1&lat=1"},
		{"negative radius", "/radius?lon=1&lat=1&r=-5"},
		{"missing box", "/box?min_lon=1"},
		{"inverted box", "/box?min_lon=2&min_lat=2&max_lon=1&max_lat=1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body map[string]string
			status := getJSON(t, ts.URL+tt.path, &body)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/nearest?lon=1&lat=1")
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
