package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/1F47E/geojson-rtree/pkg/feature"
	"github.com/1F47E/geojson-rtree/pkg/rtree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goodFile = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "id": "a", "properties": {}, "geometry": {"type": "Point", "coordinates": [-95.372464, 45.872918]}},
    {"type": "Feature", "id": "b", "properties": {}, "geometry": {"type": "LineString", "coordinates": [[-93.35, 44.52], [-93.25, 44.521]]}}
  ]
}`

const badFile = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "id": "c", "properties": {}, "geometry": {"type": "LineString", "coordinates": [[1, 1], [1, 1]]}},
    {"type": "Feature", "id": "d", "properties": {}, "geometry": null},
    {"type": "Feature", "id": "e", "properties": {}, "geometry": {"type": "Point", "coordinates": [10, 20]}}
  ]
}`

func writeFiles(t *testing.T) []string {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.geojson")
	bad := filepath.Join(dir, "bad.geojson")
	require.NoError(t, os.WriteFile(good, []byte(goodFile), 0o644))
	require.NoError(t, os.WriteFile(bad, []byte(badFile), 0o644))
	return []string{good, bad}
}

func TestFilesSkipInvalid(t *testing.T) {
	paths := writeFiles(t)

	features, report, err := Files(context.Background(), paths, Options{Workers: 2, SkipInvalid: true})
	require.NoError(t, err)

	require.Len(t, features, 3)
	assert.Equal(t, "a", features[0].ID())
	assert.Equal(t, "b", features[1].ID())
	assert.Equal(t, "e", features[2].ID())

	assert.Equal(t, 2, report.Files)
	assert.Equal(t, 5, report.Records)
	assert.Equal(t, 3, report.Built)
	require.Len(t, report.Rejected, 2)

	assert.Equal(t, paths[1], report.Rejected[0].Path)
	assert.Equal(t, 0, report.Rejected[0].Index)
	assert.ErrorIs(t, report.Rejected[0].Err, feature.ErrMalformedGeometry)
	assert.Equal(t, 1, report.Rejected[1].Index)
	assert.ErrorIs(t, report.Rejected[1].Err, feature.ErrMissingGeometry)
}

func TestFilesStrict(t *testing.T) {
	paths := writeFiles(t)

	_, _, err := Files(context.Background(), paths, Options{Workers: 2})
	require.Error(t, err)
	assert.ErrorIs(t, err, feature.ErrMalformedGeometry)
	assert.Contains(t, err.Error(), "record 0")

	var convErr *feature.ConversionError
	require.ErrorAs(t, err, &convErr)
	assert.Equal(t, "c", convErr.ID)
}

func TestFilesMissing(t *testing.T) {
	_, _, err := Files(context.Background(), []string{filepath.Join(t.TempDir(), "none.geojson")}, Options{})
	assert.Error(t, err)
}

func TestFilesCancelled(t *testing.T) {
	paths := writeFiles(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := Files(ctx, paths, Options{SkipInvalid: true})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInto(t *testing.T) {
	paths := writeFiles(t)
	index := rtree.NewGeoIndex()

	features, report, err := Into(context.Background(), index, paths, Options{SkipInvalid: true})
	require.NoError(t, err)
	assert.Len(t, features, 3)
	assert.Equal(t, int64(3), index.Count())
	assert.Len(t, report.Rejected, 2)

	nearest, ok := index.Nearest(features[0].Envelope().BottomLeft.Point())
	require.True(t, ok)
	assert.Equal(t, "a", nearest.Feature.ID())
	assert.Zero(t, nearest.Distance)
}
