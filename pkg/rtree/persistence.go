package rtree

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/1F47E/geojson-rtree/pkg/feature"
	"github.com/1F47E/geojson-rtree/pkg/record"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog/log"
)

// SaveToFile writes the indexed features to a GeoJSON FeatureCollection
func (g *GeoIndex) SaveToFile(filename string) error {
	features := g.Features()

	fc := geojson.NewFeatureCollection()
	for _, f := range features {
		fc.Append(f.GeoJSON())
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	if err := encoder.Encode(fc); err != nil {
		return fmt.Errorf("failed to encode index: %w", err)
	}

	log.Debug().Str("path", filename).Int("features", len(features)).Msg("index saved")
	return nil
}

// LoadFromFile replaces the index content with the features of a GeoJSON file
func (g *GeoIndex) LoadFromFile(filename string) error {
	recs, err := record.ParseFile(filename)
	if err != nil {
		return fmt.Errorf("failed to load index: %w", err)
	}

	features, err := feature.BuildAll(context.Background(), recs, 0)
	if err != nil {
		return fmt.Errorf("failed to decode index: %w", err)
	}

	g.Clear()
	if err := g.BulkLoad(features); err != nil {
		return fmt.Errorf("failed to index features: %w", err)
	}

	log.Debug().Str("path", filename).Int("features", len(features)).Msg("index loaded")
	return nil
}
