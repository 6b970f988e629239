package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/1F47E/geojson-rtree/internal/ingest"
	"github.com/1F47E/geojson-rtree/pkg/feature"
	"github.com/1F47E/geojson-rtree/pkg/postgis"
	"github.com/1F47E/geojson-rtree/pkg/rtree"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	loadWorkers int
	loadStrict  bool
	loadDSN     string
)

var loadCmd = &cobra.Command{
	Use:   "load FILE...",
	Short: "Load GeoJSON files into the index",
	Long:  `Convert the features of GeoJSON files, build the R-Tree and write the index file. Features can be mirrored into PostGIS.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runLoad,
}

func init() {
	loadCmd.Flags().IntVarP(&loadWorkers, "workers", "w", 0, "Number of conversion workers (default from config)")
	loadCmd.Flags().BoolVar(&loadStrict, "strict", false, "Abort on the first invalid feature")
	loadCmd.Flags().StringVar(&loadDSN, "postgis", "", "PostGIS DSN to mirror features into (default from config)")
}

func runLoad(cmd *cobra.Command, args []string) error {
	opts := ingest.Options{
		Workers:     cfg.Ingest.Workers,
		SkipInvalid: cfg.Ingest.SkipInvalid && !loadStrict,
	}
	if loadWorkers > 0 {
		opts.Workers = loadWorkers
	}

	index := rtree.NewGeoIndexWithOptions(cfg.IndexOptions())
	var (
		features []feature.Any
		report   ingest.Report
	)
	err := runTask(fmt.Sprintf("Loading %d files", len(args)), 0, func(func()) error {
		var err error
		features, report, err = ingest.Into(cmd.Context(), index, args, opts)
		return err
	})
	if err != nil {
		return err
	}

	if dir := filepath.Dir(indexFile); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create index directory: %w", err)
		}
	}

	start := time.Now()
	if err := index.SaveToFile(indexFile); err != nil {
		return fmt.Errorf("failed to save index: %w", err)
	}
	log.Info().Str("path", indexFile).Dur("duration", time.Since(start)).Msg("index saved")

	dsn := cfg.PostGIS.DSN
	if loadDSN != "" {
		dsn = loadDSN
	}
	if dsn != "" {
		if err := mirror(dsn, features); err != nil {
			return err
		}
	}

	fmt.Print(renderBlock("Load Complete", loadStats(report, index.Count()), interactive))
	fmt.Print(renderRejections(report.Rejected, interactive))
	return nil
}

func mirror(dsn string, features []feature.Any) error {
	db, err := postgis.NewPostGISIndex(dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	start := time.Now()
	if err := db.InitSchema(); err != nil {
		return err
	}
	if err := db.BulkInsertFeatures(features); err != nil {
		return err
	}
	if err := db.CreateSpatialIndex(); err != nil {
		return err
	}

	log.Info().Int("features", len(features)).Dur("duration", time.Since(start)).Msg("mirrored into PostGIS")
	return nil
}
