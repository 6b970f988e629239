// Package ingest turns GeoJSON files into indexed features.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/1F47E/geojson-rtree/internal/metrics"
	"github.com/1F47E/geojson-rtree/pkg/feature"
	"github.com/1F47E/geojson-rtree/pkg/record"
	"github.com/1F47E/geojson-rtree/pkg/rtree"
	"github.com/rs/zerolog/log"
)

type Options struct {
	// Workers bounds parallel conversion, runtime.NumCPU() if zero
	Workers int
	// SkipInvalid drops records that fail conversion instead of aborting
	SkipInvalid bool
}

// Rejection is a record dropped under SkipInvalid.
type Rejection struct {
	Path  string
	Index int
	Err   error
}

// Report summarizes an ingest run.
type Report struct {
	Files    int
	Records  int
	Built    int
	Rejected []Rejection
	Duration time.Duration
}

type source struct {
	path  string
	index int
}

// Files parses and converts every record of the given files. Output keeps
// file order, then record order within each file.
func Files(ctx context.Context, paths []string, opts Options) ([]feature.Any, Report, error) {
	start := time.Now()
	report := Report{Files: len(paths)}

	var (
		recs    []*record.Feature
		sources []source
	)
	for _, path := range paths {
		parsed, err := record.ParseFile(path)
		if err != nil {
			return nil, report, err
		}
		for i := range parsed {
			sources = append(sources, source{path: path, index: i})
		}
		recs = append(recs, parsed...)
		log.Debug().Str("path", path).Int("records", len(parsed)).Msg("parsed file")
	}
	report.Records = len(recs)

	results := feature.BuildEach(ctx, recs, opts.Workers)

	features := make([]feature.Any, 0, len(results))
	for _, res := range results {
		src := sources[res.Index]
		if res.Err != nil {
			if errors.Is(res.Err, context.Canceled) || errors.Is(res.Err, context.DeadlineExceeded) {
				return nil, report, res.Err
			}
			metrics.FeaturesRejectedTotal.WithLabelValues(feature.Reason(res.Err)).Inc()
			if !opts.SkipInvalid {
				return nil, report, fmt.Errorf("%s: record %d: %w", src.path, src.index, res.Err)
			}
			log.Warn().Err(res.Err).Str("path", src.path).Int("record", src.index).Msg("skipping record")
			report.Rejected = append(report.Rejected, Rejection{Path: src.path, Index: src.index, Err: res.Err})
			continue
		}
		metrics.FeaturesBuiltTotal.WithLabelValues(string(res.Feature.Kind())).Inc()
		features = append(features, res.Feature)
	}

	report.Built = len(features)
	report.Duration = time.Since(start)

	log.Info().
		Int("files", report.Files).
		Int("features", report.Built).
		Int("rejected", len(report.Rejected)).
		Dur("duration", report.Duration).
		Msg("converted features")

	return features, report, nil
}

// Into converts the files and bulk loads the result into index.
func Into(ctx context.Context, index *rtree.GeoIndex, paths []string, opts Options) ([]feature.Any, Report, error) {
	features, report, err := Files(ctx, paths, opts)
	if err != nil {
		return nil, report, err
	}

	start := time.Now()
	if err := index.BulkLoad(features); err != nil {
		return nil, report, fmt.Errorf("failed to index features: %w", err)
	}
	metrics.IndexSize.Set(float64(index.Count()))

	log.Info().
		Int64("features", index.Count()).
		Dur("duration", time.Since(start)).
		Msg("indexed features")

	return features, report, nil
}
