package main

import (
	"fmt"

	"github.com/1F47E/geojson-rtree/internal/bench"
	"github.com/1F47E/geojson-rtree/pkg/models"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var benchOpts = bench.DefaultOptions()

var (
	benchMinLon, benchMinLat, benchMaxLon, benchMaxLat float64
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Run concurrent random query benchmarks",
	Long:  `Execute random box, radius, nearest or mixed queries on the loaded index using a worker pool.`,
	RunE:  runBench,
}

func init() {
	region := benchOpts.Region
	benchCmd.Flags().StringVarP(&benchOpts.QueryType, "type", "t", benchOpts.QueryType, "Query type: box, radius, nearest, mixed")
	benchCmd.Flags().IntVarP(&benchOpts.NumQueries, "queries", "n", benchOpts.NumQueries, "Number of queries to run")
	benchCmd.Flags().IntVarP(&benchOpts.Workers, "workers", "w", benchOpts.Workers, "Number of concurrent workers")
	benchCmd.Flags().Float64Var(&benchMinLon, "min-lon", region.MinX(), "Minimum longitude for random queries")
	benchCmd.Flags().Float64Var(&benchMinLat, "min-lat", region.MinY(), "Minimum latitude for random queries")
	benchCmd.Flags().Float64Var(&benchMaxLon, "max-lon", region.MaxX(), "Maximum longitude for random queries")
	benchCmd.Flags().Float64Var(&benchMaxLat, "max-lat", region.MaxY(), "Maximum latitude for random queries")
	benchCmd.Flags().Float64Var(&benchOpts.BoxSize, "box-size", benchOpts.BoxSize, "Box size in degrees (box queries)")
	benchCmd.Flags().Float64VarP(&benchOpts.Radius, "radius", "r", benchOpts.Radius, "Radius in metric units (radius queries)")
	benchCmd.Flags().IntVarP(&benchOpts.K, "k", "k", benchOpts.K, "Number of nearest neighbors")
}

func runBench(cmd *cobra.Command, args []string) error {
	index, err := openIndex()
	if err != nil {
		return err
	}

	benchOpts.Region = models.NewBoundingBox(benchMinLon, benchMinLat, benchMaxLon, benchMaxLat)

	log.Info().
		Int("queries", benchOpts.NumQueries).
		Str("type", benchOpts.QueryType).
		Int("workers", benchOpts.Workers).
		Msg("running benchmark")

	var result bench.Result
	err = runTask("Running "+benchOpts.QueryType+" queries", benchOpts.NumQueries, func(tick func()) error {
		benchOpts.Progress = tick
		var err error
		result, err = bench.Run(index, benchOpts)
		return err
	})
	if err != nil {
		return err
	}

	fmt.Print(renderBlock("Benchmark Results", benchStats(result, benchOpts.Workers), interactive))
	return nil
}
