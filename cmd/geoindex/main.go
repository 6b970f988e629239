package main

import (
	"fmt"
	"os"

	"github.com/1F47E/geojson-rtree/internal/config"
	"github.com/1F47E/geojson-rtree/internal/logger"
	"github.com/1F47E/geojson-rtree/internal/metrics"
	"github.com/1F47E/geojson-rtree/pkg/rtree"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	configFile string
	indexFile  string
	logLevel   string
	verbose    bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "geoindex",
	Short: "R-Tree index over GeoJSON features",
	Long:  `Convert GeoJSON features into validated typed geometries and query them through a partitioned R-Tree.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load(".env")

		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			return err
		}

		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		if verbose {
			cfg.Log.Level = "debug"
		}
		return logger.Setup(cfg.Log.Level, cfg.Log.Format)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to YAML configuration file")
	rootCmd.PersistentFlags().StringVarP(&indexFile, "file", "f", "data/index.geojson", "Index file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(loadCmd, queryCmd, benchCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openIndex loads the index file with the configured options
func openIndex() (*rtree.GeoIndex, error) {
	index := rtree.NewGeoIndexWithOptions(cfg.IndexOptions())
	if err := index.LoadFromFile(indexFile); err != nil {
		return nil, err
	}
	metrics.IndexSize.Set(float64(index.Count()))

	log.Info().
		Str("path", indexFile).
		Int64("features", index.Count()).
		Str("metric", index.Metric().String()).
		Msg("index loaded")
	return index, nil
}
