// Package config handles configuration loading for the geoindex tools.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/1F47E/geojson-rtree/pkg/geo"
	"github.com/1F47E/geojson-rtree/pkg/rtree"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "GEOINDEX_"

var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config represents the root configuration file structure.
type Config struct {
	Index   Index   `yaml:"index"`
	Ingest  Ingest  `yaml:"ingest"`
	Log     Log     `yaml:"log"`
	Server  Server  `yaml:"server"`
	PostGIS PostGIS `yaml:"postgis"`
}

// Index configures the R-tree.
type Index struct {
	Metric          string `yaml:"metric"`
	MinChildren     int    `yaml:"min_children"`
	MaxChildren     int    `yaml:"max_children"`
	Partitions      int    `yaml:"partitions,omitempty"`
	CandidateFactor int    `yaml:"candidate_factor"`
}

// Ingest configures feature conversion.
type Ingest struct {
	Workers     int  `yaml:"workers"`
	SkipInvalid bool `yaml:"skip_invalid"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Server struct {
	Addr string `yaml:"addr"`
}

// PostGIS mirrors features into a database when DSN is set.
type PostGIS struct {
	DSN string `yaml:"dsn,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Index: Index{
			Metric:          geo.Haversine.String(),
			MinChildren:     rtree.DefaultMinChildren,
			MaxChildren:     rtree.DefaultMaxChildren,
			CandidateFactor: rtree.DefaultCandidateFactor,
		},
		Ingest: Ingest{
			Workers:     runtime.NumCPU(),
			SkipInvalid: true,
		},
		Log: Log{
			Level:  "info",
			Format: "console",
		},
		Server: Server{
			Addr: ":8080",
		},
	}
}

// Load reads the YAML file at path on top of the defaults and applies
// GEOINDEX_* environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"INDEX_METRIC": &c.Index.Metric,
		"LOG_LEVEL":    &c.Log.Level,
		"LOG_FORMAT":   &c.Log.Format,
		"SERVER_ADDR":  &c.Server.Addr,
		"POSTGIS_DSN":  &c.PostGIS.DSN,
	}
	for key, dst := range strs {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"INDEX_MIN_CHILDREN":     &c.Index.MinChildren,
		"INDEX_MAX_CHILDREN":     &c.Index.MaxChildren,
		"INDEX_PARTITIONS":       &c.Index.Partitions,
		"INDEX_CANDIDATE_FACTOR": &c.Index.CandidateFactor,
		"INGEST_WORKERS":         &c.Ingest.Workers,
	}
	for key, dst := range ints {
		v, ok := lookup(EnvPrefix + key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s%s=%q: %v", ErrInvalidConfig, EnvPrefix, key, v, err)
		}
		*dst = n
	}

	if v, ok := lookup(EnvPrefix + "INGEST_SKIP_INVALID"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %sINGEST_SKIP_INVALID=%q: %v", ErrInvalidConfig, EnvPrefix, v, err)
		}
		c.Ingest.SkipInvalid = b
	}

	return nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if _, err := geo.ParseMetric(c.Index.Metric); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Index.MinChildren < 1 || c.Index.MaxChildren < 2*c.Index.MinChildren {
		return fmt.Errorf("%w: index children must satisfy 1 <= min and 2*min <= max (min %d, max %d)",
			ErrInvalidConfig, c.Index.MinChildren, c.Index.MaxChildren)
	}
	if c.Index.Partitions < 0 || c.Index.CandidateFactor < 0 || c.Ingest.Workers < 0 {
		return fmt.Errorf("%w: partitions, candidate_factor and workers must not be negative", ErrInvalidConfig)
	}
	switch strings.ToLower(c.Log.Format) {
	case "console", "json":
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, c.Log.Format)
	}
	return nil
}

// IndexOptions converts the index section into rtree options.
func (c *Config) IndexOptions() rtree.Options {
	// Validate already rejected unknown metrics
	metric, _ := geo.ParseMetric(c.Index.Metric)
	return rtree.Options{
		MinChildren:     c.Index.MinChildren,
		MaxChildren:     c.Index.MaxChildren,
		Partitions:      c.Index.Partitions,
		Metric:          metric,
		CandidateFactor: c.Index.CandidateFactor,
	}
}
