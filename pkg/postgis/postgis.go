// Package postgis mirrors indexed features into a PostGIS table so query
// results can be compared against the in-memory index.
package postgis

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/1F47E/geojson-rtree/pkg/feature"
	"github.com/1F47E/geojson-rtree/pkg/models"
	_ "github.com/lib/pq"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog/log"
)

// Match is a feature row returned by a query
type Match struct {
	ID       string
	Kind     string
	Distance float64
}

type PostGISIndex struct {
	db *sql.DB
}

// NewPostGISIndex creates a new PostGIS connection from a lib/pq DSN
func NewPostGISIndex(dsn string) (*PostGISIndex, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &PostGISIndex{db: db}, nil
}

// InitSchema recreates the feature table
func (p *PostGISIndex) InitSchema() error {
	queries := []string{
		`CREATE EXTENSION IF NOT EXISTS postgis;`,
		`DROP TABLE IF EXISTS geo_features;`,
		`CREATE TABLE geo_features (
			seq BIGSERIAL PRIMARY KEY,
			feature_id TEXT,
			kind TEXT NOT NULL,
			properties JSONB,
			geom GEOMETRY(GEOMETRY, 4326) NOT NULL
		);`,
	}

	for _, query := range queries {
		if _, err := p.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query '%s': %w", query, err)
		}
	}

	return nil
}

// CreateSpatialIndex creates a GIST index on the geometry column
func (p *PostGISIndex) CreateSpatialIndex() error {
	start := time.Now()
	if _, err := p.db.Exec(`CREATE INDEX idx_geo_features_geom ON geo_features USING GIST(geom);`); err != nil {
		return fmt.Errorf("failed to create spatial index: %w", err)
	}

	if _, err := p.db.Exec("ANALYZE geo_features;"); err != nil {
		return fmt.Errorf("failed to analyze table: %w", err)
	}

	log.Info().Dur("duration", time.Since(start)).Msg("created spatial index")
	return nil
}

type featureRow struct {
	id         sql.NullString
	kind       string
	properties []byte
	geometry   []byte
}

func newFeatureRow(f feature.Any) (featureRow, error) {
	geometry, err := json.Marshal(geojson.NewGeometry(f.Geometry()))
	if err != nil {
		return featureRow{}, fmt.Errorf("failed to encode geometry: %w", err)
	}

	var properties []byte
	if props := f.Properties(); props != nil {
		properties, err = json.Marshal(props)
		if err != nil {
			return featureRow{}, fmt.Errorf("failed to encode properties: %w", err)
		}
	}

	row := featureRow{kind: string(f.Kind()), properties: properties, geometry: geometry}
	if id := f.ID(); id != nil {
		row.id = sql.NullString{String: fmt.Sprint(id), Valid: true}
	}
	return row, nil
}

// BulkInsertFeatures inserts features in batches for better performance
func (p *PostGISIndex) BulkInsertFeatures(features []feature.Any) error {
	const batchSize = 10000

	stmt, err := p.db.Prepare(`
		INSERT INTO geo_features (feature_id, kind, properties, geom)
		VALUES ($1, $2, $3, ST_SetSRID(ST_GeomFromGeoJSON($4), 4326))
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	tx, err := p.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	txStmt := tx.Stmt(stmt)

	for i, f := range features {
		row, err := newFeatureRow(f)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("feature %d: %w", i, err)
		}

		if _, err := txStmt.Exec(row.id, row.kind, row.properties, string(row.geometry)); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert feature %d: %w", i, err)
		}

		// Commit batch
		if (i+1)%batchSize == 0 {
			if err := tx.Commit(); err != nil {
				return fmt.Errorf("failed to commit batch: %w", err)
			}

			tx, err = p.db.Begin()
			if err != nil {
				return fmt.Errorf("failed to begin new transaction: %w", err)
			}
			txStmt = tx.Stmt(stmt)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit final batch: %w", err)
	}

	return nil
}

// QueryBox returns features whose geometry envelope overlaps box
func (p *PostGISIndex) QueryBox(box models.BoundingBox) ([]Match, error) {
	rows, err := p.db.Query(`
		SELECT COALESCE(feature_id, ''), kind, 0::float8
		FROM geo_features
		WHERE geom && ST_MakeEnvelope($1, $2, $3, $4, 4326)
		ORDER BY seq
	`, box.MinX(), box.MinY(), box.MaxX(), box.MaxY())
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	return scanMatches(rows)
}

// Nearest returns the k features nearest to center with great-circle distances in meters
func (p *PostGISIndex) Nearest(center orb.Point, k int) ([]Match, error) {
	rows, err := p.db.Query(`
		SELECT COALESCE(feature_id, ''), kind,
			ST_Distance(geom::geography, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography)
		FROM geo_features
		ORDER BY geom <-> ST_SetSRID(ST_MakePoint($1, $2), 4326)
		LIMIT $3
	`, center[0], center[1], k)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	return scanMatches(rows)
}

func scanMatches(rows *sql.Rows) ([]Match, error) {
	defer rows.Close()

	var results []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.ID, &m.Kind, &m.Distance); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		results = append(results, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return results, nil
}

// Count returns the number of features in the database
func (p *PostGISIndex) Count() (int64, error) {
	var count int64
	err := p.db.QueryRow("SELECT COUNT(*) FROM geo_features").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count features: %w", err)
	}
	return count, nil
}

// GetDatabaseStats returns database size and table statistics
func (p *PostGISIndex) GetDatabaseStats() (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	var dbSize string
	err := p.db.QueryRow(`SELECT pg_size_pretty(pg_database_size(current_database()))`).Scan(&dbSize)
	if err != nil {
		return nil, fmt.Errorf("failed to get database size: %w", err)
	}
	stats["database_size"] = dbSize

	var tableSize, indexSize string
	err = p.db.QueryRow(`
		SELECT
			pg_size_pretty(pg_total_relation_size('geo_features')) as total_size,
			pg_size_pretty(pg_indexes_size('geo_features')) as index_size
	`).Scan(&tableSize, &indexSize)
	if err != nil {
		// Table might not exist yet
		stats["table_size"] = "0 bytes"
		stats["index_size"] = "0 bytes"
	} else {
		stats["table_size"] = tableSize
		stats["index_size"] = indexSize
	}

	count, _ := p.Count()
	stats["row_count"] = count

	return stats, nil
}

// Close closes the database connection
func (p *PostGISIndex) Close() error {
	return p.db.Close()
}
