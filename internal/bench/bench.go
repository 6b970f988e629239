// Package bench runs concurrent random query workloads against a GeoIndex.
package bench

import (
	"fmt"
	"math/rand"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/1F47E/geojson-rtree/pkg/models"
	"github.com/1F47E/geojson-rtree/pkg/rtree"
	"github.com/paulmach/orb"
)

// Query types accepted by Run.
const (
	QueryBox     = "box"
	QueryRadius  = "radius"
	QueryNearest = "nearest"
	QueryMixed   = "mixed"
)

type Options struct {
	QueryType  string
	NumQueries int
	Workers    int
	// Region random queries are drawn from (default: roughly USA)
	Region models.BoundingBox
	// BoxSize in degrees
	BoxSize float64
	// Radius in index metric units
	Radius float64
	K      int
	// Progress, if set, is called from the workers after every query
	Progress func()
}

// DefaultOptions mirrors the command line defaults.
func DefaultOptions() Options {
	return Options{
		QueryType:  QueryBox,
		NumQueries: 1000,
		Workers:    runtime.NumCPU(),
		Region:     models.NewBoundingBox(-125, 25, -66, 49),
		BoxSize:    1.0,
		Radius:     50000,
		K:          10,
	}
}

type Result struct {
	QueryType     string
	TotalQueries  int
	TotalDuration time.Duration
	AvgDuration   time.Duration
	QueriesPerSec float64
	MinDuration   time.Duration
	MaxDuration   time.Duration
	TotalResults  int64
	AvgResults    float64
	// Errors counts failed queries, which are left out of the rates
	Errors int64
}

// queryFunc runs one random query and returns the number of hits
type queryFunc func(r *rand.Rand) (int, error)

// Run executes the workload described by opts.
func Run(index *rtree.GeoIndex, opts Options) (Result, error) {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.NumQueries <= 0 {
		return Result{}, fmt.Errorf("number of queries must be positive, got %d", opts.NumQueries)
	}

	switch opts.QueryType {
	case QueryBox:
		return runQueries(QueryBox, opts.NumQueries, opts, boxQuery(index, opts)), nil
	case QueryRadius:
		return runQueries(QueryRadius, opts.NumQueries, opts, radiusQuery(index, opts)), nil
	case QueryNearest:
		return runQueries(QueryNearest, opts.NumQueries, opts, nearestQuery(index, opts)), nil
	case QueryMixed:
		return runMixed(index, opts), nil
	default:
		return Result{}, fmt.Errorf("unknown query type: %s", opts.QueryType)
	}
}

func randomPoint(r *rand.Rand, region models.BoundingBox) orb.Point {
	return orb.Point{
		region.MinX() + r.Float64()*(region.MaxX()-region.MinX()),
		region.MinY() + r.Float64()*(region.MaxY()-region.MinY()),
	}
}

func boxQuery(index *rtree.GeoIndex, opts Options) queryFunc {
	return func(r *rand.Rand) (int, error) {
		lon := opts.Region.MinX() + r.Float64()*max(opts.Region.MaxX()-opts.Region.MinX()-opts.BoxSize, 0)
		lat := opts.Region.MinY() + r.Float64()*max(opts.Region.MaxY()-opts.Region.MinY()-opts.BoxSize, 0)

		results, err := index.QueryBox(models.NewBoundingBox(lon, lat, lon+opts.BoxSize, lat+opts.BoxSize))
		return len(results), err
	}
}

func radiusQuery(index *rtree.GeoIndex, opts Options) queryFunc {
	return func(r *rand.Rand) (int, error) {
		results, err := index.QueryRadius(randomPoint(r, opts.Region), opts.Radius)
		return len(results), err
	}
}

func nearestQuery(index *rtree.GeoIndex, opts Options) queryFunc {
	return func(r *rand.Rand) (int, error) {
		return len(index.NearestNeighbors(randomPoint(r, opts.Region), opts.K)), nil
	}
}

func runQueries(queryType string, numQueries int, opts Options, query queryFunc) Result {
	var (
		totalResults atomic.Int64
		errCount     atomic.Int64
		minDuration  = time.Hour
		maxDuration  time.Duration
		totalDur     time.Duration
		completed    int
		mu           sync.Mutex
	)

	startTime := time.Now()

	// Worker pool
	queryCh := make(chan int, numQueries)
	var wg sync.WaitGroup

	wg.Add(opts.Workers)
	for w := 0; w < opts.Workers; w++ {
		go func() {
			defer wg.Done()
			r := rand.New(rand.NewSource(rand.Int63()))

			for range queryCh {
				queryStart := time.Now()
				n, err := query(r)
				queryDuration := time.Since(queryStart)
				if opts.Progress != nil {
					opts.Progress()
				}

				if err != nil {
					errCount.Add(1)
					continue
				}
				totalResults.Add(int64(n))

				mu.Lock()
				completed++
				totalDur += queryDuration
				minDuration = min(minDuration, queryDuration)
				maxDuration = max(maxDuration, queryDuration)
				mu.Unlock()
			}
		}()
	}

	for i := 0; i < numQueries; i++ {
		queryCh <- i
	}
	close(queryCh)

	wg.Wait()
	totalDuration := time.Since(startTime)

	res := Result{
		QueryType:     queryType,
		TotalQueries:  numQueries,
		TotalDuration: totalDuration,
		QueriesPerSec: float64(completed) / totalDuration.Seconds(),
		MinDuration:   minDuration,
		MaxDuration:   maxDuration,
		TotalResults:  totalResults.Load(),
		Errors:        errCount.Load(),
	}
	if completed > 0 {
		res.AvgDuration = totalDur / time.Duration(completed)
		res.AvgResults = float64(res.TotalResults) / float64(completed)
	} else {
		res.MinDuration = 0
	}
	return res
}

func runMixed(index *rtree.GeoIndex, opts Options) Result {
	// 1/3 of each query type
	perType := max(opts.NumQueries/3, 1)

	parts := []Result{
		runQueries(QueryBox, perType, opts, boxQuery(index, opts)),
		runQueries(QueryRadius, perType, opts, radiusQuery(index, opts)),
		runQueries(QueryNearest, perType, opts, nearestQuery(index, opts)),
	}

	res := Result{QueryType: QueryMixed, MinDuration: time.Hour}
	var completed int64
	for _, p := range parts {
		res.Errors += p.Errors
		completed += int64(p.TotalQueries) - p.Errors
		res.TotalQueries += p.TotalQueries
		res.TotalDuration += p.TotalDuration
		res.TotalResults += p.TotalResults
		res.MinDuration = min(res.MinDuration, p.MinDuration)
		res.MaxDuration = max(res.MaxDuration, p.MaxDuration)
	}
	res.QueriesPerSec = float64(completed) / res.TotalDuration.Seconds()
	if completed > 0 {
		res.AvgDuration = res.TotalDuration / time.Duration(completed)
		res.AvgResults = float64(res.TotalResults) / float64(completed)
	}
	return res
}
