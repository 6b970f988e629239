// Package rtree implements a high-performance R-Tree index over GeoJSON
// features with goroutine-based parallel processing across partitions
package rtree

import (
	"errors"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/1F47E/geojson-rtree/pkg/feature"
	"github.com/1F47E/geojson-rtree/pkg/geo"
	"github.com/1F47E/geojson-rtree/pkg/models"
	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
)

const (
	dimensions             = 2
	DefaultMinChildren     = 25
	DefaultMaxChildren     = 50
	DefaultCandidateFactor = 4
)

var (
	ErrInvalidBox    = errors.New("rtree: invalid bounding box")
	ErrInvalidRadius = errors.New("rtree: radius must not be negative")
)

// Options tune the index. Zero values fall back to the defaults.
type Options struct {
	MinChildren int
	MaxChildren int
	// Partitions is the number of longitude bands, runtime.NumCPU() if zero
	Partitions int
	// Metric ranks nearest neighbours and bounds radius queries
	Metric geo.Metric
	// CandidateFactor multiplies k for the first nearest-neighbour candidate pass
	CandidateFactor int
}

func (o Options) withDefaults() Options {
	if o.MinChildren <= 0 {
		o.MinChildren = DefaultMinChildren
	}
	if o.MaxChildren <= 0 {
		o.MaxChildren = DefaultMaxChildren
	}
	if o.MinChildren > o.MaxChildren/2 {
		o.MinChildren = o.MaxChildren / 2
	}
	if o.Partitions <= 0 {
		o.Partitions = runtime.NumCPU()
	}
	if o.CandidateFactor <= 0 {
		o.CandidateFactor = DefaultCandidateFactor
	}
	return o
}

// Neighbor is a query hit with its distance in the index metric.
type Neighbor struct {
	Feature  feature.Any
	Distance float64
}

// spatialFeature wraps a feature to implement rtreego.Spatial
type spatialFeature struct {
	feature.Any
	seq  int64
	box  models.BoundingBox
	rect rtreego.Rect
}

func (sf *spatialFeature) Bounds() rtreego.Rect {
	return sf.rect
}

func newSpatialFeature(f feature.Any, seq int64) *spatialFeature {
	box := normalize(f.Envelope())
	rect, _ := rtreego.NewRectFromPoints(
		rtreego.Point{box.MinX(), box.MinY()},
		rtreego.Point{box.MaxX(), box.MaxY()},
	)
	return &spatialFeature{Any: f, seq: seq, box: box, rect: rect}
}

// normalize swaps inverted corners of a supplied bbox.
func normalize(b models.BoundingBox) models.BoundingBox {
	if b.Valid() {
		return b
	}
	minX, maxX := b.MinX(), b.MaxX()
	if minX > maxX {
		minX, maxX = maxX, minX
	}
	minY, maxY := b.MinY(), b.MaxY()
	if minY > maxY {
		minY, maxY = maxY, minY
	}
	return models.NewBoundingBox(minX, minY, maxX, maxY)
}

func boxRect(box models.BoundingBox) rtreego.Rect {
	rect, _ := rtreego.NewRectFromPoints(
		rtreego.Point{box.MinX(), box.MinY()},
		rtreego.Point{box.MaxX(), box.MaxY()},
	)
	return rect
}

type partition struct {
	tree   *rtreego.Rtree
	bounds models.BoundingBox
}

func (p *partition) empty() bool {
	return p.tree.Size() == 0
}

// GeoIndex represents a thread-safe R-Tree based feature index. Features are
// spread over longitude bands by envelope center; each band tracks the union
// of its members' envelopes for query routing.
type GeoIndex struct {
	opts       Options
	partitions []*partition
	mu         sync.RWMutex
	itemCount  atomic.Int64
	seq        int64
	features   []feature.Any
}

// NewGeoIndex creates a new index with default options and CPU-aware partitioning
func NewGeoIndex() *GeoIndex {
	return NewGeoIndexWithOptions(Options{})
}

// NewGeoIndexWithOptions creates a new index with the given options
func NewGeoIndexWithOptions(opts Options) *GeoIndex {
	g := &GeoIndex{opts: opts.withDefaults()}
	g.partitions = g.newPartitions()
	return g
}

func (g *GeoIndex) newPartitions() []*partition {
	partitions := make([]*partition, g.opts.Partitions)
	for i := range partitions {
		partitions[i] = &partition{
			tree: rtreego.NewTree(dimensions, g.opts.MinChildren, g.opts.MaxChildren),
		}
	}
	return partitions
}

// Metric returns the distance metric used by queries
func (g *GeoIndex) Metric() geo.Metric {
	return g.opts.Metric
}

func (g *GeoIndex) partitionFor(box models.BoundingBox) int {
	lonRange := 360.0 / float64(len(g.partitions))
	center := (box.MinX() + box.MaxX()) / 2
	idx := int((center + 180.0) / lonRange)
	if idx >= len(g.partitions) {
		idx = len(g.partitions) - 1
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}

// BulkLoad indexes features. Empty partitions are built with rtreego's
// bulk loader, partitions that already hold items get incremental inserts.
func (g *GeoIndex) BulkLoad(features []feature.Any) error {
	if len(features) == 0 {
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	grouped := make([][]*spatialFeature, len(g.partitions))
	for _, f := range features {
		if f == nil {
			continue
		}
		sf := newSpatialFeature(f, g.seq)
		g.seq++
		idx := g.partitionFor(sf.box)
		grouped[idx] = append(grouped[idx], sf)
		g.features = append(g.features, f)
	}

	var wg sync.WaitGroup
	var totalInserted atomic.Int64

	for i, items := range grouped {
		if len(items) == 0 {
			continue
		}

		wg.Add(1)
		go func(p *partition, items []*spatialFeature) {
			defer wg.Done()

			if p.empty() {
				objs := make([]rtreego.Spatial, len(items))
				for j, item := range items {
					objs[j] = item
				}
				p.tree = rtreego.NewTree(dimensions, g.opts.MinChildren, g.opts.MaxChildren, objs...)
				p.bounds = items[0].box
			} else {
				for _, item := range items {
					p.tree.Insert(item)
				}
			}
			for _, item := range items {
				p.bounds = p.bounds.Union(item.box)
			}
			totalInserted.Add(int64(len(items)))
		}(g.partitions[i], items)
	}

	wg.Wait()
	g.itemCount.Add(totalInserted.Load())
	return nil
}

// Insert adds a single feature
func (g *GeoIndex) Insert(f feature.Any) error {
	return g.BulkLoad([]feature.Any{f})
}

// QueryBox returns all features whose envelope intersects box using parallel search
func (g *GeoIndex) QueryBox(box models.BoundingBox) ([]feature.Any, error) {
	if !box.Valid() {
		return nil, ErrInvalidBox
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	hits := g.search(box)
	out := make([]feature.Any, len(hits))
	for i, sf := range hits {
		out[i] = sf.Any
	}
	return out, nil
}

// QueryRadius returns all features within radius of center, nearest first.
// The radius is in metric units: meters for Haversine.
func (g *GeoIndex) QueryRadius(center orb.Point, radius float64) ([]Neighbor, error) {
	if radius < 0 {
		return nil, ErrInvalidRadius
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.within(center, radius), nil
}

// NearestNeighbors returns the k features nearest to center ranked by true
// feature distance. rtreego ranks by envelope only, so its answer seeds a
// radius that is then searched exhaustively.
func (g *GeoIndex) NearestNeighbors(center orb.Point, k int) []Neighbor {
	if k <= 0 {
		return nil
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	candidates := g.gather(center, k*g.opts.CandidateFactor)
	if len(candidates) == 0 {
		return nil
	}
	if len(candidates) < k {
		// every indexed feature was a candidate
		return candidates
	}

	results := g.within(center, candidates[k-1].Distance)
	if len(results) < k {
		// the candidates already hold k features within that distance
		return candidates[:k]
	}
	return results[:k]
}

// Nearest returns the single nearest feature
func (g *GeoIndex) Nearest(center orb.Point) (Neighbor, bool) {
	results := g.NearestNeighbors(center, 1)
	if len(results) == 0 {
		return Neighbor{}, false
	}
	return results[0], true
}

// Count returns the number of indexed features
func (g *GeoIndex) Count() int64 {
	return g.itemCount.Load()
}

// Features returns the indexed features in insertion order
func (g *GeoIndex) Features() []feature.Any {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]feature.Any, len(g.features))
	copy(out, g.features)
	return out
}

// Clear removes all features from the index
func (g *GeoIndex) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.partitions = g.newPartitions()
	g.features = nil
	g.seq = 0
	g.itemCount.Store(0)
}

type ranked struct {
	*spatialFeature
	distance float64
}

// gather asks every partition for its n envelope-nearest items and ranks the
// union by feature distance.
func (g *GeoIndex) gather(center orb.Point, n int) []Neighbor {
	p := rtreego.Point{center[0], center[1]}
	perPartition := make([][]ranked, len(g.partitions))

	var wg sync.WaitGroup
	for i, part := range g.partitions {
		if part.empty() {
			continue
		}

		wg.Add(1)
		go func(idx int, part *partition) {
			defer wg.Done()

			results := part.tree.NearestNeighbors(n, p)
			out := make([]ranked, 0, len(results))
			for _, result := range results {
				sf := result.(*spatialFeature)
				out = append(out, ranked{sf, sf.DistanceWith(g.opts.Metric, center)})
			}
			perPartition[idx] = out
		}(i, part)
	}
	wg.Wait()

	return sortRanked(perPartition)
}

// within returns every feature no farther than radius from center, nearest first.
func (g *GeoIndex) within(center orb.Point, radius float64) []Neighbor {
	// widen the prefilter so rounding never drops a feature at exactly radius
	reach := radius + radius*1e-9 + 1e-9
	areas := []models.BoundingBox{geo.Around(g.opts.Metric, center, reach)}
	if g.opts.Metric == geo.Haversine {
		areas = geo.Wrap(areas[0])
	}
	perPartition := make([][]ranked, len(g.partitions))

	var wg sync.WaitGroup
	for i, part := range g.partitions {
		if part.empty() || !intersectsAny(part.bounds, areas) {
			continue
		}

		wg.Add(1)
		go func(idx int, part *partition) {
			defer wg.Done()

			seen := make(map[int64]struct{})
			var out []ranked
			for _, area := range areas {
				if !part.bounds.Intersects(area) {
					continue
				}
				for _, result := range part.tree.SearchIntersect(boxRect(area)) {
					sf := result.(*spatialFeature)
					if _, dup := seen[sf.seq]; dup {
						continue
					}
					seen[sf.seq] = struct{}{}
					if geo.BoundDistance(g.opts.Metric, sf.box, center) > reach {
						continue
					}
					if d := sf.DistanceWith(g.opts.Metric, center); d <= radius {
						out = append(out, ranked{sf, d})
					}
				}
			}
			perPartition[idx] = out
		}(i, part)
	}
	wg.Wait()

	return sortRanked(perPartition)
}

func intersectsAny(b models.BoundingBox, areas []models.BoundingBox) bool {
	for _, a := range areas {
		if b.Intersects(a) {
			return true
		}
	}
	return false
}

// search collects the items whose envelope intersects box, in insertion order.
func (g *GeoIndex) search(box models.BoundingBox) []*spatialFeature {
	rect := boxRect(box)
	perPartition := make([][]*spatialFeature, len(g.partitions))

	var wg sync.WaitGroup
	for i, part := range g.partitions {
		if part.empty() || !part.bounds.Intersects(box) {
			continue
		}

		wg.Add(1)
		go func(idx int, part *partition) {
			defer wg.Done()

			results := part.tree.SearchIntersect(rect)
			out := make([]*spatialFeature, 0, len(results))
			for _, result := range results {
				sf, ok := result.(*spatialFeature)
				if !ok || !box.Intersects(sf.box) {
					continue
				}
				out = append(out, sf)
			}
			perPartition[idx] = out
		}(i, part)
	}
	wg.Wait()

	var all []*spatialFeature
	for _, items := range perPartition {
		all = append(all, items...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].seq < all[j].seq })
	return all
}

func sortRanked(perPartition [][]ranked) []Neighbor {
	var all []ranked
	for _, items := range perPartition {
		all = append(all, items...)
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].distance != all[j].distance {
			return all[i].distance < all[j].distance
		}
		return all[i].seq < all[j].seq
	})

	out := make([]Neighbor, len(all))
	for i, r := range all {
		out[i] = Neighbor{Feature: r.Any, Distance: r.distance}
	}
	return out
}
