package poi

import (
	"sync"

	"github.com/dhconnelly/rtreego"

	"github.com/kass/go-skytrack/pkg/models"
)

const (
	tolerance   = 0.01
	minChildren = 25
	maxChildren = 50
	dimensions  = 2
)

// spatialPOI wraps a POI to implement rtreego.Spatial
type spatialPOI struct {
	poi  models.POI
	key  string
	rect *rtreego.Rect
}

func (sp *spatialPOI) Bounds() *rtreego.Rect {
	return sp.rect
}

// Index is a thread-safe R-Tree over the POIs of all live cache entries.
// It lets viewport queries that are covered by an already-fetched box be
// answered without another upstream roundtrip.
type Index struct {
	mu    sync.RWMutex
	tree  *rtreego.Rtree
	byKey map[string][]*spatialPOI
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{
		tree:  rtreego.NewTree(dimensions, minChildren, maxChildren),
		byKey: make(map[string][]*spatialPOI),
	}
}

// Replace swaps the indexed POIs of one cache key for a fresh set.
func (ix *Index) Replace(key string, pois []models.POI) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	for _, old := range ix.byKey[key] {
		ix.tree.Delete(old)
	}

	items := make([]*spatialPOI, 0, len(pois))
	for _, p := range pois {
		if !p.Valid() {
			continue
		}
		rtPoint := rtreego.Point{p.Lat, p.Lon}
		item := &spatialPOI{poi: p, key: key, rect: rtPoint.ToRect(tolerance)}
		ix.tree.Insert(item)
		items = append(items, item)
	}
	ix.byKey[key] = items
}

// QueryKeyBox returns the POIs indexed under one cache key that fall
// inside box. Hits belonging to other keys are ignored, so an expired
// neighboring entry can never leak into the answer.
func (ix *Index) QueryKeyBox(key string, box models.BoundingBox) ([]models.POI, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	bottomLeft := rtreego.Point{box.South, box.West}
	bounds, err := rtreego.NewRect(bottomLeft, []float64{box.North - box.South, box.East - box.West})
	if err != nil {
		return nil, err
	}

	results := ix.tree.SearchIntersect(bounds)

	// The intersect search is rectangle-vs-rectangle over padded points;
	// verify each hit against the exact box.
	pois := make([]models.POI, 0, len(results))
	for _, result := range results {
		item, ok := result.(*spatialPOI)
		if !ok || item.key != key {
			continue
		}
		if box.Contains(item.poi.Coordinate) {
			pois = append(pois, item.poi)
		}
	}
	return pois, nil
}

// Size returns the number of indexed POIs.
func (ix *Index) Size() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.tree.Size()
}
