// Package poi retrieves points of interest for a viewport from an external
// geospatial service, with a TTL cache and an R-Tree over cached results.
package poi

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/kass/go-skytrack/pkg/metrics"
	"github.com/kass/go-skytrack/pkg/models"
)

// Store answers viewport POI queries. Results come, in order of
// preference, from a fresh cache entry, from the R-Tree when a fresh
// larger box covers the request, from upstream, from a stale cache entry
// when the refresh failed, or from the configured fallback dataset. The
// caller always gets a well-typed, possibly empty slice.
type Store struct {
	upstream Upstream
	cache    *Cache
	index    *Index
	maxSpan  float64
	fallback []models.POI

	group singleflight.Group

	mu    sync.RWMutex
	boxes map[string]models.BoundingBox
}

// NewStore creates a Store. maxSpan is the maximum box side in degrees;
// oversized boxes are rejected before any upstream call. fallback may be
// nil; entries are tagged so they can never be mistaken for live data.
func NewStore(upstream Upstream, cache *Cache, maxSpan float64, fallback []models.POI) *Store {
	tagged := make([]models.POI, len(fallback))
	for i, p := range fallback {
		p.Source = "fallback"
		tagged[i] = p
	}
	return &Store{
		upstream: upstream,
		cache:    cache,
		index:    NewIndex(),
		maxSpan:  maxSpan,
		fallback: tagged,
		boxes:    make(map[string]models.BoundingBox),
	}
}

// Query returns the POIs inside box. An invalid or oversized box returns
// an empty slice immediately, with no upstream call.
func (s *Store) Query(ctx context.Context, box models.BoundingBox) []models.POI {
	if !box.Valid() {
		log.WithField("box", box.Key()).Debug("poi: rejecting invalid box")
		return nil
	}
	if !box.SpanWithin(s.maxSpan) {
		log.WithFields(log.Fields{"box": box.Key(), "max_span": s.maxSpan}).Debug("poi: rejecting oversized box")
		return nil
	}

	key := box.Key()
	cached, fresh, ok := s.cache.Get(key)
	if ok && fresh {
		metrics.POICacheHits.Inc()
		return cached
	}

	// A fresh entry for a larger box can answer this viewport from the
	// index without touching upstream.
	if covered, err := s.fromCoveringBox(box); err == nil && covered != nil {
		metrics.POICacheHits.Inc()
		return covered
	}

	metrics.POICacheMisses.Inc()

	// The flight is shared by every coalesced caller; detach it from the
	// first caller's cancellation. The client's own timeout still bounds
	// the fetch.
	fetchCtx := context.WithoutCancel(ctx)
	fetched, err, _ := s.group.Do(key, func() (any, error) {
		pois, err := s.upstream.FetchBox(fetchCtx, box)
		if err != nil {
			metrics.POIUpstreamTotal.WithLabelValues("error").Inc()
			return nil, err
		}
		metrics.POIUpstreamTotal.WithLabelValues("ok").Inc()
		deduped := dedupeByCoordinate(pois)
		s.cache.Put(key, deduped)
		s.index.Replace(key, deduped)
		s.mu.Lock()
		s.boxes[key] = box
		s.mu.Unlock()
		return deduped, nil
	})
	if err == nil {
		return fetched.([]models.POI)
	}

	log.WithError(err).WithField("box", key).Warn("poi: upstream query failed")

	// Stale-but-present beats empty.
	if ok {
		metrics.POIStaleServes.Inc()
		log.WithField("box", key).Info("poi: serving stale cache entry")
		return cached
	}
	if len(s.fallback) > 0 {
		log.WithField("box", key).Info("poi: serving fallback dataset")
		return filterBox(s.fallback, box)
	}
	return nil
}

// fromCoveringBox serves box from the index when some fresh cached box
// fully contains it. Only the covering entry's own POIs are considered;
// expired entries overlapping the viewport must not bleed in. Returns nil
// when no covering entry exists.
func (s *Store) fromCoveringBox(box models.BoundingBox) ([]models.POI, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for key, cand := range s.boxes {
		if key == box.Key() || !cand.ContainsBox(box) {
			continue
		}
		if _, fresh, ok := s.cache.Get(key); !ok || !fresh {
			continue
		}
		return s.index.QueryKeyBox(key, box)
	}
	return nil, nil
}

// Invalidate drops the cache entry and indexed POIs for box.
func (s *Store) Invalidate(box models.BoundingBox) {
	key := box.Key()
	s.cache.Invalidate(key)
	s.index.Replace(key, nil)
	s.mu.Lock()
	delete(s.boxes, key)
	s.mu.Unlock()
}

// dedupeByCoordinate collapses elements sharing a coordinate pair down to
// the first occurrence, preserving order.
func dedupeByCoordinate(pois []models.POI) []models.POI {
	seen := make(map[string]struct{}, len(pois))
	out := make([]models.POI, 0, len(pois))
	for _, p := range pois {
		key := fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lon)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	return out
}

func filterBox(pois []models.POI, box models.BoundingBox) []models.POI {
	out := make([]models.POI, 0, len(pois))
	for _, p := range pois {
		if box.Contains(p.Coordinate) {
			out = append(out, p)
		}
	}
	return out
}
