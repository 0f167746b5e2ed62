// Package pipeline runs the periodic refresh cycle: assemble asset
// histories, fetch the viewport's POIs, match the two into links, and hold
// the latest result for the serving layer.
package pipeline

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/kass/go-skytrack/pkg/match"
	"github.com/kass/go-skytrack/pkg/metrics"
	"github.com/kass/go-skytrack/pkg/models"
)

// HistorySource produces per-asset histories and the current asset set.
type HistorySource interface {
	AssembleHistory(ctx context.Context) map[string][]models.Sample
	CurrentAssets(histories map[string][]models.Sample) []models.Asset
}

// POISource answers viewport POI queries.
type POISource interface {
	Query(ctx context.Context, box models.BoundingBox) []models.POI
}

// Pipeline owns the shared "last computed" state. Cycles run one at a
// time from Run's loop; a slower manual cycle simply overwrites state
// last. All reads go through the mutex.
type Pipeline struct {
	assembler HistorySource
	store     POISource
	interval  time.Duration

	mu       sync.RWMutex
	viewport models.BoundingBox
	assets   []models.Asset
	pois     []models.POI
	links    []models.Link
	cycledAt time.Time
}

// New creates a Pipeline refreshing every interval over the given viewport.
func New(assembler HistorySource, store POISource, viewport models.BoundingBox, interval time.Duration) *Pipeline {
	return &Pipeline{
		assembler: assembler,
		store:     store,
		interval:  interval,
		viewport:  viewport,
	}
}

// Run executes one cycle immediately, then one per tick until ctx ends.
func (p *Pipeline) Run(ctx context.Context) {
	p.RunCycle(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("pipeline: stopping")
			return
		case <-ticker.C:
			p.RunCycle(ctx)
		}
	}
}

// RunCycle performs one assemble-query-match pass and publishes the result.
func (p *Pipeline) RunCycle(ctx context.Context) {
	start := time.Now()

	histories := p.assembler.AssembleHistory(ctx)
	assets := p.assembler.CurrentAssets(histories)
	pois := p.store.Query(ctx, p.Viewport())
	links := match.Match(assets, pois)

	p.mu.Lock()
	p.assets = assets
	p.pois = pois
	p.links = links
	p.cycledAt = start
	p.mu.Unlock()

	metrics.PipelineAssets.Set(float64(len(assets)))
	metrics.PipelineLinks.Set(float64(len(links)))
	metrics.PipelineCycleSeconds.Observe(time.Since(start).Seconds())

	log.WithFields(log.Fields{
		"assets":   len(assets),
		"pois":     len(pois),
		"links":    len(links),
		"duration": time.Since(start).Round(time.Millisecond),
	}).Info("pipeline: cycle complete")
}

// SetViewport changes the active viewport. It takes effect on the next
// cycle; the previous result stays published until then.
func (p *Pipeline) SetViewport(box models.BoundingBox) {
	if !box.Valid() {
		log.WithField("box", box.Key()).Warn("pipeline: ignoring invalid viewport")
		return
	}
	p.mu.Lock()
	p.viewport = box
	p.mu.Unlock()
}

// Viewport returns the active viewport.
func (p *Pipeline) Viewport() models.BoundingBox {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.viewport
}

// Assets returns the asset set of the last completed cycle.
func (p *Pipeline) Assets() []models.Asset {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]models.Asset(nil), p.assets...)
}

// POIs returns the POI set of the last completed cycle.
func (p *Pipeline) POIs() []models.POI {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]models.POI(nil), p.pois...)
}

// Links returns the links of the last completed cycle.
func (p *Pipeline) Links() []models.Link {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]models.Link(nil), p.links...)
}

// LastCycle returns the start time of the last completed cycle, zero if
// none has run yet.
func (p *Pipeline) LastCycle() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cycledAt
}
