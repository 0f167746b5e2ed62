package feed

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kass/go-skytrack/pkg/models"
)

// Assembler fans out over a window of time offsets and groups the flattened
// records into per-asset histories.
type Assembler struct {
	source SnapshotSource
	window int
	limit  int
}

// NewAssembler creates an Assembler over the given source. window is the
// number of offsets fetched per cycle, limit caps the current asset set.
func NewAssembler(source SnapshotSource, window, limit int) *Assembler {
	if window <= 0 {
		window = 24
	}
	if limit <= 0 {
		limit = 100
	}
	return &Assembler{source: source, window: window, limit: limit}
}

// AssembleHistory fetches offsets 0..window-1 concurrently and returns the
// ordered history per asset identifier. Each offset is fault-isolated: a
// failed fetch contributes nothing while the rest of the window is kept.
// Identifiers are positional within each offset's batch and are only
// meaningful within this one cycle.
func (a *Assembler) AssembleHistory(ctx context.Context) map[string][]models.Sample {
	batches := make([][]models.Sample, a.window)

	var wg sync.WaitGroup
	for i := 0; i < a.window; i++ {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			batches[offset] = a.source.FetchOffset(ctx, offset)
		}(i)
	}
	wg.Wait()

	histories := make(map[string][]models.Sample)
	for _, batch := range batches {
		for idx, s := range batch {
			id := assetID(idx)
			histories[id] = append(histories[id], s)
		}
	}

	// Batches are folded in offset order, but the contract is explicit
	// ordering regardless of arrival.
	for _, h := range histories {
		sort.Slice(h, func(i, j int) bool { return h[i].Offset < h[j].Offset })
	}
	return histories
}

// CurrentAssets derives the present asset set from assembled histories.
// Only assets observed at offset 0 have a current position; the result is
// ordered by batch position and capped at the configured limit.
func (a *Assembler) CurrentAssets(histories map[string][]models.Sample) []models.Asset {
	assets := make([]models.Asset, 0, a.limit)
	for idx := 0; len(assets) < a.limit; idx++ {
		id := assetID(idx)
		h, ok := histories[id]
		if !ok {
			break
		}
		if len(h) == 0 || h[0].Offset != 0 {
			continue
		}
		assets = append(assets, models.Asset{
			ID:         id,
			Coordinate: h[0].Coordinate,
			Alt:        h[0].Alt,
			History:    h,
		})
	}
	return assets
}

func assetID(idx int) string {
	return fmt.Sprintf("asset_%d", idx)
}
