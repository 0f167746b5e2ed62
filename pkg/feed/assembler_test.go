package feed

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kass/go-skytrack/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource serves canned batches per offset, optionally shuffling
// completion order to exercise the fan-in barrier.
type fakeSource struct {
	batches map[int][]models.Sample
	calls   atomic.Int64
	stagger bool
}

func (s *fakeSource) FetchOffset(ctx context.Context, offset int) []models.Sample {
	s.calls.Add(1)
	if s.stagger && offset%3 == 0 {
		time.Sleep(10 * time.Millisecond)
	}
	return s.batches[offset]
}

func samplesAt(offset int, coords ...models.Coordinate) []models.Sample {
	out := make([]models.Sample, len(coords))
	for i, c := range coords {
		out[i] = models.Sample{Coordinate: c, Offset: offset}
	}
	return out
}

func TestAssembleHistoryGroupsAndOrders(t *testing.T) {
	src := &fakeSource{
		stagger: true,
		batches: map[int][]models.Sample{
			0: samplesAt(0, models.Coordinate{Lat: 1, Lon: 1}, models.Coordinate{Lat: 2, Lon: 2}),
			1: samplesAt(1, models.Coordinate{Lat: 1.1, Lon: 1.1}, models.Coordinate{Lat: 2.1, Lon: 2.1}),
			2: samplesAt(2, models.Coordinate{Lat: 1.2, Lon: 1.2}),
		},
	}
	a := NewAssembler(src, 3, 100)

	histories := a.AssembleHistory(context.Background())

	assert.EqualValues(t, 3, src.calls.Load())
	require.Len(t, histories, 2)

	first := histories["asset_0"]
	require.Len(t, first, 3)
	for i, s := range first {
		assert.Equal(t, i, s.Offset)
	}

	// Second asset has a gap at offset 2.
	second := histories["asset_1"]
	require.Len(t, second, 2)
	assert.Equal(t, 0, second[0].Offset)
	assert.Equal(t, 1, second[1].Offset)
}

func TestAssembleHistoryFailedOffsetIsIsolated(t *testing.T) {
	batches := make(map[int][]models.Sample)
	for off := 0; off < 24; off++ {
		if off == 5 {
			continue // offset 5 "fails": empty batch
		}
		batches[off] = samplesAt(off, models.Coordinate{Lat: float64(off), Lon: 0})
	}
	src := &fakeSource{batches: batches}
	a := NewAssembler(src, 24, 100)

	histories := a.AssembleHistory(context.Background())

	assert.EqualValues(t, 24, src.calls.Load())
	require.Len(t, histories, 1)

	h := histories["asset_0"]
	require.Len(t, h, 23)
	prev := -1
	for _, s := range h {
		assert.NotEqual(t, 5, s.Offset)
		assert.Greater(t, s.Offset, prev)
		prev = s.Offset
	}
}

func TestAssembleHistoryAllOffsetsFail(t *testing.T) {
	a := NewAssembler(&fakeSource{}, 24, 100)
	assert.Empty(t, a.AssembleHistory(context.Background()))
}

func TestCurrentAssetsRequiresOffsetZero(t *testing.T) {
	src := &fakeSource{
		batches: map[int][]models.Sample{
			0: samplesAt(0, models.Coordinate{Lat: 1, Lon: 1}),
			1: samplesAt(1, models.Coordinate{Lat: 1.1, Lon: 1.1}, models.Coordinate{Lat: 9, Lon: 9}),
		},
	}
	a := NewAssembler(src, 2, 100)

	histories := a.AssembleHistory(context.Background())
	assets := a.CurrentAssets(histories)

	// asset_1 was only seen at offset 1 and has no current position.
	require.Len(t, assets, 1)
	assert.Equal(t, "asset_0", assets[0].ID)
	assert.Equal(t, 1.0, assets[0].Lat)
	assert.Len(t, assets[0].History, 2)
}

func TestCurrentAssetsCapped(t *testing.T) {
	coords := make([]models.Coordinate, 10)
	for i := range coords {
		coords[i] = models.Coordinate{Lat: float64(i), Lon: float64(i)}
	}
	src := &fakeSource{batches: map[int][]models.Sample{0: samplesAt(0, coords...)}}
	a := NewAssembler(src, 1, 4)

	assets := a.CurrentAssets(a.AssembleHistory(context.Background()))

	require.Len(t, assets, 4)
	assert.Equal(t, "asset_0", assets[0].ID)
	assert.Equal(t, "asset_3", assets[3].ID)
}
