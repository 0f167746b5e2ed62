// Package feed retrieves position snapshots from the upstream balloon feed
// and reconstructs per-asset time histories. Every upstream failure mode
// degrades to an empty result; the feed boundary never returns an error to
// the pipeline.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/kass/go-skytrack/pkg/metrics"
	"github.com/kass/go-skytrack/pkg/models"
)

// SnapshotSource yields the validated position records of one time offset.
type SnapshotSource interface {
	FetchOffset(ctx context.Context, offset int) []models.Sample
}

// Fetcher retrieves snapshot documents over HTTP. Documents are named by a
// two-digit zero-padded offset, offset 0 being the most recent.
type Fetcher struct {
	baseURL string
	client  *http.Client
}

// NewFetcher creates a Fetcher for the given feed base URL.
func NewFetcher(baseURL string, timeout time.Duration) *Fetcher {
	return &Fetcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// FetchOffset retrieves and validates one snapshot. An unreachable
// upstream, a non-2xx status, malformed JSON or a non-array payload all
// yield an empty slice; malformed entries inside an otherwise valid array
// are dropped individually.
func (f *Fetcher) FetchOffset(ctx context.Context, offset int) []models.Sample {
	if offset < 0 {
		return nil
	}

	url := fmt.Sprintf("%s/%02d.json", f.baseURL, offset)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		metrics.FeedFetchTotal.WithLabelValues("error").Inc()
		log.WithError(err).WithField("offset", offset).Warn("feed: building request failed")
		return nil
	}

	resp, err := f.client.Do(req)
	if err != nil {
		metrics.FeedFetchTotal.WithLabelValues("error").Inc()
		log.WithError(err).WithField("offset", offset).Warn("feed: upstream unreachable")
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.FeedFetchTotal.WithLabelValues("error").Inc()
		log.WithFields(log.Fields{"offset": offset, "status": resp.StatusCode}).Warn("feed: unexpected status")
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.FeedFetchTotal.WithLabelValues("error").Inc()
		log.WithError(err).WithField("offset", offset).Warn("feed: reading body failed")
		return nil
	}

	samples := parseSnapshot(body, offset)
	metrics.FeedFetchTotal.WithLabelValues("ok").Inc()
	return samples
}

// parseSnapshot decodes a snapshot document into validated samples. The
// document must be an array of numeric tuples [lat, lon, alt?]; entries of
// any other shape are dropped, the rest of the document is still used.
func parseSnapshot(body []byte, offset int) []models.Sample {
	var raw []any
	if err := json.Unmarshal(body, &raw); err != nil {
		log.WithError(err).WithField("offset", offset).Warn("feed: malformed snapshot document")
		return nil
	}

	samples := make([]models.Sample, 0, len(raw))
	dropped := 0
	for _, entry := range raw {
		tuple, ok := entry.([]any)
		if !ok || len(tuple) < 2 {
			dropped++
			continue
		}
		lat, latOK := tuple[0].(float64)
		lon, lonOK := tuple[1].(float64)
		if !latOK || !lonOK {
			dropped++
			continue
		}
		c := models.Coordinate{Lat: lat, Lon: lon}
		if !c.Valid() {
			dropped++
			continue
		}

		s := models.Sample{Coordinate: c, Offset: offset}
		if len(tuple) >= 3 {
			if alt, ok := tuple[2].(float64); ok {
				s.Alt = &alt
			}
		}
		samples = append(samples, s)
	}

	if dropped > 0 {
		metrics.FeedRecordsDropped.Add(float64(dropped))
		log.WithFields(log.Fields{"offset": offset, "dropped": dropped}).Debug("feed: dropped malformed records")
	}
	return samples
}
