// Package metrics registers the pipeline's Prometheus collectors.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// FeedFetchTotal counts snapshot fetch attempts by outcome
	// ("ok", "error").
	FeedFetchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "skytrack_feed_fetch_total",
		Help: "Snapshot fetch attempts by outcome.",
	}, []string{"outcome"})

	// FeedRecordsDropped counts records discarded during snapshot parsing.
	FeedRecordsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "skytrack_feed_records_dropped_total",
		Help: "Feed records discarded as malformed or out of range.",
	})

	// POICacheHits counts POI queries served from a fresh cache entry.
	POICacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "skytrack_poi_cache_hits_total",
		Help: "POI queries answered from a fresh cache entry.",
	})

	// POICacheMisses counts POI queries that needed an upstream fetch.
	POICacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "skytrack_poi_cache_misses_total",
		Help: "POI queries that required an upstream fetch.",
	})

	// POIStaleServes counts stale cache entries served after a failed refresh.
	POIStaleServes = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "skytrack_poi_cache_stale_serves_total",
		Help: "Stale POI cache entries served because a refresh failed.",
	})

	// POIUpstreamTotal counts upstream geospatial queries by outcome.
	POIUpstreamTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "skytrack_poi_upstream_total",
		Help: "Upstream POI queries by outcome.",
	}, []string{"outcome"})

	// PipelineAssets is the asset count of the last completed cycle.
	PipelineAssets = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "skytrack_pipeline_assets",
		Help: "Assets produced by the last refresh cycle.",
	})

	// PipelineLinks is the link count of the last completed cycle.
	PipelineLinks = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "skytrack_pipeline_links",
		Help: "Links produced by the last refresh cycle.",
	})

	// PipelineCycleSeconds observes refresh cycle durations.
	PipelineCycleSeconds = prometheus.NewSummary(prometheus.SummaryOpts{
		Name: "skytrack_pipeline_cycle_seconds",
		Help: "Wall-clock duration of refresh cycles.",
	})
)

func init() {
	prometheus.MustRegister(
		FeedFetchTotal,
		FeedRecordsDropped,
		POICacheHits,
		POICacheMisses,
		POIStaleServes,
		POIUpstreamTotal,
		PipelineAssets,
		PipelineLinks,
		PipelineCycleSeconds,
	)
}
