// Package config loads the yaml configuration file and applies defaults.
package config

import (
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/kass/go-skytrack/pkg/models"
)

// FallbackPOI is one entry of the optional emergency dataset served when
// the POI upstream is down and nothing is cached.
type FallbackPOI struct {
	ID      string  `yaml:"id"`
	Lat     float64 `yaml:"lat"`
	Lon     float64 `yaml:"lon"`
	Name    string  `yaml:"name"`
	Address string  `yaml:"address"`
	City    string  `yaml:"city"`
	State   string  `yaml:"state"`
}

type FeedSettings struct {
	BaseURL           string `yaml:"base_url"`
	OffsetWindow      int    `yaml:"offset_window"`
	RequestTimeoutSec int    `yaml:"request_timeout_sec"`
	AssetLimit        int    `yaml:"asset_limit"`
}

type POISettings struct {
	URL             string        `yaml:"url"`
	Selector        string        `yaml:"selector"`
	QueryTimeoutSec int           `yaml:"query_timeout_sec"`
	CacheTTLMinutes int           `yaml:"cache_ttl_minutes"`
	MaxSpanDegrees  float64       `yaml:"max_span_degrees"`
	Fallback        []FallbackPOI `yaml:"fallback"`
}

type PipelineSettings struct {
	RefreshIntervalSec int                `yaml:"refresh_interval_sec"`
	Viewport           models.BoundingBox `yaml:"viewport"`
}

type Settings struct {
	ListenAddress string           `yaml:"listen_address"`
	LogLevel      string           `yaml:"log_level"`
	LogFilePath   string           `yaml:"log_file_path"`
	LogMaxAgeDays int              `yaml:"log_max_age_days"`
	Feed          FeedSettings     `yaml:"feed"`
	POI           POISettings      `yaml:"poi"`
	Pipeline      PipelineSettings `yaml:"pipeline"`
}

// Default returns the settings used when no config file is given.
func Default() Settings {
	s := Settings{}
	s.applyDefaults()
	return s
}

// New reads and validates the configuration at confPath.
func New(confPath string) (Settings, error) {
	s := Settings{}
	data, err := os.ReadFile(confPath)
	if err != nil {
		return s, err
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parsing config: %w", err)
	}
	s.applyDefaults()
	return s, nil
}

func (s *Settings) applyDefaults() {
	if s.ListenAddress == "" {
		s.ListenAddress = ":3001"
	}
	if s.Feed.BaseURL == "" {
		s.Feed.BaseURL = "https://a.windbornesystems.com/treasure"
	}
	if s.Feed.OffsetWindow <= 0 {
		s.Feed.OffsetWindow = 24
	}
	if s.Feed.RequestTimeoutSec <= 0 {
		s.Feed.RequestTimeoutSec = 10
	}
	if s.Feed.AssetLimit <= 0 {
		s.Feed.AssetLimit = 100
	}
	if s.POI.URL == "" {
		s.POI.URL = "https://overpass-api.de/api/interpreter"
	}
	if s.POI.Selector == "" {
		s.POI.Selector = `node["amenity"="fast_food"]["brand"="Burger King"]`
	}
	if s.POI.QueryTimeoutSec <= 0 {
		s.POI.QueryTimeoutSec = 25
	}
	if s.POI.CacheTTLMinutes <= 0 {
		s.POI.CacheTTLMinutes = 60
	}
	if s.POI.MaxSpanDegrees <= 0 {
		s.POI.MaxSpanDegrees = 3.0
	}
	if s.Pipeline.RefreshIntervalSec <= 0 {
		s.Pipeline.RefreshIntervalSec = 300
	}
	if (s.Pipeline.Viewport == models.BoundingBox{}) {
		// Lower Manhattan, comfortably inside the default span limit.
		s.Pipeline.Viewport = models.BoundingBox{South: 40.55, West: -74.15, North: 40.85, East: -73.85}
	}
	if !s.Pipeline.Viewport.Valid() {
		log.Errorf("Invalid pipeline viewport %+v, falling back to default", s.Pipeline.Viewport)
		s.Pipeline.Viewport = models.BoundingBox{South: 40.55, West: -74.15, North: 40.85, East: -73.85}
	}
}

func (s *Settings) GetLogLevel() log.Level {
	var lvl log.Level

	switch s.LogLevel {
	case "DEBUG":
		lvl = log.DebugLevel
	case "INFO":
		lvl = log.InfoLevel
	case "WARN":
		lvl = log.WarnLevel
	case "ERROR":
		lvl = log.ErrorLevel
	default:
		lvl = log.InfoLevel
	}
	return lvl
}

func (s *Settings) GetFeedTimeout() time.Duration {
	return time.Duration(s.Feed.RequestTimeoutSec) * time.Second
}

func (s *Settings) GetCacheTTL() time.Duration {
	return time.Duration(s.POI.CacheTTLMinutes) * time.Minute
}

func (s *Settings) GetRefreshInterval() time.Duration {
	return time.Duration(s.Pipeline.RefreshIntervalSec) * time.Second
}

// GetFallbackPOIs maps the configured fallback entries into POIs.
func (s *Settings) GetFallbackPOIs() []models.POI {
	if len(s.POI.Fallback) == 0 {
		return nil
	}
	pois := make([]models.POI, 0, len(s.POI.Fallback))
	for _, f := range s.POI.Fallback {
		pois = append(pois, models.POI{
			ID:         f.ID,
			Coordinate: models.Coordinate{Lat: f.Lat, Lon: f.Lon},
			Name:       f.Name,
			Address:    f.Address,
			City:       f.City,
			State:      f.State,
		})
	}
	return pois
}
