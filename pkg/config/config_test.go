package config

import (
	"io"
	"os"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigLoad(t *testing.T) {
	// To prevent log output during tests
	log.SetOutput(io.Discard)

	cfg := `listen_address: "127.0.0.1:8080"
log_level: "DEBUG"

feed:
  base_url: "http://localhost:9000/treasure"
  offset_window: 12
  request_timeout_sec: 5
  asset_limit: 50

poi:
  url: "http://localhost:9001/api/interpreter"
  cache_ttl_minutes: 120
  max_span_degrees: 2.5
  fallback:
    - id: "fb-0"
      lat: 40.7128
      lon: -74.0060
      name: "Manhattan"

pipeline:
  refresh_interval_sec: 60
  viewport:
    south: 40.0
    west: -74.5
    north: 41.0
    east: -73.5
`

	file, err := os.CreateTemp(t.TempDir(), "config*.yaml")
	require.NoError(t, err)

	_, err = file.WriteString(cfg)
	require.NoError(t, err)
	require.NoError(t, file.Close())

	conf, err := New(file.Name())
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", conf.ListenAddress)
	assert.Equal(t, log.DebugLevel, conf.GetLogLevel())
	assert.Equal(t, "http://localhost:9000/treasure", conf.Feed.BaseURL)
	assert.Equal(t, 12, conf.Feed.OffsetWindow)
	assert.Equal(t, 50, conf.Feed.AssetLimit)
	assert.Equal(t, 2.5, conf.POI.MaxSpanDegrees)
	assert.Equal(t, 41.0, conf.Pipeline.Viewport.North)

	fallback := conf.GetFallbackPOIs()
	require.Len(t, fallback, 1)
	assert.Equal(t, "fb-0", fallback[0].ID)
	assert.Equal(t, 40.7128, fallback[0].Lat)
}

func TestConfigDefaults(t *testing.T) {
	log.SetOutput(io.Discard)

	conf := Default()

	assert.Equal(t, ":3001", conf.ListenAddress)
	assert.Equal(t, 24, conf.Feed.OffsetWindow)
	assert.Equal(t, 100, conf.Feed.AssetLimit)
	assert.Equal(t, 60, conf.POI.CacheTTLMinutes)
	assert.Equal(t, 3.0, conf.POI.MaxSpanDegrees)
	assert.Equal(t, 300, conf.Pipeline.RefreshIntervalSec)
	assert.True(t, conf.Pipeline.Viewport.Valid())
	assert.Nil(t, conf.GetFallbackPOIs())
	assert.Equal(t, log.InfoLevel, conf.GetLogLevel())
}

func TestConfigInvalidViewportReset(t *testing.T) {
	log.SetOutput(io.Discard)

	cfg := `pipeline:
  viewport:
    south: 50.0
    west: -74.5
    north: 41.0
    east: -73.5
`
	file, err := os.CreateTemp(t.TempDir(), "config*.yaml")
	require.NoError(t, err)
	_, err = file.WriteString(cfg)
	require.NoError(t, err)
	require.NoError(t, file.Close())

	conf, err := New(file.Name())
	require.NoError(t, err)
	assert.True(t, conf.Pipeline.Viewport.Valid())
}

func TestConfigMissingFile(t *testing.T) {
	_, err := New("/nonexistent/config.yaml")
	assert.Error(t, err)
}
