package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kass/go-skytrack/pkg/models"
)

type fakeFetcher struct {
	samples map[int][]models.Sample
}

func (f *fakeFetcher) FetchOffset(ctx context.Context, offset int) []models.Sample {
	return f.samples[offset]
}

type fakeStore struct {
	pois    []models.POI
	calls   int
	lastBox models.BoundingBox
}

func (f *fakeStore) Query(ctx context.Context, box models.BoundingBox) []models.POI {
	f.calls++
	f.lastBox = box
	return f.pois
}

type fakePipe struct {
	links  []models.Link
	assets []models.Asset
}

func (f *fakePipe) Links() []models.Link   { return f.links }
func (f *fakePipe) Assets() []models.Asset { return f.assets }

func floatPtr(v float64) *float64 { return &v }

func newTestServer(t *testing.T, fetcher *fakeFetcher, store *fakeStore, pipe *fakePipe) *httptest.Server {
	t.Helper()
	if fetcher == nil {
		fetcher = &fakeFetcher{}
	}
	if store == nil {
		store = &fakeStore{}
	}
	if pipe == nil {
		pipe = &fakePipe{}
	}
	srv := httptest.NewServer(NewServer(fetcher, store, pipe).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, out))
	return resp
}

func TestBalloonsEndpoint(t *testing.T) {
	fetcher := &fakeFetcher{samples: map[int][]models.Sample{
		3: {
			{Coordinate: models.Coordinate{Lat: 10, Lon: 20}, Alt: floatPtr(5000), Offset: 3},
			{Coordinate: models.Coordinate{Lat: 11, Lon: 21}, Offset: 3},
		},
	}}
	srv := newTestServer(t, fetcher, nil, nil)

	var tuples [][]float64
	resp := getJSON(t, srv.URL+"/balloons/3", &tuples)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	require.Len(t, tuples, 2)
	assert.Equal(t, []float64{10, 20, 5000}, tuples[0])
	assert.Equal(t, []float64{11, 21}, tuples[1])
}

func TestBalloonsEndpointBadOffset(t *testing.T) {
	srv := newTestServer(t, nil, nil, nil)

	for _, path := range []string{"/balloons/-1", "/balloons/abc"} {
		var tuples []any
		resp := getJSON(t, srv.URL+path, &tuples)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Empty(t, tuples, path)
	}
}

func TestBalloonsEndpointEmptyUpstream(t *testing.T) {
	srv := newTestServer(t, &fakeFetcher{}, nil, nil)

	var tuples []any
	resp := getJSON(t, srv.URL+"/balloons/0", &tuples)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotNil(t, tuples)
	assert.Empty(t, tuples)
}

func TestPOIsEndpoint(t *testing.T) {
	store := &fakeStore{pois: []models.POI{
		{ID: "p1", Coordinate: models.Coordinate{Lat: 40.5, Lon: -74.0}, Name: "BK"},
	}}
	srv := newTestServer(t, nil, store, nil)

	var pois []models.POI
	resp := getJSON(t, srv.URL+"/pois?south=40&west=-74.5&north=41&east=-73.5", &pois)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, pois, 1)
	assert.Equal(t, "p1", pois[0].ID)
	assert.Equal(t, models.BoundingBox{South: 40, West: -74.5, North: 41, East: -73.5}, store.lastBox)
}

func TestPOIsEndpointMissingParam(t *testing.T) {
	store := &fakeStore{pois: []models.POI{{ID: "p1"}}}
	srv := newTestServer(t, nil, store, nil)

	// Missing and malformed parameters never reach the store.
	for _, query := range []string{
		"?south=40&west=-74.5&north=41",
		"?south=forty&west=-74.5&north=41&east=-73.5",
		"",
	} {
		var pois []models.POI
		resp := getJSON(t, srv.URL+"/pois"+query, &pois)
		assert.Equal(t, http.StatusOK, resp.StatusCode, query)
		assert.Empty(t, pois, query)
	}
	assert.Zero(t, store.calls)
}

func TestLinksEndpoint(t *testing.T) {
	pipe := &fakePipe{links: []models.Link{
		{
			AssetID:       "asset_0",
			AssetPosition: models.Coordinate{Lat: 0, Lon: 0},
			POI:           models.POI{ID: "p2"},
			DistanceM:     55597.46,
			DistanceMi:    34.55,
		},
	}}
	srv := newTestServer(t, nil, nil, pipe)

	var links []models.Link
	resp := getJSON(t, srv.URL+"/links", &links)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, links, 1)
	assert.Equal(t, "p2", links[0].POI.ID)
}

func TestLinksEndpointEmpty(t *testing.T) {
	srv := newTestServer(t, nil, nil, nil)

	var links []models.Link
	getJSON(t, srv.URL+"/links", &links)
	assert.NotNil(t, links)
	assert.Empty(t, links)
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, nil, nil, nil)

	var body map[string]string
	resp := getJSON(t, srv.URL+"/healthz", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, nil, nil, nil)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
