// Package api exposes the pipeline over HTTP. Every handler answers with a
// well-typed JSON body; invalid requests and degraded upstreams uniformly
// produce an empty array with a 200 status, never a mixed error shape.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/kass/go-skytrack/pkg/feed"
	"github.com/kass/go-skytrack/pkg/models"
)

// POIQuerier answers viewport POI queries.
type POIQuerier interface {
	Query(ctx context.Context, box models.BoundingBox) []models.POI
}

// LinkSource yields the last computed pipeline result.
type LinkSource interface {
	Links() []models.Link
	Assets() []models.Asset
}

// Server serves the snapshot proxy, the POI viewport query and the
// computed links.
type Server struct {
	fetcher feed.SnapshotSource
	store   POIQuerier
	pipe    LinkSource
	mux     *http.ServeMux
}

// NewServer wires the routes.
func NewServer(fetcher feed.SnapshotSource, store POIQuerier, pipe LinkSource) *Server {
	s := &Server{
		fetcher: fetcher,
		store:   store,
		pipe:    pipe,
		mux:     http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /balloons/{offset}", s.handleBalloons)
	s.mux.HandleFunc("GET /pois", s.handlePOIs)
	s.mux.HandleFunc("GET /links", s.handleLinks)
	s.mux.HandleFunc("GET /assets", s.handleAssets)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.Handle("GET /metrics", promhttp.Handler())
	return s
}

// Handler returns the routed handler with request logging.
func (s *Server) Handler() http.Handler {
	return logRequests(s.mux)
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.WithField("addr", addr).Info("api: listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// handleBalloons proxies one snapshot offset as an array of
// [lat, lon, alt?] tuples. Bad offsets and upstream failures both degrade
// to an empty array.
func (s *Server) handleBalloons(w http.ResponseWriter, r *http.Request) {
	offset, err := strconv.Atoi(r.PathValue("offset"))
	if err != nil || offset < 0 {
		writeJSON(w, []any{})
		return
	}

	samples := s.fetcher.FetchOffset(r.Context(), offset)
	tuples := make([][]float64, 0, len(samples))
	for _, smp := range samples {
		tuple := []float64{smp.Lat, smp.Lon}
		if smp.Alt != nil {
			tuple = append(tuple, *smp.Alt)
		}
		tuples = append(tuples, tuple)
	}
	writeJSON(w, tuples)
}

// handlePOIs serves the POIs of the requested viewport. All four bounds
// are required; a missing or non-numeric parameter yields an empty array.
func (s *Server) handlePOIs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	bounds := [4]float64{}
	for i, name := range []string{"south", "west", "north", "east"} {
		v, err := strconv.ParseFloat(q.Get(name), 64)
		if err != nil {
			writeJSON(w, []models.POI{})
			return
		}
		bounds[i] = v
	}

	box := models.BoundingBox{South: bounds[0], West: bounds[1], North: bounds[2], East: bounds[3]}
	pois := s.store.Query(r.Context(), box)
	if pois == nil {
		pois = []models.POI{}
	}
	writeJSON(w, pois)
}

func (s *Server) handleLinks(w http.ResponseWriter, r *http.Request) {
	links := s.pipe.Links()
	if links == nil {
		links = []models.Link{}
	}
	writeJSON(w, links)
}

func (s *Server) handleAssets(w http.ResponseWriter, r *http.Request) {
	assets := s.pipe.Assets()
	if assets == nil {
		assets = []models.Asset{}
	}
	writeJSON(w, assets)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("api: writing response failed")
	}
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.WithFields(log.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start).Round(time.Microsecond),
		}).Debug("api: request")
	})
}
