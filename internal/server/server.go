// Package server exposes index queries over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/1F47E/geojson-rtree/internal/metrics"
	"github.com/1F47E/geojson-rtree/pkg/models"
	"github.com/1F47E/geojson-rtree/pkg/rtree"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog/log"
)

const (
	defaultK = 1
	maxK     = 1000
)

var errBadParam = errors.New("bad parameter")

// Server holds the index queried by the handlers.
type Server struct {
	index *rtree.GeoIndex
}

func New(index *rtree.GeoIndex) *Server {
	return &Server{index: index}
}

// Handler returns the routes wrapped in request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/nearest", s.HandleNearest)
	mux.HandleFunc("/box", s.HandleBox)
	mux.HandleFunc("/radius", s.HandleRadius)
	mux.Handle("/metrics", metrics.Handler())
	return RequestLogger(mux)
}

// NeighborResponse is a single ranked hit.
type NeighborResponse struct {
	Distance float64          `json:"distance"`
	Feature  *geojson.Feature `json:"feature"`
}

// NeighborsResponse is the body of /nearest and /radius.
type NeighborsResponse struct {
	Metric  string             `json:"metric"`
	Unit    string             `json:"unit"`
	Results []NeighborResponse `json:"results"`
}

// HandleNearest serves /nearest?lon=&lat=&k=
func (s *Server) HandleNearest(w http.ResponseWriter, r *http.Request) {
	defer metrics.ObserveQuery("nearest", time.Now())

	center, err := pointParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	k := defaultK
	if v := r.URL.Query().Get("k"); v != "" {
		k, err = strconv.Atoi(v)
		if err != nil || k < 1 || k > maxK {
			writeError(w, http.StatusBadRequest, fmt.Errorf("%w: k must be between 1 and %d", errBadParam, maxK))
			return
		}
	}

	s.writeNeighbors(w, s.index.NearestNeighbors(center, k))
}

// HandleRadius serves /radius?lon=&lat=&r= with r in the index metric unit.
func (s *Server) HandleRadius(w http.ResponseWriter, r *http.Request) {
	defer metrics.ObserveQuery("radius", time.Now())

	center, err := pointParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	radius, err := floatParam(r, "r")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	results, err := s.index.QueryRadius(center, radius)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	s.writeNeighbors(w, results)
}

// HandleBox serves /box?min_lon=&min_lat=&max_lon=&max_lat= as a FeatureCollection.
func (s *Server) HandleBox(w http.ResponseWriter, r *http.Request) {
	defer metrics.ObserveQuery("box", time.Now())

	var vals [4]float64
	for i, name := range []string{"min_lon", "min_lat", "max_lon", "max_lat"} {
		v, err := floatParam(r, name)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		vals[i] = v
	}

	results, err := s.index.QueryBox(models.NewBoundingBox(vals[0], vals[1], vals[2], vals[3]))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	fc := geojson.NewFeatureCollection()
	for _, f := range results {
		fc.Append(f.GeoJSON())
	}

	writeJSON(w, http.StatusOK, fc)
}

func (s *Server) writeNeighbors(w http.ResponseWriter, neighbors []rtree.Neighbor) {
	metric := s.index.Metric()
	resp := NeighborsResponse{
		Metric:  metric.String(),
		Unit:    metric.Unit(),
		Results: make([]NeighborResponse, 0, len(neighbors)),
	}
	for _, n := range neighbors {
		resp.Results = append(resp.Results, NeighborResponse{Distance: n.Distance, Feature: n.Feature.GeoJSON()})
	}
	writeJSON(w, http.StatusOK, resp)
}

func pointParam(r *http.Request) (orb.Point, error) {
	lon, err := floatParam(r, "lon")
	if err != nil {
		return orb.Point{}, err
	}
	lat, err := floatParam(r, "lat")
	if err != nil {
		return orb.Point{}, err
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return orb.Point{}, fmt.Errorf("%w: point %v,%v out of range", errBadParam, lon, lat)
	}
	return orb.Point{lon, lat}, nil
}

func floatParam(r *http.Request, name string) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, fmt.Errorf("%w: %s is required", errBadParam, name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", errBadParam, name, err)
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
