// Package httpapi exposes the RAPTOR query engine over HTTP, wired with
// the same chi + cors stack the rest of this codebase's lineage uses.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/raptorway/transitraptor/internal/index"
	"github.com/raptorway/transitraptor/internal/raptor"
)

// Server holds the immutable index the query engine runs against.
type Server struct {
	idx *index.Index
}

// NewServer builds the chi router for a given, already-built index.
func NewServer(idx *index.Index) http.Handler {
	s := &Server{idx: idx}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/route", s.handleRoute)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok","stops":` + strconv.Itoa(len(s.idx.StopIDs)) + `}`))
}

type routeResponse struct {
	Arrival int32             `json:"arrival"`
	Path    []raptor.PathStep `json:"path"`
}

func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	source, err := parseStopID(q.Get("source"))
	if err != nil {
		http.Error(w, "invalid source stop id", http.StatusBadRequest)
		return
	}
	dest, err := parseStopID(q.Get("dest"))
	if err != nil {
		http.Error(w, "invalid dest stop id", http.StatusBadRequest)
		return
	}

	departure, err := strconv.Atoi(q.Get("departure"))
	if err != nil || departure < 0 {
		http.Error(w, "invalid departure time", http.StatusBadRequest)
		return
	}

	k := 5
	if kParam := q.Get("k"); kParam != "" {
		parsed, err := strconv.Atoi(kParam)
		if err != nil || parsed < 1 {
			http.Error(w, "invalid k", http.StatusBadRequest)
			return
		}
		k = parsed
	}

	arrival, path, err := raptor.Query(s.idx, source, dest, int32(departure), k)
	if err != nil {
		if qerr, ok := err.(*raptor.QueryError); ok && qerr.Kind == raptor.UnknownStop {
			http.Error(w, qerr.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if arrival == raptor.Unreachable {
		http.Error(w, "no route found within the requested number of rounds", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(routeResponse{Arrival: arrival, Path: path})
}

func parseStopID(s string) (index.StopID, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	return index.StopID(n), nil
}
