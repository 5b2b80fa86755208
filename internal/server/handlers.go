package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/codesearch/codesearch/codesearch"
)

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

type searchResponse struct {
	Query   string                    `json:"query"`
	Results []codesearch.SearchResult `json:"results"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	stats, err := s.engine.Stats(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing or invalid " + s.cfg.UserHeader, Kind: "unauthenticated"})
		return
	}
	if s.limiter != nil && !s.limiter.allow(userID) {
		w.Header().Set("Retry-After", "1")
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "too many requests, try again later", Kind: "rate_limited"})
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	q := r.URL.Query().Get("q")
	results, err := s.engine.Search(ctx, q, userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{Query: q, Results: results})
}

// userID reads a positive integer user id from the configured header.
func (s *Server) userID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.Header.Get(s.cfg.UserHeader), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if s.cfg.RequestTimeout > 0 {
		return context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	}
	return context.WithCancel(r.Context())
}

// writeError maps query errors to 400. Everything else is a 500 whose
// details stay in the log.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind, _ := codesearch.KindOf(err)
	if codesearch.IsClientError(err) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Kind: string(kind)})
		return
	}
	s.logger.Error("request failed", "id", r.Header.Get(requestIDHeader), "path", r.URL.Path, "error", err)
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error", Kind: string(kind)})
}
