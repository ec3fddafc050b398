package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/anistream/anistream/log"
	"github.com/go-chi/chi/v5"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warnf("encode response: %v", err)
	}
}

func internalError(w http.ResponseWriter, err error) {
	log.Error(err)
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Internal Server Error"})
}

func page(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	episodeID := r.URL.Query().Get("episodeId")
	if episodeID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Episode ID is required"})
		return
	}

	sources, err := s.resolver.Watch(r.Context(), episodeID)
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sources)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	result, err := s.resolver.Search(r.Context(), chi.URLParam(r, "query"), page(r))
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	anime, err := s.resolver.Info(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, anime)
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	lister, ok := s.resolver.(RecentLister)
	if !ok {
		writeJSON(w, http.StatusNotImplemented, errorBody{Error: "Recent episodes are not available"})
		return
	}

	result, err := lister.Recent(r.Context(), page(r))
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
