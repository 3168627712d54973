package api

import (
	"net/http"
)

func (s *Server) handleProjectionStats(w http.ResponseWriter, r *http.Request) {
	hits, misses := s.deps.Cache.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"levels": s.deps.Projections.Snapshot(),
		"tree_cache": map[string]any{
			"entries": s.deps.Cache.Len(),
			"hits":    hits,
			"misses":  misses,
		},
		"sessions":    s.deps.Hub.Len(),
		"queue_depth": s.deps.Orchestrator.QueueDepth(),
	})
}
