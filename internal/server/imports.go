package server

import (
	"log"
	"net/http"
)

func (s *Server) handleGetStats(
	w http.ResponseWriter, r *http.Request,
) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "no local store")
		return
	}
	stats, err := s.store.GetStats(r.Context())
	if err != nil {
		if handleContextError(w, err) {
			return
		}
		log.Printf("stats error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleImport re-imports the configured import directory.
func (s *Server) handleImport(
	w http.ResponseWriter, _ *http.Request,
) {
	if s.importer == nil {
		writeError(w, http.StatusNotFound, "no local store")
		return
	}
	if s.cfg.ImportDir == "" {
		writeError(w, http.StatusBadRequest,
			"no import directory configured")
		return
	}
	totals, err := s.importer.ImportDir(s.cfg.ImportDir)
	if err != nil {
		log.Printf("import error: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, totals)
}
