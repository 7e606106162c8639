package server

import (
	"net/http"

	"github.com/wesm/interviewlens/internal/record"
	"github.com/wesm/interviewlens/internal/view"
)

type directoryResponse struct {
	Directory view.Directory `json:"directory"`
	Warnings  []string       `json:"warnings"`
}

type sessionResponse struct {
	Session  view.SessionView `json:"session"`
	Warnings []string         `json:"warnings"`
}

type summaryResponse struct {
	Summary  view.SummaryView `json:"summary"`
	Warnings []string         `json:"warnings"`
}

func (s *Server) handleListSessions(
	w http.ResponseWriter, r *http.Request,
) {
	opts, ok := s.viewOptions(w, r)
	if !ok {
		return
	}
	dir, err := s.loader.Directory(r.Context(), identityParam(r))
	if err != nil {
		writeLoadError(w, err)
		return
	}
	// The summary row counts every question, so all turns are
	// fetched.
	sum, err := s.loader.Summary(r.Context(), dir.Sessions)
	if err != nil {
		writeLoadError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, directoryResponse{
		Directory: view.NewDirectory(
			dir.Sessions, sum.Summary.TotalTurns, opts,
		),
		Warnings: append(dir.Warnings, sum.Warnings...),
	})
}

// handleGetSession serves one session. With an identity the
// session's metadata comes from the user's directory; without
// one only the detail response is used.
func (s *Server) handleGetSession(
	w http.ResponseWriter, r *http.Request,
) {
	opts, ok := s.viewOptions(w, r)
	if !ok {
		return
	}
	sessionID := r.PathValue("id")

	var (
		directory []record.Session
		warnings  []string
	)
	if id := identityParam(r); !id.Empty() {
		dir, err := s.loader.Directory(r.Context(), id)
		if err != nil {
			writeLoadError(w, err)
			return
		}
		directory, warnings = dir.Sessions, dir.Warnings
	}

	res, err := s.loader.Session(r.Context(), directory, sessionID)
	if err != nil {
		writeLoadError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		Session:  view.NewSessionView(res.Session, res.Stats, opts),
		Warnings: append(nonNil(warnings), res.Warnings...),
	})
}

func (s *Server) handleSummary(
	w http.ResponseWriter, r *http.Request,
) {
	opts, ok := s.viewOptions(w, r)
	if !ok {
		return
	}
	dir, err := s.loader.Directory(r.Context(), identityParam(r))
	if err != nil {
		writeLoadError(w, err)
		return
	}
	sum, err := s.loader.Summary(r.Context(), dir.Sessions)
	if err != nil {
		writeLoadError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{
		Summary:  view.NewSummaryView(sum.Summary, opts),
		Warnings: append(dir.Warnings, sum.Warnings...),
	})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
