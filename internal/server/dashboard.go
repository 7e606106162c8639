package server

import (
	"encoding/json"
	"net/http"

	"github.com/wesm/interviewlens/internal/dashboard"
	"github.com/wesm/interviewlens/internal/record"
	"github.com/wesm/interviewlens/internal/view"
)

// dashboardResponse is a laid-out dashboard.State. Exactly one
// of Session and Summary is set once the dashboard has loaded.
type dashboardResponse struct {
	Selected   string            `json:"selected"`
	Directory  view.Directory    `json:"directory"`
	Session    *view.SessionView `json:"session,omitempty"`
	Summary    *view.SummaryView `json:"summary,omitempty"`
	Warnings   []string          `json:"warnings"`
	Generation uint64            `json:"generation"`
}

func newDashboardResponse(
	st dashboard.State, opts view.Options,
) dashboardResponse {
	resp := dashboardResponse{
		Selected:   st.Selected,
		Directory:  view.NewDirectory(st.Sessions, st.Questions, opts),
		Warnings:   nonNil(st.Warnings),
		Generation: st.Generation,
	}
	if st.Session != nil {
		v := view.NewSessionView(st.Session.Session, st.Session.Stats, opts)
		resp.Session = &v
	}
	if st.Summary != nil {
		v := view.NewSummaryView(*st.Summary, opts)
		resp.Summary = &v
	}
	return resp
}

type selectRequest struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	SessionID string `json:"sessionId"`
}

// handleGetDashboard returns the user's dashboard, loading it
// on first use.
func (s *Server) handleGetDashboard(
	w http.ResponseWriter, r *http.Request,
) {
	opts, ok := s.viewOptions(w, r)
	if !ok {
		return
	}
	board, err := s.boards.Get(identityParam(r))
	if err != nil {
		writeLoadError(w, err)
		return
	}
	st := board.State()
	if st.Generation == 0 {
		if st, err = board.Refresh(r.Context()); err != nil {
			writeLoadError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, newDashboardResponse(st, opts))
}

func (s *Server) handleRefresh(
	w http.ResponseWriter, r *http.Request,
) {
	opts, ok := s.viewOptions(w, r)
	if !ok {
		return
	}
	board, err := s.boards.Get(identityParam(r))
	if err != nil {
		writeLoadError(w, err)
		return
	}
	st, err := board.Refresh(r.Context())
	if err != nil {
		writeLoadError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newDashboardResponse(st, opts))
}

// handleSelect switches the dashboard to a session, or to the
// summary when sessionId is empty. A request overtaken by a
// newer selection gets 409.
func (s *Server) handleSelect(
	w http.ResponseWriter, r *http.Request,
) {
	opts, ok := s.viewOptions(w, r)
	if !ok {
		return
	}
	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	board, err := s.boards.Get(record.Identity{
		UserID: req.UserID, Email: req.Email,
	}.Normalize())
	if err != nil {
		writeLoadError(w, err)
		return
	}
	if board.State().Generation == 0 {
		// Load the directory first so the selection resolves
		// against it.
		if _, err := board.Refresh(r.Context()); err != nil {
			writeLoadError(w, err)
			return
		}
	}
	st, err := board.Select(r.Context(), req.SessionID)
	if err != nil {
		writeLoadError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newDashboardResponse(st, opts))
}
