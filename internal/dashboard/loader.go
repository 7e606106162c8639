package dashboard

import (
	"context"
	"log"

	"github.com/wesm/interviewlens/internal/analytics"
	"github.com/wesm/interviewlens/internal/record"
)

// Loader fetches records from a Source and runs them through the
// normalizer, deduplicator and aggregators. It holds no state
// between calls.
type Loader struct {
	src     Source
	workers int
}

// NewLoader creates a loader. workers <= 0 selects
// DefaultWorkers.
func NewLoader(src Source, workers int) *Loader {
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	return &Loader{src: src, workers: workers}
}

// DirectoryResult is the deduplicated session list of a user.
type DirectoryResult struct {
	Sessions []record.Session `json:"sessions"`
	Warnings []string         `json:"warnings"`
}

// SessionResult is the detail of one session.
type SessionResult struct {
	Session  record.Session          `json:"session"`
	Stats    analytics.SessionStats `json:"stats"`
	Warnings []string               `json:"warnings"`
}

// SummaryResult is the global aggregate over a directory.
type SummaryResult struct {
	Summary  analytics.Summary `json:"summary"`
	Warnings []string          `json:"warnings"`
}

// Directory lists, normalizes and deduplicates the sessions of
// id. A failed or malformed list response yields an empty
// directory and a warning; only a missing identity is an error.
func (l *Loader) Directory(
	ctx context.Context, id record.Identity,
) (DirectoryResult, error) {
	id = id.Normalize()
	if id.Empty() {
		return DirectoryResult{}, ErrNoIdentity
	}
	res := DirectoryResult{
		Sessions: []record.Session{},
		Warnings: []string{},
	}

	data, err := l.src.ListSessions(ctx, id)
	if err != nil {
		if ctx.Err() != nil {
			return DirectoryResult{}, ctx.Err()
		}
		log.Printf("list sessions: %v", err)
		res.Warnings = append(res.Warnings,
			"session list unavailable: "+err.Error())
		return res, nil
	}
	sessions, err := record.ParseSessionList(data)
	if err != nil {
		log.Printf("list sessions: %v", err)
		res.Warnings = append(res.Warnings,
			"session list unreadable: "+err.Error())
		return res, nil
	}
	res.Sessions = record.Dedupe(sessions)
	return res, nil
}

// Session loads and aggregates one session. Its metadata comes
// from directory when the session is listed there, else from the
// detail response. A failed detail fetch yields a session with no
// turns and a warning.
func (l *Loader) Session(
	ctx context.Context, directory []record.Session, sessionID string,
) (SessionResult, error) {
	res := SessionResult{Warnings: []string{}}

	sess, listed := lookup(directory, sessionID)
	d, err := FetchDetail(ctx, l.src, sessionID)
	if err != nil {
		if ctx.Err() != nil {
			return SessionResult{}, ctx.Err()
		}
		log.Printf("session %s: %v", sessionID, err)
		res.Warnings = append(res.Warnings,
			Failure{SessionID: sessionID, Err: err}.Warning())
	}
	if !listed {
		if d.Session != nil {
			sess = *d.Session
			sess.ID = sessionID
		} else {
			sess = record.Session{
				ID: sessionID, Company: record.CompanyPlaceholder,
			}
		}
	}
	res.Session = sess
	res.Stats = analytics.AggregateSession(sess, d.Turns)
	return res, nil
}

// Summary fetches every session's turns and computes the global
// aggregate. Failed fetches are reported as warnings.
func (l *Loader) Summary(
	ctx context.Context, directory []record.Session,
) (SummaryResult, error) {
	turns, failures := FetchTurns(ctx, l.src, directory, l.workers)
	if ctx.Err() != nil {
		return SummaryResult{}, ctx.Err()
	}
	res := SummaryResult{
		Summary:  analytics.Summarize(directory, turns),
		Warnings: make([]string, 0, len(failures)),
	}
	for _, f := range failures {
		res.Warnings = append(res.Warnings, f.Warning())
	}
	return res, nil
}

func lookup(
	sessions []record.Session, id string,
) (record.Session, bool) {
	for _, s := range sessions {
		if s.ID == id {
			return s, true
		}
	}
	return record.Session{}, false
}
