// Package dashboard loads sessions from a Source and keeps the
// per-user dashboard state: the session directory plus either the
// selected session's aggregate or the all-sessions summary.
//
// Loads fan out one turn fetch per session and tolerate any
// subset failing. Every load is tagged with a generation; a load
// that has been superseded by a newer refresh or selection is
// dropped when it completes and never reaches the state.
package dashboard

import (
	"context"
	"errors"

	"github.com/wesm/interviewlens/internal/record"
)

// ErrNoIdentity is returned when neither a user id nor an email
// is available, so no directory can be resolved.
var ErrNoIdentity = errors.New("cannot resolve directory")

// ErrSuperseded is returned to the caller of a load that was
// replaced by a newer one before it completed.
var ErrSuperseded = errors.New("superseded by a newer load")

// Source provides raw session payloads. Implementations must be
// safe for concurrent use.
type Source interface {
	// ListSessions returns a JSON array of raw session payloads
	// for the user, identified by user id, else email.
	ListSessions(ctx context.Context, id record.Identity) ([]byte, error)
	// SessionDetail returns a JSON object of the form
	// {"session": {...}, "turns": [...]}.
	SessionDetail(ctx context.Context, sessionID string) ([]byte, error)
}
