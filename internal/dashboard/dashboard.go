package dashboard

import (
	"context"
	"sync"

	"github.com/wesm/interviewlens/internal/analytics"
	"github.com/wesm/interviewlens/internal/record"
)

// State is a snapshot of one user's dashboard. Selected is empty
// in summary mode; then Summary is set and Session is nil, and
// the reverse once a session is selected and loaded. A selection
// whose load fails or is canceled leaves the previous view, and
// its Selected, in place.
type State struct {
	Identity   record.Identity    `json:"identity"`
	Sessions   []record.Session   `json:"sessions"`
	Selected   string             `json:"selected"`
	Session    *SessionResult     `json:"session,omitempty"`
	Summary    *analytics.Summary `json:"summary,omitempty"`
	Questions  int                `json:"questions"`
	Warnings   []string           `json:"warnings"`
	Generation uint64             `json:"generation"`
}

// generation tags in-flight loads of one kind. Starting a new
// load cancels the previous one's context and makes its token
// stale.
type generation struct {
	n      uint64
	cancel context.CancelFunc
}

func (g *generation) begin(
	ctx context.Context,
) (context.Context, uint64) {
	if g.cancel != nil {
		g.cancel()
	}
	g.n++
	ctx, g.cancel = context.WithCancel(ctx)
	return ctx, g.n
}

func (g *generation) current(n uint64) bool {
	return g.n == n
}

// finish releases the context of load n if it is still current.
func (g *generation) finish(n uint64) {
	if g.n == n && g.cancel != nil {
		g.cancel()
		g.cancel = nil
	}
}

// Dashboard is the stateful dashboard of one identity. Refresh
// reloads the directory and the current view; Select switches
// between a session and the summary. Both are safe for
// concurrent use and the latest call always wins.
type Dashboard struct {
	loader *Loader
	id     record.Identity

	mu        sync.Mutex
	directory generation // Refresh
	selection generation // Refresh and Select
	sessions  []record.Session
	dirWarn   []string
	selected  string
	session   *SessionResult
	summary   *analytics.Summary
	questions int // turn count of the last summary load
	viewWarn  []string
}

// New creates a dashboard for id. Nothing is loaded until
// Refresh is called.
func New(loader *Loader, id record.Identity) *Dashboard {
	return &Dashboard{
		loader:   loader,
		id:       id.Normalize(),
		sessions: []record.Session{},
	}
}

// Refresh reloads the session directory and then the selected
// view. It returns ErrSuperseded if a newer Refresh or Select
// started before it completed; its results are then discarded.
func (d *Dashboard) Refresh(ctx context.Context) (State, error) {
	if d.id.Empty() {
		return State{}, ErrNoIdentity
	}

	d.mu.Lock()
	dctx, dgen := d.directory.begin(ctx)
	d.mu.Unlock()

	dir, err := d.loader.Directory(dctx, d.id)

	d.mu.Lock()
	if !d.directory.current(dgen) {
		d.mu.Unlock()
		return State{}, ErrSuperseded
	}
	d.directory.finish(dgen)
	if err != nil {
		d.mu.Unlock()
		return State{}, err
	}
	d.sessions = dir.Sessions
	d.dirWarn = dir.Warnings
	selected := d.selected
	sctx, sgen := d.selection.begin(ctx)
	d.mu.Unlock()

	return d.load(sctx, sgen, selected, dir.Sessions)
}

// Select shows sessionID, or the summary when sessionID is
// empty, against the current directory. A load still in flight
// for an earlier selection is canceled and its result dropped.
// State switches to the new selection only once it has loaded.
func (d *Dashboard) Select(
	ctx context.Context, sessionID string,
) (State, error) {
	if d.id.Empty() {
		return State{}, ErrNoIdentity
	}

	d.mu.Lock()
	sctx, sgen := d.selection.begin(ctx)
	sessions := d.sessions
	d.mu.Unlock()

	return d.load(sctx, sgen, sessionID, sessions)
}

// State returns the current snapshot.
func (d *Dashboard) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshot()
}

func (d *Dashboard) load(
	ctx context.Context, gen uint64,
	selected string, sessions []record.Session,
) (State, error) {
	var (
		sess     *SessionResult
		sum      *analytics.Summary
		warnings []string
		err      error
	)
	if selected == "" {
		var r SummaryResult
		r, err = d.loader.Summary(ctx, sessions)
		sum, warnings = &r.Summary, r.Warnings
	} else {
		var r SessionResult
		r, err = d.loader.Session(ctx, sessions, selected)
		sess, warnings = &r, r.Warnings
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.selection.current(gen) {
		return State{}, ErrSuperseded
	}
	d.selection.finish(gen)
	if err != nil {
		return State{}, err
	}
	d.selected = selected
	d.session = sess
	d.summary = sum
	if sum != nil {
		d.questions = sum.TotalTurns
	}
	d.viewWarn = warnings
	return d.snapshot(), nil
}

// snapshot must be called with d.mu held.
func (d *Dashboard) snapshot() State {
	warnings := make([]string, 0, len(d.dirWarn)+len(d.viewWarn))
	warnings = append(warnings, d.dirWarn...)
	warnings = append(warnings, d.viewWarn...)
	return State{
		Identity:   d.id,
		Sessions:   d.sessions,
		Selected:   d.selected,
		Session:    d.session,
		Summary:    d.summary,
		Questions:  d.questions,
		Warnings:   warnings,
		Generation: d.selection.n,
	}
}

// Registry holds one Dashboard per identity.
type Registry struct {
	loader *Loader

	mu     sync.Mutex
	boards map[string]*Dashboard
}

// NewRegistry creates an empty registry.
func NewRegistry(loader *Loader) *Registry {
	return &Registry{
		loader: loader,
		boards: make(map[string]*Dashboard),
	}
}

// Get returns the dashboard for id, creating it on first use.
func (r *Registry) Get(id record.Identity) (*Dashboard, error) {
	if id.Empty() {
		return nil, ErrNoIdentity
	}
	key := id.Key()
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.boards[key]
	if !ok {
		b = New(r.loader, id)
		r.boards[key] = b
	}
	return b, nil
}
