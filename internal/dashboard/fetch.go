package dashboard

import (
	"context"
	"fmt"
	"log"
	"runtime"

	"github.com/wesm/interviewlens/internal/record"
)

// MaxWorkers caps the number of concurrent turn fetches.
const MaxWorkers = 8

// DefaultWorkers returns the fan-out width used when none is
// configured.
func DefaultWorkers() int {
	return min(max(runtime.NumCPU(), 2), MaxWorkers)
}

// Failure records one session whose turns could not be fetched.
type Failure struct {
	SessionID string
	Err       error
}

// Warning renders the failure for display.
func (f Failure) Warning() string {
	return fmt.Sprintf("turns for session %s unavailable: %v",
		f.SessionID, f.Err)
}

type fetchJob struct {
	pos       int
	sessionID string
}

type fetchResult struct {
	pos    int
	detail record.Detail
	err    error
}

// FetchDetail fetches and parses one session's detail payload.
func FetchDetail(
	ctx context.Context, src Source, sessionID string,
) (record.Detail, error) {
	data, err := src.SessionDetail(ctx, sessionID)
	if err != nil {
		return record.Detail{}, err
	}
	return record.ParseSessionDetail(sessionID, data)
}

// FetchTurns fetches the turns of every session on a pool of at
// most workers goroutines. Every fetch settles before it returns.
// A session whose fetch fails contributes no turns and is
// reported in failures. Turns are concatenated in session order
// regardless of completion order.
func FetchTurns(
	ctx context.Context, src Source,
	sessions []record.Session, workers int,
) (turns []record.Turn, failures []Failure) {
	turns = []record.Turn{}
	if len(sessions) == 0 {
		return turns, nil
	}
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	workers = min(workers, len(sessions))

	jobs := make(chan fetchJob, len(sessions))
	results := make(chan fetchResult, len(sessions))

	for range workers {
		go func() {
			for j := range jobs {
				d, err := FetchDetail(ctx, src, j.sessionID)
				results <- fetchResult{pos: j.pos, detail: d, err: err}
			}
		}()
	}

	for i, s := range sessions {
		jobs <- fetchJob{pos: i, sessionID: s.ID}
	}
	close(jobs)

	byPos := make([][]record.Turn, len(sessions))
	failed := make([]error, len(sessions))
	for range sessions {
		r := <-results
		if r.err != nil {
			failed[r.pos] = r.err
			continue
		}
		byPos[r.pos] = r.detail.Turns
	}

	for i, s := range sessions {
		if err := failed[i]; err != nil {
			log.Printf("fetch turns %s: %v", s.ID, err)
			failures = append(failures, Failure{
				SessionID: s.ID, Err: err,
			})
			continue
		}
		turns = append(turns, byPos[i]...)
	}
	return turns, failures
}
