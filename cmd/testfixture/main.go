package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/wesm/interviewlens/internal/store"
)

type fixtureSession struct {
	suffix  string
	company string
	role    string
	level   string
	turns   int
	// legacy writes the _id/startedAt/scores.overall variant.
	legacy  bool
	undated bool
	overall *float64
}

var fixtures = []fixtureSession{
	{suffix: "acme-backend", company: "acme", role: "Backend Engineer", level: "Senior", turns: 5},
	{suffix: "acme-frontend", company: "acme", role: "Frontend Engineer", level: "Mid", turns: 3, legacy: true},
	{suffix: "globex-sre", company: "globex", role: "SRE", turns: 4, overall: ptr(8.5)},
	{suffix: "initech-data", company: "initech", role: "Data Engineer", level: "Junior", turns: 6, legacy: true, overall: ptr(6.0)},
	{suffix: "no-company", role: "Backend Engineer", turns: 2},
	{suffix: "undated", company: "umbrella", role: "SRE", turns: 2, undated: true},
	{suffix: "empty", company: "hooli", role: "Product Manager", turns: 0},
	{suffix: "verylongcompanyname", company: "verylongcompanyname", turns: 3},
}

const (
	fixtureUser  = "demo-user"
	fixtureEmail = "demo@example.com"
)

func main() {
	out := flag.String("out", "", "output database path")
	export := flag.String("export", "", "also write an export file to this path")
	flag.Parse()
	if *out == "" && *export == "" {
		fmt.Fprintln(os.Stderr,
			"usage: testfixture -out <db path> [-export <json path>]")
		os.Exit(1)
	}

	base := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	batch, err := buildBatch(base)
	if err != nil {
		log.Fatalf("building fixtures: %v", err)
	}

	if *export != "" {
		if err := writeExport(*export, batch); err != nil {
			log.Fatalf("writing export: %v", err)
		}
		fmt.Printf("Export written to %s\n", *export)
	}
	if *out == "" {
		return
	}

	if err := os.Remove(*out); err != nil &&
		!errors.Is(err, os.ErrNotExist) {
		log.Fatalf("removing existing db: %v", err)
	}
	database, err := store.Open(*out)
	if err != nil {
		log.Fatalf("opening db: %v", err)
	}
	defer database.Close()

	res, err := database.Import(batch)
	if err != nil {
		log.Fatalf("importing fixtures: %v", err)
	}
	for _, fx := range fixtures {
		fmt.Printf("  test-session-%s: %d turns\n", fx.suffix, fx.turns)
	}
	fmt.Printf(
		"Fixture DB written to %s (%d sessions, %d turns)\n",
		*out, res.Sessions, res.Turns,
	)
}

func ptr[T any](v T) *T { return &v }

// buildBatch renders every fixture as raw payloads. Session i is
// dated i days after base; its turns score 4 through 10 in a
// repeating pattern and every third turn has no score.
func buildBatch(base time.Time) (store.Batch, error) {
	var b store.Batch
	for i, fx := range fixtures {
		sessionID := "test-session-" + fx.suffix
		started := base.Add(time.Duration(i) * 24 * time.Hour)

		raw, err := json.Marshal(sessionPayload(sessionID, fx, started))
		if err != nil {
			return store.Batch{}, fmt.Errorf("session %s: %w", sessionID, err)
		}
		b.Sessions = append(b.Sessions, raw)

		for j := range fx.turns {
			raw, err := json.Marshal(turnPayload(sessionID, i, j, started))
			if err != nil {
				return store.Batch{}, fmt.Errorf("turn %s/%d: %w", sessionID, j, err)
			}
			b.Turns = append(b.Turns, raw)
		}
	}
	return b, nil
}

func sessionPayload(
	id string, fx fixtureSession, started time.Time,
) map[string]any {
	p := map[string]any{
		"userId":    fixtureUser,
		"userEmail": fixtureEmail,
		"role":      fx.role,
		"level":     fx.level,
	}
	if fx.company != "" {
		p["company"] = fx.company
	}
	idKey, timeKey := "sessionId", "createdAt"
	if fx.legacy {
		idKey, timeKey = "_id", "startedAt"
	}
	p[idKey] = id
	if !fx.undated {
		p[timeKey] = started.Format(time.RFC3339)
	}
	if fx.overall != nil {
		if fx.legacy {
			p["scores"] = map[string]any{"overall": *fx.overall}
		} else {
			p["overallScore"] = *fx.overall
		}
	}
	return p
}

func turnPayload(
	sessionID string, session, index int, started time.Time,
) map[string]any {
	p := map[string]any{
		"sessionId":  sessionID,
		"index":      index,
		"question":   fmt.Sprintf("Question %d of session %d", index+1, session+1),
		"userAnswer": "An answer that walks through the approach.",
		"feedback":   "Structure the answer around the tradeoffs.",
		"createdAt":  started.Add(time.Duration(index) * 5 * time.Minute).Format(time.RFC3339),
	}
	if index%3 == 2 {
		return p
	}
	score := 4 + (session+index)%7
	p["score"] = score
	p["metrics"] = map[string]any{
		"technical_correctness": score,
		"completeness":          max(score-1, 0),
		"clarity":               min(score+1, 10),
		"tone":                  score,
		"flags": map[string]any{
			"gibberish": false,
			"off_topic": index == 4,
			"dont_know": score <= 4,
		},
		"notes": "Mention concrete numbers.",
	}
	return p
}

// writeExport writes b in the import file format.
func writeExport(path string, b store.Batch) error {
	data, err := json.MarshalIndent(map[string]any{
		"sessions": b.Sessions,
		"turns":    b.Turns,
	}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
