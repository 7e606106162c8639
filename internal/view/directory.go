package view

import "github.com/wesm/interviewlens/internal/record"

// EmptyDirectory is shown when the user has no sessions.
const EmptyDirectory = "No sessions yet."

// DirectoryEntry is one row of the session list.
type DirectoryEntry struct {
	SessionID string   `json:"session_id"`
	Title     string   `json:"title"`
	Subtitle  string   `json:"subtitle"`
	Date      string   `json:"date"`
	Overall   *float64 `json:"overall"`
	// OverallLabel is empty when the session has no overall
	// score of its own.
	OverallLabel string `json:"overall_label,omitempty"`
}

// DirectorySummary is the "All Sessions" row heading the list.
type DirectorySummary struct {
	Title     string `json:"title"`
	Subtitle  string `json:"subtitle"`
	Sessions  int    `json:"sessions"`
	Questions int    `json:"questions"`
}

// Directory is the session list view.
type Directory struct {
	Summary DirectorySummary `json:"summary"`
	Entries []DirectoryEntry `json:"entries"`
	Empty   string           `json:"empty,omitempty"`
}

// NewDirectory lays out an already deduplicated and sorted
// session list. questions is the total turn count shown in the
// summary row.
func NewDirectory(
	sessions []record.Session, questions int, opts Options,
) Directory {
	d := Directory{
		Summary: DirectorySummary{
			Title:     "All Sessions",
			Subtitle:  "Overview",
			Sessions:  len(sessions),
			Questions: questions,
		},
		Entries: make([]DirectoryEntry, 0, len(sessions)),
	}
	for _, s := range sessions {
		d.Entries = append(d.Entries, directoryEntry(s, opts))
	}
	if len(d.Entries) == 0 {
		d.Empty = EmptyDirectory
	}
	return d
}

func directoryEntry(s record.Session, opts Options) DirectoryEntry {
	sub := orMissing(s.Role)
	if s.Level != "" {
		sub += " — " + s.Level
	}
	e := DirectoryEntry{
		SessionID: s.ID,
		Title:     s.Company,
		Subtitle:  sub,
		Date:      opts.dateTime(s.CreatedAt),
		Overall:   s.OverallScore,
	}
	if s.OverallScore != nil {
		e.OverallLabel = "Overall " + outOfTen(s.OverallScore)
	}
	return e
}
