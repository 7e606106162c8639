package view

import (
	"fmt"
	"time"

	"github.com/wesm/interviewlens/internal/analytics"
)

// EmptyRecent is shown when there are no sessions to list.
const EmptyRecent = "No sessions."

// LinePoint is one point of the score-over-time series.
type LinePoint struct {
	Time time.Time `json:"time"`
	Date string    `json:"date"`
	// Name is the abbreviated company label.
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// LabelledScore is one bar of the score-by-session series.
type LabelledScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// RecentCard is one entry of the detailed feedback list.
type RecentCard struct {
	SessionID string `json:"session_id"`
	Company   string `json:"company"`
	Role      string `json:"role"`
	Level     string `json:"level"`
	Score     string `json:"score"`
	Date      string `json:"date"`
}

// SummaryView is the all-sessions page.
type SummaryView struct {
	Heading         string          `json:"heading"`
	AvgAll          *float64        `json:"avg_all"`
	AverageLabel    string          `json:"average_label,omitempty"`
	Stats           []StatCard      `json:"stats"`
	CompanyAverages []ChartPoint    `json:"company_averages"`
	RolePie         []Slice         `json:"role_pie"`
	CompanyBar      []Slice         `json:"company_bar"`
	Line            []LinePoint     `json:"line"`
	ScoreBySession  []LabelledScore `json:"score_by_session"`
	Metrics         []StatCard      `json:"metrics"`
	Recent          []RecentCard    `json:"recent"`
	Empty           string          `json:"empty,omitempty"`
}

// NewSummaryView lays out the global aggregate.
func NewSummaryView(s analytics.Summary, opts Options) SummaryView {
	v := SummaryView{
		Heading: SummaryHeading,
		AvgAll:  s.AvgAll,
		Stats: []StatCard{
			{Label: "Sessions", Value: fmt.Sprint(s.TotalSessions)},
			{Label: "Questions Answered", Value: fmt.Sprint(s.TotalTurns)},
			{Label: "Companies Practiced", Value: fmt.Sprint(s.Companies)},
			{Label: "Roles Practiced", Value: fmt.Sprint(s.Roles)},
			{Label: "Levels Practiced", Value: fmt.Sprint(s.Levels)},
		},
		CompanyAverages: make([]ChartPoint, 0, len(s.CompanyAverages)),
		RolePie:         slices(s.RoleCounts),
		CompanyBar:      slices(s.CompanyCounts),
		Line:            make([]LinePoint, 0, len(s.Timeline)),
		ScoreBySession:  make([]LabelledScore, 0, len(s.Timeline)),
		Metrics:         metricCards(s.Metrics),
		Recent:          make([]RecentCard, 0, len(s.Recent)),
	}
	if s.AvgAll != nil {
		v.AverageLabel = "Average: " + outOfTen(s.AvgAll)
	}
	for _, c := range s.CompanyAverages {
		v.CompanyAverages = append(v.CompanyAverages, ChartPoint{
			Name: c.Name, Score: c.Score,
		})
	}
	for _, a := range s.Timeline {
		v.Line = append(v.Line, LinePoint{
			Time:  *a.Session.CreatedAt,
			Date:  opts.date(a.Session.CreatedAt),
			Name:  Abbrev(a.Session.Company),
			Score: a.Score,
		})
		v.ScoreBySession = append(v.ScoreBySession, LabelledScore{
			Label: SessionLabel(a.Session, opts),
			Score: a.Score,
		})
	}
	for _, a := range s.Recent {
		v.Recent = append(v.Recent, recentCard(a, opts))
	}
	if len(v.Recent) == 0 {
		v.Empty = EmptyRecent
	}
	return v
}

func slices(counts []analytics.Count) []Slice {
	out := make([]Slice, 0, len(counts))
	for _, c := range counts {
		out = append(out, Slice{Name: c.Name, Value: c.Value})
	}
	return out
}

func recentCard(a analytics.SessionAverage, opts Options) RecentCard {
	score := missing
	if a.ScoredTurns > 0 {
		score = fmt.Sprintf("%.1f", a.Score)
	}
	return RecentCard{
		SessionID: a.Session.ID,
		Company:   a.Session.Company,
		Role:      orMissing(a.Session.Role),
		Level:     orMissing(a.Session.Level),
		Score:     score,
		Date:      opts.dateTime(a.Session.CreatedAt),
	}
}
