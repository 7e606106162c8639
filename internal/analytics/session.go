package analytics

import (
	"sort"

	"github.com/wesm/interviewlens/internal/record"
)

// Band is a score distribution bucket.
type Band string

const (
	BandLow  Band = "low"  // score <= 4
	BandMid  Band = "mid"  // 4 < score <= 7
	BandHigh Band = "high" // score > 7
)

// BandOf returns the distribution bucket for a score.
func BandOf(score float64) Band {
	switch {
	case score <= 4:
		return BandLow
	case score <= 7:
		return BandMid
	default:
		return BandHigh
	}
}

// Buckets counts scored turns per band. Unscored turns are not
// counted anywhere.
type Buckets struct {
	Low  int `json:"low"`
	Mid  int `json:"mid"`
	High int `json:"high"`
}

func (b *Buckets) add(score float64) {
	switch BandOf(score) {
	case BandLow:
		b.Low++
	case BandMid:
		b.Mid++
	default:
		b.High++
	}
}

// BarPoint is one per-question bar. Score is 0 for unscored
// turns; Scored tells the two apart.
type BarPoint struct {
	Index  int     `json:"index"`
	Score  float64 `json:"score"`
	Scored bool    `json:"scored"`
}

// SessionStats is the session-level aggregate for one session.
type SessionStats struct {
	SessionID   string         `json:"session_id"`
	Overall     *float64       `json:"overall"`
	ScoredTurns int            `json:"scored_turns"`
	Turns       []record.Turn  `json:"turns"`
	Metrics     MetricAverages `json:"metrics"`
	Buckets     Buckets        `json:"buckets"`
	Bars        []BarPoint     `json:"bars"`

	// TurnMetrics holds each turn's own metrics, rounded, aligned
	// with Turns. Nil for a turn without metrics.
	TurnMetrics []*MetricAverages `json:"turn_metrics"`
}

// OverallScore returns the session's own overall score when
// present, else the mean of the scored turns rounded to one
// decimal, else nil. turns must already belong to sess.
func OverallScore(
	sess record.Session, turns []record.Turn,
) *float64 {
	if sess.OverallScore != nil {
		v := *sess.OverallScore
		return &v
	}
	return roundedMean(scores(turns))
}

// AggregateSession computes the session-level aggregate for
// sess. Turns belonging to other sessions are ignored.
func AggregateSession(
	sess record.Session, turns []record.Turn,
) SessionStats {
	own := make([]record.Turn, 0, len(turns))
	for _, t := range turns {
		if t.SessionID == sess.ID {
			own = append(own, t)
		}
	}
	sort.SliceStable(own, func(i, j int) bool {
		return own[i].Index < own[j].Index
	})

	st := SessionStats{
		SessionID: sess.ID,
		Overall:   OverallScore(sess, own),
		Turns:     own,
		Metrics:   AverageMetrics(own),
		Bars:      make([]BarPoint, 0, len(own)),

		TurnMetrics: make([]*MetricAverages, 0, len(own)),
	}
	for _, t := range own {
		var tm *MetricAverages
		if t.Metrics != nil {
			m := AverageMetrics([]record.Turn{t})
			tm = &m
		}
		st.TurnMetrics = append(st.TurnMetrics, tm)

		bar := BarPoint{Index: t.Index}
		if t.Score != nil {
			bar.Score = *t.Score
			bar.Scored = true
			st.ScoredTurns++
			st.Buckets.add(*t.Score)
		}
		st.Bars = append(st.Bars, bar)
	}
	return st
}
