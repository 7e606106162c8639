package analytics

import (
	"sort"

	"github.com/wesm/interviewlens/internal/record"
)

// placeholder keys grouped counts for sessions with no role.
const placeholder = record.CompanyPlaceholder

// SessionAverage is one session's score summary within the
// global view.
type SessionAverage struct {
	Session record.Session `json:"session"`
	// Score is the mean of the scored turns rounded to one
	// decimal, or 0 when none are scored (a chart default).
	Score       float64 `json:"score"`
	ScoredTurns int     `json:"scored_turns"`
	Turns       int     `json:"turns"`
	// Overall is the session's own overall score if present,
	// else its rounded average, else nil.
	Overall *float64 `json:"overall"`

	mean float64 // unrounded, for company averages
}

// Average returns the rounded session average, or nil when the
// session has no scored turns.
func (a SessionAverage) Average() *float64 {
	if a.ScoredTurns == 0 {
		return nil
	}
	v := a.Score
	return &v
}

// Count is one bar or slice of a grouped histogram.
type Count struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// CompanyScore is a company's average of session averages.
type CompanyScore struct {
	Name     string  `json:"name"`
	Score    float64 `json:"score"`
	Sessions int     `json:"sessions"`
}

// Summary is the global aggregate across every session.
type Summary struct {
	TotalSessions int      `json:"total_sessions"`
	TotalTurns    int      `json:"total_turns"`
	Companies     int      `json:"companies"`
	Roles         int      `json:"roles"`
	Levels        int      `json:"levels"`
	AvgAll        *float64 `json:"avg_all"`

	// PerSession follows the input session order.
	PerSession []SessionAverage `json:"per_session"`
	// Timeline holds dated sessions, oldest first.
	Timeline []SessionAverage `json:"timeline"`
	// Recent holds every session, newest first, undated last.
	Recent []SessionAverage `json:"recent"`

	RoleCounts      []Count        `json:"role_counts"`
	CompanyCounts   []Count        `json:"company_counts"`
	CompanyAverages []CompanyScore `json:"company_averages"`
	Metrics         MetricAverages `json:"metrics"`
}

// Summarize computes the global aggregate. sessions is the
// deduplicated directory; turns is the concatenation of every
// session's turns that could be fetched. A session whose fetch
// failed simply has no turns.
func Summarize(
	sessions []record.Session, turns []record.Turn,
) Summary {
	s := Summary{
		TotalSessions:   len(sessions),
		TotalTurns:      len(turns),
		AvgAll:          roundedMean(scores(turns)),
		PerSession:      make([]SessionAverage, 0, len(sessions)),
		Timeline:        []SessionAverage{},
		Recent:          make([]SessionAverage, 0, len(sessions)),
		RoleCounts:      []Count{},
		CompanyCounts:   []Count{},
		CompanyAverages: []CompanyScore{},
		Metrics:         AverageMetrics(turns),
	}

	bySession := make(map[string][]record.Turn, len(sessions))
	for _, t := range turns {
		bySession[t.SessionID] = append(bySession[t.SessionID], t)
	}

	companies := make(map[string]bool)
	roles := make(map[string]bool)
	levels := make(map[string]bool)

	for _, sess := range sessions {
		if sess.Company != "" {
			companies[sess.Company] = true
		}
		if sess.Role != "" {
			roles[sess.Role] = true
		}
		if sess.Level != "" {
			levels[sess.Level] = true
		}
		s.PerSession = append(s.PerSession,
			sessionAverage(sess, bySession[sess.ID]))
	}
	s.Companies = len(companies)
	s.Roles = len(roles)
	s.Levels = len(levels)

	for _, a := range s.PerSession {
		if a.Session.Dated() {
			s.Timeline = append(s.Timeline, a)
		}
		s.Recent = append(s.Recent, a)
	}
	sort.SliceStable(s.Timeline, func(i, j int) bool {
		return s.Timeline[i].Session.CreatedAt.Before(
			*s.Timeline[j].Session.CreatedAt)
	})
	sort.SliceStable(s.Recent, func(i, j int) bool {
		return record.Newer(s.Recent[i].Session, s.Recent[j].Session)
	})

	s.RoleCounts = countBy(sessions, func(x record.Session) string {
		return x.Role
	})
	s.CompanyCounts = countBy(sessions, func(x record.Session) string {
		return x.Company
	})
	sort.SliceStable(s.CompanyCounts, func(i, j int) bool {
		return s.CompanyCounts[i].Value > s.CompanyCounts[j].Value
	})

	s.CompanyAverages = companyAverages(s.PerSession)
	return s
}

func sessionAverage(
	sess record.Session, turns []record.Turn,
) SessionAverage {
	a := SessionAverage{
		Session: sess,
		Turns:   len(turns),
	}
	vals := scores(turns)
	if m, ok := meanOf(vals); ok {
		a.mean = m
		a.Score = Round1(m)
		a.ScoredTurns = len(vals)
	}
	a.Overall = OverallScore(sess, turns)
	return a
}

// countBy builds a histogram over sessions in first-seen key
// order. Empty keys are grouped under the placeholder.
func countBy(
	sessions []record.Session, key func(record.Session) string,
) []Count {
	idx := make(map[string]int)
	out := []Count{}
	for _, sess := range sessions {
		k := key(sess)
		if k == "" {
			k = placeholder
		}
		i, ok := idx[k]
		if !ok {
			i = len(out)
			idx[k] = i
			out = append(out, Count{Name: k})
		}
		out[i].Value++
	}
	return out
}

// companyAverages is a two-level mean: each session contributes
// its own unrounded average once, however many turns it has.
// Sessions with no scored turns are left out.
func companyAverages(per []SessionAverage) []CompanyScore {
	type agg struct {
		sum float64
		n   int
	}
	idx := make(map[string]int)
	var names []string
	var aggs []agg
	for _, a := range per {
		if a.ScoredTurns == 0 {
			continue
		}
		k := a.Session.Company
		if k == "" {
			k = placeholder
		}
		i, ok := idx[k]
		if !ok {
			i = len(aggs)
			idx[k] = i
			names = append(names, k)
			aggs = append(aggs, agg{})
		}
		aggs[i].sum += a.mean
		aggs[i].n++
	}

	out := make([]CompanyScore, 0, len(aggs))
	for i, g := range aggs {
		out = append(out, CompanyScore{
			Name:     names[i],
			Score:    Round1(g.sum / float64(g.n)),
			Sessions: g.n,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}
