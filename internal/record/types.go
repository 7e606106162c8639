// Package record converts raw backend payloads into the typed
// session and turn records the analytics engine works on, and
// collapses duplicate session records into a directory.
package record

import (
	"strings"
	"time"
)

// CompanyPlaceholder is shown when a session has no company.
const CompanyPlaceholder = "—"

// Session is one normalized interview-practice session.
type Session struct {
	ID           string     `json:"session_id"`
	CreatedAt    *time.Time `json:"created_at"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
	Company      string     `json:"company"`
	Role         string     `json:"role"`
	Level        string     `json:"level"`
	OverallScore *float64   `json:"overall_score"`
	UserID       string     `json:"user_id,omitempty"`
	UserEmail    string     `json:"user_email,omitempty"`
}

// Dated reports whether the session has a parseable creation
// time.
func (s Session) Dated() bool {
	return s.CreatedAt != nil
}

// Turn is one question/answer/feedback exchange.
type Turn struct {
	SessionID  string     `json:"session_id"`
	Index      int        `json:"index"`
	Question   string     `json:"question"`
	UserAnswer string     `json:"user_answer"`
	Feedback   string     `json:"feedback"`
	Score      *float64   `json:"score"`
	CreatedAt  *time.Time `json:"created_at"`
	Metrics    *Metrics   `json:"metrics"`
}

// Scored reports whether the turn carries a numeric score.
func (t Turn) Scored() bool {
	return t.Score != nil
}

// Flags are the evaluator's answer-quality markers.
type Flags struct {
	Gibberish       bool `json:"gibberish"`
	OffTopic        bool `json:"off_topic"`
	DontKnow        bool `json:"dont_know"`
	PolicyViolation bool `json:"policy_violation"`
}

// Any reports whether at least one flag is raised.
func (f Flags) Any() bool {
	return f.Gibberish || f.OffTopic || f.DontKnow || f.PolicyViolation
}

// Metrics holds the four skill ratings attached to a turn.
// A nil field was not supplied by the evaluator.
type Metrics struct {
	TechnicalCorrectness *float64 `json:"technical_correctness"`
	Completeness         *float64 `json:"completeness"`
	Clarity              *float64 `json:"clarity"`
	Tone                 *float64 `json:"tone"`
	Flags                *Flags   `json:"flags,omitempty"`
	Notes                string   `json:"notes,omitempty"`
}

// MetricField identifies one of the four skill ratings.
type MetricField int

const (
	TechnicalCorrectness MetricField = iota
	Completeness
	Clarity
	Tone
)

// MetricFields lists every skill rating in display order.
var MetricFields = []MetricField{
	TechnicalCorrectness, Completeness, Clarity, Tone,
}

var metricKeys = [...]string{
	"technical_correctness", "completeness", "clarity", "tone",
}

// Key returns the payload key of the field.
func (f MetricField) Key() string {
	return metricKeys[f]
}

// Label returns the human-readable field name, e.g.
// "Technical Correctness".
func (f MetricField) Label() string {
	words := strings.Split(f.Key(), "_")
	for i, w := range words {
		words[i] = capitalize(w)
	}
	return strings.Join(words, " ")
}

// Value returns the rating for f, or nil when m is nil or the
// field is absent.
func (m *Metrics) Value(f MetricField) *float64 {
	if m == nil {
		return nil
	}
	switch f {
	case TechnicalCorrectness:
		return m.TechnicalCorrectness
	case Completeness:
		return m.Completeness
	case Clarity:
		return m.Clarity
	case Tone:
		return m.Tone
	}
	return nil
}

// Identity names the user whose sessions are listed. UserID is
// preferred; Email is the legacy fallback.
type Identity struct {
	UserID string `json:"userId,omitempty"`
	Email  string `json:"email,omitempty"`
}

// Normalize trims both fields and lowercases the email.
func (id Identity) Normalize() Identity {
	return Identity{
		UserID: strings.TrimSpace(id.UserID),
		Email:  strings.ToLower(strings.TrimSpace(id.Email)),
	}
}

// Empty reports whether neither field is set after
// normalization.
func (id Identity) Empty() bool {
	n := id.Normalize()
	return n.UserID == "" && n.Email == ""
}

// Key returns a stable string for use as a map key.
func (id Identity) Key() string {
	n := id.Normalize()
	if n.UserID != "" {
		return "user:" + n.UserID
	}
	return "email:" + n.Email
}
