package record

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	"github.com/wesm/interviewlens/internal/timeutil"
)

// NormalizeSession converts one raw session payload. ok is false
// when the payload carries no session id; such records are
// dropped rather than reported.
func NormalizeSession(raw gjson.Result) (Session, bool) {
	if !raw.IsObject() {
		return Session{}, false
	}
	id := firstString(raw, "sessionId", "_id")
	if id == "" {
		return Session{}, false
	}

	created := parseTime(raw.Get("createdAt"))
	if created == nil {
		created = parseTime(raw.Get("startedAt"))
	}
	ended := parseTime(raw.Get("endedAt"))
	if ended == nil {
		ended = parseTime(raw.Get("updatedAt"))
	}

	overall := number(raw.Get("overallScore"))
	if overall == nil {
		overall = number(raw.Get("scores.overall"))
	}

	company := raw.Get("company").Str
	if company == "" {
		company = CompanyPlaceholder
	}

	return Session{
		ID:           id,
		CreatedAt:    created,
		EndedAt:      ended,
		Company:      capitalize(company),
		Role:         raw.Get("role").Str,
		Level:        raw.Get("level").Str,
		OverallScore: overall,
		UserID:       raw.Get("userId").Str,
		UserEmail:    raw.Get("userEmail").Str,
	}, true
}

// NormalizeTurn converts one raw turn payload belonging to
// sessionID. position is the turn's place in the payload list
// and stands in for a missing index.
func NormalizeTurn(
	sessionID string, position int, raw gjson.Result,
) Turn {
	index := position
	if v := raw.Get("index"); v.Type == gjson.Number {
		index = int(v.Int())
	}
	return Turn{
		SessionID:  sessionID,
		Index:      index,
		Question:   raw.Get("question").Str,
		UserAnswer: raw.Get("userAnswer").Str,
		Feedback:   raw.Get("feedback").Str,
		Score:      number(raw.Get("score")),
		CreatedAt:  parseTime(raw.Get("createdAt")),
		Metrics:    normalizeMetrics(raw.Get("metrics")),
	}
}

func normalizeMetrics(raw gjson.Result) *Metrics {
	if !raw.IsObject() {
		return nil
	}
	m := &Metrics{
		TechnicalCorrectness: number(raw.Get("technical_correctness")),
		Completeness:         number(raw.Get("completeness")),
		Clarity:              number(raw.Get("clarity")),
		Tone:                 number(raw.Get("tone")),
		Notes:                raw.Get("notes").Str,
	}
	if f := raw.Get("flags"); f.IsObject() {
		m.Flags = &Flags{
			Gibberish:       f.Get("gibberish").Bool(),
			OffTopic:        f.Get("off_topic").Bool(),
			DontKnow:        f.Get("dont_know").Bool(),
			PolicyViolation: f.Get("policy_violation").Bool(),
		}
	}
	return m
}

// ParseSessionList parses a session-list response body (a JSON
// array) into normalized sessions, in payload order. Entries
// without an id are skipped. Duplicates are kept; see Dedupe.
func ParseSessionList(data []byte) ([]Session, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("session list: invalid JSON")
	}
	res := gjson.ParseBytes(data)
	if res.Type == gjson.Null {
		return []Session{}, nil
	}
	if !res.IsArray() {
		return nil, fmt.Errorf("session list: expected array")
	}

	sessions := []Session{}
	res.ForEach(func(_, v gjson.Result) bool {
		if s, ok := NormalizeSession(v); ok {
			sessions = append(sessions, s)
		}
		return true
	})
	return sessions, nil
}

// Detail is a parsed session-detail response.
type Detail struct {
	// Session is nil when the response carried no usable
	// session object.
	Session *Session
	Turns   []Turn
}

// ParseSessionDetail parses a session-detail response body of
// the form {"session": {...}, "turns": [...]}. Every turn is
// attributed to sessionID, the session the request was issued
// for, whatever the payload says.
func ParseSessionDetail(
	sessionID string, data []byte,
) (Detail, error) {
	if !gjson.ValidBytes(data) {
		return Detail{}, fmt.Errorf(
			"session %s detail: invalid JSON", sessionID,
		)
	}
	res := gjson.ParseBytes(data)

	d := Detail{Turns: []Turn{}}
	if s, ok := NormalizeSession(res.Get("session")); ok {
		d.Session = &s
	}
	pos := 0
	res.Get("turns").ForEach(func(_, v gjson.Result) bool {
		if v.IsObject() {
			d.Turns = append(d.Turns, NormalizeTurn(sessionID, pos, v))
		}
		pos++
		return true
	})
	return d, nil
}

// number returns the value only when the JSON type is a number.
// Numeric strings are treated as absent.
func number(v gjson.Result) *float64 {
	if v.Type != gjson.Number {
		return nil
	}
	f := v.Float()
	return &f
}

// parseTime accepts timestamp strings, Unix milliseconds, and
// Mongo extended JSON {"$date": ...}.
func parseTime(v gjson.Result) *time.Time {
	if v.IsObject() {
		v = v.Get("$date")
		if v.IsObject() {
			// {"$date": {"$numberLong": "1717232400000"}}
			ms := v.Get("$numberLong")
			if ms.Type != gjson.String && ms.Type != gjson.Number {
				return nil
			}
			t := timeutil.FromMillis(ms.Int())
			return &t
		}
	}
	switch v.Type {
	case gjson.String:
		t, ok := timeutil.Parse(v.Str)
		if !ok {
			return nil
		}
		return &t
	case gjson.Number:
		t := timeutil.FromMillis(v.Int())
		return &t
	}
	return nil
}

func firstString(raw gjson.Result, keys ...string) string {
	for _, k := range keys {
		if s := raw.Get(k).Str; s != "" {
			return s
		}
	}
	return ""
}

// capitalize upper-cases the first rune of s.
func capitalize(s string) string {
	_, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return strings.ToUpper(s[:size]) + s[size:]
}
