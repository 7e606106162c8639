// Package view maps aggregation results onto the labelled
// structures a dashboard renders: stat cards, chart points,
// headings and detail rows. Nothing here aggregates; every number
// comes from the analytics package.
package view

import (
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/wesm/interviewlens/internal/record"
)

const (
	// SummaryHeading is the title of the all-sessions view.
	SummaryHeading = "All Interviews"
	// abbrevRunes is the company prefix kept in abbreviated
	// chart labels.
	abbrevRunes = 8
	// missing is displayed for absent values.
	missing = record.CompanyPlaceholder
)

// Date layouts used for display.
const (
	DateTimeLayout = "2006-01-02 15:04"
	DateLayout     = "2006-01-02"
)

// Options controls display formatting.
type Options struct {
	Timezone string // IANA name; empty or invalid means UTC
}

// location loads the timezone or returns UTC on error.
func (o Options) location() *time.Location {
	if o.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(o.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (o Options) dateTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.In(o.location()).Format(DateTimeLayout)
}

func (o Options) date(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.In(o.location()).Format(DateLayout)
}

// StatCard is a key/value tile.
type StatCard struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// ChartPoint is one labelled value of a bar or radar chart.
type ChartPoint struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Slice is one labelled count of a pie or count bar chart.
type Slice struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// Abbrev shortens a company name for crowded chart axes. Names
// longer than eight characters are cut and get a trailing
// ellipsis; an empty name becomes the placeholder.
func Abbrev(company string) string {
	if company == "" {
		return missing
	}
	if utf8.RuneCountInString(company) <= abbrevRunes {
		return company
	}
	r := []rune(company)
	return string(r[:abbrevRunes]) + "…"
}

// Heading returns the title for a session, or SummaryHeading when
// sess is nil.
func Heading(sess *record.Session) string {
	if sess == nil {
		return SummaryHeading
	}
	role := sess.Role
	if role == "" {
		role = "Interview"
	}
	h := sess.Company + " — " + role
	if sess.Level != "" {
		h += " (" + sess.Level + ")"
	}
	return h
}

// SessionLabel is the "Company • date" label of a session in the
// score-by-session series.
func SessionLabel(sess record.Session, opts Options) string {
	return sess.Company + " • " + opts.date(sess.CreatedAt)
}

// QuestionLabel returns the one-based chart label of a turn.
func QuestionLabel(index int) string {
	return "Q" + strconv.Itoa(index+1)
}

// FormatScore renders a score the shortest way: 7 as "7", 7.5 as
// "7.5".
func FormatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// formatOptional renders v or the placeholder when nil.
func formatOptional(v *float64) string {
	if v == nil {
		return missing
	}
	return FormatScore(*v)
}

// outOfTen renders "v/10", using the placeholder for nil.
func outOfTen(v *float64) string {
	return formatOptional(v) + "/10"
}

func orMissing(s string) string {
	if s == "" {
		return missing
	}
	return s
}
