package view

import (
	"strconv"

	"github.com/wesm/interviewlens/internal/analytics"
	"github.com/wesm/interviewlens/internal/record"
)

// EmptyTurns is shown for a session without turns.
const EmptyTurns = "No turns recorded."

// MetricsUnavailable replaces the metric chips of a turn the
// evaluator did not rate.
const MetricsUnavailable = "Metrics not available for this turn."

// Distribution slice names, one per score band.
var bandNames = [...]string{"0–4", "5–7", "8–10"}

// chipLabels are the short per-turn metric names in
// record.MetricFields order.
var chipLabels = [...]string{"Tech", "Complete", "Clarity", "Tone"}

// MetricChip is one per-turn metric value.
type MetricChip struct {
	Label string   `json:"label"`
	Value *float64 `json:"value"`
	Text  string   `json:"text"`
}

// TurnDetail is the detail card of one turn.
type TurnDetail struct {
	Index      int          `json:"index"`
	Title      string       `json:"title"`
	Question   string       `json:"question"`
	Answer     string       `json:"answer"`
	Feedback   string       `json:"feedback"`
	Score      *float64     `json:"score"`
	ScoreLabel string       `json:"score_label,omitempty"`
	HasMetrics bool         `json:"has_metrics"`
	Metrics    []MetricChip `json:"metrics"`
	Flags      []string     `json:"flags"`
	Notes      string       `json:"notes,omitempty"`
	// Unavailable is set when HasMetrics is false.
	Unavailable string `json:"unavailable,omitempty"`
}

// SessionView is the detail page of one session.
type SessionView struct {
	SessionID    string       `json:"session_id"`
	Heading      string       `json:"heading"`
	Subtitle     string       `json:"subtitle,omitempty"`
	Overall      *float64     `json:"overall"`
	OverallLabel string       `json:"overall_label,omitempty"`
	Bars         []ChartPoint `json:"bars"`
	Radar        []ChartPoint `json:"radar"`
	Distribution []Slice      `json:"distribution"`
	Metrics      []StatCard   `json:"metrics"`
	Turns        []TurnDetail `json:"turns"`
	Empty        string       `json:"empty,omitempty"`
}

// NewSessionView lays out the aggregate of one session.
func NewSessionView(
	sess record.Session, st analytics.SessionStats, opts Options,
) SessionView {
	v := SessionView{
		SessionID: sess.ID,
		Heading:   Heading(&sess),
		Overall:   st.Overall,
		Bars:      make([]ChartPoint, 0, len(st.Bars)),
		Distribution: []Slice{
			{Name: bandNames[0], Value: st.Buckets.Low},
			{Name: bandNames[1], Value: st.Buckets.Mid},
			{Name: bandNames[2], Value: st.Buckets.High},
		},
		Metrics: metricCards(st.Metrics),
		Turns:   make([]TurnDetail, 0, len(st.Turns)),
	}
	if sess.CreatedAt != nil {
		v.Subtitle = "Interviewed on: " + opts.dateTime(sess.CreatedAt)
	}
	if st.Overall != nil {
		v.OverallLabel = "Overall: " + outOfTen(st.Overall)
	}
	for _, b := range st.Bars {
		v.Bars = append(v.Bars, ChartPoint{
			Name: QuestionLabel(b.Index), Score: b.Score,
		})
	}
	v.Radar = v.Bars
	if len(v.Radar) == 0 {
		v.Radar = []ChartPoint{{Name: QuestionLabel(0), Score: 0}}
	}
	for i, t := range st.Turns {
		var m *analytics.MetricAverages
		if i < len(st.TurnMetrics) {
			m = st.TurnMetrics[i]
		}
		v.Turns = append(v.Turns, turnDetail(t, m))
	}
	if len(v.Turns) == 0 {
		v.Empty = EmptyTurns
	}
	return v
}

// metricCards renders averages in record.MetricFields order.
func metricCards(m analytics.MetricAverages) []StatCard {
	cards := make([]StatCard, 0, len(record.MetricFields))
	for _, f := range record.MetricFields {
		cards = append(cards, StatCard{
			Label: f.Label(),
			Value: formatOptional(m.Get(f)),
		})
	}
	return cards
}

// turnDetail lays out one turn. m is the turn's rounded metrics
// from the session aggregate.
func turnDetail(t record.Turn, m *analytics.MetricAverages) TurnDetail {
	d := TurnDetail{
		Index:    t.Index,
		Title:    "Question " + strconv.Itoa(t.Index+1),
		Question: t.Question,
		Answer:   t.UserAnswer,
		Feedback: t.Feedback,
		Score:    t.Score,
		Metrics:  []MetricChip{},
		Flags:    []string{},
	}
	if t.Score != nil {
		d.ScoreLabel = outOfTen(t.Score)
	}
	if t.Metrics == nil || m == nil {
		d.Unavailable = MetricsUnavailable
		return d
	}
	d.HasMetrics = true
	d.Notes = t.Metrics.Notes
	for i, f := range record.MetricFields {
		c := MetricChip{Label: chipLabels[i], Value: m.Get(f)}
		c.Text = outOfTen(c.Value)
		d.Metrics = append(d.Metrics, c)
	}
	d.Flags = FlagNames(t.Metrics.Flags)
	return d
}

// FlagNames lists the raised flags by display name.
func FlagNames(f *record.Flags) []string {
	names := []string{}
	if f == nil {
		return names
	}
	if f.Gibberish {
		names = append(names, "gibberish")
	}
	if f.OffTopic {
		names = append(names, "off-topic")
	}
	if f.DontKnow {
		names = append(names, "don’t-know")
	}
	if f.PolicyViolation {
		names = append(names, "policy")
	}
	return names
}
