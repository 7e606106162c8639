// Package analytics derives every numeric view of interview
// sessions: overall scores, skill-metric averages, score bands,
// distributions and time series. All functions are pure; they
// read normalized records and return new values.
package analytics

import (
	"math"

	"github.com/wesm/interviewlens/internal/record"
)

// Round1 rounds v to one decimal place, halves rounding up.
// Rounding an already-rounded value returns it unchanged.
func Round1(v float64) float64 {
	return math.Floor(v*10+0.5) / 10
}

// meanOf returns the arithmetic mean of vals, or false when vals
// is empty.
func meanOf(vals []float64) (float64, bool) {
	if len(vals) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals)), true
}

// roundedMean returns the mean of vals rounded to one decimal,
// or nil when vals is empty.
func roundedMean(vals []float64) *float64 {
	m, ok := meanOf(vals)
	if !ok {
		return nil
	}
	r := Round1(m)
	return &r
}

// scores returns the numeric scores of turns, skipping unscored
// ones.
func scores(turns []record.Turn) []float64 {
	out := make([]float64, 0, len(turns))
	for _, t := range turns {
		if t.Score != nil {
			out = append(out, *t.Score)
		}
	}
	return out
}

// MetricAverages holds one rounded average per skill metric.
// A nil field means no turn supplied that metric.
type MetricAverages struct {
	TechnicalCorrectness *float64 `json:"technical_correctness"`
	Completeness         *float64 `json:"completeness"`
	Clarity              *float64 `json:"clarity"`
	Tone                 *float64 `json:"tone"`
}

// Get returns the average for f.
func (m MetricAverages) Get(f record.MetricField) *float64 {
	switch f {
	case record.TechnicalCorrectness:
		return m.TechnicalCorrectness
	case record.Completeness:
		return m.Completeness
	case record.Clarity:
		return m.Clarity
	case record.Tone:
		return m.Tone
	}
	return nil
}

func (m *MetricAverages) set(f record.MetricField, v *float64) {
	switch f {
	case record.TechnicalCorrectness:
		m.TechnicalCorrectness = v
	case record.Completeness:
		m.Completeness = v
	case record.Clarity:
		m.Clarity = v
	case record.Tone:
		m.Tone = v
	}
}

// AverageMetrics averages each skill metric over the turns that
// supply it. Turns without metrics, and metrics without a given
// field, do not count toward that field's denominator.
func AverageMetrics(turns []record.Turn) MetricAverages {
	vals := make(map[record.MetricField][]float64, len(record.MetricFields))
	for _, t := range turns {
		if t.Metrics == nil {
			continue
		}
		for _, f := range record.MetricFields {
			if v := t.Metrics.Value(f); v != nil {
				vals[f] = append(vals[f], *v)
			}
		}
	}

	var avg MetricAverages
	for _, f := range record.MetricFields {
		avg.set(f, roundedMean(vals[f]))
	}
	return avg
}
