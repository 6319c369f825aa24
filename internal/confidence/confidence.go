// Package confidence turns an emotion histogram into a bounded confidence
// score and percentage.
package confidence

import (
	"math"

	"github.com/jonathan/interview-coach/internal/emotion"
)

// Score bounds. A histogram made only of Happy reaches MaxScore, one made
// only of Angry/Disgusted reaches MinScore.
const (
	MinScore = -3.0
	MaxScore = 3.0
)

// weights per scored label
var weights = map[emotion.Label]int{
	emotion.Happy:     3,
	emotion.Neutral:   2,
	emotion.Surprised: 0,
	emotion.Fearful:   -2,
	emotion.Sad:       -2,
	emotion.Angry:     -3,
	emotion.Disgusted: -3,
}

// Histogram counts observations per label.
type Histogram map[emotion.Label]int

// Metrics is the derived confidence summary.
type Metrics struct {
	Histogram  Histogram `json:"emotion_counts"`
	Score      float64   `json:"confidence_score"`
	Percentage int       `json:"confidence_percentage"`
}

// Level buckets a percentage for display.
type Level string

// Confidence levels.
const (
	LevelHigh   Level = "high"
	LevelMedium Level = "medium"
	LevelLow    Level = "low"
)

// Aggregate computes the confidence metrics for h. Labels outside the seven
// weighted ones (including emotion.NoFace) and non-positive counts are
// ignored. An empty histogram yields a zero score and a zero percentage.
func Aggregate(h Histogram) Metrics {
	counts := make(Histogram, len(weights))
	numerator := 0
	total := 0
	for label, count := range h {
		weight, ok := weights[label]
		if !ok || count <= 0 {
			continue
		}
		counts[label] = count
		numerator += weight * count
		total += count
	}

	if total == 0 {
		return Metrics{Histogram: counts}
	}

	score := float64(numerator) / float64(total)
	percentage := int(math.Round((score - MinScore) / (MaxScore - MinScore) * 100))
	percentage = min(100, max(0, percentage))

	return Metrics{
		Histogram:  counts,
		Score:      round2(score),
		Percentage: percentage,
	}
}

// HistogramOf counts the weighted labels of a sample sequence.
func HistogramOf(labels []emotion.Label) Histogram {
	h := make(Histogram)
	for _, l := range labels {
		if l.IsWeighted() {
			h[l]++
		}
	}
	return h
}

// Merge returns a new histogram holding the sum of all inputs.
func Merge(hs ...Histogram) Histogram {
	out := make(Histogram)
	for _, h := range hs {
		for label, count := range h {
			if count > 0 {
				out[label] += count
			}
		}
	}
	return out
}

// LevelOf maps a percentage onto a display level.
func LevelOf(percentage int) Level {
	switch {
	case percentage >= 70:
		return LevelHigh
	case percentage >= 40:
		return LevelMedium
	default:
		return LevelLow
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
