// Package emotion samples camera frames during an answer and classifies them
// into a closed set of facial-expression labels.
package emotion

import (
	"fmt"
	"strings"
)

// Label is a facial-expression class reported by the classifier.
type Label string

// The seven weighted labels, plus the NoFace sentinel.
const (
	Happy     Label = "Happy"
	Neutral   Label = "Neutral"
	Surprised Label = "Surprised"
	Fearful   Label = "Fearful"
	Sad       Label = "Sad"
	Angry     Label = "Angry"
	Disgusted Label = "Disgusted"

	// NoFace means the frame contained no detectable face. It never counts
	// towards a histogram.
	NoFace Label = "no-face-detected"
)

// Weighted lists the labels that contribute to confidence scoring, in a
// stable order.
var Weighted = []Label{Happy, Neutral, Surprised, Fearful, Sad, Angry, Disgusted}

// IsWeighted reports whether l is one of the seven scored labels.
func (l Label) IsWeighted() bool {
	for _, w := range Weighted {
		if l == w {
			return true
		}
	}
	return false
}

// ParseLabel maps a classifier string onto a Label. Matching is
// case-insensitive; "No face detected" and similar map to NoFace.
func ParseLabel(s string) (Label, error) {
	trimmed := strings.TrimSpace(s)
	for _, w := range Weighted {
		if strings.EqualFold(trimmed, string(w)) {
			return w, nil
		}
	}

	normalized := strings.ToLower(strings.NewReplacer("-", " ", "_", " ").Replace(trimmed))
	if normalized == "no face detected" || normalized == "no face" {
		return NoFace, nil
	}

	return "", fmt.Errorf("unknown emotion label %q", s)
}

// Strings converts labels to their string form, e.g. for persistence.
func Strings(labels []Label) []string {
	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = string(l)
	}
	return out
}
