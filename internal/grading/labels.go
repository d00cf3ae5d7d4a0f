package grading

import (
	"strings"

	"github.com/samber/lo"
)

// componentClasses maps lower-cased detector class names to canonical
// component labels.
var componentClasses = map[string]string{
	"32-way nc valve":            "32-way NC valve",
	"32-way no valve":            "32-way NO valve",
	"52-way valve":               "52-way valve",
	"double-acting cylinder":     "Double-acting cylinder",
	"single-acting cylinder":     "Single-acting cylinder",
	"one-way flow control valve": "One-way flow control valve",
	"shuttle valve":              "Shuttle valve",
	"two-pressure valve":         "Two-pressure valve",
	"two pressure valve":         "Two-pressure valve",
}

// CanonicalLabel maps a detector class name to its component label. Unknown
// names pass through trimmed.
func CanonicalLabel(className string) string {
	trimmed := strings.TrimSpace(className)
	if label, ok := componentClasses[strings.ToLower(trimmed)]; ok {
		return label
	}
	return trimmed
}

// LabelCounts counts canonical labels.
func LabelCounts(labels []string) map[string]int {
	return lo.CountValuesBy(labels, CanonicalLabel)
}

// ContainsAll reports whether every expected label is present among the
// detected ones, compared by canonical label. When expectedCounts names a
// label, at least that many detections are required.
func ContainsAll(detected []string, expected []string, expectedCounts map[string]int) bool {
	if len(expected) == 0 && len(expectedCounts) == 0 {
		return false
	}

	counts := LabelCounts(detected)
	for _, label := range expected {
		if counts[CanonicalLabel(label)] == 0 {
			return false
		}
	}
	for label, need := range expectedCounts {
		if counts[CanonicalLabel(label)] < need {
			return false
		}
	}
	return true
}
