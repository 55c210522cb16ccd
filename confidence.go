package isitclear

import (
	"math"
	"strings"
	"unicode/utf8"
)

// Confidence heuristic constants. The score is a deliberately simple formula,
// not a learned model:
//
//	base 0.7
//	+0.1 when |words(improved) - words(original)| / words(original) > 0.1
//	+0.2 when 0.3 < WordOverlap(original, improved) < 0.9
//	capped at 1.0
const (
	baseConfidence      = 0.7
	lengthDeltaBonus    = 0.1
	lengthDeltaMinRatio = 0.1
	overlapBonus        = 0.2
	overlapLow          = 0.3
	overlapHigh         = 0.9
)

// HeuristicConfidence scores a rewrite when the backend supplies no confidence.
func HeuristicConfidence(original, improved string) float64 {
	score := baseConfidence

	origWords := CountWords(original)
	if origWords > 0 {
		delta := math.Abs(float64(CountWords(improved) - origWords))
		if delta/float64(origWords) > lengthDeltaMinRatio {
			score += lengthDeltaBonus
		}
	}

	if sim := WordOverlap(original, improved); sim > overlapLow && sim < overlapHigh {
		score += overlapBonus
	}

	return ClampConfidence(score)
}

// WordOverlap is the Jaccard similarity of the lowercase word sets of a and b:
// |A ∩ B| / |A ∪ B|. Two empty texts have overlap 0.
func WordOverlap(a, b string) float64 {
	setA := wordSet(a)
	setB := wordSet(b)

	union := len(setA)
	inter := 0
	for w := range setB {
		if _, ok := setA[w]; ok {
			inter++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// ClampConfidence forces c into [0, 1]. NaN becomes 0.
func ClampConfidence(c float64) float64 {
	switch {
	case math.IsNaN(c) || c < 0:
		return 0
	case c > 1:
		return 1
	}
	return c
}

// CountWords counts whitespace-separated non-empty tokens.
func CountWords(s string) int {
	return len(strings.Fields(s))
}

func wordSet(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
