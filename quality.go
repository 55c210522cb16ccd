package isitclear

import (
	"math"
	"time"
)

// QualityLevel grades an ImprovementResult.
type QualityLevel string

// Quality levels.
const (
	QualityPoor   QualityLevel = "poor"
	QualityMedium QualityLevel = "medium"
	QualityGood   QualityLevel = "good"
)

// Quality is the outcome of AssessQuality.
type Quality struct {
	Level   QualityLevel `json:"level"`
	Reasons []string     `json:"reasons"`
}

// Quality reasons.
const (
	ReasonLowConfidence    = "low confidence"
	ReasonMediumConfidence = "medium confidence"
	ReasonNoChanges        = "no changes made"
	ReasonSlowProcessing   = "slow processing"
	ReasonLengthChange     = "significant length change"
	ReasonUndocumented     = "no specific changes documented"
)

// Quality thresholds.
const (
	poorConfidenceBelow   = 0.6
	mediumConfidenceBelow = 0.8
	slowProcessingAfter   = 2000 * time.Millisecond
	maxLengthChangeRatio  = 0.5
)

// AssessQuality grades a result with fixed rules. Each rule is evaluated
// independently; only confidence and an unchanged text affect the level.
func AssessQuality(r *ImprovementResult) Quality {
	q := Quality{Level: QualityGood, Reasons: []string{}}

	switch {
	case r.Confidence < poorConfidenceBelow:
		q.Level = QualityPoor
		q.Reasons = append(q.Reasons, ReasonLowConfidence)
	case r.Confidence < mediumConfidenceBelow:
		q.Level = QualityMedium
		q.Reasons = append(q.Reasons, ReasonMediumConfidence)
	}

	if r.ImprovedText == r.OriginalText {
		q.Level = QualityPoor
		q.Reasons = append(q.Reasons, ReasonNoChanges)
	}

	if r.ProcessingTime > slowProcessingAfter {
		q.Reasons = append(q.Reasons, ReasonSlowProcessing)
	}

	if orig := runeLen(r.OriginalText); orig > 0 {
		delta := math.Abs(float64(runeLen(r.ImprovedText) - orig))
		if delta/float64(orig) > maxLengthChangeRatio {
			q.Reasons = append(q.Reasons, ReasonLengthChange)
		}
	}

	if len(r.Changes) == 0 {
		q.Reasons = append(q.Reasons, ReasonUndocumented)
	}

	return q
}
