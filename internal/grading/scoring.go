package grading

import "github.com/m11312045/pneumatic-app/internal/models"

// TotalPoints is the attempt-level scale.
const TotalPoints = 100.0

// ScoringPolicy turns a normalized analysis into points.
type ScoringPolicy struct {
	// BonusRequiresBase withholds ADVANCED bonus credit unless the base
	// answer is correct.
	BonusRequiresBase bool
}

type ScoreBreakdown struct {
	Base  float64 `json:"base"`
	Bonus float64 `json:"bonus"`
	Total float64 `json:"total"`
}

// PointValue is the weight of one question in an attempt of n questions.
func PointValue(questionCount int) float64 {
	if questionCount <= 0 {
		return 0
	}
	return TotalPoints / float64(questionCount)
}

// Score applies the policy. COPY and TEXT earn the full value when the
// correctness flag is set. ADVANCED splits the value evenly between base and
// bonus.
func (p ScoringPolicy) Score(variant models.QuestionVariant, analysis *models.AnalysisResult, pointValue float64) ScoreBreakdown {
	if analysis == nil || pointValue <= 0 {
		return ScoreBreakdown{}
	}

	if variant.IsBasic() {
		if analysis.IsCorrect {
			return ScoreBreakdown{Base: pointValue, Total: pointValue}
		}
		return ScoreBreakdown{}
	}

	half := pointValue / 2
	var s ScoreBreakdown
	if analysis.IsCorrect {
		s.Base = half
	}
	if analysis.BonusCorrect && (analysis.IsCorrect || !p.BonusRequiresBase) {
		s.Bonus = half
	}
	s.Total = s.Base + s.Bonus
	return s
}
