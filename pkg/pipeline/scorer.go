package pipeline

import "github.com/medscribe-ai/platform/pkg/common/models"

// Precision score weights. The safe paths score higher than the corrected
// path because a correction implies the draft was wrong at least once.
const (
	baseScore          = 0.5
	maximumSafeBonus   = 0.3
	validatedSafeBonus = 0.4
	correctedSafeBonus = 0.2
	completenessWeight = 0.3
	flagPenalty        = 0.1
)

// Score combines the safety path, the input completeness and the detected
// hallucination count into a single confidence value clamped to [0, 1].
func Score(safetyLevel string, completenessScore float64, hallucinationCount int) float64 {
	score := baseScore

	switch safetyLevel {
	case models.SafetyMaximumSafe:
		score += maximumSafeBonus
	case models.SafetyValidatedSafe:
		score += validatedSafeBonus
	case models.SafetyCorrectedSafe:
		score += correctedSafeBonus
	}

	score += completenessScore * completenessWeight
	score -= float64(hallucinationCount) * flagPenalty

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
