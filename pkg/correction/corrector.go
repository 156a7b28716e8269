package correction

import (
	"time"

	"github.com/medscribe-ai/platform/pkg/common/logger"
	"github.com/medscribe-ai/platform/pkg/common/models"
	"github.com/medscribe-ai/platform/pkg/generation"
	"github.com/medscribe-ai/platform/pkg/validation"
)

// DefaultEscalationThreshold is the flag count beyond which partial
// correction cannot restore trust in the draft structure and the whole
// document is rebuilt from the safe template.
const DefaultEscalationThreshold = 3

type Corrector struct {
	escalationThreshold int
}

func NewCorrector(escalationThreshold int) *Corrector {
	if escalationThreshold <= 0 {
		escalationThreshold = DefaultEscalationThreshold
	}
	return &Corrector{escalationThreshold: escalationThreshold}
}

// Correct resolves a validated draft into the final document. Zero flags
// pass the draft through untouched; up to the threshold each flagged span
// is replaced with a placeholder; beyond it the draft is discarded entirely
// in favor of the safe template, with no partial patching kept.
func (c *Corrector) Correct(draft models.DraftDocument, result models.ValidationResult, facts models.ExtractedFacts, contextTag string, now time.Time) models.DraftDocument {
	if len(result.Flags) == 0 {
		return draft
	}

	if len(result.Flags) > c.escalationThreshold {
		logger.Log.WithField("flag_count", len(result.Flags)).
			Warn("hallucination flags exceed escalation threshold, resetting to safe template")
		return generation.SafeDocuments(facts, contextTag, now)
	}

	reportCorrections := validation.ApplyCorrections(draft.Report, result.Flags)

	return models.DraftDocument{
		Narrative: result.Corrections.CorrectedText,
		Report:    reportCorrections.CorrectedText,
		Method:    models.MethodCorrectedAI,
	}
}
