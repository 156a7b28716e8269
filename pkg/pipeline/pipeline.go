package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/medscribe-ai/platform/pkg/common/logger"
	"github.com/medscribe-ai/platform/pkg/common/models"
	"github.com/medscribe-ai/platform/pkg/correction"
	"github.com/medscribe-ai/platform/pkg/extraction"
	"github.com/medscribe-ai/platform/pkg/generation"
	"github.com/medscribe-ai/platform/pkg/validation"
)

// Stage names recorded on the audit trail, in execution order.
const (
	stageFactExtraction      = "fact_extraction_completed"
	stageSafeTemplate        = "safe_template_used"
	stageGenerationFallback  = "generation_failed_safe_template"
	stageControlledGen       = "controlled_generation_completed"
	stageValidationPassed    = "validation_passed"
	stageCorrectionsApplied  = "corrections_applied"
	stageEscalatedToTemplate = "escalated_to_safe_template"
	stageEmergencyFallback   = "emergency_fallback"
)

const emergencyPrecisionScore = 0.3

// Pipeline orchestrates fact extraction, gated generation, validation and
// correction into a single safe document run. All collaborators are
// stateless after construction, so one Pipeline serves concurrent requests.
type Pipeline struct {
	extractor *extraction.Extractor
	generator *generation.Adapter
	validator *validation.Validator
	corrector *correction.Corrector
	now       func() time.Time
}

func New(extractor *extraction.Extractor, generator *generation.Adapter, validator *validation.Validator, corrector *correction.Corrector) *Pipeline {
	return &Pipeline{
		extractor: extractor,
		generator: generator,
		validator: validator,
		corrector: corrector,
		now:       time.Now,
	}
}

// Route is the completeness gate: low-information input never reaches the
// generative service.
func Route(facts models.ExtractedFacts) string {
	if facts.Completeness.Level == models.CompletenessLow {
		return models.RouteSafeTemplate
	}
	return models.RouteControlledGeneration
}

// Analyze runs the full anti-hallucination pipeline. It never returns an
// error: every failure path terminates in a well-formed result whose audit
// block communicates the degradation.
func (p *Pipeline) Analyze(ctx context.Context, req models.AnalysisRequest) (result models.PipelineResult) {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.WithField("panic", fmt.Sprintf("%v", r)).Error("pipeline panicked, emergency fallback engaged")
			result = p.emergencyResult(req, fmt.Sprintf("%v", r))
		}
	}()

	return p.run(ctx, req)
}

func (p *Pipeline) run(ctx context.Context, req models.AnalysisRequest) models.PipelineResult {
	path := []string{stageFactExtraction}

	facts := p.extractor.Extract(req.TranscriptText, req.PatientSummaryText)

	var (
		draft       models.DraftDocument
		safetyLevel string
		flags       []models.HallucinationFlag
	)

	if Route(facts) == models.RouteSafeTemplate {
		logger.Log.WithField("completeness_score", facts.Completeness.Score).
			Info("insufficient data, using safe template")
		draft = generation.SafeDocuments(facts, req.ContextTag, p.now())
		safetyLevel = models.SafetyMaximumSafe
		path = append(path, stageSafeTemplate)
	} else {
		generated, err := p.generator.Generate(ctx, facts, req.ContextTag)
		switch {
		case err == nil:
			path = append(path, stageControlledGen)
			validated := p.validator.Validate(ctx, generated.Narrative, facts, req.TranscriptText)
			flags = validated.Flags

			if !validated.HasHallucinations {
				draft = generated
				safetyLevel = models.SafetyValidatedSafe
				path = append(path, stageValidationPassed)
			} else {
				draft = p.corrector.Correct(generated, validated, facts, req.ContextTag, p.now())
				safetyLevel = models.SafetyCorrectedSafe
				if draft.Method == models.MethodSafeTemplate {
					path = append(path, stageEscalatedToTemplate)
				} else {
					path = append(path, stageCorrectionsApplied)
				}
			}
		case errors.Is(err, generation.ErrGenerationFailure):
			logger.Log.WithError(err).Warn("generation service failed, degrading to safe template")
			draft = generation.SafeDocuments(facts, req.ContextTag, p.now())
			safetyLevel = models.SafetyMaximumSafe
			path = append(path, stageGenerationFallback)
		default:
			return p.emergencyResult(req, err.Error())
		}
	}

	precision := Score(safetyLevel, facts.Completeness.Score, len(flags))

	return models.PipelineResult{
		NarrativeText:     draft.Narrative,
		ReportText:        draft.Report,
		TranscriptionEcho: req.TranscriptText,
		GenerationMethod:  draft.Method,
		Audit: models.Audit{
			SafetyLevel:           safetyLevel,
			PrecisionScore:        precision,
			DataCompletenessLevel: facts.Completeness.Level,
			PipelinePath:          path,
			FactsUsed:             &facts,
			MissingCriticalInfo:   facts.MissingCriticalFields,
			HallucinationFlags:    flags,
			SourceTraceability:    true,
			RequiresManualReview:  false,
		},
		ModelLabel: fmt.Sprintf("Pipeline Anti-Alucinação Médica - %s", safetyLevel),
		Timestamp:  p.now(),
	}
}

func (p *Pipeline) emergencyResult(req models.AnalysisRequest, errMsg string) models.PipelineResult {
	narrative, report := generation.EmergencyDocuments(req.PatientSummaryText, req.ContextTag, errMsg, p.now())

	return models.PipelineResult{
		NarrativeText:     narrative,
		ReportText:        report,
		TranscriptionEcho: req.TranscriptText,
		GenerationMethod:  models.MethodSafeTemplate,
		Audit: models.Audit{
			SafetyLevel:          models.SafetyEmergencySafe,
			PrecisionScore:       emergencyPrecisionScore,
			PipelinePath:         []string{stageEmergencyFallback},
			SourceTraceability:   false,
			RequiresManualReview: true,
		},
		ModelLabel: "Pipeline Seguro de Emergência",
		Timestamp:  p.now(),
	}
}
