package pipeline

import (
	"context"
	"errors"
	"math"
	"os"
	"strings"
	"testing"

	"github.com/medscribe-ai/platform/pkg/common/logger"
	"github.com/medscribe-ai/platform/pkg/common/models"
	"github.com/medscribe-ai/platform/pkg/correction"
	"github.com/medscribe-ai/platform/pkg/extraction"
	"github.com/medscribe-ai/platform/pkg/generation"
	"github.com/medscribe-ai/platform/pkg/llm"
	"github.com/medscribe-ai/platform/pkg/validation"
	"github.com/medscribe-ai/platform/pkg/vocabulary"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

const richTranscript = "Tenho 45 anos, sou pedreiro, sinto dor no ombro há 2 anos"

// fakeCompleter scripts the generative service. Generation calls receive
// draftResponse; the auditor cross-check receives auditResponse.
type fakeCompleter struct {
	draftResponse string
	auditResponse string
	err           error
	panicMessage  string
	calls         int
}

func (f *fakeCompleter) Complete(_ context.Context, req llm.CompletionRequest) (string, error) {
	f.calls++
	if f.panicMessage != "" {
		panic(f.panicMessage)
	}
	if f.err != nil {
		return "", f.err
	}
	if strings.Contains(req.SystemInstruction, "auditor") {
		return f.auditResponse, nil
	}
	return f.draftResponse, nil
}

func newTestPipeline(t *testing.T, completer llm.Completer) *Pipeline {
	t.Helper()
	extractor, err := extraction.NewExtractor(extraction.DefaultPatterns())
	if err != nil {
		t.Fatalf("failed to create extractor: %v", err)
	}
	return New(
		extractor,
		generation.NewAdapter(completer, nil, 0),
		validation.NewValidator(vocabulary.DefaultCatalog(), completer),
		correction.NewCorrector(3),
	)
}

func pathContains(audit models.Audit, stage string) bool {
	for _, s := range audit.PipelinePath {
		if s == stage {
			return true
		}
	}
	return false
}

func TestLowCompletenessNeverReachesGeneration(t *testing.T) {
	completer := &fakeCompleter{}
	pipe := newTestPipeline(t, completer)

	result := pipe.Analyze(context.Background(), models.AnalysisRequest{
		TranscriptText: "",
		ContextTag:     "bpc",
	})

	if completer.calls != 0 {
		t.Fatalf("expected the generative service to be skipped, got %d calls", completer.calls)
	}
	if result.Audit.SafetyLevel != models.SafetyMaximumSafe {
		t.Fatalf("expected MAXIMUM_SAFE, got %s", result.Audit.SafetyLevel)
	}
	if result.GenerationMethod != models.MethodSafeTemplate {
		t.Fatalf("expected safe_template method, got %s", result.GenerationMethod)
	}
	if result.Audit.DataCompletenessLevel != models.CompletenessLow {
		t.Fatalf("expected LOW completeness, got %s", result.Audit.DataCompletenessLevel)
	}
	if !pathContains(result.Audit, "safe_template_used") {
		t.Fatalf("expected safe_template_used in path, got %v", result.Audit.PipelinePath)
	}
	if math.Abs(result.Audit.PrecisionScore-0.8) > 1e-9 {
		t.Fatalf("expected precision 0.8 for an empty consultation, got %.3f", result.Audit.PrecisionScore)
	}
	if result.NarrativeText == "" || result.ReportText == "" {
		t.Fatal("expected both documents populated")
	}
}

func TestValidatedDraftPassesUntouched(t *testing.T) {
	completer := &fakeCompleter{
		draftResponse: "Paciente relatou: 'dor no ombro' há 2 anos. Paciente com 45 anos, profissão pedreiro.",
		auditResponse: "VALIDACAO_OK",
	}
	pipe := newTestPipeline(t, completer)

	result := pipe.Analyze(context.Background(), models.AnalysisRequest{
		TranscriptText: richTranscript,
		ContextTag:     "incapacidade",
	})

	if result.Audit.SafetyLevel != models.SafetyValidatedSafe {
		t.Fatalf("expected VALIDATED_SAFE, got %s", result.Audit.SafetyLevel)
	}
	if result.GenerationMethod != models.MethodControlledAI {
		t.Fatalf("expected controlled_ai, got %s", result.GenerationMethod)
	}
	if !pathContains(result.Audit, "validation_passed") {
		t.Fatalf("expected validation_passed in path, got %v", result.Audit.PipelinePath)
	}
	if len(result.Audit.HallucinationFlags) != 0 {
		t.Fatalf("expected no flags, got %+v", result.Audit.HallucinationFlags)
	}
	if result.Audit.PrecisionScore != 1.0 {
		t.Fatalf("expected precision clamped to 1.0, got %.3f", result.Audit.PrecisionScore)
	}
	// narrative, report, audit
	if completer.calls != 3 {
		t.Fatalf("expected 3 completion calls, got %d", completer.calls)
	}
}

func TestInventedMedicationIsCorrected(t *testing.T) {
	completer := &fakeCompleter{
		draftResponse: "Paciente relatou: 'dor no ombro' há 2 anos. Em uso de losartana.",
		auditResponse: "VALIDACAO_OK",
	}
	pipe := newTestPipeline(t, completer)

	result := pipe.Analyze(context.Background(), models.AnalysisRequest{
		TranscriptText: richTranscript,
		ContextTag:     "incapacidade",
	})

	if result.Audit.SafetyLevel != models.SafetyCorrectedSafe {
		t.Fatalf("expected CORRECTED_SAFE, got %s", result.Audit.SafetyLevel)
	}
	if result.GenerationMethod != models.MethodCorrectedAI {
		t.Fatalf("expected corrected_ai, got %s", result.GenerationMethod)
	}
	if !pathContains(result.Audit, "corrections_applied") {
		t.Fatalf("expected corrections_applied in path, got %v", result.Audit.PipelinePath)
	}
	if len(result.Audit.HallucinationFlags) != 1 {
		t.Fatalf("expected one flag, got %+v", result.Audit.HallucinationFlags)
	}
	if result.Audit.HallucinationFlags[0].InventedValue != "losartana" {
		t.Fatalf("expected losartana flagged, got %+v", result.Audit.HallucinationFlags[0])
	}
	if strings.Contains(result.NarrativeText, "losartana") {
		t.Fatalf("expected losartana removed, got %q", result.NarrativeText)
	}
	if !strings.Contains(result.NarrativeText, generation.PlaceholderNotReported) {
		t.Fatalf("expected placeholder in narrative, got %q", result.NarrativeText)
	}
	if result.Audit.PrecisionScore <= 0.8 || result.Audit.PrecisionScore >= 0.95 {
		t.Fatalf("unexpected precision %.3f for a single corrected flag", result.Audit.PrecisionScore)
	}
}

func TestExcessiveFlagsEscalateToSafeTemplate(t *testing.T) {
	completer := &fakeCompleter{
		draftResponse: "Em uso de losartana, captopril, metformina e omeprazol.",
		auditResponse: "VALIDACAO_OK",
	}
	pipe := newTestPipeline(t, completer)

	result := pipe.Analyze(context.Background(), models.AnalysisRequest{
		TranscriptText: richTranscript,
		ContextTag:     "bpc",
	})

	if result.Audit.SafetyLevel != models.SafetyCorrectedSafe {
		t.Fatalf("expected CORRECTED_SAFE, got %s", result.Audit.SafetyLevel)
	}
	if result.GenerationMethod != models.MethodSafeTemplate {
		t.Fatalf("expected escalation to safe_template, got %s", result.GenerationMethod)
	}
	if !pathContains(result.Audit, "escalated_to_safe_template") {
		t.Fatalf("expected escalation in path, got %v", result.Audit.PipelinePath)
	}
	if len(result.Audit.HallucinationFlags) <= 3 {
		t.Fatalf("expected more than 3 flags, got %d", len(result.Audit.HallucinationFlags))
	}
	for _, term := range []string{"losartana", "captopril", "metformina", "omeprazol"} {
		if strings.Contains(result.NarrativeText, term) {
			t.Fatalf("expected no trace of %s after escalation", term)
		}
	}
}

func TestGenerationFailureDegradesToSafeTemplate(t *testing.T) {
	completer := &fakeCompleter{err: errors.New("upstream timeout")}
	pipe := newTestPipeline(t, completer)

	result := pipe.Analyze(context.Background(), models.AnalysisRequest{
		TranscriptText: richTranscript,
		ContextTag:     "bpc",
	})

	if result.Audit.SafetyLevel != models.SafetyMaximumSafe {
		t.Fatalf("expected MAXIMUM_SAFE after a generation failure, got %s", result.Audit.SafetyLevel)
	}
	if result.GenerationMethod != models.MethodSafeTemplate {
		t.Fatalf("expected safe_template, got %s", result.GenerationMethod)
	}
	if !pathContains(result.Audit, "generation_failed_safe_template") {
		t.Fatalf("expected the degradation recorded, got %v", result.Audit.PipelinePath)
	}
	if result.Audit.RequiresManualReview {
		t.Fatal("a controlled degradation must not require manual review")
	}
}

func TestPanicEngagesEmergencyFallback(t *testing.T) {
	completer := &fakeCompleter{panicMessage: "llm client crashed"}
	pipe := newTestPipeline(t, completer)

	result := pipe.Analyze(context.Background(), models.AnalysisRequest{
		TranscriptText:     richTranscript,
		PatientSummaryText: "Paciente em acompanhamento",
		ContextTag:         "bpc",
	})

	if result.Audit.SafetyLevel != models.SafetyEmergencySafe {
		t.Fatalf("expected EMERGENCY_SAFE, got %s", result.Audit.SafetyLevel)
	}
	if math.Abs(result.Audit.PrecisionScore-0.3) > 1e-9 {
		t.Fatalf("expected emergency precision 0.3, got %.3f", result.Audit.PrecisionScore)
	}
	if !result.Audit.RequiresManualReview {
		t.Fatal("expected manual review to be required")
	}
	if result.TranscriptionEcho != richTranscript {
		t.Fatal("expected the original transcript preserved for review")
	}
	if !pathContains(result.Audit, "emergency_fallback") {
		t.Fatalf("expected emergency_fallback in path, got %v", result.Audit.PipelinePath)
	}
	if result.NarrativeText == "" || result.ReportText == "" {
		t.Fatal("expected emergency documents populated")
	}
}

func TestRoute(t *testing.T) {
	low := models.ExtractedFacts{Completeness: models.Completeness{Level: models.CompletenessLow}}
	if Route(low) != models.RouteSafeTemplate {
		t.Fatal("expected LOW completeness to route to the safe template")
	}

	for _, level := range []string{models.CompletenessMedium, models.CompletenessHigh} {
		facts := models.ExtractedFacts{Completeness: models.Completeness{Level: level}}
		if Route(facts) != models.RouteControlledGeneration {
			t.Fatalf("expected %s completeness to route to controlled generation", level)
		}
	}
}

func TestScore(t *testing.T) {
	cases := []struct {
		safety       string
		completeness float64
		flags        int
		want         float64
	}{
		{models.SafetyMaximumSafe, 0, 0, 0.8},
		{models.SafetyValidatedSafe, 1.0, 0, 1.0},
		{models.SafetyCorrectedSafe, 0.5, 2, 0.65},
		{models.SafetyCorrectedSafe, 0, 10, 0},
	}

	for _, tc := range cases {
		got := Score(tc.safety, tc.completeness, tc.flags)
		if math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("Score(%s, %.1f, %d) = %.3f, want %.3f", tc.safety, tc.completeness, tc.flags, got, tc.want)
		}
	}
}
