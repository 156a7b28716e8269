package correction

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/medscribe-ai/platform/pkg/common/logger"
	"github.com/medscribe-ai/platform/pkg/common/models"
	"github.com/medscribe-ai/platform/pkg/generation"
	"github.com/medscribe-ai/platform/pkg/validation"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

func testDraft() models.DraftDocument {
	return models.DraftDocument{
		Narrative: "Paciente relata dores em uso de omeprazol.",
		Report:    "Laudo cita omeprazol.",
		Method:    models.MethodControlledAI,
	}
}

func testFacts() models.ExtractedFacts {
	return models.ExtractedFacts{
		ConfirmedPersonalFields: map[string]models.PersonalField{},
		SpecifiedTimeline:       map[string]models.TimelineEntry{},
	}
}

func TestCleanDraftPassesThrough(t *testing.T) {
	corrector := NewCorrector(3)
	draft := testDraft()

	result := models.ValidationResult{HasHallucinations: false}
	out := corrector.Correct(draft, result, testFacts(), "incapacidade", time.Now())

	if out != draft {
		t.Fatalf("expected the draft unchanged, got %+v", out)
	}
}

func TestCorrectsFlaggedSpansInBothDocuments(t *testing.T) {
	corrector := NewCorrector(3)
	draft := testDraft()

	flags := []models.HallucinationFlag{
		{Kind: models.FlagMedicalTerm, InventedValue: "omeprazol", Severity: models.SeverityHigh},
	}
	result := models.ValidationResult{
		HasHallucinations: true,
		Flags:             flags,
		Corrections:       validation.ApplyCorrections(draft.Narrative, flags),
	}

	out := corrector.Correct(draft, result, testFacts(), "incapacidade", time.Now())

	if out.Method != models.MethodCorrectedAI {
		t.Fatalf("expected corrected_ai method, got %s", out.Method)
	}
	if strings.Contains(out.Narrative, "omeprazol") || strings.Contains(out.Report, "omeprazol") {
		t.Fatalf("expected omeprazol removed from both documents, got %q / %q", out.Narrative, out.Report)
	}
	if !strings.Contains(out.Narrative, generation.PlaceholderNotReported) {
		t.Fatalf("expected placeholder in narrative, got %q", out.Narrative)
	}
}

func TestEscalatesBeyondThreshold(t *testing.T) {
	corrector := NewCorrector(3)
	draft := testDraft()

	var flags []models.HallucinationFlag
	for _, term := range []string{"omeprazol", "captopril", "metformina", "losartana"} {
		flags = append(flags, models.HallucinationFlag{
			Kind:          models.FlagMedicalTerm,
			InventedValue: term,
			Severity:      models.SeverityLow,
		})
	}
	result := models.ValidationResult{HasHallucinations: true, Flags: flags}

	out := corrector.Correct(draft, result, testFacts(), "bpc", time.Now())

	if out.Method != models.MethodSafeTemplate {
		t.Fatalf("expected escalation to the safe template, got %s", out.Method)
	}
	if !strings.Contains(out.Narrative, "IDENTIFICAÇÃO DO PACIENTE") {
		t.Fatalf("expected the safe template narrative, got %q", out.Narrative)
	}
	if strings.Contains(out.Narrative, "omeprazol") {
		t.Fatal("expected no trace of the discarded draft after escalation")
	}
}

func TestThresholdBoundaryStillCorrects(t *testing.T) {
	corrector := NewCorrector(3)
	draft := testDraft()

	var flags []models.HallucinationFlag
	for _, term := range []string{"omeprazol", "captopril", "metformina"} {
		flags = append(flags, models.HallucinationFlag{
			Kind:          models.FlagMedicalTerm,
			InventedValue: term,
			Severity:      models.SeverityHigh,
		})
	}
	result := models.ValidationResult{
		HasHallucinations: true,
		Flags:             flags,
		Corrections:       validation.ApplyCorrections(draft.Narrative, flags),
	}

	out := corrector.Correct(draft, result, testFacts(), "bpc", time.Now())
	if out.Method != models.MethodCorrectedAI {
		t.Fatalf("expected correction at exactly the threshold, got %s", out.Method)
	}
}
