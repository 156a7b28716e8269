package validation

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/medscribe-ai/platform/pkg/common/logger"
	"github.com/medscribe-ai/platform/pkg/common/models"
	"github.com/medscribe-ai/platform/pkg/generation"
	"github.com/medscribe-ai/platform/pkg/llm"
	"github.com/medscribe-ai/platform/pkg/vocabulary"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

type scriptedCompleter struct {
	response string
	err      error
}

func (s *scriptedCompleter) Complete(_ context.Context, _ llm.CompletionRequest) (string, error) {
	return s.response, s.err
}

func emptyFacts() models.ExtractedFacts {
	return models.ExtractedFacts{
		ConfirmedPersonalFields: map[string]models.PersonalField{},
		SpecifiedTimeline:       map[string]models.TimelineEntry{},
	}
}

func TestFlagsMedicalTermAbsentFromSource(t *testing.T) {
	validator := NewValidator(vocabulary.DefaultCatalog(), &scriptedCompleter{response: "VALIDACAO_OK"})

	draft := "O quadro sugere uso contínuo de losartana pelo paciente."
	source := "sinto dor nas costas quando trabalho"

	result := validator.Validate(context.Background(), draft, emptyFacts(), source)

	if !result.HasHallucinations {
		t.Fatal("expected a hallucination flag for an invented medication")
	}

	var flag *models.HallucinationFlag
	for i := range result.Flags {
		if result.Flags[i].Kind == models.FlagMedicalTerm {
			flag = &result.Flags[i]
			break
		}
	}
	if flag == nil {
		t.Fatalf("expected a medical-term flag, got %+v", result.Flags)
	}
	if flag.InventedValue != "losartana" {
		t.Fatalf("expected losartana to be flagged, got %q", flag.InventedValue)
	}
	if flag.Severity != models.SeverityHigh {
		t.Fatalf("expected HIGH severity, got %s", flag.Severity)
	}
	if flag.Action != models.ActionRemoveOrReplace {
		t.Fatalf("unexpected action %s", flag.Action)
	}

	corrected := result.Corrections.CorrectedText
	if strings.Contains(strings.ToLower(corrected), "losartana") {
		t.Fatalf("expected losartana removed from corrected text, got %q", corrected)
	}
	if !strings.Contains(corrected, generation.PlaceholderNotReported) {
		t.Fatalf("expected placeholder in corrected text, got %q", corrected)
	}
}

func TestAllowsTermPresentInSource(t *testing.T) {
	validator := NewValidator(vocabulary.DefaultCatalog(), &scriptedCompleter{response: "VALIDACAO_OK"})

	draft := "Relata uso de losartana."
	source := "tomo losartana todos os dias"

	result := validator.Validate(context.Background(), draft, emptyFacts(), source)
	for _, flag := range result.Flags {
		if flag.Kind == models.FlagMedicalTerm {
			t.Fatalf("did not expect a medical-term flag, got %+v", flag)
		}
	}
}

func TestFlagsUnconfirmedPersonalData(t *testing.T) {
	validator := NewValidator(vocabulary.DefaultCatalog(), &scriptedCompleter{response: "VALIDACAO_OK"})

	draft := "Paciente Joao Silva, 52 anos de idade."

	result := validator.Validate(context.Background(), draft, emptyFacts(), "")

	var kinds []string
	for _, flag := range result.Flags {
		if flag.Kind != models.FlagPersonalData {
			continue
		}
		kinds = append(kinds, flag.Category)
		if flag.Severity != models.SeverityMedium {
			t.Fatalf("expected MEDIUM severity for %s, got %s", flag.Category, flag.Severity)
		}
	}

	joined := strings.Join(kinds, ",")
	if !strings.Contains(joined, "idade_inventada") {
		t.Fatalf("expected an invented age flag, got %v", kinds)
	}
	if !strings.Contains(joined, "nome_inventado") {
		t.Fatalf("expected an invented name flag, got %v", kinds)
	}
}

func TestSkipsConfirmedPersonalData(t *testing.T) {
	validator := NewValidator(vocabulary.DefaultCatalog(), &scriptedCompleter{response: "VALIDACAO_OK"})

	facts := emptyFacts()
	facts.ConfirmedPersonalFields["idade_exata"] = models.PersonalField{Value: "52", SourceQuote: "tenho 52 anos"}

	draft := "Avaliação de pessoa com 52 anos."
	result := validator.Validate(context.Background(), draft, facts, "tenho 52 anos")

	for _, flag := range result.Flags {
		if flag.Category == "idade_inventada" {
			t.Fatalf("did not expect an age flag when the age is confirmed, got %+v", flag)
		}
	}
}

func TestFlagsTemporalMentionWithoutTimeline(t *testing.T) {
	validator := NewValidator(vocabulary.DefaultCatalog(), &scriptedCompleter{response: "VALIDACAO_OK"})

	facts := emptyFacts()
	facts.SpecifiedTimeline["inicio_sintomas"] = models.TimelineEntry{Period: "2 anos", SourceQuote: "há 2 anos"}

	draft := "Sintomas presentes há 5 anos."
	result := validator.Validate(context.Background(), draft, facts, "")

	var temporal *models.HallucinationFlag
	for i := range result.Flags {
		if result.Flags[i].Kind == models.FlagTemporal {
			temporal = &result.Flags[i]
			break
		}
	}
	if temporal == nil {
		t.Fatalf("expected a temporal flag, got %+v", result.Flags)
	}
	if temporal.InventedValue != "5 anos" {
		t.Fatalf("expected '5 anos' flagged, got %q", temporal.InventedValue)
	}
	if !strings.Contains(result.Corrections.CorrectedText, generation.PlaceholderNoTimeframe) {
		t.Fatalf("expected timeframe placeholder, got %q", result.Corrections.CorrectedText)
	}
}

func TestAcceptsTemporalMentionBackedByTimeline(t *testing.T) {
	validator := NewValidator(vocabulary.DefaultCatalog(), &scriptedCompleter{response: "VALIDACAO_OK"})

	facts := emptyFacts()
	facts.SpecifiedTimeline["inicio_sintomas"] = models.TimelineEntry{Period: "2 anos", SourceQuote: "há 2 anos"}

	result := validator.Validate(context.Background(), "Quadro iniciado há 2 anos.", facts, "")
	for _, flag := range result.Flags {
		if flag.Kind == models.FlagTemporal {
			t.Fatalf("did not expect a temporal flag, got %+v", flag)
		}
	}
}

func TestCrossCheckParsesReportedProblems(t *testing.T) {
	completer := &scriptedCompleter{
		response: "PROBLEMA: menção a cirurgia não relatada | TIPO: procedimento | SEVERIDADE: ALTA",
	}
	validator := NewValidator(vocabulary.Catalog{}, completer)

	result := validator.Validate(context.Background(), "Paciente passou por cirurgia.", emptyFacts(), "")

	var cross *models.HallucinationFlag
	for i := range result.Flags {
		if result.Flags[i].Kind == models.FlagCrossCheck {
			cross = &result.Flags[i]
			break
		}
	}
	if cross == nil {
		t.Fatalf("expected a cross-check flag, got %+v", result.Flags)
	}
	if cross.Severity != models.SeverityHigh {
		t.Fatalf("expected HIGH severity, got %s", cross.Severity)
	}
	if cross.Category != "procedimento" {
		t.Fatalf("expected category procedimento, got %s", cross.Category)
	}
	if cross.Action != models.ActionReviewAndCorrect {
		t.Fatalf("unexpected action %s", cross.Action)
	}
}

func TestCrossCheckErrorDegradesToNoFlags(t *testing.T) {
	completer := &scriptedCompleter{err: errors.New("service unavailable")}
	validator := NewValidator(vocabulary.Catalog{}, completer)

	result := validator.Validate(context.Background(), "Texto qualquer.", emptyFacts(), "texto qualquer")
	if result.HasHallucinations {
		t.Fatalf("expected no flags when the cross-check is unavailable, got %+v", result.Flags)
	}
}

func TestApplyCorrectionsRecordsModifications(t *testing.T) {
	flags := []models.HallucinationFlag{
		{Kind: models.FlagMedicalTerm, InventedValue: "omeprazol"},
		{Kind: models.FlagPersonalData, InventedValue: "Joao Silva"},
	}

	corrections := ApplyCorrections("Joao Silva faz uso de omeprazol.", flags)

	if len(corrections.ModificationsMade) != 2 {
		t.Fatalf("expected 2 modifications, got %v", corrections.ModificationsMade)
	}
	if strings.Contains(corrections.CorrectedText, "omeprazol") ||
		strings.Contains(corrections.CorrectedText, "Joao Silva") {
		t.Fatalf("expected both spans replaced, got %q", corrections.CorrectedText)
	}
}
