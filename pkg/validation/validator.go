package validation

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/medscribe-ai/platform/pkg/common/logger"
	"github.com/medscribe-ai/platform/pkg/common/models"
	"github.com/medscribe-ai/platform/pkg/generation"
	"github.com/medscribe-ai/platform/pkg/llm"
	"github.com/medscribe-ai/platform/pkg/vocabulary"
)

const (
	crossCheckTemperature = 0.1
	crossCheckMaxTokens   = 500
	crossCheckOKMarker    = "VALIDACAO_OK"
)

// personalPattern ties a draft-text pattern to the confirmed field that
// must exist for the match to be legitimate.
type personalPattern struct {
	name  string
	field string
	re    *regexp.Regexp
}

// Validator cross-checks generated text against the source transcript and
// the extracted facts. All tables are read-only after construction.
type Validator struct {
	catalog   vocabulary.Catalog
	completer llm.Completer
	personal  []personalPattern
	temporal  *regexp.Regexp
}

// NewValidator builds the validator. completer may be nil, which disables
// the secondary AI cross-check but keeps every deterministic check.
func NewValidator(catalog vocabulary.Catalog, completer llm.Completer) *Validator {
	return &Validator{
		catalog:   catalog,
		completer: completer,
		personal: []personalPattern{
			{
				name:  "idade_inventada",
				field: "idade_exata",
				re:    regexp.MustCompile(`(?i)(\d{2,3})\s*anos?`),
			},
			{
				name:  "nome_inventado",
				field: "nome_completo",
				re:    regexp.MustCompile(`(?i)(?:paciente|nome)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)`),
			},
			{
				name:  "profissao_inventada",
				field: "profissao_exata",
				re:    regexp.MustCompile(`(?i)(?:profissão|trabalha como)\s+([a-zà-ÿ]+(?:\s+[a-zà-ÿ]+)*)`),
			},
		},
		temporal: regexp.MustCompile(`(?i)(?:há|fazem?)\s+(\d+\s*(?:anos?|meses?|semanas?|dias?))`),
	}
}

// Validate runs the four checks independently and unions their flags. Only
// the AI cross-check can fail externally, and that failure degrades to zero
// flags for that check alone.
func (v *Validator) Validate(ctx context.Context, draftText string, facts models.ExtractedFacts, sourceText string) models.ValidationResult {
	var flags []models.HallucinationFlag

	flags = append(flags, v.checkMedicalTerms(draftText, sourceText)...)
	flags = append(flags, v.checkPersonalData(draftText, facts)...)
	flags = append(flags, v.checkTemporalConsistency(draftText, facts)...)
	flags = append(flags, v.aiCrossCheck(ctx, draftText, sourceText)...)

	return models.ValidationResult{
		HasHallucinations: len(flags) > 0,
		Flags:             flags,
		Corrections:       ApplyCorrections(draftText, flags),
	}
}

// checkMedicalTerms flags every vocabulary term present in the draft but
// absent from the source transcript.
func (v *Validator) checkMedicalTerms(draftText, sourceText string) []models.HallucinationFlag {
	var flags []models.HallucinationFlag
	draftLower := strings.ToLower(draftText)
	sourceLower := strings.ToLower(sourceText)

	for category, terms := range v.catalog.Categories {
		for _, term := range terms {
			needle := strings.ToLower(term)
			if strings.Contains(draftLower, needle) && !strings.Contains(sourceLower, needle) {
				flags = append(flags, models.HallucinationFlag{
					Kind:          models.FlagMedicalTerm,
					Category:      category,
					InventedValue: term,
					Severity:      models.SeverityHigh,
					Action:        models.ActionRemoveOrReplace,
				})
			}
		}
	}

	return flags
}

// checkPersonalData flags personal attributes in the draft that were never
// confirmed by the extractor.
func (v *Validator) checkPersonalData(draftText string, facts models.ExtractedFacts) []models.HallucinationFlag {
	var flags []models.HallucinationFlag

	for _, pattern := range v.personal {
		if _, confirmed := facts.ConfirmedPersonalFields[pattern.field]; confirmed {
			continue
		}
		for _, match := range pattern.re.FindAllStringSubmatch(draftText, -1) {
			flags = append(flags, models.HallucinationFlag{
				Kind:          models.FlagPersonalData,
				Category:      pattern.name,
				InventedValue: match[1],
				Severity:      models.SeverityMedium,
				Action:        models.ActionReplaceWithPlaceholder,
			})
		}
	}

	return flags
}

// checkTemporalConsistency flags duration expressions in the draft that
// have no equivalent period in the specified timeline.
func (v *Validator) checkTemporalConsistency(draftText string, facts models.ExtractedFacts) []models.HallucinationFlag {
	var flags []models.HallucinationFlag

	for _, match := range v.temporal.FindAllStringSubmatch(draftText, -1) {
		mention := match[1]
		found := false
		for _, entry := range facts.SpecifiedTimeline {
			if strings.Contains(strings.ToLower(entry.Period), strings.ToLower(mention)) {
				found = true
				break
			}
		}
		if !found {
			flags = append(flags, models.HallucinationFlag{
				Kind:          models.FlagTemporal,
				InventedValue: mention,
				Severity:      models.SeverityMedium,
				Action:        models.ActionReplaceWithPlaceholder,
			})
		}
	}

	return flags
}

// aiCrossCheck asks a second model to audit the draft line by line against
// the source. Service errors degrade silently to no flags.
func (v *Validator) aiCrossCheck(ctx context.Context, draftText, sourceText string) []models.HallucinationFlag {
	if v.completer == nil {
		return nil
	}

	prompt := fmt.Sprintf(`Você é um AUDITOR MÉDICO especializado em detectar informações inventadas.

TEXTO ORIGINAL (Fonte verdadeira):
%s

TEXTO GERADO (Para verificar):
%s

INSTRUÇÕES CRÍTICAS:
1. Compare linha por linha
2. Identifique QUALQUER informação no texto gerado que NÃO está no texto original
3. Seja EXTREMAMENTE rigoroso
4. Foque em: sintomas, diagnósticos, medicamentos, exames, dados pessoais

RESPONDA APENAS no formato:
PROBLEMA: [descrição] | TIPO: [sintoma/medicamento/exame/dados] | SEVERIDADE: [ALTA/MEDIA/BAIXA]

Se não há problemas, responda: "%s"
`, sourceText, draftText, crossCheckOKMarker)

	response, err := v.completer.Complete(ctx, llm.CompletionRequest{
		SystemInstruction: "Você é um auditor médico ultra-rigoroso que detecta qualquer informação inventada.",
		UserPrompt:        prompt,
		Temperature:       crossCheckTemperature,
		MaxTokens:         crossCheckMaxTokens,
	})
	if err != nil {
		logger.Log.WithError(err).Warn("AI cross-check unavailable, skipping")
		return nil
	}

	if strings.Contains(response, crossCheckOKMarker) {
		return nil
	}

	return parseCrossCheckResponse(response)
}

func parseCrossCheckResponse(response string) []models.HallucinationFlag {
	var flags []models.HallucinationFlag

	for _, line := range strings.Split(response, "\n") {
		if !strings.Contains(line, "PROBLEMA:") {
			continue
		}
		parts := strings.Split(line, "|")
		if len(parts) < 3 {
			continue
		}

		problem := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(parts[0]), "PROBLEMA:"))
		category := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(parts[1]), "TIPO:"))
		severity := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(parts[2]), "SEVERIDADE:"))

		flags = append(flags, models.HallucinationFlag{
			Kind:          models.FlagCrossCheck,
			Category:      category,
			InventedValue: problem,
			Severity:      mapReportedSeverity(severity),
			Action:        models.ActionReviewAndCorrect,
		})
	}

	return flags
}

func mapReportedSeverity(severity string) string {
	switch strings.ToUpper(severity) {
	case "ALTA", models.SeverityHigh:
		return models.SeverityHigh
	case "BAIXA", models.SeverityLow:
		return models.SeverityLow
	default:
		return models.SeverityMedium
	}
}

// ApplyCorrections rewrites each implicated span with a neutral
// placeholder and logs every modification. Cross-check flags carry no
// span, so they only count toward escalation.
func ApplyCorrections(draftText string, flags []models.HallucinationFlag) models.Corrections {
	corrections := models.Corrections{
		CorrectedText:     draftText,
		ModificationsMade: []string{},
	}

	corrected := draftText
	for _, flag := range flags {
		switch flag.Kind {
		case models.FlagMedicalTerm:
			re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(flag.InventedValue) + `\b`)
			if err != nil {
				continue
			}
			corrected = re.ReplaceAllString(corrected, generation.PlaceholderNotReported)
			corrections.ModificationsMade = append(corrections.ModificationsMade,
				fmt.Sprintf("Removido termo médico não mencionado: %s", flag.InventedValue))
		case models.FlagPersonalData:
			corrected = strings.ReplaceAll(corrected, flag.InventedValue, generation.PlaceholderNotInformed)
			corrections.ModificationsMade = append(corrections.ModificationsMade,
				fmt.Sprintf("Substituído dado não fornecido: %s", flag.InventedValue))
		case models.FlagTemporal:
			corrected = strings.ReplaceAll(corrected, flag.InventedValue, generation.PlaceholderNoTimeframe)
			corrections.ModificationsMade = append(corrections.ModificationsMade,
				fmt.Sprintf("Corrigida informação temporal: %s", flag.InventedValue))
		}
	}

	corrections.CorrectedText = corrected
	return corrections
}
