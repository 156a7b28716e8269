package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/medscribe-ai/platform/pkg/common/logger"
	"github.com/medscribe-ai/platform/pkg/common/models"
	"github.com/medscribe-ai/platform/pkg/llm"
	"github.com/medscribe-ai/platform/pkg/retrieval"
)

// ErrGenerationFailure marks an external generation-service error. The
// orchestrator treats it as non-fatal and degrades to the safe template.
var ErrGenerationFailure = errors.New("generation service failure")

const (
	narrativeTemperature = 0.1
	narrativeMaxTokens   = 1500
	reportTemperature    = 0.1
	reportMaxTokens      = 2000
)

var contextInstructions = map[string]string{
	"bpc":             "Foque em limitações para vida independente e necessidade de cuidador",
	"incapacidade":    "Foque na impossibilidade de exercer a função laboral habitual",
	"auxilio_acidente": "Foque na redução da capacidade laborativa sem incapacidade total",
	"isencao_ir":      "Foque na comprovação de doença grave conforme legislação",
}

// Adapter builds fact-restricted prompts and invokes the generative text
// service, once for the narrative and once for the structured report.
type Adapter struct {
	completer llm.Completer
	searcher  retrieval.Searcher
	topK      int
}

// NewAdapter wires the generation collaborators. searcher may be nil, in
// which case prompts are not enriched with retrieved passages.
func NewAdapter(completer llm.Completer, searcher retrieval.Searcher, topK int) *Adapter {
	return &Adapter{completer: completer, searcher: searcher, topK: topK}
}

func (a *Adapter) Generate(ctx context.Context, facts models.ExtractedFacts, contextTag string) (models.DraftDocument, error) {
	if a.completer == nil {
		return models.DraftDocument{}, fmt.Errorf("%w: no completion client configured", ErrGenerationFailure)
	}

	factsSummary := FactsSummary(facts)
	passages := a.retrievePassages(ctx, facts, contextTag)

	narrative, err := a.completer.Complete(ctx, llm.CompletionRequest{
		SystemInstruction: fmt.Sprintf(
			"Você é um assistente de documentação médica para %s. Use APENAS informações fornecidas explicitamente.",
			contextTag),
		UserPrompt:  buildNarrativePrompt(factsSummary, contextTag, passages),
		Temperature: narrativeTemperature,
		MaxTokens:   narrativeMaxTokens,
	})
	if err != nil {
		return models.DraftDocument{}, fmt.Errorf("%w: narrative: %v", ErrGenerationFailure, err)
	}

	report, err := a.completer.Complete(ctx, llm.CompletionRequest{
		SystemInstruction: fmt.Sprintf(
			"Você é um médico perito em %s que gera laudos baseados APENAS em informações documentadas.",
			contextTag),
		UserPrompt:  buildReportPrompt(factsSummary, narrative, contextTag),
		Temperature: reportTemperature,
		MaxTokens:   reportMaxTokens,
	})
	if err != nil {
		return models.DraftDocument{}, fmt.Errorf("%w: report: %v", ErrGenerationFailure, err)
	}

	return models.DraftDocument{
		Narrative: narrative,
		Report:    report,
		Method:    models.MethodControlledAI,
	}, nil
}

// retrievePassages enriches prompts with reference passages. A retrieval
// failure only costs the enrichment, never the generation.
func (a *Adapter) retrievePassages(ctx context.Context, facts models.ExtractedFacts, contextTag string) []models.RetrievedPassage {
	if a.searcher == nil || len(facts.ReportedSymptoms) == 0 {
		return nil
	}

	terms := make([]string, 0, len(facts.ReportedSymptoms)+1)
	terms = append(terms, contextTag)
	for _, symptom := range facts.ReportedSymptoms {
		terms = append(terms, symptom.ExactPhrase)
	}

	passages, err := a.searcher.Search(ctx, strings.Join(terms, " "), a.topK)
	if err != nil {
		logger.Log.WithError(err).Warn("passage retrieval failed, generating without enrichment")
		return nil
	}
	return passages
}

// FactsSummary renders the extracted facts with their exact source quotes,
// the only material the model is allowed to document.
func FactsSummary(facts models.ExtractedFacts) string {
	var parts []string

	if len(facts.ConfirmedPersonalFields) > 0 {
		parts = append(parts, "DADOS PESSOAIS CONFIRMADOS:")
		for _, field := range []string{"nome_completo", "idade_exata", "profissao_exata"} {
			if entry, ok := facts.ConfirmedPersonalFields[field]; ok {
				parts = append(parts, fmt.Sprintf("- %s: %s (frase original: '%s')", field, entry.Value, entry.SourceQuote))
			}
		}
	}

	if len(facts.ReportedSymptoms) > 0 {
		parts = append(parts, "\nSINTOMAS TEXTUALMENTE RELATADOS:")
		for _, symptom := range facts.ReportedSymptoms {
			parts = append(parts, fmt.Sprintf("- %s (frase completa: '%s')", symptom.ExactPhrase, symptom.SourceQuote))
		}
	}

	if len(facts.SpecifiedTimeline) > 0 {
		parts = append(parts, "\nTIMELINE ESPECIFICADA:")
		for _, kind := range []string{"inicio_sintomas", "data_evento"} {
			if entry, ok := facts.SpecifiedTimeline[kind]; ok {
				parts = append(parts, fmt.Sprintf("- %s: %s (frase: '%s')", kind, entry.Period, entry.SourceQuote))
			}
		}
	}

	if len(facts.CitedTreatments) > 0 {
		parts = append(parts, "\nTRATAMENTOS CITADOS:")
		for _, treatment := range facts.CitedTreatments {
			parts = append(parts, fmt.Sprintf("- %s (frase: '%s')", treatment.Description, treatment.SourceQuote))
		}
	}

	if len(facts.MissingCriticalFields) > 0 {
		parts = append(parts, fmt.Sprintf("\nINFORMAÇÕES NÃO FORNECIDAS: %s", strings.Join(facts.MissingCriticalFields, ", ")))
	}

	if len(parts) == 0 {
		return "NENHUMA INFORMAÇÃO ESPECÍFICA EXTRAÍDA"
	}
	return strings.Join(parts, "\n")
}

func buildNarrativePrompt(factsSummary, contextTag string, passages []models.RetrievedPassage) string {
	var sb strings.Builder

	sb.WriteString(`INSTRUÇÃO MÉDICA CRÍTICA: Você é um ASSISTENTE DE DOCUMENTAÇÃO MÉDICA que APENAS transcreve informações EXPLICITAMENTE fornecidas.

PROIBIÇÕES ABSOLUTAS:
- NÃO inferir sintomas não mencionados
- NÃO assumir diagnósticos
- NÃO citar exames não relatados
- NÃO mencionar medicamentos não citados
- NÃO especular sobre causas
- NÃO usar conhecimento médico geral

FATOS EXPLÍCITOS EXTRAÍDOS:
`)
	sb.WriteString(factsSummary)
	sb.WriteString(fmt.Sprintf("\n\nCONTEXTO MÉDICO: %s\n", strings.ToUpper(contextTag)))

	if len(passages) > 0 {
		sb.WriteString("\nMODELOS DE REFERÊNCIA (apenas para estrutura do documento, NUNCA como fonte de fatos):\n")
		for i, passage := range passages {
			sb.WriteString(fmt.Sprintf("--- Referência %d ---\n%s\n", i+1, passage.Text))
		}
	}

	sb.WriteString(fmt.Sprintf(`
REGRAS DE DOCUMENTAÇÃO:
- Use APENAS informações acima
- Cite textualmente: "Paciente relatou: '[frase exata]'"
- Para informações ausentes: "%s"
- Mantenha estrutura médica formal
- Foque no contexto %s

Gere anamnese estruturada baseada EXCLUSIVAMENTE nos fatos fornecidos:
`, PlaceholderNotReported, contextTag))

	return sb.String()
}

func buildReportPrompt(factsSummary, narrative, contextTag string) string {
	instruction, ok := contextInstructions[contextTag]
	if !ok {
		instruction = "Análise médica geral"
	}

	return fmt.Sprintf(`GERAÇÃO DE LAUDO MÉDICO PARA %s

ANAMNESE BASE:
%s

FATOS EXPLÍCITOS:
%s

INSTRUÇÕES ESPECÍFICAS:
- %s
- Use APENAS informações da anamnese e fatos explícitos
- Mantenha estrutura de laudo médico formal
- Inclua CID-10 quando apropriado
- Para informações não disponíveis: "[Não avaliado na consulta]"

Gere laudo médico estruturado:
`, strings.ToUpper(contextTag), narrative, factsSummary, instruction)
}
