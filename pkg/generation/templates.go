package generation

import (
	"fmt"
	"strings"
	"time"

	"github.com/medscribe-ai/platform/pkg/common/models"
)

// Placeholders used whenever a document slot has no quote-backed fact.
const (
	PlaceholderNotReported    = "[Não relatado na consulta]"
	PlaceholderNotInformed    = "[Não informado]"
	PlaceholderNoTimeframe    = "[Tempo não especificado]"
	placeholderNameMissing    = "[Nome não informado]"
	placeholderAgeMissing     = "[Idade não informada]"
	placeholderJobMissing     = "[Profissão não informada]"
	maxTemplateSymptoms       = 3
	telemedicineNote          = "Anamnese baseada exclusivamente no relato do paciente"
	reportTelemedicineNote    = "Laudo baseado exclusivamente em consulta de telemedicina e relato do paciente"
)

var contextEvaluations = map[string]string{
	"bpc":             "Consulta para avaliação de BPC/LOAS. Avaliação baseada no relato do paciente.",
	"incapacidade":    "Consulta para avaliação de incapacidade laboral. Análise baseada no relato profissional.",
	"auxilio_acidente": "Consulta para avaliação de auxílio-acidente. Baseado no relato de sequelas.",
	"isencao_ir":      "Consulta para avaliação de isenção IR. Baseado no relato médico.",
}

// SafeDocuments fills the fixed templates with only quote-backed facts.
// This path never invokes the generative service and is the landing spot
// for low-completeness input and for escalations.
func SafeDocuments(facts models.ExtractedFacts, contextTag string, now time.Time) models.DraftDocument {
	date := now.Format("02/01/2006")

	name := personalValue(facts, "nome_completo", placeholderNameMissing)
	age := personalValue(facts, "idade_exata", placeholderAgeMissing)
	if age != placeholderAgeMissing {
		age = age + " anos"
	}
	job := personalValue(facts, "profissao_exata", placeholderJobMissing)

	complaint := "[Sintomas específicos não detalhados na consulta]"
	if len(facts.ReportedSymptoms) > 0 {
		parts := make([]string, 0, maxTemplateSymptoms)
		for i, symptom := range facts.ReportedSymptoms {
			if i == maxTemplateSymptoms {
				break
			}
			parts = append(parts, fmt.Sprintf("Relatou textualmente: '%s'", symptom.ExactPhrase))
		}
		complaint = strings.Join(parts, ". ")
	}

	history := "Baseado no relato da consulta de telemedicina."
	for _, entry := range facts.SpecifiedTimeline {
		history += fmt.Sprintf(" Mencionou: '%s'.", entry.SourceQuote)
	}

	evaluation, ok := contextEvaluations[contextTag]
	if !ok {
		evaluation = "Consulta médica geral."
	}

	narrative := fmt.Sprintf(`## 1. IDENTIFICAÇÃO DO PACIENTE
- Nome: %s
- Idade: %s
- Profissão: %s
- Data da consulta: %s

## 2. QUEIXA PRINCIPAL
%s

## 3. HISTÓRIA DA DOENÇA ATUAL (HDA)
%s

## 4. ANTECEDENTES PESSOAIS E FAMILIARES RELEVANTES
[Não coletados na consulta de telemedicina]

## 5. DOCUMENTAÇÃO APRESENTADA
[Conforme documentação apresentada pelo paciente]

## 6. EXAME CLÍNICO (ADAPTADO PARA TELEMEDICINA)
[Consulta realizada por telemedicina - limitações inerentes à modalidade]

## 7. AVALIAÇÃO MÉDICA (ASSESSMENT)
%s

MODALIDADE: Telemedicina
DATA: %s
OBSERVAÇÃO: %s
`, name, age, job, date, complaint, history, evaluation, date, telemedicineNote)

	limitations := "[Não especificadas na consulta]"
	if len(facts.ReportedSymptoms) > 0 {
		limitations = "Conforme relatado pelo paciente na consulta."
	}
	treatments := "[Não especificados]"
	if len(facts.CitedTreatments) > 0 {
		treatments = "Conforme relatado pelo paciente."
	}

	report := fmt.Sprintf(`## LAUDO MÉDICO - %s

### IDENTIFICAÇÃO
- Paciente: %s
- Data: %s
- Modalidade: Telemedicina

### 1. HISTÓRIA CLÍNICA
Conforme relato na consulta de telemedicina.

### 2. LIMITAÇÃO FUNCIONAL
%s

### 3. EXAMES (Quando Houver)
[Não apresentados na consulta]

### 4. TRATAMENTO
%s

### 5. PROGNÓSTICO
A ser avaliado conforme evolução e contexto de %s.

### 6. CONCLUSÃO - %s
Consulta realizada para fins de %s, baseada exclusivamente no relato do paciente.

OBSERVAÇÃO: %s
DATA: %s
`, strings.ToUpper(contextTag), name, date, limitations, treatments,
		contextTag, strings.ToUpper(contextTag), contextTag, reportTelemedicineNote, date)

	return models.DraftDocument{
		Narrative: narrative,
		Report:    report,
		Method:    models.MethodSafeTemplate,
	}
}

// EmergencyDocuments is the terminal fallback: a minimal pair of documents
// that flags the technical failure and defers to manual review.
func EmergencyDocuments(patientSummary, contextTag, errMsg string, now time.Time) (string, string) {
	date := now.Format("02/01/2006")

	narrative := fmt.Sprintf(`## ANAMNESE - MODO SEGURO DE EMERGÊNCIA

### IDENTIFICAÇÃO
Paciente: %s
Data: %s
Modalidade: Telemedicina

### OBSERVAÇÕES
- Sistema executado em modo de segurança devido a erro técnico
- Transcrição disponível mas processamento limitado
- Recomenda-se revisão médica manual
- Contexto identificado: %s

ERRO TÉCNICO: %s
TRANSCRIÇÃO ORIGINAL: [Disponível para revisão médica]
`, patientSummary, date, contextTag, errMsg)

	report := fmt.Sprintf(`## LAUDO MÉDICO - MODO SEGURO

### IDENTIFICAÇÃO
Data: %s
Contexto: %s

### OBSERVAÇÃO CRÍTICA
Documento gerado em modo de segurança devido a limitações técnicas.
Requer revisão e elaboração médica manual.

RECOMENDAÇÃO: Revisão médica presencial ou nova consulta de telemedicina.
`, date, strings.ToUpper(contextTag))

	return narrative, report
}

func personalValue(facts models.ExtractedFacts, field, fallback string) string {
	if entry, ok := facts.ConfirmedPersonalFields[field]; ok && entry.Value != "" {
		return entry.Value
	}
	return fallback
}
