package models

import "time"

// Completeness levels for the extracted facts of a consultation.
const (
	CompletenessLow    = "LOW"
	CompletenessMedium = "MEDIUM"
	CompletenessHigh   = "HIGH"
)

// Safety levels describing how the final document was produced.
const (
	SafetyMaximumSafe   = "MAXIMUM_SAFE"
	SafetyValidatedSafe = "VALIDATED_SAFE"
	SafetyCorrectedSafe = "CORRECTED_SAFE"
	SafetyEmergencySafe = "EMERGENCY_SAFE"
)

// Generation routes chosen by the completeness gate.
const (
	RouteSafeTemplate         = "SAFE_TEMPLATE"
	RouteControlledGeneration = "CONTROLLED_GENERATION"
)

// Generation methods stamped on the final document.
const (
	MethodControlledAI = "controlled_ai"
	MethodCorrectedAI  = "corrected_ai"
	MethodSafeTemplate = "safe_template"
)

// Hallucination flag kinds.
const (
	FlagMedicalTerm  = "medical-term"
	FlagPersonalData = "personal-data"
	FlagTemporal     = "temporal"
	FlagCrossCheck   = "cross-check"
)

// Flag severities.
const (
	SeverityLow    = "LOW"
	SeverityMedium = "MEDIUM"
	SeverityHigh   = "HIGH"
)

// Flag actions.
const (
	ActionRemoveOrReplace        = "REMOVE_OR_REPLACE"
	ActionReplaceWithPlaceholder = "REPLACE_WITH_PLACEHOLDER"
	ActionReviewAndCorrect       = "REVIEW_AND_CORRECT"
)

// PersonalField is a singular patient attribute extracted from the
// consultation text. The JSON keys keep the wire format the document
// consumers already depend on.
type PersonalField struct {
	Value        string `json:"valor"`
	SourceQuote  string `json:"frase_original"`
	SourceOffset int    `json:"posicao_texto"`
}

type ReportedSymptom struct {
	Category     string `json:"categoria"`
	ExactPhrase  string `json:"sintoma_exato"`
	SourceQuote  string `json:"frase_completa_original"`
	Context      string `json:"contexto_ao_redor"`
	SourceOffset int    `json:"posicao_no_texto"`
}

type TimelineEntry struct {
	Period      string `json:"periodo"`
	SourceQuote string `json:"frase_original"`
}

type CitedTreatment struct {
	Kind        string `json:"tipo"`
	Description string `json:"tratamento"`
	SourceQuote string `json:"frase_original"`
}

type Completeness struct {
	Score            float64        `json:"score"`
	Level            string         `json:"level"`
	InvokeGeneration bool           `json:"invoke_generation"`
	FieldCounts      map[string]int `json:"campos_identificados,omitempty"`
}

// ExtractedFacts holds everything the extractor found explicitly stated in
// the source text. Every populated entry carries a source quote that is a
// literal substring of the input; nothing here is inferred.
type ExtractedFacts struct {
	ConfirmedPersonalFields map[string]PersonalField `json:"dados_pessoais_confirmados"`
	ReportedSymptoms        []ReportedSymptom        `json:"sintomas_textualmente_relatados"`
	SpecifiedTimeline       map[string]TimelineEntry `json:"timeline_especificada"`
	CitedTreatments         []CitedTreatment         `json:"tratamentos_citados"`
	MissingCriticalFields   []string                 `json:"informacoes_ausentes"`
	Completeness            Completeness             `json:"completude_dados"`
}

type HallucinationFlag struct {
	Kind          string `json:"kind"`
	Category      string `json:"category,omitempty"`
	InventedValue string `json:"invented_value,omitempty"`
	Severity      string `json:"severity"`
	Action        string `json:"action"`
}

type Corrections struct {
	CorrectedText     string   `json:"corrected_text"`
	ModificationsMade []string `json:"modifications_made"`
}

type ValidationResult struct {
	HasHallucinations bool                `json:"has_hallucinations"`
	Flags             []HallucinationFlag `json:"hallucination_flags"`
	Corrections       Corrections         `json:"corrections"`
}

// DraftDocument is the output of one controlled-generation attempt before
// validation.
type DraftDocument struct {
	Narrative string `json:"narrative"`
	Report    string `json:"report"`
	Method    string `json:"generation_method"`
}

type AnalysisRequest struct {
	TranscriptText     string `json:"transcript_text"`
	PatientSummaryText string `json:"patient_summary_text,omitempty"`
	ContextTag         string `json:"context_tag"`
}

type Audit struct {
	SafetyLevel           string              `json:"safety_level"`
	PrecisionScore        float64             `json:"precision_score"`
	DataCompletenessLevel string              `json:"data_completeness_level"`
	PipelinePath          []string            `json:"pipeline_path"`
	FactsUsed             *ExtractedFacts     `json:"facts_used,omitempty"`
	MissingCriticalInfo   []string            `json:"missing_critical_info,omitempty"`
	HallucinationFlags    []HallucinationFlag `json:"hallucination_flags,omitempty"`
	SourceTraceability    bool                `json:"source_traceability"`
	RequiresManualReview  bool                `json:"requires_manual_review"`
}

// PipelineResult is the only thing a pipeline run ever returns. Degraded
// confidence shows up in the audit block, never as an error.
type PipelineResult struct {
	NarrativeText     string    `json:"narrative_text"`
	ReportText        string    `json:"report_text"`
	TranscriptionEcho string    `json:"transcription"`
	GenerationMethod  string    `json:"generation_method"`
	Audit             Audit     `json:"audit"`
	ModelLabel        string    `json:"model"`
	Timestamp         time.Time `json:"timestamp"`
}

// RetrievedPassage is one ranked passage from the external retrieval
// service. Passages enrich generation prompts only; the validator never
// sees them.
type RetrievedPassage struct {
	Text  string  `json:"passage_text"`
	Score float64 `json:"similarity_score"`
}

// Event is the envelope for everything published on the bus.
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}
