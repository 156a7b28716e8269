package extraction

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/medscribe-ai/platform/pkg/common/models"
)

// Completeness weights and thresholds. Personal fields are scaled against
// the three expected identity fields, symptoms against the two reports
// considered a minimally described complaint.
const (
	personalWeight  = 0.3
	symptomWeight   = 0.4
	timelineWeight  = 0.2
	treatmentWeight = 0.1

	expectedPersonalFields = 3
	expectedSymptomCount   = 2

	highThreshold   = 0.5
	mediumThreshold = 0.3

	contextRunes = 30
)

type compiledRuleSet struct {
	name  string
	rules []*regexp.Regexp
}

// Extractor turns raw consultation text into an ExtractedFacts record. It
// holds only compiled read-only pattern tables and is safe for concurrent
// reuse.
type Extractor struct {
	personal   []compiledRuleSet
	symptoms   []compiledRuleSet
	timeline   []compiledRuleSet
	treatments []compiledRuleSet
	stopwords  map[string]struct{}
}

func NewExtractor(cfg PatternConfig) (*Extractor, error) {
	compile := func(sets []RuleSet) ([]compiledRuleSet, error) {
		var compiled []compiledRuleSet
		for _, set := range sets {
			crs := compiledRuleSet{name: set.Name}
			for _, pattern := range set.Patterns {
				re, err := regexp.Compile(pattern)
				if err != nil {
					return nil, err
				}
				crs.rules = append(crs.rules, re)
			}
			compiled = append(compiled, crs)
		}
		return compiled, nil
	}

	personal, err := compile(cfg.PersonalFields)
	if err != nil {
		return nil, err
	}
	symptoms, err := compile(cfg.SymptomCategories)
	if err != nil {
		return nil, err
	}
	timeline, err := compile(cfg.TimelineKinds)
	if err != nil {
		return nil, err
	}
	treatments, err := compile(cfg.TreatmentKinds)
	if err != nil {
		return nil, err
	}

	stopwords := make(map[string]struct{}, len(cfg.ValueStopwords))
	for _, w := range cfg.ValueStopwords {
		stopwords[strings.ToLower(w)] = struct{}{}
	}

	return &Extractor{
		personal:   personal,
		symptoms:   symptoms,
		timeline:   timeline,
		treatments: treatments,
		stopwords:  stopwords,
	}, nil
}

// Extract is a total function: any input, including empty strings, yields a
// fully populated record. Every populated entry carries the literal matched
// phrase from the combined input text as its source quote.
func (e *Extractor) Extract(transcript, patientSummary string) models.ExtractedFacts {
	combined := patientSummary + " " + transcript

	facts := models.ExtractedFacts{
		ConfirmedPersonalFields: make(map[string]models.PersonalField),
		ReportedSymptoms:        []models.ReportedSymptom{},
		SpecifiedTimeline:       make(map[string]models.TimelineEntry),
		CitedTreatments:         []models.CitedTreatment{},
	}

	e.extractPersonalFields(combined, &facts)
	e.extractSymptoms(combined, &facts)
	e.extractTimeline(combined, &facts)
	e.extractTreatments(combined, &facts)

	facts.Completeness = e.scoreCompleteness(facts)
	facts.MissingCriticalFields = identifyMissingCriticalInfo(facts)

	return facts
}

func (e *Extractor) extractPersonalFields(text string, facts *models.ExtractedFacts) {
	for _, set := range e.personal {
		for _, re := range set.rules {
			if _, populated := facts.ConfirmedPersonalFields[set.name]; populated {
				break
			}
			m := re.FindStringSubmatchIndex(text)
			if m == nil {
				continue
			}
			value := strings.TrimSpace(capturedValue(text, m))
			if !e.usableValue(value) {
				continue
			}
			facts.ConfirmedPersonalFields[set.name] = models.PersonalField{
				Value:        value,
				SourceQuote:  text[m[0]:m[1]],
				SourceOffset: m[0],
			}
		}
	}
}

func (e *Extractor) extractSymptoms(text string, facts *models.ExtractedFacts) {
	seen := make(map[string]struct{})
	for _, set := range e.symptoms {
		for _, re := range set.rules {
			for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
				phrase := strings.TrimSpace(capturedValue(text, m))
				if utf8.RuneCountInString(phrase) <= 2 {
					continue
				}
				key := set.name + "|" + normalizeValue(phrase)
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				facts.ReportedSymptoms = append(facts.ReportedSymptoms, models.ReportedSymptom{
					Category:     set.name,
					ExactPhrase:  phrase,
					SourceQuote:  text[m[0]:m[1]],
					Context:      contextWindow(text, m[0], m[1]),
					SourceOffset: m[0],
				})
			}
		}
	}
}

func (e *Extractor) extractTimeline(text string, facts *models.ExtractedFacts) {
	for _, set := range e.timeline {
		for _, re := range set.rules {
			m := re.FindStringSubmatchIndex(text)
			if m == nil {
				continue
			}
			facts.SpecifiedTimeline[set.name] = models.TimelineEntry{
				Period:      strings.TrimSpace(capturedValue(text, m)),
				SourceQuote: text[m[0]:m[1]],
			}
			break
		}
	}
}

func (e *Extractor) extractTreatments(text string, facts *models.ExtractedFacts) {
	seen := make(map[string]struct{})
	for _, set := range e.treatments {
		for _, re := range set.rules {
			for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
				desc := strings.TrimSpace(capturedValue(text, m))
				if utf8.RuneCountInString(desc) <= 2 {
					continue
				}
				key := set.name + "|" + normalizeValue(desc)
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				facts.CitedTreatments = append(facts.CitedTreatments, models.CitedTreatment{
					Kind:        set.name,
					Description: desc,
					SourceQuote: text[m[0]:m[1]],
				})
			}
		}
	}
}

func (e *Extractor) scoreCompleteness(facts models.ExtractedFacts) models.Completeness {
	score := 0.0

	if n := len(facts.ConfirmedPersonalFields); n > 0 {
		score += math.Min(personalWeight, float64(n)/expectedPersonalFields*personalWeight)
	}
	if n := len(facts.ReportedSymptoms); n > 0 {
		score += math.Min(1.0, float64(n)/expectedSymptomCount) * symptomWeight
	}
	if len(facts.SpecifiedTimeline) > 0 {
		score += timelineWeight
	}
	if len(facts.CitedTreatments) > 0 {
		score += treatmentWeight
	}

	level := models.CompletenessLow
	switch {
	case score >= highThreshold:
		level = models.CompletenessHigh
	case score >= mediumThreshold:
		level = models.CompletenessMedium
	}

	return models.Completeness{
		Score:            score,
		Level:            level,
		InvokeGeneration: score >= mediumThreshold,
		FieldCounts: map[string]int{
			"dados_pessoais": len(facts.ConfirmedPersonalFields),
			"sintomas":       len(facts.ReportedSymptoms),
			"timeline":       len(facts.SpecifiedTimeline),
			"tratamentos":    len(facts.CitedTreatments),
		},
	}
}

func identifyMissingCriticalInfo(facts models.ExtractedFacts) []string {
	missing := []string{}

	if _, ok := facts.ConfirmedPersonalFields["nome_completo"]; !ok {
		missing = append(missing, "nome_nao_especificado")
	}
	if _, ok := facts.ConfirmedPersonalFields["idade_exata"]; !ok {
		missing = append(missing, "idade_nao_especificada")
	}
	if _, ok := facts.ConfirmedPersonalFields["profissao_exata"]; !ok {
		missing = append(missing, "profissao_nao_especificada")
	}
	if len(facts.ReportedSymptoms) == 0 {
		missing = append(missing, "sintomas_nao_relatados")
	}
	if len(facts.SpecifiedTimeline) == 0 {
		missing = append(missing, "timeline_nao_especificada")
	}

	return missing
}

// usableValue rejects fragments too short to be a real value. Purely
// numeric values like a two-digit age are exempt from the length check.
func (e *Extractor) usableValue(value string) bool {
	if value == "" {
		return false
	}
	if !isNumeric(value) && utf8.RuneCountInString(value) <= 2 {
		return false
	}
	_, stop := e.stopwords[strings.ToLower(value)]
	return !stop
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// capturedValue returns capture group 1 when the pattern defines one,
// otherwise the full match.
func capturedValue(text string, m []int) string {
	if len(m) >= 4 && m[2] >= 0 {
		return text[m[2]:m[3]]
	}
	return text[m[0]:m[1]]
}

func normalizeValue(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// contextWindow returns up to contextRunes runes on each side of the match.
func contextWindow(text string, start, end int) string {
	from := start
	for i := 0; i < contextRunes && from > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(text[:from])
		from -= size
	}
	to := end
	for i := 0; i < contextRunes && to < len(text); i++ {
		_, size := utf8.DecodeRuneInString(text[to:])
		to += size
	}
	return strings.TrimSpace(text[from:to])
}
