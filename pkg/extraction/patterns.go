package extraction

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// RuleSet is an ordered list of patterns for one field or category. For
// singular fields the first pattern that yields a usable value wins; for
// repeatable categories every pattern contributes matches.
type RuleSet struct {
	Name     string   `yaml:"name" json:"name"`
	Patterns []string `yaml:"patterns" json:"patterns"`
}

type PatternConfig struct {
	PersonalFields    []RuleSet `yaml:"personal_fields" json:"personal_fields"`
	SymptomCategories []RuleSet `yaml:"symptom_categories" json:"symptom_categories"`
	TimelineKinds     []RuleSet `yaml:"timeline_kinds" json:"timeline_kinds"`
	TreatmentKinds    []RuleSet `yaml:"treatment_kinds" json:"treatment_kinds"`
	ValueStopwords    []string  `yaml:"value_stopwords" json:"value_stopwords"`
}

func LoadPatterns(path string) (PatternConfig, error) {
	if path == "" {
		return DefaultPatterns(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultPatterns(), err
	}

	var cfg PatternConfig
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return PatternConfig{}, err
	}

	if len(cfg.PersonalFields) == 0 && len(cfg.SymptomCategories) == 0 {
		return PatternConfig{}, errors.New("no extraction patterns configured")
	}

	return cfg, nil
}

// DefaultPatterns covers the Portuguese consultation vocabulary the
// platform was trained against. Patterns capture the extracted value in
// group 1 where present; the full match is always kept as the source quote.
func DefaultPatterns() PatternConfig {
	return PatternConfig{
		PersonalFields: []RuleSet{
			{Name: "nome_completo", Patterns: []string{
				`(?i)(?:meu nome é|me chamo|sou|eu sou)\s+([A-ZÀ-Ÿa-zà-ÿ\s]+)`,
				`(?i)(?:nome|paciente)[\s:]*([A-ZÀ-Ÿa-zà-ÿ\s]+)`,
			}},
			{Name: "idade_exata", Patterns: []string{
				`(?i)(?:tenho|idade|com)\s*(\d{1,3})\s*anos?`,
				`(?i)(\d{1,3})\s*anos?\s*(?:de idade|anos)`,
			}},
			{Name: "profissao_exata", Patterns: []string{
				`(?i)(?:trabalho|trabalhar|sou|profiss[ãa]o|atuo)(?:\s+como|\s+de|\s+é)?\s+([\w\s]+?)(?:\s+(?:há|por|faz|desde)|[.,]|$)`,
				`(?i)(?:com|na)\s+(TI|tecnologia|informática|computador|sistema)`,
				`(?i)(pedreiro|auxiliar|operador|secretária|enfermeira|professor|vendedor|técnico|analista)`,
			}},
		},
		SymptomCategories: []RuleSet{
			{Name: "dor_especifica", Patterns: []string{
				`(?i)(?:sinto|tenho|dor|dói|doendo|dores?)[\s\w]*?(?:no|na|nos|nas)\s+([\w\s]+?)(?:\s|,|\.)`,
				`(?i)(dor[\s\w]*?)(?:\s|,|\.)`,
				`(?i)(enxaqueca|cefaleia|dor de cabeça)`,
			}},
			{Name: "sintomas_neurologicos", Patterns: []string{
				`(?i)(formigamento|dormência|fraqueza|paralisia|tontura|vertigem)`,
				`(?i)(?:sinto|tenho|apresento)\s+([\w\s]+?)(?:\s|,|\.)`,
				`(?i)(perda\s+de\s+[\w\s]+)`,
			}},
			{Name: "limitacoes_funcionais", Patterns: []string{
				`(?i)(não consigo[\s\w]*?)(?:\s|,|\.)`,
				`(?i)(dificuldade para[\s\w]*?)(?:\s|,|\.)`,
				`(?i)(impossível[\s\w]*?)(?:\s|,|\.)`,
				`(?i)(preciso de ajuda[\s\w]*?)(?:\s|,|\.)`,
				`(?i)(não\s+(?:posso|consigo)[\s\w]*?)(?:\s|,|\.)`,
			}},
		},
		TimelineKinds: []RuleSet{
			{Name: "inicio_sintomas", Patterns: []string{
				`(?i)(?:há|fazem?|desde)\s*(\d+\s*(?:anos?|meses?|semanas?|dias?))`,
				`(?i)(?:começou|iniciou|surgiu)(?:\s+há)?\s*(\d+\s*(?:anos?|meses?))`,
				`(?i)(\d+\s*(?:anos?|meses?|semanas?|dias?))\s*(?:atrás|que)`,
			}},
			{Name: "data_evento", Patterns: []string{
				`(?i)(?:em|foi em|desde)\s+(\w+\s+de\s+\d{4})`,
				`(?i)(\d{1,2}/\d{1,2}/\d{4})`,
			}},
		},
		TreatmentKinds: []RuleSet{
			{Name: "medicamentos", Patterns: []string{
				`(?i)(?:tomo|uso|faço uso de|medicamento|remédio)\s*([\w\s]+?)(?:\s|,|\.)`,
				`(?i)(analgésico|anti-inflamatório|antibiótico)`,
			}},
			{Name: "procedimentos", Patterns: []string{
				`(?i)(fisioterapia|cirurgia|operação|procedimento|tratamento|terapia)`,
				`(?i)(?:fiz|faço|fazia)\s+([\w\s]+?)(?:\s|,|\.)`,
			}},
		},
		ValueStopwords: []string{"com", "por", "que", "para"},
	}
}
