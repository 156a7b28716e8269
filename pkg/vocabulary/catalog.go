package vocabulary

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Catalog is the fixed vocabulary of medical terms that generated text is
// never allowed to introduce on its own. Terms are grouped by category so a
// flag can report what kind of content was invented.
type Catalog struct {
	Categories map[string][]string `yaml:"categories" json:"categories"`
}

func Load(path string) (Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultCatalog(), err
	}
	var cat Catalog
	if err := yaml.Unmarshal(content, &cat); err != nil {
		return Catalog{}, err
	}
	if len(cat.Categories) == 0 {
		return Catalog{}, fmt.Errorf("vocabulary catalog empty")
	}
	return cat, nil
}

// TermsIn iterates a category. Missing categories return nil.
func (c Catalog) TermsIn(category string) []string {
	if c.Categories == nil {
		return nil
	}
	return c.Categories[category]
}

// CategoryNames returns the configured categories in no particular order.
func (c Catalog) CategoryNames() []string {
	names := make([]string, 0, len(c.Categories))
	for name := range c.Categories {
		names = append(names, name)
	}
	return names
}

// Contains reports whether term belongs to any category, case-insensitive.
func (c Catalog) Contains(term string) bool {
	needle := strings.ToLower(term)
	for _, terms := range c.Categories {
		for _, t := range terms {
			if strings.ToLower(t) == needle {
				return true
			}
		}
	}
	return false
}

func DefaultCatalog() Catalog {
	return Catalog{Categories: map[string][]string{
		"doencas_especificas": {
			"hipertensão", "diabetes", "cardiopatia", "nefropatia", "hepatopatia",
			"artrite", "artrose", "fibromialgia", "lúpus", "esclerose",
			"parkinson", "alzheimer", "epilepsia", "enxaqueca", "sinusite",
			"pneumonia", "bronquite", "asma", "rinite", "gastrite",
			"úlcera", "refluxo", "hérnia", "catarata", "glaucoma",
		},
		"medicamentos_especificos": {
			"captopril", "losartana", "metformina", "insulina", "sinvastatina",
			"omeprazol", "diclofenaco", "ibuprofeno", "paracetamol", "dipirona",
			"amoxicilina", "azitromicina", "prednisona", "dexametasona",
		},
		"exames_especificos": {
			"ressonância magnética", "tomografia computadorizada", "ultrassonografia",
			"eletrocardiograma", "eletroencefalograma", "raio-x", "radiografia",
			"colonoscopia", "endoscopia", "ecocardiograma", "holter",
		},
		"procedimentos_especificos": {
			"angioplastia", "cateterismo", "artroscopia", "biópsia",
			"cirurgia bariátrica", "transplante", "hemodiálise",
		},
	}}
}
