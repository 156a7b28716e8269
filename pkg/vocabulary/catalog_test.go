package vocabulary

import "testing"

func TestDefaultCatalogCoversCoreCategories(t *testing.T) {
	catalog := DefaultCatalog()

	for _, category := range []string{
		"doencas_especificas",
		"medicamentos_especificos",
		"exames_especificos",
		"procedimentos_especificos",
	} {
		if len(catalog.TermsIn(category)) == 0 {
			t.Fatalf("expected terms in category %s", category)
		}
	}
}

func TestContainsIsCaseInsensitive(t *testing.T) {
	catalog := DefaultCatalog()

	if !catalog.Contains("Losartana") {
		t.Fatal("expected losartana to be a known term")
	}
	if catalog.Contains("fisioterapia do ombro") {
		t.Fatal("did not expect an unknown phrase to match")
	}
}

func TestLoadFallsBackToDefaults(t *testing.T) {
	catalog, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(catalog.CategoryNames()) == 0 {
		t.Fatal("expected default categories")
	}
}
