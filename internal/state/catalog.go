package state

import (
	_ "embed"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// catalogEntry is one item definition in the embedded default catalog.
type catalogEntry struct {
	Name          string   `yaml:"name"`
	Included      bool     `yaml:"included"`
	FileKeyword   string   `yaml:"file_keyword"`
	NameKeywords  []string `yaml:"name_keywords"`
	UnitOfMeasure string   `yaml:"unit_of_measure"`
	Ratio         *float64 `yaml:"ratio"`
	Category      string   `yaml:"category"`
	Title         string   `yaml:"title"`
	Description   string   `yaml:"description"`
	DisplayUnit   string   `yaml:"display_unit"`
}

// defaultCatalog materializes the embedded catalog as a fresh document.
// Catalog order becomes the display order of the new state file.
func defaultCatalog() (*document, error) {
	var entries []catalogEntry
	if err := yaml.Unmarshal(catalogYAML, &entries); err != nil {
		return nil, eris.Wrap(err, "state: parse default catalog")
	}

	doc := newDocument()
	for _, e := range entries {
		if e.Name == "" {
			return nil, eris.New("state: catalog entry without a name")
		}
		it := doc.ensure(e.Name)
		it.Included = e.Included
		it.FileKeyword = e.FileKeyword
		it.NameKeywords = append([]string(nil), e.NameKeywords...)
		it.UnitOfMeasure = e.UnitOfMeasure
		it.Ratio = cloneFloat(e.Ratio)
		it.Category = e.Category
		it.Title = e.Title
		it.Description = e.Description
		it.DisplayUnit = e.DisplayUnit
	}
	return doc, nil
}
