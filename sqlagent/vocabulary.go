// ABOUTME: Filter vocabulary and column catalog for the loan analytics dataset.
// ABOUTME: Loaded once from embedded YAML (or an override file) into an immutable configuration struct.
package sqlagent

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed vocabulary.yaml
var defaultVocabularyYAML []byte

// Vocabulary holds the domain's known filter values, column names, and
// payload defaults. It is configuration data, not engine logic: build it
// once at startup and pass it into stage constructors read-only.
type Vocabulary struct {
	DefaultTable   string              `yaml:"default_table"`
	PayloadTable   string              `yaml:"payload_table"`
	Columns        []string            `yaml:"columns"`
	Filters        map[string][]string `yaml:"filters"`
	PayloadFilters map[string][]string `yaml:"payload_filters"`
	// PayloadFilterFields lists which filter fields appear in the visualizer
	// payload's filter metadata, in payload order.
	PayloadFilterFields []string          `yaml:"payload_filter_fields"`
	GroupByFields       []string          `yaml:"groupby_fields"`
	DateDefaults        map[string]string `yaml:"date_defaults"`
}

// DefaultVocabulary parses the embedded vocabulary.
func DefaultVocabulary() (*Vocabulary, error) {
	return parseVocabulary(defaultVocabularyYAML)
}

// LoadVocabulary reads a vocabulary override from a YAML file.
func LoadVocabulary(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary: %w", err)
	}
	return parseVocabulary(data)
}

func parseVocabulary(data []byte) (*Vocabulary, error) {
	var v Vocabulary
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parse vocabulary: %w", err)
	}
	if v.DefaultTable == "" {
		return nil, fmt.Errorf("vocabulary: default_table is required")
	}
	if len(v.Filters) == 0 {
		return nil, fmt.Errorf("vocabulary: no filter values defined")
	}
	return &v, nil
}

// FilterNames returns the known filter field names in sorted order.
func (v *Vocabulary) FilterNames() []string {
	names := make([]string, 0, len(v.Filters))
	for name := range v.Filters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// KnownFilter reports whether name is a recognized filter field, in either
// the table filters or the payload-only filters.
func (v *Vocabulary) KnownFilter(name string) bool {
	if _, ok := v.Filters[name]; ok {
		return true
	}
	_, ok := v.PayloadFilters[name]
	return ok
}

// AllFilterValues merges table and payload-only filter vocabularies. Payload
// entries win on name collision.
func (v *Vocabulary) AllFilterValues() map[string][]string {
	merged := make(map[string][]string, len(v.Filters)+len(v.PayloadFilters))
	for name, values := range v.Filters {
		merged[name] = values
	}
	for name, values := range v.PayloadFilters {
		merged[name] = values
	}
	return merged
}
