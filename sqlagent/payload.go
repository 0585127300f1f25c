// ABOUTME: Visualizer payload model and construction from vocabulary plus model analysis.
// ABOUTME: Includes the heuristic query-name generator used when the model omits a name.
package sqlagent

import (
	"strings"
	"unicode"
)

// ParamInfo describes one parameter in the payload metadata: its shape and
// type tag pair plus the allowed values.
type ParamInfo struct {
	Info           []string `json:"info"`
	PossibleValues []string `json:"possible_values"`
}

// ParamsMetadata is the payload's parameter metadata, split into grouping
// fields and filter fields.
type ParamsMetadata struct {
	Group  map[string]ParamInfo `json:"group"`
	Filter map[string]ParamInfo `json:"filter"`
}

// GroupByOptions lists the fields available for grouping in the visualizer.
type GroupByOptions struct {
	GroupByFields []string `json:"groupby_fields"`
}

// Payload is the raw-query submission body for the visualizer API.
type Payload struct {
	Name               string            `json:"name"`
	Description        string            `json:"description"`
	QueryTemplate      string            `json:"query_template"`
	TargetTables       []string          `json:"target_tables"`
	ParamsMetadata     ParamsMetadata    `json:"params_metadata"`
	GroupByOptions     GroupByOptions    `json:"groupby_options"`
	ChartType          string            `json:"chart_type"`
	DefaultValues      map[string]any    `json:"default_values"`
	ResultDisplayTypes map[string]string `json:"result_display_types"`
	DashboardType      string            `json:"dashboard_type"`
	UserType           string            `json:"user_type"`
	Priority           int               `json:"priority"`
}

// queryAnalysis is the model's classification of the query, parsed from the
// construct_payload stage's JSON response.
type queryAnalysis struct {
	Name              string `json:"name"`
	Description       string `json:"description"`
	VisualizationType string `json:"visualization_type"`
	MainMetric        string `json:"main_metric"`
	Table             string `json:"table"`
}

// BuildPayload assembles the full visualizer payload from the vocabulary,
// the generated query template, and the model's query analysis. Missing
// analysis fields fall back to vocabulary defaults and the heuristic name
// generator.
func BuildPayload(vocab *Vocabulary, query, queryTemplate string, analysis queryAnalysis) *Payload {
	name := analysis.Name
	if name == "" {
		name = GenerateQueryName(query)
	}
	description := analysis.Description
	if description == "" {
		description = "Analysis of database information"
	}
	vizType := analysis.VisualizationType
	if vizType == "" {
		vizType = "bar"
	}
	metric := analysis.MainMetric
	if metric == "" {
		metric = "Value"
	}
	table := analysis.Table
	if table == "" {
		table = vocab.PayloadTable
	}

	allValues := vocab.AllFilterValues()

	filterMeta := make(map[string]ParamInfo, len(vocab.PayloadFilterFields)+2)
	defaults := make(map[string]any, len(vocab.PayloadFilterFields)+3)
	for _, field := range vocab.PayloadFilterFields {
		values := allValues[field]
		filterMeta[field] = ParamInfo{Info: []string{"array", "String"}, PossibleValues: values}
		defaults[field] = values
	}
	filterMeta["start_date"] = ParamInfo{Info: []string{"scalar", "Date"}, PossibleValues: []string{}}
	filterMeta["end_date"] = ParamInfo{Info: []string{"scalar", "Date"}, PossibleValues: []string{}}
	for k, v := range vocab.DateDefaults {
		defaults[k] = v
	}
	if len(vocab.GroupByFields) > 0 {
		defaults["groupby_fields"] = vocab.GroupByFields[0]
	}

	return &Payload{
		Name:          name,
		Description:   description,
		QueryTemplate: queryTemplate,
		TargetTables:  []string{table},
		ParamsMetadata: ParamsMetadata{
			Group: map[string]ParamInfo{
				"groupby_fields": {
					Info:           []string{"scalar", "String"},
					PossibleValues: vocab.GroupByFields,
				},
			},
			Filter: filterMeta,
		},
		GroupByOptions:     GroupByOptions{GroupByFields: vocab.GroupByFields},
		ChartType:          "category",
		DefaultValues:      defaults,
		ResultDisplayTypes: map[string]string{metric: vizType},
		DashboardType:      "cpm",
		UserType:           "TLF_USER",
		Priority:           1,
	}
}

// GenerateQueryName derives a descriptive name from the raw query when the
// model does not supply one. Interrogative prefixes become "Analysis of" or
// "Calculation of"; anything else is title-cased.
func GenerateQueryName(query string) string {
	q := strings.TrimSpace(strings.ReplaceAll(query, "?", ""))
	lower := strings.ToLower(q)

	switch {
	case strings.HasPrefix(lower, "what is"):
		return "Analysis of " + strings.TrimSpace(q[len("what is"):])
	case strings.HasPrefix(lower, "show me"):
		return "Analysis of " + strings.TrimSpace(q[len("show me"):])
	case strings.HasPrefix(lower, "calculate"):
		return "Calculation of " + strings.TrimSpace(q[len("calculate"):])
	}

	return titleCase(q)
}

// titleCase capitalizes the first letter of each space-separated word.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
