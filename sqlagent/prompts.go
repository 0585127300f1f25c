// ABOUTME: Prompt templates for the filter extraction, SQL generation, metadata, payload, and diagnosis stages.
// ABOUTME: Also strips markdown code fences from model responses before JSON or SQL parsing.
package sqlagent

import (
	"encoding/json"
	"fmt"
	"strings"
)

const filterExtractionSystem = `You are an expert at identifying filter conditions in database queries.
Given a natural language query, identify any filter conditions that should be applied.
Focus on extracting specific values for parameters like banks, regions, sectors, etc.`

const queryTemplateSystem = `You are an expert SQL developer for PostgreSQL databases.
Your task is to convert natural language queries into SQL query templates.
Create precise, efficient SQL that answers the user's question.`

const metadataSystem = `You are an expert data visualization specialist.
Your task is to determine the appropriate metadata for visualizing SQL query results.
Focus on creating effective visualizations based on the query structure and data types.`

const payloadAnalysisSystem = `You are an expert at analyzing SQL queries.
Your task is to extract key information from a SQL query to create an appropriate visualization.
Focus on identifying the main metric, the appropriate grouping, and visualization type.`

const diagnosisSystem = `You are an expert troubleshooter for SQL query generation.
Your task is to diagnose and explain errors that occurred during query processing.
Provide clear explanations of what went wrong and suggest possible fixes.`

// filterExtractionPrompt builds the user prompt asking the model to map the
// query onto the known filter vocabulary.
func filterExtractionPrompt(query string, vocab *Vocabulary) string {
	valuesJSON, _ := json.MarshalIndent(vocab.Filters, "", "  ")
	return fmt.Sprintf(`Given this natural language query:
%q

Extract all filter conditions that should be applied. Consider these common filter fields:
%s

For each filter, identify if the query specifies a value that matches the known possible values:
%s

Return a JSON object with filter names as keys and their values. For example:
{
  "region": "Addis Ababa",
  "gender": "Female"
}

If no filters are specified, return an empty JSON object.`,
		query, strings.Join(vocab.FilterNames(), ", "), valuesJSON)
}

// queryTemplatePrompt builds the user prompt asking for a parameterized
// PostgreSQL template over the resolved tables and extracted filters.
func queryTemplatePrompt(query string, tables []string, filters map[string]any, vocab *Vocabulary) string {
	filtersJSON, _ := json.Marshal(filters)
	return fmt.Sprintf(`Generate an SQL query for this natural language query and make sure the SQL query is syntactically and logically correct:
%q

Using this table: %s

Applying these filters: %s

Using these columns: %s

Consider these guidelines:
1. Use WHERE clauses for any filters
2. Include GROUP BY if aggregations are needed
3. Use appropriate ORDER BY clauses
4. For array filters, ALWAYS use the syntax: filter_column = ANY(%%(filter_name)s)
   Example: bank = ANY(%%(bank)s) AND gender = ANY(%%(gender)s)
5. For date filters, use: date_column >= %%(start_date)s AND date_column <= %%(end_date)s
6. All string comparison operators should use the exact column names
7. Make sure to create meaningful column aliases for aggregated values

Return ONLY the SQL query template as a string, nothing else.`,
		query, strings.Join(tables, ", "), filtersJSON, strings.Join(vocab.Columns, ", "))
}

// metadataPrompt builds the user prompt asking for visualization metadata.
func metadataPrompt(queryTemplate, query string) string {
	return fmt.Sprintf(`Based on this SQL query template:
%s

And this natural language query:
%q

Generate the following metadata to support visualization:

1. params_metadata: Information about parameters used in the query.
   For each filter parameter, include:
   - data type (date, array, string, etc.)
   - possible values (use the predefined list if available)

2. groupby_options: Fields that can be used for grouping in the visualization.
   For each groupby field, include the column name.

Return a JSON object with these two properties:
{
  "params_metadata": { ... },
  "groupby_options": { ... }
}`, queryTemplate, query)
}

// payloadAnalysisPrompt builds the user prompt asking the model to classify
// the query for payload construction.
func payloadAnalysisPrompt(query, queryTemplate string) string {
	return fmt.Sprintf(`Given this natural language query: %q
And this SQL query: %s

Please provide the following information:

1. A concise, descriptive name for this query (e.g., "Average Loan Maturity")
2. A brief description explaining what this query calculates or shows (e.g., "Calculates the average loan duration (in days) for each loan product type")
3. The most appropriate visualization type for the result (one of: "bar", "line", "pie", "area")
4. The main metric column name from the SQL query (e.g., "Average_Loan_Duration")
5. The table being queried (e.g., "full_data_inpaymentlatest")

Return a JSON object with properties "name", "description", "visualization_type", "main_metric", and "table".`,
		query, queryTemplate)
}

// diagnosisPrompt builds the user prompt asking for an analysis of the
// accumulated pipeline errors.
func diagnosisPrompt(query string, errs []string, tables []string, queryTemplate string) string {
	return fmt.Sprintf(`An error occurred during SQL query generation:

Errors: %s

Current state:
- Query: %q
- Target tables: %v
- Query template: %s

Provide:
1. A diagnosis of what went wrong
2. A clear explanation for the user
3. Suggestions for fixing the issue

Return your analysis as a JSON object with properties "diagnosis", "explanation", and "suggestions".`,
		strings.Join(errs, "; "), query, tables, queryTemplate)
}

// stripCodeFence removes a markdown code fence wrapper from a model response.
// Handles tagged fences ("```json", "```sql") and bare triple backticks;
// untagged content passes through trimmed.
func stripCodeFence(s string) string {
	for _, tag := range []string{"```json", "```sql"} {
		if i := strings.Index(s, tag); i >= 0 {
			rest := s[i+len(tag):]
			if j := strings.Index(rest, "```"); j >= 0 {
				rest = rest[:j]
			}
			return strings.TrimSpace(rest)
		}
	}
	if i := strings.Index(s, "```"); i >= 0 {
		rest := s[i+3:]
		if j := strings.Index(rest, "```"); j >= 0 {
			rest = rest[:j]
		}
		return strings.TrimSpace(rest)
	}
	return strings.TrimSpace(s)
}
