package nlquery

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Column describes one column of the queryable table for the prompt.
type Column struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// Schema is the static description of the table the translator targets.
// It is fixed configuration, never inferred from the database.
type Schema struct {
	Table   string   `yaml:"table"`
	Columns []Column `yaml:"columns"`
}

// LoadSchema reads a schema description from a YAML file.
func LoadSchema(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "nlquery: read schema %s", path)
	}

	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, eris.Wrap(err, "nlquery: parse schema")
	}
	if s.Table == "" || len(s.Columns) == 0 {
		return nil, eris.New("nlquery: schema needs a table name and at least one column")
	}
	return &s, nil
}

// DefaultSchema describes the outlets table.
func DefaultSchema() *Schema {
	return &Schema{
		Table: "outlets",
		Columns: []Column{
			{Name: "id", Description: "unique outlet identifier"},
			{Name: "name", Description: "outlet display name"},
			{Name: "address", Description: "free-text street address"},
			{Name: "work_day_start", Description: "first open weekday, e.g. Monday"},
			{Name: "work_day_end", Description: "last open weekday, e.g. Sunday"},
			{Name: "start_time", Description: "daily opening time, 24-hour HH:MM"},
			{Name: "end_time", Description: "daily closing time, 24-hour HH:MM"},
			{Name: "latitude", Description: "latitude, NULL if not geocoded yet"},
			{Name: "longitude", Description: "longitude, NULL if not geocoded yet"},
		},
	}
}

// Describe renders the schema as prompt text.
func (s *Schema) Describe() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Table %q with columns:\n", s.Table)
	for _, c := range s.Columns {
		fmt.Fprintf(&sb, "  - %s: %s\n", c.Name, c.Description)
	}
	return sb.String()
}

// Prompt builds the translation prompt for a question.
func (s *Schema) Prompt(question string) string {
	var sb strings.Builder
	sb.WriteString("You translate questions about retail outlets into SQLite queries.\n\n")
	sb.WriteString(s.Describe())
	sb.WriteString("\nRules:\n")
	sb.WriteString("- Respond with exactly one SELECT statement and nothing else.\n")
	sb.WriteString("- No explanation, no markdown, no code fences.\n")
	sb.WriteString("- Read-only: never INSERT, UPDATE, DELETE, DROP, ALTER or CREATE.\n")
	sb.WriteString("- Times are 24-hour HH:MM strings and compare lexically.\n")
	sb.WriteString("\nQuestion: " + question + "\n")
	return sb.String()
}

// RetryPrompt reformulates the request after an unusable completion,
// quoting the bad output back so the model can see what to avoid.
func (s *Schema) RetryPrompt(question, badOutput string) string {
	var sb strings.Builder
	sb.WriteString(s.Prompt(question))
	sb.WriteString("\nYour previous response was not a single bare SELECT statement:\n")
	if badOutput == "" {
		sb.WriteString("(empty response)\n")
	} else {
		sb.WriteString(badOutput + "\n")
	}
	sb.WriteString("Respond again with exactly one SELECT statement and nothing else.\n")
	return sb.String()
}
