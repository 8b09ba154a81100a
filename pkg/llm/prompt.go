package llm

import (
	"fmt"
	"strings"
)

// systemPrompt instructs the model to emit exactly one SELECT statement.
// Prompt instructions are a courtesy to the model, not a security measure;
// the sanitizer is the enforcement point.
const systemPrompt = "You are an expert SQL generator for PostgreSQL. " +
	"Always use double quotes for table and column names exactly as in the schema. " +
	"Only produce a single SELECT statement, no semicolons, on one line. " +
	"Return only SQL, no explanations."

// buildUserPrompt renders the question and schema description into the user
// message sent to the model.
func buildUserPrompt(question, schemaHint string) string {
	var b strings.Builder
	if schemaHint != "" {
		fmt.Fprintf(&b, "Database schema:\n%s\n\n", schemaHint)
	}
	fmt.Fprintf(&b, "User question:\n%s\n", question)
	return b.String()
}

// stripCodeFences removes Markdown code fences the model may wrap its answer
// in, including an optional "sql" language tag.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.Trim(s, "`")
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "sql"); ok {
		s = strings.TrimSpace(rest)
	}
	return s
}
