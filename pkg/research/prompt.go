package research

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/prompts"

	"github.com/mikeboe/search-helper/pkg/clients"
	"github.com/mikeboe/search-helper/pkg/dialogue"
	"github.com/mikeboe/search-helper/pkg/research/tools"
)

// Placeholders for result fields the search API left out.
const (
	NoTitle   = "No title"
	NoSnippet = "No snippet"
	NoLink    = "No link"
)

// Template variables available besides the record keys.
const (
	VarDate    = "date"
	VarContext = "context"
)

func render(tmpl, date string, vars map[string]any) (string, error) {
	p := prompts.PromptTemplate{
		Template:         tmpl,
		TemplateFormat:   prompts.TemplateFormatGoTemplate,
		PartialVariables: map[string]any{VarDate: date},
	}
	return p.Format(vars)
}

// BuildQuery renders the variant's search query from the record. When the
// variant's flag answer is yes its suffix is appended.
func BuildQuery(v *dialogue.Variant, rec *dialogue.Record, date string) (string, error) {
	query, err := render(v.QueryTemplate, date, rec.Vars())
	if err != nil {
		return "", fmt.Errorf("failed to render query: %w", err)
	}
	query = strings.Join(strings.Fields(query), " ")
	if v.FlagKey != "" && v.FlagSuffix != "" && rec.Flag(v.FlagKey) {
		query += " " + v.FlagSuffix
	}
	return query, nil
}

// FormatContext renders the header line followed by one numbered line per
// result, up to limit results.
func FormatContext(header string, results []tools.SearchResult, limit int) string {
	var sb strings.Builder
	sb.WriteString(header)
	sb.WriteString("\n")
	for i, r := range results {
		if i >= limit {
			break
		}
		fmt.Fprintf(&sb, "%d. %s: %s [Link: %s]\n", i+1,
			orDefault(r.Title, NoTitle),
			orDefault(r.Snippet, NoSnippet),
			orDefault(r.Link, NoLink))
	}
	return sb.String()
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// BuildMessages returns the system and user messages sent to the model.
// Nothing from earlier turns is included.
func BuildMessages(v *dialogue.Variant, rec *dialogue.Record, context, date string) ([]clients.Message, error) {
	vars := rec.Vars()
	vars[VarContext] = context

	user, err := render(v.UserTemplate, date, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to render user prompt: %w", err)
	}

	return []clients.Message{
		{Role: wireRole(llms.ChatMessageTypeSystem), Content: v.SystemPrompt},
		{Role: wireRole(llms.ChatMessageTypeHuman), Content: strings.TrimSpace(user)},
	}, nil
}

// RenderFooter renders the variant footer, or "" when it has none.
func RenderFooter(v *dialogue.Variant, date string) (string, error) {
	if v.Footer == "" {
		return "", nil
	}
	footer, err := render(v.Footer, date, map[string]any{})
	if err != nil {
		return "", fmt.Errorf("failed to render footer: %w", err)
	}
	return footer, nil
}

func wireRole(t llms.ChatMessageType) string {
	switch t {
	case llms.ChatMessageTypeSystem:
		return clients.RoleSystem
	case llms.ChatMessageTypeAI:
		return clients.RoleAssistant
	default:
		return clients.RoleUser
	}
}
