package dialogue

import "strings"

// Answer is one reply submitted for the current question.
// Multi-select replies carry Items; free-text replies carry Text.
type Answer struct {
	Text  string   `json:"text,omitempty"`
	Items []string `json:"items,omitempty"`
}

// TextAnswer builds a free-text answer.
func TextAnswer(text string) Answer {
	return Answer{Text: text}
}

// ListAnswer builds a multi-select answer.
func ListAnswer(items ...string) Answer {
	return Answer{Items: items}
}

// IsEmpty reports whether the answer carries nothing worth storing.
func (a Answer) IsEmpty() bool {
	return strings.TrimSpace(a.Text) == "" && len(cleanItems(a.Items)) == 0
}

// items returns the list form of the answer. A bare text reply becomes a
// single item.
func (a Answer) items() []string {
	if items := cleanItems(a.Items); len(items) > 0 {
		return items
	}
	if text := strings.TrimSpace(a.Text); text != "" {
		return []string{text}
	}
	return nil
}

// text returns the free-text form of the answer, falling back to the joined
// items when only a list was submitted.
func (a Answer) text() string {
	if text := strings.TrimSpace(a.Text); text != "" {
		return text
	}
	return strings.Join(cleanItems(a.Items), ListSeparator)
}

func cleanItems(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// ParseFlag normalises a yes/no reply. Only "sí", "si", "yes" and "y"
// (any case) count as yes.
func ParseFlag(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "sí", "si", "yes", "y":
		return true
	default:
		return false
	}
}

// SplitList turns comma separated input typed into a single text field into
// list items. UI adapters use it at the input boundary.
func SplitList(input string) []string {
	return cleanItems(strings.Split(input, ","))
}
