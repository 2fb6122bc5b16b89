package dialogue

import (
	"errors"
	"fmt"
	"regexp"
)

// Kind selects how an answer is normalised before it is stored.
type Kind string

const (
	KindText Kind = "text"
	KindList Kind = "list"
	KindFlag Kind = "flag"
)

// Question is one step of a variant's dialogue.
type Question struct {
	Key     string   `toml:"key" json:"key"`
	Prompt  string   `toml:"prompt" json:"prompt"`
	Kind    Kind     `toml:"kind" json:"kind"`
	Options []string `toml:"options" json:"options,omitempty"`
}

// Variant is the configuration of one assistant domain: its questions and
// every template and label used to turn the answers into a recommendation.
type Variant struct {
	Name        string     `toml:"name" json:"name"`
	Title       string     `toml:"title" json:"title"`
	Description string     `toml:"description" json:"description"`
	Language    string     `toml:"language" json:"language"`
	Questions   []Question `toml:"questions" json:"questions"`

	// QueryTemplate renders the single search query from the record.
	QueryTemplate string `toml:"query_template" json:"-"`
	// FlagKey names the flag question whose "yes" appends FlagSuffix to the query.
	FlagKey    string `toml:"flag_key" json:"-"`
	FlagSuffix string `toml:"flag_suffix" json:"-"`

	SystemPrompt  string `toml:"system_prompt" json:"-"`
	UserTemplate  string `toml:"user_template" json:"-"`
	ContextHeader string `toml:"context_header" json:"-"`

	YesLabel    string `toml:"yes_label" json:"-"`
	NoLabel     string `toml:"no_label" json:"-"`
	Fallback    string `toml:"fallback" json:"-"`
	ErrorPrefix string `toml:"error_prefix" json:"-"`
	Footer      string `toml:"footer" json:"-"`
	ResetLabel  string `toml:"reset_label" json:"reset_label"`
	DateLayout  string `toml:"date_layout" json:"-"`

	MaxTokens   int `toml:"max_tokens" json:"-"`
	ResultLimit int `toml:"result_limit" json:"-"`
}

// Defaults applied by Validate to fields a variant leaves empty.
const (
	DefaultMaxTokens     = 1024
	DefaultResultLimit   = 5
	DefaultContextHeader = "Search results:"
	DefaultFallback      = "Sorry, I could not find anything matching your criteria. Please broaden your search or try again later."
	DefaultErrorPrefix   = "An error occurred while processing your request"
	DefaultDateLayout    = "January 2, 2006"
	DefaultResetLabel    = "Start a new search"
	maxResultLimit       = 10
)

var keyPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

var errInvalidVariant = errors.New("invalid variant")

// Validate fills defaults and checks the variant is usable.
func (v *Variant) Validate() error {
	if v.Name == "" {
		return fmt.Errorf("%w: name is required", errInvalidVariant)
	}
	if len(v.Questions) == 0 {
		return fmt.Errorf("%w %q: at least one question is required", errInvalidVariant, v.Name)
	}

	seen := make(map[string]bool, len(v.Questions))
	for i := range v.Questions {
		q := &v.Questions[i]
		if !keyPattern.MatchString(q.Key) {
			return fmt.Errorf("%w %q: question %d has invalid key %q", errInvalidVariant, v.Name, i, q.Key)
		}
		if seen[q.Key] {
			return fmt.Errorf("%w %q: duplicate question key %q", errInvalidVariant, v.Name, q.Key)
		}
		seen[q.Key] = true
		if q.Prompt == "" {
			return fmt.Errorf("%w %q: question %q has no prompt", errInvalidVariant, v.Name, q.Key)
		}
		switch q.Kind {
		case "":
			q.Kind = KindText
		case KindText, KindList, KindFlag:
		default:
			return fmt.Errorf("%w %q: question %q has unknown kind %q", errInvalidVariant, v.Name, q.Key, q.Kind)
		}
	}

	if v.FlagKey != "" {
		q, ok := v.Question(v.FlagKey)
		if !ok || q.Kind != KindFlag {
			return fmt.Errorf("%w %q: flag_key %q must name a flag question", errInvalidVariant, v.Name, v.FlagKey)
		}
	}

	switch {
	case v.QueryTemplate == "":
		return fmt.Errorf("%w %q: query_template is required", errInvalidVariant, v.Name)
	case v.SystemPrompt == "":
		return fmt.Errorf("%w %q: system_prompt is required", errInvalidVariant, v.Name)
	case v.UserTemplate == "":
		return fmt.Errorf("%w %q: user_template is required", errInvalidVariant, v.Name)
	}

	if v.MaxTokens == 0 {
		v.MaxTokens = DefaultMaxTokens
	}
	if v.MaxTokens < 0 {
		return fmt.Errorf("%w %q: max_tokens must be positive", errInvalidVariant, v.Name)
	}
	if v.ResultLimit == 0 {
		v.ResultLimit = DefaultResultLimit
	}
	if v.ResultLimit < 0 || v.ResultLimit > maxResultLimit {
		return fmt.Errorf("%w %q: result_limit must be between 1 and %d", errInvalidVariant, v.Name, maxResultLimit)
	}

	setDefault(&v.Title, v.Name)
	setDefault(&v.Language, "English")
	setDefault(&v.ContextHeader, DefaultContextHeader)
	setDefault(&v.YesLabel, "Yes")
	setDefault(&v.NoLabel, "No")
	setDefault(&v.Fallback, DefaultFallback)
	setDefault(&v.ErrorPrefix, DefaultErrorPrefix)
	setDefault(&v.DateLayout, DefaultDateLayout)
	setDefault(&v.ResetLabel, DefaultResetLabel)
	return nil
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}

// Question returns the question stored under key.
func (v *Variant) Question(key string) (Question, bool) {
	for _, q := range v.Questions {
		if q.Key == key {
			return q, true
		}
	}
	return Question{}, false
}
