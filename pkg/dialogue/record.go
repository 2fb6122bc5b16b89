package dialogue

import (
	"encoding/json"
	"maps"
	"slices"
	"strings"
)

const (
	// ListSeparator joins list answers for display and storage.
	ListSeparator = ", "
	// QuerySeparator joins list answers as alternative search terms.
	QuerySeparator = " OR "
	// QuerySuffix is appended to a list key to reach its query form in templates.
	QuerySuffix = "_or"
)

// Record holds the answers collected by one session. Every key has a display
// value; list questions also keep their items and flag questions their
// boolean, so neither has to be recovered from the display string.
type Record struct {
	values map[string]string
	lists  map[string][]string
	flags  map[string]bool
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{
		values: make(map[string]string),
		lists:  make(map[string][]string),
		flags:  make(map[string]bool),
	}
}

// Len returns the number of answered keys.
func (r *Record) Len() int {
	return len(r.values)
}

// Has reports whether key has been answered.
func (r *Record) Has(key string) bool {
	_, ok := r.values[key]
	return ok
}

// Value returns the display value stored under key.
func (r *Record) Value(key string) string {
	return r.values[key]
}

// List returns the items of a list answer.
func (r *Record) List(key string) []string {
	return slices.Clone(r.lists[key])
}

// Flag returns the boolean of a flag answer.
func (r *Record) Flag(key string) bool {
	return r.flags[key]
}

func (r *Record) setText(key, value string) {
	r.values[key] = value
}

func (r *Record) setList(key string, items []string) {
	r.lists[key] = slices.Clone(items)
	r.values[key] = strings.Join(items, ListSeparator)
}

func (r *Record) setFlag(key string, value bool, label string) {
	r.flags[key] = value
	r.values[key] = label
}

// Vars exposes the record to prompt templates. Every key maps to its display
// value and additionally to "<key>_or", which for list answers joins the
// items with " OR ".
func (r *Record) Vars() map[string]any {
	vars := make(map[string]any, len(r.values)*2)
	for key, value := range r.values {
		vars[key] = value
		if items, ok := r.lists[key]; ok {
			vars[key+QuerySuffix] = strings.Join(items, QuerySeparator)
		} else {
			vars[key+QuerySuffix] = value
		}
	}
	return vars
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	c := NewRecord()
	maps.Copy(c.values, r.values)
	maps.Copy(c.flags, r.flags)
	for key, items := range r.lists {
		c.lists[key] = slices.Clone(items)
	}
	return c
}

// MarshalJSON renders the record for API responses.
func (r *Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Values map[string]string   `json:"values"`
		Lists  map[string][]string `json:"lists,omitempty"`
		Flags  map[string]bool     `json:"flags,omitempty"`
	}{r.values, r.lists, r.flags})
}
