// Package dialogue walks a fixed list of questions one turn at a time and
// collects the replies into a Record.
package dialogue

import (
	"errors"
	"slices"
	"time"

	"github.com/tmc/langchaingo/llms"
)

// Phase is the coarse state of a session.
type Phase string

const (
	PhaseCollecting Phase = "collecting"
	PhaseGenerating Phase = "generating"
	PhaseDone       Phase = "done"
)

var (
	// ErrEmptyAnswer is returned when a blank answer is submitted.
	ErrEmptyAnswer = errors.New("answer is empty")
	// ErrNotCollecting is returned when answers arrive after the last question.
	ErrNotCollecting = errors.New("session is not collecting answers")
	// ErrNotGenerating is returned when a result is recorded outside generation.
	ErrNotGenerating = errors.New("session is not generating")
)

// Turn is one entry of the chat log.
type Turn struct {
	Role      llms.ChatMessageType `json:"role"`
	Content   string               `json:"content"`
	CreatedAt time.Time            `json:"created_at"`
}

// Session is the dialogue state of one user: the cursor into the variant's
// questions, the record being built and the chat log. It is not safe for
// concurrent use.
type Session struct {
	variant *Variant
	cursor  int
	record  *Record
	log     []Turn
	phase   Phase
	now     func() time.Time
}

// NewSession starts a session at the first question.
func NewSession(v *Variant) *Session {
	return &Session{
		variant: v,
		record:  NewRecord(),
		phase:   PhaseCollecting,
		now:     time.Now,
	}
}

func (s *Session) Variant() *Variant { return s.variant }
func (s *Session) Cursor() int       { return s.cursor }
func (s *Session) Phase() Phase      { return s.phase }

// Record returns the answers collected so far. Callers must not modify it.
func (s *Session) Record() *Record { return s.record }

// Log returns a copy of the chat log.
func (s *Session) Log() []Turn { return slices.Clone(s.log) }

// CurrentQuestion returns the question awaiting an answer.
func (s *Session) CurrentQuestion() (Question, bool) {
	if s.phase != PhaseCollecting || s.cursor >= len(s.variant.Questions) {
		return Question{}, false
	}
	return s.variant.Questions[s.cursor], true
}

// Advance stores answer under the current question and moves to the next
// one. It reports true exactly once, when the last question is answered and
// the session enters generation. Empty answers are rejected without touching
// any state.
func (s *Session) Advance(answer Answer) (bool, error) {
	if s.phase != PhaseCollecting {
		return false, ErrNotCollecting
	}
	if answer.IsEmpty() {
		return false, ErrEmptyAnswer
	}

	q := s.variant.Questions[s.cursor]
	switch q.Kind {
	case KindList:
		s.record.setList(q.Key, answer.items())
	case KindFlag:
		value := ParseFlag(answer.text())
		label := s.variant.NoLabel
		if value {
			label = s.variant.YesLabel
		}
		s.record.setFlag(q.Key, value, label)
	default:
		s.record.setText(q.Key, answer.text())
	}

	s.append(llms.ChatMessageTypeHuman, s.record.Value(q.Key))
	s.cursor++

	if s.cursor == len(s.variant.Questions) {
		s.phase = PhaseGenerating
		return true, nil
	}
	return false, nil
}

// Finish records the generated text and closes the session.
func (s *Session) Finish(text string) error {
	if s.phase != PhaseGenerating {
		return ErrNotGenerating
	}
	s.append(llms.ChatMessageTypeAI, text)
	s.phase = PhaseDone
	return nil
}

// Reset starts over from the first question with an empty record and log.
// The previous record is left untouched so an in-flight generation can still
// read it.
func (s *Session) Reset() {
	s.cursor = 0
	s.record = NewRecord()
	s.log = nil
	s.phase = PhaseCollecting
}

func (s *Session) append(role llms.ChatMessageType, content string) {
	s.log = append(s.log, Turn{Role: role, Content: content, CreatedAt: s.now()})
}
