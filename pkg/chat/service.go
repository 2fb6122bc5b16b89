// Package chat keeps the in-memory dialogue sessions and drives them through
// the question sequence and the relay.
package chat

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mikeboe/search-helper/pkg/dialogue"
	"github.com/mikeboe/search-helper/pkg/research"
)

var (
	// ErrSessionNotFound is returned for unknown session ids.
	ErrSessionNotFound = errors.New("session not found")
	// ErrMissingAnswer is returned by Recommend when a question has no answer.
	ErrMissingAnswer = errors.New("missing answer")
)

// Event types sent to clients.
const (
	EventQuestion = "question"
	EventContent  = "content"
	EventWarning  = "warning"
	EventDone     = "done"
	EventError    = "error"
)

// StreamEvent represents a single event in the chat stream
type StreamEvent struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Relay produces the final recommendation for a completed record.
type Relay interface {
	Run(ctx context.Context, v *dialogue.Variant, rec *dialogue.Record, onUpdate func(research.Update)) string
}

type Conversation struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time

	session *dialogue.Session
	// generation changes on every reset so a relay started before the reset
	// does not finish the new dialogue.
	generation int
}

// SessionView is the JSON form of a conversation.
type SessionView struct {
	ID        uuid.UUID          `json:"id"`
	Variant   string             `json:"variant"`
	Title     string             `json:"title"`
	Phase     dialogue.Phase     `json:"phase"`
	Cursor    int                `json:"cursor"`
	Total     int                `json:"total"`
	Question  *dialogue.Question `json:"question,omitempty"`
	Record    *dialogue.Record   `json:"record"`
	Log       []dialogue.Turn    `json:"log"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

func (c *Conversation) view() SessionView {
	s := c.session
	v := SessionView{
		ID:        c.ID,
		Variant:   s.Variant().Name,
		Title:     s.Variant().Title,
		Phase:     s.Phase(),
		Cursor:    s.Cursor(),
		Total:     len(s.Variant().Questions),
		Record:    s.Record().Clone(),
		Log:       s.Log(),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	if q, ok := s.CurrentQuestion(); ok {
		v.Question = &q
	}
	return v
}

// Service owns the sessions of one process.
type Service struct {
	Catalog *dialogue.Catalog
	Relay   Relay
	Logger  *slog.Logger

	mu       sync.Mutex
	sessions map[uuid.UUID]*Conversation
}

func NewService(catalog *dialogue.Catalog, relay Relay) *Service {
	return &Service{
		Catalog:  catalog,
		Relay:    relay,
		Logger:   slog.Default(),
		sessions: make(map[uuid.UUID]*Conversation),
	}
}

// ListVariants returns the available variants sorted by name.
func (s *Service) ListVariants() []*dialogue.Variant {
	return s.Catalog.List()
}

// CreateSession starts a dialogue for the named variant.
func (s *Service) CreateSession(variant string) (SessionView, error) {
	v, err := s.Catalog.Get(variant)
	if err != nil {
		return SessionView{}, err
	}

	now := time.Now()
	conv := &Conversation{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
		session:   dialogue.NewSession(v),
	}

	s.mu.Lock()
	s.sessions[conv.ID] = conv
	s.mu.Unlock()

	s.Logger.Info("Session created", "session_id", conv.ID, "variant", v.Name)
	return conv.view(), nil
}

func (s *Service) GetSession(id uuid.UUID) (SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.sessions[id]
	if !ok {
		return SessionView{}, ErrSessionNotFound
	}
	return conv.view(), nil
}

func (s *Service) DeleteSession(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, id)
	s.Logger.Info("Session deleted", "session_id", id)
	return nil
}

// Reset returns the session to its first question from any phase.
func (s *Service) Reset(id uuid.UUID) (SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.sessions[id]
	if !ok {
		return SessionView{}, ErrSessionNotFound
	}
	conv.session.Reset()
	conv.generation++
	conv.UpdatedAt = time.Now()

	s.Logger.Info("Session reset", "session_id", id)
	return conv.view(), nil
}

// SendMessage submits the answer to the current question. Validation errors
// are returned directly. Otherwise the iterator yields the next question, or,
// when this was the last answer, the streamed recommendation followed by a
// done event carrying the final text.
func (s *Service) SendMessage(ctx context.Context, id uuid.UUID, answer dialogue.Answer) (iter.Seq2[StreamEvent, error], error) {
	s.mu.Lock()
	conv, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrSessionNotFound
	}
	completed, err := conv.session.Advance(answer)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	conv.UpdatedAt = time.Now()
	variant := conv.session.Variant()
	record := conv.session.Record()
	generation := conv.generation
	next, hasNext := conv.session.CurrentQuestion()
	s.mu.Unlock()

	if !completed {
		return func(yield func(StreamEvent, error) bool) {
			if hasNext {
				yield(StreamEvent{Type: EventQuestion, Payload: next}, nil)
			}
		}, nil
	}

	return func(yield func(StreamEvent, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		s.Logger.Info("Starting relay", "session_id", id, "variant", variant.Name)

		stopped := false
		send := func(ev StreamEvent) {
			if stopped {
				return
			}
			if !yield(ev, nil) {
				stopped = true
				cancel()
			}
		}

		text := s.Relay.Run(ctx, variant, record, func(u research.Update) {
			switch {
			case u.Warning != "":
				send(StreamEvent{Type: EventWarning, Payload: u.Warning})
			case u.Done:
			case u.Delta != "":
				send(StreamEvent{Type: EventContent, Payload: u.Delta})
			}
		})

		s.finish(id, generation, text)
		send(StreamEvent{Type: EventDone, Payload: text})
	}, nil
}

func (s *Service) finish(id uuid.UUID, generation int, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.sessions[id]
	if !ok || conv.generation != generation {
		s.Logger.Info("Session changed during generation, discarding result", "session_id", id)
		return
	}
	if err := conv.session.Finish(text); err != nil {
		s.Logger.Error("Failed to finish session", "session_id", id, "error", err)
		return
	}
	conv.UpdatedAt = time.Now()
	s.Logger.Info("Relay completed", "session_id", id, "length", len(text))
}

// Recommend runs a whole dialogue in one call: every question of the variant
// is answered from answers, then the relay runs. The session is not stored.
func (s *Service) Recommend(ctx context.Context, variant string, answers map[string]dialogue.Answer) (string, error) {
	v, err := s.Catalog.Get(variant)
	if err != nil {
		return "", err
	}

	session := dialogue.NewSession(v)
	for _, q := range v.Questions {
		if _, err := session.Advance(answers[q.Key]); err != nil {
			if errors.Is(err, dialogue.ErrEmptyAnswer) {
				return "", fmt.Errorf("%w: %s", ErrMissingAnswer, q.Key)
			}
			return "", err
		}
	}

	text := s.Relay.Run(ctx, v, session.Record(), nil)
	if err := session.Finish(text); err != nil {
		return "", err
	}
	return text, nil
}
