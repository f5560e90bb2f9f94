package agent

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/p-n-ai/pai-ionian/internal/progress"
)

// ErrConversationNotFound is returned when a conversation id is unknown or expired.
var ErrConversationNotFound = errors.New("conversation not found")

// Phase is where a conversation sits within the current step.
type Phase string

const (
	// PhaseReading means the current step takes no answer; /next moves on.
	PhaseReading Phase = "reading"
	// PhaseAwaiting means an evaluable step is shown and unanswered.
	PhaseAwaiting Phase = "awaiting_answer"
	// PhaseAnswered means a verdict was shown; /next moves on.
	PhaseAnswered Phase = "answered"
	// PhaseComplete means the lesson summary was shown.
	PhaseComplete Phase = "complete"
)

// Conversation is one user's live quiz session.
type Conversation struct {
	ID       string            `json:"id"`
	UserID   string            `json:"user_id"`
	Channel  string            `json:"channel,omitempty"`
	Progress progress.Snapshot `json:"progress"`
	Phase    Phase             `json:"phase"`
	// Assembled is the sentence built so far on a sentence step.
	Assembled []string `json:"assembled,omitempty"`
	// PoolOrder is the order in which the remaining words were last shown.
	PoolOrder []string   `json:"pool_order,omitempty"`
	ShowHint  bool       `json:"show_hint,omitempty"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

func (c Conversation) clone() Conversation {
	c.Assembled = slices.Clone(c.Assembled)
	c.PoolOrder = slices.Clone(c.PoolOrder)
	if c.EndedAt != nil {
		ended := *c.EndedAt
		c.EndedAt = &ended
	}
	return c
}

// activeID keys the per-user active index. User ids are only unique within
// a channel, so a websocket client cannot reach a Telegram chat's session.
func activeID(channel, userID string) string { return channel + ":" + userID }

// ConversationStore holds live quiz sessions.
type ConversationStore interface {
	CreateConversation(conv Conversation) (string, error)
	GetConversation(id string) (*Conversation, error)
	// GetActiveConversation returns the user's open conversation on a channel.
	// found is false when there is none; err reports a store failure.
	GetActiveConversation(channel, userID string) (conv *Conversation, found bool, err error)
	SaveConversation(conv Conversation) error
	EndConversation(id string) error
}

// MemoryStore is an in-memory implementation of ConversationStore.
type MemoryStore struct {
	conversations map[string]Conversation
	active        map[string]string
	mu            sync.RWMutex
}

// NewMemoryStore creates a new in-memory conversation store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string]Conversation),
		active:        make(map[string]string),
	}
}

func (s *MemoryStore) CreateConversation(conv Conversation) (string, error) {
	if conv.UserID == "" {
		return "", fmt.Errorf("user_id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conv.ID = uuid.NewString()
	if conv.StartedAt.IsZero() {
		conv.StartedAt = time.Now()
	}
	conv.EndedAt = nil
	s.conversations[conv.ID] = conv.clone()
	s.active[activeID(conv.Channel, conv.UserID)] = conv.ID
	return conv.ID, nil
}

func (s *MemoryStore) GetConversation(id string) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrConversationNotFound, id)
	}
	out := conv.clone()
	return &out, nil
}

func (s *MemoryStore) GetActiveConversation(channel, userID string) (*Conversation, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.active[activeID(channel, userID)]
	if !ok {
		return nil, false, nil
	}
	conv, ok := s.conversations[id]
	if !ok || conv.EndedAt != nil {
		return nil, false, nil
	}
	out := conv.clone()
	return &out, true, nil
}

func (s *MemoryStore) SaveConversation(conv Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[conv.ID]; !ok {
		return fmt.Errorf("%w: %s", ErrConversationNotFound, conv.ID)
	}
	s.conversations[conv.ID] = conv.clone()
	return nil
}

func (s *MemoryStore) EndConversation(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrConversationNotFound, id)
	}
	now := time.Now()
	conv.EndedAt = &now
	s.conversations[id] = conv
	if key := activeID(conv.Channel, conv.UserID); s.active[key] == id {
		delete(s.active, key)
	}
	return nil
}
