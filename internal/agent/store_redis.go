package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/p-n-ai/pai-ionian/internal/platform/cache"
)

const (
	defaultSessionTTL = 2 * time.Hour
	cacheTimeout      = 3 * time.Second
)

// RedisStore keeps live conversations in Redis. Every write refreshes the
// expiry, so an idle session disappears after ttl.
type RedisStore struct {
	cache *cache.Cache
	ttl   time.Duration
}

// NewRedisStore creates a Redis-backed conversation store.
func NewRedisStore(c *cache.Cache, ttl time.Duration) (*RedisStore, error) {
	if c == nil || c.Client == nil {
		return nil, fmt.Errorf("cache is nil")
	}
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &RedisStore{cache: c, ttl: ttl}, nil
}

func convKey(id string) string       { return cache.Key("conv", id) }
func activeKey(channel, userID string) string {
	return cache.Key("active", activeID(channel, userID))
}

func (s *RedisStore) CreateConversation(conv Conversation) (string, error) {
	if conv.UserID == "" {
		return "", fmt.Errorf("user_id is required")
	}
	ctx, cancel := context.WithTimeout(context.Background(), cacheTimeout)
	defer cancel()

	conv.ID = uuid.NewString()
	if conv.StartedAt.IsZero() {
		conv.StartedAt = time.Now()
	}
	conv.EndedAt = nil

	if err := s.cache.SetJSON(ctx, convKey(conv.ID), conv, s.ttl); err != nil {
		return "", fmt.Errorf("create conversation: %w", err)
	}
	if err := s.cache.SetString(ctx, activeKey(conv.Channel, conv.UserID), conv.ID, s.ttl); err != nil {
		return "", fmt.Errorf("mark conversation active: %w", err)
	}
	return conv.ID, nil
}

func (s *RedisStore) GetConversation(id string) (*Conversation, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cacheTimeout)
	defer cancel()
	return s.get(ctx, id)
}

func (s *RedisStore) get(ctx context.Context, id string) (*Conversation, error) {
	var conv Conversation
	err := s.cache.GetJSON(ctx, convKey(id), &conv)
	if errors.Is(err, cache.ErrMiss) {
		return nil, fmt.Errorf("%w: %s", ErrConversationNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (s *RedisStore) GetActiveConversation(channel, userID string) (*Conversation, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cacheTimeout)
	defer cancel()

	id, err := s.cache.GetString(ctx, activeKey(channel, userID))
	if errors.Is(err, cache.ErrMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get active conversation: %w", err)
	}
	conv, err := s.get(ctx, id)
	if errors.Is(err, ErrConversationNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get active conversation: %w", err)
	}
	if conv.EndedAt != nil {
		return nil, false, nil
	}
	return conv, true, nil
}

func (s *RedisStore) SaveConversation(conv Conversation) error {
	ctx, cancel := context.WithTimeout(context.Background(), cacheTimeout)
	defer cancel()

	if _, err := s.get(ctx, conv.ID); err != nil {
		return err
	}
	if err := s.cache.SetJSON(ctx, convKey(conv.ID), conv, s.ttl); err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}
	if conv.EndedAt == nil {
		return s.cache.Touch(ctx, s.ttl, activeKey(conv.Channel, conv.UserID))
	}
	return nil
}

func (s *RedisStore) EndConversation(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), cacheTimeout)
	defer cancel()

	conv, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	now := time.Now()
	conv.EndedAt = &now
	if err := s.cache.SetJSON(ctx, convKey(id), conv, s.ttl); err != nil {
		return fmt.Errorf("end conversation: %w", err)
	}

	key := activeKey(conv.Channel, conv.UserID)
	current, err := s.cache.GetString(ctx, key)
	if err == nil && current == id {
		return s.cache.Delete(ctx, key)
	}
	return nil
}
