package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// Quiz event types.
const (
	EventQuizStarted     = "quiz_started"
	EventAnswerEvaluated = "answer_evaluated"
	EventLessonRestarted = "lesson_restarted"
	EventLessonCompleted = "lesson_completed"
)

// Event is an analytics record of something that happened in a quiz.
type Event struct {
	ConversationID string
	UserID         string
	EventType      string
	Data           map[string]any
	CreatedAt      time.Time
}

// EventLogger defines event logging behavior.
type EventLogger interface {
	LogEvent(event Event) error
}

// EventCounter is implemented by loggers that can total a conversation's
// events by type.
type EventCounter interface {
	CountByType(ctx context.Context, conversationID string) (map[string]int, error)
}

// NopEventLogger ignores all events.
type NopEventLogger struct{}

func (NopEventLogger) LogEvent(Event) error {
	return nil
}

// MemoryEventLogger stores events in memory for tests.
type MemoryEventLogger struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryEventLogger() *MemoryEventLogger {
	return &MemoryEventLogger{
		events: []Event{},
	}
}

func (l *MemoryEventLogger) LogEvent(event Event) error {
	if event.EventType == "" {
		return fmt.Errorf("event_type is required")
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	l.mu.Lock()
	l.events = append(l.events, event)
	l.mu.Unlock()

	return nil
}

func (l *MemoryEventLogger) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event{}, l.events...)
}

// OfType returns the recorded events with the given type.
func (l *MemoryEventLogger) OfType(eventType string) []Event {
	var out []Event
	for _, e := range l.Events() {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

// CountByType totals the recorded events of one conversation.
func (l *MemoryEventLogger) CountByType(_ context.Context, conversationID string) (map[string]int, error) {
	counts := map[string]int{}
	for _, e := range l.Events() {
		if e.ConversationID == conversationID {
			counts[e.EventType]++
		}
	}
	return counts, nil
}

// PostgresEventLogger inserts events into the quiz_events table.
type PostgresEventLogger struct {
	pool *pgxpool.Pool
}

func NewPostgresEventLogger(pool *pgxpool.Pool) *PostgresEventLogger {
	return &PostgresEventLogger{pool: pool}
}

func (l *PostgresEventLogger) LogEvent(event Event) error {
	if l == nil || l.pool == nil {
		return fmt.Errorf("event logger pool is nil")
	}
	if event.EventType == "" {
		return fmt.Errorf("event_type is required")
	}
	if event.ConversationID == "" {
		return fmt.Errorf("conversation_id is required")
	}

	payload := event.Data
	if payload == nil {
		payload = map[string]any{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	if _, err := l.pool.Exec(ctx,
		`INSERT INTO quiz_events (conversation_id, user_id, event_type, data, created_at)
		 VALUES ($1, $2, $3, $4::jsonb, $5)`,
		event.ConversationID,
		event.UserID,
		event.EventType,
		string(data),
		createdAt,
	); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	slog.Debug("event logged",
		"type", event.EventType,
		"conversation_id", event.ConversationID,
		"user_id", event.UserID,
	)
	return nil
}

// CountByType returns how many events of each type a conversation produced.
func (l *PostgresEventLogger) CountByType(ctx context.Context, conversationID string) (map[string]int, error) {
	if l == nil || l.pool == nil {
		return nil, fmt.Errorf("event logger pool is nil")
	}
	rows, err := l.pool.Query(ctx,
		`SELECT event_type, count(*) FROM quiz_events
		 WHERE conversation_id = $1
		 GROUP BY event_type`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var (
			eventType string
			n         int
		)
		if err := rows.Scan(&eventType, &n); err != nil {
			return nil, fmt.Errorf("scan event count: %w", err)
		}
		counts[eventType] = n
	}
	return counts, rows.Err()
}
