package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/p-n-ai/pai-ionian/internal/chat"
	"github.com/p-n-ai/pai-ionian/internal/lesson"
	"github.com/p-n-ai/pai-ionian/internal/progress"
)

const fallbackReply = "Sorry, something went wrong on our side. Please try again in a moment."

// EngineConfig holds dependencies for the quiz engine.
type EngineConfig struct {
	Catalog     *lesson.Catalog
	Store       ConversationStore // default: in-memory
	Events      EventLogger       // default: discard
	LessonIndex int
	// Rand shuffles the word pool. Nil uses the global source.
	Rand *rand.Rand
}

// Engine runs quiz sessions over chat. Messages from the same user are
// handled one at a time.
type Engine struct {
	catalog     *lesson.Catalog
	store       ConversationStore
	events      EventLogger
	lessonIndex int

	rngMu sync.Mutex
	rng   *rand.Rand

	locks userLocks
}

// NewEngine creates a new quiz engine.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Catalog == nil {
		return nil, fmt.Errorf("catalog is nil")
	}
	if _, err := cfg.Catalog.LessonAt(cfg.LessonIndex); err != nil {
		return nil, fmt.Errorf("lesson index: %w", err)
	}
	store := cfg.Store
	if store == nil {
		store = NewMemoryStore()
	}
	events := cfg.Events
	if events == nil {
		events = NopEventLogger{}
	}
	return &Engine{
		catalog:     cfg.Catalog,
		store:       store,
		events:      events,
		lessonIndex: cfg.LessonIndex,
		rng:         cfg.Rand,
	}, nil
}

// ProcessMessage handles an incoming message and returns the reply text.
func (e *Engine) ProcessMessage(_ context.Context, msg chat.InboundMessage) (string, error) {
	slog.Info("processing message",
		"channel", msg.Channel,
		"user_id", msg.UserID,
		"text_len", len(msg.Text),
	)

	unlock := e.locks.lock(activeID(msg.Channel, msg.UserID))
	defer unlock()

	text := strings.TrimSpace(msg.Text)
	if strings.HasPrefix(text, "/") {
		return e.handleCommand(msg, text)
	}
	return e.withSession(msg, true, func(conv *Conversation, sess *progress.Session) string {
		return e.handleAnswer(conv, sess, text)
	})
}

func (e *Engine) handleCommand(msg chat.InboundMessage, text string) (string, error) {
	cmd := strings.Fields(text)[0]
	// Telegram appends the bot name in groups: /next@IonianBot.
	cmd, _, _ = strings.Cut(cmd, "@")

	switch cmd {
	case "/start":
		return e.start(msg)
	case "/help":
		return helpText, nil
	case "/next":
		return e.withSession(msg, false, e.handleNext)
	case "/restart":
		return e.withSession(msg, false, e.handleRestart)
	case "/hint":
		return e.withSession(msg, true, e.handleHint)
	case "/dismiss":
		return e.withSession(msg, true, e.handleDismiss)
	case "/undo", "/clear", "/check":
		return e.withSession(msg, true, func(conv *Conversation, sess *progress.Session) string {
			return e.handleSentenceCommand(conv, sess, cmd)
		})
	default:
		return fmt.Sprintf("Unknown command: %s\nSend /help to see the commands.", cmd), nil
	}
}

// withSession loads the user's live session, runs fn and saves the result.
// With renderCycle set, an exhausted session is reset and the restart notice
// is shown instead of running fn.
func (e *Engine) withSession(msg chat.InboundMessage, renderCycle bool, fn func(*Conversation, *progress.Session) string) (string, error) {
	conv, sess, err := e.active(msg.Channel, msg.UserID)
	if err != nil {
		slog.Error("failed to load conversation", "user_id", msg.UserID, "error", err)
		return fallbackReply, nil
	}
	if conv == nil {
		return e.start(msg)
	}

	var reply string
	if renderCycle && sess.State() == progress.Exhausted {
		reply = e.present(conv, sess, sess.Frame())
	} else {
		reply = fn(conv, sess)
	}

	conv.Progress = sess.Snapshot()
	if err := e.store.SaveConversation(*conv); err != nil {
		slog.Error("failed to save conversation", "conversation_id", conv.ID, "error", err)
		return fallbackReply, nil
	}
	return reply, nil
}

// active returns the user's live conversation and session, or nil when there
// is none. A conversation that no longer fits the catalog is ended.
func (e *Engine) active(channel, userID string) (*Conversation, *progress.Session, error) {
	conv, found, err := e.store.GetActiveConversation(channel, userID)
	if err != nil || !found {
		return nil, nil, err
	}
	sess, err := progress.Restore(e.catalog, conv.Progress)
	if err != nil {
		slog.Warn("discarding stale conversation", "conversation_id", conv.ID, "error", err)
		if err := e.store.EndConversation(conv.ID); err != nil {
			return nil, nil, err
		}
		return nil, nil, nil
	}
	return conv, sess, nil
}

func (e *Engine) start(msg chat.InboundMessage) (string, error) {
	prev, found, err := e.store.GetActiveConversation(msg.Channel, msg.UserID)
	if err != nil {
		slog.Error("failed to load conversation", "user_id", msg.UserID, "error", err)
		return fallbackReply, nil
	}
	if found {
		if err := e.store.EndConversation(prev.ID); err != nil {
			slog.Error("failed to end conversation", "error", err)
		}
	}

	sess, err := progress.NewSession(e.catalog, e.lessonIndex)
	if err != nil {
		slog.Error("failed to create session", "error", err)
		return fallbackReply, nil
	}
	conv := Conversation{
		UserID:   msg.UserID,
		Channel:  msg.Channel,
		Progress: sess.Snapshot(),
	}
	id, err := e.store.CreateConversation(conv)
	if err != nil {
		slog.Error("failed to create conversation", "error", err)
		return fallbackReply, nil
	}
	conv.ID = id

	e.logEvent(&conv, EventQuizStarted, map[string]any{
		"lesson":       sess.Lesson().Name,
		"lesson_index": sess.LessonIndex(),
	})

	body := e.present(&conv, sess, sess.Frame())
	conv.Progress = sess.Snapshot()
	if err := e.store.SaveConversation(conv); err != nil {
		slog.Error("failed to save conversation", "conversation_id", conv.ID, "error", err)
		return fallbackReply, nil
	}
	return greeting(msg) + "\n\n" + body, nil
}

func greeting(msg chat.InboundMessage) string {
	name := msg.FirstName
	if name == "" {
		name = msg.Username
	}
	if name == "" {
		name = "there"
	}
	return fmt.Sprintf("Hi %s! Welcome to the Ionian review.", name)
}

// present shows a frame and resets the per-step state to match it.
func (e *Engine) present(conv *Conversation, sess *progress.Session, f progress.Frame) string {
	wasComplete := conv.Phase == PhaseComplete
	conv.ShowHint = false
	conv.Assembled = nil
	conv.PoolOrder = nil

	switch {
	case f.Complete:
		conv.Phase = PhaseComplete
		if !wasComplete {
			e.logEvent(conv, EventLessonCompleted, e.completionData(conv, sess.Lesson().Name, f.Score))
		}
	case lesson.Evaluable(f.Step):
		conv.Phase = PhaseAwaiting
		if sb, ok := f.Step.(lesson.SentenceBuilder); ok {
			conv.PoolOrder = e.shuffle(progress.NewWordPool(sb.Options))
		}
	default:
		conv.Phase = PhaseReading
	}

	if f.Restarted {
		e.logEvent(conv, EventLessonRestarted, map[string]any{"reason": "exhausted"})
	}
	return renderFrame(sess.Lesson().Name, f, conv, "")
}

// completionData adds the conversation's answer and restart totals when the
// event sink can count them.
func (e *Engine) completionData(conv *Conversation, lessonName string, score int) map[string]any {
	data := map[string]any{"lesson": lessonName, "score": score}
	counter, ok := e.events.(EventCounter)
	if !ok {
		return data
	}
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()
	counts, err := counter.CountByType(ctx, conv.ID)
	if err != nil {
		slog.Warn("failed to count events", "conversation_id", conv.ID, "error", err)
		return data
	}
	data["answers"] = counts[EventAnswerEvaluated]
	data["restarts"] = counts[EventLessonRestarted]
	return data
}

func (e *Engine) handleNext(conv *Conversation, sess *progress.Session) string {
	switch conv.Phase {
	case PhaseAwaiting:
		return "Answer the question first. Send /hint if you are stuck."
	case PhaseComplete:
		return renderComplete(sess.Lesson().Name, sess.Score())
	}

	exhausted := sess.State() == progress.Exhausted
	f := sess.Next()
	if exhausted {
		e.logEvent(conv, EventLessonRestarted, map[string]any{"reason": "exhausted"})
	}
	return e.present(conv, sess, f)
}

func (e *Engine) handleRestart(conv *Conversation, sess *progress.Session) string {
	sess.Reset()
	e.logEvent(conv, EventLessonRestarted, map[string]any{"reason": "requested"})
	conv.Phase = PhaseReading
	return e.present(conv, sess, sess.Frame())
}

func (e *Engine) handleHint(conv *Conversation, sess *progress.Session) string {
	if conv.Phase != PhaseAwaiting {
		return "Hints are available while a question is open."
	}
	hint, ok := lesson.Hint(sess.CurrentStep(), e.catalog.Reference())
	if !ok {
		return "There is no hint for this step."
	}
	conv.ShowHint = true
	return "Hint: " + hint + "\n\nSend /dismiss to hide it."
}

func (e *Engine) handleDismiss(conv *Conversation, sess *progress.Session) string {
	if conv.Phase != PhaseAwaiting {
		return "There is no hint to hide."
	}
	conv.ShowHint = false
	return renderFrame(sess.Lesson().Name, sess.Frame(), conv, "")
}

func (e *Engine) handleAnswer(conv *Conversation, sess *progress.Session, text string) string {
	switch conv.Phase {
	case PhaseAnswered:
		return "You already answered this one. Send /next to continue."
	case PhaseComplete:
		return renderComplete(sess.Lesson().Name, sess.Score())
	case PhaseReading:
		return "Send /next to continue."
	}

	switch s := sess.CurrentStep().(type) {
	case lesson.ChoiceStep:
		options := s.ChoiceQuestion().Options
		answer, ok := pickOption(options, text)
		if !ok {
			return fmt.Sprintf("Reply with a number from 1 to %d.", len(options))
		}
		return e.answer(conv, sess, progress.Choice(answer))
	case lesson.SentenceBuilder:
		return e.placeWords(conv, sess, s, text)
	default:
		return "Send /next to continue."
	}
}

func (e *Engine) handleSentenceCommand(conv *Conversation, sess *progress.Session, cmd string) string {
	sb, ok := sess.CurrentStep().(lesson.SentenceBuilder)
	if !ok || conv.Phase != PhaseAwaiting {
		return "There is no sentence to edit right now."
	}
	pool := e.restorePool(conv, sb)

	switch cmd {
	case "/undo":
		if _, ok := pool.Undo(); !ok {
			return "Your sentence is already empty.\n\n" + renderAssembly(conv)
		}
	case "/clear":
		pool.Clear()
	case "/check":
		if pool.Empty() {
			return "Place at least one word before checking.\n\n" + renderAssembly(conv)
		}
		return e.answer(conv, sess, pool.Submission())
	}

	conv.Assembled = pool.Assembled()
	conv.PoolOrder = e.shuffle(pool)
	return e.assemblyReply(conv, sess)
}

func (e *Engine) placeWords(conv *Conversation, sess *progress.Session, sb lesson.SentenceBuilder, text string) string {
	pool := e.restorePool(conv, sb)
	tokens, err := resolveTokens(strings.Fields(text), conv.PoolOrder)
	if err != nil {
		return err.Error() + "\n\n" + renderAssembly(conv)
	}
	for _, tok := range tokens {
		if !pool.Place(tok) {
			slog.Warn("word pool out of sync", "conversation_id", conv.ID, "token", tok)
			return fallbackReply
		}
	}
	conv.Assembled = pool.Assembled()
	conv.PoolOrder = e.shuffle(pool)
	return e.assemblyReply(conv, sess)
}

func (e *Engine) assemblyReply(conv *Conversation, sess *progress.Session) string {
	reply := renderAssembly(conv)
	if conv.ShowHint {
		if hint, ok := lesson.Hint(sess.CurrentStep(), e.catalog.Reference()); ok {
			reply += "\n\nHint: " + hint
		}
	}
	return reply
}

// restorePool rebuilds the word pool from the saved assembly. Saved state
// that no longer fits the step starts over with an empty sentence.
func (e *Engine) restorePool(conv *Conversation, sb lesson.SentenceBuilder) *progress.WordPool {
	pool, err := progress.RestoreWordPool(sb.Options, conv.Assembled)
	if err != nil {
		slog.Warn("resetting word pool", "conversation_id", conv.ID, "error", err)
		pool = progress.NewWordPool(sb.Options)
		conv.Assembled = nil
	}
	if len(conv.PoolOrder) != len(pool.Available()) {
		conv.PoolOrder = pool.Available()
	}
	return pool
}

func (e *Engine) answer(conv *Conversation, sess *progress.Session, sub progress.Submission) string {
	step := sess.CurrentStep()
	index := sess.StepIndex()
	v, err := sess.Answer(sub)
	if err != nil {
		slog.Error("failed to evaluate answer", "conversation_id", conv.ID, "error", err)
		return fallbackReply
	}

	conv.Phase = PhaseAnswered
	conv.ShowHint = false
	conv.Assembled = nil
	conv.PoolOrder = nil

	e.logEvent(conv, EventAnswerEvaluated, map[string]any{
		"step_index": index,
		"kind":       string(step.Kind()),
		"correct":    v.Correct,
		"score":      v.Score,
	})
	return renderVerdict(v)
}

func (e *Engine) shuffle(pool *progress.WordPool) []string {
	if e.rng == nil {
		return pool.Shuffled(nil)
	}
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return pool.Shuffled(e.rng)
}

func (e *Engine) logEvent(conv *Conversation, eventType string, data map[string]any) {
	if err := e.events.LogEvent(Event{
		ConversationID: conv.ID,
		UserID:         conv.UserID,
		EventType:      eventType,
		Data:           data,
	}); err != nil {
		slog.Warn("failed to log event", "type", eventType, "error", err)
	}
}

// pickOption accepts a 1-based option number or the exact option text.
func pickOption(options []string, text string) (string, bool) {
	if n, err := strconv.Atoi(text); err == nil {
		if n >= 1 && n <= len(options) {
			return options[n-1], true
		}
		return "", false
	}
	if slices.Contains(options, text) {
		return text, true
	}
	return "", false
}

// resolveTokens maps each field to a word from the pool as it was shown.
// Fields are 1-based positions or the words themselves.
func resolveTokens(fields, shown []string) ([]string, error) {
	if len(fields) == 0 {
		return nil, errors.New("Reply with the words to place.")
	}
	used := make([]bool, len(shown))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		i, err := findToken(f, shown, used)
		if err != nil {
			return nil, err
		}
		used[i] = true
		out = append(out, shown[i])
	}
	return out, nil
}

func findToken(field string, shown []string, used []bool) (int, error) {
	if n, err := strconv.Atoi(field); err == nil {
		switch {
		case n < 1 || n > len(shown):
			return 0, fmt.Errorf("There is no word %d.", n)
		case used[n-1]:
			return 0, fmt.Errorf("Word %d is already placed.", n)
		}
		return n - 1, nil
	}
	for i, w := range shown {
		if !used[i] && w == field {
			return i, nil
		}
	}
	for i, w := range shown {
		if !used[i] && strings.EqualFold(w, field) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%q is not among the remaining words.", field)
}

// userLocks serializes work per user without holding a global lock.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func (l *userLocks) lock(key string) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*userLock)
	}
	ul, ok := l.locks[key]
	if !ok {
		ul = &userLock{}
		l.locks[key] = ul
	}
	ul.refs++
	l.mu.Unlock()

	ul.mu.Lock()
	return func() {
		ul.mu.Unlock()
		l.mu.Lock()
		ul.refs--
		if ul.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}
