// Package progress implements lesson progression: the per-learner session
// state, answer evaluation, the restart-on-zero render cycle and the word pool
// used to assemble sentences.
package progress

import (
	"errors"
	"fmt"

	"github.com/p-n-ai/pai-ionian/internal/lesson"
)

// MaxAccuracy is the starting accuracy score and its upper bound.
const MaxAccuracy = 3

var (
	// ErrLessonComplete is returned when answering past the last step.
	ErrLessonComplete = errors.New("lesson complete")

	// ErrInvalidSnapshot is returned by Restore for out-of-range state.
	ErrInvalidSnapshot = errors.New("invalid session snapshot")
)

// State is the accuracy state of a session.
type State int

const (
	Active State = iota
	Exhausted
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Exhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Session is one learner's position in a lesson. It is not safe for
// concurrent use; each interaction loop owns its session.
type Session struct {
	lessonIndex int
	lesson      lesson.Lesson
	stepIndex   int
	score       int
}

// NewSession starts lesson lessonIndex of catalog at step 0 with a full score.
func NewSession(catalog *lesson.Catalog, lessonIndex int) (*Session, error) {
	if catalog == nil {
		return nil, fmt.Errorf("catalog is nil")
	}
	l, err := catalog.LessonAt(lessonIndex)
	if err != nil {
		return nil, err
	}
	return &Session{
		lessonIndex: lessonIndex,
		lesson:      l,
		score:       MaxAccuracy,
	}, nil
}

// Snapshot is the serializable part of a session.
type Snapshot struct {
	LessonIndex int `json:"lesson_index"`
	StepIndex   int `json:"step_index"`
	Score       int `json:"score"`
}

// Snapshot captures the session state.
func (s *Session) Snapshot() Snapshot {
	return Snapshot{LessonIndex: s.lessonIndex, StepIndex: s.stepIndex, Score: s.score}
}

// Restore rebuilds a session from a snapshot taken against the same catalog.
func Restore(catalog *lesson.Catalog, snap Snapshot) (*Session, error) {
	if snap.StepIndex < 0 {
		return nil, fmt.Errorf("%w: step index %d", ErrInvalidSnapshot, snap.StepIndex)
	}
	if snap.Score < 0 || snap.Score > MaxAccuracy {
		return nil, fmt.Errorf("%w: score %d", ErrInvalidSnapshot, snap.Score)
	}
	s, err := NewSession(catalog, snap.LessonIndex)
	if err != nil {
		return nil, err
	}
	s.stepIndex = snap.StepIndex
	s.score = snap.Score
	return s, nil
}

// Lesson returns the active lesson.
func (s *Session) Lesson() lesson.Lesson { return s.lesson }

// LessonIndex returns the catalog index of the active lesson.
func (s *Session) LessonIndex() int { return s.lessonIndex }

// CurrentStep returns the step at the current index, or nil once the lesson
// is complete.
func (s *Session) CurrentStep() lesson.Step {
	if s.stepIndex < len(s.lesson.Steps) {
		return s.lesson.Steps[s.stepIndex]
	}
	return nil
}

// StepIndex returns the current step index. It may exceed TotalSteps after
// repeated Advance calls.
func (s *Session) StepIndex() int { return s.stepIndex }

// TotalSteps returns the number of steps in the active lesson.
func (s *Session) TotalSteps() int { return len(s.lesson.Steps) }

// Score returns the accuracy score, always within 0..MaxAccuracy.
func (s *Session) Score() int { return s.score }

// State reports Exhausted once the score has reached zero.
func (s *Session) State() State {
	if s.score == 0 {
		return Exhausted
	}
	return Active
}

// Complete reports whether every step has been passed.
func (s *Session) Complete() bool { return s.CurrentStep() == nil }

// Progress returns the fraction of steps passed, capped at 1.
func (s *Session) Progress() float64 {
	total := s.TotalSteps()
	if total == 0 {
		return 1
	}
	return float64(min(s.stepIndex, total)) / float64(total)
}

// Advance moves to the next step unconditionally and returns it.
func (s *Session) Advance() lesson.Step {
	s.stepIndex++
	return s.CurrentStep()
}

// DecrementAccuracy lowers the score by one, never below zero.
func (s *Session) DecrementAccuracy() {
	s.score = max(0, s.score-1)
}

// Reset returns to the first step with a full score.
func (s *Session) Reset() {
	s.stepIndex = 0
	s.score = MaxAccuracy
}

// Verdict is the outcome of answering the current step.
type Verdict struct {
	Correct   bool
	Expected  string
	Score     int
	Exhausted bool
}

// Answer evaluates sub against the current step and costs one accuracy point
// when it is wrong.
func (s *Session) Answer(sub Submission) (Verdict, error) {
	step := s.CurrentStep()
	if step == nil {
		return Verdict{}, ErrLessonComplete
	}
	ok, err := Evaluate(step, sub)
	if err != nil {
		return Verdict{}, err
	}
	if !ok {
		s.DecrementAccuracy()
	}
	return Verdict{
		Correct:   ok,
		Expected:  Expected(step),
		Score:     s.score,
		Exhausted: s.State() == Exhausted,
	}, nil
}
