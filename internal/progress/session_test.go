package progress_test

import (
	"errors"
	"testing"

	"github.com/p-n-ai/pai-ionian/internal/lesson"
	"github.com/p-n-ai/pai-ionian/internal/progress"
)

func TestNewSession_Initial(t *testing.T) {
	s := newSession(t)

	if s.StepIndex() != 0 {
		t.Errorf("StepIndex() = %d, want 0", s.StepIndex())
	}
	if s.Score() != progress.MaxAccuracy {
		t.Errorf("Score() = %d, want %d", s.Score(), progress.MaxAccuracy)
	}
	if s.TotalSteps() != 3 {
		t.Errorf("TotalSteps() = %d, want 3", s.TotalSteps())
	}
	if s.State() != progress.Active {
		t.Errorf("State() = %s, want active", s.State())
	}
	if s.CurrentStep().Kind() != lesson.KindMCQ {
		t.Errorf("CurrentStep().Kind() = %s, want mcq", s.CurrentStep().Kind())
	}
}

func TestNewSession_BadLessonIndex(t *testing.T) {
	cat, _ := lesson.NewCatalog(lesson.Reference{}, threeStepLesson())

	_, err := progress.NewSession(cat, 1)
	if !errors.Is(err, lesson.ErrIndexOutOfRange) {
		t.Fatalf("NewSession() error = %v, want ErrIndexOutOfRange", err)
	}
}

func TestNewSession_NilCatalog(t *testing.T) {
	if _, err := progress.NewSession(nil, 0); err == nil {
		t.Fatal("NewSession(nil) should error")
	}
}

func TestDecrementAccuracy_ClampsAtZero(t *testing.T) {
	s := newSession(t)

	s.DecrementAccuracy()
	s.DecrementAccuracy()
	if s.Score() != 1 {
		t.Fatalf("Score() = %d, want 1", s.Score())
	}

	s.DecrementAccuracy()
	if s.Score() != 0 {
		t.Errorf("Score() = %d, want 0", s.Score())
	}
	if s.State() != progress.Exhausted {
		t.Errorf("State() = %s, want exhausted", s.State())
	}

	s.DecrementAccuracy()
	if s.Score() != 0 {
		t.Errorf("Score() = %d after extra decrement, want 0", s.Score())
	}
}

func TestReset_RestoresInitialState(t *testing.T) {
	tests := []struct {
		name       string
		advances   int
		decrements int
	}{
		{"fresh", 0, 0},
		{"midway", 2, 1},
		{"past end", 7, 3},
		{"exhausted at start", 0, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSession(t)
			for range tt.advances {
				s.Advance()
			}
			for range tt.decrements {
				s.DecrementAccuracy()
			}

			s.Reset()

			if s.StepIndex() != 0 {
				t.Errorf("StepIndex() = %d, want 0", s.StepIndex())
			}
			if s.Score() != 3 {
				t.Errorf("Score() = %d, want 3", s.Score())
			}
		})
	}
}

func TestAdvance_PastEnd(t *testing.T) {
	s := newSession(t)

	for i := 0; i < s.TotalSteps(); i++ {
		s.Advance()
	}
	if s.CurrentStep() != nil {
		t.Fatalf("CurrentStep() = %v, want nil after %d advances", s.CurrentStep(), s.TotalSteps())
	}
	if !s.Complete() {
		t.Error("Complete() = false, want true")
	}

	if step := s.Advance(); step != nil {
		t.Errorf("Advance() past end = %v, want nil", step)
	}
	if s.StepIndex() != 4 {
		t.Errorf("StepIndex() = %d, want 4", s.StepIndex())
	}
	if s.Progress() != 1 {
		t.Errorf("Progress() = %v, want 1", s.Progress())
	}
}

func TestProgress(t *testing.T) {
	s := newSession(t)
	if s.Progress() != 0 {
		t.Errorf("Progress() = %v, want 0", s.Progress())
	}
	s.Advance()
	if got, want := s.Progress(), 1.0/3.0; got != want {
		t.Errorf("Progress() = %v, want %v", got, want)
	}
}

// Mirrors the three-step walkthrough: wrong MCQ, info, sentence order check.
func TestSession_EndToEnd(t *testing.T) {
	s := newSession(t)

	if s.StepIndex() != 0 || s.Score() != 3 {
		t.Fatalf("start = (%d, %d), want (0, 3)", s.StepIndex(), s.Score())
	}

	ok, err := progress.Evaluate(s.CurrentStep(), progress.Choice("B"))
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if ok {
		t.Fatal("Evaluate(B) = true, want false")
	}
	s.DecrementAccuracy()
	if s.Score() != 2 {
		t.Fatalf("Score() = %d, want 2", s.Score())
	}

	if step := s.Advance(); step.Kind() != lesson.KindInfo || s.StepIndex() != 1 {
		t.Fatalf("after first advance: index %d kind %s, want 1 info", s.StepIndex(), step.Kind())
	}
	step := s.Advance()
	if step.Kind() != lesson.KindSentenceBuilder || s.StepIndex() != 2 {
		t.Fatalf("after second advance: index %d kind %s, want 2 sentence_builder", s.StepIndex(), step.Kind())
	}

	if ok, _ := progress.Evaluate(step, progress.Tokens{"Y", "X"}); ok {
		t.Error("Evaluate([Y X]) = true, want false")
	}
	if ok, _ := progress.Evaluate(step, progress.Tokens{"X", "Y"}); !ok {
		t.Error("Evaluate([X Y]) = false, want true")
	}

	if step := s.Advance(); step != nil {
		t.Errorf("final Advance() = %v, want nil", step)
	}
}

func TestAnswer(t *testing.T) {
	s := newSession(t)

	v, err := s.Answer(progress.Choice("C"))
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if v.Correct || v.Expected != "A" || v.Score != 2 || v.Exhausted {
		t.Errorf("Answer(C) = %+v, want wrong, expected A, score 2", v)
	}

	v, err = s.Answer(progress.Choice("A"))
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if !v.Correct || v.Score != 2 {
		t.Errorf("Answer(A) = %+v, want correct with score 2", v)
	}
}

func TestAnswer_Exhausts(t *testing.T) {
	s := newSession(t)
	s.DecrementAccuracy()
	s.DecrementAccuracy()

	v, err := s.Answer(progress.Choice("B"))
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if !v.Exhausted || v.Score != 0 {
		t.Errorf("Answer() = %+v, want exhausted with score 0", v)
	}
}

func TestAnswer_Errors(t *testing.T) {
	s := newSession(t)
	s.Advance()

	if _, err := s.Answer(progress.Choice("A")); !errors.Is(err, progress.ErrNotEvaluable) {
		t.Errorf("Answer() on info error = %v, want ErrNotEvaluable", err)
	}
	if s.Score() != 3 {
		t.Errorf("Score() = %d, contract violations must not cost points", s.Score())
	}

	s.Advance()
	s.Advance()
	if _, err := s.Answer(progress.Tokens{"X"}); !errors.Is(err, progress.ErrLessonComplete) {
		t.Errorf("Answer() past end error = %v, want ErrLessonComplete", err)
	}
}

func TestSnapshotRestore(t *testing.T) {
	cat, _ := lesson.NewCatalog(lesson.Reference{}, threeStepLesson())
	s, _ := progress.NewSession(cat, 0)
	s.Advance()
	s.DecrementAccuracy()

	restored, err := progress.Restore(cat, s.Snapshot())
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if restored.StepIndex() != 1 || restored.Score() != 2 {
		t.Errorf("restored = (%d, %d), want (1, 2)", restored.StepIndex(), restored.Score())
	}
}

func TestRestore_Invalid(t *testing.T) {
	cat, _ := lesson.NewCatalog(lesson.Reference{}, threeStepLesson())

	tests := []struct {
		name string
		snap progress.Snapshot
		want error
	}{
		{"negative step", progress.Snapshot{StepIndex: -1, Score: 3}, progress.ErrInvalidSnapshot},
		{"score too high", progress.Snapshot{Score: 4}, progress.ErrInvalidSnapshot},
		{"negative score", progress.Snapshot{Score: -1}, progress.ErrInvalidSnapshot},
		{"bad lesson", progress.Snapshot{LessonIndex: 3, Score: 3}, lesson.ErrIndexOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := progress.Restore(cat, tt.snap); !errors.Is(err, tt.want) {
				t.Errorf("Restore() error = %v, want %v", err, tt.want)
			}
		})
	}
}
