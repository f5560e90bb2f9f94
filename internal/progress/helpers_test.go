package progress_test

import (
	"testing"

	"github.com/p-n-ai/pai-ionian/internal/lesson"
	"github.com/p-n-ai/pai-ionian/internal/progress"
)

// threeStepLesson is mcq (A), info, sentence builder (X Y).
func threeStepLesson() lesson.Lesson {
	return lesson.Lesson{
		Name: "Three steps",
		Steps: []lesson.Step{
			lesson.MCQ{Choice: lesson.Choice{
				Prompt:        "Pick A",
				Options:       []string{"A", "B", "C"},
				CorrectAnswer: "A",
				QuestionType:  "Test",
			}},
			lesson.Info{Title: "Between", Content: "Keep going"},
			lesson.SentenceBuilder{
				Prompt:          "Build X Y",
				Options:         []string{"Y", "X", "Z"},
				CorrectSentence: []string{"X", "Y"},
				QuestionType:    "Test",
			},
		},
	}
}

func newSession(t *testing.T) *progress.Session {
	t.Helper()
	cat, err := lesson.NewCatalog(lesson.Reference{}, threeStepLesson())
	if err != nil {
		t.Fatalf("NewCatalog() error = %v", err)
	}
	s, err := progress.NewSession(cat, 0)
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	return s
}
