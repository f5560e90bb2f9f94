package progress

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/p-n-ai/pai-ionian/internal/lesson"
)

var (
	// ErrNotEvaluable is returned when Evaluate is called for a step that
	// takes no answer (Info, Match).
	ErrNotEvaluable = errors.New("step is not evaluable")

	// ErrSubmissionShape is returned when the submission does not match the
	// step: a Choice for a sentence, or Tokens for a choice question.
	ErrSubmissionShape = errors.New("submission does not match step")
)

// Submission is a learner's answer: a Choice or a Tokens sequence.
type Submission interface {
	isSubmission()
}

// Choice is a single selected option.
type Choice string

// Tokens is an assembled word order.
type Tokens []string

func (Choice) isSubmission() {}
func (Tokens) isSubmission() {}

// Evaluate judges sub against step. It never mutates state. An error means the
// caller broke the contract; the boolean is then false.
func Evaluate(step lesson.Step, sub Submission) (bool, error) {
	switch s := step.(type) {
	case lesson.MCQ, lesson.Translate, lesson.Conjugation:
		answer, ok := sub.(Choice)
		if !ok {
			return false, fmt.Errorf("%w: %s wants a choice, got %T", ErrSubmissionShape, step.Kind(), sub)
		}
		return EvaluateChoice(s.(lesson.ChoiceStep), string(answer)), nil
	case lesson.SentenceBuilder:
		tokens, ok := sub.(Tokens)
		if !ok {
			return false, fmt.Errorf("%w: %s wants tokens, got %T", ErrSubmissionShape, step.Kind(), sub)
		}
		return EvaluateSentence(s, tokens), nil
	case lesson.Info, lesson.Match:
		return false, fmt.Errorf("%w: %s", ErrNotEvaluable, step.Kind())
	case nil:
		return false, fmt.Errorf("%w: no step", ErrNotEvaluable)
	default:
		return false, fmt.Errorf("%w: %T", ErrNotEvaluable, step)
	}
}

// EvaluateChoice is exact, case-sensitive equality with the correct answer.
func EvaluateChoice(step lesson.ChoiceStep, answer string) bool {
	return answer == step.ChoiceQuestion().CorrectAnswer
}

// EvaluateSentence joins both sides with single spaces, lower-cases them and
// compares the strings. Token boundaries are not compared: ["Jo Habito"]
// matches ["Jo", "Habito"].
func EvaluateSentence(step lesson.SentenceBuilder, tokens []string) bool {
	return joinLower(tokens) == joinLower(step.CorrectSentence)
}

func joinLower(tokens []string) string {
	return cases.Lower(language.Und).String(strings.Join(tokens, " "))
}

// Expected returns the answer text shown in feedback for an evaluable step.
func Expected(step lesson.Step) string {
	switch s := step.(type) {
	case lesson.ChoiceStep:
		return s.ChoiceQuestion().CorrectAnswer
	case lesson.SentenceBuilder:
		return strings.Join(s.CorrectSentence, " ")
	default:
		return ""
	}
}
