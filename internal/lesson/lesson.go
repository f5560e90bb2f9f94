// Package lesson holds the immutable lesson catalog: typed steps, lessons,
// reference tables and the loaders that build them from YAML content.
package lesson

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrMalformedLessonData marks content whose declared answer cannot be
	// produced from its options, or that fails schema checks.
	ErrMalformedLessonData = errors.New("malformed lesson data")

	// ErrIndexOutOfRange is returned for a lesson index outside the catalog.
	ErrIndexOutOfRange = errors.New("lesson index out of range")
)

// Lesson is a named, ordered sequence of steps.
type Lesson struct {
	Name  string
	Steps []Step
}

// Len returns the number of steps.
func (l Lesson) Len() int { return len(l.Steps) }

// Catalog is an ordered, read-only list of lessons.
type Catalog struct {
	lessons   []Lesson
	reference Reference
}

// NewCatalog validates every lesson and returns the catalog.
func NewCatalog(ref Reference, lessons ...Lesson) (*Catalog, error) {
	if len(lessons) == 0 {
		return nil, fmt.Errorf("%w: catalog has no lessons", ErrMalformedLessonData)
	}
	owned := make([]Lesson, 0, len(lessons))
	for i, l := range lessons {
		if err := l.Validate(); err != nil {
			return nil, fmt.Errorf("lesson %d: %w", i, err)
		}
		owned = append(owned, Lesson{Name: l.Name, Steps: cloneSteps(l.Steps)})
	}
	return &Catalog{lessons: owned, reference: ref.clone()}, nil
}

// LessonAt returns the lesson at index i.
func (c *Catalog) LessonAt(i int) (Lesson, error) {
	if i < 0 || i >= len(c.lessons) {
		return Lesson{}, fmt.Errorf("%w: %d (catalog has %d)", ErrIndexOutOfRange, i, len(c.lessons))
	}
	l := c.lessons[i]
	return Lesson{Name: l.Name, Steps: cloneSteps(l.Steps)}, nil
}

// Len returns the number of lessons.
func (c *Catalog) Len() int { return len(c.lessons) }

// Lessons returns a copy of all lessons in order.
func (c *Catalog) Lessons() []Lesson {
	out := make([]Lesson, len(c.lessons))
	for i, l := range c.lessons {
		out[i] = Lesson{Name: l.Name, Steps: cloneSteps(l.Steps)}
	}
	return out
}

// Reference returns the language reference tables shipped with the catalog.
func (c *Catalog) Reference() Reference { return c.reference.clone() }

// Validate checks the lesson invariants.
func (l Lesson) Validate() error {
	if l.Name == "" {
		return fmt.Errorf("%w: lesson name is required", ErrMalformedLessonData)
	}
	if len(l.Steps) == 0 {
		return fmt.Errorf("%w: lesson %q has no steps", ErrMalformedLessonData, l.Name)
	}
	for i, s := range l.Steps {
		if err := validateStep(s); err != nil {
			return fmt.Errorf("%w: lesson %q step %d (%s): %v", ErrMalformedLessonData, l.Name, i, kindOf(s), err)
		}
	}
	return nil
}

func validateStep(s Step) error {
	switch v := s.(type) {
	case Info:
		if v.Title == "" {
			return errors.New("title is required")
		}
	case MCQ:
		return validateChoice(v.Choice)
	case Translate:
		return validateChoice(v.Choice)
	case Conjugation:
		if err := validateChoice(v.Choice); err != nil {
			return err
		}
		if v.Verb == "" || v.Pronoun == "" {
			return errors.New("verb and pronoun are required")
		}
	case SentenceBuilder:
		if v.Prompt == "" {
			return errors.New("prompt is required")
		}
		if len(v.CorrectSentence) == 0 {
			return errors.New("correct sentence is empty")
		}
		if missing, ok := containsMultiset(v.Options, v.CorrectSentence); !ok {
			return fmt.Errorf("token %q is not available in options often enough", missing)
		}
	case Match:
	case nil:
		return errors.New("step is nil")
	default:
		return fmt.Errorf("unsupported step %T", s)
	}
	return nil
}

func validateChoice(c Choice) error {
	if c.Prompt == "" {
		return errors.New("prompt is required")
	}
	if len(c.Options) < 2 {
		return fmt.Errorf("need at least 2 options, got %d", len(c.Options))
	}
	if !slices.Contains(c.Options, c.CorrectAnswer) {
		return fmt.Errorf("correct answer %q is not one of the options", c.CorrectAnswer)
	}
	return nil
}

// containsMultiset reports whether every token of want can be drawn from have,
// counting repeats. It returns the first token that cannot.
func containsMultiset(have, want []string) (string, bool) {
	counts := make(map[string]int, len(have))
	for _, t := range have {
		counts[t]++
	}
	for _, t := range want {
		if counts[t] == 0 {
			return t, false
		}
		counts[t]--
	}
	return "", true
}

func kindOf(s Step) Kind {
	if s == nil {
		return ""
	}
	return s.Kind()
}

// cloneSteps copies the step slice and the option slices inside each step so
// callers cannot mutate catalog content.
func cloneSteps(steps []Step) []Step {
	out := make([]Step, len(steps))
	for i, s := range steps {
		switch v := s.(type) {
		case MCQ:
			v.Options = slices.Clone(v.Options)
			out[i] = v
		case Translate:
			v.Options = slices.Clone(v.Options)
			out[i] = v
		case Conjugation:
			v.Options = slices.Clone(v.Options)
			out[i] = v
		case SentenceBuilder:
			v.Options = slices.Clone(v.Options)
			v.CorrectSentence = slices.Clone(v.CorrectSentence)
			out[i] = v
		default:
			out[i] = s
		}
	}
	return out
}
