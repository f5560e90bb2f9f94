package lesson_test

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/p-n-ai/pai-ionian/internal/lesson"
)

func TestDefault(t *testing.T) {
	cat, err := lesson.Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	if cat.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", cat.Len())
	}

	l, err := cat.LessonAt(0)
	if err != nil {
		t.Fatalf("LessonAt(0) error = %v", err)
	}
	if l.Len() != 13 {
		t.Errorf("steps = %d, want 13", l.Len())
	}

	wantKinds := []lesson.Kind{
		lesson.KindInfo, lesson.KindMCQ, lesson.KindMCQ, lesson.KindInfo,
		lesson.KindTranslate, lesson.KindInfo, lesson.KindMCQ, lesson.KindMCQ,
		lesson.KindConjugation, lesson.KindSentenceBuilder, lesson.KindSentenceBuilder,
		lesson.KindSentenceBuilder, lesson.KindInfo,
	}
	for i, want := range wantKinds {
		if got := l.Steps[i].Kind(); got != want {
			t.Errorf("Steps[%d].Kind() = %s, want %s", i, got, want)
		}
	}

	conj, ok := l.Steps[8].(lesson.Conjugation)
	if !ok {
		t.Fatalf("Steps[8] = %T, want Conjugation", l.Steps[8])
	}
	if conj.CorrectAnswer != "Sê" || conj.Pronoun != "Tu" {
		t.Errorf("conjugation = %q/%q, want Sê/Tu", conj.CorrectAnswer, conj.Pronoun)
	}

	verb, ok := cat.Reference().Verb(conj.Verb)
	if !ok {
		t.Fatalf("Reference().Verb(%q) not found", conj.Verb)
	}
	if len(verb.Forms) != 6 {
		t.Errorf("forms = %d, want 6", len(verb.Forms))
	}
}

func TestParse_UnknownStepType(t *testing.T) {
	_, err := lesson.Parse([]byte(`
lessons:
  - name: Broken
    steps:
      - type: essay
        prompt: "Write something"
`))
	if !errors.Is(err, lesson.ErrMalformedLessonData) {
		t.Fatalf("Parse() error = %v, want ErrMalformedLessonData", err)
	}
}

func TestParse_SchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", ``},
		{"no lessons key", `reference: {}`},
		{"unknown field", `
lessons:
  - name: L
    steps:
      - type: info
        title: T
        content: C
        colour: red
`},
		{"mcq missing answer", `
lessons:
  - name: L
    steps:
      - type: mcq
        prompt: P
        options: [A, B]
`},
		{"info missing content", `
lessons:
  - name: L
    steps:
      - type: info
        title: T
`},
		{"no steps", `
lessons:
  - name: L
    steps: []
`},
		{"not yaml", "lessons: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := lesson.Parse([]byte(tt.doc))
			if !errors.Is(err, lesson.ErrMalformedLessonData) {
				t.Errorf("Parse() error = %v, want ErrMalformedLessonData", err)
			}
		})
	}
}

func TestParse_AnswerNotInOptions(t *testing.T) {
	_, err := lesson.Parse([]byte(`
lessons:
  - name: L
    steps:
      - type: translate
        prompt: P
        options: [Hello, Bye]
        correct_answer: Thanks
`))
	if !errors.Is(err, lesson.ErrMalformedLessonData) {
		t.Fatalf("Parse() error = %v, want ErrMalformedLessonData", err)
	}
}

func TestParse_NormalizesToNFC(t *testing.T) {
	// "Se" followed by a combining circumflex.
	decomposed := "Se\u0302"
	doc := `
lessons:
  - name: L
    steps:
      - type: mcq
        prompt: P
        options: ["` + decomposed + `", "Sô"]
        correct_answer: "` + decomposed + `"
`
	cat, err := lesson.Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	l, _ := cat.LessonAt(0)
	got := l.Steps[0].(lesson.MCQ).CorrectAnswer
	if got != "Sê" {
		t.Errorf("CorrectAnswer = %q, want composed Sê", got)
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "module2")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	writeFile(t, filepath.Join(dir, "01-basics.yaml"), `
reference:
  verbs:
    - name: "Esser (To be)"
      forms:
        - {pronoun: Jo, form: Sô}
lessons:
  - name: Basics
    steps:
      - type: info
        title: Hello
        content: World
`)
	writeFile(t, filepath.Join(sub, "02-more.yml"), `
lessons:
  - name: More
    steps:
      - type: match
        question_type: Vocabulary
`)
	writeFile(t, filepath.Join(dir, "notes.md"), "# not a lesson")

	cat, err := lesson.LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir() error = %v", err)
	}
	if cat.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", cat.Len())
	}
	first, _ := cat.LessonAt(0)
	second, _ := cat.LessonAt(1)
	if first.Name != "Basics" || second.Name != "More" {
		t.Errorf("order = [%q %q], want [Basics More]", first.Name, second.Name)
	}
	if _, ok := cat.Reference().Verb("Esser (To be)"); !ok {
		t.Error("reference verb table was not merged")
	}
}

func TestDefault_GenderRules(t *testing.T) {
	cat, err := lesson.Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	rules := cat.Reference().Gender
	if len(rules) != 6 {
		t.Fatalf("gender rules = %d, want 6", len(rules))
	}

	tests := []struct {
		gender, number string
		want           []string
	}{
		{"masculine", "singular", []string{"-o", "-u", "consonant", "-e"}},
		{"feminine", "plural", []string{"-e"}},
		{"neuter", "singular", []string{"-û", "consonant", "-e"}},
		{"neuter", "plural", []string{"-a"}},
	}
	for _, tt := range tests {
		i := slices.IndexFunc(rules, func(r lesson.GenderRule) bool {
			return r.Gender == tt.gender && r.Number == tt.number
		})
		if i < 0 {
			t.Errorf("no rule for %s %s", tt.gender, tt.number)
			continue
		}
		if !slices.Equal(rules[i].Endings, tt.want) {
			t.Errorf("%s %s endings = %q, want %q", tt.gender, tt.number, rules[i].Endings, tt.want)
		}
	}
}

func TestParse_RejectsUnknownGender(t *testing.T) {
	doc := `reference:
  gender_rules:
    - {gender: "common", number: "singular", endings: ["-o"]}
lessons:
  - name: Basics
    steps:
      - type: info
        title: Hello
`
	if _, err := lesson.Parse([]byte(doc)); !errors.Is(err, lesson.ErrMalformedLessonData) {
		t.Errorf("Parse() error = %v, want ErrMalformedLessonData", err)
	}
}

func TestLoadDir_Empty(t *testing.T) {
	_, err := lesson.LoadDir(t.TempDir())
	if !errors.Is(err, lesson.ErrMalformedLessonData) {
		t.Fatalf("LoadDir() error = %v, want ErrMalformedLessonData", err)
	}
}

func TestLoadDir_MissingDir(t *testing.T) {
	_, err := lesson.LoadDir(filepath.Join(t.TempDir(), "missing"))
	if err == nil {
		t.Fatal("LoadDir() should error for a missing directory")
	}
}

func TestLoadDir_BadFileFailsFast(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "bad.yaml"), `
lessons:
  - name: Bad
    steps:
      - type: sentence_builder
        prompt: P
        options: [Jo]
        correct_sentence: [Jo, Habito]
`)
	_, err := lesson.LoadDir(dir)
	if !errors.Is(err, lesson.ErrMalformedLessonData) {
		t.Fatalf("LoadDir() error = %v, want ErrMalformedLessonData", err)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile(%s) error = %v", path, err)
	}
}
