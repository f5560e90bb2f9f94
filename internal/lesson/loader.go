package lesson

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var defaultContent embed.FS

//go:embed schema.json
var schemaJSON []byte

var documentSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
})

// document is the on-disk YAML shape of a lesson file.
type document struct {
	Reference Reference   `yaml:"reference"`
	Lessons   []lessonDoc `yaml:"lessons"`
}

type lessonDoc struct {
	Name  string    `yaml:"name"`
	Steps []stepDoc `yaml:"steps"`
}

type stepDoc struct {
	Type            Kind     `yaml:"type"`
	Title           string   `yaml:"title"`
	Content         string   `yaml:"content"`
	Prompt          string   `yaml:"prompt"`
	Options         []string `yaml:"options"`
	CorrectAnswer   string   `yaml:"correct_answer"`
	CorrectSentence []string `yaml:"correct_sentence"`
	QuestionType    string   `yaml:"question_type"`
	Verb            string   `yaml:"verb"`
	Pronoun         string   `yaml:"pronoun"`
}

// Default returns the compiled-in Ionian catalog.
func Default() (*Catalog, error) {
	return loadFS(defaultContent, "data")
}

// LoadDir loads every *.yaml and *.yml file under dir, in lexical path order.
func LoadDir(dir string) (*Catalog, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("loading lessons: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("loading lessons: %s is not a directory", dir)
	}
	return loadFS(os.DirFS(dir), ".")
}

// Parse builds a catalog from a single YAML document.
func Parse(data []byte) (*Catalog, error) {
	doc, err := decodeDocument(data)
	if err != nil {
		return nil, err
	}
	lessons, err := doc.build()
	if err != nil {
		return nil, err
	}
	return NewCatalog(doc.Reference, lessons...)
}

func loadFS(fsys fs.FS, root string) (*Catalog, error) {
	var (
		lessons []Lesson
		ref     Reference
		files   int
	)
	err := fs.WalkDir(fsys, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch path.Ext(p) {
		case ".yaml", ".yml":
		default:
			return nil
		}

		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		doc, err := decodeDocument(data)
		if err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
		built, err := doc.build()
		if err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
		lessons = append(lessons, built...)
		ref = ref.merge(doc.Reference)
		files++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading lessons: %w", err)
	}

	catalog, err := NewCatalog(ref, lessons...)
	if err != nil {
		return nil, err
	}
	slog.Debug("lessons loaded", "files", files, "lessons", catalog.Len())
	return catalog, nil
}

// decodeDocument checks data against the lesson schema, then decodes it.
func decodeDocument(data []byte) (document, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return document{}, fmt.Errorf("%w: %v", ErrMalformedLessonData, err)
	}
	if raw == nil {
		return document{}, fmt.Errorf("%w: empty document", ErrMalformedLessonData)
	}

	schema, err := documentSchema()
	if err != nil {
		return document{}, fmt.Errorf("compiling lesson schema: %w", err)
	}
	result, err := schema.Validate(gojsonschema.NewGoLoader(raw))
	if err != nil {
		return document{}, fmt.Errorf("%w: %v", ErrMalformedLessonData, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return document{}, fmt.Errorf("%w: %s", ErrMalformedLessonData, strings.Join(msgs, "; "))
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return document{}, fmt.Errorf("%w: %v", ErrMalformedLessonData, err)
	}
	doc.Reference = normalizeReference(doc.Reference)
	return doc, nil
}

func (d document) build() ([]Lesson, error) {
	lessons := make([]Lesson, 0, len(d.Lessons))
	for _, ld := range d.Lessons {
		l := Lesson{Name: nfc(ld.Name), Steps: make([]Step, 0, len(ld.Steps))}
		for i, sd := range ld.Steps {
			s, err := sd.step()
			if err != nil {
				return nil, fmt.Errorf("%w: lesson %q step %d: %v", ErrMalformedLessonData, l.Name, i, err)
			}
			l.Steps = append(l.Steps, s)
		}
		lessons = append(lessons, l)
	}
	return lessons, nil
}

func (sd stepDoc) step() (Step, error) {
	choice := Choice{
		Prompt:        nfc(sd.Prompt),
		Options:       nfcAll(sd.Options),
		CorrectAnswer: nfc(sd.CorrectAnswer),
		QuestionType:  nfc(sd.QuestionType),
	}
	switch sd.Type {
	case KindInfo:
		return Info{Title: nfc(sd.Title), Content: nfc(sd.Content)}, nil
	case KindMCQ:
		return MCQ{Choice: choice}, nil
	case KindTranslate:
		return Translate{Choice: choice}, nil
	case KindConjugation:
		return Conjugation{Choice: choice, Verb: nfc(sd.Verb), Pronoun: nfc(sd.Pronoun)}, nil
	case KindSentenceBuilder:
		return SentenceBuilder{
			Prompt:          choice.Prompt,
			Options:         choice.Options,
			CorrectSentence: nfcAll(sd.CorrectSentence),
			QuestionType:    choice.QuestionType,
		}, nil
	case KindMatch:
		return Match{QuestionType: choice.QuestionType}, nil
	default:
		return nil, fmt.Errorf("unknown step type %q", sd.Type)
	}
}

func normalizeReference(r Reference) Reference {
	for i := range r.Alphabet {
		r.Alphabet[i].Letter = nfc(r.Alphabet[i].Letter)
		r.Alphabet[i].IPA = nfc(r.Alphabet[i].IPA)
		r.Alphabet[i].Notes = nfc(r.Alphabet[i].Notes)
	}
	for i := range r.Vocabulary {
		r.Vocabulary[i].Ionian = nfc(r.Vocabulary[i].Ionian)
		r.Vocabulary[i].English = nfc(r.Vocabulary[i].English)
		r.Vocabulary[i].Pronunciation = nfc(r.Vocabulary[i].Pronunciation)
	}
	for i := range r.Verbs {
		r.Verbs[i].Name = nfc(r.Verbs[i].Name)
		for j := range r.Verbs[i].Forms {
			r.Verbs[i].Forms[j].Pronoun = nfc(r.Verbs[i].Forms[j].Pronoun)
			r.Verbs[i].Forms[j].Form = nfc(r.Verbs[i].Forms[j].Form)
		}
	}
	for i := range r.Articles {
		r.Articles[i].Form = nfc(r.Articles[i].Form)
	}
	for i := range r.Gender {
		r.Gender[i].Endings = nfcAll(r.Gender[i].Endings)
		r.Gender[i].Notes = nfc(r.Gender[i].Notes)
	}
	return r
}

func nfc(s string) string { return norm.NFC.String(s) }

func nfcAll(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = nfc(s)
	}
	return out
}
