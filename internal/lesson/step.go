package lesson

// Kind identifies a step variant. Values match the `type:` field in lesson YAML.
type Kind string

const (
	KindInfo            Kind = "info"
	KindMCQ             Kind = "mcq"
	KindTranslate       Kind = "translate"
	KindConjugation     Kind = "conjugation"
	KindSentenceBuilder Kind = "sentence_builder"
	KindMatch           Kind = "match"
)

// Step is one unit of lesson content. The set of implementations is closed:
// Info, MCQ, Translate, Conjugation, SentenceBuilder and Match.
type Step interface {
	Kind() Kind
	isStep()
}

// ChoiceStep is implemented by the single-answer question steps.
type ChoiceStep interface {
	Step
	ChoiceQuestion() Choice
}

// Choice holds the fields shared by MCQ, Translate and Conjugation steps.
type Choice struct {
	Prompt        string
	Options       []string
	CorrectAnswer string
	QuestionType  string
}

// Info is an informational card. It is never evaluated.
type Info struct {
	Title   string
	Content string
}

// MCQ is a multiple-choice question.
type MCQ struct {
	Choice
}

// Translate is a vocabulary translation question with MCQ semantics.
type Translate struct {
	Choice
}

// Conjugation is a verb drill. Verb and Pronoun are display metadata for hints.
type Conjugation struct {
	Choice
	Verb    string
	Pronoun string
}

// SentenceBuilder asks the learner to assemble CorrectSentence from Options.
// Options may repeat tokens and carry distractors.
type SentenceBuilder struct {
	Prompt          string
	Options         []string
	CorrectSentence []string
	QuestionType    string
}

// Match is a placeholder for a matching exercise. It progresses like Info.
type Match struct {
	QuestionType string
}

func (Info) Kind() Kind            { return KindInfo }
func (MCQ) Kind() Kind             { return KindMCQ }
func (Translate) Kind() Kind       { return KindTranslate }
func (Conjugation) Kind() Kind     { return KindConjugation }
func (SentenceBuilder) Kind() Kind { return KindSentenceBuilder }
func (Match) Kind() Kind           { return KindMatch }

func (Info) isStep()            {}
func (MCQ) isStep()             {}
func (Translate) isStep()       {}
func (Conjugation) isStep()     {}
func (SentenceBuilder) isStep() {}
func (Match) isStep()           {}

func (c Choice) ChoiceQuestion() Choice { return c }

// Placeholder returns the stub card shown in place of a matching exercise.
func (m Match) Placeholder() Info {
	return Info{
		Title:   "Complex Review: " + m.QuestionType,
		Content: "A full matching challenge component would be rendered here. Tap NEXT MODULE to proceed.",
	}
}

// Evaluable reports whether the step takes a submission.
func Evaluable(s Step) bool {
	switch s.(type) {
	case MCQ, Translate, Conjugation, SentenceBuilder:
		return true
	default:
		return false
	}
}

// Prompt returns the question or card title shown for a step.
func Prompt(s Step) string {
	switch v := s.(type) {
	case Info:
		return v.Title
	case ChoiceStep:
		return v.ChoiceQuestion().Prompt
	case SentenceBuilder:
		return v.Prompt
	case Match:
		return v.Placeholder().Title
	default:
		return ""
	}
}
