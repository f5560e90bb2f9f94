package lesson

import (
	"fmt"
	"strings"
)

// Hint returns help text for a step. Conjugation hints show the verb table
// from ref with the asked pronoun masked. Info and Match steps have no hint.
func Hint(step Step, ref Reference) (string, bool) {
	switch s := step.(type) {
	case Conjugation:
		var b strings.Builder
		fmt.Fprintf(&b, "Verb: %s, pronoun: %s", s.Verb, s.Pronoun)
		if table, ok := ref.Verb(s.Verb); ok {
			b.WriteString("\nPresent tense:")
			for _, f := range table.Forms {
				form := f.Form
				if f.Pronoun == s.Pronoun {
					form = "?"
				}
				fmt.Fprintf(&b, "\n  %s: %s", f.Pronoun, form)
			}
		}
		return b.String(), true
	case MCQ:
		return choiceHint(s.Choice), true
	case Translate:
		return choiceHint(s.Choice), true
	case SentenceBuilder:
		if len(s.CorrectSentence) == 0 {
			return "", false
		}
		return fmt.Sprintf("The sentence has %d words and starts with %q.", len(s.CorrectSentence), s.CorrectSentence[0]), true
	default:
		return "", false
	}
}

func choiceHint(c Choice) string {
	if c.QuestionType == "" {
		return fmt.Sprintf("Exactly one of the %d options is correct.", len(c.Options))
	}
	return fmt.Sprintf("%s question: exactly one of the %d options is correct.", c.QuestionType, len(c.Options))
}
