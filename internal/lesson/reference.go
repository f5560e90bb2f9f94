package lesson

import "slices"

// Reference holds the language tables a lesson draws from. Presentation layers
// use it for hints; it has no effect on evaluation.
type Reference struct {
	Alphabet   []Letter     `yaml:"alphabet" json:"alphabet"`
	Vocabulary []VocabItem  `yaml:"vocabulary" json:"vocabulary"`
	Verbs      []VerbTable  `yaml:"verbs" json:"verbs"`
	Articles   []Article    `yaml:"articles" json:"articles"`
	Gender     []GenderRule `yaml:"gender_rules" json:"gender_rules"`
}

// Letter is one alphabet entry with its IPA value.
type Letter struct {
	Letter string `yaml:"letter" json:"letter"`
	IPA    string `yaml:"ipa" json:"ipa"`
	Notes  string `yaml:"notes,omitempty" json:"notes,omitempty"`
}

// VocabItem pairs an Ionian word with its English gloss.
type VocabItem struct {
	Ionian        string `yaml:"ionian" json:"ionian"`
	English       string `yaml:"english" json:"english"`
	Pronunciation string `yaml:"pronunciation,omitempty" json:"pronunciation,omitempty"`
}

// VerbTable is a present-tense conjugation table in pronoun order.
type VerbTable struct {
	Name  string     `yaml:"name" json:"name"`
	Forms []VerbForm `yaml:"forms" json:"forms"`
}

// VerbForm is a single pronoun/form pair.
type VerbForm struct {
	Pronoun string `yaml:"pronoun" json:"pronoun"`
	Form    string `yaml:"form" json:"form"`
}

// Article is a definite article for a gender/number slot.
type Article struct {
	Slot string `yaml:"slot" json:"slot"`
	Form string `yaml:"form" json:"form"`
}

// GenderRule lists the noun endings that mark a gender and number.
// "consonant" stands for any consonant ending.
type GenderRule struct {
	Gender  string   `yaml:"gender" json:"gender"`
	Number  string   `yaml:"number" json:"number"`
	Endings []string `yaml:"endings" json:"endings"`
	Notes   string   `yaml:"notes,omitempty" json:"notes,omitempty"`
}

// Verb looks up a conjugation table by name.
func (r Reference) Verb(name string) (VerbTable, bool) {
	for _, v := range r.Verbs {
		if v.Name == name {
			return v, true
		}
	}
	return VerbTable{}, false
}

// merge appends the tables from other.
func (r Reference) merge(other Reference) Reference {
	r.Alphabet = append(r.Alphabet, other.Alphabet...)
	r.Vocabulary = append(r.Vocabulary, other.Vocabulary...)
	r.Verbs = append(r.Verbs, other.Verbs...)
	r.Articles = append(r.Articles, other.Articles...)
	r.Gender = append(r.Gender, other.Gender...)
	return r
}

// clone copies every table so callers cannot reach the catalog's slices.
func (r Reference) clone() Reference {
	out := Reference{
		Alphabet:   slices.Clone(r.Alphabet),
		Vocabulary: slices.Clone(r.Vocabulary),
		Articles:   slices.Clone(r.Articles),
	}
	if r.Verbs != nil {
		out.Verbs = make([]VerbTable, len(r.Verbs))
		for i, v := range r.Verbs {
			out.Verbs[i] = VerbTable{Name: v.Name, Forms: slices.Clone(v.Forms)}
		}
	}
	if r.Gender != nil {
		out.Gender = make([]GenderRule, len(r.Gender))
		for i, g := range r.Gender {
			g.Endings = slices.Clone(g.Endings)
			out.Gender[i] = g
		}
	}
	return out
}
