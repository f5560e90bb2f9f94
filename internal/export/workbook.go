// Package export writes a lesson catalog as an Excel workbook for content
// review.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-ionian/internal/lesson"
	"github.com/p-n-ai/pai-ionian/internal/progress"
)

// Sheet names, in workbook order.
const (
	SheetSteps      = "Steps"
	SheetVerbs      = "Verbs"
	SheetVocabulary = "Vocabulary"
	SheetAlphabet   = "Alphabet"
	SheetArticles   = "Articles"
	SheetGender     = "Gender"
)

const optionSeparator = " | "

type sheet struct {
	name   string
	header []any
	widths []float64
	rows   [][]any
}

// WriteCatalog writes every lesson step and reference table to w as .xlsx.
func WriteCatalog(w io.Writer, cat *lesson.Catalog) error {
	if cat == nil {
		return fmt.Errorf("catalog is nil")
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDEBF7"}},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	sheets := []sheet{stepsSheet(cat)}
	sheets = append(sheets, referenceSheets(cat.Reference())...)

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(s.name); err != nil {
			return fmt.Errorf("create sheet %s: %w", s.name, err)
		}
		if err := writeSheet(f, s, headerStyle); err != nil {
			return err
		}
	}
	f.SetActiveSheet(0)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, s sheet, headerStyle int) error {
	if err := f.SetSheetRow(s.name, "A1", &s.header); err != nil {
		return fmt.Errorf("%s header: %w", s.name, err)
	}
	if err := f.SetRowStyle(s.name, 1, 1, headerStyle); err != nil {
		return fmt.Errorf("%s header style: %w", s.name, err)
	}
	for i, row := range s.rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(s.name, cell, &row); err != nil {
			return fmt.Errorf("%s row %d: %w", s.name, i+2, err)
		}
	}
	for i, width := range s.widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(s.name, col, col, width); err != nil {
			return fmt.Errorf("%s column width: %w", s.name, err)
		}
	}
	return f.SetPanes(s.name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func stepsSheet(cat *lesson.Catalog) sheet {
	s := sheet{
		name:   SheetSteps,
		header: []any{"Lesson", "Step", "Kind", "Question type", "Prompt", "Options", "Answer"},
		widths: []float64{36, 6, 18, 22, 60, 40, 30},
	}
	for _, l := range cat.Lessons() {
		for i, step := range l.Steps {
			s.rows = append(s.rows, stepRow(l.Name, i, step))
		}
	}
	return s
}

func stepRow(lessonName string, i int, step lesson.Step) []any {
	var questionType, options string
	switch st := step.(type) {
	case lesson.ChoiceStep:
		c := st.ChoiceQuestion()
		questionType = c.QuestionType
		options = strings.Join(c.Options, optionSeparator)
	case lesson.SentenceBuilder:
		questionType = st.QuestionType
		options = strings.Join(st.Options, optionSeparator)
	case lesson.Match:
		questionType = st.QuestionType
	}
	return []any{
		lessonName,
		i + 1,
		string(step.Kind()),
		questionType,
		lesson.Prompt(step),
		options,
		progress.Expected(step),
	}
}

func referenceSheets(ref lesson.Reference) []sheet {
	verbs := sheet{
		name:   SheetVerbs,
		header: []any{"Verb", "Pronoun", "Form"},
		widths: []float64{24, 14, 14},
	}
	for _, v := range ref.Verbs {
		for _, form := range v.Forms {
			verbs.rows = append(verbs.rows, []any{v.Name, form.Pronoun, form.Form})
		}
	}

	vocab := sheet{
		name:   SheetVocabulary,
		header: []any{"Ionian", "English", "Pronunciation"},
		widths: []float64{20, 20, 20},
	}
	for _, v := range ref.Vocabulary {
		vocab.rows = append(vocab.rows, []any{v.Ionian, v.English, v.Pronunciation})
	}

	alphabet := sheet{
		name:   SheetAlphabet,
		header: []any{"Letter", "IPA", "Notes"},
		widths: []float64{8, 10, 36},
	}
	for _, l := range ref.Alphabet {
		alphabet.rows = append(alphabet.rows, []any{l.Letter, l.IPA, l.Notes})
	}

	articles := sheet{
		name:   SheetArticles,
		header: []any{"Slot", "Form"},
		widths: []float64{22, 8},
	}
	for _, a := range ref.Articles {
		articles.rows = append(articles.rows, []any{a.Slot, a.Form})
	}

	gender := sheet{
		name:   SheetGender,
		header: []any{"Gender", "Number", "Endings", "Notes"},
		widths: []float64{12, 10, 28, 48},
	}
	for _, g := range ref.Gender {
		gender.rows = append(gender.rows, []any{g.Gender, g.Number, strings.Join(g.Endings, ", "), g.Notes})
	}

	return []sheet{verbs, vocab, alphabet, articles, gender}
}
