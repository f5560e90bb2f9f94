package agent

import (
	"fmt"
	"strings"

	"github.com/p-n-ai/pai-ionian/internal/lesson"
	"github.com/p-n-ai/pai-ionian/internal/progress"
)

const helpText = `Commands:
/start - begin the review from the first step
/next - continue after reading or answering
/hint - show a hint for the current question
/dismiss - hide the hint
/undo - remove the last word of your sentence
/clear - remove every word of your sentence
/check - submit your sentence
/restart - restart the lesson from step one`

// renderFrame formats one step for a chat message.
func renderFrame(lessonName string, f progress.Frame, conv *Conversation, hint string) string {
	if f.Complete {
		return renderComplete(lessonName, f.Score)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\nStep %d/%d · Score %d/%d\n\n", lessonName, f.Index+1, f.Total, f.Score, progress.MaxAccuracy)

	switch s := f.Step.(type) {
	case lesson.Info:
		renderInfo(&b, s)
		if f.Restarted {
			b.WriteString("\n\nSend /next to start again.")
		} else if f.Index == 0 {
			b.WriteString("\n\nSend /next to begin the review.")
		} else {
			b.WriteString("\n\nSend /next to continue.")
		}
	case lesson.Match:
		renderInfo(&b, s.Placeholder())
		b.WriteString("\n\nSend /next to continue.")
	case lesson.ChoiceStep:
		c := s.ChoiceQuestion()
		b.WriteString(c.Prompt)
		b.WriteString("\n")
		for i, opt := range c.Options {
			fmt.Fprintf(&b, "\n%d) %s", i+1, opt)
		}
		b.WriteString("\n\nReply with the number of your answer.")
	case lesson.SentenceBuilder:
		b.WriteString(s.Prompt)
		b.WriteString("\n\n")
		b.WriteString(renderAssembly(conv))
	}

	if hint != "" {
		b.WriteString("\n\nHint: ")
		b.WriteString(hint)
	}
	return b.String()
}

func renderInfo(b *strings.Builder, info lesson.Info) {
	b.WriteString(info.Title)
	if info.Content != "" {
		b.WriteString("\n\n")
		b.WriteString(info.Content)
	}
}

// renderAssembly shows the sentence so far and the numbered remaining words.
func renderAssembly(conv *Conversation) string {
	var b strings.Builder
	b.WriteString("Your sentence: ")
	if len(conv.Assembled) == 0 {
		b.WriteString("(empty)")
	} else {
		b.WriteString(strings.Join(conv.Assembled, " "))
	}
	b.WriteString("\nWords:")
	if len(conv.PoolOrder) == 0 {
		b.WriteString(" (none left)")
	}
	for i, w := range conv.PoolOrder {
		fmt.Fprintf(&b, " %d) %s", i+1, w)
	}
	b.WriteString("\n\nReply with word numbers or words to place them. /undo, /clear, /check.")
	return b.String()
}

func renderVerdict(v progress.Verdict) string {
	switch {
	case v.Correct:
		return "Correct. Proceed to the next step.\n\nSend /next to continue."
	case v.Exhausted:
		return fmt.Sprintf("Module Failed. The correct answer was %q. Please restart the lesson.\n\nSend /next to restart the module.", v.Expected)
	default:
		return fmt.Sprintf("Error. The correct answer was %q. Score remaining: %d/%d.\n\nSend /next to continue.", v.Expected, v.Score, progress.MaxAccuracy)
	}
}

func renderComplete(lessonName string, score int) string {
	return fmt.Sprintf("Module Review Complete!\n\nYou have successfully mastered %s. Your final accuracy score was %d/%d.\n\nSend /restart to review again.",
		lessonName, score, progress.MaxAccuracy)
}
