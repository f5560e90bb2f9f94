package progress

import "github.com/p-n-ai/pai-ionian/internal/lesson"

// RestartNotice is shown in place of a step when the score ran out.
var RestartNotice = lesson.Info{
	Title:   "Restarting Module",
	Content: "Your accuracy score reached zero. You must restart the review module to continue.",
}

// Frame describes what a presentation layer should show next.
type Frame struct {
	// Step is the step to render. It is RestartNotice when Restarted is set
	// and nil when Complete is set.
	Step      lesson.Step
	Index     int
	Total     int
	Score     int
	Progress  float64
	Complete  bool
	Restarted bool
}

// Frame runs one render cycle. An exhausted session is reset here, and the
// frame carries RestartNotice instead of the first step.
func (s *Session) Frame() Frame {
	if s.State() == Exhausted {
		s.Reset()
		return Frame{
			Step:      RestartNotice,
			Index:     s.stepIndex,
			Total:     s.TotalSteps(),
			Score:     s.score,
			Restarted: true,
		}
	}

	step := s.CurrentStep()
	return Frame{
		Step:     step,
		Index:    s.stepIndex,
		Total:    s.TotalSteps(),
		Score:    s.score,
		Progress: s.Progress(),
		Complete: step == nil,
	}
}

// Next handles the learner's "next" intent: an exhausted session restarts,
// any other session advances one step.
func (s *Session) Next() Frame {
	if s.State() == Exhausted {
		s.Reset()
	} else {
		s.Advance()
	}
	return s.Frame()
}
