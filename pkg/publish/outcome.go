package publish

import "time"

// StepStatus is the result of one workflow step.
type StepStatus string

const (
	// StepDone marks a completed mandatory step.
	StepDone StepStatus = "done"
	// StepFailed marks a mandatory step whose failure ended the run.
	StepFailed StepStatus = "failed"

	StepApplied        StepStatus = "applied"
	StepSkipped        StepStatus = "skipped"
	StepFailedNonFatal StepStatus = "failed-non-fatal"
)

// StepReport records one step of a run.
type StepReport struct {
	Name     string        `json:"name"`
	Status   StepStatus    `json:"status"`
	Detail   string        `json:"detail,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Outcome is the single result of one publish request.
type Outcome struct {
	Succeeded  bool          `json:"success"`
	Message    string        `json:"message"`
	Kind       Kind          `json:"kind"`
	Title      string        `json:"title,omitempty"`
	ArticleID  string        `json:"article_id,omitempty"`
	RunID      string        `json:"run_id"`
	URL        string        `json:"url,omitempty"`
	Steps      []StepReport  `json:"steps,omitempty"`
	Screenshot string        `json:"screenshot,omitempty"`
	PageDump   string        `json:"page_dump,omitempty"`
	Started    time.Time     `json:"started"`
	Duration   time.Duration `json:"duration"`

	// Err is the failure cause; nil when Succeeded.
	Err error `json:"-"`
}

// Step returns the report for name, if recorded.
func (o Outcome) Step(name string) (StepReport, bool) {
	for _, s := range o.Steps {
		if s.Name == name {
			return s, true
		}
	}
	return StepReport{}, false
}

// Kind distinguishes the two content types.
type Kind string

const (
	KindArticle Kind = "article"
	KindMicro   Kind = "micro_post"
)
