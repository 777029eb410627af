package publish

import "time"

// Timing holds every wait bound and settle delay of the workflows.
type Timing struct {
	Poll time.Duration `yaml:"poll"`
	// Run bounds a whole run once its browser is launched.
	Run time.Duration `yaml:"run"`

	// Step bounds.
	PageReady       time.Duration `yaml:"page_ready"`
	Field           time.Duration `yaml:"field"`
	Preview         time.Duration `yaml:"preview"`
	PreviewFallback time.Duration `yaml:"preview_fallback"`
	FinalConfirm    time.Duration `yaml:"final_confirm"`
	CoverControl    time.Duration `yaml:"cover_control"`
	CoverConfirm    time.Duration `yaml:"cover_confirm"`
	OptionalControl time.Duration `yaml:"optional_control"`
	Editor          time.Duration `yaml:"editor"`
	ConfirmDialog   time.Duration `yaml:"confirm_dialog"`
	SuccessMarker   time.Duration `yaml:"success_marker"`

	// Settle delays.
	AfterNavigate time.Duration `yaml:"after_navigate"`
	AfterField    time.Duration `yaml:"after_field"`
	AfterPreview  time.Duration `yaml:"after_preview"`
	AfterConfirm  time.Duration `yaml:"after_confirm"`
	PerImage      time.Duration `yaml:"per_image"`
}

// DefaultTiming returns the production bounds.
func DefaultTiming() Timing {
	return Timing{
		Poll: 250 * time.Millisecond,
		Run:  10 * time.Minute,

		PageReady:       20 * time.Second,
		Field:           10 * time.Second,
		Preview:         10 * time.Second,
		PreviewFallback: 10 * time.Second,
		FinalConfirm:    10 * time.Second,
		CoverControl:    10 * time.Second,
		CoverConfirm:    30 * time.Second,
		OptionalControl: 3 * time.Second,
		Editor:          15 * time.Second,
		ConfirmDialog:   5 * time.Second,
		SuccessMarker:   15 * time.Second,

		AfterNavigate: 3 * time.Second,
		AfterField:    time.Second,
		AfterPreview:  30 * time.Second,
		AfterConfirm:  5 * time.Second,
		PerImage:      3 * time.Second,
	}
}

// withDefaults fills zero fields from DefaultTiming.
func (t Timing) withDefaults() Timing {
	d := DefaultTiming()
	fill := func(v *time.Duration, def time.Duration) {
		if *v <= 0 {
			*v = def
		}
	}
	fill(&t.Poll, d.Poll)
	fill(&t.Run, d.Run)
	fill(&t.PageReady, d.PageReady)
	fill(&t.Field, d.Field)
	fill(&t.Preview, d.Preview)
	fill(&t.PreviewFallback, d.PreviewFallback)
	fill(&t.FinalConfirm, d.FinalConfirm)
	fill(&t.CoverControl, d.CoverControl)
	fill(&t.CoverConfirm, d.CoverConfirm)
	fill(&t.OptionalControl, d.OptionalControl)
	fill(&t.Editor, d.Editor)
	fill(&t.ConfirmDialog, d.ConfirmDialog)
	fill(&t.SuccessMarker, d.SuccessMarker)
	fill(&t.AfterNavigate, d.AfterNavigate)
	fill(&t.AfterField, d.AfterField)
	fill(&t.AfterPreview, d.AfterPreview)
	fill(&t.AfterConfirm, d.AfterConfirm)
	fill(&t.PerImage, d.PerImage)
	return t
}
