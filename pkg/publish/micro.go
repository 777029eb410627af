package publish

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Micro-post step names.
const (
	StepEditor   = "editor"
	StepImages   = "images"
	StepLocation = "location"
	StepPublish  = "publish"
	StepConfirm  = "confirm_dialog"
	StepSuccess  = "success_detection"
)

// PublishMicroPost runs the micro-post workflow:
//
//	Init → BodySet → ImagesAttached? → PublishClicked →
//	ConfirmDialogHandled? → SuccessDetected
//
// Images beyond MaxMicroImages are dropped with a warning.
func (e *Engine) PublishMicroPost(ctx context.Context, req MicroPostRequest) Outcome {
	if err := req.Validate(); err != nil {
		return Outcome{Kind: KindMicro, Message: err.Error(), Err: err}
	}
	if dropped := req.capImages(); dropped > 0 {
		e.logger.Warnf("micro-post carries more than %d images, dropping %d", MaxMicroImages, dropped)
	}

	return e.execute(ctx, KindMicro, "", e.cfg.MicroURL, req.Images, func(r *run) (string, error) {
		return r.micro(req)
	})
}

func (r *run) micro(req MicroPostRequest) (string, error) {
	sel := r.engine.cfg.Selectors.Micro
	timing := r.engine.cfg.Timing

	if err := r.step(StepEditor, func() error {
		el, err := r.locate(StepEditor, sel.Editor, timing.Editor)
		if err != nil {
			return err
		}
		text := req.Text()
		tag, _ := el.TagName()
		if tag == "textarea" || tag == "input" {
			err = setValue(el, text)
		} else {
			err = setHTML(el, ParagraphHTML(text))
		}
		if err != nil {
			return err
		}
		return r.settle(timing.AfterField)
	}); err != nil {
		return "", err
	}

	r.optional(StepImages, func() (StepStatus, string, error) {
		if len(req.Images) == 0 {
			return StepSkipped, "no images", nil
		}
		if err := r.attachImages(sel, req.Images); err != nil {
			return StepFailedNonFatal, "", err
		}
		return StepApplied, fmt.Sprintf("%d images", len(req.Images)), nil
	})

	r.optional(StepLocation, func() (StepStatus, string, error) {
		if req.Location == "" {
			return StepSkipped, "", nil
		}
		return StepSkipped, "recorded only: " + req.Location, nil
	})

	r.optional(StepSchedule, func() (StepStatus, string, error) {
		if req.ScheduledAt == nil {
			return StepSkipped, "", nil
		}
		return StepSkipped, "recorded only: " + req.ScheduledAt.Format("2006-01-02 15:04"), nil
	})

	if err := r.step(StepPublish, func() error {
		el, err := r.locate(StepPublish, sel.Publish, timing.Field)
		if err != nil {
			return err
		}
		if err := jsClick(el); err != nil {
			return err
		}
		return r.settle(timing.AfterField)
	}); err != nil {
		return "", err
	}

	r.optional(StepConfirm, func() (StepStatus, string, error) {
		el, _, err := r.find.find(r.ctx, sel.Confirm, timing.ConfirmDialog, interactable)
		if err != nil {
			return StepSkipped, "no confirmation dialog", nil
		}
		if err := jsClick(el); err != nil {
			return StepFailedNonFatal, "", err
		}
		return StepApplied, "", nil
	})

	if err := r.step(StepSuccess, func() error {
		return r.detectSuccess(sel)
	}); err != nil {
		return "", err
	}

	return "微头条发布成功", nil
}

func (r *run) attachImages(sel MicroSelectors, images []string) error {
	timing := r.engine.cfg.Timing

	button, _, err := r.find.find(r.ctx, sel.ImageButton, timing.Field, interactable)
	if err != nil {
		return fmt.Errorf("image button: %w", err)
	}
	if err := jsClick(button); err != nil {
		return fmt.Errorf("image button: %w", err)
	}

	for i, path := range images {
		input, _, err := r.find.find(r.ctx, sel.FileInput, timing.Field, attached)
		if err != nil {
			return fmt.Errorf("file input for image %d: %w", i+1, err)
		}
		if err := input.SetInputFiles([]string{path}); err != nil {
			return fmt.Errorf("attach image %d: %w", i+1, err)
		}
		if err := r.settle(timing.PerImage); err != nil {
			return err
		}
	}
	return nil
}

// detectSuccess waits for the success marker, then falls back to the URL
// and the page markup. It fails only when every tier misses.
func (r *run) detectSuccess(sel MicroSelectors) error {
	_, _, err := r.find.find(r.ctx, sel.SuccessMarker, r.engine.cfg.Timing.SuccessMarker, attached)
	if err == nil {
		return nil
	}
	if !errors.Is(err, errNotFound) {
		return err
	}

	if sel.SuccessURL != "" && strings.Contains(r.page.URL(), sel.SuccessURL) {
		r.logger.Infof("success inferred from url %s", r.page.URL())
		return nil
	}

	markup, cerr := r.page.Content()
	if cerr == nil && SuccessInMarkup(markup, sel.SuccessToasts) {
		r.logger.Infof("success inferred from page markup")
		return nil
	}

	return &StepError{Step: StepSuccess, Selector: strings.Join(sel.SuccessMarker, " | "), Err: errors.New("no success indication")}
}

// SuccessInMarkup reports whether the page shows a success toast or the word
// "success".
func SuccessInMarkup(markup string, toasts []string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err == nil {
		for _, t := range toasts {
			if doc.Find(t).Length() > 0 {
				return true
			}
		}
	}
	return strings.Contains(strings.ToLower(markup), "success")
}
