package publish

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Article step names.
const (
	StepDismissOverlay = "dismiss_overlay"
	StepPageReady      = "page_ready"
	StepTitle          = "title"
	StepBody           = "body"
	StepCover          = "cover"
	StepTags           = "tags"
	StepCategory       = "category"
	StepSchedule       = "schedule"
	StepOriginal       = "original"
	StepPreview        = "preview"
	StepFinalConfirm   = "final_confirm"
)

// PublishArticle runs the article workflow:
//
//	Init → TitleSet → BodySet → CoverUploaded? → TagsApplied? →
//	PreviewRequested → PreviewConfirmed → Published
//
// Succeeded means the final submission was issued; the platform's
// asynchronous review result is not observed.
func (e *Engine) PublishArticle(ctx context.Context, req ArticleRequest) Outcome {
	if err := req.Validate(); err != nil {
		return Outcome{Kind: KindArticle, Title: req.Title, Message: err.Error(), Err: err}
	}
	req.Title = strings.TrimSpace(req.Title)

	out := e.execute(ctx, KindArticle, req.Title, e.cfg.ArticleURL, req.localPaths(), func(r *run) (string, error) {
		return r.article(req)
	})
	out.ArticleID = ArticleID(out.URL)
	return out
}

func (r *run) article(req ArticleRequest) (string, error) {
	sel := r.engine.cfg.Selectors.Article
	timing := r.engine.cfg.Timing

	r.optional(StepDismissOverlay, func() (StepStatus, string, error) {
		return r.dismissOverlay(sel.Mask)
	})

	if err := r.step(StepPageReady, func() error {
		_, err := r.locate(StepPageReady, sel.PageReady, timing.PageReady)
		return err
	}); err != nil {
		return "", err
	}

	if err := r.step(StepTitle, func() error {
		el, err := r.locate(StepTitle, sel.Title, timing.Field)
		if err != nil {
			return err
		}
		if err := setValue(el, req.Title); err != nil {
			return err
		}
		return r.settle(timing.AfterField)
	}); err != nil {
		return "", err
	}

	if err := r.step(StepBody, func() error {
		for _, p := range sel.Placeholder {
			// The placeholder overlays the editor until the first keystroke.
			_, _ = r.page.Evaluate(scriptHide, p)
		}
		el, err := r.locate(StepBody, sel.Body, timing.Field)
		if err != nil {
			return err
		}
		if err := setHTML(el, ParagraphHTML(req.Body)); err != nil {
			return err
		}
		return r.settle(timing.AfterField)
	}); err != nil {
		return "", err
	}

	r.optional(StepCover, func() (StepStatus, string, error) {
		cover := req.CoverPath()
		if cover == "" {
			return StepSkipped, "no cover image", nil
		}
		if err := r.uploadCover(sel, cover); err != nil {
			// Leave no half-open upload drawer over the publish controls.
			_ = r.page.PressKey("Escape")
			return StepFailedNonFatal, "", err
		}
		return StepApplied, cover, nil
	})

	r.optional(StepTags, func() (StepStatus, string, error) {
		if len(req.Tags) == 0 {
			return StepSkipped, "no tags", nil
		}
		el, _, err := r.find.find(r.ctx, sel.Tags, timing.OptionalControl, interactable)
		if err != nil {
			return StepSkipped, "no tag input on page", nil
		}
		for _, tag := range req.Tags {
			if err := el.Type(tag); err != nil {
				return StepFailedNonFatal, "", err
			}
			if err := el.Press("Enter"); err != nil {
				return StepFailedNonFatal, "", err
			}
		}
		return StepApplied, strings.Join(req.Tags, ","), nil
	})

	r.optional(StepCategory, func() (StepStatus, string, error) {
		if req.Category == "" {
			return StepSkipped, "", nil
		}
		return StepSkipped, "recorded only: " + req.Category, nil
	})

	r.optional(StepSchedule, func() (StepStatus, string, error) {
		if req.ScheduledAt == nil {
			return StepSkipped, "", nil
		}
		return StepSkipped, "recorded only: " + req.ScheduledAt.Format("2006-01-02 15:04"), nil
	})

	r.optional(StepOriginal, func() (StepStatus, string, error) {
		if !req.Original {
			return StepSkipped, "", nil
		}
		el, _, err := r.find.find(r.ctx, sel.Original, timing.OptionalControl, interactable)
		if err != nil {
			return StepSkipped, "no originality control on page", nil
		}
		if err := jsClick(el); err != nil {
			return StepFailedNonFatal, "", err
		}
		return StepApplied, "", nil
	})

	if err := r.step(StepPreview, func() error {
		el, err := r.locate(StepPreview, sel.Preview, timing.Preview)
		if err != nil {
			r.logger.Infof("preview button not found, trying generic publish button")
			el, err = r.locate(StepPreview, sel.PreviewFallback, timing.PreviewFallback)
			if err != nil {
				return err
			}
		}
		if err := jsClick(el); err != nil {
			return err
		}
		return r.settle(timing.AfterPreview)
	}); err != nil {
		return "", err
	}

	if err := r.step(StepFinalConfirm, func() error {
		if sel.FinalConfirm == "" {
			return errors.New("no final confirm selector configured")
		}
		el, err := r.locate(StepFinalConfirm, Chain{sel.FinalConfirm}, timing.FinalConfirm)
		if err != nil {
			return err
		}
		if err := jsClick(el); err != nil {
			return &StepError{Step: StepFinalConfirm, Selector: sel.FinalConfirm, Err: err}
		}
		return r.settle(timing.AfterConfirm)
	}); err != nil {
		return "", err
	}

	return "文章发布成功", nil
}

// dismissOverlay clears a drawer mask left over from a previous session.
func (r *run) dismissOverlay(mask Chain) (StepStatus, string, error) {
	for _, sel := range mask {
		el, ok := r.find.first(sel, interactable)
		if !ok {
			continue
		}
		if err := jsClick(el); err != nil {
			r.logger.Debugf("mask click failed: %v", err)
		}
		_ = r.page.PressKey("Escape")
		return StepApplied, sel, nil
	}
	return StepSkipped, "", nil
}

// uploadCover runs the cover sub-protocol. Each control tries its primary
// chain first, then the broader fallback chain.
func (r *run) uploadCover(sel ArticleSelectors, path string) error {
	timing := r.engine.cfg.Timing

	clickEither := func(what string, primary, fallback Chain) error {
		el, _, err := r.find.find(r.ctx, append(append(Chain{}, primary...), fallback...), timing.CoverControl, interactable)
		if err != nil {
			return fmt.Errorf("%s: %w", what, err)
		}
		if err := jsClick(el); err != nil {
			return fmt.Errorf("%s: %w", what, err)
		}
		return r.settle(timing.AfterField)
	}

	if err := clickEither("add cover", sel.CoverAdd, sel.CoverAddFallback); err != nil {
		return err
	}
	if len(sel.CoverUpload) > 0 {
		if err := clickEither("upload local", sel.CoverUpload, nil); err != nil {
			return err
		}
	}

	input, _, err := r.find.find(r.ctx, append(append(Chain{}, sel.CoverInput...), sel.CoverInputFallback...), timing.CoverControl, attached)
	if err != nil {
		return fmt.Errorf("cover file input: %w", err)
	}
	if err := input.SetInputFiles([]string{path}); err != nil {
		return fmt.Errorf("set cover file: %w", err)
	}

	confirm, _, err := r.find.find(r.ctx, append(append(Chain{}, sel.CoverConfirm...), sel.CoverConfirmAlt...), timing.CoverConfirm, interactable)
	if err != nil {
		return fmt.Errorf("cover confirm: %w", err)
	}
	if err := jsClick(confirm); err != nil {
		return fmt.Errorf("cover confirm: %w", err)
	}
	return r.settle(timing.AfterField)
}

// ArticleID extracts the article id from an editor or result URL.
func ArticleID(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	q := u.Query()
	for _, key := range []string{"pgc_id", "id", "article_id"} {
		if v := q.Get(key); v != "" {
			return v
		}
	}
	return ""
}
