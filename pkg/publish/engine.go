// Package publish drives the creator backend's editors to publish articles
// and micro-posts.
//
// Each request runs as a linear state machine on its own browser: the engine
// launches an instance, seeds it with the stored session, opens the editor,
// and walks the workflow's steps. Mandatory steps end the run on failure and
// leave a screenshot and a cleaned page dump behind; optional steps report
// applied, skipped or failed-non-fatal and never end the run. The browser is
// closed on every path, including panics.
package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/entrhq/headline/pkg/browser"
	"github.com/entrhq/headline/pkg/logging"
	"github.com/entrhq/headline/pkg/media"
	"github.com/entrhq/headline/pkg/poll"
	"github.com/entrhq/headline/pkg/session"
)

// Default platform locations.
const (
	DefaultOrigin     = "https://mp.toutiao.com"
	DefaultArticleURL = "https://mp.toutiao.com/profile_v4/graphic/publish"
	DefaultMicroURL   = "https://mp.toutiao.com/profile_v4/ugc/weitt-new"
)

// Observer receives step and run results, e.g. for metrics.
type Observer interface {
	StepFinished(kind Kind, step string, status StepStatus)
	RunFinished(kind Kind, succeeded bool, elapsed time.Duration)
}

// Config configures an Engine.
type Config struct {
	Origin     string
	ArticleURL string
	MicroURL   string

	Headless     bool
	UserAgent    string
	ArtifactsDir string

	Selectors Selectors
	Timing    Timing

	// MaxImageBytes bounds local image files; zero disables the size check.
	MaxImageBytes int64
}

func (c *Config) setDefaults() {
	if c.Origin == "" {
		c.Origin = DefaultOrigin
	}
	if c.ArticleURL == "" {
		c.ArticleURL = DefaultArticleURL
	}
	if c.MicroURL == "" {
		c.MicroURL = DefaultMicroURL
	}
	if c.UserAgent == "" {
		c.UserAgent = session.DefaultUserAgent
	}
	if c.ArtifactsDir == "" {
		c.ArtifactsDir = filepath.Join(os.TempDir(), "headline-artifacts")
	}
	c.Selectors = DefaultSelectors().Merge(c.Selectors)
	c.Timing = c.Timing.withDefaults()
}

// Engine runs publish workflows.
type Engine struct {
	launcher browser.Launcher
	store    session.Store
	cfg      Config
	observer Observer
	logger   *logging.Logger
}

// NewEngine creates an engine. observer may be nil.
func NewEngine(launcher browser.Launcher, store session.Store, cfg Config, observer Observer, logger *logging.Logger) *Engine {
	cfg.setDefaults()
	if logger == nil {
		logger = logging.Discard()
	}
	return &Engine{
		launcher: launcher,
		store:    store,
		cfg:      cfg,
		observer: observer,
		logger:   logger,
	}
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// run is the state of one workflow execution.
type run struct {
	ctx    context.Context
	engine *Engine
	kind   Kind
	id     string
	page   browser.Page
	find   locator
	steps  []StepReport
	logger *logging.Logger
}

// execute performs the shared run lifecycle around workflow.
func (e *Engine) execute(ctx context.Context, kind Kind, title, target string, images []string, workflow func(r *run) (string, error)) (out Outcome) {
	start := time.Now()
	r := &run{
		ctx:    ctx,
		engine: e,
		kind:   kind,
		id:     uuid.NewString(),
	}
	r.logger = e.logger.With(r.id[:8])
	out = Outcome{Kind: kind, Title: title, RunID: r.id, Started: start}

	defer func() {
		if p := recover(); p != nil {
			out.Succeeded = false
			out.Err = fmt.Errorf("workflow panic: %v", p)
			out.Message = out.Err.Error()
		}
		out.Steps = r.steps
		out.Duration = time.Since(start)
		if e.observer != nil {
			e.observer.RunFinished(kind, out.Succeeded, out.Duration)
		}
		if out.Succeeded {
			r.logger.Infof("%s published in %s", kind, logging.Elapsed(start))
		} else {
			r.logger.Warnf("%s failed after %s: %s", kind, logging.Elapsed(start), out.Message)
		}
	}()

	fail := func(err error) Outcome {
		out.Err = err
		out.Message = failureMessage(err)
		return out
	}

	if err := media.ValidateLocal(images, e.cfg.MaxImageBytes); err != nil {
		return fail(fmt.Errorf("%w: %w", ErrInvalidRequest, err))
	}

	sess := e.store.Load()
	if sess.Empty() {
		return fail(&AuthError{Reason: "no stored session"})
	}

	b, err := e.launcher.Launch(ctx, browser.LaunchOptions{Headless: e.cfg.Headless, UserAgent: e.cfg.UserAgent})
	if err != nil {
		return fail(fmt.Errorf("launch browser: %w", err))
	}
	defer func() {
		if cerr := b.Close(); cerr != nil {
			r.logger.Warnf("failed to close browser: %v", cerr)
		}
	}()

	// Caller cancellation stops at launch: a launched run always reaches a
	// terminal state, bounded by Timing.Run.
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.Timing.Run)
	defer cancel()
	r.ctx = runCtx

	r.page = b.Page()
	r.find = locator{page: r.page, interval: e.cfg.Timing.Poll}

	defer func() {
		if p := recover(); p != nil {
			err := &StepError{Step: "panic", Err: fmt.Errorf("%v", p)}
			r.logger.Errorf("workflow panic: %v", p)
			r.capture(&out, err.Step)
			out.Succeeded = false
			out.Err = err
			out.Message = failureMessage(err)
		}
	}()

	if _, err := browser.Seed(r.ctx, b, sess, e.cfg.Origin, r.logger); err != nil {
		return fail(fmt.Errorf("seed session: %w", err))
	}

	if err := r.open(target); err != nil {
		var se *StepError
		if errors.As(err, &se) {
			r.capture(&out, se.Step)
			se.Screenshot = out.Screenshot
		}
		return fail(err)
	}

	msg, err := workflow(r)
	out.URL = r.page.URL()
	if err != nil {
		var se *StepError
		if errors.As(err, &se) {
			r.capture(&out, se.Step)
			se.Screenshot = out.Screenshot
		}
		return fail(err)
	}

	out.Succeeded = true
	out.Message = msg
	return out
}

// open navigates to the editor and rejects login redirects.
func (r *run) open(target string) error {
	if err := r.page.Goto(target); err != nil {
		return &StepError{Step: "open_editor", Err: err}
	}
	if err := r.settle(r.engine.cfg.Timing.AfterNavigate); err != nil {
		return err
	}
	if LoginRedirect(r.page.URL()) {
		return &AuthError{Reason: "redirected to " + r.page.URL()}
	}
	return nil
}

// LoginRedirect reports whether url is a login or auth page.
func LoginRedirect(url string) bool {
	u := strings.ToLower(url)
	return strings.Contains(u, "login") || strings.Contains(u, "auth")
}

// step runs a mandatory step and records it.
func (r *run) step(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	report := StepReport{Name: name, Status: StepDone, Duration: time.Since(start)}
	if err != nil {
		report.Status = StepFailed
		report.Detail = err.Error()
		var se *StepError
		if !errors.As(err, &se) {
			err = &StepError{Step: name, Err: err}
		}
	}
	r.record(report)
	return err
}

// optional runs a non-fatal step. An error demotes the step to
// failed-non-fatal; the run continues.
func (r *run) optional(name string, fn func() (StepStatus, string, error)) StepStatus {
	start := time.Now()
	status, detail, err := fn()
	if err != nil {
		status = StepFailedNonFatal
		detail = err.Error()
		r.logger.Warnf("optional step %s failed: %v", name, err)
	}
	r.record(StepReport{Name: name, Status: status, Detail: detail, Duration: time.Since(start)})
	return status
}

func (r *run) record(report StepReport) {
	r.steps = append(r.steps, report)
	r.logger.Debugf("step %s: %s %s", report.Name, report.Status, report.Detail)
	if obs := r.engine.observer; obs != nil {
		obs.StepFinished(r.kind, report.Name, report.Status)
	}
}

// locate finds an interactable element, wrapping a miss as a StepError.
func (r *run) locate(step string, chain Chain, bound time.Duration) (browser.Element, error) {
	el, sel, err := r.find.find(r.ctx, chain, bound, interactable)
	if err != nil {
		return nil, &StepError{Step: step, Selector: sel, Err: err}
	}
	return el, nil
}

func (r *run) settle(d time.Duration) error {
	return poll.Sleep(r.ctx, d)
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// capture writes the screenshot and page dump for a failed step.
func (r *run) capture(out *Outcome, step string) {
	if r.page == nil {
		return
	}
	dir := r.engine.cfg.ArtifactsDir
	if err := os.MkdirAll(dir, 0o750); err != nil {
		r.logger.Warnf("cannot create artifacts dir %s: %v", dir, err)
		return
	}
	base := filepath.Join(dir, fmt.Sprintf("%s-%s", r.id, unsafeName.ReplaceAllString(step, "_")))

	shot := base + ".png"
	if err := r.page.Screenshot(shot); err != nil {
		r.logger.Warnf("screenshot failed: %v", err)
	} else {
		out.Screenshot = shot
	}

	raw, err := r.page.Content()
	if err != nil {
		r.logger.Warnf("page content unavailable: %v", err)
		return
	}
	cleaned, err := browser.CleanPage(raw, browser.DefaultDumpLength)
	if err != nil {
		r.logger.Warnf("page dump failed: %v", err)
		return
	}
	dump := base + ".html"
	if err := os.WriteFile(dump, []byte(cleaned.HTML), 0o600); err != nil {
		r.logger.Warnf("writing page dump failed: %v", err)
		return
	}
	out.PageDump = dump
	r.logger.Infof("failure artifacts for step %s: %s, %s", step, out.Screenshot, out.PageDump)
}

func failureMessage(err error) string {
	if IsAuth(err) {
		return AuthMessage
	}
	return err.Error()
}
