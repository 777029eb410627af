// Package login runs the interactive, human-in-the-loop login: it opens a
// visible browser on the platform login page and waits for the user to land
// on an authenticated page, then persists the browser's cookies.
package login

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gobwas/glob"

	"github.com/entrhq/headline/pkg/browser"
	"github.com/entrhq/headline/pkg/logging"
	"github.com/entrhq/headline/pkg/poll"
	"github.com/entrhq/headline/pkg/session"
)

// State is a step of the login state machine.
type State int

const (
	Idle State = iota
	BrowserOpened
	AwaitingUserAction
	Authenticated
	TimedOut
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case BrowserOpened:
		return "browser_opened"
	case AwaitingUserAction:
		return "awaiting_user_action"
	case Authenticated:
		return "authenticated"
	case TimedOut:
		return "timed_out"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Defaults for Options.
const (
	DefaultLoginURL      = "https://mp.toutiao.com/auth/page/login/"
	DefaultInterval      = time.Second
	DefaultCeiling       = 300 * time.Second
	DefaultProgressEvery = 30 * time.Second
)

// DefaultPatterns match the pages the platform lands on after a login.
var DefaultPatterns = []string{
	"*mp.toutiao.com/profile*",
	"*creator.toutiao.com*",
	"*mp.toutiao.com/dashboard*",
}

// ErrTimedOut is returned when the user did not complete the login in time.
var ErrTimedOut = errors.New("login: timed out waiting for the user")

// ErrNoCookies is returned when the browser holds no platform cookie after login.
var ErrNoCookies = errors.New("login: no platform cookies captured")

// Options configures a Flow.
type Options struct {
	LoginURL      string
	Patterns      []string
	Interval      time.Duration
	Ceiling       time.Duration
	ProgressEvery time.Duration
	UserAgent     string
}

func (o *Options) setDefaults() {
	if o.LoginURL == "" {
		o.LoginURL = DefaultLoginURL
	}
	if len(o.Patterns) == 0 {
		o.Patterns = DefaultPatterns
	}
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.Ceiling <= 0 {
		o.Ceiling = DefaultCeiling
	}
	if o.ProgressEvery <= 0 {
		o.ProgressEvery = DefaultProgressEvery
	}
}

// Result describes a finished login attempt.
type Result struct {
	State   State         `json:"-"`
	Status  string        `json:"status"`
	Message string        `json:"message"`
	Cookies int           `json:"cookies"`
	URL     string        `json:"url,omitempty"`
	Elapsed time.Duration `json:"elapsed"`
}

// Flow performs interactive logins. A Flow is safe to reuse but runs are not
// meant to overlap.
type Flow struct {
	launcher browser.Launcher
	store    session.Store
	opts     Options
	patterns []glob.Glob
	logger   *logging.Logger
}

// NewFlow compiles the destination patterns and returns a Flow.
func NewFlow(launcher browser.Launcher, store session.Store, opts Options, logger *logging.Logger) (*Flow, error) {
	opts.setDefaults()
	if logger == nil {
		logger = logging.Discard()
	}

	patterns := make([]glob.Glob, 0, len(opts.Patterns))
	for _, p := range opts.Patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("login: invalid destination pattern %q: %w", p, err)
		}
		patterns = append(patterns, g)
	}

	return &Flow{
		launcher: launcher,
		store:    store,
		opts:     opts,
		patterns: patterns,
		logger:   logger,
	}, nil
}

// Matches reports whether url is an authenticated destination.
func (f *Flow) Matches(url string) bool {
	for _, g := range f.patterns {
		if g.Match(url) {
			return true
		}
	}
	return false
}

// Run executes one login attempt. The browser is always headed and always
// closed before Run returns. A timeout is reported once and never retried.
func (f *Flow) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	res := Result{State: Idle}
	finish := func(state State, msg string) Result {
		res.State = state
		res.Status = state.String()
		res.Message = msg
		res.Elapsed = time.Since(start)
		return res
	}

	b, err := f.launcher.Launch(ctx, browser.LaunchOptions{Headless: false, UserAgent: f.opts.UserAgent})
	if err != nil {
		f.logger.Errorf("failed to open login browser: %v", err)
		return finish(Failed, "无法启动浏览器"), fmt.Errorf("login: launch browser: %w", err)
	}
	defer func() {
		if err := b.Close(); err != nil {
			f.logger.Warnf("failed to close login browser: %v", err)
		}
	}()
	res.State = BrowserOpened

	page := b.Page()
	if err := page.Goto(f.opts.LoginURL); err != nil {
		f.logger.Errorf("failed to open login page: %v", err)
		return finish(Failed, "无法打开登录页面"), fmt.Errorf("login: open login page: %w", err)
	}
	res.State = AwaitingUserAction
	f.logger.Infof("waiting up to %s for the user to log in at %s", f.opts.Ceiling, f.opts.LoginURL)

	lastProgress := start
	err = poll.Until(ctx, f.opts.Interval, f.opts.Ceiling, func() (bool, error) {
		current := page.URL()
		if f.Matches(current) {
			res.URL = current
			return true, nil
		}
		if time.Since(lastProgress) >= f.opts.ProgressEvery {
			lastProgress = time.Now()
			f.logger.Infof("still waiting for login (%s elapsed, at %s)", logging.Elapsed(start), current)
		}
		return false, nil
	})
	switch {
	case errors.Is(err, poll.ErrTimedOut):
		f.logger.Warnf("login timed out after %s", f.opts.Ceiling)
		return finish(TimedOut, "登录超时，请重试"), ErrTimedOut
	case err != nil:
		return finish(Failed, "登录已取消"), fmt.Errorf("login: %w", err)
	}

	cookies, err := b.Cookies()
	if err != nil {
		return finish(Failed, "无法读取浏览器Cookie"), fmt.Errorf("login: capture cookies: %w", err)
	}
	sess := session.Session{Cookies: cookies, CapturedAt: time.Now()}.Scoped()
	if sess.Empty() {
		return finish(Failed, "未获取到登录Cookie，请重试"), ErrNoCookies
	}
	if err := f.store.Save(sess); err != nil {
		return finish(Failed, "保存登录信息失败"), fmt.Errorf("login: save session: %w", err)
	}
	res.Cookies = len(sess.Cookies)

	f.logger.Infof("login completed, %d of %d cookies saved", len(sess.Cookies), len(cookies))
	return finish(Authenticated, "登录成功"), nil
}
