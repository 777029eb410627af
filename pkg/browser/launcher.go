package browser

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/headline/pkg/logging"
)

// PlaywrightLauncher launches Chromium instances and keeps a registry of the
// live ones.
type PlaywrightLauncher struct {
	mu          sync.Mutex
	instances   map[string]*instance
	playwright  *playwright.Playwright
	initialized bool
	logger      *logging.Logger
}

// NewPlaywrightLauncher creates a launcher. Playwright itself is started
// lazily by Initialize or the first Launch.
func NewPlaywrightLauncher(logger *logging.Logger) *PlaywrightLauncher {
	if logger == nil {
		logger = logging.Discard()
	}
	return &PlaywrightLauncher{
		instances: make(map[string]*instance),
		logger:    logger,
	}
}

// Initialize installs the Playwright driver and browsers if needed and starts
// the driver. It is safe to call more than once.
func (l *PlaywrightLauncher) Initialize() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.initializeLocked()
}

func (l *PlaywrightLauncher) initializeLocked() error {
	if l.initialized {
		return nil
	}

	// Keep driver output out of the structured log and the CLI.
	opts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}

	start := time.Now()
	if err := playwright.Install(opts); err != nil {
		return fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	l.playwright = pw
	l.initialized = true
	l.logger.Infof("playwright ready in %s", logging.Elapsed(start))
	return nil
}

// Launch starts a new instance with the fixed argument bundle and viewport.
func (l *PlaywrightLauncher) Launch(ctx context.Context, opts LaunchOptions) (Browser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.initializeLocked(); err != nil {
		return nil, err
	}

	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}

	headless := opts.Headless
	b, err := l.playwright.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: &headless,
		Args:     LaunchArgs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	contextOpts := playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  DefaultViewportWidth,
			Height: DefaultViewportHeight,
		},
	}
	if opts.UserAgent != "" {
		contextOpts.UserAgent = playwright.String(opts.UserAgent)
	}
	bctx, err := b.NewContext(contextOpts)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		bctx.Close()
		b.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	page.SetDefaultTimeout(opts.Timeout)

	inst := &instance{
		id:       uuid.NewString(),
		browser:  b,
		context:  bctx,
		page:     &pwPage{page: page},
		launcher: l,
	}
	l.instances[inst.id] = inst
	l.logger.Debugf("launched browser %s (headless=%v, live=%d)", inst.id, headless, len(l.instances))
	return inst, nil
}

// Live returns the number of instances that have not been closed.
func (l *PlaywrightLauncher) Live() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.instances)
}

// CloseAll force-closes every live instance.
func (l *PlaywrightLauncher) CloseAll() error {
	l.mu.Lock()
	live := make([]*instance, 0, len(l.instances))
	for _, inst := range l.instances {
		live = append(live, inst)
	}
	l.mu.Unlock()

	var errs []error
	for _, inst := range live {
		if err := inst.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing browsers: %v", errs)
	}
	return nil
}

// Shutdown closes every live instance and stops Playwright.
func (l *PlaywrightLauncher) Shutdown() error {
	if err := l.CloseAll(); err != nil {
		l.logger.Warnf("%v", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.initialized && l.playwright != nil {
		if err := l.playwright.Stop(); err != nil {
			return fmt.Errorf("failed to stop playwright: %w", err)
		}
		l.initialized = false
	}
	return nil
}

func (l *PlaywrightLauncher) forget(id string) {
	l.mu.Lock()
	delete(l.instances, id)
	l.mu.Unlock()
}
