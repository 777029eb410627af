package browser

import (
	"context"
	"errors"

	"github.com/entrhq/headline/pkg/session"
)

// Default values for launched browsers.
const (
	DefaultViewportWidth  = 1920
	DefaultViewportHeight = 1080
	DefaultTimeout        = 30000 // milliseconds
)

// LaunchArgs is the fixed command-line bundle every instance is launched with.
var LaunchArgs = []string{
	"--no-sandbox",
	"--disable-dev-shm-usage",
	"--disable-blink-features=AutomationControlled",
	"--disable-extensions",
	"--no-first-run",
	"--disable-default-apps",
}

// ErrClosed is returned by operations on a closed browser.
var ErrClosed = errors.New("browser: instance closed")

// LaunchOptions configures a new browser instance.
type LaunchOptions struct {
	// Headless controls whether the browser runs without a visible window
	Headless bool

	// UserAgent overrides the browser user agent when non-empty
	UserAgent string

	// Timeout sets the default timeout for page operations (in milliseconds)
	Timeout float64
}

// Launcher starts browser instances.
type Launcher interface {
	Launch(ctx context.Context, opts LaunchOptions) (Browser, error)
}

// Browser is one launched instance owned by exactly one workflow run.
type Browser interface {
	// Page returns the single page of the instance.
	Page() Page

	// AddCookie injects one cookie into the browser context.
	AddCookie(c session.Cookie) error

	// Cookies returns every cookie currently held by the browser context.
	Cookies() ([]session.Cookie, error)

	// Close releases the instance. Calling Close more than once is safe.
	Close() error
}

// Page is the page surface the workflows use.
type Page interface {
	Goto(url string) error
	URL() string
	Content() (string, error)
	Screenshot(path string) error

	// QueryAll returns the elements matching a CSS selector, or an XPath
	// expression when the selector starts with "//".
	QueryAll(selector string) ([]Element, error)

	Evaluate(expression string, arg any) (any, error)
	PressKey(key string) error
}

// Element is one matched DOM element.
type Element interface {
	Visible() (bool, error)
	Enabled() (bool, error)
	TagName() (string, error)

	// Evaluate runs a function expression with the element as its first
	// argument, e.g. "(el, v) => { el.value = v }".
	Evaluate(expression string, arg any) (any, error)

	Click() error
	SetInputFiles(paths []string) error
	Type(text string) error
	Press(key string) error
}
