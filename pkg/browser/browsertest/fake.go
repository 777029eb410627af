// Package browsertest provides an in-memory browser for workflow tests.
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/entrhq/headline/pkg/browser"
	"github.com/entrhq/headline/pkg/session"
)

// Element is a fake DOM element. Zero value is a visible, enabled div.
type Element struct {
	mu sync.Mutex

	Tag      string
	Hidden   bool
	Disabled bool

	// Value holds the last string argument passed to Evaluate.
	Value string
	Files []string
	Typed []string
	Keys  []string

	// DropWrites makes Evaluate discard string arguments, like an editor
	// that resets itself after a scripted assignment.
	DropWrites bool

	Clicks   int
	Evals    []string
	ClickErr error
	EvalErr  error
	FilesErr error

	// OnClick runs after every successful click, native or scripted.
	OnClick func()
}

// NewElement returns a visible, enabled element with the given tag.
func NewElement(tag string) *Element {
	return &Element{Tag: tag}
}

func (e *Element) Visible() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.Hidden, nil
}

func (e *Element) Enabled() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.Disabled, nil
}

func (e *Element) TagName() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.Tag == "" {
		return "div", nil
	}
	return e.Tag, nil
}

// Evaluate records the expression. Expressions calling click() count as a
// click; a string argument is stored in Value. Every other call returns Value.
func (e *Element) Evaluate(expression string, arg any) (any, error) {
	e.mu.Lock()
	if e.EvalErr != nil {
		err := e.EvalErr
		e.mu.Unlock()
		return nil, err
	}
	e.Evals = append(e.Evals, expression)
	if s, ok := arg.(string); ok && !e.DropWrites {
		e.Value = s
	}
	value := e.Value
	e.mu.Unlock()

	if strings.Contains(expression, "click()") {
		return nil, e.Click()
	}
	return value, nil
}

func (e *Element) Click() error {
	e.mu.Lock()
	if e.ClickErr != nil {
		err := e.ClickErr
		e.mu.Unlock()
		return err
	}
	e.Clicks++
	hook := e.OnClick
	e.mu.Unlock()

	if hook != nil {
		hook()
	}
	return nil
}

func (e *Element) SetInputFiles(paths []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.FilesErr != nil {
		return e.FilesErr
	}
	e.Files = append(e.Files, paths...)
	return nil
}

func (e *Element) Type(text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Typed = append(e.Typed, text)
	return nil
}

func (e *Element) Press(key string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Keys = append(e.Keys, key)
	return nil
}

// ClickCount returns the number of clicks so far.
func (e *Element) ClickCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Clicks
}

// CurrentValue returns Value.
func (e *Element) CurrentValue() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Value
}

// Page is a fake page whose DOM is a selector-to-elements table.
type Page struct {
	mu sync.Mutex

	url      string
	content  string
	elements map[string][]*Element

	Visited     []string
	Keys        []string
	Evals       []string
	Screenshots []string

	GotoErr    error
	ContentErr error

	// OnGoto runs after each navigation with the target URL.
	OnGoto func(url string)
}

// NewPage returns an empty page at about:blank.
func NewPage() *Page {
	return &Page{url: "about:blank", elements: make(map[string][]*Element)}
}

// Set binds selector to els, replacing any previous binding.
func (p *Page) Set(selector string, els ...*Element) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.elements[selector] = els
}

// Remove unbinds selector.
func (p *Page) Remove(selector string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.elements, selector)
}

// SetURL moves the page without recording a visit.
func (p *Page) SetURL(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.url = url
}

// SetContent replaces the markup returned by Content.
func (p *Page) SetContent(content string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.content = content
}

func (p *Page) Goto(url string) error {
	p.mu.Lock()
	if p.GotoErr != nil {
		err := p.GotoErr
		p.mu.Unlock()
		return err
	}
	p.Visited = append(p.Visited, url)
	p.url = url
	hook := p.OnGoto
	p.mu.Unlock()

	if hook != nil {
		hook(url)
	}
	return nil
}

func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

func (p *Page) Content() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ContentErr != nil {
		return "", p.ContentErr
	}
	return p.content, nil
}

// Screenshot writes a placeholder file so artifact paths are real.
func (p *Page) Screenshot(path string) error {
	p.mu.Lock()
	p.Screenshots = append(p.Screenshots, path)
	p.mu.Unlock()
	return os.WriteFile(path, []byte("fake-png"), 0o600)
}

func (p *Page) QueryAll(selector string) ([]browser.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	els := p.elements[selector]
	out := make([]browser.Element, 0, len(els))
	for _, e := range els {
		out = append(out, e)
	}
	return out, nil
}

func (p *Page) Evaluate(expression string, arg any) (any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Evals = append(p.Evals, expression)
	return nil, nil
}

func (p *Page) PressKey(key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Keys = append(p.Keys, key)
	return nil
}

// Browser is a fake launched instance.
type Browser struct {
	mu sync.Mutex

	page    *Page
	cookies []session.Cookie
	closed  int

	// Reject lists cookie names AddCookie fails for.
	Reject map[string]bool
}

// NewBrowser returns a browser wrapping page.
func NewBrowser(page *Page) *Browser {
	if page == nil {
		page = NewPage()
	}
	return &Browser{page: page}
}

func (b *Browser) Page() browser.Page {
	return b.page
}

// FakePage returns the underlying fake page.
func (b *Browser) FakePage() *Page {
	return b.page
}

func (b *Browser) AddCookie(c session.Cookie) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Reject[c.Name] {
		return fmt.Errorf("cookie %q rejected", c.Name)
	}
	b.cookies = append(b.cookies, c)
	return nil
}

// SetCookies replaces the browser's cookie jar.
func (b *Browser) SetCookies(cookies []session.Cookie) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cookies = append([]session.Cookie(nil), cookies...)
}

func (b *Browser) Cookies() ([]session.Cookie, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]session.Cookie(nil), b.cookies...), nil
}

func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed++
	return nil
}

// Closed reports how many times Close was called.
func (b *Browser) Closed() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// ErrLaunch is returned by a Launcher configured to fail.
var ErrLaunch = errors.New("browsertest: launch failed")

// Launcher hands out a prepared browser.
type Launcher struct {
	mu sync.Mutex

	Browser *Browser
	Fail    bool
	Options []browser.LaunchOptions
}

// NewLauncher returns a launcher handing out b.
func NewLauncher(b *Browser) *Launcher {
	return &Launcher{Browser: b}
}

func (l *Launcher) Launch(ctx context.Context, opts browser.LaunchOptions) (browser.Browser, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Options = append(l.Options, opts)
	if l.Fail {
		return nil, ErrLaunch
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.Browser, nil
}

// Launches returns the number of Launch calls.
func (l *Launcher) Launches() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.Options)
}
