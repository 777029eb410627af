package browser

import (
	"fmt"
	"strings"
	"sync"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/headline/pkg/session"
)

// instance is a launched Playwright browser with one context and one page.
type instance struct {
	id       string
	browser  playwright.Browser
	context  playwright.BrowserContext
	page     *pwPage
	launcher *PlaywrightLauncher

	closeOnce sync.Once
	closeErr  error
}

func (i *instance) Page() Page {
	return i.page
}

func (i *instance) AddCookie(c session.Cookie) error {
	cookie := playwright.OptionalCookie{
		Name:   c.Name,
		Value:  c.Value,
		Domain: playwright.String(c.Domain),
		Path:   playwright.String("/"),
	}
	if c.Path != "" {
		cookie.Path = playwright.String(c.Path)
	}
	if c.Secure {
		cookie.Secure = playwright.Bool(true)
	}
	if c.HTTPOnly {
		cookie.HttpOnly = playwright.Bool(true)
	}
	if err := i.context.AddCookies([]playwright.OptionalCookie{cookie}); err != nil {
		return fmt.Errorf("add cookie %q: %w", c.Name, err)
	}
	return nil
}

func (i *instance) Cookies() ([]session.Cookie, error) {
	raw, err := i.context.Cookies()
	if err != nil {
		return nil, fmt.Errorf("read cookies: %w", err)
	}
	cookies := make([]session.Cookie, 0, len(raw))
	for _, c := range raw {
		cookies = append(cookies, session.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HttpOnly,
		})
	}
	return cookies, nil
}

func (i *instance) Close() error {
	i.closeOnce.Do(func() {
		_ = i.page.page.Close() // Ignore errors, continue cleanup
		_ = i.context.Close()   // Ignore errors, continue cleanup
		i.closeErr = i.browser.Close()
		if i.launcher != nil {
			i.launcher.forget(i.id)
		}
	})
	return i.closeErr
}

// pwPage adapts a Playwright page to Page.
type pwPage struct {
	page playwright.Page
}

func (p *pwPage) Goto(url string) error {
	if _, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

func (p *pwPage) URL() string {
	return p.page.URL()
}

func (p *pwPage) Content() (string, error) {
	return p.page.Content()
}

func (p *pwPage) Screenshot(path string) error {
	_, err := p.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	})
	return err
}

func (p *pwPage) QueryAll(selector string) ([]Element, error) {
	handles, err := p.page.QuerySelectorAll(normalizeSelector(selector))
	if err != nil {
		return nil, fmt.Errorf("selector query failed: %w", err)
	}
	elements := make([]Element, 0, len(handles))
	for _, h := range handles {
		elements = append(elements, &pwElement{handle: h})
	}
	return elements, nil
}

func (p *pwPage) Evaluate(expression string, arg any) (any, error) {
	if arg == nil {
		return p.page.Evaluate(expression)
	}
	return p.page.Evaluate(expression, arg)
}

func (p *pwPage) PressKey(key string) error {
	return p.page.Keyboard().Press(key)
}

// pwElement adapts a Playwright element handle to Element.
type pwElement struct {
	handle playwright.ElementHandle
}

func (e *pwElement) Visible() (bool, error) {
	return e.handle.IsVisible()
}

func (e *pwElement) Enabled() (bool, error) {
	return e.handle.IsEnabled()
}

func (e *pwElement) TagName() (string, error) {
	v, err := e.handle.Evaluate("el => el.tagName.toLowerCase()")
	if err != nil {
		return "", err
	}
	tag, _ := v.(string)
	return tag, nil
}

func (e *pwElement) Evaluate(expression string, arg any) (any, error) {
	if arg == nil {
		return e.handle.Evaluate(expression)
	}
	return e.handle.Evaluate(expression, arg)
}

func (e *pwElement) Click() error {
	return e.handle.Click()
}

func (e *pwElement) SetInputFiles(paths []string) error {
	return e.handle.SetInputFiles(paths)
}

func (e *pwElement) Type(text string) error {
	return e.handle.Type(text)
}

func (e *pwElement) Press(key string) error {
	return e.handle.Press(key)
}

// normalizeSelector makes XPath expressions explicit for the selector engine.
func normalizeSelector(selector string) string {
	s := strings.TrimSpace(selector)
	if strings.HasPrefix(s, "//") || strings.HasPrefix(s, "(//") {
		return "xpath=" + s
	}
	return s
}
