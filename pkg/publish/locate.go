package publish

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/entrhq/headline/pkg/browser"
	"github.com/entrhq/headline/pkg/poll"
)

// errNotFound is returned when no candidate of a chain matched in time.
var errNotFound = errors.New("element not found")

// DOM scripts. Each takes the element as first argument.
const (
	scriptSetValue = `(el, v) => {
		el.focus();
		el.value = v;
		el.dispatchEvent(new Event('input', { bubbles: true }));
		el.dispatchEvent(new Event('change', { bubbles: true }));
	}`
	scriptSetHTML = `(el, v) => {
		el.focus();
		el.innerHTML = v;
		el.dispatchEvent(new Event('input', { bubbles: true }));
		el.dispatchEvent(new Event('change', { bubbles: true }));
	}`
	scriptReadValue = `el => el.value`
	scriptReadHTML  = `el => el.innerHTML`
	scriptClick     = `el => el.click()`
	scriptHide      = `sel => document.querySelectorAll(sel).forEach(e => { e.style.display = 'none'; })`
)

// errNotRegistered is returned when an editor did not keep a written value.
var errNotRegistered = errors.New("editor did not register the input")

// match controls which elements a locate accepts.
type match int

const (
	// interactable elements are visible and enabled.
	interactable match = iota
	// attached elements only need to exist; used for hidden file inputs.
	attached
)

// locator finds elements on a page by polling a selector chain.
type locator struct {
	page     browser.Page
	interval time.Duration
}

// find polls chain until one candidate yields an acceptable element or bound
// elapses. It returns the element and the selector that matched.
func (l locator) find(ctx context.Context, chain Chain, bound time.Duration, m match) (browser.Element, string, error) {
	if len(chain) == 0 {
		return nil, "", fmt.Errorf("%w: empty selector chain", errNotFound)
	}

	var (
		found    browser.Element
		selector string
	)
	err := poll.Until(ctx, l.interval, bound, func() (bool, error) {
		for _, sel := range chain {
			el, ok := l.first(sel, m)
			if ok {
				found, selector = el, sel
				return true, nil
			}
		}
		return false, nil
	})
	if errors.Is(err, poll.ErrTimedOut) {
		return nil, strings.Join(chain, " | "), fmt.Errorf("%w within %s", errNotFound, bound)
	}
	if err != nil {
		return nil, "", err
	}
	return found, selector, nil
}

// first returns the first acceptable element for one selector. Query and
// visibility errors count as no match; the page may be mid-render.
func (l locator) first(selector string, m match) (browser.Element, bool) {
	els, err := l.page.QueryAll(selector)
	if err != nil {
		return nil, false
	}
	for _, el := range els {
		if m == attached {
			return el, true
		}
		if usable(el) {
			return el, true
		}
	}
	return nil, false
}

func usable(el browser.Element) bool {
	visible, err := el.Visible()
	if err != nil || !visible {
		return false
	}
	enabled, err := el.Enabled()
	return err == nil && enabled
}

// setValue assigns a form field and reads it back.
func setValue(el browser.Element, value string) error {
	if _, err := el.Evaluate(scriptSetValue, value); err != nil {
		return err
	}
	got, err := el.Evaluate(scriptReadValue, nil)
	if err != nil {
		return fmt.Errorf("read back value: %w", err)
	}
	if s, _ := got.(string); s != value {
		return fmt.Errorf("%w: field holds %q", errNotRegistered, truncate(s, 40))
	}
	return nil
}

// setHTML replaces a rich editor's markup and checks that its text survived.
// Editors rewrite markup freely, so only the whitespace-free text is compared.
func setHTML(el browser.Element, markup string) error {
	if _, err := el.Evaluate(scriptSetHTML, markup); err != nil {
		return err
	}
	got, err := el.Evaluate(scriptReadHTML, nil)
	if err != nil {
		return fmt.Errorf("read back markup: %w", err)
	}
	s, _ := got.(string)
	want := markupText(markup)
	if want != "" && markupText(s) != want {
		return fmt.Errorf("%w: editor holds %q", errNotRegistered, truncate(markupText(s), 40))
	}
	return nil
}

// markupText returns the text of an HTML fragment with all whitespace removed.
func markupText(markup string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return ""
	}
	return strings.Join(strings.Fields(doc.Text()), "")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// jsClick clicks through the DOM so overlays intercepting pointer events do
// not swallow the click.
func jsClick(el browser.Element) error {
	_, err := el.Evaluate(scriptClick, nil)
	return err
}

// ParagraphHTML converts plain text to editor paragraphs: each line becomes
// <p>line</p> and blank lines become <p><br></p>.
func ParagraphHTML(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var b strings.Builder
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			b.WriteString("<p><br></p>")
			continue
		}
		b.WriteString("<p>")
		b.WriteString(html.EscapeString(line))
		b.WriteString("</p>")
	}
	return b.String()
}
