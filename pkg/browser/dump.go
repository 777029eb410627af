package browser

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// DefaultDumpLength bounds the size of a cleaned page dump.
const DefaultDumpLength = 200_000

// CleanedPage is page markup reduced to its semantic structure.
type CleanedPage struct {
	HTML      string
	Title     string
	Truncated bool
}

var (
	skippedElements = map[string]bool{
		"script":   true,
		"style":    true,
		"noscript": true,
		"iframe":   true,
		"embed":    true,
		"object":   true,
		"svg":      true,
		"link":     true,
		"meta":     true,
	}

	blockElements = map[string]bool{
		"div": true, "p": true, "section": true, "article": true,
		"header": true, "footer": true, "nav": true, "main": true, "aside": true,
		"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
		"ul": true, "ol": true, "li": true,
		"table": true, "tr": true, "td": true, "th": true,
		"form": true, "fieldset": true, "blockquote": true, "pre": true,
		"button": true, "textarea": true, "label": true,
	}

	voidElements = map[string]bool{
		"area": true, "base": true, "br": true, "col": true, "embed": true,
		"hr": true, "img": true, "input": true, "link": true, "meta": true,
		"param": true, "source": true, "track": true, "wbr": true,
	}

	// Attributes that identify controls for selector work.
	globalAttributes = map[string]bool{
		"id":              true,
		"class":           true,
		"role":            true,
		"title":           true,
		"aria-label":      true,
		"contenteditable": true,
		"disabled":        true,
		"style":           true,
	}
)

// CleanPage parses raw page markup and rebuilds it without scripts, styles
// and other noise. Output is cut at maxLength bytes of text and tags.
func CleanPage(rawHTML string, maxLength int) (*CleanedPage, error) {
	if maxLength <= 0 {
		maxLength = DefaultDumpLength
	}
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	d := &dumper{max: maxLength}
	truncated := d.node(doc, 0)
	return &CleanedPage{
		HTML:      d.b.String(),
		Title:     pageTitle(doc),
		Truncated: truncated,
	}, nil
}

type dumper struct {
	b   strings.Builder
	n   int
	max int
}

// node writes n and its subtree; it reports whether output was truncated.
func (d *dumper) node(n *html.Node, depth int) bool {
	if d.n >= d.max {
		return true
	}

	switch n.Type {
	case html.CommentNode:
		return false
	case html.TextNode:
		return d.text(n.Data)
	case html.ElementNode:
		tag := strings.ToLower(n.Data)
		if skippedElements[tag] {
			return false
		}
		return d.element(n, tag, depth)
	}
	return d.children(n, depth)
}

func (d *dumper) text(raw string) bool {
	text := strings.TrimSpace(raw)
	if text == "" {
		return false
	}
	text = html.EscapeString(text)
	if d.n+len(text) > d.max {
		text = truncateUTF8(text, d.max-d.n) + "..."
		d.b.WriteString(text)
		d.n = d.max
		return true
	}
	d.b.WriteString(text)
	d.n += len(text)
	return false
}

func (d *dumper) element(n *html.Node, tag string, depth int) bool {
	block := blockElements[tag]
	if depth > 0 && block {
		d.b.WriteString("\n")
		d.b.WriteString(strings.Repeat("  ", depth))
	}

	d.b.WriteString("<")
	d.b.WriteString(tag)
	for _, attr := range n.Attr {
		if keepAttribute(tag, strings.ToLower(attr.Key)) {
			fmt.Fprintf(&d.b, ` %s="%s"`, attr.Key, html.EscapeString(attr.Val))
		}
	}
	d.b.WriteString(">")
	d.n += len(tag) + 2

	truncated := d.children(n, depth+1)

	if !voidElements[tag] {
		if block {
			d.b.WriteString("\n")
			d.b.WriteString(strings.Repeat("  ", depth))
		}
		d.b.WriteString("</")
		d.b.WriteString(tag)
		d.b.WriteString(">")
		d.n += len(tag) + 3
	}
	return truncated
}

func (d *dumper) children(n *html.Node, depth int) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if d.node(c, depth) {
			return true
		}
	}
	return false
}

func keepAttribute(tag, key string) bool {
	if globalAttributes[key] || strings.HasPrefix(key, "data-") {
		return true
	}
	switch tag {
	case "a":
		return key == "href"
	case "img":
		return key == "src" || key == "alt"
	case "input", "textarea", "select":
		return key == "name" || key == "type" || key == "placeholder" || key == "accept" || key == "value"
	case "button":
		return key == "type"
	case "form":
		return key == "action"
	}
	return false
}

func pageTitle(doc *html.Node) string {
	var title string
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "title" {
			if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
				title = strings.TrimSpace(n.FirstChild.Data)
			}
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(doc)
	return title
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	for n > 0 && (s[n]&0xC0) == 0x80 {
		n--
	}
	return s[:n]
}
