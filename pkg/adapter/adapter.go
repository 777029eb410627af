// Package adapter converts records exported from other platforms' content
// tables into drafts for this platform.
package adapter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/entrhq/headline/pkg/media"
)

// DefaultTitle is used when a record carries no title.
const DefaultTitle = "无标题"

// Record is one loosely typed upstream row.
type Record map[string]any

// Field name lists, in lookup order.
var (
	titleFields = []string{"title", "小红书标题"}
	bodyFields  = []string{"content", "仿写小红书文案"}
	imageFields = []string{"image_url", "配图"}

	// Feishu tables name their columns with the aliases.
	feishuTitleFields = []string{"小红书标题", "title"}
	feishuBodyFields  = []string{"仿写小红书文案", "content"}
	feishuImageFields = []string{"配图", "image_url"}
)

// Draft is a sanitized record ready for routing.
type Draft struct {
	Title         string          `json:"title"`
	Body          string          `json:"content"`
	Image         media.Reference `json:"images"`
	OriginalTitle string          `json:"original_title"`
	OriginalBody  string          `json:"original_content"`
}

// Adapt maps a record using the canonical field order.
func Adapt(rec Record) Draft {
	return adapt(rec, titleFields, bodyFields, imageFields)
}

// AdaptFeishu maps a record exported from a Feishu table, where the alias
// columns take precedence.
func AdaptFeishu(rec Record) Draft {
	return adapt(rec, feishuTitleFields, feishuBodyFields, feishuImageFields)
}

func adapt(rec Record, titles, bodies, images []string) Draft {
	rawTitle := firstText(rec, titles)
	rawBody := firstText(rec, bodies)

	title := Sanitize(rawTitle)
	if title == "" {
		title = DefaultTitle
	}

	var ref media.Reference
	for _, key := range images {
		if v, ok := rec[key]; ok && v != nil {
			if ref = media.ParseReference(v); !ref.Empty() {
				break
			}
		}
	}

	return Draft{
		Title:         title,
		Body:          Sanitize(rawBody),
		Image:         ref,
		OriginalTitle: rawTitle,
		OriginalBody:  rawBody,
	}
}

// firstText returns the first non-blank text value among keys.
func firstText(rec Record, keys []string) string {
	for _, key := range keys {
		if s := text(rec[key]); strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

// text flattens a cell value. Rich-text cells arrive as lists of segments
// with a "text" field.
func text(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []any:
		var b strings.Builder
		for _, seg := range val {
			switch s := seg.(type) {
			case string:
				b.WriteString(s)
			case map[string]any:
				if t, ok := s["text"].(string); ok {
					b.WriteString(t)
				}
			}
		}
		return b.String()
	case map[string]any:
		if t, ok := val["text"].(string); ok {
			return t
		}
		return ""
	default:
		return fmt.Sprint(val)
	}
}

var (
	invisibleChars = regexp.MustCompile(`[\x{FE00}-\x{FE0F}\x{200B}-\x{200D}\x{FEFF}]`)
	horizontalRuns = regexp.MustCompile(`[ \t]+`)
	blankLineRuns  = regexp.MustCompile(`\n[\s\p{Zs}\x{85}\x{2028}\x{2029}]*\n`)
)

// Sanitize removes variation selectors and zero-width characters, collapses
// runs of spaces and tabs, reduces any whitespace-only gap between lines to a
// single blank line, and trims the result. Sanitize(Sanitize(s)) == Sanitize(s).
func Sanitize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = invisibleChars.ReplaceAllString(s, "")
	s = horizontalRuns.ReplaceAllString(s, " ")
	s = blankLineRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
