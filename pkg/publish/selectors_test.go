package publish

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSelectors_Merge(t *testing.T) {
	base := DefaultSelectors()
	merged := base.Merge(Selectors{
		Article: ArticleSelectors{Title: Chain{"#title"}, FinalConfirm: "button.publish-btn-v2"},
		Micro:   MicroSelectors{SuccessURL: "done"},
	})

	assert.Equal(t, Chain{"#title"}, merged.Article.Title)
	assert.Equal(t, "button.publish-btn-v2", merged.Article.FinalConfirm)
	assert.Equal(t, base.Article.Body, merged.Article.Body)
	assert.Equal(t, "done", merged.Micro.SuccessURL)
	assert.Equal(t, base.Micro.Editor, merged.Micro.Editor)

	// The receiver is not modified.
	assert.NotEqual(t, Chain{"#title"}, base.Article.Title)
}

func TestTiming_WithDefaults(t *testing.T) {
	tm := Timing{AfterPreview: 2 * time.Second}.withDefaults()
	assert.Equal(t, 2*time.Second, tm.AfterPreview)
	assert.Equal(t, 20*time.Second, tm.PageReady)
	assert.Equal(t, 250*time.Millisecond, tm.Poll)
}

func TestParagraphHTML(t *testing.T) {
	assert.Equal(t, "<p>a</p><p><br></p><p>b &amp; c</p>", ParagraphHTML("a\r\n\r\nb & c"))
	assert.Equal(t, "<p>单行</p>", ParagraphHTML("单行"))
}
