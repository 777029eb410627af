package publish

// Chain is an ordered list of candidate selectors; the first visible and
// interactable match wins. Selectors starting with "//" are XPath.
type Chain []string

// ArticleSelectors locate the controls of the article editor.
type ArticleSelectors struct {
	Mask        Chain `yaml:"mask"`
	PageReady   Chain `yaml:"page_ready"`
	Title       Chain `yaml:"title"`
	Body        Chain `yaml:"body"`
	Placeholder Chain `yaml:"placeholder"`

	CoverAdd           Chain `yaml:"cover_add"`
	CoverAddFallback   Chain `yaml:"cover_add_fallback"`
	CoverUpload        Chain `yaml:"cover_upload"`
	CoverInput         Chain `yaml:"cover_input"`
	CoverInputFallback Chain `yaml:"cover_input_fallback"`
	CoverConfirm       Chain `yaml:"cover_confirm"`
	CoverConfirmAlt    Chain `yaml:"cover_confirm_fallback"`

	Tags     Chain `yaml:"tags"`
	Original Chain `yaml:"original"`

	Preview         Chain `yaml:"preview"`
	PreviewFallback Chain `yaml:"preview_fallback"`

	// FinalConfirm must hold exactly one selector.
	FinalConfirm string `yaml:"final_confirm"`
}

// MicroSelectors locate the controls of the micro-post editor.
type MicroSelectors struct {
	Editor        Chain `yaml:"editor"`
	ImageButton   Chain `yaml:"image_button"`
	FileInput     Chain `yaml:"file_input"`
	Publish       Chain `yaml:"publish"`
	Confirm       Chain `yaml:"confirm"`
	SuccessMarker Chain `yaml:"success_marker"`

	// SuccessToasts are goquery selectors checked against the page markup
	// when no success marker appeared.
	SuccessToasts []string `yaml:"success_toasts"`
	SuccessURL    string   `yaml:"success_url"`
}

// Selectors is the full selector table.
type Selectors struct {
	Article ArticleSelectors `yaml:"article"`
	Micro   MicroSelectors   `yaml:"micro"`
}

// DefaultSelectors returns the selector table for the current creator backend.
func DefaultSelectors() Selectors {
	return Selectors{
		Article: ArticleSelectors{
			Mask:        Chain{".byte-drawer-mask"},
			PageReady:   Chain{"textarea"},
			Title:       Chain{"textarea[placeholder*='请输入文章标题（2～30个字）']", "textarea[placeholder*='标题']", "textarea"},
			Body:        Chain{".ProseMirror", "[contenteditable='true']"},
			Placeholder: Chain{".syl-placeholder"},

			CoverAdd:           Chain{"div.article-cover-add"},
			CoverAddFallback:   Chain{"//div[contains(@class,'article-cover')]//*[contains(text(),'添加')]", ".article-cover"},
			CoverUpload:        Chain{"div.btn-upload-handle.upload-handler", ".upload-handler"},
			CoverInput:         Chain{".btn-upload-handle.upload-handler input[type='file']"},
			CoverInputFallback: Chain{"input[type='file'][accept*='image']", "input[type='file']"},
			CoverConfirm:       Chain{"button[data-e2e='imageUploadConfirm-btn']"},
			CoverConfirmAlt:    Chain{"//button[contains(@class,'btn-primary')]//span[text()='确定']/..", "//button[contains(.,'确定')]"},

			Tags:     Chain{"input[placeholder*='标签']", ".article-tag input"},
			Original: Chain{"//label[contains(.,'原创')]//input[@type='checkbox']/..", "//span[contains(text(),'声明原创')]"},

			Preview:         Chain{"//button[contains(., '预览并发布')]"},
			PreviewFallback: Chain{"//button[contains(., '发布') and not(ancestor::*[contains(@class,'modal-footer')])]"},

			FinalConfirm: "button.byte-btn.byte-btn-primary.byte-btn-size-large.byte-btn-shape-square.publish-btn.publish-btn-last",
		},
		Micro: MicroSelectors{
			Editor:        Chain{".ProseMirror", "textarea.byte-textarea-content", "[contenteditable='true']"},
			ImageButton:   Chain{"//button[contains(@title, '图片')]", "//span[contains(text(), '图片')]/ancestor::button"},
			FileInput:     Chain{"input[type='file']"},
			Publish:       Chain{"//span[contains(text(), '发布')]/ancestor::button", "//button[contains(text(), '发布')]"},
			Confirm:       Chain{"//button[contains(text(), '确定')]", "//button[contains(text(), '确认')]"},
			SuccessMarker: Chain{"//*[contains(text(), '发布成功')]"},
			SuccessToasts: []string{".byte-message-success", ".toast-success", "[class*='publish-success']"},
			SuccessURL:    "weitt-success",
		},
	}
}

// Merge returns s with every non-empty field of override applied.
func (s Selectors) Merge(override Selectors) Selectors {
	a, o := &s.Article, override.Article
	mergeChain(&a.Mask, o.Mask)
	mergeChain(&a.PageReady, o.PageReady)
	mergeChain(&a.Title, o.Title)
	mergeChain(&a.Body, o.Body)
	mergeChain(&a.Placeholder, o.Placeholder)
	mergeChain(&a.CoverAdd, o.CoverAdd)
	mergeChain(&a.CoverAddFallback, o.CoverAddFallback)
	mergeChain(&a.CoverUpload, o.CoverUpload)
	mergeChain(&a.CoverInput, o.CoverInput)
	mergeChain(&a.CoverInputFallback, o.CoverInputFallback)
	mergeChain(&a.CoverConfirm, o.CoverConfirm)
	mergeChain(&a.CoverConfirmAlt, o.CoverConfirmAlt)
	mergeChain(&a.Tags, o.Tags)
	mergeChain(&a.Original, o.Original)
	mergeChain(&a.Preview, o.Preview)
	mergeChain(&a.PreviewFallback, o.PreviewFallback)
	if o.FinalConfirm != "" {
		a.FinalConfirm = o.FinalConfirm
	}

	m, om := &s.Micro, override.Micro
	mergeChain(&m.Editor, om.Editor)
	mergeChain(&m.ImageButton, om.ImageButton)
	mergeChain(&m.FileInput, om.FileInput)
	mergeChain(&m.Publish, om.Publish)
	mergeChain(&m.Confirm, om.Confirm)
	mergeChain(&m.SuccessMarker, om.SuccessMarker)
	if len(om.SuccessToasts) > 0 {
		m.SuccessToasts = om.SuccessToasts
	}
	if om.SuccessURL != "" {
		m.SuccessURL = om.SuccessURL
	}
	return s
}

func mergeChain(dst *Chain, src Chain) {
	if len(src) > 0 {
		*dst = src
	}
}
