package adapter

import (
	"unicode/utf8"

	"github.com/entrhq/headline/pkg/publish"
)

// Plan is the publish request chosen for a draft.
type Plan struct {
	Kind    publish.Kind              `json:"kind"`
	Article *publish.ArticleRequest   `json:"article,omitempty"`
	Micro   *publish.MicroPostRequest `json:"micro_post,omitempty"`
}

// ImageCount returns the number of images the plan will upload.
func (p Plan) ImageCount() int {
	switch {
	case p.Article != nil:
		return len(p.Article.Images)
	case p.Micro != nil:
		return len(p.Micro.Images)
	}
	return 0
}

// Route picks the content type for a draft and its local images. Short
// drafts with at most nine images become micro-posts whose text is the title,
// a blank line and the body; everything else becomes an article.
func Route(d Draft, images []string) Plan {
	text := d.Title + "\n\n" + d.Body
	if d.Body == "" {
		text = d.Title
	}
	if utf8.RuneCountInString(text) <= publish.MaxMicroRunes && len(images) <= publish.MaxMicroImages {
		return Plan{
			Kind:  publish.KindMicro,
			Micro: &publish.MicroPostRequest{Body: text, Images: images},
		}
	}
	return Plan{
		Kind: publish.KindArticle,
		Article: &publish.ArticleRequest{
			Title:  articleTitle(d.Title),
			Body:   d.Body,
			Images: images,
		},
	}
}

// articleTitle fits a title into the article editor's length bounds.
func articleTitle(title string) string {
	runes := []rune(title)
	if len(runes) > publish.MaxTitleRunes {
		return string(runes[:publish.MaxTitleRunes])
	}
	if len(runes) < publish.MinTitleRunes {
		return DefaultTitle
	}
	return title
}
