package rpc

import (
	"context"
	"strings"

	"github.com/entrhq/headline/pkg/adapter"
	"github.com/entrhq/headline/pkg/history"
	"github.com/entrhq/headline/pkg/publish"
	"github.com/entrhq/headline/pkg/service"
)

// Backend is the set of operations the procedures call. *service.Service
// implements it.
type Backend interface {
	Login(ctx context.Context) service.Response
	CheckLoginStatus(ctx context.Context) service.Response
	Logout(ctx context.Context) service.Response
	PublishArticle(ctx context.Context, req publish.ArticleRequest) service.Response
	PublishMicroPost(ctx context.Context, req publish.MicroPostRequest) service.Response
	ListArticles(ctx context.Context, page, pageSize int, status string) service.Response
	DeleteArticle(ctx context.Context, id string) service.Response
	AccountOverview(ctx context.Context) service.Response
	ArticleStats(ctx context.Context, id string) service.Response
	TrendingAnalysis(ctx context.Context, days int) service.Response
	ContentPerformance(ctx context.Context, limit int, sortBy string) service.Response
	AudienceAnalysis(ctx context.Context) service.Response
	GenerateReport(ctx context.Context, reportType string) service.Response
	PublishAdaptedBatch(ctx context.Context, records []adapter.Record, folder string) service.Response
	PublishAdaptedSingle(ctx context.Context, rec adapter.Record, folder string) service.Response
	PreviewAdapt(rec adapter.Record) service.Response
	PublishAdaptedFeishuBatch(ctx context.Context, records []adapter.Record, folder string) service.Response
	History(ctx context.Context, q history.Query) service.Response
}

var _ Backend = (*service.Service)(nil)

// ArticleArgs are the arguments of publish_article and of the legacy
// create_article route.
type ArticleArgs struct {
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	Images      []string `json:"images"`
	Tags        []string `json:"tags"`
	Category    string   `json:"category"`
	CoverImage  string   `json:"cover_image"`
	PublishTime string   `json:"publish_time"`
	// Original defaults to true.
	Original *bool `json:"original"`
}

// Request converts the arguments into a publish request.
func (a ArticleArgs) Request() (publish.ArticleRequest, error) {
	at, err := publish.ParseSchedule(a.PublishTime)
	if err != nil {
		return publish.ArticleRequest{}, err
	}
	original := true
	if a.Original != nil {
		original = *a.Original
	}
	return publish.ArticleRequest{
		Title:       a.Title,
		Body:        a.Content,
		Images:      a.Images,
		Tags:        a.Tags,
		Category:    a.Category,
		Cover:       a.CoverImage,
		ScheduledAt: at,
		Original:    original,
	}, nil
}

// MicroArgs are the arguments of publish_micro_post and of the legacy
// create_micro_post route.
type MicroArgs struct {
	Content     string   `json:"content"`
	Images      []string `json:"images"`
	Topic       string   `json:"topic"`
	Location    string   `json:"location"`
	PublishTime string   `json:"publish_time"`
}

// Request converts the arguments into a publish request.
func (a MicroArgs) Request() (publish.MicroPostRequest, error) {
	at, err := publish.ParseSchedule(a.PublishTime)
	if err != nil {
		return publish.MicroPostRequest{}, err
	}
	return publish.MicroPostRequest{
		Body:        a.Content,
		Images:      a.Images,
		Topic:       a.Topic,
		Location:    a.Location,
		ScheduledAt: at,
	}, nil
}

type none struct{}

type listArgs struct {
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	Status   string `json:"status"`
}

type articleIDArgs struct {
	ArticleID string `json:"article_id"`
}

type trendArgs struct {
	Days int `json:"days"`
}

type performanceArgs struct {
	Limit  int    `json:"limit"`
	SortBy string `json:"sort_by"`
}

type reportArgs struct {
	ReportType string `json:"report_type"`
}

type batchArgs struct {
	Records        []adapter.Record `json:"records"`
	DownloadFolder string           `json:"download_folder"`
}

type recordArgs struct {
	Title          string `json:"title"`
	Content        string `json:"content"`
	ImageURL       any    `json:"image_url"`
	DownloadFolder string `json:"download_folder"`
}

func (a recordArgs) record() adapter.Record {
	rec := adapter.Record{"title": a.Title, "content": a.Content}
	if a.ImageURL != nil {
		rec["image_url"] = a.ImageURL
	}
	return rec
}

type historyArgs struct {
	Kind       string `json:"kind"`
	FailedOnly bool   `json:"failed_only"`
	Limit      int    `json:"limit"`
}

// Rejected converts an argument conversion error into a failed response.
func Rejected(err error) service.Response {
	return service.Response{Message: strings.TrimPrefix(err.Error(), publish.ErrInvalidRequest.Error()+": ")}
}

var (
	imagesProp = arrayOf(prop("string", "local image path"), "Local image paths")
	imageRef   = map[string]interface{}{
		"description": "Image URL, list of URLs, or list of {url} objects",
		"oneOf": []interface{}{
			map[string]interface{}{"type": "string"},
			map[string]interface{}{"type": "array"},
			map[string]interface{}{"type": "object"},
		},
	}
	recordsProp = arrayOf(map[string]interface{}{"type": "object"}, "Records to adapt and publish")
	folderProp  = prop("string", "Folder for downloaded images (default from configuration)")
)

// Procedures returns every procedure bound to b.
func Procedures(b Backend) []Procedure {
	return []Procedure{
		&procedure[none]{
			name:        "login",
			description: "Open a visible browser on the login page and wait for the user to log in; the session cookies are stored on success.",
			schema:      ObjectSchema(map[string]interface{}{}, nil),
			run:         func(ctx context.Context, _ none) service.Response { return b.Login(ctx) },
		},
		&procedure[none]{
			name:        "check_login_status",
			description: "Check whether the stored session is still logged in and return the account's user info.",
			schema:      ObjectSchema(map[string]interface{}{}, nil),
			run:         func(ctx context.Context, _ none) service.Response { return b.CheckLoginStatus(ctx) },
		},
		&procedure[none]{
			name:        "logout",
			description: "Delete the stored session.",
			schema:      ObjectSchema(map[string]interface{}{}, nil),
			run:         func(ctx context.Context, _ none) service.Response { return b.Logout(ctx) },
		},
		&procedure[ArticleArgs]{
			name:        "publish_article",
			description: "Publish a long-form article through the creator backend editor.",
			schema: ObjectSchema(map[string]interface{}{
				"title":        prop("string", "Article title, 2 to 30 characters"),
				"content":      prop("string", "Article body; each line becomes a paragraph"),
				"images":       imagesProp,
				"tags":         arrayOf(prop("string", "tag"), "Tags"),
				"category":     prop("string", "Category"),
				"cover_image":  prop("string", "Local cover image path (defaults to the first image)"),
				"publish_time": prop("string", "Scheduled time, YYYY-MM-DD HH:MM:SS"),
				"original":     prop("boolean", "Declare the article original (default true)"),
			}, []string{"title", "content"}),
			run: func(ctx context.Context, a ArticleArgs) service.Response {
				req, err := a.Request()
				if err != nil {
					return Rejected(err)
				}
				return b.PublishArticle(ctx, req)
			},
		},
		&procedure[MicroArgs]{
			name:        "publish_micro_post",
			description: "Publish a micro-post of at most 2000 characters with up to 9 images.",
			schema: ObjectSchema(map[string]interface{}{
				"content":      prop("string", "Post text"),
				"images":       imagesProp,
				"topic":        prop("string", "Topic, added as #topic#"),
				"location":     prop("string", "Location"),
				"publish_time": prop("string", "Scheduled time, YYYY-MM-DD HH:MM:SS"),
			}, []string{"content"}),
			run: func(ctx context.Context, a MicroArgs) service.Response {
				req, err := a.Request()
				if err != nil {
					return Rejected(err)
				}
				return b.PublishMicroPost(ctx, req)
			},
		},
		&procedure[listArgs]{
			name:        "get_article_list",
			description: "List the account's articles.",
			schema: ObjectSchema(map[string]interface{}{
				"page":      prop("integer", "Page number (default 1)"),
				"page_size": prop("integer", "Page size (default 20)"),
				"status":    enum("Article status filter", "all", "published", "draft", "review"),
			}, nil),
			run: func(ctx context.Context, a listArgs) service.Response {
				return b.ListArticles(ctx, a.Page, a.PageSize, a.Status)
			},
		},
		&procedure[articleIDArgs]{
			name:        "delete_article",
			description: "Delete an article.",
			schema:      ObjectSchema(map[string]interface{}{"article_id": prop("string", "Article ID")}, []string{"article_id"}),
			run: func(ctx context.Context, a articleIDArgs) service.Response {
				return b.DeleteArticle(ctx, a.ArticleID)
			},
		},
		&procedure[none]{
			name:        "get_account_overview",
			description: "Get the account overview: followers, articles and read counts.",
			schema:      ObjectSchema(map[string]interface{}{}, nil),
			run:         func(ctx context.Context, _ none) service.Response { return b.AccountOverview(ctx) },
		},
		&procedure[articleIDArgs]{
			name:        "get_article_stats",
			description: "Get the read, comment, share and like counts of one article.",
			schema:      ObjectSchema(map[string]interface{}{"article_id": prop("string", "Article ID")}, []string{"article_id"}),
			run: func(ctx context.Context, a articleIDArgs) service.Response {
				return b.ArticleStats(ctx, a.ArticleID)
			},
		},
		&procedure[trendArgs]{
			name:        "get_trending_analysis",
			description: "Get the daily trend of reads and followers.",
			schema:      ObjectSchema(map[string]interface{}{"days": prop("integer", "Number of days (default 7)")}, nil),
			run: func(ctx context.Context, a trendArgs) service.Response {
				return b.TrendingAnalysis(ctx, a.Days)
			},
		},
		&procedure[performanceArgs]{
			name:        "get_content_performance",
			description: "Rank the account's articles by a counter.",
			schema: ObjectSchema(map[string]interface{}{
				"limit":   prop("integer", "Number of articles (default 10)"),
				"sort_by": enum("Ranking counter", "read_count", "comment_count", "like_count", "share_count"),
			}, nil),
			run: func(ctx context.Context, a performanceArgs) service.Response {
				return b.ContentPerformance(ctx, a.Limit, a.SortBy)
			},
		},
		&procedure[none]{
			name:        "get_audience_analysis",
			description: "Get the follower portrait: gender, age, region, device and interests.",
			schema:      ObjectSchema(map[string]interface{}{}, nil),
			run:         func(ctx context.Context, _ none) service.Response { return b.AudienceAnalysis(ctx) },
		},
		&procedure[reportArgs]{
			name:        "generate_report",
			description: "Generate a combined analytics report.",
			schema: ObjectSchema(map[string]interface{}{
				"report_type": enum("Report period (default weekly)", "daily", "weekly", "monthly"),
			}, nil),
			run: func(ctx context.Context, a reportArgs) service.Response {
				return b.GenerateReport(ctx, a.ReportType)
			},
		},
		&procedure[batchArgs]{
			name:        "publish_adapted_batch",
			description: "Adapt records from another platform (title/content/image_url or their aliases) and publish them one by one; short records become micro-posts.",
			schema: ObjectSchema(map[string]interface{}{
				"records":         recordsProp,
				"download_folder": folderProp,
			}, []string{"records"}),
			run: func(ctx context.Context, a batchArgs) service.Response {
				return b.PublishAdaptedBatch(ctx, a.Records, a.DownloadFolder)
			},
		},
		&procedure[recordArgs]{
			name:        "publish_adapted_single",
			description: "Adapt and publish a single record.",
			schema: ObjectSchema(map[string]interface{}{
				"title":           prop("string", "Title"),
				"content":         prop("string", "Content"),
				"image_url":       imageRef,
				"download_folder": folderProp,
			}, []string{"title", "content"}),
			run: func(ctx context.Context, a recordArgs) service.Response {
				return b.PublishAdaptedSingle(ctx, a.record(), a.DownloadFolder)
			},
		},
		&procedure[recordArgs]{
			name:        "preview_adapt",
			description: "Show how a record would be adapted and routed without publishing it.",
			schema: ObjectSchema(map[string]interface{}{
				"title":     prop("string", "Title"),
				"content":   prop("string", "Content"),
				"image_url": imageRef,
			}, []string{"title", "content"}),
			run: func(_ context.Context, a recordArgs) service.Response {
				return b.PreviewAdapt(a.record())
			},
		},
		&procedure[batchArgs]{
			name:        "publish_adapted_feishu_batch",
			description: "Publish records exported from a Feishu table (小红书标题, 仿写小红书文案, 配图 columns take precedence).",
			schema: ObjectSchema(map[string]interface{}{
				"records":         recordsProp,
				"download_folder": folderProp,
			}, []string{"records"}),
			run: func(ctx context.Context, a batchArgs) service.Response {
				return b.PublishAdaptedFeishuBatch(ctx, a.Records, a.DownloadFolder)
			},
		},
		&procedure[historyArgs]{
			name:        "get_publish_history",
			description: "List recorded publish runs, most recent first.",
			schema: ObjectSchema(map[string]interface{}{
				"kind":        enum("Filter by content kind", string(publish.KindArticle), string(publish.KindMicro)),
				"failed_only": prop("boolean", "Only failed runs"),
				"limit":       prop("integer", "Maximum entries (default 20)"),
			}, nil),
			run: func(ctx context.Context, a historyArgs) service.Response {
				return b.History(ctx, history.Query{Kind: publish.Kind(a.Kind), Failed: a.FailedOnly, Limit: a.Limit})
			},
		},
	}
}

// NewServiceRegistry returns a registry holding every procedure bound to b.
func NewServiceRegistry(b Backend, opts ...Option) *Registry {
	r := NewRegistry(opts...)
	for _, p := range Procedures(b) {
		if err := r.Register(p); err != nil {
			panic(err)
		}
	}
	return r
}
