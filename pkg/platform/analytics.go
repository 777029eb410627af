package platform

import (
	"context"
	"net/url"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Overview is the account-level summary.
type Overview struct {
	FollowersCount     int64 `json:"followers_count"`
	TotalArticles      int64 `json:"total_articles"`
	TotalReadCount     int64 `json:"total_read_count"`
	TotalCommentCount  int64 `json:"total_comment_count"`
	TotalShareCount    int64 `json:"total_share_count"`
	TotalLikeCount     int64 `json:"total_like_count"`
	MonthReadCount     int64 `json:"month_read_count"`
	WeekReadCount      int64 `json:"week_read_count"`
	YesterdayReadCount int64 `json:"yesterday_read_count"`
}

// AccountOverview fetches the account summary.
func (c *Client) AccountOverview(ctx context.Context) (*Overview, error) {
	data, err := c.get(ctx, "get_account_overview", c.endpoints.Overview, nil)
	if err != nil {
		return nil, err
	}
	return &Overview{
		FollowersCount:     data.Get("followers_count").Int(),
		TotalArticles:      data.Get("total_articles").Int(),
		TotalReadCount:     data.Get("total_read_count").Int(),
		TotalCommentCount:  data.Get("total_comment_count").Int(),
		TotalShareCount:    data.Get("total_share_count").Int(),
		TotalLikeCount:     data.Get("total_like_count").Int(),
		MonthReadCount:     data.Get("month_read_count").Int(),
		WeekReadCount:      data.Get("week_read_count").Int(),
		YesterdayReadCount: data.Get("yesterday_read_count").Int(),
	}, nil
}

// ArticleStats are the counters of one article.
type ArticleStats struct {
	ArticleID      string  `json:"article_id"`
	ReadCount      int64   `json:"read_count"`
	CommentCount   int64   `json:"comment_count"`
	ShareCount     int64   `json:"share_count"`
	LikeCount      int64   `json:"like_count"`
	CollectCount   int64   `json:"collect_count"`
	PlayDuration   int64   `json:"play_duration"`
	CompletionRate float64 `json:"completion_rate"`
	PublishTime    *string `json:"publish_time"`
	LastUpdateTime *string `json:"last_update_time"`
	Status         string  `json:"status"`
}

// ArticleStats fetches the counters of one article.
func (c *Client) ArticleStats(ctx context.Context, articleID string) (*ArticleStats, error) {
	data, err := c.get(ctx, "get_article_stats", c.endpoints.ArticleStats, url.Values{"article_id": {articleID}})
	if err != nil {
		return nil, err
	}
	status := data.Get("status").String()
	if status == "" {
		status = "unknown"
	}
	return &ArticleStats{
		ArticleID:      articleID,
		ReadCount:      data.Get("read_count").Int(),
		CommentCount:   data.Get("comment_count").Int(),
		ShareCount:     data.Get("share_count").Int(),
		LikeCount:      data.Get("like_count").Int(),
		CollectCount:   data.Get("collect_count").Int(),
		PlayDuration:   data.Get("play_duration").Int(),
		CompletionRate: data.Get("completion_rate").Float(),
		PublishTime:    optString(data, "publish_time"),
		LastUpdateTime: optString(data, "last_update_time"),
		Status:         status,
	}, nil
}

// TrendPoint is one day of the trend series.
type TrendPoint struct {
	Date              string `json:"date"`
	ReadCount         int64  `json:"read_count"`
	CommentCount      int64  `json:"comment_count"`
	ShareCount        int64  `json:"share_count"`
	LikeCount         int64  `json:"like_count"`
	FollowersIncrease int64  `json:"followers_increase"`
}

// Trending is the trend analysis over a period.
type Trending struct {
	PeriodDays             int          `json:"period_days"`
	TrendData              []TrendPoint `json:"trend_data"`
	TotalReadIncrease      int64        `json:"total_read_increase"`
	TotalFollowersIncrease int64        `json:"total_followers_increase"`
	AvgDailyRead           float64      `json:"avg_daily_read"`
	PeakDay                *string      `json:"peak_day"`
	GrowthRate             float64      `json:"growth_rate"`
}

// TrendingAnalysis fetches the trend series for the last days days.
func (c *Client) TrendingAnalysis(ctx context.Context, days int) (*Trending, error) {
	if days < 1 {
		days = 7
	}
	data, err := c.get(ctx, "get_trending_analysis", c.endpoints.Trending, url.Values{"days": {strconv.Itoa(days)}})
	if err != nil {
		return nil, err
	}

	points := []TrendPoint{}
	for _, item := range data.Get("trend_list").Array() {
		points = append(points, TrendPoint{
			Date:              item.Get("date").String(),
			ReadCount:         item.Get("read_count").Int(),
			CommentCount:      item.Get("comment_count").Int(),
			ShareCount:        item.Get("share_count").Int(),
			LikeCount:         item.Get("like_count").Int(),
			FollowersIncrease: item.Get("followers_increase").Int(),
		})
	}
	return &Trending{
		PeriodDays:             days,
		TrendData:              points,
		TotalReadIncrease:      data.Get("total_read_increase").Int(),
		TotalFollowersIncrease: data.Get("total_followers_increase").Int(),
		AvgDailyRead:           data.Get("avg_daily_read").Float(),
		PeakDay:                optString(data, "peak_day"),
		GrowthRate:             data.Get("growth_rate").Float(),
	}, nil
}

// ContentItem is one ranked article.
type ContentItem struct {
	ArticleID      string  `json:"article_id"`
	Title          string  `json:"title"`
	ReadCount      int64   `json:"read_count"`
	CommentCount   int64   `json:"comment_count"`
	LikeCount      int64   `json:"like_count"`
	ShareCount     int64   `json:"share_count"`
	PublishTime    *string `json:"publish_time"`
	CompletionRate float64 `json:"completion_rate"`
	Category       *string `json:"category"`
	Tags           []any   `json:"tags"`
}

// ContentPerformance is a ranking of articles.
type ContentPerformance struct {
	Articles   []ContentItem `json:"articles"`
	SortBy     string        `json:"sort_by"`
	TotalCount int           `json:"total_count"`
}

// SortFields are the accepted ranking keys.
var SortFields = []string{"read_count", "comment_count", "like_count", "share_count"}

// ContentPerformanceRanking fetches the top limit articles ordered by sortBy.
func (c *Client) ContentPerformanceRanking(ctx context.Context, limit int, sortBy string) (*ContentPerformance, error) {
	if limit < 1 {
		limit = 10
	}
	if sortBy == "" {
		sortBy = "read_count"
	}
	data, err := c.get(ctx, "get_content_performance", c.endpoints.ContentPerformance, url.Values{
		"limit":   {strconv.Itoa(limit)},
		"sort_by": {sortBy},
	})
	if err != nil {
		return nil, err
	}

	items := []ContentItem{}
	for _, a := range data.Get("articles").Array() {
		items = append(items, ContentItem{
			ArticleID:      a.Get("id").String(),
			Title:          a.Get("title").String(),
			ReadCount:      a.Get("read_count").Int(),
			CommentCount:   a.Get("comment_count").Int(),
			LikeCount:      a.Get("like_count").Int(),
			ShareCount:     a.Get("share_count").Int(),
			PublishTime:    optString(a, "publish_time"),
			CompletionRate: a.Get("completion_rate").Float(),
			Category:       optString(a, "category"),
			Tags:           list(a, "tags"),
		})
	}
	return &ContentPerformance{Articles: items, SortBy: sortBy, TotalCount: len(items)}, nil
}

// Audience is the follower portrait.
type Audience struct {
	GenderDistribution map[string]any `json:"gender_distribution"`
	AgeDistribution    map[string]any `json:"age_distribution"`
	RegionDistribution map[string]any `json:"region_distribution"`
	DeviceDistribution map[string]any `json:"device_distribution"`
	InterestTags       []any          `json:"interest_tags"`
	ActiveTime         map[string]any `json:"active_time"`
	FollowerGrowth     []any          `json:"follower_growth"`
}

// AudienceAnalysis fetches the follower portrait.
func (c *Client) AudienceAnalysis(ctx context.Context) (*Audience, error) {
	data, err := c.get(ctx, "get_audience_analysis", c.endpoints.Audience, nil)
	if err != nil {
		return nil, err
	}
	return &Audience{
		GenderDistribution: object(data, "gender_distribution"),
		AgeDistribution:    object(data, "age_distribution"),
		RegionDistribution: object(data, "region_distribution"),
		DeviceDistribution: object(data, "device_distribution"),
		InterestTags:       list(data, "interest_tags"),
		ActiveTime:         object(data, "active_time"),
		FollowerGrowth:     list(data, "follower_growth"),
	}, nil
}

// ReportSummary describes how complete a report is.
type ReportSummary struct {
	Status           string  `json:"status"`
	DataCompleteness float64 `json:"data_completeness"`
}

// Report combines every analytics section. Sections that failed are nil.
type Report struct {
	ReportType   string              `json:"report_type"`
	GenerateTime string              `json:"generate_time"`
	Overview     *Overview           `json:"overview"`
	Trending     *Trending           `json:"trending"`
	TopContent   *ContentPerformance `json:"top_content"`
	Audience     *Audience           `json:"audience"`
	Summary      ReportSummary       `json:"summary"`
}

// ReportDays maps a report type to its trend window.
func ReportDays(reportType string) int {
	switch reportType {
	case "daily":
		return 1
	case "weekly":
		return 7
	default:
		return 30
	}
}

// GenerateReport fetches the four analytics sections concurrently. A failed
// section is logged and left nil; DataCompleteness is the percentage of
// sections that succeeded.
func (c *Client) GenerateReport(ctx context.Context, reportType string) *Report {
	if reportType == "" {
		reportType = "weekly"
	}
	report := &Report{
		ReportType:   reportType,
		GenerateTime: time.Now().Format(time.RFC3339),
	}

	var (
		mu sync.Mutex
		ok int
	)
	section := func(name string, fetch func(context.Context) error) func() error {
		return func() error {
			if err := fetch(ctx); err != nil {
				c.logger.Warnf("report section %s unavailable: %v", name, err)
				return nil
			}
			mu.Lock()
			ok++
			mu.Unlock()
			return nil
		}
	}

	var g errgroup.Group
	g.Go(section("overview", func(ctx context.Context) (err error) {
		report.Overview, err = c.AccountOverview(ctx)
		return err
	}))
	g.Go(section("trending", func(ctx context.Context) (err error) {
		report.Trending, err = c.TrendingAnalysis(ctx, ReportDays(reportType))
		return err
	}))
	g.Go(section("top_content", func(ctx context.Context) (err error) {
		report.TopContent, err = c.ContentPerformanceRanking(ctx, 20, "read_count")
		return err
	}))
	g.Go(section("audience", func(ctx context.Context) (err error) {
		report.Audience, err = c.AudienceAnalysis(ctx)
		return err
	}))
	_ = g.Wait()

	report.Summary = ReportSummary{
		Status:           "generated",
		DataCompleteness: float64(ok) / 4 * 100,
	}
	c.logger.Infof("generated %s report (%.0f%% complete)", reportType, report.Summary.DataCompleteness)
	return report
}
