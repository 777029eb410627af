package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/entrhq/headline/pkg/history"
	"github.com/entrhq/headline/pkg/platform"
	"github.com/entrhq/headline/pkg/publish"
)

// apiFailure converts a platform error into a Response.
func (s *Service) apiFailure(action string, err error) Response {
	if errors.Is(err, platform.ErrNoSession) {
		return failed(publish.AuthMessage)
	}
	s.logger.Errorf("%s failed: %v", action, err)
	var te *platform.TransportError
	if errors.As(err, &te) && te.Message != "" {
		return failed(fmt.Sprintf("%s失败: %s", action, te.Message))
	}
	return failed(fmt.Sprintf("%s异常: %v", action, err))
}

// ListArticles returns one page of the account's articles.
func (s *Service) ListArticles(ctx context.Context, page, pageSize int, status string) Response {
	if resp, ok := s.authenticated(ctx); !ok {
		return resp
	}
	list, err := s.deps.Platform.ListArticles(ctx, page, pageSize, status)
	if err != nil {
		return s.apiFailure("获取文章列表", err)
	}
	return ok("获取成功", list)
}

// DeleteArticle deletes one article.
func (s *Service) DeleteArticle(ctx context.Context, id string) Response {
	if strings.TrimSpace(id) == "" {
		return failed("文章ID不能为空")
	}
	if resp, ok := s.authenticated(ctx); !ok {
		return resp
	}
	if err := s.deps.Platform.DeleteArticle(ctx, id); err != nil {
		return s.apiFailure("删除文章", err)
	}
	return ok("文章删除成功", map[string]string{"article_id": id})
}

// AccountOverview returns the account summary.
func (s *Service) AccountOverview(ctx context.Context) Response {
	if resp, ok := s.authenticated(ctx); !ok {
		return resp
	}
	o, err := s.deps.Platform.AccountOverview(ctx)
	if err != nil {
		return s.apiFailure("获取账户概览", err)
	}
	return ok("获取成功", o)
}

// ArticleStats returns the counters of one article.
func (s *Service) ArticleStats(ctx context.Context, id string) Response {
	if strings.TrimSpace(id) == "" {
		return failed("文章ID不能为空")
	}
	if resp, ok := s.authenticated(ctx); !ok {
		return resp
	}
	st, err := s.deps.Platform.ArticleStats(ctx, id)
	if err != nil {
		return s.apiFailure("获取文章统计", err)
	}
	return ok("获取成功", st)
}

// TrendingAnalysis returns the trend series for the last days days.
func (s *Service) TrendingAnalysis(ctx context.Context, days int) Response {
	if resp, ok := s.authenticated(ctx); !ok {
		return resp
	}
	tr, err := s.deps.Platform.TrendingAnalysis(ctx, days)
	if err != nil {
		return s.apiFailure("获取趋势分析", err)
	}
	return ok("获取成功", tr)
}

// ContentPerformance returns the article ranking.
func (s *Service) ContentPerformance(ctx context.Context, limit int, sortBy string) Response {
	if sortBy != "" && !validSort(sortBy) {
		return failed(fmt.Sprintf("不支持的排序字段: %s", sortBy))
	}
	if resp, ok := s.authenticated(ctx); !ok {
		return resp
	}
	cp, err := s.deps.Platform.ContentPerformanceRanking(ctx, limit, sortBy)
	if err != nil {
		return s.apiFailure("获取内容表现", err)
	}
	return ok("获取成功", cp)
}

func validSort(field string) bool {
	for _, f := range platform.SortFields {
		if f == field {
			return true
		}
	}
	return false
}

// AudienceAnalysis returns the follower portrait.
func (s *Service) AudienceAnalysis(ctx context.Context) Response {
	if resp, ok := s.authenticated(ctx); !ok {
		return resp
	}
	a, err := s.deps.Platform.AudienceAnalysis(ctx)
	if err != nil {
		return s.apiFailure("获取受众分析", err)
	}
	return ok("获取成功", a)
}

// GenerateReport combines every analytics section. Missing sections lower
// the report's completeness but do not fail it.
func (s *Service) GenerateReport(ctx context.Context, reportType string) Response {
	switch reportType {
	case "", "daily", "weekly", "monthly":
	default:
		return failed(fmt.Sprintf("不支持的报告类型: %s", reportType))
	}
	if resp, ok := s.authenticated(ctx); !ok {
		return resp
	}
	return ok("报告生成成功", s.deps.Platform.GenerateReport(ctx, reportType))
}

// History lists recorded publish runs.
func (s *Service) History(ctx context.Context, q history.Query) Response {
	if s.deps.Ledger == nil {
		return failed("发布历史未启用")
	}
	entries, err := s.deps.Ledger.List(ctx, q)
	if err != nil {
		s.logger.Errorf("history query failed: %v", err)
		return failed(fmt.Sprintf("查询发布历史异常: %v", err))
	}
	return ok(fmt.Sprintf("共 %d 条记录", len(entries)), entries)
}
