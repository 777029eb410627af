package platform

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// ArticleList is one page of the account's articles.
type ArticleList struct {
	Articles []any `json:"articles"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}

// ListArticles returns one page of articles. status is one of all,
// published, draft or review.
func (c *Client) ListArticles(ctx context.Context, page, pageSize int, status string) (*ArticleList, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if status == "" {
		status = "all"
	}

	data, err := c.get(ctx, "get_article_list", c.endpoints.ArticleList, url.Values{
		"page":      {strconv.Itoa(page)},
		"page_size": {strconv.Itoa(pageSize)},
		"status":    {status},
	})
	if err != nil {
		return nil, err
	}

	out := &ArticleList{
		Articles: list(data, "list"),
		Total:    data.Get("total").Int(),
		Page:     page,
		PageSize: pageSize,
	}
	c.logger.Infof("fetched article list: %d total", out.Total)
	return out, nil
}

// DeleteArticle deletes one article by id.
func (c *Client) DeleteArticle(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("platform: article id is required")
	}
	if _, err := c.post(ctx, "delete_article", c.endpoints.DeleteArticle, url.Values{"id": {id}}); err != nil {
		return err
	}
	c.logger.Infof("deleted article %s", id)
	return nil
}

// UserInfo returns the login status payload of the current account.
func (c *Client) UserInfo(ctx context.Context) (map[string]any, error) {
	data, err := c.get(ctx, "get_user_info", c.endpoints.UserInfo, nil)
	if err != nil {
		return nil, err
	}
	if m, ok := data.Value().(map[string]any); ok {
		return m, nil
	}
	return map[string]any{}, nil
}
