// Package platform talks to the creator backend's JSON endpoints with the
// stored session: article management and account analytics.
package platform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/entrhq/headline/pkg/logging"
	"github.com/entrhq/headline/pkg/session"
)

// DefaultBaseURL is the creator backend origin.
const DefaultBaseURL = "https://mp.toutiao.com"

const (
	requestTimeout = 15 * time.Second
	maxBody        = 8 << 20
)

// ErrNoSession is returned when no stored session is available.
var ErrNoSession = errors.New("platform: no stored session")

// ErrRejected marks a well-formed response whose envelope did not report success.
var ErrRejected = errors.New("platform: request rejected")

// TransportError reports a failed exchange with the platform.
type TransportError struct {
	Op         string
	StatusCode int
	// Message is the platform's own message for rejected requests.
	Message string
	Err     error
}

func (e *TransportError) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	case e.StatusCode != 0 && e.StatusCode != http.StatusOK:
		return fmt.Sprintf("%s: 请求失败，状态码: %d", e.Op, e.StatusCode)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// Endpoints are the JSON API paths, relative to the base URL.
type Endpoints struct {
	ArticleList        string `yaml:"article_list"`
	DeleteArticle      string `yaml:"delete_article"`
	UserInfo           string `yaml:"user_info"`
	Overview           string `yaml:"overview"`
	ArticleStats       string `yaml:"article_stats"`
	Trending           string `yaml:"trending"`
	ContentPerformance string `yaml:"content_performance"`
	Audience           string `yaml:"audience"`
}

// DefaultEndpoints returns the current API paths.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		ArticleList:        "/mp/agw/article/list/",
		DeleteArticle:      "/mp/agw/article/delete/",
		UserInfo:           "/mp/agw/media/user_login_status_api/",
		Overview:           "/mp/agw/statistic/v2/account/overview/",
		ArticleStats:       "/mp/agw/article/article_read_detail/",
		Trending:           "/mp/agw/statistic/v2/account/trend/",
		ContentPerformance: "/mp/agw/statistic/v2/item/list/",
		Audience:           "/mp/agw/statistic/v2/fans/portrait/",
	}
}

func (e Endpoints) withDefaults() Endpoints {
	d := DefaultEndpoints()
	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	fill(&e.ArticleList, d.ArticleList)
	fill(&e.DeleteArticle, d.DeleteArticle)
	fill(&e.UserInfo, d.UserInfo)
	fill(&e.Overview, d.Overview)
	fill(&e.ArticleStats, d.ArticleStats)
	fill(&e.Trending, d.Trending)
	fill(&e.ContentPerformance, d.ContentPerformance)
	fill(&e.Audience, d.Audience)
	return e
}

// Config configures a Client.
type Config struct {
	BaseURL   string
	UserAgent string
	Endpoints Endpoints
}

// Client is an authenticated API client. It reads the session from the
// store on every call so a fresh login takes effect immediately.
type Client struct {
	base      string
	userAgent string
	endpoints Endpoints
	store     session.Store
	http      *http.Client
	logger    *logging.Logger
}

// NewClient creates a client. httpClient may be nil.
func NewClient(store session.Store, cfg Config, httpClient *http.Client, logger *logging.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = session.DefaultUserAgent
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Client{
		base:      strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		endpoints: cfg.Endpoints.withDefaults(),
		store:     store,
		http:      httpClient,
		logger:    logger,
	}
}

// get issues a GET and returns the envelope's data field.
func (c *Client) get(ctx context.Context, op, path string, params url.Values) (gjson.Result, error) {
	if params == nil {
		params = url.Values{}
	}
	params.Set("from", "pc")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path+"?"+params.Encode(), nil)
	if err != nil {
		return gjson.Result{}, &TransportError{Op: op, Err: err}
	}
	return c.do(op, req)
}

// post issues a form POST and returns the envelope's data field.
func (c *Client) post(ctx context.Context, op, path string, form url.Values) (gjson.Result, error) {
	form.Set("from", "pc")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, strings.NewReader(form.Encode()))
	if err != nil {
		return gjson.Result{}, &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(op, req)
}

func (c *Client) do(op string, req *http.Request) (gjson.Result, error) {
	sess := c.store.Load().Scoped()
	if sess.Empty() {
		return gjson.Result{}, ErrNoSession
	}
	for _, ck := range sess.HTTPCookies() {
		req.AddCookie(&http.Cookie{Name: ck.Name, Value: ck.Value})
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8")
	req.Header.Set("Referer", c.base+"/")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Errorf("%s failed: %v", op, err)
		return gjson.Result{}, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return gjson.Result{}, &TransportError{Op: op, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Errorf("%s returned status %d", op, resp.StatusCode)
		return gjson.Result{}, &TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, &TransportError{Op: op, StatusCode: resp.StatusCode, Err: errors.New("response is not valid JSON")}
	}

	env := gjson.ParseBytes(body)
	if msg := env.Get("message").String(); msg != "success" {
		if msg == "" {
			msg = "获取失败"
		}
		c.logger.Warnf("%s rejected: %s", op, msg)
		return gjson.Result{}, &TransportError{Op: op, StatusCode: resp.StatusCode, Message: msg, Err: ErrRejected}
	}

	c.logger.Debugf("%s ok in %s", op, logging.Elapsed(start))
	return env.Get("data"), nil
}

// object returns the value at path as a map, or an empty map.
func object(r gjson.Result, path string) map[string]any {
	if m, ok := r.Get(path).Value().(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// list returns the value at path as a slice, or an empty slice.
func list(r gjson.Result, path string) []any {
	if l, ok := r.Get(path).Value().([]any); ok {
		return l
	}
	return []any{}
}

// optString returns the value at path, or nil when absent.
func optString(r gjson.Result, path string) *string {
	v := r.Get(path)
	if !v.Exists() || v.Type == gjson.Null {
		return nil
	}
	s := v.String()
	return &s
}
