package session

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/entrhq/headline/pkg/logging"
)

const (
	// DefaultHomepage is the authenticated-only creator homepage.
	DefaultHomepage = "https://mp.toutiao.com/profile_v4/index"

	// DefaultUserAgent mimics a desktop Chrome build.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	probeTimeout = 10 * time.Second
	maxProbeBody = 4 << 20
)

var (
	authMarkers  = []string{"profile", "creator", "dashboard", "publish", "content", "创作者", "发布", "我的"}
	loginMarkers = []string{"login", "auth"}
)

// Status is the result of one probe.
type Status struct {
	Authenticated bool `json:"authenticated"`
	// Indeterminate is set when the platform could not be reached.
	Indeterminate bool   `json:"indeterminate,omitempty"`
	StatusCode    int    `json:"statusCode,omitempty"`
	Marker        string `json:"marker,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

// Probe checks whether the stored session still grants access to the homepage.
type Probe struct {
	store     Store
	homepage  string
	userAgent string
	client    *http.Client
	logger    *logging.Logger
}

// ProbeOption customizes a Probe.
type ProbeOption func(*Probe)

// WithHomepage overrides the probed URL.
func WithHomepage(u string) ProbeOption {
	return func(p *Probe) { p.homepage = u }
}

// WithUserAgent overrides the request user agent.
func WithUserAgent(ua string) ProbeOption {
	return func(p *Probe) { p.userAgent = ua }
}

// WithHTTPClient replaces the transport used for the probe. The client's jar
// is replaced on every check.
func WithHTTPClient(c *http.Client) ProbeOption {
	return func(p *Probe) { p.client = c }
}

// NewProbe creates a probe reading sessions from store.
func NewProbe(store Store, logger *logging.Logger, opts ...ProbeOption) *Probe {
	if logger == nil {
		logger = logging.Discard()
	}
	p := &Probe{
		store:     store,
		homepage:  DefaultHomepage,
		userAgent: DefaultUserAgent,
		client:    &http.Client{},
		logger:    logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Check loads the current session and classifies it. It never returns an
// error: an unreachable platform is reported as not authenticated with
// Indeterminate set.
func (p *Probe) Check(ctx context.Context) Status {
	return p.CheckSession(ctx, p.store.Load())
}

// CheckSession classifies an explicit session.
func (p *Probe) CheckSession(ctx context.Context, sess Session) Status {
	if sess.Empty() {
		return Status{Reason: "no stored session"}
	}

	target, err := url.Parse(p.homepage)
	if err != nil {
		return Status{Indeterminate: true, Reason: fmt.Sprintf("invalid homepage: %v", err)}
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return Status{Indeterminate: true, Reason: err.Error()}
	}
	jar.SetCookies(target, jarCookies(sess.Scoped(), target))

	client := *p.client
	client.Jar = jar
	if client.Timeout == 0 {
		client.Timeout = probeTimeout
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return Status{Indeterminate: true, Reason: err.Error()}
	}
	setBrowserHeaders(req, p.userAgent)

	resp, err := client.Do(req)
	if err != nil {
		p.logger.Warnf("session probe failed: %v", err)
		return Status{Indeterminate: true, Reason: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProbeBody))
	if err != nil {
		p.logger.Warnf("session probe read failed: %v", err)
		return Status{Indeterminate: true, StatusCode: resp.StatusCode, Reason: err.Error()}
	}

	st := Classify(resp.StatusCode, string(body))
	p.logger.Debugf("session probe: status=%d authenticated=%v marker=%q", st.StatusCode, st.Authenticated, st.Marker)
	return st
}

// Classify applies the homepage classification rules to a response.
func Classify(statusCode int, body string) Status {
	st := Status{StatusCode: statusCode}
	if statusCode < 200 || statusCode > 299 {
		st.Reason = fmt.Sprintf("homepage returned %d", statusCode)
		return st
	}

	lower := strings.ToLower(body)
	for _, m := range authMarkers {
		if strings.Contains(lower, m) {
			st.Authenticated = true
			st.Marker = m
			return st
		}
	}
	for _, m := range loginMarkers {
		if strings.Contains(lower, m) {
			st.Marker = m
			st.Reason = "homepage shows the login page"
			return st
		}
	}

	// Neither marker set present: accepted as a weak positive.
	st.Authenticated = true
	st.Reason = "no markers"
	return st
}

func jarCookies(sess Session, target *url.URL) []*http.Cookie {
	cookies := sess.HTTPCookies()
	for _, c := range cookies {
		// cookiejar only accepts domains that cover the request host.
		host := target.Hostname()
		d := strings.TrimPrefix(c.Domain, ".")
		if host != d && !strings.HasSuffix(host, "."+d) {
			c.Domain = ""
		}
	}
	return cookies
}

func setBrowserHeaders(req *http.Request, userAgent string) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8")
	req.Header.Set("Connection", "keep-alive")
}
