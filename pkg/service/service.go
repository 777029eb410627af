// Package service is the single handle behind every public operation. It is
// built once at process start and shared by the HTTP front end and the CLI.
// Every operation returns a Response; errors never escape unconverted.
package service

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/entrhq/headline/pkg/history"
	"github.com/entrhq/headline/pkg/logging"
	"github.com/entrhq/headline/pkg/login"
	"github.com/entrhq/headline/pkg/media"
	"github.com/entrhq/headline/pkg/metrics"
	"github.com/entrhq/headline/pkg/platform"
	"github.com/entrhq/headline/pkg/poll"
	"github.com/entrhq/headline/pkg/publish"
	"github.com/entrhq/headline/pkg/session"
)

// Response is the uniform result of an operation.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func ok(msg string, data any) Response {
	return Response{Success: true, Message: msg, Data: data}
}

func failed(msg string) Response {
	return Response{Message: msg}
}

// Prober reports whether the stored session is accepted by the platform.
type Prober interface {
	Check(ctx context.Context) session.Status
}

// LoginRunner performs one interactive login.
type LoginRunner interface {
	Run(ctx context.Context) (login.Result, error)
}

// Publisher runs the browser workflows.
type Publisher interface {
	PublishArticle(ctx context.Context, req publish.ArticleRequest) publish.Outcome
	PublishMicroPost(ctx context.Context, req publish.MicroPostRequest) publish.Outcome
}

// Platform is the JSON API of the creator backend.
type Platform interface {
	ListArticles(ctx context.Context, page, pageSize int, status string) (*platform.ArticleList, error)
	DeleteArticle(ctx context.Context, id string) error
	UserInfo(ctx context.Context) (map[string]any, error)
	AccountOverview(ctx context.Context) (*platform.Overview, error)
	ArticleStats(ctx context.Context, articleID string) (*platform.ArticleStats, error)
	TrendingAnalysis(ctx context.Context, days int) (*platform.Trending, error)
	ContentPerformanceRanking(ctx context.Context, limit int, sortBy string) (*platform.ContentPerformance, error)
	AudienceAnalysis(ctx context.Context) (*platform.Audience, error)
	GenerateReport(ctx context.Context, reportType string) *platform.Report
}

// ImageResolver downloads remote images.
type ImageResolver interface {
	Resolve(ctx context.Context, ref media.Reference, folder string) []string
}

// Compressor shrinks local images above a byte bound.
type Compressor interface {
	Compress(path string, maxBytes int64) string
}

// PathGuard confines caller-supplied local image paths.
type PathGuard interface {
	Check(paths ...string) error
}

// Ledger records outcomes.
type Ledger interface {
	Record(ctx context.Context, o *publish.Outcome) (int64, error)
	List(ctx context.Context, q history.Query) ([]history.Entry, error)
}

// Options tune the service.
type Options struct {
	// MaxConcurrent caps concurrent workflow runs.
	MaxConcurrent int64
	// BatchSpacing is the pause between consecutive batch records.
	BatchSpacing time.Duration
	// MaxImageBytes is the compression target; zero disables compression.
	MaxImageBytes int64
	// DownloadDir is the default folder for downloaded images.
	DownloadDir string
}

// Deps are the collaborators of a Service. Compressor, Guard, Ledger and
// Metrics may be nil.
type Deps struct {
	Store      session.Store
	Probe      Prober
	Login      LoginRunner
	Publisher  Publisher
	Platform   Platform
	Resolver   ImageResolver
	Compressor Compressor
	Guard      PathGuard
	Ledger     Ledger
	Metrics    *metrics.Metrics
	Options    Options
	Logger     *logging.Logger
	// Close releases resources owned by the handle.
	Close func() error
}

// Service is the explicit service handle.
type Service struct {
	deps   Deps
	opts   Options
	sem    *semaphore.Weighted
	logger *logging.Logger

	loginMu sync.Mutex
	sleep   func(ctx context.Context, d time.Duration) error

	closeOnce sync.Once
	closeErr  error
}

// New builds a Service from its collaborators.
func New(deps Deps) *Service {
	if deps.Options.MaxConcurrent <= 0 {
		deps.Options.MaxConcurrent = 2
	}
	if deps.Options.BatchSpacing <= 0 {
		deps.Options.BatchSpacing = 2 * time.Second
	}
	if deps.Options.DownloadDir == "" {
		deps.Options.DownloadDir = "downloaded_images"
	}
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	return &Service{
		deps:   deps,
		opts:   deps.Options,
		sem:    semaphore.NewWeighted(deps.Options.MaxConcurrent),
		logger: deps.Logger,
		sleep:  poll.Sleep,
	}
}

// Initialized reports whether every mandatory collaborator is present.
func (s *Service) Initialized() bool {
	d := s.deps
	return d.Store != nil && d.Probe != nil && d.Login != nil && d.Publisher != nil && d.Platform != nil && d.Resolver != nil
}

// Metrics returns the collectors, or nil.
func (s *Service) Metrics() *metrics.Metrics {
	return s.deps.Metrics
}

// Health is the liveness report.
type Health struct {
	Status             string `json:"status"`
	ServiceInitialized bool   `json:"serviceInitialized"`
	Authenticated      bool   `json:"authenticated"`
	Message            string `json:"message"`
}

// Health probes the session and reports readiness.
func (s *Service) Health(ctx context.Context) Health {
	h := Health{Status: "ok", ServiceInitialized: s.Initialized(), Message: "头条发布服务运行正常"}
	if s.deps.Probe != nil {
		h.Authenticated = s.deps.Probe.Check(ctx).Authenticated
	}
	return h
}

// Close releases the handle's resources. It is safe to call more than once.
func (s *Service) Close() error {
	s.closeOnce.Do(func() {
		if s.deps.Close != nil {
			s.closeErr = s.deps.Close()
		}
	})
	return s.closeErr
}

// authenticated gates an operation on the session probe.
func (s *Service) authenticated(ctx context.Context) (Response, bool) {
	if !s.Initialized() {
		return failed("服务未初始化"), false
	}
	st := s.deps.Probe.Check(ctx)
	if !st.Authenticated {
		s.logger.Infof("operation rejected: not logged in (%s)", st.Reason)
		return failed(publish.AuthMessage), false
	}
	return Response{}, true
}
