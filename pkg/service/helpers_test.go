package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/entrhq/headline/pkg/history"
	"github.com/entrhq/headline/pkg/login"
	"github.com/entrhq/headline/pkg/media"
	"github.com/entrhq/headline/pkg/platform"
	"github.com/entrhq/headline/pkg/publish"
	"github.com/entrhq/headline/pkg/session"
)

type memStore struct {
	mu       sync.Mutex
	sess     session.Session
	clearErr error
}

func (m *memStore) Load() session.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sess
}

func (m *memStore) Save(s session.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess = s
	return nil
}

func (m *memStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clearErr != nil {
		return m.clearErr
	}
	m.sess = session.Session{}
	return nil
}

func (m *memStore) Present() bool { return !m.Load().Empty() }

type fakeProbe struct{ authenticated bool }

func (p *fakeProbe) Check(context.Context) session.Status {
	return session.Status{Authenticated: p.authenticated, Reason: "fake"}
}

type fakeLogin struct {
	res   login.Result
	err   error
	block chan struct{}
}

func (f *fakeLogin) Run(context.Context) (login.Result, error) {
	if f.block != nil {
		<-f.block
	}
	return f.res, f.err
}

type fakePublisher struct {
	mu       sync.Mutex
	articles []publish.ArticleRequest
	micros   []publish.MicroPostRequest
	outcome  func(kind publish.Kind) publish.Outcome
	delay    time.Duration
	active   int
	peak     int
}

func (f *fakePublisher) enter() {
	f.mu.Lock()
	f.active++
	if f.active > f.peak {
		f.peak = f.active
	}
	f.mu.Unlock()
	time.Sleep(f.delay)
	f.mu.Lock()
	f.active--
	f.mu.Unlock()
}

func (f *fakePublisher) result(kind publish.Kind) publish.Outcome {
	if f.outcome != nil {
		return f.outcome(kind)
	}
	return publish.Outcome{Succeeded: true, Kind: kind, Message: "ok", RunID: string(kind) + "-run", Started: time.Now()}
}

func (f *fakePublisher) PublishArticle(_ context.Context, req publish.ArticleRequest) publish.Outcome {
	f.enter()
	f.mu.Lock()
	f.articles = append(f.articles, req)
	f.mu.Unlock()
	o := f.result(publish.KindArticle)
	o.Title = req.Title
	return o
}

func (f *fakePublisher) PublishMicroPost(_ context.Context, req publish.MicroPostRequest) publish.Outcome {
	f.enter()
	f.mu.Lock()
	f.micros = append(f.micros, req)
	f.mu.Unlock()
	return f.result(publish.KindMicro)
}

type fakePlatform struct {
	err     error
	deleted []string
}

func (f *fakePlatform) ListArticles(_ context.Context, page, pageSize int, _ string) (*platform.ArticleList, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &platform.ArticleList{Articles: []any{}, Page: page, PageSize: pageSize}, nil
}

func (f *fakePlatform) DeleteArticle(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return f.err
}

func (f *fakePlatform) UserInfo(context.Context) (map[string]any, error) {
	if f.err != nil {
		return nil, f.err
	}
	return map[string]any{"name": "tester"}, nil
}

func (f *fakePlatform) AccountOverview(context.Context) (*platform.Overview, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &platform.Overview{FollowersCount: 7}, nil
}

func (f *fakePlatform) ArticleStats(_ context.Context, id string) (*platform.ArticleStats, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &platform.ArticleStats{ArticleID: id, Status: "unknown"}, nil
}

func (f *fakePlatform) TrendingAnalysis(_ context.Context, days int) (*platform.Trending, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &platform.Trending{PeriodDays: days}, nil
}

func (f *fakePlatform) ContentPerformanceRanking(_ context.Context, _ int, sortBy string) (*platform.ContentPerformance, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &platform.ContentPerformance{SortBy: sortBy}, nil
}

func (f *fakePlatform) AudienceAnalysis(context.Context) (*platform.Audience, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &platform.Audience{}, nil
}

func (f *fakePlatform) GenerateReport(_ context.Context, reportType string) *platform.Report {
	return &platform.Report{ReportType: reportType}
}

// fakeResolver maps every URL to a local path unless it contains "broken".
type fakeResolver struct {
	folders []string
}

func (f *fakeResolver) Resolve(_ context.Context, ref media.Reference, folder string) []string {
	f.folders = append(f.folders, folder)
	var out []string
	for i, u := range ref.URLs {
		if u == "broken" {
			continue
		}
		out = append(out, folder+"/img"+string(rune('0'+i))+".jpg")
	}
	return out
}

type fakeCompressor struct{ calls int }

func (f *fakeCompressor) Compress(path string, _ int64) string {
	f.calls++
	return path + ".small"
}

var errBoom = errors.New("boom")

type fixture struct {
	svc       *Service
	store     *memStore
	probe     *fakeProbe
	login     *fakeLogin
	publisher *fakePublisher
	platform  *fakePlatform
	resolver  *fakeResolver
	ledger    *history.Ledger
	sleeps    []time.Duration
}

func newFixture(ledger *history.Ledger) *fixture {
	f := &fixture{
		store:     &memStore{sess: session.Session{Cookies: []session.Cookie{{Name: "sessionid", Value: "v", Domain: ".toutiao.com"}}}},
		probe:     &fakeProbe{authenticated: true},
		login:     &fakeLogin{res: login.Result{State: login.Authenticated, Message: "登录成功"}},
		publisher: &fakePublisher{},
		platform:  &fakePlatform{},
		resolver:  &fakeResolver{},
		ledger:    ledger,
	}
	deps := Deps{
		Store:     f.store,
		Probe:     f.probe,
		Login:     f.login,
		Publisher: f.publisher,
		Platform:  f.platform,
		Resolver:  f.resolver,
		Options:   Options{BatchSpacing: 2 * time.Second, DownloadDir: "dl"},
	}
	if ledger != nil {
		deps.Ledger = ledger
	}
	f.svc = New(deps)
	f.svc.sleep = func(ctx context.Context, d time.Duration) error {
		f.sleeps = append(f.sleeps, d)
		return ctx.Err()
	}
	return f
}
