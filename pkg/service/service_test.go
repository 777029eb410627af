package service

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/headline/pkg/adapter"
	"github.com/entrhq/headline/pkg/history"
	"github.com/entrhq/headline/pkg/login"
	"github.com/entrhq/headline/pkg/media"
	"github.com/entrhq/headline/pkg/platform"
	"github.com/entrhq/headline/pkg/publish"
)

func TestHealth(t *testing.T) {
	f := newFixture(nil)
	h := f.svc.Health(context.Background())
	assert.Equal(t, "ok", h.Status)
	assert.True(t, h.ServiceInitialized)
	assert.True(t, h.Authenticated)

	empty := New(Deps{})
	h = empty.Health(context.Background())
	assert.False(t, h.ServiceInitialized)
	assert.False(t, h.Authenticated)
	assert.False(t, empty.PublishArticle(context.Background(), publish.ArticleRequest{}).Success)
}

func TestOperationsRequireLogin(t *testing.T) {
	f := newFixture(nil)
	f.probe.authenticated = false
	ctx := context.Background()

	responses := []Response{
		f.svc.PublishArticle(ctx, publish.ArticleRequest{Title: "标题", Body: "正文"}),
		f.svc.PublishMicroPost(ctx, publish.MicroPostRequest{Body: "x"}),
		f.svc.ListArticles(ctx, 1, 20, "all"),
		f.svc.AccountOverview(ctx),
		f.svc.TrendingAnalysis(ctx, 7),
		f.svc.AudienceAnalysis(ctx),
		f.svc.GenerateReport(ctx, "weekly"),
		f.svc.PublishAdaptedBatch(ctx, []adapter.Record{{"title": "t", "content": "c"}}, ""),
		f.svc.PublishAdaptedSingle(ctx, adapter.Record{"title": "t", "content": "c"}, ""),
		f.svc.PublishAdaptedFeishuBatch(ctx, nil, ""),
	}
	for i, r := range responses {
		assert.False(t, r.Success, "response %d", i)
		assert.Equal(t, publish.AuthMessage, r.Message, "response %d", i)
	}
	assert.Empty(t, f.publisher.articles)
	assert.Empty(t, f.publisher.micros)
}

func TestLogin(t *testing.T) {
	f := newFixture(nil)
	r := f.svc.Login(context.Background())
	assert.True(t, r.Success)
	assert.Equal(t, "登录成功", r.Message)

	f.login.res = login.Result{State: login.TimedOut, Message: "登录超时，请重试"}
	f.login.err = login.ErrTimedOut
	r = f.svc.Login(context.Background())
	assert.False(t, r.Success)
	assert.Equal(t, "登录超时，请重试", r.Message)
}

func TestLoginDoesNotOverlap(t *testing.T) {
	f := newFixture(nil)
	f.login.block = make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		f.svc.Login(context.Background())
	}()

	require.Eventually(t, func() bool {
		if f.svc.loginMu.TryLock() {
			f.svc.loginMu.Unlock()
			return false
		}
		return true
	}, time.Second, 5*time.Millisecond)

	r := f.svc.Login(context.Background())
	assert.False(t, r.Success)
	assert.Contains(t, r.Message, "登录正在进行中")

	close(f.login.block)
	wg.Wait()
}

func TestCheckLoginStatus(t *testing.T) {
	f := newFixture(nil)
	r := f.svc.CheckLoginStatus(context.Background())
	require.True(t, r.Success)
	st := r.Data.(LoginStatus)
	assert.True(t, st.LoggedIn)
	assert.Equal(t, "tester", st.UserInfo["name"])

	f.platform.err = errBoom
	r = f.svc.CheckLoginStatus(context.Background())
	require.True(t, r.Success)
	assert.Nil(t, r.Data.(LoginStatus).UserInfo)

	f.probe.authenticated = false
	r = f.svc.CheckLoginStatus(context.Background())
	assert.True(t, r.Success)
	assert.False(t, r.Data.(LoginStatus).LoggedIn)
}

func TestLogout(t *testing.T) {
	f := newFixture(nil)
	r := f.svc.Logout(context.Background())
	assert.True(t, r.Success)
	assert.True(t, f.store.Load().Empty())

	f.store.clearErr = errBoom
	r = f.svc.Logout(context.Background())
	assert.False(t, r.Success)
	assert.Equal(t, "登出失败", r.Message)
}

func TestPublishArticleValidationBeforeWorkflow(t *testing.T) {
	f := newFixture(nil)
	r := f.svc.PublishArticle(context.Background(), publish.ArticleRequest{Title: "x", Body: "正文"})
	assert.False(t, r.Success)
	assert.Contains(t, r.Message, "标题长度")
	assert.False(t, strings.HasPrefix(r.Message, publish.ErrInvalidRequest.Error()))
	assert.Empty(t, f.publisher.articles)
}

func TestPublishCompressesImages(t *testing.T) {
	f := newFixture(nil)
	comp := &fakeCompressor{}
	f.svc.deps.Compressor = comp
	f.svc.opts.MaxImageBytes = 1 << 20

	r := f.svc.PublishArticle(context.Background(), publish.ArticleRequest{
		Title: "标题", Body: "正文", Images: []string{"a.jpg"}, Cover: "c.jpg",
	})
	require.True(t, r.Success)
	require.Len(t, f.publisher.articles, 1)
	assert.Equal(t, []string{"a.jpg.small"}, f.publisher.articles[0].Images)
	assert.Equal(t, "c.jpg.small", f.publisher.articles[0].Cover)
	assert.Equal(t, 2, comp.calls)
}

func TestPublishConfinesLocalPaths(t *testing.T) {
	allowed := t.TempDir()
	guard, err := media.NewGuard(allowed)
	require.NoError(t, err)

	f := newFixture(nil)
	f.svc.deps.Guard = guard

	r := f.svc.PublishArticle(context.Background(), publish.ArticleRequest{
		Title: "标题", Body: "正文", Images: []string{filepath.Join(allowed, "a.jpg")}, Cover: "/etc/passwd",
	})
	assert.False(t, r.Success)
	assert.Contains(t, r.Message, "/etc/passwd")
	assert.Empty(t, f.publisher.articles)

	r = f.svc.PublishMicroPost(context.Background(), publish.MicroPostRequest{
		Body: "hello", Images: []string{filepath.Join(allowed, "a.jpg")},
	})
	assert.True(t, r.Success)
	assert.Len(t, f.publisher.micros, 1)
}

func TestPublishAuthOutcomeMapsMessage(t *testing.T) {
	f := newFixture(nil)
	f.publisher.outcome = func(kind publish.Kind) publish.Outcome {
		return publish.Outcome{Kind: kind, Err: &publish.AuthError{Reason: "redirect"}, Message: "whatever"}
	}
	r := f.svc.PublishMicroPost(context.Background(), publish.MicroPostRequest{Body: "hello"})
	assert.False(t, r.Success)
	assert.Equal(t, publish.AuthMessage, r.Message)
}

func TestPublishRecordsHistory(t *testing.T) {
	ledger, err := history.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	defer ledger.Close()

	f := newFixture(ledger)
	require.True(t, f.svc.PublishMicroPost(context.Background(), publish.MicroPostRequest{Body: "hello"}).Success)

	r := f.svc.History(context.Background(), history.Query{})
	require.True(t, r.Success)
	entries := r.Data.([]history.Entry)
	require.Len(t, entries, 1)
	assert.Equal(t, publish.KindMicro, entries[0].Kind)

	assert.False(t, newFixture(nil).svc.History(context.Background(), history.Query{}).Success)
}

func TestConcurrentRunsAreCapped(t *testing.T) {
	f := newFixture(nil)
	f.publisher.delay = 30 * time.Millisecond

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.svc.PublishMicroPost(context.Background(), publish.MicroPostRequest{Body: "x"})
		}()
	}
	wg.Wait()
	assert.Len(t, f.publisher.micros, 6)
	assert.LessOrEqual(t, f.publisher.peak, 2)
}

func TestPublishCancelledWhileWaiting(t *testing.T) {
	f := newFixture(nil)
	require.NoError(t, f.svc.sem.Acquire(context.Background(), 2))
	defer f.svc.sem.Release(2)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	r := f.svc.PublishMicroPost(ctx, publish.MicroPostRequest{Body: "x"})
	assert.False(t, r.Success)
	assert.Contains(t, r.Message, "发布已取消")
}

func TestAnalyticsPassThrough(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()

	r := f.svc.AccountOverview(ctx)
	require.True(t, r.Success)
	assert.Equal(t, int64(7), r.Data.(*platform.Overview).FollowersCount)

	r = f.svc.ArticleStats(ctx, "")
	assert.False(t, r.Success)

	r = f.svc.ContentPerformance(ctx, 10, "bogus")
	assert.False(t, r.Success)
	r = f.svc.ContentPerformance(ctx, 10, "like_count")
	require.True(t, r.Success)

	r = f.svc.GenerateReport(ctx, "yearly")
	assert.False(t, r.Success)
	r = f.svc.GenerateReport(ctx, "monthly")
	require.True(t, r.Success)
	assert.Equal(t, "monthly", r.Data.(*platform.Report).ReportType)

	r = f.svc.DeleteArticle(ctx, "42")
	require.True(t, r.Success)
	assert.Equal(t, []string{"42"}, f.platform.deleted)
}

func TestAnalyticsErrors(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()

	f.platform.err = platform.ErrNoSession
	assert.Equal(t, publish.AuthMessage, f.svc.AccountOverview(ctx).Message)

	f.platform.err = &platform.TransportError{Op: "get_account_overview", Message: "error", Err: platform.ErrRejected}
	r := f.svc.AccountOverview(ctx)
	assert.False(t, r.Success)
	assert.Equal(t, "获取账户概览失败: error", r.Message)

	f.platform.err = errBoom
	r = f.svc.ListArticles(ctx, 1, 20, "all")
	assert.Contains(t, r.Message, "boom")
}

func TestSummarize(t *testing.T) {
	items := []BatchItem{
		{Index: 1, PublishResult: Response{Success: true}},
		{Index: 2, PublishResult: Response{Success: false}},
		{Index: 3, PublishResult: Response{Success: false}},
	}
	sum := Summarize(items)
	assert.Equal(t, 3, sum.TotalRecords)
	assert.Equal(t, 1, sum.SuccessCount)
	assert.Equal(t, 2, sum.FailedCount)
	assert.Equal(t, 33.33, sum.SuccessRate)

	empty := Summarize(nil)
	assert.Zero(t, empty.SuccessRate)
	assert.NotNil(t, empty.Details)
}

func TestPublishAdaptedBatch(t *testing.T) {
	f := newFixture(nil)
	long := strings.Repeat("长", publish.MaxMicroRunes)
	records := []adapter.Record{
		{"title": "短标题", "content": "短内容", "image_url": []any{"http://x/1.jpg", "broken"}},
		{"小红书标题": "很长的文章", "仿写小红书文案": long},
		{"title": "空内容"},
	}

	r := f.svc.PublishAdaptedBatch(context.Background(), records, "")
	require.True(t, r.Success)
	res := r.Data.(BatchResult)
	sum := res.Summary
	assert.Equal(t, 3, sum.TotalRecords)
	assert.Equal(t, 2, sum.SuccessCount)
	assert.Equal(t, "批量发布完成，成功 2/3 条", r.Message)

	require.Len(t, sum.Details, 3)
	assert.Equal(t, 1, sum.Details[0].ImageCount)
	assert.Equal(t, "内容不能为空", sum.Details[2].PublishResult.Message)

	require.Len(t, f.publisher.micros, 1)
	assert.Equal(t, "短标题\n\n短内容", f.publisher.micros[0].Body)
	require.Len(t, f.publisher.articles, 1)
	assert.True(t, f.publisher.articles[0].Original)

	// Spacing only between records, downloads into the default folder.
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, f.sleeps)
	assert.Equal(t, []string{"dl"}, f.resolver.folders)
}

func TestPublishAdaptedBatchCancelled(t *testing.T) {
	f := newFixture(nil)
	ctx, cancel := context.WithCancel(context.Background())
	f.svc.sleep = func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}

	records := []adapter.Record{
		{"title": "一", "content": "a"},
		{"title": "二", "content": "b"},
		{"title": "三", "content": "c"},
	}
	r := f.svc.PublishAdaptedBatch(ctx, records, "folder")
	require.True(t, r.Success)
	sum := r.Data.(BatchResult).Summary
	assert.Equal(t, 3, sum.TotalRecords)
	assert.Equal(t, 1, sum.SuccessCount)
	assert.Equal(t, 3, sum.Details[2].Index)
	assert.Contains(t, sum.Details[2].PublishResult.Message, "处理异常")
}

func TestPublishAdaptedSingleAndFeishu(t *testing.T) {
	f := newFixture(nil)
	r := f.svc.PublishAdaptedSingle(context.Background(), adapter.Record{"title": "标题", "content": "内容"}, "f")
	assert.True(t, r.Success)
	assert.IsType(t, publish.Outcome{}, r.Data)

	r = f.svc.PublishAdaptedFeishuBatch(context.Background(), []adapter.Record{
		{"小红书标题": "飞书", "title": "ignored", "仿写小红书文案": "文案"},
	}, "f")
	require.True(t, r.Success)
	res := r.Data.(BatchResult)
	assert.Equal(t, 1, res.ConvertedRecords)
	assert.Equal(t, "飞书", res.Summary.Details[0].Title)
	assert.Contains(t, r.Message, "飞书记录批量发布完成")
}

func TestPreviewAdapt(t *testing.T) {
	f := newFixture(nil)
	r := f.svc.PreviewAdapt(adapter.Record{"title": " 标题\u200b ", "content": "内容", "image_url": "http://x/a.png"})
	require.True(t, r.Success)
	p := r.Data.(Preview)
	assert.Equal(t, "标题", p.Converted.Title)
	assert.Equal(t, publish.KindMicro, p.Route)
	assert.Equal(t, []string{"http://x/a.png"}, p.Converted.Image.URLs)
}

func TestCloseIsIdempotent(t *testing.T) {
	calls := 0
	s := New(Deps{Close: func() error { calls++; return errBoom }})
	assert.ErrorIs(t, s.Close(), errBoom)
	assert.ErrorIs(t, s.Close(), errBoom)
	assert.Equal(t, 1, calls)
}
