package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/headline/pkg/publish"
)

func outcome(kind publish.Kind, title string, ok bool, started time.Time) *publish.Outcome {
	return &publish.Outcome{
		Succeeded: ok,
		Message:   "msg " + title,
		Kind:      kind,
		Title:     title,
		RunID:     "run-" + title,
		Started:   started,
		Duration:  1500 * time.Millisecond,
		Steps: []publish.StepReport{
			{Name: "title", Status: publish.StepDone},
		},
	}
}

func TestRecordAndList(t *testing.T) {
	ctx := context.Background()
	l, err := Open(ctx, filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	defer l.Close()

	base := time.Now().Add(-time.Hour)
	_, err = l.Record(ctx, outcome(publish.KindArticle, "a", true, base))
	require.NoError(t, err)
	_, err = l.Record(ctx, outcome(publish.KindMicro, "b", false, base.Add(time.Minute)))
	require.NoError(t, err)
	id, err := l.Record(ctx, outcome(publish.KindArticle, "c", false, base.Add(2*time.Minute)))
	require.NoError(t, err)
	assert.Equal(t, int64(3), id)

	all, err := l.List(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].Title)
	assert.Equal(t, int64(1500), all[0].DurationMS)
	require.Len(t, all[0].Steps, 1)
	assert.Equal(t, publish.StepDone, all[0].Steps[0].Status)
	assert.True(t, all[2].Succeeded)

	articles, err := l.List(ctx, Query{Kind: publish.KindArticle})
	require.NoError(t, err)
	assert.Len(t, articles, 2)

	failed, err := l.List(ctx, Query{Failed: true, Limit: 1})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "c", failed[0].Title)

	total, ok, err := l.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, int64(1), ok)
}

func TestInMemoryAndClose(t *testing.T) {
	ctx := context.Background()
	l, err := Open(ctx, ":memory:")
	require.NoError(t, err)

	_, err = l.Record(ctx, outcome(publish.KindMicro, "x", true, time.Now()))
	require.NoError(t, err)

	entries, err := l.List(ctx, Query{})
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	require.NoError(t, l.Close())
	require.NoError(t, l.Close())
	_, err = l.Record(ctx, outcome(publish.KindMicro, "y", true, time.Now()))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	_, err := Open(context.Background(), "  ")
	assert.Error(t, err)
}

func TestRecordNilOutcome(t *testing.T) {
	l, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	defer l.Close()
	_, err = l.Record(context.Background(), nil)
	assert.Error(t, err)
}
