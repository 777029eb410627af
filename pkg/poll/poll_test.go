package poll

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUntil_MatchesImmediately(t *testing.T) {
	calls := 0
	err := Until(context.Background(), time.Millisecond, time.Second, func() (bool, error) {
		calls++
		return true, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestUntil_MatchesAfterSeveralPolls(t *testing.T) {
	calls := 0
	err := Until(context.Background(), time.Millisecond, time.Second, func() (bool, error) {
		calls++
		return calls == 3, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestUntil_TimesOut(t *testing.T) {
	start := time.Now()
	err := Until(context.Background(), 5*time.Millisecond, 30*time.Millisecond, func() (bool, error) {
		return false, nil
	})
	assert.ErrorIs(t, err, ErrTimedOut)
	assert.Less(t, time.Since(start), time.Second)
}

func TestUntil_ZeroCeilingStillEvaluatesOnce(t *testing.T) {
	calls := 0
	err := Until(context.Background(), time.Millisecond, 0, func() (bool, error) {
		calls++
		return false, nil
	})
	assert.ErrorIs(t, err, ErrTimedOut)
	assert.GreaterOrEqual(t, calls, 1)
}

func TestUntil_PredicateErrorAborts(t *testing.T) {
	boom := errors.New("boom")
	err := Until(context.Background(), time.Millisecond, time.Second, func() (bool, error) {
		return false, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestUntil_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Until(ctx, time.Millisecond, time.Minute, func() (bool, error) {
		return false, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSleep(t *testing.T) {
	require.NoError(t, Sleep(context.Background(), time.Millisecond))
	require.NoError(t, Sleep(context.Background(), 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Minute), context.Canceled)
}
