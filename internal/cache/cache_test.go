package cache

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/budgie-app/budgie/internal/model"
)

var (
	txnKey      = Key{Resource: model.ResourceTransactions}
	txnMarchKey = Key{Resource: model.ResourceTransactions, Filter: "period=2025-03"}
	catKey      = Key{Resource: model.ResourceCategories}
)

type counter struct {
	calls atomic.Int32
}

func (c *counter) fetch(vals ...string) func(context.Context) ([]string, error) {
	return func(context.Context) ([]string, error) {
		c.calls.Add(1)
		return vals, nil
	}
}

func TestLoad_CachesUntilInvalidated(t *testing.T) {
	c := New()
	ctx := context.Background()
	var n counter

	v, err := Load(ctx, c, txnKey, n.fetch("a"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, v)

	v, err = Load(ctx, c, txnKey, n.fetch("b"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, v)
	assert.Equal(t, int32(1), n.calls.Load())

	c.Invalidate(model.ResourceTransactions)
	e, ok := c.Peek(txnKey)
	require.True(t, ok)
	assert.True(t, e.Stale)

	v, err = Load(ctx, c, txnKey, n.fetch("b"))
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, v)
	assert.Equal(t, int32(2), n.calls.Load())
}

func TestInvalidate_AllVariantsOfResourceOnly(t *testing.T) {
	c := New()
	ctx := context.Background()
	var n counter

	_, _ = Load(ctx, c, txnKey, n.fetch("all"))
	_, _ = Load(ctx, c, txnMarchKey, n.fetch("march"))
	_, _ = Load(ctx, c, catKey, n.fetch("food"))

	c.Invalidate(model.ResourceTransactions)

	for _, k := range []Key{txnKey, txnMarchKey} {
		e, _ := c.Peek(k)
		assert.True(t, e.Stale, k.String())
	}
	e, _ := c.Peek(catKey)
	assert.False(t, e.Stale)
	assert.Len(t, c.Keys(model.ResourceTransactions), 2)
}

func TestLoad_FailureKeepsPreviousData(t *testing.T) {
	c := New()
	ctx := context.Background()
	var n counter
	_, err := Load(ctx, c, catKey, n.fetch("food"))
	require.NoError(t, err)
	c.Invalidate(model.ResourceCategories)

	boom := errors.New("boom")
	_, err = Load(ctx, c, catKey, func(context.Context) ([]string, error) { return nil, boom })
	require.ErrorIs(t, err, boom)

	e, ok := c.Peek(catKey)
	require.True(t, ok)
	assert.Equal(t, StatusError, e.Status)
	assert.ErrorIs(t, e.Err, boom)
	assert.Equal(t, []string{"food"}, e.Data)
	assert.True(t, e.Stale)

	v, err := Load(ctx, c, catKey, n.fetch("rent"))
	require.NoError(t, err)
	assert.Equal(t, []string{"rent"}, v)
	e, _ = c.Peek(catKey)
	assert.Equal(t, StatusReady, e.Status)
	assert.NoError(t, e.Err)
	assert.False(t, e.FetchedAt.IsZero())
}

func TestLoad_FirstFetchFails(t *testing.T) {
	c := New()
	_, err := Load(context.Background(), c, catKey, func(context.Context) ([]string, error) {
		return nil, errors.New("offline")
	})
	require.Error(t, err)

	e, ok := c.Peek(catKey)
	require.True(t, ok)
	assert.Equal(t, StatusError, e.Status)
	assert.Nil(t, e.Data)
}

func TestLoad_InvalidatedDuringFetchStaysStale(t *testing.T) {
	c := New()
	ctx := context.Background()
	started := make(chan struct{})
	release := make(chan struct{})

	done := make(chan []string)
	go func() {
		v, _ := Load(ctx, c, txnKey, func(context.Context) ([]string, error) {
			close(started)
			<-release
			return []string{"old"}, nil
		})
		done <- v
	}()

	<-started
	c.Invalidate(model.ResourceTransactions)
	close(release)
	assert.Equal(t, []string{"old"}, <-done)

	e, _ := c.Peek(txnKey)
	assert.Equal(t, []string{"old"}, e.Data)
	assert.True(t, e.Stale)

	var n counter
	v, err := Load(ctx, c, txnKey, n.fetch("new"))
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, v)
	assert.Equal(t, int32(1), n.calls.Load())
}

func TestLoad_ConcurrentLoadsEachFetch(t *testing.T) {
	c := New()
	ctx := context.Background()
	var calls atomic.Int32
	gate := make(chan struct{})
	first := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = Load(ctx, c, txnKey, func(context.Context) ([]string, error) {
			calls.Add(1)
			<-gate
			return []string{"first"}, nil
		})
		close(first)
	}()
	go func() {
		defer wg.Done()
		_, _ = Load(ctx, c, txnKey, func(context.Context) ([]string, error) {
			calls.Add(1)
			<-first
			return []string{"second"}, nil
		})
	}()

	// Both fetches must be in flight before either resolves.
	for calls.Load() < 2 {
		runtime.Gosched()
	}
	close(gate)
	wg.Wait()

	assert.Equal(t, int32(2), calls.Load())
	e, _ := c.Peek(txnKey)
	assert.Equal(t, []string{"second"}, e.Data)
}

func TestPatch(t *testing.T) {
	c := New()
	ctx := context.Background()
	var n counter
	_, _ = Load(ctx, c, txnKey, n.fetch("a", "b"))
	_, _ = Load(ctx, c, txnMarchKey, n.fetch("a"))

	Patch(c, model.ResourceTransactions, func(k Key, data []string) ([]string, bool) {
		if k.Filter != "" {
			return nil, false
		}
		return append([]string{"new"}, data...), true
	})

	e, _ := c.Peek(txnKey)
	assert.Equal(t, []string{"new", "a", "b"}, e.Data)
	assert.False(t, e.Stale)

	e, _ = c.Peek(txnMarchKey)
	assert.Equal(t, []string{"a"}, e.Data)
	assert.True(t, e.Stale)
}

func TestPatch_DuringFirstFetchStaysStale(t *testing.T) {
	c := New()
	ctx := context.Background()
	started := make(chan struct{})
	release := make(chan struct{})

	done := make(chan []string)
	go func() {
		v, _ := Load(ctx, c, txnKey, func(context.Context) ([]string, error) {
			close(started)
			<-release
			return []string{"old"}, nil
		})
		done <- v
	}()

	<-started
	patched := false
	Patch(c, model.ResourceTransactions, func(_ Key, data []string) ([]string, bool) {
		patched = true
		return append([]string{"new"}, data...), true
	})
	assert.False(t, patched)
	close(release)
	assert.Equal(t, []string{"old"}, <-done)

	e, _ := c.Peek(txnKey)
	assert.True(t, e.Stale)

	var n counter
	v, err := Load(ctx, c, txnKey, n.fetch("new", "old"))
	require.NoError(t, err)
	assert.Equal(t, []string{"new", "old"}, v)
	assert.Equal(t, int32(1), n.calls.Load())
}

func TestPatch_WrongTypeInvalidates(t *testing.T) {
	c := New()
	var n counter
	_, _ = Load(context.Background(), c, catKey, n.fetch("food"))

	Patch(c, model.ResourceCategories, func(_ Key, data []int) ([]int, bool) {
		return data, true
	})
	e, _ := c.Peek(catKey)
	assert.True(t, e.Stale)
}

func TestSubscribe_EventOrder(t *testing.T) {
	c := New()
	ctx := context.Background()
	var mu sync.Mutex
	var got []string
	unsubscribe := c.Subscribe(func(ev Event) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, ev.Kind.String()+" "+ev.Key.String())
	})

	var n counter
	_, _ = Load(ctx, c, txnMarchKey, n.fetch("a"))
	c.Invalidate(model.ResourceTransactions)
	_, _ = Load(ctx, c, txnMarchKey, func(context.Context) ([]string, error) { return nil, errors.New("x") })

	unsubscribe()
	c.Invalidate(model.ResourceTransactions)

	assert.Equal(t, []string{
		"loading transactions?period=2025-03",
		"updated transactions?period=2025-03",
		"invalidated transactions?period=2025-03",
		"loading transactions?period=2025-03",
		"failed transactions?period=2025-03",
	}, got)
}

func TestSubscribe_ListenerMayReadCache(t *testing.T) {
	c := New()
	var seen []Status
	c.Subscribe(func(ev Event) {
		e, _ := c.Peek(ev.Key)
		seen = append(seen, e.Status)
	})
	var n counter
	_, err := Load(context.Background(), c, catKey, n.fetch("food"))
	require.NoError(t, err)
	assert.Equal(t, []Status{StatusLoading, StatusReady}, seen)
}

func TestClear(t *testing.T) {
	c := New()
	var n counter
	_, _ = Load(context.Background(), c, catKey, n.fetch("food"))
	c.Clear()
	_, ok := c.Peek(catKey)
	assert.False(t, ok)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "idle", StatusIdle.String())
	assert.Equal(t, "loading", StatusLoading.String())
	assert.Equal(t, "ready", StatusReady.String())
	assert.Equal(t, "error", StatusError.String())
	assert.Equal(t, "status(9)", Status(9).String())
}
