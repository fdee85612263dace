// ABOUTME: Tests for the query cache
// ABOUTME: Covers dedup, staleness, observation, polling and mutate-then-invalidate
package query

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func TestKeyMatches(t *testing.T) {
	assert.True(t, Key("deals").Matches(Deals))
	assert.True(t, Key("deals/list").Matches(Deals))
	assert.False(t, Key("dealsx").Matches(Deals))
	assert.True(t, UnreadCount.Matches(Notifications))
	assert.False(t, Notifications.Matches(UnreadCount))
}

func TestFetchDedupsConcurrentCallers(t *testing.T) {
	c := New(WithStaleTime(time.Minute))
	defer c.Close()

	var calls atomic.Int32
	release := make(chan struct{})
	fn := func(ctx context.Context) ([]string, error) {
		calls.Add(1)
		<-release
		return []string{"a", "b"}, nil
	}

	var wg sync.WaitGroup
	results := make([][]string, 10)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := Fetch(context.Background(), c, Deals, fn)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	// Let every caller join the single flight before it finishes.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Equal(t, []string{"a", "b"}, r)
	}
}

func TestFetchServesFreshDataUntilStale(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 6, 25, 9, 0, 0, 0, time.UTC)}
	c := New(WithStaleTime(30*time.Second), WithClock(clock.Now))
	defer c.Close()

	var calls atomic.Int32
	fn := func(ctx context.Context) (int32, error) { return calls.Add(1), nil }

	v, err := Fetch(context.Background(), c, Tasks, fn)
	require.NoError(t, err)
	assert.Equal(t, int32(1), v)

	clock.Advance(10 * time.Second)
	v, _ = Fetch(context.Background(), c, Tasks, fn)
	assert.Equal(t, int32(1), v, "fresh data is served from cache")

	clock.Advance(30 * time.Second)
	v, _ = Fetch(context.Background(), c, Tasks, fn)
	assert.Equal(t, int32(2), v, "stale data is refetched")
}

func TestFetchErrorKeepsLastGoodData(t *testing.T) {
	c := New()
	defer c.Close()

	fail := errors.New("backend down")
	_, err := Fetch(context.Background(), c, Leads, func(ctx context.Context) (string, error) { return "v1", nil })
	require.NoError(t, err)

	_, err = Fetch(context.Background(), c, Leads, func(ctx context.Context) (string, error) { return "", fail })
	assert.ErrorIs(t, err, fail)

	snap, ok := c.peek(Leads)
	require.True(t, ok)
	assert.Equal(t, StatusError, snap.Status)
	assert.Equal(t, "v1", snap.Data)
	assert.ErrorIs(t, snap.Err, fail)
}

func TestObserveServesStaleWhileRevalidating(t *testing.T) {
	c := New()
	defer c.Close()
	events, unsubscribe := c.Subscribe()
	defer unsubscribe()

	c.SetData(Deals, "old")
	<-events

	snap, release := c.Observe(Deals, Func(func(ctx context.Context) (string, error) {
		return "new", nil
	}))
	defer release()

	assert.Equal(t, "old", snap.Data, "cached value is returned immediately")
	assert.True(t, snap.Stale)

	assert.Eventually(t, func() bool {
		s, _ := c.peek(Deals)
		return s.Data == "new" && !s.Fetching
	}, time.Second, 5*time.Millisecond)

	got := drainUntil(t, events, func(ev Event) bool { return ev.Snapshot.Data == "new" })
	assert.Equal(t, Deals, got.Key)
}

// Deleting a deal must remove it from every observed deal view without a
// manual refresh.
func TestMutateInvalidatesAndRefetchesObservedQueries(t *testing.T) {
	c := New(WithStaleTime(time.Hour))
	defer c.Close()

	var mu sync.Mutex
	server := []string{"deal-1", "deal-2"}
	list := Func(func(ctx context.Context) ([]string, error) {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), server...), nil
	})

	kanbanKey := NewKey(string(Deals), "kanban")
	tableKey := NewKey(string(Deals), "table")
	for _, k := range []Key{kanbanKey, tableKey} {
		_, err := c.Fetch(context.Background(), k, list)
		require.NoError(t, err)
	}
	_, releaseKanban := c.Observe(kanbanKey, list)
	defer releaseKanban()
	_, releaseTable := c.Observe(tableKey, list)
	defer releaseTable()

	err := Exec(context.Background(), c, func(ctx context.Context) error {
		mu.Lock()
		server = server[1:]
		mu.Unlock()
		return nil
	}, OnDealChange...)
	require.NoError(t, err)

	for _, k := range []Key{kanbanKey, tableKey} {
		key := k
		assert.Eventually(t, func() bool {
			s, _ := c.peek(key)
			data, _ := Data[[]string](s)
			return len(data) == 1 && data[0] == "deal-2" && !s.Stale
		}, time.Second, 5*time.Millisecond, string(key))
	}
}

func TestMutateFailureLeavesCacheAlone(t *testing.T) {
	c := New(WithStaleTime(time.Hour))
	defer c.Close()
	c.SetData(Tasks, "cached")

	boom := errors.New("422")
	_, err := Mutate(context.Background(), c, func(ctx context.Context) (string, error) {
		return "", boom
	}, OnTaskChange...)
	assert.ErrorIs(t, err, boom)

	snap, _ := c.peek(Tasks)
	assert.False(t, snap.Stale)
}

func TestInvalidateDuringFlightRefetches(t *testing.T) {
	c := New(WithStaleTime(time.Hour))
	defer c.Close()

	var calls atomic.Int32
	started := make(chan struct{}, 2)
	release := make(chan struct{})
	fn := Func(func(ctx context.Context) (int32, error) {
		n := calls.Add(1)
		started <- struct{}{}
		if n == 1 {
			<-release
		}
		return n, nil
	})

	_, stop := c.Observe(Events, fn)
	defer stop()
	<-started

	c.Invalidate(Events)
	close(release)

	assert.Eventually(t, func() bool {
		s, _ := c.peek(Events)
		return s.Data == int32(2) && !s.Stale
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(2), calls.Load(), "one refetch, never two requests in flight")
}

func TestInvalidateUnobservedKeyWaitsForNextRead(t *testing.T) {
	c := New(WithStaleTime(time.Hour))
	defer c.Close()

	var calls atomic.Int32
	fn := func(ctx context.Context) (int32, error) { return calls.Add(1), nil }
	_, err := Fetch(context.Background(), c, Quotes, fn)
	require.NoError(t, err)

	c.Invalidate(OnProductChange...)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())

	v, err := Fetch(context.Background(), c, Quotes, fn)
	require.NoError(t, err)
	assert.Equal(t, int32(2), v)
}

func TestPollRefetches(t *testing.T) {
	c := New(WithStaleTime(time.Hour))
	defer c.Close()

	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	c.Poll(ctx, UnreadCount, 10*time.Millisecond, Func(func(ctx context.Context) (int32, error) {
		return calls.Add(1), nil
	}))

	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	time.Sleep(30 * time.Millisecond)
	settled := calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, settled, calls.Load(), "polling stops with its context")
}

func TestClearDropsData(t *testing.T) {
	c := New(WithStaleTime(time.Hour))
	defer c.Close()
	c.SetData(Me, "ada")
	c.Clear()
	_, ok := c.peek(Me)
	assert.False(t, ok)
}

func TestFetchWithoutFetcher(t *testing.T) {
	c := New()
	defer c.Close()
	_, err := c.Fetch(context.Background(), Health, nil)
	var nf *NoFetcherError
	assert.ErrorAs(t, err, &nf)
}

func TestCallerContextStopsWaiting(t *testing.T) {
	c := New()
	defer c.Close()

	release := make(chan struct{})
	defer close(release)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := Fetch(ctx, c, Users, func(ctx context.Context) (int, error) {
		<-release
		return 1, nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func drainUntil(t *testing.T, ch <-chan Event, match func(Event) bool) Event {
	t.Helper()
	timeout := time.After(time.Second)
	for {
		select {
		case ev := <-ch:
			if match(ev) {
				return ev
			}
		case <-timeout:
			t.Fatal("expected cache event never arrived")
			return Event{}
		}
	}
}
