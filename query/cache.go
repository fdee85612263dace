// ABOUTME: Key-based cache of server state shared by every screen
// ABOUTME: Dedups in-flight fetches, revalidates stale data and refetches after mutations
package query

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"
)

// Key identifies a query. Segments are joined with "/" so that
// invalidating "deals" also reaches "deals/list?status=won".
type Key string

func NewKey(parts ...string) Key {
	return Key(strings.Join(parts, "/"))
}

// Matches reports whether k equals prefix or lives under it.
func (k Key) Matches(prefix Key) bool {
	return k == prefix || strings.HasPrefix(string(k), string(prefix)+"/")
}

type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	}
	return "idle"
}

// Fetcher loads the value for a key.
type Fetcher func(ctx context.Context) (any, error)

// Func adapts a typed fetch function.
func Func[T any](fn func(ctx context.Context) (T, error)) Fetcher {
	return func(ctx context.Context) (any, error) { return fn(ctx) }
}

// Snapshot is a point-in-time view of one key. Data survives a failed
// refetch so screens keep rendering the last good value.
type Snapshot struct {
	Data      any
	Err       error
	Status    Status
	UpdatedAt time.Time
	Stale     bool
	Fetching  bool
}

// Data extracts the typed value from a snapshot.
func Data[T any](s Snapshot) (T, bool) {
	v, ok := s.Data.(T)
	return v, ok
}

// Event announces that a key's snapshot changed.
type Event struct {
	Key      Key
	Snapshot Snapshot
}

type entry struct {
	data        any
	err         error
	status      Status
	updatedAt   time.Time
	invalidated bool
	fetching    bool
	fetcher     Fetcher
	observers   int
	gen         uint64
}

type Cache struct {
	mu      sync.Mutex
	entries map[Key]*entry
	group   singleflight.Group

	staleTime time.Duration
	now       func() time.Time
	logger    *log.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	subMu  sync.Mutex
	subs   map[int]chan Event
	nextID int
	closed bool
}

type Option func(*Cache)

// WithStaleTime sets how long a successful fetch counts as fresh.
// Zero means data is stale as soon as it lands.
func WithStaleTime(d time.Duration) Option {
	return func(c *Cache) { c.staleTime = d }
}

func WithLogger(l *log.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func New(opts ...Option) *Cache {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Cache{
		entries: make(map[Key]*entry),
		now:     time.Now,
		ctx:     ctx,
		cancel:  cancel,
		subs:    make(map[int]chan Event),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = log.New(io.Discard)
	}
	return c
}

// Fetch returns fresh cached data for key or loads it with fn. Concurrent
// callers for the same key share one request. The shared request runs
// under the cache's context; ctx only bounds how long this caller waits.
func Fetch[T any](ctx context.Context, c *Cache, key Key, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	v, err := c.Fetch(ctx, key, Func(fn))
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok && v != nil {
		return zero, &TypeError{Key: key}
	}
	return typed, nil
}

// TypeError means two callers registered different types under one key.
type TypeError struct{ Key Key }

func (e *TypeError) Error() string { return "query: unexpected data type for key " + string(e.Key) }

func (c *Cache) Fetch(ctx context.Context, key Key, fn Fetcher) (any, error) {
	c.mu.Lock()
	e := c.entryLocked(key)
	if fn != nil {
		e.fetcher = fn
	}
	if c.freshLocked(e) {
		data := e.data
		c.mu.Unlock()
		return data, nil
	}
	c.mu.Unlock()
	return c.load(ctx, key)
}

// peek returns the current snapshot without fetching.
func (c *Cache) peek(key Key) (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return Snapshot{}, false
	}
	return c.snapshotLocked(e), true
}

// Observe marks key as in use by a mounted screen. It returns whatever is
// cached right away and revalidates in the background when that is
// missing or stale. Invalidations refetch observed keys immediately.
// Call release when the screen goes away.
func (c *Cache) Observe(key Key, fn Fetcher) (Snapshot, func()) {
	c.mu.Lock()
	e := c.entryLocked(key)
	if fn != nil {
		e.fetcher = fn
	}
	e.observers++
	snap := c.snapshotLocked(e)
	needsFetch := !c.freshLocked(e) && !e.fetching && e.fetcher != nil
	c.mu.Unlock()

	if needsFetch {
		c.revalidate(key)
	}

	var once sync.Once
	return snap, func() {
		once.Do(func() {
			c.mu.Lock()
			if e, ok := c.entries[key]; ok && e.observers > 0 {
				e.observers--
			}
			c.mu.Unlock()
		})
	}
}

// Invalidate marks every key under the given prefixes stale and refetches
// the ones a screen is observing.
func (c *Cache) Invalidate(prefixes ...Key) {
	var refetch []Key
	c.mu.Lock()
	for key, e := range c.entries {
		if !matchesAny(key, prefixes) {
			continue
		}
		e.invalidated = true
		e.gen++
		// An in-flight fetch notices the generation bump and runs again.
		if e.observers > 0 && e.fetcher != nil && !e.fetching {
			refetch = append(refetch, key)
		}
	}
	c.mu.Unlock()

	for _, key := range refetch {
		c.logger.Debug("refetching invalidated query", "key", key)
		c.revalidate(key)
	}
}

// SetData writes data for key directly, as a fresh success.
func (c *Cache) SetData(key Key, data any) {
	c.mu.Lock()
	e := c.entryLocked(key)
	e.data = data
	e.err = nil
	e.status = StatusSuccess
	e.updatedAt = c.now()
	e.invalidated = false
	snap := c.snapshotLocked(e)
	c.mu.Unlock()
	c.publish(Event{Key: key, Snapshot: snap})
}

// Clear forgets all cached data. Used when the session ends so no
// previous user's records linger.
func (c *Cache) Clear() {
	c.mu.Lock()
	for key, e := range c.entries {
		e.gen++
		if e.observers == 0 && !e.fetching {
			delete(c.entries, key)
			continue
		}
		e.data = nil
		e.err = nil
		e.status = StatusIdle
		e.invalidated = true
	}
	c.mu.Unlock()
}

// Poll refetches key every interval until ctx ends. The key counts as
// observed while polling.
func (c *Cache) Poll(ctx context.Context, key Key, every time.Duration, fn Fetcher) {
	_, release := c.Observe(key, fn)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer release()
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.ctx.Done():
				return
			case <-ticker.C:
				if _, err := c.load(ctx, key); err != nil && ctx.Err() == nil {
					c.logger.Debug("poll failed", "key", key, "err", err)
				}
			}
		}
	}()
}

// Subscribe returns a channel of snapshot changes. Slow readers miss
// events rather than blocking fetches.
func (c *Cache) Subscribe() (<-chan Event, func()) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	ch := make(chan Event, 256)
	if c.closed {
		close(ch)
		return ch, func() {}
	}
	id := c.nextID
	c.nextID++
	c.subs[id] = ch
	return ch, func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}
}

// Close stops polling and background fetches and closes subscriptions.
func (c *Cache) Close() {
	c.cancel()
	c.wg.Wait()
	c.subMu.Lock()
	defer c.subMu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
}

func (c *Cache) revalidate(key Key) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if _, err := c.load(c.ctx, key); err != nil && c.ctx.Err() == nil {
			c.logger.Debug("background fetch failed", "key", key, "err", err)
		}
	}()
}

func (c *Cache) load(ctx context.Context, key Key) (any, error) {
	ch := c.group.DoChan(string(key), func() (any, error) {
		return c.run(key)
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// run performs the single in-flight request for key.
func (c *Cache) run(key Key) (any, error) {
	c.mu.Lock()
	e := c.entryLocked(key)
	fn := e.fetcher
	if fn == nil {
		c.mu.Unlock()
		return nil, &NoFetcherError{Key: key}
	}
	gen := e.gen
	e.fetching = true
	if e.status == StatusIdle {
		e.status = StatusLoading
	}
	snap := c.snapshotLocked(e)
	c.mu.Unlock()
	c.publish(Event{Key: key, Snapshot: snap})

	data, err := fn(c.ctx)

	c.mu.Lock()
	e.fetching = false
	if e.gen != gen && e.status == StatusIdle {
		// Cleared while in flight: the result belongs to an old session.
		c.mu.Unlock()
		return data, err
	}
	if err != nil {
		e.err = err
		e.status = StatusError
	} else {
		e.data = data
		e.err = nil
		e.status = StatusSuccess
		e.updatedAt = c.now()
		e.invalidated = e.gen != gen
	}
	again := e.gen != gen && e.observers > 0 && c.ctx.Err() == nil
	snap = c.snapshotLocked(e)
	c.mu.Unlock()
	c.publish(Event{Key: key, Snapshot: snap})

	if again {
		c.group.Forget(string(key))
		c.revalidate(key)
	}
	return data, err
}

// NoFetcherError means a key was loaded before anyone registered a fetcher.
type NoFetcherError struct{ Key Key }

func (e *NoFetcherError) Error() string { return "query: no fetcher registered for " + string(e.Key) }

func (c *Cache) entryLocked(key Key) *entry {
	e, ok := c.entries[key]
	if !ok {
		e = &entry{}
		c.entries[key] = e
	}
	return e
}

func (c *Cache) freshLocked(e *entry) bool {
	if e.status != StatusSuccess || e.invalidated {
		return false
	}
	return c.now().Sub(e.updatedAt) < c.staleTime
}

func (c *Cache) snapshotLocked(e *entry) Snapshot {
	return Snapshot{
		Data:      e.data,
		Err:       e.err,
		Status:    e.status,
		UpdatedAt: e.updatedAt,
		Stale:     !c.freshLocked(e),
		Fetching:  e.fetching,
	}
}

func (c *Cache) publish(ev Event) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- ev:
		default:
			c.logger.Debug("dropping cache event for slow subscriber", "key", ev.Key)
		}
	}
}

func matchesAny(key Key, prefixes []Key) bool {
	for _, p := range prefixes {
		if key.Matches(p) {
			return true
		}
	}
	return false
}
