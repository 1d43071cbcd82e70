package feed

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"food4student-feed/internal/geo"
	"food4student-feed/internal/restaurant"
)

const DefaultPageSize = 10

var ErrSuperseded = errors.New("feed operation superseded")

type Lister interface {
	ListRestaurants(ctx context.Context, lat, lng float64, page, size int) ([]restaurant.Record, error)
}

type Liker interface {
	ToggleLike(ctx context.Context, restaurantID string) error
}

type Option func(*Controller)

func WithPageSize(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

func WithLogger(logf func(format string, args ...any)) Option {
	return func(c *Controller) {
		if logf != nil {
			c.logf = logf
		}
	}
}

type phase int

const (
	phaseIdle phase = iota
	phaseRefreshing
	phaseLoadingMore
)

// Controller owns one feed. Fetches run outside the lock; the phase field
// is the single in-flight slot and only moves away from idle under mu.
type Controller struct {
	lister   Lister
	liker    Liker
	pageSize int
	logf     func(format string, args ...any)

	mu     sync.Mutex
	state  State
	phase  phase
	gen    uint64
	cancel context.CancelFunc
	closed bool
	subs   map[chan State]struct{}

	// in-flight like toggles, keyed by likeSeq
	likes   map[uint64]context.CancelFunc
	likeSeq uint64
}

func NewController(lister Lister, liker Liker, opts ...Option) *Controller {
	c := &Controller{
		lister:   lister,
		liker:    liker,
		pageSize: DefaultPageSize,
		logf:     log.Printf,
		subs:     map[chan State]struct{}{},
		likes:    map[uint64]context.CancelFunc{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.state.Page = 1
	c.state.Restaurants = []Restaurant{}
	return c
}

// Refresh replaces the feed with page 1 around loc. A nil loc records a
// user-visible error and leaves the list alone. A refresh preempts an
// in-flight load-more but not another refresh.
func (c *Controller) Refresh(ctx context.Context, loc *geo.Point) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if loc == nil {
		c.state.Error = msgLocationUnavailable
		c.publishLocked()
		c.mu.Unlock()
		return ErrLocationUnavailable
	}
	switch c.phase {
	case phaseRefreshing:
		c.mu.Unlock()
		return ErrBusy
	case phaseLoadingMore:
		c.cancel()
	}
	viewer := *loc
	fetchCtx, gen := c.beginLocked(ctx, phaseRefreshing)
	c.publishLocked()
	c.mu.Unlock()

	records, err := c.lister.ListRestaurants(fetchCtx, viewer.Lat, viewer.Lng, 1, c.pageSize)

	c.mu.Lock()
	defer c.mu.Unlock()
	if endErr := c.endLocked(gen); endErr != nil {
		return endErr
	}
	defer c.publishLocked()

	if err != nil {
		return c.failLocked(ctx, err, "Could not load restaurants.")
	}
	c.state.Restaurants = annotate(records, viewer)
	c.state.Page = 1
	c.state.NoMoreData = false
	return nil
}

// LoadMore appends the next page. It is a no-op unless the feed is idle,
// not exhausted and loc is known.
func (c *Controller) LoadMore(ctx context.Context, loc *geo.Point) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.phase != phaseIdle || c.state.NoMoreData || loc == nil {
		c.mu.Unlock()
		return nil
	}
	viewer := *loc
	next := c.state.Page + 1
	fetchCtx, gen := c.beginLocked(ctx, phaseLoadingMore)
	c.publishLocked()
	c.mu.Unlock()

	records, err := c.lister.ListRestaurants(fetchCtx, viewer.Lat, viewer.Lng, next, c.pageSize)

	c.mu.Lock()
	defer c.mu.Unlock()
	if endErr := c.endLocked(gen); endErr != nil {
		return endErr
	}
	defer c.publishLocked()

	if err != nil {
		return c.failLocked(ctx, err, "Could not load restaurants.")
	}
	c.state.Restaurants = append(c.state.Restaurants, annotate(records, viewer)...)
	c.state.Page = next
	if len(records) < c.pageSize {
		c.state.NoMoreData = true
	}
	return nil
}

// SelectTab only records the tab; callers refresh afterwards.
func (c *Controller) SelectTab(tab Tab) {
	if !tab.Valid() {
		c.logf("feed: ignoring unknown tab %d", int(tab))
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.state.Tab == tab {
		return
	}
	c.state.Tab = tab
	c.publishLocked()
}

// ToggleLike flips the liked flag once the upstream confirms. Ids that
// are not (or no longer) in the feed are dropped.
func (c *Controller) ToggleLike(ctx context.Context, restaurantID string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.indexLocked(restaurantID) < 0 {
		c.mu.Unlock()
		c.logf("feed: dropping like toggle for %s: not in feed", restaurantID)
		return nil
	}
	likeCtx, cancel := context.WithCancel(ctx)
	c.likeSeq++
	likeID := c.likeSeq
	c.likes[likeID] = cancel
	c.mu.Unlock()

	err := c.liker.ToggleLike(likeCtx, restaurantID)

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.likes, likeID)
	cancel()
	if c.closed {
		return ErrClosed
	}
	if err != nil {
		defer c.publishLocked()
		return c.failLocked(ctx, err, "Could not update favourite.")
	}

	i := c.indexLocked(restaurantID)
	if i < 0 {
		c.logf("feed: dropping like toggle for %s: replaced by refresh", restaurantID)
		return nil
	}
	c.state.Restaurants[i].IsLiked = !c.state.Restaurants[i].IsLiked
	c.publishLocked()
	return nil
}

func (c *Controller) DismissError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.state.Error == "" {
		return
	}
	c.state.Error = ""
	c.publishLocked()
}

func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe returns a channel that always holds the most recent state.
// The current state is delivered immediately. The channel is closed by
// the returned cancel func or by Close.
func (c *Controller) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		close(ch)
		return ch, func() {}
	}
	ch <- c.snapshotLocked()
	c.subs[ch] = struct{}{}

	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if _, ok := c.subs[ch]; ok {
			delete(c.subs, ch)
			close(ch)
		}
	}
}

// Close tears the feed down. In-flight fetches and like toggles are
// canceled and their results discarded.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	for id, cancel := range c.likes {
		cancel()
		delete(c.likes, id)
	}
	c.gen++
	c.phase = phaseIdle
	for ch := range c.subs {
		delete(c.subs, ch)
		close(ch)
	}
}

func (c *Controller) beginLocked(ctx context.Context, p phase) (context.Context, uint64) {
	fetchCtx, cancel := context.WithCancel(ctx)
	c.gen++
	c.phase = p
	c.cancel = cancel
	return fetchCtx, c.gen
}

// endLocked releases the in-flight slot if gen still owns it.
func (c *Controller) endLocked(gen uint64) error {
	if c.gen != gen {
		if c.closed {
			return ErrClosed
		}
		return ErrSuperseded
	}
	c.cancel()
	c.cancel = nil
	c.phase = phaseIdle
	return nil
}

func (c *Controller) failLocked(ctx context.Context, err error, headline string) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	fetchErr := toFetchFailed(err)
	c.state.Error = fmt.Sprintf("%s\nError code: %d %s", headline, fetchErr.StatusCode, fetchErr.Message)
	return fetchErr
}

func (c *Controller) indexLocked(restaurantID string) int {
	for i := range c.state.Restaurants {
		if c.state.Restaurants[i].ID == restaurantID {
			return i
		}
	}
	return -1
}

func (c *Controller) snapshotLocked() State {
	s := c.state
	s.Restaurants = make([]Restaurant, len(c.state.Restaurants))
	copy(s.Restaurants, c.state.Restaurants)
	s.PageSize = c.pageSize
	s.Refreshing = c.phase == phaseRefreshing
	s.LoadingMore = c.phase == phaseLoadingMore
	return s
}

func (c *Controller) publishLocked() {
	if len(c.subs) == 0 {
		return
	}
	snap := c.snapshotLocked()
	for ch := range c.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

func toFetchFailed(err error) *FetchFailedError {
	var apiErr *restaurant.APIError
	if errors.As(err, &apiErr) {
		return &FetchFailedError{StatusCode: apiErr.StatusCode, Message: apiErr.Message, Err: err}
	}
	return &FetchFailedError{Message: err.Error(), Err: err}
}
