// Package pagination implements the infinite-scroll list controller shared by
// the feed, the related-videos panel and the analytics table.
package pagination

import (
	"context"
	"errors"
	"sync"

	"github.com/vidfriends/vidclient/internal/logging"
	"github.com/vidfriends/vidclient/internal/models"
)

// ErrClosed is returned by operations on a closed controller.
var ErrClosed = errors.New("pagination: controller closed")

// Fetcher loads one page. page is zero-based.
type Fetcher[T, F any] func(ctx context.Context, page, pageSize int, filters F) (models.Page[T], error)

// State is a snapshot of the controller.
type State[T, F any] struct {
	Items     []T
	PageIndex int
	HasMore   bool
	Loading   bool
	Filters   F
	// Err holds the last fetch failure; it is cleared by Start.
	Err error
}

// Options configures a Controller.
type Options[T, F any] struct {
	PageSize int
	// Transform filters each fetched page before it is applied.
	Transform func([]T) []T
	// OnChange receives a snapshot after every state transition.
	OnChange func(State[T, F])
}

// Controller accumulates pages for one filter set. Each controller runs at
// most one fetch at a time; the mutex is never held across a fetch.
type Controller[T, F any] struct {
	fetch     Fetcher[T, F]
	pageSize  int
	transform func([]T) []T
	onChange  func(State[T, F])

	mu     sync.Mutex
	state  State[T, F]
	gen    uint64
	closed bool
}

// New constructs an idle controller with no items.
func New[T, F any](fetch Fetcher[T, F], opts Options[T, F]) *Controller[T, F] {
	if fetch == nil {
		panic("pagination: fetcher must not be nil")
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}
	return &Controller[T, F]{
		fetch:     fetch,
		pageSize:  pageSize,
		transform: opts.Transform,
		onChange:  opts.OnChange,
		state:     State[T, F]{HasMore: true},
	}
}

// State returns a snapshot of the current state.
func (c *Controller[T, F]) State() State[T, F] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Start discards every item and loads page 0 for filters. When a fetch is
// already in flight the reset happens immediately and Start returns; the
// goroutine owning that fetch drops its result and loads page 0 for the new
// filters instead.
func (c *Controller[T, F]) Start(ctx context.Context, filters F) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	busy := c.state.Loading
	c.gen++
	c.state = State[T, F]{Filters: filters, HasMore: true, Loading: true}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
	if busy {
		return nil
	}
	return c.run(ctx, 0)
}

// LoadMore fetches the next page. It is a no-op returning false while a
// fetch is in flight, once the list is exhausted, or after Close.
func (c *Controller[T, F]) LoadMore(ctx context.Context) (bool, error) {
	c.mu.Lock()
	if c.closed || c.state.Loading || !c.state.HasMore {
		c.mu.Unlock()
		return false, nil
	}
	c.state.Loading = true
	next := c.state.PageIndex + 1
	if len(c.state.Items) == 0 && c.state.Err == nil && c.state.PageIndex == 0 {
		// Nothing loaded yet: the first page is page 0.
		next = 0
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
	return true, c.run(ctx, next)
}

// OnVisible is the visibility-signal entry point. Failures are recorded in
// the state rather than returned.
func (c *Controller[T, F]) OnVisible(ctx context.Context) bool {
	started, err := c.LoadMore(ctx)
	if err != nil {
		logging.FromContext(ctx).Debug("page fetch failed", "error", err)
	}
	return started
}

// Subscribe calls OnVisible for every signal until ctx ends or signals is
// closed. It is the controller's only subscription.
func (c *Controller[T, F]) Subscribe(ctx context.Context, signals <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-signals:
			if !ok {
				return nil
			}
			c.OnVisible(ctx)
		}
	}
}

// Close tears the controller down. In-flight fetches are not cancelled, but
// their results are discarded.
func (c *Controller[T, F]) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *Controller[T, F]) run(ctx context.Context, page int) error {
	for {
		c.mu.Lock()
		gen := c.gen
		filters := c.state.Filters
		c.mu.Unlock()

		result, err := c.fetch(ctx, page, c.pageSize, filters)

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return err
		}
		if gen != c.gen {
			// Filters changed mid-flight: this result belongs to the old set.
			page = 0
			c.mu.Unlock()
			continue
		}

		if err != nil {
			c.state.HasMore = false
			c.state.Err = err
		} else {
			c.applyLocked(page, result)
		}
		c.state.Loading = false
		snap := c.snapshotLocked()
		c.mu.Unlock()

		c.notify(snap)
		return err
	}
}

func (c *Controller[T, F]) applyLocked(page int, result models.Page[T]) {
	items := result.Data
	if c.transform != nil {
		items = c.transform(items)
	}

	if page == 0 {
		c.state.Items = append([]T(nil), items...)
	} else {
		c.state.Items = append(c.state.Items, items...)
	}
	c.state.PageIndex = page
	c.state.Err = nil
	c.state.HasMore = HasMore(len(items), page, c.pageSize, result.TotalResults)
}

func (c *Controller[T, F]) snapshotLocked() State[T, F] {
	snap := c.state
	snap.Items = append([]T(nil), c.state.Items...)
	return snap
}

func (c *Controller[T, F]) notify(snap State[T, F]) {
	if c.onChange != nil {
		c.onChange(snap)
	}
}

// HasMore reports whether another page exists after page, given how many
// items page returned and the server's total.
func HasMore(returned, page, pageSize, totalResults int) bool {
	return returned > 0 && (page+1)*pageSize < totalResults
}
