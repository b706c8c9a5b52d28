package search

import (
	"context"
	"strings"
	"sync"
	"time"

	"clip-library/internal/library"
	"clip-library/internal/logging"
	"clip-library/internal/metrics"
)

const (
	// DefaultDebounce is how long typing must pause before a search
	// dispatches.
	DefaultDebounce = 400 * time.Millisecond

	defaultLimit   = 200
	defaultTimeout = 10 * time.Second
)

// Backend produces ranked results for a query. Ranker satisfies it.
type Backend interface {
	Search(ctx context.Context, query string, limit int) ([]library.SearchResult, error)
}

// Client debounces query edits and owns the current semantic result
// set. Each dispatch carries a generation number; a response whose
// generation is no longer current is discarded, so results can never
// regress to an older query. A failed search keeps the previous
// results. Clearing the query takes effect synchronously, with no
// debounce.
type Client struct {
	backend  Backend
	debounce time.Duration
	limit    int
	timeout  time.Duration
	onUpdate func()

	mu         sync.Mutex
	timer      *time.Timer
	generation uint64
	results    []library.SearchResult
	active     bool
}

// NewClient returns a Client over backend. onUpdate fires after every
// state change that a view should re-derive from; it may be nil.
func NewClient(backend Backend, onUpdate func()) *Client {
	return &Client{
		backend:  backend,
		debounce: DefaultDebounce,
		limit:    defaultLimit,
		timeout:  defaultTimeout,
		onUpdate: onUpdate,
	}
}

// SetQuery reacts to an edit of the semantic query. A non-blank query
// restarts the debounce window; a blank one cancels any pending
// dispatch and clears the results immediately.
func (c *Client) SetQuery(query string) {
	query = strings.TrimSpace(query)

	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}

	if query == "" {
		c.generation++
		c.results = nil
		c.active = false
		c.mu.Unlock()
		c.notify()
		return
	}

	c.timer = time.AfterFunc(c.debounce, func() { c.dispatch(query) })
	c.mu.Unlock()
}

// dispatch runs one search against the backend and installs the
// results if no newer query or clear superseded it meanwhile.
func (c *Client) dispatch(query string) {
	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	start := time.Now()
	results, err := c.backend.Search(ctx, query, c.limit)
	metrics.SearchDuration.Observe(time.Since(start).Seconds())

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		metrics.SearchDispatchesTotal.WithLabelValues("stale").Inc()
		return
	}
	if err != nil {
		c.mu.Unlock()
		metrics.SearchDispatchesTotal.WithLabelValues("error").Inc()
		logging.Warn("semantic search for %q failed: %v", query, err)
		return
	}
	c.results = results
	c.active = true
	c.mu.Unlock()

	metrics.SearchDispatchesTotal.WithLabelValues("success").Inc()
	metrics.SearchResultsReturned.Observe(float64(len(results)))
	logging.Debug("semantic search for %q returned %d results", query, len(results))
	c.notify()
}

// Results returns the current ranked results and whether semantic mode
// is active. The slice is shared; callers must not modify it.
func (c *Client) Results() ([]library.SearchResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.results, c.active
}

func (c *Client) notify() {
	if c.onUpdate != nil {
		c.onUpdate()
	}
}
