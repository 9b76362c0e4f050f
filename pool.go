package hxlookup

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/pthm/hxlookup/lib/widget"
)

// DefaultIdleTTL is how long an untouched widget stays in a Pool.
const DefaultIdleTTL = 30 * time.Minute

type pooled struct {
	w        *widget.Widget
	lastUsed time.Time
}

// Pool keeps live widgets keyed by instance ID. Widgets idle for longer than
// the TTL are closed by Reap.
type Pool struct {
	mu      sync.Mutex
	widgets map[string]*pooled
	group   singleflight.Group
	ttl     time.Duration
	now     func() time.Time
	log     *slog.Logger
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithIdleTTL sets the idle time after which a widget is reaped.
func WithIdleTTL(d time.Duration) PoolOption {
	return func(p *Pool) { p.ttl = d }
}

// WithPoolClock replaces time.Now.
func WithPoolClock(now func() time.Time) PoolOption {
	return func(p *Pool) { p.now = now }
}

// WithPoolLogger sets the pool's logger.
func WithPoolLogger(l *slog.Logger) PoolOption {
	return func(p *Pool) { p.log = l }
}

// NewPool returns an empty pool.
func NewPool(opts ...PoolOption) *Pool {
	p := &Pool{
		widgets: make(map[string]*pooled),
		ttl:     DefaultIdleTTL,
		now:     time.Now,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Get returns the widget for id and marks it used.
func (p *Pool) Get(id string) (*widget.Widget, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.widgets[id]
	if !ok {
		return nil, false
	}
	e.lastUsed = p.now()
	return e.w, true
}

// GetOrCreate returns the widget for id, building it with create when the
// pool has none. create runs outside the pool lock; concurrent callers for
// the same id share one call.
func (p *Pool) GetOrCreate(id string, create func() (*widget.Widget, error)) (*widget.Widget, error) {
	if w, ok := p.Get(id); ok {
		return w, nil
	}
	v, err, _ := p.group.Do(id, func() (any, error) {
		if w, ok := p.Get(id); ok {
			return w, nil
		}
		w, err := create()
		if err != nil {
			return nil, err
		}
		p.mu.Lock()
		p.widgets[id] = &pooled{w: w, lastUsed: p.now()}
		n := len(p.widgets)
		p.mu.Unlock()
		p.log.Debug("widget created", "instance", id, "pooled", n)
		return w, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*widget.Widget), nil
}

// Remove closes and forgets the widget for id.
func (p *Pool) Remove(id string) bool {
	p.mu.Lock()
	e, ok := p.widgets[id]
	delete(p.widgets, id)
	p.mu.Unlock()
	if ok {
		e.w.Close()
	}
	return ok
}

// Len returns the number of live widgets.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.widgets)
}

// Reap closes every widget idle for longer than the TTL and returns how many
// were closed.
func (p *Pool) Reap() int {
	cutoff := p.now().Add(-p.ttl)
	var stale []*widget.Widget

	p.mu.Lock()
	for id, e := range p.widgets {
		if e.lastUsed.Before(cutoff) {
			stale = append(stale, e.w)
			delete(p.widgets, id)
		}
	}
	p.mu.Unlock()

	for _, w := range stale {
		w.Close()
	}
	if len(stale) > 0 {
		p.log.Info("reaped idle widgets", "count", len(stale))
	}
	return len(stale)
}

// Run calls Reap every interval until ctx is done, then closes the pool.
func (p *Pool) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			p.Reap()
		case <-ctx.Done():
			p.Close()
			return
		}
	}
}

// Close closes every widget.
func (p *Pool) Close() {
	p.mu.Lock()
	all := p.widgets
	p.widgets = make(map[string]*pooled)
	p.mu.Unlock()
	for _, e := range all {
		e.w.Close()
	}
}
