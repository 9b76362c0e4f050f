// Package widget is the controller of one entity lookup. Each Widget runs a
// single goroutine that owns the search session, the selection, the default
// value resolver, the parent row hydrator and the create-record flow. Every
// exported method hands its work to that goroutine and waits for it, so the
// state needs no locks. Remote fetches run on their own goroutines and post
// their results back; anything posted after Close is dropped.
package widget

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pthm/hxlookup/lib/createflow"
	"github.com/pthm/hxlookup/lib/label"
	"github.com/pthm/hxlookup/lib/record"
	"github.com/pthm/hxlookup/lib/schema"
	"github.com/pthm/hxlookup/lib/search"
	"github.com/pthm/hxlookup/lib/selection"
)

// DefaultFetchTimeout bounds every remote search, lookup and metadata fetch.
const DefaultFetchTimeout = 10 * time.Second

// Resolver fetches records by identifier.
type Resolver interface {
	LookupByID(ctx context.Context, id, entityType string, fields []string) ([]record.Record, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, id, entityType string, fields []string) ([]record.Record, error)

func (f ResolverFunc) LookupByID(ctx context.Context, id, entityType string, fields []string) ([]record.Record, error) {
	return f(ctx, id, entityType, fields)
}

// Deps are the remote collaborators of a widget. Any of them may be nil; the
// matching channel is then inert.
type Deps struct {
	Searcher  search.Searcher
	Resolver  Resolver
	Metadata  schema.MetadataProvider
	Submitter createflow.Submitter
}

// Option configures a Widget.
type Option func(*Widget)

// WithID sets the instance identifier. The default is a random UUID.
func WithID(id string) Option {
	return func(w *Widget) { w.id = id }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(w *Widget) { w.log = l }
}

// WithScheduler replaces the timer source of the deferred dropdown close.
func WithScheduler(s selection.Scheduler) Option {
	return func(w *Widget) { w.sched = s }
}

// WithClock replaces time.Now for the create form stencil.
func WithClock(now func() time.Time) Option {
	return func(w *Widget) { w.now = now }
}

// WithNotifier registers a sink for every emitted event.
func WithNotifier(n Notifier) Option {
	return func(w *Widget) { w.notifier = n }
}

// WithFetchTimeout bounds remote fetches.
func WithFetchTimeout(d time.Duration) Option {
	return func(w *Widget) { w.fetchTimeout = d }
}

// Widget is one live lookup instance.
type Widget struct {
	id           string
	cfg          Config
	deps         Deps
	log          *slog.Logger
	notifier     Notifier
	sched        selection.Scheduler
	now          func() time.Time
	fetchTimeout time.Duration

	inbox     chan func()
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
	ctx       context.Context
	cancel    context.CancelFunc

	// Owned by the loop.
	formatter     label.Formatter
	sel           *selection.State
	search        search.Session
	searching     bool
	searchCancel  context.CancelFunc
	searchWaiters []chan struct{}
	blurWaiters   []chan struct{}
	valueID       string
	resolveToken  uint64
	resolveCancel context.CancelFunc
	touched       bool
	meta          *schema.EntityMetadata
	metaPending   bool
	rtOptions     []schema.RecordTypeVariant
	rtDefault     string
	flow          *createflow.Flow
	notice        *RemoteFetchError
	version       uint64
	dirty         bool
	subs          map[int]chan Snapshot
	nextSub       int
}

// New starts a widget for cfg. The metadata fetch and, when cfg.ValueID is
// set, the default value lookup are issued immediately.
func New(cfg Config, deps Deps, opts ...Option) *Widget {
	w := &Widget{
		cfg:          cfg.normalized(),
		deps:         deps,
		fetchTimeout: DefaultFetchTimeout,
		inbox:        make(chan func()),
		done:         make(chan struct{}),
		stopped:      make(chan struct{}),
		subs:         make(map[int]chan Snapshot),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.id == "" {
		w.id = uuid.NewString()
	}
	if w.log == nil {
		w.log = slog.Default()
	}
	w.log = w.log.With("widget", w.id, "entity", w.cfg.EntityType)
	if w.now == nil {
		w.now = time.Now
	}
	w.ctx, w.cancel = context.WithCancel(context.Background())
	w.formatter = w.cfg.Formatter()
	w.sel = selection.New(w.sched, w.cfg.CloseDelay)
	w.flow = createflow.New(w.cfg.EntityType, w.now)

	go w.run()
	w.post(func() {
		w.fetchMetadata()
		if w.cfg.ValueID != "" {
			w.resolve(w.cfg.ValueID)
		}
	})
	return w
}

// ID returns the instance identifier.
func (w *Widget) ID() string { return w.id }

// Config returns the normalized configuration.
func (w *Widget) Config() Config { return w.cfg }

// Done is closed once the widget has been torn down.
func (w *Widget) Done() <-chan struct{} { return w.done }

func (w *Widget) run() {
	defer close(w.stopped)
	defer w.closeSubs()
	for {
		select {
		case f := <-w.inbox:
			if w.isClosed() {
				return
			}
			f()
			if w.dirty {
				w.dirty = false
				w.version++
				w.publish()
			}
		case <-w.done:
			return
		}
	}
}

func (w *Widget) isClosed() bool {
	select {
	case <-w.done:
		return true
	default:
		return false
	}
}

// post queues f on the loop without waiting. After Close it is a no-op,
// which is how late fetch results are discarded.
func (w *Widget) post(f func()) {
	select {
	case w.inbox <- f:
	case <-w.done:
	}
}

// do runs f on the loop and waits for it.
func (w *Widget) do(f func()) error {
	ran := make(chan struct{})
	select {
	case w.inbox <- func() { f(); close(ran) }:
	case <-w.done:
		return ErrClosed
	}
	select {
	case <-ran:
		return nil
	case <-w.done:
		return ErrClosed
	}
}

// Close tears the widget down. In-flight fetches are cancelled and their
// results dropped. Close is idempotent and waits for the loop to exit.
func (w *Widget) Close() {
	w.closeOnce.Do(func() {
		close(w.done)
		w.cancel()
	})
	<-w.stopped
}

// fetchContext derives a bounded context for one remote call.
func (w *Widget) fetchContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(w.ctx, w.fetchTimeout)
}

// changed marks the state as modified by the running loop turn.
func (w *Widget) changed() {
	w.dirty = true
}

func (w *Widget) emit(eff *Effects, ev Event) {
	eff.event(ev)
	if w.notifier != nil {
		w.notifier.Emit(w.id, ev)
	}
}

func (w *Widget) recordNotice(ch Channel, err error) {
	w.notice = &RemoteFetchError{Channel: ch, EntityType: w.cfg.EntityType, Err: err}
	w.log.Warn("remote fetch failed",
		"channel", string(ch),
		"key", w.cfg.CorrelationKey,
		"error", err)
}

func (w *Widget) requireWritable() error {
	if w.cfg.ReadOnly {
		return ErrReadOnly
	}
	return nil
}
