package widget

import (
	"context"

	"github.com/pthm/hxlookup/lib/createflow"
	"github.com/pthm/hxlookup/lib/schema"
	"github.com/pthm/hxlookup/lib/search"
	"github.com/pthm/hxlookup/lib/selection"
)

// Snapshot is a consistent copy of everything needed to render a widget.
type Snapshot struct {
	ID      string
	Version uint64

	Selection  selection.Selection
	Open       bool
	Query      string
	Candidates []search.Candidate
	Searching  bool
	// Notice describes the last failed remote fetch, empty when none.
	Notice string

	// Loading is set while the metadata fetch or a value lookup is in
	// flight.
	Loading       bool
	MetadataReady bool
	EntityLabel   string
	Create        CreateView
	// HostLocked is set while the create flow is open and the host asked to
	// be locked for its duration.
	HostLocked bool
}

// CreateView is the render state of the create-record flow.
type CreateView struct {
	State        createflow.State
	Options      []schema.RecordTypeVariant
	RecordTypeID string
	FormFields   []schema.Field
	Values       map[string]string
	Failed       bool
	Error        string
	Stencil      bool
}

// Open reports whether the create modal is showing.
func (c CreateView) Open() bool {
	return c.State != createflow.Closed
}

// Snapshot returns the current state.
func (w *Widget) Snapshot() (Snapshot, error) {
	var snap Snapshot
	err := w.do(func() { snap = w.snapshot() })
	return snap, err
}

func (w *Widget) snapshot() Snapshot {
	snap := Snapshot{
		ID:            w.id,
		Version:       w.version,
		Selection:     w.sel.Current(),
		Open:          w.sel.IsOpen(),
		Query:         w.search.Text(),
		Candidates:    append([]search.Candidate(nil), w.search.Candidates()...),
		Searching:     w.searching,
		Loading:       w.metaPending || w.resolveCancel != nil,
		MetadataReady: w.meta != nil,
		EntityLabel:   w.cfg.Label,
	}
	if w.notice != nil {
		snap.Notice = w.notice.Error()
	}
	if w.meta != nil && w.meta.Label != "" {
		snap.EntityLabel = w.meta.Label
	}
	snap.Create = CreateView{
		State:        w.flow.State(),
		Options:      w.flow.Options(),
		RecordTypeID: w.flow.RecordTypeID(),
		Values:       w.flow.Fields(),
		Failed:       w.flow.Failed(),
		Stencil:      w.flow.StencilVisible(),
	}
	if w.meta != nil {
		snap.Create.FormFields = w.meta.Fields
	}
	if len(snap.Create.FormFields) == 0 {
		snap.Create.FormFields = []schema.Field{{Name: "Name", Label: "Name", Type: "string", Required: true}}
	}
	if err := w.flow.Err(); err != nil {
		snap.Create.Error = err.Error()
	}
	snap.HostLocked = w.cfg.LockHostOnCreate && snap.Create.Open()
	return snap
}

// Subscribe returns a channel that receives the latest snapshot after every
// state change. Slow readers only see the most recent one. The channel is
// closed when cancel is called or the widget is torn down.
func (w *Widget) Subscribe() (<-chan Snapshot, func(), error) {
	ch := make(chan Snapshot, 1)
	var key int
	err := w.do(func() {
		key = w.nextSub
		w.nextSub++
		w.subs[key] = ch
		ch <- w.snapshot()
	})
	if err != nil {
		return nil, func() {}, err
	}
	cancel := func() {
		w.post(func() {
			if c, ok := w.subs[key]; ok {
				delete(w.subs, key)
				close(c)
			}
		})
	}
	return ch, cancel, nil
}

func (w *Widget) publish() {
	if len(w.subs) == 0 {
		return
	}
	snap := w.snapshot()
	for _, ch := range w.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

func (w *Widget) closeSubs() {
	for key, ch := range w.subs {
		delete(w.subs, key)
		close(ch)
	}
}

// Settled waits until the initial metadata fetch and value lookup have
// finished and returns the snapshot at that point. On ctx expiry it returns
// the latest snapshot along with ctx.Err().
func (w *Widget) Settled(ctx context.Context) (Snapshot, error) {
	ch, cancel, err := w.Subscribe()
	if err != nil {
		return Snapshot{}, err
	}
	defer cancel()
	var last Snapshot
	for {
		select {
		case snap, ok := <-ch:
			if !ok {
				return last, ErrClosed
			}
			last = snap
			if !snap.Loading {
				return snap, nil
			}
		case <-ctx.Done():
			return last, ctx.Err()
		}
	}
}
