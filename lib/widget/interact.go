package widget

import (
	"context"
	"fmt"

	"github.com/pthm/hxlookup/lib/record"
	"github.com/pthm/hxlookup/lib/search"
)

// Focus opens the dropdown, drops a pending close and searches with an empty
// query so the user always starts from the full candidate set.
func (w *Widget) Focus() (search.Ticket, error) {
	if err := w.requireWritable(); err != nil {
		return search.Ticket{}, err
	}
	var tk search.Ticket
	err := w.do(func() {
		w.sel.Focus()
		w.settleBlur()
		tk = w.issueSearch("")
	})
	return tk, err
}

// Type records a query change and starts its search. Earlier searches are
// cancelled and their results will be ignored.
func (w *Widget) Type(text string) (search.Ticket, error) {
	if err := w.requireWritable(); err != nil {
		return search.Ticket{}, err
	}
	var tk search.Ticket
	err := w.do(func() { tk = w.issueSearch(text) })
	return tk, err
}

// AwaitSearch blocks until the search issued under tk has been applied or
// superseded. It reports whether tk is still the live query.
func (w *Widget) AwaitSearch(ctx context.Context, tk search.Ticket) (Snapshot, bool, error) {
	var wait chan struct{}
	err := w.do(func() {
		if w.search.IsLive(tk) && w.searching {
			wait = make(chan struct{})
			w.searchWaiters = append(w.searchWaiters, wait)
		}
	})
	if err != nil {
		return Snapshot{}, false, err
	}
	if wait != nil {
		select {
		case <-wait:
		case <-ctx.Done():
			return Snapshot{}, false, ctx.Err()
		case <-w.done:
			return Snapshot{}, false, ErrClosed
		}
	}
	var (
		snap Snapshot
		live bool
	)
	err = w.do(func() {
		snap = w.snapshot()
		live = w.search.IsLive(tk)
	})
	return snap, live, err
}

func (w *Widget) issueSearch(text string) search.Ticket {
	if w.searchCancel != nil {
		w.searchCancel()
		w.searchCancel = nil
	}
	w.wakeSearchWaiters()
	tk := w.search.Issue(text)
	w.changed()
	if w.deps.Searcher == nil {
		w.search.Apply(tk, nil, nil, w.formatter)
		return tk
	}
	w.searching = true
	ctx, cancel := w.fetchContext()
	w.searchCancel = cancel
	q := search.Query{
		Text:       text,
		EntityType: w.cfg.EntityType,
		Filter:     w.cfg.Filter,
		Fields:     w.cfg.Fields(),
	}
	go func() {
		defer cancel()
		rows, err := w.deps.Searcher.Search(ctx, q)
		w.post(func() { w.applySearch(tk, rows, err) })
	}()
	return tk
}

func (w *Widget) applySearch(tk search.Ticket, rows []record.Record, err error) {
	if !w.search.Apply(tk, rows, err, w.formatter) {
		w.log.Debug("discarding stale search result", "query", tk.Text, "token", tk.Token)
		return
	}
	w.searching = false
	w.searchCancel = nil
	if err != nil {
		w.recordNotice(ChannelSearch, err)
	} else if w.notice != nil && w.notice.Channel == ChannelSearch {
		w.notice = nil
	}
	w.changed()
	w.wakeSearchWaiters()
}

// dropSearch cancels the search in flight and discards the candidate list.
func (w *Widget) dropSearch() {
	if w.searchCancel != nil {
		w.searchCancel()
		w.searchCancel = nil
	}
	w.search.Invalidate()
	w.searching = false
	w.wakeSearchWaiters()
}

func (w *Widget) wakeSearchWaiters() {
	for _, ch := range w.searchWaiters {
		close(ch)
	}
	w.searchWaiters = nil
}

// Blur arms the deferred dropdown close. The returned channel is closed once
// the close has happened or was cancelled by a pick or a new focus.
func (w *Widget) Blur() (<-chan struct{}, error) {
	settled := make(chan struct{})
	err := w.do(func() {
		w.sel.Blur(func(f func()) {
			w.post(func() {
				f()
				w.changed()
				w.settleBlur()
			})
		})
		w.blurWaiters = append(w.blurWaiters, settled)
	})
	return settled, err
}

// settleBlur releases Blur callers once no close is pending.
func (w *Widget) settleBlur() {
	if w.sel.ClosePending() {
		return
	}
	for _, ch := range w.blurWaiters {
		close(ch)
	}
	w.blurWaiters = nil
}

// Choose commits the candidate with identifier id. A pending deferred close
// is cancelled first. An id that is not in the candidate list is rejected
// without emitting anything.
func (w *Widget) Choose(id string) (Effects, error) {
	if err := w.requireWritable(); err != nil {
		return Effects{}, err
	}
	var (
		eff      Effects
		notFound bool
	)
	err := w.do(func() {
		if w.sel.CancelClose() {
			w.changed()
		}
		w.settleBlur()
		c, ok := w.search.Find(id)
		if !ok {
			notFound = true
			return
		}
		w.commit(c.Values)
		w.touched = true
		w.emit(&eff, selectedEvent(w.cfg, c.ID))
	})
	if err != nil {
		return Effects{}, err
	}
	if notFound {
		return Effects{}, fmt.Errorf("%w: %s", ErrCandidateNotFound, id)
	}
	return eff, nil
}

// Clear removes the selection. Clearing an empty selection emits nothing.
func (w *Widget) Clear() (Effects, error) {
	if err := w.requireWritable(); err != nil {
		return Effects{}, err
	}
	var eff Effects
	err := w.do(func() {
		if _, changed := w.sel.Clear(); !changed {
			return
		}
		w.changed()
		w.touched = true
		w.valueID = ""
		w.invalidateResolve()
		w.emit(&eff, clearedEvent(w.cfg))
	})
	return eff, err
}
