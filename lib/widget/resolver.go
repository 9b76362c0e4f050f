package widget

import (
	"github.com/pthm/hxlookup/lib/record"
)

// SetValueID points the widget at an externally supplied identifier. A new,
// non-empty id issues exactly one lookup whose result becomes the selection.
// An empty id cancels a pending lookup but leaves the current selection.
func (w *Widget) SetValueID(id string) error {
	return w.do(func() {
		if id == w.valueID {
			return
		}
		if id == "" {
			w.valueID = ""
			w.invalidateResolve()
			return
		}
		w.resolve(id)
	})
}

// ValueID returns the identifier the widget was last pointed at.
func (w *Widget) ValueID() (string, error) {
	var id string
	err := w.do(func() { id = w.valueID })
	return id, err
}

// commit makes rec the selection, closes the dropdown and drops candidates.
// Neither a lookup nor a search still in flight can overwrite it.
func (w *Widget) commit(rec record.Record) {
	w.invalidateResolve()
	w.sel.Select(rec, w.formatter)
	w.dropSearch()
	if id := rec.ID(); id != "" {
		w.valueID = id
	}
	w.changed()
}

// invalidateResolve makes any in-flight lookup stale.
func (w *Widget) invalidateResolve() {
	w.resolveToken++
	if w.resolveCancel != nil {
		w.resolveCancel()
		w.resolveCancel = nil
	}
}

func (w *Widget) resolve(id string) {
	w.invalidateResolve()
	w.valueID = id
	if w.deps.Resolver == nil {
		return
	}
	token := w.resolveToken
	ctx, cancel := w.fetchContext()
	w.resolveCancel = cancel
	entityType, fields := w.cfg.EntityType, w.cfg.Fields()
	go func() {
		defer cancel()
		rows, err := w.deps.Resolver.LookupByID(ctx, id, entityType, fields)
		w.post(func() { w.applyResolve(token, id, rows, err) })
	}()
}

func (w *Widget) applyResolve(token uint64, id string, rows []record.Record, err error) {
	if token != w.resolveToken {
		w.log.Debug("discarding stale lookup", "id", id)
		return
	}
	w.resolveCancel = nil
	w.changed()
	if err != nil {
		w.recordNotice(ChannelLookup, err)
		return
	}
	if len(rows) == 0 {
		w.log.Debug("lookup returned no record", "id", id)
		return
	}
	w.commit(rows[0])
}
