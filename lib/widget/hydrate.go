package widget

import (
	"github.com/pthm/hxlookup/lib/record"
	"github.com/pthm/hxlookup/lib/schema"
)

func (w *Widget) fetchMetadata() {
	if w.deps.Metadata == nil {
		w.hydrate()
		return
	}
	w.metaPending = true
	ctx, cancel := w.fetchContext()
	entityType := w.cfg.EntityType
	go func() {
		defer cancel()
		meta, err := w.deps.Metadata.EntityMetadata(ctx, entityType)
		w.post(func() { w.applyMetadata(meta, err) })
	}()
}

func (w *Widget) applyMetadata(meta schema.EntityMetadata, err error) {
	w.metaPending = false
	w.changed()
	if err != nil {
		w.recordNotice(ChannelMetadata, err)
		return
	}
	w.meta = &meta
	w.rtOptions, w.rtDefault = meta.RecordTypeChoice()
	w.hydrate()
}

// hydrate selects the related record already joined onto the parent row
// whose Id is the correlation key. No fetch is made. A selection the user
// made before metadata arrived is kept.
func (w *Widget) hydrate() {
	if w.cfg.CorrelationKey == "" || w.touched {
		return
	}
	rel := schema.RelationshipName(w.cfg.RelationshipField)
	if rel == "" {
		return
	}
	for _, row := range w.cfg.ParentRows {
		if row.ID() != w.cfg.CorrelationKey {
			continue
		}
		related, ok := record.AsRecord(row[rel])
		if !ok {
			continue
		}
		w.commit(related)
		w.log.Debug("hydrated from parent row", "relationship", rel, "id", related.ID())
		return
	}
}
