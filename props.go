package hxlookup

import (
	"github.com/google/uuid"

	"github.com/pthm/hxlookup/lib/widget"
)

// part selects how much of a lookup a response renders.
type part int

const (
	partWidget part = iota
	partDropdown
)

// Props identify one lookup cell. Only the exported fields travel through
// the browser; the rest is filled in by hydration.
type Props struct {
	// Instance keys the live widget in the pool.
	Instance string
	// Lookup names the definition the widget is configured from.
	Lookup string
	// Key is the host row the lookup belongs to.
	Key string
	// ValueID is the initially selected record.
	ValueID string

	widget *widget.Widget
	cfg    widget.Config
	snap   widget.Snapshot
	part   part
}

// NewProps returns props for a fresh widget instance.
func NewProps(lookup, key, valueID string) Props {
	return Props{
		Instance: uuid.NewString(),
		Lookup:   lookup,
		Key:      key,
		ValueID:  valueID,
	}
}

// Widget returns the hydrated widget, nil before hydration.
func (p Props) Widget() *widget.Widget {
	return p.widget
}

// Snapshot returns the state the props were last hydrated or updated with.
func (p Props) Snapshot() widget.Snapshot {
	return p.snap
}

func (p Props) HXEncode() map[string]any {
	m := map[string]any{"i": p.Instance}
	if p.Lookup != "" {
		m["l"] = p.Lookup
	}
	if p.Key != "" {
		m["k"] = p.Key
	}
	if p.ValueID != "" {
		m["v"] = p.ValueID
	}
	return m
}

func (p *Props) HXDecode(m map[string]any) error {
	p.Instance, _ = m["i"].(string)
	p.Lookup, _ = m["l"].(string)
	p.Key, _ = m["k"].(string)
	p.ValueID, _ = m["v"].(string)
	if p.Instance == "" {
		return ErrInvalidFormat
	}
	return nil
}
