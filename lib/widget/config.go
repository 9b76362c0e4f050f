package widget

import (
	"time"

	"github.com/pthm/hxlookup/lib/label"
	"github.com/pthm/hxlookup/lib/record"
	"github.com/pthm/hxlookup/lib/schema"
	"github.com/pthm/hxlookup/lib/selection"
)

// Mode selects the outward event contract. Hosts depend on the exact shape,
// so the two are never merged.
type Mode int

const (
	// ModeSplit emits lookup:selected and lookup:cleared, with a null
	// identifier on removal.
	ModeSplit Mode = iota
	// ModeLegacy emits lookupvalueselect for picks and valueselect for
	// removal and creation, with an empty identifier on removal.
	ModeLegacy
)

func (m Mode) String() string {
	if m == ModeLegacy {
		return "legacy"
	}
	return "split"
}

// ParseMode maps a configuration string to a Mode. Unknown values are split.
func ParseMode(s string) Mode {
	if s == "legacy" {
		return ModeLegacy
	}
	return ModeSplit
}

const (
	defaultPlaceholder   = "Search"
	defaultDisplayFields = "Name"
)

// Config is the read-only input a host hands to a lookup.
type Config struct {
	EntityType string
	IconName   string
	IconMarkup string
	Label      string
	ShowLabel  bool
	ReadOnly   bool
	// Filter is passed to the search provider untouched.
	Filter         string
	CorrelationKey string
	Placeholder    string
	// FieldName is the foreign key field on the host row.
	FieldName string
	// RelationshipField names the field whose relationship is read off
	// ParentRows. Defaults to FieldName.
	RelationshipField string
	DisplayFields     string
	DisplayFormat     string
	ParentRows        []record.Record
	CreateEnabled     bool
	LockHostOnCreate  bool
	ValueID           string
	Mode              Mode
	CloseDelay        time.Duration
}

// normalized fills defaults and sanitizes the icon.
func (c Config) normalized() Config {
	if c.Placeholder == "" {
		c.Placeholder = defaultPlaceholder
	}
	if c.DisplayFields == "" {
		c.DisplayFields = defaultDisplayFields
	}
	if c.Label == "" {
		c.Label = schema.EntityLabel(c.EntityType)
	}
	if c.RelationshipField == "" {
		c.RelationshipField = c.FieldName
	}
	if c.CloseDelay <= 0 {
		c.CloseDelay = selection.DefaultCloseDelay
	}
	c.IconMarkup = schema.SanitizeIcon(c.IconMarkup)
	return c
}

// Formatter returns the label formatter for the configured display fields.
func (c Config) Formatter() label.Formatter {
	return label.New(c.DisplayFields, c.DisplayFormat)
}

// Fields returns the display field list sent to providers.
func (c Config) Fields() []string {
	return record.ParseFieldList(c.DisplayFields)
}
