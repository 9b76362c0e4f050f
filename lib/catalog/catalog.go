// Package catalog loads named lookup definitions from a YAML file. A host
// refers to a lookup by name and supplies only the per-row values.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pthm/hxlookup/lib/record"
	"github.com/pthm/hxlookup/lib/widget"
)

var (
	ErrInvalidDefinition = errors.New("catalog: invalid definition")
	ErrUnknownLookup     = errors.New("catalog: unknown lookup")
)

// Definition is the static part of a lookup configuration.
type Definition struct {
	Name              string        `yaml:"name"`
	EntityType        string        `yaml:"entity"`
	Icon              string        `yaml:"icon,omitempty"`
	IconSVG           string        `yaml:"icon_svg,omitempty"`
	Label             string        `yaml:"label,omitempty"`
	ShowLabel         bool          `yaml:"show_label,omitempty"`
	Placeholder       string        `yaml:"placeholder,omitempty"`
	FieldName         string        `yaml:"field,omitempty"`
	RelationshipField string        `yaml:"relationship,omitempty"`
	DisplayFields     string        `yaml:"display_fields,omitempty"`
	DisplayFormat     string        `yaml:"display_format,omitempty"`
	Filter            string        `yaml:"filter,omitempty"`
	CreateEnabled     bool          `yaml:"create,omitempty"`
	LockHostOnCreate  bool          `yaml:"lock_during_create,omitempty"`
	ReadOnly          bool          `yaml:"read_only,omitempty"`
	Mode              string        `yaml:"mode,omitempty"`
	CloseDelay        time.Duration `yaml:"close_delay,omitempty"`
}

// Config builds the widget configuration for one host row.
func (d Definition) Config(correlationKey, valueID string, parentRows []record.Record) widget.Config {
	return widget.Config{
		EntityType:        d.EntityType,
		IconName:          d.Icon,
		IconMarkup:        d.IconSVG,
		Label:             d.Label,
		ShowLabel:         d.ShowLabel,
		ReadOnly:          d.ReadOnly,
		Filter:            d.Filter,
		CorrelationKey:    correlationKey,
		Placeholder:       d.Placeholder,
		FieldName:         d.FieldName,
		RelationshipField: d.RelationshipField,
		DisplayFields:     d.DisplayFields,
		DisplayFormat:     d.DisplayFormat,
		ParentRows:        parentRows,
		CreateEnabled:     d.CreateEnabled,
		LockHostOnCreate:  d.LockHostOnCreate,
		ValueID:           valueID,
		Mode:              widget.ParseMode(d.Mode),
		CloseDelay:        d.CloseDelay,
	}
}

// File is the on-disk layout.
type File struct {
	Version string       `yaml:"version"`
	Lookups []Definition `yaml:"lookups"`
}

// Parse decodes and validates a definitions file.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("catalog: parse: %w", err)
	}
	if f.Version == "" {
		f.Version = "1"
	}
	seen := make(map[string]bool, len(f.Lookups))
	for i, d := range f.Lookups {
		switch {
		case d.Name == "":
			return nil, fmt.Errorf("%w: lookup %d has no name", ErrInvalidDefinition, i)
		case d.EntityType == "":
			return nil, fmt.Errorf("%w: %s has no entity", ErrInvalidDefinition, d.Name)
		case seen[d.Name]:
			return nil, fmt.Errorf("%w: duplicate name %s", ErrInvalidDefinition, d.Name)
		}
		seen[d.Name] = true
	}
	return &f, nil
}

// LoadFile reads and parses path.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return Parse(data)
}

// Catalog is the live set of definitions. It is safe for concurrent use.
type Catalog struct {
	mu   sync.RWMutex
	defs map[string]Definition
}

// New returns a catalog holding defs.
func New(defs ...Definition) *Catalog {
	c := &Catalog{}
	c.Replace(defs)
	return c
}

// Load reads path into a new catalog.
func Load(path string) (*Catalog, error) {
	f, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return New(f.Lookups...), nil
}

// Replace swaps the whole definition set.
func (c *Catalog) Replace(defs []Definition) {
	m := make(map[string]Definition, len(defs))
	for _, d := range defs {
		m[d.Name] = d
	}
	c.mu.Lock()
	c.defs = m
	c.mu.Unlock()
}

// Get returns the definition called name.
func (c *Catalog) Get(name string) (Definition, error) {
	c.mu.RLock()
	d, ok := c.defs[name]
	c.mu.RUnlock()
	if !ok {
		return Definition{}, fmt.Errorf("%w: %s", ErrUnknownLookup, name)
	}
	return d, nil
}

// Names returns the sorted definition names.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.defs))
	for n := range c.defs {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
