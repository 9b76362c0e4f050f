// Package openapimeta serves entity metadata from the component schemas of
// an OpenAPI document. Each schema under components.schemas is an entity;
// its properties become the create form fields and the x-record-types,
// x-default-record-type and x-label extensions describe the rest.
package openapimeta

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/pthm/hxlookup/lib/record"
	"github.com/pthm/hxlookup/lib/schema"
)

const (
	extRecordTypes       = "x-record-types"
	extDefaultRecordType = "x-default-record-type"
	extLabel             = "x-label"
	extOrder             = "x-order"
)

var ErrNoSchemas = errors.New("openapimeta: document has no component schemas")

// Option configures a Provider.
type Option func(*Provider)

// WithFallback consults next for entities the document does not describe.
func WithFallback(next schema.MetadataProvider) Option {
	return func(p *Provider) { p.fallback = next }
}

// Provider implements schema.MetadataProvider over a parsed document.
type Provider struct {
	entities map[string]schema.EntityMetadata
	fallback schema.MetadataProvider
}

var _ schema.MetadataProvider = (*Provider)(nil)

// LoadFile parses the OpenAPI document at path.
func LoadFile(ctx context.Context, path string, opts ...Option) (*Provider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("openapimeta: read %s: %w", path, err)
	}
	return Load(ctx, data, opts...)
}

// Load parses an OpenAPI document in JSON or YAML form.
func Load(ctx context.Context, data []byte, opts ...Option) (*Provider, error) {
	loader := &openapi3.Loader{Context: ctx}
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("openapimeta: load document: %w", err)
	}
	if doc.Components == nil || len(doc.Components.Schemas) == 0 {
		return nil, ErrNoSchemas
	}
	p := &Provider{entities: make(map[string]schema.EntityMetadata, len(doc.Components.Schemas))}
	for _, opt := range opts {
		opt(p)
	}
	for name, ref := range doc.Components.Schemas {
		if ref == nil || ref.Value == nil {
			continue
		}
		p.entities[name] = convert(name, ref.Value)
	}
	return p, nil
}

// Entities returns the described entity names, sorted.
func (p *Provider) Entities() []string {
	names := make([]string, 0, len(p.entities))
	for n := range p.entities {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// EntityMetadata returns the description of entityType.
func (p *Provider) EntityMetadata(ctx context.Context, entityType string) (schema.EntityMetadata, error) {
	if m, ok := p.entities[entityType]; ok {
		return m, nil
	}
	if p.fallback != nil {
		return p.fallback.EntityMetadata(ctx, entityType)
	}
	return schema.EntityMetadata{}, fmt.Errorf("%w: %s", schema.ErrUnknownEntity, entityType)
}

func convert(name string, s *openapi3.Schema) schema.EntityMetadata {
	m := schema.EntityMetadata{
		EntityType: name,
		Label:      stringExt(s.Extensions, extLabel),
	}
	if m.Label == "" {
		m.Label = s.Title
	}
	if m.Label == "" {
		m.Label = schema.EntityLabel(name)
	}
	m.DefaultRecordTypeID = stringExt(s.Extensions, extDefaultRecordType)
	m.RecordTypes = recordTypes(s.Extensions[extRecordTypes])

	required := make(map[string]bool, len(s.Required))
	for _, r := range s.Required {
		required[r] = true
	}
	type ordered struct {
		field schema.Field
		order int
	}
	var fields []ordered
	for prop, ref := range s.Properties {
		if prop == record.IDField || ref == nil || ref.Value == nil || ref.Value.ReadOnly {
			continue
		}
		v := ref.Value
		f := schema.Field{
			Name:     prop,
			Label:    v.Title,
			Type:     fieldType(v),
			Required: required[prop],
		}
		if f.Label == "" {
			f.Label = schema.EntityLabel(prop)
		}
		order, ok := intExt(v.Extensions, extOrder)
		if !ok {
			order = 1 << 20
		}
		fields = append(fields, ordered{f, order})
	}
	slices.SortFunc(fields, func(a, b ordered) int {
		if a.order != b.order {
			return a.order - b.order
		}
		if a.field.Required != b.field.Required {
			if a.field.Required {
				return -1
			}
			return 1
		}
		return strings.Compare(a.field.Name, b.field.Name)
	})
	for _, f := range fields {
		m.Fields = append(m.Fields, f.field)
	}
	return m
}

func fieldType(s *openapi3.Schema) string {
	if s.Type == nil || len(s.Type.Slice()) == 0 {
		return "string"
	}
	t := s.Type.Slice()[0]
	if t == "string" && s.Format != "" {
		return s.Format
	}
	return t
}

func recordTypes(raw any) []schema.RecordTypeVariant {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	var out []schema.RecordTypeVariant
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		rt := schema.RecordTypeVariant{
			ID:        record.Stringify(m["id"]),
			Name:      record.Stringify(m["name"]),
			Available: true,
		}
		if rt.ID == "" {
			continue
		}
		if b, ok := m["master"].(bool); ok {
			rt.Master = b
		}
		if b, ok := m["available"].(bool); ok {
			rt.Available = b
		}
		out = append(out, rt)
	}
	return out
}

func stringExt(ext map[string]any, key string) string {
	s, _ := ext[key].(string)
	return s
}

func intExt(ext map[string]any, key string) (int, bool) {
	switch v := ext[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	}
	return 0, false
}
