// Package schema describes the target entity type of a lookup: its record
// type variants, the fields of its creation form and how foreign key fields
// map to relationship names.
package schema

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrUnknownEntity is returned by providers for an entity type they do not know.
var ErrUnknownEntity = errors.New("schema: unknown entity type")

const (
	customSuffix       = "__c"
	relationshipSuffix = "__r"
	idSuffix           = "Id"
)

// RecordTypeVariant is a named sub-classification of an entity type.
type RecordTypeVariant struct {
	ID        string
	Name      string
	Master    bool
	Available bool
}

// Field is one input of the inline creation form.
type Field struct {
	Name     string
	Label    string
	Type     string
	Required bool
}

// EntityMetadata is what a MetadataProvider knows about an entity type.
type EntityMetadata struct {
	EntityType          string
	Label               string
	RecordTypes         []RecordTypeVariant
	DefaultRecordTypeID string
	Fields              []Field
}

// MetadataProvider fetches EntityMetadata.
type MetadataProvider interface {
	EntityMetadata(ctx context.Context, entityType string) (EntityMetadata, error)
}

// MetadataProviderFunc adapts a function to MetadataProvider.
type MetadataProviderFunc func(ctx context.Context, entityType string) (EntityMetadata, error)

func (f MetadataProviderFunc) EntityMetadata(ctx context.Context, entityType string) (EntityMetadata, error) {
	return f(ctx, entityType)
}

// Creatable returns the variants a user may create: available and not the
// master type.
func (m EntityMetadata) Creatable() []RecordTypeVariant {
	var out []RecordTypeVariant
	for _, v := range m.RecordTypes {
		if v.Available && !v.Master {
			out = append(out, v)
		}
	}
	return out
}

// RecordTypeChoice resolves how the create flow picks a record type. With
// more than one creatable variant the user chooses from options. Otherwise
// defaultID is adopted silently: the single creatable variant if there is
// one, the schema default if not.
func (m EntityMetadata) RecordTypeChoice() (options []RecordTypeVariant, defaultID string) {
	creatable := m.Creatable()
	switch len(creatable) {
	case 0:
		return nil, m.DefaultRecordTypeID
	case 1:
		return nil, creatable[0].ID
	default:
		return creatable, ""
	}
}

// FieldNames returns the form field names in order.
func (m EntityMetadata) FieldNames() []string {
	out := make([]string, 0, len(m.Fields))
	for _, f := range m.Fields {
		out = append(out, f.Name)
	}
	return out
}

// RelationshipName converts a foreign key field name into the name under
// which the joined record appears on a row: "Account__c" becomes
// "Account__r" and "AccountId" becomes "Account".
func RelationshipName(field string) string {
	switch {
	case strings.HasSuffix(field, customSuffix):
		return strings.TrimSuffix(field, customSuffix) + relationshipSuffix
	case strings.HasSuffix(field, idSuffix) && len(field) > len(idSuffix):
		return strings.TrimSuffix(field, idSuffix)
	default:
		return field
	}
}

var titler = cases.Title(language.Und, cases.NoLower)

// EntityLabel derives a human label from an entity type name:
// "Custom_Object__c" becomes "Custom Object".
func EntityLabel(entityType string) string {
	name := strings.ReplaceAll(entityType, customSuffix, "")
	name = strings.ReplaceAll(name, "_", " ")
	return titler.String(strings.TrimSpace(name))
}
