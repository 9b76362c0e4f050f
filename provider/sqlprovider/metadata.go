package sqlprovider

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pthm/hxlookup/lib/schema"
)

// EntityMetadata returns the description of entityType.
func (s *Store) EntityMetadata(ctx context.Context, entityType string) (schema.EntityMetadata, error) {
	meta := schema.EntityMetadata{EntityType: entityType}
	err := s.db.QueryRowContext(ctx,
		"SELECT label, default_record_type FROM entities WHERE name = ?", entityType).
		Scan(&meta.Label, &meta.DefaultRecordTypeID)
	if errors.Is(err, sql.ErrNoRows) {
		return schema.EntityMetadata{}, fmt.Errorf("%w: %s", schema.ErrUnknownEntity, entityType)
	}
	if err != nil {
		return schema.EntityMetadata{}, fmt.Errorf("sqlprovider: metadata %s: %w", entityType, err)
	}
	if meta.Label == "" {
		meta.Label = schema.EntityLabel(entityType)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, master, available FROM record_types WHERE entity = ? ORDER BY position, id", entityType)
	if err != nil {
		return schema.EntityMetadata{}, fmt.Errorf("sqlprovider: record types %s: %w", entityType, err)
	}
	for rows.Next() {
		var rt schema.RecordTypeVariant
		if err := rows.Scan(&rt.ID, &rt.Name, &rt.Master, &rt.Available); err != nil {
			rows.Close()
			return schema.EntityMetadata{}, fmt.Errorf("sqlprovider: record types %s: %w", entityType, err)
		}
		meta.RecordTypes = append(meta.RecordTypes, rt)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return schema.EntityMetadata{}, fmt.Errorf("sqlprovider: record types %s: %w", entityType, err)
	}

	rows, err = s.db.QueryContext(ctx,
		"SELECT name, label, type, required FROM entity_fields WHERE entity = ? ORDER BY position, name", entityType)
	if err != nil {
		return schema.EntityMetadata{}, fmt.Errorf("sqlprovider: fields %s: %w", entityType, err)
	}
	defer rows.Close()
	for rows.Next() {
		var f schema.Field
		if err := rows.Scan(&f.Name, &f.Label, &f.Type, &f.Required); err != nil {
			return schema.EntityMetadata{}, fmt.Errorf("sqlprovider: fields %s: %w", entityType, err)
		}
		meta.Fields = append(meta.Fields, f)
	}
	return meta, rows.Err()
}

type stmt struct {
	query string
	args  []any
}

// DefineEntity creates or replaces the metadata of m.EntityType. Fields and
// record types keep their slice order.
func (s *Store) DefineEntity(ctx context.Context, m schema.EntityMetadata) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlprovider: define %s: %w", m.EntityType, err)
	}
	defer tx.Rollback()

	stmts := []stmt{
		{`INSERT INTO entities (name, label, default_record_type) VALUES (?, ?, ?)
		  ON CONFLICT(name) DO UPDATE SET label = excluded.label, default_record_type = excluded.default_record_type`,
			[]any{m.EntityType, m.Label, m.DefaultRecordTypeID}},
		{"DELETE FROM record_types WHERE entity = ?", []any{m.EntityType}},
		{"DELETE FROM entity_fields WHERE entity = ?", []any{m.EntityType}},
	}
	for i, rt := range m.RecordTypes {
		stmts = append(stmts, stmt{"INSERT INTO record_types (id, entity, name, master, available, position) VALUES (?, ?, ?, ?, ?, ?)",
			[]any{rt.ID, m.EntityType, rt.Name, rt.Master, rt.Available, i}})
	}
	for i, f := range m.Fields {
		typ := f.Type
		if typ == "" {
			typ = "string"
		}
		stmts = append(stmts, stmt{"INSERT INTO entity_fields (entity, name, label, type, required, position) VALUES (?, ?, ?, ?, ?, ?)",
			[]any{m.EntityType, f.Name, f.Label, typ, f.Required, i}})
	}
	for _, st := range stmts {
		if _, err := tx.ExecContext(ctx, st.query, st.args...); err != nil {
			return fmt.Errorf("sqlprovider: define %s: %w", m.EntityType, err)
		}
	}
	return tx.Commit()
}
