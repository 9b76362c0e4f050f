// Package sqlprovider serves lookup searches, lookups by id, entity metadata
// and record creation from a SQLite database. Records are stored as JSON
// documents; relationship fields are resolved by following foreign key
// fields ("Account.Name" reads AccountId, "Vendor__r.Name" reads Vendor__c).
package sqlprovider

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/pthm/hxlookup/lib/createflow"
	"github.com/pthm/hxlookup/lib/record"
	"github.com/pthm/hxlookup/lib/schema"
	"github.com/pthm/hxlookup/lib/search"
	"github.com/pthm/hxlookup/lib/widget"
)

const (
	DefaultSearchLimit = 50
	maxRelationDepth   = 4
)

var (
	ErrValidation = errors.New("sqlprovider: validation failed")
	ErrNotFound   = errors.New("sqlprovider: record not found")
)

const ddl = `
CREATE TABLE IF NOT EXISTS entities (
	name                TEXT PRIMARY KEY,
	label               TEXT NOT NULL DEFAULT '',
	default_record_type TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS record_types (
	id        TEXT PRIMARY KEY,
	entity    TEXT NOT NULL REFERENCES entities(name),
	name      TEXT NOT NULL,
	master    INTEGER NOT NULL DEFAULT 0,
	available INTEGER NOT NULL DEFAULT 1,
	position  INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS entity_fields (
	entity   TEXT NOT NULL REFERENCES entities(name),
	name     TEXT NOT NULL,
	label    TEXT NOT NULL DEFAULT '',
	type     TEXT NOT NULL DEFAULT 'string',
	required INTEGER NOT NULL DEFAULT 0,
	position INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (entity, name)
);
CREATE TABLE IF NOT EXISTS records (
	id          TEXT PRIMARY KEY,
	entity      TEXT NOT NULL REFERENCES entities(name),
	record_type TEXT NOT NULL DEFAULT '',
	doc         TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS records_entity ON records(entity);
`

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithSearchLimit caps the rows returned by Search.
func WithSearchLimit(n int) Option {
	return func(s *Store) { s.limit = n }
}

// Store implements every remote collaborator of a lookup widget.
type Store struct {
	db    *sql.DB
	log   *slog.Logger
	limit int
}

var (
	_ search.Searcher         = (*Store)(nil)
	_ widget.Resolver         = (*Store)(nil)
	_ schema.MetadataProvider = (*Store)(nil)
	_ createflow.Submitter    = (*Store)(nil)
)

// Open opens the database at dsn and creates the tables if needed.
// Use ":memory:" for a throwaway store.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlprovider: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	s := &Store{db: db, log: slog.Default(), limit: DefaultSearchLimit}
	for _, opt := range opts {
		opt(s)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlprovider: enable foreign keys: %w", err)
	}
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlprovider: migrate: %w", err)
	}
	return s, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Deps returns the store wired as every widget collaborator.
func (s *Store) Deps() widget.Deps {
	return widget.Deps{Searcher: s, Resolver: s, Metadata: s, Submitter: s}
}

// Search matches q.Text against the plain (non-relationship) display fields
// of q.EntityType. An empty text matches everything. q.Filter is appended
// verbatim as an SQL condition over the columns id, record_type and doc.
func (s *Store) Search(ctx context.Context, q search.Query) ([]record.Record, error) {
	where := []string{"entity = ?"}
	args := []any{q.EntityType}

	if text := strings.TrimSpace(q.Text); text != "" {
		var ors []string
		for _, f := range searchableFields(q.Fields) {
			ors = append(ors, "json_extract(doc, ?) LIKE ? ESCAPE '\\'")
			args = append(args, jsonPath(f), "%"+escapeLike(text)+"%")
		}
		where = append(where, "("+strings.Join(ors, " OR ")+")")
	}
	if q.Filter != "" {
		where = append(where, "("+q.Filter+")")
	}
	query := "SELECT id, doc FROM records WHERE " + strings.Join(where, " AND ") +
		" ORDER BY json_extract(doc, '$.Name'), id LIMIT ?"
	args = append(args, s.limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlprovider: search %s: %w", q.EntityType, err)
	}
	docs, err := scanDocs(rows)
	if err != nil {
		return nil, fmt.Errorf("sqlprovider: search %s: %w", q.EntityType, err)
	}
	out := make([]record.Record, 0, len(docs))
	for _, d := range docs {
		rec, err := s.project(ctx, d, q.Fields)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	s.log.Debug("search", "entity", q.EntityType, "text", q.Text, "rows", len(out))
	return out, nil
}

// LookupByID returns the record with id projected onto fields. A missing
// record yields an empty slice.
func (s *Store) LookupByID(ctx context.Context, id, entityType string, fields []string) ([]record.Record, error) {
	d, err := s.load(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if entityType != "" && d.entity != entityType {
		return nil, nil
	}
	rec, err := s.project(ctx, d, fields)
	if err != nil {
		return nil, err
	}
	return []record.Record{rec}, nil
}

// SubmitRecordForm validates and inserts a new record and returns its id.
func (s *Store) SubmitRecordForm(ctx context.Context, sub createflow.Submission) (string, error) {
	meta, err := s.EntityMetadata(ctx, sub.EntityType)
	if err != nil {
		return "", err
	}
	var missing []string
	for _, f := range meta.Fields {
		if f.Required && strings.TrimSpace(sub.Fields[f.Name]) == "" {
			missing = append(missing, f.Name)
		}
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("%w: required fields missing: %s", ErrValidation, strings.Join(missing, ", "))
	}
	if sub.RecordTypeID != "" {
		known := false
		for _, rt := range meta.RecordTypes {
			if rt.ID == sub.RecordTypeID {
				known = rt.Available
				break
			}
		}
		if !known {
			return "", fmt.Errorf("%w: record type %s not available", ErrValidation, sub.RecordTypeID)
		}
	}
	values := make(map[string]any, len(sub.Fields))
	for k, v := range sub.Fields {
		values[k] = v
	}
	return s.Insert(ctx, sub.EntityType, "", sub.RecordTypeID, values)
}

// Insert stores values as a record of entity. An empty id is replaced by a new
// UUID. The stored id is returned.
func (s *Store) Insert(ctx context.Context, entity, id, recordType string, values map[string]any) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}
	clean := make(map[string]any, len(values))
	for k, v := range values {
		if k != record.IDField {
			clean[k] = v
		}
	}
	raw, err := json.Marshal(clean)
	if err != nil {
		return "", fmt.Errorf("sqlprovider: encode %s: %w", entity, err)
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO records (id, entity, record_type, doc) VALUES (?, ?, ?, ?)",
		id, entity, recordType, string(raw))
	if err != nil {
		return "", fmt.Errorf("sqlprovider: insert %s: %w", entity, err)
	}
	s.log.Info("record inserted", "entity", entity, "id", id)
	return id, nil
}

// SetField writes one value onto a stored record. A nil value removes the
// field.
func (s *Store) SetField(ctx context.Context, id, field string, value any) error {
	if field == "" || field == record.IDField {
		return fmt.Errorf("%w: field %q cannot be set", ErrValidation, field)
	}
	var (
		res sql.Result
		err error
	)
	if value == nil {
		res, err = s.db.ExecContext(ctx,
			"UPDATE records SET doc = json_remove(doc, ?) WHERE id = ?", jsonPath(field), id)
	} else {
		res, err = s.db.ExecContext(ctx,
			"UPDATE records SET doc = json_set(doc, ?, ?) WHERE id = ?", jsonPath(field), value, id)
	}
	if err != nil {
		return fmt.Errorf("sqlprovider: set %s.%s: %w", id, field, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.log.Debug("record field set", "id", id, "field", field)
	return nil
}

type doc struct {
	id         string
	entity     string
	recordType string
	values     map[string]any
}

func (s *Store) load(ctx context.Context, id string) (doc, error) {
	var (
		d   doc
		raw string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, entity, record_type, doc FROM records WHERE id = ?", id).
		Scan(&d.id, &d.entity, &d.recordType, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return doc{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return doc{}, fmt.Errorf("sqlprovider: load %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(raw), &d.values); err != nil {
		return doc{}, fmt.Errorf("sqlprovider: decode %s: %w", id, err)
	}
	return d, nil
}

func scanDocs(rows *sql.Rows) ([]doc, error) {
	defer rows.Close()
	var out []doc
	for rows.Next() {
		var (
			d   doc
			raw string
		)
		if err := rows.Scan(&d.id, &raw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(raw), &d.values); err != nil {
			return nil, fmt.Errorf("decode %s: %w", d.id, err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// project builds the record a widget sees: the id plus every requested
// field, with relationship paths expanded into nested records.
func (s *Store) project(ctx context.Context, d doc, fields []string) (record.Record, error) {
	rec := record.Record{record.IDField: d.id}
	for _, f := range fields {
		if err := s.projectPath(ctx, d, rec, record.ParsePath(f), 0); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

func (s *Store) projectPath(ctx context.Context, d doc, into record.Record, path record.FieldPath, depth int) error {
	if len(path) == 0 {
		return nil
	}
	if len(path) == 1 {
		if v, ok := d.values[path[0]]; ok {
			into[path[0]] = v
		}
		return nil
	}
	rel := path[0]
	fk, _ := d.values[ForeignKeyField(rel)].(string)
	if fk == "" || depth >= maxRelationDepth {
		return nil
	}
	related, err := s.load(ctx, fk)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	nested, ok := record.AsRecord(into[rel])
	if !ok {
		nested = record.Record{record.IDField: related.id}
		into[rel] = nested
	}
	return s.projectPath(ctx, related, nested, path[1:], depth+1)
}

// ForeignKeyField is the inverse of schema.RelationshipName: "Account"
// reads "AccountId" and "Vendor__r" reads "Vendor__c".
func ForeignKeyField(relationship string) string {
	if base, ok := strings.CutSuffix(relationship, "__r"); ok {
		return base + "__c"
	}
	return relationship + "Id"
}

func searchableFields(fields []string) []string {
	var out []string
	for _, f := range fields {
		if !record.ParsePath(f).IsDotted() && f != record.IDField {
			out = append(out, f)
		}
	}
	if len(out) == 0 {
		out = []string{"Name"}
	}
	return out
}

func jsonPath(field string) string {
	return `$."` + strings.ReplaceAll(field, `"`, `\"`) + `"`
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
