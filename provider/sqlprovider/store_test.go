package sqlprovider

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm/hxlookup/lib/createflow"
	"github.com/pthm/hxlookup/lib/record"
	"github.com/pthm/hxlookup/lib/schema"
	"github.com/pthm/hxlookup/lib/search"
)

func newDemoStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	s, err := Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.SeedDemo(ctx))
	require.NoError(t, s.SeedDemo(ctx))
	return s
}

func ids(recs []record.Record) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.ID())
	}
	return out
}

func TestSearch(t *testing.T) {
	s := newDemoStore(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		query search.Query
		want  []string
	}{
		{"empty text lists all", search.Query{EntityType: "Account", Fields: []string{"Name"}},
			[]string{"acc-001", "acc-002", "acc-003", "acc-004"}},
		{"substring on name", search.Query{EntityType: "Account", Text: "ob", Fields: []string{"Name"}},
			[]string{"acc-002"}},
		{"any display field", search.Query{EntityType: "Account", Text: "aus", Fields: []string{"Name", "Site"}},
			[]string{"acc-003"}},
		{"like wildcards are literal", search.Query{EntityType: "Account", Text: "%", Fields: []string{"Name"}},
			[]string{}},
		{"filter", search.Query{EntityType: "Account", Filter: "record_type = 'rt-partner'", Fields: []string{"Name"}},
			[]string{"acc-003", "acc-004"}},
		{"other entity", search.Query{EntityType: "Vendor__c", Text: "wayne"},
			[]string{"ven-002"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Search(ctx, tt.query)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, ids(got)); diff != "" {
				t.Errorf("ids mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSearchBadFilter(t *testing.T) {
	s := newDemoStore(t)
	_, err := s.Search(context.Background(), search.Query{EntityType: "Account", Filter: "no_such_column = 1"})
	assert.Error(t, err)
}

func TestLookupByIDResolvesRelationships(t *testing.T) {
	s := newDemoStore(t)
	ctx := context.Background()

	got, err := s.LookupByID(ctx, "con-001", "Contact", []string{"Name", "Account.Name", "Account.Site", "Vendor__r.Name"})
	require.NoError(t, err)
	want := []record.Record{{
		"Id":   "con-001",
		"Name": "Ada Lovelace",
		"Account": record.Record{
			"Id":   "acc-001",
			"Name": "Acme",
			"Site": "Berlin",
		},
		"Vendor__r": record.Record{"Id": "ven-001", "Name": "Stark Supplies"},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}

	// Missing relationship is simply absent.
	got, err = s.LookupByID(ctx, "con-003", "Contact", []string{"Name", "Account.Name"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.NotContains(t, got[0], "Account")

	got, err = s.LookupByID(ctx, "nope", "Contact", []string{"Name"})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = s.LookupByID(ctx, "acc-001", "Contact", []string{"Name"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSetField(t *testing.T) {
	s := newDemoStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetField(ctx, "con-003", "AccountId", "acc-004"))
	got, err := s.LookupByID(ctx, "con-003", "Contact", []string{"AccountId", "Account.Name"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "acc-004", got[0]["AccountId"])
	assert.Equal(t, record.Record{"Id": "acc-004", "Name": "Umbrella"}, got[0]["Account"])

	require.NoError(t, s.SetField(ctx, "con-003", "AccountId", nil))
	got, err = s.LookupByID(ctx, "con-003", "Contact", []string{"AccountId"})
	require.NoError(t, err)
	assert.NotContains(t, got[0], "AccountId")

	assert.ErrorIs(t, s.SetField(ctx, "nope", "AccountId", "acc-001"), ErrNotFound)
	assert.ErrorIs(t, s.SetField(ctx, "con-001", "Id", "x"), ErrValidation)
}

func TestEntityMetadata(t *testing.T) {
	s := newDemoStore(t)
	ctx := context.Background()

	meta, err := s.EntityMetadata(ctx, "Account")
	require.NoError(t, err)
	assert.Equal(t, "Account", meta.Label)
	assert.Equal(t, "rt-master", meta.DefaultRecordTypeID)
	require.Len(t, meta.RecordTypes, 3)
	assert.True(t, meta.RecordTypes[0].Master)
	opts, def := meta.RecordTypeChoice()
	assert.Len(t, opts, 2)
	assert.Empty(t, def)
	assert.Equal(t, []string{"Name", "Site"}, meta.FieldNames())
	assert.True(t, meta.Fields[0].Required)

	vendor, err := s.EntityMetadata(ctx, "Vendor__c")
	require.NoError(t, err)
	assert.Equal(t, "Vendor", vendor.Label)

	_, err = s.EntityMetadata(ctx, "Nope")
	assert.ErrorIs(t, err, schema.ErrUnknownEntity)
}

func TestSubmitRecordForm(t *testing.T) {
	s := newDemoStore(t)
	ctx := context.Background()

	id, err := s.SubmitRecordForm(ctx, createflow.Submission{
		EntityType:   "Account",
		RecordTypeID: "rt-partner",
		Fields:       map[string]string{"Name": "Hooli", "Site": "Palo Alto"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	got, err := s.LookupByID(ctx, id, "Account", []string{"Name", "Site"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Hooli", got[0]["Name"])

	_, err = s.SubmitRecordForm(ctx, createflow.Submission{EntityType: "Account", Fields: map[string]string{"Name": "  "}})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = s.SubmitRecordForm(ctx, createflow.Submission{
		EntityType:   "Account",
		RecordTypeID: "rt-bogus",
		Fields:       map[string]string{"Name": "X"},
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = s.SubmitRecordForm(ctx, createflow.Submission{EntityType: "Nope"})
	assert.ErrorIs(t, err, schema.ErrUnknownEntity)
}

func TestForeignKeyField(t *testing.T) {
	for rel, want := range map[string]string{
		"Account":   "AccountId",
		"Vendor__r": "Vendor__c",
	} {
		assert.Equal(t, want, ForeignKeyField(rel))
		assert.Equal(t, rel, schema.RelationshipName(want))
	}
}
