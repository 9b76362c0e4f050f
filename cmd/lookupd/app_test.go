package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm/hxlookup"
	"github.com/pthm/hxlookup/lib/catalog"
	"github.com/pthm/hxlookup/lib/encoding"
	"github.com/pthm/hxlookup/lib/record"
	"github.com/pthm/hxlookup/provider/sqlprovider"
)

func newTestApp(t *testing.T) *app {
	t.Helper()
	ctx := context.Background()
	store, err := sqlprovider.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.SeedDemo(ctx))

	cat, err := loadCatalog("")
	require.NoError(t, err)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	a := newApp(store, store, cat, []byte("lookupd-test-key"), log)
	t.Cleanup(a.Close)
	return a
}

func (a *app) cellURL(t *testing.T, action string, p hxlookup.Props) (string, string) {
	t.Helper()
	enc, err := a.lookup.Encoder().Encode(p, encoding.Signed)
	require.NoError(t, err)
	return a.lookup.Prefix() + "/" + action, enc
}

func TestDefaultCatalog(t *testing.T) {
	cat, err := loadCatalog("")
	require.NoError(t, err)
	assert.Equal(t, []string{"contact-account", "contact-account-ro", "contact-vendor"}, cat.Names())
}

func TestParentFields(t *testing.T) {
	tests := []struct {
		name string
		def  catalog.Definition
		want []string
	}{
		{
			name: "standard relationship",
			def:  catalog.Definition{FieldName: "AccountId", DisplayFields: "Name, Site"},
			want: []string{"AccountId", "Account.Name", "Account.Site"},
		},
		{
			name: "custom relationship",
			def:  catalog.Definition{FieldName: "Vendor__c", DisplayFields: "Name"},
			want: []string{"Vendor__c", "Vendor__r.Name"},
		},
		{
			name: "explicit relationship field",
			def:  catalog.Definition{FieldName: "ParentId", RelationshipField: "OwnerId", DisplayFields: "Name"},
			want: []string{"ParentId", "Owner.Name"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parentFields(tt.def))
		})
	}
}

func TestGridPage(t *testing.T) {
	a := newTestApp(t)
	res, err := hxlookup.NewTestRequest(http.MethodGet, "/").WithoutHTMX().ServeWith(a.routes())
	require.NoError(t, err)
	require.True(t, res.IsOK(), res.HTML)
	assert.True(t, res.HTMLContainsAll(
		"Ada Lovelace",
		"Grace Hopper",
		`data-row="con-001"`,
		`data-field="AccountId"`,
		`data-field="Vendor__c"`,
		`hx-get="`+a.lookup.Prefix()+`/?p=`,
		`id="toasts"`,
	), res.HTML)
}

func TestHealthz(t *testing.T) {
	a := newTestApp(t)
	res, err := hxlookup.NewTestRequest(http.MethodGet, "/healthz").ServeWith(a.routes())
	require.NoError(t, err)
	assert.True(t, res.IsOK())
	assert.JSONEq(t, `{"status":"ok"}`, res.HTML)
}

func TestCellHydratesFromContactRow(t *testing.T) {
	a := newTestApp(t)
	p := hxlookup.NewProps("contact-account", "con-001", "acc-001")
	path, enc := a.cellURL(t, "", p)

	res, err := hxlookup.NewTestRequest(http.MethodGet, path+"?p="+enc).ServeWith(a.routes())
	require.NoError(t, err)
	require.True(t, res.IsOK(), res.HTML)
	assert.True(t, res.HTMLContainsAll(`class="hxl-pill"`, "Acme (Berlin)"), res.HTML)
}

func TestChooseAndPersist(t *testing.T) {
	a := newTestApp(t)
	h := a.routes()
	p := hxlookup.NewProps("contact-account", "con-003", "")

	path, enc := a.cellURL(t, "focus", p)
	res, err := hxlookup.NewTestRequest(http.MethodPost, path).WithFormData("p", enc).ServeWith(h)
	require.NoError(t, err)
	require.True(t, res.IsOK(), res.HTML)
	assert.True(t, res.HTMLContainsAll("Acme (Berlin)", "Globex (Springfield)"), res.HTML)

	path, enc = a.cellURL(t, "choose", p)
	res, err = hxlookup.NewTestRequest(http.MethodPost, path).
		WithFormData("p", enc).
		WithFormData("id", "acc-002").
		ServeWith(h)
	require.NoError(t, err)
	require.True(t, res.IsOK(), res.HTML)
	require.True(t, res.HasEvent("lookup:selected"), res.Headers.Get("HX-Trigger"))
	assert.Equal(t, map[string]any{
		"selectedId": "acc-002",
		"key":        "con-003",
		"fieldName":  "AccountId",
	}, res.EventData["lookup:selected"])

	res, err = hxlookup.NewTestRequest(http.MethodPost, "/contacts/con-003/fields").
		WithFormValues(map[string]string{"field": "AccountId", "value": "acc-002"}).
		ServeWith(h)
	require.NoError(t, err)
	assert.True(t, res.HasStatus(http.StatusNoContent))

	rows, err := a.store.LookupByID(context.Background(), "con-003", hostEntity, []string{"Account.Name"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	acc, ok := record.AsRecord(rows[0]["Account"])
	require.True(t, ok, rows[0])
	assert.Equal(t, "Globex", acc["Name"])
}

func TestSetFieldUnknownContact(t *testing.T) {
	a := newTestApp(t)
	res, err := hxlookup.NewTestRequest(http.MethodPost, "/contacts/nope/fields").
		WithFormValues(map[string]string{"field": "AccountId", "value": "acc-002"}).
		ServeWith(a.routes())
	require.NoError(t, err)
	assert.True(t, res.HasStatus(http.StatusNotFound))
}

func TestUnknownLookupIsNotFound(t *testing.T) {
	a := newTestApp(t)
	_, err := a.configure(context.Background(), hxlookup.NewProps("missing", "con-001", ""))
	assert.True(t, hxlookup.IsNotFound(err))
	assert.ErrorIs(t, err, catalog.ErrUnknownLookup)
}

func TestComponentRoutesRequireHTMX(t *testing.T) {
	a := newTestApp(t)
	p := hxlookup.NewProps("contact-account", "con-001", "")
	path, enc := a.cellURL(t, "clear", p)
	res, err := hxlookup.NewTestRequest(http.MethodPost, path).
		WithFormData("p", enc).
		WithoutHTMX().
		ServeWith(a.routes())
	require.NoError(t, err)
	assert.True(t, res.HasStatus(http.StatusForbidden))
}
