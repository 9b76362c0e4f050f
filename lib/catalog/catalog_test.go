package catalog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm/hxlookup/lib/record"
	"github.com/pthm/hxlookup/lib/widget"
)

const sample = `
lookups:
  - name: account
    entity: Account
    field: AccountId
    display_fields: Name, Site
    display_format: Name (Site)
    create: true
    close_delay: 150ms
  - name: vendor
    entity: Vendor__c
    field: Vendor__c
    mode: legacy
    read_only: true
`

func TestParse(t *testing.T) {
	f, err := Parse([]byte(sample))
	require.NoError(t, err)
	assert.Equal(t, "1", f.Version)
	require.Len(t, f.Lookups, 2)

	acc := f.Lookups[0]
	assert.Equal(t, "Account", acc.EntityType)
	assert.Equal(t, "Name, Site", acc.DisplayFields)
	assert.True(t, acc.CreateEnabled)
	assert.Equal(t, 150*time.Millisecond, acc.CloseDelay)
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing name", "lookups:\n  - entity: Account\n"},
		{"missing entity", "lookups:\n  - name: a\n"},
		{"duplicate", "lookups:\n  - {name: a, entity: A}\n  - {name: a, entity: B}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.ErrorIs(t, err, ErrInvalidDefinition)
		})
	}

	_, err := Parse([]byte("lookups: ["))
	assert.Error(t, err)
}

func TestDefinitionConfig(t *testing.T) {
	f, err := Parse([]byte(sample))
	require.NoError(t, err)
	cat := New(f.Lookups...)

	def, err := cat.Get("vendor")
	require.NoError(t, err)
	rows := []record.Record{{"Id": "row1"}}
	cfg := def.Config("row1", "v1", rows)
	assert.Equal(t, widget.ModeLegacy, cfg.Mode)
	assert.True(t, cfg.ReadOnly)
	assert.Equal(t, "row1", cfg.CorrelationKey)
	assert.Equal(t, "v1", cfg.ValueID)
	assert.Equal(t, rows, cfg.ParentRows)

	_, err = cat.Get("missing")
	assert.ErrorIs(t, err, ErrUnknownLookup)
	assert.Equal(t, []string{"account", "vendor"}, cat.Names())
}

func TestWatcherReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lookups.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	cat, err := Load(path)
	require.NoError(t, err)

	reloaded := make(chan error, 32)
	w, err := Watch(path, cat, WithDebounce(20*time.Millisecond), OnReload(func(err error) { reloaded <- err }))
	require.NoError(t, err)
	t.Cleanup(w.Stop)

	next := "lookups:\n  - {name: contact, entity: Contact}\n"
	require.NoError(t, os.WriteFile(path, []byte(next), 0o644))

	require.Eventually(t, func() bool {
		names := cat.Names()
		return len(names) == 1 && names[0] == "contact"
	}, 3*time.Second, 10*time.Millisecond)

	// A broken file keeps the previous definitions.
	require.NoError(t, os.WriteFile(path, []byte("lookups: ["), 0o644))
	deadline := time.After(3 * time.Second)
	for failed := false; !failed; {
		select {
		case err := <-reloaded:
			failed = err != nil
		case <-deadline:
			t.Fatal("broken file never reported")
		}
	}
	assert.Equal(t, []string{"contact"}, cat.Names())
}
