package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRelationshipName(t *testing.T) {
	tests := map[string]string{
		"Account__c":         "Account__r",
		"Billing_Contact__c": "Billing_Contact__r",
		"AccountId":          "Account",
		"OwnerId":            "Owner",
		"Id":                 "Id",
		"Parent":             "Parent",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, RelationshipName(in))
		})
	}
}

func TestRecordTypeChoice(t *testing.T) {
	master := RecordTypeVariant{ID: "012M", Name: "Master", Master: true, Available: true}
	retail := RecordTypeVariant{ID: "012R", Name: "Retail", Available: true}
	partner := RecordTypeVariant{ID: "012P", Name: "Partner", Available: true}
	hidden := RecordTypeVariant{ID: "012H", Name: "Hidden", Available: false}

	t.Run("two creatable variants", func(t *testing.T) {
		m := EntityMetadata{RecordTypes: []RecordTypeVariant{master, retail, partner}, DefaultRecordTypeID: "012M"}
		opts, def := m.RecordTypeChoice()
		assert.Equal(t, []RecordTypeVariant{retail, partner}, opts)
		assert.Empty(t, def)
	})

	t.Run("single creatable variant", func(t *testing.T) {
		m := EntityMetadata{RecordTypes: []RecordTypeVariant{master, retail, hidden}, DefaultRecordTypeID: "012M"}
		opts, def := m.RecordTypeChoice()
		assert.Nil(t, opts)
		assert.Equal(t, "012R", def)
	})

	t.Run("master only", func(t *testing.T) {
		m := EntityMetadata{RecordTypes: []RecordTypeVariant{master}, DefaultRecordTypeID: "012M"}
		opts, def := m.RecordTypeChoice()
		assert.Nil(t, opts)
		assert.Equal(t, "012M", def)
	})
}

func TestEntityLabel(t *testing.T) {
	assert.Equal(t, "Custom Object", EntityLabel("Custom_Object__c"))
	assert.Equal(t, "Account", EntityLabel("Account"))
	assert.Equal(t, "Work Order", EntityLabel("work_order__c"))
	assert.Equal(t, "ACME Thing", EntityLabel("ACME_Thing__c"))
}

func TestSanitizeIcon(t *testing.T) {
	raw := `<svg viewBox="0 0 24 24" onload="alert(1)"><script>x()</script><path d="M0 0h24v24H0z"/></svg>`
	got := SanitizeIcon(raw)

	assert.Contains(t, got, "<svg")
	assert.Contains(t, got, `d="M0 0h24v24H0z"`)
	assert.NotContains(t, got, "onload")
	assert.NotContains(t, got, "script")
	assert.Empty(t, SanitizeIcon("   "))
}
