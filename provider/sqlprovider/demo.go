package sqlprovider

import (
	"context"
	"fmt"

	"github.com/pthm/hxlookup/lib/schema"
)

// SeedDemo fills an empty store with a small CRM: accounts with record
// types, contacts pointing at accounts, and a custom vendor entity. It is a
// no-op when accounts already exist.
func (s *Store) SeedDemo(ctx context.Context) error {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM records WHERE entity = 'Account'").Scan(&n); err != nil {
		return fmt.Errorf("sqlprovider: seed: %w", err)
	}
	if n > 0 {
		return nil
	}

	entities := []schema.EntityMetadata{
		{
			EntityType:          "Account",
			DefaultRecordTypeID: "rt-master",
			RecordTypes: []schema.RecordTypeVariant{
				{ID: "rt-master", Name: "Master", Master: true, Available: true},
				{ID: "rt-customer", Name: "Customer", Available: true},
				{ID: "rt-partner", Name: "Partner", Available: true},
			},
			Fields: []schema.Field{
				{Name: "Name", Label: "Account Name", Required: true},
				{Name: "Site", Label: "Site"},
			},
		},
		{
			EntityType: "Contact",
			Fields: []schema.Field{
				{Name: "Name", Label: "Full Name", Required: true},
				{Name: "Email", Label: "Email", Type: "email"},
			},
		},
		{
			EntityType: "Vendor__c",
			Fields:     []schema.Field{{Name: "Name", Label: "Vendor Name", Required: true}},
		},
	}
	for _, m := range entities {
		if err := s.DefineEntity(ctx, m); err != nil {
			return err
		}
	}

	records := []struct {
		entity, id, recordType string
		values                 map[string]any
	}{
		{"Account", "acc-001", "rt-customer", map[string]any{"Name": "Acme", "Site": "Berlin"}},
		{"Account", "acc-002", "rt-customer", map[string]any{"Name": "Globex", "Site": "Springfield"}},
		{"Account", "acc-003", "rt-partner", map[string]any{"Name": "Initech", "Site": "Austin"}},
		{"Account", "acc-004", "rt-partner", map[string]any{"Name": "Umbrella", "Site": "Raccoon City"}},
		{"Vendor__c", "ven-001", "", map[string]any{"Name": "Stark Supplies"}},
		{"Vendor__c", "ven-002", "", map[string]any{"Name": "Wayne Parts"}},
		{"Contact", "con-001", "", map[string]any{"Name": "Ada Lovelace", "Email": "ada@acme.test", "AccountId": "acc-001", "Vendor__c": "ven-001"}},
		{"Contact", "con-002", "", map[string]any{"Name": "Alan Turing", "Email": "alan@globex.test", "AccountId": "acc-002"}},
		{"Contact", "con-003", "", map[string]any{"Name": "Grace Hopper", "Email": "grace@initech.test", "Vendor__c": "ven-002"}},
	}
	for _, r := range records {
		if _, err := s.Insert(ctx, r.entity, r.id, r.recordType, r.values); err != nil {
			return err
		}
	}
	s.log.Info("seeded demo data", "records", len(records))
	return nil
}
