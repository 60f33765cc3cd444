package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration matches %q", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestCouponsMigrationContainsSchemas(t *testing.T) {
	content := readMigration(t, "*_create_coupons_tables.sql")

	checks := []string{
		"CREATE TYPE discount_type AS ENUM",
		"CREATE TYPE rule_source_type AS ENUM",
		"CREATE TYPE benefit_type AS ENUM",
		"CREATE TYPE free_item_selection AS ENUM",
		"CREATE TYPE discount_target_type AS ENUM",
		"CREATE TABLE IF NOT EXISTS coupons",
		"CREATE TABLE IF NOT EXISTS coupon_rules",
		"ON DELETE CASCADE",
		"max_applications_per_order integer NOT NULL DEFAULT 1",
		"idx_coupon_rules_coupon_priority",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestOrdersMigrationPersistsCouponAudit(t *testing.T) {
	content := readMigration(t, "*_create_carts_orders_tables.sql")

	checks := []string{
		"coupon_code text",
		"discount_explanation text",
		"discount_total numeric(12,2) NOT NULL DEFAULT 0",
		"idx_orders_coupon_code",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestOutboxMigrationHasDedupIndex(t *testing.T) {
	content := readMigration(t, "*_create_admin_outbox_tables.sql")

	if !strings.Contains(content, "ux_outbox_events_event_aggregate") {
		t.Error("missing outbox dedup unique index")
	}
	if !strings.Contains(content, "WHERE published_at IS NULL") {
		t.Error("missing partial index for unpublished events")
	}
}
