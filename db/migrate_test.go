package db

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"chargemind/test/fakes"
)

func TestMigrations_OrderedAndComplete(t *testing.T) {
	migrations, err := Migrations()
	if err != nil {
		t.Fatalf("migrations: %v", err)
	}
	if len(migrations) < 3 {
		t.Fatalf("expected at least 3 migrations, got %d", len(migrations))
	}
	for i := 1; i < len(migrations); i++ {
		if migrations[i-1].Version >= migrations[i].Version {
			t.Fatalf("migrations out of order: %s before %s", migrations[i-1].Version, migrations[i].Version)
		}
	}

	var all strings.Builder
	for _, m := range migrations {
		all.WriteString(m.SQL)
	}
	for _, table := range []string{
		"clients", "client_integrations", "users", "webhook_deliveries", "shopify_disputes",
		"evidence_field_configs", "dispute_requests", "notifications_menu", "outbox",
	} {
		if !strings.Contains(all.String(), "CREATE TABLE "+table+" (") {
			t.Fatalf("no migration creates %s", table)
		}
	}
}

// recorder plays schema_migrations in memory.
type recorder struct {
	versions map[string]bool
	executed []string
	failOn   string
}

func (r *recorder) exec(sql string, args ...any) (pgconn.CommandTag, error) {
	if strings.HasPrefix(sql, "INSERT INTO schema_migrations") {
		v := args[0].(string)
		if r.versions[v] {
			return pgconn.NewCommandTag("INSERT 0 0"), nil
		}
		r.versions[v] = true
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	}
	if r.failOn != "" && strings.Contains(sql, r.failOn) {
		return pgconn.CommandTag{}, errors.New("syntax error")
	}
	r.executed = append(r.executed, sql)
	return pgconn.NewCommandTag("CREATE TABLE"), nil
}

func TestMigrate_SkipsApplied(t *testing.T) {
	migrations, err := Migrations()
	if err != nil {
		t.Fatalf("migrations: %v", err)
	}
	rec := &recorder{versions: map[string]bool{migrations[0].Version: true}}
	pool := &fakes.Pool{ExecFn: rec.exec}

	applied, err := Migrate(context.Background(), pool)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if len(applied) != len(migrations)-1 || applied[0] != migrations[1].Version {
		t.Fatalf("unexpected applied versions %v", applied)
	}
	if !pool.Tx.Committed {
		t.Fatal("expected last migration committed")
	}

	again, err := Migrate(context.Background(), pool)
	if err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("expected nothing applied on rerun, got %v", again)
	}
}

func TestMigrate_StopsOnFailure(t *testing.T) {
	rec := &recorder{versions: map[string]bool{}, failOn: "CREATE TABLE shopify_disputes"}
	pool := &fakes.Pool{ExecFn: rec.exec}

	applied, err := Migrate(context.Background(), pool)
	if err == nil {
		t.Fatal("expected failure")
	}
	if len(applied) != 1 {
		t.Fatalf("expected only the first migration applied, got %v", applied)
	}
	if !pool.Tx.Rolled {
		t.Fatal("expected failed migration rolled back")
	}
}
