package migrate

import (
	"testing"

	"fundline/internal/db"
)

func TestParseVersion(t *testing.T) {
	v, err := parseVersion("0001_init.sql")
	if err != nil || v != 1 {
		t.Fatalf("parse: v=%d err=%v", v, err)
	}
	if _, err := parseVersion("init.sql"); err == nil {
		t.Fatal("expected error for missing version prefix")
	}
	if _, err := parseVersion("x_init.sql"); err == nil {
		t.Fatal("expected error for non-numeric prefix")
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	if err := Migrate(conn); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := Migrate(conn); err != nil {
		t.Fatalf("second run: %v", err)
	}

	var version int
	if err := conn.QueryRow(`SELECT version FROM schema_version`).Scan(&version); err != nil {
		t.Fatal(err)
	}
	if version < 1 {
		t.Fatalf("schema version not recorded: %d", version)
	}
	var n int
	if err := conn.QueryRow(`SELECT count(*) FROM tasks`).Scan(&n); err != nil {
		t.Fatalf("tasks table missing after migrate: %v", err)
	}
}
