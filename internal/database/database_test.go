package database

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"
)

func TestOpenRunsMigrations(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "seedling.db")
	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'families'").Scan(&n); err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	if n != 1 {
		t.Error("expected families table after migrations")
	}
}

func TestSnapshot(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(filepath.Join(dir, "live.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec(`INSERT INTO families (name, timezone) VALUES ('Thornbury', 'UTC')`); err != nil {
		t.Fatalf("insert family: %v", err)
	}

	dst := filepath.Join(dir, "snapshot.db")
	if err := Snapshot(db, dst); err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	snap, err := sql.Open("sqlite", dst)
	if err != nil {
		t.Fatalf("open snapshot: %v", err)
	}
	t.Cleanup(func() { snap.Close() })

	var name string
	if err := snap.QueryRow("SELECT name FROM families").Scan(&name); err != nil {
		t.Fatalf("query snapshot: %v", err)
	}
	if name != "Thornbury" {
		t.Errorf("name = %q, want %q", name, "Thornbury")
	}
}

func TestSnapshotOverwritesStaleFile(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(filepath.Join(dir, "live.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	dst := filepath.Join(dir, "snapshot.db")
	if err := os.WriteFile(dst, []byte("stale"), 0600); err != nil {
		t.Fatalf("write stale file: %v", err)
	}

	if err := Snapshot(db, dst); err != nil {
		t.Fatalf("snapshot over stale file: %v", err)
	}

	snap, err := sql.Open("sqlite", dst)
	if err != nil {
		t.Fatalf("open snapshot: %v", err)
	}
	t.Cleanup(func() { snap.Close() })

	var n int
	if err := snap.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'families'").Scan(&n); err != nil {
		t.Fatalf("query snapshot: %v", err)
	}
	if n != 1 {
		t.Error("expected snapshot to replace stale file with a real database")
	}
}
