package store

import (
	"testing"

	"github.com/thornbury/seedling/internal/database"
)

func setupUserTestDB(t *testing.T) (*UserStore, *FamilyStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewUserStore(db), NewFamilyStore(db)
}

func TestUserCreate(t *testing.T) {
	us, fs := setupUserTestDB(t)

	fam, _ := fs.Create("Thornbury", "UTC")

	u, err := us.Create(fam.ID, "alice@example.com", "Alice", "bcrypt-hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if u.Email != "alice@example.com" {
		t.Errorf("email = %q, want %q", u.Email, "alice@example.com")
	}
	if u.Name != "Alice" {
		t.Errorf("name = %q, want %q", u.Name, "Alice")
	}
	if u.FamilyID != fam.ID {
		t.Errorf("family_id = %d, want %d", u.FamilyID, fam.ID)
	}
}

func TestUserGetByEmail(t *testing.T) {
	us, fs := setupUserTestDB(t)

	fam, _ := fs.Create("Thornbury", "UTC")
	created, _ := us.Create(fam.ID, "alice@example.com", "Alice", "hash")

	u, err := us.GetByEmail("alice@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if u == nil {
		t.Fatal("expected user, got nil")
	}
	if u.ID != created.ID {
		t.Errorf("id = %d, want %d", u.ID, created.ID)
	}

	missing, err := us.GetByEmail("nobody@example.com")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for unknown email")
	}
}

func TestUserDuplicateEmail(t *testing.T) {
	us, fs := setupUserTestDB(t)

	fam, _ := fs.Create("Thornbury", "UTC")
	us.Create(fam.ID, "alice@example.com", "Alice", "hash")

	_, err := us.Create(fam.ID, "alice@example.com", "Other Alice", "hash")
	if err == nil {
		t.Fatal("expected error for duplicate email")
	}
}

func TestUserPasswordHash(t *testing.T) {
	us, fs := setupUserTestDB(t)

	fam, _ := fs.Create("Thornbury", "UTC")
	u, _ := us.Create(fam.ID, "alice@example.com", "Alice", "old-hash")

	hash, err := us.PasswordHash(u.ID)
	if err != nil {
		t.Fatalf("password hash: %v", err)
	}
	if hash != "old-hash" {
		t.Errorf("hash = %q, want %q", hash, "old-hash")
	}

	if err := us.UpdatePassword(u.ID, "new-hash"); err != nil {
		t.Fatalf("update password: %v", err)
	}
	hash, _ = us.PasswordHash(u.ID)
	if hash != "new-hash" {
		t.Errorf("hash = %q, want %q", hash, "new-hash")
	}
}

func TestUserListByFamily(t *testing.T) {
	us, fs := setupUserTestDB(t)

	fam, _ := fs.Create("Thornbury", "UTC")
	other, _ := fs.Create("Walsh", "UTC")
	us.Create(fam.ID, "dad@example.com", "Dad", "hash")
	us.Create(fam.ID, "mum@example.com", "Mum", "hash")
	us.Create(other.ID, "x@example.com", "X", "hash")

	users, err := us.ListByFamily(fam.ID)
	if err != nil {
		t.Fatalf("list by family: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
}
