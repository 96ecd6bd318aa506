package push

import (
	"log/slog"
	"testing"

	"github.com/thornbury/seedling/internal/database"
	"github.com/thornbury/seedling/internal/model"
	"github.com/thornbury/seedling/internal/store"
)

// fakeSender records sends and can simulate expired subscriptions.
type fakeSender struct {
	sent    []string
	bodies  []string
	expired map[string]bool
}

func (f *fakeSender) Send(sub *model.PushSubscription, payload Payload) error {
	if f.expired[sub.Endpoint] {
		return ErrExpired
	}
	f.sent = append(f.sent, sub.Endpoint)
	f.bodies = append(f.bodies, payload.Body)
	return nil
}

func setupNotifierDB(t *testing.T) (*store.PushStore, *store.FamilyStore, *store.UserStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return store.NewPushStore(db), store.NewFamilyStore(db), store.NewUserStore(db)
}

func TestNotifierScopedToFamily(t *testing.T) {
	ps, fs, us := setupNotifierDB(t)

	fam1, _ := fs.Create("One", "UTC")
	fam2, _ := fs.Create("Two", "UTC")
	u1, _ := us.Create(fam1.ID, "a@example.com", "A", "hash")
	u2, _ := us.Create(fam2.ID, "b@example.com", "B", "hash")
	_, _ = ps.CreateSubscription(u1.ID, fam1.ID, "https://push/one", "p", "a", "Phone")
	_, _ = ps.CreateSubscription(u2.ID, fam2.ID, "https://push/two", "p", "a", "Phone")

	fake := &fakeSender{}
	n := &Notifier{sender: fake, push: ps, logger: slog.Default()}

	n.StreakBonus(fam1.ID, "Maya", "weekly", 5)

	if len(fake.sent) != 1 {
		t.Fatalf("sent = %d, want 1", len(fake.sent))
	}
	if fake.sent[0] != "https://push/one" {
		t.Errorf("sent to %q, want %q", fake.sent[0], "https://push/one")
	}
	if want := "Maya earned a weekly streak bonus: 5 seeds"; fake.bodies[0] != want {
		t.Errorf("body = %q, want %q", fake.bodies[0], want)
	}
}

func TestNotifierExcludesActor(t *testing.T) {
	ps, fs, us := setupNotifierDB(t)

	fam, _ := fs.Create("One", "UTC")
	actor, _ := us.Create(fam.ID, "a@example.com", "A", "hash")
	other, _ := us.Create(fam.ID, "b@example.com", "B", "hash")
	_, _ = ps.CreateSubscription(actor.ID, fam.ID, "https://push/actor", "p", "a", "Phone")
	_, _ = ps.CreateSubscription(other.ID, fam.ID, "https://push/other", "p", "a", "Tablet")

	fake := &fakeSender{}
	n := &Notifier{sender: fake, push: ps, logger: slog.Default()}

	n.RewardRedeemed(fam.ID, actor.ID, "Maya", "Movie Night")

	if len(fake.sent) != 1 {
		t.Fatalf("sent = %d, want 1", len(fake.sent))
	}
	if fake.sent[0] != "https://push/other" {
		t.Errorf("sent to %q, want %q", fake.sent[0], "https://push/other")
	}
}

func TestNotifierRespectsPreference(t *testing.T) {
	ps, fs, us := setupNotifierDB(t)

	fam, _ := fs.Create("One", "UTC")
	u, _ := us.Create(fam.ID, "a@example.com", "A", "hash")
	_, _ = ps.CreateSubscription(u.ID, fam.ID, "https://push/one", "p", "a", "Phone")

	if err := ps.SetPreference(u.ID, fam.ID, model.NotifTypeAllTasksDone, false); err != nil {
		t.Fatalf("set preference: %v", err)
	}

	fake := &fakeSender{}
	n := &Notifier{sender: fake, push: ps, logger: slog.Default()}

	n.AllTasksDone(fam.ID, "Maya")
	if len(fake.sent) != 0 {
		t.Fatalf("sent = %d, want 0 for disabled type", len(fake.sent))
	}

	// Other types stay enabled by default
	n.StreakBonus(fam.ID, "Maya", "weekly", 5)
	if len(fake.sent) != 1 {
		t.Fatalf("sent = %d, want 1 for enabled type", len(fake.sent))
	}
}

func TestNotifierPrunesExpired(t *testing.T) {
	ps, fs, us := setupNotifierDB(t)

	fam, _ := fs.Create("One", "UTC")
	u, _ := us.Create(fam.ID, "a@example.com", "A", "hash")
	_, _ = ps.CreateSubscription(u.ID, fam.ID, "https://push/stale", "p", "a", "Phone")

	fake := &fakeSender{expired: map[string]bool{"https://push/stale": true}}
	n := &Notifier{sender: fake, push: ps, logger: slog.Default()}

	n.AllTasksDone(fam.ID, "Maya")

	sub, err := ps.GetSubscriptionByEndpoint("https://push/stale")
	if err != nil {
		t.Fatalf("get subscription: %v", err)
	}
	if sub != nil {
		t.Error("expected expired subscription to be pruned")
	}
}

func TestNotifierDisabledWithoutService(t *testing.T) {
	ps, fs, us := setupNotifierDB(t)

	fam, _ := fs.Create("One", "UTC")
	u, _ := us.Create(fam.ID, "a@example.com", "A", "hash")
	_, _ = ps.CreateSubscription(u.ID, fam.ID, "https://push/one", "p", "a", "Phone")

	n := NewNotifier(nil, ps, slog.Default())
	if n.Enabled() {
		t.Error("expected Enabled() = false without a service")
	}

	// Calls are silent no-ops
	n.StreakBonus(fam.ID, "Maya", "weekly", 5)
	n.PrivilegeDecided(fam.ID, 0, "Maya", "Screen Time", "approved")
}
