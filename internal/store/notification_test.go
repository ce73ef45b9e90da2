package store

import (
	"testing"
)

func setupNotificationTestDB(t *testing.T) (*NotificationStore, *UserStore) {
	t.Helper()
	db := openTestDB(t)
	return NewNotificationStore(db), NewUserStore(db)
}

func TestNotificationCreate(t *testing.T) {
	ns, us := setupNotificationTestDB(t)
	u := mustCreateUser(t, us, "alice")

	n, err := ns.Create(u.ID, "Bob has RSVP'd to your event \"Party\".", "/events/1")
	if err != nil {
		t.Fatalf("create notification: %v", err)
	}
	if n.IsRead {
		t.Error("new notification should be unread")
	}
	if n.Link != "/events/1" {
		t.Errorf("link = %q, want %q", n.Link, "/events/1")
	}
}

func TestNotificationMarkRead(t *testing.T) {
	ns, us := setupNotificationTestDB(t)
	u := mustCreateUser(t, us, "alice")
	n, _ := ns.Create(u.ID, "message", "/events/1")

	ok, err := ns.MarkRead(n.ID, u.ID)
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if !ok {
		t.Fatal("recipient should be able to mark read")
	}

	got, _ := ns.GetByID(n.ID)
	if !got.IsRead {
		t.Error("notification should be read")
	}
}

func TestNotificationMarkReadWrongUser(t *testing.T) {
	ns, us := setupNotificationTestDB(t)
	a := mustCreateUser(t, us, "alice")
	b := mustCreateUser(t, us, "bob")
	n, _ := ns.Create(a.ID, "message", "")

	ok, err := ns.MarkRead(n.ID, b.ID)
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if ok {
		t.Error("non-recipient must not mark read")
	}

	got, _ := ns.GetByID(n.ID)
	if got.IsRead {
		t.Error("notification should remain unread")
	}
}

func TestNotificationListNewestFirst(t *testing.T) {
	ns, us := setupNotificationTestDB(t)
	u := mustCreateUser(t, us, "alice")

	ns.Create(u.ID, "first", "")
	ns.Create(u.ID, "second", "")
	n3, _ := ns.Create(u.ID, "third", "")
	ns.MarkRead(n3.ID, u.ID)

	all, err := ns.ListForUser(u.ID, false, 20)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d notifications, want 3", len(all))
	}
	if all[0].Message != "third" {
		t.Errorf("first listed = %q, want newest %q", all[0].Message, "third")
	}

	unread, err := ns.ListForUser(u.ID, true, 20)
	if err != nil {
		t.Fatalf("list unread: %v", err)
	}
	if len(unread) != 2 {
		t.Errorf("unread = %d, want 2", len(unread))
	}

	limited, err := ns.ListForUser(u.ID, false, 1)
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("limited = %d, want 1", len(limited))
	}

	// Re-querying yields the same sequence.
	again, _ := ns.ListForUser(u.ID, false, 20)
	if len(again) != 3 || again[0].ID != all[0].ID {
		t.Error("repeat query should return the same ordering")
	}
}

func TestNotificationCountUnread(t *testing.T) {
	ns, us := setupNotificationTestDB(t)
	u := mustCreateUser(t, us, "alice")

	ns.Create(u.ID, "one", "")
	n2, _ := ns.Create(u.ID, "two", "")
	ns.MarkRead(n2.ID, u.ID)

	count, err := ns.CountUnread(u.ID)
	if err != nil {
		t.Fatalf("count unread: %v", err)
	}
	if count != 1 {
		t.Errorf("unread = %d, want 1", count)
	}
}
