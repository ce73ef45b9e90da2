package store

import (
	"testing"
	"time"

	"eventsys/internal/model"
)

func setupEventTestDB(t *testing.T) (*EventStore, *UserStore) {
	t.Helper()
	db := openTestDB(t)
	return NewEventStore(db), NewUserStore(db)
}

func mustCreateUser(t *testing.T, us *UserStore, username string) *model.User {
	t.Helper()
	u, err := us.Create(username, username+"@example.com", username, "hash")
	if err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

func mustCreateEvent(t *testing.T, es *EventStore, ownerID int64, title string, maxAttendees int) *model.Event {
	t.Helper()
	date := time.Date(2026, 9, 12, 19, 0, 0, 0, time.UTC)
	ev, err := es.Create(title, "A description", date, "Main Hall", ownerID, "", []string{"Music"}, maxAttendees, 0, true)
	if err != nil {
		t.Fatalf("create event %s: %v", title, err)
	}
	return ev
}

func TestEventCreateAndGetByID(t *testing.T) {
	es, us := setupEventTestDB(t)
	owner := mustCreateUser(t, us, "owner")

	date := time.Date(2026, 9, 12, 19, 0, 0, 0, time.UTC)
	ev, err := es.Create("Concert", "Open air show", date, "Riverside Park", owner.ID, "/uploads/events/1.jpg", []string{"Music", "Art"}, 100, 25.50, true)
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	if ev.Title != "Concert" {
		t.Errorf("title = %q, want %q", ev.Title, "Concert")
	}
	if ev.OwnerID != owner.ID {
		t.Errorf("owner id = %d, want %d", ev.OwnerID, owner.ID)
	}
	if len(ev.Categories) != 2 || ev.Categories[0] != "Music" || ev.Categories[1] != "Art" {
		t.Errorf("categories = %v, want [Music Art]", ev.Categories)
	}
	if ev.MaxAttendees != 100 {
		t.Errorf("max attendees = %d, want 100", ev.MaxAttendees)
	}
	if ev.Price != 25.50 {
		t.Errorf("price = %v, want 25.50", ev.Price)
	}
	if !ev.IsPublic {
		t.Error("event should be public")
	}
	if ev.IsCancelled {
		t.Error("new event should not be cancelled")
	}

	got, err := es.GetByID(ev.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if got.Title != "Concert" {
		t.Errorf("got title = %q, want %q", got.Title, "Concert")
	}
}

func TestEventGetByIDNotFound(t *testing.T) {
	es, _ := setupEventTestDB(t)

	ev, err := es.GetByID(999)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if ev != nil {
		t.Error("expected nil for nonexistent event")
	}
}

func TestEventListPublicNewestFirst(t *testing.T) {
	es, us := setupEventTestDB(t)
	owner := mustCreateUser(t, us, "owner")

	mustCreateEvent(t, es, owner.ID, "First", 0)
	mustCreateEvent(t, es, owner.ID, "Second", 0)
	date := time.Date(2026, 9, 12, 19, 0, 0, 0, time.UTC)
	es.Create("Hidden", "desc", date, "loc", owner.ID, "", nil, 0, 0, false)

	events, err := es.ListPublic(20)
	if err != nil {
		t.Fatalf("list public: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2 (private excluded)", len(events))
	}
	if events[0].Title != "Second" {
		t.Errorf("first listed = %q, want newest %q", events[0].Title, "Second")
	}
}

func TestEventSearch(t *testing.T) {
	es, us := setupEventTestDB(t)
	owner := mustCreateUser(t, us, "owner")

	mustCreateEvent(t, es, owner.ID, "Jazz Night", 0)
	mustCreateEvent(t, es, owner.ID, "Tech Meetup", 0)

	events, err := es.Search("jazz", 5)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].Title != "Jazz Night" {
		t.Errorf("match = %q, want %q", events[0].Title, "Jazz Night")
	}
}

func TestEventUpdateKeepsOwner(t *testing.T) {
	es, us := setupEventTestDB(t)
	owner := mustCreateUser(t, us, "owner")
	ev := mustCreateEvent(t, es, owner.ID, "Original", 0)

	newDate := time.Date(2026, 10, 1, 18, 0, 0, 0, time.UTC)
	updated, err := es.Update(ev.ID, "Renamed", "New description", newDate, "New Hall", "", []string{"Sports"}, 10, 5, false)
	if err != nil {
		t.Fatalf("update event: %v", err)
	}
	if updated.Title != "Renamed" {
		t.Errorf("title = %q, want %q", updated.Title, "Renamed")
	}
	if updated.OwnerID != owner.ID {
		t.Errorf("owner id changed to %d, want %d", updated.OwnerID, owner.ID)
	}
	if updated.MaxAttendees != 10 {
		t.Errorf("max attendees = %d, want 10", updated.MaxAttendees)
	}
	if updated.IsPublic {
		t.Error("event should be private after update")
	}
}

func TestEventCancelKeepsAttendees(t *testing.T) {
	es, us := setupEventTestDB(t)
	owner := mustCreateUser(t, us, "owner")
	b := mustCreateUser(t, us, "bob")
	ev := mustCreateEvent(t, es, owner.ID, "Party", 0)

	if _, err := es.AddAttendee(ev.ID, b.ID); err != nil {
		t.Fatalf("add attendee: %v", err)
	}
	if err := es.Cancel(ev.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	got, _ := es.GetByID(ev.ID)
	if !got.IsCancelled {
		t.Error("event should be cancelled")
	}
	n, _ := es.CountAttendees(ev.ID)
	if n != 1 {
		t.Errorf("attendees = %d, want 1 after cancel", n)
	}
}

func TestEventDeleteCascadesAttendees(t *testing.T) {
	es, us := setupEventTestDB(t)
	owner := mustCreateUser(t, us, "owner")
	b := mustCreateUser(t, us, "bob")
	ev := mustCreateEvent(t, es, owner.ID, "Party", 0)
	es.AddAttendee(ev.ID, b.ID)

	if err := es.Delete(ev.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	got, err := es.GetByID(ev.ID)
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if got != nil {
		t.Error("expected nil after delete")
	}

	// No dangling membership rows survive the cascade.
	attending, err := es.ListAttending(b.ID)
	if err != nil {
		t.Fatalf("list attending: %v", err)
	}
	if len(attending) != 0 {
		t.Errorf("attending = %d events, want 0 after cascade", len(attending))
	}
}

func TestAddAttendeeUnlimitedCapacity(t *testing.T) {
	es, us := setupEventTestDB(t)
	owner := mustCreateUser(t, us, "owner")
	ev := mustCreateEvent(t, es, owner.ID, "Open Event", 0)

	for i := 0; i < 5; i++ {
		u := mustCreateUser(t, us, "guest"+string(rune('a'+i)))
		ok, err := es.AddAttendee(ev.ID, u.ID)
		if err != nil {
			t.Fatalf("add attendee %d: %v", i, err)
		}
		if !ok {
			t.Fatalf("join %d refused on unlimited-capacity event", i)
		}
	}

	n, _ := es.CountAttendees(ev.ID)
	if n != 5 {
		t.Errorf("attendees = %d, want 5", n)
	}
}

func TestAddAttendeeCapacityEnforced(t *testing.T) {
	es, us := setupEventTestDB(t)
	owner := mustCreateUser(t, us, "alice")
	b := mustCreateUser(t, us, "bob")
	c := mustCreateUser(t, us, "carol")
	ev := mustCreateEvent(t, es, owner.ID, "Tiny Venue", 1)

	ok, err := es.AddAttendee(ev.ID, b.ID)
	if err != nil {
		t.Fatalf("add bob: %v", err)
	}
	if !ok {
		t.Fatal("bob should fit, capacity 1 with 0 attendees")
	}

	ok, err = es.AddAttendee(ev.ID, c.ID)
	if err != nil {
		t.Fatalf("add carol: %v", err)
	}
	if ok {
		t.Error("carol should be rejected, event is full")
	}

	n, _ := es.CountAttendees(ev.ID)
	if n != 1 {
		t.Errorf("attendees = %d, want 1 (set unchanged by rejected join)", n)
	}
	attending, _ := es.IsAttending(ev.ID, b.ID)
	if !attending {
		t.Error("bob should remain attending")
	}
}

func TestAddAttendeeDuplicateRejected(t *testing.T) {
	es, us := setupEventTestDB(t)
	owner := mustCreateUser(t, us, "owner")
	b := mustCreateUser(t, us, "bob")
	ev := mustCreateEvent(t, es, owner.ID, "Party", 0)

	ok, _ := es.AddAttendee(ev.ID, b.ID)
	if !ok {
		t.Fatal("first join should succeed")
	}
	ok, err := es.AddAttendee(ev.ID, b.ID)
	if err != nil {
		t.Fatalf("duplicate join: %v", err)
	}
	if ok {
		t.Error("second join should not insert")
	}
	n, _ := es.CountAttendees(ev.ID)
	if n != 1 {
		t.Errorf("attendees = %d, want 1 after duplicate join", n)
	}
}

func TestRemoveAttendeeRoundTrip(t *testing.T) {
	es, us := setupEventTestDB(t)
	owner := mustCreateUser(t, us, "owner")
	b := mustCreateUser(t, us, "bob")
	ev := mustCreateEvent(t, es, owner.ID, "Party", 0)

	removed, err := es.RemoveAttendee(ev.ID, b.ID)
	if err != nil {
		t.Fatalf("remove non-member: %v", err)
	}
	if removed {
		t.Error("removing a non-member should report false")
	}

	es.AddAttendee(ev.ID, b.ID)
	removed, err = es.RemoveAttendee(ev.ID, b.ID)
	if err != nil {
		t.Fatalf("remove member: %v", err)
	}
	if !removed {
		t.Error("removing a member should report true")
	}

	// leave -> join -> leave restores the empty set
	n, _ := es.CountAttendees(ev.ID)
	if n != 0 {
		t.Errorf("attendees = %d, want 0 after round trip", n)
	}

	// Freed seat is usable again.
	ok, _ := es.AddAttendee(ev.ID, b.ID)
	if !ok {
		t.Error("rejoin after leave should succeed")
	}
}

func TestListAttendeesPaged(t *testing.T) {
	es, us := setupEventTestDB(t)
	owner := mustCreateUser(t, us, "owner")
	ev := mustCreateEvent(t, es, owner.ID, "Big Event", 0)

	for i := 0; i < 3; i++ {
		u := mustCreateUser(t, us, "guest"+string(rune('a'+i)))
		es.AddAttendee(ev.ID, u.ID)
	}

	page, err := es.ListAttendees(ev.ID, 2, 0)
	if err != nil {
		t.Fatalf("list attendees: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("page size = %d, want 2", len(page))
	}
	if page[0].Name != "guesta" {
		t.Errorf("first attendee = %q, want %q", page[0].Name, "guesta")
	}

	rest, err := es.ListAttendees(ev.ID, 2, 2)
	if err != nil {
		t.Fatalf("list attendees page 2: %v", err)
	}
	if len(rest) != 1 {
		t.Errorf("second page size = %d, want 1", len(rest))
	}
}

func TestListAttendingAndByOwner(t *testing.T) {
	es, us := setupEventTestDB(t)
	owner := mustCreateUser(t, us, "owner")
	b := mustCreateUser(t, us, "bob")

	ev1 := mustCreateEvent(t, es, owner.ID, "One", 0)
	mustCreateEvent(t, es, owner.ID, "Two", 0)
	es.AddAttendee(ev1.ID, b.ID)

	created, err := es.ListByOwner(owner.ID)
	if err != nil {
		t.Fatalf("list by owner: %v", err)
	}
	if len(created) != 2 {
		t.Errorf("created = %d, want 2", len(created))
	}

	attending, err := es.ListAttending(b.ID)
	if err != nil {
		t.Fatalf("list attending: %v", err)
	}
	if len(attending) != 1 {
		t.Fatalf("attending = %d, want 1", len(attending))
	}
	if attending[0].ID != ev1.ID {
		t.Errorf("attending event = %d, want %d", attending[0].ID, ev1.ID)
	}
}
