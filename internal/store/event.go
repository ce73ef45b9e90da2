package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"eventsys/internal/model"
)

type EventStore struct {
	db *sql.DB
}

func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db}
}

func scanEvent(scanner interface{ Scan(...any) error }) (*model.Event, error) {
	var e model.Event
	var categories string
	var isPublic, isCancelled int

	err := scanner.Scan(
		&e.ID, &e.Title, &e.Description, &e.Date, &e.Location, &e.OwnerID,
		&e.Image, &categories, &e.MaxAttendees, &e.Price,
		&isPublic, &isCancelled, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.Categories = splitCategories(categories)
	e.IsPublic = isPublic != 0
	e.IsCancelled = isCancelled != 0
	return &e, nil
}

const eventCols = `id, title, description, event_date, location, owner_id,
	image, categories, max_attendees, price, is_public, is_cancelled,
	created_at, updated_at`

func joinCategories(categories []string) string {
	var kept []string
	for _, c := range categories {
		if c = strings.TrimSpace(c); c != "" {
			kept = append(kept, c)
		}
	}
	return strings.Join(kept, ",")
}

func splitCategories(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func (s *EventStore) Create(title, description string, date time.Time, location string, ownerID int64, image string, categories []string, maxAttendees int, price float64, isPublic bool) (*model.Event, error) {
	var publicInt int
	if isPublic {
		publicInt = 1
	}

	result, err := s.db.Exec(
		`INSERT INTO events (title, description, event_date, location, owner_id, image, categories, max_attendees, price, is_public)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		title, description, date.UTC(), location, ownerID, image,
		joinCategories(categories), maxAttendees, price, publicInt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *EventStore) GetByID(id int64) (*model.Event, error) {
	row := s.db.QueryRow(`SELECT `+eventCols+` FROM events WHERE id = ?`, id)
	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

// ListPublic returns public events, newest first.
func (s *EventStore) ListPublic(limit int) ([]model.Event, error) {
	rows, err := s.db.Query(
		`SELECT `+eventCols+` FROM events WHERE is_public = 1 ORDER BY created_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return collectEvents(rows)
}

// Search matches a substring of title or description among public events.
func (s *EventStore) Search(q string, limit int) ([]model.Event, error) {
	pattern := "%" + q + "%"
	rows, err := s.db.Query(
		`SELECT `+eventCols+` FROM events
		 WHERE is_public = 1 AND (title LIKE ? OR description LIKE ?)
		 ORDER BY created_at DESC, id DESC LIMIT ?`,
		pattern, pattern, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("search events: %w", err)
	}
	return collectEvents(rows)
}

func (s *EventStore) ListByOwner(ownerID int64) ([]model.Event, error) {
	rows, err := s.db.Query(
		`SELECT `+eventCols+` FROM events WHERE owner_id = ? ORDER BY created_at DESC, id DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list events by owner: %w", err)
	}
	return collectEvents(rows)
}

// ListAttending returns the events a user has joined, newest first.
func (s *EventStore) ListAttending(userID int64) ([]model.Event, error) {
	rows, err := s.db.Query(
		`SELECT `+eventCols+` FROM events
		 WHERE id IN (SELECT event_id FROM event_attendees WHERE user_id = ?)
		 ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list events attending: %w", err)
	}
	return collectEvents(rows)
}

func collectEvents(rows *sql.Rows) ([]model.Event, error) {
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// Update rewrites the descriptive fields. The owner id is never touched.
func (s *EventStore) Update(id int64, title, description string, date time.Time, location, image string, categories []string, maxAttendees int, price float64, isPublic bool) (*model.Event, error) {
	var publicInt int
	if isPublic {
		publicInt = 1
	}

	_, err := s.db.Exec(
		`UPDATE events
		 SET title = ?, description = ?, event_date = ?, location = ?, image = ?,
		     categories = ?, max_attendees = ?, price = ?, is_public = ?,
		     updated_at = datetime('now')
		 WHERE id = ?`,
		title, description, date.UTC(), location, image,
		joinCategories(categories), maxAttendees, price, publicInt, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	return s.GetByID(id)
}

// Cancel sets the cancellation flag. The record and its attendee set stay.
func (s *EventStore) Cancel(id int64) error {
	_, err := s.db.Exec(
		`UPDATE events SET is_cancelled = 1, updated_at = datetime('now') WHERE id = ?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("cancel event: %w", err)
	}
	return nil
}

// Delete removes the event. Attendee rows go with it via foreign key cascade,
// so no user keeps a reference to a deleted event.
func (s *EventStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

// AddAttendee inserts the (event, user) membership only while the event is
// below capacity. The capacity check and the insert are one statement, so
// concurrent joins cannot overshoot the limit. Returns false if nothing was
// inserted: the event is full, the user already joined, or the event is gone.
func (s *EventStore) AddAttendee(eventID, userID int64) (bool, error) {
	result, err := s.db.Exec(
		`INSERT INTO event_attendees (event_id, user_id)
		 SELECT e.id, ? FROM events e
		 WHERE e.id = ?
		   AND NOT EXISTS (
		       SELECT 1 FROM event_attendees a WHERE a.event_id = e.id AND a.user_id = ?)
		   AND (e.max_attendees = 0 OR
		       (SELECT COUNT(*) FROM event_attendees a WHERE a.event_id = e.id) < e.max_attendees)`,
		userID, eventID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("add attendee: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return rows > 0, nil
}

// RemoveAttendee deletes the membership. Returns false if the user was not
// attending.
func (s *EventStore) RemoveAttendee(eventID, userID int64) (bool, error) {
	result, err := s.db.Exec(
		`DELETE FROM event_attendees WHERE event_id = ? AND user_id = ?`,
		eventID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("remove attendee: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return rows > 0, nil
}

func (s *EventStore) IsAttending(eventID, userID int64) (bool, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM event_attendees WHERE event_id = ? AND user_id = ?`,
		eventID, userID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check attendance: %w", err)
	}
	return n > 0, nil
}

func (s *EventStore) CountAttendees(eventID int64) (int, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM event_attendees WHERE event_id = ?`,
		eventID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count attendees: %w", err)
	}
	return n, nil
}

// ListAttendees returns a page of attendees in join order.
func (s *EventStore) ListAttendees(eventID int64, limit, offset int) ([]model.Attendee, error) {
	rows, err := s.db.Query(
		`SELECT u.id, u.name, u.email, u.profile_picture, a.created_at
		 FROM event_attendees a JOIN users u ON u.id = a.user_id
		 WHERE a.event_id = ?
		 ORDER BY a.created_at ASC, a.id ASC
		 LIMIT ? OFFSET ?`,
		eventID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}
	defer rows.Close()

	var attendees []model.Attendee
	for rows.Next() {
		var a model.Attendee
		if err := rows.Scan(&a.UserID, &a.Name, &a.Email, &a.ProfilePicture, &a.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan attendee: %w", err)
		}
		attendees = append(attendees, a)
	}
	return attendees, rows.Err()
}
