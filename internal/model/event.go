package model

import "time"

type Event struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Date         time.Time `json:"date"`
	Location     string    `json:"location"`
	OwnerID      int64     `json:"owner_id"`
	Image        string    `json:"image,omitempty"`
	Categories   []string  `json:"categories"`
	MaxAttendees int       `json:"max_attendees"`
	Price        float64   `json:"price"`
	IsPublic     bool      `json:"is_public"`
	IsCancelled  bool      `json:"is_cancelled"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Attendee is the projection of a user returned by attendee listings.
type Attendee struct {
	UserID         int64     `json:"user_id"`
	Name           string    `json:"name"`
	Email          string    `json:"-"`
	ProfilePicture string    `json:"profile_picture"`
	JoinedAt       time.Time `json:"joined_at"`
}
