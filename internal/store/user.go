package store

import (
	"database/sql"
	"fmt"
	"strings"

	"eventsys/internal/model"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	var verified int
	err := scanner.Scan(
		&u.ID, &u.Username, &u.Email, &u.Name, &u.ProfilePicture,
		&verified, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.IsVerified = verified != 0
	return &u, nil
}

const userCols = `id, username, email, name, profile_picture, is_verified, created_at, updated_at`

// IsUniqueViolation reports whether err is a UNIQUE constraint failure from
// the driver, e.g. inserting a username or email that is already taken.
func IsUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (s *UserStore) Create(username, email, name, passwordHash string) (*model.User, error) {
	result, err := s.db.Exec(
		`INSERT INTO users (username, email, name, password_hash) VALUES (?, ?, ?, ?)`,
		username, email, name, passwordHash,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) GetByID(id int64) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByEmail(email string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByUsername(username string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE username = ?`, username)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return u, nil
}

// Credentials is the login projection of a user row.
type Credentials struct {
	UserID       int64
	PasswordHash string
	IsVerified   bool
}

// GetCredentials returns the password hash and verification state for a
// username, or nil if no such user exists.
func (s *UserStore) GetCredentials(username string) (*Credentials, error) {
	var c Credentials
	var verified int
	err := s.db.QueryRow(
		`SELECT id, password_hash, is_verified FROM users WHERE username = ?`,
		username,
	).Scan(&c.UserID, &c.PasswordHash, &verified)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get credentials: %w", err)
	}
	c.IsVerified = verified != 0
	return &c, nil
}

// UpdateProfile changes the mutable profile fields. The stored picture path
// is treated as an opaque string.
func (s *UserStore) UpdateProfile(id int64, name, profilePicture string) (*model.User, error) {
	_, err := s.db.Exec(
		`UPDATE users SET name = ?, profile_picture = ?, updated_at = datetime('now') WHERE id = ?`,
		name, profilePicture, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}
