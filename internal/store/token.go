package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"eventsys/internal/model"
)

// Token lifetimes. Verification links are long-lived; password reset links
// are deliberately short.
const (
	VerificationTTL = 24 * time.Hour
	ResetTTL        = time.Hour
)

// TokenStore issues and consumes the single-use identity tokens stored on
// the user row. A token and its expiry are always written and cleared
// together, and consumption happens in the same UPDATE that applies the
// state change the token authorizes.
type TokenStore struct {
	db *sql.DB
}

func NewTokenStore(db *sql.DB) *TokenStore {
	return &TokenStore{db: db}
}

// generateToken returns a 64-character hex string (256 bits of entropy).
func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// IssueVerification creates a fresh verification token for the user,
// replacing any previous one (earlier links stop working).
func (s *TokenStore) IssueVerification(userID int64) (string, time.Time, error) {
	return s.issue(userID, "verification_token", "verification_token_expires", VerificationTTL)
}

// IssueReset creates a fresh password reset token for the user, replacing
// any previous one.
func (s *TokenStore) IssueReset(userID int64) (string, time.Time, error) {
	return s.issue(userID, "reset_token", "reset_token_expires", ResetTTL)
}

func (s *TokenStore) issue(userID int64, tokenCol, expiresCol string, ttl time.Duration) (string, time.Time, error) {
	token, err := generateToken()
	if err != nil {
		return "", time.Time{}, err
	}
	expiresAt := time.Now().UTC().Add(ttl)

	result, err := s.db.Exec(
		`UPDATE users SET `+tokenCol+` = ?, `+expiresCol+` = ?, updated_at = datetime('now') WHERE id = ?`,
		token, expiresAt, userID,
	)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("issue token: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return "", time.Time{}, fmt.Errorf("issue token: no such user")
	}
	return token, expiresAt, nil
}

// ConsumeVerification marks the matching user verified and clears the token,
// all in one statement. Returns nil if the token is unknown or expired;
// the two cases are indistinguishable on purpose.
func (s *TokenStore) ConsumeVerification(token string) (*model.User, error) {
	var id int64
	err := s.db.QueryRow(
		`UPDATE users
		 SET is_verified = 1, verification_token = NULL, verification_token_expires = NULL,
		     updated_at = datetime('now')
		 WHERE verification_token = ? AND verification_token_expires > datetime('now')
		 RETURNING id`,
		token,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("consume verification token: %w", err)
	}
	return NewUserStore(s.db).GetByID(id)
}

// ConsumeReset sets the new password hash and clears the reset token in one
// statement. Returns nil for an unknown or expired token.
func (s *TokenStore) ConsumeReset(token, passwordHash string) (*model.User, error) {
	var id int64
	err := s.db.QueryRow(
		`UPDATE users
		 SET password_hash = ?, reset_token = NULL, reset_token_expires = NULL,
		     updated_at = datetime('now')
		 WHERE reset_token = ? AND reset_token_expires > datetime('now')
		 RETURNING id`,
		passwordHash, token,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("consume reset token: %w", err)
	}
	return NewUserStore(s.db).GetByID(id)
}

// ClearExpired removes token fields whose expiry has passed. Purely hygiene;
// expiry is re-checked on every consume, so leftover rows are harmless.
func (s *TokenStore) ClearExpired() (int64, error) {
	var total int64
	for _, cols := range [][2]string{
		{"verification_token", "verification_token_expires"},
		{"reset_token", "reset_token_expires"},
	} {
		result, err := s.db.Exec(
			`UPDATE users SET ` + cols[0] + ` = NULL, ` + cols[1] + ` = NULL
			 WHERE ` + cols[0] + ` IS NOT NULL AND ` + cols[1] + ` <= datetime('now')`,
		)
		if err != nil {
			return total, fmt.Errorf("clear expired tokens: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("rows affected: %w", err)
		}
		total += rows
	}
	return total, nil
}
