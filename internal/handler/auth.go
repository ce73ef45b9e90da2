package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"eventsys/internal/auth"
	"eventsys/internal/email"
	"eventsys/internal/mailer"
	"eventsys/internal/middleware"
	"eventsys/internal/store"
)

const (
	minPasswordLength = 8
	sessionMaxAge     = 90 * 24 * 60 * 60 // seconds, matches the session row expiry
)

type AuthHandler struct {
	users    *store.UserStore
	sessions *store.SessionStore
	tokens   *store.TokenStore
	mail     *mailer.Queue
	baseURL  string
	logger   *slog.Logger
}

func NewAuthHandler(us *store.UserStore, ss *store.SessionStore, ts *store.TokenStore, mail *mailer.Queue, baseURL string, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		users:    us,
		sessions: ss,
		tokens:   ts,
		mail:     mail,
		baseURL:  baseURL,
		logger:   logger,
	}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		req.Name = req.Username
	}

	if req.Username == "" {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, "invalid email address")
		return
	}
	if len(req.Password) < minPasswordLength {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("hash password", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	// The UNIQUE constraints on username and email are the authority on
	// duplicates; a pre-check would race with a simultaneous registration.
	user, err := h.users.Create(req.Username, req.Email, req.Name, string(hash))
	if err != nil {
		if store.IsUniqueViolation(err) {
			writeError(w, http.StatusConflict, "username or email already registered")
			return
		}
		h.logger.Error("create user", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	token, _, err := h.tokens.IssueVerification(user.ID)
	if err != nil {
		h.logger.Error("issue verification", "user", user.ID, "error", err)
	} else {
		subject, body := email.VerificationEmail(h.baseURL, token)
		h.mail.Enqueue(user.Email, subject, body)
	}

	writeJSON(w, http.StatusCreated, user)
}

// Verify consumes an email-verification token. Used, expired, and unknown
// tokens are indistinguishable to the caller.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}

	user, err := h.tokens.ConsumeVerification(token)
	if err != nil {
		h.logger.Error("consume verification", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil {
		writeError(w, http.StatusBadRequest, "invalid or expired token")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "verified"})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	creds, err := h.users.GetCredentials(strings.TrimSpace(req.Username))
	if err != nil {
		h.logger.Error("login lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if creds == nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(req.Password)); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if !creds.IsVerified {
		writeError(w, http.StatusForbidden, "email not verified")
		return
	}

	sess, err := h.sessions.Create(creds.UserID)
	if err != nil {
		h.logger.Error("create session", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.setSessionCookie(w, r, sess.Token, sessionMaxAge)

	user, err := h.users.GetByID(creds.UserID)
	if err != nil || user == nil {
		h.logger.Error("login user lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if ac, ok := auth.FromContext(r.Context()); ok {
		if err := h.sessions.Delete(ac.SessionID); err != nil {
			h.logger.Error("delete session", "session", ac.SessionID, "error", err)
		}
	}

	h.setSessionCookie(w, r, "", -1)
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword issues a reset token if the address is registered. The
// response never reveals whether it was.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	defer writeJSON(w, http.StatusAccepted, map[string]string{
		"status": "if the address is registered, a reset link has been sent",
	})

	user, err := h.users.GetByEmail(strings.TrimSpace(req.Email))
	if err != nil {
		h.logger.Error("forgot password lookup", "error", err)
		return
	}
	if user == nil {
		return
	}

	token, _, err := h.tokens.IssueReset(user.ID)
	if err != nil {
		h.logger.Error("issue reset", "user", user.ID, "error", err)
		return
	}

	subject, body := email.PasswordResetEmail(h.baseURL, token)
	h.mail.Enqueue(user.Email, subject, body)
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}
	if len(req.Password) < minPasswordLength {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("hash password", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	user, err := h.tokens.ConsumeReset(req.Token, string(hash))
	if err != nil {
		h.logger.Error("consume reset", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil {
		writeError(w, http.StatusBadRequest, "invalid or expired token")
		return
	}

	// A stolen session should not survive a password reset.
	if err := h.sessions.DeleteByUserID(user.ID); err != nil {
		h.logger.Error("revoke sessions", "user", user.ID, "error", err)
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "password updated"})
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, r *http.Request, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})
}
