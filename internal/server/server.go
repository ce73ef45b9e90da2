package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"eventsys/internal/handler"
	"eventsys/internal/mailer"
	"eventsys/internal/middleware"
	"eventsys/internal/rsvp"
	"eventsys/internal/store"
	ws "eventsys/internal/websocket"
)

type Server struct {
	db            *sql.DB
	hub           *ws.Hub
	authH         *handler.AuthHandler
	eventH        *handler.EventHandler
	notificationH *handler.NotificationHandler
	userH         *handler.UserHandler
	userStore     *store.UserStore
	sessionStore  *store.SessionStore
	tokenStore    *store.TokenStore
	rateLimiter   *middleware.RateLimiter
	logger        *slog.Logger
}

func New(db *sql.DB, mailQueue *mailer.Queue, baseURL string, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	sessionStore := store.NewSessionStore(db)
	tokenStore := store.NewTokenStore(db)
	eventStore := store.NewEventStore(db)
	notificationStore := store.NewNotificationStore(db)

	onNotify := func(userID, notificationID int64) {
		hub.Broadcast(ws.NewMessage("notification", "created", notificationID, map[string]any{
			"user_id": userID,
		}))
	}
	svc := rsvp.NewService(eventStore, userStore, notificationStore, mailQueue, onNotify, logger.With("component", "rsvp"))

	return &Server{
		db:            db,
		hub:           hub,
		authH:         handler.NewAuthHandler(userStore, sessionStore, tokenStore, mailQueue, baseURL, logger.With("component", "auth")),
		eventH:        handler.NewEventHandler(svc, eventStore, hub, logger.With("component", "event")),
		notificationH: handler.NewNotificationHandler(notificationStore, logger.With("component", "notification")),
		userH:         handler.NewUserHandler(userStore, eventStore, notificationStore, logger.With("component", "user")),
		userStore:     userStore,
		sessionStore:  sessionStore,
		tokenStore:    tokenStore,
		rateLimiter:   middleware.NewRateLimiter(),
		logger:        logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// TokenStore returns the token store for cleanup tasks.
func (s *Server) TokenStore() *store.TokenStore {
	return s.tokenStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes. Credential endpoints are rate limited by client IP.
	outerMux.HandleFunc("POST /api/auth/register", s.rateLimitedHandler(s.authH.Register))
	outerMux.HandleFunc("POST /api/auth/login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("POST /api/auth/forgot-password", s.rateLimitedHandler(s.authH.ForgotPassword))
	outerMux.HandleFunc("POST /api/auth/reset-password", s.rateLimitedHandler(s.authH.ResetPassword))
	outerMux.HandleFunc("GET /auth/verify", s.authH.Verify)

	// Event browsing is public; the detail view picks up the session when
	// one is present so it can report is_attending.
	optionalAuth := middleware.OptionalAuth(s.sessionStore, s.userStore)
	outerMux.HandleFunc("GET /api/events", s.eventH.List)
	outerMux.Handle("GET /api/events/{id}", optionalAuth(http.HandlerFunc(s.eventH.Get)))

	outerMux.HandleFunc("GET /health", s.healthHandler)
	outerMux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))

	// Protected routes — wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore, s.userStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/logout", s.authH.Logout)

	// Event API routes
	mux.HandleFunc("POST /api/events", s.eventH.Create)
	mux.HandleFunc("PUT /api/events/{id}", s.eventH.Update)
	mux.HandleFunc("DELETE /api/events/{id}", s.eventH.Delete)
	mux.HandleFunc("POST /api/events/{id}/cancel", s.eventH.Cancel)
	mux.HandleFunc("POST /api/events/{id}/clone", s.eventH.Clone)
	mux.HandleFunc("POST /api/events/{id}/rsvp", s.eventH.RSVP)
	mux.HandleFunc("DELETE /api/events/{id}/rsvp", s.eventH.UnRSVP)
	mux.HandleFunc("GET /api/events/{id}/attendees", s.eventH.Attendees)

	// Notification API routes
	mux.HandleFunc("GET /api/notifications", s.notificationH.List)
	mux.HandleFunc("GET /api/notifications/unread-count", s.notificationH.UnreadCount)
	mux.HandleFunc("POST /api/notifications/{id}/read", s.notificationH.MarkRead)

	// Profile API routes
	mux.HandleFunc("GET /api/me", s.userH.Me)
	mux.HandleFunc("PUT /api/me", s.userH.UpdateProfile)
	mux.HandleFunc("GET /api/dashboard", s.userH.Dashboard)
}
