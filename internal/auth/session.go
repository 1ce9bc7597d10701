package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"todo-sync/internal/cache"
	apperrors "todo-sync/internal/errors"
)

const sessionKey = "@session"

// Session is the signed-in user as remembered by the device
type Session struct {
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the token can no longer be used at now
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// SessionStore persists the session in device storage. It is the
// authentication provider for the sync engine and the bearer token source
// for the HTTP client.
type SessionStore struct {
	kv     cache.KeyValue
	tasks  *cache.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewSessionStore creates a session store; tasks is cleared on logout
func NewSessionStore(kv cache.KeyValue, tasks *cache.Store, logger *slog.Logger) *SessionStore {
	return &SessionStore{
		kv:     kv,
		tasks:  tasks,
		logger: logger.With(slog.String("component", "session")),
		now:    time.Now,
	}
}

// Save remembers a new session, replacing any previous one
func (s *SessionStore) Save(ctx context.Context, session Session) error {
	encoded, err := json.Marshal(session)
	if err != nil {
		return apperrors.NewStorageError("encode session", err)
	}
	return s.kv.SetMany(ctx, map[string]string{sessionKey: string(encoded)})
}

// Current returns the stored session; NotFound when signed out
func (s *SessionStore) Current(ctx context.Context) (*Session, error) {
	raw, err := s.kv.Get(ctx, sessionKey)
	if err != nil {
		if apperrors.IsErrorType(err, apperrors.ErrorTypeNotFound) {
			return nil, apperrors.NewNotFoundError("session", "current")
		}
		return nil, err
	}
	var session Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil, apperrors.NewStorageError("decode session", err)
	}
	return &session, nil
}

// CurrentUserID returns the signed-in user or an empty string. An expired
// token still identifies the user so the cache stays readable offline.
func (s *SessionStore) CurrentUserID(ctx context.Context) string {
	session, err := s.Current(ctx)
	if err != nil {
		if !apperrors.IsErrorType(err, apperrors.ErrorTypeNotFound) {
			s.logger.Warn("failed to read session", slog.Any("error", err))
		}
		return ""
	}
	return session.UserID
}

// Token returns the bearer token for backend calls
func (s *SessionStore) Token(ctx context.Context) (string, error) {
	session, err := s.Current(ctx)
	if err != nil {
		return "", apperrors.NewPermissionError("backend request", "backend (not signed in)")
	}
	if session.Expired(s.now()) {
		return "", apperrors.NewPermissionError("backend request", "backend (session expired, log in again)")
	}
	return session.Token, nil
}

// Logout forgets the session and the user's cached tasks
func (s *SessionStore) Logout(ctx context.Context) error {
	session, err := s.Current(ctx)
	if err != nil {
		if apperrors.IsErrorType(err, apperrors.ErrorTypeNotFound) {
			return nil
		}
		return err
	}
	s.tasks.Clear(ctx, session.UserID)
	return s.kv.Remove(ctx, sessionKey)
}
