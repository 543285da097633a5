package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/schoolmed/internal/apiclient"
	"github.com/jwalitptl/schoolmed/internal/model"
	"github.com/jwalitptl/schoolmed/pkg/auth"
)

// ErrNotFound is returned for unknown or expired sessions.
var ErrNotFound = errors.New("session not found")

// Session is what the portal keeps for a signed-in browser.
type Session struct {
	ID        string     `json:"id"`
	Token     string     `json:"token"`
	UserID    string     `json:"userId,omitempty"`
	Role      model.Role `json:"role"`
	FullName  string     `json:"fullName,omitempty"`
	StudentID string     `json:"studentId,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	ExpiresAt time.Time  `json:"expiresAt"`
}

// Store keeps sessions by id. Implementations are safe for concurrent use.
type Store interface {
	Save(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
}

// New fills id and timestamps of a fresh session.
func New(token string, ttl time.Duration, now time.Time) *Session {
	return &Session{
		ID:        uuid.NewString(),
		Token:     token,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// FromClaims builds a session for token, copying identity from its claims.
// The session never outlives the token.
func FromClaims(token string, claims *auth.Claims, ttl time.Duration, now time.Time) *Session {
	s := New(token, ttl, now)
	s.UserID = claims.AccountID()
	s.Role = model.Role(claims.RoleValue())
	s.FullName = claims.DisplayName()
	s.StudentID = claims.StudentID
	if claims.ExpiresAt != nil && claims.ExpiresAt.Time.Before(s.ExpiresAt) {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// ttlFor returns the remaining lifetime, never negative.
func ttlFor(s *Session, now time.Time) time.Duration {
	d := s.ExpiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

type ctxKey struct{}

// WithSession attaches the current session to ctx.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session set by the auth middleware, or nil.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(ctxKey{}).(*Session)
	return s
}

// TokenSource reads the bearer token of the session carried by the request context.
func TokenSource() apiclient.TokenSource {
	return apiclient.TokenFunc(func(ctx context.Context) string {
		if s := FromContext(ctx); s != nil {
			return s.Token
		}
		return ""
	})
}
