package middleware

import (
	stderrors "errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/schoolmed/internal/model"
	"github.com/jwalitptl/schoolmed/internal/session"
	"github.com/jwalitptl/schoolmed/pkg/auth"
	"github.com/jwalitptl/schoolmed/pkg/errors"
	"github.com/jwalitptl/schoolmed/pkg/httputil"
)

// ContextSession is the gin key holding the current *session.Session.
const ContextSession = "session"

type AuthMiddleware struct {
	store      session.Store
	cookieName string
	parser     *auth.Parser
	now        func() time.Time
}

func NewAuthMiddleware(store session.Store, cookieName string, parser *auth.Parser) *AuthMiddleware {
	return &AuthMiddleware{
		store:      store,
		cookieName: cookieName,
		parser:     parser,
		now:        time.Now,
	}
}

// Authenticate resolves the session cookie, or a bearer token sent by API
// tools, and puts the session on the request context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := m.resolve(c)
		if err != nil {
			if stderrors.Is(err, session.ErrNotFound) {
				c.SetCookie(m.cookieName, "", -1, "/", "", false, true)
			}
			httputil.RespondWithError(c, errors.Unauthorized(err))
			return
		}

		c.Set(ContextSession, s)
		c.Request = c.Request.WithContext(session.WithSession(c.Request.Context(), s))
		c.Next()
	}
}

func (m *AuthMiddleware) resolve(c *gin.Context) (*session.Session, error) {
	now := m.now()

	if id, err := c.Cookie(m.cookieName); err == nil && id != "" {
		s, err := m.store.Get(c.Request.Context(), id)
		if err != nil {
			return nil, err
		}
		if s.Expired(now) {
			_ = m.store.Delete(c.Request.Context(), id)
			return nil, session.ErrNotFound
		}
		return s, nil
	}

	header := c.GetHeader("Authorization")
	if header == "" {
		return nil, auth.ErrInvalidFormat
	}
	token, err := auth.ExtractBearerToken(header)
	if err != nil {
		return nil, err
	}
	claims, err := m.parser.Parse(token)
	if err != nil {
		return nil, err
	}
	return session.FromClaims(token, claims, time.Hour, now), nil
}

// RequireRole lets the request through only for the given roles.
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := session.FromContext(c.Request.Context())
		if s == nil {
			httputil.RespondWithError(c, errors.Unauthorized(nil))
			return
		}
		for _, r := range roles {
			if s.Role == r {
				c.Next()
				return
			}
		}
		httputil.RespondWithError(c, errors.Forbidden(nil))
	}
}

// RequireStaff admits every staff role.
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		s := session.FromContext(c.Request.Context())
		if s == nil {
			httputil.RespondWithError(c, errors.Unauthorized(nil))
			return
		}
		if !s.Role.IsStaff() {
			httputil.RespondWithError(c, errors.Forbidden(nil))
			return
		}
		c.Next()
	}
}
