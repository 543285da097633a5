package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/schoolmed/internal/model"
	"github.com/jwalitptl/schoolmed/internal/session"
	"github.com/jwalitptl/schoolmed/pkg/auth"
	"github.com/jwalitptl/schoolmed/pkg/httputil"
)

const cookieName = "smp_session"

func init() {
	gin.SetMode(gin.TestMode)
}

func signToken(t *testing.T, role string, exp time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		UserID:   "u-1",
		Role:     role,
		FullName: "Nguyễn Lan",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	return token
}

func authEngine(store session.Store, guard gin.HandlerFunc) *gin.Engine {
	m := NewAuthMiddleware(store, cookieName, auth.NewParser("secret"))
	r := gin.New()
	handlers := []gin.HandlerFunc{m.Authenticate()}
	if guard != nil {
		handlers = append(handlers, guard)
	}
	handlers = append(handlers, func(c *gin.Context) {
		s := session.FromContext(c.Request.Context())
		fromGin, _ := c.Get(ContextSession)
		c.JSON(http.StatusOK, gin.H{
			"role":    s.Role,
			"token":   s.Token,
			"sameGin": fromGin == s,
		})
	})
	r.GET("/private", handlers...)
	return r
}

func get(r http.Handler, mod func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	if mod != nil {
		mod(req)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func saved(t *testing.T, store session.Store, role model.Role, ttl time.Duration) *session.Session {
	t.Helper()
	s := session.New("bearer-"+string(role), ttl, time.Now())
	s.Role = role
	require.NoError(t, store.Save(context.Background(), s))
	return s
}

func TestAuthenticateCookie(t *testing.T) {
	store := session.NewMemoryStore(time.Minute)
	s := saved(t, store, model.RoleParent, time.Hour)

	w := get(authEngine(store, nil), func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: cookieName, Value: s.ID})
	})

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Parent", body["role"])
	assert.Equal(t, "bearer-Parent", body["token"])
	assert.Equal(t, true, body["sameGin"])
}

func TestAuthenticateUnknownCookieClearsIt(t *testing.T) {
	store := session.NewMemoryStore(time.Minute)

	w := get(authEngine(store, nil), func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: cookieName, Value: "gone"})
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Header().Get("Set-Cookie"), cookieName+"=;")
	assert.Contains(t, w.Header().Get("Set-Cookie"), "Max-Age=0")

	var resp httputil.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "Phiên đăng nhập không hợp lệ hoặc đã hết hạn", resp.Message)
}

func TestAuthenticateExpiredSession(t *testing.T) {
	store := session.NewMemoryStore(time.Minute)
	s := saved(t, store, model.RoleParent, time.Hour)

	m := NewAuthMiddleware(store, cookieName, auth.NewParser("secret"))
	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	r := gin.New()
	r.GET("/private", m.Authenticate(), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := get(r, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: cookieName, Value: s.ID})
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Header().Get("Set-Cookie"), "Max-Age=0")

	_, err := store.Get(context.Background(), s.ID)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestAuthenticateBearer(t *testing.T) {
	store := session.NewMemoryStore(time.Minute)
	token := signToken(t, "SchoolNurse", time.Now().Add(time.Hour))

	w := get(authEngine(store, RequireStaff()), func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	})

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "SchoolNurse", body["role"])
	assert.Equal(t, token, body["token"])
}

func TestAuthenticateRejects(t *testing.T) {
	store := session.NewMemoryStore(time.Minute)
	tests := []struct {
		name   string
		header string
	}{
		{name: "no credentials"},
		{name: "malformed", header: "Bearer not-a-jwt"},
		{name: "expired", header: "Bearer " + signToken(t, "Parent", time.Now().Add(-time.Minute))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(authEngine(store, nil), func(r *http.Request) {
				if tt.header != "" {
					r.Header.Set("Authorization", tt.header)
				}
			})
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Empty(t, w.Header().Get("Set-Cookie"))
		})
	}
}

func TestRequireRole(t *testing.T) {
	store := session.NewMemoryStore(time.Minute)
	parent := saved(t, store, model.RoleParent, time.Hour)
	nurse := saved(t, store, model.RoleNurse, time.Hour)
	manager := saved(t, store, model.RoleManager, time.Hour)

	tests := []struct {
		name  string
		guard gin.HandlerFunc
		id    string
		want  int
	}{
		{name: "parent area as parent", guard: RequireRole(model.RoleParent), id: parent.ID, want: http.StatusOK},
		{name: "parent area as nurse", guard: RequireRole(model.RoleParent), id: nurse.ID, want: http.StatusForbidden},
		{name: "any of several roles", guard: RequireRole(model.RoleStudent, model.RoleNurse), id: nurse.ID, want: http.StatusOK},
		{name: "staff area as manager", guard: RequireStaff(), id: manager.ID, want: http.StatusOK},
		{name: "staff area as parent", guard: RequireStaff(), id: parent.ID, want: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(authEngine(store, tt.guard), func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: cookieName, Value: tt.id})
			})
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestGuardsWithoutSession(t *testing.T) {
	for _, guard := range []gin.HandlerFunc{RequireRole(model.RoleParent), RequireStaff()} {
		r := gin.New()
		r.GET("/private", guard, func(c *gin.Context) { c.Status(http.StatusOK) })
		assert.Equal(t, http.StatusUnauthorized, get(r, nil).Code)
	}
}
