package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/schoolmed/internal/apiclient"
	"github.com/jwalitptl/schoolmed/internal/handler"
	"github.com/jwalitptl/schoolmed/internal/model"
	"github.com/jwalitptl/schoolmed/internal/session"
	jwtauth "github.com/jwalitptl/schoolmed/pkg/auth"
	"github.com/jwalitptl/schoolmed/pkg/errors"
	"github.com/jwalitptl/schoolmed/pkg/httputil"
)

type Service interface {
	Login(ctx context.Context, req model.LoginRequest) apiclient.Envelope
}

type CookieConfig struct {
	Name   string
	TTL    time.Duration
	Secure bool
}

type Handler struct {
	svc    Service
	store  session.Store
	parser *jwtauth.Parser
	cookie CookieConfig
	bind   handler.Binder
	now    func() time.Time
}

func NewHandler(svc Service, store session.Store, parser *jwtauth.Parser, cookie CookieConfig, bind handler.Binder) *Handler {
	return &Handler{
		svc:    svc,
		store:  store,
		parser: parser,
		cookie: cookie,
		bind:   bind,
		now:    time.Now,
	}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	auth := r.Group("/auth")
	{
		auth.POST("/login", h.Login)
		auth.POST("/logout", h.Logout)
	}
}

// HomePath is the landing page of each role.
func HomePath(role model.Role) string {
	switch {
	case role == model.RoleParent:
		return "/parent/students"
	case role == model.RoleStudent:
		return "/student/medications"
	case role.IsStaff():
		return "/nurse/medications"
	default:
		return "/"
	}
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if !h.bind.JSON(c, &req) {
		return
	}

	env := h.svc.Login(c.Request.Context(), req)
	if !env.Success {
		handler.RenderEnvelope(c, env)
		return
	}

	var result model.LoginResult
	if err := env.Decode(&result); err != nil || result.Token == "" {
		httputil.RespondWithError(c, errors.Upstream(apiclient.MsgInvalidResponse, err))
		return
	}

	claims, err := h.parser.Parse(result.Token)
	if err != nil {
		httputil.RespondWithError(c, errors.Unauthorized(err))
		return
	}

	s := session.FromClaims(result.Token, claims, h.cookie.TTL, h.now())
	if s.Role == "" {
		s.Role = result.Role
	}
	if s.FullName == "" {
		s.FullName = result.FullName
	}
	if err := h.store.Save(c.Request.Context(), s); err != nil {
		log.Error().Err(err).Msg("Failed to save session")
		httputil.RespondWithError(c, errors.Internal(err))
		return
	}

	maxAge := int(s.ExpiresAt.Sub(h.now()).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, s.ID, maxAge, "/", "", h.cookie.Secure, true)

	httputil.RespondWithMessage(c, env.Message, gin.H{
		"role":     s.Role,
		"fullName": s.FullName,
		"redirect": HomePath(s.Role),
	})
}

func (h *Handler) Logout(c *gin.Context) {
	if id, err := c.Cookie(h.cookie.Name); err == nil && id != "" {
		if err := h.store.Delete(c.Request.Context(), id); err != nil {
			log.Warn().Err(err).Msg("Failed to delete session")
		}
	}
	c.SetCookie(h.cookie.Name, "", -1, "/", "", h.cookie.Secure, true)
	httputil.RespondWithMessage(c, "Đã đăng xuất", gin.H{"redirect": "/auth/login"})
}
