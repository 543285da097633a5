package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	playground "github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/schoolmed/internal/middleware"
	"github.com/jwalitptl/schoolmed/internal/model"
	"github.com/jwalitptl/schoolmed/pkg/validator"
)

type Handler interface {
	RegisterRoutes(gin.IRouter)
}

type Handlers struct {
	Health  Handler
	Auth    Handler
	Parent  Handler
	Student Handler
	Nurse   Handler
}

// Area is one role's section of the portal.
type Area struct {
	Prefix  string
	Guard   gin.HandlerFunc
	Handler Handler
}

// Areas is the route table: which prefix serves which role.
func Areas(h Handlers) []Area {
	return []Area{
		{Prefix: "/parent", Guard: middleware.RequireRole(model.RoleParent), Handler: h.Parent},
		{Prefix: "/student", Guard: middleware.RequireRole(model.RoleStudent), Handler: h.Student},
		{Prefix: "/nurse", Guard: middleware.RequireStaff(), Handler: h.Nurse},
	}
}

type Config struct {
	Mode             string
	RequestTimeout   time.Duration
	RateLimitEnabled bool
	RateLimit        middleware.RateLimiterConfig
	CORS             middleware.CORSConfig
	Security         middleware.SecurityConfig
	SizeLimit        middleware.SizeLimitConfig
	MetricsNamespace string
	Registerer       prometheus.Registerer
}

type Router struct {
	engine   *gin.Engine
	auth     *middleware.AuthMiddleware
	handlers Handlers
}

func NewRouter(auth *middleware.AuthMiddleware, handlers Handlers, config Config) *Router {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}
	if v, ok := binding.Validator.Engine().(*playground.Validate); ok {
		validator.UseJSONNames(v)
	}

	engine := gin.New()
	engine.HandleMethodNotAllowed = true

	reg := config.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	metrics := middleware.NewHTTPMetrics(config.MetricsNamespace, reg)

	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.Logger(),
		middleware.ErrorHandler(),
		metrics.Middleware(),
		middleware.Timeout(config.RequestTimeout),
		middleware.CORS(config.CORS),
		middleware.SecurityHeaders(config.Security),
		middleware.SizeLimit(config.SizeLimit),
	)

	if config.RateLimitEnabled {
		engine.Use(middleware.NewRateLimiter(config.RateLimit).RateLimit())
	}

	return &Router{
		engine:   engine,
		auth:     auth,
		handlers: handlers,
	}
}

func (r *Router) Setup() {
	if r.handlers.Health != nil {
		r.handlers.Health.RegisterRoutes(r.engine)
	}
	if r.handlers.Auth != nil {
		r.handlers.Auth.RegisterRoutes(r.engine)
	}

	for _, area := range Areas(r.handlers) {
		if area.Handler == nil {
			continue
		}
		group := r.engine.Group(area.Prefix, r.auth.Authenticate(), area.Guard)
		area.Handler.RegisterRoutes(group)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
