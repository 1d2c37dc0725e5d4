package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/scaregistry/backend/internal/domain/identity"
	"github.com/scaregistry/backend/internal/infrastructure/config"
	"github.com/scaregistry/backend/internal/infrastructure/logger"
	"github.com/scaregistry/backend/internal/interfaces/http/dto"
	"github.com/scaregistry/backend/internal/interfaces/http/handler"
	"github.com/scaregistry/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// Handlers are the route targets. Outbox and Sweep are optional.
type Handlers struct {
	Cases   *handler.CaseHandler
	Users   *handler.UserHandler
	Penalty *handler.PenaltyHandler
	Health  *handler.HealthHandler
	Outbox  *handler.OutboxHandler
	Sweep   *handler.SweepHandler
}

// EngineConfig carries what the middleware stack needs
type EngineConfig struct {
	HTTP    config.HTTPConfig
	Tracing middleware.TracingConfig
	Tokens  middleware.TokenValidator
	// Actors gates the /admin routes to administrators
	Actors  middleware.ActorResolver
	Metrics interface {
		GinMiddleware() gin.HandlerFunc
		Handler() http.Handler
	}
	Logger *zap.Logger
}

// NewEngine assembles the gin engine: the global middleware stack, the
// public /health and /metrics endpoints and the authenticated /api/v1 tree.
func NewEngine(cfg EngineConfig, h Handlers) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.Tracing(cfg.Tracing), middleware.SpanEnricher())
	engine.Use(logger.GinMiddleware(log))
	if cfg.Metrics != nil {
		engine.Use(cfg.Metrics.GinMiddleware())
	}
	engine.Use(middleware.Secure())

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		cors.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	cors.MaxAge = 12 * time.Hour
	engine.Use(middleware.CORSWithConfig(cors))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound,
			dto.NewErrorResponse(dto.ErrCodeRouteNotFound, "No route for "+c.Request.Method+" "+c.Request.URL.Path, middleware.GetRequestID(c)))
	})

	if h.Health != nil {
		engine.GET("/health", h.Health.Health)
	}
	if cfg.Metrics != nil {
		engine.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	r := NewRouter(engine, WithAPIVersion("v1"))
	r.Use(middleware.JWTAuth(middleware.JWTConfig{Validator: cfg.Tokens, Logger: log}))

	cases := NewDomainGroup("cases", "/cases")
	cases.POST("/:entity", h.Cases.Create)
	cases.GET("/:entity", h.Cases.Query)
	cases.GET("/:entity/:id", h.Cases.Get)
	cases.GET("/:entity/:id/transitions", h.Cases.AvailableTransitions)
	cases.POST("/:entity/:id/transitions/:transition", h.Cases.Transition)
	r.Register(cases)

	users := NewDomainGroup("users", "/users")
	users.GET("/me", h.Users.Me)
	users.POST("", h.Users.Create)
	users.PATCH("/:id/role", h.Users.ChangeRole)
	users.POST("/:id/activate", h.Users.Activate)
	users.POST("/:id/deactivate", h.Users.Deactivate)
	users.PATCH("/:id/profile", h.Users.UpdateProfile)
	users.DELETE("/:id", h.Users.Delete)
	r.Register(users)

	penalty := NewDomainGroup("penalty", "/penalty")
	penalty.GET("/fine-tier", h.Penalty.FineTier)
	r.Register(penalty)

	if cfg.Actors != nil && (h.Outbox != nil || h.Sweep != nil) {
		admin := NewDomainGroup("admin", "/admin").Use(middleware.RequireRole(cfg.Actors, identity.RoleAdmin))
		if h.Outbox != nil {
			outbox := admin.Group("outbox", "/outbox")
			outbox.GET("/stats", h.Outbox.GetStats)
			outbox.GET("/dead", h.Outbox.ListDeadLetters)
			outbox.POST("/dead/retry", h.Outbox.RetryAllDeadEntries)
			outbox.GET("/:id", h.Outbox.GetEntry)
			outbox.POST("/:id/retry", h.Outbox.RetryDeadEntry)
		}
		if h.Sweep != nil {
			admin.POST("/expiry-sweep", h.Sweep.Trigger)
		}
		r.Register(admin)
	}

	r.Setup()
	return engine
}
