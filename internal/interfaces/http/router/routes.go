package router

import (
	"time"

	"github.com/fulfildesk/backend/internal/infrastructure/config"
	"github.com/fulfildesk/backend/internal/infrastructure/logger"
	"github.com/fulfildesk/backend/internal/interfaces/http/handler"
	"github.com/fulfildesk/backend/internal/interfaces/http/middleware"
	"github.com/getsentry/sentry-go"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Handlers bundles every HTTP handler the API exposes
type Handlers struct {
	Auth       *handler.AuthHandler
	User       *handler.UserHandler
	Team       *handler.TeamHandler
	Category   *handler.CategoryHandler
	Order      *handler.OrderHandler
	Dispute    *handler.DisputeHandler
	Chat       *handler.ChatHandler
	Attachment *handler.AttachmentHandler
	Audit      *handler.AuditHandler
	System     *handler.SystemHandler
}

// Options configures the engine's middleware chain
type Options struct {
	HTTP        config.HTTPConfig
	ServiceName string
	Tracing     bool
	Logger      *zap.Logger
	// SentryHub is optional; panics are reported there when set
	SentryHub *sentry.Hub
	// Meter is optional; nil disables HTTP metrics
	Meter metric.Meter
	Auth  middleware.AuthConfig
	// Limiter throttles authenticated callers per user; AuthLimiter throttles
	// login and refresh per client IP. Either may be nil.
	Limiter     *middleware.RateLimiter
	AuthLimiter *middleware.RateLimiter
	// RequestTimeout bounds each request's context; zero disables it
	RequestTimeout time.Duration
}

// NewEngine builds the gin engine with the global middleware chain and every
// API route registered under /api/v1. Health probes live outside the API
// prefix and skip authentication.
func NewEngine(opts Options, h Handlers) (*gin.Engine, error) {
	middleware.SetupValidator()

	engine := gin.New()
	if len(opts.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(opts.HTTP.TrustedProxies); err != nil {
			return nil, err
		}
	}

	// Tracing runs first so every later log line carries the trace id
	engine.Use(
		middleware.TracingWithConfig(middleware.TracingConfig{ServiceName: opts.ServiceName, Enabled: opts.Tracing}),
		middleware.RequestID(),
		logger.GinMiddleware(opts.Logger),
		logger.Recovery(opts.Logger, opts.SentryHub),
	)
	if opts.Meter != nil {
		metrics, err := middleware.HTTPMetrics(opts.Meter)
		if err != nil {
			return nil, err
		}
		engine.Use(metrics)
	}
	engine.Use(
		middleware.SecureWithConfig(middleware.DefaultSecurityConfig()),
		middleware.CORSWithConfig(middleware.CORSFromConfig(opts.HTTP)),
		middleware.BodyLimit(opts.HTTP.MaxBodySize),
	)
	if opts.HTTP.GzipEnabled {
		engine.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/health", "/ready"})))
	}
	if opts.RequestTimeout > 0 {
		engine.Use(middleware.Timeout(opts.RequestTimeout))
	}

	engine.GET("/health", h.System.Health)
	engine.GET("/ready", h.System.Ready)

	r := NewRouter(engine, WithAPIVersion("v1"))
	r.Register(publicRoutes(opts, h)).
		Register(protectedRoutes(opts, h))
	r.Setup()

	return engine, nil
}

func publicRoutes(opts Options, h Handlers) *DomainGroup {
	public := NewDomainGroup("public", "")

	authRoutes := public.Group("auth", "/auth")
	if opts.AuthLimiter != nil {
		authRoutes.Use(middleware.RateLimit(opts.AuthLimiter))
	}
	authRoutes.POST("/login", h.Auth.Login)
	authRoutes.POST("/refresh", h.Auth.Refresh)

	systemRoutes := public.Group("system", "/system")
	systemRoutes.GET("/ping", h.System.Ping)

	return public
}

func protectedRoutes(opts Options, h Handlers) *DomainGroup {
	protected := NewDomainGroup("protected", "")
	protected.Use(middleware.Authenticate(opts.Auth), middleware.SpanEnricher())
	if opts.Limiter != nil {
		protected.Use(middleware.RateLimit(opts.Limiter))
	}

	authRoutes := protected.Group("auth", "/auth")
	authRoutes.POST("/logout", h.Auth.Logout)
	authRoutes.GET("/me", h.Auth.Me)

	userRoutes := protected.Group("users", "/users")
	userRoutes.POST("", h.User.Create)
	userRoutes.GET("", h.User.List)
	userRoutes.PUT("/me/password", h.User.ChangePassword)
	userRoutes.GET("/:id", h.User.Get)
	userRoutes.POST("/:id/activate", h.User.Activate)
	userRoutes.POST("/:id/deactivate", h.User.Deactivate)

	teamRoutes := protected.Group("teams", "/teams")
	teamRoutes.POST("", h.Team.Create)
	teamRoutes.GET("", h.Team.List)
	teamRoutes.GET("/:id", h.Team.Get)
	teamRoutes.PUT("/:id", h.Team.Rename)
	teamRoutes.POST("/:id/members", h.Team.Invite)
	teamRoutes.GET("/:id/members", h.Team.ListMembers)

	membershipRoutes := protected.Group("memberships", "/memberships")
	membershipRoutes.GET("/mine", h.Team.MyMemberships)
	membershipRoutes.POST("/:id/accept", h.Team.Accept)
	membershipRoutes.POST("/:id/suspend", h.Team.Suspend)
	membershipRoutes.POST("/:id/reinstate", h.Team.Reinstate)
	membershipRoutes.POST("/:id/block", h.Team.Block)
	membershipRoutes.POST("/:id/unblock", h.Team.Unblock)
	membershipRoutes.PUT("/:id/role", h.Team.ChangeRole)

	categoryRoutes := protected.Group("categories", "/categories")
	categoryRoutes.POST("", h.Category.Create)
	categoryRoutes.GET("", h.Category.List)
	categoryRoutes.GET("/:id", h.Category.GetByID)
	categoryRoutes.PUT("/:id", h.Category.Update)
	categoryRoutes.POST("/:id/activate", h.Category.Activate)
	categoryRoutes.POST("/:id/deactivate", h.Category.Deactivate)

	orderRoutes := protected.Group("orders", "/orders")
	orderRoutes.POST("", h.Order.Create)
	orderRoutes.GET("", h.Order.List)
	orderRoutes.GET("/queue", h.Order.Queue)
	orderRoutes.GET("/:id", h.Order.Get)
	orderRoutes.POST("/:id/pick", h.Order.Pick)
	orderRoutes.POST("/:id/pass", h.Order.Pass)
	orderRoutes.POST("/:id/start", h.Order.Start)
	orderRoutes.POST("/:id/hold", h.Order.Hold)
	orderRoutes.POST("/:id/resume", h.Order.Resume)
	orderRoutes.POST("/:id/fulfilment", h.Order.SubmitFulfilment)
	orderRoutes.POST("/:id/complete", h.Order.Complete)
	orderRoutes.POST("/:id/access", h.Order.GrantAccess)
	orderRoutes.POST("/:id/access/revoke", h.Order.RevokeAccess)
	orderRoutes.POST("/:id/disputes", h.Dispute.Raise)
	orderRoutes.GET("/:id/disputes", h.Dispute.ListByOrder)
	orderRoutes.POST("/:id/messages", h.Chat.Post)
	orderRoutes.GET("/:id/messages", h.Chat.List)
	orderRoutes.GET("/:id/attachments", h.Attachment.ListByOrder)
	orderRoutes.GET("/:id/history", h.Audit.OrderHistory)

	disputeRoutes := protected.Group("disputes", "/disputes")
	disputeRoutes.GET("", h.Dispute.ListOpen)
	disputeRoutes.GET("/:id", h.Dispute.Get)
	disputeRoutes.POST("/:id/resolve", h.Dispute.Resolve)

	attachmentRoutes := protected.Group("attachments", "/attachments")
	attachmentRoutes.POST("", h.Attachment.RequestUpload)
	attachmentRoutes.GET("/:id", h.Attachment.Get)
	attachmentRoutes.GET("/:id/download", h.Attachment.Download)

	auditRoutes := protected.Group("audit", "/audit")
	auditRoutes.GET("", h.Audit.List)

	systemRoutes := protected.Group("system", "/system")
	systemRoutes.GET("/info", h.System.GetSystemInfo)

	return protected
}
