// Package server sets up the HTTP server with all routes
package server

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/mhollis/chatdeck/internal/account"
	"github.com/mhollis/chatdeck/internal/auth"
	"github.com/mhollis/chatdeck/internal/billing"
	"github.com/mhollis/chatdeck/internal/chatbot"
	"github.com/mhollis/chatdeck/internal/config"
	"github.com/mhollis/chatdeck/internal/features"
	"github.com/mhollis/chatdeck/internal/logging"
	"github.com/mhollis/chatdeck/internal/metrics"
	"github.com/mhollis/chatdeck/internal/plan"
	"github.com/mhollis/chatdeck/internal/realtime"
	"github.com/mhollis/chatdeck/internal/tenant"
	"github.com/mhollis/chatdeck/internal/traces"
	"github.com/mhollis/chatdeck/internal/usage"
	"github.com/mhollis/chatdeck/internal/user"
	"github.com/mhollis/chatdeck/internal/validation"
)

// -----------------------------------------------------------------------------
// Server
// -----------------------------------------------------------------------------

// Server wraps the HTTP server and dependencies
type Server struct {
	cfg *config.Config

	users    user.Store
	tenants  tenant.Store
	plans    plan.Store
	chatbots chatbot.Store
	subs     billing.Store
	flags    features.Store
	usage    usage.Store
	counter  usage.Counter

	stripeClient billing.StripeClient

	resolver    *tenant.Resolver
	authMgr     *auth.Manager
	meter       *usage.Meter
	reconciler  *usage.Reconciler
	billingSvc  *billing.Service
	accountSvc  *account.Service
	realtimeHub *realtime.Hub

	db           *sql.DB       // nil if using in-memory
	redisClient  *redis.Client // nil if using in-memory counters
	router       *gin.Engine
	httpSrv      *http.Server
	logger       *slog.Logger
	tracerStop   func(context.Context) error
	cancelRunCtx context.CancelFunc // cancels background goroutines started in Run

	// Health state
	ready   atomic.Bool
	healthy atomic.Bool
}

// Option configures the server
type Option func(*Server)

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithStripeClient sets a custom Stripe client (for testing)
func WithStripeClient(sc billing.StripeClient) Option {
	return func(s *Server) {
		s.stripeClient = sc
	}
}

// New creates a new server instance
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: logging.New(cfg.LogLevel, "json"),
	}

	// Apply options first (may set stripe client/logger)
	for _, opt := range opts {
		opt(s)
	}

	ctx := context.Background()

	// Storage (Postgres if DATABASE_URL set, otherwise in-memory)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}

		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.Ping(); err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		s.db = db
		s.users = user.NewPostgresStore(db)
		s.tenants = tenant.NewPostgresStore(db)
		s.plans = plan.NewPostgresStore(db)
		s.chatbots = chatbot.NewPostgresStore(db)
		s.subs = billing.NewPostgresStore(db)
		s.flags = features.NewPostgresStore(db)
		s.usage = usage.NewPostgresStore(db)
		s.logger.Info("using PostgreSQL storage", "url", maskDSN(cfg.DatabaseURL))

		if err := plan.Seed(ctx, s.plans); err != nil {
			s.logger.Warn("failed to seed plan catalogue", "error", err)
		}
	} else {
		s.users = user.NewMemoryStore()
		s.tenants = tenant.NewMemoryStore()
		s.plans = plan.NewMemoryStore()
		s.chatbots = chatbot.NewMemoryStore()
		s.subs = billing.NewMemoryStore()
		s.flags = features.NewMemoryStore()
		s.usage = usage.NewMemoryStore()
		s.logger.Info("using in-memory storage (data will not persist)")

		if err := plan.Seed(ctx, s.plans); err != nil {
			return nil, fmt.Errorf("failed to seed plan catalogue: %w", err)
		}
	}

	// Usage counter (Redis if REDIS_URL set, otherwise in-memory)
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis url: %w", err)
		}
		client := redis.NewClient(redisOpts)
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		s.redisClient = client
		s.counter = usage.NewRedisCounter(client)
		s.logger.Info("using Redis usage counters")
	} else {
		s.counter = usage.NewMemoryCounter()
		s.logger.Info("using in-memory usage counters")
	}

	s.meter = usage.NewMeter(s.usage, s.counter)
	s.reconciler = usage.NewReconciler(s.usage, s.counter, s.logger)

	// Tenant resolution and sessions
	s.resolver = tenant.NewResolver(s.tenants, cfg.RootDomain)
	s.authMgr = auth.NewManager(cfg.SessionSecret)

	// Realtime hub for WebSocket streaming
	s.realtimeHub = realtime.NewHub(s.logger)

	// Stripe
	if s.stripeClient == nil && cfg.StripeSecretKey != "" {
		s.stripeClient = billing.NewClient(cfg.StripeSecretKey)
		s.logger.Info("stripe billing enabled")
	}
	s.billingSvc = billing.NewService(s.subs, s.tenants, s.users, s.flags,
		s.stripeClient, s.realtimeHub, s.logger)

	s.accountSvc = account.NewService(s.users, s.tenants, s.chatbots,
		s.billingSvc, s.flags, s.authMgr, s.realtimeHub)

	// Tracing (no-op when endpoint unset)
	stop, err := traces.Init(ctx, cfg.OTLPEndpoint, s.logger)
	if err != nil {
		s.logger.Warn("failed to initialize tracing", "error", err)
	} else {
		s.tracerStop = stop
	}

	// Configure gin
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s.router = gin.New()
	s.setupMiddleware()
	s.setupRoutes()

	s.healthy.Store(true)

	return s, nil
}

// maskDSN hides password in connection string for logging
func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	if u.User != nil {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}

// -----------------------------------------------------------------------------
// Middleware
// -----------------------------------------------------------------------------

func (s *Server) setupMiddleware() {
	// Recovery with logging
	s.router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logging.L(c.Request.Context()).Error("panic recovered",
			"error", recovered,
			"path", c.Request.URL.Path,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "An unexpected error occurred",
		})
	}))

	// Request size limit (1MB); the Stripe webhook enforces its own limit on
	// the raw body it reads.
	s.router.Use(validation.RequestSizeMiddleware(validation.MaxRequestSize))

	// Prometheus metrics
	s.router.Use(metrics.Middleware())

	// Request ID
	s.router.Use(s.requestIDMiddleware())

	// Logging
	s.router.Use(s.loggingMiddleware())
}

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check for existing request ID (from load balancer, etc.)
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = generateRequestID()
		}

		ctx := logging.WithRequestID(c.Request.Context(), requestID)
		ctx = logging.WithLogger(ctx, s.logger)
		c.Request = c.Request.WithContext(ctx)

		c.Header("X-Request-ID", requestID)

		c.Next()
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		logger := logging.L(c.Request.Context())

		switch {
		case status >= 500:
			logger.Error("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
				"client_ip", c.ClientIP(),
			)
		case status >= 400:
			logger.Warn("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		default:
			logger.Info("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		}
	}
}

// -----------------------------------------------------------------------------
// Routes
// -----------------------------------------------------------------------------

func (s *Server) setupRoutes() {
	// Health & metrics endpoints
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/health/live", s.livenessHandler)
	s.router.GET("/health/ready", s.readinessHandler)
	s.router.GET("/metrics", metrics.Handler())

	// WebSocket for real-time streaming
	s.router.GET("/ws", func(c *gin.Context) {
		s.realtimeHub.HandleWebSocket(c.Writer, c.Request)
	})

	// API info
	s.router.GET("/api", s.infoHandler)

	api := s.router.Group("/api")

	// PUBLIC ROUTES (no auth required)
	accountHandler := account.NewHandler(s.accountSvc)
	accountHandler.RegisterRoutes(api)

	planHandler := plan.NewHandler(s.plans)
	planHandler.RegisterRoutes(api)

	chatbotHandler := chatbot.NewHandler(s.chatbots, s.tenants, s.resolver,
		s.meter, chatbot.NewEchoResponder(), s.realtimeHub)
	chatbotHandler.RegisterPublicRoutes(api)

	// Stripe webhook is verified by signature, not session token
	webhookHandler := billing.NewWebhookHandler(s.billingSvc, s.cfg.StripeWebhookSecret)
	api.POST("/stripe/webhook", webhookHandler.Handle)

	// PROTECTED ROUTES (require session token)
	protected := api.Group("")
	protected.Use(auth.Middleware(s.authMgr), auth.RequireAuth())
	{
		tenantHandler := tenant.NewHandler(s.tenants, s.resolver)
		tenantHandler.RegisterRoutes(protected)

		chatbotHandler.RegisterProtectedRoutes(protected)

		usageHandler := usage.NewHandler(s.meter, s.resolver)
		usageHandler.RegisterRoutes(protected)

		billingHandler := billing.NewHandler(s.billingSvc, s.resolver)
		billingHandler.RegisterRoutes(protected)
	}
}

// -----------------------------------------------------------------------------
// Handlers
// -----------------------------------------------------------------------------

// HealthResponse for health check endpoints
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp string            `json:"timestamp"`
}

func (s *Server) healthHandler(c *gin.Context) {
	checks := make(map[string]string)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if s.db != nil {
		if err := s.db.PingContext(ctx); err != nil {
			checks["database"] = "unhealthy"
		} else {
			checks["database"] = "healthy"
		}
	}
	if s.redisClient != nil {
		if err := s.redisClient.Ping(ctx).Err(); err != nil {
			checks["redis"] = "unhealthy"
		} else {
			checks["redis"] = "healthy"
		}
	}

	status := "healthy"
	httpStatus := http.StatusOK
	for _, v := range checks {
		if v != "healthy" {
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
			break
		}
	}

	c.JSON(httpStatus, HealthResponse{
		Status:    status,
		Version:   "0.1.0",
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) livenessHandler(c *gin.Context) {
	if !s.healthy.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (s *Server) readinessHandler(c *gin.Context) {
	if !s.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (s *Server) infoHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        "Chatdeck",
		"description": "Multi-tenant AI chatbot platform",
		"version":     "0.1.0",
		"rootDomain":  s.cfg.RootDomain,
	})
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Run starts the HTTP server with graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	// Cancellable context for background goroutines so Shutdown() can stop them.
	runCtx, cancel := context.WithCancel(ctx)
	s.cancelRunCtx = cancel

	s.httpSrv = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errChan := make(chan error, 1)

	go func() {
		s.logger.Info("starting server",
			"port", s.cfg.Port,
			"root_domain", s.cfg.RootDomain,
		)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Start realtime hub
	go s.realtimeHub.Run(runCtx)

	// Start counter reconciliation
	go s.reconciler.Start(runCtx)

	// Collect DB pool stats
	if s.db != nil {
		go metrics.StartDBStatsCollector(runCtx, s.db, 15*time.Second)
	}

	// Mark as ready after brief delay for startup
	go func() {
		time.Sleep(100 * time.Millisecond)
		s.ready.Store(true)
		s.logger.Info("server ready")
	}()

	// Wait for shutdown signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		s.logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	s.ready.Store(false)
	s.logger.Info("starting graceful shutdown")

	// Cancel the context for all background goroutines (hub, reconciler)
	if s.cancelRunCtx != nil {
		s.cancelRunCtx()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if s.httpSrv != nil {
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}

	s.reconciler.Stop()

	if s.tracerStop != nil {
		if err := s.tracerStop(ctx); err != nil {
			s.logger.Error("tracer shutdown error", "error", err)
		}
	}

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.logger.Error("redis close error", "error", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("database close error", "error", err)
		} else {
			s.logger.Info("database connection closed")
		}
	}

	s.logger.Info("server stopped")
	return nil
}

// Router returns the gin router for testing
func (s *Server) Router() *gin.Engine {
	return s.router
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func generateRequestID() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp-based ID
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(bytes)
}
