package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"newsbot/internal/common/pagination"
	pgRepo "newsbot/internal/infra/adapter/persistence/postgres"
	"newsbot/internal/infra/db"
	"newsbot/internal/infra/llm"
	"newsbot/internal/observability/logging"
	"newsbot/internal/observability/tracing"
	"newsbot/internal/repository"
	"newsbot/internal/resilience/costcap"
	"newsbot/pkg/config"
	"newsbot/pkg/ratelimit"
	"newsbot/pkg/security/csp"

	briefingUC "newsbot/internal/usecase/briefing"
	feedbackUC "newsbot/internal/usecase/feedback"
	sigUC "newsbot/internal/usecase/signal"
	srcUC "newsbot/internal/usecase/source"

	hhttp "newsbot/internal/handler/http"
	hauth "newsbot/internal/handler/http/auth"
	hbriefing "newsbot/internal/handler/http/briefing"
	hfeedback "newsbot/internal/handler/http/feedback"
	"newsbot/internal/handler/http/middleware"
	"newsbot/internal/handler/http/requestid"
	hsignal "newsbot/internal/handler/http/signal"
	hsrc "newsbot/internal/handler/http/source"
	authservice "newsbot/internal/service/auth"

	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "newsbot/docs" // swagger docs
)

// API serves read access to the ingestion-to-briefing pipeline: scored
// signals, generated briefings, user feedback, and the source registry.
// Authentication, rate limiting, and observability follow the same
// middleware chain across every endpoint; JWT bearer tokens carry an
// admin or viewer role that internal/handler/http/auth enforces per path.

// @title           Newsbot API
// @version         1.0
// @description     ニュース収集・スコアリング・ブリーフィング生成パイプラインの REST API
// @description     スコア済みシグナル、デイリーブリーフィング、フィードバック、ソース管理を提供します。

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT トークンによる認証。ヘッダーに "Bearer {token}" 形式で指定してください。

func main() {
	logger := initLogger()
	validateAdminCredentials(logger)
	validateViewerCredentials(logger)
	validateJWTSecret(logger)
	database := initDatabase(logger)
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	version := getVersion()
	serverComponents := setupServer(logger, database, version)

	runServer(logger, serverComponents, version)
}

// initLogger initializes and returns a structured logger based on environment configuration.
func initLogger() *slog.Logger {
	logger := logging.NewLogger()
	slog.SetDefault(logger)
	return logger
}

// validateAdminCredentials validates the admin credentials at startup.
// This prevents the server from starting with empty or weak admin credentials.
func validateAdminCredentials(logger *slog.Logger) {
	if err := hauth.ValidateAdminCredentials(); err != nil {
		logger.Error("admin credentials validation failed", slog.Any("error", err))
		os.Exit(1)
	}
}

// validateViewerCredentials validates the viewer credentials at startup.
// Unlike admin validation, this implements graceful degradation:
// if viewer credentials are misconfigured, the viewer role is disabled
// but the application continues to run in admin-only mode.
func validateViewerCredentials(logger *slog.Logger) {
	_ = hauth.ValidateViewerCredentials(logger)
}

// validateJWTSecret validates the JWT_SECRET environment variable for security requirements.
func validateJWTSecret(logger *slog.Logger) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		logger.Error("JWT_SECRET must be set")
		os.Exit(1)
	}
	// セキュリティ: 最小32文字（256ビット）を強制
	if len(secret) < 32 {
		logger.Error("JWT_SECRET must be at least 32 characters (256 bits)")
		os.Exit(1)
	}
	// セキュリティ: よくある弱い秘密鍵を拒否
	weakSecrets := []string{"secret", "password", "test", "admin", "default"}
	for _, weak := range weakSecrets {
		if secret == weak || secret == weak+"123" {
			logger.Error("JWT_SECRET must not be a common weak value", slog.String("weak_value", weak))
			os.Exit(1)
		}
	}
}

// initDatabase opens the database connection and runs migrations.
func initDatabase(logger *slog.Logger) *sql.DB {
	database := db.Open()
	if err := db.MigrateUp(database); err != nil {
		logger.Error("failed to migrate database", slog.Any("error", err))
		os.Exit(1)
	}
	return database
}

// getVersion returns the application version from environment or default.
func getVersion() string {
	version := os.Getenv("VERSION")
	if version == "" {
		version = "dev"
	}
	return version
}

// buildBriefingService wires a full briefing.Service capable of serving
// on-demand POST /briefings/generate requests. Composition prefers Claude
// when ANTHROPIC_API_KEY is set, gated by a daily per-scope cost cap, and
// falls back to the deterministic template composer otherwise or when
// that budget is exhausted.
func buildBriefingService(database *sql.DB, logger *slog.Logger) *briefingUC.Service {
	fallback := briefingUC.NewTemplateComposer(briefingUC.DefaultNumItems)

	var composer briefingUC.Composer = fallback
	var costGate func(scope string) briefingUC.CostGate
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		composer = briefingUC.NewCompositeComposer(llm.NewBriefingComposer(apiKey, logger), fallback, logger)

		dailyLimit := 10
		if v := os.Getenv("BRIEFING_LLM_DAILY_LIMIT"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				dailyLimit = n
			}
		}
		limiter := costcap.NewDailyLimiter(database, "briefing_llm", dailyLimit)
		costGate = func(scope string) briefingUC.CostGate {
			return costcap.NewKeyed(limiter, scope)
		}
	}

	return briefingUC.NewService(
		pgRepo.NewRawItemRepo(database),
		pgRepo.NewExtractedContentRepo(database),
		pgRepo.NewSourceRepo(database),
		pgRepo.NewItemScoreRepo(database),
		pgRepo.NewUserRepo(database),
		pgRepo.NewBriefingRepo(database),
		composer,
		fallback,
		costGate,
		briefingUC.DefaultNumItems,
		logger,
	)
}

// ServerComponents holds components needed for server operation and cleanup.
type ServerComponents struct {
	Handler     http.Handler
	IPStore     *ratelimit.InMemoryRateLimitStore
	UserStore   *ratelimit.InMemoryRateLimitStore
	IPWindow    time.Duration
	UserWindow  time.Duration
	AuthLimiter *middleware.RateLimiter // Legacy rate limiter for cleanup
}

// setupServer configures and returns the HTTP handler with all routes and middleware.
func setupServer(logger *slog.Logger, database *sql.DB, version string) *ServerComponents {
	srcSvc := srcUC.Service{Repo: pgRepo.NewSourceRepo(database)}
	sigSvc := sigUC.Service{Repo: pgRepo.NewItemScoreRepo(database)}
	fbSvc := feedbackUC.Service{Repo: pgRepo.NewFeedbackRepo(database)}
	userRepo := pgRepo.NewUserRepo(database)
	briefingSvc := buildBriefingService(database, logger)

	// Load rate limiting configuration
	rateLimitConfig, err := config.LoadRateLimitConfig()
	if err != nil {
		logger.Error("failed to load rate limit configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// Load trusted proxy configuration for IP extraction
	proxyConfig, err := middleware.LoadTrustedProxyConfig()
	if err != nil {
		logger.Error("failed to load trusted proxy configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// Create appropriate IPExtractor based on configuration
	var ipExtractor middleware.IPExtractor
	if proxyConfig.Enabled {
		ipExtractor = middleware.NewTrustedProxyExtractor(*proxyConfig)
		logger.Info("rate limiting: trusted proxy mode enabled",
			slog.Int("trusted_proxies_count", len(proxyConfig.AllowedCIDRs)))
	} else {
		ipExtractor = &middleware.RemoteAddrExtractor{}
		logger.Info("rate limiting: using RemoteAddr (secure mode, proxy headers ignored)")
	}

	// Initialize rate limiting components (if enabled)
	var ipRateLimiter *middleware.IPRateLimiter
	var userRateLimiter *middleware.UserRateLimiter
	var ipStore *ratelimit.InMemoryRateLimitStore
	var userStore *ratelimit.InMemoryRateLimitStore

	healthHandler := &hhttp.HealthHandler{DB: database, Version: version}

	if rateLimitConfig.Enabled {
		// Create separate stores for IP and user rate limiting
		// This allows independent memory management and cleanup
		ipStore = ratelimit.NewInMemoryRateLimitStore(ratelimit.InMemoryStoreConfig{
			MaxKeys: rateLimitConfig.MaxActiveKeys,
		})
		userStore = ratelimit.NewInMemoryRateLimitStore(ratelimit.InMemoryStoreConfig{
			MaxKeys: rateLimitConfig.MaxActiveKeys,
		})

		algorithm := ratelimit.NewSlidingWindowAlgorithm(&ratelimit.SystemClock{})
		metrics := ratelimit.NewPrometheusMetrics()

		// Create circuit breakers for IP and User rate limiters
		ipCircuitBreaker := ratelimit.NewCircuitBreaker(ratelimit.CircuitBreakerConfig{
			FailureThreshold: rateLimitConfig.CircuitBreakerFailureThreshold,
			RecoveryTimeout:  rateLimitConfig.CircuitBreakerResetTimeout,
		})

		userCircuitBreaker := ratelimit.NewCircuitBreaker(ratelimit.CircuitBreakerConfig{
			FailureThreshold: rateLimitConfig.CircuitBreakerFailureThreshold,
			RecoveryTimeout:  rateLimitConfig.CircuitBreakerResetTimeout,
		})

		// Create degradation managers for graceful degradation
		ipDegradationMgr := middleware.NewDegradationManager(middleware.DegradationConfig{
			AutoAdjust:        true,
			CooldownPeriod:    1 * time.Minute,
			RelaxedMultiplier: 2,
			MinimalMultiplier: 10,
			Clock:             &ratelimit.SystemClock{},
			Metrics:           metrics,
			LimiterType:       "ip",
		})

		userDegradationMgr := middleware.NewDegradationManager(middleware.DegradationConfig{
			AutoAdjust:        true,
			CooldownPeriod:    1 * time.Minute,
			RelaxedMultiplier: 2,
			MinimalMultiplier: 10,
			Clock:             &ratelimit.SystemClock{},
			Metrics:           metrics,
			LimiterType:       "user",
		})

		// Create IP rate limiter. The degradation manager follows the
		// breaker state the limiter observes per request and relaxes the
		// limit while the limiter itself is unhealthy.
		ipRateLimiter = middleware.NewIPRateLimiter(
			middleware.IPRateLimiterConfig{
				Limit:       rateLimitConfig.DefaultIPLimit,
				Window:      rateLimitConfig.DefaultIPWindow,
				Enabled:     true,
				Degradation: ipDegradationMgr,
			},
			ipExtractor,
			ipStore,
			algorithm,
			metrics,
			ipCircuitBreaker,
		)

		// Create user rate limiter with tier-based limits
		tierLimits := make(map[ratelimit.UserTier]middleware.TierLimit)
		for _, tierCfg := range rateLimitConfig.TierLimits {
			tierLimits[tierCfg.Tier] = middleware.TierLimit{
				Limit:  tierCfg.Limit,
				Window: tierCfg.Window,
			}
		}

		// The extractor reads the identity and role Authz stored in the
		// request context; the role picks the limit tier.
		userExtractor := &middleware.RoleTierExtractor{
			User: hauth.UserFromContext,
			Role: hauth.RoleFromContext,
		}

		userRateLimiter = middleware.NewUserRateLimiter(middleware.UserRateLimiterConfig{
			Store:          userStore,
			Algorithm:      algorithm,
			Metrics:        metrics,
			CircuitBreaker: userCircuitBreaker,
			UserExtractor:  userExtractor,
			TierLimits:     tierLimits,
			DefaultLimit:   rateLimitConfig.DefaultUserLimit,
			DefaultWindow:  rateLimitConfig.DefaultUserWindow,
			Degradation:    userDegradationMgr,
			Clock:          &ratelimit.SystemClock{},
		})

		// Surface limiter internals on /health.
		healthHandler.RateLimiterEnabled = true
		healthHandler.IPRateLimiterStore = ipStore
		healthHandler.UserRateLimiterStore = userStore
		healthHandler.IPCircuitBreaker = ipCircuitBreaker
		healthHandler.UserCircuitBreaker = userCircuitBreaker
		healthHandler.IPDegradationManager = degradationAdapter{ipDegradationMgr}
		healthHandler.UserDegradationManager = degradationAdapter{userDegradationMgr}

		logger.Info("rate limiting initialized",
			slog.Bool("enabled", true),
			slog.Int("ip_limit", rateLimitConfig.DefaultIPLimit),
			slog.Duration("ip_window", rateLimitConfig.DefaultIPWindow),
			slog.Int("user_limit", rateLimitConfig.DefaultUserLimit),
			slog.Duration("user_window", rateLimitConfig.DefaultUserWindow),
			slog.Int("max_keys", rateLimitConfig.MaxActiveKeys),
		)
	} else {
		logger.Warn("rate limiting is DISABLED - not recommended for production")
	}

	// Setup routes with rate limiting middleware
	rootMux, authLimiter := setupRoutes(database, version, srcSvc, sigSvc, fbSvc, briefingSvc, userRepo,
		ipExtractor, ipRateLimiter, userRateLimiter, healthHandler, logger)
	handler := applyMiddleware(logger, rootMux, ipRateLimiter)

	// Return server components including stores for cleanup
	return &ServerComponents{
		Handler:     handler,
		IPStore:     ipStore,
		UserStore:   userStore,
		IPWindow:    rateLimitConfig.DefaultIPWindow,
		UserWindow:  rateLimitConfig.DefaultUserWindow,
		AuthLimiter: authLimiter,
	}
}

// setupRoutes registers all HTTP routes (public and protected).
func setupRoutes(
	database *sql.DB,
	version string,
	srcSvc srcUC.Service,
	sigSvc sigUC.Service,
	fbSvc feedbackUC.Service,
	briefingSvc *briefingUC.Service,
	userRepo repository.UserRepository,
	ipExtractor middleware.IPExtractor,
	ipRateLimiter *middleware.IPRateLimiter,
	userRateLimiter *middleware.UserRateLimiter,
	healthHandler *hhttp.HealthHandler,
	logger *slog.Logger,
) (*http.ServeMux, *middleware.RateLimiter) {
	// Old rate limiters for specific endpoints (will be deprecated in favor of global middleware)
	// レート制限: 認証エンドポイントは1分間に5リクエストまで
	authRateLimiter := middleware.NewRateLimiter(5, 1*time.Minute, ipExtractor)

	// レート制限: 検索エンドポイントは1分間に100リクエストまで（バースト10）
	// Note: Current implementation uses sliding window without explicit burst size,
	// but limit of 100 req/min allows bursts naturally within the time window
	searchRateLimiter := middleware.NewRateLimiter(100, 1*time.Minute, ipExtractor)

	// Initialize AuthService with MultiUserAuthProvider
	weakPasswords := []string{"password", "123456", "admin", "test", "secret"}
	authProvider := hauth.NewMultiUserAuthProvider(12, weakPasswords)
	publicEndpoints := []string{"/auth/token", "/health", "/ready", "/live", "/metrics", "/swagger/"}
	authService := authservice.NewAuthService(authProvider, publicEndpoints)

	publicMux := http.NewServeMux()
	publicMux.Handle("/auth/token", authRateLimiter.Middleware(hauth.TokenHandler(authService)))

	// ヘルスチェックエンドポイント（認証不要）
	publicMux.Handle("/health", healthHandler)
	publicMux.Handle("/ready", &hhttp.ReadyHandler{DB: database})
	publicMux.Handle("/live", &hhttp.LiveHandler{})
	publicMux.Handle("/metrics", hhttp.MetricsHandler())

	// Swagger UI（認証不要）
	publicMux.Handle("/swagger/", httpSwagger.WrapHandler)

	// Load pagination configuration
	paginationCfg := pagination.LoadFromEnv()
	_ = searchRateLimiter // per-route search rate limiting folded into the global user rate limiter

	privateMux := http.NewServeMux()
	hsrc.Register(privateMux, srcSvc)
	hsignal.Register(privateMux, sigSvc, paginationCfg)
	hbriefing.Register(privateMux, briefingSvc, userRepo)
	hfeedback.Register(privateMux, fbSvc, userRepo)

	// Apply authentication middleware
	protected := hauth.Authz(privateMux)

	// Apply user rate limiter AFTER authentication (so we have user context)
	if userRateLimiter != nil {
		protected = userRateLimiter.Middleware()(protected)
	}

	rootMux := http.NewServeMux()
	rootMux.Handle("/auth/token", publicMux)
	rootMux.Handle("/health", publicMux)
	rootMux.Handle("/ready", publicMux)
	rootMux.Handle("/live", publicMux)
	rootMux.Handle("/metrics", publicMux)
	rootMux.Handle("/swagger/", publicMux)
	rootMux.Handle("/", protected)

	// Return auth rate limiter for cleanup management
	return rootMux, authRateLimiter
}

// applyMiddleware wraps the handler with middleware chain.
// Middleware order: CORS → Request ID → IP Rate Limit → Recovery → Logging → Body Limit → CSP → Metrics → Tracing
func applyMiddleware(logger *slog.Logger, handler http.Handler, ipRateLimiter *middleware.IPRateLimiter) http.Handler {
	// Load CORS configuration from environment variables
	corsConfig, err := middleware.LoadCORSConfig()
	if err != nil {
		logger.Error("failed to load CORS configuration", slog.Any("error", err))
		os.Exit(1)
	}

	corsConfig.Logger = logger

	// Log CORS startup configuration
	logger.Info("CORS enabled",
		slog.Int("allowed_origins_count", len(corsConfig.AllowedOrigins)),
		slog.Any("allowed_origins", corsConfig.AllowedOrigins),
		slog.Any("allowed_methods", corsConfig.AllowedMethods),
		slog.Any("allowed_headers", corsConfig.AllowedHeaders),
		slog.Int("max_age", corsConfig.MaxAge))

	// Load CSP configuration
	cspConfig, err := config.LoadCSPConfig()
	if err != nil {
		logger.Error("failed to load CSP configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// Create CSP middleware
	var cspMiddleware func(http.Handler) http.Handler
	if cspConfig.Enabled {
		cspMW := middleware.NewCSPMiddleware(middleware.CSPMiddlewareConfig{
			Enabled:       true,
			DefaultPolicy: csp.StrictPolicy(),
			PathPolicies: map[string]*csp.CSPBuilder{
				"/swagger/": csp.SwaggerUIPolicy(),
			},
			ReportOnly: cspConfig.ReportOnly,
		})
		cspMiddleware = cspMW.Middleware()
		logger.Info("CSP enabled",
			slog.Bool("report_only", cspConfig.ReportOnly))
	} else {
		// No-op middleware if CSP is disabled
		cspMiddleware = func(next http.Handler) http.Handler {
			return next
		}
		logger.Warn("CSP is disabled")
	}

	// Build middleware chain
	// Recommended order:
	// 1. CORS (handles preflight requests early)
	// 2. Request ID (generates unique ID for request tracking)
	// 3. IP Rate Limiting (check rate limit before expensive operations)
	// 4. Recovery (catch panics)
	// 5. Logging (log all requests)
	// 6. Body Size Limit (prevent DoS)
	// 7. CSP (set security headers)
	// 8. Metrics (record request metrics)
	// 9. Authentication (in routes layer)
	// 10. User Rate Limiting (in routes layer, after auth)

	middlewareChain := handler

	// Apply in reverse order (innermost to outermost)
	middlewareChain = tracing.Middleware(middlewareChain)
	middlewareChain = hhttp.MetricsMiddleware(middlewareChain)
	middlewareChain = cspMiddleware(middlewareChain)
	middlewareChain = hhttp.LimitRequestBody(1 << 20)(middlewareChain) // 1MB limit
	middlewareChain = hhttp.Logging(logger)(middlewareChain)
	middlewareChain = hhttp.Recover(logger)(middlewareChain)

	// Apply IP rate limiting if enabled
	if ipRateLimiter != nil {
		middlewareChain = ipRateLimiter.Middleware()(middlewareChain)
	}

	middlewareChain = requestid.Middleware(middlewareChain)
	middlewareChain = middleware.CORS(*corsConfig)(middlewareChain)

	return middlewareChain
}

// runServer starts the HTTP server and handles graceful shutdown.
func runServer(logger *slog.Logger, components *ServerComponents, version string) {
	// Create a context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load cleanup configuration
	cleanupCfg := hhttp.LoadCleanupConfigFromEnv()

	// Start background cleanup goroutines for rate limit stores
	if components.IPStore != nil {
		go hhttp.StartRateLimitCleanup(ctx, components.IPStore, cleanupCfg.Interval, components.IPWindow, "ip")
		logger.Info("IP rate limit cleanup started",
			slog.Duration("interval", cleanupCfg.Interval),
			slog.Duration("window", components.IPWindow))
	}

	if components.UserStore != nil {
		go hhttp.StartRateLimitCleanup(ctx, components.UserStore, cleanupCfg.Interval, components.UserWindow, "user")
		logger.Info("user rate limit cleanup started",
			slog.Duration("interval", cleanupCfg.Interval),
			slog.Duration("window", components.UserWindow))
	}

	// Start cleanup for legacy auth rate limiter
	if components.AuthLimiter != nil {
		go hhttp.StartRateLimitCleanupLegacy(ctx, components.AuthLimiter, cleanupCfg.Interval, "auth")
		logger.Info("auth rate limit cleanup started (legacy)",
			slog.Duration("interval", cleanupCfg.Interval))
	}

	go startSLOReporter(ctx, logger)

	srv := &http.Server{
		Addr:              ":8080",
		Handler:           components.Handler,
		ReadHeaderTimeout: 10 * time.Second, // Prevent Slowloris attacks
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		logger.Info("server starting",
			slog.String("addr", ":8080"),
			slog.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	// Cancel background goroutines (rate limit cleanup)
	cancel()
	logger.Debug("background cleanup goroutines cancelled")

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", slog.Any("error", err))
	}
	logger.Info("server stopped")
}

// startSLOReporter drains the rolling request window captured by
// MetricsMiddleware into the slo gauges once a minute, so
// slo_availability_ratio/slo_latency_p95_seconds/slo_latency_p99_seconds/
// slo_error_rate_ratio read from /metrics reflect recent traffic instead of
// sitting at zero forever.
func startSLOReporter(ctx context.Context, logger *slog.Logger) {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hhttp.RecordSLOSnapshot()
			logger.Debug("slo snapshot recorded")
		}
	}
}

// degradationAdapter exposes a limiter's degradation manager to the
// health handler's read-only reporting interface.
type degradationAdapter struct {
	m *middleware.DegradationManager
}

func (a degradationAdapter) GetLevel() hhttp.DegradationLevel {
	return a.m.GetLevel()
}
