package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/robfig/cron/v3"

	pgRepo "newsbot/internal/infra/adapter/persistence/postgres"
	"newsbot/internal/infra/db"
	"newsbot/internal/infra/email"
	"newsbot/internal/infra/embed"
	"newsbot/internal/infra/extract"
	"newsbot/internal/infra/ingest/feed"
	"newsbot/internal/infra/ingest/hn"
	"newsbot/internal/infra/ingest/reddit"
	"newsbot/internal/infra/llm"
	workerPkg "newsbot/internal/infra/worker"
	"newsbot/internal/observability/logging"
	"newsbot/internal/repository"
	"newsbot/internal/resilience/costcap"
	"newsbot/internal/resilience/retry"

	briefingUC "newsbot/internal/usecase/briefing"
	dedupUC "newsbot/internal/usecase/dedup"
	deliveryUC "newsbot/internal/usecase/delivery"
	embedUC "newsbot/internal/usecase/embed"
	extractUC "newsbot/internal/usecase/extract"
	ingestUC "newsbot/internal/usecase/ingest"
	scoreUC "newsbot/internal/usecase/score"
)

// pipeline bundles the six-queue scheduler's wired usecase services. Each
// field corresponds to one of the six logical queues; "embed" also
// drives the dedup semantic-clustering pass, right after embedding.
type pipeline struct {
	ingest   *ingestUC.Service
	extract  *extractUC.Service
	embed    *embedUC.Service
	dedup    *dedupUC.Service
	score    *scoreUC.Service
	briefing *briefingUC.Service
	delivery *deliveryUC.Service
}

func waitForMigrations(logger *slog.Logger, database *sql.DB) {
	const probe = "SELECT 1 FROM sources LIMIT 1"
	for i := 0; i < 10; i++ {
		if _, err := database.Exec(probe); err == nil {
			return
		}
		logger.Info("waiting for migrations, retrying in 3s", slog.Int("attempt", i+1))
		time.Sleep(3 * time.Second)
	}
	logger.Error("migrations did not complete in time")
	os.Exit(1)
}

func main() {
	logger := initLogger()
	database := initDatabase(logger)
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	workerMetrics := workerPkg.NewWorkerMetrics()
	workerMetrics.MustRegister()
	workerConfig, err := workerPkg.LoadConfigFromEnv(logger, workerMetrics)
	if err != nil {
		logger.Error("failed to load worker configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker configuration loaded",
		slog.String("timezone", workerConfig.Timezone),
		slog.String("ingest_schedule", workerConfig.IngestCronSchedule()),
		slog.String("extract_schedule", workerConfig.ExtractCronSchedule()),
		slog.String("embed_schedule", workerConfig.EmbedCronSchedule()),
		slog.String("score_schedule", workerConfig.ScoreCronSchedule()),
		slog.String("briefing_schedule", workerConfig.BriefingCronSchedule),
		slog.String("email_schedule", workerConfig.EmailCronSchedule),
		slog.Int("batch_size", workerConfig.BatchSize),
		slog.Int("health_port", workerConfig.HealthPort))

	startMetricsServer(ctx, logger)

	healthAddr := fmt.Sprintf(":%d", workerConfig.HealthPort)
	healthServer := workerPkg.NewHealthServer(healthAddr, logger)
	go func() {
		if err := healthServer.Start(ctx); err != nil && err != http.ErrServerClosed {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()
	logger.Info("health check server started", slog.String("addr", healthAddr))

	pl := setupPipeline(logger, database)

	startCronWorker(ctx, logger, pl, workerConfig, workerMetrics, healthServer)
}

// initLogger initializes and returns a structured logger based on environment configuration.
func initLogger() *slog.Logger {
	logger := logging.NewLogger()
	slog.SetDefault(logger)
	return logger
}

// initDatabase opens the database connection and waits for migrations to complete.
func initDatabase(logger *slog.Logger) *sql.DB {
	database := db.Open()
	waitForMigrations(logger, database)
	return database
}

// createHTTPClient creates an HTTP client with timeouts and connection pooling.
// TLS 1.2+ is enforced for security.
func createHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
}

// setupPipeline wires repositories and usecase services for all six queues.
func setupPipeline(logger *slog.Logger, database *sql.DB) *pipeline {
	sourceRepo := pgRepo.NewSourceRepo(database)
	itemRepo := pgRepo.NewRawItemRepo(database)
	contentRepo := pgRepo.NewExtractedContentRepo(database)
	embeddingRepo := pgRepo.NewItemEmbeddingRepo(database)
	clusterRepo := pgRepo.NewClusterRepo(database)
	scoreRepo := pgRepo.NewItemScoreRepo(database)
	userRepo := pgRepo.NewUserRepo(database)
	briefingRepo := pgRepo.NewBriefingRepo(database)

	dedupSvc := dedupUC.NewService(itemRepo, clusterRepo, embeddingRepo, logger)

	ingestSvc := setupIngest(logger, sourceRepo, itemRepo, dedupSvc)
	extractSvc := setupExtract(logger, itemRepo, contentRepo)
	embedSvc := setupEmbed(logger, database, itemRepo, contentRepo, embeddingRepo)
	scoreSvc := setupScore(logger, database, itemRepo, contentRepo, sourceRepo, clusterRepo, scoreRepo)
	briefingSvc := setupBriefing(logger, database, itemRepo, contentRepo, sourceRepo, scoreRepo, userRepo, briefingRepo)
	deliverySvc := setupDelivery(logger, userRepo, briefingRepo)

	return &pipeline{
		ingest:   ingestSvc,
		extract:  extractSvc,
		embed:    embedSvc,
		dedup:    dedupSvc,
		score:    scoreSvc,
		briefing: briefingSvc,
		delivery: deliverySvc,
	}
}

// setupIngest wires the first-stage ingest service with one Ingester per
// configured source type. Reddit is only registered when OAuth credentials
// are present, since it requires an authenticated app registration.
func setupIngest(logger *slog.Logger, sourceRepo repository.SourceRepository, itemRepo repository.RawItemRepository, dedup ingestUC.ExactDuplicateChecker) *ingestUC.Service {
	httpClient := createHTTPClient()

	ingesters := []ingestUC.Ingester{
		feed.New(httpClient, logger),
		hn.New(httpClient, logger),
	}

	redditID := os.Getenv("REDDIT_CLIENT_ID")
	redditSecret := os.Getenv("REDDIT_CLIENT_SECRET")
	if redditID != "" && redditSecret != "" {
		ingesters = append(ingesters, reddit.New(httpClient, redditID, redditSecret, logger))
		logger.Info("reddit ingester enabled")
	} else {
		logger.Info("reddit ingester disabled, missing REDDIT_CLIENT_ID/REDDIT_CLIENT_SECRET")
	}

	return ingestUC.NewService(sourceRepo, itemRepo, dedup, logger, ingesters...)
}

// setupExtract wires the second-stage extraction service. SSRF protection
// (denying private IP ranges) is on unless explicitly disabled; fetching
// arbitrary third-party URLs is exactly the SSRF-shaped workload.
func setupExtract(logger *slog.Logger, itemRepo repository.RawItemRepository, contentRepo repository.ExtractedContentRepository) *extractUC.Service {
	denyPrivateIPs := os.Getenv("EXTRACT_ALLOW_PRIVATE_IPS") != "true"
	extractor := extract.New(denyPrivateIPs, logger)
	return extractUC.NewService(itemRepo, contentRepo, extractor, extract.Skip, logger)
}

// setupEmbed wires the third-stage embedding service. It uses the real
// OpenAI embedder when OPENAI_API_KEY is set, gated by an hourly cost cap,
// and otherwise falls back to a deterministic dummy embedder so the
// pipeline still advances items through status in development/test
// environments with no embedding provider configured.
func setupEmbed(logger *slog.Logger, database *sql.DB, itemRepo repository.RawItemRepository, contentRepo repository.ExtractedContentRepository, embeddingRepo repository.ItemEmbeddingRepository) *embedUC.Service {
	var embedder embedUC.Embedder
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		hourlyLimit := envInt(logger, "MAX_EMBEDDINGS_PER_HOUR", 1000)
		limiter := costcap.NewHourlyLimiter(database, "embeddings", hourlyLimit)
		embedder = embed.NewOpenAIEmbedder(apiKey, costcap.NewUnkeyed(limiter), logger)
		logger.Info("openai embedder enabled", slog.Int("hourly_limit", hourlyLimit))
	} else {
		embedder = embed.NewDummyEmbedder(logger)
		logger.Info("openai embedder disabled, using dummy embedder", slog.String("reason", "OPENAI_API_KEY not set"))
	}
	return embedUC.NewService(itemRepo, contentRepo, embeddingRepo, embedder, logger)
}

// setupScore wires the fifth-stage scoring service. Relevance scoring uses
// Claude when ANTHROPIC_API_KEY is set and AI_SCORING_ENABLED isn't
// explicitly disabled, gated by a daily cost cap; otherwise it falls back
// to the deterministic heuristic scorer only.
func setupScore(logger *slog.Logger, database *sql.DB, itemRepo repository.RawItemRepository, contentRepo repository.ExtractedContentRepository, sourceRepo repository.SourceRepository, clusterRepo repository.ClusterRepository, scoreRepo repository.ItemScoreRepository) *scoreUC.Service {
	var judge scoreUC.Judge
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" && os.Getenv("AI_SCORING_ENABLED") != "false" {
		dailyLimit := envInt(logger, "MAX_LLM_CALLS_PER_DAY", 2000)
		limiter := costcap.NewDailyLimiter(database, "relevance_judge", dailyLimit)
		judge = llm.NewRelevanceJudge(apiKey, costcap.NewUnkeyed(limiter), logger)
		logger.Info("llm relevance scoring enabled", slog.Int("daily_limit", dailyLimit))
	} else {
		logger.Info("llm relevance scoring disabled, using heuristic scorer only")
	}

	relevance := scoreUC.NewCompositeScorer(judge, logger)
	return scoreUC.NewService(itemRepo, contentRepo, sourceRepo, clusterRepo, scoreRepo, relevance, logger)
}

// setupBriefing wires the sixth-stage briefing service, mirroring the API
// server's on-demand briefing composition so the scheduled and manual
// generation paths share identical cost-cap and fallback behavior.
func setupBriefing(logger *slog.Logger, database *sql.DB, itemRepo repository.RawItemRepository, contentRepo repository.ExtractedContentRepository, sourceRepo repository.SourceRepository, scoreRepo repository.ItemScoreRepository, userRepo repository.UserRepository, briefingRepo repository.BriefingRepository) *briefingUC.Service {
	fallback := briefingUC.NewTemplateComposer(briefingUC.DefaultNumItems)

	var composer briefingUC.Composer = fallback
	var costGate func(scope string) briefingUC.CostGate
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		composer = briefingUC.NewCompositeComposer(llm.NewBriefingComposer(apiKey, logger), fallback, logger)

		dailyLimit := envInt(logger, "BRIEFING_LLM_DAILY_LIMIT", 10)
		limiter := costcap.NewDailyLimiter(database, "briefing_llm", dailyLimit)
		costGate = func(scope string) briefingUC.CostGate {
			return costcap.NewKeyed(limiter, scope)
		}
		logger.Info("llm briefing composition enabled", slog.Int("daily_limit_per_scope", dailyLimit))
	} else {
		logger.Info("llm briefing composition disabled, using template composer only")
	}

	return briefingUC.NewService(
		itemRepo, contentRepo, sourceRepo, scoreRepo, userRepo, briefingRepo,
		composer, fallback, costGate, briefingUC.DefaultNumItems, logger,
	)
}

// setupDelivery wires the seventh-stage email delivery service. The
// sender is built and the email job scheduled whether or not SMTP_HOST
// is set; without it, each send fails when dialing the relay.
func setupDelivery(logger *slog.Logger, userRepo repository.UserRepository, briefingRepo repository.BriefingRepository) *deliveryUC.Service {
	mailer := email.NewSender(email.Config{
		Host:     os.Getenv("SMTP_HOST"),
		Port:     envOrDefault("SMTP_PORT", "587"),
		Username: os.Getenv("SMTP_USERNAME"),
		Password: os.Getenv("SMTP_PASSWORD"),
		From:     envOrDefault("EMAIL_FROM", "briefings@newsbot.local"),
	}, logger)
	return deliveryUC.NewService(userRepo, briefingRepo, mailer, logger)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(logger *slog.Logger, key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		logger.Warn("invalid integer env var, using default", slog.String("key", key), slog.String("value", v), slog.Int("default", fallback))
		return fallback
	}
	return n
}

// startCronWorker registers the six periodic queue triggers and blocks
// until ctx is cancelled, then drains the scheduler gracefully.
func startCronWorker(ctx context.Context, logger *slog.Logger, pl *pipeline, cfg *workerPkg.WorkerConfig, metrics *workerPkg.WorkerMetrics, healthServer *workerPkg.HealthServer) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Error("invalid timezone, using UTC", slog.String("timezone", cfg.Timezone), slog.Any("error", err))
		loc = time.UTC
	}
	c := cron.New(cron.WithLocation(loc))

	register := func(job, schedule string, run func(context.Context) (int, error)) {
		_, err := c.AddFunc(schedule, func() {
			runJob(ctx, logger, job, cfg, metrics, run)
		})
		if err != nil {
			logger.Error("failed to add cron job", slog.String("job", job), slog.Any("error", err))
			os.Exit(1)
		}
	}

	register("ingest", cfg.IngestCronSchedule(), func(jobCtx context.Context) (int, error) {
		results, err := pl.ingest.RunAll(jobCtx)
		if err != nil {
			return 0, err
		}
		total := 0
		for _, r := range results {
			total += r.Inserted
		}
		return total, nil
	})

	register("extract", cfg.ExtractCronSchedule(), func(jobCtx context.Context) (int, error) {
		res, err := pl.extract.Run(jobCtx, cfg.BatchSize)
		return res.Extracted, err
	})

	register("embed", cfg.EmbedCronSchedule(), func(jobCtx context.Context) (int, error) {
		embedRes, err := pl.embed.Run(jobCtx, cfg.BatchSize)
		if err != nil {
			return embedRes.Embedded, err
		}
		dedupRes, err := pl.dedup.Run(jobCtx, cfg.BatchSize)
		if err != nil {
			return embedRes.Embedded, err
		}
		return embedRes.Embedded + dedupRes.Processed, nil
	})

	register("score", cfg.ScoreCronSchedule(), func(jobCtx context.Context) (int, error) {
		res, err := pl.score.ScorePending(jobCtx, cfg.BatchSize)
		return res.Scored, err
	})

	register("summarise", cfg.BriefingCronSchedule, func(jobCtx context.Context) (int, error) {
		res, err := pl.briefing.GenerateAllPending(jobCtx)
		return res.BriefingsGenerated, err
	})

	register("email", cfg.EmailCronSchedule, func(jobCtx context.Context) (int, error) {
		res, err := pl.delivery.DeliverDue(jobCtx, time.Now().UTC().Format("15:04"))
		return res.Sent, err
	})

	c.Start()

	healthServer.SetReady(true)
	logger.Info("worker marked as ready")
	logger.Info("worker started",
		slog.String("ingest_schedule", cfg.IngestCronSchedule()),
		slog.String("extract_schedule", cfg.ExtractCronSchedule()),
		slog.String("embed_schedule", cfg.EmbedCronSchedule()),
		slog.String("score_schedule", cfg.ScoreCronSchedule()),
		slog.String("briefing_schedule", cfg.BriefingCronSchedule),
		slog.String("email_schedule", cfg.EmailCronSchedule),
		slog.String("timezone", cfg.Timezone))

	<-ctx.Done()
	logger.Info("shutdown signal received, stopping cron scheduler")
	stopCtx := c.Stop()
	<-stopCtx.Done()
	logger.Info("cron scheduler stopped")
}

// runJob executes one queue tick with a hard timeout, a soft-limit warning,
// bounded retries on failure, and per-job metrics recording. A job that
// still fails after cfg.MaxRetries attempts is logged and left for the
// next scheduled tick, per the at-least-once execution model.
func runJob(parent context.Context, logger *slog.Logger, job string, cfg *workerPkg.WorkerConfig, metrics *workerPkg.WorkerMetrics, run func(context.Context) (int, error)) {
	start := time.Now()
	logger.Info("queue tick started", slog.String("job", job))

	ctx, cancel := context.WithTimeout(parent, cfg.TaskTimeLimit)
	defer cancel()

	softTimer := time.AfterFunc(cfg.TaskSoftTimeLimit, func() {
		logger.Warn("queue tick exceeded soft time limit", slog.String("job", job), slog.Duration("soft_limit", cfg.TaskSoftTimeLimit))
	})
	defer softTimer.Stop()

	retryCfg := retry.Config{
		MaxAttempts:    cfg.MaxRetries + 1,
		InitialDelay:   cfg.RetryBackoff,
		MaxDelay:       cfg.RetryBackoff * 8,
		Multiplier:     2.0,
		JitterFraction: 0.1,
	}

	var processed int
	err := retry.WithBackoff(ctx, retryCfg, func() error {
		n, runErr := run(ctx)
		processed = n
		return runErr
	})

	duration := time.Since(start).Seconds()
	metrics.RecordJobDuration(job, duration)

	if err != nil {
		metrics.RecordJobRun(job, "failure")
		logger.Error("queue tick failed", slog.String("job", job), slog.Any("error", err), slog.Duration("duration", time.Since(start)))
		return
	}

	metrics.RecordJobRun(job, "success")
	metrics.RecordItemsProcessed(job, processed)
	metrics.RecordLastSuccess(job)
	logger.Info("queue tick completed",
		slog.String("job", job), slog.Int("processed", processed), slog.Duration("duration", time.Since(start)))
}
