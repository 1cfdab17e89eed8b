package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/storyninja-api/internal/handler"
	"github.com/noah-isme/storyninja-api/internal/repository"
	"github.com/noah-isme/storyninja-api/internal/service"
	"github.com/noah-isme/storyninja-api/pkg/cache"
	"github.com/noah-isme/storyninja-api/pkg/config"
	"github.com/noah-isme/storyninja-api/pkg/database"
	"github.com/noah-isme/storyninja-api/pkg/jobs"
	"github.com/noah-isme/storyninja-api/pkg/logger"
	"github.com/noah-isme/storyninja-api/pkg/mail"
	"github.com/noah-isme/storyninja-api/pkg/middleware/ratelimit"
	"github.com/noah-isme/storyninja-api/pkg/storage"
)

// @title Story Ninja API
// @version 1.0.0
// @description School story platform: publishing, reading progress, quizzes and class administration.
// @BasePath /api
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	if cfg.Database.MigrateOnBoot {
		if err := database.Migrate(cfg.Database, logr); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisClient.Close()

	uploader, closeUploader, err := newUploader(ctx, cfg.Uploads)
	if err != nil {
		return fmt.Errorf("init uploads: %w", err)
	}
	defer closeUploader()

	metrics := service.NewMetricsService()
	rewardQueue := jobs.NewQueue("rewards", jobs.QueueConfig{
		Workers:    cfg.Rewards.Workers,
		MaxRetries: cfg.Rewards.Retries,
		Logger:     logr,
		Observer:   metrics.ObserveRewardJob,
	})

	app := newApp(cfg, logr, db, redisClient, uploader, metrics, rewardQueue)

	rewardQueue.Start(ctx)
	defer rewardQueue.Stop()

	loginLimiter := ratelimit.New(cfg.RateLimit.LoginRPS, cfg.RateLimit.LoginBurst)
	go loginLimiter.Cleanup(ctx)

	router := newRouter(cfg, logr, app, loginLimiter)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", server.Addr), zap.String("env", cfg.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down", zap.Duration("timeout", cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newUploader(ctx context.Context, cfg config.UploadConfig) (storage.Uploader, func(), error) {
	switch cfg.Backend {
	case config.UploadBackendGCS:
		gcs, err := storage.NewGCSStorage(ctx, cfg.GCSBucket, cfg.GCSCredentials)
		if err != nil {
			return nil, nil, err
		}
		return gcs, func() { _ = gcs.Close() }, nil
	case config.UploadBackendLocal, "":
		local, err := storage.NewLocalStorage(cfg.Dir, cfg.PublicBaseURL)
		if err != nil {
			return nil, nil, err
		}
		return local, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown upload backend %q", cfg.Backend)
	}
}

func newMailer(cfg config.MailConfig, logr *zap.Logger) mail.Mailer {
	from := mail.Address{Name: cfg.FromName, Address: cfg.FromAddress}
	if cfg.Backend == config.MailBackendSendgrid && cfg.SendgridAPIKey != "" {
		return mail.NewSendgridMailer(cfg.SendgridAPIKey, from)
	}
	if cfg.Backend == config.MailBackendSendgrid {
		logr.Warn("sendgrid selected without an api key; mail will only be logged")
	}
	return mail.NewLogMailer(from, logr)
}

// app holds the handlers and the pieces of state the router needs.
type app struct {
	tokens   *service.AuthService
	sessions *service.SessionRegistry
	enricher *service.ClaimEnricher
	metrics  *service.MetricsService
	audit    *repository.AuditRepository

	auth        *handler.AuthHandler
	schools     *handler.SchoolHandler
	grades      *handler.GradeHandler
	classes     *handler.ClassHandler
	users       *handler.UserHandler
	stories     *handler.StoryHandler
	discussion  *handler.DiscussionHandler
	uploads     *handler.UploadHandler
	teacher     *handler.TeacherHandler
	reading     *handler.ReadingHandler
	quizzes     *handler.QuizHandler
	observation *handler.MetricsHandler
}

func newApp(cfg *config.Config, logr *zap.Logger, db *sqlx.DB, redisClient *redis.Client, uploader storage.Uploader, metrics *service.MetricsService, rewardQueue *jobs.Queue) *app {
	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)
	tokenRepo := repository.NewVerificationTokenRepository(redisClient)
	schoolRepo := repository.NewSchoolRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	classRepo := repository.NewClassRepository(db)
	storyRepo := repository.NewStoryRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	quizRepo := repository.NewQuizRepository(db)
	statsRepo := repository.NewStatsRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.StoryTTL, logr, cfg.Cache.Enabled)
	verification := service.NewVerificationService(tokenRepo, userRepo, newMailer(cfg.Mail, logr), service.VerificationConfig{
		LinkURL:  cfg.AppBaseURL + cfg.APIPrefix + "/auth/verify",
		TokenTTL: cfg.Session.VerificationTokenTTL,
	}, logr)

	sessions := service.NewSessionRegistry(sessionRepo)
	enricher := service.NewClaimEnricher(userRepo, subscriptionRepo, logr)
	authSvc := service.NewAuthService(service.AuthDeps{
		Verifier:     service.NewCredentialVerifier(userRepo),
		Sessions:     sessions,
		Enricher:     enricher,
		Users:        userRepo,
		Verification: verification,
		Audit:        auditRepo,
	}, validate, logr, service.AuthConfig{
		Secret: cfg.JWT.Secret,
		Expiry: cfg.JWT.Expiration,
		Issuer: cfg.JWT.Issuer,
	})

	rewards := service.NewRewardService(userRepo, rewardQueue, logr)
	classSvc := service.NewClassService(classRepo, gradeRepo, userRepo, validate, logr)
	userSvc := service.NewUserService(service.UserDeps{
		Users:        userRepo,
		Schools:      schoolRepo,
		Classes:      classRepo,
		Stories:      storyRepo,
		Verification: verification,
		Audit:        auditRepo,
	}, validate, logr)
	storySvc := service.NewStoryService(storyRepo, uploader, cacheSvc, cfg.Cache.StoryTTL, validate, logr)
	uploadSvc := service.NewUploadService(uploader, metrics, service.UploadConfig{
		MaxFileSizeBytes: cfg.Uploads.MaxFileSizeBytes,
		AllowedMIMEs:     cfg.Uploads.AllowedMIMEs,
	}, logr)
	assignmentSvc := service.NewAssignmentService(assignmentRepo, storyRepo, classRepo, cacheSvc, validate, logr)
	statsSvc := service.NewStatsService(statsRepo, cacheSvc, cfg.Cache.StatsTTL, logr)

	return &app{
		tokens:   authSvc,
		sessions: sessions,
		enricher: enricher,
		metrics:  metrics,
		audit:    auditRepo,

		auth:       handler.NewAuthHandler(authSvc),
		schools:    handler.NewSchoolHandler(service.NewSchoolService(schoolRepo, validate, logr)),
		grades:     handler.NewGradeHandler(service.NewGradeService(gradeRepo, schoolRepo, validate, logr)),
		classes:    handler.NewClassHandler(classSvc),
		users:      handler.NewUserHandler(userSvc),
		stories:    handler.NewStoryHandler(storySvc),
		discussion: handler.NewDiscussionHandler(service.NewDiscussionService(storyRepo, userRepo, validate, logr)),
		uploads:    handler.NewUploadHandler(uploadSvc),
		teacher:    handler.NewTeacherHandler(classSvc, assignmentSvc, statsSvc),
		reading: handler.NewReadingHandler(service.NewReadingService(
			assignmentRepo, progressRepo, storyRepo, rewards, cacheSvc, validate, logr,
		)),
		quizzes: handler.NewQuizHandler(service.NewQuizService(quizRepo, storyRepo, rewards, validate, logr)),
		observation: handler.NewMetricsHandler(metrics, map[string]handler.Pinger{
			"database": handler.PingFunc(db.PingContext),
			"redis":    cacheRepo,
		}),
	}
}
