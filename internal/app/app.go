package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"pds_backend/database"
	"pds_backend/internal/auth"
	"pds_backend/internal/config"
	"pds_backend/internal/email"
	"pds_backend/internal/handlers"
	"pds_backend/internal/logger"
	"pds_backend/internal/middleware"
	"pds_backend/internal/models"
	"pds_backend/internal/repositories"
	"pds_backend/internal/routes"
	"pds_backend/internal/services"
	"pds_backend/internal/storage"
	"pds_backend/internal/validator"
	"pds_backend/internal/workers"
	"pds_backend/pkg/apperrors"
	"pds_backend/pkg/metrics"
)

const (
	shutdownTimeout = 15 * time.Second
	workerLockKey   = "pds:workers:lock"
)

// Deps - внешние зависимости, которые тесты могут подменить. Пустые поля строятся из конфигурации.
type Deps struct {
	Storage      storage.Storage
	MailProvider email.Provider
	Registry     *prometheus.Registry
}

// App - собранное приложение: роутер, сервисы и фоновые задачи.
type App struct {
	Router   *gin.Engine
	Services *services.ServiceContainer
	Workers  *workers.Service

	cfg   *config.Config
	db    *gorm.DB
	redis *workers.RedisStore
}

func Run() {
	config.LoadConfig()
	cfg := config.AppConfig
	logger.Init(cfg.Server.Env)
	logger.Info("Logger initialized", "env", cfg.Server.Env)

	apperrors.SetDebug(cfg.Server.DebugErrors || !cfg.IsProduction())
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	logger.Info("Connecting to database...", "driver", cfg.Database.Driver)
	gormDB, err := database.Open(cfg.Database.Driver, cfg.Database.DSN, !cfg.IsProduction())
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	logger.Info("Database connected")

	if cfg.Database.AutoMigrate {
		if err := database.AutoMigrate(gormDB); err != nil {
			logger.Fatal("Failed to auto-migrate schema", "error", err)
		}
		logger.Info("Schema auto-migrated")
	}

	if err := Bootstrap(context.Background(), gormDB, cfg); err != nil {
		// без ролей и первого админа запускать сервер нельзя
		logger.Fatal("Failed to bootstrap reference data", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := New(ctx, cfg, gormDB, Deps{})
	if err != nil {
		logger.Fatal("Failed to build application", "error", err)
	}
	defer application.Close()

	if err := application.Serve(ctx); err != nil {
		logger.Fatal("Server stopped with error", "error", err)
	}
	logger.Info("Server stopped")
}

// New wires storage, mail, services, handlers, the router and the background jobs.
func New(ctx context.Context, cfg *config.Config, gormDB *gorm.DB, deps Deps) (*App, error) {
	if deps.Storage == nil {
		storageInstance, err := storage.NewStorage(storage.Config{
			Type:       cfg.Storage.Type,
			BasePath:   cfg.Storage.BasePath,
			BaseURL:    cfg.Storage.BaseURL,
			Bucket:     cfg.Storage.Bucket,
			Region:     cfg.Storage.Region,
			AccessKey:  cfg.Storage.AccessKey,
			SecretKey:  cfg.Storage.SecretKey,
			Endpoint:   cfg.Storage.Endpoint,
			UseSSL:     cfg.Storage.UseSSL,
			PublicRead: cfg.Storage.PublicRead,
		})
		if err != nil {
			return nil, fmt.Errorf("initialize storage: %w", err)
		}
		deps.Storage = storageInstance
		logger.Info("Storage initialized", "type", cfg.Storage.Type)
	}
	if deps.MailProvider == nil {
		deps.MailProvider = newMailProvider(cfg)
	}
	if deps.Registry == nil {
		deps.Registry = prometheus.NewRegistry()
		deps.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	templates, err := email.NewDefaultTemplateManager()
	if err != nil {
		return nil, fmt.Errorf("load email templates: %w", err)
	}
	mailer := email.NewMailer(deps.MailProvider, templates, cfg.Server.FrontendURL)
	tokens := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.AccessTTL)
	v := validator.New()

	// 1. Инициализируем сервисы
	serviceContainer := initializeServices(cfg, deps.Storage, mailer, tokens, v)

	// 2. Инициализируем хэндлеры
	appHandlers := initializeHandlers(cfg, serviceContainer, v, deps.Registry)

	// 3. Инициализируем Gin
	ginRouter := initializeGinRouter(cfg, gormDB, metrics.NewHTTPMetrics(deps.Registry))

	// 4. Делегируем регистрацию маршрутов пакету 'routes'
	guards := handlers.Guards{
		Auth:    middleware.AuthMiddleware(tokens, repositories.NewUserRepository()),
		Sliding: middleware.SlidingAccessToken(tokens, middleware.DefaultSlidingWindow),
	}
	routes.RegisterRoutes(ginRouter, appHandlers, guards)

	application := &App{
		Router:   ginRouter,
		Services: serviceContainer,
		cfg:      cfg,
		db:       gormDB,
	}

	// 5. Фоновые задачи
	cleanup, err := workers.NewTokenCleanupJob(gormDB, serviceContainer.AuthService)
	if err != nil {
		return nil, err
	}
	application.Workers = workers.NewService(workers.ServiceParams{
		Registry: workers.NewRegistry(cleanup),
		Lock:     application.workerLock(ctx),
		Metrics:  metrics.NewJobMetrics(deps.Registry),
		Interval: cfg.Workers.TokenCleanupInterval,
	})

	return application, nil
}

func initializeServices(cfg *config.Config, store storage.Storage, mailer services.AccountMailer, tokens *auth.TokenManager, v *validator.Validator) *services.ServiceContainer {
	// --- Инициализация репозиториев ---
	userRepo := repositories.NewUserRepository()
	roleRepo := repositories.NewRoleRepository()
	tokenRepo := repositories.NewAuthTokenRepository()
	auditRepo := repositories.NewAuditRepository()
	uploadRepo := repositories.NewFileUploadRepository()
	callRepo := repositories.NewCallRepository()
	employeeRepo := repositories.NewEmployeeRepository()
	payslipRepo := repositories.NewPayslipRepository()
	settingRepo := repositories.NewDisplaySettingRepository()
	videoRepo := repositories.NewVideoRepository()

	// --- Инициализация сервисов ---
	auditService := services.NewAuditService(auditRepo)
	authService := services.NewAuthService(userRepo, roleRepo, tokenRepo, auditService, tokens, mailer, services.AuthConfig{
		RefreshTTL:      cfg.Tokens.RefreshTTL,
		VerificationTTL: cfg.Tokens.VerificationTTL,
		ResetTTL:        cfg.Tokens.ResetTTL,
		ExposeTokens:    !cfg.IsProduction(),
	})

	return &services.ServiceContainer{
		AuthService:            authService,
		UserService:            services.NewUserService(userRepo, tokenRepo, auditService),
		UserImportService:      services.NewUserImportService(userRepo, roleRepo, auditService, store, v),
		PayslipService:         services.NewPayslipService(payslipRepo, userRepo, auditService, store),
		CallUploadService:      services.NewCallUploadService(uploadRepo, callRepo, employeeRepo, auditService, store),
		EmployeeService:        services.NewEmployeeService(employeeRepo),
		DisplaySettingsService: services.NewDisplaySettingsService(settingRepo, auditService),
		VideoService: services.NewVideoService(videoRepo, auditService, store, services.VideoConfig{
			MaxSize:      cfg.Upload.MaxVideoSize,
			AllowedTypes: cfg.Upload.AllowedVideoTypes,
		}),
		AuditService: auditService,
	}
}

func initializeHandlers(cfg *config.Config, svc *services.ServiceContainer, v *validator.Validator, gatherer prometheus.Gatherer) *handlers.AppHandlers {
	baseHandler := handlers.NewBaseHandler(v)
	maxCSV := cfg.Upload.MaxCSVSize

	return &handlers.AppHandlers{
		AuthHandler:    handlers.NewAuthHandler(baseHandler, svc.AuthService, cfg.IsProduction()),
		UserHandler:    handlers.NewUserHandler(baseHandler, svc.UserService, svc.UserImportService, svc.AuditService, maxCSV),
		PayslipHandler: handlers.NewPayslipHandler(baseHandler, svc.PayslipService, maxCSV),
		CallHandler:    handlers.NewCallHandler(baseHandler, svc.CallUploadService, svc.EmployeeService, maxCSV),
		DisplayHandler: handlers.NewDisplayHandler(baseHandler, svc.DisplaySettingsService, svc.CallUploadService),
		VideoHandler:   handlers.NewVideoHandler(baseHandler, svc.VideoService, cfg.Upload.MaxVideoSize),
		HealthHandler:  handlers.NewHealthHandler(baseHandler, gatherer),
	}
}

func initializeGinRouter(cfg *config.Config, db *gorm.DB, httpMetrics *metrics.HTTPMetrics) *gin.Engine {
	router := gin.New()
	router.MaxMultipartMemory = 32 << 20
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.MetricsMiddleware(httpMetrics))
	router.Use(middleware.CORSMiddleware(cfg.Server.FrontendURL))
	router.Use(middleware.DBMiddleware(db))
	return router
}

func newMailProvider(cfg *config.Config) email.Provider {
	if strings.TrimSpace(cfg.Email.SMTPHost) == "" {
		logger.Warn("SMTP host is not configured, outgoing mail will only be logged")
		return email.LogProvider{}
	}
	return email.NewSMTPProvider(&email.SMTPConfig{
		Host:      cfg.Email.SMTPHost,
		Port:      cfg.Email.SMTPPort,
		Username:  cfg.Email.SMTPUsername,
		Password:  cfg.Email.SMTPPassword,
		FromEmail: cfg.Email.FromEmail,
		FromName:  cfg.Email.FromName,
	})
}

// workerLock returns a Redis lock when Redis is configured and reachable, otherwise a no-op lock.
func (a *App) workerLock(ctx context.Context) workers.Lock {
	if a.cfg.Redis.Addr == "" {
		return workers.NoopLock{}
	}
	store, err := workers.NewRedisStore(ctx, a.cfg.Redis.Addr, a.cfg.Redis.Password, a.cfg.Redis.DB)
	if err != nil {
		logger.Warn("Redis unavailable, background jobs run without a distributed lock", "addr", a.cfg.Redis.Addr, "error", err)
		return workers.NoopLock{}
	}
	lock, err := workers.NewRedisLock(store, workerLockKey, a.cfg.Workers.LockTTL)
	if err != nil {
		_ = store.Close()
		logger.Warn("Failed to create worker lock", "error", err)
		return workers.NoopLock{}
	}
	a.redis = store
	return lock
}

// Serve runs the HTTP server and the background jobs until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	server := &http.Server{
		Addr:              a.cfg.Addr(),
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info(fmt.Sprintf("Server starting on %s", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return a.Workers.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (a *App) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			logger.Warn("Failed to close redis client", "error", err)
		}
	}
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// Bootstrap seeds roles, call-center reference data, the first admin and default display settings.
// Every step is idempotent.
func Bootstrap(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	db = db.WithContext(ctx)
	if err := repositories.NewRoleRepository().EnsureDefaults(db); err != nil {
		return fmt.Errorf("seed roles: %w", err)
	}
	if err := repositories.NewEmployeeRepository().EnsureReferenceData(db); err != nil {
		return fmt.Errorf("seed reference data: %w", err)
	}
	if err := seedFirstAdmin(db, cfg); err != nil {
		return fmt.Errorf("seed first admin: %w", err)
	}
	display := services.NewDisplaySettingsService(
		repositories.NewDisplaySettingRepository(),
		services.NewAuditService(repositories.NewAuditRepository()),
	)
	if _, err := display.InitializeDefaults(ctx, db, services.Actor{}); err != nil {
		return fmt.Errorf("seed display settings: %w", err)
	}
	return nil
}

func seedFirstAdmin(db *gorm.DB, cfg *config.Config) error {
	adminEmail := strings.ToLower(strings.TrimSpace(cfg.Admin.FirstAdminEmail))
	adminPassword := cfg.Admin.FirstAdminPassword

	if adminEmail == "" || adminPassword == "" {
		logger.Warn("FIRST_ADMIN_EMAIL or FIRST_ADMIN_PASSWORD is not set. Skipping admin seeding.")
		return nil
	}

	userRepo := repositories.NewUserRepository()
	return db.Transaction(func(tx *gorm.DB) error {
		_, err := userRepo.FindByEmail(tx, adminEmail)
		if err == nil {
			logger.Info("Admin user already exists. Skipping creation.", "email", adminEmail)
			return nil
		}
		if !errors.Is(err, repositories.ErrUserNotFound) {
			return fmt.Errorf("failed to check for admin user: %w", err)
		}

		logger.Warn("No admin user found with specified email. Creating first admin...", "email", adminEmail)

		role, err := repositories.NewRoleRepository().FindByName(tx, models.RoleAdmin)
		if err != nil {
			return fmt.Errorf("failed to load ADMIN role: %w", err)
		}
		hash, err := auth.HashPassword(adminPassword)
		if err != nil {
			return fmt.Errorf("failed to hash admin password: %w", err)
		}

		admin := &models.User{
			FirstName:    "System",
			LastName:     "Administrator",
			Email:        adminEmail,
			PhoneNumber:  cfg.Admin.FirstAdminPhone,
			PasswordHash: hash,
			RoleID:       role.ID,
			IsVerified:   true,
			IsActive:     true,
		}
		if err := userRepo.Create(tx, admin); err != nil {
			return fmt.Errorf("failed to create admin user in database: %w", err)
		}

		logger.Info("Successfully created first admin user", "email", adminEmail)
		return nil
	})
}
