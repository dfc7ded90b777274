package app

import (
	"context"
	"course_platform_backend/internal/config"
	"course_platform_backend/internal/controller"
	"course_platform_backend/internal/repository"
	"course_platform_backend/internal/service"
	"course_platform_backend/pkg/cache"
	"course_platform_backend/pkg/configwatcher"
	"course_platform_backend/pkg/database"
	"course_platform_backend/pkg/logger"
	"course_platform_backend/pkg/monitoring"
	"course_platform_backend/pkg/security"
	"course_platform_backend/pkg/tracing"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config    *config.Config
	ConfigDir string
	Router    *gin.Engine
	DB        *gorm.DB
	Redis     *redis.Client
	Cache     cache.Store

	repos           *repositories
	tracer          *sdktrace.TracerProvider
	ctx             context.Context
	cancel          context.CancelFunc
	configCallbacks []func(*config.Config)
}

type repositories struct {
	course      *repository.CourseRepository
	progress    *repository.ProgressRepository
	homework    *repository.HomeworkRepository
	certificate *repository.CertificateRepository
}

type services struct {
	course         *service.CourseService
	progress       *service.ProgressService
	eligibility    *service.EligibilityService
	certificate    *service.CertificateService
	homeworkReview *service.HomeworkReviewService
}

type controllers struct {
	course      *controller.CourseController
	progress    *controller.ProgressController
	certificate *controller.CertificateController
	homework    *controller.HomeworkController
	cache       *controller.CacheController
	health      *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) applyConfig(cfg *config.Config) {
	for _, cb := range a.configCallbacks {
		cb(cfg)
	}
}

func (a *App) initRepositories(db *gorm.DB, store cache.Store, cfg *config.Config) *repositories {
	return &repositories{
		course:      repository.NewCourseRepository(db, store, cfg.Cache.StructureTTL()),
		progress:    repository.NewProgressRepository(db),
		homework:    repository.NewHomeworkRepository(db),
		certificate: repository.NewCertificateRepository(db),
	}
}

func (a *App) initServices(repos *repositories, store cache.Store, cfg *config.Config) *services {
	s := &services{}

	s.course = service.NewCourseService(repos.course, repos.progress, repos.homework)
	s.progress = service.NewProgressService(repos.course, repos.progress, repos.homework, store)
	s.eligibility = service.NewEligibilityService(repos.course, repos.progress, repos.homework)
	s.certificate = service.NewCertificateService(s.eligibility, repos.course, repos.certificate, cfg.Certificate)
	s.homeworkReview = service.NewHomeworkReviewService(repos.homework, store)

	return s
}

func (a *App) initControllers(s *services) *controllers {
	return &controllers{
		course:      controller.NewCourseController(s.course),
		progress:    controller.NewProgressController(s.progress),
		certificate: controller.NewCertificateController(s.eligibility, s.certificate),
		homework:    controller.NewHomeworkController(s.homeworkReview),
		cache:       controller.NewCacheController(a.Cache),
		health:      controller.NewHealthController(a.DB, a.Redis),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(a.ctx, cfg.RateLimit))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// newCacheStore picks the cache backend. Only the redis driver shares
// invalidation across instances.
func newCacheStore(cfg *config.Config, rdb *redis.Client) cache.Store {
	if cfg.Cache.Driver == config.CacheDriverRedis && rdb != nil {
		return cache.NewRedisStore(rdb, cfg.Cache.KeyPrefix)
	}
	return cache.NewMemoryStore()
}

// New assembles the HTTP application on already opened connections. rdb may be
// nil when the memory cache driver is configured.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *App {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		Config:    cfg,
		ConfigDir: "configs",
		DB:        db,
		Redis:     rdb,
		Cache:     newCacheStore(cfg, rdb),
		ctx:       ctx,
		cancel:    cancel,
	}

	repos := app.initRepositories(db, app.Cache, cfg)
	app.repos = repos
	svc := app.initServices(repos, app.Cache, cfg)
	controllers := app.initControllers(svc)

	// 监控初始化
	monitoring.Init()

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)

	app.RegisterConfigCallback(func(newCfg *config.Config) {
		ttl := newCfg.Cache.StructureTTL()
		if ttl != repos.course.StructureTTL() {
			repos.course.SetStructureTTL(ttl)
			logger.Log.Info("Course structure TTL updated", zap.Duration("ttl", ttl))
		}
	})

	logger.Log.Info("Application assembled",
		zap.String("cache_driver", cfg.Cache.Driver),
		zap.Duration("structure_ttl", cfg.Cache.StructureTTL()),
	)
	return app
}

// NewApp opens the database and, for the redis cache driver, redis. With
// MigrateOnly set it returns after migrating and Router stays nil.
func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	if cfg.MigrateOnly {
		return &App{Config: cfg, DB: db}
	}

	var rdb *redis.Client
	if cfg.Cache.Driver == config.CacheDriverRedis {
		rdb, err = database.InitRedis(&cfg.Redis)
		if err != nil {
			logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		}
	} else {
		logger.Log.Warn("Using in-process cache; invalidation does not reach other instances")
	}

	var tp *sdktrace.TracerProvider
	if cfg.Tracing.Enabled {
		tp, err = tracing.InitTracer(cfg.Tracing)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app := New(cfg, db, rdb)
	app.tracer = tp
	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:              ":" + a.Config.Server.Port,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := configwatcher.Watch(a.ctx, a.ConfigDir, a.applyConfig); err != nil {
			logger.Log.Error("Config watcher stopped", zap.Error(err))
		}
	}()

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("listen", zap.Error(err))
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	a.Close(ctx)
	logger.Log.Info("Server exiting")
}

// Close stops background work and releases connections.
func (a *App) Close(ctx context.Context) {
	if a.cancel != nil {
		a.cancel()
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			logger.Log.Error("Failed to close redis", zap.Error(err))
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
