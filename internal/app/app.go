package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"pharm_exam_backend/internal/config"
	"pharm_exam_backend/internal/controller"
	"pharm_exam_backend/internal/data"
	"pharm_exam_backend/internal/repository"
	"pharm_exam_backend/internal/service"
	"pharm_exam_backend/pkg/configwatcher"
	"pharm_exam_backend/pkg/database"
	"pharm_exam_backend/pkg/logger"
	"pharm_exam_backend/pkg/monitoring"
	"pharm_exam_backend/pkg/security"
	"pharm_exam_backend/pkg/tracing"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	Bank            *data.Bank
	services        *services
	configCallbacks []func(*config.Config)
	stopTasks       chan struct{}
}

type repositories struct {
	user *repository.UserRepository
	blob *repository.BlobRepository
}

type services struct {
	auth     *service.AuthService
	progress *service.ProgressService
	quiz     *service.QuizService
	mockExam *service.MockExamService
	premium  *service.PremiumService
	payment  *service.PaymentService
}

type controllers struct {
	auth     *controller.AuthController
	question *controller.QuestionController
	quiz     *controller.QuizController
	mockExam *controller.MockExamController
	progress *controller.ProgressController
	premium  *controller.PremiumController
	payment  *controller.PaymentController
	health   *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB, rdb *redis.Client) *repositories {
	return &repositories{
		user: repository.NewUserRepository(db),
		blob: repository.NewBlobRepository(db, rdb),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, bank *data.Bank) *services {
	s := &services{}

	s.auth = service.NewAuthService(repos.user, cfg)
	s.progress = service.NewProgressService(repos.blob, bank)
	s.quiz = service.NewQuizService(s.progress, bank, time.Duration(cfg.Session.QuizIdleMinutes)*time.Minute)
	s.mockExam = service.NewMockExamService(s.progress, bank)
	s.premium = service.NewPremiumService(repos.blob)
	s.payment = service.NewPaymentService(cfg.Stripe)

	return s
}

func (a *App) initControllers(s *services, bank *data.Bank, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:     controller.NewAuthController(s.auth),
		question: controller.NewQuestionController(bank, s.progress),
		quiz:     controller.NewQuizController(s.quiz),
		mockExam: controller.NewMockExamController(bank, s.mockExam),
		progress: controller.NewProgressController(s.progress),
		premium:  controller.NewPremiumController(s.premium),
		payment:  controller.NewPaymentController(s.payment, s.premium),
		health:   controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// startBackgroundTasks 模拟考试按1秒粒度自动交卷，练习会话按分钟粒度回收
func (a *App) startBackgroundTasks(s *services) {
	a.stopTasks = make(chan struct{})

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.mockExam.FinishExpired()
			case <-a.stopTasks:
				return
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.quiz.SweepExpired()
				s.mockExam.SweepFinished(24 * time.Hour)
			case <-a.stopTasks:
				return
			}
		}
	}()

	// 配置热更新：目前只有 Stripe 配置需要在运行期替换
	go configwatcher.WatchConfig("configs/config.yaml", func(cfg *config.Config) {
		logger.Log.Info("config reloaded")
		for _, callback := range a.configCallbacks {
			callback(cfg)
		}
	})
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	bank, err := data.Load()
	if err != nil {
		logger.Log.Fatal("Failed to load question bank", zap.Error(err))
		log.Fatalf("Failed to load question bank: %v", err)
	}
	logger.Log.Info("Question bank loaded",
		zap.Int("questions", len(bank.Questions())),
		zap.Int("exams", len(bank.Exams())))

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		log.Fatalf("Failed to initialize redis: %v", err)
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
		Bank:   bank,
	}

	repos := app.initRepositories(db, rdb)
	services := app.initServices(repos, cfg, bank)
	app.services = services
	controllers := app.initControllers(services, bank, db, rdb)

	app.RegisterConfigCallback(func(newCfg *config.Config) {
		services.payment.UpdateConfig(newCfg.Stripe)
	})

	// 监控初始化
	monitoring.Init()

	gin.SetMode(cfg.Server.Mode)
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("pharm-exam-backend", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
			}
		}()
	}

	app.registerRoutes(router, controllers, cfg)

	app.startBackgroundTasks(services)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// 停止后台清扫任务
	if a.stopTasks != nil {
		close(a.stopTasks)
	}

	// 关闭服务
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
