package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/yourusername/photodrop-api/internal/config"
	"github.com/yourusername/photodrop-api/internal/handler"
	"github.com/yourusername/photodrop-api/internal/middleware"
	pgRepo "github.com/yourusername/photodrop-api/internal/repository/postgres"
	"github.com/yourusername/photodrop-api/internal/service"
	"github.com/yourusername/photodrop-api/pkg/auth"
	"github.com/yourusername/photodrop-api/pkg/database"
)

func main() {
	// Загружаем конфигурацию
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Загрузка конфигурации из %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к PostgreSQL
	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	// Применяем миграции
	if err := database.MigrateDB(db); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	sqlDB, err := database.GetSQLDB(db)
	if err != nil {
		log.Printf("Failed to get sql.DB: %v", err)
		os.Exit(1)
	}

	// Redis нужен только rate limiter'у; без него сервис работает, но без лимитов
	var redisClient redis.UniversalClient
	if cfg.Redis.RedisConfigured() {
		redisClient, err = database.NewUniversalRedisClient(cfg.Redis)
		if err != nil {
			log.Printf("Failed to connect to Redis: %v. Rate limiting disabled.", err)
			redisClient = nil
		} else {
			log.Println("Successfully connected to Redis")
		}
	} else {
		log.Println("Redis не настроен, rate limiting отключен")
	}

	// Инициализируем репозитории
	accountRepo := pgRepo.NewAccountRepo(db)
	adminRepo := pgRepo.NewAdminRepo(db)
	codeRepo := pgRepo.NewCodeRepo(db)
	orderRepo := pgRepo.NewOrderRepo(db)

	// Сервис токенов: сессии и capability-ссылки одобрения
	tokenService, err := auth.NewTokenService(cfg.Token.Secret, cfg.Token.SessionExpiryHrs, cfg.Token.ApprovalExpiryHrs)
	if err != nil {
		log.Printf("Failed to initialize TokenService: %v", err)
		os.Exit(1)
	}

	// Внешние шлюзы: при неполных учетных данных подставляются noop-реализации,
	// чтобы сервис поднимался в окружениях без секретов
	var storageService service.StorageService = &service.NoopStorageService{}
	if cfg.Storage.StorageConfigured() {
		dropbox, err := service.NewDropboxStorageService(cfg.Storage)
		if err != nil {
			log.Printf("Failed to initialize storage: %v", err)
			os.Exit(1)
		}
		storageService = dropbox
	} else {
		log.Println("Файловое хранилище не настроено, используется noop-реализация")
	}

	var emailService service.EmailService = &service.NoopEmailService{}
	if cfg.Email.ResendAPIKey != "" {
		resendService, err := service.NewResendEmailService(cfg.Email.ResendAPIKey, cfg.Email.From)
		if err != nil {
			log.Printf("Failed to initialize email service: %v", err)
			os.Exit(1)
		}
		emailService = resendService
	} else {
		log.Println("Почтовый сервис не настроен, письма уходят в лог")
	}

	// Инициализируем сервисы
	authService, err := service.NewAuthService(accountRepo, adminRepo, tokenService, emailService, cfg.App.BaseURL)
	if err != nil {
		log.Printf("Failed to initialize AuthService: %v", err)
		os.Exit(1)
	}
	authService.SetAdminNoticeEmail(cfg.Email.AdminEmail)

	var googleService *service.GoogleAuthService
	if cfg.Google.ClientID != "" {
		googleService, err = service.NewGoogleAuthService(accountRepo, adminRepo, tokenService, cfg.Google)
		if err != nil {
			log.Printf("Failed to initialize GoogleAuthService: %v", err)
			os.Exit(1)
		}
	} else {
		log.Println("Google ID не настроен, вход через Google отключен")
	}

	codeService, err := service.NewCodeService(codeRepo, storageService)
	if err != nil {
		log.Printf("Failed to initialize CodeService: %v", err)
		os.Exit(1)
	}

	orderService, err := service.NewOrderService(
		orderRepo, codeService, storageService, emailService, tokenService,
		cfg.App.BaseURL, cfg.Email.AdminEmail, cfg.App.OrderRetention,
	)
	if err != nil {
		log.Printf("Failed to initialize OrderService: %v", err)
		os.Exit(1)
	}

	adminService, err := service.NewAdminService(accountRepo, emailService)
	if err != nil {
		log.Printf("Failed to initialize AdminService: %v", err)
		os.Exit(1)
	}

	// Инициализируем обработчики
	authHandler := handler.NewAuthHandler(authService, googleService)
	orderHandler := handler.NewOrderHandler(orderService, codeService)
	adminHandler := handler.NewAdminHandler(adminService, orderService, codeService)
	healthHandler := handler.NewHealthHandler(cfg, sqlDB, redisClient)

	// Инициализируем middleware
	authMiddleware := middleware.NewAuthMiddleware(tokenService, adminRepo)

	router := gin.Default()

	isProduction := gin.Mode() == gin.ReleaseMode

	// Настройка доверенных прокси для корректной работы c.ClientIP()
	if isProduction {
		// Production: не доверять прокси-заголовкам.
		// При деплое за балансировщиком замените nil на его адрес.
		if err := router.SetTrustedProxies(nil); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	} else {
		if err := router.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	}

	// Настройка CORS
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173", "http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", healthHandler.Handle)

	api := router.Group("/api")
	{
		// Auth-поверхность публична; строгий лимит защищает от перебора
		authGroup := api.Group("/auth")
		if redisClient != nil {
			limiter := middleware.NewRateLimiter(redisClient)
			authGroup.Use(limiter.Limit(middleware.StrictAuthRateLimitConfig()))
		}
		authGroup.POST("", authHandler.Handle)

		// Ссылка одобрения из письма открывается без сессии:
		// аутентификация вшита в сам токен ссылки
		api.GET("/orders/approve", orderHandler.HandleApprove)

		orders := api.Group("/orders")
		orders.Use(authMiddleware.RequireAuth())
		orders.POST("", orderHandler.Handle)

		admin := api.Group("/admin")
		admin.Use(authMiddleware.RequireAuth(), authMiddleware.AdminOnly())
		admin.POST("", adminHandler.Handle)
	}

	// Настраиваем HTTP сервер с тайм-аутами для защиты от slow client attacks
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		os.Exit(1)
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Printf("Error closing redis client: %v", err)
		}
	}

	log.Println("Server exited properly")
}
