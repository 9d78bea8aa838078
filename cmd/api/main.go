package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"qrlink/internal/config"
	"qrlink/internal/db"
	"qrlink/internal/email"
	apihttp "qrlink/internal/http"
	"qrlink/internal/repository"
	"qrlink/internal/service"
	"qrlink/internal/storage"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	var accountRepo repository.AccountRepository
	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg)
		if err != nil {
			logger.Fatal("db connect", zap.Error(err))
		}
		defer pool.Close()
		if err := db.Ping(ctx, pool); err != nil {
			logger.Fatal("db ping", zap.Error(err))
		}
		if err := db.Migrate(ctx, pool); err != nil {
			logger.Fatal("db migrate", zap.Error(err))
		}
		accountRepo = repository.NewPgAccountRepository(pool)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory store")
		accountRepo = repository.NewMemoryAccountRepository()
	}

	var profileCache service.ProfileCache
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			profileCache = service.NewRedisProfileCache(redisClient, time.Duration(cfg.ProfileCacheTTL)*time.Second)
		}
		cancel()
	}

	var assetStore storage.AssetStore = storage.NewInlineAssetStore()
	if cfg.S3Bucket != "" {
		s3Store, err := storage.NewS3AssetStore(ctx, storage.S3Config{
			Bucket:        cfg.S3Bucket,
			Region:        cfg.S3Region,
			BaseEndpoint:  cfg.S3BaseEndpoint,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			PublicBaseURL: cfg.S3PublicBaseURL,
		})
		if err != nil {
			logger.Fatal("s3 store init", zap.Error(err))
		}
		assetStore = s3Store
	}

	emailSender := email.NewDisabledSender("email sender not configured")
	if cfg.SMTPHost != "" {
		sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPFromName, cfg.SMTPUseTLS)
		if err != nil {
			logger.Warn("smtp sender init failed", zap.Error(err))
		} else {
			emailSender = sender
		}
	}

	links := service.NewLinkBuilder(cfg.PublicBaseURL)
	accountSvc := service.NewAccountService(logger, accountRepo, profileCache)
	qrSvc, err := service.NewQRService(logger, accountSvc, assetStore, links, service.QROptions{
		Size:          cfg.QRSize,
		RecoveryLevel: cfg.QRRecoveryLevel,
	})
	if err != nil {
		logger.Fatal("qr service init", zap.Error(err))
	}
	adminSvc := service.NewAdminService(logger, accountSvc, qrSvc, links, emailSender)
	ownerSvc := service.NewOwnerService(logger, service.NewCredentialService(accountRepo), accountSvc)
	publicSvc := service.NewPublicService(logger, accountSvc, profileCache)

	router := apihttp.NewRouter(logger,
		apihttp.RouterOptions{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			AdminUsername:  cfg.AdminUsername,
			AdminPassword:  cfg.AdminPassword,
		},
		apihttp.NewAdminHandler(logger, adminSvc),
		apihttp.NewOwnerHandler(logger, ownerSvc),
		apihttp.NewPublicHandler(logger, publicSvc),
		apihttp.NewHealthHandler(logger, accountSvc),
	)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server",
		zap.String("port", cfg.HTTPPort),
		zap.String("public_base_url", links.BaseURL()),
	)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
