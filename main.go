package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"manas-backend/internal/chat"
	"manas-backend/internal/config"
	"manas-backend/internal/crisis"
	"manas-backend/internal/emotion_client"
	"manas-backend/internal/escalation"
	"manas-backend/internal/handler"
	"manas-backend/internal/inference"
	"manas-backend/internal/notifier"
	"manas-backend/internal/repository"
	"manas-backend/internal/server"
	"manas-backend/internal/service"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	// Secrets come from .env in local setups; missing file is fine.
	_ = godotenv.Load()

	cfgPath := "configs/config.yml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	db, err := repository.NewPostgresDB(cfg.Database.URL, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	repository.MigrateDB(db, logger)

	// Repositories
	authRepo := repository.NewAuthRepository(db, logger)
	alertRepo := repository.NewAlertRepository(db, logger)

	// Auth
	tokens := service.NewTokenAuthenticator(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)
	authService := service.NewAuthService(authRepo, tokens, logger)

	// Inference pipeline
	modelClient := emotion_client.NewClient(cfg.ModelService.URL, time.Duration(cfg.ModelService.TimeoutSeconds)*time.Second)
	pool := inference.NewPool(cfg.Inference.Workers, cfg.Inference.QueueSize, logger)
	defer pool.Close()
	phrases := make([]inference.Phrase, 0, len(cfg.Inference.CrisisPhrases))
	for _, p := range cfg.Inference.CrisisPhrases {
		phrases = append(phrases, inference.Phrase{Text: p.Phrase, Severity: p.Severity})
	}
	matcher := inference.NewCrisisMatcher(phrases)
	gateway := inference.NewGateway(modelClient, matcher, pool, cfg.Inference.MaxLength, logger)

	// Crisis reporting
	reporter := crisis.NewReporter(alertRepo, 128, 15*time.Second, logger)

	// Escalation notifier: Telegram when configured, log fallback otherwise.
	var escalationNotifier notifier.Notifier
	tg, err := notifier.NewTelegramNotifier(cfg.Notifier.TelegramBotToken, cfg.Notifier.TelegramChatID, logger)
	if err != nil {
		logger.Warn("Failed to initialize Telegram notifier, falling back to log", zap.Error(err))
	}
	if tg != nil {
		escalationNotifier = tg
	} else {
		escalationNotifier = notifier.NewLogNotifier(logger)
	}

	scheduler := escalation.NewScheduler(
		alertRepo,
		escalationNotifier,
		escalation.NewTickerTrigger(time.Duration(cfg.Escalation.CheckIntervalSeconds)*time.Second),
		time.Duration(cfg.Escalation.ThresholdMinutes)*time.Minute,
		logger,
	)

	// Context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go reporter.Run(ctx)
	go scheduler.Run(ctx)

	// Handlers
	authHandler := handler.NewAuthHandler(authService, logger)
	predictHandler := handler.NewPredictHandler(gateway, modelClient, logger)
	alertHandler := handler.NewAlertHandler(alertRepo, logger)
	chatHandler := chat.NewHandler(
		tokens,
		gateway,
		reporter,
		cfg.Auth.AllowAnonymous,
		cfg.Inference.CrisisSeverity,
		time.Duration(cfg.Chat.IdleTimeoutSeconds)*time.Second,
		logger,
	)

	srv := server.NewServer(server.Deps{
		Tokens:         tokens,
		AuthHandler:    authHandler,
		PredictHandler: predictHandler,
		AlertHandler:   alertHandler,
		ChatHandler:    chatHandler,
	}, logger)

	if err := srv.Run(ctx, cfg.Server.Port); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
	}
	logger.Info("Application stopped.")
}
