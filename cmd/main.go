package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"

	"coach_report_bot/internal/config"
	"coach_report_bot/internal/dates"
	"coach_report_bot/internal/infrastructure"
	"coach_report_bot/internal/interfaces"
	"coach_report_bot/internal/interfaces/http"
	"coach_report_bot/internal/logger"
	"coach_report_bot/internal/repository"
	"coach_report_bot/internal/usecases"
)

func main() {
	if err := run(); err != nil {
		logger.FromContext(context.Background()).Error("Fatal", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.Init(&logger.Config{Level: cfg.LogLevel, JSON: cfg.LogJSON})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.ContextWithLogger(ctx, log)

	if cfg.TelegramBotToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is required")
	}

	mongoClient, err := infrastructure.NewMongoClient(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mongoClient.Close(closeCtx); err != nil {
			log.Warn("Failed to close database", "err", err)
		}
	}()
	db := mongoClient.Database

	// Repositories
	messageRepo := repository.NewMessageRepository(db)
	measurementMessageRepo := repository.NewMeasurementMessageRepository(db)
	userRepo := repository.NewUserRepository(db)
	reportRepo := repository.NewReportRepository(db)
	reminderRepo := repository.NewReminderRepository(db)

	telegramClient, bot, err := infrastructure.NewTelegramClient(cfg.TelegramBotToken)
	if err != nil {
		return err
	}
	log.Info("Telegram bot connected", "bot", telegramClient.BotUsername())

	var balances interfaces.BalanceProvider
	if cfg.BalanceAPIURL != "" {
		balances = infrastructure.NewBalanceClient(cfg.BalanceAPIURL)
	} else {
		log.Warn("BALANCE_API_URL not set, balances are reported as zero")
	}

	// Usecases
	dispatcher := usecases.NewDispatcher(telegramClient)
	gate := usecases.NewEligibilityGate(messageRepo, measurementMessageRepo)
	reportService := usecases.NewReportService(gate, messageRepo, reportRepo, balances, dispatcher, telegramClient, cfg)
	measurementService := usecases.NewMeasurementService(gate, measurementMessageRepo, dispatcher, telegramClient, cfg)
	wizardService := usecases.NewWizardService(userRepo, dispatcher, telegramClient, cfg)
	reminderService := usecases.NewReminderService(reminderRepo, dispatcher, cfg)
	inlineQueries := usecases.NewInlineQueries(reportRepo, balances, cfg)

	// Telegram inline queries
	limiter := infrastructure.NewInlineQueryLimiter(2, 5)
	go limiter.Run(ctx, time.Minute)
	tgManager := infrastructure.NewTelegramBotManager(bot, telegramClient, userRepo, inlineQueries.Engine(), limiter)
	botDone := make(chan struct{})
	go func() {
		defer close(botDone)
		tgManager.Run(ctx)
	}()

	// Scheduled reminders
	loc, err := dates.LoadLocation(cfg.DefaultTimezone)
	if err != nil {
		return err
	}
	scheduler := cron.New(cron.WithLocation(loc))
	if err := reminderService.Schedule(ctx, scheduler); err != nil {
		return err
	}
	scheduler.Start()

	// HTTP server
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	middleware := http.NewMiddleware(cfg.JWTSecret, cfg.PrivateAPIKey, userRepo)
	photos := http.NewPhotoHandler(userRepo, infrastructure.NewPhotoClient())
	if err := http.SetupRoutes(r, http.NewHandler(reportService, measurementService, wizardService), photos, middleware); err != nil {
		return err
	}

	srv := &stdhttp.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	serveErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down")
	case err := <-serveErr:
		if err != nil {
			stop()
			<-scheduler.Stop().Done()
			<-botDone
			return fmt.Errorf("http server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown incomplete", "err", err)
	}
	<-scheduler.Stop().Done()
	<-botDone
	return nil
}
