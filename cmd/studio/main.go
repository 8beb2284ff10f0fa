package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-telegram/bot"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Freeeeeet/studio_manager/internal/app"
	"github.com/Freeeeeet/studio_manager/internal/config"
	"github.com/Freeeeeet/studio_manager/internal/controller"
	"github.com/Freeeeeet/studio_manager/internal/controller/httpapi"
	"github.com/Freeeeeet/studio_manager/internal/notify"
	"github.com/Freeeeeet/studio_manager/internal/realtime"
	"github.com/Freeeeeet/studio_manager/internal/repository"
	"github.com/Freeeeeet/studio_manager/internal/repository/base"
	"github.com/Freeeeeet/studio_manager/internal/service"
	"github.com/Freeeeeet/studio_manager/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	logger.Info("Starting studio manager",
		zap.String("environment", cfg.Environment),
		zap.String("http_addr", cfg.HTTPAddr),
		zap.Bool("telegram", cfg.TelegramToken != ""))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Studio manager stopped with error", zap.Error(err))
	}
	logger.Info("Studio manager stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return err
	}

	migrator, err := app.NewMigrator(pool, cfg.MigrationsPath, logger)
	if err != nil {
		return err
	}
	if err := migrator.Run(ctx); err != nil {
		migrator.Close()
		return err
	}
	migrator.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return err
	}

	db := base.NewRepository(pool)
	users := repository.NewUserRepository(db)
	studios := repository.NewStudioRepository(db)
	students := repository.NewStudentRepository(db)
	classes := repository.NewClassRepository(db)
	attendance := repository.NewAttendanceRepository(db)
	conversations := repository.NewConversationRepository(db)
	invoices := repository.NewInvoiceRepository(db)
	channels := repository.NewChannelRepository(db)

	sessions := session.NewRedisStore(rdb, cfg.SessionTTL)
	tokens := session.NewTokens(cfg.JWTSecret, cfg.SessionTTL)
	broker := realtime.NewBroker(rdb, logger)
	cache := service.NewReferenceCache(cfg.SessionTTL)

	var (
		telegram *bot.Bot
		notifier service.Notifier = notify.Noop{}
	)
	if cfg.TelegramToken != "" {
		telegram, err = bot.New(cfg.TelegramToken)
		if err != nil {
			return err
		}
		notifier = notify.NewTelegram(telegram, logger)
	}

	studioSvc := service.NewStudioService(studios, students, cache, logger)
	authSvc := service.NewAuthService(users, studios, sessions, tokens, cache, logger)
	classSvc := service.NewClassService(classes, students, studioSvc, logger)
	attendanceSvc := service.NewAttendanceService(classes, attendance, studioSvc, logger)
	messagingSvc := service.NewMessagingService(conversations, users, broker, broker, notifier, logger)
	invoiceSvc := service.NewInvoiceService(invoices, studios, logger)
	channelSvc := service.NewChannelService(channels, classes, logger)

	if telegram != nil {
		botController := controller.NewBotController(telegram, authSvc, classSvc, logger)
		if err := botController.RegisterHandlers(ctx); err != nil {
			logger.Warn("Failed to register bot commands", zap.Error(err))
		}
		go botController.Start(ctx)
	}

	scheduler := app.NewScheduler(classSvc, invoiceSvc, cfg.JobInterval, logger)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	api := httpapi.NewServer(httpapi.Services{
		Auth:       authSvc,
		Studio:     studioSvc,
		Classes:    classSvc,
		Attendance: attendanceSvc,
		Messaging:  messagingSvc,
		Invoices:   invoiceSvc,
		Channels:   channelSvc,
	}, httpapi.Options{
		SignInPerMinute: cfg.SignInRate,
		Debug:           !cfg.IsProduction(),
	}, logger)

	srv := newHTTPServer(ctx, cfg.HTTPAddr, api.Handler())

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newHTTPServer derives every request context from ctx, so open event
// streams end as soon as ctx is cancelled and Shutdown does not wait on them.
func newHTTPServer(ctx context.Context, addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
}
