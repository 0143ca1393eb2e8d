// Command server runs the user authentication API.
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

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/iliyamo/user-auth-api/internal/config"
	"github.com/iliyamo/user-auth-api/internal/database"
	"github.com/iliyamo/user-auth-api/internal/handler"
	"github.com/iliyamo/user-auth-api/internal/logging"
	"github.com/iliyamo/user-auth-api/internal/queue"
	"github.com/iliyamo/user-auth-api/internal/repository"
	"github.com/iliyamo/user-auth-api/internal/router"
	"github.com/iliyamo/user-auth-api/internal/service"
	"github.com/iliyamo/user-auth-api/internal/utils"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, database.DSN(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName))
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if cfg.DBMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
		logger.Info("migrations applied")
	}

	var sessions service.SessionStore = repository.NewSessionRepo(db)
	if cfg.SessionStore == config.SessionStoreRedis {
		rdb, err := config.NewRedisClient(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = rdb.Close() }()
		sessions = repository.NewRedisSessionStore(rdb)
	}

	hasher, err := utils.NewPasswordHasher(cfg.BcryptCost)
	if err != nil {
		return err
	}

	mailer := queue.NewMailer(cfg.MailLogPath, logger.Named("mailer"))
	var notifier service.Notifier = service.MailerNotifier{Mailer: mailer}
	if cfg.NotifyDriver == config.NotifyDriverAMQP {
		notifier = service.NewAMQPNotifier(cfg.AMQPURL, logger.Named("notifier"))
		go func() {
			if err := queue.StartPasswordResetConsumer(ctx, cfg.AMQPURL, mailer); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("mailer consumer stopped", zap.Error(err))
			}
		}()
	}

	auth := service.NewAuthService(
		repository.NewUserRepo(db),
		repository.NewPasswordResetRepo(db),
		sessions,
		hasher,
		notifier,
		logger.Named("auth"),
		service.Options{
			JWTSecret:    cfg.JWTSecret,
			AccessTTL:    cfg.AccessTTL,
			ResetTTL:     cfg.ResetTokenTTL,
			ResetURLBase: cfg.ResetURLBase,
		},
	)

	e := router.New(handler.NewAuthHandler(auth, logger.Named("http")), cfg.APIPrefix, logger)

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			zap.String("addr", addr),
			zap.String("env", cfg.Env),
			zap.String("prefix", cfg.APIPrefix),
			zap.String("session_store", cfg.SessionStore),
			zap.String("notify_driver", cfg.NotifyDriver))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
