package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bookkeeping/config"
	"bookkeeping/database"
	"bookkeeping/messaging"
	"bookkeeping/router"
	"bookkeeping/services"
	"bookkeeping/utils"

	"golang.org/x/sync/errgroup"
)

const sessionPurgeInterval = time.Hour

func main() {
	// HB_CONFIG_FILE указывает файл конфигурации вместо config.yaml
	if err := run(os.Getenv("HB_CONFIG_FILE")); err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка: %v\n", err)
		os.Exit(1)
	}
}

func run(configFile string) error {
	// Инициализируем конфигурацию
	cfg, err := config.NewConfig(configFile)
	if err != nil {
		return fmt.Errorf("загрузка конфигурации: %w", err)
	}

	logger, logCloser, err := utils.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("инициализация логгера: %w", err)
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	// Инициализируем подключение к базе данных
	db, err := database.NewDatabase(cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("подключение к базе данных: %w", err)
	}
	defer db.Close()

	notifier, closers, err := buildNotifier(cfg, db, logger)
	if err != nil {
		return err
	}
	defer func() {
		for _, c := range closers {
			c.Close()
		}
	}()

	engine := router.SetupRouter(router.Dependencies{
		Config:   cfg,
		DB:       db.DB,
		Notifier: notifier,
		Logger:   logger,
		Metrics:  utils.GetMetrics(),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("сервер запущен", "addr", srv.Addr, "driver", db.Driver())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("запуск сервера: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("остановка сервера")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		purgeSessions(gctx, services.NewSessionService(db.DB, cfg.Auth.Secret, cfg.Auth.SessionTTL), logger)
		return nil
	})

	return g.Wait()
}

// buildNotifier собирает получателей событий журнала из конфигурации.
// Без SMTP и AMQP события никуда не отправляются.
func buildNotifier(cfg *config.Config, db *database.Database, logger *slog.Logger) (services.Notifier, []io.Closer, error) {
	var notifiers services.Notifiers
	var closers []io.Closer

	if cfg.SMTP.Enabled() {
		notifiers = append(notifiers, services.NewEmailService(cfg.SMTP, db.DB))
		logger.Info("email уведомления включены", "host", cfg.SMTP.Host)
	}

	if cfg.AMQP.URL != "" {
		publisher, err := messaging.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("подключение к брокеру: %w", err)
		}
		notifiers = append(notifiers, publisher)
		closers = append(closers, publisher)
		logger.Info("публикация событий включена", "exchange", cfg.AMQP.Exchange)
	}

	if len(notifiers) == 0 {
		return services.NopNotifier{}, nil, nil
	}
	return notifiers, closers, nil
}

// purgeSessions периодически удаляет истекшие и отозванные сессии
func purgeSessions(ctx context.Context, sessions *services.SessionService, logger *slog.Logger) {
	ticker := time.NewTicker(sessionPurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.PurgeExpired(ctx)
			if err != nil {
				logger.Warn("не удалось очистить сессии", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("удалены устаревшие сессии", "count", n)
			}
		}
	}
}
