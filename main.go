package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	_ "messaging/docs"
	"messaging/internal/api"
	"messaging/internal/cache"
	"messaging/internal/config"
	"messaging/internal/logging"
	"messaging/internal/notify"
	"messaging/internal/repository"
	"messaging/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

type storage interface {
	service.MessageRepository
	service.UserRepository
	service.NotificationRepository
}

type pageStore interface {
	cache.Store
	service.ReceiptCache
}

func run() (err error) {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var closers []func() error
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			err = multierr.Append(err, closers[i]())
		}
	}()

	var repo storage
	switch cfg.Storage {
	case config.StorageMemory:
		repo = repository.NewMemoryRepo()
		log.Warn("using in-memory storage, data is lost on exit")
	default:
		pg, err := repository.NewPostgresRepo(ctx, cfg.DSN())
		if err != nil {
			return err
		}
		closers = append(closers, pg.Close)
		repo = pg
		log.WithField("host", cfg.DBHost).Info("connected to PostgreSQL")
	}

	var pages pageStore
	if cfg.RedisHost == "" {
		pages = cache.NewMemoryStore()
		log.Info("page cache kept in memory")
	} else {
		client, err := cache.NewRedisClient(ctx, cfg.RedisAddr(), cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return err
		}
		rc := cache.NewRedisCache(client)
		closers = append(closers, rc.Close)
		pages = rc
		log.WithField("addr", cfg.RedisAddr()).Info("connected to Redis")
	}

	sender, closeSender := newSender(cfg, log)
	if closeSender != nil {
		closers = append(closers, closeSender)
	}

	messages := service.NewMessageService(repo, service.DefaultSignals(), log.WithField("component", "messages"))
	users := service.NewUserService(repo, log.WithField("component", "users"))
	dispatcher := service.NewDispatcher(repo, sender, pages, log.WithField("component", "dispatcher"),
		cfg.DispatchInterval, cfg.DispatchBatch)
	if cfg.DispatchOnStart {
		if err := dispatcher.Start(); err != nil {
			return fmt.Errorf("failed to start dispatcher: %w", err)
		}
	}
	closers = append(closers, dispatcher.Stop)

	handler := api.NewAPIHandler(messages, users, dispatcher, log)
	router := api.NewRouter(handler,
		cache.Page(pages, cfg.PageCacheTTL, log.WithField("component", "page_cache")),
		logging.Middleware(log),
	)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}
	errChan := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.Port).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down gracefully")
	case err := <-errChan:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}

func newSender(cfg *config.Config, log *logrus.Logger) (service.Sender, func() error) {
	switch cfg.NotifyTransport {
	case config.TransportKafka:
		k := notify.NewKafkaSender(cfg.KafkaBrokers, cfg.KafkaTopic)
		log.WithFields(logrus.Fields{"brokers": cfg.KafkaBrokers, "topic": cfg.KafkaTopic}).Info("notifications go to Kafka")
		return k, k.Close
	case config.TransportWebhook:
		log.WithField("url", cfg.WebhookURL).Info("notifications go to webhook")
		return notify.NewWebhookSender(cfg.WebhookURL, cfg.WebhookAuthKey, cfg.WebhookTimeout), nil
	}
	return notify.NewLogSender(log.WithField("component", "notify")), nil
}
