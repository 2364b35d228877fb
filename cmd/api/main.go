package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/quizhub/quiz-api/internal/application/notification"
	"github.com/quizhub/quiz-api/internal/cache"
	"github.com/quizhub/quiz-api/internal/config"
	jwtinfra "github.com/quizhub/quiz-api/internal/infrastructure/jwt"
	"github.com/quizhub/quiz-api/internal/infrastructure/kafka"
	"github.com/quizhub/quiz-api/internal/infrastructure/logmailer"
	"github.com/quizhub/quiz-api/internal/infrastructure/memcache"
	"github.com/quizhub/quiz-api/internal/infrastructure/mysql"
	redisclient "github.com/quizhub/quiz-api/internal/infrastructure/redis"
	"github.com/quizhub/quiz-api/internal/infrastructure/smtp"
	"github.com/quizhub/quiz-api/internal/pkg/logger"
	transporthttp "github.com/quizhub/quiz-api/internal/transport/http"
	"github.com/quizhub/quiz-api/internal/transport/http/handler"
	appmiddleware "github.com/quizhub/quiz-api/internal/transport/http/middleware"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}
	if err := run(); err != nil {
		logger.Error("api exited", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	_ = logger.Sync()
}

func run() (err error) {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := logger.Init(cfg.LogLevel, cfg.IsDevelopment()); err != nil {
		return err
	}
	log := logger.WithModule("api")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	db, err := mysql.Open(startCtx, mysql.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Name:     cfg.Database.Name,
	})
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, sqlDB.Close()) }()

	if cfg.Database.AutoMigrate {
		if err := mysql.Migrate(startCtx, sqlDB); err != nil {
			return err
		}
		log.Info("database migrated")
	}

	kv := newCache(cfg)
	if err := kv.Connect(startCtx); err != nil {
		return fmt.Errorf("connect cache (%s): %w", cfg.Cache.Driver, err)
	}
	defer func() { err = multierr.Append(err, kv.Close()) }()

	mailer, closeMailer := newMailer(cfg)
	defer func() { err = multierr.Append(err, closeMailer.Close()) }()

	jwtProvider, err := jwtinfra.NewProvider(cfg.JWT.Secret, cfg.JWT.Expiry)
	if err != nil {
		return err
	}

	limiter := appmiddleware.NewRateLimiter(rate.Limit(cfg.RateLimit.RPS), cfg.RateLimit.Burst)
	defer limiter.Stop()

	router := transporthttp.NewRouter(cfg, &transporthttp.Deps{
		UserRepo:    mysql.NewUserRepo(db),
		ProblemRepo: mysql.NewProblemRepo(db),
		CourseRepo:  mysql.NewCourseRepo(db),
		Cache:       kv,
		Mailer:      mailer,
		JWTProvider: jwtProvider,
		DBPing:      handler.PingFunc(sqlDB.PingContext),
		AuthLimiter: limiter,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server starting",
			zap.String("port", cfg.Port),
			zap.String("env", cfg.AppEnv),
			zap.String("cache", cfg.Cache.Driver),
			zap.String("mail", cfg.Mail.Transport),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}

func newCache(cfg *config.Config) cache.Client {
	if cfg.Cache.Driver == config.CacheDriverMemory {
		return memcache.New(time.Minute)
	}
	return redisclient.New(redisclient.Options{
		Addr:        cfg.Cache.RedisAddr(),
		Password:    cfg.Cache.RedisPassword,
		DB:          cfg.Cache.RedisDB,
		DialTimeout: 5 * time.Second,
	})
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// newMailer picks the transport for outbound mail. The returned closer
// flushes the kafka producer on shutdown.
func newMailer(cfg *config.Config) (notification.Mailer, io.Closer) {
	switch cfg.Mail.Transport {
	case config.MailTransportKafka:
		p := kafka.NewProducer(kafka.Config{
			Brokers:  cfg.Kafka.Brokers,
			Topic:    cfg.Kafka.MailTopic,
			Username: cfg.Kafka.Username,
			Password: cfg.Kafka.Password,
		})
		return p, p
	case config.MailTransportLog:
		return logmailer.New(), nopCloser{}
	default:
		return smtp.NewMailer(smtpConfig(cfg)), nopCloser{}
	}
}

func smtpConfig(cfg *config.Config) smtp.Config {
	return smtp.Config{
		Host:     cfg.Mail.SMTPHost,
		Port:     cfg.Mail.SMTPPort,
		From:     cfg.Mail.From,
		Username: cfg.Mail.SMTPUsername,
		Password: cfg.Mail.SMTPPassword,
	}
}
