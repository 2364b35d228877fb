// Command mailer consumes outbound mail events from Kafka and delivers
// them over SMTP.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/quizhub/quiz-api/internal/config"
	"github.com/quizhub/quiz-api/internal/domain"
	"github.com/quizhub/quiz-api/internal/infrastructure/kafka"
	"github.com/quizhub/quiz-api/internal/infrastructure/smtp"
	"github.com/quizhub/quiz-api/internal/pkg/logger"
	"github.com/quizhub/quiz-api/internal/pkg/metrics"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}
	if err := run(); err != nil {
		logger.Error("mailer exited", zap.Error(err))
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
	if err := logger.Init(cfg.LogLevel, cfg.IsDevelopment()); err != nil {
		return err
	}
	if len(cfg.Kafka.Brokers) == 0 {
		return errors.New("KAFKA_BROKERS is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mailer := smtp.NewMailer(smtp.Config{
		Host:     cfg.Mail.SMTPHost,
		Port:     cfg.Mail.SMTPPort,
		From:     cfg.Mail.From,
		Username: cfg.Mail.SMTPUsername,
		Password: cfg.Mail.SMTPPassword,
	})

	consumer := kafka.NewConsumer(kafka.Config{
		Brokers:  cfg.Kafka.Brokers,
		Topic:    cfg.Kafka.MailTopic,
		GroupID:  cfg.Kafka.GroupID,
		Username: cfg.Kafka.Username,
		Password: cfg.Kafka.Password,
	}, deliver(mailer))
	defer func() { err = multierr.Append(err, consumer.Close()) }()

	logger.Info("mail worker started",
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.String("topic", cfg.Kafka.MailTopic),
		zap.String("group", cfg.Kafka.GroupID),
	)
	if err := consumer.Run(ctx); err != nil {
		return err
	}
	logger.Info("mail worker stopped")
	return nil
}

type sender interface {
	Send(ctx context.Context, msg domain.MailMessage) error
}

// deliver sends each event over SMTP. A send error goes back to the
// consumer, which retries before skipping the event.
func deliver(m sender) kafka.Handler {
	return func(ctx context.Context, ev domain.MailEvent) error {
		err := m.Send(ctx, ev.MailMessage)
		metrics.MailSent.WithLabelValues(config.MailTransportSMTP, metrics.Result(err)).Inc()
		return err
	}
}
