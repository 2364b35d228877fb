package kafka

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
	"go.uber.org/zap"

	"github.com/quizhub/quiz-api/internal/domain"
	"github.com/quizhub/quiz-api/internal/pkg/logger"
)

// Handler processes one decoded mail event.
type Handler func(ctx context.Context, ev domain.MailEvent) error

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads mail events as part of a consumer group and commits each
// offset only after the handler has finished with it.
type Consumer struct {
	reader   messageReader
	handler  Handler
	attempts int
	backoff  time.Duration
	log      *zap.Logger
}

func NewConsumer(cfg Config, handler Handler) *Consumer {
	dialer := &kafka.Dialer{Timeout: 10 * time.Second, DualStack: true}
	if cfg.Username != "" {
		dialer.SASLMechanism = plain.Mechanism{Username: cfg.Username, Password: cfg.Password}
		dialer.TLS = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: 1,
		MaxBytes: 10e6,
		Dialer:   dialer,
	})
	return newConsumer(reader, handler)
}

func newConsumer(r messageReader, h Handler) *Consumer {
	return &Consumer{
		reader:   r,
		handler:  h,
		attempts: 3,
		backoff:  time.Second,
		log:      logger.WithModule("mail-consumer"),
	}
}

// Run blocks until ctx is canceled or the reader fails.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("fetch mail event: %w", err)
		}

		c.process(ctx, msg)

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("commit offset %d: %w", msg.Offset, err)
		}
	}
}

// process never fails the loop. Undecodable events and events that keep
// failing after all attempts are logged and skipped.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) {
	var ev domain.MailEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		c.log.Error("drop undecodable mail event", zap.Int64("offset", msg.Offset), zap.Error(err))
		return
	}
	log := c.log.With(zap.String("event_id", ev.ID), zap.String("to", ev.To))

	for attempt := 1; attempt <= c.attempts; attempt++ {
		err := c.handler(ctx, ev)
		if err == nil {
			log.Info("mail delivered", zap.Int("attempt", attempt))
			return
		}
		if errors.Is(err, context.Canceled) {
			return
		}
		log.Warn("mail delivery failed", zap.Int("attempt", attempt), zap.Error(err))
		if attempt < c.attempts {
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.backoff * time.Duration(attempt)):
			}
		}
	}
	log.Error("mail dropped after retries", zap.Int("attempts", c.attempts))
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
