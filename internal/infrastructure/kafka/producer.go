package kafka

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"

	"github.com/quizhub/quiz-api/internal/domain"
	"github.com/quizhub/quiz-api/internal/pkg/id"
)

type Config struct {
	Brokers  []string
	Topic    string
	GroupID  string
	Username string
	Password string
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes outbound mail as MailEvents. It satisfies the same
// Send contract as the SMTP mailer so the API can switch transports.
type Producer struct {
	writer messageWriter
	now    func() time.Time
}

func NewProducer(cfg Config) *Producer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: 10 * time.Second,
	}
	if cfg.Username != "" {
		w.Transport = &kafka.Transport{
			SASL: plain.Mechanism{Username: cfg.Username, Password: cfg.Password},
			TLS:  &tls.Config{MinVersion: tls.VersionTLS12},
		}
	}
	return &Producer{writer: w, now: time.Now}
}

// Send publishes msg keyed by recipient so that one recipient's mail
// stays ordered within a partition.
func (p *Producer) Send(ctx context.Context, msg domain.MailMessage) error {
	ev := domain.MailEvent{ID: id.New(), CreatedAt: p.now().UTC(), MailMessage: msg}
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode mail event: %w", err)
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.To),
		Value: value,
		Time:  ev.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("publish mail event: %w", err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
