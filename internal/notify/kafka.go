// Package notify publishes approval notices for the mail service. Delivery is
// best-effort; callers log failures and move on.
package notify

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"donorbridge/pkg/types"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/sirupsen/logrus"
)

const (
	headerEvent = "event"
	headerKind  = "kind"

	kindApproval  = "approval"
	kindRejection = "rejection"
)

var ErrMissingRecipient = errors.New("notice has no recipient email")

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier writes one message per notice, keyed by entity id so every
// notice about the same record lands on the same partition.
type KafkaNotifier struct {
	writer  messageWriter
	logger  *logrus.Logger
	timeout time.Duration
}

func NewKafkaNotifier(config *types.Config, logger *logrus.Logger) *KafkaNotifier {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(config.KafkaBrokers...),
		Topic:        config.KafkaTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		WriteTimeout: 10 * time.Second,
	}

	if config.KafkaUsername != "" {
		writer.Transport = &kafka.Transport{
			SASL: plain.Mechanism{
				Username: config.KafkaUsername,
				Password: config.KafkaPassword,
			},
			TLS: &tls.Config{MinVersion: tls.VersionTLS12},
		}
	}

	return newKafkaNotifier(writer, logger)
}

func newKafkaNotifier(writer messageWriter, logger *logrus.Logger) *KafkaNotifier {
	return &KafkaNotifier{
		writer:  writer,
		logger:  logger,
		timeout: 5 * time.Second,
	}
}

func (n *KafkaNotifier) SendApproval(ctx context.Context, notice types.Notice) error {
	return n.publish(ctx, kindApproval, notice)
}

func (n *KafkaNotifier) SendRejection(ctx context.Context, notice types.Notice) error {
	return n.publish(ctx, kindRejection, notice)
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}

func (n *KafkaNotifier) publish(ctx context.Context, kind string, notice types.Notice) error {
	if notice.Email == "" {
		return ErrMissingRecipient
	}

	if notice.OccurredAt.IsZero() {
		notice.OccurredAt = time.Now().UTC()
	}

	payload, err := json.Marshal(notice)
	if err != nil {
		return fmt.Errorf("failed to encode notice: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	err = n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(notice.EntityID),
		Value: payload,
		Time:  notice.OccurredAt,
		Headers: []kafka.Header{
			{Key: headerEvent, Value: []byte(notice.Event)},
			{Key: headerKind, Value: []byte(kind)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s notice: %w", notice.Event, err)
	}

	n.logger.WithFields(logrus.Fields{
		"event":     notice.Event,
		"entity_id": notice.EntityID,
	}).Debug("notice published")

	return nil
}
