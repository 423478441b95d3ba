package email

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
)

// NotificationEvent es el mensaje publicado para que un servicio de correo
// externo lo entregue.
type NotificationEvent struct {
	Kind      Kind       `json:"kind"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Code      string     `json:"code,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	SentAt    time.Time  `json:"sent_at"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSender publica las notificaciones en un topic de Kafka.
type KafkaSender struct {
	writer messageWriter
	now    func() time.Time
}

func NewKafkaSender(brokers []string, topic, username, password string, useTLS bool) (*KafkaSender, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	if strings.TrimSpace(topic) == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}

	transport := &kafka.Transport{}
	if username != "" {
		transport.SASL = plain.Mechanism{
			Username: username,
			Password: password,
		}
	}
	if useTLS {
		transport.TLS = &tls.Config{}
	}

	return &KafkaSender{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        false,
			Transport:    transport,
			WriteTimeout: 10 * time.Second,
		},
		now: time.Now,
	}, nil
}

func (s *KafkaSender) SendVerification(ctx context.Context, toEmail, name, code string, expiresAt time.Time) error {
	exp := expiresAt.UTC()
	return s.publish(ctx, NotificationEvent{Kind: KindVerification, Email: toEmail, Name: name, Code: code, ExpiresAt: &exp})
}

func (s *KafkaSender) SendWelcome(ctx context.Context, toEmail, name string) error {
	return s.publish(ctx, NotificationEvent{Kind: KindWelcome, Email: toEmail, Name: name})
}

func (s *KafkaSender) SendPasswordReset(ctx context.Context, toEmail, name, code string, expiresAt time.Time) error {
	exp := expiresAt.UTC()
	return s.publish(ctx, NotificationEvent{Kind: KindPasswordReset, Email: toEmail, Name: name, Code: code, ExpiresAt: &exp})
}

func (s *KafkaSender) publish(ctx context.Context, event NotificationEvent) error {
	if strings.TrimSpace(event.Email) == "" {
		return fmt.Errorf("to email is required")
	}
	event.SentAt = s.now().UTC()
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}
	// key por email: los eventos de un mismo usuario quedan en la misma partición
	return s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Email),
		Value: value,
		Time:  event.SentAt,
	})
}

func (s *KafkaSender) Close() error {
	if s == nil || s.writer == nil {
		return nil
	}
	return s.writer.Close()
}
