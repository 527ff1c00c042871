// Package mailer implements notify.Sender transports.
package mailer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/xenking/sarit-store/internal/domain/notify"
)

// DefaultExchange receives every mail event.
const DefaultExchange = "notifications"

// Channel is the subset of *amqp.Channel used by Publisher.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

var _ notify.Sender = (*Publisher)(nil)

// Publisher hands messages to the mail worker over RabbitMQ. Each message
// is published to a topic exchange with routing key "mail.<kind>".
type Publisher struct {
	ch       Channel
	exchange string
}

// NewPublisher declares the exchange and returns a Publisher.
func NewPublisher(ch Channel, exchange string) (*Publisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	if err := ch.ExchangeDeclare(
		exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return nil, errors.Wrapf(err, "declare exchange %q", exchange)
	}
	return &Publisher{ch: ch, exchange: exchange}, nil
}

// RoutingKey returns the routing key used for kind.
func RoutingKey(kind notify.Kind) string {
	return "mail." + string(kind)
}

// Send publishes msg as a persistent JSON message.
func (p *Publisher) Send(ctx context.Context, msg notify.Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "marshal message")
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Type:         string(msg.Kind),
		Body:         body,
	}
	if err := p.ch.PublishWithContext(ctx, p.exchange, RoutingKey(msg.Kind), false, false, pub); err != nil {
		return errors.Wrapf(err, "publish %s", msg.Kind)
	}
	return nil
}

var _ notify.Sender = (*LogSender)(nil)

// LogSender writes messages to the log instead of delivering them. Used
// when no broker is configured.
type LogSender struct {
	lg *zap.Logger
}

// NewLogSender returns a LogSender writing to lg.
func NewLogSender(lg *zap.Logger) *LogSender {
	return &LogSender{lg: lg}
}

// Send logs msg.
func (s *LogSender) Send(_ context.Context, msg notify.Message) error {
	s.lg.Info("Notification",
		zap.String("kind", string(msg.Kind)),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("order_id", msg.OrderID),
	)
	return nil
}
