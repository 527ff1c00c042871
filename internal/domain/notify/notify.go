// Package notify delivers best-effort customer notifications off the
// request path.
package notify

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Kind names a notification template.
type Kind string

const (
	KindOrderConfirmation Kind = "order_confirmation"
	KindOrderStatus       Kind = "order_status"
	KindContactMessage    Kind = "contact_message"
)

// Message is a rendered notification.
type Message struct {
	Kind    Kind              `json:"kind"`
	To      string            `json:"to"`
	Subject string            `json:"subject"`
	OrderID string            `json:"orderId,omitempty"`
	Body    string            `json:"body"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// DefaultQueueSize is the dispatcher buffer used when none is configured.
const DefaultQueueSize = 256

// Dispatcher queues messages and sends them from a single background
// goroutine. Enqueue never blocks; a full queue drops the message.
type Dispatcher struct {
	sender  Sender
	queue   chan Message
	lg      *zap.Logger
	timeout time.Duration

	sent    metric.Int64Counter
	dropped metric.Int64Counter
}

// NewDispatcher creates a Dispatcher. Call Run to start delivery.
func NewDispatcher(sender Sender, size int, lg *zap.Logger, meter metric.Meter) (*Dispatcher, error) {
	if size <= 0 {
		size = DefaultQueueSize
	}
	sent, err := meter.Int64Counter("notify.sent",
		metric.WithDescription("Notifications delivered or failed"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create sent counter")
	}
	dropped, err := meter.Int64Counter("notify.dropped",
		metric.WithDescription("Notifications dropped because the queue was full"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create dropped counter")
	}
	return &Dispatcher{
		sender:  sender,
		queue:   make(chan Message, size),
		lg:      lg,
		timeout: 10 * time.Second,
		sent:    sent,
		dropped: dropped,
	}, nil
}

// Enqueue schedules msg for delivery and reports whether it was accepted.
func (d *Dispatcher) Enqueue(ctx context.Context, msg Message) bool {
	select {
	case d.queue <- msg:
		return true
	default:
		d.dropped.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(msg.Kind))))
		d.lg.Warn("Notification queue full, dropping message",
			zap.String("kind", string(msg.Kind)),
			zap.String("order_id", msg.OrderID),
		)
		return false
	}
}

// Run delivers queued messages until ctx is cancelled, then drains whatever
// is still buffered before returning.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case msg := <-d.queue:
			d.deliver(ctx, msg)
		case <-ctx.Done():
			d.drain()
			return nil
		}
	}
}

func (d *Dispatcher) drain() {
	ctx := context.Background()
	for {
		select {
		case msg := <-d.queue:
			d.deliver(ctx, msg)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, msg Message) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	result := "ok"
	if err := d.sender.Send(ctx, msg); err != nil {
		result = "error"
		d.lg.Error("Send notification",
			zap.Error(err),
			zap.String("kind", string(msg.Kind)),
			zap.String("order_id", msg.OrderID),
		)
	}
	d.sent.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", string(msg.Kind)),
		attribute.String("result", result),
	))
}
