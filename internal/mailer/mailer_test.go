package mailer

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/go-faster/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xenking/sarit-store/internal/domain/notify"
)

type fakeChannel struct {
	declared   []string
	declareErr error
	publishErr error

	exchange string
	key      string
	msg      amqp.Publishing
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, _, _, _, _ bool, _ amqp.Table) error {
	f.declared = append(f.declared, name+"/"+kind)
	return f.declareErr
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.exchange, f.key, f.msg = exchange, key, msg
	return f.publishErr
}

func TestPublisher(t *testing.T) {
	ch := &fakeChannel{}
	p, err := NewPublisher(ch, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"notifications/topic"}, ch.declared)

	msg := notify.Message{
		Kind:    notify.KindOrderConfirmation,
		To:      "a@b.co",
		Subject: "Order SRT12345678 confirmed",
		OrderID: "SRT12345678",
	}
	require.NoError(t, p.Send(context.Background(), msg))

	assert.Equal(t, "notifications", ch.exchange)
	assert.Equal(t, "mail.order_confirmation", ch.key)
	assert.Equal(t, amqp.Persistent, ch.msg.DeliveryMode)
	assert.Equal(t, "application/json", ch.msg.ContentType)

	var got notify.Message
	require.NoError(t, json.Unmarshal(ch.msg.Body, &got))
	assert.Equal(t, msg, got)
}

func TestPublisherErrors(t *testing.T) {
	_, err := NewPublisher(&fakeChannel{declareErr: errors.New("closed")}, "mail")
	require.Error(t, err)

	p, err := NewPublisher(&fakeChannel{publishErr: errors.New("closed")}, "mail")
	require.NoError(t, err)
	err = p.Send(context.Background(), notify.Message{Kind: notify.KindOrderStatus})
	require.ErrorContains(t, err, "publish order_status")
}

func TestLogSender(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := NewLogSender(zap.New(core))

	require.NoError(t, s.Send(context.Background(), notify.Message{
		Kind: notify.KindOrderStatus, To: "a@b.co", OrderID: "SRT00000001",
	}))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "SRT00000001", entries[0].ContextMap()["order_id"])
}
