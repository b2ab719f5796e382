package worker

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/flicky/go-marketplace-api/internal/model"
)

const (
	paymentQueueName    = "payments"
	orderEventQueueName = "order-events"
	dlxExchange         = "marketplace.dlx"
	dlqQueueName        = "marketplace.dlq"
)

// SetupRabbitMQ declares the payment and order-event queues with a shared
// DLX/DLQ.
func SetupRabbitMQ(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(dlxExchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare DLX: %w", err)
	}
	if _, err := ch.QueueDeclare(dlqQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare DLQ: %w", err)
	}
	for _, queue := range []string{paymentQueueName, orderEventQueueName} {
		if err := ch.QueueBind(dlqQueueName, queue, dlxExchange, false, nil); err != nil {
			return fmt.Errorf("bind DLQ: %w", err)
		}
		if _, err := ch.QueueDeclare(queue, true, false, false, false, amqp.Table{
			"x-dead-letter-exchange":    dlxExchange,
			"x-dead-letter-routing-key": queue,
		}); err != nil {
			return fmt.Errorf("declare queue %s: %w", queue, err)
		}
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set QoS: %w", err)
	}
	return nil
}

// Publisher emits domain events onto RabbitMQ; it satisfies the services'
// EventPublisher dependency.
type Publisher struct {
	channel *amqp.Channel
}

func NewPublisher(ch *amqp.Channel) *Publisher {
	return &Publisher{channel: ch}
}

func (p *Publisher) PublishPaymentEvent(ctx context.Context, ev model.PaymentEvent) error {
	return p.publish(ctx, paymentQueueName, ev)
}

func (p *Publisher) PublishOrderEvent(ctx context.Context, ev model.OrderEvent) error {
	return p.publish(ctx, orderEventQueueName, ev)
}

func (p *Publisher) publish(ctx context.Context, queue string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return p.channel.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
	})
}
