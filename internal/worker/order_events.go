package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/flicky/go-marketplace-api/internal/model"
	"github.com/flicky/go-marketplace-api/internal/repository"
	"github.com/flicky/go-marketplace-api/internal/service"
)

// OrderEventWorker drives the best-effort side effects (buyer notification,
// transactional email) off the order path: a failed email can never fail or
// roll back an order.
type OrderEventWorker struct {
	channel   *amqp.Channel
	orderRepo repository.OrderRepository
	userRepo  repository.UserRepository
	notify    service.NotificationSink
	email     service.EmailSink
	log       *slog.Logger
	done      chan struct{}
}

func NewOrderEventWorker(
	ch *amqp.Channel,
	orderRepo repository.OrderRepository,
	userRepo repository.UserRepository,
	notify service.NotificationSink,
	email service.EmailSink,
	log *slog.Logger,
) *OrderEventWorker {
	return &OrderEventWorker{
		channel:   ch,
		orderRepo: orderRepo,
		userRepo:  userRepo,
		notify:    notify,
		email:     email,
		log:       log,
		done:      make(chan struct{}),
	}
}

func (w *OrderEventWorker) Start(ctx context.Context) error {
	msgs, err := w.channel.Consume(orderEventQueueName, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	go func() {
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				w.processMessage(ctx, msg)
			case <-w.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	w.log.Info("order event worker started")
	return nil
}

func (w *OrderEventWorker) Stop() { close(w.done) }

func (w *OrderEventWorker) processMessage(ctx context.Context, msg amqp.Delivery) {
	var ev model.OrderEvent
	if err := json.Unmarshal(msg.Body, &ev); err != nil {
		w.log.Error("unmarshal order event", "error", err)
		_ = msg.Nack(false, false)
		return
	}

	// side effects are best-effort: log failures, always ack
	if err := w.handle(ctx, ev); err != nil {
		w.log.Error("order event side effects", "order_code", ev.OrderCode, "event", ev.Type, "error", err)
	}
	_ = msg.Ack(false)
}

func (w *OrderEventWorker) handle(ctx context.Context, ev model.OrderEvent) error {
	order, err := w.orderRepo.GetByCode(ctx, ev.OrderCode)
	if err != nil {
		return fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return fmt.Errorf("order not found: %s", ev.OrderCode)
	}
	user, err := w.userRepo.GetByID(ctx, order.UserID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return fmt.Errorf("user not found: %s", order.UserID)
	}

	switch ev.Type {
	case model.OrderEventCreated:
		if err := w.notify.Notify(ctx, user.ID, service.Notification{
			Type:      "order",
			Title:     "Order placed",
			Message:   fmt.Sprintf("Your order %s has been placed", order.OrderCode),
			RelatedID: order.OrderCode,
			Link:      "/orders/" + order.OrderCode,
		}); err != nil {
			w.log.Error("notify order created", "order_code", order.OrderCode, "error", err)
		}
		service.SendEmailWithRetry(ctx, w.log, user, "order-confirmation", func() error {
			return w.email.SendOrderConfirmation(ctx, order, user)
		})
	case model.OrderEventDelivered:
		if err := w.notify.Notify(ctx, user.ID, service.Notification{
			Type:      "order",
			Title:     "Order delivered",
			Message:   fmt.Sprintf("Your order %s has been delivered", order.OrderCode),
			RelatedID: order.OrderCode,
			Link:      "/orders/" + order.OrderCode,
		}); err != nil {
			w.log.Error("notify order delivered", "order_code", order.OrderCode, "error", err)
		}
		service.SendEmailWithRetry(ctx, w.log, user, "order-delivered", func() error {
			return w.email.SendOrderDelivered(ctx, order, user)
		})
	}
	return nil
}
