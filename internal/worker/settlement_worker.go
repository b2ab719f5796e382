package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/flicky/go-marketplace-api/internal/model"
	"github.com/flicky/go-marketplace-api/internal/service"
)

const idempotencyTTL = 24 * time.Hour

// SettlementWorker consumes payment events and runs fund distribution. The
// status check inside the settlement service is not enough under gateway
// callback retries, so each (orderCode, event type) pair is additionally
// gated through a Redis idempotency key.
type SettlementWorker struct {
	channel       *amqp.Channel
	settlementSvc *service.SettlementService
	redisClient   *redis.Client
	log           *slog.Logger
	done          chan struct{}
}

func NewSettlementWorker(
	ch *amqp.Channel,
	settlementSvc *service.SettlementService,
	redisClient *redis.Client,
	log *slog.Logger,
) *SettlementWorker {
	return &SettlementWorker{
		channel:       ch,
		settlementSvc: settlementSvc,
		redisClient:   redisClient,
		log:           log,
		done:          make(chan struct{}),
	}
}

func (w *SettlementWorker) Start(ctx context.Context) error {
	msgs, err := w.channel.Consume(paymentQueueName, "", false, false, false, false, nil)
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

	w.log.Info("settlement worker started")
	return nil
}

func (w *SettlementWorker) Stop() { close(w.done) }

func (w *SettlementWorker) processMessage(ctx context.Context, msg amqp.Delivery) {
	var ev model.PaymentEvent
	if err := json.Unmarshal(msg.Body, &ev); err != nil {
		w.log.Error("unmarshal payment event", "error", err)
		_ = msg.Nack(false, false)
		return
	}

	log := w.log.With("order_code", ev.OrderCode, "event", ev.Type)

	key := "settlement:" + ev.OrderCode + ":" + ev.Type
	set, err := w.redisClient.SetNX(ctx, key, "1", idempotencyTTL).Result()
	if err != nil {
		log.Error("check idempotency key", "error", err)
		_ = msg.Nack(false, true)
		return
	}
	if !set {
		log.Info("settlement already processed, skipping")
		_ = msg.Ack(false)
		return
	}

	switch ev.Type {
	case model.PaymentEventPaid:
		err = w.settlementSvc.Settle(ctx, ev.OrderCode, ev.PaymentID)
	case model.PaymentEventRefund:
		err = w.settlementSvc.Refund(ctx, ev.OrderCode)
	default:
		log.Error("unknown payment event type")
		_ = msg.Nack(false, false)
		return
	}
	if err != nil {
		// release the key so a requeue can run; invalid-state failures go
		// straight to the DLQ since a retry cannot fix them
		w.redisClient.Del(ctx, key)
		if errors.Is(err, service.ErrOrderNotPaid) || errors.Is(err, service.ErrOrderNotFound) {
			log.Error("settlement rejected", "error", err)
			_ = msg.Nack(false, false)
			return
		}
		log.Error("settlement failed", "error", err)
		_ = msg.Nack(false, true)
		return
	}

	_ = msg.Ack(false)
	log.Info("settlement processed")
}
