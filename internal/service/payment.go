package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/flicky/go-marketplace-api/internal/apperr"
	"github.com/flicky/go-marketplace-api/internal/model"
	"github.com/flicky/go-marketplace-api/internal/repository"
)

// PaymentService receives gateway callbacks and turns them into payment
// state plus a settlement event. The gateway adapter itself (redirect URL
// creation, signature checks) lives outside this core.
type PaymentService struct {
	orderRepo repository.OrderRepository
	publisher EventPublisher
	log       *slog.Logger
}

func NewPaymentService(orderRepo repository.OrderRepository, publisher EventPublisher, log *slog.Logger) *PaymentService {
	return &PaymentService{orderRepo: orderRepo, publisher: publisher, log: log}
}

// HandleCallback processes one gateway result. resultCode 0 means success.
// Gateways may retry callbacks; a repeat on an already-paid order is
// acknowledged without publishing a second settlement event (the worker's
// idempotency key guards the remaining window).
func (s *PaymentService) HandleCallback(ctx context.Context, orderCode string, amount decimal.Decimal, resultCode int, transactionID string) error {
	order, err := s.orderRepo.GetByCode(ctx, orderCode)
	if err != nil {
		return fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return ErrOrderNotFound
	}

	if resultCode != 0 {
		if err := s.orderRepo.UpdatePaymentStatus(ctx, order.ID, model.PaymentStatusFailed, transactionID); err != nil {
			return fmt.Errorf("mark payment failed: %w", err)
		}
		s.log.Info("payment failed", "order_code", orderCode, "result_code", resultCode)
		return nil
	}

	if !amount.Equal(order.Total) {
		return apperr.Newf(apperr.InvalidState,
			"paid amount %s does not match order total %s", amount.StringFixed(0), order.Total.StringFixed(0))
	}
	if order.Payment.Status == model.PaymentStatusPaid {
		s.log.Info("duplicate payment callback ignored", "order_code", orderCode)
		return nil
	}

	if err := s.orderRepo.UpdatePaymentStatus(ctx, order.ID, model.PaymentStatusPaid, transactionID); err != nil {
		return fmt.Errorf("mark payment paid: %w", err)
	}
	if err := s.publisher.PublishPaymentEvent(ctx, model.PaymentEvent{
		Type:      model.PaymentEventPaid,
		OrderCode: orderCode,
		Amount:    amount,
		PaymentID: transactionID,
	}); err != nil {
		s.log.Error("publish payment event", "order_code", orderCode, "error", err)
	}
	return nil
}

// RequestRefund publishes a refund event for a paid order; the settlement
// worker performs the reversal.
func (s *PaymentService) RequestRefund(ctx context.Context, orderCode string) error {
	order, err := s.orderRepo.GetByCode(ctx, orderCode)
	if err != nil {
		return fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return ErrOrderNotFound
	}
	if order.Payment.Status != model.PaymentStatusPaid {
		return ErrOrderNotPaid
	}
	return s.publisher.PublishPaymentEvent(ctx, model.PaymentEvent{
		Type:      model.PaymentEventRefund,
		OrderCode: orderCode,
		Amount:    order.Total,
	})
}
