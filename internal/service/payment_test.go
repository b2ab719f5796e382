package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flicky/go-marketplace-api/internal/apperr"
	"github.com/flicky/go-marketplace-api/internal/model"
)

func paidCallbackFixture() (*mockOrderRepo, *mockPublisher, *PaymentService, *model.Order) {
	orderRepo := newMockOrderRepo()
	publisher := &mockPublisher{}
	order := &model.Order{
		ID:        uuid.New(),
		OrderCode: "ORD-20260615-PAY00001",
		UserID:    uuid.New(),
		Total:     decimal.NewFromInt(150000),
		Payment:   model.PaymentInfo{Method: model.PaymentMomo, Status: model.PaymentStatusPending},
	}
	orderRepo.orders[order.OrderCode] = order
	return orderRepo, publisher, NewPaymentService(orderRepo, publisher, testLogger), order
}

func TestPaymentService_HandleCallback_Success(t *testing.T) {
	_, publisher, svc, order := paidCallbackFixture()

	err := svc.HandleCallback(context.Background(), order.OrderCode, order.Total, 0, "txn-1")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPaid, order.Payment.Status)
	assert.Equal(t, "txn-1", order.Payment.PaymentID)

	require.Len(t, publisher.paymentEvents, 1)
	assert.Equal(t, model.PaymentEventPaid, publisher.paymentEvents[0].Type)
	assert.True(t, publisher.paymentEvents[0].Amount.Equal(order.Total))
}

func TestPaymentService_HandleCallback_GatewayFailure(t *testing.T) {
	_, publisher, svc, order := paidCallbackFixture()

	err := svc.HandleCallback(context.Background(), order.OrderCode, order.Total, 9, "txn-1")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusFailed, order.Payment.Status)
	assert.Empty(t, publisher.paymentEvents)
}

func TestPaymentService_HandleCallback_AmountMismatch(t *testing.T) {
	_, _, svc, order := paidCallbackFixture()

	err := svc.HandleCallback(context.Background(), order.OrderCode, decimal.NewFromInt(1), 0, "txn-1")
	require.Error(t, err)
	assert.Equal(t, apperr.InvalidState, apperr.KindOf(err))
	assert.Equal(t, model.PaymentStatusPending, order.Payment.Status)
}

func TestPaymentService_HandleCallback_DuplicateIgnored(t *testing.T) {
	_, publisher, svc, order := paidCallbackFixture()

	require.NoError(t, svc.HandleCallback(context.Background(), order.OrderCode, order.Total, 0, "txn-1"))
	require.NoError(t, svc.HandleCallback(context.Background(), order.OrderCode, order.Total, 0, "txn-1"))
	assert.Len(t, publisher.paymentEvents, 1, "gateway retry does not publish a second event")
}

func TestPaymentService_RequestRefund(t *testing.T) {
	_, publisher, svc, order := paidCallbackFixture()
	order.Payment.Status = model.PaymentStatusPaid

	require.NoError(t, svc.RequestRefund(context.Background(), order.OrderCode))
	require.Len(t, publisher.paymentEvents, 1)
	assert.Equal(t, model.PaymentEventRefund, publisher.paymentEvents[0].Type)
	assert.True(t, publisher.paymentEvents[0].Amount.Equal(order.Total))
}

func TestPaymentService_RequestRefund_UnpaidRejected(t *testing.T) {
	_, _, svc, order := paidCallbackFixture()
	err := svc.RequestRefund(context.Background(), order.OrderCode)
	assert.ErrorIs(t, err, ErrOrderNotPaid)
}
