package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flicky/go-marketplace-api/internal/model"
)

func twoStoreOrder(storeA, storeB uuid.UUID) *model.Order {
	subtotal := decimal.NewFromInt(200000)
	return &model.Order{
		OrderCode: "ORD-20260615-TEST0001",
		UserID:    uuid.New(),
		Items: []model.OrderItem{
			{StoreID: storeA, Subtotal: decimal.NewFromInt(150000)},
			{StoreID: storeB, Subtotal: decimal.NewFromInt(50000)},
		},
		Subtotal: subtotal,
		Total:    subtotal,
		Payment:  model.PaymentInfo{Method: model.PaymentMomo, Status: model.PaymentStatusPaid},
	}
}

func TestComputeSettlement_ProportionalFeeSplit(t *testing.T) {
	storeA, storeB := uuid.New(), uuid.New()
	order := twoStoreOrder(storeA, storeB)

	payouts, totalFee := ComputeSettlement(order, 10)
	require.Len(t, payouts, 2)
	assert.True(t, totalFee.Equal(decimal.NewFromInt(20000)))

	assert.Equal(t, storeA, payouts[0].StoreID)
	assert.True(t, payouts[0].PlatformFee.Equal(decimal.NewFromInt(15000)),
		"store A fee = 20000 x (150000/200000)")
	assert.True(t, payouts[0].Payout.Equal(decimal.NewFromInt(135000)))

	assert.Equal(t, storeB, payouts[1].StoreID)
	assert.True(t, payouts[1].PlatformFee.Equal(decimal.NewFromInt(5000)))
	assert.True(t, payouts[1].Payout.Equal(decimal.NewFromInt(45000)))
}

func TestComputeSettlement_Conservation(t *testing.T) {
	// three stores with awkward subtotals force rounding remainders
	order := &model.Order{
		Items: []model.OrderItem{
			{StoreID: uuid.New(), Subtotal: decimal.NewFromInt(33333)},
			{StoreID: uuid.New(), Subtotal: decimal.NewFromInt(33333)},
			{StoreID: uuid.New(), Subtotal: decimal.NewFromInt(33334)},
		},
		Subtotal:         decimal.NewFromInt(100000),
		ShippingFee:      decimal.NewFromInt(25000),
		Discount:         decimal.NewFromInt(10000),
		ShippingDiscount: decimal.NewFromInt(5000),
		Total:            decimal.NewFromInt(110000),
	}

	payouts, totalFee := ComputeSettlement(order, 7)

	sum := totalFee
	for _, p := range payouts {
		sum = sum.Add(p.Payout)
	}
	assert.True(t, sum.Equal(order.Total),
		"payouts plus platform fee reconstruct the order total exactly, got %s", sum)
}

func TestComputeSettlement_GroupsItemsByStore(t *testing.T) {
	storeID := uuid.New()
	order := &model.Order{
		Items: []model.OrderItem{
			{StoreID: storeID, Subtotal: decimal.NewFromInt(60000)},
			{StoreID: storeID, Subtotal: decimal.NewFromInt(40000)},
		},
		Subtotal: decimal.NewFromInt(100000),
		Total:    decimal.NewFromInt(100000),
	}

	payouts, totalFee := ComputeSettlement(order, 10)
	require.Len(t, payouts, 1)
	assert.True(t, payouts[0].Subtotal.Equal(decimal.NewFromInt(100000)))
	assert.True(t, payouts[0].Payout.Equal(decimal.NewFromInt(90000)))
	assert.True(t, totalFee.Equal(decimal.NewFromInt(10000)))
}

func TestSettlementService_Settle_CreditsStoresAndTreasury(t *testing.T) {
	orderRepo := newMockOrderRepo()
	storeRepo := newMockStoreRepo()
	walletRepo := newMockWalletRepo()

	ownerA, ownerB := uuid.New(), uuid.New()
	storeA := storeRepo.addStore(ownerA, "electronics")
	storeB := storeRepo.addStore(ownerB, "books")
	treasury := uuid.New()

	order := twoStoreOrder(storeA.ID, storeB.ID)
	orderRepo.orders[order.OrderCode] = order

	svc := NewSettlementService(orderRepo, storeRepo, walletRepo, 10, treasury, testLogger)
	require.NoError(t, svc.Settle(context.Background(), order.OrderCode, "pay-1"))

	assert.True(t, walletRepo.balances[ownerA].Equal(decimal.NewFromInt(135000)))
	assert.True(t, walletRepo.balances[ownerB].Equal(decimal.NewFromInt(45000)))
	assert.True(t, walletRepo.balances[treasury].Equal(decimal.NewFromInt(20000)))

	// ledger rows carry the order code
	require.Len(t, walletRepo.ledgers[ownerA], 1)
	assert.Equal(t, order.OrderCode, walletRepo.ledgers[ownerA][0].OrderCode)
	assert.Equal(t, model.TxDeposit, walletRepo.ledgers[ownerA][0].Type)
}

func TestSettlementService_Settle_UnpaidRejected(t *testing.T) {
	orderRepo := newMockOrderRepo()
	storeRepo := newMockStoreRepo()
	store := storeRepo.addStore(uuid.New(), "misc")

	order := twoStoreOrder(store.ID, store.ID)
	order.Payment.Status = model.PaymentStatusPending
	orderRepo.orders[order.OrderCode] = order

	svc := NewSettlementService(orderRepo, storeRepo, newMockWalletRepo(), 10, uuid.New(), testLogger)
	err := svc.Settle(context.Background(), order.OrderCode, "")
	assert.ErrorIs(t, err, ErrOrderNotPaid)
}

func TestSettlementService_Refund_ReversesSettlement(t *testing.T) {
	orderRepo := newMockOrderRepo()
	storeRepo := newMockStoreRepo()
	walletRepo := newMockWalletRepo()

	owner := uuid.New()
	store := storeRepo.addStore(owner, "misc")
	treasury := uuid.New()
	buyer := uuid.New()

	order := &model.Order{
		OrderCode: "ORD-20260615-REFUND01",
		UserID:    buyer,
		Items:     []model.OrderItem{{StoreID: store.ID, Subtotal: decimal.NewFromInt(100000)}},
		Subtotal:  decimal.NewFromInt(100000),
		Total:     decimal.NewFromInt(100000),
		Payment:   model.PaymentInfo{Method: model.PaymentMomo, Status: model.PaymentStatusPaid},
	}
	orderRepo.orders[order.OrderCode] = order

	svc := NewSettlementService(orderRepo, storeRepo, walletRepo, 10, treasury, testLogger)
	require.NoError(t, svc.Settle(context.Background(), order.OrderCode, "pay-1"))
	require.NoError(t, svc.Refund(context.Background(), order.OrderCode))

	assert.True(t, walletRepo.balances[owner].IsZero(), "store payout pulled back")
	assert.True(t, walletRepo.balances[treasury].IsZero(), "platform fee pulled back")
	assert.True(t, walletRepo.balances[buyer].Equal(decimal.NewFromInt(100000)), "buyer made whole")
}

func TestSettlementService_Refund_ShortfallTolerated(t *testing.T) {
	orderRepo := newMockOrderRepo()
	storeRepo := newMockStoreRepo()
	walletRepo := newMockWalletRepo()

	owner := uuid.New()
	store := storeRepo.addStore(owner, "misc")
	buyer := uuid.New()

	order := &model.Order{
		OrderCode: "ORD-20260615-SHORT001",
		UserID:    buyer,
		Items:     []model.OrderItem{{StoreID: store.ID, Subtotal: decimal.NewFromInt(100000)}},
		Subtotal:  decimal.NewFromInt(100000),
		Total:     decimal.NewFromInt(100000),
		Payment:   model.PaymentInfo{Method: model.PaymentMomo, Status: model.PaymentStatusPaid},
	}
	orderRepo.orders[order.OrderCode] = order

	// store wallet already drained; refund still credits the buyer
	svc := NewSettlementService(orderRepo, storeRepo, walletRepo, 0, uuid.New(), testLogger)
	require.NoError(t, svc.Refund(context.Background(), order.OrderCode))
	assert.True(t, walletRepo.balances[owner].IsZero())
	assert.True(t, walletRepo.balances[buyer].Equal(decimal.NewFromInt(100000)))
}
