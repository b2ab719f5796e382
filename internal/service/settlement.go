package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/flicky/go-marketplace-api/internal/apperr"
	"github.com/flicky/go-marketplace-api/internal/model"
	"github.com/flicky/go-marketplace-api/internal/repository"
)

var ErrOrderNotPaid = apperr.New(apperr.InvalidState, "order is not paid")

// StorePayout is one store's slice of a settled order.
type StorePayout struct {
	StoreID     uuid.UUID
	Subtotal    decimal.Decimal
	PlatformFee decimal.Decimal
	Payout      decimal.Decimal
}

// SettlementService distributes a paid order's funds across the
// contributing stores' wallets minus the platform cut, and reverses the
// distribution on refund.
type SettlementService struct {
	orderRepo      repository.OrderRepository
	storeRepo      repository.StoreRepository
	walletRepo     repository.WalletRepository
	feePercent     int64
	treasuryUserID uuid.UUID
	log            *slog.Logger
}

func NewSettlementService(
	orderRepo repository.OrderRepository,
	storeRepo repository.StoreRepository,
	walletRepo repository.WalletRepository,
	feePercent int64,
	treasuryUserID uuid.UUID,
	log *slog.Logger,
) *SettlementService {
	return &SettlementService{
		orderRepo:      orderRepo,
		storeRepo:      storeRepo,
		walletRepo:     walletRepo,
		feePercent:     feePercent,
		treasuryUserID: treasuryUserID,
		log:            log,
	}
}

// ComputeSettlement splits an order between its stores. Order-level
// adjustments (shipping fee and both discounts) are split evenly across the
// N stores; the platform fee is proportional to each store's share of the
// subtotal. Amounts round to whole currency units, with the last store
// absorbing the rounding remainder, so payouts plus the platform fee always
// reconstruct the order total exactly.
func ComputeSettlement(order *model.Order, feePercent int64) ([]StorePayout, decimal.Decimal) {
	subtotals := map[uuid.UUID]decimal.Decimal{}
	var storeOrder []uuid.UUID
	for _, it := range order.Items {
		if _, ok := subtotals[it.StoreID]; !ok {
			storeOrder = append(storeOrder, it.StoreID)
		}
		subtotals[it.StoreID] = subtotals[it.StoreID].Add(it.Subtotal)
	}

	n := decimal.NewFromInt(int64(len(storeOrder)))
	if n.IsZero() {
		return nil, decimal.Zero
	}

	totalFee := order.Subtotal.
		Mul(decimal.NewFromInt(feePercent)).
		Div(decimal.NewFromInt(100)).
		Round(0)

	discountShare := order.Discount.Div(n)
	shippingShare := order.ShippingFee.Div(n)
	shipDiscShare := order.ShippingDiscount.Div(n)

	payouts := make([]StorePayout, 0, len(storeOrder))
	feeSum := decimal.Zero
	payoutSum := decimal.Zero
	for i, storeID := range storeOrder {
		storeSub := subtotals[storeID]
		last := i == len(storeOrder)-1

		var fee decimal.Decimal
		if last {
			fee = totalFee.Sub(feeSum)
		} else if order.Subtotal.IsPositive() {
			fee = totalFee.Mul(storeSub).Div(order.Subtotal).Round(0)
		}
		feeSum = feeSum.Add(fee)

		var payout decimal.Decimal
		if last {
			payout = order.Total.Sub(totalFee).Sub(payoutSum)
		} else {
			payout = storeSub.
				Sub(discountShare).
				Add(shippingShare).
				Sub(shipDiscShare).
				Sub(fee).
				Round(0)
		}
		if payout.IsNegative() {
			payout = decimal.Zero
		}
		payoutSum = payoutSum.Add(payout)

		payouts = append(payouts, StorePayout{
			StoreID:     storeID,
			Subtotal:    storeSub,
			PlatformFee: fee,
			Payout:      payout,
		})
	}
	return payouts, totalFee
}

// Settle credits every contributing store's wallet and the platform
// treasury for a paid order. Wallets are created lazily; each movement is a
// ledger transaction carrying the order code and payment id.
func (s *SettlementService) Settle(ctx context.Context, orderCode, paymentID string) error {
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

	payouts, totalFee := ComputeSettlement(order, s.feePercent)
	for _, p := range payouts {
		owner, err := s.storeOwner(ctx, p.StoreID)
		if err != nil {
			return err
		}
		err = s.walletRepo.Apply(ctx, owner, &model.WalletTransaction{
			Type:      model.TxDeposit,
			Amount:    p.Payout,
			Method:    string(order.Payment.Method),
			OrderCode: order.OrderCode,
			Status:    "completed",
			PaymentID: paymentID,
		})
		if err != nil {
			return fmt.Errorf("credit store %s: %w", p.StoreID, err)
		}
		s.log.Info("store payout settled",
			"order_code", order.OrderCode, "store_id", p.StoreID,
			"payout", p.Payout, "platform_fee", p.PlatformFee)
	}

	if totalFee.IsPositive() {
		err = s.walletRepo.Apply(ctx, s.treasuryUserID, &model.WalletTransaction{
			Type:      model.TxDeposit,
			Amount:    totalFee,
			Method:    string(order.Payment.Method),
			OrderCode: order.OrderCode,
			Status:    "completed",
			PaymentID: paymentID,
		})
		if err != nil {
			return fmt.Errorf("credit treasury: %w", err)
		}
	}
	return nil
}

// Refund reverses a settled order: pulls back each store's payout and the
// platform fee, then credits the buyer for the full refunded amount. A
// store wallet that can no longer cover its payout is logged as a shortfall
// and skipped rather than driven negative.
func (s *SettlementService) Refund(ctx context.Context, orderCode string) error {
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

	payouts, totalFee := ComputeSettlement(order, s.feePercent)
	for _, p := range payouts {
		owner, err := s.storeOwner(ctx, p.StoreID)
		if err != nil {
			return err
		}
		err = s.walletRepo.Apply(ctx, owner, &model.WalletTransaction{
			Type:      model.TxWithdraw,
			Amount:    p.Payout,
			Method:    string(order.Payment.Method),
			OrderCode: order.OrderCode,
			Status:    "completed",
		})
		if err != nil {
			if errors.Is(err, repository.ErrInsufficientBalance) {
				s.log.Warn("refund shortfall, store wallet not debited",
					"order_code", order.OrderCode, "store_id", p.StoreID, "amount", p.Payout)
				continue
			}
			return fmt.Errorf("debit store %s: %w", p.StoreID, err)
		}
	}

	if totalFee.IsPositive() {
		err = s.walletRepo.Apply(ctx, s.treasuryUserID, &model.WalletTransaction{
			Type:      model.TxWithdraw,
			Amount:    totalFee,
			Method:    string(order.Payment.Method),
			OrderCode: order.OrderCode,
			Status:    "completed",
		})
		if err != nil {
			if errors.Is(err, repository.ErrInsufficientBalance) {
				s.log.Warn("refund shortfall, treasury not debited",
					"order_code", order.OrderCode, "amount", totalFee)
			} else {
				return fmt.Errorf("debit treasury: %w", err)
			}
		}
	}

	err = s.walletRepo.Apply(ctx, order.UserID, &model.WalletTransaction{
		Type:      model.TxRefund,
		Amount:    order.Total,
		Method:    string(order.Payment.Method),
		OrderCode: order.OrderCode,
		Status:    "completed",
	})
	if err != nil {
		return fmt.Errorf("credit buyer refund: %w", err)
	}
	return nil
}

func (s *SettlementService) storeOwner(ctx context.Context, storeID uuid.UUID) (uuid.UUID, error) {
	store, err := s.storeRepo.GetByID(ctx, storeID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("get store: %w", err)
	}
	if store == nil {
		return uuid.Nil, apperr.Newf(apperr.NotFound, "store %s not found", storeID)
	}
	return store.OwnerUserID, nil
}
