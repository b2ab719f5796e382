package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/flicky/go-marketplace-api/internal/apperr"
	"github.com/flicky/go-marketplace-api/internal/model"
	"github.com/flicky/go-marketplace-api/internal/repository"
)

var (
	ErrVoucherNotFound    = apperr.New(apperr.NotFound, "voucher not found or inactive")
	ErrVoucherExpired     = apperr.New(apperr.InvalidState, "voucher expired or not started")
	ErrVoucherScope       = apperr.New(apperr.InvalidState, "voucher does not apply to any store in this order")
	ErrVoucherUsedOnce    = apperr.New(apperr.InvalidState, "voucher can only be used once per customer")
	ErrVoucherLimit       = apperr.New(apperr.InvalidState, "voucher usage limit reached")
	ErrNotVoucherOwner    = apperr.New(apperr.Forbidden, "voucher belongs to another store")
)

// CheckoutContext is the candidate order a voucher is resolved against.
type CheckoutContext struct {
	UserID      uuid.UUID
	Subtotal    decimal.Decimal
	ShippingFee decimal.Decimal
	StoreIDs    []uuid.UUID
}

// AppliedVoucher is one successfully resolved voucher slot.
type AppliedVoucher struct {
	Voucher  *model.Voucher
	Discount decimal.Decimal
}

// RedeemedVouchers holds both slots of a checkout, plus enough to undo the
// consumption if order creation fails afterwards.
type RedeemedVouchers struct {
	Product  *AppliedVoucher
	Freeship *AppliedVoucher
}

func (r *RedeemedVouchers) Discount() decimal.Decimal {
	if r.Product == nil {
		return decimal.Zero
	}
	return r.Product.Discount
}

func (r *RedeemedVouchers) ShippingDiscount() decimal.Decimal {
	if r.Freeship == nil {
		return decimal.Zero
	}
	return r.Freeship.Discount
}

func (r *RedeemedVouchers) ProductCode() string {
	if r.Product == nil {
		return ""
	}
	return r.Product.Voucher.Code
}

func (r *RedeemedVouchers) FreeshipCode() string {
	if r.Freeship == nil {
		return ""
	}
	return r.Freeship.Voucher.Code
}

// VoucherService decides which vouchers apply to a checkout, validates
// them, and atomically consumes them. Usability is evaluated fresh on every
// call; usage counters move under concurrent checkouts, so nothing here is
// cached.
type VoucherService struct {
	voucherRepo repository.VoucherRepository
	storeRepo   repository.StoreRepository
	now         func() time.Time
}

func NewVoucherService(voucherRepo repository.VoucherRepository, storeRepo repository.StoreRepository) *VoucherService {
	return &VoucherService{voucherRepo: voucherRepo, storeRepo: storeRepo, now: time.Now}
}

// Resolve runs the full eligibility check for one code without consuming
// it. This is the preview path; Redeem adds the consumption step.
func (s *VoucherService) Resolve(ctx context.Context, code string, co CheckoutContext) (*AppliedVoucher, error) {
	voucher, err := s.voucherRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("get voucher: %w", err)
	}
	if voucher == nil || !voucher.IsActive {
		return nil, ErrVoucherNotFound
	}
	if !voucher.WithinWindow(s.now()) {
		return nil, ErrVoucherExpired
	}
	if co.Subtotal.LessThan(voucher.MinOrderValue) {
		return nil, apperr.Newf(apperr.InvalidState,
			"order must be at least %s to use voucher %s", voucher.MinOrderValue.StringFixed(0), voucher.Code)
	}
	ok, err := s.scopeMatches(ctx, voucher, co.StoreIDs)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrVoucherScope
	}
	used, err := s.voucherRepo.HasRedeemed(ctx, voucher.ID, co.UserID)
	if err != nil {
		return nil, fmt.Errorf("check redemption: %w", err)
	}
	if used {
		return nil, ErrVoucherUsedOnce
	}
	if voucher.UsedCount >= voucher.UsageLimit {
		return nil, ErrVoucherLimit
	}

	base := co.Subtotal
	if voucher.VoucherType == model.VoucherFreeship {
		base = co.ShippingFee
	}
	return &AppliedVoucher{Voucher: voucher, Discount: voucher.Discount(base)}, nil
}

// Redeem resolves and consumes one code. The consumption is a constrained
// insert; a concurrent checkout by the same user loses the race at the
// database and surfaces as "already used", never as a double spend.
func (s *VoucherService) Redeem(ctx context.Context, code string, co CheckoutContext, orderCode string) (*AppliedVoucher, error) {
	applied, err := s.Resolve(ctx, code, co)
	if err != nil {
		return nil, err
	}
	red := &model.VoucherRedemption{
		VoucherID: applied.Voucher.ID,
		UserID:    co.UserID,
		OrderCode: orderCode,
		Amount:    applied.Discount,
	}
	if err := s.voucherRepo.Redeem(ctx, red); err != nil {
		switch {
		case errors.Is(err, repository.ErrAlreadyRedeemed):
			return nil, ErrVoucherUsedOnce
		case errors.Is(err, repository.ErrLimitReached):
			return nil, ErrVoucherLimit
		}
		return nil, fmt.Errorf("redeem voucher: %w", err)
	}
	return applied, nil
}

// RedeemForOrder fills at most one product slot and one freeship slot. A
// legacy single code (no product/freeship split) lands in the bucket its
// own voucherType names.
func (s *VoucherService) RedeemForOrder(ctx context.Context, co CheckoutContext, productCode, freeshipCode, legacyCode, orderCode string) (*RedeemedVouchers, error) {
	if legacyCode != "" && productCode == "" && freeshipCode == "" {
		voucher, err := s.voucherRepo.GetByCode(ctx, legacyCode)
		if err != nil {
			return nil, fmt.Errorf("get voucher: %w", err)
		}
		if voucher == nil {
			return nil, ErrVoucherNotFound
		}
		if voucher.VoucherType == model.VoucherFreeship {
			freeshipCode = legacyCode
		} else {
			productCode = legacyCode
		}
	}

	result := &RedeemedVouchers{}
	if productCode != "" {
		applied, err := s.Redeem(ctx, productCode, co, orderCode)
		if err != nil {
			return nil, err
		}
		if applied.Voucher.VoucherType != model.VoucherProduct {
			_ = s.voucherRepo.Release(ctx, applied.Voucher.ID, co.UserID)
			return nil, apperr.New(apperr.InvalidInput, "voucher is not a product voucher")
		}
		result.Product = applied
	}
	if freeshipCode != "" {
		applied, err := s.Redeem(ctx, freeshipCode, co, orderCode)
		if err != nil {
			// keep the two slots all-or-nothing
			s.ReleaseAll(ctx, co.UserID, result)
			return nil, err
		}
		if applied.Voucher.VoucherType != model.VoucherFreeship {
			_ = s.voucherRepo.Release(ctx, applied.Voucher.ID, co.UserID)
			s.ReleaseAll(ctx, co.UserID, result)
			return nil, apperr.New(apperr.InvalidInput, "voucher is not a freeship voucher")
		}
		result.Freeship = applied
	}
	return result, nil
}

// ReleaseAll is the compensation step: un-consume whatever was redeemed
// when a later checkout step fails.
func (s *VoucherService) ReleaseAll(ctx context.Context, userID uuid.UUID, rv *RedeemedVouchers) {
	if rv == nil {
		return
	}
	if rv.Product != nil {
		_ = s.voucherRepo.Release(ctx, rv.Product.Voucher.ID, userID)
	}
	if rv.Freeship != nil {
		_ = s.voucherRepo.Release(ctx, rv.Freeship.Voucher.ID, userID)
	}
}

// Preview lists the active vouchers eligible for the given checkout,
// read-only, for UI display before the buyer commits.
func (s *VoucherService) Preview(ctx context.Context, co CheckoutContext) ([]AppliedVoucher, error) {
	vouchers, err := s.voucherRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list vouchers: %w", err)
	}

	var eligible []AppliedVoucher
	for i := range vouchers {
		applied, err := s.Resolve(ctx, vouchers[i].Code, co)
		if err != nil {
			continue
		}
		eligible = append(eligible, *applied)
	}
	return eligible, nil
}

func (s *VoucherService) scopeMatches(ctx context.Context, v *model.Voucher, storeIDs []uuid.UUID) (bool, error) {
	switch v.Scope {
	case model.ScopeGlobal:
		return true, nil
	case model.ScopeStore:
		if v.StoreID == nil {
			return false, nil
		}
		for _, id := range storeIDs {
			if id == *v.StoreID {
				return true, nil
			}
		}
		return false, nil
	case model.ScopeCategories:
		stores, err := s.storeRepo.ListByIDs(ctx, storeIDs)
		if err != nil {
			return false, fmt.Errorf("list stores: %w", err)
		}
		for _, st := range stores {
			for _, cat := range v.Categories {
				if st.Category == cat {
					return true, nil
				}
			}
		}
		return false, nil
	}
	return false, nil
}

// --- seller voucher management ---

func (s *VoucherService) CreateStoreVoucher(ctx context.Context, sellerID uuid.UUID, v *model.Voucher) error {
	store, err := s.storeRepo.GetByOwner(ctx, sellerID)
	if err != nil {
		return fmt.Errorf("get store: %w", err)
	}
	if store == nil {
		return apperr.New(apperr.NotFound, "store not found")
	}
	v.Scope = model.ScopeStore
	v.StoreID = &store.ID
	if err := s.voucherRepo.Create(ctx, v); err != nil {
		return fmt.Errorf("create voucher: %w", err)
	}
	return nil
}

func (s *VoucherService) UpdateStoreVoucher(ctx context.Context, sellerID uuid.UUID, v *model.Voucher) error {
	existing, err := s.voucherRepo.GetByCode(ctx, v.Code)
	if err != nil {
		return fmt.Errorf("get voucher: %w", err)
	}
	if existing == nil {
		return ErrVoucherNotFound
	}
	store, err := s.storeRepo.GetByOwner(ctx, sellerID)
	if err != nil {
		return fmt.Errorf("get store: %w", err)
	}
	if store == nil || existing.StoreID == nil || *existing.StoreID != store.ID {
		return ErrNotVoucherOwner
	}
	v.ID = existing.ID
	v.StoreID = existing.StoreID
	v.Scope = model.ScopeStore
	if err := s.voucherRepo.Update(ctx, v); err != nil {
		return fmt.Errorf("update voucher: %w", err)
	}
	return nil
}
