package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flicky/go-marketplace-api/internal/model"
	"github.com/flicky/go-marketplace-api/internal/repository"
)

type redemptionKey struct {
	voucherID uuid.UUID
	userID    uuid.UUID
}

type mockVoucherRepo struct {
	vouchers    map[string]*model.Voucher
	redemptions map[redemptionKey]*model.VoucherRedemption
}

func newMockVoucherRepo() *mockVoucherRepo {
	return &mockVoucherRepo{
		vouchers:    make(map[string]*model.Voucher),
		redemptions: make(map[redemptionKey]*model.VoucherRedemption),
	}
}

func (m *mockVoucherRepo) Create(_ context.Context, v *model.Voucher) error {
	v.ID = uuid.New()
	m.vouchers[v.Code] = v
	return nil
}

func (m *mockVoucherRepo) Update(_ context.Context, v *model.Voucher) error {
	m.vouchers[v.Code] = v
	return nil
}

func (m *mockVoucherRepo) Delete(_ context.Context, id uuid.UUID) error {
	for code, v := range m.vouchers {
		if v.ID == id {
			delete(m.vouchers, code)
		}
	}
	return nil
}

func (m *mockVoucherRepo) GetByCode(_ context.Context, code string) (*model.Voucher, error) {
	return m.vouchers[model.NormalizeVoucherCode(code)], nil
}

func (m *mockVoucherRepo) ListActive(_ context.Context) ([]model.Voucher, error) {
	var out []model.Voucher
	for _, v := range m.vouchers {
		if v.IsActive {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (m *mockVoucherRepo) ListByStore(_ context.Context, storeID uuid.UUID) ([]model.Voucher, error) {
	var out []model.Voucher
	for _, v := range m.vouchers {
		if v.StoreID != nil && *v.StoreID == storeID {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (m *mockVoucherRepo) Redeem(_ context.Context, red *model.VoucherRedemption) error {
	key := redemptionKey{red.VoucherID, red.UserID}
	if _, ok := m.redemptions[key]; ok {
		return repository.ErrAlreadyRedeemed
	}
	for _, v := range m.vouchers {
		if v.ID == red.VoucherID {
			if v.UsedCount >= v.UsageLimit {
				return repository.ErrLimitReached
			}
			v.UsedCount++
		}
	}
	red.ID = uuid.New()
	m.redemptions[key] = red
	return nil
}

func (m *mockVoucherRepo) Release(_ context.Context, voucherID, userID uuid.UUID) error {
	key := redemptionKey{voucherID, userID}
	if _, ok := m.redemptions[key]; !ok {
		return nil
	}
	delete(m.redemptions, key)
	for _, v := range m.vouchers {
		if v.ID == voucherID && v.UsedCount > 0 {
			v.UsedCount--
		}
	}
	return nil
}

func (m *mockVoucherRepo) HasRedeemed(_ context.Context, voucherID, userID uuid.UUID) (bool, error) {
	_, ok := m.redemptions[redemptionKey{voucherID, userID}]
	return ok, nil
}

func (m *mockVoucherRepo) addVoucher(v model.Voucher) *model.Voucher {
	v.ID = uuid.New()
	v.Code = model.NormalizeVoucherCode(v.Code)
	if v.Scope == "" {
		v.Scope = model.ScopeGlobal
	}
	v.IsActive = true
	m.vouchers[v.Code] = &v
	return &v
}

func testVoucherService(repo *mockVoucherRepo, storeRepo *mockStoreRepo) *VoucherService {
	svc := NewVoucherService(repo, storeRepo)
	svc.now = func() time.Time { return time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC) }
	return svc
}

func validWindow() (time.Time, time.Time) {
	return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)
}

func TestVoucherService_Resolve_FixedDiscount(t *testing.T) {
	repo := newMockVoucherRepo()
	start, end := validWindow()
	repo.addVoucher(model.Voucher{
		Code: "SAVE20K", DiscountType: model.DiscountFixed,
		DiscountValue: decimal.NewFromInt(20000), MinOrderValue: decimal.NewFromInt(100000),
		VoucherType: model.VoucherProduct, StartDate: start, EndDate: end, UsageLimit: 10,
	})
	svc := testVoucherService(repo, newMockStoreRepo())

	applied, err := svc.Resolve(context.Background(), "SAVE20K", CheckoutContext{
		UserID: uuid.New(), Subtotal: decimal.NewFromInt(200000),
	})
	require.NoError(t, err)
	assert.True(t, applied.Discount.Equal(decimal.NewFromInt(20000)))
}

func TestVoucherService_Resolve_PercentCappedByMaxDiscount(t *testing.T) {
	repo := newMockVoucherRepo()
	start, end := validWindow()
	maxDisc := decimal.NewFromInt(15000)
	repo.addVoucher(model.Voucher{
		Code: "TEN", DiscountType: model.DiscountPercent,
		DiscountValue: decimal.NewFromInt(10), MaxDiscount: &maxDisc,
		VoucherType: model.VoucherProduct, StartDate: start, EndDate: end, UsageLimit: 10,
	})
	svc := testVoucherService(repo, newMockStoreRepo())

	applied, err := svc.Resolve(context.Background(), "TEN", CheckoutContext{
		UserID: uuid.New(), Subtotal: decimal.NewFromInt(200000),
	})
	require.NoError(t, err)
	assert.True(t, applied.Discount.Equal(decimal.NewFromInt(15000)),
		"10%% of 200000 is 20000, capped to 15000, got %s", applied.Discount)
}

func TestVoucherService_Resolve_FreeshipUsesShippingFeeBase(t *testing.T) {
	repo := newMockVoucherRepo()
	start, end := validWindow()
	repo.addVoucher(model.Voucher{
		Code: "FREESHIP", DiscountType: model.DiscountFixed,
		DiscountValue: decimal.NewFromInt(50000),
		VoucherType:   model.VoucherFreeship, StartDate: start, EndDate: end, UsageLimit: 10,
	})
	svc := testVoucherService(repo, newMockStoreRepo())

	applied, err := svc.Resolve(context.Background(), "FREESHIP", CheckoutContext{
		UserID: uuid.New(), Subtotal: decimal.NewFromInt(200000), ShippingFee: decimal.NewFromInt(30000),
	})
	require.NoError(t, err)
	assert.True(t, applied.Discount.Equal(decimal.NewFromInt(30000)),
		"freeship discount never exceeds the shipping fee")
}

func TestVoucherService_Resolve_BelowMinOrder(t *testing.T) {
	repo := newMockVoucherRepo()
	start, end := validWindow()
	repo.addVoucher(model.Voucher{
		Code: "BIG", DiscountType: model.DiscountFixed, DiscountValue: decimal.NewFromInt(50000),
		MinOrderValue: decimal.NewFromInt(500000),
		VoucherType:   model.VoucherProduct, StartDate: start, EndDate: end, UsageLimit: 10,
	})
	svc := testVoucherService(repo, newMockStoreRepo())

	_, err := svc.Resolve(context.Background(), "BIG", CheckoutContext{
		UserID: uuid.New(), Subtotal: decimal.NewFromInt(200000),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least")
}

func TestVoucherService_Resolve_OutsideWindow(t *testing.T) {
	repo := newMockVoucherRepo()
	repo.addVoucher(model.Voucher{
		Code: "OLD", DiscountType: model.DiscountFixed, DiscountValue: decimal.NewFromInt(10000),
		VoucherType: model.VoucherProduct,
		StartDate:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		UsageLimit:  10,
	})
	svc := testVoucherService(repo, newMockStoreRepo())

	_, err := svc.Resolve(context.Background(), "OLD", CheckoutContext{
		UserID: uuid.New(), Subtotal: decimal.NewFromInt(200000),
	})
	assert.ErrorIs(t, err, ErrVoucherExpired)
}

func TestVoucherService_Redeem_SingleUsePerUser(t *testing.T) {
	repo := newMockVoucherRepo()
	start, end := validWindow()
	v := repo.addVoucher(model.Voucher{
		Code: "ONCE", DiscountType: model.DiscountFixed, DiscountValue: decimal.NewFromInt(10000),
		VoucherType: model.VoucherProduct, StartDate: start, EndDate: end, UsageLimit: 10,
	})
	svc := testVoucherService(repo, newMockStoreRepo())
	userID := uuid.New()
	co := CheckoutContext{UserID: userID, Subtotal: decimal.NewFromInt(200000)}

	_, err := svc.Redeem(context.Background(), "ONCE", co, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, 1, v.UsedCount)

	_, err = svc.Redeem(context.Background(), "ONCE", co, "ORD-2")
	assert.ErrorIs(t, err, ErrVoucherUsedOnce)
	assert.Equal(t, 1, v.UsedCount, "used count unchanged after rejected redemption")
}

func TestVoucherService_Redeem_CapacityExhausted(t *testing.T) {
	repo := newMockVoucherRepo()
	start, end := validWindow()
	repo.addVoucher(model.Voucher{
		Code: "LIMITED", DiscountType: model.DiscountFixed, DiscountValue: decimal.NewFromInt(10000),
		VoucherType: model.VoucherProduct, StartDate: start, EndDate: end,
		UsageLimit: 1, UsedCount: 1,
	})
	svc := testVoucherService(repo, newMockStoreRepo())

	_, err := svc.Redeem(context.Background(), "LIMITED", CheckoutContext{
		UserID: uuid.New(), Subtotal: decimal.NewFromInt(200000),
	}, "ORD-1")
	assert.ErrorIs(t, err, ErrVoucherLimit)
}

func TestVoucherService_Resolve_StoreScope(t *testing.T) {
	repo := newMockVoucherRepo()
	storeRepo := newMockStoreRepo()
	store := storeRepo.addStore(uuid.New(), "electronics")
	start, end := validWindow()
	repo.addVoucher(model.Voucher{
		Code: "SHOPONLY", DiscountType: model.DiscountFixed, DiscountValue: decimal.NewFromInt(10000),
		VoucherType: model.VoucherProduct, Scope: model.ScopeStore, StoreID: &store.ID,
		StartDate: start, EndDate: end, UsageLimit: 10,
	})
	svc := testVoucherService(repo, storeRepo)

	_, err := svc.Resolve(context.Background(), "SHOPONLY", CheckoutContext{
		UserID: uuid.New(), Subtotal: decimal.NewFromInt(200000),
		StoreIDs: []uuid.UUID{store.ID},
	})
	assert.NoError(t, err)

	_, err = svc.Resolve(context.Background(), "SHOPONLY", CheckoutContext{
		UserID: uuid.New(), Subtotal: decimal.NewFromInt(200000),
		StoreIDs: []uuid.UUID{uuid.New()},
	})
	assert.ErrorIs(t, err, ErrVoucherScope)
}

func TestVoucherService_Resolve_CategoryScope(t *testing.T) {
	repo := newMockVoucherRepo()
	storeRepo := newMockStoreRepo()
	bookStore := storeRepo.addStore(uuid.New(), "books")
	start, end := validWindow()
	repo.addVoucher(model.Voucher{
		Code: "BOOKFEST", DiscountType: model.DiscountFixed, DiscountValue: decimal.NewFromInt(10000),
		VoucherType: model.VoucherProduct, Scope: model.ScopeCategories, Categories: []string{"books"},
		StartDate: start, EndDate: end, UsageLimit: 10,
	})
	svc := testVoucherService(repo, storeRepo)

	_, err := svc.Resolve(context.Background(), "BOOKFEST", CheckoutContext{
		UserID: uuid.New(), Subtotal: decimal.NewFromInt(200000),
		StoreIDs: []uuid.UUID{bookStore.ID},
	})
	assert.NoError(t, err)
}

func TestVoucherService_RedeemForOrder_LegacyCodeRouting(t *testing.T) {
	repo := newMockVoucherRepo()
	start, end := validWindow()
	repo.addVoucher(model.Voucher{
		Code: "SHIPFREE", DiscountType: model.DiscountFixed, DiscountValue: decimal.NewFromInt(30000),
		VoucherType: model.VoucherFreeship, StartDate: start, EndDate: end, UsageLimit: 10,
	})
	svc := testVoucherService(repo, newMockStoreRepo())

	result, err := svc.RedeemForOrder(context.Background(), CheckoutContext{
		UserID: uuid.New(), Subtotal: decimal.NewFromInt(200000), ShippingFee: decimal.NewFromInt(30000),
	}, "", "", "SHIPFREE", "ORD-1")
	require.NoError(t, err)
	assert.Nil(t, result.Product)
	require.NotNil(t, result.Freeship, "legacy code lands in the slot its type names")
	assert.True(t, result.ShippingDiscount().Equal(decimal.NewFromInt(30000)))
}

func TestVoucherService_RedeemForOrder_TypeMismatchReleases(t *testing.T) {
	repo := newMockVoucherRepo()
	start, end := validWindow()
	v := repo.addVoucher(model.Voucher{
		Code: "SHIPFREE", DiscountType: model.DiscountFixed, DiscountValue: decimal.NewFromInt(30000),
		VoucherType: model.VoucherFreeship, StartDate: start, EndDate: end, UsageLimit: 10,
	})
	svc := testVoucherService(repo, newMockStoreRepo())

	// freeship code passed in the product slot
	_, err := svc.RedeemForOrder(context.Background(), CheckoutContext{
		UserID: uuid.New(), Subtotal: decimal.NewFromInt(200000), ShippingFee: decimal.NewFromInt(30000),
	}, "SHIPFREE", "", "", "ORD-1")
	require.Error(t, err)
	assert.Equal(t, 0, v.UsedCount, "mismatched redemption is rolled back")
	assert.Empty(t, repo.redemptions)
}

func TestVoucherService_RedeemForOrder_AllOrNothing(t *testing.T) {
	repo := newMockVoucherRepo()
	start, end := validWindow()
	product := repo.addVoucher(model.Voucher{
		Code: "SAVE20K", DiscountType: model.DiscountFixed, DiscountValue: decimal.NewFromInt(20000),
		VoucherType: model.VoucherProduct, StartDate: start, EndDate: end, UsageLimit: 10,
	})
	repo.addVoucher(model.Voucher{
		Code: "SHIPFULL", DiscountType: model.DiscountFixed, DiscountValue: decimal.NewFromInt(30000),
		VoucherType: model.VoucherFreeship, StartDate: start, EndDate: end,
		UsageLimit: 1, UsedCount: 1,
	})
	svc := testVoucherService(repo, newMockStoreRepo())

	_, err := svc.RedeemForOrder(context.Background(), CheckoutContext{
		UserID: uuid.New(), Subtotal: decimal.NewFromInt(200000), ShippingFee: decimal.NewFromInt(30000),
	}, "SAVE20K", "SHIPFULL", "", "ORD-1")
	require.Error(t, err)
	assert.Equal(t, 0, product.UsedCount, "product slot released when freeship slot fails")
}

func TestVoucherService_Preview_ListsOnlyEligible(t *testing.T) {
	repo := newMockVoucherRepo()
	start, end := validWindow()
	repo.addVoucher(model.Voucher{
		Code: "OK", DiscountType: model.DiscountFixed, DiscountValue: decimal.NewFromInt(10000),
		VoucherType: model.VoucherProduct, StartDate: start, EndDate: end, UsageLimit: 10,
	})
	repo.addVoucher(model.Voucher{
		Code: "TOOBIG", DiscountType: model.DiscountFixed, DiscountValue: decimal.NewFromInt(10000),
		MinOrderValue: decimal.NewFromInt(999999),
		VoucherType:   model.VoucherProduct, StartDate: start, EndDate: end, UsageLimit: 10,
	})
	svc := testVoucherService(repo, newMockStoreRepo())

	eligible, err := svc.Preview(context.Background(), CheckoutContext{
		UserID: uuid.New(), Subtotal: decimal.NewFromInt(200000),
	})
	require.NoError(t, err)
	require.Len(t, eligible, 1)
	assert.Equal(t, "OK", eligible[0].Voucher.Code)
}

func TestVoucherService_UpdateStoreVoucher_ForeignStoreRejected(t *testing.T) {
	repo := newMockVoucherRepo()
	storeRepo := newMockStoreRepo()
	owner := uuid.New()
	store := storeRepo.addStore(owner, "fashion")
	start, end := validWindow()
	repo.addVoucher(model.Voucher{
		Code: "MINE", DiscountType: model.DiscountFixed, DiscountValue: decimal.NewFromInt(5000),
		VoucherType: model.VoucherProduct, Scope: model.ScopeStore, StoreID: &store.ID,
		StartDate: start, EndDate: end, UsageLimit: 10,
	})
	svc := testVoucherService(repo, storeRepo)

	stranger := uuid.New()
	storeRepo.addStore(stranger, "toys")
	err := svc.UpdateStoreVoucher(context.Background(), stranger, &model.Voucher{Code: "MINE"})
	assert.ErrorIs(t, err, ErrNotVoucherOwner)
}
