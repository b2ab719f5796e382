package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeVoucherCode(t *testing.T) {
	assert.Equal(t, "SAVE20K", NormalizeVoucherCode("  save20k "))
}

func TestVoucher_WithinWindow(t *testing.T) {
	v := Voucher{
		StartDate: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC),
	}
	assert.True(t, v.WithinWindow(time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)))
	assert.True(t, v.WithinWindow(v.StartDate))
	assert.True(t, v.WithinWindow(v.EndDate))
	assert.False(t, v.WithinWindow(v.StartDate.Add(-time.Second)))
	assert.False(t, v.WithinWindow(v.EndDate.Add(time.Second)))
}

func TestVoucher_Discount_Fixed(t *testing.T) {
	v := Voucher{DiscountType: DiscountFixed, DiscountValue: decimal.NewFromInt(20000)}
	assert.True(t, v.Discount(decimal.NewFromInt(200000)).Equal(decimal.NewFromInt(20000)))

	// never exceeds the base
	assert.True(t, v.Discount(decimal.NewFromInt(15000)).Equal(decimal.NewFromInt(15000)))
}

func TestVoucher_Discount_PercentCapped(t *testing.T) {
	maxDisc := decimal.NewFromInt(15000)
	v := Voucher{DiscountType: DiscountPercent, DiscountValue: decimal.NewFromInt(10), MaxDiscount: &maxDisc}
	assert.True(t, v.Discount(decimal.NewFromInt(200000)).Equal(decimal.NewFromInt(15000)))

	v.MaxDiscount = nil
	assert.True(t, v.Discount(decimal.NewFromInt(200000)).Equal(decimal.NewFromInt(20000)))
}
