package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountFixed   DiscountType = "fixed"
	DiscountPercent DiscountType = "percent"
)

type VoucherType string

const (
	VoucherProduct  VoucherType = "product"  // discounts the order subtotal
	VoucherFreeship VoucherType = "freeship" // discounts the shipping fee
)

// VoucherScope restricts which stores' items a voucher may discount:
// global, a category of stores, or a single store.
type VoucherScope string

const (
	ScopeGlobal     VoucherScope = "global"
	ScopeCategories VoucherScope = "categories"
	ScopeStore      VoucherScope = "store"
)

type Voucher struct {
	ID            uuid.UUID
	Code          string // stored upper-cased, matched case-insensitively
	Description   string
	DiscountType  DiscountType
	DiscountValue decimal.Decimal
	MinOrderValue decimal.Decimal
	MaxDiscount   *decimal.Decimal // percent-type cap, nil = uncapped
	VoucherType   VoucherType
	Scope         VoucherScope
	Categories    []string
	StoreID       *uuid.UUID
	StartDate     time.Time
	EndDate       time.Time
	UsageLimit    int
	UsedCount     int
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// VoucherRedemption is one user's consumption of one voucher. The unique
// (voucher_id, user_id) constraint on this row is what makes single-use
// per user hold under concurrent checkouts.
type VoucherRedemption struct {
	ID        uuid.UUID
	VoucherID uuid.UUID
	UserID    uuid.UUID
	OrderCode string
	Amount    decimal.Decimal
	UsedAt    time.Time
}

// NormalizeVoucherCode upper-cases and trims a code for storage and lookup.
func NormalizeVoucherCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// WithinWindow reports whether now falls inside the validity window.
func (v *Voucher) WithinWindow(now time.Time) bool {
	return !now.Before(v.StartDate) && !now.After(v.EndDate)
}

// Discount computes the amount this voucher takes off the given base
// (order subtotal for product vouchers, shipping fee for freeship ones).
// The result never exceeds the base.
func (v *Voucher) Discount(base decimal.Decimal) decimal.Decimal {
	var d decimal.Decimal
	switch v.DiscountType {
	case DiscountPercent:
		d = base.Mul(v.DiscountValue).Div(decimal.NewFromInt(100))
		if v.MaxDiscount != nil && d.GreaterThan(*v.MaxDiscount) {
			d = *v.MaxDiscount
		}
	default:
		d = v.DiscountValue
	}
	if d.GreaterThan(base) {
		d = base
	}
	return d
}
