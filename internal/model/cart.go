package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Cart struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Items     []CartItem
	Subtotal  decimal.Decimal
	Total     decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CartItem snapshots name, image and pricing at add-time so later product
// edits do not retroactively change what the buyer sees in the cart.
type CartItem struct {
	ID              uuid.UUID
	CartID          uuid.UUID
	ProductID       uuid.UUID
	StoreID         uuid.UUID
	Name            string
	ImageURL        string
	Price           decimal.Decimal
	SalePrice       *decimal.Decimal
	VariationID     *uuid.UUID
	VariationColor  string
	VariationSize   string
	AdditionalPrice decimal.Decimal
	Quantity        int
	Subtotal        decimal.Decimal
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// UnitPrice is the frozen per-unit price of the line.
func (i *CartItem) UnitPrice() decimal.Decimal {
	base := i.Price
	if i.SalePrice != nil {
		base = *i.SalePrice
	}
	return base.Add(i.AdditionalPrice)
}

// RecomputeSubtotal derives the line subtotal from the stored unit price,
// never from client input.
func (i *CartItem) RecomputeSubtotal() {
	i.Subtotal = i.UnitPrice().Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// VariationKey identifies a product+variation combination so adding the same
// combination twice merges into one line.
func (i *CartItem) VariationKey() string {
	if i.VariationID == nil {
		return ""
	}
	return i.VariationID.String()
}

// RecomputeTotals recalculates the cart aggregates from its items.
func (c *Cart) RecomputeTotals() {
	subtotal := decimal.Zero
	for i := range c.Items {
		subtotal = subtotal.Add(c.Items[i].Subtotal)
	}
	c.Subtotal = subtotal
	c.Total = subtotal
}
