package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusPacked    OrderStatus = "packed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusReceived  OrderStatus = "received"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// orderTransitions is the explicit state machine: legality of a transition
// lives here, not in caller code. Cancellation is allowed from early states
// only (not once the parcel has shipped).
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed: {OrderStatusPacked, OrderStatusCancelled},
	OrderStatusPacked:    {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:   {OrderStatusDelivered},
	OrderStatusDelivered: {OrderStatusReceived},
}

// CanTransition reports whether moving from s to next is legal.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type PaymentMethod string

const (
	PaymentCOD    PaymentMethod = "COD"
	PaymentMomo   PaymentMethod = "MOMO"
	PaymentVNPay  PaymentMethod = "VNPAY"
	PaymentWallet PaymentMethod = "WALLET"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

type PaymentInfo struct {
	Method    PaymentMethod
	Status    PaymentStatus
	PaymentID string
}

type ShippingAddress struct {
	FullName string
	Phone    string
	Address  string
}

func (a ShippingAddress) Complete() bool {
	return a.FullName != "" && a.Phone != "" && a.Address != ""
}

type StatusEntry struct {
	Status    OrderStatus
	Note      string
	Timestamp time.Time
}

// Order is an immutable snapshot of a checkout: prices, user info and
// address are frozen at creation. Only status history and payment status
// move afterwards.
type Order struct {
	ID               uuid.UUID
	OrderCode        string
	UserID           uuid.UUID
	Items            []OrderItem
	UserFullName     string
	UserEmail        string
	UserPhone        string
	UserRole         string
	ShippingAddress  ShippingAddress
	ShippingFee      decimal.Decimal
	Payment          PaymentInfo
	Status           OrderStatus
	StatusHistory    []StatusEntry
	Subtotal         decimal.Decimal
	Discount         decimal.Decimal // product-voucher amount
	ShippingDiscount decimal.Decimal // freeship-voucher amount
	Total            decimal.Decimal
	ProductVoucher   string
	FreeshipVoucher  string
	Note             string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type OrderItem struct {
	ID              uuid.UUID
	OrderID         uuid.UUID
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
}

// OrderTotal applies the settlement total formula; it never goes negative.
func OrderTotal(subtotal, discount, shippingFee, shippingDiscount decimal.Decimal) decimal.Decimal {
	total := subtotal.Sub(discount).Add(shippingFee).Sub(shippingDiscount)
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}
