package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/flicky/go-marketplace-api/internal/model"
)

// --- Auth ---

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"full_name" binding:"required"`
	Phone    string `json:"phone" binding:"required"`
	Role     string `json:"role" binding:"omitempty,oneof=buyer seller"`

	// sellers open their store at registration
	StoreName     string `json:"store_name" binding:"required_if=Role seller"`
	StoreCategory string `json:"store_category"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type UserResponse struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	FullName string    `json:"full_name"`
	Phone    string    `json:"phone"`
	Role     string    `json:"role"`
}

// --- Product ---

type VariationRequest struct {
	Color           string          `json:"color"`
	Size            string          `json:"size"`
	AdditionalPrice decimal.Decimal `json:"additional_price"`
	Stock           int             `json:"stock" binding:"min=0"`
}

type CreateProductRequest struct {
	Name        string             `json:"name" binding:"required"`
	Description string             `json:"description" binding:"required"`
	ImageURL    string             `json:"image_url"`
	Price       decimal.Decimal    `json:"price" binding:"required"`
	SalePrice   *decimal.Decimal   `json:"sale_price"`
	Stock       int                `json:"stock" binding:"required,min=0"`
	Variations  []VariationRequest `json:"variations"`
}

type UpdateProductRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	ImageURL    *string          `json:"image_url"`
	Price       *decimal.Decimal `json:"price"`
	SalePrice   *decimal.Decimal `json:"sale_price"`
	Stock       *int             `json:"stock"`
}

type ListProductsRequest struct {
	Page   int    `form:"page,default=1" binding:"min=1"`
	Limit  int    `form:"limit,default=20" binding:"min=1,max=100"`
	Search string `form:"search"`
	Sort   string `form:"sort,default=created_at" binding:"oneof=name price created_at"`
	Order  string `form:"order,default=desc" binding:"oneof=asc desc"`
}

type VariationResponse struct {
	ID              uuid.UUID       `json:"id"`
	Color           string          `json:"color"`
	Size            string          `json:"size"`
	AdditionalPrice decimal.Decimal `json:"additional_price"`
	Stock           int             `json:"stock"`
}

type ProductResponse struct {
	ID          uuid.UUID           `json:"id"`
	StoreID     uuid.UUID           `json:"store_id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	ImageURL    string              `json:"image_url"`
	Price       decimal.Decimal     `json:"price"`
	SalePrice   *decimal.Decimal    `json:"sale_price,omitempty"`
	Stock       int                 `json:"stock"`
	SoldCount   int                 `json:"sold_count"`
	Variations  []VariationResponse `json:"variations,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

type ProductListResponse struct {
	Products []ProductResponse `json:"products"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	Limit    int               `json:"limit"`
}

// --- Cart ---

type AddCartItemRequest struct {
	ProductID   uuid.UUID  `json:"product_id" binding:"required"`
	VariationID *uuid.UUID `json:"variation_id"`
	Quantity    int        `json:"quantity" binding:"required,min=1"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1"`
}

type CartItemResponse struct {
	ID              uuid.UUID        `json:"id"`
	ProductID       uuid.UUID        `json:"product_id"`
	StoreID         uuid.UUID        `json:"store_id"`
	Name            string           `json:"name"`
	ImageURL        string           `json:"image_url"`
	Price           decimal.Decimal  `json:"price"`
	SalePrice       *decimal.Decimal `json:"sale_price,omitempty"`
	VariationID     *uuid.UUID       `json:"variation_id,omitempty"`
	VariationColor  string           `json:"variation_color,omitempty"`
	VariationSize   string           `json:"variation_size,omitempty"`
	AdditionalPrice decimal.Decimal  `json:"additional_price"`
	Quantity        int              `json:"quantity"`
	Subtotal        decimal.Decimal  `json:"subtotal"`
}

type CartResponse struct {
	ID       uuid.UUID          `json:"id"`
	Items    []CartItemResponse `json:"items"`
	Subtotal decimal.Decimal    `json:"subtotal"`
	Total    decimal.Decimal    `json:"total"`
}

// --- Voucher ---

type CreateVoucherRequest struct {
	Code          string           `json:"code" binding:"required"`
	Description   string           `json:"description"`
	DiscountType  string           `json:"discount_type" binding:"required,oneof=fixed percent"`
	DiscountValue decimal.Decimal  `json:"discount_value" binding:"required"`
	MinOrderValue decimal.Decimal  `json:"min_order_value"`
	MaxDiscount   *decimal.Decimal `json:"max_discount"`
	VoucherType   string           `json:"voucher_type" binding:"required,oneof=product freeship"`
	StartDate     time.Time        `json:"start_date" binding:"required"`
	EndDate       time.Time        `json:"end_date" binding:"required"`
	UsageLimit    int              `json:"usage_limit" binding:"required,min=1"`
}

type VoucherResponse struct {
	ID            uuid.UUID        `json:"id"`
	Code          string           `json:"code"`
	Description   string           `json:"description"`
	DiscountType  string           `json:"discount_type"`
	DiscountValue decimal.Decimal  `json:"discount_value"`
	MinOrderValue decimal.Decimal  `json:"min_order_value"`
	MaxDiscount   *decimal.Decimal `json:"max_discount,omitempty"`
	VoucherType   string           `json:"voucher_type"`
	StartDate     time.Time        `json:"start_date"`
	EndDate       time.Time        `json:"end_date"`
	UsageLimit    int              `json:"usage_limit"`
	UsedCount     int              `json:"used_count"`
	IsActive      bool             `json:"is_active"`
}

type PreviewVouchersRequest struct {
	Subtotal    decimal.Decimal `form:"subtotal" binding:"required"`
	ShippingFee decimal.Decimal `form:"shipping_fee"`
	StoreIDs    []uuid.UUID     `form:"store_ids"`
}

type AppliedVoucherResponse struct {
	Voucher  VoucherResponse `json:"voucher"`
	Discount decimal.Decimal `json:"discount"`
}

// --- Order ---

type OrderItemRequest struct {
	ProductID   uuid.UUID        `json:"product_id" binding:"required"`
	VariationID *uuid.UUID       `json:"variation_id"`
	Quantity    int              `json:"quantity" binding:"required,min=1"`
	Price       decimal.Decimal  `json:"price"`
	SalePrice   *decimal.Decimal `json:"sale_price"`
	StoreID     uuid.UUID        `json:"store_id"`
	Name        string           `json:"name"`
	ImageURL    string           `json:"image_url"`
}

type ShippingAddressRequest struct {
	FullName string `json:"full_name" binding:"required"`
	Phone    string `json:"phone" binding:"required"`
	Address  string `json:"address" binding:"required"`
}

type CreateOrderRequest struct {
	Items               []OrderItemRequest     `json:"items"`
	SelectedItemIDs     []uuid.UUID            `json:"selected_item_ids"`
	ShippingAddress     ShippingAddressRequest `json:"shipping_address" binding:"required"`
	PaymentMethod       string                 `json:"payment_method" binding:"required,oneof=COD MOMO VNPAY WALLET"`
	ShippingFee         decimal.Decimal        `json:"shipping_fee"`
	ProductVoucherCode  string                 `json:"product_voucher_code"`
	FreeshipVoucherCode string                 `json:"freeship_voucher_code"`
	VoucherCode         string                 `json:"voucher_code"`
	Note                string                 `json:"note"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Note   string `json:"note"`
}

type StatusEntryResponse struct {
	Status    string    `json:"status"`
	Note      string    `json:"note"`
	Timestamp time.Time `json:"timestamp"`
}

type OrderItemResponse struct {
	ID              uuid.UUID        `json:"id"`
	ProductID       uuid.UUID        `json:"product_id"`
	StoreID         uuid.UUID        `json:"store_id"`
	Name            string           `json:"name"`
	ImageURL        string           `json:"image_url"`
	Price           decimal.Decimal  `json:"price"`
	SalePrice       *decimal.Decimal `json:"sale_price,omitempty"`
	VariationColor  string           `json:"variation_color,omitempty"`
	VariationSize   string           `json:"variation_size,omitempty"`
	AdditionalPrice decimal.Decimal  `json:"additional_price"`
	Quantity        int              `json:"quantity"`
	Subtotal        decimal.Decimal  `json:"subtotal"`
}

type OrderResponse struct {
	ID               uuid.UUID             `json:"id"`
	OrderCode        string                `json:"order_code"`
	UserID           uuid.UUID             `json:"user_id"`
	Status           model.OrderStatus     `json:"status"`
	StatusHistory    []StatusEntryResponse `json:"status_history"`
	Items            []OrderItemResponse   `json:"items"`
	ShippingAddress  ShippingAddressRequest `json:"shipping_address"`
	PaymentMethod    string                `json:"payment_method"`
	PaymentStatus    string                `json:"payment_status"`
	Subtotal         decimal.Decimal       `json:"subtotal"`
	Discount         decimal.Decimal       `json:"discount"`
	ShippingFee      decimal.Decimal       `json:"shipping_fee"`
	ShippingDiscount decimal.Decimal       `json:"shipping_discount"`
	Total            decimal.Decimal       `json:"total"`
	ProductVoucher   string                `json:"product_voucher,omitempty"`
	FreeshipVoucher  string                `json:"freeship_voucher,omitempty"`
	Note             string                `json:"note,omitempty"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
}

type OrderListResponse struct {
	Orders []OrderResponse `json:"orders"`
	Total  int             `json:"total"`
}

// --- Wallet ---

type WalletTransactionResponse struct {
	ID        uuid.UUID       `json:"id"`
	Type      string          `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method,omitempty"`
	OrderCode string          `json:"order_code,omitempty"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

type WalletResponse struct {
	ID           uuid.UUID                   `json:"id"`
	Balance      decimal.Decimal             `json:"balance"`
	Transactions []WalletTransactionResponse `json:"transactions"`
}

type DepositRequest struct {
	Amount    decimal.Decimal `json:"amount" binding:"required"`
	Method    string          `json:"method" binding:"required"`
	PaymentID string          `json:"payment_id"`
}

type WithdrawRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
	Method string          `json:"method" binding:"required"`
}

// --- Payment ---

type PaymentCallbackRequest struct {
	OrderCode     string          `json:"order_code" binding:"required"`
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	ResultCode    int             `json:"result_code"`
	TransactionID string          `json:"transaction_id"`
}
