package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/flicky/go-marketplace-api/internal/apperr"
	"github.com/flicky/go-marketplace-api/internal/model"
	"github.com/flicky/go-marketplace-api/internal/repository"
)

var (
	ErrEmptyOrder        = apperr.New(apperr.InvalidState, "no items to order")
	ErrOrderNotFound     = apperr.New(apperr.NotFound, "order not found")
	ErrOrderAccessDenied = apperr.New(apperr.Forbidden, "access denied")
)

// EventPublisher emits domain events; best-effort consumers (settlement,
// email, notifications) pick them up off the transactional path.
type EventPublisher interface {
	PublishPaymentEvent(ctx context.Context, ev model.PaymentEvent) error
	PublishOrderEvent(ctx context.Context, ev model.OrderEvent) error
}

// OrderItemInput is one requested line. A fully priced line (buy-now sends
// these from a server-rendered quote) is trusted as supplied; a bare
// product reference is re-priced from the live catalog.
type OrderItemInput struct {
	ProductID   uuid.UUID
	VariationID *uuid.UUID
	Quantity    int
	Price       decimal.Decimal
	SalePrice   *decimal.Decimal
	StoreID     uuid.UUID
	Name        string
	ImageURL    string
}

type CreateOrderInput struct {
	Items               []OrderItemInput // explicit items; empty = checkout from cart
	SelectedItemIDs     []uuid.UUID      // cart line subset; empty = whole cart
	ShippingAddress     model.ShippingAddress
	PaymentMethod       model.PaymentMethod
	ShippingFee         decimal.Decimal
	ProductVoucherCode  string
	FreeshipVoucherCode string
	VoucherCode         string // legacy single-code slot
	Note                string
}

// OrderService assembles immutable order snapshots and drives the order
// state machine.
type OrderService struct {
	orderRepo   repository.OrderRepository
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	userRepo    repository.UserRepository
	walletRepo  repository.WalletRepository
	voucherSvc  *VoucherService
	publisher   EventPublisher
	log         *slog.Logger
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	userRepo repository.UserRepository,
	walletRepo repository.WalletRepository,
	voucherSvc *VoucherService,
	publisher EventPublisher,
	log *slog.Logger,
) *OrderService {
	return &OrderService{
		orderRepo:   orderRepo,
		cartRepo:    cartRepo,
		productRepo: productRepo,
		userRepo:    userRepo,
		walletRepo:  walletRepo,
		voucherSvc:  voucherSvc,
		publisher:   publisher,
		log:         log,
	}
}

func (s *OrderService) CreateOrder(ctx context.Context, userID uuid.UUID, in CreateOrderInput) (*model.Order, error) {
	if !in.ShippingAddress.Complete() {
		return nil, apperr.New(apperr.InvalidInput, "shipping address requires name, phone and address")
	}
	if in.ShippingFee.IsNegative() {
		return nil, apperr.New(apperr.InvalidInput, "shipping fee cannot be negative")
	}
	switch in.PaymentMethod {
	case model.PaymentCOD, model.PaymentMomo, model.PaymentVNPay, model.PaymentWallet:
	default:
		return nil, apperr.New(apperr.InvalidInput, "unsupported payment method")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, apperr.New(apperr.NotFound, "user not found")
	}

	items, cartLineIDs, err := s.resolveItems(ctx, userID, in)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrEmptyOrder
	}

	subtotal := decimal.Zero
	storeSet := map[uuid.UUID]struct{}{}
	var storeIDs []uuid.UUID
	for i := range items {
		subtotal = subtotal.Add(items[i].Subtotal)
		if _, ok := storeSet[items[i].StoreID]; !ok {
			storeSet[items[i].StoreID] = struct{}{}
			storeIDs = append(storeIDs, items[i].StoreID)
		}
	}

	orderCode := newOrderCode()

	co := CheckoutContext{
		UserID:      userID,
		Subtotal:    subtotal,
		ShippingFee: in.ShippingFee,
		StoreIDs:    storeIDs,
	}
	vouchers, err := s.voucherSvc.RedeemForOrder(ctx, co,
		in.ProductVoucherCode, in.FreeshipVoucherCode, in.VoucherCode, orderCode)
	if err != nil {
		return nil, err
	}

	total := model.OrderTotal(subtotal, vouchers.Discount(), in.ShippingFee, vouchers.ShippingDiscount())

	order := &model.Order{
		OrderCode:    orderCode,
		UserID:       userID,
		Items:        items,
		UserFullName: user.FullName,
		UserEmail:    user.Email,
		UserPhone:    user.Phone,
		UserRole:     user.Role,
		ShippingAddress: in.ShippingAddress,
		ShippingFee:     in.ShippingFee,
		Payment: model.PaymentInfo{
			Method: in.PaymentMethod,
			Status: model.PaymentStatusPending,
		},
		Status: model.OrderStatusPending,
		StatusHistory: []model.StatusEntry{
			{Status: model.OrderStatusPending, Note: "order created", Timestamp: time.Now()},
		},
		Subtotal:         subtotal,
		Discount:         vouchers.Discount(),
		ShippingDiscount: vouchers.ShippingDiscount(),
		Total:            total,
		ProductVoucher:   vouchers.ProductCode(),
		FreeshipVoucher:  vouchers.FreeshipCode(),
		Note:             in.Note,
	}

	walletDebited := false
	if in.PaymentMethod == model.PaymentWallet {
		err := s.walletRepo.Apply(ctx, userID, &model.WalletTransaction{
			Type:      model.TxPayment,
			Amount:    total,
			Method:    string(model.PaymentWallet),
			OrderCode: orderCode,
			Status:    "completed",
		})
		if err != nil {
			s.voucherSvc.ReleaseAll(ctx, userID, vouchers)
			if errors.Is(err, repository.ErrInsufficientBalance) {
				return nil, apperr.New(apperr.InvalidState, "insufficient wallet balance")
			}
			return nil, fmt.Errorf("debit wallet: %w", err)
		}
		walletDebited = true
		order.Payment.Status = model.PaymentStatusPaid
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		// compensation: un-consume the vouchers and return the funds so a
		// failed insert does not strand either.
		s.voucherSvc.ReleaseAll(ctx, userID, vouchers)
		if walletDebited {
			refundErr := s.walletRepo.Apply(ctx, userID, &model.WalletTransaction{
				Type:      model.TxRefund,
				Amount:    total,
				Method:    string(model.PaymentWallet),
				OrderCode: orderCode,
				Status:    "completed",
			})
			if refundErr != nil {
				s.log.Error("refund after failed order create", "order_code", orderCode, "error", refundErr)
			}
		}
		return nil, fmt.Errorf("create order: %w", err)
	}

	if len(cartLineIDs) > 0 {
		if err := s.removeOrderedCartLines(ctx, userID, cartLineIDs); err != nil {
			s.log.Error("remove ordered cart lines", "order_code", orderCode, "error", err)
		}
	}

	// best-effort side effects: consumers handle notify/email; failing to
	// publish must not fail the order.
	if err := s.publisher.PublishOrderEvent(ctx, model.OrderEvent{
		Type: model.OrderEventCreated, OrderCode: orderCode, UserID: userID,
	}); err != nil {
		s.log.Error("publish order created", "order_code", orderCode, "error", err)
	}
	if order.Payment.Status == model.PaymentStatusPaid {
		if err := s.publisher.PublishPaymentEvent(ctx, model.PaymentEvent{
			Type: model.PaymentEventPaid, OrderCode: orderCode, Amount: total,
		}); err != nil {
			s.log.Error("publish payment event", "order_code", orderCode, "error", err)
		}
	}
	return order, nil
}

// resolveItems normalizes both call shapes (explicit items vs cart
// selection) into priced order items, returning the IDs of cart lines that
// were consumed so only those get removed after checkout.
func (s *OrderService) resolveItems(ctx context.Context, userID uuid.UUID, in CreateOrderInput) ([]model.OrderItem, []uuid.UUID, error) {
	if len(in.Items) > 0 {
		items := make([]model.OrderItem, 0, len(in.Items))
		for _, raw := range in.Items {
			item, err := s.resolveExplicitItem(ctx, raw)
			if err != nil {
				return nil, nil, err
			}
			items = append(items, *item)
		}
		return items, nil, nil
	}

	cart, err := s.cartRepo.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("get cart: %w", err)
	}
	full, err := s.cartRepo.GetCartWithItems(ctx, cart.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("get cart items: %w", err)
	}
	if full == nil || len(full.Items) == 0 {
		return nil, nil, ErrEmptyOrder
	}

	selected := map[uuid.UUID]bool{}
	for _, id := range in.SelectedItemIDs {
		selected[id] = true
	}

	var items []model.OrderItem
	var lineIDs []uuid.UUID
	for _, ci := range full.Items {
		if len(in.SelectedItemIDs) > 0 && !selected[ci.ID] {
			continue
		}
		items = append(items, model.OrderItem{
			ProductID:       ci.ProductID,
			StoreID:         ci.StoreID,
			Name:            ci.Name,
			ImageURL:        ci.ImageURL,
			Price:           ci.Price,
			SalePrice:       ci.SalePrice,
			VariationID:     ci.VariationID,
			VariationColor:  ci.VariationColor,
			VariationSize:   ci.VariationSize,
			AdditionalPrice: ci.AdditionalPrice,
			Quantity:        ci.Quantity,
			Subtotal:        ci.Subtotal,
		})
		lineIDs = append(lineIDs, ci.ID)
	}
	return items, lineIDs, nil
}

func (s *OrderService) resolveExplicitItem(ctx context.Context, raw OrderItemInput) (*model.OrderItem, error) {
	if raw.Quantity < 1 {
		return nil, apperr.New(apperr.InvalidInput, "quantity must be at least 1")
	}

	item := model.OrderItem{
		ProductID:   raw.ProductID,
		StoreID:     raw.StoreID,
		Name:        raw.Name,
		ImageURL:    raw.ImageURL,
		Price:       raw.Price,
		SalePrice:   raw.SalePrice,
		VariationID: raw.VariationID,
		Quantity:    raw.Quantity,
	}

	// bare reference: re-derive pricing and snapshots from the live catalog
	if raw.Price.IsZero() || raw.StoreID == uuid.Nil {
		product, err := s.productRepo.GetByID(ctx, raw.ProductID)
		if err != nil {
			return nil, fmt.Errorf("get product: %w", err)
		}
		if product == nil {
			return nil, ErrProductNotFound
		}
		item.StoreID = product.StoreID
		item.Name = product.Name
		item.ImageURL = product.ImageURL
		item.Price = product.Price
		item.SalePrice = product.SalePrice
		if raw.VariationID != nil {
			v := product.FindVariation(*raw.VariationID)
			if v == nil {
				return nil, apperr.New(apperr.NotFound, "product variation not found")
			}
			item.VariationColor = v.Color
			item.VariationSize = v.Size
			item.AdditionalPrice = v.AdditionalPrice
		}
	}

	unit := item.Price
	if item.SalePrice != nil {
		unit = *item.SalePrice
	}
	item.Subtotal = unit.Add(item.AdditionalPrice).Mul(decimal.NewFromInt(int64(item.Quantity)))
	return &item, nil
}

// removeOrderedCartLines drops only the purchased lines and recomputes the
// cart aggregates.
func (s *OrderService) removeOrderedCartLines(ctx context.Context, userID uuid.UUID, lineIDs []uuid.UUID) error {
	cart, err := s.cartRepo.GetOrCreateCart(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.cartRepo.DeleteItems(ctx, cart.ID, lineIDs); err != nil {
		return err
	}
	full, err := s.cartRepo.GetCartWithItems(ctx, cart.ID)
	if err != nil {
		return err
	}
	if full == nil {
		return nil
	}
	full.RecomputeTotals()
	return s.cartRepo.UpdateTotals(ctx, full)
}

// UpdateStatus validates the requested transition against the state
// machine, appends to the audit history and fires the transition's side
// effects.
func (s *OrderService) UpdateStatus(ctx context.Context, actorID uuid.UUID, actorRole string, orderCode string, next model.OrderStatus, note string) (*model.Order, error) {
	order, err := s.orderRepo.GetByCode(ctx, orderCode)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}

	if err := s.authorizeTransition(order, actorID, actorRole, next); err != nil {
		return nil, err
	}

	if !order.Status.CanTransition(next) {
		return nil, apperr.Newf(apperr.InvalidState,
			"order cannot move from %s to %s", order.Status, next)
	}

	entry := model.StatusEntry{Status: next, Note: note, Timestamp: time.Now()}
	if err := s.orderRepo.AppendStatus(ctx, order.ID, entry); err != nil {
		return nil, fmt.Errorf("append status: %w", err)
	}
	order.Status = next
	order.StatusHistory = append(order.StatusHistory, entry)

	switch next {
	case model.OrderStatusDelivered:
		// COD settles on delivery
		if order.Payment.Method == model.PaymentCOD && order.Payment.Status == model.PaymentStatusPending {
			if err := s.orderRepo.UpdatePaymentStatus(ctx, order.ID, model.PaymentStatusPaid, ""); err != nil {
				s.log.Error("mark COD paid", "order_code", order.OrderCode, "error", err)
			} else {
				order.Payment.Status = model.PaymentStatusPaid
				if err := s.publisher.PublishPaymentEvent(ctx, model.PaymentEvent{
					Type: model.PaymentEventPaid, OrderCode: order.OrderCode, Amount: order.Total,
				}); err != nil {
					s.log.Error("publish payment event", "order_code", order.OrderCode, "error", err)
				}
			}
		}
		if err := s.publisher.PublishOrderEvent(ctx, model.OrderEvent{
			Type: model.OrderEventDelivered, OrderCode: order.OrderCode, UserID: order.UserID,
		}); err != nil {
			s.log.Error("publish order delivered", "order_code", order.OrderCode, "error", err)
		}
	case model.OrderStatusReceived:
		for _, it := range order.Items {
			if err := s.productRepo.AdjustStockSold(ctx, it.ProductID, it.Quantity); err != nil {
				s.log.Error("adjust stock", "order_code", order.OrderCode, "product_id", it.ProductID, "error", err)
			}
		}
	}
	return order, nil
}

func (s *OrderService) authorizeTransition(order *model.Order, actorID uuid.UUID, actorRole string, next model.OrderStatus) error {
	switch next {
	case model.OrderStatusReceived:
		// only the buyer confirms receipt
		if order.UserID != actorID {
			return ErrOrderAccessDenied
		}
	case model.OrderStatusCancelled:
		if order.UserID != actorID && actorRole != "seller" && actorRole != "admin" {
			return ErrOrderAccessDenied
		}
	default:
		if actorRole != "seller" && actorRole != "admin" {
			return ErrOrderAccessDenied
		}
	}
	return nil
}

func (s *OrderService) GetByCode(ctx context.Context, orderCode string, userID uuid.UUID, role string) (*model.Order, error) {
	order, err := s.orderRepo.GetByCode(ctx, orderCode)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.UserID != userID && role != "seller" && role != "admin" {
		return nil, ErrOrderAccessDenied
	}
	return order, nil
}

func (s *OrderService) ListByUserID(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	return s.orderRepo.ListByUserID(ctx, userID)
}

func newOrderCode() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("ORD-%s-%s", time.Now().Format("20060102"), suffix)
}
