package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/flicky/go-marketplace-api/internal/apperr"
	"github.com/flicky/go-marketplace-api/internal/model"
	"github.com/flicky/go-marketplace-api/internal/repository"
)

var (
	ErrCartNotFound     = apperr.New(apperr.NotFound, "cart not found")
	ErrCartItemNotFound = apperr.New(apperr.NotFound, "cart item not found")
)

// CartService keeps a per-user cart whose aggregates are always derivable
// from its lines. Every mutation writes, then reads the full cart back, so
// callers never see a partially updated cart.
type CartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
}

func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository) *CartService {
	return &CartService{cartRepo: cartRepo, productRepo: productRepo}
}

func (s *CartService) GetCart(ctx context.Context, userID uuid.UUID) (*model.Cart, error) {
	cart, err := s.cartRepo.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get or create cart: %w", err)
	}
	return s.cartRepo.GetCartWithItems(ctx, cart.ID)
}

// AddItem resolves the unit price from the live product, snapshots name and
// image at add-time, and merges into an existing line when the same
// product+variation combination is already in the cart.
func (s *CartService) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int, variationID *uuid.UUID) (*model.Cart, error) {
	if quantity < 1 {
		return nil, apperr.New(apperr.InvalidInput, "quantity must be at least 1")
	}

	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	var variation *model.Variation
	if variationID != nil {
		variation = product.FindVariation(*variationID)
		if variation == nil {
			return nil, apperr.New(apperr.NotFound, "product variation not found")
		}
	}

	cart, err := s.cartRepo.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get or create cart: %w", err)
	}

	item := model.CartItem{
		CartID:    cart.ID,
		ProductID: product.ID,
		StoreID:   product.StoreID,
		Name:      product.Name,
		ImageURL:  product.ImageURL,
		Price:     product.Price,
		SalePrice: product.SalePrice,
		Quantity:  quantity,
	}
	if variation != nil {
		item.VariationID = &variation.ID
		item.VariationColor = variation.Color
		item.VariationSize = variation.Size
		item.AdditionalPrice = variation.AdditionalPrice
	}
	item.RecomputeSubtotal()

	if err := s.cartRepo.UpsertItem(ctx, &item); err != nil {
		return nil, fmt.Errorf("upsert cart item: %w", err)
	}
	return s.refresh(ctx, cart.ID)
}

// UpdateQuantity sets a line's quantity and recomputes its subtotal from
// the stored unit price; the client never supplies prices.
func (s *CartService) UpdateQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*model.Cart, error) {
	if quantity < 1 {
		return nil, apperr.New(apperr.InvalidInput, "quantity must be at least 1")
	}

	cart, item, err := s.findItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}

	item.Quantity = quantity
	item.RecomputeSubtotal()
	if err := s.cartRepo.UpdateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("update cart item: %w", err)
	}
	return s.refresh(ctx, cart.ID)
}

func (s *CartService) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*model.Cart, error) {
	cart, item, err := s.findItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	if err := s.cartRepo.DeleteItem(ctx, item.ID); err != nil {
		return nil, fmt.Errorf("delete cart item: %w", err)
	}
	return s.refresh(ctx, cart.ID)
}

// RemoveItems drops only the given lines (used after checkout) and brings
// the aggregates back in line.
func (s *CartService) RemoveItems(ctx context.Context, userID uuid.UUID, itemIDs []uuid.UUID) error {
	cart, err := s.cartRepo.GetOrCreateCart(ctx, userID)
	if err != nil {
		return fmt.Errorf("get cart: %w", err)
	}
	if err := s.cartRepo.DeleteItems(ctx, cart.ID, itemIDs); err != nil {
		return fmt.Errorf("delete cart items: %w", err)
	}
	_, err = s.refresh(ctx, cart.ID)
	return err
}

func (s *CartService) findItem(ctx context.Context, userID, itemID uuid.UUID) (*model.Cart, *model.CartItem, error) {
	cart, err := s.cartRepo.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("get cart: %w", err)
	}
	full, err := s.cartRepo.GetCartWithItems(ctx, cart.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("get cart items: %w", err)
	}
	if full == nil {
		return nil, nil, ErrCartNotFound
	}
	for i := range full.Items {
		if full.Items[i].ID == itemID {
			return full, &full.Items[i], nil
		}
	}
	return nil, nil, ErrCartItemNotFound
}

// refresh recomputes and persists the aggregates, then returns the fully
// populated cart.
func (s *CartService) refresh(ctx context.Context, cartID uuid.UUID) (*model.Cart, error) {
	cart, err := s.cartRepo.GetCartWithItems(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("get cart items: %w", err)
	}
	if cart == nil {
		return nil, ErrCartNotFound
	}
	cart.RecomputeTotals()
	if err := s.cartRepo.UpdateTotals(ctx, cart); err != nil {
		return nil, fmt.Errorf("update cart totals: %w", err)
	}
	return cart, nil
}
