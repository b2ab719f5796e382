package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flicky/go-marketplace-api/internal/model"
)

type CartRepository interface {
	GetOrCreateCart(ctx context.Context, userID uuid.UUID) (*model.Cart, error)
	GetCartWithItems(ctx context.Context, cartID uuid.UUID) (*model.Cart, error)
	UpsertItem(ctx context.Context, item *model.CartItem) error
	UpdateItem(ctx context.Context, item *model.CartItem) error
	DeleteItem(ctx context.Context, itemID uuid.UUID) error
	DeleteItems(ctx context.Context, cartID uuid.UUID, itemIDs []uuid.UUID) error
	UpdateTotals(ctx context.Context, cart *model.Cart) error
}

type pgCartRepo struct{ pool *pgxpool.Pool }

func NewCartRepository(pool *pgxpool.Pool) CartRepository {
	return &pgCartRepo{pool: pool}
}

func (r *pgCartRepo) GetOrCreateCart(ctx context.Context, userID uuid.UUID) (*model.Cart, error) {
	cart := &model.Cart{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, subtotal, total, created_at, updated_at FROM carts WHERE user_id = $1`, userID,
	).Scan(&cart.ID, &cart.UserID, &cart.Subtotal, &cart.Total, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			cart.ID = uuid.New()
			cart.UserID = userID
			err = r.pool.QueryRow(ctx,
				`INSERT INTO carts (id, user_id, subtotal, total, created_at, updated_at)
				 VALUES ($1, $2, 0, 0, NOW(), NOW())
				 ON CONFLICT (user_id) DO UPDATE SET updated_at = NOW()
				 RETURNING id, subtotal, total, created_at, updated_at`,
				cart.ID, cart.UserID,
			).Scan(&cart.ID, &cart.Subtotal, &cart.Total, &cart.CreatedAt, &cart.UpdatedAt)
			if err != nil {
				return nil, fmt.Errorf("create cart: %w", err)
			}
			return cart, nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return cart, nil
}

func (r *pgCartRepo) GetCartWithItems(ctx context.Context, cartID uuid.UUID) (*model.Cart, error) {
	cart := &model.Cart{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, subtotal, total, created_at, updated_at FROM carts WHERE id = $1`, cartID,
	).Scan(&cart.ID, &cart.UserID, &cart.Subtotal, &cart.Total, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, cart_id, product_id, store_id, name, image_url, price, sale_price,
		        variation_id, variation_color, variation_size, additional_price,
		        quantity, subtotal, created_at, updated_at
		 FROM cart_items WHERE cart_id = $1 ORDER BY created_at`, cartID,
	)
	if err != nil {
		return nil, fmt.Errorf("get cart items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item model.CartItem
		if err := rows.Scan(&item.ID, &item.CartID, &item.ProductID, &item.StoreID,
			&item.Name, &item.ImageURL, &item.Price, &item.SalePrice,
			&item.VariationID, &item.VariationColor, &item.VariationSize, &item.AdditionalPrice,
			&item.Quantity, &item.Subtotal, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		cart.Items = append(cart.Items, item)
	}
	return cart, nil
}

// UpsertItem inserts a line or, when the same product+variation already
// exists in the cart, folds the quantity into the existing line and lets
// the database recompute the line subtotal from the stored unit price.
func (r *pgCartRepo) UpsertItem(ctx context.Context, item *model.CartItem) error {
	item.ID = uuid.New()
	query := `INSERT INTO cart_items (id, cart_id, product_id, store_id, name, image_url, price, sale_price,
	                                  variation_id, variation_key, variation_color, variation_size, additional_price,
	                                  quantity, subtotal, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW(), NOW())
			  ON CONFLICT (cart_id, product_id, variation_key) DO UPDATE SET
				  quantity = cart_items.quantity + EXCLUDED.quantity,
				  subtotal = (COALESCE(cart_items.sale_price, cart_items.price) + cart_items.additional_price)
				             * (cart_items.quantity + EXCLUDED.quantity),
				  updated_at = NOW()
			  RETURNING id, quantity, subtotal, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		item.ID, item.CartID, item.ProductID, item.StoreID, item.Name, item.ImageURL,
		item.Price, item.SalePrice, item.VariationID, item.VariationKey(),
		item.VariationColor, item.VariationSize, item.AdditionalPrice,
		item.Quantity, item.Subtotal,
	).Scan(&item.ID, &item.Quantity, &item.Subtotal, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert cart item: %w", err)
	}
	return nil
}

func (r *pgCartRepo) UpdateItem(ctx context.Context, item *model.CartItem) error {
	err := r.pool.QueryRow(ctx,
		`UPDATE cart_items SET quantity = $2, subtotal = $3, updated_at = NOW() WHERE id = $1 RETURNING updated_at`,
		item.ID, item.Quantity, item.Subtotal,
	).Scan(&item.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pgx.ErrNoRows
		}
		return fmt.Errorf("update cart item: %w", err)
	}
	return nil
}

func (r *pgCartRepo) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE id = $1`, itemID)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// DeleteItems removes only the given lines, used after checkout so the rest
// of the cart survives a partial-cart order.
func (r *pgCartRepo) DeleteItems(ctx context.Context, cartID uuid.UUID, itemIDs []uuid.UUID) error {
	if len(itemIDs) == 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx,
		`DELETE FROM cart_items WHERE cart_id = $1 AND id = ANY($2)`, cartID, itemIDs,
	)
	if err != nil {
		return fmt.Errorf("delete cart items: %w", err)
	}
	return nil
}

func (r *pgCartRepo) UpdateTotals(ctx context.Context, cart *model.Cart) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE carts SET subtotal = $2, total = $3, updated_at = NOW() WHERE id = $1`,
		cart.ID, cart.Subtotal, cart.Total,
	)
	if err != nil {
		return fmt.Errorf("update cart totals: %w", err)
	}
	return nil
}
