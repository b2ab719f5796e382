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

// ErrInsufficientStock is returned when a stock adjustment would take a
// product below zero.
var ErrInsufficientStock = errors.New("insufficient stock")

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	List(ctx context.Context, limit, offset int, search, sort, order string) ([]model.Product, int, error)
	Update(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	// AdjustStockSold decrements stock and increments sold_count for a
	// purchased quantity; fails when stock is insufficient.
	AdjustStockSold(ctx context.Context, productID uuid.UUID, quantity int) error
}

type pgProductRepo struct{ pool *pgxpool.Pool }

func NewProductRepository(pool *pgxpool.Pool) ProductRepository {
	return &pgProductRepo{pool: pool}
}

func (r *pgProductRepo) Create(ctx context.Context, product *model.Product) error {
	product.ID = uuid.New()
	query := `INSERT INTO products (id, store_id, name, description, image_url, price, sale_price, stock, sold_count, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, NOW(), NOW()) RETURNING created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		product.ID, product.StoreID, product.Name, product.Description,
		product.ImageURL, product.Price, product.SalePrice, product.Stock,
	).Scan(&product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create product: %w", err)
	}

	for i := range product.Variations {
		v := &product.Variations[i]
		v.ID = uuid.New()
		v.ProductID = product.ID
		_, err := r.pool.Exec(ctx,
			`INSERT INTO product_variations (id, product_id, color, size, additional_price, stock)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			v.ID, v.ProductID, v.Color, v.Size, v.AdditionalPrice, v.Stock,
		)
		if err != nil {
			return fmt.Errorf("create variation: %w", err)
		}
	}
	return nil
}

func (r *pgProductRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	query := `SELECT id, store_id, name, description, image_url, price, sale_price, stock, sold_count, created_at, updated_at
			  FROM products WHERE id = $1`
	p := &model.Product{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.StoreID, &p.Name, &p.Description, &p.ImageURL,
		&p.Price, &p.SalePrice, &p.Stock, &p.SoldCount, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, product_id, color, size, additional_price, stock
		 FROM product_variations WHERE product_id = $1`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("get variations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var v model.Variation
		if err := rows.Scan(&v.ID, &v.ProductID, &v.Color, &v.Size, &v.AdditionalPrice, &v.Stock); err != nil {
			return nil, fmt.Errorf("scan variation: %w", err)
		}
		p.Variations = append(p.Variations, v)
	}
	return p, nil
}

func (r *pgProductRepo) List(ctx context.Context, limit, offset int, search, sort, order string) ([]model.Product, int, error) {
	allowedSorts := map[string]bool{"name": true, "price": true, "created_at": true}
	if !allowedSorts[sort] {
		sort = "created_at"
	}
	if order != "asc" && order != "desc" {
		order = "desc"
	}

	var total int
	countQ := `SELECT COUNT(*) FROM products WHERE ($1 = '' OR name ILIKE '%' || $1 || '%' OR description ILIKE '%' || $1 || '%')`
	if err := r.pool.QueryRow(ctx, countQ, search).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	query := fmt.Sprintf(`SELECT id, store_id, name, description, image_url, price, sale_price, stock, sold_count, created_at, updated_at
		FROM products
		WHERE ($1 = '' OR name ILIKE '%%' || $1 || '%%' OR description ILIKE '%%' || $1 || '%%')
		ORDER BY %s %s LIMIT $2 OFFSET $3`, sort, order)

	rows, err := r.pool.Query(ctx, query, search, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.StoreID, &p.Name, &p.Description, &p.ImageURL,
			&p.Price, &p.SalePrice, &p.Stock, &p.SoldCount, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, total, nil
}

func (r *pgProductRepo) Update(ctx context.Context, product *model.Product) error {
	query := `UPDATE products SET name=$2, description=$3, image_url=$4, price=$5, sale_price=$6, stock=$7, updated_at=NOW()
			  WHERE id=$1 RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query,
		product.ID, product.Name, product.Description, product.ImageURL,
		product.Price, product.SalePrice, product.Stock,
	).Scan(&product.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("update product: %w", err)
	}
	return nil
}

func (r *pgProductRepo) Delete(ctx context.Context, id uuid.UUID) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *pgProductRepo) AdjustStockSold(ctx context.Context, productID uuid.UUID, quantity int) error {
	ct, err := r.pool.Exec(ctx,
		`UPDATE products SET stock = stock - $2, sold_count = sold_count + $2, updated_at = NOW()
		 WHERE id = $1 AND stock >= $2`,
		productID, quantity,
	)
	if err != nil {
		return fmt.Errorf("adjust stock: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("product %s: %w", productID, ErrInsufficientStock)
	}
	return nil
}
