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

type OrderRepository interface {
	// Create persists the order snapshot, its items and the initial status
	// history entry in one transaction.
	Create(ctx context.Context, order *model.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	GetByCode(ctx context.Context, orderCode string) (*model.Order, error)
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]model.Order, error)
	AppendStatus(ctx context.Context, orderID uuid.UUID, entry model.StatusEntry) error
	UpdatePaymentStatus(ctx context.Context, orderID uuid.UUID, status model.PaymentStatus, paymentID string) error
}

type pgOrderRepo struct{ pool *pgxpool.Pool }

func NewOrderRepository(pool *pgxpool.Pool) OrderRepository {
	return &pgOrderRepo{pool: pool}
}

func (r *pgOrderRepo) Create(ctx context.Context, order *model.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	order.ID = uuid.New()
	err = tx.QueryRow(ctx,
		`INSERT INTO orders (id, order_code, user_id, user_full_name, user_email, user_phone, user_role,
			ship_full_name, ship_phone, ship_address, shipping_fee,
			payment_method, payment_status, payment_id, status,
			subtotal, discount, shipping_discount, total,
			product_voucher, freeship_voucher, note, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,NOW(),NOW())
		 RETURNING created_at, updated_at`,
		order.ID, order.OrderCode, order.UserID, order.UserFullName, order.UserEmail, order.UserPhone, order.UserRole,
		order.ShippingAddress.FullName, order.ShippingAddress.Phone, order.ShippingAddress.Address, order.ShippingFee,
		order.Payment.Method, order.Payment.Status, order.Payment.PaymentID, order.Status,
		order.Subtotal, order.Discount, order.ShippingDiscount, order.Total,
		order.ProductVoucher, order.FreeshipVoucher, order.Note,
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i := range order.Items {
		it := &order.Items[i]
		it.ID = uuid.New()
		it.OrderID = order.ID
		_, err = tx.Exec(ctx,
			`INSERT INTO order_items (id, order_id, product_id, store_id, name, image_url, price, sale_price,
				variation_id, variation_color, variation_size, additional_price, quantity, subtotal)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
			it.ID, it.OrderID, it.ProductID, it.StoreID, it.Name, it.ImageURL, it.Price, it.SalePrice,
			it.VariationID, it.VariationColor, it.VariationSize, it.AdditionalPrice, it.Quantity, it.Subtotal,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	for _, entry := range order.StatusHistory {
		_, err = tx.Exec(ctx,
			`INSERT INTO order_status_history (id, order_id, status, note, created_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			uuid.New(), order.ID, entry.Status, entry.Note, entry.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("insert status history: %w", err)
		}
	}
	return tx.Commit(ctx)
}

const orderColumns = `id, order_code, user_id, user_full_name, user_email, user_phone, user_role,
	ship_full_name, ship_phone, ship_address, shipping_fee,
	payment_method, payment_status, payment_id, status,
	subtotal, discount, shipping_discount, total,
	product_voucher, freeship_voucher, note, created_at, updated_at`

func scanOrder(row pgx.Row) (*model.Order, error) {
	o := &model.Order{}
	err := row.Scan(
		&o.ID, &o.OrderCode, &o.UserID, &o.UserFullName, &o.UserEmail, &o.UserPhone, &o.UserRole,
		&o.ShippingAddress.FullName, &o.ShippingAddress.Phone, &o.ShippingAddress.Address, &o.ShippingFee,
		&o.Payment.Method, &o.Payment.Status, &o.Payment.PaymentID, &o.Status,
		&o.Subtotal, &o.Discount, &o.ShippingDiscount, &o.Total,
		&o.ProductVoucher, &o.FreeshipVoucher, &o.Note, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (r *pgOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	return r.getBy(ctx, `id = $1`, id)
}

func (r *pgOrderRepo) GetByCode(ctx context.Context, orderCode string) (*model.Order, error) {
	return r.getBy(ctx, `order_code = $1`, orderCode)
}

func (r *pgOrderRepo) getBy(ctx context.Context, where string, arg any) (*model.Order, error) {
	order, err := scanOrder(r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE `+where, arg,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, order_id, product_id, store_id, name, image_url, price, sale_price,
		        variation_id, variation_color, variation_size, additional_price, quantity, subtotal
		 FROM order_items WHERE order_id = $1`, order.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it model.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.StoreID, &it.Name, &it.ImageURL,
			&it.Price, &it.SalePrice, &it.VariationID, &it.VariationColor, &it.VariationSize,
			&it.AdditionalPrice, &it.Quantity, &it.Subtotal); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		order.Items = append(order.Items, it)
	}
	rows.Close()

	hrows, err := r.pool.Query(ctx,
		`SELECT status, note, created_at FROM order_status_history WHERE order_id = $1 ORDER BY created_at`,
		order.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("get status history: %w", err)
	}
	defer hrows.Close()

	for hrows.Next() {
		var e model.StatusEntry
		if err := hrows.Scan(&e.Status, &e.Note, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan status history: %w", err)
		}
		order.StatusHistory = append(order.StatusHistory, e)
	}
	return order, nil
}

func (r *pgOrderRepo) ListByUserID(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	return orders, nil
}

// AppendStatus records the transition and moves the order's current status
// in one transaction; history rows are never updated or deleted.
func (r *pgOrderRepo) AppendStatus(ctx context.Context, orderID uuid.UUID, entry model.StatusEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO order_status_history (id, order_id, status, note, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		uuid.New(), orderID, entry.Status, entry.Note, entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert status history: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1`,
		orderID, entry.Status,
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	return tx.Commit(ctx)
}

func (r *pgOrderRepo) UpdatePaymentStatus(ctx context.Context, orderID uuid.UUID, status model.PaymentStatus, paymentID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE orders SET payment_status = $2, payment_id = $3, updated_at = NOW() WHERE id = $1`,
		orderID, status, paymentID,
	)
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	return nil
}
