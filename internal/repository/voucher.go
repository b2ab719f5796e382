package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flicky/go-marketplace-api/internal/model"
)

var (
	// ErrAlreadyRedeemed surfaces the unique (voucher_id, user_id)
	// violation: the user has consumed this voucher before.
	ErrAlreadyRedeemed = errors.New("voucher already redeemed by user")
	// ErrLimitReached means the voucher's usage capacity is exhausted.
	ErrLimitReached = errors.New("voucher usage limit reached")
)

type VoucherRepository interface {
	Create(ctx context.Context, v *model.Voucher) error
	Update(ctx context.Context, v *model.Voucher) error
	Delete(ctx context.Context, id uuid.UUID) error
	GetByCode(ctx context.Context, code string) (*model.Voucher, error)
	ListActive(ctx context.Context) ([]model.Voucher, error)
	ListByStore(ctx context.Context, storeID uuid.UUID) ([]model.Voucher, error)
	// Redeem atomically records one user's consumption of a voucher. It
	// inserts the redemption row and bumps used_count in one transaction;
	// the second concurrent redeemer fails on the unique constraint rather
	// than double-spending.
	Redeem(ctx context.Context, red *model.VoucherRedemption) error
	// Release undoes a redemption when a later checkout step fails.
	Release(ctx context.Context, voucherID, userID uuid.UUID) error
	HasRedeemed(ctx context.Context, voucherID, userID uuid.UUID) (bool, error)
}

type pgVoucherRepo struct{ pool *pgxpool.Pool }

func NewVoucherRepository(pool *pgxpool.Pool) VoucherRepository {
	return &pgVoucherRepo{pool: pool}
}

const voucherColumns = `id, code, description, discount_type, discount_value, min_order_value, max_discount,
	voucher_type, scope, categories, store_id, start_date, end_date, usage_limit, used_count, is_active,
	created_at, updated_at`

func scanVoucher(row pgx.Row) (*model.Voucher, error) {
	v := &model.Voucher{}
	err := row.Scan(
		&v.ID, &v.Code, &v.Description, &v.DiscountType, &v.DiscountValue,
		&v.MinOrderValue, &v.MaxDiscount, &v.VoucherType, &v.Scope, &v.Categories,
		&v.StoreID, &v.StartDate, &v.EndDate, &v.UsageLimit, &v.UsedCount,
		&v.IsActive, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (r *pgVoucherRepo) Create(ctx context.Context, v *model.Voucher) error {
	v.ID = uuid.New()
	v.Code = model.NormalizeVoucherCode(v.Code)
	query := `INSERT INTO vouchers (id, code, description, discount_type, discount_value, min_order_value, max_discount,
				voucher_type, scope, categories, store_id, start_date, end_date, usage_limit, used_count, is_active,
				created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, 0, $15, NOW(), NOW())
			  RETURNING created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		v.ID, v.Code, v.Description, v.DiscountType, v.DiscountValue, v.MinOrderValue, v.MaxDiscount,
		v.VoucherType, v.Scope, v.Categories, v.StoreID, v.StartDate, v.EndDate, v.UsageLimit, v.IsActive,
	).Scan(&v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create voucher: %w", err)
	}
	return nil
}

func (r *pgVoucherRepo) Update(ctx context.Context, v *model.Voucher) error {
	query := `UPDATE vouchers SET description=$2, discount_type=$3, discount_value=$4, min_order_value=$5,
				max_discount=$6, scope=$7, categories=$8, store_id=$9, start_date=$10, end_date=$11,
				usage_limit=$12, is_active=$13, updated_at=NOW()
			  WHERE id=$1 RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query,
		v.ID, v.Description, v.DiscountType, v.DiscountValue, v.MinOrderValue, v.MaxDiscount,
		v.Scope, v.Categories, v.StoreID, v.StartDate, v.EndDate, v.UsageLimit, v.IsActive,
	).Scan(&v.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pgx.ErrNoRows
		}
		return fmt.Errorf("update voucher: %w", err)
	}
	return nil
}

func (r *pgVoucherRepo) Delete(ctx context.Context, id uuid.UUID) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM vouchers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete voucher: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *pgVoucherRepo) GetByCode(ctx context.Context, code string) (*model.Voucher, error) {
	v, err := scanVoucher(r.pool.QueryRow(ctx,
		`SELECT `+voucherColumns+` FROM vouchers WHERE code = $1`,
		model.NormalizeVoucherCode(code),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get voucher: %w", err)
	}
	return v, nil
}

func (r *pgVoucherRepo) ListActive(ctx context.Context) ([]model.Voucher, error) {
	return r.list(ctx,
		`SELECT `+voucherColumns+` FROM vouchers
		 WHERE is_active AND start_date <= NOW() AND end_date >= NOW() AND used_count < usage_limit
		 ORDER BY end_date`)
}

func (r *pgVoucherRepo) ListByStore(ctx context.Context, storeID uuid.UUID) ([]model.Voucher, error) {
	return r.list(ctx,
		`SELECT `+voucherColumns+` FROM vouchers WHERE store_id = $1 ORDER BY created_at DESC`, storeID)
}

func (r *pgVoucherRepo) list(ctx context.Context, query string, args ...any) ([]model.Voucher, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list vouchers: %w", err)
	}
	defer rows.Close()

	var vouchers []model.Voucher
	for rows.Next() {
		v, err := scanVoucher(rows)
		if err != nil {
			return nil, fmt.Errorf("scan voucher: %w", err)
		}
		vouchers = append(vouchers, *v)
	}
	return vouchers, nil
}

func (r *pgVoucherRepo) Redeem(ctx context.Context, red *model.VoucherRedemption) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	red.ID = uuid.New()
	_, err = tx.Exec(ctx,
		`INSERT INTO voucher_redemptions (id, voucher_id, user_id, order_code, amount, used_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())`,
		red.ID, red.VoucherID, red.UserID, red.OrderCode, red.Amount,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrAlreadyRedeemed
		}
		return fmt.Errorf("insert redemption: %w", err)
	}

	ct, err := tx.Exec(ctx,
		`UPDATE vouchers SET used_count = used_count + 1, updated_at = NOW()
		 WHERE id = $1 AND used_count < usage_limit`,
		red.VoucherID,
	)
	if err != nil {
		return fmt.Errorf("increment used count: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrLimitReached
	}
	return tx.Commit(ctx)
}

func (r *pgVoucherRepo) Release(ctx context.Context, voucherID, userID uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	ct, err := tx.Exec(ctx,
		`DELETE FROM voucher_redemptions WHERE voucher_id = $1 AND user_id = $2`,
		voucherID, userID,
	)
	if err != nil {
		return fmt.Errorf("delete redemption: %w", err)
	}
	if ct.RowsAffected() > 0 {
		_, err = tx.Exec(ctx,
			`UPDATE vouchers SET used_count = GREATEST(used_count - 1, 0), updated_at = NOW() WHERE id = $1`,
			voucherID,
		)
		if err != nil {
			return fmt.Errorf("decrement used count: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (r *pgVoucherRepo) HasRedeemed(ctx context.Context, voucherID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM voucher_redemptions WHERE voucher_id = $1 AND user_id = $2)`,
		voucherID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check redemption: %w", err)
	}
	return exists, nil
}
