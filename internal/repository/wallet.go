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

// ErrInsufficientBalance surfaces a debit that would take the wallet
// negative; the guarded update refuses it atomically.
var ErrInsufficientBalance = errors.New("insufficient wallet balance")

type WalletRepository interface {
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*model.Wallet, error)
	GetWithTransactions(ctx context.Context, userID uuid.UUID) (*model.Wallet, error)
	// Apply records a ledger transaction and moves the balance by its
	// signed delta in one transaction. The balance update is a single
	// guarded statement, so concurrent debits cannot overdraw.
	Apply(ctx context.Context, userID uuid.UUID, tx *model.WalletTransaction) error
}

type pgWalletRepo struct{ pool *pgxpool.Pool }

func NewWalletRepository(pool *pgxpool.Pool) WalletRepository {
	return &pgWalletRepo{pool: pool}
}

func (r *pgWalletRepo) GetOrCreate(ctx context.Context, userID uuid.UUID) (*model.Wallet, error) {
	w := &model.Wallet{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, balance, created_at, updated_at FROM wallets WHERE user_id = $1`, userID,
	).Scan(&w.ID, &w.UserID, &w.Balance, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			w.ID = uuid.New()
			w.UserID = userID
			err = r.pool.QueryRow(ctx,
				`INSERT INTO wallets (id, user_id, balance, created_at, updated_at)
				 VALUES ($1, $2, 0, NOW(), NOW())
				 ON CONFLICT (user_id) DO UPDATE SET updated_at = NOW()
				 RETURNING id, balance, created_at, updated_at`,
				w.ID, w.UserID,
			).Scan(&w.ID, &w.Balance, &w.CreatedAt, &w.UpdatedAt)
			if err != nil {
				return nil, fmt.Errorf("create wallet: %w", err)
			}
			return w, nil
		}
		return nil, fmt.Errorf("get wallet: %w", err)
	}
	return w, nil
}

func (r *pgWalletRepo) GetWithTransactions(ctx context.Context, userID uuid.UUID) (*model.Wallet, error) {
	w, err := r.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, wallet_id, type, amount, method, order_code, status, payment_id, created_at
		 FROM wallet_transactions WHERE wallet_id = $1 ORDER BY created_at DESC`, w.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("get wallet transactions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var t model.WalletTransaction
		if err := rows.Scan(&t.ID, &t.WalletID, &t.Type, &t.Amount, &t.Method,
			&t.OrderCode, &t.Status, &t.PaymentID, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan wallet transaction: %w", err)
		}
		w.Transactions = append(w.Transactions, t)
	}
	return w, nil
}

func (r *pgWalletRepo) Apply(ctx context.Context, userID uuid.UUID, wtx *model.WalletTransaction) error {
	wallet, err := r.GetOrCreate(ctx, userID)
	if err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	delta := wtx.Type.Delta(wtx.Amount)
	ct, err := tx.Exec(ctx,
		`UPDATE wallets SET balance = balance + $2, updated_at = NOW()
		 WHERE id = $1 AND balance + $2 >= 0`,
		wallet.ID, delta,
	)
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrInsufficientBalance
	}

	wtx.ID = uuid.New()
	wtx.WalletID = wallet.ID
	err = tx.QueryRow(ctx,
		`INSERT INTO wallet_transactions (id, wallet_id, type, amount, method, order_code, status, payment_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW()) RETURNING created_at`,
		wtx.ID, wtx.WalletID, wtx.Type, wtx.Amount, wtx.Method, wtx.OrderCode, wtx.Status, wtx.PaymentID,
	).Scan(&wtx.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert wallet transaction: %w", err)
	}
	return tx.Commit(ctx)
}
