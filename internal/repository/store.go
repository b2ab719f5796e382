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

type StoreRepository interface {
	Create(ctx context.Context, store *model.Store) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Store, error)
	GetByOwner(ctx context.Context, ownerID uuid.UUID) (*model.Store, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Store, error)
}

type pgStoreRepo struct{ pool *pgxpool.Pool }

func NewStoreRepository(pool *pgxpool.Pool) StoreRepository {
	return &pgStoreRepo{pool: pool}
}

func (r *pgStoreRepo) Create(ctx context.Context, store *model.Store) error {
	store.ID = uuid.New()
	query := `INSERT INTO stores (id, owner_user_id, name, category, is_active, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, NOW(), NOW()) RETURNING created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		store.ID, store.OwnerUserID, store.Name, store.Category, store.IsActive,
	).Scan(&store.CreatedAt, &store.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create store: %w", err)
	}
	return nil
}

func (r *pgStoreRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Store, error) {
	return r.getBy(ctx, `id = $1`, id)
}

func (r *pgStoreRepo) GetByOwner(ctx context.Context, ownerID uuid.UUID) (*model.Store, error) {
	return r.getBy(ctx, `owner_user_id = $1`, ownerID)
}

func (r *pgStoreRepo) getBy(ctx context.Context, where string, arg any) (*model.Store, error) {
	query := `SELECT id, owner_user_id, name, category, is_active, created_at, updated_at
			  FROM stores WHERE ` + where
	store := &model.Store{}
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&store.ID, &store.OwnerUserID, &store.Name, &store.Category,
		&store.IsActive, &store.CreatedAt, &store.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get store: %w", err)
	}
	return store, nil
}

func (r *pgStoreRepo) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Store, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, owner_user_id, name, category, is_active, created_at, updated_at
		 FROM stores WHERE id = ANY($1)`, ids,
	)
	if err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}
	defer rows.Close()

	var stores []model.Store
	for rows.Next() {
		var s model.Store
		if err := rows.Scan(&s.ID, &s.OwnerUserID, &s.Name, &s.Category, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan store: %w", err)
		}
		stores = append(stores, s)
	}
	return stores, nil
}
