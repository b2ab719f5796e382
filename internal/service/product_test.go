package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flicky/go-marketplace-api/internal/apperr"
	"github.com/flicky/go-marketplace-api/internal/dto"
	"github.com/flicky/go-marketplace-api/internal/model"
	"github.com/flicky/go-marketplace-api/internal/repository"
)

type mockProductRepo struct {
	products map[uuid.UUID]*model.Product
}

func newMockProductRepo() *mockProductRepo {
	return &mockProductRepo{products: make(map[uuid.UUID]*model.Product)}
}

func (m *mockProductRepo) Create(_ context.Context, product *model.Product) error {
	product.ID = uuid.New()
	for i := range product.Variations {
		product.Variations[i].ID = uuid.New()
		product.Variations[i].ProductID = product.ID
	}
	m.products[product.ID] = product
	return nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	return m.products[id], nil
}

func (m *mockProductRepo) List(_ context.Context, limit, offset int, _, _, _ string) ([]model.Product, int, error) {
	var out []model.Product
	for _, p := range m.products {
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (m *mockProductRepo) Update(_ context.Context, product *model.Product) error {
	m.products[product.ID] = product
	return nil
}

func (m *mockProductRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.products, id)
	return nil
}

func (m *mockProductRepo) AdjustStockSold(_ context.Context, productID uuid.UUID, quantity int) error {
	p, ok := m.products[productID]
	if !ok || p.Stock < quantity {
		return repository.ErrInsufficientStock
	}
	p.Stock -= quantity
	p.SoldCount += quantity
	return nil
}

type mockStoreRepo struct {
	stores map[uuid.UUID]*model.Store
}

func newMockStoreRepo() *mockStoreRepo {
	return &mockStoreRepo{stores: make(map[uuid.UUID]*model.Store)}
}

func (m *mockStoreRepo) Create(_ context.Context, store *model.Store) error {
	store.ID = uuid.New()
	m.stores[store.ID] = store
	return nil
}

func (m *mockStoreRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Store, error) {
	return m.stores[id], nil
}

func (m *mockStoreRepo) GetByOwner(_ context.Context, ownerID uuid.UUID) (*model.Store, error) {
	for _, s := range m.stores {
		if s.OwnerUserID == ownerID {
			return s, nil
		}
	}
	return nil, nil
}

func (m *mockStoreRepo) ListByIDs(_ context.Context, ids []uuid.UUID) ([]model.Store, error) {
	var out []model.Store
	for _, id := range ids {
		if s, ok := m.stores[id]; ok {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *mockStoreRepo) addStore(ownerID uuid.UUID, category string) *model.Store {
	store := &model.Store{ID: uuid.New(), OwnerUserID: ownerID, Category: category, IsActive: true}
	m.stores[store.ID] = store
	return store
}

func TestProductService_Create_UsesSellersStore(t *testing.T) {
	productRepo := newMockProductRepo()
	storeRepo := newMockStoreRepo()
	sellerID := uuid.New()
	store := storeRepo.addStore(sellerID, "electronics")
	svc := NewProductService(productRepo, storeRepo, nil)

	resp, err := svc.Create(context.Background(), sellerID, dto.CreateProductRequest{
		Name: "Laptop", Description: "16GB", Price: decimal.NewFromInt(25000000), Stock: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, store.ID, resp.StoreID)
}

func TestProductService_Create_NoStore(t *testing.T) {
	svc := NewProductService(newMockProductRepo(), newMockStoreRepo(), nil)
	_, err := svc.Create(context.Background(), uuid.New(), dto.CreateProductRequest{
		Name: "X", Description: "Y", Price: decimal.NewFromInt(1000), Stock: 1,
	})
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func TestProductService_Update_ForeignStoreRejected(t *testing.T) {
	productRepo := newMockProductRepo()
	storeRepo := newMockStoreRepo()
	owner := uuid.New()
	store := storeRepo.addStore(owner, "fashion")
	pid := uuid.New()
	productRepo.products[pid] = &model.Product{ID: pid, StoreID: store.ID, Name: "Tee", Price: decimal.NewFromInt(90000)}
	svc := NewProductService(productRepo, storeRepo, nil)

	name := "Renamed"
	_, err := svc.Update(context.Background(), uuid.New(), pid, dto.UpdateProductRequest{Name: &name})
	assert.Equal(t, apperr.Forbidden, apperr.KindOf(err))
	assert.Equal(t, "Tee", productRepo.products[pid].Name)
}

func TestProductService_Delete(t *testing.T) {
	productRepo := newMockProductRepo()
	storeRepo := newMockStoreRepo()
	sellerID := uuid.New()
	store := storeRepo.addStore(sellerID, "books")
	pid := uuid.New()
	productRepo.products[pid] = &model.Product{ID: pid, StoreID: store.ID, Name: "Novel"}
	svc := NewProductService(productRepo, storeRepo, nil)

	require.NoError(t, svc.Delete(context.Background(), sellerID, pid))
	assert.Empty(t, productRepo.products)
}
