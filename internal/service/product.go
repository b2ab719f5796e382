package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/flicky/go-marketplace-api/internal/apperr"
	"github.com/flicky/go-marketplace-api/internal/dto"
	"github.com/flicky/go-marketplace-api/internal/model"
	"github.com/flicky/go-marketplace-api/internal/repository"
)

var ErrProductNotFound = apperr.New(apperr.NotFound, "product not found")

const productCacheTTL = 60 * time.Second

type ProductService struct {
	productRepo repository.ProductRepository
	storeRepo   repository.StoreRepository
	redisClient *redis.Client
}

func NewProductService(productRepo repository.ProductRepository, storeRepo repository.StoreRepository, redisClient *redis.Client) *ProductService {
	return &ProductService{productRepo: productRepo, storeRepo: storeRepo, redisClient: redisClient}
}

func (s *ProductService) Create(ctx context.Context, sellerID uuid.UUID, req dto.CreateProductRequest) (*dto.ProductResponse, error) {
	store, err := s.storeRepo.GetByOwner(ctx, sellerID)
	if err != nil {
		return nil, fmt.Errorf("get store: %w", err)
	}
	if store == nil {
		return nil, apperr.New(apperr.NotFound, "store not found")
	}

	product := &model.Product{
		StoreID:     store.ID,
		Name:        req.Name,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		Price:       req.Price,
		SalePrice:   req.SalePrice,
		Stock:       req.Stock,
	}
	for _, v := range req.Variations {
		product.Variations = append(product.Variations, model.Variation{
			Color:           v.Color,
			Size:            v.Size,
			AdditionalPrice: v.AdditionalPrice,
			Stock:           v.Stock,
		})
	}
	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	resp := toProductResponse(product)
	return &resp, nil
}

func (s *ProductService) GetByID(ctx context.Context, id uuid.UUID) (*dto.ProductResponse, error) {
	cacheKey := "product:" + id.String()

	if s.redisClient != nil {
		if cached, err := s.redisClient.Get(ctx, cacheKey).Result(); err == nil {
			var resp dto.ProductResponse
			if json.Unmarshal([]byte(cached), &resp) == nil {
				return &resp, nil
			}
		}
	}

	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	resp := toProductResponse(product)

	if s.redisClient != nil {
		if data, err := json.Marshal(resp); err == nil {
			s.redisClient.Set(ctx, cacheKey, data, productCacheTTL)
		}
	}
	return &resp, nil
}

func (s *ProductService) List(ctx context.Context, req dto.ListProductsRequest) (*dto.ProductListResponse, error) {
	offset := (req.Page - 1) * req.Limit
	products, total, err := s.productRepo.List(ctx, req.Limit, offset, req.Search, req.Sort, req.Order)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	var items []dto.ProductResponse
	for _, p := range products {
		items = append(items, toProductResponse(&p))
	}
	return &dto.ProductListResponse{Products: items, Total: total, Page: req.Page, Limit: req.Limit}, nil
}

func (s *ProductService) Update(ctx context.Context, sellerID, id uuid.UUID, req dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	if err := s.authorizeSeller(ctx, sellerID, product.StoreID); err != nil {
		return nil, err
	}

	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.ImageURL != nil {
		product.ImageURL = *req.ImageURL
	}
	if req.Price != nil {
		product.Price = *req.Price
	}
	if req.SalePrice != nil {
		product.SalePrice = req.SalePrice
	}
	if req.Stock != nil {
		product.Stock = *req.Stock
	}

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	s.invalidateCache(ctx, id)
	resp := toProductResponse(product)
	return &resp, nil
}

func (s *ProductService) Delete(ctx context.Context, sellerID, id uuid.UUID) error {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return ErrProductNotFound
	}
	if err := s.authorizeSeller(ctx, sellerID, product.StoreID); err != nil {
		return err
	}
	if err := s.productRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	s.invalidateCache(ctx, id)
	return nil
}

func (s *ProductService) authorizeSeller(ctx context.Context, sellerID, storeID uuid.UUID) error {
	store, err := s.storeRepo.GetByID(ctx, storeID)
	if err != nil {
		return fmt.Errorf("get store: %w", err)
	}
	if store == nil || store.OwnerUserID != sellerID {
		return apperr.New(apperr.Forbidden, "product belongs to another store")
	}
	return nil
}

func (s *ProductService) invalidateCache(ctx context.Context, id uuid.UUID) {
	if s.redisClient != nil {
		s.redisClient.Del(ctx, "product:"+id.String())
	}
}

func toProductResponse(p *model.Product) dto.ProductResponse {
	resp := dto.ProductResponse{
		ID:          p.ID,
		StoreID:     p.StoreID,
		Name:        p.Name,
		Description: p.Description,
		ImageURL:    p.ImageURL,
		Price:       p.Price,
		SalePrice:   p.SalePrice,
		Stock:       p.Stock,
		SoldCount:   p.SoldCount,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	for _, v := range p.Variations {
		resp.Variations = append(resp.Variations, dto.VariationResponse{
			ID:              v.ID,
			Color:           v.Color,
			Size:            v.Size,
			AdditionalPrice: v.AdditionalPrice,
			Stock:           v.Stock,
		})
	}
	return resp
}
