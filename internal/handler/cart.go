package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/flicky/go-marketplace-api/internal/dto"
	"github.com/flicky/go-marketplace-api/internal/middleware"
	"github.com/flicky/go-marketplace-api/internal/model"
	"github.com/flicky/go-marketplace-api/internal/service"
)

type CartHandler struct {
	svc *service.CartService
}

func NewCartHandler(svc *service.CartService) *CartHandler {
	return &CartHandler{svc: svc}
}

func (h *CartHandler) GetCart(c *gin.Context) {
	cart, err := h.svc.GetCart(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(cart))
}

func (h *CartHandler) AddItem(c *gin.Context) {
	var req dto.AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cart, err := h.svc.AddItem(c.Request.Context(), middleware.GetUserID(c), req.ProductID, req.Quantity, req.VariationID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toCartResponse(cart))
}

func (h *CartHandler) UpdateItem(c *gin.Context) {
	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req dto.UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cart, err := h.svc.UpdateQuantity(c.Request.Context(), middleware.GetUserID(c), itemID, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(cart))
}

func (h *CartHandler) DeleteItem(c *gin.Context) {
	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	cart, err := h.svc.RemoveItem(c.Request.Context(), middleware.GetUserID(c), itemID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(cart))
}

func toCartResponse(cart *model.Cart) dto.CartResponse {
	items := make([]dto.CartItemResponse, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, dto.CartItemResponse{
			ID:              item.ID,
			ProductID:       item.ProductID,
			StoreID:         item.StoreID,
			Name:            item.Name,
			ImageURL:        item.ImageURL,
			Price:           item.Price,
			SalePrice:       item.SalePrice,
			VariationID:     item.VariationID,
			VariationColor:  item.VariationColor,
			VariationSize:   item.VariationSize,
			AdditionalPrice: item.AdditionalPrice,
			Quantity:        item.Quantity,
			Subtotal:        item.Subtotal,
		})
	}
	return dto.CartResponse{ID: cart.ID, Items: items, Subtotal: cart.Subtotal, Total: cart.Total}
}
