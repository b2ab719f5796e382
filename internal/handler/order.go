package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flicky/go-marketplace-api/internal/dto"
	"github.com/flicky/go-marketplace-api/internal/middleware"
	"github.com/flicky/go-marketplace-api/internal/model"
	"github.com/flicky/go-marketplace-api/internal/service"
)

type OrderHandler struct {
	orderService *service.OrderService
}

func NewOrderHandler(orderService *service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	in := service.CreateOrderInput{
		SelectedItemIDs: req.SelectedItemIDs,
		ShippingAddress: model.ShippingAddress{
			FullName: req.ShippingAddress.FullName,
			Phone:    req.ShippingAddress.Phone,
			Address:  req.ShippingAddress.Address,
		},
		PaymentMethod:       model.PaymentMethod(req.PaymentMethod),
		ShippingFee:         req.ShippingFee,
		ProductVoucherCode:  req.ProductVoucherCode,
		FreeshipVoucherCode: req.FreeshipVoucherCode,
		VoucherCode:         req.VoucherCode,
		Note:                req.Note,
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, service.OrderItemInput{
			ProductID:   it.ProductID,
			VariationID: it.VariationID,
			Quantity:    it.Quantity,
			Price:       it.Price,
			SalePrice:   it.SalePrice,
			StoreID:     it.StoreID,
			Name:        it.Name,
			ImageURL:    it.ImageURL,
		})
	}

	order, err := h.orderService.CreateOrder(c.Request.Context(), middleware.GetUserID(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toOrderResponse(order))
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	orders, err := h.orderService.ListByUserID(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	var items []dto.OrderResponse
	for i := range orders {
		items = append(items, toOrderResponse(&orders[i]))
	}
	c.JSON(http.StatusOK, dto.OrderListResponse{Orders: items, Total: len(items)})
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.orderService.GetByCode(c.Request.Context(),
		c.Param("code"), middleware.GetUserID(c), middleware.GetUserRole(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order))
}

func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	order, err := h.orderService.UpdateStatus(c.Request.Context(),
		middleware.GetUserID(c), middleware.GetUserRole(c),
		c.Param("code"), model.OrderStatus(req.Status), req.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order))
}

// ConfirmReceived is the buyer's receipt confirmation, a fixed transition
// into received.
func (h *OrderHandler) ConfirmReceived(c *gin.Context) {
	order, err := h.orderService.UpdateStatus(c.Request.Context(),
		middleware.GetUserID(c), middleware.GetUserRole(c),
		c.Param("code"), model.OrderStatusReceived, "buyer confirmed receipt")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order))
}

func toOrderResponse(order *model.Order) dto.OrderResponse {
	var items []dto.OrderItemResponse
	for _, item := range order.Items {
		items = append(items, dto.OrderItemResponse{
			ID:              item.ID,
			ProductID:       item.ProductID,
			StoreID:         item.StoreID,
			Name:            item.Name,
			ImageURL:        item.ImageURL,
			Price:           item.Price,
			SalePrice:       item.SalePrice,
			VariationColor:  item.VariationColor,
			VariationSize:   item.VariationSize,
			AdditionalPrice: item.AdditionalPrice,
			Quantity:        item.Quantity,
			Subtotal:        item.Subtotal,
		})
	}
	var history []dto.StatusEntryResponse
	for _, e := range order.StatusHistory {
		history = append(history, dto.StatusEntryResponse{
			Status:    string(e.Status),
			Note:      e.Note,
			Timestamp: e.Timestamp,
		})
	}
	return dto.OrderResponse{
		ID:            order.ID,
		OrderCode:     order.OrderCode,
		UserID:        order.UserID,
		Status:        order.Status,
		StatusHistory: history,
		Items:         items,
		ShippingAddress: dto.ShippingAddressRequest{
			FullName: order.ShippingAddress.FullName,
			Phone:    order.ShippingAddress.Phone,
			Address:  order.ShippingAddress.Address,
		},
		PaymentMethod:    string(order.Payment.Method),
		PaymentStatus:    string(order.Payment.Status),
		Subtotal:         order.Subtotal,
		Discount:         order.Discount,
		ShippingFee:      order.ShippingFee,
		ShippingDiscount: order.ShippingDiscount,
		Total:            order.Total,
		ProductVoucher:   order.ProductVoucher,
		FreeshipVoucher:  order.FreeshipVoucher,
		Note:             order.Note,
		CreatedAt:        order.CreatedAt,
		UpdatedAt:        order.UpdatedAt,
	}
}
