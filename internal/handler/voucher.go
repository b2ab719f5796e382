package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flicky/go-marketplace-api/internal/dto"
	"github.com/flicky/go-marketplace-api/internal/middleware"
	"github.com/flicky/go-marketplace-api/internal/model"
	"github.com/flicky/go-marketplace-api/internal/service"
)

type VoucherHandler struct {
	voucherService *service.VoucherService
}

func NewVoucherHandler(voucherService *service.VoucherService) *VoucherHandler {
	return &VoucherHandler{voucherService: voucherService}
}

// Preview returns the vouchers usable for the checkout described by the
// query, with each discount already computed.
func (h *VoucherHandler) Preview(c *gin.Context) {
	var req dto.PreviewVouchersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	applied, err := h.voucherService.Preview(c.Request.Context(), service.CheckoutContext{
		UserID:      middleware.GetUserID(c),
		Subtotal:    req.Subtotal,
		ShippingFee: req.ShippingFee,
		StoreIDs:    req.StoreIDs,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	items := make([]dto.AppliedVoucherResponse, 0, len(applied))
	for _, a := range applied {
		items = append(items, dto.AppliedVoucherResponse{
			Voucher:  toVoucherResponse(a.Voucher),
			Discount: a.Discount,
		})
	}
	c.JSON(http.StatusOK, gin.H{"vouchers": items})
}

func (h *VoucherHandler) CreateStoreVoucher(c *gin.Context) {
	var req dto.CreateVoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	voucher := voucherFromRequest(req)
	if err := h.voucherService.CreateStoreVoucher(c.Request.Context(), middleware.GetUserID(c), voucher); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toVoucherResponse(voucher))
}

func (h *VoucherHandler) UpdateStoreVoucher(c *gin.Context) {
	var req dto.CreateVoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	voucher := voucherFromRequest(req)
	voucher.Code = model.NormalizeVoucherCode(c.Param("code"))
	if err := h.voucherService.UpdateStoreVoucher(c.Request.Context(), middleware.GetUserID(c), voucher); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toVoucherResponse(voucher))
}

func voucherFromRequest(req dto.CreateVoucherRequest) *model.Voucher {
	return &model.Voucher{
		Code:          model.NormalizeVoucherCode(req.Code),
		Description:   req.Description,
		DiscountType:  model.DiscountType(req.DiscountType),
		DiscountValue: req.DiscountValue,
		MinOrderValue: req.MinOrderValue,
		MaxDiscount:   req.MaxDiscount,
		VoucherType:   model.VoucherType(req.VoucherType),
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		UsageLimit:    req.UsageLimit,
		IsActive:      true,
	}
}

func toVoucherResponse(v *model.Voucher) dto.VoucherResponse {
	return dto.VoucherResponse{
		ID:            v.ID,
		Code:          v.Code,
		Description:   v.Description,
		DiscountType:  string(v.DiscountType),
		DiscountValue: v.DiscountValue,
		MinOrderValue: v.MinOrderValue,
		MaxDiscount:   v.MaxDiscount,
		VoucherType:   string(v.VoucherType),
		StartDate:     v.StartDate,
		EndDate:       v.EndDate,
		UsageLimit:    v.UsageLimit,
		UsedCount:     v.UsedCount,
		IsActive:      v.IsActive,
	}
}
