package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flicky/go-marketplace-api/internal/dto"
	"github.com/flicky/go-marketplace-api/internal/service"
)

type PaymentHandler struct {
	paymentService *service.PaymentService
}

func NewPaymentHandler(paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// Callback receives the gateway's payment result. Gateways expect a 200
// even for business rejections they cannot act on, so only malformed
// payloads get a 4xx here.
func (h *PaymentHandler) Callback(c *gin.Context) {
	var req dto.PaymentCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.paymentService.HandleCallback(c.Request.Context(),
		req.OrderCode, req.Amount, req.ResultCode, req.TransactionID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "callback processed"})
}

func (h *PaymentHandler) RequestRefund(c *gin.Context) {
	if err := h.paymentService.RequestRefund(c.Request.Context(), c.Param("code")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "refund requested"})
}
