package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flicky/go-marketplace-api/internal/dto"
	"github.com/flicky/go-marketplace-api/internal/middleware"
	"github.com/flicky/go-marketplace-api/internal/service"
)

type WalletHandler struct {
	walletService *service.WalletService
}

func NewWalletHandler(walletService *service.WalletService) *WalletHandler {
	return &WalletHandler{walletService: walletService}
}

func (h *WalletHandler) Get(c *gin.Context) {
	wallet, err := h.walletService.Get(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	resp := dto.WalletResponse{ID: wallet.ID, Balance: wallet.Balance}
	for _, tx := range wallet.Transactions {
		resp.Transactions = append(resp.Transactions, dto.WalletTransactionResponse{
			ID:        tx.ID,
			Type:      string(tx.Type),
			Amount:    tx.Amount,
			Method:    tx.Method,
			OrderCode: tx.OrderCode,
			Status:    tx.Status,
			CreatedAt: tx.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, resp)
}

func (h *WalletHandler) Deposit(c *gin.Context) {
	var req dto.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tx, err := h.walletService.Deposit(c.Request.Context(), middleware.GetUserID(c), req.Amount, req.Method, req.PaymentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"transaction_id": tx.ID, "amount": tx.Amount})
}

func (h *WalletHandler) Withdraw(c *gin.Context) {
	var req dto.WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tx, err := h.walletService.Withdraw(c.Request.Context(), middleware.GetUserID(c), req.Amount, req.Method)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"transaction_id": tx.ID, "amount": tx.Amount})
}
