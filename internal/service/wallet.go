package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/flicky/go-marketplace-api/internal/apperr"
	"github.com/flicky/go-marketplace-api/internal/model"
	"github.com/flicky/go-marketplace-api/internal/repository"
)

var ErrWalletInsufficient = apperr.New(apperr.InvalidState, "insufficient wallet balance")

type WalletService struct {
	walletRepo repository.WalletRepository
}

func NewWalletService(walletRepo repository.WalletRepository) *WalletService {
	return &WalletService{walletRepo: walletRepo}
}

func (s *WalletService) Get(ctx context.Context, userID uuid.UUID) (*model.Wallet, error) {
	return s.walletRepo.GetWithTransactions(ctx, userID)
}

// Deposit credits the wallet, normally from a confirmed gateway top-up.
func (s *WalletService) Deposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, method, paymentID string) (*model.WalletTransaction, error) {
	if !amount.IsPositive() {
		return nil, apperr.New(apperr.InvalidInput, "amount must be positive")
	}
	tx := &model.WalletTransaction{
		Type:      model.TxDeposit,
		Amount:    amount,
		Method:    method,
		Status:    "completed",
		PaymentID: paymentID,
	}
	if err := s.walletRepo.Apply(ctx, userID, tx); err != nil {
		return nil, fmt.Errorf("deposit: %w", err)
	}
	return tx, nil
}

func (s *WalletService) Withdraw(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, method string) (*model.WalletTransaction, error) {
	if !amount.IsPositive() {
		return nil, apperr.New(apperr.InvalidInput, "amount must be positive")
	}
	tx := &model.WalletTransaction{
		Type:   model.TxWithdraw,
		Amount: amount,
		Method: method,
		Status: "completed",
	}
	if err := s.walletRepo.Apply(ctx, userID, tx); err != nil {
		if errors.Is(err, repository.ErrInsufficientBalance) {
			return nil, ErrWalletInsufficient
		}
		return nil, fmt.Errorf("withdraw: %w", err)
	}
	return tx, nil
}
