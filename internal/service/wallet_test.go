package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flicky/go-marketplace-api/internal/apperr"
	"github.com/flicky/go-marketplace-api/internal/model"
)

func TestWalletService_DepositAndWithdraw(t *testing.T) {
	walletRepo := newMockWalletRepo()
	svc := NewWalletService(walletRepo)
	userID := uuid.New()

	_, err := svc.Deposit(context.Background(), userID, decimal.NewFromInt(500000), "MOMO", "pay-1")
	require.NoError(t, err)
	_, err = svc.Withdraw(context.Background(), userID, decimal.NewFromInt(200000), "BANK")
	require.NoError(t, err)

	wallet, err := svc.Get(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, wallet.Balance.Equal(decimal.NewFromInt(300000)))

	// balance equals the signed sum of the ledger
	sum := decimal.Zero
	for _, tx := range wallet.Transactions {
		sum = sum.Add(tx.Type.Delta(tx.Amount))
	}
	assert.True(t, sum.Equal(wallet.Balance))
}

func TestWalletService_Withdraw_Insufficient(t *testing.T) {
	svc := NewWalletService(newMockWalletRepo())
	_, err := svc.Withdraw(context.Background(), uuid.New(), decimal.NewFromInt(1000), "BANK")
	assert.ErrorIs(t, err, ErrWalletInsufficient)
}

func TestWalletService_Deposit_NonPositiveRejected(t *testing.T) {
	svc := NewWalletService(newMockWalletRepo())
	_, err := svc.Deposit(context.Background(), uuid.New(), decimal.Zero, "MOMO", "")
	assert.Equal(t, apperr.InvalidInput, apperr.KindOf(err))
}

func TestTransactionType_Delta(t *testing.T) {
	amount := decimal.NewFromInt(1000)
	assert.True(t, model.TxDeposit.Delta(amount).Equal(amount))
	assert.True(t, model.TxRefund.Delta(amount).Equal(amount))
	assert.True(t, model.TxWithdraw.Delta(amount).Equal(amount.Neg()))
	assert.True(t, model.TxPayment.Delta(amount).Equal(amount.Neg()))
}
