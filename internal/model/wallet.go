package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TxDeposit  TransactionType = "deposit"
	TxWithdraw TransactionType = "withdraw"
	TxPayment  TransactionType = "payment"
	TxRefund   TransactionType = "refund"
)

// Delta returns the signed effect of amount on a balance: deposits and
// refunds add, withdrawals and payments subtract.
func (t TransactionType) Delta(amount decimal.Decimal) decimal.Decimal {
	switch t {
	case TxWithdraw, TxPayment:
		return amount.Neg()
	default:
		return amount
	}
}

// Wallet holds one user's balance plus its append-only ledger. The balance
// always equals the signed sum of the ledger and never goes negative.
type Wallet struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	Balance      decimal.Decimal
	Transactions []WalletTransaction
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type WalletTransaction struct {
	ID        uuid.UUID
	WalletID  uuid.UUID
	Type      TransactionType
	Amount    decimal.Decimal
	Method    string
	OrderCode string
	Status    string
	PaymentID string
	CreatedAt time.Time
}
