package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionStatus is the stored lifecycle state of a transaction row.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusCancelled TransactionStatus = "cancelled"
)

// Transaction mirrors the transactions table. Nullable columns use pointer
// types so scans round-trip NULLs faithfully.
type Transaction struct {
	TransactionID             string            `db:"transaction_id"`
	Reference                 string            `db:"reference"`
	AccountID                 string            `db:"account_id"`
	Type                      string            `db:"type"`
	Amount                    decimal.Decimal   `db:"amount"`
	Status                    TransactionStatus `db:"status"`
	Note                      string            `db:"note"`
	CreatedAt                 time.Time         `db:"created_at"`
	ProcessedAt               *time.Time        `db:"processed_at"`
	PerformedBy               *string           `db:"performed_by"`
	ProcessedBy               *string           `db:"processed_by"`
	CancelledBy               *string           `db:"cancelled_by"`
	RelatedTransactionID      *string           `db:"related_transaction_id"`
	CounterpartyAccountNumber string            `db:"counterparty_account_number"`
}
