package dto

import (
	"time"

	"github.com/accountly/bank_ledger_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateTransactionRequest is the boundary input for deposits and withdrawals.
// Callers are expected to have authenticated the actor; the engine only
// records it.
type CreateTransactionRequest struct {
	AccountID   string                 `json:"accountID" binding:"required"`
	Type        domain.TransactionType `json:"type" binding:"required,oneof=deposit withdrawal"`
	Amount      decimal.Decimal        `json:"amount" binding:"required"`
	Note        string                 `json:"note" binding:"max=255"`
	PerformedBy *string                `json:"performedBy"`
}

// OperationRequest is the request body for deposit and withdrawal endpoints;
// the account comes from the URL.
type OperationRequest struct {
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Note        string          `json:"note" binding:"max=255"`
	PerformedBy *string         `json:"performedBy"`
}

// CreateTransferRequest is the boundary input for transfers. The target is
// addressed by account number, as presented to end users.
type CreateTransferRequest struct {
	SourceAccountID     string          `json:"sourceAccountID" binding:"required"`
	TargetAccountNumber string          `json:"targetAccountNumber" binding:"required,accountnumber"`
	Amount              decimal.Decimal `json:"amount" binding:"required"`
	Note                string          `json:"note" binding:"max=255"`
	PerformedBy         *string         `json:"performedBy"`
}

// CancelTransactionRequest carries the operator-provided reversal reason.
type CancelTransactionRequest struct {
	Reason string `json:"reason" binding:"max=255"`
}

// TransactionSnapshot is the read model of a transaction exposed to callers.
type TransactionSnapshot struct {
	TransactionID             string                   `json:"transactionID"`
	Reference                 string                   `json:"reference"`
	AccountID                 string                   `json:"accountID"`
	Type                      domain.TransactionType   `json:"type"`
	Amount                    decimal.Decimal          `json:"amount"`
	Status                    domain.TransactionStatus `json:"status"`
	Note                      string                   `json:"note"`
	CreatedAt                 time.Time                `json:"createdAt"`
	ProcessedAt               *time.Time               `json:"processedAt,omitempty"`
	RelatedTransactionID      *string                  `json:"relatedTransactionID,omitempty"`
	CounterpartyAccountNumber string                   `json:"counterpartyAccountNumber,omitempty"`
}

// TransactionResult is the outcome of an engine operation. Every outcome
// carries the transaction record for audit; Completed tells the caller whether
// to present success or decline styling.
type TransactionResult struct {
	Transaction TransactionSnapshot `json:"transaction"`
	Completed   bool                `json:"completed"`
	Message     string              `json:"message"`
}

// ListTransactionsParams holds pagination parameters for transaction history.
type ListTransactionsParams struct {
	Limit     int
	NextToken *string
}

// ListTransactionsResponse is a page of transaction history.
type ListTransactionsResponse struct {
	Transactions []TransactionSnapshot `json:"transactions"`
	NextToken    *string               `json:"nextToken,omitempty"`
}

// ToTransactionSnapshot converts a domain transaction to its read model.
func ToTransactionSnapshot(txn *domain.Transaction) TransactionSnapshot {
	return TransactionSnapshot{
		TransactionID:             txn.TransactionID,
		Reference:                 txn.Reference,
		AccountID:                 txn.AccountID,
		Type:                      txn.Type,
		Amount:                    txn.Amount,
		Status:                    txn.Status,
		Note:                      txn.Note,
		CreatedAt:                 txn.CreatedAt,
		ProcessedAt:               txn.ProcessedAt,
		RelatedTransactionID:      txn.RelatedTransactionID,
		CounterpartyAccountNumber: txn.CounterpartyAccountNumber,
	}
}

// ToTransactionSnapshots converts a slice of domain transactions.
func ToTransactionSnapshots(txns []domain.Transaction) []TransactionSnapshot {
	snapshots := make([]TransactionSnapshot, len(txns))
	for i := range txns {
		snapshots[i] = ToTransactionSnapshot(&txns[i])
	}
	return snapshots
}
