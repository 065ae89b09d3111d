package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies the direction of a monetary movement.
type TransactionType string

const (
	Deposit     TransactionType = "deposit"
	Withdrawal  TransactionType = "withdrawal"
	TransferOut TransactionType = "transfer_out"
	TransferIn  TransactionType = "transfer_in"
)

// TransactionStatus is the lifecycle state of a transaction.
// A transaction is created pending and ends in exactly one of the two
// terminal states.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusCancelled TransactionStatus = "cancelled"
)

// MaxAmount is the largest representable amount: a signed 12-digit magnitude
// with two fractional digits.
var MaxAmount = decimal.RequireFromString("9999999999.99")

// Transaction is a single monetary movement against one account.
//
// The core fields (Reference, AccountID, Type, Amount, Note, PerformedBy,
// CreatedAt) are immutable once the row exists. Status, the processing stamps
// and the mirror link are the only mutable fields, and only the transaction
// and reversal engines write them.
type Transaction struct {
	TransactionID string            `json:"transactionID"` // Primary Key (UUID)
	Reference     string            `json:"reference"`     // Unique, TRX-<timestamp>-<suffix>
	AccountID     string            `json:"accountID"`     // FK -> accounts.account_id (Not Null)
	Type          TransactionType   `json:"type"`
	Amount        decimal.Decimal   `json:"amount"` // Positive, two fractional digits
	Status        TransactionStatus `json:"status"`
	Note          string            `json:"note"`
	CreatedAt     time.Time         `json:"createdAt"`
	ProcessedAt   *time.Time        `json:"processedAt"`
	PerformedBy   *string           `json:"performedBy"` // Acting client, nullable
	ProcessedBy   *string           `json:"processedBy"`
	CancelledBy   *string           `json:"cancelledBy"`

	// RelatedTransactionID links the mirror leg of a transfer. Both legs
	// reference each other and are required to reach the same terminal status.
	RelatedTransactionID *string `json:"relatedTransactionID"`

	// CounterpartyAccountNumber is a denormalized courtesy lookup for display
	// when the mirror record is unavailable. RelatedTransactionID stays
	// authoritative.
	CounterpartyAccountNumber string `json:"counterpartyAccountNumber"`
}

func (t Transaction) IsPending() bool   { return t.Status == StatusPending }
func (t Transaction) IsCompleted() bool { return t.Status == StatusCompleted }
func (t Transaction) IsCancelled() bool { return t.Status == StatusCancelled }

// IsCredit reports whether completing the transaction increases the account
// balance.
func (t Transaction) IsCredit() bool {
	return t.Type == Deposit || t.Type == TransferIn
}

// IsDebit reports whether completing the transaction decreases the account
// balance.
func (t Transaction) IsDebit() bool {
	return t.Type == Withdrawal || t.Type == TransferOut
}

// SignedAmount is the balance delta this transaction contributes when
// completed: positive for credits, negative for debits.
func (t Transaction) SignedAmount() decimal.Decimal {
	if t.IsDebit() {
		return t.Amount.Neg()
	}
	return t.Amount
}

// Validate checks the immutable core fields of a new transaction.
func (t Transaction) Validate() error {
	switch t.Type {
	case Deposit, Withdrawal, TransferOut, TransferIn:
	default:
		return fmt.Errorf("unknown transaction type %q", t.Type)
	}
	return ValidateAmount(t.Amount)
}

// ValidateAmount checks that an amount is positive, carries at most two
// fractional digits and fits the 12-digit store representation.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("amount must be positive, got %s", amount.String())
	}
	if !amount.Equal(amount.Truncate(2)) {
		return fmt.Errorf("amount must have at most two fractional digits, got %s", amount.String())
	}
	if amount.GreaterThan(MaxAmount) {
		return fmt.Errorf("amount exceeds the maximum representable value, got %s", amount.String())
	}
	return nil
}
