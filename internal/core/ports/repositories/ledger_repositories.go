package repositories

import (
	"context"

	"github.com/accountly/bank_ledger_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// TransactionReader defines read operations for transaction data.
type TransactionReader interface {
	// FindTransactionByID retrieves a transaction by its unique identifier.
	FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error)

	// FindTransactionByReference retrieves a transaction by its human-readable reference.
	FindTransactionByReference(ctx context.Context, reference string) (*domain.Transaction, error)

	// ReferenceExists reports whether a reference is already taken. A cheap point
	// lookup used by the reference generator; never part of a locking section.
	ReferenceExists(ctx context.Context, reference string) (bool, error)

	// ListTransactionsByAccountID retrieves a paginated list of transactions for an
	// account using token-based pagination. Returns the transactions, a token for
	// the next page, and an error.
	ListTransactionsByAccountID(ctx context.Context, accountID string, limit int, nextToken *string) ([]domain.Transaction, *string, error)
}

// TransactionWriter defines the creation operations of the ledger. Both insert
// pending rows; status transitions happen exclusively through LedgerTx.
type TransactionWriter interface {
	// CreateTransaction persists a single pending transaction in its own commit.
	CreateTransaction(ctx context.Context, txn domain.Transaction) error

	// CreateTransferPair persists both legs of a transfer, mutually linked via
	// RelatedTransactionID, in one atomic commit.
	CreateTransferPair(ctx context.Context, outgoing domain.Transaction, incoming domain.Transaction) error
}

// LedgerTx is the view of the store inside one atomic storage transaction.
// All balance-mutating transitions run through it, under exclusive row locks.
type LedgerTx interface {
	// LockTransaction acquires an exclusive row lock on the transaction and
	// returns its current state.
	LockTransaction(ctx context.Context, transactionID string) (*domain.Transaction, error)

	// LockAccounts acquires exclusive row locks on the given accounts in
	// ascending account-id order and returns their current state. Fails with
	// ErrNotFound when any account is missing.
	LockAccounts(ctx context.Context, accountIDs ...string) (map[string]domain.Account, error)

	// FindClient reads a client row inside the transaction.
	FindClient(ctx context.Context, clientID string) (*domain.Client, error)

	// UpdateAccountBalance writes an account's new balance.
	UpdateAccountBalance(ctx context.Context, accountID string, balance decimal.Decimal) error

	// UpdateTransactionState writes the mutable fields of a transaction
	// (status, note, processing stamps).
	UpdateTransactionState(ctx context.Context, txn domain.Transaction) error
}

// LedgerTxRunner executes a function within a storage-level transaction,
// committing on success and rolling the whole transition back on error.
type LedgerTxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx LedgerTx) error) error
}

// LedgerRepository combines all ledger repository interfaces.
type LedgerRepository interface {
	TransactionReader
	TransactionWriter
	LedgerTxRunner
}
