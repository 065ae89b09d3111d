package services

import (
	"context"

	"github.com/accountly/bank_ledger_app/internal/core/domain"
	"github.com/accountly/bank_ledger_app/internal/dto"
)

// TransactionSvcFacade is the public surface of the transaction engine.
type TransactionSvcFacade interface {
	// CreateAndProcess creates a deposit or withdrawal in pending state,
	// applies policy checks and runs it to a terminal status. Policy declines
	// are reported through the result, not as errors.
	CreateAndProcess(ctx context.Context, req dto.CreateTransactionRequest, processedBy string) (*dto.TransactionResult, error)

	// CreateAndProcessTransfer creates both legs of a transfer and runs them
	// to a joint terminal status.
	CreateAndProcessTransfer(ctx context.Context, req dto.CreateTransferRequest, processedBy string) (*dto.TransactionResult, error)

	// Finalize transitions a pending transaction to a terminal status,
	// applying its balance effect. Idempotent for non-pending transactions.
	Finalize(ctx context.Context, transactionID string, processedBy string) (*domain.Transaction, error)

	// GetTransactionByID retrieves a single transaction.
	GetTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error)

	// GetTransactionByReference retrieves a single transaction by its
	// human-readable reference.
	GetTransactionByReference(ctx context.Context, reference string) (*domain.Transaction, error)

	// ListTransactionsByAccount retrieves a paginated transaction history.
	ListTransactionsByAccount(ctx context.Context, accountID string, params dto.ListTransactionsParams) (*dto.ListTransactionsResponse, error)
}

// ReversalSvcFacade undoes completed transactions.
type ReversalSvcFacade interface {
	// Cancel reverses the balance effect of a completed transaction, marks it
	// cancelled and cascades to a linked mirror leg. Idempotent for already
	// cancelled transactions.
	Cancel(ctx context.Context, transactionID string, cancelledBy string, reason string) (*domain.Transaction, error)
}

// ReferenceSvcFacade produces unique human-readable transaction references.
type ReferenceSvcFacade interface {
	Generate(ctx context.Context) (string, error)
}

// BlockSvcFacade toggles account blocks and keeps the client-level
// denormalized blocked flag in sync.
type BlockSvcFacade interface {
	SetAccountBlocked(ctx context.Context, accountID string, blocked bool, updatedBy string) (*domain.Account, error)
}

// AccountSvcFacade covers account lifecycle outside the engine.
type AccountSvcFacade interface {
	CreateAccount(ctx context.Context, req dto.CreateAccountRequest) (*domain.Account, error)
	GetAccountByID(ctx context.Context, accountID string) (*domain.Account, error)
	GetAccountByNumber(ctx context.Context, accountNumber string) (*domain.Account, error)
	ListAccountsByClient(ctx context.Context, clientID string) ([]domain.Account, error)
}

// ClientSvcFacade covers client lifecycle.
type ClientSvcFacade interface {
	CreateClient(ctx context.Context, req dto.CreateClientRequest) (*domain.Client, error)
	GetClientByID(ctx context.Context, clientID string) (*domain.Client, error)
	IsEffectivelyBlocked(ctx context.Context, clientID string) (bool, error)
}

// ServiceContainer aggregates the service facades handed to the handlers.
type ServiceContainer struct {
	Transaction TransactionSvcFacade
	Reversal    ReversalSvcFacade
	Block       BlockSvcFacade
	Account     AccountSvcFacade
	Client      ClientSvcFacade
}
