package repositories

import (
	"context"
	"time"

	"github.com/accountly/bank_ledger_app/internal/core/domain"
)

// AccountRepository defines persistence operations for accounts outside the
// engine's locking sections. Balances are never written through it.
type AccountRepository interface {
	// SaveAccount inserts a new account.
	SaveAccount(ctx context.Context, account domain.Account) error

	// FindAccountByID retrieves an account by its ID.
	FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error)

	// FindAccountByNumber retrieves an account by its unique account number.
	FindAccountByNumber(ctx context.Context, accountNumber string) (*domain.Account, error)

	// ListAccountsByClientID retrieves all accounts owned by a client.
	ListAccountsByClientID(ctx context.Context, clientID string) ([]domain.Account, error)

	// SetAccountBlocked updates the account's blocked flag.
	SetAccountBlocked(ctx context.Context, accountID string, blocked bool, now time.Time) error
}

// ClientRepository defines persistence operations for clients.
type ClientRepository interface {
	// SaveClient inserts a new client.
	SaveClient(ctx context.Context, client domain.Client) error

	// FindClientByID retrieves a client by its ID.
	FindClientByID(ctx context.Context, clientID string) (*domain.Client, error)

	// SetClientBlocked updates the client's denormalized blocked flag.
	SetClientBlocked(ctx context.Context, clientID string, blocked bool, now time.Time) error
}
