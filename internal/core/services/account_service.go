package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/accountly/bank_ledger_app/internal/apperrors"
	"github.com/accountly/bank_ledger_app/internal/core/domain"
	portsrepo "github.com/accountly/bank_ledger_app/internal/core/ports/repositories"
	portssvc "github.com/accountly/bank_ledger_app/internal/core/ports/services"
	"github.com/accountly/bank_ledger_app/internal/dto"
	"github.com/accountly/bank_ledger_app/internal/middleware"
	"github.com/accountly/bank_ledger_app/internal/utils"
)

const (
	// accountNumberPrefix is the fixed leading segment of every generated
	// account number; the remaining 12 digits are random.
	accountNumberPrefix      = "40817810"
	accountNumberRandomLen   = 12
	accountNumberMaxAttempts = 5
)

// accountService covers the account lifecycle outside the engine. Balances
// are never written here.
type accountService struct {
	accountRepo portsrepo.AccountRepository
	clientRepo  portsrepo.ClientRepository
}

// NewAccountService creates a new AccountService.
func NewAccountService(accountRepo portsrepo.AccountRepository, clientRepo portsrepo.ClientRepository) portssvc.AccountSvcFacade {
	return &accountService{accountRepo: accountRepo, clientRepo: clientRepo}
}

var _ portssvc.AccountSvcFacade = (*accountService)(nil)

// CreateAccount opens a zero-balance account for an existing client with a
// generated 20-digit account number.
func (s *accountService) CreateAccount(ctx context.Context, req dto.CreateAccountRequest) (*domain.Account, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	client, err := s.clientRepo.FindClientByID(ctx, req.ClientID)
	if err != nil {
		return nil, fmt.Errorf("failed to find client %s: %w", req.ClientID, err)
	}

	number, err := s.generateAccountNumber(ctx)
	if err != nil {
		return nil, err
	}

	account := domain.Account{
		AccountID:     uuid.NewString(),
		ClientID:      client.ClientID,
		AccountNumber: number,
		Balance:       decimal.Zero,
		Blocked:       false,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.accountRepo.SaveAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to save account: %w", err)
	}

	logger.Info("Account created",
		slog.String("account_id", account.AccountID),
		slog.String("client_id", account.ClientID),
		slog.String("account_number", account.AccountNumber),
	)
	return &account, nil
}

// GetAccountByID retrieves an account by its ID.
func (s *accountService) GetAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	return s.accountRepo.FindAccountByID(ctx, accountID)
}

// GetAccountByNumber retrieves an account by its unique account number.
func (s *accountService) GetAccountByNumber(ctx context.Context, accountNumber string) (*domain.Account, error) {
	return s.accountRepo.FindAccountByNumber(ctx, accountNumber)
}

// ListAccountsByClient retrieves all accounts owned by a client.
func (s *accountService) ListAccountsByClient(ctx context.Context, clientID string) ([]domain.Account, error) {
	if _, err := s.clientRepo.FindClientByID(ctx, clientID); err != nil {
		return nil, fmt.Errorf("failed to find client %s: %w", clientID, err)
	}
	return s.accountRepo.ListAccountsByClientID(ctx, clientID)
}

// generateAccountNumber produces a fresh 20-digit account number, retrying on
// the unlikely collision with an existing one. The unique constraint on the
// column remains the final arbiter.
func (s *accountService) generateAccountNumber(ctx context.Context) (string, error) {
	for attempt := 1; attempt <= accountNumberMaxAttempts; attempt++ {
		tail, err := utils.GenerateSecureDigits(accountNumberRandomLen)
		if err != nil {
			return "", fmt.Errorf("failed to generate account number: %w", err)
		}
		candidate := accountNumberPrefix + tail

		_, err = s.accountRepo.FindAccountByNumber(ctx, candidate)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return candidate, nil
			}
			return "", fmt.Errorf("failed to check account number uniqueness: %w", err)
		}
	}
	return "", fmt.Errorf("failed to generate a unique account number after %d attempts", accountNumberMaxAttempts)
}
