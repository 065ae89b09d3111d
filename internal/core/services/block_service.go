package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/accountly/bank_ledger_app/internal/core/domain"
	portsrepo "github.com/accountly/bank_ledger_app/internal/core/ports/repositories"
	portssvc "github.com/accountly/bank_ledger_app/internal/core/ports/services"
	"github.com/accountly/bank_ledger_app/internal/middleware"
)

// blockService coordinates account blocks. It is the single writer of the
// client-level denormalized blocked flag.
type blockService struct {
	accountRepo portsrepo.AccountRepository
	clientRepo  portsrepo.ClientRepository
}

// NewBlockService creates a new BlockService.
func NewBlockService(accountRepo portsrepo.AccountRepository, clientRepo portsrepo.ClientRepository) portssvc.BlockSvcFacade {
	return &blockService{accountRepo: accountRepo, clientRepo: clientRepo}
}

var _ portssvc.BlockSvcFacade = (*blockService)(nil)

// SetAccountBlocked sets an account's blocked flag and recomputes the owning
// client's cached flag as the OR over all of the client's accounts, writing it
// only when it differs from the stored value.
func (s *blockService) SetAccountBlocked(ctx context.Context, accountID string, blocked bool, updatedBy string) (*domain.Account, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	account, err := s.accountRepo.FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to find account %s: %w", accountID, err)
	}

	now := time.Now().UTC()
	if account.Blocked != blocked {
		if err := s.accountRepo.SetAccountBlocked(ctx, accountID, blocked, now); err != nil {
			return nil, fmt.Errorf("failed to update account block flag: %w", err)
		}
		account.Blocked = blocked
	}

	client, err := s.clientRepo.FindClientByID(ctx, account.ClientID)
	if err != nil {
		return nil, fmt.Errorf("failed to find client %s: %w", account.ClientID, err)
	}
	siblings, err := s.accountRepo.ListAccountsByClientID(ctx, account.ClientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts for client %s: %w", account.ClientID, err)
	}

	anyBlocked := false
	for _, sibling := range siblings {
		if sibling.Blocked {
			anyBlocked = true
			break
		}
	}
	if client.Blocked != anyBlocked {
		if err := s.clientRepo.SetClientBlocked(ctx, client.ClientID, anyBlocked, now); err != nil {
			return nil, fmt.Errorf("failed to update client block flag: %w", err)
		}
	}

	logger.Info("Account block flag updated",
		slog.String("account_id", accountID),
		slog.Bool("blocked", blocked),
		slog.Bool("client_blocked", anyBlocked),
		slog.String("updated_by", updatedBy),
	)
	return account, nil
}
