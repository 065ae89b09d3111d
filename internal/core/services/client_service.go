package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/accountly/bank_ledger_app/internal/core/domain"
	portsrepo "github.com/accountly/bank_ledger_app/internal/core/ports/repositories"
	portssvc "github.com/accountly/bank_ledger_app/internal/core/ports/services"
	"github.com/accountly/bank_ledger_app/internal/dto"
	"github.com/accountly/bank_ledger_app/internal/middleware"
)

// clientService covers the client lifecycle.
type clientService struct {
	clientRepo  portsrepo.ClientRepository
	accountRepo portsrepo.AccountRepository
}

// NewClientService creates a new ClientService.
func NewClientService(clientRepo portsrepo.ClientRepository, accountRepo portsrepo.AccountRepository) portssvc.ClientSvcFacade {
	return &clientService{clientRepo: clientRepo, accountRepo: accountRepo}
}

var _ portssvc.ClientSvcFacade = (*clientService)(nil)

// CreateClient registers a new client.
func (s *clientService) CreateClient(ctx context.Context, req dto.CreateClientRequest) (*domain.Client, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	client := domain.Client{
		ClientID:  uuid.NewString(),
		FullName:  req.FullName,
		JobTitle:  req.JobTitle,
		Blocked:   false,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.clientRepo.SaveClient(ctx, client); err != nil {
		return nil, fmt.Errorf("failed to save client: %w", err)
	}

	logger.Info("Client created", slog.String("client_id", client.ClientID))
	return &client, nil
}

// GetClientByID retrieves a client by its ID.
func (s *clientService) GetClientByID(ctx context.Context, clientID string) (*domain.Client, error) {
	return s.clientRepo.FindClientByID(ctx, clientID)
}

// IsEffectivelyBlocked reports whether the client or any of its accounts is
// blocked, computed from current rows rather than the cached flag.
func (s *clientService) IsEffectivelyBlocked(ctx context.Context, clientID string) (bool, error) {
	client, err := s.clientRepo.FindClientByID(ctx, clientID)
	if err != nil {
		return false, fmt.Errorf("failed to find client %s: %w", clientID, err)
	}
	accounts, err := s.accountRepo.ListAccountsByClientID(ctx, clientID)
	if err != nil {
		return false, fmt.Errorf("failed to list accounts for client %s: %w", clientID, err)
	}
	return domain.EffectivelyBlocked(*client, accounts), nil
}
