package services

import (
	"time"

	portsrepo "github.com/accountly/bank_ledger_app/internal/core/ports/repositories"
	portssvc "github.com/accountly/bank_ledger_app/internal/core/ports/services"
)

// NewServiceContainer wires the full service graph on top of the repositories.
func NewServiceContainer(repos *portsrepo.RepositoryProvider, processingDelay time.Duration) *portssvc.ServiceContainer {
	referenceSvc := NewReferenceService(repos.LedgerRepo)
	reversalSvc := NewReversalService(repos.LedgerRepo)
	transactionSvc := NewTransactionService(
		repos.LedgerRepo,
		repos.AccountRepo,
		repos.ClientRepo,
		referenceSvc,
		reversalSvc,
		processingDelay,
	)

	return &portssvc.ServiceContainer{
		Transaction: transactionSvc,
		Reversal:    reversalSvc,
		Block:       NewBlockService(repos.AccountRepo, repos.ClientRepo),
		Account:     NewAccountService(repos.AccountRepo, repos.ClientRepo),
		Client:      NewClientService(repos.ClientRepo, repos.AccountRepo),
	}
}
