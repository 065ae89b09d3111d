package pgsql

import (
	portsrepo "github.com/accountly/bank_ledger_app/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		AccountRepo: newPgxAccountRepository(dbPool),
		ClientRepo:  newPgxClientRepository(dbPool),
		LedgerRepo:  newPgxLedgerRepository(dbPool),
	}
}
