package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/accountly/bank_ledger_app/internal/apperrors"
	"github.com/accountly/bank_ledger_app/internal/core/domain"
	portsrepo "github.com/accountly/bank_ledger_app/internal/core/ports/repositories"
	"github.com/accountly/bank_ledger_app/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxAccountRepository struct {
	pool *pgxpool.Pool
}

// newPgxAccountRepository creates a new repository for account data.
func newPgxAccountRepository(pool *pgxpool.Pool) portsrepo.AccountRepository {
	return &PgxAccountRepository{pool: pool}
}

var _ portsrepo.AccountRepository = (*PgxAccountRepository)(nil)

func toModelAccount(d domain.Account) models.Account {
	return models.Account{
		AccountID:     d.AccountID,
		ClientID:      d.ClientID,
		AccountNumber: d.AccountNumber,
		Balance:       d.Balance,
		Blocked:       d.Blocked,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.CreatedAt,
	}
}

func toDomainAccount(m models.Account) domain.Account {
	return domain.Account{
		AccountID:     m.AccountID,
		ClientID:      m.ClientID,
		AccountNumber: m.AccountNumber,
		Balance:       m.Balance,
		Blocked:       m.Blocked,
		CreatedAt:     m.CreatedAt,
	}
}

const accountColumns = `account_id, client_id, account_number, balance, blocked, created_at, updated_at`

func scanAccount(row pgx.Row) (*models.Account, error) {
	var m models.Account
	err := row.Scan(
		&m.AccountID,
		&m.ClientID,
		&m.AccountNumber,
		&m.Balance,
		&m.Blocked,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// SaveAccount inserts a new account.
func (r *PgxAccountRepository) SaveAccount(ctx context.Context, account domain.Account) error {
	modelAcc := toModelAccount(account)

	query := `
		INSERT INTO accounts (account_id, client_id, account_number, balance, blocked, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7);
	`
	_, err := r.pool.Exec(ctx, query,
		modelAcc.AccountID,
		modelAcc.ClientID,
		modelAcc.AccountNumber,
		modelAcc.Balance,
		modelAcc.Blocked,
		modelAcc.CreatedAt,
		modelAcc.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: account %s already exists", apperrors.ErrDuplicate, modelAcc.AccountNumber)
		}
		return fmt.Errorf("failed to save account %s: %w", modelAcc.AccountID, err)
	}
	return nil
}

// FindAccountByID retrieves an account by its ID.
func (r *PgxAccountRepository) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_id = $1;`

	modelAcc, err := scanAccount(r.pool.QueryRow(ctx, query, accountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("account %s not found", accountID))
		}
		return nil, fmt.Errorf("failed to find account %s: %w", accountID, err)
	}

	account := toDomainAccount(*modelAcc)
	return &account, nil
}

// FindAccountByNumber retrieves an account by its unique account number.
func (r *PgxAccountRepository) FindAccountByNumber(ctx context.Context, accountNumber string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_number = $1;`

	modelAcc, err := scanAccount(r.pool.QueryRow(ctx, query, accountNumber))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("account number %s not found", accountNumber))
		}
		return nil, fmt.Errorf("failed to find account by number %s: %w", accountNumber, err)
	}

	account := toDomainAccount(*modelAcc)
	return &account, nil
}

// ListAccountsByClientID retrieves all accounts owned by a client.
func (r *PgxAccountRepository) ListAccountsByClientID(ctx context.Context, clientID string) ([]domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE client_id = $1 ORDER BY created_at;`

	rows, err := r.pool.Query(ctx, query, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts for client %s: %w", clientID, err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		modelAcc, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account row: %w", err)
		}
		accounts = append(accounts, toDomainAccount(*modelAcc))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading account rows: %w", err)
	}
	return accounts, nil
}

// SetAccountBlocked updates the account's blocked flag.
func (r *PgxAccountRepository) SetAccountBlocked(ctx context.Context, accountID string, blocked bool, now time.Time) error {
	query := `
		UPDATE accounts
		SET blocked = $2, updated_at = $3
		WHERE account_id = $1;
	`
	tag, err := r.pool.Exec(ctx, query, accountID, blocked, now)
	if err != nil {
		return fmt.Errorf("failed to update account %s block flag: %w", accountID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("account %s not found", accountID))
	}
	return nil
}
