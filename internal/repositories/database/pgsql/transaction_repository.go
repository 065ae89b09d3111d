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
	"github.com/accountly/bank_ledger_app/internal/utils/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PgxLedgerRepository is the pgx implementation of the ledger store: plain
// reads and pending-row inserts on the pool, balance-mutating transitions
// through WithinTx.
type PgxLedgerRepository struct {
	BaseRepository
}

// newPgxLedgerRepository creates a new repository for ledger data.
func newPgxLedgerRepository(pool *pgxpool.Pool) portsrepo.LedgerRepository {
	return &PgxLedgerRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.LedgerRepository = (*PgxLedgerRepository)(nil)

func toModelTransaction(d domain.Transaction) models.Transaction {
	return models.Transaction{
		TransactionID:             d.TransactionID,
		Reference:                 d.Reference,
		AccountID:                 d.AccountID,
		Type:                      string(d.Type),
		Amount:                    d.Amount,
		Status:                    models.TransactionStatus(d.Status),
		Note:                      d.Note,
		CreatedAt:                 d.CreatedAt,
		ProcessedAt:               d.ProcessedAt,
		PerformedBy:               d.PerformedBy,
		ProcessedBy:               d.ProcessedBy,
		CancelledBy:               d.CancelledBy,
		RelatedTransactionID:      d.RelatedTransactionID,
		CounterpartyAccountNumber: d.CounterpartyAccountNumber,
	}
}

func toDomainTransaction(m models.Transaction) domain.Transaction {
	return domain.Transaction{
		TransactionID:             m.TransactionID,
		Reference:                 m.Reference,
		AccountID:                 m.AccountID,
		Type:                      domain.TransactionType(m.Type),
		Amount:                    m.Amount,
		Status:                    domain.TransactionStatus(m.Status),
		Note:                      m.Note,
		CreatedAt:                 m.CreatedAt,
		ProcessedAt:               m.ProcessedAt,
		PerformedBy:               m.PerformedBy,
		ProcessedBy:               m.ProcessedBy,
		CancelledBy:               m.CancelledBy,
		RelatedTransactionID:      m.RelatedTransactionID,
		CounterpartyAccountNumber: m.CounterpartyAccountNumber,
	}
}

const transactionColumns = `transaction_id, reference, account_id, type, amount, status, note, created_at, processed_at, performed_by, processed_by, cancelled_by, related_transaction_id, counterparty_account_number`

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var m models.Transaction
	err := row.Scan(
		&m.TransactionID,
		&m.Reference,
		&m.AccountID,
		&m.Type,
		&m.Amount,
		&m.Status,
		&m.Note,
		&m.CreatedAt,
		&m.ProcessedAt,
		&m.PerformedBy,
		&m.ProcessedBy,
		&m.CancelledBy,
		&m.RelatedTransactionID,
		&m.CounterpartyAccountNumber,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func findTransaction(ctx context.Context, q querier, column, value string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE ` + column + ` = $1;`

	m, err := scanTransaction(q.QueryRow(ctx, query, value))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("transaction %s not found", value))
		}
		return nil, fmt.Errorf("failed to find transaction %s: %w", value, err)
	}

	txn := toDomainTransaction(*m)
	return &txn, nil
}

// FindTransactionByID retrieves a transaction by its unique identifier.
func (r *PgxLedgerRepository) FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	return findTransaction(ctx, r.Pool, "transaction_id", transactionID)
}

// FindTransactionByReference retrieves a transaction by its human-readable reference.
func (r *PgxLedgerRepository) FindTransactionByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	return findTransaction(ctx, r.Pool, "reference", reference)
}

// ReferenceExists reports whether a reference is already taken.
func (r *PgxLedgerRepository) ReferenceExists(ctx context.Context, reference string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM transactions WHERE reference = $1);`

	var exists bool
	if err := r.Pool.QueryRow(ctx, query, reference).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check reference %s: %w", reference, err)
	}
	return exists, nil
}

// ListTransactionsByAccountID retrieves a page of an account's transactions,
// newest first, using keyset pagination over (created_at, transaction_id).
func (r *PgxLedgerRepository) ListTransactionsByAccountID(ctx context.Context, accountID string, limit int, nextToken *string) ([]domain.Transaction, *string, error) {
	args := []any{accountID, limit + 1}
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE account_id = $1`

	if nextToken != nil && *nextToken != "" {
		createdAt, lastID, err := pagination.DecodeToken(*nextToken)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, err.Error())
		}
		query += ` AND (created_at, transaction_id) < ($3, $4)`
		args = append(args, createdAt, lastID)
	}
	query += ` ORDER BY created_at DESC, transaction_id DESC LIMIT $2;`

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list transactions for account %s: %w", accountID, err)
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		m, err := scanTransaction(rows)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		txns = append(txns, toDomainTransaction(*m))
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed reading transaction rows: %w", err)
	}

	var token *string
	if len(txns) > limit {
		txns = txns[:limit]
		last := txns[len(txns)-1]
		t := pagination.EncodeToken(last.CreatedAt, last.TransactionID)
		token = &t
	}
	return txns, token, nil
}

const insertTransactionQuery = `
	INSERT INTO transactions (transaction_id, reference, account_id, type, amount, status, note, created_at, processed_at, performed_by, processed_by, cancelled_by, related_transaction_id, counterparty_account_number)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14);
`

type executor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertTransaction(ctx context.Context, ex executor, m models.Transaction) error {
	_, err := ex.Exec(ctx, insertTransactionQuery,
		m.TransactionID,
		m.Reference,
		m.AccountID,
		m.Type,
		m.Amount,
		m.Status,
		m.Note,
		m.CreatedAt,
		m.ProcessedAt,
		m.PerformedBy,
		m.ProcessedBy,
		m.CancelledBy,
		m.RelatedTransactionID,
		m.CounterpartyAccountNumber,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: transaction %s already exists", apperrors.ErrDuplicate, m.Reference)
		}
		return fmt.Errorf("failed to insert transaction %s: %w", m.TransactionID, err)
	}
	return nil
}

// CreateTransaction persists a single pending transaction in its own commit.
func (r *PgxLedgerRepository) CreateTransaction(ctx context.Context, txn domain.Transaction) error {
	return insertTransaction(ctx, r.Pool, toModelTransaction(txn))
}

// CreateTransferPair persists both legs of a transfer in one atomic commit.
// The rows are inserted without their mirror links, then linked with updates,
// so the mutual foreign key never dangles mid-transaction.
func (r *PgxLedgerRepository) CreateTransferPair(ctx context.Context, outgoing domain.Transaction, incoming domain.Transaction) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	outModel := toModelTransaction(outgoing)
	inModel := toModelTransaction(incoming)
	outModel.RelatedTransactionID = nil
	inModel.RelatedTransactionID = nil

	if err := insertTransaction(ctx, tx, outModel); err != nil {
		return err
	}
	if err := insertTransaction(ctx, tx, inModel); err != nil {
		return err
	}

	linkQuery := `UPDATE transactions SET related_transaction_id = $2 WHERE transaction_id = $1;`
	if _, err := tx.Exec(ctx, linkQuery, outgoing.TransactionID, incoming.TransactionID); err != nil {
		return fmt.Errorf("failed to link outgoing leg %s: %w", outgoing.TransactionID, err)
	}
	if _, err := tx.Exec(ctx, linkQuery, incoming.TransactionID, outgoing.TransactionID); err != nil {
		return fmt.Errorf("failed to link incoming leg %s: %w", incoming.TransactionID, err)
	}

	return r.Commit(ctx, tx)
}

// WithinTx runs fn inside one storage transaction, committing on success and
// rolling the whole transition back on error.
func (r *PgxLedgerRepository) WithinTx(ctx context.Context, fn func(ctx context.Context, tx portsrepo.LedgerTx) error) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	if err := fn(ctx, &pgxLedgerTx{tx: tx}); err != nil {
		return err
	}
	return r.Commit(ctx, tx)
}

// pgxLedgerTx is the in-transaction view of the ledger store.
type pgxLedgerTx struct {
	tx pgx.Tx
}

var _ portsrepo.LedgerTx = (*pgxLedgerTx)(nil)

// LockTransaction acquires an exclusive row lock on the transaction and
// returns its current state.
func (t *pgxLedgerTx) LockTransaction(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE transaction_id = $1 FOR UPDATE;`

	m, err := scanTransaction(t.tx.QueryRow(ctx, query, transactionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("transaction %s not found", transactionID))
		}
		return nil, fmt.Errorf("failed to lock transaction %s: %w", transactionID, err)
	}

	txn := toDomainTransaction(*m)
	return &txn, nil
}

// LockAccounts acquires exclusive row locks on the given accounts. The ORDER
// BY inside the locking query fixes the acquisition order, so concurrent
// transfers over the same pair never deadlock.
func (t *pgxLedgerTx) LockAccounts(ctx context.Context, accountIDs ...string) (map[string]domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_id = ANY($1) ORDER BY account_id FOR UPDATE;`

	rows, err := t.tx.Query(ctx, query, accountIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to lock accounts: %w", err)
	}
	defer rows.Close()

	accounts := make(map[string]domain.Account, len(accountIDs))
	for rows.Next() {
		m, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan locked account row: %w", err)
		}
		accounts[m.AccountID] = toDomainAccount(*m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading locked account rows: %w", err)
	}

	for _, id := range accountIDs {
		if _, ok := accounts[id]; !ok {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("account %s not found", id))
		}
	}
	return accounts, nil
}

// FindClient reads a client row inside the transaction.
func (t *pgxLedgerTx) FindClient(ctx context.Context, clientID string) (*domain.Client, error) {
	query := `
		SELECT client_id, full_name, job_title, blocked, created_at, updated_at
		FROM clients
		WHERE client_id = $1;
	`
	var m models.Client
	err := t.tx.QueryRow(ctx, query, clientID).Scan(
		&m.ClientID,
		&m.FullName,
		&m.JobTitle,
		&m.Blocked,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("client %s not found", clientID))
		}
		return nil, fmt.Errorf("failed to find client %s: %w", clientID, err)
	}

	client := toDomainClient(m)
	return &client, nil
}

// UpdateAccountBalance writes an account's new balance. Callers hold the row
// lock from LockAccounts.
func (t *pgxLedgerTx) UpdateAccountBalance(ctx context.Context, accountID string, balance decimal.Decimal) error {
	query := `UPDATE accounts SET balance = $2, updated_at = $3 WHERE account_id = $1;`

	tag, err := t.tx.Exec(ctx, query, accountID, balance, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update balance of account %s: %w", accountID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("account %s not found", accountID))
	}
	return nil
}

// UpdateTransactionState writes the mutable fields of a transaction.
func (t *pgxLedgerTx) UpdateTransactionState(ctx context.Context, txn domain.Transaction) error {
	query := `
		UPDATE transactions
		SET status = $2, note = $3, processed_at = $4, processed_by = $5, cancelled_by = $6
		WHERE transaction_id = $1;
	`
	m := toModelTransaction(txn)
	tag, err := t.tx.Exec(ctx, query,
		m.TransactionID,
		m.Status,
		m.Note,
		m.ProcessedAt,
		m.ProcessedBy,
		m.CancelledBy,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction %s: %w", m.TransactionID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("transaction %s not found", m.TransactionID))
	}
	return nil
}
