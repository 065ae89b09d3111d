package services_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/accountly/bank_ledger_app/internal/apperrors"
	"github.com/accountly/bank_ledger_app/internal/core/domain"
	portsrepo "github.com/accountly/bank_ledger_app/internal/core/ports/repositories"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// fakeLedger is an in-memory stand-in for the pgx repositories. A single
// mutex serializes WithinTx sections the way row locks serialize them in
// Postgres, and a snapshot taken at section start gives rollback-on-error.
type fakeLedger struct {
	mu       sync.Mutex
	clients  map[string]domain.Client
	accounts map[string]domain.Account
	txns     map[string]domain.Transaction
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		clients:  make(map[string]domain.Client),
		accounts: make(map[string]domain.Account),
		txns:     make(map[string]domain.Transaction),
	}
}

func (f *fakeLedger) provider() portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		AccountRepo: f,
		ClientRepo:  f,
		LedgerRepo:  f,
	}
}

// --- ClientRepository ---

func (f *fakeLedger) SaveClient(ctx context.Context, client domain.Client) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.clients[client.ClientID]; ok {
		return fmt.Errorf("%w: client %s", apperrors.ErrDuplicate, client.ClientID)
	}
	f.clients[client.ClientID] = client
	return nil
}

func (f *fakeLedger) FindClientByID(ctx context.Context, clientID string) (*domain.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	client, ok := f.clients[clientID]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("client %s not found", clientID))
	}
	return &client, nil
}

func (f *fakeLedger) SetClientBlocked(ctx context.Context, clientID string, blocked bool, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	client, ok := f.clients[clientID]
	if !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("client %s not found", clientID))
	}
	client.Blocked = blocked
	f.clients[clientID] = client
	return nil
}

// --- AccountRepository ---

func (f *fakeLedger) SaveAccount(ctx context.Context, account domain.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.accounts {
		if existing.AccountNumber == account.AccountNumber {
			return fmt.Errorf("%w: account number %s", apperrors.ErrDuplicate, account.AccountNumber)
		}
	}
	f.accounts[account.AccountID] = account
	return nil
}

func (f *fakeLedger) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[accountID]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("account %s not found", accountID))
	}
	return &account, nil
}

func (f *fakeLedger) FindAccountByNumber(ctx context.Context, accountNumber string) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, account := range f.accounts {
		if account.AccountNumber == accountNumber {
			a := account
			return &a, nil
		}
	}
	return nil, apperrors.NewNotFoundError(fmt.Sprintf("account number %s not found", accountNumber))
}

func (f *fakeLedger) ListAccountsByClientID(ctx context.Context, clientID string) ([]domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var accounts []domain.Account
	for _, account := range f.accounts {
		if account.ClientID == clientID {
			accounts = append(accounts, account)
		}
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].AccountID < accounts[j].AccountID })
	return accounts, nil
}

func (f *fakeLedger) SetAccountBlocked(ctx context.Context, accountID string, blocked bool, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[accountID]
	if !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("account %s not found", accountID))
	}
	account.Blocked = blocked
	f.accounts[accountID] = account
	return nil
}

// --- LedgerRepository ---

func (f *fakeLedger) FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	txn, ok := f.txns[transactionID]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("transaction %s not found", transactionID))
	}
	return &txn, nil
}

func (f *fakeLedger) FindTransactionByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, txn := range f.txns {
		if txn.Reference == reference {
			t := txn
			return &t, nil
		}
	}
	return nil, apperrors.NewNotFoundError(fmt.Sprintf("transaction %s not found", reference))
}

func (f *fakeLedger) ReferenceExists(ctx context.Context, reference string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, txn := range f.txns {
		if txn.Reference == reference {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeLedger) ListTransactionsByAccountID(ctx context.Context, accountID string, limit int, nextToken *string) ([]domain.Transaction, *string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var txns []domain.Transaction
	for _, txn := range f.txns {
		if txn.AccountID == accountID {
			txns = append(txns, txn)
		}
	}
	sort.Slice(txns, func(i, j int) bool {
		if !txns[i].CreatedAt.Equal(txns[j].CreatedAt) {
			return txns[i].CreatedAt.After(txns[j].CreatedAt)
		}
		return txns[i].TransactionID > txns[j].TransactionID
	})
	if limit > 0 && len(txns) > limit {
		txns = txns[:limit]
	}
	return txns, nil, nil
}

func (f *fakeLedger) CreateTransaction(ctx context.Context, txn domain.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.txns[txn.TransactionID]; ok {
		return fmt.Errorf("%w: transaction %s", apperrors.ErrDuplicate, txn.TransactionID)
	}
	f.txns[txn.TransactionID] = txn
	return nil
}

func (f *fakeLedger) CreateTransferPair(ctx context.Context, outgoing domain.Transaction, incoming domain.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txns[outgoing.TransactionID] = outgoing
	f.txns[incoming.TransactionID] = incoming
	return nil
}

func (f *fakeLedger) WithinTx(ctx context.Context, fn func(ctx context.Context, tx portsrepo.LedgerTx) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	snapAccounts := make(map[string]domain.Account, len(f.accounts))
	for k, v := range f.accounts {
		snapAccounts[k] = v
	}
	snapTxns := make(map[string]domain.Transaction, len(f.txns))
	for k, v := range f.txns {
		snapTxns[k] = v
	}

	if err := fn(ctx, &fakeLedgerTx{f: f}); err != nil {
		f.accounts = snapAccounts
		f.txns = snapTxns
		return err
	}
	return nil
}

// fakeLedgerTx operates on the fakeLedger while the section mutex is held.
type fakeLedgerTx struct {
	f *fakeLedger
}

func (t *fakeLedgerTx) LockTransaction(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	txn, ok := t.f.txns[transactionID]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("transaction %s not found", transactionID))
	}
	return &txn, nil
}

func (t *fakeLedgerTx) LockAccounts(ctx context.Context, accountIDs ...string) (map[string]domain.Account, error) {
	accounts := make(map[string]domain.Account, len(accountIDs))
	for _, id := range accountIDs {
		account, ok := t.f.accounts[id]
		if !ok {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("account %s not found", id))
		}
		accounts[id] = account
	}
	return accounts, nil
}

func (t *fakeLedgerTx) FindClient(ctx context.Context, clientID string) (*domain.Client, error) {
	client, ok := t.f.clients[clientID]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("client %s not found", clientID))
	}
	return &client, nil
}

func (t *fakeLedgerTx) UpdateAccountBalance(ctx context.Context, accountID string, balance decimal.Decimal) error {
	account, ok := t.f.accounts[accountID]
	if !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("account %s not found", accountID))
	}
	account.Balance = balance
	t.f.accounts[accountID] = account
	return nil
}

func (t *fakeLedgerTx) UpdateTransactionState(ctx context.Context, txn domain.Transaction) error {
	stored, ok := t.f.txns[txn.TransactionID]
	if !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("transaction %s not found", txn.TransactionID))
	}
	stored.Status = txn.Status
	stored.Note = txn.Note
	stored.ProcessedAt = txn.ProcessedAt
	stored.ProcessedBy = txn.ProcessedBy
	stored.CancelledBy = txn.CancelledBy
	t.f.txns[txn.TransactionID] = stored
	return nil
}

// --- Seed helpers ---

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func seedClient(f *fakeLedger, blocked bool) domain.Client {
	client := domain.Client{
		ClientID:  uuid.NewString(),
		FullName:  "Test Client",
		Blocked:   blocked,
		CreatedAt: time.Now().UTC(),
	}
	f.clients[client.ClientID] = client
	return client
}

var accountNumberSeq atomic.Int64

func seedAccount(f *fakeLedger, clientID, balance string, blocked bool) domain.Account {
	account := domain.Account{
		AccountID:     uuid.NewString(),
		ClientID:      clientID,
		AccountNumber: fmt.Sprintf("40817810%012d", accountNumberSeq.Add(1)),
		Balance:       dec(balance),
		Blocked:       blocked,
		CreatedAt:     time.Now().UTC(),
	}
	f.accounts[account.AccountID] = account
	return account
}
