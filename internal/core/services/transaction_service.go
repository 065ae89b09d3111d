package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/accountly/bank_ledger_app/internal/apperrors"
	"github.com/accountly/bank_ledger_app/internal/core/domain"
	portsrepo "github.com/accountly/bank_ledger_app/internal/core/ports/repositories"
	portssvc "github.com/accountly/bank_ledger_app/internal/core/ports/services"
	"github.com/accountly/bank_ledger_app/internal/dto"
	"github.com/accountly/bank_ledger_app/internal/middleware"
	"github.com/accountly/bank_ledger_app/internal/platform/metrics"
)

// Human-readable outcome messages surfaced to callers and recorded in
// transaction notes on decline.
const (
	MsgOperationCompleted = "operation completed successfully"
	MsgInsufficientFunds  = "insufficient funds"
	MsgAccountBlocked     = "account is blocked"
	MsgWithdrawalLimit    = "withdrawal limit exceeded"
	MsgTransferLimit      = "transfer limit exceeded"
	MsgLinkedCancelled    = "linked operation cancelled"
	MsgCancelledDefault   = "cancelled by administrator"
)

// OperationCeiling is the largest amount a single withdrawal or transfer may
// move. Deposits are not capped.
var OperationCeiling = decimal.NewFromInt(100000)

// transactionService is the transaction engine: it creates transaction rows,
// applies policy checks and runs every transaction to a terminal status under
// row locks.
type transactionService struct {
	ledgerRepo      portsrepo.LedgerRepository
	accountRepo     portsrepo.AccountRepository
	clientRepo      portsrepo.ClientRepository
	referenceSvc    portssvc.ReferenceSvcFacade
	reversalSvc     portssvc.ReversalSvcFacade
	processingDelay time.Duration
}

// NewTransactionService creates a new TransactionService. processingDelay is
// the settlement wait between row creation and finalization; zero disables it.
func NewTransactionService(
	ledgerRepo portsrepo.LedgerRepository,
	accountRepo portsrepo.AccountRepository,
	clientRepo portsrepo.ClientRepository,
	referenceSvc portssvc.ReferenceSvcFacade,
	reversalSvc portssvc.ReversalSvcFacade,
	processingDelay time.Duration,
) portssvc.TransactionSvcFacade {
	return &transactionService{
		ledgerRepo:      ledgerRepo,
		accountRepo:     accountRepo,
		clientRepo:      clientRepo,
		referenceSvc:    referenceSvc,
		reversalSvc:     reversalSvc,
		processingDelay: processingDelay,
	}
}

var _ portssvc.TransactionSvcFacade = (*transactionService)(nil)

// appendReason records a decline or cancellation reason on a note without
// overwriting what the caller wrote.
func appendReason(note, reason string) string {
	if note == "" {
		return reason
	}
	return note + "; " + reason
}

// markCompleted stamps a pending transaction completed.
func markCompleted(txn *domain.Transaction, processedBy string, now time.Time) {
	txn.Status = domain.StatusCompleted
	txn.ProcessedAt = &now
	txn.ProcessedBy = &processedBy
}

// markCancelled stamps a pending transaction cancelled with the given reason.
func markCancelled(txn *domain.Transaction, cancelledBy, reason string, now time.Time) {
	txn.Status = domain.StatusCancelled
	txn.Note = appendReason(txn.Note, reason)
	txn.ProcessedAt = &now
	txn.ProcessedBy = &cancelledBy
	txn.CancelledBy = &cancelledBy
}

// CreateAndProcess creates a deposit or withdrawal in pending state and runs
// it to a terminal status. The pending row is committed before any policy
// check so that declined operations leave an audit trail. Policy declines are
// reported through the result, never as errors.
func (s *transactionService) CreateAndProcess(ctx context.Context, req dto.CreateTransactionRequest, processedBy string) (*dto.TransactionResult, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if req.Type != domain.Deposit && req.Type != domain.Withdrawal {
		return nil, fmt.Errorf("%w: type must be deposit or withdrawal, got %q", apperrors.ErrValidation, req.Type)
	}
	if err := domain.ValidateAmount(req.Amount); err != nil {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, err.Error())
	}

	account, err := s.accountRepo.FindAccountByID(ctx, req.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to find account %s: %w", req.AccountID, err)
	}

	reference, err := s.referenceSvc.Generate(ctx)
	if err != nil {
		return nil, err
	}

	txn := domain.Transaction{
		TransactionID: uuid.NewString(),
		Reference:     reference,
		AccountID:     account.AccountID,
		Type:          req.Type,
		Amount:        req.Amount,
		Status:        domain.StatusPending,
		Note:          req.Note,
		CreatedAt:     time.Now().UTC(),
		PerformedBy:   req.PerformedBy,
	}
	if err := s.ledgerRepo.CreateTransaction(ctx, txn); err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	logger.Info("Transaction created",
		slog.String("transaction_id", txn.TransactionID),
		slog.String("reference", txn.Reference),
		slog.String("type", string(txn.Type)),
	)

	// Ceiling and blocked checks decline before the settlement wait: there is
	// nothing to settle when the outcome is already known.
	if req.Type == domain.Withdrawal && req.Amount.GreaterThan(OperationCeiling) {
		return s.declineTransaction(ctx, txn.TransactionID, processedBy, MsgWithdrawalLimit)
	}
	blocked, err := s.isAccountBlocked(ctx, account)
	if err != nil {
		return nil, err
	}
	if blocked {
		return s.declineTransaction(ctx, txn.TransactionID, processedBy, MsgAccountBlocked)
	}

	if err := s.waitSettlement(ctx); err != nil {
		return nil, err
	}

	final, err := s.Finalize(ctx, txn.TransactionID, processedBy)
	if err != nil {
		return nil, err
	}
	return buildResult(final), nil
}

// Finalize transitions a pending transaction to a terminal status inside one
// storage transaction: the transaction row is locked first, then the account
// row. Non-pending transactions are returned unchanged.
func (s *transactionService) Finalize(ctx context.Context, transactionID string, processedBy string) (*domain.Transaction, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	var out *domain.Transaction
	err := s.ledgerRepo.WithinTx(ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		started := time.Now()
		defer func() { metrics.ProcessingDuration.Observe(time.Since(started).Seconds()) }()

		txn, err := tx.LockTransaction(ctx, transactionID)
		if err != nil {
			return err
		}
		if !txn.IsPending() {
			out = txn
			return nil
		}

		accounts, err := tx.LockAccounts(ctx, txn.AccountID)
		if err != nil {
			return err
		}
		account := accounts[txn.AccountID]
		client, err := tx.FindClient(ctx, account.ClientID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		switch {
		case account.Blocked || client.Blocked:
			markCancelled(txn, processedBy, MsgAccountBlocked, now)
		case txn.IsDebit() && account.Balance.LessThan(txn.Amount):
			markCancelled(txn, processedBy, MsgInsufficientFunds, now)
		default:
			if err := tx.UpdateAccountBalance(ctx, account.AccountID, account.Balance.Add(txn.SignedAmount())); err != nil {
				return err
			}
			markCompleted(txn, processedBy, now)
		}

		if err := tx.UpdateTransactionState(ctx, *txn); err != nil {
			return err
		}
		out = txn
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to finalize transaction %s: %w", transactionID, err)
	}

	observeOutcome(out)
	logger.Info("Transaction finalized",
		slog.String("transaction_id", out.TransactionID),
		slog.String("status", string(out.Status)),
	)
	return out, nil
}

// CreateAndProcessTransfer creates both legs of a transfer, mutually linked in
// one commit, and runs them to a joint terminal status.
func (s *transactionService) CreateAndProcessTransfer(ctx context.Context, req dto.CreateTransferRequest, processedBy string) (*dto.TransactionResult, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if err := domain.ValidateAmount(req.Amount); err != nil {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, err.Error())
	}

	source, err := s.accountRepo.FindAccountByID(ctx, req.SourceAccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to find source account %s: %w", req.SourceAccountID, err)
	}
	target, err := s.accountRepo.FindAccountByNumber(ctx, req.TargetAccountNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to find target account %s: %w", req.TargetAccountNumber, err)
	}
	if source.AccountID == target.AccountID {
		return nil, fmt.Errorf("%w: cannot transfer to the same account", apperrors.ErrValidation)
	}

	outgoingRef, err := s.referenceSvc.Generate(ctx)
	if err != nil {
		return nil, err
	}
	incomingRef, err := s.referenceSvc.Generate(ctx)
	if err != nil {
		return nil, err
	}

	outgoingNote := req.Note
	incomingNote := req.Note
	if req.Note == "" {
		outgoingNote = fmt.Sprintf("transfer to account %s", target.AccountNumber)
		incomingNote = fmt.Sprintf("transfer from account %s", source.AccountNumber)
	}

	now := time.Now().UTC()
	outgoing := domain.Transaction{
		TransactionID:             uuid.NewString(),
		Reference:                 outgoingRef,
		AccountID:                 source.AccountID,
		Type:                      domain.TransferOut,
		Amount:                    req.Amount,
		Status:                    domain.StatusPending,
		Note:                      outgoingNote,
		CreatedAt:                 now,
		PerformedBy:               req.PerformedBy,
		CounterpartyAccountNumber: target.AccountNumber,
	}
	incoming := domain.Transaction{
		TransactionID:             uuid.NewString(),
		Reference:                 incomingRef,
		AccountID:                 target.AccountID,
		Type:                      domain.TransferIn,
		Amount:                    req.Amount,
		Status:                    domain.StatusPending,
		Note:                      incomingNote,
		CreatedAt:                 now,
		PerformedBy:               req.PerformedBy,
		CounterpartyAccountNumber: source.AccountNumber,
	}
	outgoing.RelatedTransactionID = &incoming.TransactionID
	incoming.RelatedTransactionID = &outgoing.TransactionID

	if err := s.ledgerRepo.CreateTransferPair(ctx, outgoing, incoming); err != nil {
		return nil, fmt.Errorf("failed to create transfer pair: %w", err)
	}
	logger.Info("Transfer pair created",
		slog.String("outgoing_id", outgoing.TransactionID),
		slog.String("incoming_id", incoming.TransactionID),
		slog.String("amount", req.Amount.String()),
	)

	if req.Amount.GreaterThan(OperationCeiling) {
		return s.declineTransaction(ctx, outgoing.TransactionID, processedBy, MsgTransferLimit)
	}
	sourceBlocked, err := s.isAccountBlocked(ctx, source)
	if err != nil {
		return nil, err
	}
	targetBlocked, err := s.isAccountBlocked(ctx, target)
	if err != nil {
		return nil, err
	}
	if sourceBlocked || targetBlocked {
		return s.declineTransaction(ctx, outgoing.TransactionID, processedBy, MsgAccountBlocked)
	}

	if err := s.waitSettlement(ctx); err != nil {
		return nil, err
	}

	final, err := s.finalizeTransfer(ctx, outgoing.TransactionID, incoming.TransactionID, processedBy)
	if err != nil {
		return nil, err
	}
	return buildResult(final), nil
}

// finalizeTransfer transitions both legs of a transfer to the same terminal
// status in one storage transaction. Both transaction rows are locked in
// ascending id order, then both account rows in ascending account-id order.
// Either both deltas apply or neither does.
func (s *transactionService) finalizeTransfer(ctx context.Context, outgoingID, incomingID, processedBy string) (*domain.Transaction, error) {
	var out *domain.Transaction
	err := s.ledgerRepo.WithinTx(ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		started := time.Now()
		defer func() { metrics.ProcessingDuration.Observe(time.Since(started).Seconds()) }()

		txnIDs := []string{outgoingID, incomingID}
		sort.Strings(txnIDs)
		locked := make(map[string]*domain.Transaction, 2)
		for _, id := range txnIDs {
			txn, err := tx.LockTransaction(ctx, id)
			if err != nil {
				return err
			}
			locked[id] = txn
		}
		outgoing := locked[outgoingID]
		incoming := locked[incomingID]

		if !outgoing.IsPending() && !incoming.IsPending() {
			out = outgoing
			return nil
		}

		accounts, err := tx.LockAccounts(ctx, outgoing.AccountID, incoming.AccountID)
		if err != nil {
			return err
		}
		source := accounts[outgoing.AccountID]
		target := accounts[incoming.AccountID]
		sourceClient, err := tx.FindClient(ctx, source.ClientID)
		if err != nil {
			return err
		}
		targetClient, err := tx.FindClient(ctx, target.ClientID)
		if err != nil {
			return err
		}

		// Joint decision: a transfer completes only when both sides pass their
		// checks; otherwise both legs cancel with the shared reason.
		declineReason := ""
		switch {
		case source.Blocked || sourceClient.Blocked || target.Blocked || targetClient.Blocked:
			declineReason = MsgAccountBlocked
		case source.Balance.LessThan(outgoing.Amount):
			declineReason = MsgInsufficientFunds
		}

		now := time.Now().UTC()
		if declineReason != "" {
			for _, txn := range []*domain.Transaction{outgoing, incoming} {
				if !txn.IsPending() {
					continue
				}
				markCancelled(txn, processedBy, declineReason, now)
				if err := tx.UpdateTransactionState(ctx, *txn); err != nil {
					return err
				}
			}
			out = outgoing
			return nil
		}

		if outgoing.IsPending() {
			if err := tx.UpdateAccountBalance(ctx, source.AccountID, source.Balance.Sub(outgoing.Amount)); err != nil {
				return err
			}
			markCompleted(outgoing, processedBy, now)
			if err := tx.UpdateTransactionState(ctx, *outgoing); err != nil {
				return err
			}
		}
		if incoming.IsPending() {
			if err := tx.UpdateAccountBalance(ctx, target.AccountID, target.Balance.Add(incoming.Amount)); err != nil {
				return err
			}
			markCompleted(incoming, processedBy, now)
			if err := tx.UpdateTransactionState(ctx, *incoming); err != nil {
				return err
			}
		}
		out = outgoing
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to finalize transfer %s/%s: %w", outgoingID, incomingID, err)
	}

	observeOutcome(out)
	return out, nil
}

// GetTransactionByID retrieves a single transaction.
func (s *transactionService) GetTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	return s.ledgerRepo.FindTransactionByID(ctx, transactionID)
}

// GetTransactionByReference retrieves a single transaction by its reference.
func (s *transactionService) GetTransactionByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	return s.ledgerRepo.FindTransactionByReference(ctx, reference)
}

// ListTransactionsByAccount retrieves a paginated transaction history for an
// account, newest first.
func (s *transactionService) ListTransactionsByAccount(ctx context.Context, accountID string, params dto.ListTransactionsParams) (*dto.ListTransactionsResponse, error) {
	if _, err := s.accountRepo.FindAccountByID(ctx, accountID); err != nil {
		return nil, fmt.Errorf("failed to find account %s: %w", accountID, err)
	}
	limit := params.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	txns, nextToken, err := s.ledgerRepo.ListTransactionsByAccountID(ctx, accountID, limit, params.NextToken)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions for account %s: %w", accountID, err)
	}
	return &dto.ListTransactionsResponse{
		Transactions: dto.ToTransactionSnapshots(txns),
		NextToken:    nextToken,
	}, nil
}

// isAccountBlocked reports the effective blocked state of an account: its own
// flag or the owning client's flag. A non-locking pre-check; finalize repeats
// it under lock.
func (s *transactionService) isAccountBlocked(ctx context.Context, account *domain.Account) (bool, error) {
	if account.Blocked {
		return true, nil
	}
	client, err := s.clientRepo.FindClientByID(ctx, account.ClientID)
	if err != nil {
		return false, fmt.Errorf("failed to find client %s: %w", account.ClientID, err)
	}
	return client.Blocked, nil
}

// declineTransaction cancels a just-created pending transaction through the
// reversal engine (which cascades to a linked leg) and reports the decline as
// a result.
func (s *transactionService) declineTransaction(ctx context.Context, transactionID, cancelledBy, reason string) (*dto.TransactionResult, error) {
	txn, err := s.reversalSvc.Cancel(ctx, transactionID, cancelledBy, reason)
	if err != nil {
		return nil, err
	}
	return buildResult(txn), nil
}

// waitSettlement suspends the operation for the configured settlement delay,
// honoring context cancellation. A zero delay returns immediately.
func (s *transactionService) waitSettlement(ctx context.Context) error {
	if s.processingDelay <= 0 {
		return nil
	}
	timer := time.NewTimer(s.processingDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("settlement wait interrupted: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

// buildResult converts a terminal transaction into the caller-facing result.
func buildResult(txn *domain.Transaction) *dto.TransactionResult {
	message := MsgOperationCompleted
	if !txn.IsCompleted() {
		message = txn.Note
	}
	return &dto.TransactionResult{
		Transaction: dto.ToTransactionSnapshot(txn),
		Completed:   txn.IsCompleted(),
		Message:     message,
	}
}

// observeOutcome records the engine decision in the transaction counter.
func observeOutcome(txn *domain.Transaction) {
	outcome := metrics.OutcomeCompleted
	if !txn.IsCompleted() {
		outcome = metrics.OutcomeDeclined
	}
	metrics.TransactionsTotal.WithLabelValues(string(txn.Type), outcome).Inc()
}
