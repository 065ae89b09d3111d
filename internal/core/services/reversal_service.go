package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/accountly/bank_ledger_app/internal/core/domain"
	portsrepo "github.com/accountly/bank_ledger_app/internal/core/ports/repositories"
	portssvc "github.com/accountly/bank_ledger_app/internal/core/ports/services"
	"github.com/accountly/bank_ledger_app/internal/middleware"
	"github.com/accountly/bank_ledger_app/internal/platform/metrics"
)

// reversalService is the reversal engine: it undoes the balance effect of
// completed transactions and cancels pending ones, cascading to the linked
// mirror leg of a transfer.
type reversalService struct {
	ledgerRepo portsrepo.LedgerRepository
}

// NewReversalService creates a new ReversalService.
func NewReversalService(ledgerRepo portsrepo.LedgerRepository) portssvc.ReversalSvcFacade {
	return &reversalService{ledgerRepo: ledgerRepo}
}

var _ portssvc.ReversalSvcFacade = (*reversalService)(nil)

// Cancel reverses a transaction. Completed transactions get the inverse
// balance delta applied under lock; pending ones are simply marked cancelled.
// A linked mirror leg that is not yet cancelled is reversed in the same
// storage transaction, so both legs end cancelled together or the whole
// transition rolls back. Already cancelled transactions return unchanged.
func (s *reversalService) Cancel(ctx context.Context, transactionID string, cancelledBy string, reason string) (*domain.Transaction, error) {
	logger := middleware.GetLoggerFromCtx(ctx)
	if reason == "" {
		reason = MsgCancelledDefault
	}

	// Pre-read outside the transaction to learn the mirror id. The link is
	// immutable once the row exists, so reading it without a lock is safe and
	// lets us lock both rows in a fixed order.
	preRead, err := s.ledgerRepo.FindTransactionByID(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find transaction %s: %w", transactionID, err)
	}
	if preRead.IsCancelled() {
		return preRead, nil
	}

	txnIDs := []string{transactionID}
	if preRead.RelatedTransactionID != nil {
		txnIDs = append(txnIDs, *preRead.RelatedTransactionID)
	}
	sort.Strings(txnIDs)

	var out *domain.Transaction
	err = s.ledgerRepo.WithinTx(ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		started := time.Now()
		defer func() { metrics.ProcessingDuration.Observe(time.Since(started).Seconds()) }()

		locked := make(map[string]*domain.Transaction, len(txnIDs))
		for _, id := range txnIDs {
			txn, err := tx.LockTransaction(ctx, id)
			if err != nil {
				return err
			}
			locked[id] = txn
		}
		primary := locked[transactionID]
		if primary.IsCancelled() {
			out = primary
			return nil
		}

		// Lock every involved account row; LockAccounts orders by account id.
		accountIDs := make([]string, 0, len(locked))
		seen := make(map[string]bool, len(locked))
		for _, txn := range locked {
			if !seen[txn.AccountID] {
				seen[txn.AccountID] = true
				accountIDs = append(accountIDs, txn.AccountID)
			}
		}
		accounts, err := tx.LockAccounts(ctx, accountIDs...)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := s.reverseLeg(ctx, tx, primary, accounts, cancelledBy, reason, now); err != nil {
			return err
		}
		if primary.RelatedTransactionID != nil {
			mirror := locked[*primary.RelatedTransactionID]
			if !mirror.IsCancelled() {
				mirrorReason := MsgLinkedCancelled
				if reason != MsgCancelledDefault {
					mirrorReason = fmt.Sprintf("%s: %s", MsgLinkedCancelled, reason)
				}
				if err := s.reverseLeg(ctx, tx, mirror, accounts, cancelledBy, mirrorReason, now); err != nil {
					return err
				}
			}
		}
		out = primary
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to cancel transaction %s: %w", transactionID, err)
	}

	metrics.TransactionsTotal.WithLabelValues(string(out.Type), metrics.OutcomeReversed).Inc()
	logger.Info("Transaction cancelled",
		slog.String("transaction_id", out.TransactionID),
		slog.String("reason", reason),
	)
	return out, nil
}

// reverseLeg cancels a single locked transaction. A completed leg gets the
// inverse of its signed amount applied to the locked account balance; a
// pending leg carries no balance effect to undo. The accounts map is mutated
// so a second leg against the same account sees the updated balance.
func (s *reversalService) reverseLeg(ctx context.Context, tx portsrepo.LedgerTx, txn *domain.Transaction, accounts map[string]domain.Account, cancelledBy, reason string, now time.Time) error {
	if txn.IsCompleted() {
		account, ok := accounts[txn.AccountID]
		if !ok {
			return fmt.Errorf("account %s not locked for reversal", txn.AccountID)
		}
		account.Balance = account.Balance.Sub(txn.SignedAmount())
		if err := tx.UpdateAccountBalance(ctx, account.AccountID, account.Balance); err != nil {
			return err
		}
		accounts[txn.AccountID] = account
	}

	txn.Status = domain.StatusCancelled
	txn.Note = appendReason(txn.Note, reason)
	txn.CancelledBy = &cancelledBy
	if txn.ProcessedAt == nil {
		txn.ProcessedAt = &now
	}
	return tx.UpdateTransactionState(ctx, *txn)
}
