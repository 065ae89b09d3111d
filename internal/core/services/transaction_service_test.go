package services_test

import (
	"context"
	"regexp"
	"sync"
	"testing"

	"github.com/accountly/bank_ledger_app/internal/apperrors"
	"github.com/accountly/bank_ledger_app/internal/core/domain"
	portssvc "github.com/accountly/bank_ledger_app/internal/core/ports/services"
	"github.com/accountly/bank_ledger_app/internal/core/services"
	"github.com/accountly/bank_ledger_app/internal/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

var referencePattern = regexp.MustCompile(`^TRX-\d{14}-\d{4}$`)

type TransactionServiceTestSuite struct {
	suite.Suite
	ledger   *fakeLedger
	services *portssvc.ServiceContainer
}

func (s *TransactionServiceTestSuite) SetupTest() {
	s.ledger = newFakeLedger()
	repos := s.ledger.provider()
	s.services = services.NewServiceContainer(&repos, 0)
}

func (s *TransactionServiceTestSuite) process(accountID string, txnType domain.TransactionType, amount string) *dto.TransactionResult {
	result, err := s.services.Transaction.CreateAndProcess(context.Background(), dto.CreateTransactionRequest{
		AccountID: accountID,
		Type:      txnType,
		Amount:    dec(amount),
	}, "operator")
	s.Require().NoError(err)
	s.Require().NotNil(result)
	return result
}

func (s *TransactionServiceTestSuite) balance(accountID string) decimal.Decimal {
	account, err := s.ledger.FindAccountByID(context.Background(), accountID)
	s.Require().NoError(err)
	return account.Balance
}

// assertBalanceInvariant checks that the stored balance equals the sum of the
// account's completed signed amounts.
func (s *TransactionServiceTestSuite) assertBalanceInvariant(accountID string, openingBalance string) {
	sum := dec(openingBalance)
	s.ledger.mu.Lock()
	for _, txn := range s.ledger.txns {
		if txn.AccountID == accountID && txn.IsCompleted() {
			sum = sum.Add(txn.SignedAmount())
		}
	}
	s.ledger.mu.Unlock()
	s.True(s.balance(accountID).Equal(sum),
		"balance %s does not equal completed sum %s", s.balance(accountID), sum)
}

func (s *TransactionServiceTestSuite) TestDepositCompletes() {
	client := seedClient(s.ledger, false)
	account := seedAccount(s.ledger, client.ClientID, "0", false)

	result := s.process(account.AccountID, domain.Deposit, "100")

	s.True(result.Completed)
	s.Equal(services.MsgOperationCompleted, result.Message)
	s.Equal(domain.StatusCompleted, result.Transaction.Status)
	s.Regexp(referencePattern, result.Transaction.Reference)
	s.NotNil(result.Transaction.ProcessedAt)
	s.True(s.balance(account.AccountID).Equal(dec("100")))
	s.assertBalanceInvariant(account.AccountID, "0")
}

func (s *TransactionServiceTestSuite) TestWithdrawalInsufficientFunds() {
	client := seedClient(s.ledger, false)
	account := seedAccount(s.ledger, client.ClientID, "500", false)

	result := s.process(account.AccountID, domain.Withdrawal, "1000")

	s.False(result.Completed)
	s.Equal(services.MsgInsufficientFunds, result.Message)
	s.Equal(domain.StatusCancelled, result.Transaction.Status)
	s.True(s.balance(account.AccountID).Equal(dec("500")), "declined withdrawal must not move money")

	// The declined attempt still leaves an audit row.
	stored, err := s.ledger.FindTransactionByID(context.Background(), result.Transaction.TransactionID)
	s.Require().NoError(err)
	s.Equal(domain.StatusCancelled, stored.Status)
	s.Contains(stored.Note, services.MsgInsufficientFunds)
}

func (s *TransactionServiceTestSuite) TestWithdrawalCeilingDeclined() {
	client := seedClient(s.ledger, false)
	account := seedAccount(s.ledger, client.ClientID, "200000", false)

	result := s.process(account.AccountID, domain.Withdrawal, "100001")

	s.False(result.Completed)
	s.Equal(services.MsgWithdrawalLimit, result.Message)
	s.True(s.balance(account.AccountID).Equal(dec("200000")))
}

func (s *TransactionServiceTestSuite) TestWithdrawalAtCeilingCompletes() {
	client := seedClient(s.ledger, false)
	account := seedAccount(s.ledger, client.ClientID, "200000", false)

	result := s.process(account.AccountID, domain.Withdrawal, "100000")

	s.True(result.Completed)
	s.True(s.balance(account.AccountID).Equal(dec("100000")))
}

func (s *TransactionServiceTestSuite) TestDepositOnBlockedAccountDeclined() {
	client := seedClient(s.ledger, false)
	account := seedAccount(s.ledger, client.ClientID, "0", true)

	result := s.process(account.AccountID, domain.Deposit, "50")

	s.False(result.Completed)
	s.Equal(services.MsgAccountBlocked, result.Message)
	s.True(s.balance(account.AccountID).IsZero())
}

func (s *TransactionServiceTestSuite) TestWithdrawalOnBlockedClientDeclined() {
	client := seedClient(s.ledger, true)
	account := seedAccount(s.ledger, client.ClientID, "500", false)

	result := s.process(account.AccountID, domain.Withdrawal, "100")

	s.False(result.Completed)
	s.Equal(services.MsgAccountBlocked, result.Message)
	s.True(s.balance(account.AccountID).Equal(dec("500")))
}

func (s *TransactionServiceTestSuite) TestValidationErrorsLeaveNoRow() {
	client := seedClient(s.ledger, false)
	account := seedAccount(s.ledger, client.ClientID, "100", false)

	cases := []struct {
		name    string
		txnType domain.TransactionType
		amount  string
	}{
		{"negative amount", domain.Deposit, "-5"},
		{"zero amount", domain.Deposit, "0"},
		{"three fractional digits", domain.Withdrawal, "1.005"},
		{"exceeds representable maximum", domain.Deposit, "10000000000"},
	}
	for _, tc := range cases {
		_, err := s.services.Transaction.CreateAndProcess(context.Background(), dto.CreateTransactionRequest{
			AccountID: account.AccountID,
			Type:      tc.txnType,
			Amount:    dec(tc.amount),
		}, "operator")
		s.ErrorIs(err, apperrors.ErrValidation, tc.name)
	}

	_, err := s.services.Transaction.CreateAndProcess(context.Background(), dto.CreateTransactionRequest{
		AccountID: account.AccountID,
		Type:      domain.TransferOut,
		Amount:    dec("10"),
	}, "operator")
	s.ErrorIs(err, apperrors.ErrValidation, "transfer legs cannot be created directly")

	s.ledger.mu.Lock()
	s.Empty(s.ledger.txns, "failed validation must not create rows")
	s.ledger.mu.Unlock()
}

func (s *TransactionServiceTestSuite) TestDepositOnMissingAccount() {
	_, err := s.services.Transaction.CreateAndProcess(context.Background(), dto.CreateTransactionRequest{
		AccountID: "no-such-account",
		Type:      domain.Deposit,
		Amount:    dec("10"),
	}, "operator")
	s.ErrorIs(err, apperrors.ErrNotFound)
}

func (s *TransactionServiceTestSuite) transfer(sourceID, targetNumber, amount, note string) *dto.TransactionResult {
	result, err := s.services.Transaction.CreateAndProcessTransfer(context.Background(), dto.CreateTransferRequest{
		SourceAccountID:     sourceID,
		TargetAccountNumber: targetNumber,
		Amount:              dec(amount),
		Note:                note,
	}, "operator")
	s.Require().NoError(err)
	return result
}

func (s *TransactionServiceTestSuite) TestTransferCompletesBothLegs() {
	client := seedClient(s.ledger, false)
	source := seedAccount(s.ledger, client.ClientID, "500", false)
	target := seedAccount(s.ledger, client.ClientID, "200", false)

	result := s.transfer(source.AccountID, target.AccountNumber, "120", "")

	s.True(result.Completed)
	s.True(s.balance(source.AccountID).Equal(dec("380")))
	s.True(s.balance(target.AccountID).Equal(dec("320")))

	outgoing, err := s.ledger.FindTransactionByID(context.Background(), result.Transaction.TransactionID)
	s.Require().NoError(err)
	s.Equal(domain.TransferOut, outgoing.Type)
	s.Equal(domain.StatusCompleted, outgoing.Status)
	s.Equal("transfer to account "+target.AccountNumber, outgoing.Note)
	s.Equal(target.AccountNumber, outgoing.CounterpartyAccountNumber)
	s.Require().NotNil(outgoing.RelatedTransactionID)

	incoming, err := s.ledger.FindTransactionByID(context.Background(), *outgoing.RelatedTransactionID)
	s.Require().NoError(err)
	s.Equal(domain.TransferIn, incoming.Type)
	s.Equal(domain.StatusCompleted, incoming.Status)
	s.Equal("transfer from account "+source.AccountNumber, incoming.Note)
	s.Equal(source.AccountNumber, incoming.CounterpartyAccountNumber)
	s.Require().NotNil(incoming.RelatedTransactionID)
	s.Equal(outgoing.TransactionID, *incoming.RelatedTransactionID)

	s.assertBalanceInvariant(source.AccountID, "500")
	s.assertBalanceInvariant(target.AccountID, "200")
}

func (s *TransactionServiceTestSuite) TestTransferInsufficientFundsCancelsBothLegs() {
	client := seedClient(s.ledger, false)
	source := seedAccount(s.ledger, client.ClientID, "50", false)
	target := seedAccount(s.ledger, client.ClientID, "200", false)

	result := s.transfer(source.AccountID, target.AccountNumber, "120", "")

	s.False(result.Completed)
	s.True(s.balance(source.AccountID).Equal(dec("50")))
	s.True(s.balance(target.AccountID).Equal(dec("200")))

	outgoing, err := s.ledger.FindTransactionByID(context.Background(), result.Transaction.TransactionID)
	s.Require().NoError(err)
	s.Equal(domain.StatusCancelled, outgoing.Status)
	s.Require().NotNil(outgoing.RelatedTransactionID)
	incoming, err := s.ledger.FindTransactionByID(context.Background(), *outgoing.RelatedTransactionID)
	s.Require().NoError(err)
	s.Equal(domain.StatusCancelled, incoming.Status, "partial completion must never be terminal")
}

func (s *TransactionServiceTestSuite) TestTransferCeilingDeclined() {
	client := seedClient(s.ledger, false)
	source := seedAccount(s.ledger, client.ClientID, "200000", false)
	target := seedAccount(s.ledger, client.ClientID, "0", false)

	result := s.transfer(source.AccountID, target.AccountNumber, "100000.01", "")

	s.False(result.Completed)
	s.Equal(domain.StatusCancelled, result.Transaction.Status)
	s.Contains(result.Message, services.MsgTransferLimit)
	s.True(s.balance(source.AccountID).Equal(dec("200000")))
	s.True(s.balance(target.AccountID).IsZero())

	// The mirror leg is cancelled through the cascade.
	outgoing, err := s.ledger.FindTransactionByID(context.Background(), result.Transaction.TransactionID)
	s.Require().NoError(err)
	s.Require().NotNil(outgoing.RelatedTransactionID)
	incoming, err := s.ledger.FindTransactionByID(context.Background(), *outgoing.RelatedTransactionID)
	s.Require().NoError(err)
	s.Equal(domain.StatusCancelled, incoming.Status)
	s.Contains(incoming.Note, services.MsgLinkedCancelled)
}

func (s *TransactionServiceTestSuite) TestTransferToBlockedTargetDeclined() {
	client := seedClient(s.ledger, false)
	source := seedAccount(s.ledger, client.ClientID, "500", false)
	target := seedAccount(s.ledger, client.ClientID, "0", true)

	result := s.transfer(source.AccountID, target.AccountNumber, "100", "")

	s.False(result.Completed)
	s.True(s.balance(source.AccountID).Equal(dec("500")))
	s.True(s.balance(target.AccountID).IsZero())
}

func (s *TransactionServiceTestSuite) TestTransferToSameAccountRejected() {
	client := seedClient(s.ledger, false)
	account := seedAccount(s.ledger, client.ClientID, "500", false)

	_, err := s.services.Transaction.CreateAndProcessTransfer(context.Background(), dto.CreateTransferRequest{
		SourceAccountID:     account.AccountID,
		TargetAccountNumber: account.AccountNumber,
		Amount:              dec("10"),
	}, "operator")
	s.ErrorIs(err, apperrors.ErrValidation)
}

func (s *TransactionServiceTestSuite) TestTransferToMissingTarget() {
	client := seedClient(s.ledger, false)
	source := seedAccount(s.ledger, client.ClientID, "500", false)

	_, err := s.services.Transaction.CreateAndProcessTransfer(context.Background(), dto.CreateTransferRequest{
		SourceAccountID:     source.AccountID,
		TargetAccountNumber: "40817810999999999999",
		Amount:              dec("10"),
	}, "operator")
	s.ErrorIs(err, apperrors.ErrNotFound)
}

func (s *TransactionServiceTestSuite) TestTransferKeepsCallerNote() {
	client := seedClient(s.ledger, false)
	source := seedAccount(s.ledger, client.ClientID, "500", false)
	target := seedAccount(s.ledger, client.ClientID, "0", false)

	result := s.transfer(source.AccountID, target.AccountNumber, "10", "rent")

	outgoing, err := s.ledger.FindTransactionByID(context.Background(), result.Transaction.TransactionID)
	s.Require().NoError(err)
	s.Equal("rent", outgoing.Note)
	incoming, err := s.ledger.FindTransactionByID(context.Background(), *outgoing.RelatedTransactionID)
	s.Require().NoError(err)
	s.Equal("rent", incoming.Note)
}

func (s *TransactionServiceTestSuite) TestFinalizeIsIdempotent() {
	client := seedClient(s.ledger, false)
	account := seedAccount(s.ledger, client.ClientID, "0", false)

	result := s.process(account.AccountID, domain.Deposit, "100")
	s.True(result.Completed)

	again, err := s.services.Transaction.Finalize(context.Background(), result.Transaction.TransactionID, "operator")
	s.Require().NoError(err)
	s.Equal(domain.StatusCompleted, again.Status)
	s.True(s.balance(account.AccountID).Equal(dec("100")), "repeated finalize must not apply the delta twice")
}

func (s *TransactionServiceTestSuite) TestConcurrentWithdrawalsExactlyOneCompletes() {
	client := seedClient(s.ledger, false)
	account := seedAccount(s.ledger, client.ClientID, "1000", false)

	var wg sync.WaitGroup
	results := make([]*dto.TransactionResult, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = s.services.Transaction.CreateAndProcess(context.Background(), dto.CreateTransactionRequest{
				AccountID: account.AccountID,
				Type:      domain.Withdrawal,
				Amount:    dec("700"),
			}, "operator")
		}(i)
	}
	wg.Wait()

	completed := 0
	for i, result := range results {
		s.Require().NoError(errs[i])
		if result.Completed {
			completed++
		} else {
			s.Equal(services.MsgInsufficientFunds, result.Message)
		}
	}
	s.Equal(1, completed, "exactly one of the competing withdrawals may complete")
	s.True(s.balance(account.AccountID).Equal(dec("300")))
	s.assertBalanceInvariant(account.AccountID, "1000")
}

func (s *TransactionServiceTestSuite) TestListTransactionsByAccount() {
	client := seedClient(s.ledger, false)
	account := seedAccount(s.ledger, client.ClientID, "0", false)

	s.process(account.AccountID, domain.Deposit, "10")
	s.process(account.AccountID, domain.Deposit, "20")

	page, err := s.services.Transaction.ListTransactionsByAccount(context.Background(), account.AccountID, dto.ListTransactionsParams{Limit: 10})
	s.Require().NoError(err)
	s.Len(page.Transactions, 2)
}

func TestTransactionServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TransactionServiceTestSuite))
}
