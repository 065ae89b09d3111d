package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/accountly/bank_ledger_app/internal/apperrors"
	"github.com/accountly/bank_ledger_app/internal/core/domain"
	"github.com/accountly/bank_ledger_app/internal/dto"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockTransactionService is a mock type for the TransactionSvcFacade interface
type MockTransactionService struct {
	mock.Mock
}

func (m *MockTransactionService) CreateAndProcess(ctx context.Context, req dto.CreateTransactionRequest, processedBy string) (*dto.TransactionResult, error) {
	args := m.Called(ctx, req, processedBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.TransactionResult), args.Error(1)
}

func (m *MockTransactionService) CreateAndProcessTransfer(ctx context.Context, req dto.CreateTransferRequest, processedBy string) (*dto.TransactionResult, error) {
	args := m.Called(ctx, req, processedBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.TransactionResult), args.Error(1)
}

func (m *MockTransactionService) Finalize(ctx context.Context, transactionID string, processedBy string) (*domain.Transaction, error) {
	args := m.Called(ctx, transactionID, processedBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockTransactionService) GetTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockTransactionService) GetTransactionByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockTransactionService) ListTransactionsByAccount(ctx context.Context, accountID string, params dto.ListTransactionsParams) (*dto.ListTransactionsResponse, error) {
	args := m.Called(ctx, accountID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ListTransactionsResponse), args.Error(1)
}

// MockReversalService is a mock type for the ReversalSvcFacade interface
type MockReversalService struct {
	mock.Mock
}

func (m *MockReversalService) Cancel(ctx context.Context, transactionID string, cancelledBy string, reason string) (*domain.Transaction, error) {
	args := m.Called(ctx, transactionID, cancelledBy, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func setupTransactionRouter(ts *MockTransactionService, rs *MockReversalService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	registerCustomValidators()
	v1 := r.Group("/api/v1")
	registerTransactionRoutes(v1, ts, rs)
	return r
}

func performJSON(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(body)
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestDepositEndpoint(t *testing.T) {
	ts := new(MockTransactionService)
	rs := new(MockReversalService)
	r := setupTransactionRouter(ts, rs)

	result := &dto.TransactionResult{
		Transaction: dto.TransactionSnapshot{TransactionID: "t1", Status: domain.StatusCompleted},
		Completed:   true,
		Message:     "operation completed successfully",
	}
	ts.On("CreateAndProcess", mock.Anything, mock.MatchedBy(func(req dto.CreateTransactionRequest) bool {
		return req.AccountID == "a1" && req.Type == domain.Deposit && req.Amount.Equal(decimal.RequireFromString("100"))
	}), "system").Return(result, nil).Once()

	w := performJSON(r, http.MethodPost, "/api/v1/accounts/a1/deposit", gin.H{"amount": "100"})

	require.Equal(t, http.StatusOK, w.Code)
	var got dto.TransactionResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.True(t, got.Completed)
	ts.AssertExpectations(t)
}

func TestDepositEndpointRejectsMissingAmount(t *testing.T) {
	ts := new(MockTransactionService)
	rs := new(MockReversalService)
	r := setupTransactionRouter(ts, rs)

	w := performJSON(r, http.MethodPost, "/api/v1/accounts/a1/deposit", gin.H{"note": "no amount"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	ts.AssertNotCalled(t, "CreateAndProcess", mock.Anything, mock.Anything, mock.Anything)
}

func TestWithdrawEndpointPropagatesNotFound(t *testing.T) {
	ts := new(MockTransactionService)
	rs := new(MockReversalService)
	r := setupTransactionRouter(ts, rs)

	ts.On("CreateAndProcess", mock.Anything, mock.Anything, "system").
		Return(nil, apperrors.NewNotFoundError("account a1 not found")).Once()

	w := performJSON(r, http.MethodPost, "/api/v1/accounts/a1/withdraw", gin.H{"amount": "50"})

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTransferEndpointValidatesAccountNumber(t *testing.T) {
	ts := new(MockTransactionService)
	rs := new(MockReversalService)
	r := setupTransactionRouter(ts, rs)

	w := performJSON(r, http.MethodPost, "/api/v1/transfers", gin.H{
		"sourceAccountID":     "a1",
		"targetAccountNumber": "123", // not a 20-digit number
		"amount":              "10",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	ts.AssertNotCalled(t, "CreateAndProcessTransfer", mock.Anything, mock.Anything, mock.Anything)
}

func TestCancelEndpointUsesOperatorHeader(t *testing.T) {
	ts := new(MockTransactionService)
	rs := new(MockReversalService)
	r := setupTransactionRouter(ts, rs)

	cancelled := &domain.Transaction{TransactionID: "t1", Status: domain.StatusCancelled}
	rs.On("Cancel", mock.Anything, "t1", "ops-admin", "fraud").Return(cancelled, nil).Once()

	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(gin.H{"reason": "fraud"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions/t1/cancel", &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Operator", "ops-admin")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	rs.AssertExpectations(t)
}
