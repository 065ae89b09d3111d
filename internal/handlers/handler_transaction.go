package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/accountly/bank_ledger_app/internal/core/domain"
	portssvc "github.com/accountly/bank_ledger_app/internal/core/ports/services"
	"github.com/accountly/bank_ledger_app/internal/dto"
	"github.com/accountly/bank_ledger_app/internal/middleware"
	"github.com/gin-gonic/gin"
)

// transactionHandler handles HTTP requests for the transaction and reversal
// engines.
type transactionHandler struct {
	txnService      portssvc.TransactionSvcFacade
	reversalService portssvc.ReversalSvcFacade
}

// newTransactionHandler creates a new transactionHandler.
func newTransactionHandler(ts portssvc.TransactionSvcFacade, rs portssvc.ReversalSvcFacade) *transactionHandler {
	return &transactionHandler{txnService: ts, reversalService: rs}
}

// registerTransactionRoutes registers the engine operation routes.
func registerTransactionRoutes(rg *gin.RouterGroup, ts portssvc.TransactionSvcFacade, rs portssvc.ReversalSvcFacade) {
	h := newTransactionHandler(ts, rs)

	accounts := rg.Group("/accounts")
	{
		accounts.POST("/:id/deposit", h.deposit)
		accounts.POST("/:id/withdraw", h.withdraw)
		accounts.GET("/:id/transactions", h.listTransactions)
	}

	rg.POST("/transfers", h.createTransfer)

	transactions := rg.Group("/transactions")
	{
		transactions.GET("/:id", h.getTransaction)
		transactions.GET("/by-reference/:reference", h.getTransactionByReference)
		transactions.POST("/:id/cancel", h.cancelTransaction)
	}
}

func (h *transactionHandler) deposit(c *gin.Context) {
	h.createOperation(c, domain.Deposit)
}

func (h *transactionHandler) withdraw(c *gin.Context) {
	h.createOperation(c, domain.Withdrawal)
}

// createOperation runs a deposit or withdrawal to its terminal status. Policy
// declines come back 200 with completed=false; only malformed input and
// infrastructure failures are HTTP errors.
func (h *transactionHandler) createOperation(c *gin.Context, txnType domain.TransactionType) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	accountID := c.Param("id")

	var body dto.OperationRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		logger.Warn("Failed to bind JSON for operation", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	req := dto.CreateTransactionRequest{
		AccountID:   accountID,
		Type:        txnType,
		Amount:      body.Amount,
		Note:        body.Note,
		PerformedBy: body.PerformedBy,
	}
	result, err := h.txnService.CreateAndProcess(c.Request.Context(), req, operatorFrom(c))
	if err != nil {
		respondError(c, logger, err, "process transaction")
		return
	}

	logger.Info("Operation processed",
		slog.String("transaction_id", result.Transaction.TransactionID),
		slog.Bool("completed", result.Completed),
	)
	c.JSON(http.StatusOK, result)
}

func (h *transactionHandler) createTransfer(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.CreateTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for transfer", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	result, err := h.txnService.CreateAndProcessTransfer(c.Request.Context(), req, operatorFrom(c))
	if err != nil {
		respondError(c, logger, err, "process transfer")
		return
	}

	logger.Info("Transfer processed",
		slog.String("transaction_id", result.Transaction.TransactionID),
		slog.Bool("completed", result.Completed),
	)
	c.JSON(http.StatusOK, result)
}

func (h *transactionHandler) getTransaction(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	txn, err := h.txnService.GetTransactionByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, logger, err, "retrieve transaction")
		return
	}
	c.JSON(http.StatusOK, dto.ToTransactionSnapshot(txn))
}

func (h *transactionHandler) getTransactionByReference(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	txn, err := h.txnService.GetTransactionByReference(c.Request.Context(), c.Param("reference"))
	if err != nil {
		respondError(c, logger, err, "retrieve transaction")
		return
	}
	c.JSON(http.StatusOK, dto.ToTransactionSnapshot(txn))
}

func (h *transactionHandler) listTransactions(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	accountID := c.Param("id")

	params := dto.ListTransactionsParams{}
	if limit := c.Query("limit"); limit != "" {
		parsed, err := strconv.Atoi(limit)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
			return
		}
		params.Limit = parsed
	}
	if token := c.Query("nextToken"); token != "" {
		params.NextToken = &token
	}

	page, err := h.txnService.ListTransactionsByAccount(c.Request.Context(), accountID, params)
	if err != nil {
		respondError(c, logger, err, "list transactions")
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *transactionHandler) cancelTransaction(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	transactionID := c.Param("id")

	var req dto.CancelTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for cancel", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	txn, err := h.reversalService.Cancel(c.Request.Context(), transactionID, operatorFrom(c), req.Reason)
	if err != nil {
		respondError(c, logger, err, "cancel transaction")
		return
	}

	logger.Info("Transaction cancelled", slog.String("transaction_id", txn.TransactionID))
	c.JSON(http.StatusOK, dto.ToTransactionSnapshot(txn))
}
