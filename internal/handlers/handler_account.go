package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/accountly/bank_ledger_app/internal/core/ports/services"
	"github.com/accountly/bank_ledger_app/internal/dto"
	"github.com/accountly/bank_ledger_app/internal/middleware"
	"github.com/gin-gonic/gin"
)

// accountHandler handles HTTP requests related to accounts.
type accountHandler struct {
	accountService portssvc.AccountSvcFacade
	blockService   portssvc.BlockSvcFacade
}

// newAccountHandler creates a new accountHandler.
func newAccountHandler(as portssvc.AccountSvcFacade, bs portssvc.BlockSvcFacade) *accountHandler {
	return &accountHandler{accountService: as, blockService: bs}
}

// registerAccountRoutes registers routes related to accounts.
func registerAccountRoutes(rg *gin.RouterGroup, as portssvc.AccountSvcFacade, bs portssvc.BlockSvcFacade) {
	h := newAccountHandler(as, bs)

	accounts := rg.Group("/accounts")
	{
		accounts.POST("", h.createAccount)
		accounts.GET("/:id", h.getAccount)
		accounts.GET("/by-number/:number", h.getAccountByNumber)
		accounts.PUT("/:id/block", h.setAccountBlocked)
	}
}

func (h *accountHandler) createAccount(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateAccount", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	account, err := h.accountService.CreateAccount(c.Request.Context(), req)
	if err != nil {
		respondError(c, logger, err, "create account")
		return
	}

	logger.Info("Account created", slog.String("account_id", account.AccountID))
	c.JSON(http.StatusCreated, dto.ToAccountResponse(account))
}

func (h *accountHandler) getAccount(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	account, err := h.accountService.GetAccountByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, logger, err, "retrieve account")
		return
	}
	c.JSON(http.StatusOK, dto.ToAccountResponse(account))
}

func (h *accountHandler) getAccountByNumber(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	account, err := h.accountService.GetAccountByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		respondError(c, logger, err, "retrieve account")
		return
	}
	c.JSON(http.StatusOK, dto.ToAccountResponse(account))
}

// setAccountBlocked toggles the account block flag; the coordinator also
// refreshes the owning client's cached flag.
func (h *accountHandler) setAccountBlocked(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	accountID := c.Param("id")

	var req dto.BlockAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for block toggle", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	account, err := h.blockService.SetAccountBlocked(c.Request.Context(), accountID, req.Blocked, operatorFrom(c))
	if err != nil {
		respondError(c, logger, err, "update account block flag")
		return
	}

	logger.Info("Account block flag set",
		slog.String("account_id", account.AccountID),
		slog.Bool("blocked", account.Blocked),
	)
	c.JSON(http.StatusOK, dto.ToAccountResponse(account))
}
