package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/accountly/bank_ledger_app/internal/core/ports/services"
	"github.com/accountly/bank_ledger_app/internal/dto"
	"github.com/accountly/bank_ledger_app/internal/middleware"
	"github.com/gin-gonic/gin"
)

// clientHandler handles HTTP requests related to clients.
type clientHandler struct {
	clientService  portssvc.ClientSvcFacade
	accountService portssvc.AccountSvcFacade
}

// newClientHandler creates a new clientHandler.
func newClientHandler(cs portssvc.ClientSvcFacade, as portssvc.AccountSvcFacade) *clientHandler {
	return &clientHandler{clientService: cs, accountService: as}
}

// registerClientRoutes registers routes related to clients.
func registerClientRoutes(rg *gin.RouterGroup, cs portssvc.ClientSvcFacade, as portssvc.AccountSvcFacade) {
	h := newClientHandler(cs, as)

	clients := rg.Group("/clients")
	{
		clients.POST("", h.createClient)
		clients.GET("/:id", h.getClient)
		clients.GET("/:id/accounts", h.listClientAccounts)
	}
}

func (h *clientHandler) createClient(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.CreateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateClient", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	client, err := h.clientService.CreateClient(c.Request.Context(), req)
	if err != nil {
		respondError(c, logger, err, "create client")
		return
	}

	logger.Info("Client created", slog.String("client_id", client.ClientID))
	c.JSON(http.StatusCreated, dto.ToClientResponse(client, nil))
}

// getClient returns the client with its effective blocked state computed from
// current account rows.
func (h *clientHandler) getClient(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	clientID := c.Param("id")

	client, err := h.clientService.GetClientByID(c.Request.Context(), clientID)
	if err != nil {
		respondError(c, logger, err, "retrieve client")
		return
	}
	accounts, err := h.accountService.ListAccountsByClient(c.Request.Context(), clientID)
	if err != nil {
		respondError(c, logger, err, "retrieve client accounts")
		return
	}
	c.JSON(http.StatusOK, dto.ToClientResponse(client, accounts))
}

func (h *clientHandler) listClientAccounts(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	accounts, err := h.accountService.ListAccountsByClient(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, logger, err, "list client accounts")
		return
	}

	responses := make([]dto.AccountResponse, len(accounts))
	for i := range accounts {
		responses[i] = dto.ToAccountResponse(&accounts[i])
	}
	c.JSON(http.StatusOK, responses)
}
