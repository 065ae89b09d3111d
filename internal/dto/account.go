package dto

import (
	"time"

	"github.com/accountly/bank_ledger_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateAccountRequest opens a new account for an existing client. The account
// number is generated server side and immutable afterwards.
type CreateAccountRequest struct {
	ClientID string `json:"clientID" binding:"required"`
}

// BlockAccountRequest toggles an account's blocked flag.
type BlockAccountRequest struct {
	Blocked bool `json:"blocked"`
}

// AccountResponse is the read model of an account.
type AccountResponse struct {
	AccountID     string          `json:"accountID"`
	ClientID      string          `json:"clientID"`
	AccountNumber string          `json:"accountNumber"`
	Balance       decimal.Decimal `json:"balance"`
	Blocked       bool            `json:"blocked"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// ToAccountResponse converts a domain account to its read model.
func ToAccountResponse(account *domain.Account) AccountResponse {
	return AccountResponse{
		AccountID:     account.AccountID,
		ClientID:      account.ClientID,
		AccountNumber: account.AccountNumber,
		Balance:       account.Balance,
		Blocked:       account.Blocked,
		CreatedAt:     account.CreatedAt,
	}
}

// CreateClientRequest registers a new client.
type CreateClientRequest struct {
	FullName string `json:"fullName" binding:"required,max=255"`
	JobTitle string `json:"jobTitle" binding:"max=255"`
}

// ClientResponse is the read model of a client. EffectivelyBlocked is computed
// per request from the client's accounts, never read from the stored flag.
type ClientResponse struct {
	ClientID           string    `json:"clientID"`
	FullName           string    `json:"fullName"`
	JobTitle           string    `json:"jobTitle,omitempty"`
	Blocked            bool      `json:"blocked"`
	EffectivelyBlocked bool      `json:"effectivelyBlocked"`
	CreatedAt          time.Time `json:"createdAt"`
}

// ToClientResponse converts a domain client plus its accounts to a read model.
func ToClientResponse(client *domain.Client, accounts []domain.Account) ClientResponse {
	return ClientResponse{
		ClientID:           client.ClientID,
		FullName:           client.FullName,
		JobTitle:           client.JobTitle,
		Blocked:            client.Blocked,
		EffectivelyBlocked: domain.EffectivelyBlocked(*client, accounts),
		CreatedAt:          client.CreatedAt,
	}
}
