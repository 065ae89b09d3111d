package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account represents a client's ledger account.
//
// Balance is an exact fixed-point value with two fractional digits, bounded by
// a signed 12-digit magnitude (NUMERIC(12,2) in the store). It is mutated only
// by the transaction and reversal engines; the invariant is that it always
// equals the sum of the signed amounts of the account's completed transactions.
type Account struct {
	AccountID     string          `json:"accountID"` // Primary Key (UUID)
	ClientID      string          `json:"clientID"`  // FK -> clients.client_id (Not Null)
	AccountNumber string          `json:"accountNumber"`
	Balance       decimal.Decimal `json:"balance"`
	Blocked       bool            `json:"blocked"`
	CreatedAt     time.Time       `json:"createdAt"`
}
