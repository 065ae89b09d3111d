package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account mirrors the accounts table. Balance is NUMERIC(12,2) and is only
// ever written inside the engine's locking sections.
type Account struct {
	AccountID     string          `db:"account_id"`
	ClientID      string          `db:"client_id"`
	AccountNumber string          `db:"account_number"`
	Balance       decimal.Decimal `db:"balance"`
	Blocked       bool            `db:"blocked"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}
