package domain_test

import (
	"testing"

	"github.com/accountly/bank_ledger_app/internal/core/domain"
	"github.com/stretchr/testify/assert"
)

func TestEffectivelyBlocked(t *testing.T) {
	client := domain.Client{ClientID: "c1"}
	accounts := []domain.Account{
		{AccountID: "a1", ClientID: "c1"},
		{AccountID: "a2", ClientID: "c1"},
	}

	assert.False(t, domain.EffectivelyBlocked(client, accounts))

	accounts[1].Blocked = true
	assert.True(t, domain.EffectivelyBlocked(client, accounts), "one blocked account blocks the client")

	accounts[1].Blocked = false
	client.Blocked = true
	assert.True(t, domain.EffectivelyBlocked(client, accounts), "client-level flag blocks regardless of accounts")

	client.Blocked = false
	assert.False(t, domain.EffectivelyBlocked(client, nil))
}
