package utils_test

import (
	"testing"

	"github.com/accountly/bank_ledger_app/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSecureDigits(t *testing.T) {
	s, err := utils.GenerateSecureDigits(12)
	require.NoError(t, err)
	require.Len(t, s, 12)
	for _, r := range s {
		assert.True(t, r >= '0' && r <= '9', "expected only digits, got %q", s)
	}
}

func TestGenerateSecureDigitsRejectsNonPositive(t *testing.T) {
	_, err := utils.GenerateSecureDigits(0)
	assert.Error(t, err)
	_, err = utils.GenerateSecureDigits(-1)
	assert.Error(t, err)
}
