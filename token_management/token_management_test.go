package token_management

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateTokens(t *testing.T) {
	tm := NewTokenManager()

	assert.Equal(t, 0, tm.EstimateTokens(""))
	assert.Equal(t, 1, tm.EstimateTokens("abcd"))
	assert.Equal(t, 2, tm.EstimateTokens("abcde"))
	assert.Equal(t, 100, tm.EstimateTokens(strings.Repeat("x", 400)))
}

func TestTokenAccounting(t *testing.T) {
	tm := NewTokenManager()

	tm.UsedTokens(500)
	tm.UsedTokens(250)
	tm.SavedTokens(100)

	used, saved := tm.GetCurrentTokenUsage()
	assert.Equal(t, 750, used)
	assert.Equal(t, 100, saved)

	tm.ClearToken()
	used, saved = tm.GetCurrentTokenUsage()
	assert.Equal(t, 0, used)
	assert.Equal(t, 0, saved)
}

func TestOverBudget(t *testing.T) {
	tm := NewTokenManager()
	tm.UsedTokens(8001)

	assert.True(t, tm.OverBudget(8000))
	assert.False(t, tm.OverBudget(9000))

	// Zero disables the budget check.
	assert.False(t, tm.OverBudget(0))
}
