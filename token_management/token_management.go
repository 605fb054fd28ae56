package token_management

import (
	"fmt"

	"github.com/codectx/codectx/constants/lipgloss"
	"github.com/codectx/codectx/token_management/contracts"
)

// charsPerToken is the rough character-to-token ratio used for budget
// accounting. The estimate only needs to be stable, not exact.
const charsPerToken = 4

// TokenManager implementation
type tokenManager struct {
	usedToken  int
	savedToken int
}

// NewTokenManager creates a new token manager
func NewTokenManager() contracts.ITokenManagement {
	return &tokenManager{}
}

// EstimateTokens approximates the token count of text, rounding up.
func (tm *tokenManager) EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	return (len(text) + charsPerToken - 1) / charsPerToken
}

// UsedTokens accumulates the document token count for the run.
func (tm *tokenManager) UsedTokens(documentTokens int) {
	tm.usedToken += documentTokens
}

// SavedTokens accumulates tokens that cache hits avoided regenerating.
func (tm *tokenManager) SavedTokens(cachedTokens int) {
	tm.savedToken += cachedTokens
}

func (tm *tokenManager) GetCurrentTokenUsage() (used int, saved int) {
	return tm.usedToken, tm.savedToken
}

// OverBudget reports whether the accumulated usage exceeds budget.
// A zero or negative budget disables the check.
func (tm *tokenManager) OverBudget(budget int) bool {
	return budget > 0 && tm.usedToken > budget
}

func (tm *tokenManager) DisplayTokens(backendID string, budget int) {
	tokenInfo := fmt.Sprintf("Tokens: %d used - %d saved by cache - Backend: %s", tm.usedToken, tm.savedToken, backendID)
	if tm.OverBudget(budget) {
		tokenInfo += lipgloss.Yellow(fmt.Sprintf(" (over budget of %d)", budget))
	}

	tokenBox := lipgloss.BoxStyle.Render(tokenInfo)
	fmt.Println(tokenBox)
}

func (tm *tokenManager) ClearToken() {
	tm.usedToken = 0
	tm.savedToken = 0
}
