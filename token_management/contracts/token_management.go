package contracts

// ITokenManagement tracks the approximate token footprint of a generated
// document against a configured budget.
type ITokenManagement interface {
	EstimateTokens(text string) int
	UsedTokens(documentTokens int)
	SavedTokens(cachedTokens int)
	GetCurrentTokenUsage() (used int, saved int)
	OverBudget(budget int) bool
	DisplayTokens(backendID string, budget int)
	ClearToken()
}
