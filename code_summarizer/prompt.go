package code_summarizer

import (
	"crypto/sha256"
	"encoding/hex"
)

// SummarizationPrompt is the template sent to LLM backends. Its hash is
// part of every cache key, so editing this text invalidates all cached
// summaries produced with it.
const SummarizationPrompt = `Analyze this source file and provide a JSON response with:
- summary: 2-5 sentence description (max 500 chars)
- role: one of entrypoint|config|library|test|docs|other
- public_symbols: list of exported/public function/class names
- import_deps: list of imported modules
- provides: what this file exports/provides
- consumes: what external things this file uses

File path: %s
Content:
%s

Respond with only valid JSON, no markdown fences or other text.`

const (
	// MaxSummaryChars caps the summary text length.
	MaxSummaryChars = 500
	// MaxBytesPerFile is the largest file handed to a backend in full.
	MaxBytesPerFile = 200_000
	// binaryDetectionBytes is how much of a file is checked for NUL bytes.
	binaryDetectionBytes = 8192
)

// PromptHash returns the truncated digest of a prompt template.
func PromptHash(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])[:16]
}
