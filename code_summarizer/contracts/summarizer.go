package contracts

import (
	"context"

	"github.com/codectx/codectx/code_summarizer/models"
)

// ISummarizer produces a per-file summary. PromptHash and BackendID feed
// the cache key, so any change to the prompt template or the backend
// forces re-summarization instead of serving a stale entry.
type ISummarizer interface {
	Summarize(ctx context.Context, relPath string, content []byte) (models.Summary, error)
	PromptHash() string
	BackendID() string
}
