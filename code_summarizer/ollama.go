package code_summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/codectx/codectx/code_summarizer/contracts"
	"github.com/codectx/codectx/code_summarizer/models"
)

const defaultBaseURL = "http://localhost:11434/api"

// OllamaConfig configures the local-model summarization backend.
type OllamaConfig struct {
	BaseURL     string
	Model       string
	Temperature *float32
	Timeout     time.Duration
}

// OllamaSummarizer asks a local Ollama model for file summaries. Files
// the heuristic backend refuses to summarize (binary, private key, too
// large) are never sent to the model, and any request or parse failure
// falls back to the heuristic result so a generate run always completes.
type OllamaSummarizer struct {
	config    OllamaConfig
	client    *http.Client
	heuristic *HeuristicSummarizer
}

type ollamaChatRequest struct {
	Model       string          `json:"model"`
	Messages    []ollamaMessage `json:"messages"`
	Stream      bool            `json:"stream"`
	Temperature *float32        `json:"temperature,omitempty"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

type ollamaErrorResponse struct {
	Error string `json:"error"`
}

// NewOllamaSummarizer initializes the backend with config defaults.
func NewOllamaSummarizer(config OllamaConfig) *OllamaSummarizer {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = 2 * time.Minute
	}
	return &OllamaSummarizer{
		config:    config,
		client:    &http.Client{Timeout: config.Timeout},
		heuristic: NewHeuristicSummarizer(),
	}
}

// BackendID includes the model name: switching models must produce
// different cache keys.
func (o *OllamaSummarizer) BackendID() string {
	return "ollama:" + o.config.Model
}

func (o *OllamaSummarizer) PromptHash() string { return PromptHash(SummarizationPrompt) }

func (o *OllamaSummarizer) Summarize(ctx context.Context, relPath string, content []byte) (models.Summary, error) {
	fallback, err := o.heuristic.Summarize(ctx, relPath, content)
	if err != nil {
		return fallback, err
	}
	if fallback.Excluded {
		return fallback, nil
	}

	text, _ := decodeText(content)
	redacted, _ := redactTierBSecrets(text)

	summary, err := o.requestSummary(ctx, relPath, redacted)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return fallback, err
		}
		// Model unavailable or returned garbage; the heuristic result
		// keeps the run moving.
		return fallback, nil
	}

	summary.RedactionCount = fallback.RedactionCount
	summary.DecodeLossy = fallback.DecodeLossy
	summary.Entrypoints = fallback.Entrypoints
	if summary.Role == "" {
		summary.Role = fallback.Role
	}
	if summary.Language == "" {
		summary.Language = fallback.Language
	}
	summary.Summary = clampSummary(summary.Summary)
	return summary, nil
}

func (o *OllamaSummarizer) requestSummary(ctx context.Context, relPath, text string) (models.Summary, error) {
	reqBody := ollamaChatRequest{
		Model: o.config.Model,
		Messages: []ollamaMessage{
			{Role: "user", Content: fmt.Sprintf(SummarizationPrompt, relPath, text)},
		},
		Stream:      false,
		Temperature: o.config.Temperature,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return models.Summary{}, fmt.Errorf("error marshalling request body: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/chat", o.config.BaseURL), bytes.NewBuffer(jsonData))
	if err != nil {
		return models.Summary{}, fmt.Errorf("error creating request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return models.Summary{}, fmt.Errorf("error sending request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		var apiError ollamaErrorResponse
		if json.Unmarshal(body, &apiError) == nil && apiError.Error != "" {
			return models.Summary{}, fmt.Errorf("API request failed with status code '%d' - %s", resp.StatusCode, apiError.Error)
		}
		return models.Summary{}, fmt.Errorf("API request failed with status code '%d'", resp.StatusCode)
	}

	var response ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return models.Summary{}, fmt.Errorf("error unmarshalling response: %v", err)
	}

	return parseSummaryJSON(response.Message.Content)
}

// parseSummaryJSON decodes the model's reply, tolerating markdown fences
// the prompt asked it to omit.
func parseSummaryJSON(content string) (models.Summary, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var summary models.Summary
	if err := json.Unmarshal([]byte(content), &summary); err != nil {
		return models.Summary{}, fmt.Errorf("error parsing summary response: %v", err)
	}
	if summary.Summary == "" {
		return models.Summary{}, fmt.Errorf("summary response missing summary text")
	}
	return summary, nil
}

var _ contracts.ISummarizer = (*OllamaSummarizer)(nil)
