// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package subgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// LLM is the chat-completion client every subgraph node prompts through.
// Grounded on internal/ai.AskQuestion's raw OpenAI chat-completions call,
// generalized from a fixed yes/no prompt to an arbitrary system+user
// message pair with a JSON-mode option, since most subgraph nodes need a
// structured verdict rather than a YES/NO answer.
type LLM struct {
	apiKey string
	model  string
	client *http.Client
}

// Usage mirrors internal/ai.Usage's token accounting fields.
type Usage struct {
	Model        string
	InputTokens  int
	OutputTokens int
}

// NewLLM constructs an LLM reading its API key from OPENAI_API_KEY unless
// apiKey is non-empty. model defaults to gpt-4o-mini.
func NewLLM(apiKey, model string) *LLM {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &LLM{apiKey: apiKey, model: model, client: &http.Client{Timeout: 60 * time.Second}}
}

// CompleteOptions configures a single chat-completion call.
type CompleteOptions struct {
	SystemPrompt string
	MaxTokens    int
	Temperature  float64
	JSONMode     bool
}

// Complete sends one chat-completion request and returns the model's text
// reply plus usage accounting.
func (l *LLM) Complete(ctx context.Context, prompt string, opts CompleteOptions) (string, *Usage, error) {
	if l.apiKey == "" {
		return "", nil, fmt.Errorf("subgraph: OPENAI_API_KEY not set")
	}

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	temperature := opts.Temperature
	if temperature == 0 {
		temperature = 0.2
	}
	systemPrompt := opts.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = "You are a helpful assistant."
	}

	payload := map[string]any{
		"model": l.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": prompt},
		},
		"max_tokens":  maxTokens,
		"temperature": temperature,
	}
	if opts.JSONMode {
		payload["response_format"] = map[string]string{"type": "json_object"}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.openai.com/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+l.apiKey)

	resp, err := l.client.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("subgraph: llm request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return "", nil, fmt.Errorf("subgraph: llm error %d: %s", resp.StatusCode, string(raw))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
		Model string `json:"model"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", nil, fmt.Errorf("subgraph: decode llm response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", nil, fmt.Errorf("subgraph: no choices in llm response")
	}

	usage := &Usage{Model: result.Model, InputTokens: result.Usage.PromptTokens, OutputTokens: result.Usage.CompletionTokens}
	return strings.TrimSpace(result.Choices[0].Message.Content), usage, nil
}

// CompleteJSON calls Complete in JSON mode and unmarshals the reply into
// out. On any parse failure it returns the error untouched — callers that
// need a safe fallback (per spec §7's "non-retryable LLM error" rule)
// handle that at the node level, not here.
func (l *LLM) CompleteJSON(ctx context.Context, prompt string, opts CompleteOptions, out any) error {
	opts.JSONMode = true
	text, _, err := l.Complete(ctx, prompt, opts)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("subgraph: parse llm json reply: %w", err)
	}
	return nil
}
