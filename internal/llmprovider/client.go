// Package llmprovider is the concrete adapter behind the core's single
// external LLM-provider contract: generate(prompt, schema) -> parsed
// object | error. The core never issues a free-form request; every call
// here names a JSON schema the response must satisfy before the caller
// gets a parsed value back.
package llmprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/deskshell/reasoncore/internal/errkind"
)

// Client is an OpenAI-chat-completions-compatible LLM client, tiered by
// environment variable prefix: {PREFIX}_{KEY} falls back to OPENAI_{KEY}.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	label      string
	httpClient *http.Client
}

func normalizeBaseURL(raw string) string {
	s := strings.TrimRight(raw, "/")
	return strings.TrimSuffix(s, "/chat/completions")
}

// New creates a Client from the shared OPENAI_* environment variables.
func New() *Client { return NewTier("") }

// NewTier creates a Client for a named tier (e.g. "CLASSIFY", "PLAN"). Each
// config key first tries {prefix}_{KEY}, falling back to the shared
// OPENAI_{KEY} when unset. An empty prefix is equivalent to New().
func NewTier(prefix string) *Client {
	get := func(suffix, fallback string) string {
		if prefix != "" {
			if v := os.Getenv(prefix + "_" + suffix); v != "" {
				return v
			}
		}
		return os.Getenv(fallback)
	}
	label := prefix
	if label == "" {
		label = "LLM"
	}
	return &Client{
		baseURL:    normalizeBaseURL(get("BASE_URL", "OPENAI_BASE_URL")),
		apiKey:     get("API_KEY", "OPENAI_API_KEY"),
		model:      get("MODEL", "OPENAI_MODEL"),
		label:      label,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []chatMsg `json:"messages"`
}

type chatMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// chat sends a system + user prompt and returns the assistant's raw text.
func (c *Client) chat(ctx context.Context, system, user string) (string, error) {
	log.Printf("[%s] system=%q user=%q", c.label, system, user)

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMsg{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		return "", errkind.New("llmprovider", errkind.ProviderUnavailable, fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", errkind.New("llmprovider", errkind.ProviderUnavailable, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errkind.New("llmprovider", errkind.ProviderUnavailable, fmt.Errorf("http request: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errkind.New("llmprovider", errkind.ProviderUnavailable, fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return "", errkind.New("llmprovider", errkind.ProviderUnavailable, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody)))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", errkind.New("llmprovider", errkind.ProviderUnavailable, fmt.Errorf("unmarshal response: %w", err))
	}
	if parsed.Error != nil {
		return "", errkind.New("llmprovider", errkind.ProviderUnavailable, fmt.Errorf("api error: %s", parsed.Error.Message))
	}
	if len(parsed.Choices) == 0 {
		return "", errkind.New("llmprovider", errkind.ProviderUnavailable, fmt.Errorf("no choices in response"))
	}
	return parsed.Choices[0].Message.Content, nil
}

// Generate calls the provider and unmarshals its response into out, first
// validating it against schema. schema may be nil to skip validation; the
// response must still parse as JSON either way (a bare-word reply is read
// with GenerateText instead).
func (c *Client) Generate(ctx context.Context, system, user string, schema *jsonschema.Schema, out any) error {
	raw, err := c.chat(ctx, system, user)
	if err != nil {
		return err
	}
	cleaned := StripFences(raw)

	var instance any
	if err := json.Unmarshal([]byte(cleaned), &instance); err != nil {
		return errkind.New("llmprovider", errkind.SchemaInvalid, fmt.Errorf("response is not valid JSON: %w", err))
	}

	if schema != nil {
		resolved, err := schema.Resolve(nil)
		if err != nil {
			return errkind.New("llmprovider", errkind.SchemaInvalid, fmt.Errorf("resolve schema: %w", err))
		}
		if err := resolved.Validate(instance); err != nil {
			return errkind.New("llmprovider", errkind.SchemaInvalid, fmt.Errorf("response failed schema validation: %w", err))
		}
	}

	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return errkind.New("llmprovider", errkind.SchemaInvalid, fmt.Errorf("unmarshal into target: %w", err))
	}
	return nil
}

// GenerateText calls the provider and returns its raw text response with
// <think> blocks and markdown fences stripped, for callers (e.g. the
// QueryClassifier's few-shot fallback) that expect a bare enum word rather
// than a JSON document.
func (c *Client) GenerateText(ctx context.Context, system, user string) (string, error) {
	raw, err := c.chat(ctx, system, user)
	if err != nil {
		return "", err
	}
	return StripFences(raw), nil
}

// StripThinkBlocks removes all <think>...</think> blocks emitted by
// reasoning models before or between JSON objects.
func StripThinkBlocks(s string) string {
	for {
		start := strings.Index(s, "<think>")
		if start == -1 {
			break
		}
		end := strings.Index(s[start:], "</think>")
		if end == -1 {
			s = s[:start]
			break
		}
		s = s[:start] + s[start+end+len("</think>"):]
	}
	return strings.TrimSpace(s)
}

// StripFences removes markdown code fences (```json ... ```) and any
// <think>...</think> reasoning blocks from LLM output.
func StripFences(s string) string {
	s = StripThinkBlocks(strings.TrimSpace(s))
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
		if i := strings.LastIndex(s, "```"); i != -1 {
			s = s[:i]
		}
	}
	return strings.TrimSpace(s)
}
