package categorize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"notemesh/internal/core/ports"
	"notemesh/pkg/circuitbreaker"

	"go.uber.org/zap"
)

const defaultPrompt = "Categorize the following note into a single short category name (one or two words, like Work, Shopping, Travel, Ideas). Reply with the category name only.\n\n%s"

// maxContentChars bounds how much note text is sent per request.
const maxContentChars = 4000

// OpenAICategorizer asks an OpenAI-compatible chat completions endpoint for
// a category name. The endpoint is treated as an unreliable remote: calls
// run behind a circuit breaker and every failure surfaces as an error the
// caller is expected to swallow.
type OpenAICategorizer struct {
	baseURL string
	apiKey  string
	model   string

	httpClient *http.Client
	breaker    *circuitbreaker.CircuitBreaker
	logger     *zap.SugaredLogger
}

func NewOpenAICategorizer(baseURL, apiKey, model string, timeout time.Duration, logger *zap.SugaredLogger) ports.Categorizer {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &OpenAICategorizer{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    circuitbreaker.New(circuitbreaker.DefaultConfig()),
		logger:     logger,
	}
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *OpenAICategorizer) Categorize(ctx context.Context, content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", nil
	}
	if len(content) > maxContentChars {
		content = content[:maxContentChars]
	}

	name, err := circuitbreaker.ExecuteWithResult(ctx, c.breaker, func() (string, error) {
		return c.complete(ctx, content)
	})
	if err != nil {
		return "", err
	}
	return sanitizeCategory(name), nil
}

func (c *OpenAICategorizer) complete(ctx context.Context, content string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "user", Content: fmt.Sprintf(defaultPrompt, content)},
		},
		MaxTokens: 10,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("completion request returned %d: %s", resp.StatusCode, snippet)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode completion response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("completion response has no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

// sanitizeCategory trims quotes, punctuation, and whitespace the model tends
// to wrap the answer in.
func sanitizeCategory(name string) string {
	name = strings.TrimSpace(name)
	name = strings.Trim(name, "\"'.`")
	if len(name) > 50 {
		name = name[:50]
	}
	return strings.TrimSpace(name)
}
