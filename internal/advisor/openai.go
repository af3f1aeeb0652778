package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"adpilot/internal/config"
	"adpilot/internal/logger"
	"adpilot/internal/types"
)

// ChatClient talks to an OpenAI-compatible /chat/completions endpoint.
// Compatible providers (DeepSeek, Qwen, local gateways) only differ in
// BaseURL and model name.
type ChatClient struct {
	BaseURL      string
	APIKey       string
	Model        string
	Timeout      time.Duration
	MaxRetries   int
	ExtraHeaders map[string]string

	httpClient *http.Client
}

// NewChatClient builds a chat client from advisor configuration.
func NewChatClient(cfg config.AdvisorConfig) *ChatClient {
	return &ChatClient{
		BaseURL:      cfg.BaseURL,
		APIKey:       cfg.APIKey,
		Model:        cfg.Model,
		Timeout:      cfg.Timeout(),
		MaxRetries:   cfg.MaxRetries,
		ExtraHeaders: cfg.ExtraHeaders,
	}
}

// SetHTTPClient sets the HTTP client for testing.
func (c *ChatClient) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

func (c *ChatClient) endpoint() string {
	url := strings.TrimRight(c.BaseURL, "/")
	if url == "" {
		url = "https://api.openai.com/v1"
	}
	// Tolerate configs that already include the full completions path.
	url = strings.TrimSuffix(url, "/chat/completions")
	return url + "/chat/completions"
}

// Call sends a system+user prompt and returns the raw assistant content.
// 429 and 5xx responses are retried with a short backoff.
func (c *ChatClient) Call(ctx context.Context, system, user string) (string, error) {
	messages := make([]map[string]string, 0, 2)
	if system != "" {
		messages = append(messages, map[string]string{"role": "system", "content": system})
	}
	messages = append(messages, map[string]string{"role": "user", "content": user})
	body, _ := json.Marshal(map[string]any{
		"model":       c.Model,
		"messages":    messages,
		"temperature": 0.3,
	})

	httpc := c.httpClient
	if httpc == nil {
		timeout := c.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpc = &http.Client{Timeout: timeout}
	}
	retries := c.MaxRetries
	if retries <= 0 {
		retries = 2
	}
	url := c.endpoint()
	logger.Debugf("[advisor] POST %s model=%s key=%s", url, c.Model, maskKey(c.APIKey))

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return "", err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.APIKey)
		}
		for k, v := range c.ExtraHeaders {
			req.Header.Set(k, v)
		}
		resp, err := httpc.Do(req)
		if err != nil {
			return "", err
		}
		if resp.StatusCode/100 == 2 {
			var r struct {
				Choices []struct {
					Message struct {
						Content string `json:"content"`
					} `json:"message"`
				} `json:"choices"`
			}
			err := json.NewDecoder(resp.Body).Decode(&r)
			resp.Body.Close()
			if err != nil {
				return "", err
			}
			if len(r.Choices) == 0 {
				return "", fmt.Errorf("advisor returned no choices")
			}
			return r.Choices[0].Message.Content, nil
		}
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		lastErr = fmt.Errorf("advisor http %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
		if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode/100 != 5 {
			return "", lastErr
		}
		logger.Warnf("[advisor] attempt %d/%d failed: %v", attempt+1, retries+1, lastErr)
	}
	return "", lastErr
}

func maskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}

// ChatModel implements Model on top of a ChatClient.
type ChatModel struct {
	client *ChatClient
}

func NewChatModel(client *ChatClient) *ChatModel {
	return &ChatModel{client: client}
}

const systemPrompt = `You are a performance marketing analyst. Given an ad entity's recent
metrics, respond with a single JSON object:
{"analysis": string, "strategy": "GROWTH"|"PROFIT"|"MAINTAIN",
 "suggested_target_roas": number (optional), "suggested_budget_multiplier": number (optional),
 "reasoning": string}
GROWTH means scale spend up, PROFIT means retrench toward profitability,
MAINTAIN means hold. No text outside the JSON object.`

// Analyze renders the summary into a compact prompt, calls the model and
// parses the structured advice out of the response.
func (m *ChatModel) Analyze(ctx context.Context, summary types.EntitySummary, currentBudget, targetROAS float64) (Advice, error) {
	raw, err := m.client.Call(ctx, systemPrompt, renderUserPrompt(summary, currentBudget, targetROAS))
	if err != nil {
		return Advice{}, err
	}
	return ParseAdvice(raw)
}

func renderUserPrompt(s types.EntitySummary, currentBudget, targetROAS float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s (account %s)\n", s.EntityType, s.EntityID, s.AccountID)
	fmt.Fprintf(&b, "window: 7d spend=$%.2f purchase_value=$%.2f roas=%.2f ctr=%.4f cpc=%.2f trend=%s\n",
		s.Spend, s.PurchaseValue, s.ROAS, s.CTR, s.CPC, s.Trend)
	fmt.Fprintf(&b, "current daily budget: $%.2f, target roas: %.2f\n", currentBudget, targetROAS)
	if len(s.Last7Days) > 0 {
		b.WriteString("daily: date spend value roas\n")
		for _, d := range s.Last7Days {
			fmt.Fprintf(&b, "%s %.2f %.2f %.2f\n", d.Date, d.Spend, d.PurchaseValue, d.ROAS)
		}
	}
	return b.String()
}
