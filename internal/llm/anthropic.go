package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

type anthropicProvider struct {
	cfg     Config
	baseURL string
	http    *http.Client
}

func newAnthropic(cfg Config) *anthropicProvider {
	base := cfg.BaseURL
	if base == "" {
		base = "https://api.anthropic.com/v1"
	}
	return &anthropicProvider{cfg: cfg, baseURL: base, http: &http.Client{}}
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature,omitempty"`
	Stream      bool               `json:"stream,omitempty"`
}

type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

type anthropicStreamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Text string `json:"text"`
	} `json:"delta"`
}

func splitSystem(msgs []Message) (string, []anthropicMessage) {
	var system string
	var out []anthropicMessage
	for _, m := range msgs {
		if m.Role == "system" {
			system = m.Content
			continue
		}
		out = append(out, anthropicMessage{Role: m.Role, Content: m.Content})
	}
	return system, out
}

func (p *anthropicProvider) modelFor(req ChatRequest) string {
	if req.Model != "" {
		return req.Model
	}
	return p.cfg.Model
}

func (p *anthropicProvider) maxTokens(req ChatRequest) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	return 1024
}

func (p *anthropicProvider) Generate(ctx context.Context, prompt string, req ChatRequest) (string, error) {
	req.Messages = append(req.Messages, Message{Role: "user", Content: prompt})
	return p.GenerateChat(ctx, req)
}

func (p *anthropicProvider) doRequest(ctx context.Context, body anthropicRequest) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("llm/anthropic: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.cfg.APIKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")
	return p.http.Do(httpReq)
}

func (p *anthropicProvider) GenerateChat(ctx context.Context, req ChatRequest) (string, error) {
	system, msgs := splitSystem(req.Messages)
	resp, err := p.doRequest(ctx, anthropicRequest{
		Model: p.modelFor(req), System: system, Messages: msgs,
		MaxTokens: p.maxTokens(req), Temperature: req.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("llm/anthropic: request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llm/anthropic: server returned %d", resp.StatusCode)
	}
	var out anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("llm/anthropic: decode response: %w", err)
	}
	if len(out.Content) == 0 {
		return "", fmt.Errorf("llm/anthropic: empty response")
	}
	return out.Content[0].Text, nil
}

func (p *anthropicProvider) SupportsStreaming() bool { return true }

func (p *anthropicProvider) StreamChat(ctx context.Context, req ChatRequest, out chan<- StreamToken) error {
	system, msgs := splitSystem(req.Messages)
	resp, err := p.doRequest(ctx, anthropicRequest{
		Model: p.modelFor(req), System: system, Messages: msgs,
		MaxTokens: p.maxTokens(req), Temperature: req.Temperature, Stream: true,
	})
	if err != nil {
		return fmt.Errorf("llm/anthropic: request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("llm/anthropic: server returned %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev anthropicStreamEvent
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
			continue
		}
		switch ev.Type {
		case "content_block_delta":
			if ev.Delta.Text != "" {
				out <- StreamToken{Content: ev.Delta.Text}
			}
		case "message_stop":
			out <- StreamToken{Done: true}
			return nil
		}
	}
	return scanner.Err()
}
