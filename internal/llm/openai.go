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

type openAIProvider struct {
	cfg     Config
	baseURL string
	http    *http.Client
}

func newOpenAI(cfg Config) *openAIProvider {
	base := cfg.BaseURL
	if base == "" {
		base = "https://api.openai.com/v1"
	}
	return &openAIProvider{cfg: cfg, baseURL: base, http: &http.Client{}}
}

type openAIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatRequest struct {
	Model       string               `json:"model"`
	Messages    []openAIChatMessage  `json:"messages"`
	Temperature float64              `json:"temperature,omitempty"`
	MaxTokens   int                  `json:"max_tokens,omitempty"`
	Stream      bool                 `json:"stream,omitempty"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type openAIStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

func (p *openAIProvider) modelFor(req ChatRequest) string {
	if req.Model != "" {
		return req.Model
	}
	return p.cfg.Model
}

func toOpenAIMessages(msgs []Message) []openAIChatMessage {
	out := make([]openAIChatMessage, len(msgs))
	for i, m := range msgs {
		out[i] = openAIChatMessage{Role: m.Role, Content: m.Content}
	}
	return out
}

func (p *openAIProvider) Generate(ctx context.Context, prompt string, req ChatRequest) (string, error) {
	req.Messages = append(req.Messages, Message{Role: "user", Content: prompt})
	return p.GenerateChat(ctx, req)
}

func (p *openAIProvider) GenerateChat(ctx context.Context, req ChatRequest) (string, error) {
	body := openAIChatRequest{
		Model:       p.modelFor(req),
		Messages:    toOpenAIMessages(req.Messages),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("llm/openai: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("llm/openai: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llm/openai: server returned %d", resp.StatusCode)
	}

	var out openAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("llm/openai: decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("llm/openai: empty response")
	}
	return out.Choices[0].Message.Content, nil
}

func (p *openAIProvider) SupportsStreaming() bool { return true }

func (p *openAIProvider) StreamChat(ctx context.Context, req ChatRequest, out chan<- StreamToken) error {
	body := openAIChatRequest{
		Model:       p.modelFor(req),
		Messages:    toOpenAIMessages(req.Messages),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      true,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("llm/openai: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("llm/openai: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("llm/openai: server returned %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			out <- StreamToken{Done: true}
			return nil
		}
		var chunk openAIStreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		if content := chunk.Choices[0].Delta.Content; content != "" {
			out <- StreamToken{Content: content}
		}
	}
	return scanner.Err()
}
