package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

type ollamaProvider struct {
	cfg     Config
	baseURL string
	http    *http.Client
}

func newOllama(cfg Config) *ollamaProvider {
	base := cfg.BaseURL
	if base == "" {
		base = "http://localhost:11434"
	}
	return &ollamaProvider{cfg: cfg, baseURL: base, http: &http.Client{}}
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  ollamaOptions   `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaChatChunk struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

func (p *ollamaProvider) modelFor(req ChatRequest) string {
	if req.Model != "" {
		return req.Model
	}
	return p.cfg.Model
}

func toOllamaMessages(msgs []Message) []ollamaMessage {
	out := make([]ollamaMessage, len(msgs))
	for i, m := range msgs {
		out[i] = ollamaMessage{Role: m.Role, Content: m.Content}
	}
	return out
}

func (p *ollamaProvider) Generate(ctx context.Context, prompt string, req ChatRequest) (string, error) {
	req.Messages = append(req.Messages, Message{Role: "user", Content: prompt})
	return p.GenerateChat(ctx, req)
}

func (p *ollamaProvider) doRequest(ctx context.Context, req ChatRequest, stream bool) (*http.Response, error) {
	body := ollamaChatRequest{
		Model:    p.modelFor(req),
		Messages: toOllamaMessages(req.Messages),
		Stream:   stream,
		Options:  ollamaOptions{Temperature: req.Temperature, NumPredict: req.MaxTokens},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("llm/ollama: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	return p.http.Do(httpReq)
}

func (p *ollamaProvider) GenerateChat(ctx context.Context, req ChatRequest) (string, error) {
	resp, err := p.doRequest(ctx, req, false)
	if err != nil {
		return "", fmt.Errorf("llm/ollama: request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llm/ollama: server returned %d", resp.StatusCode)
	}
	var out ollamaChatChunk
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("llm/ollama: decode response: %w", err)
	}
	return out.Message.Content, nil
}

func (p *ollamaProvider) SupportsStreaming() bool { return true }

func (p *ollamaProvider) StreamChat(ctx context.Context, req ChatRequest, out chan<- StreamToken) error {
	resp, err := p.doRequest(ctx, req, true)
	if err != nil {
		return fmt.Errorf("llm/ollama: request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("llm/ollama: server returned %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		var chunk ollamaChatChunk
		if err := json.Unmarshal(scanner.Bytes(), &chunk); err != nil {
			continue
		}
		if chunk.Message.Content != "" {
			out <- StreamToken{Content: chunk.Message.Content}
		}
		if chunk.Done {
			out <- StreamToken{Done: true}
			return nil
		}
	}
	return scanner.Err()
}
