package llm

import "net/http"

// vLLM's OpenAI-compatible server speaks the same chat-completions wire
// protocol, so it reuses the OpenAI client with a different default
// endpoint and no bearer-token requirement beyond whatever the deployment
// configures.
func newVLLM(cfg Config) *openAIProvider {
	base := cfg.BaseURL
	if base == "" {
		base = "http://localhost:8000/v1"
	}
	return &openAIProvider{cfg: cfg, baseURL: base, http: &http.Client{}}
}
