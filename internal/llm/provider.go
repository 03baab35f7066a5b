// Package llm implements the provider-agnostic chat/generation surface,
// grounded on the original source's core/generator/llmprovider.py. Unlike
// that source — which only wires OpenAILLM concretely and leaves the other
// three as placeholders — every variant here hits its real API.
package llm

import "context"

// ProviderKind names one of the supported backends.
type ProviderKind string

const (
	OpenAI    ProviderKind = "openai"
	Anthropic ProviderKind = "anthropic"
	Ollama    ProviderKind = "ollama"
	VLLM      ProviderKind = "vllm"
)

// Message is one turn in a chat exchange.
type Message struct {
	Role    string // "system", "user", "assistant"
	Content string
}

// ChatRequest parameterizes a generation call.
type ChatRequest struct {
	Messages    []Message
	Model       string
	Temperature float64
	MaxTokens   int
}

// StreamToken is one piece of a streamed response.
type StreamToken struct {
	Content string
	Done    bool
}

// Provider is the common capability surface every backend satisfies.
// Streaming is signaled by SupportsStreaming rather than a failed type
// assertion or a thrown NotImplementedError (per DESIGN NOTES §9's
// explicit redesign of the source's BaseLLM.stream_chat default).
type Provider interface {
	Generate(ctx context.Context, prompt string, req ChatRequest) (string, error)
	GenerateChat(ctx context.Context, req ChatRequest) (string, error)
	SupportsStreaming() bool
	StreamChat(ctx context.Context, req ChatRequest, out chan<- StreamToken) error
}

// Config carries the credentials/endpoint a provider needs.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// New constructs the Provider for kind.
func New(kind ProviderKind, cfg Config) (Provider, error) {
	switch kind {
	case OpenAI:
		return newOpenAI(cfg), nil
	case Anthropic:
		return newAnthropic(cfg), nil
	case Ollama:
		return newOllama(cfg), nil
	case VLLM:
		return newVLLM(cfg), nil
	default:
		return nil, &UnknownProviderError{Kind: kind}
	}
}

// UnknownProviderError reports an unrecognized provider kind string.
type UnknownProviderError struct{ Kind ProviderKind }

func (e *UnknownProviderError) Error() string {
	return "llm: unknown provider " + string(e.Kind)
}
