// internal/llm/interface.go
package llm

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var ErrUnknownProvider = errors.New("unknown AI provider")

// ErrEmptyResponse is returned when the provider answered without any text.
var ErrEmptyResponse = errors.New("no response generated from AI")

// InlineData is a binary attachment sent alongside the prompt.
type InlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"` // base64
}

// Part is one element of a request: text or inline data.
type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inlineData,omitempty"`
}

// TextPart builds a text part.
func TextPart(text string) Part {
	return Part{Text: text}
}

// GenerateRequest is a single-turn generation request.
type GenerateRequest struct {
	Model            string
	SystemPrompt     string
	Parts            []Part
	Temperature      float32
	MaxTokens        int
	ThinkingBudget   int
	ResponseMIMEType string  // e.g. application/json
	ResponseSchema   *Schema // constrains the output when set
}

// GenerateResponse carries the concatenated candidate text.
type GenerateResponse struct {
	Text         string `json:"text"`
	FinishReason string `json:"finish_reason,omitempty"`
	TokensUsed   int    `json:"tokens_used,omitempty"`
	PromptTokens int    `json:"prompt_tokens,omitempty"`
	OutputTokens int    `json:"output_tokens,omitempty"`
	ModelName    string `json:"model_name,omitempty"`
	ProviderName string `json:"provider_name,omitempty"`
}

// Provider is implemented by every generative-AI backend.
type Provider interface {
	// Initialize configures the provider; it fails when the api_key entry is empty.
	Initialize(config map[string]string) error

	GetName() string

	GetSupportedModels() []string

	GenerateContent(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)

	// FetchAvailableModels refreshes the model list from the provider.
	FetchAvailableModels(ctx context.Context) error

	SetCustomModels(models []string)
}

// ProviderFactory creates an uninitialized provider.
type ProviderFactory func() Provider

// Registry maps provider names to factories.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]ProviderFactory
}

// DefaultRegistry is populated by provider packages in init.
var DefaultRegistry = NewRegistry()

func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]ProviderFactory)}
}

// Register adds or replaces a provider factory.
func (r *Registry) Register(name string, factory ProviderFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = factory
}

// GetProvider creates and initializes the named provider.
func (r *Registry) GetProvider(name string, config map[string]string) (Provider, error) {
	r.mu.RLock()
	factory, exists := r.providers[name]
	r.mu.RUnlock()
	if !exists {
		return nil, ErrUnknownProvider
	}

	provider := factory()
	if err := provider.Initialize(config); err != nil {
		return nil, err
	}
	return provider, nil
}

// Names returns the registered provider names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func Register(name string, factory ProviderFactory) {
	DefaultRegistry.Register(name, factory)
}

func GetProvider(name string, config map[string]string) (Provider, error) {
	return DefaultRegistry.GetProvider(name, config)
}

func ListProviders() []string {
	return DefaultRegistry.Names()
}
