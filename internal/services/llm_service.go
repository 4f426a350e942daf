// internal/services/llm_service.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/Corphon/DLLArchitect/internal/config"
	"github.com/Corphon/DLLArchitect/internal/llm"
	"github.com/Corphon/DLLArchitect/internal/utils"
)

// ErrLLMNotReady is returned when no provider could be configured.
var ErrLLMNotReady = errors.New("llm service not ready")

// LLMService holds the configured provider. The credential is checked once at
// construction; without one the service stays not-ready and never calls out.
type LLMService struct {
	providerMutex  sync.RWMutex
	provider       llm.Provider
	providerName   string
	isReady        bool
	readyState     string
	model          string
	thinkingBudget int
	temperature    float32
}

// NewLLMService builds the provider named by cfg. Configuration problems
// leave the service in a not-ready state instead of failing.
func NewLLMService(cfg config.LLMConfig) *LLMService {
	service := createBaseLLMService(cfg)

	if strings.TrimSpace(cfg.APIKey) == "" {
		service.readyState = "API key not configured"
		return service
	}

	provider, err := llm.GetProvider(cfg.Provider, providerConfig(cfg))
	if err != nil {
		service.readyState = fmt.Sprintf("Initialization failed: %v", err)
		utils.GetLogger().Warn("llm provider initialization failed", map[string]interface{}{
			"provider": cfg.Provider,
			"error":    err,
		})
		return service
	}

	service.provider = provider
	service.isReady = true
	service.readyState = "Ready"
	return service
}

// NewLLMServiceWithProvider wraps an already initialized provider.
func NewLLMServiceWithProvider(provider llm.Provider, cfg config.LLMConfig) *LLMService {
	service := createBaseLLMService(cfg)
	if provider == nil {
		service.readyState = "API key not configured"
		return service
	}
	service.provider = provider
	service.isReady = true
	service.readyState = "Ready"
	return service
}

func createBaseLLMService(cfg config.LLMConfig) *LLMService {
	return &LLMService{
		providerName:   cfg.Provider,
		readyState:     "Uninitialized",
		model:          cfg.Model,
		thinkingBudget: cfg.ThinkingBudget,
		temperature:    cfg.Temperature,
	}
}

func providerConfig(cfg config.LLMConfig) map[string]string {
	m := map[string]string{
		"api_key":       cfg.APIKey,
		"default_model": cfg.Model,
		"base_url":      cfg.BaseURL,
	}
	if cfg.Timeout > 0 {
		m["timeout"] = cfg.Timeout.String()
	}
	return m
}

// IsReady reports whether a provider is configured.
func (s *LLMService) IsReady() bool {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()
	return s.provider != nil && s.isReady
}

// GetProviderStatus returns readiness and a readable description.
func (s *LLMService) GetProviderStatus() (bool, string) {
	if s == nil {
		return false, "LLM service not initialized"
	}
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()
	return s.provider != nil && s.isReady, s.readyState
}

func (s *LLMService) GetProviderName() string {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()
	return s.providerName
}

func (s *LLMService) GetDefaultModel() string {
	return s.model
}

// ListModels refreshes and returns the models offered by the provider.
func (s *LLMService) ListModels(ctx context.Context) ([]string, error) {
	s.providerMutex.RLock()
	provider := s.provider
	s.providerMutex.RUnlock()
	if provider == nil {
		return nil, ErrLLMNotReady
	}
	if err := provider.FetchAvailableModels(ctx); err != nil {
		return provider.GetSupportedModels(), err
	}
	return provider.GetSupportedModels(), nil
}

// CreateStructuredCompletion sends parts with a response schema and decodes
// the JSON answer into out. It makes exactly one provider call.
func (s *LLMService) CreateStructuredCompletion(ctx context.Context, parts []llm.Part, schema *llm.Schema, out interface{}) (*llm.GenerateResponse, error) {
	s.providerMutex.RLock()
	if !s.isReady || s.provider == nil {
		state := s.readyState
		s.providerMutex.RUnlock()
		return nil, fmt.Errorf("%w: %s", ErrLLMNotReady, state)
	}
	provider := s.provider
	s.providerMutex.RUnlock()

	req := llm.GenerateRequest{
		Model:            s.model,
		Parts:            parts,
		Temperature:      s.temperature,
		ThinkingBudget:   s.thinkingBudget,
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	}

	resp, err := provider.GenerateContent(ctx, req)
	if err != nil {
		return nil, err
	}

	text := SanitizeLLMJSONResponse(resp.Text)
	if text == "" {
		return resp, llm.ErrEmptyResponse
	}

	if err := json.Unmarshal([]byte(text), out); err != nil {
		return resp, fmt.Errorf("failed to parse AI response into structured data: %w", err)
	}
	return resp, nil
}

// SanitizeLLMJSONResponse strips surrounding whitespace and Markdown code
// fences so the body can be parsed as JSON.
func SanitizeLLMJSONResponse(raw string) string {
	cleaned := strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff"))
	if cleaned == "" {
		return cleaned
	}

	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSpace(cleaned)
		if strings.HasPrefix(strings.ToLower(cleaned), "json") {
			cleaned = strings.TrimSpace(cleaned[4:])
		}
		if idx := strings.LastIndex(cleaned, "```"); idx != -1 {
			cleaned = cleaned[:idx]
		}
	}

	cleaned = strings.TrimSpace(cleaned)
	cleaned = strings.Trim(cleaned, "`")
	return strings.TrimSpace(cleaned)
}
