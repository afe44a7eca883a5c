// llama.go - Meta Llama API provider

package ai

import (
	"context"
	"strings"

	"github.com/bosocmputer/trade_compliance_ocr/configs"
	"github.com/bosocmputer/trade_compliance_ocr/internal/common"
)

const (
	defaultLlamaBaseURL = "https://api.llama.com/v1"
	defaultLlamaModel   = "Llama-4-Maverick-17B-128E-Instruct-FP8"
)

// LlamaProvider implements Provider for the Llama API.
// It has no structured output mode, so the JSON is extracted from free text
// and the instructions are trimmed for the smaller context window.
type LlamaProvider struct {
	identity  ProviderIdentity
	transport *chatTransport
	prompt    PromptTemplate
}

// NewLlamaProvider creates a new Llama provider
func NewLlamaProvider(settings ProviderSettings) (Provider, error) {
	if !settings.Configured() {
		return nil, &ConfigurationError{Provider: configs.ProviderLlama, Message: "LLAMA_API_KEY is not set"}
	}

	baseURL := settings.BaseURL
	if baseURL == "" {
		baseURL = defaultLlamaBaseURL
	}
	model := settings.Model
	if model == "" {
		model = defaultLlamaModel
	}

	transport := newChatTransport(configs.ProviderLlama, baseURL, "/chat/completions", settings.APIKey)
	return &LlamaProvider{
		identity:  ProviderIdentity{Name: configs.ProviderLlama, Model: model, Endpoint: transport.endpoint},
		transport: transport,
		prompt: DefaultPromptTemplate().Merge(PromptTemplate{
			ForensicsInstructions: trimmedForensicsInstructions,
			ChecklistInstructions: trimmedChecklistInstructions,
		}),
	}, nil
}

// Identity implements Provider.
func (l *LlamaProvider) Identity() ProviderIdentity {
	return l.identity
}

type llamaRequest struct {
	Model               string        `json:"model"`
	Messages            []chatMessage `json:"messages"`
	Temperature         float64       `json:"temperature"`
	MaxCompletionTokens int           `json:"max_completion_tokens"`
}

type llamaResponse struct {
	CompletionMessage *struct {
		Role    string `json:"role"`
		Content struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		StopReason string `json:"stop_reason"`
	} `json:"completion_message"`
}

func (r *llamaResponse) content(provider string) (string, error) {
	if r.CompletionMessage == nil {
		return "", &ParseError{Provider: provider, Reason: "missing completion_message"}
	}
	text := r.CompletionMessage.Content.Text
	if strings.TrimSpace(text) == "" {
		return "", &ParseError{Provider: provider, Reason: "empty response"}
	}
	return text, nil
}

// Analyze implements Provider.
func (l *LlamaProvider) Analyze(ctx context.Context, document, mimeType string, opts common.AnalysisOptions) (*common.AnalysisResult, error) {
	request := llamaRequest{
		Model:               l.identity.Model,
		Messages:            openAIMessages(l.prompt, document, mimeType, opts),
		Temperature:         0.1,
		MaxCompletionTokens: 4096,
	}
	return l.transport.complete(ctx, request, &llamaResponse{}, opts)
}
