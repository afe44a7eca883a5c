// mistral.go - Mistral AI provider (Pixtral vision chat completions)

package ai

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/bosocmputer/trade_compliance_ocr/configs"
	"github.com/bosocmputer/trade_compliance_ocr/internal/common"
)

const (
	defaultMistralBaseURL = "https://api.mistral.ai/v1"
	defaultMistralModel   = "pixtral-large-latest"
)

// MistralProvider implements Provider for Mistral AI
type MistralProvider struct {
	identity  ProviderIdentity
	transport *chatTransport
	prompt    PromptTemplate
}

// NewMistralProvider creates a new Mistral AI provider
func NewMistralProvider(settings ProviderSettings) (Provider, error) {
	if !settings.Configured() {
		return nil, &ConfigurationError{Provider: configs.ProviderMistral, Message: "MISTRAL_API_KEY is not set"}
	}

	baseURL := settings.BaseURL
	if baseURL == "" {
		baseURL = defaultMistralBaseURL
	}
	model := settings.Model
	if model == "" {
		model = defaultMistralModel
	}

	transport := newChatTransport(configs.ProviderMistral, baseURL, "/chat/completions", settings.APIKey)
	return &MistralProvider{
		identity:  ProviderIdentity{Name: configs.ProviderMistral, Model: model, Endpoint: transport.endpoint},
		transport: transport,
		prompt:    DefaultPromptTemplate(),
	}, nil
}

// Identity implements Provider.
func (m *MistralProvider) Identity() ProviderIdentity {
	return m.identity
}

// Mistral chat API request/response structures.
// image_url is a bare string rather than an object.
type mistralContentPart struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

type mistralRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

// mistralContent is either a plain string or a list of chunks.
type mistralContent string

func (c *mistralContent) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = mistralContent(s)
		return nil
	}

	var chunks []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &chunks); err != nil {
		return err
	}
	var sb strings.Builder
	for _, chunk := range chunks {
		if chunk.Type == "" || chunk.Type == "text" {
			sb.WriteString(chunk.Text)
		}
	}
	*c = mistralContent(sb.String())
	return nil
}

type mistralResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content mistralContent `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (r *mistralResponse) content(provider string) (string, error) {
	if len(r.Choices) == 0 {
		return "", &ParseError{Provider: provider, Reason: "no choices in response"}
	}
	text := string(r.Choices[0].Message.Content)
	if strings.TrimSpace(text) == "" {
		return "", &ParseError{Provider: provider, Reason: "empty response"}
	}
	return text, nil
}

// Analyze implements Provider.
func (m *MistralProvider) Analyze(ctx context.Context, document, mimeType string, opts common.AnalysisOptions) (*common.AnalysisResult, error) {
	request := mistralRequest{
		Model: m.identity.Model,
		Messages: []chatMessage{
			{Role: "system", Content: m.prompt.SystemPrompt()},
			{Role: "user", Content: []mistralContentPart{
				{Type: "text", Text: m.prompt.UserPrompt(opts)},
				{Type: "image_url", ImageURL: dataURL(document, mimeType)},
			}},
		},
		Temperature:    0.1,
		MaxTokens:      8192,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}
	return m.transport.complete(ctx, request, &mistralResponse{}, opts)
}
