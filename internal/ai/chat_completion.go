// chat_completion.go - Shared HTTP transport for chat-completion style backends

package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bosocmputer/trade_compliance_ocr/internal/common"
)

// chatHTTPTimeout is a hard ceiling; attempts are normally bounded by the retry timeout.
const chatHTTPTimeout = 5 * time.Minute

// completionResponse is a provider-specific response envelope.
type completionResponse interface {
	// content returns the model text or a typed error found inside the envelope.
	content(provider string) (string, error)
}

// chatTransport posts JSON requests with a bearer token and maps failures to typed errors.
type chatTransport struct {
	provider string
	endpoint string
	apiKey   string
	client   *http.Client
}

func newChatTransport(provider, baseURL, path, apiKey string) *chatTransport {
	return &chatTransport{
		provider: provider,
		endpoint: strings.TrimRight(baseURL, "/") + path,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: chatHTTPTimeout},
	}
}

// complete sends request, unwraps the envelope and adapts the content to AnalysisResult.
func (t *chatTransport) complete(ctx context.Context, request any, response completionResponse, opts common.AnalysisOptions) (*common.AnalysisResult, error) {
	if err := t.post(ctx, request, response); err != nil {
		return nil, err
	}
	text, err := response.content(t.provider)
	if err != nil {
		return nil, err
	}
	return decodeAnalysis(t.provider, text, opts)
}

func (t *chatTransport) post(ctx context.Context, request any, response any) error {
	requestBody, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("%s: failed to marshal request: %w", t.provider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(requestBody))
	if err != nil {
		return fmt.Errorf("%s: failed to create request: %w", t.provider, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &NetworkError{Provider: t.provider, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &NetworkError{Provider: t.provider, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &ProviderHTTPError{Provider: t.provider, StatusCode: resp.StatusCode, Body: errorMessage(body)}
	}

	if err := json.Unmarshal(body, response); err != nil {
		return &ParseError{Provider: t.provider, Reason: "invalid response envelope: " + err.Error(), Content: string(body)}
	}
	return nil
}

type apiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

// errorMessage prefers the message of a JSON error body and falls back to the raw body.
func errorMessage(body []byte) string {
	var errorResp apiErrorResponse
	if err := json.Unmarshal(body, &errorResp); err == nil {
		switch {
		case errorResp.Error.Message != "":
			return errorResp.Error.Message
		case errorResp.Message != "":
			return errorResp.Message
		case errorResp.Detail != "":
			return errorResp.Detail
		}
	}
	return strings.TrimSpace(string(body))
}

func dataURL(document, mimeType string) string {
	return "data:" + mimeType + ";base64," + document
}

// --- OpenAI-compatible wire types (DeepSeek, Kimi, MiniMax) ---

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type responseFormat struct {
	Type       string            `json:"type"`
	JSONSchema *jsonSchemaFormat `json:"json_schema,omitempty"`
}

type jsonSchemaFormat struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict,omitempty"`
	Schema map[string]any `json:"schema"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

func (r *openAIChatResponse) content(provider string) (string, error) {
	if len(r.Choices) == 0 {
		return "", &ParseError{Provider: provider, Reason: "no choices in response"}
	}
	text := r.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return "", &ParseError{Provider: provider, Reason: "empty response"}
	}
	return text, nil
}

// openAIMessages builds the system + multimodal user messages.
func openAIMessages(prompt PromptTemplate, document, mimeType string, opts common.AnalysisOptions) []chatMessage {
	return []chatMessage{
		{Role: "system", Content: prompt.SystemPrompt()},
		{Role: "user", Content: []contentPart{
			{Type: "text", Text: prompt.UserPrompt(opts)},
			{Type: "image_url", ImageURL: &imageURL{URL: dataURL(document, mimeType)}},
		}},
	}
}

// openAICompatibleProvider serves backends speaking the OpenAI chat completions dialect.
type openAICompatibleProvider struct {
	identity  ProviderIdentity
	transport *chatTransport
	prompt    PromptTemplate
}

func newOpenAICompatibleProvider(name, defaultBaseURL, defaultModel string, settings ProviderSettings) (*openAICompatibleProvider, error) {
	if !settings.Configured() {
		return nil, &ConfigurationError{Provider: name, Message: "API key is not set"}
	}

	baseURL := settings.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := settings.Model
	if model == "" {
		model = defaultModel
	}

	transport := newChatTransport(name, baseURL, "/chat/completions", settings.APIKey)
	return &openAICompatibleProvider{
		identity:  ProviderIdentity{Name: name, Model: model, Endpoint: transport.endpoint},
		transport: transport,
		prompt:    DefaultPromptTemplate(),
	}, nil
}

func (p *openAICompatibleProvider) Identity() ProviderIdentity {
	return p.identity
}

func (p *openAICompatibleProvider) Analyze(ctx context.Context, document, mimeType string, opts common.AnalysisOptions) (*common.AnalysisResult, error) {
	request := chatRequest{
		Model:          p.identity.Model,
		Messages:       openAIMessages(p.prompt, document, mimeType, opts),
		Temperature:    0.1,
		MaxTokens:      8192,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}
	return p.transport.complete(ctx, request, &openAIChatResponse{}, opts)
}
