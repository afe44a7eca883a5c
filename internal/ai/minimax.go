// minimax.go - MiniMax provider (chatcompletion_v2 with json_schema output)

package ai

import (
	"context"
	"fmt"
	"net/http"

	"github.com/bosocmputer/trade_compliance_ocr/configs"
	"github.com/bosocmputer/trade_compliance_ocr/internal/common"
)

const (
	defaultMiniMaxBaseURL = "https://api.minimax.io/v1"
	defaultMiniMaxModel   = "MiniMax-Text-01"
)

const minimaxSystemRole = `You are MiniMax Compliance, an expert customs broker and trade compliance officer.
Examine shipping documents like a forensic document examiner and report only what the document shows.
Your entire reply must be a single JSON object that matches the provided schema.`

// MiniMaxProvider implements Provider for MiniMax.
// MiniMax reports many failures inside HTTP 200 responses through base_resp.
type MiniMaxProvider struct {
	identity  ProviderIdentity
	transport *chatTransport
	prompt    PromptTemplate
}

// NewMiniMaxProvider creates a new MiniMax provider
func NewMiniMaxProvider(settings ProviderSettings) (Provider, error) {
	if !settings.Configured() {
		return nil, &ConfigurationError{Provider: configs.ProviderMiniMax, Message: "MINIMAX_API_KEY is not set"}
	}

	baseURL := settings.BaseURL
	if baseURL == "" {
		baseURL = defaultMiniMaxBaseURL
	}
	model := settings.Model
	if model == "" {
		model = defaultMiniMaxModel
	}

	transport := newChatTransport(configs.ProviderMiniMax, baseURL, "/text/chatcompletion_v2", settings.APIKey)
	return &MiniMaxProvider{
		identity:  ProviderIdentity{Name: configs.ProviderMiniMax, Model: model, Endpoint: transport.endpoint},
		transport: transport,
		prompt:    DefaultPromptTemplate().Merge(PromptTemplate{SystemRole: minimaxSystemRole}),
	}, nil
}

// Identity implements Provider.
func (m *MiniMaxProvider) Identity() ProviderIdentity {
	return m.identity
}

// Analyze implements Provider.
func (m *MiniMaxProvider) Analyze(ctx context.Context, document, mimeType string, opts common.AnalysisOptions) (*common.AnalysisResult, error) {
	request := chatRequest{
		Model:       m.identity.Model,
		Messages:    openAIMessages(m.prompt, document, mimeType, opts),
		Temperature: 0.1,
		MaxTokens:   8192,
		ResponseFormat: &responseFormat{
			Type: "json_schema",
			JSONSchema: &jsonSchemaFormat{
				Name:   "trade_compliance_analysis",
				Schema: analysisJSONSchema(),
			},
		},
	}
	return m.transport.complete(ctx, request, &minimaxResponse{}, opts)
}

type minimaxBaseResp struct {
	StatusCode int    `json:"status_code"`
	StatusMsg  string `json:"status_msg"`
}

type minimaxResponse struct {
	openAIChatResponse
	BaseResp *minimaxBaseResp `json:"base_resp"`
}

func (r *minimaxResponse) content(provider string) (string, error) {
	if r.BaseResp != nil && r.BaseResp.StatusCode != 0 {
		return "", &ProviderHTTPError{
			Provider:   provider,
			StatusCode: minimaxStatusCode(r.BaseResp.StatusCode),
			Body:       fmt.Sprintf("base_resp %d: %s", r.BaseResp.StatusCode, r.BaseResp.StatusMsg),
		}
	}
	return r.openAIChatResponse.content(provider)
}

// minimaxStatusCode maps base_resp codes onto HTTP statuses so retry classification applies.
func minimaxStatusCode(code int) int {
	switch code {
	case 1002, 1039:
		return http.StatusTooManyRequests
	case 1000, 1001, 1024:
		return http.StatusInternalServerError
	case 1004, 2049:
		return http.StatusUnauthorized
	default:
		return http.StatusBadRequest
	}
}

// analysisJSONSchema is the JSON Schema form of AnalysisResult.
func analysisJSONSchema() map[string]any {
	str := map[string]any{"type": "string"}
	boolean := map[string]any{"type": "boolean"}

	categories := make([]string, 0, len(common.ChecklistCategories))
	for _, c := range common.ChecklistCategories {
		categories = append(categories, string(c))
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"extractedData": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"sellerName":         str,
					"buyerName":          str,
					"originCountry":      str,
					"destinationCountry": str,
					"products": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"name":       str,
								"quantity":   str,
								"hsCode":     str,
								"isOrganic":  boolean,
								"attributes": map[string]any{"type": "array", "items": str},
							},
							"required": []string{"name", "quantity", "hsCode", "isOrganic"},
						},
					},
					"securityAnalysis": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"isSuspicious": boolean,
							"reason":       str,
							"tamperScore":  map[string]any{"type": "integer", "minimum": 0, "maximum": 100},
						},
						"required": []string{"isSuspicious", "reason", "tamperScore"},
					},
				},
				"required": []string{"sellerName", "buyerName", "products", "securityAnalysis"},
			},
			"checklist": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"id":           str,
						"documentName": str,
						"description":  str,
						"agency":       str,
						"agencyUrl":    str,
						"category":     map[string]any{"type": "string", "enum": categories},
						"isMandatory":  boolean,
						"status":       map[string]any{"type": "string", "enum": []string{common.StatusMissing}},
					},
					"required": []string{"id", "documentName", "category", "isMandatory", "status"},
				},
			},
		},
		"required": []string{"extractedData", "checklist"},
	}
}
