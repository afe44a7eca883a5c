// gemini.go - Google Gemini provider using the genai SDK with schema-constrained output

package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/bosocmputer/trade_compliance_ocr/configs"
	"github.com/bosocmputer/trade_compliance_ocr/internal/common"
)

const (
	defaultGeminiModel    = "gemini-2.5-flash"
	defaultGeminiEndpoint = "https://generativelanguage.googleapis.com"
	geminiMaxOutputTokens = 8192
)

// GeminiProvider implements Provider using Google Gemini.
// The SDK client is created on first use and reused until Close.
type GeminiProvider struct {
	identity ProviderIdentity
	apiKey   string
	baseURL  string
	prompt   PromptTemplate

	mu     sync.Mutex
	client *genai.Client
}

// NewGeminiProvider creates a new Gemini provider
func NewGeminiProvider(settings ProviderSettings) (Provider, error) {
	if !settings.Configured() {
		return nil, &ConfigurationError{Provider: configs.ProviderGemini, Message: "GEMINI_API_KEY is not set"}
	}

	model := settings.Model
	if model == "" {
		model = defaultGeminiModel
	}
	endpoint := settings.BaseURL
	if endpoint == "" {
		endpoint = defaultGeminiEndpoint
	}

	return &GeminiProvider{
		identity: ProviderIdentity{Name: configs.ProviderGemini, Model: model, Endpoint: endpoint},
		apiKey:   settings.APIKey,
		baseURL:  settings.BaseURL,
		prompt:   DefaultPromptTemplate(),
	}, nil
}

// Identity implements Provider.
func (g *GeminiProvider) Identity() ProviderIdentity {
	return g.identity
}

// Analyze implements Provider.
func (g *GeminiProvider) Analyze(ctx context.Context, document, mimeType string, opts common.AnalysisOptions) (*common.AnalysisResult, error) {
	data, err := base64.StdEncoding.DecodeString(document)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid base64 document: %w", g.identity.Name, err)
	}

	client, err := g.getClient(ctx)
	if err != nil {
		return nil, err
	}

	model := client.GenerativeModel(g.identity.Model)
	model.SetTemperature(0.1)
	model.GenerationConfig.MaxOutputTokens = ptr(int32(geminiMaxOutputTokens))
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = createAnalysisSchema()
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(g.prompt.SystemPrompt())}}

	resp, err := model.GenerateContent(ctx,
		genai.Text(g.prompt.UserPrompt(opts)),
		genai.Blob{
			MIMEType: mimeType,
			Data:     data,
		},
	)
	if err != nil {
		return nil, g.mapError(ctx, err)
	}

	text, err := geminiResponseText(g.identity.Name, resp)
	if err != nil {
		return nil, err
	}

	if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason == genai.FinishReasonMaxTokens {
		common.LoggerFromContext(ctx).Warn("gemini response truncated", "finish_reason", "MAX_TOKENS", "chars", len(text))
	}

	return decodeAnalysis(g.identity.Name, text, opts)
}

// Close releases the SDK client.
func (g *GeminiProvider) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.client == nil {
		return nil
	}
	err := g.client.Close()
	g.client = nil
	return err
}

func (g *GeminiProvider) getClient(ctx context.Context) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.client != nil {
		return g.client, nil
	}

	clientOpts := []option.ClientOption{option.WithAPIKey(g.apiKey)}
	if g.baseURL != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(g.baseURL))
	}

	client, err := genai.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, &ConfigurationError{Provider: g.identity.Name, Message: fmt.Sprintf("failed to create Gemini client: %v", err)}
	}
	g.client = client
	return client, nil
}

// mapError converts SDK errors into the provider error taxonomy.
func (g *GeminiProvider) mapError(ctx context.Context, err error) error {
	return mapGeminiError(ctx, g.identity.Name, err)
}

func mapGeminiError(ctx context.Context, provider string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		body := apiErr.Message
		if body == "" {
			body = apiErr.Body
		}
		return &ProviderHTTPError{Provider: provider, StatusCode: apiErr.Code, Body: body}
	}

	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return &ParseError{Provider: provider, Reason: "response blocked by safety filters", Content: blocked.Error()}
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return &NetworkError{Provider: provider, Err: err}
}

// geminiResponseText returns the first text part of the first candidate.
func geminiResponseText(provider string, resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", &ParseError{Provider: provider, Reason: "no candidates in response"}
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", &ParseError{Provider: provider, Reason: "empty response"}
	}
	return sb.String(), nil
}

// createAnalysisSchema creates the response schema mirroring AnalysisResult
func createAnalysisSchema() *genai.Schema {
	str := func(desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeString, Description: desc}
	}
	boolean := func(desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeBoolean, Description: desc}
	}

	categories := make([]string, 0, len(common.ChecklistCategories))
	for _, c := range common.ChecklistCategories {
		categories = append(categories, string(c))
	}

	productSchema := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"name":      str("Product description as printed"),
			"quantity":  str("Quantity with unit"),
			"hsCode":    str("HS tariff code"),
			"isOrganic": boolean("True only when organic status is claimed"),
			"attributes": {
				Type:  genai.TypeArray,
				Items: str("Certification-relevant claim"),
			},
		},
		Required: []string{"name", "quantity", "hsCode", "isOrganic"},
	}

	securitySchema := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"isSuspicious": boolean("True when tampering signals are present"),
			"reason":       str("Forensic findings"),
			"tamperScore":  {Type: genai.TypeInteger, Description: "0 (authentic) to 100 (forged)"},
		},
		Required: []string{"isSuspicious", "reason", "tamperScore"},
	}

	checklistItemSchema := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"id":           str("Unique kebab-case id"),
			"documentName": str("Official document name"),
			"description":  str("Why the document is needed"),
			"agency":       str("Issuing or enforcing agency"),
			"agencyUrl":    str("Agency website"),
			"category":     {Type: genai.TypeString, Enum: categories},
			"isMandatory":  boolean("Mandatory per the decision table"),
			"status":       {Type: genai.TypeString, Enum: []string{common.StatusMissing}},
		},
		Required: []string{"id", "documentName", "category", "isMandatory", "status"},
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"extractedData": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"sellerName":         str("Seller / exporter"),
					"buyerName":          str("Buyer / importer"),
					"originCountry":      str("Country of origin"),
					"destinationCountry": str("Country of destination"),
					"products":           {Type: genai.TypeArray, Items: productSchema},
					"securityAnalysis":   securitySchema,
				},
				Required: []string{"sellerName", "buyerName", "products", "securityAnalysis"},
			},
			"checklist": {Type: genai.TypeArray, Items: checklistItemSchema},
		},
		Required: []string{"extractedData", "checklist"},
	}
}

func ptr[T any](v T) *T {
	return &v
}
