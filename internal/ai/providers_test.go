package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bosocmputer/trade_compliance_ocr/configs"
)

const sampleContent = `{"extractedData": {"sellerName": "Siam Rice Co.", "buyerName": "Tokyo Foods KK",
"products": [{"name": "Jasmine rice", "quantity": "20 MT", "hsCode": "1006.30", "isOrganic": false}],
"securityAnalysis": {"isSuspicious": false, "reason": "ok", "tamperScore": 5}},
"checklist": [{"id": "bl", "documentName": "Bill of Lading", "category": "Logistics", "isMandatory": true, "status": "missing"}]}`

// capturedRequest is what the fake backend saw.
type capturedRequest struct {
	Path          string
	Authorization string
	Body          map[string]any
}

func fakeBackend(t *testing.T, status int, response any) (*httptest.Server, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.Path = r.URL.Path
		captured.Authorization = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &captured.Body)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		switch v := response.(type) {
		case string:
			_, _ = io.WriteString(w, v)
		default:
			_ = json.NewEncoder(w).Encode(v)
		}
	}))
	t.Cleanup(server.Close)
	return server, captured
}

func openAIBody(content string) map[string]any {
	return map[string]any{
		"choices": []any{map[string]any{"message": map[string]any{"role": "assistant", "content": content}}},
	}
}

func TestHTTPProvidersSuccess(t *testing.T) {
	tests := []struct {
		name     string
		factory  ProviderFactory
		path     string
		response any
		format   string
	}{
		{configs.ProviderDeepSeek, NewDeepSeekProvider, "/chat/completions", openAIBody(sampleContent), "json_object"},
		{configs.ProviderKimi, NewKimiProvider, "/chat/completions", openAIBody(sampleContent), "json_object"},
		{configs.ProviderMiniMax, NewMiniMaxProvider, "/text/chatcompletion_v2", map[string]any{
			"choices":   []any{map[string]any{"message": map[string]any{"content": sampleContent}}},
			"base_resp": map[string]any{"status_code": 0, "status_msg": "success"},
		}, "json_schema"},
		{configs.ProviderLlama, NewLlamaProvider, "/chat/completions", map[string]any{
			"completion_message": map[string]any{
				"role":    "assistant",
				"content": map[string]any{"type": "text", "text": "Sure! Here is the JSON:\n" + sampleContent},
			},
		}, ""},
		{configs.ProviderMistral, NewMistralProvider, "/chat/completions", openAIBody(sampleContent), "json_object"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, captured := fakeBackend(t, http.StatusOK, tt.response)

			provider, err := tt.factory(ProviderSettings{APIKey: "secret", BaseURL: server.URL})
			require.NoError(t, err)
			assert.Equal(t, tt.name, provider.Identity().Name)
			assert.Equal(t, server.URL+tt.path, provider.Identity().Endpoint)
			assert.NotEmpty(t, provider.Identity().Model)

			result, err := provider.Analyze(context.Background(), "aGVsbG8=", "image/png", thToJP)
			require.NoError(t, err)

			assert.Equal(t, tt.path, captured.Path)
			assert.Equal(t, "Bearer secret", captured.Authorization)
			assert.Equal(t, provider.Identity().Model, captured.Body["model"])

			if tt.format == "" {
				assert.NotContains(t, captured.Body, "response_format")
			} else {
				format, ok := captured.Body["response_format"].(map[string]any)
				require.True(t, ok)
				assert.Equal(t, tt.format, format["type"])
			}

			assert.Equal(t, "Siam Rice Co.", result.ExtractedData.SellerName)
			assert.Equal(t, "Thailand", result.ExtractedData.OriginCountry)
			require.Len(t, result.Checklist, 1)
			assert.Equal(t, "Bill of Lading", result.Checklist[0].DocumentName)
		})
	}
}

func TestHTTPProvidersSendDocumentAsDataURL(t *testing.T) {
	server, captured := fakeBackend(t, http.StatusOK, openAIBody(sampleContent))
	provider, err := NewKimiProvider(ProviderSettings{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = provider.Analyze(context.Background(), "aGVsbG8=", "image/jpeg", thToJP)
	require.NoError(t, err)

	messages := captured.Body["messages"].([]any)
	require.Len(t, messages, 2)
	user := messages[1].(map[string]any)
	parts := user["content"].([]any)
	image := parts[1].(map[string]any)["image_url"].(map[string]any)
	assert.Equal(t, "data:image/jpeg;base64,aGVsbG8=", image["url"])
}

func TestMistralSendsBareImageURLAndAcceptsChunks(t *testing.T) {
	response := map[string]any{
		"choices": []any{map[string]any{"message": map[string]any{
			"content": []any{
				map[string]any{"type": "text", "text": sampleContent[:40]},
				map[string]any{"type": "text", "text": sampleContent[40:]},
			},
		}}},
	}
	server, captured := fakeBackend(t, http.StatusOK, response)
	provider, err := NewMistralProvider(ProviderSettings{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)

	result, err := provider.Analyze(context.Background(), "aGVsbG8=", "image/png", thToJP)
	require.NoError(t, err)
	assert.Equal(t, "Tokyo Foods KK", result.ExtractedData.BuyerName)

	messages := captured.Body["messages"].([]any)
	parts := messages[1].(map[string]any)["content"].([]any)
	assert.Equal(t, "data:image/png;base64,aGVsbG8=", parts[1].(map[string]any)["image_url"])
}

func TestHTTPProviderErrorMapping(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		retryable bool
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error": {"message": "slow down"}}`, true},
		{"server error", http.StatusBadGateway, `upstream failed`, true},
		{"unauthorized", http.StatusUnauthorized, `{"error": {"message": "invalid api key"}}`, false},
		{"bad request", http.StatusBadRequest, `{"message": "image too large"}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, _ := fakeBackend(t, tt.status, tt.body)
			provider, err := NewDeepSeekProvider(ProviderSettings{APIKey: "k", BaseURL: server.URL})
			require.NoError(t, err)

			_, err = provider.Analyze(context.Background(), "aGVsbG8=", "image/png", thToJP)
			require.Error(t, err)

			var httpErr *ProviderHTTPError
			require.ErrorAs(t, err, &httpErr)
			assert.Equal(t, tt.status, httpErr.StatusCode)
			assert.Equal(t, configs.ProviderDeepSeek, httpErr.Provider)
			assert.Equal(t, tt.retryable, IsRetryable(err))
		})
	}
}

func TestHTTPProviderUnparseableContent(t *testing.T) {
	server, _ := fakeBackend(t, http.StatusOK, openAIBody("I am unable to help with that."))
	provider, err := NewMistralProvider(ProviderSettings{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = provider.Analyze(context.Background(), "aGVsbG8=", "image/png", thToJP)
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, configs.ProviderMistral, parseErr.Provider)
	assert.False(t, IsRetryable(err))
}

func TestHTTPProviderNetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	provider, err := NewLlamaProvider(ProviderSettings{APIKey: "k", BaseURL: url})
	require.NoError(t, err)

	_, err = provider.Analyze(context.Background(), "aGVsbG8=", "image/png", thToJP)
	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.True(t, IsRetryable(err))
}

func TestMiniMaxBaseRespErrors(t *testing.T) {
	tests := []struct {
		code      int
		status    int
		retryable bool
	}{
		{1002, http.StatusTooManyRequests, true},
		{1039, http.StatusTooManyRequests, true},
		{1000, http.StatusInternalServerError, true},
		{1024, http.StatusInternalServerError, true},
		{1004, http.StatusUnauthorized, false},
		{2049, http.StatusUnauthorized, false},
		{1026, http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			server, _ := fakeBackend(t, http.StatusOK, map[string]any{
				"base_resp": map[string]any{"status_code": tt.code, "status_msg": "failed"},
			})
			provider, err := NewMiniMaxProvider(ProviderSettings{APIKey: "k", BaseURL: server.URL})
			require.NoError(t, err)

			_, err = provider.Analyze(context.Background(), "aGVsbG8=", "image/png", thToJP)
			var httpErr *ProviderHTTPError
			require.ErrorAs(t, err, &httpErr)
			assert.Equal(t, tt.status, httpErr.StatusCode)
			assert.Equal(t, tt.retryable, IsRetryable(err))
		})
	}
}

func TestProvidersRequireAPIKey(t *testing.T) {
	for name, factory := range BuiltinFactories {
		t.Run(name, func(t *testing.T) {
			_, err := factory(ProviderSettings{})
			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, name, cfgErr.Provider)
			assert.False(t, IsRetryable(err))
		})
	}
}

func TestProviderPromptOverrides(t *testing.T) {
	llama, err := NewLlamaProvider(ProviderSettings{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, trimmedForensicsInstructions, llama.(*LlamaProvider).prompt.ForensicsInstructions)
	assert.Equal(t, systemRole, llama.(*LlamaProvider).prompt.SystemRole)

	minimax, err := NewMiniMaxProvider(ProviderSettings{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, minimaxSystemRole, minimax.(*MiniMaxProvider).prompt.SystemRole)
	assert.Equal(t, forensicsInstructions, minimax.(*MiniMaxProvider).prompt.ForensicsInstructions)
}
