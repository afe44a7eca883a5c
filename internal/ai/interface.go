// interface.go - Provider interface for supporting multiple AI backends

package ai

import (
	"context"

	"github.com/bosocmputer/trade_compliance_ocr/internal/common"
)

// Provider defines the interface that all AI providers must implement
// so the orchestrator can fail over between heterogeneous backends.
type Provider interface {
	// Identity returns the name, model and endpoint. It never changes after construction.
	Identity() ProviderIdentity

	// Analyze sends one base64 document to the backend and converts the answer
	// to the canonical AnalysisResult.
	Analyze(ctx context.Context, document, mimeType string, opts common.AnalysisOptions) (*common.AnalysisResult, error)
}

// ProviderIdentity names a provider instance.
type ProviderIdentity struct {
	Name     string `json:"name"`
	Model    string `json:"model"`
	Endpoint string `json:"endpoint"`
}

// ProviderSettings contains configuration for one provider
type ProviderSettings struct {
	APIKey  string
	BaseURL string
	Model   string
	// RequestsPerMinute throttles attempts. Zero disables throttling.
	RequestsPerMinute int
}

// Configured reports whether the settings carry credentials.
func (s ProviderSettings) Configured() bool {
	return s.APIKey != ""
}

// ProviderFactory builds a provider from its settings.
type ProviderFactory func(settings ProviderSettings) (Provider, error)
