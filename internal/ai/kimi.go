// kimi.go - Moonshot Kimi vision provider (OpenAI-compatible chat completions)

package ai

import "github.com/bosocmputer/trade_compliance_ocr/configs"

const (
	defaultKimiBaseURL = "https://api.moonshot.ai/v1"
	defaultKimiModel   = "moonshot-v1-32k-vision-preview"
)

// NewKimiProvider creates a new Kimi provider
func NewKimiProvider(settings ProviderSettings) (Provider, error) {
	p, err := newOpenAICompatibleProvider(configs.ProviderKimi, defaultKimiBaseURL, defaultKimiModel, settings)
	if err != nil {
		return nil, err
	}
	return p, nil
}
