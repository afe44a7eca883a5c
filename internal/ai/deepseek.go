// deepseek.go - DeepSeek provider (OpenAI-compatible chat completions)

package ai

import "github.com/bosocmputer/trade_compliance_ocr/configs"

const (
	defaultDeepSeekBaseURL = "https://api.deepseek.com/v1"
	defaultDeepSeekModel   = "deepseek-chat"
)

// NewDeepSeekProvider creates a new DeepSeek provider
func NewDeepSeekProvider(settings ProviderSettings) (Provider, error) {
	p, err := newOpenAICompatibleProvider(configs.ProviderDeepSeek, defaultDeepSeekBaseURL, defaultDeepSeekModel, settings)
	if err != nil {
		return nil, err
	}
	return p, nil
}
