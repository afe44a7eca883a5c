// errors.go - Maps analysis errors to HTTP status codes and user-facing payloads.

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bosocmputer/trade_compliance_ocr/internal/ai"
)

// buildUserFriendlyError converts an orchestrator error to a status code and response body
func buildUserFriendlyError(err error) (int, gin.H) {
	status := http.StatusInternalServerError
	category := errorCategory(err)

	body := gin.H{
		"error":   "AI processing failed",
		"details": err.Error(),
	}

	var agg *ai.AggregateFailure
	switch {
	case errors.Is(err, ai.ErrNoProvidersConfigured):
		status = http.StatusServiceUnavailable
		category = "no_providers"
	case errors.As(err, &agg):
		status = http.StatusBadGateway
		category = sharedCategory(agg)
		body["providers"] = agg.Messages()
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		status = http.StatusGatewayTimeout
		category = "timeout"
	}
	body["category"] = category

	switch category {
	case "no_providers":
		body["suggestion"] = "No AI provider is configured. Please contact system administrator."
		body["action_required"] = "configure_api_key"

	case "rate_limit":
		body["suggestion"] = "Too many requests. Please wait a moment and try again."
		body["retry_after"] = "30-60 seconds"

	case "unauthorized", "forbidden":
		body["suggestion"] = "API authentication failed. Please contact system administrator."
		body["action_required"] = "check_api_key"

	case "payload_too_large":
		body["suggestion"] = "Document is too large. Please upload a smaller scan."
		body["action_required"] = "reduce_image_size"

	case "timeout":
		body["suggestion"] = "Request took too long. Please try again with a clearer document."
		body["retry_recommended"] = true

	case "server_error":
		body["suggestion"] = "AI services are temporarily unavailable. Please try again in a few minutes."
		body["retry_recommended"] = true

	case "network_error":
		body["suggestion"] = "Network connection issue. Please try again."
		body["retry_recommended"] = true

	case "parse_error":
		body["suggestion"] = "The AI response could not be read. Please try again with a clearer document."
		body["retry_recommended"] = true

	default:
		body["suggestion"] = "An unexpected error occurred. Please try again or contact support."
		body["retry_recommended"] = false
	}

	return status, body
}

// sharedCategory returns the category every provider failed with, or all_providers_failed.
func sharedCategory(agg *ai.AggregateFailure) string {
	category := ""
	for _, f := range agg.Failures {
		c := errorCategory(f.Err)
		if category != "" && c != category {
			return "all_providers_failed"
		}
		category = c
	}
	if category == "" || category == "unknown" {
		return "all_providers_failed"
	}
	return category
}

func errorCategory(err error) string {
	var (
		httpErr    *ai.ProviderHTTPError
		timeoutErr *ai.TimeoutError
		netErr     *ai.NetworkError
		parseErr   *ai.ParseError
		configErr  *ai.ConfigurationError
	)
	switch {
	case errors.As(err, &httpErr):
		return httpErr.Category()
	case errors.As(err, &timeoutErr):
		return "timeout"
	case errors.As(err, &netErr):
		return "network_error"
	case errors.As(err, &parseErr):
		return "parse_error"
	case errors.As(err, &configErr):
		return "configuration"
	default:
		return "unknown"
	}
}
