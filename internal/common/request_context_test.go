package common

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestContextSteps(t *testing.T) {
	rc := NewRequestContext("CONS-42")
	require.NotEmpty(t, rc.RequestID)

	rc.StartStep("decode_document")
	rc.EndStep("success", nil)
	rc.StartStep("ai_analysis")
	rc.EndStep("failed", errors.New("all providers failed"))

	require.Len(t, rc.Steps, 2)
	assert.Equal(t, "decode_document", rc.Steps[0].Name)
	assert.Empty(t, rc.Steps[0].Error)
	assert.Equal(t, "failed", rc.Steps[1].Status)
	assert.Equal(t, "all providers failed", rc.Steps[1].Error)

	summary := rc.GetSummary()
	assert.Equal(t, rc.RequestID, summary["request_id"])
	assert.Equal(t, "CONS-42", summary["consignment_id"])
	assert.Equal(t, 2, summary["total_steps"])
}

func TestLoggerFromContext(t *testing.T) {
	assert.Same(t, slog.Default(), LoggerFromContext(context.Background()))

	rc := NewRequestContext("")
	ctx := WithRequestContext(context.Background(), rc)
	assert.Same(t, rc, FromContext(ctx))
	assert.Same(t, rc.Logger(), LoggerFromContext(ctx))
}

func TestParseChecklistCategory(t *testing.T) {
	tests := []struct {
		raw  string
		want ChecklistCategory
		ok   bool
	}{
		{"Logistics", CategoryLogistics, true},
		{" customs ", CategoryCustoms, true},
		{"CERTIFICATIONS", CategoryCertifications, true},
		{"financial", CategoryFinancial, true},
		{"Shipping", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParseChecklistCategory(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
			if ok {
				assert.True(t, got.Valid())
			}
		})
	}
}
