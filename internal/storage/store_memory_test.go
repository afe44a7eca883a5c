package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryAnalysisStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryAnalysisStore()

	_, err := s.LatestForConsignment(ctx, "C-1")
	require.ErrorIs(t, err, ErrAnalysisNotFound)

	require.NoError(t, s.SaveAnalysis(ctx, AnalysisRecord{RequestID: "r1", ConsignmentID: "C-1", Provider: "Gemini"}))
	require.NoError(t, s.SaveAnalysis(ctx, AnalysisRecord{RequestID: "r2", ConsignmentID: "C-1", Provider: "DeepSeek"}))

	latest, err := s.LatestForConsignment(ctx, "C-1")
	require.NoError(t, err)
	assert.Equal(t, "r2", latest.RequestID)
	assert.False(t, latest.CreatedAt.IsZero())

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, s.SaveAnalysis(cancelled, AnalysisRecord{}), context.Canceled)
}
