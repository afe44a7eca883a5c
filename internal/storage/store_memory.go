package storage

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryAnalysisStore keeps analysis records in process. Used when MongoDB is not configured.
type MemoryAnalysisStore struct {
	mu   sync.RWMutex
	data map[string][]AnalysisRecord // consignmentID -> records
}

// NewMemoryAnalysisStore constructs a MemoryAnalysisStore.
func NewMemoryAnalysisStore() *MemoryAnalysisStore {
	return &MemoryAnalysisStore{data: make(map[string][]AnalysisRecord)}
}

// SaveAnalysis appends the record under its consignment.
func (s *MemoryAnalysisStore) SaveAnalysis(ctx context.Context, record AnalysisRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[record.ConsignmentID] = append(s.data[record.ConsignmentID], record)
	return nil
}

// LatestForConsignment returns the last record saved for the consignment.
func (s *MemoryAnalysisStore) LatestForConsignment(ctx context.Context, consignmentID string) (*AnalysisRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := s.data[consignmentID]
	if len(records) == 0 {
		return nil, fmt.Errorf("%w for consignment: %s", ErrAnalysisNotFound, consignmentID)
	}
	latest := records[len(records)-1]
	return &latest, nil
}
