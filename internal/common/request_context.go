// request_context.go - Request tracking and logging system

package common

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// RequestContext tracks the entire request lifecycle with timing
type RequestContext struct {
	RequestID        string
	ConsignmentID    string
	StartTime        time.Time
	Steps            []StepLog
	CurrentStep      string
	CurrentStepStart time.Time

	logger *slog.Logger
}

// StepLog represents a single processing step
type StepLog struct {
	Name      string    `json:"name"`
	StartTime time.Time `json:"start_time"`
	Duration  int64     `json:"duration_ms"`
	Status    string    `json:"status"` // "success", "failed", "skipped"
	Error     string    `json:"error,omitempty"`
}

// NewRequestContext creates a new request tracking context
func NewRequestContext(consignmentID string) *RequestContext {
	reqID := uuid.New().String()
	logger := slog.Default().With("request_id", reqID)
	if consignmentID != "" {
		logger = logger.With("consignment_id", consignmentID)
	}

	logger.Info("request received")

	return &RequestContext{
		RequestID:     reqID,
		ConsignmentID: consignmentID,
		StartTime:     time.Now(),
		Steps:         []StepLog{},
		logger:        logger,
	}
}

// Logger returns the request-scoped logger.
func (rc *RequestContext) Logger() *slog.Logger {
	if rc == nil || rc.logger == nil {
		return slog.Default()
	}
	return rc.logger
}

// StartStep begins tracking a new processing step
func (rc *RequestContext) StartStep(stepName string) {
	rc.CurrentStep = stepName
	rc.CurrentStepStart = time.Now()
	rc.Logger().Debug("step started", "step", stepName)
}

// EndStep completes the current step and records timing
func (rc *RequestContext) EndStep(status string, err error) {
	duration := time.Since(rc.CurrentStepStart).Milliseconds()

	stepLog := StepLog{
		Name:      rc.CurrentStep,
		StartTime: rc.CurrentStepStart,
		Duration:  duration,
		Status:    status,
	}

	if err != nil {
		stepLog.Error = err.Error()
		rc.Logger().Error("step failed", "step", rc.CurrentStep, "duration_ms", duration, "error", err)
	} else {
		rc.Logger().Info("step finished", "step", rc.CurrentStep, "status", status, "duration_ms", duration)
	}

	rc.Steps = append(rc.Steps, stepLog)
	rc.CurrentStep = ""
}

// GetSummary returns a final summary of the entire request
func (rc *RequestContext) GetSummary() map[string]any {
	totalDuration := time.Since(rc.StartTime).Milliseconds()

	stepBreakdown := make(map[string]int64, len(rc.Steps))
	for _, step := range rc.Steps {
		stepBreakdown[step.Name] = step.Duration
	}

	rc.Logger().Info("request finished", "total_duration_ms", totalDuration, "steps", len(rc.Steps))

	return map[string]any{
		"request_id":        rc.RequestID,
		"consignment_id":    rc.ConsignmentID,
		"total_duration_ms": totalDuration,
		"step_breakdown":    stepBreakdown,
		"total_steps":       len(rc.Steps),
	}
}

type requestContextKey struct{}

// WithRequestContext attaches rc to ctx.
func WithRequestContext(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey{}, rc)
}

// FromContext returns the RequestContext carried by ctx, or nil.
func FromContext(ctx context.Context) *RequestContext {
	rc, _ := ctx.Value(requestContextKey{}).(*RequestContext)
	return rc
}

// LoggerFromContext returns the request-scoped logger, falling back to slog.Default.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return FromContext(ctx).Logger()
}
