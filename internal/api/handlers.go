// handlers.go - HTTP handlers for document analysis, provider listing and cache administration.

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bosocmputer/trade_compliance_ocr/internal/ai"
	"github.com/bosocmputer/trade_compliance_ocr/internal/common"
	"github.com/bosocmputer/trade_compliance_ocr/internal/metrics"
	"github.com/bosocmputer/trade_compliance_ocr/internal/processor"
	"github.com/bosocmputer/trade_compliance_ocr/internal/storage"
)

const persistTimeout = 5 * time.Second

// AnalyzeDocumentRequest is the body of POST /api/v1/analyze-document
type AnalyzeDocumentRequest struct {
	FileBase64        string `json:"fileBase64" binding:"required"`
	MimeType          string `json:"mimeType"`
	FromCountry       string `json:"fromCountry" binding:"required"`
	ToCountry         string `json:"toCountry" binding:"required"`
	PreferredProvider string `json:"preferredProvider"`
	UseCache          *bool  `json:"useCache"`
	ConsignmentID     string `json:"consignmentId"`
}

// Handler serves the HTTP API.
type Handler struct {
	orchestrator *ai.Orchestrator
	store        storage.AnalysisStore
	metrics      *metrics.Collector
	docOptions   processor.Options
}

// NewHandler creates a Handler. store and collector may be nil.
func NewHandler(orchestrator *ai.Orchestrator, store storage.AnalysisStore, collector *metrics.Collector, docOptions processor.Options) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		store:        store,
		metrics:      collector,
		docOptions:   docOptions,
	}
}

// RegisterRoutes mounts every endpoint on router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", h.HealthHandler)
	if h.metrics != nil {
		router.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	}

	v1 := router.Group("/api/v1")
	v1.POST("/analyze-document", h.AnalyzeDocumentHandler)
	v1.GET("/providers", h.ProvidersHandler)
	v1.DELETE("/cache", h.ClearCacheHandler)
	v1.GET("/consignments/:id/analysis", h.ConsignmentAnalysisHandler)
}

// AnalyzeDocumentHandler normalizes the document and runs the provider fallback.
func (h *Handler) AnalyzeDocumentHandler(c *gin.Context) {
	var req AnalyzeDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    "Invalid request format",
			"details":  err.Error(),
			"expected": "JSON with fileBase64, fromCountry and toCountry",
		})
		return
	}

	reqCtx := common.NewRequestContext(req.ConsignmentID)
	ctx := common.WithRequestContext(c.Request.Context(), reqCtx)

	reqCtx.StartStep("normalize_document")
	doc, err := processor.NormalizeDocument(req.FileBase64, req.MimeType, h.docOptions)
	reqCtx.EndStep(stepStatus(err), err)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, processor.ErrDocumentTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		c.JSON(status, gin.H{
			"error":      "Invalid document",
			"details":    err.Error(),
			"request_id": reqCtx.RequestID,
		})
		return
	}
	reqCtx.Logger().Info("document ready", "mime_type", doc.MimeType, "bytes", doc.Size, "processed", doc.Processed)

	opts := common.AnalysisOptions{FromCountry: req.FromCountry, ToCountry: req.ToCountry}

	reqCtx.StartStep("analyze")
	outcome, err := h.orchestrator.Analyze(ctx, ai.AnalyzeRequest{
		Document:          doc.Base64,
		MimeType:          doc.MimeType,
		Options:           opts,
		PreferredProvider: req.PreferredProvider,
		UseCache:          req.UseCache,
		CacheKeySource:    req.FileBase64,
	})
	reqCtx.EndStep(stepStatus(err), err)
	if err != nil {
		status, body := buildUserFriendlyError(err)
		body["request_id"] = reqCtx.RequestID
		body["metadata"] = reqCtx.GetSummary()
		c.JSON(status, body)
		return
	}

	if h.store != nil {
		reqCtx.StartStep("persist")
		err := h.persist(ctx, reqCtx, opts, outcome)
		reqCtx.EndStep(stepStatus(err), err)
		if err != nil {
			reqCtx.Logger().Error("failed to persist analysis", "error", err.Error())
		}
	}

	response := gin.H{
		"status":     "success",
		"request_id": reqCtx.RequestID,
		"provider":   outcome.Provider,
		"cache_hit":  outcome.CacheHit,
		"result":     outcome.Result,
		"metadata":   reqCtx.GetSummary(),
	}
	if len(outcome.Failures) > 0 {
		failed := make(map[string]string, len(outcome.Failures))
		for _, f := range outcome.Failures {
			failed[f.Provider] = f.Err.Error()
		}
		response["failed_providers"] = failed
	}
	c.JSON(http.StatusOK, response)
}

// persist hands the result to the store. The request context may already be done.
func (h *Handler) persist(ctx context.Context, reqCtx *common.RequestContext, opts common.AnalysisOptions, outcome *ai.AnalyzeOutcome) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	return h.store.SaveAnalysis(ctx, storage.AnalysisRecord{
		RequestID:     reqCtx.RequestID,
		ConsignmentID: reqCtx.ConsignmentID,
		Provider:      outcome.Provider,
		CacheHit:      outcome.CacheHit,
		Options:       opts,
		Result:        outcome.Result,
		CreatedAt:     time.Now().UTC(),
	})
}

// ProvidersHandler lists configured providers in fallback order.
func (h *Handler) ProvidersHandler(c *gin.Context) {
	registry := h.orchestrator.Registry()

	response := gin.H{
		"providers":  registry.Identities(),
		"registered": registry.Names(),
	}
	if cache := h.orchestrator.Cache(); cache != nil {
		cfg := cache.Config()
		response["cache"] = gin.H{
			"enabled":     cfg.Enabled,
			"entries":     cache.Len(),
			"ttl_ms":      cfg.TTL.Milliseconds(),
			"max_entries": cfg.MaxEntries,
		}
	}
	c.JSON(http.StatusOK, response)
}

// ClearCacheHandler purges every cached result.
func (h *Handler) ClearCacheHandler(c *gin.Context) {
	cache := h.orchestrator.Cache()
	if cache == nil {
		c.JSON(http.StatusOK, gin.H{"cleared": 0})
		return
	}

	cleared := cache.Len()
	cache.Clear()
	c.JSON(http.StatusOK, gin.H{"cleared": cleared})
}

// ConsignmentAnalysisHandler returns the latest stored analysis of a consignment.
func (h *Handler) ConsignmentAnalysisHandler(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "persistence is not configured"})
		return
	}

	record, err := h.store.LatestForConsignment(c.Request.Context(), c.Param("id"))
	if errors.Is(err, storage.ErrAnalysisNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no analysis for consignment", "consignment_id": c.Param("id")})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load analysis", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, record)
}

// HealthHandler reports liveness and how many providers can serve.
func (h *Handler) HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":               "ok",
		"service":              "trade-compliance-ocr",
		"version":              "1.0.0",
		"providers_configured": len(h.orchestrator.Registry().Configured()),
	})
}

func stepStatus(err error) string {
	if err != nil {
		return "failed"
	}
	return "success"
}
