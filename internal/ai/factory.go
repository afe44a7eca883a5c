// factory.go - Provider registry and the fallback orchestrator

package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/bosocmputer/trade_compliance_ocr/configs"
	"github.com/bosocmputer/trade_compliance_ocr/internal/common"
	"github.com/bosocmputer/trade_compliance_ocr/internal/metrics"
	"github.com/bosocmputer/trade_compliance_ocr/internal/ratelimit"
	"github.com/bosocmputer/trade_compliance_ocr/internal/storage"
)

// BuiltinFactories maps provider names to their constructors.
var BuiltinFactories = map[string]ProviderFactory{
	configs.ProviderGemini:   NewGeminiProvider,
	configs.ProviderDeepSeek: NewDeepSeekProvider,
	configs.ProviderKimi:     NewKimiProvider,
	configs.ProviderMiniMax:  NewMiniMaxProvider,
	configs.ProviderLlama:    NewLlamaProvider,
	configs.ProviderMistral:  NewMistralProvider,
}

// ============================================================================
// REGISTRY
// ============================================================================

type registration struct {
	factory  ProviderFactory
	settings ProviderSettings
	instance Provider
	limiter  *ratelimit.RateLimiter
}

// Registry holds provider factories in registration order and caches one
// instance per provider. It is safe for concurrent use.
type Registry struct {
	mu      sync.Mutex
	order   []string
	entries map[string]*registration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*registration)}
}

// NewRegistryFromConfig registers the built-in providers in the configured order.
func NewRegistryFromConfig(providers []configs.ProviderConfig) *Registry {
	r := NewRegistry()
	for _, p := range providers {
		factory, ok := BuiltinFactories[p.Name]
		if !ok {
			slog.Warn("unknown AI provider in configuration", "provider", p.Name)
			continue
		}
		r.Register(p.Name, factory, ProviderSettings{
			APIKey:            p.APIKey,
			BaseURL:           p.BaseURL,
			Model:             p.Model,
			RequestsPerMinute: p.RequestsPerMinute,
		})
	}
	return r
}

// Register adds a provider. Registering an existing name keeps its position,
// replaces the factory and settings, and drops the cached instance.
func (r *Registry) Register(name string, factory ProviderFactory, settings ProviderSettings) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.entries[name]; ok {
		closeProvider(old.instance)
	} else {
		r.order = append(r.order, name)
	}
	r.entries[name] = &registration{
		factory:  factory,
		settings: settings,
		limiter:  ratelimit.PerMinute(settings.RequestsPerMinute),
	}
}

// Names returns every registered provider in registration order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.order)
}

// Configured returns the providers that carry credentials, in registration order.
func (r *Registry) Configured() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.order))
	for _, name := range r.order {
		if r.entries[name].settings.Configured() {
			names = append(names, name)
		}
	}
	return names
}

// Get returns the provider instance, creating it on first use.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[name]
	if !ok {
		return nil, &ConfigurationError{Provider: name, Message: "provider is not registered"}
	}
	if entry.instance != nil {
		return entry.instance, nil
	}
	if !entry.settings.Configured() {
		return nil, &ConfigurationError{Provider: name, Message: "API key is not set"}
	}

	provider, err := entry.factory(entry.settings)
	if err != nil {
		return nil, err
	}
	entry.instance = provider
	return provider, nil
}

// Identities returns the identity of every configured provider in fallback order.
func (r *Registry) Identities() []ProviderIdentity {
	var ids []ProviderIdentity
	for _, name := range r.Configured() {
		p, err := r.Get(name)
		if err != nil {
			continue
		}
		ids = append(ids, p.Identity())
	}
	return ids
}

func (r *Registry) limiter(name string) *ratelimit.RateLimiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.entries[name]; ok {
		return entry.limiter
	}
	return nil
}

// Close releases every instantiated provider that holds resources.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for _, name := range r.order {
		entry := r.entries[name]
		if err := closeProvider(entry.instance); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
		entry.instance = nil
	}
	return errors.Join(errs...)
}

func closeProvider(p Provider) error {
	if c, ok := p.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// ============================================================================
// ORCHESTRATOR
// ============================================================================

// AnalyzeRequest is one analysis call. Nil overrides fall back to the orchestrator defaults.
type AnalyzeRequest struct {
	Document          string
	MimeType          string
	Options           common.AnalysisOptions
	PreferredProvider string
	UseCache          *bool
	Retry             *RetryConfig
	// CacheKeySource feeds the cache key instead of Document when set.
	// Callers that re-encode uploads pass the original bytes here.
	CacheKeySource string
}

// AnalyzeOutcome is a successful analysis.
type AnalyzeOutcome struct {
	Result *common.AnalysisResult
	// Provider is the provider that produced Result. Empty on a cache hit.
	Provider string
	CacheHit bool
	// Failures lists the providers that failed before Provider succeeded.
	Failures []ProviderFailure
}

// Orchestrator tries configured providers one at a time until one succeeds.
type Orchestrator struct {
	registry *Registry
	cache    *storage.ResultCache
	retry    RetryConfig
	metrics  *metrics.Collector
	hooks    []AttemptHook
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithMetrics records attempts, failovers and cache lookups.
func WithMetrics(c *metrics.Collector) OrchestratorOption {
	return func(o *Orchestrator) { o.metrics = c }
}

// WithAttemptHook adds an observer called after every attempt.
func WithAttemptHook(hook AttemptHook) OrchestratorOption {
	return func(o *Orchestrator) { o.hooks = append(o.hooks, hook) }
}

// NewOrchestrator creates an orchestrator. cache may be nil to disable caching.
func NewOrchestrator(registry *Registry, cache *storage.ResultCache, retry RetryConfig, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		registry: registry,
		cache:    cache,
		retry:    retry,
		hooks:    []AttemptHook{LogAttempt},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Registry returns the provider registry.
func (o *Orchestrator) Registry() *Registry {
	return o.registry
}

// Cache returns the result cache, possibly nil.
func (o *Orchestrator) Cache() *storage.ResultCache {
	return o.cache
}

// AnalyzeWithFallback analyzes a base64 document and returns the first successful result.
func (o *Orchestrator) AnalyzeWithFallback(ctx context.Context, document, mimeType string, opts common.AnalysisOptions, preferredProvider string, useCache bool) (*common.AnalysisResult, error) {
	outcome, err := o.Analyze(ctx, AnalyzeRequest{
		Document:          document,
		MimeType:          mimeType,
		Options:           opts,
		PreferredProvider: preferredProvider,
		UseCache:          &useCache,
	})
	if err != nil {
		return nil, err
	}
	return outcome.Result, nil
}

// Analyze runs the cache check and the sequential provider fallback.
func (o *Orchestrator) Analyze(ctx context.Context, req AnalyzeRequest) (*AnalyzeOutcome, error) {
	logger := common.LoggerFromContext(ctx)

	caching := o.cache != nil && o.cache.Enabled() && (req.UseCache == nil || *req.UseCache)
	var cacheKey string
	if caching {
		source := req.Document
		if req.CacheKeySource != "" {
			source = req.CacheKeySource
		}
		cacheKey = o.cache.CacheKey(source, req.Options)
		if result, ok := o.cache.Get(cacheKey); ok {
			o.metrics.ObserveCache(true)
			logger.Info("analysis served from cache", "cache_key", cacheKey)
			return &AnalyzeOutcome{Result: result, CacheHit: true}, nil
		}
		o.metrics.ObserveCache(false)
	}

	candidates := orderCandidates(o.registry.Configured(), req.PreferredProvider)
	if len(candidates) == 0 {
		return nil, ErrNoProvidersConfigured
	}

	retry := o.retry
	if req.Retry != nil {
		retry = *req.Retry
	}

	var failures []ProviderFailure
	for i, name := range candidates {
		result, err := o.tryProvider(ctx, name, retry, req)
		if err == nil {
			if caching {
				o.cache.Put(cacheKey, result)
			}
			logger.Info("analysis completed", "provider", name, "failed_providers", len(failures))
			return &AnalyzeOutcome{Result: result, Provider: name, Failures: failures}, nil
		}

		failures = append(failures, ProviderFailure{Provider: name, Err: err})
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("analysis aborted after %s: %w", name, ctxErr)
		}
		if i < len(candidates)-1 {
			o.metrics.IncFailover(name)
			logger.Warn("provider failed, falling back", "provider", name, "next", candidates[i+1], "error", err.Error())
		} else {
			logger.Error("provider failed, no providers left", "provider", name, "error", err.Error())
		}
	}

	return nil, &AggregateFailure{Failures: failures}
}

// tryProvider runs one provider through the retry wrapper.
func (o *Orchestrator) tryProvider(ctx context.Context, name string, retry RetryConfig, req AnalyzeRequest) (*common.AnalysisResult, error) {
	provider, err := o.registry.Get(name)
	if err != nil {
		return nil, err
	}
	limiter := o.registry.limiter(name)

	return WithRetry(ctx, provider.Identity(), retry, o.observeAttempt, func(ctx context.Context) (*common.AnalysisResult, error) {
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}
		result, err := provider.Analyze(ctx, req.Document, req.MimeType, req.Options)
		if err == nil && result == nil {
			return nil, &ParseError{Provider: name, Reason: "provider returned no result"}
		}
		return result, err
	})
}

func (o *Orchestrator) observeAttempt(ctx context.Context, rec AttemptRecord) {
	o.metrics.ObserveAttempt(rec.Provider, rec.Status, rec.Duration)
	for _, hook := range o.hooks {
		hook(ctx, rec)
	}
}

// orderCandidates moves preferred to the front when it is configured.
// Names match case-insensitively.
func orderCandidates(configured []string, preferred string) []string {
	if preferred == "" {
		return configured
	}
	idx := slices.IndexFunc(configured, func(name string) bool {
		return strings.EqualFold(name, preferred)
	})
	if idx <= 0 {
		return configured
	}
	ordered := make([]string, 0, len(configured))
	ordered = append(ordered, configured[idx])
	ordered = append(ordered, configured[:idx]...)
	return append(ordered, configured[idx+1:]...)
}
