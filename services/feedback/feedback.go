// Copyright (C) 2026 ReasonBridge (engineering@reasonbridge.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package feedback assembles the feedback service: HTTP routing, cache
// backends, the vector store, LLM-backed analyzers, and observability
// infrastructure.
package feedback

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/reasonbridge/ReasonBridge/services/feedback/analysis"
	"github.com/reasonbridge/ReasonBridge/services/feedback/cache"
	"github.com/reasonbridge/ReasonBridge/services/feedback/datatypes"
	"github.com/reasonbridge/ReasonBridge/services/feedback/observability"
	"github.com/reasonbridge/ReasonBridge/services/feedback/routes"
	"github.com/reasonbridge/ReasonBridge/services/feedback/semcache"
	"github.com/reasonbridge/ReasonBridge/services/feedback/services"
	"github.com/reasonbridge/ReasonBridge/services/llm"
)

// =============================================================================
// Configuration
// =============================================================================

// Config holds feedback service configuration options.
//
// # Description
//
// Config centralizes all configuration for the feedback service. Values
// can be populated from environment variables, config files, or
// programmatically for testing. All fields have defaults applied by New().
type Config struct {
	// Port is the HTTP server port. Default: 12220
	Port int

	// CacheBackend selects the key-value cache backend.
	// Valid values: "redis", "badger", "none"
	// Default: "redis"
	CacheBackend string

	// RedisAddr is the Redis address for the redis cache backend.
	// Default: "localhost:6379"
	RedisAddr string

	// RedisPassword is the optional Redis password.
	RedisPassword string

	// BadgerPath is the on-disk path for the badger cache backend.
	// Default: "./data/feedback-cache"
	BadgerPath string

	// ExactTTL is the exact-match cache entry lifetime.
	// Default: 48h
	ExactTTL time.Duration

	// EmbeddingTTL is the cached-embedding lifetime.
	// Default: 168h (7 days)
	EmbeddingTTL time.Duration

	// SimilarityThreshold is the minimum similarity for a semantic hit.
	// Default: 0.95
	SimilarityThreshold float64

	// WeaviateURL is the Weaviate vector database URL.
	// If empty, the semantic cache layer is disabled.
	WeaviateURL string

	// OTelEndpoint is the OpenTelemetry collector endpoint.
	// Default: "reasonbridge-otel-collector:4317"
	OTelEndpoint string

	// GinMode sets the Gin framework mode.
	// Default: uses GIN_MODE env var or "debug"
	GinMode string
}

func applyConfigDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = 12220
	}
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = "redis"
	}
	if cfg.RedisAddr == "" {
		cfg.RedisAddr = "localhost:6379"
	}
	if cfg.BadgerPath == "" {
		cfg.BadgerPath = "./data/feedback-cache"
	}
	if cfg.ExactTTL == 0 {
		cfg.ExactTTL = cache.DefaultExactTTL
	}
	if cfg.EmbeddingTTL == 0 {
		cfg.EmbeddingTTL = cache.DefaultEmbeddingTTL
	}
	if cfg.SimilarityThreshold == 0 {
		cfg.SimilarityThreshold = semcache.DefaultSimilarityThreshold
	}
	if cfg.OTelEndpoint == "" {
		cfg.OTelEndpoint = "reasonbridge-otel-collector:4317"
	}
	return cfg
}

// =============================================================================
// Service
// =============================================================================

// Service is the feedback service lifecycle contract.
type Service interface {
	// Run starts the HTTP server and blocks until shutdown or error.
	Run() error

	// Router returns the underlying Gin engine for testing.
	Router() *gin.Engine
}

// service implements Service for production use.
//
// # Thread Safety
//
// Thread-safe after construction. All fields are read-only after New()
// returns.
type service struct {
	config         Config
	router         *gin.Engine
	pipeline       *services.FeedbackService
	kvStore        cache.KVStore
	weaviateClient *weaviate.Client
	tracerCleanup  func(context.Context)
}

var _ Service = (*service)(nil)

// New creates a feedback Service with the given configuration.
//
// # Description
//
// New initializes all components in order: tracing, metrics, the KV cache
// backend, the Weaviate client (optional), the LLM client, and the HTTP
// router. A missing Weaviate or a "none" cache backend degrades the
// corresponding cache layer rather than failing startup; only an unusable
// LLM configuration is fatal, because fresh analysis cannot run without it.
//
// # Inputs
//
//   - cfg: Service configuration. Zero values use defaults.
//
// # Outputs
//
//   - Service: Ready-to-run feedback service.
//   - error: Non-nil if initialization fails.
func New(cfg Config) (Service, error) {
	s := &service{config: applyConfigDefaults(cfg)}

	cleanup, err := s.initTracer()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}
	s.tracerCleanup = cleanup

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)

	if err := s.initKVStore(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to initialize cache backend: %w", err)
	}

	if err := s.initWeaviate(); err != nil {
		slog.Warn("Weaviate initialization failed, semantic cache disabled",
			"error", err)
		// Not fatal - continue with exact cache and fresh analysis only
	}

	llmClient, err := llm.NewOpenAIClient()
	if err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}

	s.pipeline = s.buildPipeline(llmClient, metrics)
	s.initRouter()

	return s, nil
}

// Run starts the HTTP server and blocks until shutdown or error.
func (s *service) Run() error {
	defer s.cleanup()

	addr := fmt.Sprintf(":%d", s.config.Port)
	slog.Info("Starting feedback server", "port", s.config.Port)

	return s.router.Run(addr)
}

// Router returns the underlying Gin engine for testing.
func (s *service) Router() *gin.Engine {
	return s.router
}

// =============================================================================
// Private Initialization Methods
// =============================================================================

// initTracer initializes OpenTelemetry distributed tracing.
//
// Uses an insecure gRPC connection, appropriate for internal networks.
func (s *service) initTracer() (func(context.Context), error) {
	ctx := context.Background()

	conn, err := grpc.NewClient(s.config.OTelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("feedback-service")))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))

	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	cleanup := func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}

	return cleanup, nil
}

// initKVStore creates the key-value backend for the exact-match and
// embedding caches based on CacheBackend.
func (s *service) initKVStore() error {
	switch s.config.CacheBackend {
	case "redis":
		store, err := cache.NewRedisStore(s.config.RedisAddr, s.config.RedisPassword, 0)
		if err != nil {
			return fmt.Errorf("redis at %s unavailable: %w", s.config.RedisAddr, err)
		}
		s.kvStore = store
		slog.Info("Using Redis cache backend", "addr", s.config.RedisAddr)
	case "badger":
		store, err := cache.NewBadgerStore(s.config.BadgerPath)
		if err != nil {
			return fmt.Errorf("badger at %s unavailable: %w", s.config.BadgerPath, err)
		}
		s.kvStore = store
		slog.Info("Using Badger cache backend", "path", s.config.BadgerPath)
	case "none":
		slog.Info("Caching disabled, every request runs fresh analysis")
	default:
		return fmt.Errorf("unknown cache backend %q (want redis, badger, or none)", s.config.CacheBackend)
	}
	return nil
}

// initWeaviate initializes the Weaviate vector database client.
//
// Returns nil without a client when WeaviateURL is empty; the semantic
// cache layer is simply disabled in that mode.
func (s *service) initWeaviate() error {
	weaviateURL := strings.Trim(s.config.WeaviateURL, "\"' ")

	if weaviateURL == "" || !strings.Contains(weaviateURL, "http") {
		slog.Info("Weaviate URL not configured, semantic cache disabled")
		return nil
	}

	parsedURL, err := url.Parse(weaviateURL)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		return fmt.Errorf("invalid Weaviate URL: %s", weaviateURL)
	}

	clientConf := weaviate.Config{
		Host:   parsedURL.Host,
		Scheme: parsedURL.Scheme,
	}

	s.weaviateClient, err = weaviate.NewClient(clientConf)
	if err != nil {
		return fmt.Errorf("failed to create Weaviate client: %w", err)
	}

	if err := datatypes.EnsureFeedbackSchema(s.weaviateClient); err != nil {
		s.weaviateClient = nil
		return fmt.Errorf("failed to ensure Weaviate schema: %w", err)
	}
	slog.Info("Weaviate client initialized", "url", weaviateURL)

	return nil
}

// buildPipeline wires the cache layers and orchestrator into the pipeline
// service. Layers whose backing store is absent are passed as nil and the
// pipeline skips them.
func (s *service) buildPipeline(llmClient llm.LLMClient, metrics *observability.Metrics) *services.FeedbackService {
	var exact *cache.ExactCache
	var embeddings *semcache.EmbeddingService
	var semantic *semcache.SemanticCache

	kv := s.kvStore
	if kv == nil {
		kv = cache.NewNoopStore()
	}
	exact = cache.NewExactCache(kv, s.config.ExactTTL, metrics, nil)

	if s.weaviateClient != nil {
		embedder, ok := llmClient.(llm.Embedder)
		if !ok {
			slog.Warn("LLM backend has no embedding support, semantic cache disabled")
		} else {
			embCache := cache.NewEmbeddingCache(kv, s.config.EmbeddingTTL, metrics, nil)
			embeddings = semcache.NewEmbeddingService(embedder, embCache, nil)
			store := semcache.NewWeaviateVectorStore(s.weaviateClient)
			semantic = semcache.NewSemanticCache(store, s.config.SimilarityThreshold, metrics, nil)
		}
	}

	orchestrator := analysis.NewOrchestrator([]analysis.Analyzer{
		analysis.NewToneAnalyzer(llmClient, nil),
		analysis.NewFallacyAnalyzer(llmClient, nil),
		analysis.NewClarityAnalyzer(llmClient, nil),
	}, metrics, nil)

	return services.NewFeedbackService(exact, embeddings, semantic, orchestrator, metrics, nil)
}

// initRouter sets up the Gin HTTP router with all routes.
func (s *service) initRouter() {
	if s.config.GinMode != "" {
		gin.SetMode(s.config.GinMode)
	}
	s.router = gin.Default()
	s.router.Use(otelgin.Middleware("feedback-service"))

	routes.SetupRoutes(s.router, s.pipeline)
}

// cleanup releases all resources held by the service.
func (s *service) cleanup() {
	if s.kvStore != nil {
		if err := s.kvStore.Close(); err != nil {
			slog.Warn("cache backend close error", "error", err)
		}
	}
	if s.tracerCleanup != nil {
		s.tracerCleanup(context.Background())
	}
}
