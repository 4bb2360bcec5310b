// Copyright (C) 2026 ReasonBridge (engineering@reasonbridge.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package discussion assembles the discussion service: the SQLite store,
// the aggregation component, HTTP routing, and observability
// infrastructure.
package discussion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/reasonbridge/ReasonBridge/services/discussion/aggregation"
	"github.com/reasonbridge/ReasonBridge/services/discussion/observability"
	"github.com/reasonbridge/ReasonBridge/services/discussion/routes"
	"github.com/reasonbridge/ReasonBridge/services/discussion/storage/sqlite"
)

// Config holds discussion service configuration options.
type Config struct {
	// Port is the HTTP server port. Default: 12230
	Port int

	// DBPath is the SQLite database file path.
	// Default: "./data/discussion.db"
	DBPath string

	// OTelEndpoint is the OpenTelemetry collector endpoint.
	// Default: "reasonbridge-otel-collector:4317"
	OTelEndpoint string

	// GinMode sets the Gin framework mode.
	// Default: uses GIN_MODE env var or "debug"
	GinMode string
}

func applyConfigDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = 12230
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "./data/discussion.db"
	}
	if cfg.OTelEndpoint == "" {
		cfg.OTelEndpoint = "reasonbridge-otel-collector:4317"
	}
	return cfg
}

// Service is the discussion service lifecycle contract.
type Service interface {
	// Run starts the HTTP server and blocks until shutdown or error.
	Run() error

	// Router returns the underlying Gin engine for testing.
	Router() *gin.Engine
}

type service struct {
	config        Config
	router        *gin.Engine
	store         *sqlite.Store
	tracerCleanup func(context.Context)
}

var _ Service = (*service)(nil)

// New creates a discussion Service with the given configuration.
//
// # Description
//
// Initializes tracing, metrics, the SQLite store, the aggregation
// component, and the HTTP router. The store is required: unlike the
// feedback caches there is no degraded mode without the relational store,
// because alignment records are authoritative data.
func New(cfg Config) (Service, error) {
	s := &service{config: applyConfigDefaults(cfg)}

	cleanup, err := s.initTracer()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}
	s.tracerCleanup = cleanup

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)

	s.store, err = sqlite.NewStore(s.config.DBPath)
	if err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to open discussion store: %w", err)
	}

	agg := aggregation.NewService(s.store, s.store, metrics, nil)

	if s.config.GinMode != "" {
		gin.SetMode(s.config.GinMode)
	}
	s.router = gin.Default()
	s.router.Use(otelgin.Middleware("discussion-service"))
	routes.SetupRoutes(s.router, s.store, agg, metrics)

	return s, nil
}

// Run starts the HTTP server and blocks until shutdown or error.
func (s *service) Run() error {
	defer s.cleanup()

	addr := fmt.Sprintf(":%d", s.config.Port)
	slog.Info("Starting discussion server", "port", s.config.Port)

	return s.router.Run(addr)
}

// Router returns the underlying Gin engine for testing.
func (s *service) Router() *gin.Engine {
	return s.router
}

// initTracer initializes OpenTelemetry distributed tracing.
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
		resource.WithAttributes(semconv.ServiceNameKey.String("discussion-service")))
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

// cleanup releases all resources held by the service.
func (s *service) cleanup() {
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			slog.Warn("discussion store close error", "error", err)
		}
	}
	if s.tracerCleanup != nil {
		s.tracerCleanup(context.Background())
	}
}
