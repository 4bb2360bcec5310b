// Copyright (C) 2026 ReasonBridge (engineering@reasonbridge.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command feedback starts the ReasonBridge feedback HTTP server.
//
// This is the main entry point for the containerized feedback service.
// It reads configuration from environment variables and starts the server.
//
// # Environment Variables
//
//   - FEEDBACK_PORT: HTTP server port (default: 12220)
//   - CACHE_BACKEND: Key-value cache backend - redis, badger, none (default: redis)
//   - REDIS_ADDR: Redis address for the redis backend (default: localhost:6379)
//   - REDIS_PASSWORD: Redis password (optional)
//   - BADGER_PATH: On-disk path for the badger backend (default: ./data/feedback-cache)
//   - FEEDBACK_CACHE_TTL_SECONDS: Exact-match cache TTL (default: 172800 = 48h)
//   - EMBEDDING_CACHE_TTL_SECONDS: Embedding cache TTL (default: 604800 = 7d)
//   - SIMILARITY_THRESHOLD: Minimum similarity for a semantic hit (default: 0.95)
//   - WEAVIATE_SERVICE_URL: Weaviate vector DB URL (optional; semantic cache off without it)
//   - OPENAI_API_KEY: API key for the LLM and embedding provider
//   - OPENAI_MODEL: Analyzer model name (default: gpt-4o-mini)
//   - EMBEDDING_MODEL_NAME: Embedding model name (default: text-embedding-3-small)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OpenTelemetry collector (default: reasonbridge-otel-collector:4317)
//
// # Usage
//
//	# Build
//	go build -o feedback ./cmd/feedback
//
//	# Run
//	./feedback
package main

import (
	"log"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/reasonbridge/ReasonBridge/services/feedback"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Build configuration from environment variables
	cfg := feedback.Config{
		Port:                getEnvInt("FEEDBACK_PORT", 12220),
		CacheBackend:        getEnvString("CACHE_BACKEND", "redis"),
		RedisAddr:           getEnvString("REDIS_ADDR", "localhost:6379"),
		RedisPassword:       os.Getenv("REDIS_PASSWORD"),
		BadgerPath:          getEnvString("BADGER_PATH", "./data/feedback-cache"),
		ExactTTL:            time.Duration(getEnvInt("FEEDBACK_CACHE_TTL_SECONDS", 172800)) * time.Second,
		EmbeddingTTL:        time.Duration(getEnvInt("EMBEDDING_CACHE_TTL_SECONDS", 604800)) * time.Second,
		SimilarityThreshold: getEnvFloat("SIMILARITY_THRESHOLD", 0.95),
		WeaviateURL:         os.Getenv("WEAVIATE_SERVICE_URL"),
		OTelEndpoint:        getEnvString("OTEL_EXPORTER_OTLP_ENDPOINT", "reasonbridge-otel-collector:4317"),
	}

	slog.Info("Starting feedback service",
		"port", cfg.Port,
		"cache_backend", cfg.CacheBackend,
		"weaviate_url", cfg.WeaviateURL,
		"similarity_threshold", cfg.SimilarityThreshold,
	)

	svc, err := feedback.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create feedback service: %v", err)
	}

	// Run the server (blocks until shutdown)
	if err := svc.Run(); err != nil {
		log.Fatalf("Feedback service error: %v", err)
	}
}

// getEnvString returns the environment variable value or a default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat returns the environment variable as float64 or a default.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
