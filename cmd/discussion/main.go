// Copyright (C) 2026 ReasonBridge (engineering@reasonbridge.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command discussion starts the ReasonBridge discussion HTTP server.
//
// It serves alignment mutations and proposition aggregate reads, backed by
// an embedded SQLite database.
//
// # Environment Variables
//
//   - DISCUSSION_PORT: HTTP server port (default: 12230)
//   - DISCUSSION_DB_PATH: SQLite database path (default: ./data/discussion.db)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OpenTelemetry collector (default: reasonbridge-otel-collector:4317)
//
// # Usage
//
//	# Build
//	go build -o discussion ./cmd/discussion
//
//	# Run
//	./discussion
package main

import (
	"log"
	"log/slog"
	"os"
	"strconv"

	"github.com/reasonbridge/ReasonBridge/services/discussion"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Build configuration from environment variables
	cfg := discussion.Config{
		Port:         getEnvInt("DISCUSSION_PORT", 12230),
		DBPath:       getEnvString("DISCUSSION_DB_PATH", "./data/discussion.db"),
		OTelEndpoint: getEnvString("OTEL_EXPORTER_OTLP_ENDPOINT", "reasonbridge-otel-collector:4317"),
	}

	slog.Info("Starting discussion service",
		"port", cfg.Port,
		"db_path", cfg.DBPath,
	)

	svc, err := discussion.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create discussion service: %v", err)
	}

	// Run the server (blocks until shutdown)
	if err := svc.Run(); err != nil {
		log.Fatalf("Discussion service error: %v", err)
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
