// Package observability provides structured logging and Prometheus metrics.
//
// # Overview
//
// This package centralizes observability infrastructure: JSON logging via
// stdlib slog and metrics collection for the SSO hand-off pipeline.
//
// # Structured Logging
//
// Create logger:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.Info("server started")
//
// Context-aware logging:
//
//	logger.WithField("login_key", key).Warn("no principal found for key")
//
// # Prometheus Metrics
//
// Initialize metrics:
//
//	metrics := observability.NewMetrics(nil)
//	metrics.HandoffsTotal.WithLabelValues("local", "handed_off").Inc()
//	metrics.LoginKeysActive.Set(float64(registrySize))
//
// Expose on the health port:
//
//	mux.Handle("/metrics", metrics.Handler())
package observability
