// Package middleware provides the HTTP middleware chain the SSO
// coordinators are embedded in.
//
// # Middleware Components
//
// Recovery: panic-to-500 conversion with logged stack traces
//
//	router.Use(middleware.Recovery(logger))
//
// RequestID: per-request UUID for log correlation
//
//	router.Use(middleware.RequestID)
//
// SessionState: session + per-request state in context
//
//	router.Use(middleware.SessionState(sessionManager, "default"))
//
// HandOff: both SSO coordinators as non-short-circuiting preprocessor steps
//
//	router.Use(middleware.HandOff(localCoordinator, remoteCoordinator))
//
// Metrics: request counters and latency histograms
//
//	router.Use(middleware.Metrics(metrics))
//
// Order matters: RequestID and SessionState must run before HandOff, which
// needs the request state in context.
package middleware
