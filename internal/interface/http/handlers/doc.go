// Package handlers contains reusable HTTP building blocks: the composite
// health checker behind /health and /ready, and middleware.
//
// # Health Checks
//
// Checks run in parallel with a per-check timeout. Critical checks decide
// readiness; optional ones only mark the service degraded:
//
//	checker := handlers.NewCompositeHealthChecker("v1.0.0")
//	checker.AddCheck("database", handlers.NewPingCheck(store))
//	checker.AddOptionalCheck("redis", handlers.NewPingCheck(cache))
//
// # Middleware
//
//	auth := handlers.NewBasicAuth("admin", hash) // nil when disabled
//	h := handlers.Chain(
//	    handlers.SecurityHeadersMiddleware,
//	    handlers.NoCacheMiddleware,
//	    auth.Middleware,
//	)(mux)
package handlers
