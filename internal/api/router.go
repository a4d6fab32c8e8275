// Audit Log - Compliance-Grade Event Recording and Querying
// Copyright 2026 Robert Alv (robertalv)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/robertalv/audit-log

// Package api exposes the audit engine over HTTP using the chi router.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/robertalv/audit-log/internal/audit"
	"github.com/robertalv/audit-log/internal/config"
	"github.com/robertalv/audit-log/internal/metrics"
)

// Router wires the audit engine to HTTP routes.
type Router struct {
	svc *audit.Service
	cfg config.APIConfig
}

// NewRouter creates a Router over the engine.
func NewRouter(svc *audit.Service, cfg config.APIConfig) *Router {
	return &Router{svc: svc, cfg: cfg}
}

// Setup builds the full route tree.
func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(promMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   rt.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:           300,
	}))

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Get("/live", rt.handleHealthLive)
		r.Get("/ready", rt.handleHealthReady)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if !rt.cfg.RateLimitDisabled {
			r.Use(httprate.LimitByIP(rt.cfg.RateLimitReqs, rt.cfg.RateLimitWindow))
		}

		r.Route("/events", func(r chi.Router) {
			r.Post("/", rt.handleLogEvent)
			r.Post("/change", rt.handleLogChange)
			r.Post("/bulk", rt.handleLogBulk)
			r.Post("/search", rt.handleSearch)

			r.Get("/by-actor/{actorID}", rt.handleQueryByActor)
			r.Get("/by-action/{action}", rt.handleQueryByAction)
			r.Get("/by-resource/{resourceType}/{resourceID}", rt.handleQueryByResource)
			r.Get("/by-severity/{severity}", rt.handleQueryBySeverity)

			r.Get("/{id}", rt.handleGetEvent)
		})

		r.Post("/anomalies/detect", rt.handleDetectAnomalies)
		r.Get("/stats", rt.handleStats)
		r.Post("/reports", rt.handleReport)
		r.Post("/retention/cleanup", rt.handleCleanup)
		r.Post("/backfill", rt.handleBackfill)

		r.Get("/config", rt.handleGetSettings)
		r.Patch("/config", rt.handleUpdateSettings)
	})

	return r
}

// promMiddleware records per-request metrics against the route pattern, not
// the raw path, so high-cardinality ids stay out of the label set.
func promMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics.HTTPRequestsInFlight.Inc()
		defer metrics.HTTPRequestsInFlight.Dec()

		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		pattern := chi.RouteContext(r.Context()).RoutePattern()
		if pattern == "" {
			pattern = "unmatched"
		}
		metrics.RecordHTTPRequest(r.Method, pattern, ww.Status(), time.Since(start))
	})
}

func (rt *Router) handleHealthLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) handleHealthReady(w http.ResponseWriter, _ *http.Request) {
	// The engine serves from memory and an embedded store; once constructed
	// it is ready.
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
