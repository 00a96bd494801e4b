// Tasteworlds - Personalized Taste Modeling and Playlist Generation
// Copyright 2026 M. Vance (mvance)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mvance/tasteworlds

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/mvance/tasteworlds/internal/logging"
	"github.com/mvance/tasteworlds/internal/metrics"
)

// requestHeaderID is the request correlation header.
const requestHeaderID = "X-Request-ID"

// requestID attaches a correlation ID to the request context and response.
// An inbound X-Request-ID is honored so upstream proxies can trace calls.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestHeaderID)
		if id == "" {
			id = logging.GenerateRequestID()
		}
		w.Header().Set(requestHeaderID, id)
		next.ServeHTTP(w, r.WithContext(logging.ContextWithRequestID(r.Context(), id)))
	})
}

// requestLogger logs each request with its route, status, and duration, and
// records the HTTP Prometheus metrics.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = r.URL.Path
		}
		elapsed := time.Since(start)

		metrics.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())

		logger := logging.Ctx(r.Context())
		logger.Debug().
			Str("method", r.Method).
			Str("route", route).
			Int("status", ww.Status()).
			Dur("duration", elapsed).
			Int("bytes", ww.BytesWritten()).
			Msg("Request handled")
	})
}
