// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package middleware

import (
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// OTelHTTP traces requests to the /api routes. Health probes and metric
// scrapes run every few seconds and are not traced.
func OTelHTTP(serviceName string) func(http.Handler) http.Handler {
	return otelhttp.NewMiddleware(serviceName,
		otelhttp.WithFilter(func(r *http.Request) bool {
			return strings.HasPrefix(r.URL.Path, "/api/")
		}),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return "ops " + r.Method + " " + r.URL.Path
		}),
	)
}
