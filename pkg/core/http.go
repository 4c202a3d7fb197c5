package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/NERVsystems/osmapi/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MaxErrorBodySize caps how much of a 4xx body is kept for diagnostics
const MaxErrorBodySize = 1 << 20

// DefaultClient provides a pre-configured HTTP client with pooled connections
var DefaultClient = &http.Client{
	Timeout: 30 * time.Second,
	Transport: &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	},
}

// Send dispatches req once. There are no retries: a transport failure is
// returned as a CodeTransport error and the caller decides what to do.
// A response is returned for every status code.
func Send(ctx context.Context, client *http.Client, req *http.Request, logger *slog.Logger) (*http.Response, error) {
	if client == nil {
		client = DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}

	spanName := fmt.Sprintf("http.request %s %s", req.Method, req.URL.Host)
	ctx, span := tracing.StartSpan(ctx, spanName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(tracing.AttrHTTPMethod, req.Method),
			attribute.String(tracing.AttrHTTPURL, req.URL.String()),
			attribute.String(tracing.AttrHTTPHost, req.URL.Host),
		),
	)
	defer span.End()

	logger = logger.With(
		"url", req.URL.String(),
		"method", req.Method,
	)

	start := time.Now()
	resp, err := client.Do(req.WithContext(ctx))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport failure")
		logger.Error("request failed",
			"error", err,
			"duration", time.Since(start),
		)
		return nil, Wrap(CodeTransport, err, "request failed")
	}

	span.SetAttributes(
		attribute.Int(tracing.AttrHTTPStatusCode, resp.StatusCode),
		attribute.Int64("http.response.content_length", resp.ContentLength),
		attribute.String("http.response.content_type", resp.Header.Get("Content-Type")),
	)
	if resp.StatusCode >= 400 {
		span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", resp.StatusCode))
	} else {
		span.SetStatus(codes.Ok, "")
	}

	logger.Debug("response received",
		"status", resp.StatusCode,
		"content_length", resp.ContentLength,
		"content_type", resp.Header.Get("Content-Type"),
		"duration", time.Since(start),
	)
	return resp, nil
}

// ReadBody drains and closes the response body. A limit > 0 truncates the
// result to at most limit bytes. Read failures are transport errors.
func ReadBody(resp *http.Response, limit int64) ([]byte, error) {
	defer resp.Body.Close()

	var r io.Reader = resp.Body
	if limit > 0 {
		r = io.LimitReader(resp.Body, limit)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, Wrap(CodeTransport, err, "reading response body")
	}
	return data, nil
}
