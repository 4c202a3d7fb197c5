package osm

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/NERVsystems/osmapi/pkg/core"
	"github.com/NERVsystems/osmapi/pkg/tracing"
	"github.com/NERVsystems/osmapi/pkg/wire"
)

// apiRoot is the fixed path segment between host and version
const apiRoot = "/api"

// RequestOptions are the per-call toggles of the pipeline
type RequestOptions struct {
	// UseVersion inserts the API version segment after /api
	UseVersion bool
	// UseAuth attaches the client's credentials; calls fail with
	// CREDENTIALS_NEEDED before any I/O if the client has none
	UseAuth bool
}

// Common option combinations
var (
	Unversioned   = RequestOptions{}
	Versioned     = RequestOptions{UseVersion: true}
	VersionedAuth = RequestOptions{UseVersion: true, UseAuth: true}
)

// Request describes one API call
type Request struct {
	// Operation names the call in logs, spans and metrics
	Operation string
	Method    string
	// Endpoint is relative to the API root and may carry a query string
	Endpoint string
	Body     wire.RequestBody
	Options  RequestOptions
}

// Do executes req against c and decodes a successful response with shape.
// It is the single path every façade method goes through, and is exported
// for endpoints this package has no façade for.
func Do[T any](ctx context.Context, c *Client, req Request, shape wire.Shape[T]) (T, error) {
	var zero T

	ctx, span := tracing.StartSpan(ctx, "osm."+req.Operation,
		trace.WithAttributes(tracing.CallAttributes(
			req.Operation, req.Endpoint, c.version, req.Options.UseAuth, req.Body.Kind().String(),
		)...),
	)
	defer span.End()

	logger := c.logger.With(
		"operation", req.Operation,
		"method", req.Method,
		"endpoint", req.Endpoint,
	)

	if c.hooks != nil && c.hooks.OnRequest != nil {
		c.hooks.OnRequest(req.Operation, req.Method)
	}

	start := time.Now()
	data, status, err := c.roundTrip(ctx, req)

	var result T
	if err == nil {
		result, err = decode(data, status, shape)
	}

	duration := time.Since(start)
	code := core.CodeOf(err)

	if c.hooks != nil && c.hooks.OnResponse != nil {
		c.hooks.OnResponse(req.Operation, req.Method, duration, err == nil)
	}

	if err != nil {
		if c.hooks != nil && c.hooks.OnError != nil {
			c.hooks.OnError(req.Operation, string(code))
		}
		span.RecordError(err)
		span.SetAttributes(tracing.ErrorAttributes(string(code), err)...)
		span.SetAttributes(attribute.String(tracing.AttrAPIResultCode, string(code)))
		span.SetStatus(codes.Error, string(code))

		if core.IsClientStatus(status) {
			logger.Warn("call rejected", "status", status, "code", code, "duration", duration)
		} else {
			logger.Error("call failed", "status", status, "code", code, "error", err, "duration", duration)
		}
		return zero, err
	}

	span.SetAttributes(attribute.String(tracing.AttrAPIResultCode, tracing.StatusSuccess))
	span.SetStatus(codes.Ok, "")
	logger.Debug("call succeeded", "status", status, "bytes", len(data), "duration", duration)
	return result, nil
}

// URL composes host, API root, optional version segment and endpoint
func (c *Client) URL(endpoint string, opts RequestOptions) (*url.URL, error) {
	raw := c.host + apiRoot
	if opts.UseVersion {
		raw += "/" + c.version
	}
	raw += "/" + endpoint

	u, err := url.Parse(raw)
	if err != nil {
		return nil, core.Wrap(core.CodeURL, err, "composing request URL")
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, core.Errorf(core.CodeURL, "host %q is not an absolute URL", c.host).
			WithGuidance("Use a host such as https://api.openstreetmap.org")
	}
	return u, nil
}

// roundTrip builds, authenticates and sends the request. It returns the
// body and status of any response that is not a classified client error.
func (c *Client) roundTrip(ctx context.Context, req Request) ([]byte, int, error) {
	u, err := c.URL(req.Endpoint, req.Options)
	if err != nil {
		return nil, 0, err
	}

	payload, contentType, err := req.Body.Encode()
	if err != nil {
		return nil, 0, err
	}

	var body *bytes.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	httpReq, err := newHTTPRequest(ctx, req.Method, u.String(), body)
	if err != nil {
		return nil, 0, core.Wrap(core.CodeURL, err, "building request")
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("User-Agent", c.userAgent)

	if req.Options.UseAuth {
		if err := c.creds.Apply(httpReq); err != nil {
			return nil, 0, err
		}
	}

	if err := c.waitForRateLimit(ctx, req.Operation); err != nil {
		return nil, 0, err
	}

	resp, err := core.Send(ctx, c.httpClient, httpReq, c.logger)
	if err != nil {
		return nil, 0, err
	}

	if core.IsClientStatus(resp.StatusCode) {
		text, err := core.ReadBody(resp, core.MaxErrorBodySize)
		if err != nil {
			return nil, resp.StatusCode, err
		}
		return nil, resp.StatusCode, core.StatusError(resp.StatusCode, string(text))
	}

	data, err := core.ReadBody(resp, 0)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return data, resp.StatusCode, nil
}

// newHTTPRequest keeps a nil *bytes.Reader from becoming a non-nil io.Reader
func newHTTPRequest(ctx context.Context, method, target string, body *bytes.Reader) (*http.Request, error) {
	if body == nil {
		return http.NewRequestWithContext(ctx, method, target, nil)
	}
	return http.NewRequestWithContext(ctx, method, target, body)
}

// decode turns a non-4xx response into T. Anything but 2xx is a decode
// failure so a server error never passes for an empty success.
func decode[T any](data []byte, status int, shape wire.Shape[T]) (T, error) {
	var zero T
	if status < 200 || status > 299 {
		return zero, core.Wrap(core.CodeDecode,
			&wire.UnexpectedStatusError{StatusCode: status, Body: string(data)},
			"decoding response")
	}

	v, err := shape.Decode(data)
	if err != nil {
		return zero, core.Wrap(core.CodeDecode, err, "decoding response")
	}
	return v, nil
}

// waitForRateLimit waits on the client's limiter, if any
func (c *Client) waitForRateLimit(ctx context.Context, operation string) error {
	if c.limiter == nil || c.limiter.Allow() {
		return nil
	}

	startWait := time.Now()
	tracing.AddEvent(ctx, "rate_limit_wait")

	err := c.limiter.Wait(ctx)

	waitDuration := time.Since(startWait)
	tracing.SetAttributes(ctx,
		attribute.Int64(tracing.AttrRateLimitWaitMs, waitDuration.Milliseconds()),
	)
	if c.hooks != nil && c.hooks.OnRateLimit != nil {
		c.hooks.OnRateLimit(operation, waitDuration)
	}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return core.Wrap(core.CodeTransport, err, "waiting for rate limit")
	}
	return nil
}

// endpoint formats a path relative to the API root
func endpoint(format string, args ...any) string {
	return fmt.Sprintf(format, args...)
}
