package tracing

import "go.opentelemetry.io/otel/attribute"

// Attribute keys for API calls
const (
	// API call attributes
	AttrAPIOperation  = "osm.api.operation"
	AttrAPIEndpoint   = "osm.api.endpoint"
	AttrAPIVersion    = "osm.api.version"
	AttrAPIAuth       = "osm.api.auth"
	AttrAPIBodyKind   = "osm.api.body_kind"
	AttrAPIResultCode = "osm.api.result_code"

	// Rate limiting attributes
	AttrRateLimitWaitMs = "osm.ratelimit.wait_ms"

	// HTTP transport attributes
	AttrHTTPMethod     = "http.method"
	AttrHTTPURL        = "http.url"
	AttrHTTPHost       = "http.host"
	AttrHTTPStatusCode = "http.status_code"

	// Error attributes
	AttrErrorType    = "error.type"
	AttrErrorMessage = "error.message"
)

// Status values
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Helper functions for common attributes

// CallAttributes returns attributes describing one API call
func CallAttributes(operation, endpoint, version string, auth bool, bodyKind string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrAPIOperation, operation),
		attribute.String(AttrAPIEndpoint, endpoint),
		attribute.String(AttrAPIVersion, version),
		attribute.Bool(AttrAPIAuth, auth),
		attribute.String(AttrAPIBodyKind, bodyKind),
	}
}

// ErrorAttributes returns attributes for errors. errorType is usually the
// client error code.
func ErrorAttributes(errorType string, err error) []attribute.KeyValue {
	if err == nil {
		return nil
	}
	if errorType == "" {
		errorType = StatusError
	}
	return []attribute.KeyValue{
		attribute.String(AttrErrorType, errorType),
		attribute.String(AttrErrorMessage, err.Error()),
	}
}
