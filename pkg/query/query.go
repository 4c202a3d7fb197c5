// Package query lowers structured query parameters into the canonical
// query-string dialect of the OpenStreetMap API.
//
// Callers describe a request as a raw record: a struct whose string fields
// carry `schema:"key,omitempty"` tags. An empty field is absent and emits
// no key. Keys are emitted in sorted order, so encoding is deterministic.
package query

import (
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/schema"

	"github.com/NERVsystems/osmapi/pkg/core"
)

var encoder = newEncoder()

func newEncoder() *schema.Encoder {
	enc := schema.NewEncoder()
	enc.RegisterEncoder(float64(0), func(v reflect.Value) string {
		return FormatFloat(v.Float())
	})
	return enc
}

// Values encodes a raw record into url.Values
func Values(record any) (url.Values, error) {
	values := url.Values{}
	if record == nil {
		return values, nil
	}
	if err := encoder.Encode(record, values); err != nil {
		return nil, err
	}
	return values, nil
}

// Encode encodes a raw record into a query string without the leading '?'.
// A record with every field absent encodes to "".
func Encode(record any) (string, error) {
	values, err := Values(record)
	if err != nil {
		return "", core.Wrap(core.CodeQueryEncode, err, "encoding query")
	}
	return values.Encode(), nil
}

// Join appends an encoded query string to an endpoint path. An empty query
// leaves the endpoint untouched.
func Join(endpoint, encoded string) string {
	if encoded == "" {
		return endpoint
	}
	return endpoint + "?" + encoded
}

// Build encodes record and appends the result to endpoint
func Build(endpoint string, record any) (string, error) {
	encoded, err := Encode(record)
	if err != nil {
		return "", err
	}
	return Join(endpoint, encoded), nil
}

// FormatFloat formats f with the shortest representation that round-trips
func FormatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// BBox renders a bounding box as "left,bottom,right,top" without changing
// the precision of any coordinate
func BBox(left, bottom, right, top float64) string {
	return strings.Join([]string{
		FormatFloat(left),
		FormatFloat(bottom),
		FormatFloat(right),
		FormatFloat(top),
	}, ",")
}

// FormatTime formats t the way the API expects timestamps in queries
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// IDList comma-joins ids, keeping input order and duplicates
func IDList[T ~int64 | ~uint64 | ~int](ids []T) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(int64(id), 10)
	}
	return strings.Join(parts, ",")
}

// Bool renders an optional flag. nil is absent.
func Bool(b *bool) string {
	if b == nil {
		return ""
	}
	return strconv.FormatBool(*b)
}

// Int renders an optional number. nil is absent.
func Int(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}

// TimeRange lowers a (start, end) pair into a single field: absent when
// neither bound is set, "start" with only the start, "start,end" with both.
// An end without a start has no representation and is rejected.
func TimeRange(start, end *time.Time) (string, error) {
	switch {
	case start == nil && end == nil:
		return "", nil
	case start == nil:
		return "", core.NewError(core.CodeQueryEncode, "time range has an end but no start").
			WithGuidance("Set the start bound, or drop the end bound")
	case end == nil:
		return FormatTime(*start), nil
	default:
		return FormatTime(*start) + "," + FormatTime(*end), nil
	}
}
