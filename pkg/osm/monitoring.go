package osm

import (
	"time"
)

// MonitoringHooks are called around every API call made by a client.
// Any hook may be nil. Hooks run on the calling goroutine and must be safe
// for concurrent use.
type MonitoringHooks struct {
	// OnRequest is called before the call is built
	OnRequest func(operation, method string)

	// OnResponse is called once the call has finished, successfully or not
	OnResponse func(operation, method string, duration time.Duration, success bool)

	// OnRateLimit is called after the client waited on its rate limiter
	OnRateLimit func(operation string, waitTime time.Duration)

	// OnError is called with the error code of a failed call
	OnError func(operation, errorCode string)
}
