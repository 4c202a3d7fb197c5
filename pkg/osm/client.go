// Package osm is a typed client for the OpenStreetMap editing API v0.6.
//
// A Client is built once from a host and credentials and is safe for
// concurrent use. Resource façades (Nodes, Changesets, Notes, ...) are
// cheap values sharing the client.
package osm

import (
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"github.com/NERVsystems/osmapi/pkg/core"
)

const (
	// DefaultUserAgent is the default User-Agent string
	DefaultUserAgent = "osmapi/0.1.0"

	// DefaultVersion is the API version segment used unless WithVersion is given
	DefaultVersion = "0.6"

	// DefaultHost is the public OpenStreetMap API
	DefaultHost = "https://api.openstreetmap.org"
)

// Client holds everything a call needs: host, API version, credentials and
// transport. It is immutable after NewClient returns.
type Client struct {
	host       string
	version    string
	creds      core.Credentials
	httpClient *http.Client
	logger     *slog.Logger
	userAgent  string
	limiter    *rate.Limiter
	hooks      *MonitoringHooks
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient uses an externally configured HTTP client as transport
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithVersion overrides the API version path segment
func WithVersion(version string) Option {
	return func(c *Client) {
		c.version = strings.Trim(version, "/")
	}
}

// WithUserAgent sets the User-Agent sent with every request
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithLogger sets the logger for the client
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRateLimiter makes every call wait on limiter before it is sent.
// Clients are not rate limited by default.
func WithRateLimiter(limiter *rate.Limiter) Option {
	return func(c *Client) {
		c.limiter = limiter
	}
}

// WithRateLimit is WithRateLimiter for a fresh limiter
func WithRateLimit(rps float64, burst int) Option {
	return WithRateLimiter(rate.NewLimiter(rate.Limit(rps), burst))
}

// WithHooks installs monitoring hooks called around every call
func WithHooks(hooks *MonitoringHooks) Option {
	return func(c *Client) {
		c.hooks = hooks
	}
}

// NewClient creates a client for host, for example
// "https://api.openstreetmap.org". Use core.NoCredentials() for anonymous,
// read-only use.
func NewClient(host string, creds core.Credentials, opts ...Option) *Client {
	c := &Client{
		host:       strings.TrimRight(host, "/"),
		version:    DefaultVersion,
		creds:      creds,
		httpClient: core.DefaultClient,
		logger:     slog.Default(),
		userAgent:  DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.logger = c.logger.With("component", "osm", "host", c.host)
	c.logger.Debug("client created",
		"version", c.version,
		"credentials", c.creds,
		"rate_limited", c.limiter != nil,
	)
	return c
}

// Host returns the configured host
func (c *Client) Host() string {
	return c.host
}

// Version returns the API version segment
func (c *Client) Version() string {
	return c.version
}

// HasCredentials reports whether the client can make authenticated calls
func (c *Client) HasCredentials() bool {
	return !c.creds.IsNone()
}

// Capabilities returns the capabilities façade
func (c *Client) Capabilities() CapabilitiesAPI { return CapabilitiesAPI{client: c} }

// Versions returns the versions façade
func (c *Client) Versions() VersionsAPI { return VersionsAPI{client: c} }

// Map returns the map data façade
func (c *Client) Map() MapAPI { return MapAPI{client: c} }

// Permissions returns the permissions façade
func (c *Client) Permissions() PermissionsAPI { return PermissionsAPI{client: c} }

// Nodes returns the node façade
func (c *Client) Nodes() NodesAPI { return NodesAPI{Elements: newElements[Node](c)} }

// Ways returns the way façade
func (c *Client) Ways() Elements[Way] { return newElements[Way](c) }

// Relations returns the relation façade
func (c *Client) Relations() Elements[Relation] { return newElements[Relation](c) }

// Changesets returns the changeset façade
func (c *Client) Changesets() ChangesetsAPI { return ChangesetsAPI{client: c} }

// Notes returns the notes façade
func (c *Client) Notes() NotesAPI { return NotesAPI{client: c} }

// Users returns the user façade
func (c *Client) Users() UsersAPI { return UsersAPI{client: c} }

// GPS returns the GPS traces façade
func (c *Client) GPS() GPSAPI { return GPSAPI{client: c} }
