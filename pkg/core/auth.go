package core

import (
	"log/slog"
	"net/http"
)

const redacted = "[REDACTED]"

// Credentials are the HTTP Basic credentials a client sends on calls that
// require authentication. The zero value carries no credentials.
type Credentials struct {
	username string
	password string
	basic    bool
}

// BasicAuth returns credentials for HTTP Basic authentication
func BasicAuth(username, password string) Credentials {
	return Credentials{
		username: username,
		password: password,
		basic:    true,
	}
}

// NoCredentials returns credentials for anonymous, read-only use
func NoCredentials() Credentials {
	return Credentials{}
}

// IsNone reports whether c carries no credentials
func (c Credentials) IsNone() bool {
	return !c.basic
}

// Username returns the configured user name, or "" for NoCredentials
func (c Credentials) Username() string {
	return c.username
}

// Apply attaches the credentials to req. It fails with CodeCredentialsNeeded
// when c carries no credentials, so a call that demands authentication is
// never sent anonymously.
func (c Credentials) Apply(req *http.Request) error {
	if c.IsNone() {
		return NewError(CodeCredentialsNeeded, "this call requires authentication").
			WithGuidance("Construct the client with BasicAuth credentials")
	}
	req.SetBasicAuth(c.username, c.password)
	return nil
}

// String implements fmt.Stringer without exposing the password
func (c Credentials) String() string {
	if c.IsNone() {
		return "none"
	}
	return "basic(" + c.username + ", " + redacted + ")"
}

// LogValue implements slog.LogValuer without exposing the password
func (c Credentials) LogValue() slog.Value {
	if c.IsNone() {
		return slog.StringValue("none")
	}
	return slog.GroupValue(
		slog.String("type", "basic"),
		slog.String("username", c.username),
		slog.String("password", redacted),
	)
}
