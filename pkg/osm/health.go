package osm

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/NERVsystems/osmapi/pkg/core"
)

// healthCheckTimeout bounds CheckHealth when the caller set no deadline
const healthCheckTimeout = 10 * time.Second

// Status summarizes what a server supports
type Status struct {
	Versions     []string
	Capabilities Capabilities
	Policy       Policy
	// Supported reports whether the client's version is among Versions
	Supported bool
}

// Status fetches the supported versions and the capabilities concurrently
func (c *Client) Status(ctx context.Context) (Status, error) {
	var (
		versions []string
		caps     CapabilitiesAndPolicy
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		versions, err = c.Versions().Get(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		caps, err = c.Capabilities().Get(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Status{}, err
	}

	status := Status{
		Versions:     versions,
		Capabilities: caps.Capabilities,
		Policy:       caps.Policy,
	}
	for _, v := range versions {
		if v == c.version {
			status.Supported = true
			break
		}
	}
	return status, nil
}

// CheckHealth returns nil when the server's API and database are up,
// including read-only mode
func (c *Client) CheckHealth(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, healthCheckTimeout)
		defer cancel()
	}

	caps, err := c.Capabilities().Get(ctx)
	if err != nil {
		return err
	}

	s := caps.Capabilities.Status
	if s.API == StateOffline || s.Database == StateOffline {
		return core.Errorf(core.CodeUnavailable, "server unavailable: api %s, database %s", s.API, s.Database).
			WithGuidance("The server is in maintenance; retry later")
	}
	return nil
}
