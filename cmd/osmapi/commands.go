package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/NERVsystems/osmapi/pkg/osm"
)

// command is one read-only CLI subcommand. Its result is printed as JSON.
type command struct {
	name string
	args string
	help string
	// nargs is the exact number of positional arguments
	nargs int
	run   func(ctx context.Context, c *osm.Client, args []string) (any, error)
}

var commands = []command{
	{"status", "", "supported versions, limits and policy", 0,
		func(ctx context.Context, c *osm.Client, _ []string) (any, error) {
			return c.Status(ctx)
		}},
	{"health", "", "fail unless the API and database are up", 0,
		func(ctx context.Context, c *osm.Client, _ []string) (any, error) {
			if err := c.CheckHealth(ctx); err != nil {
				return nil, err
			}
			return map[string]string{"status": "ok"}, nil
		}},
	{"node", "<id>", "fetch a node", 1, elementCommand(func(c *osm.Client) getter[osm.Node] { return c.Nodes() })},
	{"way", "<id>", "fetch a way", 1, elementCommand(func(c *osm.Client) getter[osm.Way] { return c.Ways() })},
	{"relation", "<id>", "fetch a relation", 1, elementCommand(func(c *osm.Client) getter[osm.Relation] { return c.Relations() })},
	{"changeset", "<id>", "fetch a changeset with its discussion", 1,
		func(ctx context.Context, c *osm.Client, args []string) (any, error) {
			id, err := parseID(args[0])
			if err != nil {
				return nil, err
			}
			return c.Changesets().GetWithDiscussion(ctx, id)
		}},
	{"map", "<left,bottom,right,top>", "count the elements inside a bounding box", 1,
		func(ctx context.Context, c *osm.Client, args []string) (any, error) {
			bbox, err := parseBBox(args[0])
			if err != nil {
				return nil, err
			}
			m, err := c.Map().Get(ctx, bbox)
			if err != nil {
				return nil, err
			}
			return map[string]int{
				"nodes":     len(m.Nodes()),
				"ways":      len(m.Ways()),
				"relations": len(m.Relations()),
			}, nil
		}},
	{"notes", "<left,bottom,right,top>", "list the open notes inside a bounding box", 1,
		func(ctx context.Context, c *osm.Client, args []string) (any, error) {
			bbox, err := parseBBox(args[0])
			if err != nil {
				return nil, err
			}
			return c.Notes().GetByBoundingBox(ctx, bbox, osm.NoteListOptions{})
		}},
	{"user", "<id>", "fetch a public user profile", 1,
		func(ctx context.Context, c *osm.Client, args []string) (any, error) {
			id, err := parseID(args[0])
			if err != nil {
				return nil, err
			}
			return c.Users().Get(ctx, id)
		}},
	{"whoami", "", "fetch the authenticated user's profile", 0,
		func(ctx context.Context, c *osm.Client, _ []string) (any, error) {
			return c.Users().Details(ctx)
		}},
	{"permissions", "", "list the permissions of the configured credentials", 0,
		func(ctx context.Context, c *osm.Client, _ []string) (any, error) {
			return c.Permissions().Get(ctx)
		}},
}

type getter[E any] interface {
	Get(ctx context.Context, id int64) (E, error)
}

func elementCommand[E any](facade func(*osm.Client) getter[E]) func(context.Context, *osm.Client, []string) (any, error) {
	return func(ctx context.Context, c *osm.Client, args []string) (any, error) {
		id, err := parseID(args[0])
		if err != nil {
			return nil, err
		}
		return facade(c).Get(ctx, id)
	}
}

// run executes the command named by args[0] and writes its result to out
func run(ctx context.Context, c *osm.Client, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("no command given")
	}

	for _, cmd := range commands {
		if cmd.name != args[0] {
			continue
		}
		if len(args)-1 != cmd.nargs {
			return fmt.Errorf("usage: %s %s", cmd.name, cmd.args)
		}

		result, err := cmd.run(ctx, c, args[1:])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	return fmt.Errorf("unknown command %q", args[0])
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// parseBBox parses "left,bottom,right,top"
func parseBBox(s string) (osm.BoundingBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return osm.BoundingBox{}, fmt.Errorf("bounding box %q must have four comma separated values", s)
	}

	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return osm.BoundingBox{}, fmt.Errorf("bounding box %q: %w", s, err)
		}
		v[i] = f
	}
	return osm.BoundingBox{Left: v[0], Bottom: v[1], Right: v[2], Top: v[3]}, nil
}
