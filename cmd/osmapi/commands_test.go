package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/NERVsystems/osmapi/pkg/core"
	"github.com/NERVsystems/osmapi/pkg/osm"
)

func testClient(t *testing.T, handler http.HandlerFunc) *osm.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return osm.NewClient(server.URL, core.NoCredentials(),
		osm.WithHTTPClient(server.Client()),
		osm.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func TestParseBBox(t *testing.T) {
	got, err := parseBBox("-0.5, 51,0.5,52")
	if err != nil {
		t.Fatalf("parseBBox: %v", err)
	}
	want := osm.BoundingBox{Left: -0.5, Bottom: 51, Right: 0.5, Top: 52}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}

	for _, bad := range []string{"", "1,2,3", "1,2,3,x"} {
		if _, err := parseBBox(bad); err == nil {
			t.Errorf("parseBBox(%q) succeeded", bad)
		}
	}
}

func TestParseID(t *testing.T) {
	if id, err := parseID("42"); err != nil || id != 42 {
		t.Errorf("parseID(42) = %d, %v", id, err)
	}
	for _, bad := range []string{"0", "-1", "abc"} {
		if _, err := parseID(bad); err == nil {
			t.Errorf("parseID(%q) succeeded", bad)
		}
	}
}

func TestRunNode(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/0.6/node/7" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		io.WriteString(w, `<osm><node id="7" version="1" lat="1.5" lon="2.5"><tag k="name" v="Here"/></node></osm>`)
	})

	var out bytes.Buffer
	if err := run(context.Background(), c, []string{"node", "7"}, &out); err != nil {
		t.Fatalf("run: %v", err)
	}

	var node osm.Node
	if err := json.Unmarshal(out.Bytes(), &node); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	if node.ID != 7 || node.Lat != 1.5 || len(node.Tags) != 1 {
		t.Errorf("unexpected node %+v", node)
	}
}

func TestRunMapCounts(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<osm><bounds minlat="0" minlon="0" maxlat="1" maxlon="1"/>
<node id="1" lat="0" lon="0"/><node id="2" lat="1" lon="1"/><way id="3"><nd ref="1"/><nd ref="2"/></way></osm>`)
	})

	var out bytes.Buffer
	if err := run(context.Background(), c, []string{"map", "0,0,1,1"}, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	var counts map[string]int
	if err := json.Unmarshal(out.Bytes(), &counts); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if counts["nodes"] != 2 || counts["ways"] != 1 || counts["relations"] != 0 {
		t.Errorf("counts = %v", counts)
	}
}

func TestRunErrors(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	ctx := context.Background()

	if err := run(ctx, c, nil, io.Discard); err == nil {
		t.Error("expected an error without a command")
	}
	if err := run(ctx, c, []string{"frobnicate"}, io.Discard); err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Errorf("unexpected error %v", err)
	}
	if err := run(ctx, c, []string{"node"}, io.Discard); err == nil || !strings.Contains(err.Error(), "usage") {
		t.Errorf("unexpected error %v", err)
	}
	if err := run(ctx, c, []string{"node", "7"}, io.Discard); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
	if err := run(ctx, c, []string{"whoami"}, io.Discard); !errors.Is(err, core.ErrCredentialsNeeded) {
		t.Errorf("expected CREDENTIALS_NEEDED, got %v", err)
	}
}

func TestCredentialsFromEnv(t *testing.T) {
	t.Setenv(envUser, "")
	if !credentialsFromEnv().IsNone() {
		t.Error("expected no credentials without a user")
	}

	t.Setenv(envUser, "fred")
	t.Setenv(envPassword, "secret")
	creds := credentialsFromEnv()
	if creds.IsNone() || creds.Username() != "fred" {
		t.Errorf("unexpected credentials %v", creds)
	}
}
