// Package version carries build information set at link time:
//
//	go build -ldflags "-X github.com/NERVsystems/osmapi/pkg/version.BuildVersion=v0.2.0"
package version

import (
	"fmt"
	"runtime"
)

var (
	BuildVersion = "dev"
	BuildCommit  = "unknown"
	BuildDate    = "unknown"
)

// Info returns the build information as a map
func Info() map[string]string {
	return map[string]string{
		"version":    BuildVersion,
		"commit":     BuildCommit,
		"build_date": BuildDate,
		"go_version": runtime.Version(),
	}
}

// String renders the build information on one line
func String() string {
	return fmt.Sprintf("osmapi %s (commit %s, built %s, %s)", BuildVersion, BuildCommit, BuildDate, runtime.Version())
}
