// Package version provide information about the build version
package version

import (
	"runtime/debug"
)

// Version is the semantic version of the build.
// The value is set when building the binary with -ldflags "-X ...version.Version=v1.2.3"
var Version = "" //nolint:gochecknoglobals

// Current returns the version of the running binary. If it was not set at build time, the
// version of the main module is used. Returns "(devel)" for local builds.
func Current() string {
	if Version != "" {
		return Version
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok || bi.Main.Version == "" {
		return "(devel)"
	}

	return bi.Main.Version
}

// UserAgent returns the user agent used in the requests to the EVE-NG API
func UserAgent() string {
	return "eve-link-manager/" + Current()
}
