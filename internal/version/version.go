// Package version reports the devcrew release.
package version

import (
	_ "embed"
	"runtime"
	"runtime/debug"
	"strings"
)

//go:embed VERSION
var versionContent string

// Get returns the current version, with whitespace trimmed
func Get() string {
	return strings.TrimSpace(versionContent)
}

// Full returns the version with the VCS revision and Go version when the
// binary carries build info, e.g. "0.1.0 (3f2a9c1, go1.24.11)".
func Full() string {
	parts := []string{}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && s.Value != "" {
				rev := s.Value
				if len(rev) > 7 {
					rev = rev[:7]
				}
				parts = append(parts, rev)
			}
		}
	}
	parts = append(parts, runtime.Version())
	return Get() + " (" + strings.Join(parts, ", ") + ")"
}
