// Package version holds build metadata injected via ldflags.
package version

// Set by the build via -ldflags "-X ...".
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)
