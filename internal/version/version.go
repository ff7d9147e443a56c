// Package version holds build-time version information.
package version

// Version is the semantic version, overridden at build time via
// -ldflags "-X github.com/owenmorgan/calbot/internal/version.Version=...".
var Version = "0.1.0-dev"

// Commit is the git commit hash, set at build time.
var Commit = "unknown"

// Info returns a human-readable version string.
func Info() string {
	return "calbot " + Version + " (" + Commit + ")"
}
