// Package version exposes build metadata stamped at link time.
package version

import "fmt"

var (
	// Version is overridden via -ldflags "-X .../internal/version.Version=...".
	Version = "dev"
	// Commit is the short git revision the binary was built from.
	Commit = "unknown"
)

// GetInfo returns a single-line human-readable version string.
func GetInfo() string {
	return fmt.Sprintf("%s (%s)", Version, Commit)
}
