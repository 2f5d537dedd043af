// Package version holds build information injected at link time.
package version

// Set via -ldflags "-X github.com/datalinc/formbridge/internal/version.Version=..."
var (
	Version = "dev"
	Commit  = "unknown"
)
