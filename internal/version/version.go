// Package version exposes the build identity of a paperdock binary.
//
// The variables default to development placeholders and are overridden at
// release time:
//
//	go build -ldflags "\
//	  -X github.com/paperdock/paperdock/internal/version.Version=0.3.0 \
//	  -X github.com/paperdock/paperdock/internal/version.Commit=$(git rev-parse --short HEAD) \
//	  -X github.com/paperdock/paperdock/internal/version.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package version

import "fmt"

var (
	// Version is the release version, "dev" for local builds.
	Version = "dev"

	// Commit is the short git hash the binary was built from.
	Commit = "unknown"

	// BuildTime is the UTC build timestamp.
	BuildTime = "unknown"
)

// String renders the version line printed by the --version flags.
func String() string {
	return fmt.Sprintf("%s (%s) built %s", Version, Commit, BuildTime)
}
