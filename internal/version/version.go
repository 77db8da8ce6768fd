// Package version holds build-time version information for the chefai
// binary, set via -ldflags:
//
//	go build -ldflags="-X github.com/54b3r/chefai-go/internal/version.Version=v0.3.0 \
//	                    -X github.com/54b3r/chefai-go/internal/version.Commit=abc1234 \
//	                    -X github.com/54b3r/chefai-go/internal/version.BuildDate=2026-10-18"
package version

import "fmt"

var (
	// Version is the semantic version. "dev" for local builds.
	Version = "dev"
	// Commit is the short git SHA.
	Commit = "unknown"
	// BuildDate is the UTC build date.
	BuildDate = "unknown"
)

// String renders the version line printed by `chefai version`.
func String() string {
	return fmt.Sprintf("chefai %s (commit %s, built %s)", Version, Commit, BuildDate)
}
