// Package version holds taskdesk build metadata.
package version

import "fmt"

// Populated with -ldflags "-X github.com/GoCodeAlone/taskdesk/internal/version.Version=..." at release time.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// String renders the build metadata for the version command.
func String() string {
	return fmt.Sprintf("taskdesk %s (commit %s, built %s)", Version, Commit, BuildDate)
}
