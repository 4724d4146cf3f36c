// Package version holds build metadata, set with -ldflags at release time.
package version

import "fmt"

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String formats the build metadata for a version command.
func String(program string) string {
	return fmt.Sprintf("%s version %s (commit %s, built %s)", program, Version, GitSHA, BuildTime)
}

// UserAgent returns the User-Agent sent to the survey backend.
func UserAgent() string {
	return "survey.report/" + Version
}
