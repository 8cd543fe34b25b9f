// Package buildinfo carries version information stamped in at build time:
//
//	go build -ldflags "-X github.com/cleared-dev/pdfimport/internal/buildinfo.Version=v0.3.0"
package buildinfo

import "fmt"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String formats all build fields for --version output.
func String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date)
}
