// Package buildinfo carries the stepgraph version shown by "stepgraph
// version", the --version flag and the run view header.
//
// The Makefile stamps Version, Commit and Date with -ldflags -X. A binary
// built without them (go install ...@v1.2.3) falls back to the module version
// and VCS settings recorded by the Go toolchain; see GetInfo.
package buildinfo

// Stamped at build time via -ldflags -X.
var (
	// Version is the release version without a leading "v", or "dev".
	Version = "dev"

	// Commit is the short git commit SHA.
	Commit = "unknown"

	// Date is the UTC build timestamp in RFC3339 format.
	Date = "unknown"
)
