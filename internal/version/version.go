// Package version carries build metadata stamped in via ldflags, e.g.
//
//	go build -ldflags "-X github.com/bulktrade/terminal-data/internal/version.Version=1.0.0 \
//	                   -X github.com/bulktrade/terminal-data/internal/version.Commit=$(git rev-parse --short HEAD)"
package version

var (
	// Version is the release tag, "dev" for local builds.
	Version = "dev"

	// Commit is the short git commit hash.
	Commit = "unknown"

	// BuildTime is the UTC build timestamp.
	BuildTime = "unknown"
)

// String renders the stamped metadata on one line for startup logs.
func String() string {
	return Version + " (" + Commit + ") built " + BuildTime
}
