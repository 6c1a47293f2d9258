package version

// Build information set by ldflags
var (
	Version = "dev"     // -X github.com/arthur-debert/rioship/internal/version.Version={{.Version}}
	Commit  = "unknown" // -X github.com/arthur-debert/rioship/internal/version.Commit={{.Commit}}
	Date    = "unknown" // -X github.com/arthur-debert/rioship/internal/version.Date={{.Date}}
)
