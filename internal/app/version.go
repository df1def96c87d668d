package app

// Build-time variables set via -ldflags, e.g.
//
//	go build -ldflags "-X github.com/eurec4a/twinotter/internal/app.Version=v0.3.0"
var (
	Version = "dev"
	BuiltAt = "unknown"
)
