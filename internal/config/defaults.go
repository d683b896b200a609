package config

// Build-time injected defaults via -ldflags.
// Example:
//
//	go build -ldflags "\
//	  -X 'github.com/automagik-dev/scribe/internal/config.DefaultClientID=...' \
//	  -X 'github.com/automagik-dev/scribe/internal/config.DefaultClientSecret=...'"
var (
	DefaultClientID     string
	DefaultClientSecret string
)
