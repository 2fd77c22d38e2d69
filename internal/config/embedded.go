package config

// EmbeddedOMDBKey is injected at build time via ldflags and serves as the
// default provider key. Environment variables and the config file override it.
//
// Build with:
//
//	go build -ldflags "-X 'github.com/marquee/marquee/internal/config.EmbeddedOMDBKey=xxx'"
var EmbeddedOMDBKey string
