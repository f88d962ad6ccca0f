package neverliie

import (
	"time"

	"github.com/Liiesl/NeverLiie/config"
)

// Option configures a [PeerNode] at Boot time.
type Option func(*bootConfig)

type bootConfig struct {
	cfg          config.Config
	registryPath string
}

// WithConfig supplies an already-loaded configuration, overriding the
// defaults Boot would otherwise apply.
func WithConfig(cfg config.Config) Option {
	return func(b *bootConfig) { b.cfg = cfg }
}

// WithRegistryPath overrides the registry file location for this boot,
// taking precedence over both the default path and any path set by
// WithConfig.
func WithRegistryPath(path string) Option {
	return func(b *bootConfig) { b.registryPath = path }
}

// CallOption configures a single Call or Stream invocation.
type CallOption func(*callConfig)

type callConfig struct {
	timeout time.Duration
}

// WithTimeout bounds how long Call waits for its reply, or how long Stream
// waits for STREAM_START, before returning a [*Timeout] error. It does not
// bound iteration of a Stream once it has started. A zero timeout
// (the default) means wait indefinitely, governed only by ctx.
func WithTimeout(d time.Duration) CallOption {
	return func(c *callConfig) { c.timeout = d }
}

func resolveCallConfig(opts []CallOption) callConfig {
	var c callConfig
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
