package httpwire

import "github.com/sirupsen/logrus"

// defaultMaxHeaderSize bounds the total bytes a Parser accepts for one
// message's first line plus headers
const defaultMaxHeaderSize = 64 * 1024

// defaultPipelineDepth is the default bound on the number of requests a
// Connection will parse ahead of the application having answered the
// oldest one.
const defaultPipelineDepth = 10

// defaultVersion is the HTTP minor version a client speaks when the
// caller hasn't overridden it: 1 for HTTP/1.1.
const defaultVersion = 1

// defaultServerName is the Host header value a client sends for
// origin-form URLs when the caller hasn't overridden it.
const defaultServerName = "localhost"

// defaultIdentifier names this engine in the User-Agent header a client
// sends and the Server header a server sends.
const defaultIdentifier = "httpwire"

// Config holds the tunables governing one Connection. Build one with
// NewConfig and the With* functional options, the pattern Go HTTP
// clients and servers commonly use for optional constructor parameters.
type Config struct {
	MaxHeaderSize int
	PipelineDepth int
	Logger        *logrus.Logger

	// Version is the HTTP minor version (0 or 1) a client-side
	// Connection speaks. Server-side Connections always echo back the
	// minor version of the request they just parsed.
	Version int
	// ServerName is the Host header value a client sends for
	// origin-form request URLs.
	ServerName string
	// Identifier names this engine in the User-Agent/Server header.
	Identifier string
}

// Option configures a Config.
type Option func(*Config)

// WithMaxHeaderSize overrides defaultMaxHeaderSize.
func WithMaxHeaderSize(n int) Option {
	return func(c *Config) { c.MaxHeaderSize = n }
}

// WithPipelineDepth overrides defaultPipelineDepth.
func WithPipelineDepth(n int) Option {
	return func(c *Config) { c.PipelineDepth = n }
}

// WithLogger attaches a structured logger; nil discards all logging.
func WithLogger(l *logrus.Logger) Option {
	return func(c *Config) { c.Logger = loggerOrDiscard(l) }
}

// WithVersion overrides defaultVersion, the HTTP minor version a
// client-side Connection speaks. Pass 0 to speak HTTP/1.0.
func WithVersion(minor int) Option {
	return func(c *Config) { c.Version = minor }
}

// WithServerName overrides defaultServerName, the Host header value a
// client sends for origin-form request URLs.
func WithServerName(name string) Option {
	return func(c *Config) { c.ServerName = name }
}

// WithIdentifier overrides defaultIdentifier, the name a client sends
// as User-Agent and a server sends as Server.
func WithIdentifier(id string) Option {
	return func(c *Config) { c.Identifier = id }
}

// NewConfig builds a Config from defaults plus opts, in order.
func NewConfig(opts ...Option) *Config {
	c := &Config{
		MaxHeaderSize: defaultMaxHeaderSize,
		PipelineDepth: defaultPipelineDepth,
		Logger:        defaultLogger,
		Version:       defaultVersion,
		ServerName:    defaultServerName,
		Identifier:    defaultIdentifier,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
