// Package config provides centralized configuration for the gridloader
// binaries. Settings come from environment variables with defaults applied
// and are validated on startup so misconfiguration fails fast.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Ingest   IngestConfig
	Grid     GridConfig
	Fetch    FetchConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings for gridloaderd.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading a request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing a response (default: 60s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds PostgreSQL settings for the persistent record sink.
// The URL is optional: with no URL configured, ingestion results stay in
// memory.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of pooled connections (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections kept open (default: 2)
	MinConns int `env:"DB_MIN_CONNS" default:"2"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
}

// IngestConfig holds record-ingestion settings.
type IngestConfig struct {
	// KeyColumn is the column whose value keys each record. Empty means
	// the first header column.
	KeyColumn string `env:"INGEST_KEY_COLUMN"`

	// ReportEvery is the progress reporting granularity in records
	// (default: 2500)
	ReportEvery int `env:"INGEST_REPORT_EVERY" default:"2500"`

	// MaxFileSize is the maximum accepted upload size in bytes
	// (default: 100MB)
	MaxFileSize int64 `env:"INGEST_MAX_FILE_SIZE" default:"104857600"`
}

// GridConfig holds Infoblox grid master connection settings.
type GridConfig struct {
	// Host is the grid master address. Required only when a command
	// actually talks to the grid.
	Host string `env:"GRID_HOST"`

	// Port is the WAPI port (default: 443)
	Port int `env:"GRID_PORT" default:"443"`

	// Username and Password authenticate against the grid master.
	Username string `env:"GRID_USERNAME"`
	Password string `env:"GRID_PASSWORD"`

	// Version is the WAPI version to speak (default: 2.10)
	Version string `env:"GRID_WAPI_VERSION" default:"2.10"`

	// View is the DNS view records are created in (default: default)
	View string `env:"GRID_VIEW" default:"default"`

	// SSLVerify controls server certificate verification. Grid masters
	// commonly run self-signed certificates, so the default is false.
	SSLVerify bool `env:"GRID_SSL_VERIFY" default:"false"`

	// RequestTimeout is the WAPI request timeout in seconds (default: 60)
	RequestTimeout int `env:"GRID_REQUEST_TIMEOUT" default:"60"`

	// PoolConnections sizes the WAPI HTTP connection pool (default: 10)
	PoolConnections int `env:"GRID_POOL_CONNECTIONS" default:"10"`
}

// FetchConfig holds settings for the WAPI distribution archive fetcher.
type FetchConfig struct {
	// BaseURL is the grid master web directory that lists the archive.
	BaseURL string `env:"FETCH_BASE_URL"`

	// DestDir is where the archive is downloaded and extracted
	// (default: current directory)
	DestDir string `env:"FETCH_DEST_DIR" default:"."`

	// LinkPattern is the regular expression that locates the archive link
	// in the directory listing. The first capture group is the file name.
	LinkPattern string `env:"FETCH_LINK_PATTERN" default:"href=\"([^\"]*wapidoc[^\"]*\\.tar\\.gz)\""`

	// Timeout bounds the whole download (default: 5m)
	Timeout time.Duration `env:"FETCH_TIMEOUT" default:"5m"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// HasDatabase reports whether a persistent sink is configured.
func (c *Config) HasDatabase() bool {
	return c.Database.URL != ""
}

// HasGrid reports whether grid master credentials are configured.
func (c *Config) HasGrid() bool {
	return c.Grid.Host != ""
}

// String returns a safe representation of the config for logging.
// Secrets are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port))
	b.WriteString(fmt.Sprintf("Database: {URL: [MASKED], MaxConns: %d}, ", c.Database.MaxConns))
	b.WriteString(fmt.Sprintf("Ingest: {KeyColumn: %q, ReportEvery: %d}, ",
		c.Ingest.KeyColumn, c.Ingest.ReportEvery))
	b.WriteString(fmt.Sprintf("Grid: {Host: %q, Port: %d, Username: %q, Password: [MASKED], Version: %q}, ",
		c.Grid.Host, c.Grid.Port, c.Grid.Username, c.Grid.Version))
	b.WriteString(fmt.Sprintf("Fetch: {BaseURL: %q, DestDir: %q}, ", c.Fetch.BaseURL, c.Fetch.DestDir))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}", c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}
