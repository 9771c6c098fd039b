// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sysboard Contributors

// Package config loads sysboard configuration from built-in defaults, an
// optional YAML file and command-line flags, in increasing precedence.
package config

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/sysboard/sysboard/internal/auth"
	"github.com/sysboard/sysboard/internal/logging"
)

// DatabaseURLEnv names the environment variable holding the PostgreSQL URL.
// It is never read from the config file.
const DatabaseURLEnv = "DATABASE_URL"

// ConfigFlag is the flag naming the YAML config file.
const ConfigFlag = "config"

// Session store backends.
const (
	SessionStorePostgres = "postgres"
	SessionStoreMemory   = "memory"
)

// Config is the effective sysboard configuration.
type Config struct {
	HTTP      HTTPConfig      `koanf:"http" json:"http,omitempty"`
	Metrics   MetricsConfig   `koanf:"metrics" json:"metrics,omitempty"`
	Log       LogConfig       `koanf:"log" json:"log,omitempty"`
	Session   SessionConfig   `koanf:"session" json:"session,omitempty"`
	Hasher    HasherConfig    `koanf:"hasher" json:"hasher,omitempty"`
	Bootstrap BootstrapConfig `koanf:"bootstrap" json:"bootstrap,omitempty"`
	Database  DatabaseConfig  `koanf:"database" json:"database,omitempty"`

	// DatabaseURL comes from DATABASE_URL.
	DatabaseURL string `koanf:"-" json:"-"`

	raw map[string]any
}

// HTTPConfig configures the public HTTP listener.
type HTTPConfig struct {
	Addr        string   `koanf:"addr" json:"addr,omitempty" jsonschema:"description=HTTP listen address"`
	CORSOrigins []string `koanf:"cors_origins" json:"cors_origins,omitempty" jsonschema:"description=Origins allowed to make credentialed requests"`
}

// MetricsConfig configures the observability listener. An empty address
// disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr" json:"addr,omitempty" jsonschema:"description=Metrics and health listen address (empty disables)"`
}

// LogConfig configures logging.
type LogConfig struct {
	Format string `koanf:"format" json:"format,omitempty" jsonschema:"enum=json,enum=text"`
	Level  string `koanf:"level" json:"level,omitempty" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
}

// SessionConfig configures session cookies and storage.
type SessionConfig struct {
	CookieName      string        `koanf:"cookie_name" json:"cookie_name,omitempty" jsonschema:"minLength=1"`
	TTL             time.Duration `koanf:"ttl" json:"ttl,omitempty"`
	Secure          bool          `koanf:"secure" json:"secure,omitempty"`
	Store           string        `koanf:"store" json:"store,omitempty" jsonschema:"enum=postgres,enum=memory"`
	CleanupInterval time.Duration `koanf:"cleanup_interval" json:"cleanup_interval,omitempty"`
}

// HasherConfig is the argon2id work factor.
type HasherConfig struct {
	Memory  uint32 `koanf:"memory" json:"memory,omitempty" jsonschema:"minimum=8,maximum=1048576,description=Memory in KiB"`
	Time    uint32 `koanf:"time" json:"time,omitempty" jsonschema:"minimum=1,maximum=32"`
	Threads uint8  `koanf:"threads" json:"threads,omitempty" jsonschema:"minimum=1,maximum=255"`
}

// BootstrapConfig holds the credentials of the administrator created on an
// empty user table.
type BootstrapConfig struct {
	Username string `koanf:"username" json:"username,omitempty"`
	Password string `koanf:"password" json:"password,omitempty"`
}

// DatabaseConfig configures the PostgreSQL connection.
type DatabaseConfig struct {
	AutoMigrate    bool          `koanf:"auto_migrate" json:"auto_migrate,omitempty"`
	ConnectTimeout time.Duration `koanf:"connect_timeout" json:"connect_timeout,omitempty"`
}

// flagKeys maps flag names to config keys.
var flagKeys = map[string]string{
	"http-addr":                "http.addr",
	"cors-origins":             "http.cors_origins",
	"metrics-addr":             "metrics.addr",
	"log-format":               "log.format",
	"log-level":                "log.level",
	"session-cookie-name":      "session.cookie_name",
	"session-ttl":              "session.ttl",
	"session-secure":           "session.secure",
	"session-store":            "session.store",
	"session-cleanup-interval": "session.cleanup_interval",
	"hasher-memory":            "hasher.memory",
	"hasher-time":              "hasher.time",
	"hasher-threads":           "hasher.threads",
	"bootstrap-username":       "bootstrap.username",
	"bootstrap-password":       "bootstrap.password",
	"auto-migrate":             "database.auto_migrate",
	"db-connect-timeout":       "database.connect_timeout",
}

// RegisterFlags adds the config file flag and one flag per config key to fs.
// Flag defaults are the built-in defaults.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String(ConfigFlag, "", "YAML config file path")

	fs.String("http-addr", ":8000", "HTTP listen address")
	fs.StringSlice("cors-origins", []string{"http://localhost:3000"}, "allowed CORS origins")
	fs.String("metrics-addr", "127.0.0.1:9100", "metrics/health HTTP address (empty = disabled)")
	fs.String("log-format", "json", "log format (json or text)")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
	fs.String("session-cookie-name", "sysboard_session", "session cookie name")
	fs.Duration("session-ttl", 7*24*time.Hour, "session lifetime")
	fs.Bool("session-secure", false, "set the Secure attribute on the session cookie")
	fs.String("session-store", SessionStorePostgres, "session store (postgres or memory)")
	fs.Duration("session-cleanup-interval", 10*time.Minute, "expired session sweep interval (0 = disabled)")
	fs.Uint32("hasher-memory", 64*1024, "argon2id memory in KiB")
	fs.Uint32("hasher-time", 1, "argon2id iterations")
	fs.Uint8("hasher-threads", 4, "argon2id parallelism")
	fs.String("bootstrap-username", "admin", "bootstrap administrator username")
	fs.String("bootstrap-password", "admin", "bootstrap administrator password")
	fs.Bool("auto-migrate", true, "apply pending migrations on serve")
	fs.Duration("db-connect-timeout", 30*time.Second, "maximum time to wait for the database")
}

// Load builds the configuration from the flags registered by RegisterFlags.
// The file named by --config, if any, is validated against Schema before it
// is merged. DatabaseURL is read from the environment.
func Load(fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	path, err := fs.GetString(ConfigFlag)
	if err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("flag", ConfigFlag).Wrap(err)
	}
	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
		if err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
		if err := ValidateFile(data); err != nil {
			return nil, oops.Code("CONFIG_INVALID").With("path", path).Wrap(err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
	}

	// Unchanged flags only fill keys the file left unset.
	if err := k.Load(posflag.ProviderWithFlag(fs, ".", k, flagValue(fs)), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "unmarshal").Wrap(err)
	}
	cfg.DatabaseURL = os.Getenv(DatabaseURLEnv)
	cfg.raw = k.Raw()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func flagValue(fs *pflag.FlagSet) func(f *pflag.Flag) (string, any) {
	return func(f *pflag.Flag) (string, any) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return "", nil
		}
		return key, posflag.FlagVal(fs, f)
	}
}

// Validate checks the configuration values. Violations are collected and
// reported together.
func (c *Config) Validate() error {
	var problems []string

	if c.HTTP.Addr == "" {
		problems = append(problems, "http.addr is required")
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		problems = append(problems, "log.format must be 'json' or 'text'")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		problems = append(problems, "log.level must be one of debug, info, warn, error")
	}
	if c.Session.CookieName == "" {
		problems = append(problems, "session.cookie_name is required")
	}
	if c.Session.TTL <= 0 {
		problems = append(problems, "session.ttl must be positive")
	}
	if c.Session.Store != SessionStorePostgres && c.Session.Store != SessionStoreMemory {
		problems = append(problems, "session.store must be 'postgres' or 'memory'")
	}
	if c.Session.CleanupInterval < 0 {
		problems = append(problems, "session.cleanup_interval cannot be negative")
	}
	if c.Hasher.Time == 0 {
		problems = append(problems, "hasher.time must be at least 1")
	}
	if c.Hasher.Threads == 0 {
		problems = append(problems, "hasher.threads must be at least 1")
	}
	if c.Hasher.Memory < 8*uint32(c.Hasher.Threads) {
		problems = append(problems, "hasher.memory must be at least 8 KiB per thread")
	}
	if c.Hasher.Memory > auth.MaxArgon2Memory {
		problems = append(problems, fmt.Sprintf("hasher.memory must be at most %d KiB", auth.MaxArgon2Memory))
	}
	if c.Hasher.Time > auth.MaxArgon2Time {
		problems = append(problems, fmt.Sprintf("hasher.time must be at most %d", auth.MaxArgon2Time))
	}
	if c.Database.ConnectTimeout <= 0 {
		problems = append(problems, "database.connect_timeout must be positive")
	}

	if len(problems) > 0 {
		return oops.Code("CONFIG_INVALID").
			With("problems", problems).
			Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// RequireDatabase reports an error when no database URL is configured.
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return oops.Code("CONFIG_INVALID").
			With("env", DatabaseURLEnv).
			Errorf("%s is required", DatabaseURLEnv)
	}
	return nil
}

// WriteYAML writes the effective configuration as YAML. The bootstrap
// password is masked and the database URL is omitted.
func (c *Config) WriteYAML(w io.Writer) error {
	out := make(map[string]any, len(c.raw))
	for k, v := range c.raw {
		out[k] = v
	}
	if b, ok := out["bootstrap"].(map[string]any); ok {
		masked := make(map[string]any, len(b))
		for k, v := range b {
			masked[k] = v
		}
		if p, _ := masked["password"].(string); p != "" {
			masked["password"] = "********"
		}
		out["bootstrap"] = masked
	}

	enc := yamlv3.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return oops.Code("CONFIG_RENDER_FAILED").Wrap(err)
	}
	return oops.Code("CONFIG_RENDER_FAILED").Wrap(enc.Close())
}
