// Package config loads the rotad configuration.
//
// The file is selected by the --config flag or, failing that, the
// ROTA_CONFIG environment variable. Values of the form ${VAR} or
// ${VAR:-default} in secrets and paths are expanded from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable holding the config file path.
const EnvVar = "ROTA_CONFIG"

// Storage drivers.
const (
	DriverFile     = "file"
	DriverPostgres = "postgres"
)

// Config is the rotad configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Queue   QueueConfig   `yaml:"queue"`
	Login   LoginConfig   `yaml:"login"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig configures the admin HTTP surface.
type ServerConfig struct {
	// Listen is the address the admin API binds to.
	// Default: 127.0.0.1:8080
	Listen string `yaml:"listen"`

	// BasePath prefixes every admin route.
	// Default: /admin
	BasePath string `yaml:"base_path"`

	// AdminKeyHash is the argon2id hash of the admin key. Empty leaves the
	// admin routes open.
	AdminKeyHash string `yaml:"admin_key_hash"`
}

// QueueConfig configures rotation cooldowns.
type QueueConfig struct {
	// Default: 30s
	LoginFailureCooldown time.Duration `yaml:"login_failure_cooldown"`

	// Default: 60s
	RejectionCooldown time.Duration `yaml:"rejection_cooldown"`
}

// LoginConfig describes the provider login endpoint.
type LoginConfig struct {
	URL string `yaml:"url"`

	// Default: 15s
	Timeout time.Duration `yaml:"timeout"`

	// TokenField is the dot separated path of the token in the response.
	// Default: token
	TokenField string `yaml:"token_field"`

	Headers map[string]string `yaml:"headers"`
}

// StorageConfig selects where the account document lives.
type StorageConfig struct {
	// Driver is "file" or "postgres".
	// Default: file
	Driver string `yaml:"driver"`

	// Path is the JSON document for the file driver.
	// Default: config.json
	Path string `yaml:"path"`

	// DSN is the connection string for the postgres driver.
	DSN string `yaml:"dsn"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	// Level is debug, info, warn or error.
	// Default: info
	Level string `yaml:"level"`

	// Format is text or json.
	// Default: text
	Format string `yaml:"format"`
}

// Default returns the configuration used as a base before the file is read.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:   "127.0.0.1:8080",
			BasePath: "/admin",
		},
		Queue: QueueConfig{
			LoginFailureCooldown: 30 * time.Second,
			RejectionCooldown:    60 * time.Second,
		},
		Login: LoginConfig{
			Timeout:    15 * time.Second,
			TokenField: "token",
		},
		Storage: StorageConfig{
			Driver: DriverFile,
			Path:   "config.json",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the file named by path, or by ROTA_CONFIG when path is empty.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvVar)
	}
	if path == "" {
		return nil, fmt.Errorf("no config file: pass --config or set %s", EnvVar)
	}
	return LoadFile(path)
}

// LoadFile loads configuration from a specific file path and validates it.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults, expands variables and validates.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.expandVariables()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) expandVariables() {
	c.Server.AdminKeyHash = expandVars(c.Server.AdminKeyHash)
	c.Storage.Path = expandVars(c.Storage.Path)
	c.Storage.DSN = expandVars(c.Storage.DSN)
	c.Login.URL = expandVars(c.Login.URL)
	for k, v := range c.Login.Headers {
		c.Login.Headers[k] = expandVars(v)
	}
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Login.URL == "" {
		errs = append(errs, errors.New("login.url is required"))
	}
	if c.Login.Timeout < 0 {
		errs = append(errs, errors.New("login.timeout must not be negative"))
	}
	if c.Queue.LoginFailureCooldown < 0 || c.Queue.RejectionCooldown < 0 {
		errs = append(errs, errors.New("queue cooldowns must not be negative"))
	}

	switch c.Storage.Driver {
	case DriverFile:
		if c.Storage.Path == "" {
			errs = append(errs, errors.New("storage.path is required for the file driver"))
		}
	case DriverPostgres:
		if c.Storage.DSN == "" {
			errs = append(errs, errors.New("storage.dsn is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid storage.driver: %q", c.Storage.Driver))
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("invalid log.format: %q", c.Log.Format))
	}

	return errors.Join(errs...)
}
