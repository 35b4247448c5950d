package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration of the contact manager binaries.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	API      APIConfig
	UI       UIConfig
	Logging  LoggingConfig
}

// ServerConfig holds the settings of the HTTP servers.
type ServerConfig struct {
	Port       string
	GinLogging string
}

// DatabaseConfig holds the connection parameters of the MySQL database.
type DatabaseConfig struct {
	Host     string
	User     string
	Password string
	Name     string
}

// APIConfig holds the location of the contacts REST API consumed by the clients.
type APIConfig struct {
	URL     string
	Timeout time.Duration
}

// UIConfig holds the settings of the contact manager page.
type UIConfig struct {
	SearchDebounce time.Duration
}

// LoggingConfig holds logging specific configuration.
type LoggingConfig struct {
	Level  string
	Format string
}

// envBindings maps configuration keys to the environment variables that override them.
var envBindings = map[string]string{
	"server.port":       "PORT",
	"server.ginLogging": "GIN_LOGGING",
	"database.host":     "DBHOST",
	"database.user":     "DBUSER",
	"database.password": "DBPWD",
	"database.name":     "DBNAME",
	"api.url":           "API_URL",
	"api.timeout":       "API_TIMEOUT",
	"ui.searchDebounce": "SEARCH_DEBOUNCE",
	"logging.level":     "LOG_LEVEL",
	"logging.format":    "LOG_FORMAT",
}

// Load reads the configuration from the file at path, if path is not empty, and from the
// environment variables. Environment variables take precedence over the file.
//
// Usage example:
// > PORT=8080 DBHOST=localhost DBUSER=dirk DBPWD=bullo92 go run main.go
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// setDefaults sets default values for configuration.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.ginLogging", "on")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.name", "test")

	v.SetDefault("api.url", "http://localhost:8080")
	v.SetDefault("api.timeout", "10s")

	v.SetDefault("ui.searchDebounce", "300ms")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// RequestLogging returns false if request logging of the HTTP server was turned off with
// GIN_LOGGING=OFF.
func (s ServerConfig) RequestLogging() bool {
	return !strings.EqualFold(s.GinLogging, "off")
}
