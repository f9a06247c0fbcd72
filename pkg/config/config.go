package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultLogLevel is the default logging level.
	DefaultLogLevel = "info"

	// DefaultDatabasePath is the default SQLite database location,
	// under the project-local hidden data directory.
	DefaultDatabasePath = ".flakeoor/flakeoor.db"

	// DefaultDashboardPath is the default dashboard output location.
	DefaultDashboardPath = ".flakeoor/dashboard.html"

	// DefaultLogsDir is the default directory for per-run NDJSON logs.
	DefaultLogsDir = ".flakeoor/logs"
)

// Config is the root configuration for flakeoor.
type Config struct {
	Global    GlobalConfig    `yaml:"global"`
	Database  DatabaseConfig  `yaml:"database"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Logs      LogsConfig      `yaml:"logs"`
}

// GlobalConfig contains global application settings.
type GlobalConfig struct {
	LogLevel string `yaml:"log_level"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Driver   string         `yaml:"driver"`
	SQLite   SQLiteConfig   `yaml:"sqlite,omitempty"`
	Postgres PostgresConfig `yaml:"postgres,omitempty"`
}

// SQLiteConfig contains SQLite-specific settings.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// PostgresConfig contains PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode,omitempty"`
}

// DashboardConfig contains dashboard rendering settings.
type DashboardConfig struct {
	OutputPath string `yaml:"output_path"`
	RunLimit   int    `yaml:"run_limit,omitempty"`
	TestLimit  int    `yaml:"test_limit,omitempty"`
}

// LogsConfig contains per-run structured log settings.
type LogsConfig struct {
	Dir string `yaml:"dir"`
}

// Load reads and parses a configuration file from the given path.
// An empty path is not an error: all settings have usable defaults.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults sets default values for unspecified configuration options.
func (c *Config) applyDefaults() {
	if c.Global.LogLevel == "" {
		c.Global.LogLevel = DefaultLogLevel
	}

	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}

	if c.Database.SQLite.Path == "" {
		c.Database.SQLite.Path = DefaultDatabasePath
	}

	if c.Database.Postgres.Port == 0 {
		c.Database.Postgres.Port = 5432
	}

	if c.Database.Postgres.SSLMode == "" {
		c.Database.Postgres.SSLMode = "disable"
	}

	if c.Dashboard.OutputPath == "" {
		c.Dashboard.OutputPath = DefaultDashboardPath
	}

	if c.Dashboard.RunLimit == 0 {
		c.Dashboard.RunLimit = 10
	}

	if c.Dashboard.TestLimit == 0 {
		c.Dashboard.TestLimit = 10
	}

	if c.Logs.Dir == "" {
		c.Logs.Dir = DefaultLogsDir
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.SQLite.Path == "" {
			return fmt.Errorf("database.sqlite.path is required")
		}
	case "postgres":
		if c.Database.Postgres.Host == "" {
			return fmt.Errorf("database.postgres.host is required")
		}

		if c.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.database is required")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	if c.Dashboard.RunLimit < 0 {
		return fmt.Errorf("dashboard.run_limit must not be negative")
	}

	if c.Dashboard.TestLimit < 0 {
		return fmt.Errorf("dashboard.test_limit must not be negative")
	}

	return nil
}
