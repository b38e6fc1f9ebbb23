package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Supported store drivers.
const (
	DriverSQLX   = "sqlx"
	DriverPGX    = "pgx"
	DriverMemory = "memory"
)

// DefaultTeams is the franchise roster seeded on an empty database.
var DefaultTeams = []string{
	"IMJ NINJAS",
	"IMJ IGNITORS",
	"IMJ TITANS",
	"IMJ FALCONS",
	"IMJ PHANTOMS",
	"IMJ HAWKS",
}

// Config represents the application configuration.
type Config struct {
	Database       DatabaseConfig       `yaml:"database"`
	Server         ServerConfig         `yaml:"server"`
	Auction        AuctionConfig        `yaml:"auction"`
	Discord        DiscordConfig        `yaml:"discord"`
	Telemetry      TelemetryConfig      `yaml:"telemetry"`
	LeaderElection LeaderElectionConfig `yaml:"leader_election"`
}

// DatabaseConfig holds database connection settings.
// URL, when set, takes precedence over the individual fields.
type DatabaseConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
	Driver   string `yaml:"driver"` // "sqlx", "pgx" or "memory"
	MaxConns int32  `yaml:"max_conns"`
}

// DSN returns the Postgres connection string.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	RoutePrefix     string        `yaml:"route_prefix"`
	StaticDir       string        `yaml:"static_dir"`
	CORSOrigins     []string      `yaml:"cors_origins"`
}

// AuctionConfig holds the tournament rules.
type AuctionConfig struct {
	InitialCredits int      `yaml:"initial_credits"`
	MaxRoster      int      `yaml:"max_roster"`
	Teams          []string `yaml:"teams"`
}

// DiscordConfig holds the optional Discord auctioneer settings.
type DiscordConfig struct {
	Token   string `yaml:"token"`
	GuildID string `yaml:"guild_id"`
}

// Enabled reports whether the Discord surface should be started.
func (d DiscordConfig) Enabled() bool { return d.Token != "" }

// TelemetryConfig holds OpenTelemetry settings.
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name"`
	ServiceVersion string `yaml:"service_version"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	Insecure       bool   `yaml:"insecure"`
}

// LeaderElectionConfig holds Kubernetes leader election settings.
type LeaderElectionConfig struct {
	Enabled        bool          `yaml:"enabled"`
	LeaseName      string        `yaml:"lease_name"`
	LeaseNamespace string        `yaml:"lease_namespace"`
	LeaseDuration  time.Duration `yaml:"lease_duration"`
	RenewDeadline  time.Duration `yaml:"renew_deadline"`
	RetryPeriod    time.Duration `yaml:"retry_period"`
}

// Defaults returns the configuration used when nothing is overridden.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            5000,
			ShutdownTimeout: 15 * time.Second,
			RoutePrefix:     "/api",
			CORSOrigins:     []string{"*"},
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Password: "postgres",
			DBName:   "cricket_auction",
			SSLMode:  "disable",
			Driver:   DriverSQLX,
			MaxConns: 10,
		},
		Auction: AuctionConfig{
			InitialCredits: 12000,
			MaxRoster:      26,
			Teams:          append([]string(nil), DefaultTeams...),
		},
		Telemetry: TelemetryConfig{
			ServiceName:    "auctiond",
			ServiceVersion: "0.1.0",
		},
		LeaderElection: LeaderElectionConfig{
			Enabled:        false,
			LeaseName:      "auctiond-leader",
			LeaseNamespace: "default",
			LeaseDuration:  15 * time.Second,
			RenewDeadline:  10 * time.Second,
			RetryPeriod:    2 * time.Second,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file at path,
// an optional .env file in the working directory and the process environment,
// in increasing order of precedence. An empty path skips the YAML file.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env file: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("DB_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	if v, ok := os.LookupEnv("API_PREFIX"); ok {
		c.Server.RoutePrefix = v
	}
	if v := os.Getenv("STATIC_DIR"); v != "" {
		c.Server.StaticDir = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		c.Telemetry.OTLPEndpoint = v
	}
	if v := os.Getenv("DISCORD_TOKEN"); v != "" {
		c.Discord.Token = v
	}
	if v := os.Getenv("DISCORD_GUILD_ID"); v != "" {
		c.Discord.GuildID = v
	}
	return nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	switch c.Database.Driver {
	case DriverSQLX, DriverPGX, DriverMemory:
		// valid
	default:
		return fmt.Errorf("unsupported database driver %q: must be %q, %q or %q",
			c.Database.Driver, DriverSQLX, DriverPGX, DriverMemory)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	if c.Server.RoutePrefix != "" && !strings.HasPrefix(c.Server.RoutePrefix, "/") {
		return fmt.Errorf("route prefix %q must start with /", c.Server.RoutePrefix)
	}
	if c.Auction.InitialCredits <= 0 {
		return fmt.Errorf("initial credits must be positive, got %d", c.Auction.InitialCredits)
	}
	if c.Auction.MaxRoster <= 0 {
		return fmt.Errorf("max roster must be positive, got %d", c.Auction.MaxRoster)
	}
	seen := make(map[string]struct{}, len(c.Auction.Teams))
	for _, name := range c.Auction.Teams {
		if strings.TrimSpace(name) == "" {
			return errors.New("team names must not be blank")
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("team %q listed twice", name)
		}
		seen[name] = struct{}{}
	}
	return nil
}
