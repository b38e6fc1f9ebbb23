package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jensholdgaard/cricket-auction/internal/config"
)

var envKeys = []string{
	"DATABASE_URL", "DB_DRIVER", "PORT", "API_PREFIX", "STATIC_DIR",
	"OTEL_EXPORTER_OTLP_ENDPOINT", "DISCORD_TOKEN", "DISCORD_GUILD_ID",
}

// clearEnv unsets every variable Load reads and restores them after the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	// Load looks for .env in the working directory.
	t.Chdir(t.TempDir())
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
		check   func(t *testing.T, cfg *config.Config)
	}{
		{
			name: "valid full config",
			yaml: `
database:
  host: "db.example.com"
  port: 5433
  user: "auction"
  password: "secret"
  dbname: "ipl"
  sslmode: "require"
  driver: "pgx"
server:
  port: 9090
  route_prefix: "/v1"
auction:
  initial_credits: 10000
  max_roster: 20
  teams: ["RED", "BLUE"]
telemetry:
  service_name: "my-auction"
  otlp_endpoint: "localhost:4318"
`,
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				if cfg.Database.Port != 5433 {
					t.Errorf("got db port %d, want %d", cfg.Database.Port, 5433)
				}
				if cfg.Database.Driver != config.DriverPGX {
					t.Errorf("got driver %q, want %q", cfg.Database.Driver, config.DriverPGX)
				}
				if cfg.Server.Port != 9090 {
					t.Errorf("got server port %d, want %d", cfg.Server.Port, 9090)
				}
				if cfg.Server.RoutePrefix != "/v1" {
					t.Errorf("got route prefix %q, want %q", cfg.Server.RoutePrefix, "/v1")
				}
				if cfg.Auction.InitialCredits != 10000 {
					t.Errorf("got initial credits %d, want %d", cfg.Auction.InitialCredits, 10000)
				}
				if cfg.Auction.MaxRoster != 20 {
					t.Errorf("got max roster %d, want %d", cfg.Auction.MaxRoster, 20)
				}
				if len(cfg.Auction.Teams) != 2 || cfg.Auction.Teams[1] != "BLUE" {
					t.Errorf("got teams %v, want [RED BLUE]", cfg.Auction.Teams)
				}
				if cfg.Telemetry.ServiceName != "my-auction" {
					t.Errorf("got service name %q, want %q", cfg.Telemetry.ServiceName, "my-auction")
				}
			},
		},
		{
			name: "defaults applied",
			yaml: `
discord:
  guild_id: "42"
`,
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				if cfg.Database.Host != "localhost" {
					t.Errorf("got db host %q, want %q", cfg.Database.Host, "localhost")
				}
				if cfg.Server.Port != 5000 {
					t.Errorf("got server port %d, want %d", cfg.Server.Port, 5000)
				}
				if cfg.Server.RoutePrefix != "/api" {
					t.Errorf("got route prefix %q, want %q", cfg.Server.RoutePrefix, "/api")
				}
				if cfg.Server.ShutdownTimeout != 15*time.Second {
					t.Errorf("got shutdown timeout %v, want 15s", cfg.Server.ShutdownTimeout)
				}
				if cfg.Auction.InitialCredits != 12000 {
					t.Errorf("got initial credits %d, want %d", cfg.Auction.InitialCredits, 12000)
				}
				if cfg.Auction.MaxRoster != 26 {
					t.Errorf("got max roster %d, want %d", cfg.Auction.MaxRoster, 26)
				}
				if len(cfg.Auction.Teams) != len(config.DefaultTeams) {
					t.Errorf("got %d teams, want %d", len(cfg.Auction.Teams), len(config.DefaultTeams))
				}
				if cfg.Discord.Enabled() {
					t.Error("discord should be disabled without a token")
				}
			},
		},
		{
			name:    "invalid yaml",
			yaml:    `{{{invalid`,
			wantErr: true,
		},
		{
			name: "invalid driver rejected",
			yaml: `
database:
  driver: "mongodb"
`,
			wantErr: true,
		},
		{
			name: "zero credits rejected",
			yaml: `
auction:
  initial_credits: 0
`,
			wantErr: true,
		},
		{
			name: "duplicate team rejected",
			yaml: `
auction:
  teams: ["A", "A"]
`,
			wantErr: true,
		},
		{
			name: "relative route prefix rejected",
			yaml: `
server:
  route_prefix: "api"
`,
			wantErr: true,
		},
		{
			name: "default driver is sqlx",
			yaml: `
server:
  port: 8081
`,
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				if cfg.Database.Driver != config.DriverSQLX {
					t.Errorf("got driver %q, want %q", cfg.Database.Driver, config.DriverSQLX)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			path := writeConfig(t, tt.yaml)

			cfg, err := config.Load(path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil && cfg != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestLoad_NoFile(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}
	if cfg.Server.Port != 5000 {
		t.Errorf("got server port %d, want %d", cfg.Server.Port, 5000)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	clearEnv(t)

	_, err := config.Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("expected error for nonexistent file")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/auction?sslmode=disable")
	t.Setenv("PORT", "7070")
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("API_PREFIX", "")
	t.Setenv("DISCORD_TOKEN", "tok")

	path := writeConfig(t, "server:\n  port: 9090\n")
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("got server port %d, want env override %d", cfg.Server.Port, 7070)
	}
	if cfg.Database.DSN() != "postgres://u:p@db:5432/auction?sslmode=disable" {
		t.Errorf("got DSN %q, want DATABASE_URL", cfg.Database.DSN())
	}
	if cfg.Database.Driver != config.DriverMemory {
		t.Errorf("got driver %q, want %q", cfg.Database.Driver, config.DriverMemory)
	}
	if cfg.Server.RoutePrefix != "" {
		t.Errorf("got route prefix %q, want empty", cfg.Server.RoutePrefix)
	}
	if !cfg.Discord.Enabled() {
		t.Error("discord should be enabled with DISCORD_TOKEN set")
	}
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	if err := os.WriteFile(".env", []byte("PORT=6060\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("PORT") })

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 6060 {
		t.Errorf("got server port %d, want %d from .env", cfg.Server.Port, 6060)
	}
}

func TestLoad_InvalidPortEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "not-a-number")

	if _, err := config.Load(""); err == nil {
		t.Fatal("expected error for non-numeric PORT")
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "user",
		Password: "pass",
		DBName:   "testdb",
		SSLMode:  "disable",
	}
	want := "host=localhost port=5432 user=user password=pass dbname=testdb sslmode=disable"
	if got := cfg.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}

	cfg.URL = "postgres://localhost/x"
	if got := cfg.DSN(); got != cfg.URL {
		t.Errorf("DSN() with URL = %q, want %q", got, cfg.URL)
	}
}
