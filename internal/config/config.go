package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rpggio/appcatalog/internal/domain/activity"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Transport modes.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Config defines server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Transport TransportConfig `yaml:"transport"`
	DB        DBConfig        `yaml:"db"`
	Log       LogConfig       `yaml:"log"`
	GitHub    GitHubConfig    `yaml:"github"`
	Vercel    VercelConfig    `yaml:"vercel"`
	Sync      SyncConfig      `yaml:"sync"`
	Scan      ScanConfig      `yaml:"scan"`
	Activity  ActivityConfig  `yaml:"activity"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type TransportConfig struct {
	Mode string `yaml:"mode"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type GitHubConfig struct {
	Token             string  `yaml:"token"`
	BaseURL           string  `yaml:"base_url"`
	PerPage           int     `yaml:"per_page"`
	CommitPages       int     `yaml:"commit_pages"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

type VercelConfig struct {
	Token             string  `yaml:"token"`
	TeamID            string  `yaml:"team_id"`
	BaseURL           string  `yaml:"base_url"`
	Limit             int     `yaml:"limit"`
	DeploymentPages   int     `yaml:"deployment_pages"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

type SyncConfig struct {
	Concurrency    int           `yaml:"concurrency"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	ActivityDays   int           `yaml:"activity_days"`
	MarkMissing    bool          `yaml:"mark_missing"`
}

type ScanConfig struct {
	Roots        []string `yaml:"roots"`
	OverrideFile string   `yaml:"override_file"`
	Watch        bool     `yaml:"watch"`
}

type ActivityConfig struct {
	CommitPolicy     string `yaml:"commit_policy"`
	DeploymentPolicy string `yaml:"deployment_policy"`
	DefaultDays      int    `yaml:"default_days"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	policies := activity.DefaultPolicies()
	return Config{
		Server:    ServerConfig{Host: "0.0.0.0", Port: 8080},
		Transport: TransportConfig{Mode: TransportStdio},
		DB:        DBConfig{Path: "catalog.db"},
		Log:       LogConfig{Level: "info"},
		GitHub: GitHubConfig{
			BaseURL:           "https://api.github.com",
			PerPage:           100,
			CommitPages:       3,
			RequestsPerSecond: 10,
			Burst:             5,
		},
		Vercel: VercelConfig{
			BaseURL:           "https://api.vercel.com",
			Limit:             100,
			DeploymentPages:   3,
			RequestsPerSecond: 5,
			Burst:             5,
		},
		Sync: SyncConfig{
			Concurrency:    5,
			RequestTimeout: 15 * time.Second,
			ActivityDays:   90,
			MarkMissing:    true,
		},
		Scan: ScanConfig{OverrideFile: "catalog.yaml"},
		Activity: ActivityConfig{
			CommitPolicy:     string(policies.Commit),
			DeploymentPolicy: string(policies.Deployment),
			DefaultDays:      365,
		},
	}
}

// Load reads configuration from an optional YAML file and environment
// variables, then validates it.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("CATALOG_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	str := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) error {
		v := os.Getenv(name)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		*dst = n
		return nil
	}

	str("CATALOG_SERVER_HOST", &cfg.Server.Host)
	if err := num("CATALOG_SERVER_PORT", &cfg.Server.Port); err != nil {
		return err
	}
	str("CATALOG_TRANSPORT", &cfg.Transport.Mode)
	str("CATALOG_DB_PATH", &cfg.DB.Path)
	str("CATALOG_LOG_LEVEL", &cfg.Log.Level)
	str("GITHUB_TOKEN", &cfg.GitHub.Token)
	str("VERCEL_TOKEN", &cfg.Vercel.Token)
	str("VERCEL_TEAM_ID", &cfg.Vercel.TeamID)
	if err := num("CATALOG_SYNC_CONCURRENCY", &cfg.Sync.Concurrency); err != nil {
		return err
	}
	if err := num("CATALOG_ACTIVITY_DAYS", &cfg.Sync.ActivityDays); err != nil {
		return err
	}
	if v := os.Getenv("CATALOG_REQUEST_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid CATALOG_REQUEST_TIMEOUT: %w", err)
		}
		cfg.Sync.RequestTimeout = d
	}
	if v := os.Getenv("CATALOG_SCAN_ROOTS"); v != "" {
		cfg.Scan.Roots = filepath.SplitList(v)
	}
	if v := os.Getenv("CATALOG_SCAN_WATCH"); v != "" {
		watch, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid CATALOG_SCAN_WATCH: %w", err)
		}
		cfg.Scan.Watch = watch
	}
	return nil
}

// Validate rejects configurations the server cannot start with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.DB.Path) == "" {
		return fmt.Errorf("%w: db.path is required", ErrInvalid)
	}
	if c.Sync.Concurrency <= 0 {
		return fmt.Errorf("%w: sync.concurrency must be positive", ErrInvalid)
	}
	if c.Sync.ActivityDays <= 0 || c.Sync.ActivityDays > activity.MaxDays {
		return fmt.Errorf("%w: sync.activity_days must be in 1..%d", ErrInvalid, activity.MaxDays)
	}
	if c.Activity.DefaultDays <= 0 || c.Activity.DefaultDays > activity.MaxDays {
		return fmt.Errorf("%w: activity.default_days must be in 1..%d", ErrInvalid, activity.MaxDays)
	}
	switch c.Transport.Mode {
	case TransportStdio, TransportHTTP:
	default:
		return fmt.Errorf("%w: unknown transport mode %q", ErrInvalid, c.Transport.Mode)
	}
	if _, err := c.Policies(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// Policies returns the configured re-ingestion policies.
func (c Config) Policies() (activity.Policies, error) {
	commit, err := activity.ParsePolicy(c.Activity.CommitPolicy)
	if err != nil {
		return activity.Policies{}, err
	}
	deployment, err := activity.ParsePolicy(c.Activity.DeploymentPolicy)
	if err != nil {
		return activity.Policies{}, err
	}
	return activity.Policies{Commit: commit, Deployment: deployment}, nil
}
