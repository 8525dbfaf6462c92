package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	serrors "github.com/hpungsan/stopka/internal/errors"
)

// Store backend names.
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
)

// Environment variables read on top of config.json.
const (
	EnvAccessToken = "ACCESS_TOKEN"
	EnvProjectID   = "PROJECT_ID"
	EnvAPIBaseURL  = "STOPKA_API_BASE_URL"
)

// Config holds application configuration.
type Config struct {
	// AccessToken is the Asana personal access token. Only read from the
	// environment (or .env), never from config.json.
	AccessToken string `json:"-"`

	// ProjectID is the Asana project whose tasks are scanned
	ProjectID string `json:"project_id,omitempty"`

	// APIBaseURL is the Asana REST API root
	APIBaseURL string `json:"api_base_url,omitempty"`

	// Marker must appear (case-sensitive) in a task name for the task to be processed
	Marker string `json:"marker,omitempty"`

	// SnapshotDir holds one snapshot per task. Relative paths resolve against the base dir.
	SnapshotDir string `json:"snapshot_dir,omitempty"`

	// OutputDir receives the rendered HTML files. Relative paths resolve against the base dir.
	OutputDir string `json:"output_dir,omitempty"`

	// TemplateDir optionally overrides the embedded templates.
	// It must contain with_photo.html and without_photo.html.
	TemplateDir string `json:"template_dir,omitempty"`

	// Store selects the snapshot backend: "file" or "sqlite"
	Store string `json:"store,omitempty"`

	// HTTPTimeoutSeconds bounds each Asana request
	HTTPTimeoutSeconds int `json:"http_timeout_seconds,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		APIBaseURL:         "https://app.asana.com/api/1.0",
		Marker:             "STOPKA",
		SnapshotDir:        "json",
		OutputDir:          "generated",
		Store:              StoreFile,
		HTTPTimeoutSeconds: 30,
	}
}

// Load loads configuration from baseDir/config.json and baseDir/.env, then
// applies environment overrides. Missing files are not an error.
// Variables already present in the environment win over .env entries.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFile(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}

	if err := loadDotEnv(filepath.Join(baseDir, ".env")); err != nil {
		return nil, err
	}
	applyEnv(cfg)

	cfg.SnapshotDir = resolve(baseDir, cfg.SnapshotDir)
	cfg.OutputDir = resolve(baseDir, cfg.OutputDir)
	if cfg.TemplateDir != "" {
		cfg.TemplateDir = resolve(baseDir, cfg.TemplateDir)
	}

	return cfg, nil
}

// loadDotEnv loads KEY=VALUE pairs from path without overriding variables
// that are already set.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return godotenv.Load(path)
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvAccessToken)); v != "" {
		cfg.AccessToken = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvProjectID)); v != "" {
		cfg.ProjectID = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvAPIBaseURL)); v != "" {
		cfg.APIBaseURL = v
	}
}

func resolve(baseDir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs. Overlay values win when non-zero.
func Merge(base, overlay *Config) *Config {
	return &Config{
		AccessToken:        pick(overlay.AccessToken, base.AccessToken),
		ProjectID:          pick(overlay.ProjectID, base.ProjectID),
		APIBaseURL:         pick(overlay.APIBaseURL, base.APIBaseURL),
		Marker:             pick(overlay.Marker, base.Marker),
		SnapshotDir:        pick(overlay.SnapshotDir, base.SnapshotDir),
		OutputDir:          pick(overlay.OutputDir, base.OutputDir),
		TemplateDir:        pick(overlay.TemplateDir, base.TemplateDir),
		Store:              pick(overlay.Store, base.Store),
		HTTPTimeoutSeconds: pick(overlay.HTTPTimeoutSeconds, base.HTTPTimeoutSeconds),
	}
}

func pick[T comparable](overlay, base T) T {
	var zero T
	if overlay != zero {
		return overlay
	}
	return base
}

// HTTPTimeout returns the per-request timeout for the Asana client.
func (c *Config) HTTPTimeout() time.Duration {
	if c.HTTPTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// ValidateRemote checks the settings needed to talk to Asana.
// needProject is false for phases that only upload attachments.
func (c *Config) ValidateRemote(needProject bool) error {
	if c.AccessToken == "" {
		return serrors.NewInvalidRequest(EnvAccessToken + " is not set")
	}
	if needProject && c.ProjectID == "" {
		return serrors.NewInvalidRequest(EnvProjectID + " is not set")
	}
	if c.APIBaseURL == "" {
		return serrors.NewInvalidRequest("api_base_url must not be empty")
	}
	return nil
}

// ValidateStore checks the snapshot backend name.
func (c *Config) ValidateStore() error {
	switch c.Store {
	case StoreFile, StoreSQLite:
		return nil
	default:
		return serrors.NewInvalidRequest("store must be one of: file, sqlite")
	}
}
