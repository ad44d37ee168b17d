package edupress

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/eringen/edupress/contentstore"
	"github.com/eringen/edupress/repository"
)

// Store backends selectable with StoreBackend.
const (
	BackendGitHub = "github"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Config holds all configuration for an edupress server.
type Config struct {
	Addr        string `yaml:"addr"`        // Listen address (default ":7071")
	SiteName    string `yaml:"site_name"`   // Feed title (default "EduPress")
	SiteURL     string `yaml:"site_url"`    // Public frontend URL used in feeds (default "http://localhost:3000")
	Description string `yaml:"description"` // Feed description

	StoreBackend string `yaml:"store_backend"` // github, sqlite or memory (default github)
	GitHubToken  string `yaml:"github_token"`
	GitHubRepo   string `yaml:"github_repo"`   // "owner/name"
	GitHubBranch string `yaml:"github_branch"` // default "main"
	GitHubAPIURL string `yaml:"github_api_url"`
	SQLitePath   string `yaml:"sqlite_path"` // default "data/content.db"
	AssetBaseURL string `yaml:"asset_base_url"`

	JWTSecret   string   `yaml:"jwt_secret"`
	CORSOrigins []string `yaml:"cors_origins"` // default ["*"]

	ListCacheTTL       time.Duration `yaml:"list_cache_ttl"` // 0 disables the listing cache
	MaxConflictRetries int           `yaml:"max_conflict_retries"`
	MaxUploadBytes     int64         `yaml:"max_upload_bytes"`   // default 10 MiB
	AuthFailureLimit   int           `yaml:"auth_failure_limit"` // failed tokens per minute per IP (default 10)

	EnablePprof bool   `yaml:"enable_pprof"`
	LogLevel    string `yaml:"log_level"` // debug, info, warn, error (default info)
}

func (c *Config) setDefaults() {
	if c.Addr == "" {
		c.Addr = ":7071"
	}
	if c.SiteName == "" {
		c.SiteName = "EduPress"
	}
	if c.SiteURL == "" {
		c.SiteURL = "http://localhost:3000"
	}
	if c.StoreBackend == "" {
		c.StoreBackend = BackendGitHub
	}
	if c.GitHubBranch == "" {
		c.GitHubBranch = "main"
	}
	if c.SQLitePath == "" {
		c.SQLitePath = "data/content.db"
	}
	if len(c.CORSOrigins) == 0 {
		c.CORSOrigins = []string{"*"}
	}
	if c.MaxUploadBytes == 0 {
		c.MaxUploadBytes = 10 << 20
	}
	if c.AuthFailureLimit == 0 {
		c.AuthFailureLimit = 10
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// LoadConfig builds a Config from a .env file, an optional YAML file at path
// and the process environment, in increasing order of precedence.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("Skipping .env ...", "error", err)
	}

	cfg := &Config{MaxConflictRetries: repository.DefaultConflictRetries}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"ADDR":                &c.Addr,
		"SITE_NAME":           &c.SiteName,
		"SITE_URL":            &c.SiteURL,
		"SITE_DESCRIPTION":    &c.Description,
		"STORE_BACKEND":       &c.StoreBackend,
		"GITHUB_TOKEN":        &c.GitHubToken,
		"GITHUB_REPO":         &c.GitHubRepo,
		"GITHUB_BRANCH":       &c.GitHubBranch,
		"GITHUB_API_URL":      &c.GitHubAPIURL,
		"SQLITE_PATH":         &c.SQLitePath,
		"ASSET_BASE_URL":      &c.AssetBaseURL,
		"SUPABASE_JWT_SECRET": &c.JWTSecret,
		"LOG_LEVEL":           &c.LogLevel,
	}
	for key, dst := range strs {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.CORSOrigins = origins
	}
	if v := os.Getenv("LIST_CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("LIST_CACHE_TTL: %w", err)
		}
		c.ListCacheTTL = d
	}
	ints := map[string]*int{
		"MAX_CONFLICT_RETRIES": &c.MaxConflictRetries,
		"AUTH_FAILURE_LIMIT":   &c.AuthFailureLimit,
	}
	for key, dst := range ints {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = n
		}
	}
	if v := os.Getenv("MAX_UPLOAD_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("MAX_UPLOAD_BYTES: %w", err)
		}
		c.MaxUploadBytes = n
	}
	if v := os.Getenv("ENABLE_PPROF"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("ENABLE_PPROF: %w", err)
		}
		c.EnablePprof = b
	}
	return nil
}

// Validate reports configuration the server cannot start with.
func (c *Config) Validate() error {
	errs := []error{c.ValidateStore()}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("SUPABASE_JWT_SECRET is not configured"))
	}
	return errors.Join(errs...)
}

// ValidateStore checks only the settings needed to reach the content store.
func (c *Config) ValidateStore() error {
	var errs []error
	switch c.StoreBackend {
	case BackendGitHub:
		if c.GitHubToken == "" {
			errs = append(errs, errors.New("GITHUB_TOKEN is not configured"))
		}
		if c.GitHubRepo == "" {
			errs = append(errs, errors.New("GITHUB_REPO is not configured"))
		} else if _, _, err := contentstore.ParseRepo(c.GitHubRepo); err != nil {
			errs = append(errs, err)
		}
	case BackendSQLite, BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.StoreBackend))
	}
	if c.MaxConflictRetries < 0 {
		errs = append(errs, errors.New("max conflict retries must not be negative"))
	}
	if c.MaxUploadBytes < 0 {
		errs = append(errs, errors.New("max upload bytes must not be negative"))
	}
	return errors.Join(errs...)
}

// RepoCoordinates returns the owner and name used for asset URLs. Local
// backends fall back to placeholders when no repository is configured.
func (c *Config) RepoCoordinates() (owner, name string) {
	if owner, name, err := contentstore.ParseRepo(c.GitHubRepo); err == nil {
		return owner, name
	}
	return "local", "edupress"
}
