package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	UploadDir     string `toml:"upload_dir"`
	LettersSubdir string `toml:"letters_subdir"`
	LogDir        string `toml:"log_dir"`
}

// Store selects the record store and media importer backend.
type Store struct {
	Backend     string `toml:"backend"`
	CatalogPath string `toml:"catalog_path"`
}

// WPCLI contains configuration for the WP-CLI binary used by the wpcli backend.
type WPCLI struct {
	Binary         string `toml:"binary"`
	Path           string `toml:"path"`
	URL            string `toml:"url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Import describes which records are matched and which field receives entries.
type Import struct {
	PostType          string `toml:"post_type"`
	PostStatus        string `toml:"post_status"`
	IdentifierMetaKey string `toml:"identifier_meta_key"`
	FieldName         string `toml:"field_name"`
	FieldKey          string `toml:"field_key"`
	AssetSubfield     string `toml:"asset_subfield"`
	TitleSubfield     string `toml:"title_subfield"`
	YearSubfield      string `toml:"year_subfield"`
	DuplicatePolicy   string `toml:"duplicate_policy"`
}

// Admin contains configuration for the operator-facing import form.
type Admin struct {
	Bind            string `toml:"bind"`
	Token           string `toml:"token"`
	CSRFSecret      string `toml:"csrf_secret"`
	TokenTTLMinutes int    `toml:"token_ttl_minutes"`

	// MaxRunsPerMinute caps form submissions that start an import.
	MaxRunsPerMinute int `toml:"max_runs_per_minute"`
}

// Watch contains configuration for `import --watch`.
type Watch struct {
	// SettleSeconds is how long the directory must stay quiet before new
	// uploads are imported.
	SettleSeconds int `toml:"settle_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for auditimport.
//
// Configuration sections by subsystem:
//   - Paths: upload directory layout and log directory
//   - Store: record store / media importer backend selection
//   - WPCLI: WP-CLI binary and site location
//   - Import: post type, identifier meta key, and repeater field layout
//   - Admin: bind address, credentials, and rate limit for the import form
//   - Watch: settle delay for watch mode
//   - Logging: log format and level
type Config struct {
	Paths   Paths   `toml:"paths"`
	Store   Store   `toml:"store"`
	WPCLI   WPCLI   `toml:"wpcli"`
	Import  Import  `toml:"import"`
	Admin   Admin   `toml:"admin"`
	Watch   Watch   `toml:"watch"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("auditimport.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the CLI writes to. The upload
// directory is operator-populated and is never created here.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.Paths.LogDir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", c.Paths.LogDir, err)
	}
	if c.Store.Backend == BackendSQLite {
		dir := filepath.Dir(c.Store.CatalogPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create catalog directory %q: %w", dir, err)
		}
	}
	return nil
}

// LettersDir returns the directory scanned for a run in the given year,
// <upload_dir>/<letters_subdir>/<year>.
func (c *Config) LettersDir(now time.Time) string {
	return filepath.Join(c.Paths.UploadDir, c.Paths.LettersSubdir, strconv.Itoa(now.Year()))
}

// LockPath returns the run lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.LogDir, "auditimport.lock")
}

// LogPath returns the shared log file location.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.LogDir, "auditimport.log")
}

// WPBinary returns the WP-CLI executable name.
func (c *Config) WPBinary() string {
	if strings.TrimSpace(c.WPCLI.Binary) == "" {
		return defaultWPBinary
	}
	return c.WPCLI.Binary
}

// WPTimeout returns the per-call WP-CLI timeout; zero disables it.
func (c *Config) WPTimeout() time.Duration {
	return time.Duration(c.WPCLI.TimeoutSeconds) * time.Second
}

// WatchSettle returns the quiet period watch mode waits for after an upload.
func (c *Config) WatchSettle() time.Duration {
	return time.Duration(c.Watch.SettleSeconds) * time.Second
}

// TokenTTL returns the anti-forgery token lifetime.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.Admin.TokenTTLMinutes) * time.Minute
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
