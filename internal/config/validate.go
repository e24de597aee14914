package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateWPCLI(); err != nil {
		return err
	}
	if err := c.validateImport(); err != nil {
		return err
	}
	if err := c.validateAdmin(); err != nil {
		return err
	}
	if c.Watch.SettleSeconds < 0 {
		return errors.New("watch.settle_seconds must not be negative")
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.UploadDir == "" {
		return errors.New("paths.upload_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Backend {
	case BackendWPCLI:
		return nil
	case BackendSQLite:
		if c.Store.CatalogPath == "" {
			return errors.New("store.catalog_path must be set when store.backend is sqlite")
		}
		return nil
	default:
		return fmt.Errorf("store.backend: unsupported value %q (want %s or %s)", c.Store.Backend, BackendWPCLI, BackendSQLite)
	}
}

func (c *Config) validateWPCLI() error {
	if c.WPCLI.TimeoutSeconds < 0 {
		return errors.New("wpcli.timeout_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateImport() error {
	for key, value := range map[string]string{
		"import.post_type":           c.Import.PostType,
		"import.post_status":         c.Import.PostStatus,
		"import.identifier_meta_key": c.Import.IdentifierMetaKey,
		"import.field_name":          c.Import.FieldName,
		"import.field_key":           c.Import.FieldKey,
		"import.asset_subfield":      c.Import.AssetSubfield,
		"import.title_subfield":      c.Import.TitleSubfield,
		"import.year_subfield":       c.Import.YearSubfield,
	} {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s must be set", key)
		}
	}
	switch c.Import.DuplicatePolicy {
	case DuplicateLast, DuplicateFirst, DuplicateError:
	default:
		return fmt.Errorf("import.duplicate_policy: unsupported value %q (want last, first, or error)", c.Import.DuplicatePolicy)
	}
	return nil
}

func (c *Config) validateAdmin() error {
	if c.Admin.TokenTTLMinutes < 0 {
		return errors.New("admin.token_ttl_minutes must not be negative")
	}
	if c.Admin.MaxRunsPerMinute < 0 {
		return errors.New("admin.max_runs_per_minute must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}
