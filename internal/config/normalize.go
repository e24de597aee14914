package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeStore(); err != nil {
		return err
	}
	c.normalizeWPCLI()
	c.normalizeImport()
	c.normalizeAdmin()
	c.normalizeWatch()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.UploadDir) == "" {
		c.Paths.UploadDir = defaultUploadDir
	}
	if c.Paths.UploadDir, err = expandPath(c.Paths.UploadDir); err != nil {
		return fmt.Errorf("paths.upload_dir: %w", err)
	}
	c.Paths.LettersSubdir = strings.Trim(strings.TrimSpace(c.Paths.LettersSubdir), "/")
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeStore() error {
	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	if c.Store.Backend == "" {
		c.Store.Backend = defaultBackend
	}
	if strings.TrimSpace(c.Store.CatalogPath) == "" {
		c.Store.CatalogPath = defaultCatalogPath
	}
	var err error
	if c.Store.CatalogPath, err = expandPath(c.Store.CatalogPath); err != nil {
		return fmt.Errorf("store.catalog_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeWPCLI() {
	c.WPCLI.Binary = strings.TrimSpace(c.WPCLI.Binary)
	if c.WPCLI.Binary == "" {
		c.WPCLI.Binary = defaultWPBinary
	}
	c.WPCLI.Path = strings.TrimSpace(c.WPCLI.Path)
	c.WPCLI.URL = strings.TrimSpace(c.WPCLI.URL)
}

func (c *Config) normalizeImport() {
	trim := func(value *string, fallback string) {
		*value = strings.TrimSpace(*value)
		if *value == "" {
			*value = fallback
		}
	}
	trim(&c.Import.PostType, defaultPostType)
	trim(&c.Import.PostStatus, defaultPostStatus)
	trim(&c.Import.IdentifierMetaKey, defaultIdentifierMetaKey)
	trim(&c.Import.FieldName, defaultFieldName)
	trim(&c.Import.FieldKey, defaultFieldKey)
	trim(&c.Import.AssetSubfield, defaultAssetSubfield)
	trim(&c.Import.TitleSubfield, defaultTitleSubfield)
	trim(&c.Import.YearSubfield, defaultYearSubfield)
	c.Import.DuplicatePolicy = strings.ToLower(strings.TrimSpace(c.Import.DuplicatePolicy))
	if c.Import.DuplicatePolicy == "" {
		c.Import.DuplicatePolicy = defaultDuplicatePolicy
	}
}

func (c *Config) normalizeAdmin() {
	c.Admin.Bind = strings.TrimSpace(c.Admin.Bind)
	if c.Admin.Bind == "" {
		c.Admin.Bind = defaultAdminBind
	}
	c.Admin.Token = strings.TrimSpace(c.Admin.Token)
	if c.Admin.Token == "" {
		if value, ok := os.LookupEnv("AUDITIMPORT_ADMIN_TOKEN"); ok {
			c.Admin.Token = strings.TrimSpace(value)
		}
	}
	c.Admin.CSRFSecret = strings.TrimSpace(c.Admin.CSRFSecret)
	if c.Admin.CSRFSecret == "" {
		if value, ok := os.LookupEnv("AUDITIMPORT_CSRF_SECRET"); ok {
			c.Admin.CSRFSecret = strings.TrimSpace(value)
		}
	}
	if c.Admin.TokenTTLMinutes == 0 {
		c.Admin.TokenTTLMinutes = defaultTokenTTLMinutes
	}
	if c.Admin.MaxRunsPerMinute == 0 {
		c.Admin.MaxRunsPerMinute = defaultMaxRunsPerMinute
	}
}

func (c *Config) normalizeWatch() {
	if c.Watch.SettleSeconds == 0 {
		c.Watch.SettleSeconds = defaultSettleSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
