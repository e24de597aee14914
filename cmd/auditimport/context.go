package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"auditimport/internal/catalog"
	"auditimport/internal/config"
	"auditimport/internal/letters"
	"auditimport/internal/logging"
	"auditimport/internal/services/wpcli"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, _, err := config.Load(c.configFlagValue())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = path
	})
	return c.config, c.configErr
}

func (c *commandContext) configFlagValue() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// backend bundles the record store and media importer for the configured
// store backend.
type backend struct {
	records letters.RecordStore
	media   letters.MediaImporter
	catalog *catalog.Store
	wp      *wpcli.Client
}

func (b *backend) Close() {
	if b.catalog != nil {
		_ = b.catalog.Close()
	}
}

func (c *commandContext) openBackend() (*backend, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}

	switch cfg.Store.Backend {
	case config.BackendSQLite:
		store, err := catalog.Open(cfg)
		if err != nil {
			return nil, fmt.Errorf("open catalog: %w", err)
		}
		return &backend{records: store, media: store, catalog: store}, nil
	case config.BackendWPCLI:
		client, err := wpcli.New(cfg.WPBinary(),
			wpcli.WithSite(cfg.WPCLI.Path, cfg.WPCLI.URL),
			wpcli.WithTimeout(cfg.WPTimeout()),
			wpcli.WithField(wpcli.Field{
				Key:   cfg.Import.FieldKey,
				Asset: cfg.Import.AssetSubfield,
				Title: cfg.Import.TitleSubfield,
				Year:  cfg.Import.YearSubfield,
			}),
			wpcli.WithLogger(logger),
		)
		if err != nil {
			return nil, err
		}
		return &backend{records: client, media: client, wp: client}, nil
	default:
		return nil, fmt.Errorf("unsupported store backend %q", cfg.Store.Backend)
	}
}

func (c *commandContext) recordQuery() letters.RecordQuery {
	cfg := c.config
	return letters.RecordQuery{
		Category:      cfg.Import.PostType,
		Status:        cfg.Import.PostStatus,
		IdentifierKey: cfg.Import.IdentifierMetaKey,
	}
}

func (c *commandContext) newImporter(b *backend) (*letters.Importer, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	return letters.NewImporter(b.records, b.media,
		letters.WithLogger(logger),
		letters.WithQuery(c.recordQuery()),
		letters.WithField(cfg.Import.FieldName),
		letters.WithDuplicatePolicy(letters.DuplicatePolicy(cfg.Import.DuplicatePolicy)),
	)
}

var errSQLiteOnly = errors.New("this command requires store.backend = \"sqlite\"")
