package config

const (
	// BackendWPCLI drives a WordPress install through the wp binary.
	BackendWPCLI = "wpcli"
	// BackendSQLite uses the local SQLite catalog.
	BackendSQLite = "sqlite"

	// DuplicateLast keeps the last record seen for a repeated identifier.
	DuplicateLast = "last"
	// DuplicateFirst keeps the first record seen for a repeated identifier.
	DuplicateFirst = "first"
	// DuplicateError refuses to run when identifiers repeat.
	DuplicateError = "error"
)

const (
	defaultConfigPath        = "~/.config/auditimport/config.toml"
	defaultUploadDir         = "~/wp-content/uploads"
	defaultLettersSubdir     = "AAL"
	defaultLogDir            = "~/.local/share/auditimport/logs"
	defaultCatalogPath       = "~/.local/share/auditimport/catalog.db"
	defaultBackend           = BackendWPCLI
	defaultWPBinary          = "wp"
	defaultPostType          = "auditedbody"
	defaultPostStatus        = "publish"
	defaultIdentifierMetaKey = "new_body_id"
	defaultFieldName         = "audit_letters"
	defaultFieldKey          = "field_593e3b3b4212a"
	defaultAssetSubfield     = "field_593e3bd14212c"
	defaultTitleSubfield     = "field_593e564c5422e"
	defaultYearSubfield      = "field_593e3bfe4212d"
	defaultDuplicatePolicy   = DuplicateLast
	defaultAdminBind         = "127.0.0.1:7491"
	defaultTokenTTLMinutes   = 60
	defaultMaxRunsPerMinute  = 6
	defaultSettleSeconds     = 5
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			UploadDir:     defaultUploadDir,
			LettersSubdir: defaultLettersSubdir,
			LogDir:        defaultLogDir,
		},
		Store: Store{
			Backend:     defaultBackend,
			CatalogPath: defaultCatalogPath,
		},
		WPCLI: WPCLI{
			Binary: defaultWPBinary,
		},
		Import: Import{
			PostType:          defaultPostType,
			PostStatus:        defaultPostStatus,
			IdentifierMetaKey: defaultIdentifierMetaKey,
			FieldName:         defaultFieldName,
			FieldKey:          defaultFieldKey,
			AssetSubfield:     defaultAssetSubfield,
			TitleSubfield:     defaultTitleSubfield,
			YearSubfield:      defaultYearSubfield,
			DuplicatePolicy:   defaultDuplicatePolicy,
		},
		Admin: Admin{
			Bind:             defaultAdminBind,
			TokenTTLMinutes:  defaultTokenTTLMinutes,
			MaxRunsPerMinute: defaultMaxRunsPerMinute,
		},
		Watch: Watch{
			SettleSeconds: defaultSettleSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
