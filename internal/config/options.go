package config

const (
	defaultLogFile           = "bookshelf.log"
	defaultLogLevel          = "info"
	defaultLogFileMaxSize    = 20
	defaultLogFileMaxBackups = 3
	defaultLogFileMaxAge     = 28
	defaultLogCompress       = false
	defaultEnvironment       = EnvProduction
	defaultPort              = 3000
	defaultHost              = "0.0.0.0"
	defaultData              = "/var/opt/bookshelf"
	defaultDSN               = defaultData + "/bookshelf.db"
	defaultJWTExpiration     = 3600
	defaultFrontendURL       = "http://localhost:5173"
	defaultCatalogURL        = "https://openlibrary.org"
	defaultCatalogTimeout    = 10
	defaultSortLocale        = "en"
	defaultMetricsCollector  = false
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
)

// Options is filled by viper, so the field tags are mapstructure and not json.
// see: https://pkg.go.dev/github.com/mitchellh/mapstructure#hdr-Field_Tags
type Options struct {
	// LogFile is the file to write logs to
	LogFile string `mapstructure:"log_file"`
	// LogLevel is one of debug, info, warn, error
	LogLevel string `mapstructure:"log_level"`
	// LogFileMaxSize is the maximum size in megabytes of the log file before it is rotated
	LogFileMaxSize int `mapstructure:"log_file_max_size"`
	// LogFileMaxBackups is the maximum number of rotated log files to keep
	LogFileMaxBackups int `mapstructure:"log_file_max_backups"`
	// LogFileMaxAge is the maximum number of days to keep a rotated log file
	LogFileMaxAge int  `mapstructure:"log_file_max_age"`
	LogCompress   bool `mapstructure:"log_compress"`
	// Environment decides whether error responses carry diagnostic details.
	Environment string `mapstructure:"environment"`
	// DSN is the path of the sqlite database
	DSN  string `mapstructure:"dsn_uri"`
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
	// Data is the directory to store data
	Data string `mapstructure:"data"`
	// JWTSecret signs access tokens. Generated and persisted when empty.
	JWTSecret string `mapstructure:"jwt_secret"`
	// JWTExpiration is the token lifetime in seconds
	JWTExpiration int `mapstructure:"jwt_expiration"`
	// FrontendURL is the only origin allowed by CORS
	FrontendURL string `mapstructure:"frontend_url"`
	// CatalogURL is the base URL of the OpenLibrary compatible catalog
	CatalogURL string `mapstructure:"catalog_url"`
	// CatalogTimeout bounds a single catalog request, in seconds
	CatalogTimeout int `mapstructure:"catalog_timeout"`
	// SortLocale is the BCP 47 tag used to collate titles and owner names
	SortLocale       string `mapstructure:"sort_locale"`
	MetricsCollector bool   `mapstructure:"metrics_collector"`
}

func GetDefaultOptions() *Options {
	Opts = &Options{
		LogFile:           defaultLogFile,
		LogLevel:          defaultLogLevel,
		LogFileMaxSize:    defaultLogFileMaxSize,
		LogFileMaxBackups: defaultLogFileMaxBackups,
		LogFileMaxAge:     defaultLogFileMaxAge,
		LogCompress:       defaultLogCompress,
		Environment:       defaultEnvironment,
		DSN:               defaultDSN,
		Port:              defaultPort,
		Host:              defaultHost,
		Data:              defaultData,
		JWTExpiration:     defaultJWTExpiration,
		FrontendURL:       defaultFrontendURL,
		CatalogURL:        defaultCatalogURL,
		CatalogTimeout:    defaultCatalogTimeout,
		SortLocale:        defaultSortLocale,
		MetricsCollector:  defaultMetricsCollector,
	}
	return Opts
}

// IsDevelopment reports whether diagnostic details may be sent to clients.
func (o *Options) IsDevelopment() bool {
	return o != nil && o.Environment == EnvDevelopment
}
