package config

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// envPrefix is prepended to every option key when read from the environment,
// e.g. BOOKSHELF_PORT or BOOKSHELF_JWT_SECRET.
const envPrefix = "BOOKSHELF"

var Opts *Options

// GetConfig resets Opts to the defaults, applies environment overrides and
// makes sure the data directory exists.
func GetConfig() (*Options, error) {
	GetDefaultOptions()

	v := newViper()
	if err := v.Unmarshal(Opts); err != nil {
		return nil, errors.Wrap(err, "unable to read environment")
	}

	return finalize()
}

// ParseFile loads the given config file on top of the defaults. Environment
// variables still take precedence over the file.
func ParseFile(file string) (*Options, error) {
	if _, err := os.Stat(file); err != nil {
		return nil, errors.Wrapf(err, "unable to access config file %s", file)
	}

	GetDefaultOptions()

	v := newViper()
	v.SetConfigFile(file)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "unable to read config file %s", file)
	}
	if err := v.Unmarshal(Opts); err != nil {
		return nil, err
	}
	return finalize()
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only applies to keys viper already knows about, so register
	// every option with its default.
	defaults := map[string]any{
		"log_file":             Opts.LogFile,
		"log_level":            Opts.LogLevel,
		"log_file_max_size":    Opts.LogFileMaxSize,
		"log_file_max_backups": Opts.LogFileMaxBackups,
		"log_file_max_age":     Opts.LogFileMaxAge,
		"log_compress":         Opts.LogCompress,
		"environment":          Opts.Environment,
		"dsn_uri":              "",
		"port":                 Opts.Port,
		"host":                 Opts.Host,
		"data":                 Opts.Data,
		"jwt_secret":           Opts.JWTSecret,
		"jwt_expiration":       Opts.JWTExpiration,
		"frontend_url":         Opts.FrontendURL,
		"catalog_url":          Opts.CatalogURL,
		"catalog_timeout":      Opts.CatalogTimeout,
		"sort_locale":          Opts.SortLocale,
		"metrics_collector":    Opts.MetricsCollector,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	return v
}

func finalize() (*Options, error) {
	dataDir, err := checkDataDir(Opts.Data)
	if err != nil {
		return nil, err
	}
	Opts.Data = dataDir
	if Opts.DSN == "" {
		Opts.DSN = filepath.Join(Opts.Data, "bookshelf.db")
	}
	if Opts.JWTExpiration <= 0 {
		Opts.JWTExpiration = defaultJWTExpiration
	}
	if Opts.CatalogTimeout <= 0 {
		Opts.CatalogTimeout = defaultCatalogTimeout
	}
	Opts.Environment = strings.ToLower(Opts.Environment)
	return Opts, nil
}

// OverrideDataDir points Opts at another data directory. A DSN derived from
// the previous directory follows it.
func OverrideDataDir(dir string) error {
	dataDir, err := checkDataDir(dir)
	if err != nil {
		return err
	}
	if Opts.DSN == filepath.Join(Opts.Data, "bookshelf.db") {
		Opts.DSN = filepath.Join(dataDir, "bookshelf.db")
	}
	Opts.Data = dataDir
	return nil
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		absDir, err := filepath.Abs(dataDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err == nil {
		return dataDir, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}

	err := os.MkdirAll(dataDir, 0755)
	if err == nil {
		return dataDir, nil
	}
	if !errors.Is(err, os.ErrPermission) || dataDir != defaultData {
		return "", errors.Wrapf(err, "unable to create data folder %s", dataDir)
	}

	// Permission denied on the default location, fall back to the user's home directory
	currentUser, err := user.Current()
	if err != nil {
		return "", errors.Wrap(err, "unable to get current user")
	}
	if currentUser.HomeDir == "" {
		return "", errors.New("unable to get home directory")
	}
	homeData := filepath.Join(currentUser.HomeDir, ".bookshelf")
	if err := os.MkdirAll(homeData, 0755); err != nil {
		return "", errors.Wrapf(err, "unable to create data folder %s", homeData)
	}
	fmt.Println("Data folder created in user's home directory: ", homeData)
	return homeData, nil
}
