package crm

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fieldsales/crm-cli/internal/localstore"
	"github.com/joho/godotenv"
)

const configFileName = ".crm-config"

// Config holds the CLI configuration
type Config struct {
	APIURL          string
	StoreKind       string // file, sqlite or memory
	StorePath       string
	LogFile         string
	LogLevel        string
	Brand           string // shown in the TUI header (default: "Sales CRM")
	Currency        string
	Timeout         time.Duration
	RefreshInterval time.Duration // 0 disables timed list refresh

	path string
}

// Path is the config file that was loaded, empty when only env vars were used
func (c *Config) Path() string { return c.path }

// ErrMissingAPIURL means neither the config file nor the environment set CRM_API_URL
var ErrMissingAPIURL = errors.New("missing required config: CRM_API_URL")

// DefaultConfig is the configuration used before any file exists; the TUI
// login wizard fills in the API URL
func DefaultConfig() *Config {
	return &Config{
		StoreKind: localstore.KindFile,
		LogFile:   ".crm-cli.log",
		LogLevel:  "info",
		Brand:     "Sales CRM",
		Currency:  "TZS",
		Timeout:   30 * time.Second,
	}
}

// findConfigFile looks next to the working dir and the binary
func findConfigFile() string {
	configPaths := []string{
		configFileName,
		filepath.Join("..", configFileName),
		filepath.Join(filepath.Dir(os.Args[0]), configFileName),
		filepath.Join(filepath.Dir(os.Args[0]), "..", configFileName),
	}
	for _, p := range configPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// LoadConfig reads the .crm-config file; CRM_* environment variables override it
func LoadConfig() (*Config, error) {
	values := map[string]string{}
	path := findConfigFile()
	if path != "" {
		read, err := godotenv.Read(path)
		if err != nil {
			return nil, fmt.Errorf("cannot read config %s: %w", path, err)
		}
		values = read
	}

	for _, key := range configKeys {
		if v, ok := os.LookupEnv(key); ok {
			values[key] = v
		}
	}

	config, err := parseConfig(values)
	if err != nil {
		if path == "" {
			return nil, fmt.Errorf("%w (no %s found; copy .crm-config.example to %s)", err, configFileName, configFileName)
		}
		return nil, err
	}
	config.path = path
	return config, nil
}

var configKeys = []string{
	"CRM_API_URL", "CRM_STORE", "CRM_STORE_PATH", "CRM_LOG_FILE", "CRM_LOG_LEVEL",
	"CRM_BRAND", "CRM_CURRENCY", "CRM_TIMEOUT", "CRM_REFRESH_INTERVAL",
}

func parseConfig(values map[string]string) (*Config, error) {
	config := DefaultConfig()

	for key, raw := range values {
		value := strings.TrimSpace(raw)
		if value == "" {
			continue
		}

		switch key {
		case "CRM_API_URL":
			config.APIURL = strings.TrimRight(value, "/")
		case "CRM_STORE":
			config.StoreKind = strings.ToLower(value)
		case "CRM_STORE_PATH":
			config.StorePath = value
		case "CRM_LOG_FILE":
			config.LogFile = value
		case "CRM_LOG_LEVEL":
			config.LogLevel = value
		case "CRM_BRAND":
			config.Brand = value
		case "CRM_CURRENCY":
			config.Currency = value
		case "CRM_TIMEOUT":
			d, err := time.ParseDuration(value)
			if err != nil || d <= 0 {
				return nil, fmt.Errorf("invalid CRM_TIMEOUT %q", value)
			}
			config.Timeout = d
		case "CRM_REFRESH_INTERVAL":
			d, err := time.ParseDuration(value)
			if err != nil || d < 0 {
				return nil, fmt.Errorf("invalid CRM_REFRESH_INTERVAL %q", value)
			}
			config.RefreshInterval = d
		}
	}

	if config.APIURL == "" {
		return nil, ErrMissingAPIURL
	}
	return config, nil
}

// WriteConfig saves the API URL picked in the login wizard, keeping other keys
func WriteConfig(path, apiURL string) error {
	if path == "" {
		path = configFileName
	}
	values := map[string]string{}
	if _, err := os.Stat(path); err == nil {
		read, err := godotenv.Read(path)
		if err != nil {
			return fmt.Errorf("cannot read config %s: %w", path, err)
		}
		values = read
	}
	values["CRM_API_URL"] = strings.TrimRight(apiURL, "/")
	if err := godotenv.Write(values, path); err != nil {
		return fmt.Errorf("cannot write config: %w", err)
	}
	return os.Chmod(path, 0600)
}
