// Package config loads the harvester configuration from defaults, an optional file, .env and
// the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envPrefix  = "HARVESTER"
	configName = "harvester"

	reportFileName = "news_data.xlsx"
	ledgerFileName = "runs.db"
)

// Config is the validated, read-only run configuration. Pass it by value.
type Config struct {
	SiteURL        string
	SearchPhrase   string
	NewsCategory   string
	Months         int
	OutputDir      string
	WaitTimeout    time.Duration
	PollInterval   time.Duration
	HTTPTimeout    time.Duration
	UserAgent      string
	LogLevel       string
	LogEncoding    string
	PublishersFile string
	LedgerEnabled  bool
}

// ReportPath is where the spreadsheet is written.
func (c Config) ReportPath() string {
	return filepath.Join(c.OutputDir, reportFileName)
}

// LedgerPath is where the run history database lives.
func (c Config) LedgerPath() string {
	return filepath.Join(c.OutputDir, ledgerFileName)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("site_url", "https://www.latimes.com/")
	v.SetDefault("search_phrase", "technology")
	v.SetDefault("news_category", "top")
	v.SetDefault("months", 3)
	v.SetDefault("output_dir", "./output")
	v.SetDefault("wait_timeout", 10*time.Second)
	v.SetDefault("poll_interval", 500*time.Millisecond)
	v.SetDefault("http_timeout", 15*time.Second)
	v.SetDefault("user_agent", "Mozilla/5.0 (compatible; khobor-report/1.0)")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("publishers_file", "")
	v.SetDefault("ledger_enabled", true)
}

// Load reads .env (if present), harvester.yaml from . or ./config (if present) and
// HARVESTER_* environment variables over the defaults, then validates the result.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName(configName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	return load(v)
}

// LoadFile is like Load but reads an explicit config file.
func LoadFile(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return load(v)
}

func load(v *viper.Viper) (Config, error) {
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := Config{
		SiteURL:        strings.TrimSpace(v.GetString("site_url")),
		SearchPhrase:   strings.TrimSpace(v.GetString("search_phrase")),
		NewsCategory:   strings.TrimSpace(v.GetString("news_category")),
		Months:         v.GetInt("months"),
		OutputDir:      strings.TrimSpace(v.GetString("output_dir")),
		WaitTimeout:    v.GetDuration("wait_timeout"),
		PollInterval:   v.GetDuration("poll_interval"),
		HTTPTimeout:    v.GetDuration("http_timeout"),
		UserAgent:      v.GetString("user_agent"),
		LogLevel:       v.GetString("log.level"),
		LogEncoding:    v.GetString("log.encoding"),
		PublishersFile: strings.TrimSpace(v.GetString("publishers_file")),
		LedgerEnabled:  v.GetBool("ledger_enabled"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the invariants every run depends on.
func (c Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.SiteURL)
	if c.SiteURL == "" || err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
		errs = append(errs, fmt.Errorf("site_url must be an absolute http(s) url, got %q", c.SiteURL))
	}
	if c.SearchPhrase == "" {
		errs = append(errs, errors.New("search_phrase is required"))
	}
	if c.Months <= 0 {
		errs = append(errs, fmt.Errorf("months must be positive, got %d", c.Months))
	}
	if c.OutputDir == "" {
		errs = append(errs, errors.New("output_dir is required"))
	}
	if c.WaitTimeout <= 0 {
		errs = append(errs, errors.New("wait_timeout must be positive"))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, errors.New("poll_interval must be positive"))
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, errors.New("http_timeout must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// EnsureOutputDir creates the output directory if it does not exist yet.
func (c Config) EnsureOutputDir() error {
	if err := os.MkdirAll(c.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir %s: %w", c.OutputDir, err)
	}
	return nil
}
