package config

import (
	"os"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ScraperConfig holds general scraper settings.
type ScraperConfig struct {
	Workers           string        `yaml:"workers"`   // a number or "auto"
	Transport         string        `yaml:"transport"` // "http" or "browser"
	Headless          bool          `yaml:"headless"`
	Parallel          bool          `yaml:"parallel"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	RetryTimes        int           `yaml:"retry_times"`
	UserAgent         string        `yaml:"user_agent"`
}

// YhdConfig holds settings specific to the Yihaodian listing and price endpoints.
type YhdConfig struct {
	ListingURLFormat    string `yaml:"listing_url_format"` // %s category id, %d page
	PriceURL            string `yaml:"price_url"`
	ProvinceID          string `yaml:"province_id"`
	MCSite              string `yaml:"mcsite"`
	Encoding            string `yaml:"encoding"`
	PlaceholderImageURL string `yaml:"placeholder_image_url"`
	BatchSize           int    `yaml:"batch_size"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type MetricsConfig struct {
	ListenAddress string `yaml:"listen_address"` // empty disables the standalone metrics listener
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

// Config is the complete structure for the config.yml file.
type Config struct {
	Scraper  ScraperConfig  `yaml:"scraper"`
	Yhd      YhdConfig      `yaml:"yhd"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
}

// Default returns a configuration that talks to the public endpoints of the Beijing site.
func Default() *Config {
	return &Config{
		Scraper: ScraperConfig{
			Workers:           "auto",
			Transport:         "http",
			Headless:          true,
			Parallel:          true,
			Timeout:           30 * time.Second,
			RequestsPerSecond: 10,
			Burst:             10,
			RetryTimes:        3,
			UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
		},
		Yhd: YhdConfig{
			ListingURLFormat:    "http://www.yihaodian.com/ctg/searchPage/c%s-/b0/a-s1-v0-p%d-price-d0-f04-m1-rt0-pid-k/",
			PriceURL:            "http://busystock.i.yihaodian.com/busystock/restful/truestock",
			ProvinceID:          "2",
			MCSite:              "1",
			Encoding:            "utf-8",
			PlaceholderImageURL: "http://image.yihaodianimg.com/search/global/images/blank.gif",
			BatchSize:           20,
		},
		Log:      LogConfig{Level: "info", Format: "text"},
		Database: DatabaseConfig{Path: "catalog.db"},
		Server:   ServerConfig{Port: "8080"},
	}
}

// LoadConfig reads the YAML file on top of Default, then applies .env and CATALOG_* overrides.
// A missing file is not an error; the defaults and the environment are used instead.
func LoadConfig(filepath string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	data, err := os.ReadFile(filepath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(err, "unmarshal config yaml")
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, errors.Wrap(err, "read config file")
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	overrides := map[string]*string{
		"CATALOG_WORKERS":      &cfg.Scraper.Workers,
		"CATALOG_TRANSPORT":    &cfg.Scraper.Transport,
		"CATALOG_LOG_LEVEL":    &cfg.Log.Level,
		"CATALOG_LOG_FORMAT":   &cfg.Log.Format,
		"CATALOG_DB_PATH":      &cfg.Database.Path,
		"CATALOG_METRICS_ADDR": &cfg.Metrics.ListenAddress,
		"CATALOG_PORT":         &cfg.Server.Port,
		"CATALOG_PROVINCE_ID":  &cfg.Yhd.ProvinceID,
	}
	for key, target := range overrides {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			*target = value
		}
	}
}

// Validate checks the values the pipeline cannot run without.
func (c *Config) Validate() error {
	if c.Scraper.Transport != "http" && c.Scraper.Transport != "browser" {
		return errors.Errorf("scraper.transport must be 'http' or 'browser', got: %q", c.Scraper.Transport)
	}
	if c.Scraper.RetryTimes < 0 {
		return errors.Errorf("scraper.retry_times must not be negative, got: %d", c.Scraper.RetryTimes)
	}
	if c.Scraper.RequestsPerSecond <= 0 {
		return errors.Errorf("scraper.requests_per_second must be positive, got: %v", c.Scraper.RequestsPerSecond)
	}
	if c.Yhd.BatchSize < 1 {
		return errors.Errorf("yhd.batch_size must be at least 1, got: %d", c.Yhd.BatchSize)
	}
	if strings.Count(c.Yhd.ListingURLFormat, "%s") != 1 || strings.Count(c.Yhd.ListingURLFormat, "%d") != 1 {
		return errors.Errorf("yhd.listing_url_format needs one %%s (category) and one %%d (page): %q", c.Yhd.ListingURLFormat)
	}
	if c.Yhd.PriceURL == "" {
		return errors.New("yhd.price_url is required")
	}
	return nil
}
