package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Layout  LayoutConfig  `yaml:"layout"`
	Hub     HubConfig     `yaml:"hub"`
	Logging LoggingConfig `yaml:"logging"`
	Mirror  MirrorConfig  `yaml:"mirror"`
	Metrics MetricsConfig `yaml:"metrics"`
	Catalog CatalogConfig `yaml:"catalog"`
}

type LayoutConfig struct {
	DataDir  string `yaml:"data_dir"`
	CacheDir string `yaml:"cache_dir"`
}

type HubConfig struct {
	Endpoint string        `yaml:"endpoint"`
	Token    string        `yaml:"token"`
	Revision string        `yaml:"revision"`
	Timeout  time.Duration `yaml:"timeout"`
}

type LoggingConfig struct {
	Format string `yaml:"format"`
	Level  string `yaml:"level"`
}

// MirrorConfig enables copying raw files to a gocloud bucket URL
// (gs://, s3://, file://, mem://). Disabled when URL is empty.
type MirrorConfig struct {
	URL    string `yaml:"url"`
	Prefix string `yaml:"prefix"`
}

type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url"`
	Job            string `yaml:"job"`
}

type CatalogConfig struct {
	PostgresDSN string `yaml:"postgres_dsn"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Layout: LayoutConfig{
			DataDir:  "data",
			CacheDir: ".cache",
		},
		Hub: HubConfig{
			Endpoint: "https://huggingface.co",
			Revision: "main",
		},
		Logging: LoggingConfig{
			Format: "text",
			Level:  "info",
		},
		Mirror: MirrorConfig{
			Prefix: "raw/",
		},
		Metrics: MetricsConfig{
			Job: "econ_index_fetch",
		},
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// FETCH_CONFIG (if any), then environment variables.
func Load() (Config, error) {
	cfg := Defaults()

	if path := os.Getenv("FETCH_CONFIG"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// MustLoad is Load for main: any error terminates the process.
func MustLoad() Config {
	log.Println("[config] loading")

	cfg, err := Load()
	if err != nil {
		log.Fatalf("[config] %v", err)
	}
	return cfg
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	// Unmarshalling into the populated struct keeps defaults for absent keys.
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Layout.DataDir = getenvDefault("DATA_DIR", c.Layout.DataDir)
	c.Layout.CacheDir = getenvDefault("CACHE_DIR", c.Layout.CacheDir)

	c.Hub.Endpoint = getenvDefault("HF_ENDPOINT", c.Hub.Endpoint)
	c.Hub.Token = getenvDefault("HF_TOKEN", c.Hub.Token)
	c.Hub.Revision = getenvDefault("HF_REVISION", c.Hub.Revision)
	if v := os.Getenv("HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse HTTP_TIMEOUT %q: %w", v, err)
		}
		c.Hub.Timeout = d
	}

	c.Logging.Format = getenvDefault("LOG_FORMAT", c.Logging.Format)
	c.Logging.Level = getenvDefault("LOG_LEVEL", c.Logging.Level)

	c.Mirror.URL = getenvDefault("MIRROR_URL", c.Mirror.URL)
	c.Mirror.Prefix = getenvDefault("MIRROR_PREFIX", c.Mirror.Prefix)

	c.Metrics.PushgatewayURL = getenvDefault("METRICS_PUSHGATEWAY_URL", c.Metrics.PushgatewayURL)
	c.Metrics.Job = getenvDefault("METRICS_JOB", c.Metrics.Job)

	c.Catalog.PostgresDSN = getenvDefault("CATALOG_DSN", c.Catalog.PostgresDSN)
	return nil
}

func getenvDefault(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}
