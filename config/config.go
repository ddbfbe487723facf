package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/marwamagdy-create/DEPI/ml"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Log      LogConfig      `yaml:"log"`
	Model    ModelConfig    `yaml:"model"`
	Registry RegistryConfig `yaml:"registry"`
	Page     PageConfig     `yaml:"page"`
}

type HTTPConfig struct {
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

type ModelConfig struct {
	Artifact     string          `yaml:"artifact"`
	Scaler       string          `yaml:"scaler"`
	Columns      string          `yaml:"columns"`
	SchemaSource string          `yaml:"schema_source"`
	Naming       ml.ColumnNaming `yaml:"naming"`
}

type RegistryConfig struct {
	Driver    string        `yaml:"driver"`
	Path      string        `yaml:"path"`
	URL       string        `yaml:"url"`
	CacheSize int           `yaml:"cache_size"`
	Timeout   time.Duration `yaml:"timeout"`
}

type PageConfig struct {
	Title  string `yaml:"title"`
	Notice string `yaml:"notice"`
}

func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Port:         8501,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			MaxBodyBytes: 1 << 20,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Model: ModelConfig{
			Artifact:     "models/diabetes_model.json",
			Scaler:       "models/scaler.json",
			Columns:      "models/model_columns.json",
			SchemaSource: string(ml.SchemaFromColumns),
			Naming:       ml.DefaultColumnNaming(),
		},
		Registry: RegistryConfig{
			Driver:    "",
			CacheSize: 16,
			Timeout:   10 * time.Second,
		},
		Page: PageConfig{
			Title: "Diabetes Prediction App",
		},
	}
}

// Load reads a YAML file on top of Default. When path does not exist the parent
// directory is tried, so binaries started from cmd/ still find the root config.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) && !filepath.IsAbs(path) {
		path = filepath.Join("..", path)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	config := Default()
	if err := yaml.NewDecoder(file).Decode(&config); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if len(config.Model.Naming.Race) == 0 {
		config.Model.Naming.Race = ml.DefaultColumnNaming().Race
	}
	if len(config.Model.Naming.Smoking) == 0 {
		config.Model.Naming.Smoking = ml.DefaultColumnNaming().Smoking
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &config, nil
}

func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port %d out of range", c.HTTP.Port)
	}
	if c.Model.Artifact == "" {
		return errors.New("model.artifact is required")
	}
	if _, err := ml.ParseSchemaSource(c.Model.SchemaSource); err != nil {
		return fmt.Errorf("model.schema_source: %w", err)
	}
	if err := c.Model.Naming.Validate(); err != nil {
		return fmt.Errorf("model.naming: %w", err)
	}
	switch c.Registry.Driver {
	case "":
	case "sqlite":
		if c.Registry.Path == "" {
			return errors.New("registry.path is required for the sqlite driver")
		}
	case "http":
		if c.Registry.URL == "" {
			return errors.New("registry.url is required for the http driver")
		}
	default:
		return fmt.Errorf("registry.driver %q is not supported", c.Registry.Driver)
	}
	return nil
}

func (c *Config) LoadOptions() ml.LoadOptions {
	return ml.LoadOptions{
		Artifact:     c.Model.Artifact,
		Scaler:       c.Model.Scaler,
		Columns:      c.Model.Columns,
		SchemaSource: ml.SchemaSource(c.Model.SchemaSource),
	}
}
