// Package config provides configuration management for leak-analysis.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Input    InputConfig    `mapstructure:"input"`
	Render   RenderConfig   `mapstructure:"render"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"` // empty means stderr
}

// InputConfig controls how trace files are read.
type InputConfig struct {
	// Strict aborts on the first malformed trace line instead of skipping it.
	Strict bool `mapstructure:"strict"`
	// Workers bounds how many input files are parsed concurrently.
	Workers int `mapstructure:"workers"`
}

// RenderConfig controls the graph renderer used by the interactive session.
type RenderConfig struct {
	Dir      string `mapstructure:"dir"`
	Format   string `mapstructure:"format"` // dot, svg or png
	Layout   string `mapstructure:"layout"` // graphviz layout engine
	Graphviz string `mapstructure:"graphviz"`
	ShowRC   bool   `mapstructure:"show_rc"`
}

// StorageConfig holds artifact storage configuration.
type StorageConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Type      string `mapstructure:"type"` // cos or local
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	SecretID  string `mapstructure:"secret_id"`
	SecretKey string `mapstructure:"secret_key"`
	Domain    string `mapstructure:"domain"`
	Scheme    string `mapstructure:"scheme"`
	LocalPath string `mapstructure:"local_path"`
	Prefix    string `mapstructure:"prefix"`
}

// DatabaseConfig holds snapshot database configuration.
type DatabaseConfig struct {
	Type     string `mapstructure:"type"` // sqlite, postgres or mysql
	Path     string `mapstructure:"path"` // sqlite only
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	MaxConns int    `mapstructure:"max_conns"`
}

// Load reads configuration from the specified file path. A missing file
// is not an error; defaults apply.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("leak-analysis")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.config/leak-analysis")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// LEAK_ANALYSIS_RENDER_DIR overrides render.dir, and so on.
	v.SetEnvPrefix("LEAK_ANALYSIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadFromReader loads configuration from raw content (useful for testing).
func LoadFromReader(configType string, content []byte) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg, err := LoadFromReader("yaml", nil)
	if err != nil {
		panic(err)
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.output_path", "")

	v.SetDefault("input.strict", false)
	v.SetDefault("input.workers", 4)

	v.SetDefault("render.dir", "./render")
	v.SetDefault("render.format", "dot")
	v.SetDefault("render.layout", "circo")
	v.SetDefault("render.graphviz", "dot")
	v.SetDefault("render.show_rc", false)

	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "./storage")
	v.SetDefault("storage.prefix", "leak-analysis")

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.path", "./leak-analysis.db")
	v.SetDefault("database.max_conns", 10)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Input.Workers < 1 {
		return fmt.Errorf("input workers must be at least 1")
	}

	switch c.Render.Format {
	case "dot", "svg", "png":
	default:
		return fmt.Errorf("unsupported render format: %s", c.Render.Format)
	}

	switch c.Database.Type {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database path is required for sqlite")
		}
	case "postgres", "postgresql", "mysql":
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required for %s", c.Database.Type)
		}
	default:
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}

	// Storage settings are validated by the storage package when enabled.
	return nil
}
