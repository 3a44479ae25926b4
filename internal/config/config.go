// Package config manages application configuration from files and environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
	Output struct {
		Format string `mapstructure:"format"`
		Color  bool   `mapstructure:"color"`
	} `mapstructure:"output"`
	Server struct {
		Addr        string        `mapstructure:"addr"`
		MaxUploadMB int64         `mapstructure:"max_upload_mb"`
		Timeout     time.Duration `mapstructure:"timeout"`
	} `mapstructure:"server"`
	Profile struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"profile"`
	S3    S3Config `mapstructure:"s3"`
	Watch struct {
		DebounceMS int    `mapstructure:"debounce_ms"`
		OutDir     string `mapstructure:"out_dir"`
	} `mapstructure:"watch"`
}

// S3Config holds the object storage connection used for s3:// inputs.
type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Region    string `mapstructure:"region"`
}

var defaults = map[string]any{
	"log.level":            "info",
	"log.format":           "text",
	"output.format":        "json",
	"output.color":         true,
	"server.addr":          ":8000",
	"server.max_upload_mb": 32,
	"server.timeout":       "60s",
	"profile.enabled":      true,
	"s3.endpoint":          "",
	"s3.access_key":        "",
	"s3.secret_key":        "",
	"s3.use_ssl":           true,
	"s3.region":            "",
	"watch.debounce_ms":    500,
	"watch.out_dir":        "",
}

func setDefaults() {
	for k, v := range defaults {
		viper.SetDefault(k, v)
	}
}

// Load reads the configuration from ~/.sheetgraph/config.yaml (or file, when
// set) and SHEETGRAPH_* environment variables. A missing default file is not
// an error; a missing explicit file is.
func Load(file string) (*Config, error) {
	if file != "" {
		viper.SetConfigFile(file)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(configDir())
	}

	setDefaults()

	viper.SetEnvPrefix("SHEETGRAPH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("could not read config: %w", err)
		}
	}

	return Current()
}

// Current decodes the settings viper holds right now.
func Current() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("could not decode config: %w", err)
	}
	return &cfg, nil
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".sheetgraph"
	}
	return filepath.Join(home, ".sheetgraph")
}
