package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Encoder backends accepted by transcode.encoder.
const (
	EncoderWASM    = "wasm"
	EncoderLibWebP = "libwebp"
)

// Config represents the main configuration structure
type Config struct {
	Output    OutputConfig    `mapstructure:"output"`
	Transcode TranscodeConfig `mapstructure:"transcode"`
	Converter ConverterConfig `mapstructure:"converter"`
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// OutputConfig controls where batch directories are created
type OutputConfig struct {
	// DownloadsDir replaces downloads directory discovery when set.
	DownloadsDir string `mapstructure:"downloads_dir"`
}

// TranscodeConfig contains per-image processing switches
type TranscodeConfig struct {
	Resize     bool   `mapstructure:"resize"`
	AutoOrient bool   `mapstructure:"auto_orient"`
	Encoder    string `mapstructure:"encoder"`
}

// ConverterConfig contains batch settings
type ConverterConfig struct {
	FailFast bool `mapstructure:"fail_fast"`
}

// ServerConfig contains settings for the local HTTP API
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"` // MB
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
	Compress   bool   `mapstructure:"compress"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Transcode: TranscodeConfig{
			Resize:     true,
			AutoOrient: true,
			Encoder:    EncoderWASM,
		},
		Converter: ConverterConfig{
			FailFast: false,
		},
		Server: ServerConfig{
			Port: 8080,
		},
		Logging: LoggingConfig{
			Level:      "info",
			FilePath:   "",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     30,
			Compress:   true,
		},
	}
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config file in current directory and home directory
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.top-hat")
		v.AddConfigPath("/etc/top-hat")
	}

	v.SetEnvPrefix("TOP_HAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// bindEnv registers every key so AutomaticEnv values reach Unmarshal even
// when no config file mentions them.
func bindEnv(v *viper.Viper) {
	for _, key := range []string{
		"output.downloads_dir",
		"transcode.resize",
		"transcode.auto_orient",
		"transcode.encoder",
		"converter.fail_fast",
		"server.port",
		"logging.level",
		"logging.file_path",
		"logging.max_size",
		"logging.max_backups",
		"logging.max_age",
		"logging.compress",
	} {
		_ = v.BindEnv(key)
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Output.DownloadsDir != "" {
		dir, ok := expandDir(c.Output.DownloadsDir)
		if !ok {
			return fmt.Errorf("downloads_dir does not exist or is not accessible: %s", c.Output.DownloadsDir)
		}
		c.Output.DownloadsDir = dir
	}

	c.Transcode.Encoder = strings.ToLower(strings.TrimSpace(c.Transcode.Encoder))
	if c.Transcode.Encoder == "" {
		c.Transcode.Encoder = EncoderWASM
	}
	if c.Transcode.Encoder != EncoderWASM && c.Transcode.Encoder != EncoderLibWebP {
		return fmt.Errorf("invalid encoder: %s (valid: %s, %s)", c.Transcode.Encoder, EncoderWASM, EncoderLibWebP)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.Logging.Level)
	}

	return nil
}

// expandDir resolves environment variables and a leading ~ in path and
// reports whether the result is an existing directory.
func expandDir(path string) (string, bool) {
	expanded := os.ExpandEnv(path)
	if strings.HasPrefix(expanded, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", false
		}
		expanded = filepath.Join(home, expanded[1:])
	}

	stat, err := os.Stat(expanded)
	if err != nil || !stat.IsDir() {
		return "", false
	}
	return expanded, true
}
