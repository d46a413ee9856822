// Package config loads service settings from defaults, an optional YAML
// file, an optional .env file and the process environment, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config holds every setting the service reads.
type Config struct {
	Host  string `mapstructure:"host"`
	Port  string `mapstructure:"port"`
	Debug bool   `mapstructure:"debug"`

	// ReplicateAPIToken enables the /api/replicate proxy routes. It is
	// never logged.
	ReplicateAPIToken string `mapstructure:"replicate_api_token"`
	ReplicateBaseURL  string `mapstructure:"replicate_base_url"`

	ModelDir       string `mapstructure:"model_dir"`
	ModelFile      string `mapstructure:"model_file"`
	ONNXRuntimeLib string `mapstructure:"onnxruntime_lib"`
	PreloadModel   bool   `mapstructure:"preload_model"`

	WindowSize      int   `mapstructure:"window_size"`
	JPEGQuality     int   `mapstructure:"jpeg_quality"`
	MaxBodyBytes    int64 `mapstructure:"max_body_bytes"`
	MaxImagePixels  int   `mapstructure:"max_image_pixels"`
	MaxNeuralPixels int   `mapstructure:"max_neural_pixels"`

	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

var defaults = map[string]any{
	"host":                "0.0.0.0",
	"port":                "5001",
	"debug":               false,
	"replicate_api_token": "",
	"replicate_base_url":  "https://api.replicate.com/v1",
	"model_dir":           "model_zoo",
	"model_file":          "scunet_color_real_psnr.onnx",
	"onnxruntime_lib":     "",
	"preload_model":       true,
	"window_size":         256,
	"jpeg_quality":        95,
	"max_body_bytes":      int64(50 << 20),
	"max_image_pixels":    89_478_485,
	"max_neural_pixels":   4096 * 4096,
	"request_timeout":     "120s",
	"shutdown_timeout":    "10s",
}

// Load reads ./config/config.yaml and ./.env when present, then the
// environment.
func Load() (*Config, error) {
	return LoadFrom("config", ".env")
}

// LoadFrom is Load with explicit locations. Either may name a path that
// does not exist.
func LoadFrom(configDir, envFile string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.AddConfigPath(configDir)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := applyEnvFile(v, envFile); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Host = strings.TrimSpace(cfg.Host)
	cfg.Port = strings.TrimSpace(cfg.Port)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnvFile feeds .env entries into v without touching the process
// environment. Variables set to a non-empty value in the environment keep
// priority.
func applyEnvFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	values, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read env file %s: %w", path, err)
	}
	for key, value := range values {
		if os.Getenv(key) != "" {
			continue
		}
		v.Set(strings.ToLower(key), value)
	}
	return nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("PORT must not be empty"))
	}
	if c.WindowSize <= 0 {
		errs = append(errs, fmt.Errorf("WINDOW_SIZE must be positive, got %d", c.WindowSize))
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		errs = append(errs, fmt.Errorf("JPEG_QUALITY must be within 1..100, got %d", c.JPEGQuality))
	}
	if c.MaxBodyBytes <= 0 {
		errs = append(errs, fmt.Errorf("MAX_BODY_BYTES must be positive, got %d", c.MaxBodyBytes))
	}
	if c.MaxImagePixels <= 0 {
		errs = append(errs, fmt.Errorf("MAX_IMAGE_PIXELS must be positive, got %d", c.MaxImagePixels))
	}
	if c.MaxNeuralPixels <= 0 {
		errs = append(errs, fmt.Errorf("MAX_NEURAL_PIXELS must be positive, got %d", c.MaxNeuralPixels))
	}
	if c.RequestTimeout < 0 {
		errs = append(errs, fmt.Errorf("REQUEST_TIMEOUT must not be negative, got %s", c.RequestTimeout))
	}
	if c.ShutdownTimeout < 0 {
		errs = append(errs, fmt.Errorf("SHUTDOWN_TIMEOUT must not be negative, got %s", c.ShutdownTimeout))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// ModelPath is the weights file used by the neural path.
func (c *Config) ModelPath() string {
	return filepath.Join(c.ModelDir, c.ModelFile)
}

// LogFields describes the configuration for startup logs. The API token is
// reduced to whether it is set.
func (c *Config) LogFields() logrus.Fields {
	return logrus.Fields{
		"addr":            c.Addr(),
		"debug":           c.Debug,
		"model_path":      c.ModelPath(),
		"preload_model":   c.PreloadModel,
		"window_size":     c.WindowSize,
		"jpeg_quality":    c.JPEGQuality,
		"max_body_bytes":  c.MaxBodyBytes,
		"max_pixels":      c.MaxImagePixels,
		"request_timeout": c.RequestTimeout,
		"api_token_set":   c.ReplicateAPIToken != "",
	}
}
