package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"HOST", "PORT", "DEBUG", "REPLICATE_API_TOKEN", "REPLICATE_BASE_URL", "MODEL_DIR", "MODEL_FILE",
	"ONNXRUNTIME_LIB", "PRELOAD_MODEL", "WINDOW_SIZE", "JPEG_QUALITY",
	"MAX_BODY_BYTES", "MAX_IMAGE_PIXELS", "MAX_NEURAL_PIXELS",
	"REQUEST_TIMEOUT", "SHUTDOWN_TIMEOUT",
}

// clearEnv blanks every key; viper ignores empty variables.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadFrom_Defaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	cfg, err := LoadFrom(filepath.Join(dir, "config"), filepath.Join(dir, ".env"))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, "5001", cfg.Port)
	assert.False(t, cfg.Debug)
	assert.Empty(t, cfg.ReplicateAPIToken)
	assert.Equal(t, "https://api.replicate.com/v1", cfg.ReplicateBaseURL)
	assert.Equal(t, "model_zoo", cfg.ModelDir)
	assert.Equal(t, "scunet_color_real_psnr.onnx", cfg.ModelFile)
	assert.True(t, cfg.PreloadModel)
	assert.Equal(t, 256, cfg.WindowSize)
	assert.Equal(t, 95, cfg.JPEGQuality)
	assert.Equal(t, int64(50<<20), cfg.MaxBodyBytes)
	assert.Equal(t, 89_478_485, cfg.MaxImagePixels)
	assert.Equal(t, 4096*4096, cfg.MaxNeuralPixels)
	assert.Equal(t, 120*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)

	assert.Equal(t, "0.0.0.0:5001", cfg.Addr())
	assert.Equal(t, filepath.Join("model_zoo", "scunet_color_real_psnr.onnx"), cfg.ModelPath())
}

func TestLoadFrom_Environment(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("PORT", "8080")
	t.Setenv("DEBUG", "true")
	t.Setenv("WINDOW_SIZE", "128")
	t.Setenv("REQUEST_TIMEOUT", "5s")
	t.Setenv("PRELOAD_MODEL", "false")
	dir := t.TempDir()

	cfg, err := LoadFrom(filepath.Join(dir, "config"), "")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", cfg.Addr())
	assert.True(t, cfg.Debug)
	assert.Equal(t, 128, cfg.WindowSize)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.False(t, cfg.PreloadModel)
}

func TestLoadFrom_Precedence(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	configDir := filepath.Join(dir, "config")
	envFile := filepath.Join(dir, ".env")

	writeFile(t, filepath.Join(configDir, "config.yaml"), "port: \"6000\"\njpeg_quality: 80\nmodel_dir: /srv/weights\n")
	writeFile(t, envFile, "JPEG_QUALITY=70\nMODEL_FILE=custom.onnx\n")
	t.Setenv("MODEL_FILE", "from-env.onnx")

	cfg, err := LoadFrom(configDir, envFile)
	require.NoError(t, err)

	assert.Equal(t, "6000", cfg.Port, "yaml overrides defaults")
	assert.Equal(t, 70, cfg.JPEGQuality, ".env overrides yaml")
	assert.Equal(t, "/srv/weights", cfg.ModelDir)
	assert.Equal(t, "from-env.onnx", cfg.ModelFile, "environment overrides .env")
}

func TestLoadFrom_EmptyEnvDoesNotMaskEnvFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	configDir := filepath.Join(dir, "config")
	envFile := filepath.Join(dir, ".env")

	writeFile(t, filepath.Join(configDir, "config.yaml"), "window_size: 64\n")
	writeFile(t, envFile, "WINDOW_SIZE=32\nMAX_IMAGE_PIXELS=1000000\n")
	t.Setenv("WINDOW_SIZE", "")
	t.Setenv("MAX_IMAGE_PIXELS", "")

	cfg, err := LoadFrom(configDir, envFile)
	require.NoError(t, err)

	assert.Equal(t, 32, cfg.WindowSize)
	assert.Equal(t, 1000000, cfg.MaxImagePixels)
}

func TestLoadFrom_EnvFileDoesNotTouchProcessEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	writeFile(t, envFile, "REPLICATE_API_TOKEN=r8_secret\n")
	os.Unsetenv("REPLICATE_API_TOKEN")

	cfg, err := LoadFrom(filepath.Join(dir, "config"), envFile)
	require.NoError(t, err)

	assert.Equal(t, "r8_secret", cfg.ReplicateAPIToken)
	_, set := os.LookupEnv("REPLICATE_API_TOKEN")
	assert.False(t, set)
}

func TestLoadFrom_MalformedYAML(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	configDir := filepath.Join(dir, "config")
	writeFile(t, filepath.Join(configDir, "config.yaml"), "port: [unterminated\n")

	_, err := LoadFrom(configDir, "")
	assert.Error(t, err)
}

func TestLoadFrom_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"zero window", "WINDOW_SIZE", "0"},
		{"negative window", "WINDOW_SIZE", "-8"},
		{"quality too high", "JPEG_QUALITY", "101"},
		{"quality zero", "JPEG_QUALITY", "0"},
		{"zero body limit", "MAX_BODY_BYTES", "0"},
		{"negative pixel limit", "MAX_IMAGE_PIXELS", "-1"},
		{"zero neural limit", "MAX_NEURAL_PIXELS", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)
			dir := t.TempDir()

			_, err := LoadFrom(filepath.Join(dir, "config"), "")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestValidate_EmptyPort(t *testing.T) {
	cfg := Config{WindowSize: 256, JPEGQuality: 95, MaxBodyBytes: 1}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PORT")
}

func TestLogFields_HidesToken(t *testing.T) {
	cfg := Config{Host: "0.0.0.0", Port: "5001", ReplicateAPIToken: "r8_secret"}
	fields := cfg.LogFields()

	assert.Equal(t, true, fields["api_token_set"])
	for _, v := range fields {
		assert.NotEqual(t, "r8_secret", v)
	}
}
