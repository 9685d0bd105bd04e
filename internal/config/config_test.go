package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearEnv unsets every variable Load reads so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"ENV_NAME", "LOG_LEVEL", "WEATHER_API_KEY", "WEATHER_PROVIDER",
		"STORAGE_BACKEND", "STORAGE_PATH", "MEMCACHED_ADDRS", "GEOLOCATION_MODE",
	} {
		if v, ok := os.LookupEnv(k); ok {
			os.Unsetenv(k)
			t.Cleanup(func() { os.Setenv(k, v) })
		}
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(origWd) })
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeEnvFile(t, dir, "{}\n")
	chdir(t, dir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Provider != ProviderMock {
		t.Errorf("Provider = %q, want mock", cfg.Provider)
	}
	if cfg.WeatherAPITimeout != 10*time.Second {
		t.Errorf("WeatherAPITimeout = %v, want 10s", cfg.WeatherAPITimeout)
	}
	if cfg.RetryAttempts != 1 {
		t.Errorf("RetryAttempts = %d, want 1 (one fetch per target)", cfg.RetryAttempts)
	}
	if cfg.SuggestDebounce != 300*time.Millisecond {
		t.Errorf("SuggestDebounce = %v, want 300ms", cfg.SuggestDebounce)
	}
	if cfg.GeolocationTimeout != 10*time.Second {
		t.Errorf("GeolocationTimeout = %v, want 10s", cfg.GeolocationTimeout)
	}
	if cfg.RecentCapacity != 5 {
		t.Errorf("RecentCapacity = %d, want 5", cfg.RecentCapacity)
	}
	if cfg.MockDelay != time.Second {
		t.Errorf("MockDelay = %v, want 1s", cfg.MockDelay)
	}
	if cfg.StorageBackend != "file" || cfg.StoragePath == "" {
		t.Errorf("storage = %q at %q, want file with a default path", cfg.StorageBackend, cfg.StoragePath)
	}
	if cfg.GeolocationMode != GeolocationIP {
		t.Errorf("GeolocationMode = %q, want ip", cfg.GeolocationMode)
	}
}

func TestLoad_OpenWeatherFailsWhenNoAPIKey(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeEnvFile(t, dir, openWeatherYAML)
	chdir(t, dir)

	cfg, err := Load()
	if err == nil {
		t.Fatal("Load() expected error when no WEATHER_API_KEY and no secrets file, got nil")
	}
	if cfg != nil {
		t.Fatalf("Load() expected nil config on error, got %+v", cfg)
	}
	if !strings.Contains(err.Error(), "WEATHER_API_KEY") {
		t.Errorf("Load() error = %v, want message containing WEATHER_API_KEY", err)
	}
}

func TestLoad_SucceedsWithSecretsFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeEnvFile(t, dir, openWeatherYAML)
	writeSecretsFile(t, dir, "weather_api_key: key-from-secrets-file\n")
	chdir(t, dir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.WeatherAPIKey != "key-from-secrets-file" {
		t.Errorf("WeatherAPIKey = %q, want key from secrets file", cfg.WeatherAPIKey)
	}
}

func TestLoad_SucceedsWithEnvVar(t *testing.T) {
	clearEnv(t)
	t.Setenv("WEATHER_API_KEY", "env-key-1234567890")
	dir := t.TempDir()
	writeEnvFile(t, dir, openWeatherYAML)
	writeSecretsFile(t, dir, "weather_api_key: ignored\n")
	chdir(t, dir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.WeatherAPIKey != "env-key-1234567890" {
		t.Errorf("WeatherAPIKey = %q, want env value", cfg.WeatherAPIKey)
	}
}

func TestLoad_DotEnvFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeEnvFile(t, dir, openWeatherYAML)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("WEATHER_API_KEY=dotenv-key-123456\nSTORAGE_BACKEND=memory\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		os.Unsetenv("WEATHER_API_KEY")
		os.Unsetenv("STORAGE_BACKEND")
	})
	chdir(t, dir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.WeatherAPIKey != "dotenv-key-123456" {
		t.Errorf("WeatherAPIKey = %q, want value from .env", cfg.WeatherAPIKey)
	}
	if cfg.StorageBackend != "memory" {
		t.Errorf("StorageBackend = %q, want memory from .env", cfg.StorageBackend)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("WEATHER_PROVIDER", "MOCK")
	t.Setenv("STORAGE_BACKEND", "sqlite")
	t.Setenv("STORAGE_PATH", "/tmp/widget.db")
	t.Setenv("MEMCACHED_ADDRS", "cache:11211")
	t.Setenv("GEOLOCATION_MODE", "none")
	dir := t.TempDir()
	writeEnvFile(t, dir, openWeatherYAML)
	chdir(t, dir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Provider != ProviderMock {
		t.Errorf("Provider = %q, want mock", cfg.Provider)
	}
	if cfg.StorageBackend != "sqlite" || cfg.StoragePath != "/tmp/widget.db" {
		t.Errorf("storage = %q %q", cfg.StorageBackend, cfg.StoragePath)
	}
	if cfg.MemcachedAddrs != "cache:11211" {
		t.Errorf("MemcachedAddrs = %q", cfg.MemcachedAddrs)
	}
	if cfg.GeolocationMode != GeolocationNone {
		t.Errorf("GeolocationMode = %q, want none", cfg.GeolocationMode)
	}
}

func TestLoad_EnvFileNotFound(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENV_NAME", "nonexistent")
	chdir(t, findProjectRoot(t))

	cfg, err := Load()
	if err == nil {
		t.Fatal("Load() expected error for missing env file, got nil")
	}
	if cfg != nil {
		t.Fatalf("Load() expected nil config on error, got %+v", cfg)
	}
	if !strings.Contains(err.Error(), "not found") && !strings.Contains(err.Error(), "config file") {
		t.Errorf("Load() error = %v, want message about config file not found", err)
	}
}

func TestLoad_ProjectDevConfig(t *testing.T) {
	clearEnv(t)
	chdir(t, findProjectRoot(t))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() with config/dev.yaml error = %v", err)
	}
	if cfg.Provider != ProviderMock {
		t.Errorf("dev Provider = %q, want mock", cfg.Provider)
	}
}

func TestLoad_InvalidDurationFallsBackToDefault(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeEnvFile(t, dir, `
weather_api:
  timeout: "not-a-duration"
search:
  suggest_debounce: "soon"
geolocation:
  timeout: "-1s"
`)
	chdir(t, dir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.WeatherAPITimeout != 10*time.Second {
		t.Errorf("WeatherAPITimeout = %v, want 10s default", cfg.WeatherAPITimeout)
	}
	if cfg.SuggestDebounce != 300*time.Millisecond {
		t.Errorf("SuggestDebounce = %v, want 300ms default", cfg.SuggestDebounce)
	}
	if cfg.GeolocationTimeout != 10*time.Second {
		t.Errorf("GeolocationTimeout = %v, want 10s default", cfg.GeolocationTimeout)
	}
}

func TestLoad_ZeroDebounceAndDelayAllowed(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeEnvFile(t, dir, `
mock:
  delay: "0s"
  fabricate_unknown: true
search:
  suggest_debounce: "0s"
`)
	chdir(t, dir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MockDelay != 0 || cfg.SuggestDebounce != 0 {
		t.Errorf("MockDelay=%v SuggestDebounce=%v, want both 0", cfg.MockDelay, cfg.SuggestDebounce)
	}
	if !cfg.MockFabricateUnknown {
		t.Error("MockFabricateUnknown = false, want true")
	}
}

func TestLoad_ValidationFailures(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"provider", "weather_api:\n  provider: darksky\n", "weather_api.provider"},
		{"storage", "storage:\n  backend: redis\n", "storage.backend"},
		{"geolocation mode", "geolocation:\n  mode: gps\n", "geolocation.mode"},
		{"static out of range", "geolocation:\n  mode: static\n  latitude: 100\n  longitude: 0\n", "out of range"},
		{"city lengths", "search:\n  city_min_length: 10\n  city_max_length: 5\n", "city_min_length"},
		{"api timeout", "weather_api:\n  provider: openweather\n  timeout: \"0s\"\n", "timeout must be positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("WEATHER_API_KEY", "test-key-1234567890")
			dir := t.TempDir()
			writeEnvFile(t, dir, tt.yaml)
			chdir(t, dir)

			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestLoad_StaticGeolocation(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeEnvFile(t, dir, "geolocation:\n  mode: static\n  latitude: 51.5074\n  longitude: -0.1278\n")
	chdir(t, dir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.StaticLatitude != 51.5074 || cfg.StaticLongitude != -0.1278 {
		t.Errorf("static coords = %v,%v", cfg.StaticLatitude, cfg.StaticLongitude)
	}
}

func TestLoad_InvalidSecretsYAML(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeEnvFile(t, dir, openWeatherYAML)
	writeSecretsFile(t, dir, "weather_api_key: [unclosed\n")
	chdir(t, dir)

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "parse secrets file") {
		t.Errorf("Load() error = %v, want parse secrets file error", err)
	}
}

func TestLoad_InvalidConfigYAML(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeEnvFile(t, dir, "weather_api: [unclosed\n")
	chdir(t, dir)

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "parse config file") {
		t.Errorf("Load() error = %v, want parse config file error", err)
	}
}

func TestDefaultStoragePath(t *testing.T) {
	if got := defaultStoragePath("sqlite"); filepath.Ext(got) != ".db" {
		t.Errorf("sqlite path = %q, want .db", got)
	}
	if got := defaultStoragePath("file"); filepath.Ext(got) != ".json" {
		t.Errorf("file path = %q, want .json", got)
	}
}

const openWeatherYAML = `
weather_api:
  provider: openweather
  url: "https://api.example.com"
  timeout: "2s"
reliability:
  retry_max_attempts: 1
  rate_limit_rps: 5
  rate_limit_burst: 10
storage:
  backend: memory
`

func writeEnvFile(t *testing.T, dir, content string) {
	t.Helper()
	configDir := filepath.Join(dir, "config")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("mkdir config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "dev.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
}

func writeSecretsFile(t *testing.T, dir, content string) {
	t.Helper()
	secretsDir := filepath.Join(dir, "config")
	if err := os.MkdirAll(secretsDir, 0755); err != nil {
		t.Fatalf("mkdir config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(secretsDir, "secrets.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("write secrets file: %v", err)
	}
}

// TestCoverageGaps_IntentionallyUntested documents paths we reviewed but chose not to test.
// Run with -v to see skip reasons. These gaps do not affect coverage targets.
func TestCoverageGaps_IntentionallyUntested(t *testing.T) {
	t.Run("loadAPIKeyFromSecrets_read_error", func(t *testing.T) {
		t.Skip("read-error path (non-IsNotExist) requires simulated ReadFile failure; would need OS-specific tricks, not worth portability cost")
	})
	t.Run("Load_read_config_error", func(t *testing.T) {
		t.Skip("ReadFile error path (permission denied, etc.) same as loadAPIKeyFromSecrets; would require injecting failure")
	})
	t.Run("defaultStoragePath_no_config_dir", func(t *testing.T) {
		t.Skip("os.UserConfigDir only fails when HOME and XDG_CONFIG_HOME are both unset; covered by inspection")
	})
}

func findProjectRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "config", "dev.yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("config/dev.yaml not found (run tests from project root)")
		}
		dir = parent
	}
}
