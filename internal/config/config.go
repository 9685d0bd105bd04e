package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Provider names.
const (
	ProviderOpenWeather = "openweather"
	ProviderMock        = "mock"
)

// Geolocation modes.
const (
	GeolocationIP     = "ip"
	GeolocationStatic = "static"
	GeolocationNone   = "none"
)

// Config holds widget configuration loaded from YAML, .env and the environment.
type Config struct {
	LogLevel string

	Provider          string // "openweather" or "mock"
	WeatherAPIKey     string
	WeatherAPIURL     string
	WeatherAPITimeout time.Duration

	RetryAttempts  int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	RateLimitRPS   int
	RateLimitBurst int

	BreakerFailureThreshold int
	BreakerSuccessThreshold int
	BreakerOpenTimeout      time.Duration

	MockDelay            time.Duration
	MockFabricateUnknown bool

	SuggestDebounce time.Duration
	CityMinLength   int
	CityMaxLength   int

	GeolocationMode    string // "ip", "static" or "none"
	GeolocationURL     string
	GeolocationTimeout time.Duration
	StaticLatitude     float64
	StaticLongitude    float64

	StorageBackend        string // "memory", "file", "memcached" or "sqlite"
	StoragePath           string
	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int

	RecentCapacity  int
	RefreshInterval time.Duration
}

type fileConfig struct {
	LogLevel string `yaml:"log_level"`

	WeatherAPI struct {
		Provider string `yaml:"provider"`
		URL      string `yaml:"url"`
		Timeout  string `yaml:"timeout"`
	} `yaml:"weather_api"`

	Reliability struct {
		RetryMaxAttempts        int    `yaml:"retry_max_attempts"`
		RetryBaseDelay          string `yaml:"retry_base_delay"`
		RetryMaxDelay           string `yaml:"retry_max_delay"`
		RateLimitRPS            int    `yaml:"rate_limit_rps"`
		RateLimitBurst          int    `yaml:"rate_limit_burst"`
		BreakerFailureThreshold int    `yaml:"breaker_failure_threshold"`
		BreakerSuccessThreshold int    `yaml:"breaker_success_threshold"`
		BreakerOpenTimeout      string `yaml:"breaker_open_timeout"`
	} `yaml:"reliability"`

	Mock struct {
		Delay            string `yaml:"delay"`
		FabricateUnknown bool   `yaml:"fabricate_unknown"`
	} `yaml:"mock"`

	Search struct {
		SuggestDebounce string `yaml:"suggest_debounce"`
		CityMinLength   int    `yaml:"city_min_length"`
		CityMaxLength   int    `yaml:"city_max_length"`
		RecentCapacity  int    `yaml:"recent_capacity"`
	} `yaml:"search"`

	Geolocation struct {
		Mode      string   `yaml:"mode"`
		URL       string   `yaml:"url"`
		Timeout   string   `yaml:"timeout"`
		Latitude  *float64 `yaml:"latitude"`
		Longitude *float64 `yaml:"longitude"`
	} `yaml:"geolocation"`

	Storage struct {
		Backend   string `yaml:"backend"`
		Path      string `yaml:"path"`
		Memcached struct {
			Addrs        string `yaml:"addrs"`
			Timeout      string `yaml:"timeout"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
		} `yaml:"memcached"`
	} `yaml:"storage"`

	Refresh struct {
		Interval string `yaml:"interval"`
	} `yaml:"refresh"`
}

type secretsFile struct {
	WeatherAPIKey string `yaml:"weather_api_key"`
}

// envOverrides are read with envconfig after the YAML file. Empty values
// leave the file setting in place.
type envOverrides struct {
	LogLevel        string `envconfig:"LOG_LEVEL"`
	WeatherAPIKey   string `envconfig:"WEATHER_API_KEY"`
	Provider        string `envconfig:"WEATHER_PROVIDER"`
	StorageBackend  string `envconfig:"STORAGE_BACKEND"`
	StoragePath     string `envconfig:"STORAGE_PATH"`
	MemcachedAddrs  string `envconfig:"MEMCACHED_ADDRS"`
	GeolocationMode string `envconfig:"GEOLOCATION_MODE"`
}

// Load reads configuration from config/{ENV_NAME}.yaml (default dev), then
// .env, the environment and config/secrets.yaml. Call from project root.
func Load() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	if err := godotenv.Load(filepath.Join(cwd, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}
	configPath := filepath.Join(cwd, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	var ov envOverrides
	if err := envconfig.Process("", &ov); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	cfg := &Config{}
	cfg.LogLevel = firstNonEmpty(ov.LogLevel, fc.LogLevel)

	cfg.Provider = lower(firstNonEmpty(ov.Provider, fc.WeatherAPI.Provider, ProviderMock))
	cfg.WeatherAPIURL = fc.WeatherAPI.URL
	if cfg.WeatherAPIURL == "" {
		cfg.WeatherAPIURL = "https://api.openweathermap.org/data/2.5/weather"
	}
	cfg.WeatherAPITimeout = parseDurationOrZero(fc.WeatherAPI.Timeout, 10*time.Second)

	cfg.WeatherAPIKey = ov.WeatherAPIKey
	if cfg.WeatherAPIKey == "" {
		key, err := loadAPIKeyFromSecrets(cwd)
		if err != nil {
			return nil, err
		}
		cfg.WeatherAPIKey = key
	}

	cfg.RetryAttempts = fc.Reliability.RetryMaxAttempts
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 1
	}
	cfg.RetryBaseDelay = parseDuration(fc.Reliability.RetryBaseDelay, 100*time.Millisecond)
	cfg.RetryMaxDelay = parseDuration(fc.Reliability.RetryMaxDelay, 2*time.Second)
	cfg.RateLimitRPS = fc.Reliability.RateLimitRPS
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 5
	}
	cfg.RateLimitBurst = fc.Reliability.RateLimitBurst
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 10
	}
	cfg.BreakerFailureThreshold = fc.Reliability.BreakerFailureThreshold
	if cfg.BreakerFailureThreshold <= 0 {
		cfg.BreakerFailureThreshold = 5
	}
	cfg.BreakerSuccessThreshold = fc.Reliability.BreakerSuccessThreshold
	if cfg.BreakerSuccessThreshold <= 0 {
		cfg.BreakerSuccessThreshold = 2
	}
	cfg.BreakerOpenTimeout = parseDuration(fc.Reliability.BreakerOpenTimeout, 30*time.Second)

	cfg.MockDelay = parseDurationOrZero(fc.Mock.Delay, time.Second)
	cfg.MockFabricateUnknown = fc.Mock.FabricateUnknown

	cfg.SuggestDebounce = parseDurationOrZero(fc.Search.SuggestDebounce, 300*time.Millisecond)
	cfg.CityMinLength = fc.Search.CityMinLength
	if cfg.CityMinLength <= 0 {
		cfg.CityMinLength = 1
	}
	cfg.CityMaxLength = fc.Search.CityMaxLength
	if cfg.CityMaxLength <= 0 {
		cfg.CityMaxLength = 100
	}
	cfg.RecentCapacity = fc.Search.RecentCapacity
	if cfg.RecentCapacity <= 0 {
		cfg.RecentCapacity = 5
	}

	cfg.GeolocationMode = lower(firstNonEmpty(ov.GeolocationMode, fc.Geolocation.Mode, GeolocationIP))
	cfg.GeolocationURL = fc.Geolocation.URL
	cfg.GeolocationTimeout = parseDuration(fc.Geolocation.Timeout, 10*time.Second)
	if fc.Geolocation.Latitude != nil {
		cfg.StaticLatitude = *fc.Geolocation.Latitude
	}
	if fc.Geolocation.Longitude != nil {
		cfg.StaticLongitude = *fc.Geolocation.Longitude
	}

	cfg.StorageBackend = lower(firstNonEmpty(ov.StorageBackend, fc.Storage.Backend, "file"))
	cfg.StoragePath = firstNonEmpty(ov.StoragePath, fc.Storage.Path)
	if cfg.StoragePath == "" {
		cfg.StoragePath = defaultStoragePath(cfg.StorageBackend)
	}
	cfg.MemcachedAddrs = firstNonEmpty(ov.MemcachedAddrs, fc.Storage.Memcached.Addrs, "localhost:11211")
	cfg.MemcachedTimeout = parseDuration(fc.Storage.Memcached.Timeout, 500*time.Millisecond)
	cfg.MemcachedMaxIdleConns = fc.Storage.Memcached.MaxIdleConns
	if cfg.MemcachedMaxIdleConns <= 0 {
		cfg.MemcachedMaxIdleConns = 2
	}

	cfg.RefreshInterval = parseDuration(fc.Refresh.Interval, 10*time.Minute)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadAPIKeyFromSecrets(cwd string) (string, error) {
	secretsPath := filepath.Join(cwd, "config", "secrets.yaml")
	secretsData, err := os.ReadFile(secretsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read secrets file: %w", err)
	}
	var sec secretsFile
	if err := yaml.Unmarshal(secretsData, &sec); err != nil {
		return "", fmt.Errorf("parse secrets file: %w", err)
	}
	return sec.WeatherAPIKey, nil
}

// defaultStoragePath places persisted preferences under the user config dir,
// falling back to the working directory.
func defaultStoragePath(backend string) string {
	name := "prefs.json"
	if backend == "sqlite" {
		name = "prefs.db"
	}
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return filepath.Join(".weather-widget", name)
	}
	return filepath.Join(dir, "weather-widget", name)
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero parses a duration string, returning defaultVal on empty string or parse error.
// Zero and negative durations are returned as-is; for the mock delay and the
// suggestion debounce they mean "none".
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func lower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// validate performs post-load validation of configuration values.
func validate(cfg *Config) error {
	switch cfg.Provider {
	case ProviderOpenWeather:
		if cfg.WeatherAPIKey == "" {
			return fmt.Errorf("WEATHER_API_KEY required for provider openweather (set env, .env or config/secrets.yaml weather_api_key)")
		}
		if cfg.WeatherAPITimeout <= 0 {
			return fmt.Errorf("weather_api.timeout must be positive")
		}
	case ProviderMock:
		// no key needed
	default:
		return fmt.Errorf("weather_api.provider must be openweather or mock, got %q", cfg.Provider)
	}

	switch cfg.StorageBackend {
	case "memory", "file", "memcached", "sqlite":
		// valid
	default:
		return fmt.Errorf("storage.backend must be memory, file, memcached or sqlite, got %q", cfg.StorageBackend)
	}

	switch cfg.GeolocationMode {
	case GeolocationIP, GeolocationNone:
		// valid
	case GeolocationStatic:
		if cfg.StaticLatitude < -90 || cfg.StaticLatitude > 90 || cfg.StaticLongitude < -180 || cfg.StaticLongitude > 180 {
			return fmt.Errorf("geolocation latitude/longitude out of range")
		}
	default:
		return fmt.Errorf("geolocation.mode must be ip, static or none, got %q", cfg.GeolocationMode)
	}

	if cfg.CityMinLength > cfg.CityMaxLength {
		return fmt.Errorf("search.city_min_length must not exceed search.city_max_length")
	}
	return nil
}
