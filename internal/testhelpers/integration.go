//go:build integration
// +build integration

package testhelpers

import (
	"os"
	"testing"
)

// IntegrationTestConfig holds configuration for integration tests.
type IntegrationTestConfig struct {
	APIKey        string
	APIURL        string
	MemcachedAddr string
}

// GetIntegrationConfig loads integration test configuration from environment.
// Skips test if WEATHER_API_KEY is not set.
func GetIntegrationConfig(t *testing.T) IntegrationTestConfig {
	t.Helper()
	apiKey := os.Getenv("WEATHER_API_KEY")
	if apiKey == "" {
		t.Skip("WEATHER_API_KEY not set, skipping integration test")
	}

	cfg := storageConfig()
	cfg.APIKey = apiKey
	cfg.APIURL = os.Getenv("WEATHER_API_URL")
	if cfg.APIURL == "" {
		cfg.APIURL = "https://api.openweathermap.org/data/2.5/weather"
	}
	return cfg
}

// GetStorageConfig loads storage-only integration settings. It never skips;
// storage tests skip themselves when the backend is unreachable.
func GetStorageConfig(t *testing.T) IntegrationTestConfig {
	t.Helper()
	return storageConfig()
}

func storageConfig() IntegrationTestConfig {
	memcachedAddr := os.Getenv("MEMCACHED_ADDRS")
	if memcachedAddr == "" {
		memcachedAddr = "localhost:11211"
	}
	return IntegrationTestConfig{MemcachedAddr: memcachedAddr}
}
