package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	if err := os.Setenv("SERVER_PORT", "9090"); err != nil {
		t.Fatalf("Failed to set SERVER_PORT: %v", err)
	}
	if err := os.Setenv("CLICKHOUSE_HOST", "ch-test"); err != nil {
		t.Fatalf("Failed to set CLICKHOUSE_HOST: %v", err)
	}
	if err := os.Setenv("CACHE_TTL", "45s"); err != nil {
		t.Fatalf("Failed to set CACHE_TTL: %v", err)
	}
	defer func() {
		_ = os.Unsetenv("SERVER_PORT")
		_ = os.Unsetenv("CLICKHOUSE_HOST")
		_ = os.Unsetenv("CACHE_TTL")
	}()

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("Server.Port = %v, want %v", cfg.Server.Port, "9090")
	}

	if cfg.Database.ClickHouse.Host != "ch-test" {
		t.Errorf("Database.ClickHouse.Host = %v, want %v", cfg.Database.ClickHouse.Host, "ch-test")
	}

	if cfg.Cache.TTL != 45*time.Second {
		t.Errorf("Cache.TTL = %v, want %v", cfg.Cache.TTL, 45*time.Second)
	}
}

func TestLoadConfig_ChartDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Chart.MaxPoints != 50 {
		t.Errorf("Chart.MaxPoints = %v, want 50", cfg.Chart.MaxPoints)
	}
	if cfg.Chart.MaxPointsNarrow != 25 {
		t.Errorf("Chart.MaxPointsNarrow = %v, want 25", cfg.Chart.MaxPointsNarrow)
	}
}

func TestGetEnvAsInt(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue int
		want         int
	}{
		{name: "parses integer", envValue: "42", defaultValue: 7, want: 42},
		{name: "falls back on garbage", envValue: "not-a-number", defaultValue: 7, want: 7},
		{name: "falls back when unset", envValue: "", defaultValue: 7, want: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			const key = "TEST_INT_KEY"
			if tt.envValue != "" {
				if err := os.Setenv(key, tt.envValue); err != nil {
					t.Fatalf("Failed to set env var: %v", err)
				}
				defer func() {
					_ = os.Unsetenv(key)
				}()
			}

			if got := getEnvAsInt(key, tt.defaultValue); got != tt.want {
				t.Errorf("getEnvAsInt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	const key = "TEST_DURATION_KEY"
	if err := os.Setenv(key, "90s"); err != nil {
		t.Fatalf("Failed to set env var: %v", err)
	}
	defer func() {
		_ = os.Unsetenv(key)
	}()

	if got := getEnvAsDuration(key, time.Second); got != 90*time.Second {
		t.Errorf("getEnvAsDuration() = %v, want 90s", got)
	}
}
