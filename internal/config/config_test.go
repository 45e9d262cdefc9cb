// FilePath: internal/config/config_test.go
package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
)

func loadWithEnv(t *testing.T, env map[string]string) (*Config, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	for k, v := range env {
		t.Setenv(k, v)
	}
	return Load()
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := loadWithEnv(t, map[string]string{
		"GREENHUB_DATABASE__HOST": "localhost",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Aggregator.WindowDuration != 15*time.Minute {
		t.Errorf("expected 15m aggregation window, got %v", cfg.Aggregator.WindowDuration)
	}
	if cfg.Retention.MaxAge != 9528*time.Hour {
		t.Errorf("expected 13-month retention, got %v", cfg.Retention.MaxAge)
	}
	if cfg.Retention.SweepInterval != 24*time.Hour {
		t.Errorf("expected daily sweep, got %v", cfg.Retention.SweepInterval)
	}
	if cfg.Database.Port != 5432 {
		t.Errorf("expected default postgres port, got %d", cfg.Database.Port)
	}
	if cfg.MQTT.TimeoutMS != 5000 {
		t.Errorf("expected 5000ms mqtt timeout, got %d", cfg.MQTT.TimeoutMS)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	cfg, err := loadWithEnv(t, map[string]string{
		"GREENHUB_DATABASE__HOST":              "db.internal",
		"GREENHUB_SERVER__PORT":                "9090",
		"GREENHUB_AGGREGATOR__WINDOW_DURATION": "5m",
		"GREENHUB_REDIS__HOST":                 "cache.internal",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Database.Host != "db.internal" {
		t.Errorf("expected env database host, got %q", cfg.Database.Host)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected env port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Aggregator.WindowDuration != 5*time.Minute {
		t.Errorf("expected 5m window, got %v", cfg.Aggregator.WindowDuration)
	}
	if cfg.Redis.Host != "cache.internal" {
		t.Errorf("expected env redis host, got %q", cfg.Redis.Host)
	}
}

func TestLoadRejectsMissingDatabaseHost(t *testing.T) {
	if _, err := loadWithEnv(t, nil); err == nil {
		t.Fatal("expected validation error without database host")
	}
}

func TestLoadRejectsNonPositiveWindow(t *testing.T) {
	_, err := loadWithEnv(t, map[string]string{
		"GREENHUB_DATABASE__HOST":              "localhost",
		"GREENHUB_AGGREGATOR__WINDOW_DURATION": "0s",
	})
	if err == nil {
		t.Fatal("expected validation error for zero window")
	}
}
