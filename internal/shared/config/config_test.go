package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8090 {
		t.Errorf("Server.Port = %d, want 8090", cfg.Server.Port)
	}
	if cfg.Backend.BaseURL != "http://localhost:8000" {
		t.Errorf("Backend.BaseURL = %s", cfg.Backend.BaseURL)
	}
	if cfg.Poll.AlertInterval != 15*time.Second {
		t.Errorf("Poll.AlertInterval = %s, want 15s", cfg.Poll.AlertInterval)
	}
	if cfg.Poll.BedInterval != 10*time.Second {
		t.Errorf("Poll.BedInterval = %s, want 10s", cfg.Poll.BedInterval)
	}
	if cfg.Search.Debounce != 600*time.Millisecond {
		t.Errorf("Search.Debounce = %s, want 600ms", cfg.Search.Debounce)
	}
	if cfg.Search.MaxSuggestions != 15 {
		t.Errorf("Search.MaxSuggestions = %d, want 15", cfg.Search.MaxSuggestions)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("BACKEND_TIMEOUT", "3s")
	t.Setenv("TRIAGE_SHIFT_COOLDOWN", "1m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Backend.Timeout != 3*time.Second {
		t.Errorf("Backend.Timeout = %s, want 3s", cfg.Backend.Timeout)
	}
	if cfg.Triage.ShiftCooldown != time.Minute {
		t.Errorf("Triage.ShiftCooldown = %s, want 1m", cfg.Triage.ShiftCooldown)
	}
}

func TestMalformedEnvFallsBackToDefault(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-number")
	t.Setenv("SEARCH_DEBOUNCE", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8090 {
		t.Errorf("Server.Port = %d, want default 8090", cfg.Server.Port)
	}
	if cfg.Search.Debounce != 600*time.Millisecond {
		t.Errorf("Search.Debounce = %s, want default", cfg.Search.Debounce)
	}
}
