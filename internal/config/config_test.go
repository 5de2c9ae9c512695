package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":3001" || cfg.DisconnectGrace != 60*time.Second || cfg.EloK != 32 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.DefaultMinutes != 10 || cfg.DefaultIncrement != 0 || cfg.DefaultRating != 1200 {
		t.Fatalf("unexpected time/rating defaults: %+v", cfg)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ARENA_ADDR", ":9000")
	t.Setenv("DISCONNECT_GRACE_SEC", "15")
	t.Setenv("CLOCK_TICK_MS", "250")
	t.Setenv("ABANDONED_ROOM_TTL_SEC", "30")
	t.Setenv("ALLOWED_ORIGINS", "http://localhost:3000, https://arena.example ,")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":9000" || cfg.DisconnectGrace != 15*time.Second || cfg.ClockTick != 250*time.Millisecond {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.AbandonedTTL != 30*time.Second || cfg.FinishedRoomTTL != 5*time.Minute {
		t.Fatalf("room ttls: %+v", cfg)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://arena.example" {
		t.Fatalf("unexpected origins: %v", cfg.AllowedOrigins)
	}
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("DEFAULT_MINUTES=3\nDEFAULT_INCREMENT_SEC=2\n"), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Cleanup(func() {
		os.Unsetenv("DEFAULT_MINUTES")
		os.Unsetenv("DEFAULT_INCREMENT_SEC")
	})
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DefaultMinutes != 3 || cfg.DefaultIncrement != 2 {
		t.Fatalf(".env values not applied: %+v", cfg)
	}
}

func TestLoad_RejectsBadValues(t *testing.T) {
	t.Setenv("ELO_K", "-4")
	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Fatalf("expected error for negative ELO_K")
	}
}
