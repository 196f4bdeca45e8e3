package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Addr != ":8080" {
		t.Errorf("Addr = %q, want %q", cfg.Addr, ":8080")
	}
	if cfg.MaxIdentities != 100000 {
		t.Errorf("MaxIdentities = %d, want %d", cfg.MaxIdentities, 100000)
	}
	if cfg.MinReactionTime != 100*time.Millisecond {
		t.Errorf("MinReactionTime = %v, want %v", cfg.MinReactionTime, 100*time.Millisecond)
	}
	if cfg.MaxPixelsPerMs != 6 {
		t.Errorf("MaxPixelsPerMs = %v, want %v", cfg.MaxPixelsPerMs, 6.0)
	}
	if cfg.JitterVariance != 0.001 {
		t.Errorf("JitterVariance = %v, want %v", cfg.JitterVariance, 0.001)
	}
	if cfg.RoundDuration != 15*time.Second {
		t.Errorf("RoundDuration = %v, want %v", cfg.RoundDuration, 15*time.Second)
	}
	if cfg.RankingLimit != 10 {
		t.Errorf("RankingLimit = %d, want %d", cfg.RankingLimit, 10)
	}
	if cfg.TickInterval != 33*time.Millisecond {
		t.Errorf("TickInterval = %v, want %v", cfg.TickInterval, 33*time.Millisecond)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	t.Setenv("AIMRANGE_ADDR", ":2222")
	t.Setenv("AIMRANGE_ROUND_DURATION", "30s")
	t.Setenv("AIMRANGE_MAX_IDENTITIES", "500")
	t.Setenv("AIMRANGE_MIN_REACTION_TIME", "150ms")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Addr != ":2222" {
		t.Errorf("Addr = %q, want %q", cfg.Addr, ":2222")
	}
	if cfg.RoundDuration != 30*time.Second {
		t.Errorf("RoundDuration = %v, want %v", cfg.RoundDuration, 30*time.Second)
	}
	if cfg.MaxIdentities != 500 {
		t.Errorf("MaxIdentities = %d, want %d", cfg.MaxIdentities, 500)
	}
	if cfg.MinReactionTime != 150*time.Millisecond {
		t.Errorf("MinReactionTime = %v, want %v", cfg.MinReactionTime, 150*time.Millisecond)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("AIMRANGE_ROUND_DURATION", "abc")

	if _, err := Load(); err == nil {
		t.Error("Load() should fail for an unparseable duration")
	}
}
