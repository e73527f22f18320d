package leveling

import (
	"flag"
	"testing"
	"time"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("leveling", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Port != 18103 {
		t.Fatalf("expected default port 18103, got %d", cfg.Port)
	}
	if cfg.DBPath != "data/leveling.db" {
		t.Fatalf("unexpected default db path %q", cfg.DBPath)
	}
	if cfg.HistoryInterval != time.Hour {
		t.Fatalf("unexpected default history interval %v", cfg.HistoryInterval)
	}
	if cfg.DigestInterval != time.Hour {
		t.Fatalf("unexpected default digest interval %v", cfg.DigestInterval)
	}
	if cfg.AnnounceOverrides {
		t.Fatal("override announcements should default off")
	}
}

func TestParseConfigOverrides(t *testing.T) {
	t.Setenv("CHATR_LEVELING_PORT", "9090")

	fs := flag.NewFlagSet("leveling", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-port", "9091", "-history-interval", "15m"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Port != 9091 {
		t.Fatalf("expected port override 9091, got %d", cfg.Port)
	}
	if cfg.HistoryInterval != 15*time.Minute {
		t.Fatalf("expected interval override, got %v", cfg.HistoryInterval)
	}
}
