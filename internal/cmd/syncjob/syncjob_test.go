package syncjob

import (
	"flag"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("syncjob", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.DBPath != "data/leveling.db" {
		t.Fatalf("unexpected default db path %q", cfg.DBPath)
	}
}

func TestParseConfigFlags(t *testing.T) {
	fs := flag.NewFlagSet("syncjob", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-community", "c-1", "-source", "mee6"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Community != "c-1" || cfg.Source != "mee6" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}
