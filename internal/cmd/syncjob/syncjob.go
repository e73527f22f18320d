// Package syncjob parses sync job flags and runs a one-shot leaderboard
// import.
package syncjob

import (
	"context"
	"flag"
	"fmt"
	"log"

	entrypoint "github.com/chatrhq/chatr/internal/platform/cmd"
	"github.com/chatrhq/chatr/internal/services/leveling/storage/sqlite"
	"github.com/chatrhq/chatr/internal/services/leveling/sync"
)

// Config holds sync job configuration.
type Config struct {
	DBPath    string `env:"CHATR_LEVELING_DB_PATH" envDefault:"data/leveling.db"`
	Community string `env:"CHATR_SYNC_COMMUNITY"`
	Source    string `env:"CHATR_SYNC_SOURCE"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The leveling SQLite database path")
	fs.StringVar(&cfg.Community, "community", cfg.Community, "Community id to import")
	fs.StringVar(&cfg.Source, "source", cfg.Source, "Sync source name (polaris, mee6, lurkr)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run performs one leaderboard import and exits.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceSyncJob, func(ctx context.Context) error {
		if cfg.Community == "" {
			return fmt.Errorf("community id is required")
		}
		if cfg.Source == "" {
			return fmt.Errorf("sync source is required")
		}

		store, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer func() {
			_ = store.Close()
		}()

		source, err := sync.NewRegistry(nil).Source(cfg.Source)
		if err != nil {
			return err
		}
		result, err := sync.NewImporter(store, nil, nil).Run(ctx, cfg.Community, source)
		if err != nil {
			return err
		}
		log.Printf("imported %d members from %s in %d pages", result.Imported, result.Source, result.Pages)
		return nil
	})
}
