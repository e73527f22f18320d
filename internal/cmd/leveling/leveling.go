// Package leveling parses leveling service flags and launches the service.
package leveling

import (
	"context"
	"flag"
	"fmt"
	"time"

	entrypoint "github.com/chatrhq/chatr/internal/platform/cmd"
	"github.com/chatrhq/chatr/internal/platform/timeouts"
	"github.com/chatrhq/chatr/internal/services/leveling/app"
	"github.com/chatrhq/chatr/internal/services/leveling/domain"
	"github.com/chatrhq/chatr/internal/services/leveling/history"
	"github.com/chatrhq/chatr/internal/services/leveling/notify"
	"github.com/chatrhq/chatr/internal/services/leveling/storage/sqlite"
	"github.com/chatrhq/chatr/internal/services/leveling/sync"
)

// Config holds leveling command configuration.
type Config struct {
	Port              int           `env:"CHATR_LEVELING_PORT" envDefault:"18103"`
	DBPath            string        `env:"CHATR_LEVELING_DB_PATH" envDefault:"data/leveling.db"`
	AuthSecret        string        `env:"CHATR_LEVELING_AUTH_SECRET"`
	AnnounceWebhook   string        `env:"CHATR_LEVELING_ANNOUNCE_WEBHOOK"`
	HistoryInterval   time.Duration `env:"CHATR_LEVELING_HISTORY_INTERVAL" envDefault:"1h"`
	DigestInterval    time.Duration `env:"CHATR_LEVELING_DIGEST_INTERVAL" envDefault:"1h"`
	AnnounceOverrides bool          `env:"CHATR_LEVELING_ANNOUNCE_OVERRIDES" envDefault:"false"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The leveling HTTP server port")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The leveling SQLite database path")
	fs.StringVar(&cfg.AnnounceWebhook, "announce-webhook", cfg.AnnounceWebhook, "Chat gateway webhook URL for announcements")
	fs.DurationVar(&cfg.HistoryInterval, "history-interval", cfg.HistoryInterval, "XP history snapshot interval")
	fs.DurationVar(&cfg.DigestInterval, "digest-interval", cfg.DigestInterval, "Leaderboard digest broadcast interval")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the leveling HTTP API service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceLeveling, func(ctx context.Context) error {
		if cfg.AuthSecret == "" {
			return fmt.Errorf("CHATR_LEVELING_AUTH_SECRET is required")
		}

		store, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer func() {
			_ = store.Close()
		}()

		var sender notify.ChatSender = notify.LogSender{}
		if cfg.AnnounceWebhook != "" {
			sender = notify.NewWebhookSender(nil, cfg.AnnounceWebhook)
		}
		announcer := notify.NewAnnouncer(sender, nil)
		tracker := history.NewTracker(store, store, nil)

		engine := domain.NewServiceWithOptions(store, domain.NewGate(), announcer, nil, domain.Options{
			AnnounceOverrides: cfg.AnnounceOverrides,
			Recorder:          tracker,
		})
		importer := sync.NewImporter(store, nil, nil)
		server := app.NewServer(engine, store, importer, sync.NewRegistry(nil), app.TokenConfig{
			Secret: []byte(cfg.AuthSecret),
		})

		digest := notify.NewDigest(store, sender, nil)

		go tracker.Run(ctx, cfg.HistoryInterval)
		go digest.Run(ctx, cfg.DigestInterval)

		return app.Run(ctx, fmt.Sprintf(":%d", cfg.Port), server, timeouts.ReadHeader, timeouts.Shutdown)
	})
}
