package notify

import (
	"context"
	"log"
	"time"

	"github.com/chatrhq/chatr/internal/platform/timeouts"
	"github.com/chatrhq/chatr/internal/services/leveling/render"
	"github.com/chatrhq/chatr/internal/services/leveling/storage"
)

// DefaultDigestInterval is how often digests go out when no interval is
// configured.
const DefaultDigestInterval = time.Hour

// DigestStore loads the communities and leaderboards a digest pass reads.
type DigestStore interface {
	ListCommunitiesWithUpdates(ctx context.Context) ([]storage.Community, error)
	ListMembersByXP(ctx context.Context, communityID string, limit int) ([]storage.Member, error)
}

// Digest periodically posts a leaderboard summary to every community that
// has updates enabled and a channel configured.
type Digest struct {
	store    DigestStore
	sender   ChatSender
	renderer *render.Renderer
}

// NewDigest constructs a digest broadcaster. A nil renderer falls back to
// English.
func NewDigest(store DigestStore, sender ChatSender, renderer *render.Renderer) *Digest {
	if renderer == nil {
		renderer = render.NewEnglishRenderer()
	}
	return &Digest{store: store, sender: sender, renderer: renderer}
}

// Broadcast posts one digest per eligible community and reports how many
// went out. A failed send is logged and skipped so one broken channel does
// not starve the rest.
func (d *Digest) Broadcast(ctx context.Context) (int, error) {
	communities, err := d.store.ListCommunitiesWithUpdates(ctx)
	if err != nil {
		return 0, err
	}

	posted := 0
	for _, community := range communities {
		if err := ctx.Err(); err != nil {
			return posted, err
		}
		members, err := d.store.ListMembersByXP(ctx, community.CommunityID, render.DigestSize)
		if err != nil {
			log.Printf("digest leaderboard %s: %v", community.CommunityID, err)
			continue
		}
		if len(members) == 0 {
			continue
		}
		name := community.Name
		if name == "" {
			name = community.CommunityID
		}
		text := d.renderer.LeaderboardDigest(name, members)
		if err := d.sender.SendMessage(ctx, community.UpdatesChannel, text); err != nil {
			log.Printf("digest send %s: %v", community.CommunityID, err)
			continue
		}
		posted++
	}
	return posted, nil
}

// Run broadcasts on the given interval until the context is cancelled.
func (d *Digest) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultDigestInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			passCtx, cancel := context.WithTimeout(ctx, timeouts.DigestBroadcast)
			if _, err := d.Broadcast(passCtx); err != nil {
				log.Printf("digest broadcast: %v", err)
			}
			cancel()
		}
	}
}
