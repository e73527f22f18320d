// Package history samples XP totals of recently active members so member
// profiles can chart growth over time.
package history

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/chatrhq/chatr/internal/platform/timeouts"
	"github.com/chatrhq/chatr/internal/services/leveling/storage"
)

// DefaultInterval is how often the tracker snapshots active members.
const DefaultInterval = time.Hour

// Reader loads current member records for sampling.
type Reader interface {
	GetMember(ctx context.Context, communityID, memberID string) (storage.Member, error)
}

type memberKey struct {
	communityID string
	memberID    string
}

// Tracker collects members that had an accepted contribution since the last
// flush and appends one XP snapshot per member on each flush. It implements
// the engine's activity recorder.
type Tracker struct {
	reader Reader
	store  storage.HistoryStore
	clock  func() time.Time

	mu      sync.Mutex
	pending map[memberKey]struct{}
}

// NewTracker constructs a history tracker.
func NewTracker(reader Reader, store storage.HistoryStore, clock func() time.Time) *Tracker {
	if clock == nil {
		clock = time.Now
	}
	return &Tracker{
		reader:  reader,
		store:   store,
		clock:   clock,
		pending: make(map[memberKey]struct{}),
	}
}

// MarkActive records that the member had an accepted contribution. Marking
// is deduplicated until the next flush.
func (t *Tracker) MarkActive(communityID, memberID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending[memberKey{communityID: communityID, memberID: memberID}] = struct{}{}
}

// Pending reports how many members await the next flush.
func (t *Tracker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// Flush samples every pending member's current XP and appends the batch as
// one snapshot set. Members deleted since they were marked are skipped.
func (t *Tracker) Flush(ctx context.Context) error {
	t.mu.Lock()
	batch := make([]memberKey, 0, len(t.pending))
	for key := range t.pending {
		batch = append(batch, key)
	}
	t.pending = make(map[memberKey]struct{})
	t.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}
	// Map iteration order is random; stable output makes failures easier
	// to read.
	sort.Slice(batch, func(i, j int) bool {
		if batch[i].communityID != batch[j].communityID {
			return batch[i].communityID < batch[j].communityID
		}
		return batch[i].memberID < batch[j].memberID
	})

	now := t.clock()
	snapshots := make([]storage.XPSnapshot, 0, len(batch))
	for _, key := range batch {
		member, err := t.reader.GetMember(ctx, key.communityID, key.memberID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			return err
		}
		snapshots = append(snapshots, storage.XPSnapshot{
			CommunityID: key.communityID,
			MemberID:    key.memberID,
			XP:          member.XP,
			RecordedAt:  now,
		})
	}
	if len(snapshots) == 0 {
		return nil
	}
	return t.store.AppendXPSnapshots(ctx, snapshots)
}

// Run flushes on the given interval until the context is cancelled, then
// performs one final flush so marks from the last window are not lost.
func (t *Tracker) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), timeouts.HistoryFlush)
			if err := t.Flush(flushCtx); err != nil {
				log.Printf("history final flush: %v", err)
			}
			cancel()
			return
		case <-ticker.C:
			flushCtx, cancel := context.WithTimeout(ctx, timeouts.HistoryFlush)
			if err := t.Flush(flushCtx); err != nil {
				log.Printf("history flush: %v", err)
			}
			cancel()
		}
	}
}
