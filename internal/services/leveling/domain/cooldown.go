package domain

import (
	"hash/fnv"
	"sync"
	"time"
)

// DefaultCooldown applies when a community has no explicit cooldown
// configured.
const DefaultCooldown = 30 * time.Second

const gateShards = 64

type gateKey struct {
	communityID string
	memberID    string
}

type gateShard struct {
	mu   sync.Mutex
	last map[gateKey]time.Time
}

// Gate is the per-member cooldown gate. State is in-memory only and lost on
// restart, which at worst lets one extra contribution through afterwards.
//
// The map is sharded by key so contributions from different members never
// contend on the same lock, while two concurrent calls for one member still
// serialize on their shard.
type Gate struct {
	shards [gateShards]gateShard
}

// NewGate creates an empty cooldown gate.
func NewGate() *Gate {
	g := &Gate{}
	for i := range g.shards {
		g.shards[i].last = make(map[gateKey]time.Time)
	}
	return g
}

func (g *Gate) shard(key gateKey) *gateShard {
	h := fnv.New32a()
	h.Write([]byte(key.communityID))
	h.Write([]byte{0})
	h.Write([]byte(key.memberID))
	return &g.shards[h.Sum32()%gateShards]
}

// TryAccept reports whether a contribution at now is allowed for the member
// and, if so, records now as the member's last accepted timestamp in the same
// critical section. A member with no recorded timestamp is always accepted.
func (g *Gate) TryAccept(communityID, memberID string, now time.Time, cooldown time.Duration) bool {
	key := gateKey{communityID: communityID, memberID: memberID}
	shard := g.shard(key)

	shard.mu.Lock()
	defer shard.mu.Unlock()

	if last, ok := shard.last[key]; ok && now.Sub(last) < cooldown {
		return false
	}
	shard.last[key] = now
	return true
}

// Forget drops the member's cooldown state, if any.
func (g *Gate) Forget(communityID, memberID string) {
	key := gateKey{communityID: communityID, memberID: memberID}
	shard := g.shard(key)

	shard.mu.Lock()
	defer shard.mu.Unlock()
	delete(shard.last, key)
}

// Sweep removes entries whose last accepted timestamp is older than maxAge
// and returns how many were dropped. Sweeping only bounds memory; the gate
// stays correct without it.
func (g *Gate) Sweep(now time.Time, maxAge time.Duration) int {
	swept := 0
	for i := range g.shards {
		shard := &g.shards[i]
		shard.mu.Lock()
		for key, last := range shard.last {
			if now.Sub(last) >= maxAge {
				delete(shard.last, key)
				swept++
			}
		}
		shard.mu.Unlock()
	}
	return swept
}
