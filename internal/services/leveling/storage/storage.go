// Package storage defines the persistence boundary for the leveling service.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// Member is one user's XP record scoped to a single community.
//
// Level, XPNeeded and Progress are derived from XP but persisted for query
// efficiency; the domain layer recomputes them on every write so a stored
// record is never allowed to drift from its XP total.
type Member struct {
	CommunityID string
	MemberID    string
	XP          int64
	Level       int
	XPNeeded    int64
	Progress    float64
	DisplayName string
	Nickname    string
	AvatarURL   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Community holds per-community leveling settings and display metadata.
type Community struct {
	CommunityID    string
	Name           string
	IconURL        string
	MemberCount    int
	Cooldown       time.Duration
	UpdatesEnabled bool
	UpdatesChannel string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// RoleReward ties a chat-platform role to the level that earns it.
type RoleReward struct {
	RoleRef     string
	CommunityID string
	Level       int
}

// XPSnapshot is one point-in-time XP sample used for history charts.
type XPSnapshot struct {
	CommunityID string
	MemberID    string
	XP          int64
	RecordedAt  time.Time
}

// Stats summarizes service-wide usage.
type Stats struct {
	Communities int64
	Members     int64
	// MemberSum adds up community member counts as reported by the chat
	// platform, which can exceed the number of tracked members.
	MemberSum int64
}

// MemberStore persists member XP records.
type MemberStore interface {
	GetMember(ctx context.Context, communityID, memberID string) (Member, error)
	// UpsertMember writes the full member record keyed by
	// (communityID, memberID). Repeating the call with identical input
	// leaves the stored state unchanged.
	UpsertMember(ctx context.Context, member Member) error
	// DeleteMember removes a member record; deleting an absent member is
	// not an error.
	DeleteMember(ctx context.Context, communityID, memberID string) error
	// ListMembersByXP returns up to limit members ordered by XP descending.
	// A non-positive limit returns all members.
	ListMembersByXP(ctx context.Context, communityID string, limit int) ([]Member, error)
	CommunityXPTotal(ctx context.Context, communityID string) (int64, error)
}

// CommunityStore persists community settings and display info.
type CommunityStore interface {
	GetCommunity(ctx context.Context, communityID string) (Community, error)
	// UpsertCommunityInfo refreshes display metadata without touching
	// leveling settings on an existing record.
	UpsertCommunityInfo(ctx context.Context, communityID, name, iconURL string, memberCount int) error
	SetCooldown(ctx context.Context, communityID string, cooldown time.Duration) error
	SetUpdatesEnabled(ctx context.Context, communityID string, enabled bool) error
	// SetUpdatesChannel stores the announcement channel ref; an empty ref
	// clears it.
	SetUpdatesChannel(ctx context.Context, communityID, channelRef string) error
	ListCommunitiesWithUpdates(ctx context.Context) ([]Community, error)
	// DeleteCommunity removes the community and everything scoped to it
	// (members, role rewards, history).
	DeleteCommunity(ctx context.Context, communityID string) error
}

// RoleStore persists role rewards.
type RoleStore interface {
	PutRoleReward(ctx context.Context, reward RoleReward) error
	DeleteRoleReward(ctx context.Context, communityID, roleRef string) error
	// ListRoleRewards returns a community's rewards ordered by level
	// ascending.
	ListRoleRewards(ctx context.Context, communityID string) ([]RoleReward, error)
}

// HistoryStore persists append-only XP snapshots.
type HistoryStore interface {
	AppendXPSnapshots(ctx context.Context, snapshots []XPSnapshot) error
	// ListMemberHistory returns up to limit snapshots for one member,
	// newest first.
	ListMemberHistory(ctx context.Context, communityID, memberID string, limit int) ([]XPSnapshot, error)
}

// StatsStore reports service-wide usage.
type StatsStore interface {
	ServiceStats(ctx context.Context) (Stats, error)
}
