// Package sqlite provides a SQLite-backed leveling storage implementation.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sqlitemigrate "github.com/chatrhq/chatr/internal/platform/storage/sqlitemigrate"
	"github.com/chatrhq/chatr/internal/services/leveling/storage"
	"github.com/chatrhq/chatr/internal/services/leveling/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store persists leveling state in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite leveling store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// GetMember loads one member record.
func (s *Store) GetMember(ctx context.Context, communityID, memberID string) (storage.Member, error) {
	if err := ctx.Err(); err != nil {
		return storage.Member{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Member{}, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT community_id, member_id, xp, level, xp_needed, progress,
		        display_name, nickname, avatar_url, created_at, updated_at
		   FROM members
		  WHERE community_id = ? AND member_id = ?`,
		communityID, memberID,
	)
	return scanMember(row)
}

// UpsertMember writes the full member record keyed by (community, member).
func (s *Store) UpsertMember(ctx context.Context, member storage.Member) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	communityID := strings.TrimSpace(member.CommunityID)
	memberID := strings.TrimSpace(member.MemberID)
	if communityID == "" {
		return fmt.Errorf("community id is required")
	}
	if memberID == "" {
		return fmt.Errorf("member id is required")
	}
	createdAt := member.CreatedAt
	updatedAt := member.UpdatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO members (
		   community_id, member_id, xp, level, xp_needed, progress,
		   display_name, nickname, avatar_url, created_at, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (community_id, member_id) DO UPDATE SET
		   xp = excluded.xp,
		   level = excluded.level,
		   xp_needed = excluded.xp_needed,
		   progress = excluded.progress,
		   display_name = excluded.display_name,
		   nickname = excluded.nickname,
		   avatar_url = excluded.avatar_url,
		   updated_at = excluded.updated_at`,
		communityID, memberID, member.XP, member.Level, member.XPNeeded, member.Progress,
		member.DisplayName, member.Nickname, member.AvatarURL,
		toMillis(createdAt), toMillis(updatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert member: %w", err)
	}
	return nil
}

// DeleteMember removes one member record; deleting an absent member is a
// no-op.
func (s *Store) DeleteMember(ctx context.Context, communityID, memberID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if _, err := s.sqlDB.ExecContext(ctx,
		`DELETE FROM members WHERE community_id = ? AND member_id = ?`,
		communityID, memberID,
	); err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	if _, err := s.sqlDB.ExecContext(ctx,
		`DELETE FROM xp_history WHERE community_id = ? AND member_id = ?`,
		communityID, memberID,
	); err != nil {
		return fmt.Errorf("delete member history: %w", err)
	}
	return nil
}

// ListMembersByXP returns up to limit members ordered by XP descending. A
// non-positive limit returns all members.
func (s *Store) ListMembersByXP(ctx context.Context, communityID string, limit int) ([]storage.Member, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	query := `SELECT community_id, member_id, xp, level, xp_needed, progress,
	                 display_name, nickname, avatar_url, created_at, updated_at
	            FROM members
	           WHERE community_id = ?
	           ORDER BY xp DESC, member_id ASC`
	args := []any{communityID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []storage.Member
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return members, nil
}

// CommunityXPTotal sums all tracked XP in a community.
func (s *Store) CommunityXPTotal(ctx context.Context, communityID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	var total int64
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(xp), 0) FROM members WHERE community_id = ?`,
		communityID,
	)
	if err := row.Scan(&total); err != nil {
		return 0, fmt.Errorf("sum community xp: %w", err)
	}
	return total, nil
}

// GetCommunity loads one community record.
func (s *Store) GetCommunity(ctx context.Context, communityID string) (storage.Community, error) {
	if err := ctx.Err(); err != nil {
		return storage.Community{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Community{}, fmt.Errorf("storage is not configured")
	}

	var (
		community  storage.Community
		cooldownMS int64
		enabled    int
		createdAt  int64
		updatedAt  int64
	)
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT community_id, name, icon_url, member_count, cooldown_ms,
		        updates_enabled, updates_channel, created_at, updated_at
		   FROM communities
		  WHERE community_id = ?`,
		communityID,
	)
	err := row.Scan(
		&community.CommunityID, &community.Name, &community.IconURL, &community.MemberCount,
		&cooldownMS, &enabled, &community.UpdatesChannel, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Community{}, storage.ErrNotFound
		}
		return storage.Community{}, fmt.Errorf("get community: %w", err)
	}
	community.Cooldown = time.Duration(cooldownMS) * time.Millisecond
	community.UpdatesEnabled = enabled != 0
	community.CreatedAt = fromMillis(createdAt)
	community.UpdatedAt = fromMillis(updatedAt)
	return community, nil
}

// UpsertCommunityInfo refreshes display metadata, creating the community row
// on first sight. Leveling settings on an existing record are untouched.
func (s *Store) UpsertCommunityInfo(ctx context.Context, communityID, name, iconURL string, memberCount int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	communityID = strings.TrimSpace(communityID)
	if communityID == "" {
		return fmt.Errorf("community id is required")
	}

	now := toMillis(time.Now())
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO communities (community_id, name, icon_url, member_count, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (community_id) DO UPDATE SET
		   name = excluded.name,
		   icon_url = excluded.icon_url,
		   member_count = excluded.member_count,
		   updated_at = excluded.updated_at`,
		communityID, name, iconURL, memberCount, now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert community info: %w", err)
	}
	return nil
}

// SetCooldown stores the community's contribution cooldown, creating the
// community row on first sight.
func (s *Store) SetCooldown(ctx context.Context, communityID string, cooldown time.Duration) error {
	return s.setCommunityField(ctx, communityID, "cooldown_ms", cooldown.Milliseconds())
}

// SetUpdatesEnabled toggles level-up announcements.
func (s *Store) SetUpdatesEnabled(ctx context.Context, communityID string, enabled bool) error {
	value := int64(0)
	if enabled {
		value = 1
	}
	return s.setCommunityField(ctx, communityID, "updates_enabled", value)
}

// SetUpdatesChannel stores the announcement channel ref; an empty ref clears
// it.
func (s *Store) SetUpdatesChannel(ctx context.Context, communityID, channelRef string) error {
	return s.setCommunityField(ctx, communityID, "updates_channel", channelRef)
}

func (s *Store) setCommunityField(ctx context.Context, communityID, column string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	communityID = strings.TrimSpace(communityID)
	if communityID == "" {
		return fmt.Errorf("community id is required")
	}

	// column is always one of the fixed setter columns above, never input.
	now := toMillis(time.Now())
	query := fmt.Sprintf(
		`INSERT INTO communities (community_id, %s, created_at, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (community_id) DO UPDATE SET
		   %s = excluded.%s,
		   updated_at = excluded.updated_at`,
		column, column, column,
	)
	if _, err := s.sqlDB.ExecContext(ctx, query, communityID, value, now, now); err != nil {
		return fmt.Errorf("set community %s: %w", column, err)
	}
	return nil
}

// ListCommunitiesWithUpdates returns communities that have announcements
// enabled and a channel configured.
func (s *Store) ListCommunitiesWithUpdates(ctx context.Context) ([]storage.Community, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT community_id, name, icon_url, member_count, cooldown_ms,
		        updates_enabled, updates_channel, created_at, updated_at
		   FROM communities
		  WHERE updates_enabled = 1 AND updates_channel != ''
		  ORDER BY community_id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list communities: %w", err)
	}
	defer rows.Close()

	var communities []storage.Community
	for rows.Next() {
		var (
			community  storage.Community
			cooldownMS int64
			enabled    int
			createdAt  int64
			updatedAt  int64
		)
		if err := rows.Scan(
			&community.CommunityID, &community.Name, &community.IconURL, &community.MemberCount,
			&cooldownMS, &enabled, &community.UpdatesChannel, &createdAt, &updatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan community: %w", err)
		}
		community.Cooldown = time.Duration(cooldownMS) * time.Millisecond
		community.UpdatesEnabled = enabled != 0
		community.CreatedAt = fromMillis(createdAt)
		community.UpdatedAt = fromMillis(updatedAt)
		communities = append(communities, community)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate communities: %w", err)
	}
	return communities, nil
}

// DeleteCommunity removes the community and everything scoped to it.
func (s *Store) DeleteCommunity(ctx context.Context, communityID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete community: %w", err)
	}
	for _, table := range []string{"xp_history", "role_rewards", "members", "communities"} {
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf(`DELETE FROM %s WHERE community_id = ?`, table), communityID,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("delete community rows from %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete community: %w", err)
	}
	return nil
}

// PutRoleReward inserts or updates one role reward.
func (s *Store) PutRoleReward(ctx context.Context, reward storage.RoleReward) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	communityID := strings.TrimSpace(reward.CommunityID)
	roleRef := strings.TrimSpace(reward.RoleRef)
	if communityID == "" {
		return fmt.Errorf("community id is required")
	}
	if roleRef == "" {
		return fmt.Errorf("role ref is required")
	}

	if _, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO role_rewards (community_id, role_ref, level)
		 VALUES (?, ?, ?)
		 ON CONFLICT (community_id, role_ref) DO UPDATE SET level = excluded.level`,
		communityID, roleRef, reward.Level,
	); err != nil {
		return fmt.Errorf("put role reward: %w", err)
	}
	return nil
}

// DeleteRoleReward removes one role reward; absent rewards are a no-op.
func (s *Store) DeleteRoleReward(ctx context.Context, communityID, roleRef string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if _, err := s.sqlDB.ExecContext(ctx,
		`DELETE FROM role_rewards WHERE community_id = ? AND role_ref = ?`,
		communityID, roleRef,
	); err != nil {
		return fmt.Errorf("delete role reward: %w", err)
	}
	return nil
}

// ListRoleRewards returns a community's rewards ordered by level ascending.
func (s *Store) ListRoleRewards(ctx context.Context, communityID string) ([]storage.RoleReward, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT community_id, role_ref, level
		   FROM role_rewards
		  WHERE community_id = ?
		  ORDER BY level ASC, role_ref ASC`,
		communityID,
	)
	if err != nil {
		return nil, fmt.Errorf("list role rewards: %w", err)
	}
	defer rows.Close()

	var rewards []storage.RoleReward
	for rows.Next() {
		var reward storage.RoleReward
		if err := rows.Scan(&reward.CommunityID, &reward.RoleRef, &reward.Level); err != nil {
			return nil, fmt.Errorf("scan role reward: %w", err)
		}
		rewards = append(rewards, reward)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate role rewards: %w", err)
	}
	return rewards, nil
}

// AppendXPSnapshots writes a batch of history samples in one transaction.
func (s *Store) AppendXPSnapshots(ctx context.Context, snapshots []storage.XPSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if len(snapshots) == 0 {
		return nil
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append snapshots: %w", err)
	}
	for _, snapshot := range snapshots {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO xp_history (community_id, member_id, xp, recorded_at)
			 VALUES (?, ?, ?, ?)`,
			snapshot.CommunityID, snapshot.MemberID, snapshot.XP, toMillis(snapshot.RecordedAt),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("append snapshot: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshots: %w", err)
	}
	return nil
}

// ListMemberHistory returns up to limit snapshots for one member, newest
// first. A non-positive limit returns all of them.
func (s *Store) ListMemberHistory(ctx context.Context, communityID, memberID string, limit int) ([]storage.XPSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	query := `SELECT community_id, member_id, xp, recorded_at
	            FROM xp_history
	           WHERE community_id = ? AND member_id = ?
	           ORDER BY recorded_at DESC`
	args := []any{communityID, memberID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list member history: %w", err)
	}
	defer rows.Close()

	var snapshots []storage.XPSnapshot
	for rows.Next() {
		var (
			snapshot   storage.XPSnapshot
			recordedAt int64
		)
		if err := rows.Scan(&snapshot.CommunityID, &snapshot.MemberID, &snapshot.XP, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snapshot.RecordedAt = fromMillis(recordedAt)
		snapshots = append(snapshots, snapshot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return snapshots, nil
}

// ServiceStats reports service-wide usage counters.
func (s *Store) ServiceStats(ctx context.Context) (storage.Stats, error) {
	if err := ctx.Err(); err != nil {
		return storage.Stats{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Stats{}, fmt.Errorf("storage is not configured")
	}

	var stats storage.Stats
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT
		   (SELECT COUNT(*) FROM communities),
		   (SELECT COUNT(*) FROM members),
		   (SELECT COALESCE(SUM(member_count), 0) FROM communities)`,
	)
	if err := row.Scan(&stats.Communities, &stats.Members, &stats.MemberSum); err != nil {
		return storage.Stats{}, fmt.Errorf("service stats: %w", err)
	}
	return stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMember(row rowScanner) (storage.Member, error) {
	var (
		member    storage.Member
		createdAt int64
		updatedAt int64
	)
	err := row.Scan(
		&member.CommunityID, &member.MemberID, &member.XP, &member.Level,
		&member.XPNeeded, &member.Progress, &member.DisplayName, &member.Nickname,
		&member.AvatarURL, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Member{}, storage.ErrNotFound
		}
		return storage.Member{}, fmt.Errorf("scan member: %w", err)
	}
	member.CreatedAt = fromMillis(createdAt)
	member.UpdatedAt = fromMillis(updatedAt)
	return member, nil
}
