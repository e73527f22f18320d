package domain

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	apperrors "github.com/chatrhq/chatr/internal/platform/errors"
	"github.com/chatrhq/chatr/internal/services/leveling/storage"
)

// Store is the persistence boundary the engine depends on.
type Store interface {
	GetMember(ctx context.Context, communityID, memberID string) (storage.Member, error)
	UpsertMember(ctx context.Context, member storage.Member) error
	DeleteMember(ctx context.Context, communityID, memberID string) error
	GetCommunity(ctx context.Context, communityID string) (storage.Community, error)
	DeleteCommunity(ctx context.Context, communityID string) error
}

// Options tunes optional engine behavior.
type Options struct {
	// Curve overrides the leveling curve; nil keeps the production one.
	Curve Curve
	// AnnounceOverrides makes admin SetXP/SetLevel emit level transitions
	// like ordinary contributions do. Off by default: operators fixing
	// records rarely want a public announcement.
	AnnounceOverrides bool
	// Recorder observes accepted contributions for history sampling.
	Recorder ActivityRecorder
}

// Service orchestrates XP ingestion, admin overrides and member lifecycle.
type Service struct {
	store             Store
	gate              *Gate
	notifier          Notifier
	clock             func() time.Time
	curve             Curve
	recorder          ActivityRecorder
	announceOverrides bool
}

// NewService constructs the leveling engine with default options.
func NewService(store Store, gate *Gate, notifier Notifier, clock func() time.Time) *Service {
	return NewServiceWithOptions(store, gate, notifier, clock, Options{})
}

// NewServiceWithOptions constructs the leveling engine.
func NewServiceWithOptions(store Store, gate *Gate, notifier Notifier, clock func() time.Time, opts Options) *Service {
	if clock == nil {
		clock = time.Now
	}
	curve := opts.Curve
	if curve == nil {
		curve = QuadraticCurve{}
	}
	return &Service{
		store:             store,
		gate:              gate,
		notifier:          notifier,
		clock:             clock,
		curve:             curve,
		recorder:          opts.Recorder,
		announceOverrides: opts.AnnounceOverrides,
	}
}

// IngestInput describes one contribution from the chat layer. XPDelta is
// whatever the caller decided the activity is worth; zero deltas still
// refresh display metadata.
type IngestInput struct {
	CommunityID string
	MemberID    string
	XPDelta     int64
	DisplayName string
	Nickname    string
	AvatarURL   string
}

// IngestResult reports the outcome of one contribution.
type IngestResult struct {
	// Accepted is false when the cooldown gate rejected the contribution.
	// Rejection is a normal outcome, not an error.
	Accepted  bool
	XP        int64
	Level     int
	LeveledUp bool
}

// Ingest runs the contribution pipeline: cooldown gate, read, recompute,
// persist, then level-transition detection. The notifier is only invoked
// after a successful write.
func (s *Service) Ingest(ctx context.Context, input IngestInput) (IngestResult, error) {
	if s == nil || s.store == nil || s.gate == nil {
		return IngestResult{}, errors.New("leveling service is not configured")
	}
	communityID := strings.TrimSpace(input.CommunityID)
	memberID := strings.TrimSpace(input.MemberID)
	if communityID == "" {
		return IngestResult{}, apperrors.New(apperrors.CodeCommunityEmptyID, "community id is required")
	}
	if memberID == "" {
		return IngestResult{}, apperrors.New(apperrors.CodeMemberEmptyID, "member id is required")
	}
	if input.XPDelta < 0 {
		return IngestResult{}, apperrors.New(apperrors.CodeMemberNegativeXP, "xp delta must not be negative")
	}

	community, err := s.communitySettings(ctx, communityID)
	if err != nil {
		return IngestResult{}, err
	}
	cooldown := community.Cooldown
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}

	now := s.clock()
	if !s.gate.TryAccept(communityID, memberID, now, cooldown) {
		return IngestResult{Accepted: false}, nil
	}

	member, err := s.memberOrNew(ctx, communityID, memberID)
	if err != nil {
		// The contribution was never counted, so give the cooldown slot
		// back; otherwise a transient store failure silences the member for
		// the whole window.
		s.gate.Forget(communityID, memberID)
		return IngestResult{}, err
	}

	previousLevel := member.Level
	member.XP += input.XPDelta
	applyStats(&member, ComputeStats(s.curve, member.XP))
	member.DisplayName = input.DisplayName
	member.Nickname = input.Nickname
	member.AvatarURL = input.AvatarURL
	if member.CreatedAt.IsZero() {
		member.CreatedAt = now
	}
	member.UpdatedAt = now

	if err := s.store.UpsertMember(ctx, member); err != nil {
		s.gate.Forget(communityID, memberID)
		return IngestResult{}, apperrors.Wrap(apperrors.CodeStorageFailure, "persist contribution", err)
	}

	if s.recorder != nil {
		s.recorder.MarkActive(communityID, memberID)
	}

	leveledUp := member.Level > previousLevel
	if leveledUp {
		s.announce(ctx, community, member, previousLevel)
	}

	return IngestResult{
		Accepted:  true,
		XP:        member.XP,
		Level:     member.Level,
		LeveledUp: leveledUp,
	}, nil
}

// SetXP is the admin override that stores an exact XP total, bypassing the
// cooldown gate. All derived fields are recomputed through the curve so the
// record can never desynchronize.
func (s *Service) SetXP(ctx context.Context, communityID, memberID string, xp int64) (storage.Member, error) {
	if xp < 0 {
		return storage.Member{}, apperrors.New(apperrors.CodeMemberNegativeXP, "xp must not be negative")
	}
	return s.override(ctx, communityID, memberID, xp)
}

// SetLevel is the admin override that stores the XP floor of an exact level.
func (s *Service) SetLevel(ctx context.Context, communityID, memberID string, level int) (storage.Member, error) {
	if level < 0 {
		return storage.Member{}, apperrors.New(apperrors.CodeMemberNegativeLevel, "level must not be negative")
	}
	return s.override(ctx, communityID, memberID, s.curve.XPFloor(level))
}

func (s *Service) override(ctx context.Context, communityID, memberID string, xp int64) (storage.Member, error) {
	communityID = strings.TrimSpace(communityID)
	memberID = strings.TrimSpace(memberID)
	if communityID == "" {
		return storage.Member{}, apperrors.New(apperrors.CodeCommunityEmptyID, "community id is required")
	}
	if memberID == "" {
		return storage.Member{}, apperrors.New(apperrors.CodeMemberEmptyID, "member id is required")
	}

	member, err := s.store.GetMember(ctx, communityID, memberID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Member{}, apperrors.WithMetadata(apperrors.CodeMemberNotFound, "member is not tracked", map[string]string{
				"community": communityID,
				"member":    memberID,
			})
		}
		return storage.Member{}, apperrors.Wrap(apperrors.CodeStorageFailure, "read member", err)
	}
	if err := checkIntegrity(s.curve, member); err != nil {
		return storage.Member{}, err
	}

	previousLevel := member.Level
	member.XP = xp
	applyStats(&member, ComputeStats(s.curve, xp))
	member.UpdatedAt = s.clock()

	if err := s.store.UpsertMember(ctx, member); err != nil {
		return storage.Member{}, apperrors.Wrap(apperrors.CodeStorageFailure, "persist override", err)
	}

	if s.announceOverrides && member.Level > previousLevel {
		community, err := s.communitySettings(ctx, member.CommunityID)
		if err == nil {
			s.announce(ctx, community, member, previousLevel)
		}
	}
	return member, nil
}

// ForgetMember removes a member's XP record and cooldown state. Forgetting a
// member that was never seen is a no-op.
func (s *Service) ForgetMember(ctx context.Context, communityID, memberID string) error {
	communityID = strings.TrimSpace(communityID)
	memberID = strings.TrimSpace(memberID)
	if communityID == "" {
		return apperrors.New(apperrors.CodeCommunityEmptyID, "community id is required")
	}
	if memberID == "" {
		return apperrors.New(apperrors.CodeMemberEmptyID, "member id is required")
	}
	if err := s.store.DeleteMember(ctx, communityID, memberID); err != nil {
		return apperrors.Wrap(apperrors.CodeStorageFailure, "delete member", err)
	}
	s.gate.Forget(communityID, memberID)
	return nil
}

// ForgetCommunity removes a community and everything scoped to it.
func (s *Service) ForgetCommunity(ctx context.Context, communityID string) error {
	communityID = strings.TrimSpace(communityID)
	if communityID == "" {
		return apperrors.New(apperrors.CodeCommunityEmptyID, "community id is required")
	}
	if err := s.store.DeleteCommunity(ctx, communityID); err != nil {
		return apperrors.Wrap(apperrors.CodeStorageFailure, "delete community", err)
	}
	return nil
}

// communitySettings loads the community's leveling settings. Communities are
// registered lazily by the chat layer, so an unknown community falls back to
// defaults instead of failing the contribution.
func (s *Service) communitySettings(ctx context.Context, communityID string) (storage.Community, error) {
	community, err := s.store.GetCommunity(ctx, communityID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Community{CommunityID: communityID}, nil
		}
		return storage.Community{}, apperrors.Wrap(apperrors.CodeStorageFailure, "read community settings", err)
	}
	return community, nil
}

func (s *Service) memberOrNew(ctx context.Context, communityID, memberID string) (storage.Member, error) {
	member, err := s.store.GetMember(ctx, communityID, memberID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Member{CommunityID: communityID, MemberID: memberID}, nil
		}
		return storage.Member{}, apperrors.Wrap(apperrors.CodeStorageFailure, "read member", err)
	}
	if err := checkIntegrity(s.curve, member); err != nil {
		return storage.Member{}, err
	}
	return member, nil
}

func (s *Service) announce(ctx context.Context, community storage.Community, member storage.Member, previousLevel int) {
	if s.notifier == nil {
		return
	}
	if !community.UpdatesEnabled || community.UpdatesChannel == "" {
		return
	}
	name := member.Nickname
	if name == "" {
		name = member.DisplayName
	}
	transition := LevelTransition{
		CommunityID:   member.CommunityID,
		MemberID:      member.MemberID,
		MemberName:    name,
		PreviousLevel: previousLevel,
		NewLevel:      member.Level,
		ChannelRef:    community.UpdatesChannel,
	}
	if err := s.notifier.Notify(ctx, transition); err != nil {
		// The contribution is already persisted; announcement delivery is
		// the collaborator's concern.
		log.Printf("level transition notify %s/%s: %v", member.CommunityID, member.MemberID, err)
	}
}

func applyStats(member *storage.Member, stats Stats) {
	member.Level = stats.Level
	member.XPNeeded = stats.XPNeeded
	member.Progress = stats.Progress
}

// checkIntegrity verifies a stored record's level matches its XP total. A
// mismatch means some writer skipped the curve; surfacing it beats silently
// correcting a corrupt record.
func checkIntegrity(curve Curve, member storage.Member) error {
	if got := curve.Level(member.XP); got != member.Level {
		return apperrors.New(apperrors.CodeMemberLevelIntegrity,
			fmt.Sprintf("stored level %d does not match xp %d (expected level %d)", member.Level, member.XP, got))
	}
	return nil
}

// EarnedRoles resolves which role refs a member at the given level has
// earned. Rewards are expected in ascending level order, as returned by the
// role store.
func EarnedRoles(rewards []storage.RoleReward, level int) []string {
	var refs []string
	for _, reward := range rewards {
		if reward.Level <= level {
			refs = append(refs, reward.RoleRef)
		}
	}
	return refs
}
