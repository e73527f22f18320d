package domain

import "context"

// LevelTransition describes one member crossing a level boundary.
type LevelTransition struct {
	CommunityID   string
	MemberID      string
	MemberName    string
	PreviousLevel int
	NewLevel      int
	// ChannelRef is the community's configured announcement channel. It is
	// always set when the event is emitted; communities without updates
	// enabled or without a channel produce no event at all.
	ChannelRef string
}

// Notifier consumes level transitions. Delivery success or failure is the
// collaborator's concern; the engine calls it at most once per accepted
// contribution that crosses a level boundary.
type Notifier interface {
	Notify(ctx context.Context, transition LevelTransition) error
}

// ActivityRecorder observes which members had an accepted contribution, so
// the history tracker can sample their XP later. Implementations must be
// cheap and non-blocking.
type ActivityRecorder interface {
	MarkActive(communityID, memberID string)
}
