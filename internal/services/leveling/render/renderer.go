// Package render turns leveling events and queries into chat-ready text.
package render

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/chatrhq/chatr/internal/services/leveling/domain"
	"github.com/chatrhq/chatr/internal/services/leveling/storage"
)

// DigestSize is how many members a leaderboard digest shows.
const DigestSize = 10

// Renderer formats announcements in one locale. Numbers are grouped per the
// locale's conventions.
type Renderer struct {
	printer *message.Printer
}

// NewRenderer builds a renderer for the given locale tag.
func NewRenderer(tag language.Tag) *Renderer {
	return &Renderer{printer: message.NewPrinter(tag)}
}

// NewEnglishRenderer builds the default English renderer.
func NewEnglishRenderer() *Renderer {
	return NewRenderer(language.English)
}

// LevelUp renders a level transition announcement. Members without any known
// name are announced by their ID.
func (r *Renderer) LevelUp(transition domain.LevelTransition) string {
	name := transition.MemberName
	if name == "" {
		name = transition.MemberID
	}
	return r.printer.Sprintf(keyLevelUp, name, transition.NewLevel)
}

// LeaderboardDigest renders the periodic leaderboard summary posted to a
// community's updates channel. Members are expected in XP order.
func (r *Renderer) LeaderboardDigest(communityName string, members []storage.Member) string {
	if len(members) == 0 {
		return r.printer.Sprintf(keyDigestEmpty)
	}
	if len(members) > DigestSize {
		members = members[:DigestSize]
	}

	var b strings.Builder
	b.WriteString(r.printer.Sprintf(keyDigestTitle, communityName))
	b.WriteString("\n")
	b.WriteString(r.printer.Sprintf(keyDigestSubtitle, len(members)))
	for i, member := range members {
		name := member.Nickname
		if name == "" {
			name = member.DisplayName
		}
		if name == "" {
			name = member.MemberID
		}
		b.WriteString("\n")
		b.WriteString(r.printer.Sprintf(keyDigestEntry, i+1, name, member.XP))
	}
	return b.String()
}

// MemberProfile renders a member's current standing.
func (r *Renderer) MemberProfile(member storage.Member) string {
	name := member.Nickname
	if name == "" {
		name = member.DisplayName
	}
	if name == "" {
		name = member.MemberID
	}
	summary := r.printer.Sprintf(keyProfileSummary, name, member.Level, member.XP)
	progress := r.printer.Sprintf(keyProfileProgress, member.XPNeeded, member.Progress)
	return summary + "\n" + progress
}
