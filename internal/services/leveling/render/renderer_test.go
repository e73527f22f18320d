package render

import (
	"strings"
	"testing"

	"github.com/chatrhq/chatr/internal/services/leveling/domain"
	"github.com/chatrhq/chatr/internal/services/leveling/storage"
)

func TestLevelUpAnnouncement(t *testing.T) {
	t.Parallel()

	renderer := NewEnglishRenderer()
	got := renderer.LevelUp(domain.LevelTransition{
		MemberID:      "m-1",
		MemberName:    "ada.l",
		PreviousLevel: 2,
		NewLevel:      3,
	})
	if got != "ada.l just reached level 3!" {
		t.Fatalf("unexpected announcement: %q", got)
	}
}

func TestLevelUpFallsBackToMemberID(t *testing.T) {
	t.Parallel()

	renderer := NewEnglishRenderer()
	got := renderer.LevelUp(domain.LevelTransition{MemberID: "m-1", NewLevel: 2})
	if got != "m-1 just reached level 2!" {
		t.Fatalf("unexpected announcement: %q", got)
	}
}

func TestLeaderboardDigestGroupsNumbers(t *testing.T) {
	t.Parallel()

	renderer := NewEnglishRenderer()
	got := renderer.LeaderboardDigest("Gopher Den", []storage.Member{
		{MemberID: "m-1", Nickname: "ada.l", XP: 12500},
		{MemberID: "m-2", DisplayName: "Lin", XP: 900},
	})

	lines := strings.Split(got, "\n")
	if len(lines) != 4 {
		t.Fatalf("unexpected digest shape: %q", got)
	}
	if lines[0] != "Leaderboard for Gopher Den" {
		t.Fatalf("unexpected title: %q", lines[0])
	}
	if lines[1] != "Top 2 Users" {
		t.Fatalf("unexpected subtitle: %q", lines[1])
	}
	if lines[2] != "1. ada.l: 12,500 XP" {
		t.Fatalf("unexpected first entry: %q", lines[2])
	}
	if lines[3] != "2. Lin: 900 XP" {
		t.Fatalf("unexpected second entry: %q", lines[3])
	}
}

func TestLeaderboardDigestCapsAtTen(t *testing.T) {
	t.Parallel()

	var members []storage.Member
	for i := 0; i < 15; i++ {
		members = append(members, storage.Member{MemberID: "m", XP: int64(100 - i)})
	}
	got := NewEnglishRenderer().LeaderboardDigest("Den", members)
	if lines := strings.Split(got, "\n"); len(lines) != DigestSize+2 {
		t.Fatalf("expected %d lines, got %d", DigestSize+2, len(lines))
	}
}

func TestLeaderboardDigestEmpty(t *testing.T) {
	t.Parallel()

	got := NewEnglishRenderer().LeaderboardDigest("Den", nil)
	if got != "No leaderboard data available." {
		t.Fatalf("unexpected empty digest: %q", got)
	}
}

func TestMemberProfile(t *testing.T) {
	t.Parallel()

	got := NewEnglishRenderer().MemberProfile(storage.Member{
		MemberID:    "m-1",
		DisplayName: "Ada",
		XP:          1000,
		Level:       3,
		XPNeeded:    600,
		Progress:    14.29,
	})
	want := "Ada is level 3 with 1,000 XP.\n600 XP to the next level (14.29% there)."
	if got != want {
		t.Fatalf("profile = %q, want %q", got, want)
	}
}
