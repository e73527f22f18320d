package render

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.English

	message.SetString(lang, keyLevelUp, "%s just reached level %d!")
	message.SetString(lang, keyDigestTitle, "Leaderboard for %s")
	message.SetString(lang, keyDigestSubtitle, "Top %d Users")
	message.SetString(lang, keyDigestEntry, "%d. %s: %d XP")
	message.SetString(lang, keyDigestEmpty, "No leaderboard data available.")
	message.SetString(lang, keyProfileSummary, "%s is level %d with %d XP.")
	message.SetString(lang, keyProfileProgress, "%d XP to the next level (%.2f%% there).")
}

const (
	keyLevelUp         = "leveling.levelup"
	keyDigestTitle     = "leveling.digest.title"
	keyDigestSubtitle  = "leveling.digest.subtitle"
	keyDigestEntry     = "leveling.digest.entry"
	keyDigestEmpty     = "leveling.digest.empty"
	keyProfileSummary  = "leveling.profile.summary"
	keyProfileProgress = "leveling.profile.progress"
)
