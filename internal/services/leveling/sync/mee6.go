package sync

import (
	"context"
	"fmt"
	"net/http"

	apperrors "github.com/chatrhq/chatr/internal/platform/errors"
)

const (
	mee6BaseURL   = "https://mee6.xyz/api/plugins/levels"
	mee6PageLimit = 1000
)

// mee6Page mirrors the MEE6 leaderboard payload. An unknown community comes
// back as {"status_code": 404}.
type mee6Page struct {
	StatusCode int `json:"status_code"`
	Players    []struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Avatar   string `json:"avatar"`
		XP       int64  `json:"xp"`
	} `json:"players"`
}

// newMee6Source builds the MEE6 provider. MEE6 pages are zero-based, never
// report a total, and carry raw avatar hashes that need expanding into CDN
// URLs.
func newMee6Source(client *http.Client, baseURL string) Source {
	return Source{
		Name:       "mee6",
		FirstPage:  0,
		Pagination: ShortPageSignalled{Limit: mee6PageLimit},
		FetchPage: func(ctx context.Context, communityID string, page int) (Page, error) {
			url := fmt.Sprintf("%s/leaderboard/%s?limit=%d&page=%d", baseURL, communityID, mee6PageLimit, page)
			var body mee6Page
			if err := getJSON(ctx, client, url, &body); err != nil {
				return Page{}, err
			}
			if body.StatusCode == 404 {
				return Page{}, apperrors.WithMetadata(apperrors.CodeSyncCommunityNotFound, "community is not tracked by mee6", map[string]string{
					"community": communityID,
				})
			}
			var result Page
			for _, row := range body.Players {
				result.Records = append(result.Records, Record{
					ExternalID: row.ID,
					Username:   row.Username,
					Nickname:   row.Username,
					AvatarURL:  avatarURL(row.ID, row.Avatar),
					XP:         row.XP,
				})
			}
			return result, nil
		},
	}
}

// avatarURL expands a raw avatar hash into a chat CDN image URL.
func avatarURL(externalID, hash string) string {
	if hash == "" {
		return ""
	}
	return fmt.Sprintf("https://cdn.discordapp.com/avatars/%s/%s.webp", externalID, hash)
}
