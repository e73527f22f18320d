package sync

import (
	"context"
	"fmt"
	"net/http"

	apperrors "github.com/chatrhq/chatr/internal/platform/errors"
)

const (
	lurkrBaseURL   = "https://api.lurkr.gg/v2"
	lurkrPageLimit = 100
)

// lurkrPage mirrors the Lurkr levels payload. An unknown community comes
// back as {"message": "Guild no found"}; the typo is the provider's.
type lurkrPage struct {
	Message string `json:"message"`
	Levels  []struct {
		UserID string `json:"userId"`
		XP     int64  `json:"xp"`
		User   struct {
			Username string `json:"username"`
			Avatar   string `json:"avatar"`
		} `json:"user"`
	} `json:"levels"`
}

// newLurkrSource builds the Lurkr provider. Lurkr pages are one-based at a
// fixed size of 100 and never report a total.
func newLurkrSource(client *http.Client, baseURL string) Source {
	return Source{
		Name:       "lurkr",
		FirstPage:  1,
		Pagination: ShortPageSignalled{Limit: lurkrPageLimit},
		FetchPage: func(ctx context.Context, communityID string, page int) (Page, error) {
			url := fmt.Sprintf("%s/levels/%s?page=%d", baseURL, communityID, page)
			var body lurkrPage
			if err := getJSON(ctx, client, url, &body); err != nil {
				return Page{}, err
			}
			if body.Message == "Guild no found" {
				return Page{}, apperrors.WithMetadata(apperrors.CodeSyncCommunityNotFound, "community is not tracked by lurkr", map[string]string{
					"community": communityID,
				})
			}
			var result Page
			for _, row := range body.Levels {
				result.Records = append(result.Records, Record{
					ExternalID: row.UserID,
					Username:   row.User.Username,
					Nickname:   row.User.Username,
					AvatarURL:  avatarURL(row.UserID, row.User.Avatar),
					XP:         row.XP,
				})
			}
			return result, nil
		},
	}
}
