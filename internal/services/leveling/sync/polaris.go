package sync

import (
	"context"
	"fmt"
	"net/http"

	apperrors "github.com/chatrhq/chatr/internal/platform/errors"
)

const polarisBaseURL = "https://gdcolon.com/polaris/api"

// polarisPage mirrors the Polaris leaderboard payload. An unknown community
// comes back as {"apiError": true, "code": "invalidServer"} with a 2xx
// status, so the sentinel fields ride alongside the data fields.
type polarisPage struct {
	APIError bool   `json:"apiError"`
	Code     string `json:"code"`
	PageInfo struct {
		PageCount int `json:"pageCount"`
	} `json:"pageInfo"`
	Leaderboard []struct {
		ID          string `json:"id"`
		Username    string `json:"username"`
		DisplayName string `json:"displayName"`
		Nickname    string `json:"nickname"`
		Avatar      string `json:"avatar"`
		XP          int64  `json:"xp"`
	} `json:"leaderboard"`
}

// newPolarisSource builds the Polaris provider. Polaris reports the total
// page count on every page and serves ready-to-use avatar URLs.
func newPolarisSource(client *http.Client, baseURL string) Source {
	return Source{
		Name:       "polaris",
		FirstPage:  1,
		Pagination: PageCountSignalled{},
		FetchPage: func(ctx context.Context, communityID string, page int) (Page, error) {
			url := fmt.Sprintf("%s/leaderboard/%s?page=%d", baseURL, communityID, page)
			var body polarisPage
			if err := getJSON(ctx, client, url, &body); err != nil {
				return Page{}, err
			}
			if body.APIError && body.Code == "invalidServer" {
				return Page{}, apperrors.WithMetadata(apperrors.CodeSyncCommunityNotFound, "community is not tracked by polaris", map[string]string{
					"community": communityID,
				})
			}
			result := Page{PageCount: body.PageInfo.PageCount}
			for _, row := range body.Leaderboard {
				nickname := row.Nickname
				if nickname == "" {
					nickname = row.DisplayName
				}
				result.Records = append(result.Records, Record{
					ExternalID: row.ID,
					Username:   row.Username,
					Nickname:   nickname,
					AvatarURL:  row.Avatar,
					XP:         row.XP,
				})
			}
			return result, nil
		},
	}
}
