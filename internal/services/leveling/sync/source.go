package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	apperrors "github.com/chatrhq/chatr/internal/platform/errors"
	"github.com/chatrhq/chatr/internal/platform/timeouts"
)

// Record is one member row as reported by an external leaderboard.
type Record struct {
	ExternalID string
	Username   string
	Nickname   string
	AvatarURL  string
	XP         int64
}

// Page is one fetched leaderboard page. PageCount is only populated by
// providers that report the total page count up front.
type Page struct {
	Records   []Record
	PageCount int
}

// Pagination decides whether more pages remain after the given page.
// fetched is how many pages have been fetched so far, including this one.
type Pagination interface {
	More(page Page, fetched int) bool
}

// PageCountSignalled paginates providers that report the total number of
// pages on the first page.
type PageCountSignalled struct{}

func (PageCountSignalled) More(page Page, fetched int) bool {
	return fetched < page.PageCount
}

// ShortPageSignalled paginates providers that never report a total: a page
// with fewer than Limit records is the last one.
type ShortPageSignalled struct {
	Limit int
}

func (p ShortPageSignalled) More(page Page, _ int) bool {
	return len(page.Records) >= p.Limit
}

// Source is one external leaderboard provider. FetchPage translates the
// provider's wire format into Records and surfaces the provider's
// unknown-community sentinel as an error.
type Source struct {
	Name       string
	FirstPage  int
	Pagination Pagination
	FetchPage  func(ctx context.Context, communityID string, page int) (Page, error)
}

// Registry holds the configured sync sources keyed by name.
type Registry struct {
	sources map[string]Source
}

// NewRegistry builds the production source set. A nil client falls back to
// http.DefaultClient.
func NewRegistry(client *http.Client) *Registry {
	if client == nil {
		client = http.DefaultClient
	}
	r := &Registry{sources: make(map[string]Source)}
	for _, source := range []Source{
		newPolarisSource(client, polarisBaseURL),
		newMee6Source(client, mee6BaseURL),
		newLurkrSource(client, lurkrBaseURL),
	} {
		r.sources[source.Name] = source
	}
	return r
}

// Source resolves a provider by name.
func (r *Registry) Source(name string) (Source, error) {
	source, ok := r.sources[name]
	if !ok {
		return Source{}, apperrors.WithMetadata(apperrors.CodeSyncUnknownSource, "unknown sync source", map[string]string{
			"source": name,
		})
	}
	return source, nil
}

// Names lists the registered provider names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	return names
}

// getJSON fetches url and decodes the body into out. Providers signal
// unknown communities through the body rather than the HTTP status, so the
// status code is deliberately not checked here.
func getJSON(ctx context.Context, client *http.Client, url string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, timeouts.SyncPageFetch)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeSyncTransportFailure, "build page request", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeSyncTransportFailure, fmt.Sprintf("fetch %s", url), err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.Wrap(apperrors.CodeSyncMalformedPage, "decode page body", err)
	}
	return nil
}
