package feed

import (
	"context"
	"fmt"

	"github.com/nhle/docflow/internal/client"
	"github.com/nhle/docflow/internal/model"
)

// Fetcher loads the current activity list for the initial load and the
// fallback poll.
type Fetcher interface {
	Fetch(ctx context.Context, limit int) ([]model.Activity, error)
}

// HTTPFetcher fetches activities from GET {base}/activities?limit=N.
type HTTPFetcher struct {
	api *client.Client
}

// NewHTTPFetcher returns a Fetcher backed by api.
func NewHTTPFetcher(api *client.Client) *HTTPFetcher {
	return &HTTPFetcher{api: api}
}

// Fetch returns up to limit activities, newest first.
func (f *HTTPFetcher) Fetch(ctx context.Context, limit int) ([]model.Activity, error) {
	list, err := f.api.ListActivities(ctx, limit, 0)
	if err != nil {
		return nil, fmt.Errorf("fetching activities: %w", err)
	}
	return list.Activities, nil
}
