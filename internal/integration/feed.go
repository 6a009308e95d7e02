// Package integration holds clients for the external collaborators that
// supply raw rows to the aggregation engine.
package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/marginview/marginview/internal/reports"
)

// FeedClient pulls transaction lines from the ERP feed over HTTP. The feed
// is the source of truth; this client never writes back.
type FeedClient struct {
	baseURL string
	client  *http.Client
}

// NewFeedClient constructs a client for the configured feed endpoint.
func NewFeedClient(baseURL string, timeout time.Duration) *FeedClient {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &FeedClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type feedResponse struct {
	Lines []reports.SalesLine `json:"lines"`
}

// FetchSalesLines downloads the complete line set for one year.
func (c *FeedClient) FetchSalesLines(ctx context.Context, year int) ([]reports.SalesLine, error) {
	endpoint, err := url.JoinPath(c.baseURL, "sales-lines")
	if err != nil {
		return nil, fmt.Errorf("integration: feed url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("integration: build request: %w", err)
	}
	q := req.URL.Query()
	q.Set("year", strconv.Itoa(year))
	req.URL.RawQuery = q.Encode()

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("integration: feed request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("integration: feed responded %d", resp.StatusCode)
	}

	var payload feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("integration: decode feed payload: %w", err)
	}
	return payload.Lines, nil
}
