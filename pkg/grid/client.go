// Package grid wraps the GRID esports central-data and file-download APIs.
package grid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/scrimworks/scrimsync/internal/resilience"
)

const (
	defaultBaseURL = "https://api.grid.gg"

	// TitleLeagueOfLegends is GRID's title ID for League of Legends.
	TitleLeagueOfLegends = "3"

	// seriesPageSize is the page size used when walking allSeries edges.
	seriesPageSize = 50
)

const allSeriesQuery = `
query ScrimSeries($first: Int!, $after: Cursor, $titleIds: [ID!], $gte: String!, $lte: String!) {
  allSeries(
    first: $first
    after: $after
    filter: {
      titleIds: { in: $titleIds }
      types: [SCRIM]
      startTimeScheduled: { gte: $gte, lte: $lte }
    }
    orderBy: StartTimeScheduled
    orderDirection: ASC
  ) {
    pageInfo { hasNextPage endCursor }
    edges {
      node {
        id
        startTimeScheduled
        teams { baseInfo { name } }
      }
    }
  }
}`

// Client defines the GRID API operations used by the pipeline.
type Client interface {
	// ListSeries returns all scrim series scheduled within the window,
	// ascending by scheduled start time.
	ListSeries(ctx context.Context, window Window) ([]SeriesMeta, error)

	// SeriesFiles lists the downloadable files attached to a series.
	SeriesFiles(ctx context.Context, seriesID string) ([]FileInfo, error)

	// DownloadFile streams the content of a file by its full URL. The caller
	// must close the returned reader.
	DownloadFile(ctx context.Context, fullURL string) (io.ReadCloser, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit overrides the default request rate (2 req/s).
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

// WithTitleID restricts series listing to the given GRID title ID.
func WithTitleID(id string) Option {
	return func(c *httpClient) {
		c.titleID = id
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	titleID string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a GRID API client authenticated with the given key.
// Requests are throttled to 2 req/s by default to stay inside the scrim
// data plan's rate limit.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		titleID: TitleLeagueOfLegends,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(2, 2),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func (c *httpClient) ListSeries(ctx context.Context, window Window) ([]SeriesMeta, error) {
	var out []SeriesMeta
	var cursor string

	for {
		vars := map[string]any{
			"first":    seriesPageSize,
			"titleIds": []string{c.titleID},
			"gte":      window.From.UTC().Format(time.RFC3339),
			"lte":      window.To.UTC().Format(time.RFC3339),
		}
		if cursor != "" {
			vars["after"] = cursor
		}

		var resp allSeriesResponse
		if err := c.postGraphQL(ctx, allSeriesQuery, vars, &resp); err != nil {
			return nil, eris.Wrap(err, "grid: list series")
		}
		if len(resp.Errors) > 0 {
			return nil, eris.Errorf("grid: list series: %s", resp.Errors[0].Message)
		}

		for _, edge := range resp.Data.AllSeries.Edges {
			meta := SeriesMeta{
				ID:                 edge.Node.ID,
				StartTimeScheduled: edge.Node.StartTimeScheduled,
			}
			for _, t := range edge.Node.Teams {
				meta.Teams = append(meta.Teams, TeamMeta{Name: t.BaseInfo.Name})
			}
			out = append(out, meta)
		}

		if !resp.Data.AllSeries.PageInfo.HasNextPage {
			return out, nil
		}
		cursor = resp.Data.AllSeries.PageInfo.EndCursor
	}
}

func (c *httpClient) SeriesFiles(ctx context.Context, seriesID string) ([]FileInfo, error) {
	url := fmt.Sprintf("%s/file-download/list/%s", c.baseURL, seriesID)

	body, err := c.get(ctx, url)
	if err != nil {
		return nil, eris.Wrapf(err, "grid: list files for series %s", seriesID)
	}
	defer body.Close() //nolint:errcheck

	var resp fileListResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return nil, eris.Wrapf(err, "grid: decode file list for series %s", seriesID)
	}
	return resp.Files, nil
}

func (c *httpClient) DownloadFile(ctx context.Context, fullURL string) (io.ReadCloser, error) {
	body, err := c.get(ctx, fullURL)
	if err != nil {
		return nil, eris.Wrapf(err, "grid: download %s", fullURL)
	}
	return body, nil
}

func (c *httpClient) postGraphQL(ctx context.Context, query string, vars map[string]any, out any) error {
	if err := c.wait(ctx); err != nil {
		return eris.Wrap(err, "rate limit")
	}

	payload, err := json.Marshal(graphqlRequest{Query: query, Variables: vars})
	if err != nil {
		return eris.Wrap(err, "marshal request")
	}

	url := c.baseURL + "/central-data/graphql"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "execute request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if err := checkStatus(resp); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return eris.Wrap(err, "decode response")
	}
	return nil
}

func (c *httpClient) get(ctx context.Context, url string) (io.ReadCloser, error) {
	if err := c.wait(ctx); err != nil {
		return nil, eris.Wrap(err, "rate limit")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "execute request")
	}

	if err := checkStatus(resp); err != nil {
		_ = resp.Body.Close()
		return nil, err
	}
	return resp.Body, nil
}

// checkStatus maps non-2xx responses to errors, tagging retryable statuses
// as transient so callers can apply bounded retry.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	err := eris.Errorf("unexpected status %d from %s", resp.StatusCode, resp.Request.URL)
	if resilience.IsTransientHTTPStatus(resp.StatusCode) {
		return resilience.NewTransientError(err, resp.StatusCode)
	}
	return err
}
