package grid

import "time"

// Window bounds a series listing query by scheduled start time.
type Window struct {
	From time.Time
	To   time.Time
}

// SeriesMeta is the provider's metadata for one series.
type SeriesMeta struct {
	ID                 string
	StartTimeScheduled time.Time
	Teams              []TeamMeta
}

// TeamMeta identifies one team participating in a series.
type TeamMeta struct {
	Name string
}

// FileInfo describes one downloadable file attached to a series.
type FileInfo struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Status      string `json:"status"`
	FileName    string `json:"fileName"`
	FullURL     string `json:"fullURL"`
}

// graphql wire types

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlError struct {
	Message string `json:"message"`
}

type allSeriesResponse struct {
	Data struct {
		AllSeries struct {
			PageInfo struct {
				HasNextPage bool   `json:"hasNextPage"`
				EndCursor   string `json:"endCursor"`
			} `json:"pageInfo"`
			Edges []struct {
				Node struct {
					ID                 string    `json:"id"`
					StartTimeScheduled time.Time `json:"startTimeScheduled"`
					Teams              []struct {
						BaseInfo struct {
							Name string `json:"name"`
						} `json:"baseInfo"`
					} `json:"teams"`
				} `json:"node"`
			} `json:"edges"`
		} `json:"allSeries"`
	} `json:"data"`
	Errors []graphqlError `json:"errors"`
}

type fileListResponse struct {
	Files []FileInfo `json:"files"`
}
