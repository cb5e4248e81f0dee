package api

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
)

// ActivityCode is an entry of the national economic-activity classifier.
type ActivityCode struct {
	ID      int64  `json:"id"`
	Code    string `json:"code"`
	Section string `json:"section"`
	Name    string `json:"name"`
}

// ActivityCodeFilter narrows GET /api/activities/. Limit defaults to 500,
// matching the catalog size the onboarding picker loads at once.
type ActivityCodeFilter struct {
	Search string
	Limit  int
	Offset int
}

func (c *Client) ListActivityCodes(ctx context.Context, filter ActivityCodeFilter) ([]ActivityCode, error) {
	q := url.Values{}
	if filter.Search != "" {
		q.Set("search", filter.Search)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 500
	}
	q.Set("limit", strconv.Itoa(limit))
	if filter.Offset > 0 {
		q.Set("offset", strconv.Itoa(filter.Offset))
	}

	var raw json.RawMessage
	if err := c.Get(ctx, "/activities/?"+q.Encode(), &raw); err != nil {
		return nil, err
	}
	return decodeResults[ActivityCode](raw)
}
