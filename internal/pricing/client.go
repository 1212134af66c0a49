package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"venturesim/internal/game"
)

// Client asks an external pricing service for the probability that an
// average member of the population buys at a given price. A non-2xx reply
// or a malformed body comes back as an error; the engine treats either as
// an unknown probability.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type probabilityResponse struct {
	Known   bool    `json:"known"`
	Percent float64 `json:"percent"`
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) Resolve(ctx context.Context, teamID int64, price int64) (game.Probability, error) {
	url := fmt.Sprintf("%s/v1/probability?team_id=%d&price=%d", c.baseURL, teamID, price)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return game.UnknownProbability(), err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return game.UnknownProbability(), fmt.Errorf("pricing request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return game.UnknownProbability(), fmt.Errorf("pricing status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var out probabilityResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return game.UnknownProbability(), fmt.Errorf("decode probability: %w", err)
	}
	if !out.Known {
		return game.UnknownProbability(), nil
	}
	return game.KnownProbability(out.Percent), nil
}
