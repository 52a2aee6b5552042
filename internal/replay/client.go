package replay

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"
)

// HTTPClient wraps http.Client with the service base URL.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

func newHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body []byte) (int, []byte, error) {
	var r io.Reader = http.NoBody
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read body: %w", err)
	}
	return resp.StatusCode, b, nil
}

// Health checks that the service answers on /healthz.
func (c *HTTPClient) Health(ctx context.Context) error {
	code, _, err := c.do(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	if code != http.StatusOK {
		return fmt.Errorf("health check returned %d", code)
	}
	return nil
}

// Analyze posts a match for every participant. It returns the status code
// and, on success, how many players the report covered.
func (c *HTTPClient) Analyze(ctx context.Context, match []byte) (int, int, error) {
	body := make([]byte, 0, len(match)+16)
	body = append(body, `{"match":`...)
	body = append(body, match...)
	body = append(body, '}')

	code, resp, err := c.do(ctx, http.MethodPost, "/analyze", body)
	if err != nil {
		return code, 0, err
	}
	if code != http.StatusOK {
		return code, 0, fmt.Errorf("analyze returned %d: %s", code, gjson.GetBytes(resp, "message").String())
	}
	return code, int(gjson.GetBytes(resp, "players.#").Int()), nil
}

// MatchIDs returns the distinct match ids in a player's progress history.
// A player with no history yields an empty set.
func (c *HTTPClient) MatchIDs(ctx context.Context, playerID string) (map[string]int, error) {
	code, resp, err := c.do(ctx, http.MethodGet, "/progress/"+url.PathEscape(playerID), nil)
	if err != nil {
		return nil, err
	}
	out := map[string]int{}
	switch code {
	case http.StatusOK:
	case http.StatusNotFound:
		return out, nil
	default:
		return nil, fmt.Errorf("progress returned %d", code)
	}
	for _, id := range gjson.GetBytes(resp, "entries.#.match_id").Array() {
		out[id.String()]++
	}
	return out, nil
}

// Pending returns the number of unfinished progress jobs reported by /stats.
func (c *HTTPClient) Pending(ctx context.Context) (int, error) {
	code, resp, err := c.do(ctx, http.MethodGet, "/stats", nil)
	if err != nil {
		return 0, err
	}
	if code != http.StatusOK {
		return 0, fmt.Errorf("stats returned %d", code)
	}
	return int(gjson.GetBytes(resp, "pending").Int()), nil
}
