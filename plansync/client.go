package plansync

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const ordersPath = "/systextil-intg-plm/api_pcp_ops"

type feedClient struct {
	baseURL string
	http    *http.Client
}

func newFeedClient(baseURL string, httpClient *http.Client) *feedClient {
	return &feedClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// fetchOrders returns the raw body and the decoded item list. since narrows the feed by day.
func (c *feedClient) fetchOrders(ctx context.Context, token string, since *time.Time) ([]byte, []json.RawMessage, error) {
	endpoint := c.baseURL + ordersPath
	if since != nil {
		params := url.Values{}
		params.Set("data_inicio", since.UTC().Format("2006-01-02"))
		endpoint = endpoint + "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, nil, &UpstreamFailure{Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, &UpstreamFailure{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, &UpstreamFailure{Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, nil, &UpstreamFailure{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var parsed feedResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, nil, &UpstreamFailure{Status: resp.StatusCode, Err: err}
	}
	return body, parsed.Items, nil
}
