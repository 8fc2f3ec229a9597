package pinning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client pins card artwork with an external pinning service over its JSON
// HTTP API. It implements gateways.ArtworkPinner.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type pinRequest struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

type pinResponse struct {
	CID string `json:"cid"`
}

// PinURL asks the service to fetch and pin the content behind url. Returns
// the content id recorded for the pinned artwork.
func (c *Client) PinURL(ctx context.Context, url string, name string) (string, error) {
	body, err := json.Marshal(pinRequest{URL: url, Name: name})
	if err != nil {
		return "", fmt.Errorf("failed to marshal pin request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/pins", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build pin request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("pin request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("pinning service returned status %d", resp.StatusCode)
	}

	var pr pinResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return "", fmt.Errorf("failed to decode pin response: %w", err)
	}
	if pr.CID == "" {
		return "", fmt.Errorf("pinning service returned empty cid")
	}
	return pr.CID, nil
}
