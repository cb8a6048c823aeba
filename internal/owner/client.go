// Package owner resolves which user and team a transcript belongs to, via
// the surrounding product's internal API. The pipeline needs this before any
// quota decision; a failed lookup aborts the run.
package owner

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"voicecoach-go/internal/types"
)

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Resolve looks up the owning user/team of a transcript.
func (c *Client) Resolve(ctx context.Context, transcriptID string) (types.OwnerRef, error) {
	if c.baseURL == "" {
		return types.OwnerRef{}, fmt.Errorf("owner API not configured")
	}

	endpoint := fmt.Sprintf("%s/internal/transcripts/%s/owner", c.baseURL, url.PathEscape(transcriptID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return types.OwnerRef{}, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return types.OwnerRef{}, fmt.Errorf("owner lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.OwnerRef{}, fmt.Errorf("owner lookup: status=%d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.OwnerRef{}, fmt.Errorf("owner lookup: %w", err)
	}

	var ref types.OwnerRef
	if err := json.Unmarshal(body, &ref); err != nil {
		return types.OwnerRef{}, fmt.Errorf("owner lookup: decode: %w", err)
	}
	if ref.UserID == "" {
		return types.OwnerRef{}, fmt.Errorf("owner lookup: response carries no userId")
	}
	return ref, nil
}
