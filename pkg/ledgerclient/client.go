/**
 * @description
 * This package provides a client for the user points ledger service. It
 * encapsulates the single call the mission-service makes against the ledger:
 * crediting a creator's point balance when a participation is approved.
 */
package ledgerclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Client is a client for the points ledger service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new ledger client.
func NewClient(baseURL string, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type incrementPointsRequest struct {
	Points int    `json:"points"`
	Reason string `json:"reason"`
}

// IncrementPoints credits a user's point balance. The caller's context bounds
// the call; a timeout is reported as an error and must not be treated as a
// confirmed credit.
func (c *Client) IncrementPoints(ctx context.Context, userID uuid.UUID, points int, reason string) error {
	if c.baseURL == "" {
		return fmt.Errorf("ledger service base url is empty")
	}

	url := fmt.Sprintf("%s/internal/users/%s/points", c.baseURL, userID)

	body, err := json.Marshal(incrementPointsRequest{Points: points, Reason: reason})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if strings.TrimSpace(c.apiKey) != "" {
		req.Header.Set("X-Internal-Api-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ledger request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("ledger returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
