/**
 * @description
 * Client for the business profile service. The mission-service only needs the
 * profile attributes that feed competitive pricing: the business's city (and,
 * through the profile payload, its category).
 */
package businessclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Client is a client for the business profile service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new business profile client.
func NewClient(baseURL string, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// BusinessProfile is the subset of the profile the mission-service consumes.
type BusinessProfile struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	City     string    `json:"city"`
	Category string    `json:"category"`
}

// GetProfile fetches a business profile by id.
func (c *Client) GetProfile(ctx context.Context, businessID uuid.UUID) (*BusinessProfile, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("business service base url is empty")
	}

	url := fmt.Sprintf("%s/internal/businesses/%s", c.baseURL, businessID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if strings.TrimSpace(c.apiKey) != "" {
		req.Header.Set("X-Internal-Api-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("business profile request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("business %s not found", businessID)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("business service returned status %d", resp.StatusCode)
	}

	var profile BusinessProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}
	return &profile, nil
}

// GetBusinessCity resolves just the city, satisfying the service's
// BusinessDirectory dependency.
func (c *Client) GetBusinessCity(ctx context.Context, businessID uuid.UUID) (string, error) {
	profile, err := c.GetProfile(ctx, businessID)
	if err != nil {
		return "", err
	}
	return profile.City, nil
}
