package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// IdentityData is the authenticated email/name/picture triple asserted by the
// upstream identity service, along with the token it minted for the handle.
type IdentityData struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	Picture      string `json:"picture"`
	SessionToken string `json:"session_token"`
}

// IdentityClient redeems a one-time login handle with the upstream service.
type IdentityClient interface {
	Exchange(ctx context.Context, handle string) (IdentityData, error)
}

// HTTPIdentityClient calls the upstream session-data endpoint. The handle is
// single-use, so failures are never retried here.
type HTTPIdentityClient struct {
	URL    string
	Client *http.Client
}

func NewHTTPIdentityClient(url string) *HTTPIdentityClient {
	return &HTTPIdentityClient{
		URL:    url,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *HTTPIdentityClient) Exchange(ctx context.Context, handle string) (IdentityData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return IdentityData{}, err
	}
	req.Header.Set("X-Session-ID", handle)

	resp, err := c.Client.Do(req)
	if err != nil {
		return IdentityData{}, fmt.Errorf("identity request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return IdentityData{}, fmt.Errorf("identity service returned %d", resp.StatusCode)
	}

	var data IdentityData
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return IdentityData{}, fmt.Errorf("identity response: %w", err)
	}
	if data.Email == "" || data.SessionToken == "" {
		return IdentityData{}, fmt.Errorf("identity response missing email or token")
	}
	return data, nil
}
