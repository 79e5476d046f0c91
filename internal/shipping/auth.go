// Package shipping implements the HTTP client for the Photon shipping provider.
//
// This file handles token acquisition and caching.
package shipping

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// tokenResponse is the provider's login response shape.
type tokenResponse struct {
	Data struct {
		Token string `json:"token"`
		Name  string `json:"name"`
	} `json:"data"`
}

// ensureToken returns the cached token, logging in first when none is held.
func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()
	if token != "" {
		return token, nil
	}
	if err := c.login(ctx); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token, nil
}

// login obtains a fresh bearer token and caches it along with the account's
// display name.
func (c *Client) login(ctx context.Context) error {
	payload := map[string]interface{}{
		"userId":     c.userID,
		"password":   c.password,
		"deviceType": 0,
		"deviceId":   "chatbot",
		"os":         "windows",
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode login payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/Auth/GetToken", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		slog.Error("Shipping.login: request failed", "error", err)
		return fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read login response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		slog.Error("Shipping.login: non-200 response", "status", resp.StatusCode)
		return fmt.Errorf("login failed with status %d", resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return fmt.Errorf("failed to parse login response: %w", err)
	}
	if tr.Data.Token == "" {
		return fmt.Errorf("login response missing token")
	}

	c.mu.Lock()
	c.token = tr.Data.Token
	if tr.Data.Name != "" {
		c.displayName = tr.Data.Name
	}
	c.mu.Unlock()
	slog.Debug("Shipping.login: token acquired", "display_name_set", tr.Data.Name != "")
	return nil
}

// DisplayName returns the logged-in account's display name, logging in lazily
// when it is not yet known. Returns "" when unavailable.
func (c *Client) DisplayName(ctx context.Context) string {
	c.mu.Lock()
	name := c.displayName
	token := c.token
	c.mu.Unlock()
	if name != "" || token != "" {
		return name
	}
	if err := c.login(ctx); err != nil {
		slog.Debug("Shipping.DisplayName: login failed", "error", err)
		return ""
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.displayName
}
