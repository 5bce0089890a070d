package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mohamedkhairy/market-pulse/internal/models"
	"github.com/mohamedkhairy/market-pulse/pkg/logger"
)

const userAgent = "market-pulse/1.0"

// Client performs the two-step brokerage login flow: credentials in exchange
// for a session token, then the session token for a streaming quote token.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client

	sessionToken string
}

// NewClient creates a new auth gateway client
func NewClient(baseURL, username, password string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:  baseURL,
		username: username,
		password: password,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type loginResponse struct {
	Data struct {
		SessionToken string `json:"session-token"`
	} `json:"data"`
}

type quoteTokenResponse struct {
	Data struct {
		Token string `json:"token"`
	} `json:"data"`
}

// Login exchanges credentials for a short-lived session token.
func (c *Client) Login(ctx context.Context) (string, error) {
	payload, err := json.Marshal(loginRequest{Login: c.username, Password: c.password})
	if err != nil {
		return "", fmt.Errorf("failed to encode login payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sessions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("login returned status %d: %w", resp.StatusCode, models.ErrNoToken)
	}

	var body loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode login response: %w", err)
	}
	if body.Data.SessionToken == "" {
		return "", models.ErrNoToken
	}

	c.sessionToken = body.Data.SessionToken
	logger.Info("Logged in, session token acquired")
	return c.sessionToken, nil
}

// QuoteToken exchanges the session token for a streaming quote token.
// Login must have succeeded first.
func (c *Client) QuoteToken(ctx context.Context) (string, error) {
	if c.sessionToken == "" {
		return "", models.ErrNoToken
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api-quote-tokens", nil)
	if err != nil {
		return "", fmt.Errorf("failed to build quote token request: %w", err)
	}
	req.Header.Set("Authorization", c.sessionToken)
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("quote token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("quote token returned status %d: %w", resp.StatusCode, models.ErrNoToken)
	}

	var body quoteTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode quote token response: %w", err)
	}
	if body.Data.Token == "" {
		return "", models.ErrNoToken
	}

	logger.Info("Streaming quote token acquired")
	return body.Data.Token, nil
}

// SessionToken returns the current session token ("" before Login).
func (c *Client) SessionToken() string {
	return c.sessionToken
}
