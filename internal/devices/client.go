package devices

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/parkgolf/notify-backend/pkg/enums"
	"github.com/parkgolf/notify-backend/pkg/logger"
)

const defaultTimeout = 5 * time.Second

// Registry looks up push tokens for a user.
type Registry interface {
	Tokens(ctx context.Context, userID string) []string
}

// Client fetches registered device tokens from the identity service.
// Lookups never fail the caller: any error yields an empty token list so a
// registry outage degrades to a no-op push instead of a failed delivery.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logg       *logger.Logger
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout overrides the default lookup timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewClient builds the device registry client for the given base URL.
func NewClient(baseURL string, logg *logger.Logger, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, fmt.Errorf("device registry base url is required")
	}

	client := &Client{
		baseURL:    trimmed,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logg:       logg,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

type deviceRecord struct {
	Token    string               `json:"token"`
	Platform enums.DevicePlatform `json:"platform"`
	Active   bool                 `json:"active"`
}

// Tokens returns the active push tokens registered for the user. Any
// transport or decode failure is logged and returns an empty slice.
func (c *Client) Tokens(ctx context.Context, userID string) []string {
	if c == nil || userID == "" {
		return nil
	}

	endpoint := fmt.Sprintf("%s/internal/users/%s/devices", c.baseURL, url.PathEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		c.warn(ctx, userID, err, "build device lookup request")
		return nil
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.warn(ctx, userID, err, "execute device lookup request")
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		c.warn(ctx, userID, fmt.Errorf("status %d", resp.StatusCode), "device lookup request failed")
		return nil
	}

	var payload struct {
		Devices []deviceRecord `json:"devices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.warn(ctx, userID, err, "decode device lookup response")
		return nil
	}

	tokens := make([]string, 0, len(payload.Devices))
	for _, device := range payload.Devices {
		if device.Active && device.Token != "" {
			tokens = append(tokens, device.Token)
		}
	}
	return tokens
}

func (c *Client) warn(ctx context.Context, userID string, err error, msg string) {
	if c.logg == nil {
		return
	}
	ctx = c.logg.WithUserID(ctx, userID)
	c.logg.Warn(ctx, fmt.Sprintf("%s: %v", msg, err))
}
