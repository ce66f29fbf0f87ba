package traccar

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	requestTimeout = 30 * time.Second
	// instantFormat is the unambiguous UTC form the provider expects.
	instantFormat = "2006-01-02T15:04:05Z"
	// bodyFragmentLimit bounds how much of a bad response is kept in errors.
	bodyFragmentLimit = 256
)

// Client talks to a Traccar server over its REST API.
type Client struct {
	baseURL    string
	credential string
	deviceID   string
	httpClient *http.Client
}

// NewClient builds a client from explicit settings. A credential of the form
// "username:password" selects basic auth, anything else is sent as a bearer
// token.
func NewClient(baseURL, credential, deviceID string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		credential: credential,
		deviceID:   deviceID,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

func (c *Client) checkConfig() error {
	switch {
	case c.baseURL == "":
		return &ConfigError{Field: "server url"}
	case c.credential == "":
		return &ConfigError{Field: "credentials"}
	case c.deviceID == "":
		return &ConfigError{Field: "device id"}
	}
	return nil
}

// CurrentPosition returns the device's latest known fix. When the provider
// reports several fixes the first one in its default ordering wins.
func (c *Client) CurrentPosition(ctx context.Context) (Position, error) {
	if err := c.checkConfig(); err != nil {
		return Position{}, err
	}

	positions, err := c.fetchPositions(ctx, "/api/positions", url.Values{
		"deviceId": {c.deviceID},
	})
	if err != nil {
		return Position{}, err
	}
	if len(positions) == 0 {
		return Position{}, ErrNoData
	}
	return positions[0], nil
}

// PositionsBetween returns historical fixes in the inclusive window [from, to].
// The generic positions endpoint is tried first; servers that do not expose it
// for history queries are retried through the report endpoint, and only the
// report's error surfaces when both fail.
func (c *Client) PositionsBetween(ctx context.Context, from, to time.Time) ([]Position, error) {
	if err := c.checkConfig(); err != nil {
		return nil, err
	}

	params := url.Values{
		"deviceId": {c.deviceID},
		"from":     {from.UTC().Format(instantFormat)},
		"to":       {to.UTC().Format(instantFormat)},
	}

	positions, err := c.fetchPositions(ctx, "/api/positions", params)
	if err == nil {
		return positions, nil
	}

	return c.fetchPositions(ctx, "/api/reports/route", params)
}

// Devices lists the devices registered on the server.
func (c *Client) Devices(ctx context.Context) ([]Device, error) {
	if c.baseURL == "" {
		return nil, &ConfigError{Field: "server url"}
	}
	if c.credential == "" {
		return nil, &ConfigError{Field: "credentials"}
	}

	body, err := c.get(ctx, "/api/devices", nil)
	if err != nil {
		return nil, err
	}

	var devices []Device
	if err := json.Unmarshal(body, &devices); err != nil {
		return nil, &UpstreamError{Status: http.StatusOK, Body: fragment(body)}
	}
	return devices, nil
}

// TestConnection probes the server info endpoint to verify URL and credentials.
func (c *Client) TestConnection(ctx context.Context) error {
	if c.baseURL == "" {
		return &ConfigError{Field: "server url"}
	}
	if c.credential == "" {
		return &ConfigError{Field: "credentials"}
	}

	_, err := c.get(ctx, "/api/server", nil)
	return err
}

func (c *Client) fetchPositions(ctx context.Context, path string, params url.Values) ([]Position, error) {
	body, err := c.get(ctx, path, params)
	if err != nil {
		return nil, err
	}

	var wire []wirePosition
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, &UpstreamError{Status: http.StatusOK, Body: fragment(body)}
	}

	positions := make([]Position, 0, len(wire))
	for _, w := range wire {
		positions = append(positions, w.position())
	}
	return positions, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	target := c.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	req.Header.Set("Accept", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{Status: resp.StatusCode, Body: fragment(body)}
	}
	return body, nil
}

func (c *Client) authorize(req *http.Request) {
	if user, pass, ok := strings.Cut(c.credential, ":"); ok {
		req.SetBasicAuth(user, pass)
		return
	}
	req.Header.Set("Authorization", "Bearer "+c.credential)
}

func fragment(body []byte) string {
	if len(body) > bodyFragmentLimit {
		body = body[:bodyFragmentLimit]
	}
	return string(body)
}
