package registry

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultURL is the public npm registry.
const DefaultURL = "https://registry.npmjs.org"

// Client fetches package metadata from an npm registry.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New returns a client for the registry at baseURL enforcing a client-side
// timeout on every fetch.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Fetch returns the metadata for name, or nil when the registry has never
// seen the package. Scoped names are escaped the way the npm registry
// expects them.
func (c *Client) Fetch(name string) (*Metadata, error) {
	endpoint := c.baseURL + "/" + url.PathEscape(name)

	resp, err := c.httpClient.Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch metadata for %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected registry response for %s: %s", name, resp.Status)
	}

	metadata := &Metadata{}
	if err := json.NewDecoder(resp.Body).Decode(metadata); err != nil {
		return nil, fmt.Errorf("failed to decode metadata for %s: %w", name, err)
	}

	return metadata, nil
}
