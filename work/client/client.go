package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"iptv-catalog/work/catalog"
)

// requestTimeout bounds every API call so a dead server can never wedge the
// browsing session behind its loading overlay.
const requestTimeout = 30 * time.Second

// APIError carries the status code and server-side message of a failed call.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Client talks to the catalog server's JSON API. It satisfies the session
// package's CatalogAPI interface.
type Client struct {
	base string
	hc   *http.Client
}

// New creates a client for the given base URL, e.g. "http://localhost:3000".
func New(base string) *Client {
	return &Client{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: requestTimeout},
	}
}

// Grouped fetches the three type-group summaries.
func (c *Client) Grouped() (*catalog.Grouped, error) {
	var out struct {
		catalog.Grouped
		Success bool `json:"success"`
	}
	if err := c.get("/api/grouped-categories", &out); err != nil {
		return nil, err
	}
	return &out.Grouped, nil
}

// TypeCategories fetches the category list for one type.
func (c *Client) TypeCategories(t string) (*catalog.TypeGroup, error) {
	var out struct {
		catalog.TypeGroup
		Success bool   `json:"success"`
		Type    string `json:"type"`
	}
	if err := c.get("/api/categories/"+url.PathEscape(t), &out); err != nil {
		return nil, err
	}
	return &out.TypeGroup, nil
}

// CategoryChannels fetches one category's full channel shard.
func (c *Client) CategoryChannels(name string) (*catalog.Category, error) {
	var out struct {
		Success  bool                    `json:"success"`
		Category string                  `json:"category"`
		Channels []catalog.ChannelRecord `json:"channels"`
		Count    int                     `json:"channelCount"`
	}
	if err := c.get("/api/channels/"+url.PathEscape(name), &out); err != nil {
		return nil, err
	}
	return &catalog.Category{
		Name:         out.Category,
		Channels:     out.Channels,
		ChannelCount: out.Count,
	}, nil
}

// AllChannels fetches the concatenated channel list of one type.
func (c *Client) AllChannels(t string) ([]catalog.ChannelRecord, error) {
	var out struct {
		Success  bool                    `json:"success"`
		Channels []catalog.ChannelRecord `json:"channels"`
	}
	if err := c.get("/api/all-channels/"+url.PathEscape(t), &out); err != nil {
		return nil, err
	}
	return out.Channels, nil
}

func (c *Client) get(path string, v any) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var fail struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&fail)
		if fail.Error == "" {
			fail.Error = resp.Status
		}
		return &APIError{Status: resp.StatusCode, Message: fail.Error}
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
