// Package catalog talks to the external product catalog: resolving tag
// slugs and reading/mutating tag membership. The catalog owns its own
// storage; this package is only the narrow client the runner syncs
// through.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type HTTPClient struct {
	baseURL string
	token   string
	timeout time.Duration
	client  *http.Client
}

// NewHTTPClient creates a catalog client for the given base URL. token,
// when set, is sent as a bearer token. timeout bounds each request;
// zero means 10 seconds.
func NewHTTPClient(baseURL, token string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		timeout: timeout,
		client:  &http.Client{},
	}
}

// ResolveTag maps a tag slug to its catalog identifier. A tag unknown to
// the catalog is not an error; ok is false.
func (c *HTTPClient) ResolveTag(ctx context.Context, slug string) (int64, bool, error) {
	var resp struct {
		ID int64 `json:"id"`
	}
	found, err := c.get(ctx, "/tags/"+slug, &resp)
	if err != nil {
		return 0, false, err
	}
	return resp.ID, found, nil
}

// MembersOf returns the catalog's current membership for a tag.
func (c *HTTPClient) MembersOf(ctx context.Context, tagID int64) ([]int64, error) {
	var resp struct {
		ProductIDs []int64 `json:"product_ids"`
	}
	found, err := c.get(ctx, fmt.Sprintf("/tags/%d/products", tagID), &resp)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("catalog: tag %d not found", tagID)
	}
	return resp.ProductIDs, nil
}

// AddMember attaches a product to a tag.
func (c *HTTPClient) AddMember(ctx context.Context, productID, tagID int64) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/tags/%d/products/%d", tagID, productID))
}

// RemoveMember detaches a product from a tag.
func (c *HTTPClient) RemoveMember(ctx context.Context, productID, tagID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/tags/%d/products/%d", tagID, productID))
}

// get performs a GET and decodes the body into out. A 404 is reported as
// found=false, not an error.
func (c *HTTPClient) get(ctx context.Context, path string, out interface{}) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("catalog: GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, fmt.Errorf("catalog: GET %s: status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("catalog: GET %s: decode: %w", path, err)
	}
	return true, nil
}

// do performs a body-less mutation request.
func (c *HTTPClient) do(ctx context.Context, method, path string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("catalog: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("catalog: %s %s: status %d", method, path, resp.StatusCode)
	}
	return nil
}

func (c *HTTPClient) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
