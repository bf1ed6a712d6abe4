// Package classify talks to the OCLC Classify service and turns its XML
// responses into catalog records.
package classify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"isbnscan/src/internal/httpx"
)

// DefaultPath is the Classify endpoint path on classify.oclc.org.
const DefaultPath = "/classify2/Classify"

// Client issues ISBN lookups against a Classify-compatible endpoint.
type Client struct {
	doer    httpx.Doer
	baseURL string
}

// NewClient builds a client for http://host:port{path}. A nil doer gets an
// http.Client with the given timeout.
func NewClient(doer httpx.Doer, host string, port int, path string, timeout time.Duration) *Client {
	if doer == nil {
		doer = &http.Client{Timeout: timeout}
	}
	if path == "" {
		path = DefaultPath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return &Client{
		doer:    doer,
		baseURL: fmt.Sprintf("http://%s:%d%s", host, port, path),
	}
}

// Endpoint returns the URL queried by Lookup, without the query string.
func (c *Client) Endpoint() string { return c.baseURL }

// Lookup fetches the summary document for isbn and returns the raw body.
func (c *Client) Lookup(ctx context.Context, isbn string) (string, error) {
	return c.get(ctx, "isbn", isbn)
}

// LookupTitle fetches the summary document for works matching title.
func (c *Client) LookupTitle(ctx context.Context, title string) (string, error) {
	return c.get(ctx, "title", title)
}

func (c *Client) get(ctx context.Context, key, value string) (string, error) {
	value = strings.TrimSpace(value)
	q := url.Values{}
	q.Set(key, value)
	q.Set("summary", "true")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", errors.Wrap(err, "classify: build request")
	}
	req.Header.Set("Accept", "application/xml")
	httpx.SetUA(req)
	resp, err := c.doer.Do(req)
	if err != nil {
		return "", errors.Wrapf(err, "classify: lookup %s %q", key, value)
	}
	defer resp.Body.Close()
	if err := httpx.CheckStatus("classify", resp); err != nil {
		return "", err
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrapf(err, "classify: read response for %s %q", key, value)
	}
	return string(b), nil
}
