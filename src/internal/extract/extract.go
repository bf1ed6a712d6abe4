// Package extract sends document bytes to an Apache Tika server and returns
// the plain text it recovers.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"isbnscan/src/internal/httpx"
)

// Extractor turns document bytes of a given MIME type into text.
type Extractor interface {
	Extract(ctx context.Context, data []byte, mimeType string) (string, error)
}

// MetadataReader returns the embedded document metadata Tika recognises.
type MetadataReader interface {
	Metadata(ctx context.Context, data []byte, mimeType string) (Metadata, error)
}

// Client is a Tika Extractor and MetadataReader.
type Client struct {
	doer     httpx.Doer
	base     string
	endpoint string
	limiter  *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithDoer replaces the HTTP client.
func WithDoer(d httpx.Doer) Option { return func(c *Client) { c.doer = d } }

// WithRate caps requests per second across all callers. Zero or less disables
// the cap.
func WithRate(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// NewClient targets http://host:port/tika.
func NewClient(host string, port int, timeout time.Duration, opts ...Option) *Client {
	base := fmt.Sprintf("http://%s:%d", host, port)
	c := &Client{
		doer:     &http.Client{Timeout: timeout},
		base:     base,
		endpoint: base + "/tika",
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Extract uploads data and returns the extracted text. HTML or XHTML answers
// are reduced to their text content.
func (c *Client) Extract(ctx context.Context, data []byte, mimeType string) (string, error) {
	resp, err := c.put(ctx, c.endpoint, data, mimeType, "text/plain")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if isHTML(resp.Header.Get("Content-Type")) {
		return htmlText(resp.Body)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "tika: read response")
	}
	return string(b), nil
}

// put uploads data to url once the rate limit allows it. Cancelling ctx ends
// the wait for a turn but not a request already sent. The caller closes the
// body of a non-nil response.
func (c *Client) put(ctx context.Context, url string, data []byte, mimeType, accept string) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(context.WithoutCancel(ctx), http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "tika: build request")
	}
	req.Header.Set("Content-Type", mimeType)
	req.Header.Set("Accept", accept)
	httpx.SetUA(req)
	resp, err := c.doer.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "tika: request")
	}
	if err := httpx.CheckStatus("tika", resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

func isHTML(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "text/html" || mt == "application/xhtml+xml"
}

func htmlText(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", errors.Wrap(err, "tika: parse html")
	}
	doc.Find("script, style, noscript").Remove()
	return strings.TrimSpace(doc.Text()), nil
}
