package extract

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serverClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	return NewClient(u.Hostname(), port, 5*time.Second, opts...)
}

func TestExtract_PlainText(t *testing.T) {
	c := serverClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/tika", r.URL.Path)
		assert.Equal(t, "application/pdf", r.Header.Get("Content-Type"))
		assert.Equal(t, "text/plain", r.Header.Get("Accept"))
		b, _ := io.ReadAll(r.Body)
		assert.Equal(t, "%PDF-1.4", string(b))
		w.Header().Set("Content-Type", "text/plain; charset=UTF-8")
		_, _ = io.WriteString(w, "ISBN 978-0-7356-8293-1\n")
	})

	got, err := c.Extract(context.Background(), []byte("%PDF-1.4"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "ISBN 978-0-7356-8293-1\n", got)
}

func TestExtract_HTMLIsReducedToText(t *testing.T) {
	c := serverClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=UTF-8")
		_, _ = io.WriteString(w, `<html><head><style>p{}</style></head><body><p>ISBN</p> <p>0-07-146693-2</p><script>var x=1</script></body></html>`)
	})

	got, err := c.Extract(context.Background(), []byte("x"), "application/epub+zip")
	require.NoError(t, err)
	assert.Contains(t, got, "0-07-146693-2")
	assert.NotContains(t, got, "<p>")
	assert.NotContains(t, got, "var x")
}

func TestExtract_Non200(t *testing.T) {
	c := serverClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, "cannot parse")
	})
	_, err := c.Extract(context.Background(), []byte("x"), "application/pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tika: http 422")
}

type recordingDoer struct {
	calls int
}

func (d *recordingDoer) Do(*http.Request) (*http.Response, error) {
	d.calls++
	return &http.Response{StatusCode: 200, Body: io.NopCloser(strings.NewReader("ok")), Header: http.Header{}}, nil
}

func TestExtract_RateLimitHonoursContext(t *testing.T) {
	d := &recordingDoer{}
	c := NewClient("localhost", 9998, time.Second, WithDoer(d), WithRate(0.001))

	_, err := c.Extract(context.Background(), nil, "text/plain")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = c.Extract(ctx, nil, "text/plain")
	assert.Error(t, err)
	assert.Equal(t, 1, d.calls)
}

func TestExtract_SentRequestIsDetachedFromCaller(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := NewClient("localhost", 9998, time.Second, WithDoer(fakeDoer{handler: func(req *http.Request) *http.Response {
		cancel()
		assert.NoError(t, req.Context().Err())
		return &http.Response{StatusCode: 200, Body: io.NopCloser(strings.NewReader("text")), Header: http.Header{}}
	}}))

	got, err := c.Extract(ctx, []byte("x"), "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "text", got)
	assert.Error(t, ctx.Err())
}

func TestIsHTML(t *testing.T) {
	assert.True(t, isHTML("text/html; charset=utf-8"))
	assert.True(t, isHTML("application/xhtml+xml"))
	assert.False(t, isHTML("text/plain"))
	assert.False(t, isHTML(""))
}
