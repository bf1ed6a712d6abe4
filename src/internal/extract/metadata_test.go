package extract

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDoer implements httpx.Doer for deterministic responses.
type fakeDoer struct {
	handler func(req *http.Request) *http.Response
}

func (f fakeDoer) Do(req *http.Request) (*http.Response, error) { return f.handler(req), nil }

func jsonResp(code int, s string) *http.Response {
	return &http.Response{StatusCode: code, Body: io.NopCloser(strings.NewReader(s)), Header: http.Header{"Content-Type": {"application/json"}}}
}

func TestMetadata_Request(t *testing.T) {
	var seen *http.Request
	c := NewClient("tika.local", 9998, time.Second, WithDoer(fakeDoer{handler: func(req *http.Request) *http.Response {
		seen = req
		return jsonResp(200, `{
  "Content-Type": "application/pdf",
  "dc:title": "Clean Code",
  "dc:identifier": ["urn:uuid:1234", "urn:isbn:0-07-146693-2"],
  "xmpTPg:NPages": 7,
  "pdf:docinfo:title": "ignored"
}`)
	}}))

	md, err := c.Metadata(context.Background(), []byte("%PDF"), "application/pdf")
	require.NoError(t, err)
	require.NotNil(t, seen)
	assert.Equal(t, http.MethodPut, seen.Method)
	assert.Equal(t, "http://tika.local:9998/meta", seen.URL.String())
	assert.Equal(t, "application/pdf", seen.Header.Get("Content-Type"))
	assert.Equal(t, "application/json", seen.Header.Get("Accept"))

	assert.Equal(t, "Clean Code", md.Title())
	assert.Equal(t, []string{"urn:uuid:1234", "urn:isbn:0-07-146693-2"}, md.Identifiers())
	_, hasPages := md["xmpTPg:NPages"]
	assert.False(t, hasPages, "non-string values are dropped")
}

func TestMetadata_Errors(t *testing.T) {
	c := NewClient("tika.local", 9998, time.Second, WithDoer(fakeDoer{handler: func(*http.Request) *http.Response {
		return jsonResp(415, "unsupported")
	}}))
	_, err := c.Metadata(context.Background(), nil, "application/x-foo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tika: http 415")

	c = NewClient("tika.local", 9998, time.Second, WithDoer(fakeDoer{handler: func(*http.Request) *http.Response {
		return jsonResp(200, "not json")
	}}))
	_, err = c.Metadata(context.Background(), nil, "application/pdf")
	assert.Error(t, err)
}

func TestMetadata_Accessors(t *testing.T) {
	var empty Metadata
	assert.Equal(t, "", empty.Title())
	assert.Empty(t, empty.Identifiers())

	md := Metadata{"title": {"  "}, "meta:title": {"Fallback"}}
	assert.Equal(t, "Fallback", md.Title())
}
