package httpx

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetUA(t *testing.T) {
	req, err := http.NewRequest(http.MethodGet, "https://example.com", nil)
	require.NoError(t, err)
	require.Empty(t, req.Header.Get("User-Agent"))

	SetUA(req)
	assert.Equal(t, UserAgent, req.Header.Get("User-Agent"))

	SetUA(req)
	assert.Len(t, req.Header.Values("User-Agent"), 1, "idempotent")
	assert.NotPanics(t, func() { SetUA(nil) })
}

func TestCheckStatus(t *testing.T) {
	ok := &http.Response{StatusCode: 200, Body: io.NopCloser(strings.NewReader("fine"))}
	assert.NoError(t, CheckStatus("svc", ok))

	long := strings.Repeat("x", maxExcerpt*2)
	bad := &http.Response{StatusCode: 503, Body: io.NopCloser(strings.NewReader(long))}
	err := CheckStatus("svc", bad)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 503, se.Code)
	assert.Len(t, se.Body, maxExcerpt)
	assert.True(t, strings.HasPrefix(err.Error(), "svc: http 503: "), err.Error())
}
