package httpx

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Doer is the minimal HTTP client interface used across packages.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// UserAgent identifies isbnscan on every outbound request.
const UserAgent = "isbnscan/1.0"

// maxExcerpt bounds how much of an error body ends up in an error message.
const maxExcerpt = 4096

// SetUA sets the UserAgent header on the request.
func SetUA(req *http.Request) {
	if req != nil {
		req.Header.Set("User-Agent", UserAgent)
	}
}

// CheckStatus returns nil for a 200 response. Otherwise it drains up to
// maxExcerpt bytes of the body into an error of the form
// "<service>: http <code>: <excerpt>".
func CheckStatus(service string, resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxExcerpt))
	return &StatusError{Service: service, Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
}

// StatusError reports an unexpected HTTP status from a collaborator service.
type StatusError struct {
	Service string
	Code    int
	Body    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: http %d: %s", e.Service, e.Code, e.Body)
}
