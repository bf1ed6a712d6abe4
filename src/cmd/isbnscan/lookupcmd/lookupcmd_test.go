package lookupcmd

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"isbnscan/src/internal/config"
)

func serverSetup(t *testing.T, body string, status int) SetupFunc {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "0071466932", r.URL.Query().Get("isbn"))
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	return func(map[string]any) (config.Config, *zap.Logger, error) {
		cfg := config.Default()
		cfg.Settings.Classify.Host = u.Hostname()
		cfg.Settings.Classify.Port = port
		return cfg, zap.NewNop(), nil
	}
}

func run(t *testing.T, setup SetupFunc, args ...string) (string, error) {
	t.Helper()
	cmd := New(setup)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestLookup_PrintsRecords(t *testing.T) {
	setup := serverSetup(t, `<classify><works><work author="A" title="T" lyr="2001" hyr="2003"/></works></classify>`, 200)
	out, err := run(t, setup, "0-07-146693-2")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"filepath":"","isbn":"0071466932","author":"A","title":"T","low_year":2001,"high_year":2003}]`, out)
}

func TestLookup_NoWorks(t *testing.T) {
	setup := serverSetup(t, `<classify><response code="102"/></classify>`, 200)
	out, err := run(t, setup, "0071466932")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, out)
}

func TestLookup_Raw(t *testing.T) {
	setup := serverSetup(t, `<classify/>`, 200)
	out, err := run(t, setup, "--raw", "0071466932")
	require.NoError(t, err)
	assert.Equal(t, `<classify/>`, out)
}

func TestLookup_Errors(t *testing.T) {
	setup := serverSetup(t, "down", 500)
	_, err := run(t, setup, "0071466932")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "classify: http 500")

	_, err = run(t, setup, "1234567890")
	assert.Error(t, err, "invalid isbn is rejected before any request")
}
