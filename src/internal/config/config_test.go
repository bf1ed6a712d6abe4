package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoad_DefaultsOnly(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 9998, cfg.Settings.Tika.Port)
	assert.Equal(t, time.Second, cfg.Settings.Classify.Interval)
	assert.False(t, cfg.Settings.TitleFallback)
}

func TestLoad_YAMLFile(t *testing.T) {
	p := writeConfig(t, "isbnscan.yaml", `
input_dir: /books
catalog_path: catalog.json
mime_map_path: mimetypes.yaml
mode: copy
output_dir: /sorted
settings:
  workers: 3
  selector: latest-year
  title_fallback: true
  tika:
    port: 9000
    timeout: 10s
  classify:
    interval: 250ms
`)
	cfg, err := Load(p, nil)
	require.NoError(t, err)
	assert.Equal(t, "/books", cfg.InputDir)
	assert.Equal(t, "copy", cfg.Mode)
	assert.Equal(t, 3, cfg.Settings.Workers)
	assert.Equal(t, "latest-year", cfg.Settings.Selector)
	assert.True(t, cfg.Settings.TitleFallback)
	assert.Equal(t, 9000, cfg.Settings.Tika.Port)
	assert.Equal(t, 10*time.Second, cfg.Settings.Tika.Timeout)
	assert.Equal(t, "localhost", cfg.Settings.Tika.Host, "untouched defaults survive")
	assert.Equal(t, 250*time.Millisecond, cfg.Settings.Classify.Interval)
	assert.Equal(t, "classify.oclc.org", cfg.Settings.Classify.Host)
	assert.Equal(t, 200000, cfg.Settings.MaxChars)
}

func TestLoad_JSONFile(t *testing.T) {
	p := writeConfig(t, "isbnscan.json", `{"input_dir": "/in", "settings": {"max_chars": 10}}`)
	cfg, err := Load(p, nil)
	require.NoError(t, err)
	assert.Equal(t, "/in", cfg.InputDir)
	assert.Equal(t, 10, cfg.Settings.MaxChars)
}

func TestLoad_Precedence(t *testing.T) {
	p := writeConfig(t, "isbnscan.yml", "input_dir: /from-file\nsettings:\n  workers: 1\n  tika:\n    host: file-host\n")
	t.Setenv("ISBNSCAN_INPUT_DIR", "/from-env")
	t.Setenv("ISBNSCAN_SETTINGS__TIKA__HOST", "env-host")
	t.Setenv("ISBNSCAN_SETTINGS__CLASSIFY__PORT", "8080")

	cfg, err := Load(p, map[string]any{"input_dir": "/from-flag"})
	require.NoError(t, err)
	assert.Equal(t, "/from-flag", cfg.InputDir)
	assert.Equal(t, "env-host", cfg.Settings.Tika.Host)
	assert.Equal(t, 8080, cfg.Settings.Classify.Port)
	assert.Equal(t, 1, cfg.Settings.Workers)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(writeConfig(t, "isbnscan.ini", "x=1"), nil)
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "bad.yaml", "input_dir: [unterminated"), nil)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	valid := Default()
	valid.InputDir = dir
	valid.CatalogPath = filepath.Join(dir, "catalog.json")
	valid.MimeMapPath = filepath.Join(dir, "mime.yaml")
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"missing input", func(c *Config) { c.InputDir = "" }},
		{"missing catalog", func(c *Config) { c.CatalogPath = " " }},
		{"missing mime map", func(c *Config) { c.MimeMapPath = "" }},
		{"bad mode", func(c *Config) { c.Mode = "shred" }},
		{"copy without output", func(c *Config) { c.Mode = "copy" }},
		{"bad selector", func(c *Config) { c.Settings.Selector = "random" }},
		{"negative max chars", func(c *Config) { c.Settings.MaxChars = -1 }},
		{"negative workers", func(c *Config) { c.Settings.Workers = -2 }},
		{"negative interval", func(c *Config) { c.Settings.Classify.Interval = -time.Second }},
		{"negative rps", func(c *Config) { c.Settings.Tika.RequestsPerSecond = -1 }},
		{"input not a dir", func(c *Config) { c.InputDir = c.CatalogPath }},
		{"input missing", func(c *Config) { c.InputDir = filepath.Join(dir, "nope") }},
	}
	require.NoError(t, os.WriteFile(valid.CatalogPath, []byte("[]"), 0o644))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, LoadDotEnv(filepath.Join(dir, "absent.env")))

	p := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(p, []byte("ISBNSCAN_TEST_DOTENV=yes\n"), 0o644))
	t.Cleanup(func() { _ = os.Unsetenv("ISBNSCAN_TEST_DOTENV") })
	require.NoError(t, LoadDotEnv(p))
	assert.Equal(t, "yes", os.Getenv("ISBNSCAN_TEST_DOTENV"))
}
