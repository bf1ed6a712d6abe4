// Package config loads isbnscan settings from a file, the environment and
// command-line overrides, in increasing order of precedence.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"

	"isbnscan/src/internal/match"
	"isbnscan/src/internal/organize"
)

// EnvPrefix prefixes every environment override. Nested keys use a double
// underscore, e.g. ISBNSCAN_SETTINGS__TIKA__PORT.
const EnvPrefix = "ISBNSCAN_"

// Tika locates the text extraction server. RequestsPerSecond caps uploads;
// zero leaves them uncapped.
type Tika struct {
	Host              string        `koanf:"host"`
	Port              int           `koanf:"port"`
	Timeout           time.Duration `koanf:"timeout"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`
}

// Classify locates the bibliographic lookup service. Lookups start at least
// Interval apart.
type Classify struct {
	Host     string        `koanf:"host"`
	Port     int           `koanf:"port"`
	Path     string        `koanf:"path"`
	Interval time.Duration `koanf:"interval"`
	Timeout  time.Duration `koanf:"timeout"`
}

// Settings tunes a scan. MaxChars bounds the text searched for ISBNs and
// Workers bounds the files processed at once; zero means all text and one
// worker per CPU. TitleFallback looks a document up by its embedded title
// when neither its text nor its metadata holds a valid ISBN.
type Settings struct {
	MaxChars      int      `koanf:"max_chars"`
	Workers       int      `koanf:"workers"`
	Selector      string   `koanf:"selector"`
	SniffUnknown  bool     `koanf:"sniff_unknown"`
	TitleFallback bool     `koanf:"title_fallback"`
	CachePath     string   `koanf:"cache_path"`
	Tika          Tika     `koanf:"tika"`
	Classify      Classify `koanf:"classify"`
}

// Config is the complete run configuration.
type Config struct {
	InputDir    string   `koanf:"input_dir"`
	CatalogPath string   `koanf:"catalog_path"`
	MimeMapPath string   `koanf:"mime_map_path"`
	OutputDir   string   `koanf:"output_dir"`
	Mode        string   `koanf:"mode"`
	Settings    Settings `koanf:"settings"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Mode: string(organize.ModeNone),
		Settings: Settings{
			MaxChars: 200000,
			Selector: match.StrategyEditDistance,
			Tika: Tika{
				Host:    "localhost",
				Port:    9998,
				Timeout: 2 * time.Minute,
			},
			Classify: Classify{
				Host:     "classify.oclc.org",
				Port:     80,
				Path:     "/classify2/Classify",
				Interval: time.Second,
				Timeout:  30 * time.Second,
			},
		},
	}
}

// Load builds a Config. path may be empty, in which case only defaults,
// environment and overrides apply. overrides are koanf keys such as
// "settings.workers" and win over everything else.
func Load(path string, overrides map[string]any) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		switch ext := strings.ToLower(filepath.Ext(path)); ext {
		case ".yaml", ".yml", ".json":
		default:
			return Config{}, errors.Errorf("config %s: unsupported format %q (want .yaml, .yml or .json)", path, ext)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, errors.Wrapf(err, "load config %s", path)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, errors.Wrap(err, "load environment")
	}

	for key, val := range overrides {
		if err := k.Set(key, val); err != nil {
			return Config{}, errors.Wrapf(err, "override %s", key)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, errors.Wrap(err, "decode config")
	}
	return cfg, nil
}

// LoadDotEnv reads path (".env" when empty) into the process environment.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return errors.Wrapf(godotenv.Load(path), "load %s", path)
}

func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

// Validate checks the fields a scan cannot run without.
func (c Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.InputDir) == "" {
		missing = append(missing, "input_dir")
	}
	if strings.TrimSpace(c.CatalogPath) == "" {
		missing = append(missing, "catalog_path")
	}
	if strings.TrimSpace(c.MimeMapPath) == "" {
		missing = append(missing, "mime_map_path")
	}
	if len(missing) > 0 {
		return errors.Errorf("missing required setting(s): %s", strings.Join(missing, ", "))
	}

	mode, err := organize.ParseMode(c.Mode)
	if err != nil {
		return err
	}
	if mode != organize.ModeNone && strings.TrimSpace(c.OutputDir) == "" {
		return errors.Errorf("mode %q needs output_dir", mode)
	}
	if _, err := match.ByName(c.Settings.Selector); err != nil {
		return err
	}
	if c.Settings.MaxChars < 0 {
		return errors.New("settings.max_chars must be >= 0")
	}
	if c.Settings.Workers < 0 {
		return errors.New("settings.workers must be >= 0")
	}
	if c.Settings.Classify.Interval < 0 {
		return errors.New("settings.classify.interval must be >= 0")
	}
	if c.Settings.Tika.RequestsPerSecond < 0 {
		return errors.New("settings.tika.requests_per_second must be >= 0")
	}
	if info, err := os.Stat(c.InputDir); err != nil {
		return errors.Wrap(err, "input_dir")
	} else if !info.IsDir() {
		return errors.Errorf("input_dir %s is not a directory", c.InputDir)
	}
	return nil
}
