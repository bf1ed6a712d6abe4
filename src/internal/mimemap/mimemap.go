// Package mimemap resolves a file's MIME type from its extension using a
// user-supplied table, optionally falling back to content sniffing.
package mimemap

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ErrUnknownExtension is returned when no MIME type is known for a file.
var ErrUnknownExtension = errors.New("unknown extension")

// octetStream is what mimetype reports when it recognises nothing.
const octetStream = "application/octet-stream"

// Map holds lower-cased extensions (with leading dot) to MIME types.
type Map struct {
	types map[string]string
	sniff bool
}

// Option configures a Map.
type Option func(*Map)

// WithSniffing enables content sniffing for extensions missing from the table.
func WithSniffing(enabled bool) Option { return func(m *Map) { m.sniff = enabled } }

// New builds a Map from ext -> MIME pairs. Keys may omit the leading dot and
// are case-insensitive.
func New(types map[string]string, opts ...Option) *Map {
	m := &Map{types: make(map[string]string, len(types))}
	for ext, mt := range types {
		mt = strings.TrimSpace(mt)
		if k := normalizeExt(ext); k != "" && mt != "" {
			m.types[k] = mt
		}
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Load reads a YAML or JSON object mapping extensions to MIME types.
func Load(path string, opts ...Option) (*Map, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read mime map %s", path)
	}
	var raw map[string]string
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, errors.Wrapf(err, "parse mime map %s", path)
	}
	if len(raw) == 0 {
		return nil, errors.Errorf("mime map %s is empty", path)
	}
	return New(raw, opts...), nil
}

// Resolve returns the MIME type for path.
func (m *Map) Resolve(path string) (string, error) {
	if mt, ok := m.types[normalizeExt(filepath.Ext(path))]; ok {
		return mt, nil
	}
	if !m.sniff {
		return "", errors.Wrap(ErrUnknownExtension, filepath.Ext(path))
	}
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return "", errors.WithStack(err)
	}
	if mt.Is(octetStream) {
		return "", errors.Wrap(ErrUnknownExtension, "sniffing found no type")
	}
	return mt.String(), nil
}

// Extensions lists the known extensions in sorted order.
func (m *Map) Extensions() []string {
	out := make([]string, 0, len(m.types))
	for ext := range m.types {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" || ext == "." {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
