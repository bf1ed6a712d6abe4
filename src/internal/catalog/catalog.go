// Package catalog holds the result records of a scan, guards them while
// workers append concurrently, and persists them as a JSON snapshot.
package catalog

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
)

// ErrMalformed marks a snapshot file that exists but cannot be parsed.
var ErrMalformed = errors.New("catalog: malformed snapshot")

// Sink collects records from many workers.
type Sink struct {
	mu      sync.Mutex
	records []Record
}

// NewSink returns a sink seeded with records from a previous run.
func NewSink(seed []Record) *Sink {
	s := &Sink{records: make([]Record, 0, len(seed))}
	s.records = append(s.records, seed...)
	return s
}

// Append adds r to the sink.
func (s *Sink) Append(r Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, r)
}

// Drain returns a copy of everything appended so far. The sink keeps its
// contents, so a later Drain still sees every record.
func (s *Sink) Drain() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// Len returns the number of records held.
func (s *Sink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// ProcessedSet is the set of file paths already present in a catalog.
type ProcessedSet map[string]struct{}

// Has reports whether path was already handled.
func (p ProcessedSet) Has(path string) bool {
	_, ok := p[path]
	return ok
}

// Processed builds the ProcessedSet of records.
func Processed(records []Record) ProcessedSet {
	set := make(ProcessedSet, len(records))
	for _, r := range records {
		set[r.FilePath] = struct{}{}
	}
	return set
}

// Load reads a snapshot. A missing file is an empty catalog. A file that
// cannot be parsed yields an error wrapping ErrMalformed.
func Load(path string) ([]Record, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}
	var records []Record
	if err := json.Unmarshal(b, &records); err != nil {
		return nil, errors.Wrapf(ErrMalformed, "%s: %v", path, err)
	}
	return records, nil
}

// Save writes records to path, replacing the previous snapshot atomically.
// Records are sorted first so unchanged catalogs produce identical files.
func Save(path string, records []Record) error {
	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].FilePath != sorted[j].FilePath {
			return sorted[i].FilePath < sorted[j].FilePath
		}
		return sorted[i].ISBN.Text < sorted[j].ISBN.Text
	})
	b, err := json.MarshalIndent(sorted, "", "  ")
	if err != nil {
		return errors.WithStack(err)
	}
	return writeAtomic(path, append(b, '\n'))
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.WithStack(err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return errors.WithStack(err)
	}
	name := tmp.Name()
	defer func() { _ = os.Remove(name) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.WithStack(err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return errors.WithStack(err)
	}
	if err := tmp.Close(); err != nil {
		return errors.WithStack(err)
	}
	if err := os.Chmod(name, 0o644); err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(os.Rename(name, path))
}
