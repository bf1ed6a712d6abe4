package pipeline

import (
	"io/fs"
	"path/filepath"

	"github.com/pkg/errors"

	"isbnscan/src/internal/catalog"
)

// Discovery is the result of walking an input tree.
type Discovery struct {
	Files []string
	// Processed counts regular files left out because the catalog has them.
	Processed int
}

// Discover walks root recursively and returns the absolute paths of regular
// files that are not in processed. Directories listed in exclude are not
// entered and files listed in exclude are left out. Unreadable subdirectories
// are skipped.
func Discover(root string, processed catalog.ProcessedSet, exclude ...string) (Discovery, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return Discovery{}, errors.WithStack(err)
	}
	skip := make(map[string]struct{}, len(exclude))
	for _, e := range exclude {
		if e == "" {
			continue
		}
		if a, err := filepath.Abs(e); err == nil {
			skip[a] = struct{}{}
		}
	}

	var out Discovery
	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == abs {
				return errors.WithStack(err)
			}
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if _, ok := skip[path]; ok && path != abs {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if _, ok := skip[path]; ok {
			return nil
		}
		if processed.Has(path) {
			out.Processed++
			return nil
		}
		out.Files = append(out.Files, path)
		return nil
	})
	if err != nil {
		return Discovery{}, err
	}
	return out, nil
}
