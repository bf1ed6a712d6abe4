// Package organize copies or moves scanned files into an output directory
// under names derived from their bibliographic record.
package organize

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"isbnscan/src/internal/catalog"
)

// Mode selects what Organize does with a file.
type Mode string

const (
	ModeNone   Mode = "none"
	ModeCopy   Mode = "copy"
	ModeMove   Mode = "move"
	ModeDryRun Mode = "dry-run"
)

// ParseMode accepts the mode names used in configuration. Empty means none.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeNone, nil
	case ModeNone, ModeCopy, ModeMove, ModeDryRun:
		return m, nil
	default:
		return "", errors.Errorf("unknown organize mode %q", s)
	}
}

// ErrTargetExists is returned instead of overwriting an existing file.
var ErrTargetExists = errors.New("target already exists")

// CleanName makes a title or author safe for use in a file name: control
// characters and , . ' | - / \ are dropped, spaces become underscores and
// colons become dashes.
func CleanName(s string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r < 0x20 || r == 0x7f:
		case strings.ContainsRune(",.'|-/\\", r):
		case r == ' ':
			b.WriteByte('_')
		case r == ':':
			b.WriteByte('-')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NewFilename returns "{isbn}_{title}_{author}{ext}" for a record, keeping the
// extension of the record's file path. Records matched by title alone have no
// ISBN part.
func NewFilename(r catalog.Record) string {
	if r.ISBN.IsZero() {
		return fmt.Sprintf("%s_%s%s", CleanName(r.Title), CleanName(r.Author), filepath.Ext(r.FilePath))
	}
	return fmt.Sprintf("%s_%s_%s%s", r.ISBN.Text, CleanName(r.Title), CleanName(r.Author), filepath.Ext(r.FilePath))
}

// Organizer places files in OutputDir according to Mode.
type Organizer struct {
	Mode      Mode
	OutputDir string
}

// Enabled reports whether Organize does anything at all.
func (o *Organizer) Enabled() bool { return o != nil && o.Mode != "" && o.Mode != ModeNone }

// Organize copies, moves or only plans to place r.FilePath. The returned path
// is the target, also in dry-run mode.
func (o *Organizer) Organize(r catalog.Record) (string, error) {
	target := filepath.Join(o.OutputDir, NewFilename(r))
	switch o.Mode {
	case ModeNone, "":
		return "", nil
	case ModeDryRun:
		return target, nil
	}

	if _, err := os.Lstat(target); err == nil {
		return target, errors.Wrap(ErrTargetExists, target)
	} else if !os.IsNotExist(err) {
		return target, errors.WithStack(err)
	}
	if err := os.MkdirAll(o.OutputDir, 0o755); err != nil {
		return target, errors.Wrap(err, "create output directory")
	}

	switch o.Mode {
	case ModeCopy:
		return target, copyFile(r.FilePath, target)
	case ModeMove:
		return target, moveFile(r.FilePath, target)
	default:
		return target, errors.Errorf("unknown organize mode %q", o.Mode)
	}
}

// moveFile never replaces dst. A hard link claims the target atomically;
// across devices the O_EXCL copy does.
func moveFile(src, dst string) error {
	err := os.Link(src, dst)
	switch {
	case err == nil:
	case os.IsExist(err):
		return errors.Wrap(ErrTargetExists, dst)
	default:
		if err := copyFile(src, dst); err != nil {
			return err
		}
	}
	return errors.WithStack(os.Remove(src))
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return errors.WithStack(err)
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return errors.WithStack(err)
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		if os.IsExist(err) {
			return errors.Wrap(ErrTargetExists, dst)
		}
		return errors.WithStack(err)
	}
	defer func() {
		if cerr := out.Close(); err == nil && cerr != nil {
			err = errors.WithStack(cerr)
		}
		if err != nil {
			_ = os.Remove(dst)
		}
	}()
	if _, err = io.Copy(out, in); err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(out.Sync())
}
