// Package pipeline runs the per-file scan: extract text, find and validate
// ISBNs, look them up, choose the best record and collect it in the catalog.
package pipeline

import (
	"context"
	"os"
	"runtime"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"isbnscan/src/internal/catalog"
	"isbnscan/src/internal/classify"
	"isbnscan/src/internal/extract"
	"isbnscan/src/internal/isbn"
	"isbnscan/src/internal/lookup"
	"isbnscan/src/internal/match"
	"isbnscan/src/internal/mimemap"
	"isbnscan/src/internal/organize"
)

// MimeResolver maps a file to the MIME type sent to the extractor.
type MimeResolver interface {
	Resolve(path string) (string, error)
}

// Pipeline holds the collaborators of a scan. Extractor, Lookuper, Mimes and
// Sink are required. Metadata and Titles enable the fallbacks used when the
// text holds no valid ISBN.
type Pipeline struct {
	Extractor  extract.Extractor
	Metadata   extract.MetadataReader
	Lookuper   lookup.Lookuper
	Titles     lookup.TitleLookuper
	Normalizer *classify.Normalizer
	Selector   match.Selector
	Mimes      MimeResolver
	Organizer  *organize.Organizer

	Sink        *catalog.Sink
	Processed   catalog.ProcessedSet
	CatalogPath string

	MaxChars int
	Workers  int
	Log      *zap.Logger
}

func (p *Pipeline) validate() error {
	switch {
	case p.Extractor == nil:
		return errors.New("pipeline: no extractor")
	case p.Lookuper == nil:
		return errors.New("pipeline: no lookuper")
	case p.Mimes == nil:
		return errors.New("pipeline: no mime resolver")
	case p.Sink == nil:
		return errors.New("pipeline: no sink")
	}
	if p.Normalizer == nil {
		p.Normalizer = classify.NewNormalizer(p.Log)
	}
	if p.Selector == nil {
		p.Selector = match.EditDistance{}
	}
	if p.Log == nil {
		p.Log = zap.NewNop()
	}
	return nil
}

// Scan discovers files under root and runs them.
func (p *Pipeline) Scan(ctx context.Context, root string, exclude ...string) (Summary, error) {
	d, err := Discover(root, p.Processed, exclude...)
	if err != nil {
		return Summary{}, errors.Wrapf(err, "discover %s", root)
	}
	sum, err := p.Run(ctx, d.Files)
	sum.Discovered += int64(d.Processed)
	sum.SkippedProcessed += int64(d.Processed)
	return sum, err
}

// Run processes files on a bounded worker pool and writes the catalog
// snapshot when done. Once ctx is cancelled no new file is started, the
// snapshot is written immediately. A file in progress finishes the request it
// has sent but starts no further stage. The returned error is non-nil only when the final snapshot cannot
// be written.
func (p *Pipeline) Run(ctx context.Context, files []string) (Summary, error) {
	if err := p.validate(); err != nil {
		return Summary{}, err
	}
	rc := NewRunContext(p.Log)
	rc.discovered.Add(int64(len(files)))
	rc.Log.Info("scan started", zap.Int("files", len(files)), zap.Int("seed_records", p.Sink.Len()))

	workers := p.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	var g errgroup.Group
	g.SetLimit(workers)
	for _, path := range files {
		if ctx.Err() != nil {
			p.cancelSnapshot(rc)
			break
		}
		path := path
		g.Go(func() error {
			if ctx.Err() != nil {
				p.cancelSnapshot(rc)
				return nil
			}
			p.processFile(ctx, rc, path)
			return nil
		})
	}
	_ = g.Wait()

	sum := rc.summary()
	sum.Cancelled = ctx.Err() != nil
	if err := p.snapshot(); err != nil {
		rc.Log.Error("final snapshot failed", zap.Error(err))
		return sum, err
	}
	rc.Log.Info("scan finished",
		zap.Int64("recorded", sum.Recorded),
		zap.Int64("skipped", sum.Skipped),
		zap.Int64("organized", sum.Organized),
		zap.Bool("cancelled", sum.Cancelled))
	return sum, nil
}

func (p *Pipeline) cancelSnapshot(rc *RunContext) {
	rc.snapshotOnce.Do(func() {
		rc.Log.Warn("scan cancelled, writing snapshot")
		if err := p.snapshot(); err != nil {
			rc.Log.Error("cancellation snapshot failed", zap.Error(err))
		}
	})
}

func (p *Pipeline) snapshot() error {
	if p.CatalogPath == "" {
		return nil
	}
	return catalog.Save(p.CatalogPath, p.Sink.Drain())
}

// processFile walks one file through its states. Every exit other than an
// appended record is a terminal skip. ctx is checked before each remote call
// and before organizing.
func (p *Pipeline) processFile(ctx context.Context, rc *RunContext, path string) {
	log := rc.Log.With(zap.String("path", path))
	if p.Processed.Has(path) {
		rc.skippedProcessed.Add(1)
		log.Debug("already in catalog")
		return
	}
	skip := func(level func(string, ...zap.Field), msg string, fields ...zap.Field) {
		rc.skipped.Add(1)
		level(msg, fields...)
	}
	cancelled := func(stage string) bool {
		if ctx.Err() == nil {
			return false
		}
		skip(log.Info, "scan cancelled, skipping file", zap.String("before", stage))
		return true
	}

	mimeType, err := p.Mimes.Resolve(path)
	if err != nil {
		if errors.Is(err, mimemap.ErrUnknownExtension) {
			skip(log.Warn, "unknown extension, skipping", zap.Error(err))
		} else {
			skip(log.Warn, "cannot determine mime type, skipping", zap.Error(err))
		}
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		skip(log.Warn, "unreadable file, skipping", zap.Error(err))
		return
	}

	if cancelled("extraction") {
		return
	}
	text, err := p.Extractor.Extract(ctx, data, mimeType)
	if err != nil {
		skip(log.Info, "text extraction failed, skipping", zap.Error(err))
		return
	}

	var (
		ids    []isbn.ISBN
		reason string
		fields []zap.Field
	)
	if strings.TrimSpace(text) == "" {
		reason = "no text, skipping"
	} else {
		log.Debug("text extracted", zap.String("mime", mimeType), zap.Int("chars", len(text)))
		candidates := isbn.Scan(text, p.MaxChars)
		ids = validISBNs(candidates)
		switch {
		case len(candidates) == 0:
			reason = "no isbn candidates, skipping"
		case len(ids) == 0:
			reason, fields = "no valid isbns, skipping", []zap.Field{zap.Int("candidates", len(candidates))}
		default:
			log.Debug("isbns validated", zap.Int("candidates", len(candidates)), zap.Int("valid", len(ids)))
		}
	}

	var (
		works catalog.Set
		title string
	)
	if len(ids) == 0 {
		if p.Metadata == nil {
			skip(log.Info, reason, fields...)
			return
		}
		if cancelled("metadata") {
			return
		}
		ids, title = p.fromMetadata(ctx, log, data, mimeType)
		if len(ids) == 0 && (title == "" || p.Titles == nil) {
			skip(log.Info, reason, fields...)
			return
		}
	}

	if len(ids) > 0 {
		for _, id := range ids {
			if cancelled("lookup") {
				return
			}
			body, err := p.Lookuper.Lookup(ctx, id.Text)
			if err != nil {
				log.Debug("lookup failed", zap.String("isbn", id.Text), zap.Error(err))
				continue
			}
			for _, r := range p.Normalizer.Normalize(body) {
				r.ISBN = id
				r.FilePath = path
				works.Add(r)
			}
		}
	} else {
		if cancelled("title lookup") {
			return
		}
		body, err := p.Titles.LookupTitle(ctx, title)
		if err != nil {
			log.Debug("title lookup failed", zap.String("title", title), zap.Error(err))
		} else {
			for _, r := range p.Normalizer.Normalize(body) {
				r.FilePath = path
				works.Add(r)
			}
		}
	}
	if works.Len() == 0 {
		skip(log.Info, "no records found, skipping", zap.Int("isbns", len(ids)), zap.String("title", title))
		return
	}

	best, ok := p.Selector.Select(works.Records(), path)
	if !ok {
		skip(log.Info, "no record selected, skipping")
		return
	}
	if best.ISBN.IsZero() && len(ids) > 0 {
		rc.failed.Add(1)
		log.Error("selected record has no isbn", zap.String("title", best.Title))
		return
	}

	p.Sink.Append(best)
	rc.recorded.Add(1)
	log.Info("recorded", zap.String("isbn", best.ISBN.Text), zap.String("title", best.Title), zap.String("author", best.Author))

	if !p.Organizer.Enabled() {
		return
	}
	if ctx.Err() != nil {
		log.Info("scan cancelled, not organizing")
		return
	}
	target, err := p.Organizer.Organize(best)
	if err != nil {
		log.Warn("organize failed", zap.String("target", target), zap.Error(err))
		return
	}
	rc.organized.Add(1)
	log.Info("organized", zap.String("mode", string(p.Organizer.Mode)), zap.String("target", target))
}

// fromMetadata reads the embedded metadata of a document and returns the
// valid ISBNs among its identifiers, or failing that its title.
func (p *Pipeline) fromMetadata(ctx context.Context, log *zap.Logger, data []byte, mimeType string) ([]isbn.ISBN, string) {
	md, err := p.Metadata.Metadata(ctx, data, mimeType)
	if err != nil {
		log.Debug("metadata read failed", zap.Error(err))
		return nil, ""
	}
	var candidates []string
	for _, v := range md.Identifiers() {
		candidates = append(candidates, isbn.Scan(v, 0)...)
	}
	if ids := validISBNs(candidates); len(ids) > 0 {
		log.Debug("isbns found in metadata", zap.Int("valid", len(ids)))
		return ids, ""
	}
	title := md.Title()
	if title != "" {
		log.Debug("falling back to title", zap.String("title", title))
	}
	return nil, title
}

// validISBNs keeps the valid candidates, dropping repeats of the same ISBN.
func validISBNs(candidates []string) []isbn.ISBN {
	var ids []isbn.ISBN
	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		id, ok := isbn.Validate(c)
		if !ok {
			continue
		}
		if _, dup := seen[id.Text]; dup {
			continue
		}
		seen[id.Text] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
