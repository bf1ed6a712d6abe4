package scancmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"isbnscan/src/internal/catalog"
	"isbnscan/src/internal/classify"
	"isbnscan/src/internal/config"
	"isbnscan/src/internal/extract"
	"isbnscan/src/internal/lookup"
	"isbnscan/src/internal/match"
	"isbnscan/src/internal/mimemap"
	"isbnscan/src/internal/organize"
	"isbnscan/src/internal/pipeline"
)

// SetupFunc loads configuration with flag overrides applied and returns the
// logger for the run.
type SetupFunc func(overrides map[string]any) (config.Config, *zap.Logger, error)

type flags struct {
	input, catalog, mimeMap, output string
	move, dryRun                    bool
	workers, maxChars               int
}

// New returns the scan command which runs the full pipeline over a directory.
func New(setup SetupFunc) *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:          "scan",
		Short:        "Scan a directory for ISBNs and update the catalog",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides, err := f.overrides(cmd)
			if err != nil {
				return err
			}
			cfg, log, err := setup(overrides)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			f.impliedMode(cmd, &cfg)
			if err := cfg.Validate(); err != nil {
				return errors.Wrap(err, "invalid configuration")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			sum, err := run(ctx, cfg, log)
			if err != nil {
				return err
			}
			status := "finished"
			if sum.Cancelled {
				status = "interrupted"
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(),
				"scan %s (run %s): discovered %d, already cataloged %d, recorded %d, skipped %d, organized %d, failed %d\n",
				status, sum.RunID, sum.Discovered, sum.SkippedProcessed, sum.Recorded, sum.Skipped, sum.Organized, sum.Failed)
			return err
		},
	}
	cmd.Flags().StringVarP(&f.input, "input", "i", "", "directory to scan")
	cmd.Flags().StringVar(&f.catalog, "catalog", "", "catalog JSON file to read and update")
	cmd.Flags().StringVar(&f.mimeMap, "mime-map", "", "extension to MIME type map (.yaml or .json)")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "directory to copy recognised books into")
	cmd.Flags().BoolVarP(&f.move, "move", "m", false, "move files instead of copying them")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "look up metadata but do not copy or move files")
	cmd.Flags().IntVarP(&f.workers, "workers", "j", 0, "concurrent files (0 = number of CPUs)")
	cmd.Flags().IntVar(&f.maxChars, "max-chars", 0, "characters of text searched per file (0 = all)")
	cmd.MarkFlagsMutuallyExclusive("move", "dry-run")
	return cmd
}

// overrides turns explicitly set flags into config keys.
func (f *flags) overrides(cmd *cobra.Command) (map[string]any, error) {
	o := map[string]any{}
	set := cmd.Flags().Changed
	if set("input") {
		o["input_dir"] = f.input
	}
	if set("catalog") {
		o["catalog_path"] = f.catalog
	}
	if set("mime-map") {
		o["mime_map_path"] = f.mimeMap
	}
	if set("output") {
		o["output_dir"] = f.output
	}
	if f.move && f.dryRun {
		return nil, errors.New("--move and --dry-run are mutually exclusive")
	}
	if f.move {
		o["mode"] = string(organize.ModeMove)
	}
	if f.dryRun {
		o["mode"] = string(organize.ModeDryRun)
	}
	if set("workers") {
		o["settings.workers"] = f.workers
	}
	if set("max-chars") {
		o["settings.max_chars"] = f.maxChars
	}
	return o, nil
}

// impliedMode turns --output into copy mode when nothing else chose a mode.
func (f *flags) impliedMode(cmd *cobra.Command, cfg *config.Config) {
	if !cmd.Flags().Changed("output") || f.move || f.dryRun {
		return
	}
	if m, err := organize.ParseMode(cfg.Mode); err == nil && m == organize.ModeNone {
		cfg.Mode = string(organize.ModeCopy)
	}
}

// service looks up by ISBN and by title.
type service interface {
	lookup.Lookuper
	lookup.TitleLookuper
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger) (pipeline.Summary, error) {
	s := cfg.Settings

	mimes, err := mimemap.Load(cfg.MimeMapPath, mimemap.WithSniffing(s.SniffUnknown))
	if err != nil {
		return pipeline.Summary{}, err
	}

	seed, err := catalog.Load(cfg.CatalogPath)
	if errors.Is(err, catalog.ErrMalformed) {
		log.Warn("catalog unreadable, starting fresh", zap.String("catalog", cfg.CatalogPath), zap.Error(err))
		seed = nil
	} else if err != nil {
		return pipeline.Summary{}, err
	}

	selector, err := match.ByName(s.Selector)
	if err != nil {
		return pipeline.Summary{}, err
	}
	mode, err := organize.ParseMode(cfg.Mode)
	if err != nil {
		return pipeline.Summary{}, err
	}

	var lk service = lookup.Throttle(
		classify.NewClient(nil, s.Classify.Host, s.Classify.Port, s.Classify.Path, s.Classify.Timeout),
		s.Classify.Interval)
	if s.CachePath != "" {
		cache, err := lookup.OpenCache(s.CachePath)
		if err != nil {
			return pipeline.Summary{}, err
		}
		defer cache.Close()
		lk = lookup.Cached(lk, cache, log)
	}

	tika := extract.NewClient(s.Tika.Host, s.Tika.Port, s.Tika.Timeout, extract.WithRate(s.Tika.RequestsPerSecond))
	p := &pipeline.Pipeline{
		Extractor:   tika,
		Metadata:    tika,
		Lookuper:    lk,
		Normalizer:  classify.NewNormalizer(log),
		Selector:    selector,
		Mimes:       mimes,
		Organizer:   &organize.Organizer{Mode: mode, OutputDir: cfg.OutputDir},
		Sink:        catalog.NewSink(seed),
		Processed:   catalog.Processed(seed),
		CatalogPath: cfg.CatalogPath,
		MaxChars:    s.MaxChars,
		Workers:     s.Workers,
		Log:         log,
	}
	if s.TitleFallback {
		p.Titles = lk
	}
	log.Info("loaded catalog", zap.String("catalog", cfg.CatalogPath), zap.Int("records", len(seed)))
	return p.Scan(ctx, cfg.InputDir, cfg.OutputDir, cfg.CatalogPath, s.CachePath, cfg.MimeMapPath)
}
