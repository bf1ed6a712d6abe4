package lookupcmd

import (
	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"isbnscan/src/internal/catalog"
	"isbnscan/src/internal/classify"
	"isbnscan/src/internal/config"
	"isbnscan/src/internal/isbn"
	"isbnscan/src/internal/lookup"
)

// SetupFunc loads configuration and returns the logger for the command.
type SetupFunc func(overrides map[string]any) (config.Config, *zap.Logger, error)

// New returns the lookup command which queries the bibliographic service for
// one ISBN and prints the normalized records as JSON.
func New(setup SetupFunc) *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:          "lookup <isbn>",
		Short:        "Look up an ISBN and print the matching works",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := isbn.Parse(args[0])
			if err != nil {
				return err
			}
			cfg, log, err := setup(nil)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			c := cfg.Settings.Classify
			var lk lookup.Lookuper = classify.NewClient(nil, c.Host, c.Port, c.Path, c.Timeout)
			if p := cfg.Settings.CachePath; p != "" {
				cache, err := lookup.OpenCache(p)
				if err != nil {
					return err
				}
				defer cache.Close()
				lk = lookup.Cached(lk, cache, log)
			}

			body, err := lk.Lookup(cmd.Context(), id.Text)
			if err != nil {
				return err
			}
			if raw {
				_, err = cmd.OutOrStdout().Write([]byte(body))
				return err
			}
			records := classify.NewNormalizer(log).Normalize(body)
			for i := range records {
				records[i].ISBN = id
			}
			if records == nil {
				records = []catalog.Record{}
			}
			b, err := json.MarshalIndent(records, "", "  ")
			if err != nil {
				return errors.Wrap(err, "encode records")
			}
			_, err = cmd.OutOrStdout().Write(append(b, '\n'))
			return err
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print the service response unparsed")
	return cmd
}
