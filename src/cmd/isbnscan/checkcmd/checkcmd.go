package checkcmd

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"isbnscan/src/internal/isbn"
)

// New returns the check command which validates ISBNs given as arguments or
// found in text on stdin.
func New() *cobra.Command {
	var (
		fromText bool
		maxChars int
	)
	cmd := &cobra.Command{
		Use:          "check [isbn...]",
		Short:        "Validate ISBNs, or scan stdin for them with --text",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if fromText {
				if len(args) > 0 {
					return errors.New("--text reads stdin and takes no arguments")
				}
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return errors.Wrap(err, "read stdin")
				}
				for _, c := range isbn.Scan(string(b), maxChars) {
					if err := report(out, c); err != nil {
						return err
					}
				}
				return nil
			}
			if len(args) == 0 {
				return errors.New("give at least one ISBN or use --text")
			}
			invalid := 0
			for _, a := range args {
				if _, ok := isbn.Validate(a); !ok {
					invalid++
				}
				if err := report(out, a); err != nil {
					return err
				}
			}
			if invalid > 0 {
				return errors.Errorf("%d of %d ISBNs invalid", invalid, len(args))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&fromText, "text", false, "scan text from stdin for ISBN candidates")
	cmd.Flags().IntVar(&maxChars, "max-chars", 0, "characters of stdin to scan (0 = all)")
	return cmd
}

// report writes "valid <cleaned> <value>" or "invalid <cleaned> -".
func report(w io.Writer, raw string) error {
	if id, ok := isbn.Validate(raw); ok {
		_, err := fmt.Fprintf(w, "valid %s %d\n", id.Text, id.Value)
		return err
	}
	cleaned := isbn.Clean(raw)
	if cleaned == "" {
		cleaned = "-"
	}
	_, err := fmt.Fprintf(w, "invalid %s -\n", cleaned)
	return err
}
