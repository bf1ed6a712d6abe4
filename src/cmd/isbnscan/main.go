package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"isbnscan/src/cmd/isbnscan/checkcmd"
	"isbnscan/src/cmd/isbnscan/lookupcmd"
	"isbnscan/src/cmd/isbnscan/scancmd"
	"isbnscan/src/internal/config"
	"isbnscan/src/internal/logging"
)

var (
	configPath string
	debug      bool
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "isbnscan",
	Short: "Find ISBNs in documents, look them up and build a catalog",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if _, err := logging.Level(debug, verbose); err != nil {
			return err
		}
		return config.LoadDotEnv("")
	},
}

// setup loads configuration and builds the logger for a subcommand.
func setup(overrides map[string]any) (config.Config, *zap.Logger, error) {
	level, err := logging.Level(debug, verbose)
	if err != nil {
		return config.Config{}, nil, err
	}
	cfg, err := config.Load(configPath, overrides)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logging.New(rootCmd.ErrOrStderr(), level), nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("ISBNSCAN_CONFIG"), "config file (.yaml, .yml or .json)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log debug output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log progress information")
}

func execute() error {
	// Attach subcommands
	rootCmd.AddCommand(scancmd.New(setup))
	rootCmd.AddCommand(checkcmd.New())
	rootCmd.AddCommand(lookupcmd.New(setup))
	return rootCmd.Execute()
}

func main() {
	if err := execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
