package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configFile string
	verbose    bool
)

func newRootCommand(version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "typespub",
		Short: "Generate publishable @types packages",
		Long: `typespub turns the changed entries of a declaration catalog into
ready-to-publish package directories for npm and the GitHub mirror.`,
		Version:      version,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&configFile, "config", "",
		"Config file (default: ./typespub.yaml if present)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable debug logging")

	root.AddCommand(newGenerateCommand(version))
	return root
}

// newLogger builds a development logger when verbose, production otherwise.
func newLogger(verbose bool) (*zap.SugaredLogger, error) {
	var (
		l   *zap.Logger
		err error
	)
	if verbose {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}
