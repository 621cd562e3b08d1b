package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/git-pkgs/typespub/client"
	"github.com/git-pkgs/typespub/internal/catalog"
	"github.com/git-pkgs/typespub/internal/config"
	"github.com/git-pkgs/typespub/internal/manifest"
	"github.com/git-pkgs/typespub/internal/npm"
	"github.com/git-pkgs/typespub/internal/pipeline"
	"github.com/git-pkgs/typespub/internal/readme"
)

func newGenerateCommand(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate packages for every changed catalog entry",
		Long: `Generate empties the output directory and writes package.json, README.md
and LICENSE plus the declaration files of every changed package, once for npm
and once for the GitHub mirror. Stub packages are checked against the npm
registry to see whether they are already deprecated.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeGenerate(cmd, version)
		},
	}

	defaults := config.Defaults()
	flags := cmd.Flags()
	flags.Bool(config.KeyTgz, false, "Also pack each npm output directory into a .tgz")
	flags.String(config.KeyCatalog, defaults[config.KeyCatalog].(string), "Catalog file (YAML or JSON)")
	flags.String(config.KeyChanges, defaults[config.KeyChanges].(string), "Changed packages file")
	flags.String(config.KeySource, defaults[config.KeySource].(string), "Checkout holding the types/ tree")
	flags.String(config.KeyOutput, defaults[config.KeyOutput].(string), "Output directory, emptied before generating")
	flags.String(config.KeyLogs, defaults[config.KeyLogs].(string), "Directory for the run report")
	flags.String(config.KeyRegistry, defaults[config.KeyRegistry].(string), "npm registry used for deprecation lookups")
	flags.String(config.KeyBranch, defaults[config.KeyBranch].(string), "Source branch named in READMEs")
	flags.String(config.KeySourceURL, defaults[config.KeySourceURL].(string), "Source repository URL")
	return cmd
}

func executeGenerate(cmd *cobra.Command, version string) error {
	cfg, err := config.Load(cmd.Flags(), configFile)
	if err != nil {
		return err
	}

	logger, err := newLogger(verbose)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	if cfg.File != "" {
		logger.Debugw("using config file", "path", cfg.File)
	}

	cat, err := catalog.Load(cfg.Catalog)
	if err != nil {
		return err
	}
	changes, err := catalog.LoadChanges(cfg.Changes, cat)
	if err != nil {
		return err
	}
	logger.Infow("loaded catalog",
		"typings", len(cat.Typings()),
		"stubs", len(cat.Stubs()),
		"changed", changes.Len())

	bar := progressbar.NewOptions(changes.Len(),
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionSetDescription("generating"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(100*time.Millisecond),
	)

	gen := &pipeline.Generator{
		Catalog:    cat,
		Checker:    npm.New(cfg.Registry, client.DefaultClient().WithUserAgent("typespub/"+version)),
		SourceRoot: cfg.Source,
		OutputRoot: cfg.Output,
		LogDir:     cfg.Logs,
		Archive:    cfg.Tgz,
		Manifest:   manifest.Options{SourceRepoURL: strings.TrimSuffix(cfg.SourceURL, ".git") + ".git"},
		Readme:     readme.Options{SourceRepoURL: cfg.SourceURL, SourceBranch: cfg.Branch},
		Logger:     logger,
		Progress: func(name string) {
			bar.Describe(name)
			_ = bar.Add(1)
		},
	}

	report, err := gen.Run(cmd.Context(), changes)
	_ = bar.Finish()
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Generated %d packages into %s\n", len(report.Entries), cfg.Output)
	return nil
}
