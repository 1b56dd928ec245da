// --- START OF FINAL REVISED FILE cmd/obs2org/root.go ---
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/stackvity/obs2org/internal/cli"
	"github.com/stackvity/obs2org/internal/cli/config"
)

var (
	// These are set during build time using -ldflags
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// runFunc executes a run once configuration is loaded. Replaced in tests.
var runFunc = cli.Run

// newRootCmd builds the obs2org command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "obs2org [vault | note.md] -o <outputDir>",
		Short: "Converts an Obsidian vault into Org-mode files.",
		Long: `obs2org converts Obsidian Markdown notes into Org-mode files with pandoc
and rewrites the result so that it works as an Org knowledge base.

It features:
  - Wiki links and heading links rewritten to Org file links with CUSTOM_ID targets.
  - Front matter tags copied to #+FILETAGS and optional :ID: property drawers.
  - Parallel conversion with a content-based cache for fast incremental runs.
  - Git integration to convert only changed notes.
  - An interactive Terminal UI (TUI) for monitoring progress.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error { // minimal comment
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			cfgFile, _ := cmd.Flags().GetString("config")
			profileName, _ := cmd.Flags().GetString("profile")
			opts, logger, err := config.LoadAndValidate(cfgFile, profileName, version, args, cmd.Flags())
			if err != nil {
				return err
			}

			// Flags were fine; errors past this point are not usage errors.
			cmd.SilenceUsage = true
			return runFunc(ctx, opts, logger)
		},
	}
	cmd.SetVersionTemplate(`obs2org version {{.Version}}` + "\n")
	config.RegisterFlags(cmd.Flags())
	return cmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() { // minimal comment
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// --- END OF FINAL REVISED FILE cmd/obs2org/root.go ---
