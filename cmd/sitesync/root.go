package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	sitelog "github.com/nao1215/sitesync/internal/log"
)

// NewRootCmd creates the root command for sitesync.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sitesync",
		Short: "Policy-driven website crawler that exports page text",
		Long: `sitesync crawls a website breadth-first, starting from a seed URL, and
imports the readable text of every page that passes its filters.

A crawl is bounded by a page budget and a depth limit. Pages can be
restricted by a URL pattern, by required text and by robots.txt.
Imported pages are written as text, markdown or JSON files and every
run is recorded in a local history database.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getBoolFlag reads a bool flag from the command or the root's persistent flags.
func getBoolFlag(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return v
}

// setupLogger creates the redacting logger for a command.
func setupLogger(w io.Writer, verbose, jsonOutput bool) *slog.Logger {
	if jsonOutput {
		return sitelog.NewSecureJSONLogger(w, verbose)
	}
	return sitelog.NewSecureLogger(w, verbose)
}

// loggerFor builds the logger selected by the global flags of cmd.
func loggerFor(cmd *cobra.Command) *slog.Logger {
	return setupLogger(cmd.ErrOrStderr(), getBoolFlag(cmd, "verbose"), getBoolFlag(cmd, "log-json"))
}
