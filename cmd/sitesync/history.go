package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitesync/internal/config"
	"github.com/nao1215/sitesync/internal/database"
	"github.com/nao1215/sitesync/internal/report"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [start-url]",
		Short: "List recorded crawl runs",
		Long: `History lists the crawl runs recorded in the history database, newest
first. Pass a start URL to list only the runs of that seed.

Use --run to show the pages of a single run and --output to export them
again without crawling.

Examples:
  # List all runs
  sitesync history

  # List runs of one site
  sitesync history https://example.com/docs/

  # Export the pages of a run as markdown
  sitesync history --run 5f0c... -o ./pages --format markdown`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().String("db", "", "Directory of the history database (default: XDG data directory)")
	cmd.Flags().String("run", "", "Show the pages of the run with this ID")
	cmd.Flags().StringP("output", "o", "", "Export the pages of --run to this directory")
	cmd.Flags().StringP("format", "F", string(config.FormatText), "Export format: text, markdown or json")
	cmd.Flags().Bool("delete", false, "Delete the run given with --run")

	return cmd
}

func runHistoryCmd(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()

	dbDir, err := flags.GetString("db")
	if err != nil {
		return err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}
	runID, err := flags.GetString("run")
	if err != nil {
		return err
	}
	output, err := flags.GetString("output")
	if err != nil {
		return err
	}
	formatFlag, err := flags.GetString("format")
	if err != nil {
		return err
	}
	format, err := config.ParseFormat(formatFlag)
	if err != nil {
		return err
	}
	del, err := flags.GetBool("delete")
	if err != nil {
		return err
	}
	if runID == "" && (output != "" || del) {
		return errors.New("--output and --delete require --run")
	}

	db, err := database.Open(dbDir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if errors.Is(err, database.ErrDatabaseNotFound) {
		fmt.Fprintln(cmd.OutOrStdout(), "No crawl history recorded yet.")
		return nil
	}
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	switch {
	case runID != "" && del:
		if err := db.DeleteRun(ctx, runID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s\n", runID)
		return nil
	case runID != "":
		return showRun(ctx, db, runID, format, output, cmd.OutOrStdout())
	}

	var startURL string
	if len(args) > 0 {
		startURL = args[0]
	}
	runs, err := db.ListRuns(ctx, startURL)
	if err != nil {
		return err
	}
	return printRuns(cmd.OutOrStdout(), runs)
}

func showRun(ctx context.Context, db *database.CrawlDB, id string, format config.Format, output string, out io.Writer) error {
	result, err := db.GetRun(ctx, id)
	if err != nil {
		return err
	}
	if _, err := report.NewConsoleWriter(out, report.WithStats(true)).Write(result); err != nil {
		return err
	}
	if output == "" {
		return nil
	}

	w, err := report.NewDirWriter(format, output)
	if err != nil {
		return err
	}
	if _, err := w.Write(result); err != nil {
		return err
	}
	fmt.Fprintf(out, "Exported %d pages to %s\n", len(result.Pages), output)
	return nil
}

func printRuns(out io.Writer, runs []database.RunSummary) error {
	if len(runs) == 0 {
		fmt.Fprintln(out, "No crawl history recorded yet.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tPAGES\tSTATUS\tSTART URL")
	for _, run := range runs {
		status := "completed"
		if run.Cancelled {
			status = "cancelled"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
			run.ID,
			run.StartedAt.Local().Format(time.DateTime),
			run.PageCount,
			status,
			run.StartURL,
		)
	}
	return tw.Flush()
}
