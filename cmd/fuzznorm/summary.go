package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/nao1215/fuzznorm/internal/config"
	"github.com/nao1215/fuzznorm/internal/database"
	"github.com/nao1215/fuzznorm/internal/report"
)

// noResultsMessage is printed when the result database does not exist yet.
const noResultsMessage = "No runs have been recorded yet.\n\nUse 'fuzznorm parse-fuzzers-output' to normalize and record runs."

// NewSummaryCmd creates the summary command.
// It reports the runs stored in the result database.
func NewSummaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Summarize recorded runs per fuzzer",
		Long: `Summary reads the result database filled by parse-fuzzers-output and
reports per fuzzer how many runs and test cases were recorded, the outcome
distribution and the most frequent failure kinds.

The report is Markdown by default. With -o the file extension selects the
format (.txt, .md or .json).

Examples:
  # Print a Markdown summary
  fuzznorm summary

  # Write a JSON summary
  fuzznorm summary -o summary.json

  # List the most recently recorded runs
  fuzznorm summary --list -n 20`,
		Args: cobra.NoArgs,
		RunE: runSummaryCmd,
	}

	cmd.Flags().String("db-dir", "",
		"Result database directory (default: XDG data directory)")
	cmd.Flags().StringP("output", "o", "",
		"Write the summary to this file instead of standard output")
	cmd.Flags().BoolP("list", "l", false,
		"List recorded runs instead of the per-fuzzer summary")
	cmd.Flags().IntP("limit", "n", 0,
		"Maximum number of runs listed with --list (0: all)")

	return cmd
}

// runSummaryCmd executes the summary command.
func runSummaryCmd(cmd *cobra.Command, _ []string) (err error) {
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	list, err := cmd.Flags().GetBool("list")
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	// Check the output format before touching the database.
	format := config.ReportFormatMarkdown
	if outputPath != "" {
		if format, err = config.ReportFormatOf(outputPath); err != nil {
			return fmt.Errorf("%w: %s", err, outputPath)
		}
	}

	db, err := database.Open(dbDir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if errors.Is(err, database.ErrNotFound) {
		fmt.Fprintln(cmd.OutOrStdout(), noResultsMessage)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	out := cmd.OutOrStdout()
	if outputPath != "" {
		if dir := filepath.Dir(outputPath); dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}
		}
		var f *os.File
		f, err = os.Create(outputPath) //nolint:gosec // user-provided output path
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil {
				err = errors.Join(err, cerr)
			}
		}()
		out = f
	}

	ctx := cmd.Context()

	if list {
		runs, err := db.ListRuns(ctx, limit)
		if err != nil {
			return fmt.Errorf("failed to list runs: %w", err)
		}
		if _, err := report.NewSimpleWriter(out).WriteRuns(runs); err != nil {
			return err
		}
		return writeDatabaseInfo(out, db.Path())
	}

	summaries, err := db.EngineSummaries(ctx)
	if err != nil {
		return fmt.Errorf("failed to summarize runs: %w", err)
	}

	var w report.Writer
	switch format {
	case config.ReportFormatJSON:
		w = report.NewJSONWriter(out, report.WithPrettyPrint())
	case config.ReportFormatText:
		w = report.NewSimpleWriter(out)
	default:
		w = report.NewMarkdownWriter(out)
	}
	_, err = w.WriteEngines(summaries)
	return err
}

// writeDatabaseInfo prints the location and size of the database file.
func writeDatabaseInfo(w io.Writer, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "\nDatabase: %s (%s)\n", path, humanize.IBytes(uint64(info.Size()))) //nolint:gosec // file size is non-negative
	return err
}
