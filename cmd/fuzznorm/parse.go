package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/fuzznorm/internal/config"
	"github.com/nao1215/fuzznorm/internal/database"
	"github.com/nao1215/fuzznorm/internal/engine"
	"github.com/nao1215/fuzznorm/internal/log"
	"github.com/nao1215/fuzznorm/internal/model"
	"github.com/nao1215/fuzznorm/internal/pipeline"
	"github.com/nao1215/fuzznorm/internal/report"
	"github.com/nao1215/fuzznorm/internal/run"
	"github.com/nao1215/fuzznorm/internal/target"
)

// NewParseCmd creates the parse-fuzzers-output command.
func NewParseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse-fuzzers-output IN-DIR OUT-DIR",
		Short: "Normalize the output of completed fuzzing runs",
		Long: `Parse reads every run below IN-DIR and writes its normalized test cases
to OUT-DIR/<run>/fuzzer.json, together with a copy of metadata.json and,
for engines that support it, OUT-DIR/<run>/deduplicated_cases.json.

Runs are selected by their directory name <fuzzer>-<target>-<index>.
Each selector may be repeated; no selector matches every run.

A run that fails is reported and skipped; the other runs are still
processed. Unknown fuzzer or target tokens abort before any output
is written.

Examples:
  # Normalize every run
  fuzznorm parse-fuzzers-output artifacts results

  # Only CATS and RESTler runs against two targets
  fuzznorm parse-fuzzers-output -f cats -f restler -t httpbin -t gitlab artifacts results

  # Write a Markdown and a JSON summary of the batch
  fuzznorm parse-fuzzers-output --report batch.md --report batch.json artifacts results`,
		Args: cobra.ExactArgs(2),
		RunE: runParseCmd,
	}

	var engines engine.Set
	cmd.Flags().VarP(&engines, "fuzzer", "f",
		"Only process runs of this fuzzer, e.g. schemathesis:Negative (repeatable)")
	cmd.Flags().StringSliceP("target", "t", nil,
		"Only process runs against this target (repeatable)")
	cmd.Flags().StringSliceP("idx", "i", nil,
		"Only process runs with this index (repeatable)")

	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Number of runs processed concurrently (0: one per CPU)")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .fuzznorm in current or home directory)")

	cmd.Flags().String("db-dir", "",
		"Result database directory (default: XDG data directory)")
	cmd.Flags().Bool("no-db", false,
		"Do not record results in the database")

	cmd.Flags().StringSlice("report", nil,
		"Write a batch summary; .txt, .md or .json selects the format (repeatable)")
	cmd.Flags().Bool("pretty", false,
		"Write indented JSON result files")
	cmd.Flags().Bool("lenient", false,
		"Record fuzzer output matching no known pattern as passing test cases")

	return cmd
}

// runParseCmd executes the parse-fuzzers-output command.
func runParseCmd(cmd *cobra.Command, args []string) error {
	cfg, sel, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd.ErrOrStderr(), cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runParse(ctx, cmd.OutOrStdout(), cfg, sel, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config and run selectors from the command line.
// The configuration file is applied first and explicitly set flags override it.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, run.Selectors, error) {
	var sel run.Selectors
	flags := cmd.Flags()

	cfg := config.NewConfig()
	cfg.InputDir = args[0]
	cfg.OutputDir = args[1]
	cfg.Verbose = getVerboseFlag(cmd)

	var err error
	cfg.ConfigFilePath, err = flags.GetString("config")
	if err != nil {
		return nil, sel, err
	}

	// An explicitly given file must exist; otherwise a missing file means defaults.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	if configPath != "" {
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, sel, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.ApplyFile(file)
	} else if cfg.ConfigFilePath != "" {
		return nil, sel, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	if flags.Changed("workers") {
		if cfg.Workers, err = flags.GetInt("workers"); err != nil {
			return nil, sel, err
		}
	}
	if flags.Changed("db-dir") {
		if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
			return nil, sel, err
		}
	}
	if noDB, err := flags.GetBool("no-db"); err != nil {
		return nil, sel, err
	} else if noDB {
		cfg.SaveToDB = false
	}
	if pretty, err := flags.GetBool("pretty"); err != nil {
		return nil, sel, err
	} else if pretty {
		cfg.Pretty = true
	}
	if lenient, err := flags.GetBool("lenient"); err != nil {
		return nil, sel, err
	} else if lenient {
		cfg.Unclassified = config.UnclassifiedPass
	}
	if cfg.ReportFiles, err = flags.GetStringSlice("report"); err != nil {
		return nil, sel, err
	}

	if engines, ok := flags.Lookup("fuzzer").Value.(*engine.Set); ok {
		sel.Engines = *engines
	}
	if sel.Targets, err = flags.GetStringSlice("target"); err != nil {
		return nil, sel, err
	}
	for _, name := range sel.Targets {
		if !target.IsKnownName(name) {
			return nil, sel, fmt.Errorf("%w: %q", target.ErrUnknownTarget, name)
		}
	}
	if sel.Indices, err = flags.GetStringSlice("idx"); err != nil {
		return nil, sel, err
	}
	for _, index := range sel.Indices {
		if n, err := strconv.Atoi(index); err != nil || n < 0 {
			return nil, sel, fmt.Errorf("invalid run index %q: must be a non-negative integer", index)
		}
	}

	return cfg, sel, nil
}

// setupLogger creates the credential-masking logger used by all commands.
func setupLogger(w io.Writer, verbose bool) *slog.Logger {
	return log.NewSecureLogger(w, verbose)
}

// runParse locates the selected runs and normalizes them.
func runParse(ctx context.Context, out io.Writer, cfg *config.Config, sel run.Selectors, logger *slog.Logger) error {
	runs, err := run.Locate(cfg.InputDir, sel)
	if err != nil {
		return err
	}

	opts := []pipeline.DispatcherOption{
		pipeline.WithWorkers(cfg.Workers),
		pipeline.WithDispatchLogger(logger),
		pipeline.WithPrettyPrint(cfg.Pretty),
		pipeline.WithLenient(func(e engine.Engine) bool {
			return cfg.Lenient(e.String())
		}),
	}

	if cfg.SaveToDB {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "path", db.Path())
		opts = append(opts, pipeline.WithRecorder(db))
	}

	summary, err := pipeline.NewDispatcher(cfg.OutputDir, opts...).Dispatch(ctx, runs)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Processed %d of %d runs in %.2f seconds\n",
		summary.Processed, summary.Total, summary.Elapsed.Seconds())

	if len(cfg.ReportFiles) > 0 {
		if err := writeBatchReports(cfg.ReportFiles, summary.Report(cfg.InputDir, cfg.OutputDir), cfg.Verbose); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}

	return nil
}

// newReportWriter returns the writer for the format implied by path.
func newReportWriter(path string, w io.Writer, verbose bool) (report.Writer, error) {
	format, err := config.ReportFormatOf(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, path)
	}
	switch format {
	case config.ReportFormatMarkdown:
		return report.NewMarkdownWriter(w), nil
	case config.ReportFormatJSON:
		return report.NewJSONWriter(w, report.WithPrettyPrint()), nil
	default:
		return report.NewSimpleWriter(w, report.WithVerbose(verbose)), nil
	}
}

// writeBatchReports writes the batch report to every path in one pass.
func writeBatchReports(paths []string, batch *model.BatchReport, verbose bool) (err error) {
	writers := make([]report.Writer, 0, len(paths))
	for _, path := range paths {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}
		}
		var f *os.File
		f, err = os.Create(path) //nolint:gosec // user-provided report path
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil {
				err = errors.Join(err, cerr)
			}
		}()

		var w report.Writer
		w, err = newReportWriter(path, f, verbose)
		if err != nil {
			return err
		}
		writers = append(writers, w)
	}

	_, err = report.NewMultiWriter(writers...).WriteBatch(batch)
	return err
}
