package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"auditimport/internal/config"
	"auditimport/internal/letters"
	"auditimport/internal/logging"
	"auditimport/internal/runlock"
	"auditimport/internal/watch"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var (
		dirFlag   string
		yearFlag  string
		dryRun    bool
		jsonOut   bool
		watchMode bool
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import letters from the upload directory",
		Long: "Scan the letters directory for <identifier>_<label>.pdf files, attach each one\n" +
			"to the record whose identifier matches, and report one line per file.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dir := strings.TrimSpace(dirFlag)
			if dir == "" {
				dir = cfg.LettersDir(time.Now())
			} else if dir, err = config.ExpandPath(dir); err != nil {
				return fmt.Errorf("resolve --dir: %w", err)
			}

			b, err := ctx.openBackend()
			if err != nil {
				return err
			}
			defer b.Close()
			importer, err := ctx.newImporter(b)
			if err != nil {
				return err
			}

			runBatch := func(runCtx context.Context, files []string) (*letters.Report, error) {
				req := letters.Request{Dir: dir, Year: yearFlag, DryRun: dryRun, Files: files}
				var report *letters.Report
				run := func() error {
					var runErr error
					report, runErr = importer.Run(runCtx, req)
					return runErr
				}
				var err error
				if dryRun {
					err = run()
				} else {
					err = runlock.With(cfg.LockPath(), run)
				}
				return report, err
			}
			emit := func(report *letters.Report) error {
				if jsonOut {
					return writeJSON(cmd, toReportJSON(report))
				}
				printReport(cmd, report)
				return nil
			}

			if watchMode {
				return watchLetters(cmd, ctx, dir, cfg.WatchSettle(), func(runCtx context.Context, names []string) error {
					report, err := runBatch(runCtx, names)
					if err != nil {
						return err
					}
					return emit(report)
				})
			}

			report, err := runBatch(cmd.Context(), nil)
			if err != nil {
				return err
			}
			return emit(report)
		},
	}

	cmd.Flags().StringVar(&dirFlag, "dir", "", "Directory to scan (default <upload_dir>/<letters_subdir>/<current year>)")
	cmd.Flags().StringVar(&yearFlag, "year", "", "Year label stored with each letter (default previous-current, e.g. 2023-24)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Match files to records without importing or updating anything")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the run report as JSON")
	cmd.Flags().BoolVar(&watchMode, "watch", false, "Keep running and import letters as they arrive in the directory")
	return cmd
}

func printReport(cmd *cobra.Command, report *letters.Report) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	if len(report.Outcomes) == 0 {
		fmt.Fprintf(out, "No letters found in %s\n", report.Dir)
		return
	}

	if report.DryRun {
		rows := make([][]string, 0, len(report.Outcomes))
		for _, o := range report.Outcomes {
			rows = append(rows, []string{o.File, o.Identifier, o.Record, outcomeResult(o)})
		}
		fprintln(out, renderTable([]string{"File", "Identifier", "Record", "Result"}, rows, nil))
	} else {
		for _, o := range report.Outcomes {
			fprintln(out, outcomeLine(o, colorize))
		}
	}

	ok, failed := summarize(report)
	verb := "imported"
	if report.DryRun {
		verb = "matched"
	}
	fmt.Fprintf(out, "%d %s, %d skipped (year %s, run %s)\n", ok, verb, failed, report.Year, report.RunID)
}

// watchLetters blocks until the command context is cancelled, handing each
// settled batch of new files to importBatch. A batch that collides with
// another run is logged and skipped.
func watchLetters(cmd *cobra.Command, ctx *commandContext, dir string, settle time.Duration, importBatch watch.Trigger) error {
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}
	trigger := func(runCtx context.Context, names []string) error {
		err := importBatch(runCtx, names)
		if errors.Is(err, letters.ErrBatchInProgress) {
			logging.WarnWithContext(logger, "skipped watch batch", "watch_batch_skipped",
				logging.Int("count", len(names)),
				logging.String(logging.FieldErrorHint, "another import holds the lock; rerun import once it finishes"),
				logging.String(logging.FieldImpact, "these files were not imported"),
			)
			return nil
		}
		return err
	}
	w, err := watch.New(dir, settle, trigger, watch.WithLogger(logger))
	if err != nil {
		return err
	}
	fprintln(cmd.OutOrStdout(), fmt.Sprintf("Watching %s for new letters (Ctrl+C to stop)", dir))
	return w.Run(cmd.Context())
}
