package commands

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/budgie-app/budgie/internal/importer"
)

func newImportCommand(a *app) *cobra.Command {
	var (
		dir     string
		format  string
		logPath string
		dryRun  bool
		keep    bool
	)

	cmd := &cobra.Command{
		Use:   "import [files...]",
		Short: "Import bank statement CSVs as Uncategorized expenses",
		Long: "Each row with a Funds Out amount becomes an expense in the Uncategorized category.\n" +
			"With no files, every CSV in the import directory is imported and, when all of its\n" +
			"rows went through, moved into its processed/ subdirectory.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(cmd); err != nil {
				return err
			}
			if dir == "" {
				dir = a.cfg.Import.Dir
			}
			if format == "" {
				format = a.cfg.Import.Format
			}
			if logPath == "" {
				logPath = a.cfg.Import.LogPath
			}

			registry := importer.DefaultRegistry()
			parser := registry.Get(format)
			if parser == nil {
				return fmt.Errorf("unknown statement format %q (have %s)", format, strings.Join(registry.Formats(), ", "))
			}

			paths := args
			scanned := len(args) == 0
			if scanned {
				if dir == "" {
					return fmt.Errorf("no files given and no import directory configured")
				}
				files, err := importer.Scan(dir)
				if err != nil {
					return err
				}
				for _, f := range files {
					paths = append(paths, f.Path)
				}
				if len(paths) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "No CSV files in %s\n", dir)
					return nil
				}
			}

			if err := a.connect(cmd); err != nil {
				return err
			}
			p := importer.New(a.dispatcher, a.store,
				importer.WithParser(parser),
				importer.WithConcurrency(a.cfg.Import.Concurrency),
				importer.WithLogPath(logPath),
				importer.WithDryRun(dryRun),
				importer.WithLogger(a.logger),
			)
			report, err := p.Import(cmd.Context(), paths)
			if err != nil {
				return err
			}
			return finishImport(a, cmd, report, paths, scanned && !dryRun && !keep, dir)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "directory to scan when no files are given (default import.dir)")
	cmd.Flags().StringVar(&format, "statement-format", "", "statement layout: statement or chase (default import.format)")
	cmd.Flags().StringVar(&logPath, "log", "", "append submissions to this CSV (default import.log_path)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate rows without creating anything")
	cmd.Flags().BoolVar(&keep, "keep", false, "leave scanned files in place")

	return cmd
}

func finishImport(a *app, cmd *cobra.Command, report importer.Report, paths []string, move bool, dir string) error {
	out := cmd.OutOrStdout()
	if report.Aborted {
		fmt.Fprintln(out, "Nothing imported: there is no Uncategorized category (try `budgie categories seed`)")
		return nil
	}

	for _, fe := range report.FileErrors {
		fmt.Fprintf(out, "%s: %v\n", fe.File, fe.Err)
	}
	for _, res := range report.Results {
		if res.Status == importer.StatusFailed {
			fmt.Fprintf(out, "%s:%d %s: %v\n", res.File, res.Row, res.Vendor, res.Err)
		}
	}

	if move {
		for _, path := range paths {
			name := filepath.Base(path)
			if !report.Clean(name) {
				continue
			}
			if err := importer.MarkProcessed(dir, name); err != nil {
				return err
			}
			a.logger.Debug("moved to processed", "file", name)
		}
	}

	if n := report.Count(importer.StatusPlanned); n > 0 {
		fmt.Fprintf(out, "%d would be created, %d skipped, %d invalid\n", n, report.Skipped(), report.Failed())
	} else {
		fmt.Fprintf(out, "%d created, %d skipped, %d failed\n", report.Submitted(), report.Skipped(), report.Failed())
	}

	if failed := report.Failed() + len(report.FileErrors); failed > 0 {
		return fmt.Errorf("%d rows or files could not be imported", failed)
	}
	return nil
}
