package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/termsheet-validator/constants"
	"github.com/joseph-ayodele/termsheet-validator/internal/ingest"
	"github.com/joseph-ayodele/termsheet-validator/internal/report"
)

var (
	batchOut        string
	batchSkipHidden bool
	batchWorkers    int
)

var batchCmd = &cobra.Command{
	Use:   "batch [dir]",
	Short: "Validate every term sheet under a directory",
	Long: `Walks a directory recursively and validates each file with an allowed
extension. Files are processed concurrently; the summary is printed in
lexical path order and can also be written as an XLSX report.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().StringVarP(&batchOut, "out", "o", "", "write an XLSX report to this path")
	batchCmd.Flags().BoolVar(&batchSkipHidden, "skip-hidden", true, "skip dot files and dot directories")
	batchCmd.Flags().IntVarP(&batchWorkers, "workers", "w", 0, "concurrent validations (default: pipeline.workers)")
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	a, err := requireApp()
	if err != nil {
		return err
	}
	workers := batchWorkers
	if workers <= 0 {
		workers = a.Config.Pipeline.Workers
	}

	results, stats, err := ingest.ValidateDirectory(cmd.Context(), a.Pipeline, args[0], ingest.DirOptions{
		Exts:       constants.ExtSet(a.Config.Server.AllowedExtensions),
		SkipHidden: batchSkipHidden,
		Workers:    workers,
		Logger:     a.Logger,
	})
	if err != nil {
		return fmt.Errorf("batch failed: %w", err)
	}

	if len(results) == 0 {
		cmd.Println("No matching files found.")
	}
	rows := make([]report.Row, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			cmd.Printf("%-8s %s: %v\n", "ERROR", r.Path, r.Err)
			rows = append(rows, report.FromError(r.Path, r.Err))
			continue
		}
		cmd.Println(resultLine(r.Path, r.Result))
		rows = append(rows, report.FromResult(r.Path, r.Result))
	}
	cmd.Printf("\nScanned: %d  Matched: %d  Succeeded: %d  Failed: %d  Fallback: %d\n",
		stats.Scanned, stats.Matched, stats.Succeeded, stats.Failed, stats.FellBack)

	if batchOut == "" {
		return nil
	}
	data, err := report.XLSX("Batch", rows, a.Logger)
	if err != nil {
		return fmt.Errorf("build report: %w", err)
	}
	if err := os.WriteFile(batchOut, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	cmd.Printf("Report written to %s\n", batchOut)
	return nil
}
