package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/termsheet-validator/constants"
	"github.com/joseph-ayodele/termsheet-validator/internal/extract"
	"github.com/joseph-ayodele/termsheet-validator/internal/ingest"
)

var (
	watchInitial bool
	watchLimit   int
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir...]",
	Short: "Validate term sheets as they land in a directory",
	Long: `Watches one or more directories recursively and validates each allowed
file when it is created or rewritten. Bursts of writes to the same file are
coalesced using watch.debounce. Stops on interrupt.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchInitial, "initial-scan", false, "validate files already present before watching")
	watchCmd.Flags().IntVar(&watchLimit, "limit", 0, "stop after this many files (0 = no limit)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := requireApp()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	paths, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       args,
		AllowedExts: constants.ExtSet(a.Config.Server.AllowedExtensions),
		InitialScan: watchInitial,
		Debounce:    a.Config.Watch.Debounce.Duration,
		SkipHidden:  a.Config.Watch.SkipHidden,
		Logger:      a.Logger,
	})
	if err != nil {
		return err
	}
	cmd.Printf("Watching %d director(ies). Press Ctrl+C to stop.\n", len(args))

	seen := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			a.Logger.Warn("watch error", "error", err)
		case p, ok := <-paths:
			if !ok {
				return nil
			}
			doc, err := extract.Open(p)
			if err != nil {
				cmd.Printf("%-8s %s: %v\n", "ERROR", p, err)
				continue
			}
			res, err := a.Pipeline.Validate(ctx, doc)
			if err != nil {
				cmd.Printf("%-8s %s: %v\n", "ERROR", p, err)
				continue
			}
			cmd.Println(resultLine(p, res))
			seen++
			if watchLimit > 0 && seen >= watchLimit {
				return nil
			}
		}
	}
}
